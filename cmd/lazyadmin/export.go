package main

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rebelice/lazyadmin/internal/db/query"
	"github.com/rebelice/lazyadmin/internal/export"
	"github.com/rebelice/lazyadmin/internal/filter"
	"github.com/rebelice/lazyadmin/internal/urlstate"
)

var (
	exportModel  string
	exportQuery  string
	exportFormat string
	exportOut    string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export every row matching a list view",
	Long: `Exports the rows of a model matching a list view's query string (the part of a
list URL after "?"), ignoring pagination.

Example:
  lazyadmin export --model User --query 'search=ali&sort=age&order=desc' --format json -o users.json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		format, err := export.ParseFormat(exportFormat)
		if err != nil {
			return err
		}
		values, err := url.ParseQuery(exportQuery)
		if err != nil {
			return fmt.Errorf("invalid --query: %w", err)
		}
		state, err := urlstate.ParseQuery(values, urlstate.Defaults{
			PageSize:    cfg.Pagination.DefaultPageSize,
			MaxPageSize: cfg.Pagination.MaxPageSize,
		})
		if err != nil {
			logger.Warn("ignoring malformed list state", zap.Error(err))
		}

		pool, err := openDatabase(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		sch, err := loadSchema(ctx, pool)
		if err != nil {
			return err
		}
		m, ok := sch.Model(exportModel)
		if !ok {
			return fmt.Errorf("%w: %s", query.ErrUnknownModel, exportModel)
		}

		source := query.NewSource(pool, query.NewCompiler(sch))
		data, err := source.FetchPage(ctx, query.PageRequest{
			Model: m.Name,
			Where: filter.MergeWhereConditions(
				filter.BuildWhere(state.Filters),
				filter.BuildSearchWhere(state.Search, m.Fields),
			),
			SortField: state.Sort,
			SortOrder: state.Order,
		})
		if err != nil {
			return err
		}

		if exportOut == "" {
			return export.Write(cmd.OutOrStdout(), format, data)
		}
		if err := export.ExportToFile(data, format, exportOut); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d rows to %s\n", len(data.Rows), exportOut)
		return nil
	},
}

func init() {
	f := exportCmd.Flags()
	f.StringVar(&exportModel, "model", "", "model name")
	f.StringVar(&exportQuery, "query", "", "list view query string")
	f.StringVar(&exportFormat, "format", "csv", "csv or json")
	f.StringVarP(&exportOut, "out", "o", "", "write to a file instead of stdout")
	_ = exportCmd.MarkFlagRequired("model")
}
