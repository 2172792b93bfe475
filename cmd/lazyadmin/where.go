package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rebelice/lazyadmin/internal/db/query"
	"github.com/rebelice/lazyadmin/internal/filter"
	"github.com/rebelice/lazyadmin/internal/jsonb"
	"github.com/rebelice/lazyadmin/internal/models"
	"github.com/rebelice/lazyadmin/internal/schema"
	"github.com/rebelice/lazyadmin/internal/urlstate"
)

type whereOptions struct {
	filters  string
	search   string
	model    string
	showSQL  bool
	field    string
	operator string
	value    string
	mode     string
	path     string
}

var whereOpts whereOptions

var whereCmd = &cobra.Command{
	Use:   "where",
	Short: "Print the where input built from a filters parameter",
	Long: `Decodes a filters URL parameter and prints the where input it produces.

The parameter is read from --filters, or from stdin when --filters is "-". A
single extra filter can be given with --field, --op and --value. With --sql the
compiled statements are printed as well; this needs a schema file.

Example:
  lazyadmin where --model User --field age --op gte --value 18 --search ali --sql`,
	RunE: func(cmd *cobra.Command, args []string) error {
		filters, err := readFilters(cmd.InOrStdin(), cmd.ErrOrStderr(), whereOpts)
		if err != nil {
			return err
		}

		var sch *schema.Schema
		if whereOpts.search != "" || whereOpts.showSQL {
			if whereOpts.model == "" {
				return fmt.Errorf("--model is required with --search and --sql")
			}
			if cfg.Schema.File == "" {
				return fmt.Errorf("a schema file (schema.file) is required with --search and --sql")
			}
			if sch, err = schema.LoadFile(cfg.Schema.File); err != nil {
				return err
			}
		}

		where := filter.BuildWhere(filters)
		if whereOpts.search != "" {
			m, ok := sch.Model(whereOpts.model)
			if !ok {
				return fmt.Errorf("%w: %s", query.ErrUnknownModel, whereOpts.model)
			}
			where = filter.MergeWhereConditions(where, filter.BuildSearchWhere(whereOpts.search, m.Fields))
		}

		out := cmd.OutOrStdout()
		if err := printWhere(out, where); err != nil {
			return err
		}

		if !whereOpts.showSQL {
			return nil
		}
		stmts, err := query.NewCompiler(sch).Build(query.PageRequest{Model: whereOpts.model, Where: where})
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "\n%s\n%s\n", stmts.Count, stmts.Page)
		for i, arg := range stmts.Args {
			fmt.Fprintf(out, "$%d = %v\n", i+1, arg)
		}
		return nil
	},
}

func init() {
	f := whereCmd.Flags()
	f.StringVar(&whereOpts.filters, "filters", "", `filters parameter value, or "-" to read it from stdin`)
	f.StringVar(&whereOpts.search, "search", "", "free-text search across string fields")
	f.StringVar(&whereOpts.model, "model", "", "model name")
	f.BoolVar(&whereOpts.showSQL, "sql", false, "print the compiled SQL")
	f.StringVar(&whereOpts.field, "field", "", "field of an extra filter")
	f.StringVar(&whereOpts.operator, "op", string(models.OpEquals), "operator of the extra filter")
	f.StringVar(&whereOpts.value, "value", "", "value of the extra filter (JSON, or a plain string)")
	f.StringVar(&whereOpts.mode, "mode", "", "string matching mode of the extra filter")
	f.StringVar(&whereOpts.path, "path", "", "JSON path of the extra filter, e.g. $.address.city")
}

// readFilters decodes the filters parameter and appends the filter described
// by the --field flags
func readFilters(stdin io.Reader, stderr io.Writer, opts whereOptions) ([]models.FilterValue, error) {
	raw := opts.filters
	if raw == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read filters from stdin: %w", err)
		}
		raw = strings.TrimSpace(string(data))
	}

	var filters []models.FilterValue
	if raw != "" {
		var err error
		if filters, err = urlstate.DecodeFilters(raw); err != nil {
			return nil, err
		}
	}

	if opts.field == "" {
		return filters, nil
	}

	fv := models.FilterValue{
		Field:    opts.field,
		Operator: models.Operator(opts.operator),
		Mode:     models.Mode(opts.mode),
		Value:    parseValue(opts.value),
	}
	if !fv.Operator.Valid() {
		fmt.Fprintf(stderr, "warning: unknown operator %q, matching the literal value\n", opts.operator)
	}
	if opts.path != "" {
		p, err := jsonb.ParsePath(opts.path)
		if err != nil {
			return nil, fmt.Errorf("invalid --path: %w", err)
		}
		fv.Path = p.Parts
	}
	return append(filters, fv), nil
}

// printWhere writes the where input as indented JSON. An empty input prints
// as {} so the output is always an object.
func printWhere(w io.Writer, where models.WhereInput) error {
	if where == nil {
		where = models.WhereInput{}
	}
	text, err := jsonb.Format(where)
	if err != nil {
		return fmt.Errorf("failed to encode where input: %w", err)
	}
	_, err = fmt.Fprintln(w, text)
	return err
}

// parseValue reads a flag value as JSON, falling back to the raw string
func parseValue(s string) any {
	if s == "" {
		return nil
	}
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return s
	}
	return v
}
