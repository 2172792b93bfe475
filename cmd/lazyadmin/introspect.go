package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rebelice/lazyadmin/internal/schema"
)

var introspectOut string

var introspectCmd = &cobra.Command{
	Use:   "introspect",
	Short: "Print the models introspected from the database as YAML",
	Long: `Reads the tables, enums and foreign keys of the configured database schema and
prints the resulting models. The output can be edited and used as schema.file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		pool, err := openDatabase(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		sch, err := schema.Introspect(ctx, pool, cfg.Database.Schema)
		if err != nil {
			return err
		}
		data, err := sch.Marshal()
		if err != nil {
			return err
		}

		if introspectOut == "" {
			_, err = cmd.OutOrStdout().Write(data)
			return err
		}
		if err := os.WriteFile(introspectOut, data, 0o644); err != nil {
			return fmt.Errorf("failed to write schema file: %w", err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %d models to %s\n", len(sch.Models), introspectOut)
		return nil
	},
}

func init() {
	introspectCmd.Flags().StringVarP(&introspectOut, "out", "o", "", "write to a file instead of stdout")
}
