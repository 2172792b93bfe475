package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rebelice/lazyadmin/internal/filter"
	"github.com/rebelice/lazyadmin/internal/models"
)

var (
	operatorsType string
	operatorsKind string
)

var operatorsCmd = &cobra.Command{
	Use:   "operators",
	Short: "List the filter operators of a field type",
	Long: `Lists the operators offered for a field type and kind. The type may be a
filter type (string, number, ...) or a database type name such as "bigint".
Without --type every filter type is listed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		types := []models.FieldType{
			models.TypeString, models.TypeNumber, models.TypeDateTime, models.TypeBoolean,
			models.TypeJSON, models.TypeEnum, models.TypeRelation,
		}
		if operatorsType != "" {
			types = []models.FieldType{filter.NormalizeType(operatorsType)}
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "TYPE\tOPERATOR\tLABEL\tVALUE")
		for _, t := range types {
			for _, op := range filter.OperatorsForType(t, models.FieldKind(operatorsKind)) {
				value := "single"
				switch {
				case !filter.NeedsValue(op):
					value = "none"
				case filter.IsMultiValue(op):
					value = "list"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", t, op, filter.OperatorLabel(op), value)
			}
		}
		return w.Flush()
	},
}

func init() {
	operatorsCmd.Flags().StringVar(&operatorsType, "type", "", "field type")
	operatorsCmd.Flags().StringVar(&operatorsKind, "kind", "", "field kind (scalar, enum, object, objectList)")
}
