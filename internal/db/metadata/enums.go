package metadata

import (
	"context"
	"fmt"

	"github.com/rebelice/lazyadmin/internal/db/connection"
	"github.com/rebelice/lazyadmin/internal/models"
)

// ListEnums returns the enum types of a schema with their labels in sort order
func ListEnums(ctx context.Context, pool *connection.Pool, schema string) ([]models.EnumType, error) {
	query := `
		SELECT
			t.typname AS name,
			e.enumlabel AS label
		FROM pg_catalog.pg_type t
		JOIN pg_catalog.pg_enum e ON e.enumtypid = t.oid
		JOIN pg_catalog.pg_namespace n ON n.oid = t.typnamespace
		WHERE n.nspname = $1
		ORDER BY t.typname, e.enumsortorder
	`

	rows, err := pool.Query(ctx, query, schema)
	if err != nil {
		return nil, fmt.Errorf("failed to list enums: %w", err)
	}

	var enums []models.EnumType
	for _, row := range rows {
		name := toString(row["name"])
		if len(enums) == 0 || enums[len(enums)-1].Name != name {
			enums = append(enums, models.EnumType{Name: name})
		}
		last := &enums[len(enums)-1]
		last.Values = append(last.Values, toString(row["label"]))
	}

	return enums, nil
}
