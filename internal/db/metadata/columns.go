package metadata

import (
	"context"
	"fmt"

	"github.com/rebelice/lazyadmin/internal/db/connection"
	"github.com/rebelice/lazyadmin/internal/models"
)

// GetTableColumns retrieves column metadata for a table
func GetTableColumns(ctx context.Context, pool *connection.Pool, schema, table string) ([]models.ColumnInfo, error) {
	query := `
		SELECT
			c.column_name,
			c.data_type,
			c.udt_name,
			c.is_nullable = 'YES' AS is_nullable,
			CASE WHEN c.data_type = 'ARRAY' THEN true ELSE false END AS is_array,
			EXISTS (
				SELECT 1
				FROM pg_catalog.pg_type t
				WHERE t.typname = c.udt_name AND t.typtype = 'e'
			) AS is_enum
		FROM information_schema.columns c
		WHERE c.table_schema = $1 AND c.table_name = $2
		ORDER BY c.ordinal_position
	`

	rows, err := pool.Query(ctx, query, schema, table)
	if err != nil {
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}

	columns := make([]models.ColumnInfo, 0, len(rows))
	for _, row := range rows {
		var col models.ColumnInfo
		col.Name = toString(row["column_name"])
		col.DataType = toString(row["data_type"])
		col.UdtName = toString(row["udt_name"])

		if nullable, ok := row["is_nullable"].(bool); ok {
			col.Nullable = nullable
		}
		if isArray, ok := row["is_array"].(bool); ok {
			col.IsArray = isArray
		}
		if isEnum, ok := row["is_enum"].(bool); ok {
			col.IsEnum = isEnum
		}
		col.IsJsonb = col.UdtName == "jsonb" || col.UdtName == "json"

		columns = append(columns, col)
	}

	return columns, nil
}
