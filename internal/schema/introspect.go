package schema

import (
	"context"
	"fmt"
	"strings"

	"github.com/rebelice/lazyadmin/internal/db/connection"
	"github.com/rebelice/lazyadmin/internal/db/metadata"
	"github.com/rebelice/lazyadmin/internal/filter"
	"github.com/rebelice/lazyadmin/internal/models"
)

// TableMeta is everything introspection needs to know about one table
type TableMeta struct {
	Schema      string
	Name        string
	Columns     []models.ColumnInfo
	Constraints []models.Constraint
}

// Introspect reads the tables of a PostgreSQL schema and turns them into models
func Introspect(ctx context.Context, pool *connection.Pool, dbSchema string) (*Schema, error) {
	tables, err := metadata.ListTables(ctx, pool, dbSchema)
	if err != nil {
		return nil, err
	}

	enums, err := metadata.ListEnums(ctx, pool, dbSchema)
	if err != nil {
		return nil, err
	}

	metas := make([]TableMeta, 0, len(tables))
	for _, t := range tables {
		cols, err := metadata.GetTableColumns(ctx, pool, t.Schema, t.Name)
		if err != nil {
			return nil, fmt.Errorf("table %s: %w", t.Name, err)
		}
		cons, err := metadata.GetConstraints(ctx, pool, t.Schema, t.Name)
		if err != nil {
			return nil, fmt.Errorf("table %s: %w", t.Name, err)
		}
		metas = append(metas, TableMeta{
			Schema:      t.Schema,
			Name:        t.Name,
			Columns:     cols,
			Constraints: cons,
		})
	}

	return Build(metas, enums)
}

// Build assembles models from table metadata. Foreign keys become to-one
// relation fields on the referencing table and to-many relation fields on the
// referenced one.
func Build(tables []TableMeta, enums []models.EnumType) (*Schema, error) {
	enumValues := make(map[string][]string, len(enums))
	for _, e := range enums {
		enumValues[e.Name] = e.Values
	}

	known := make(map[string]bool, len(tables))
	for _, t := range tables {
		known[t.Name] = true
	}

	byName := make(map[string]*Model, len(tables))
	ms := make([]*Model, 0, len(tables))
	for _, t := range tables {
		m := &Model{
			Name:     t.Name,
			Table:    t.Name,
			DBSchema: t.Schema,
		}
		for _, col := range t.Columns {
			m.Fields = append(m.Fields, columnField(col, enumValues))
		}
		for _, con := range t.Constraints {
			if con.Type == "p" && len(con.Columns) > 0 && m.PrimaryKey == "" {
				m.PrimaryKey = con.Columns[0]
			}
		}
		byName[t.Name] = m
		ms = append(ms, m)
	}

	for _, t := range tables {
		m := byName[t.Name]
		for _, con := range t.Constraints {
			if con.Type != "f" {
				continue
			}
			_, target := metadata.SplitQualifiedName(con.ForeignTable)
			if !known[target] {
				continue
			}

			m.Fields = append(m.Fields, models.FilterConfig{
				Field:              uniqueField(m, toOneName(con.Columns, target)),
				Type:               models.TypeRelation,
				Kind:               models.KindObject,
				RelationTo:         target,
				RelationFields:     con.Columns,
				RelationReferences: con.ForeignCols,
			})

			back := byName[target]
			back.Fields = append(back.Fields, models.FilterConfig{
				Field:              uniqueField(back, t.Name),
				Type:               models.TypeRelation,
				Kind:               models.KindObjectList,
				List:               true,
				RelationTo:         t.Name,
				RelationFields:     con.Columns,
				RelationReferences: con.ForeignCols,
			})
		}
	}

	return New(ms)
}

func columnField(col models.ColumnInfo, enumValues map[string][]string) models.FilterConfig {
	f := models.FilterConfig{
		Field: col.Name,
		Kind:  models.KindScalar,
	}

	udt := strings.TrimPrefix(col.UdtName, "_")
	switch {
	case col.IsEnum:
		f.Type = models.TypeEnum
		f.Kind = models.KindEnum
		f.EnumValues = enumValues[udt]
	case col.IsJsonb:
		f.Type = models.TypeJSON
	case col.IsArray:
		f.Type = filter.NormalizeType(udt)
		f.List = true
	default:
		f.Type = filter.NormalizeType(col.DataType)
	}
	return f
}

// toOneName names the relation after its column ("author_id" -> "author"),
// falling back to the target table.
func toOneName(columns []string, target string) string {
	if len(columns) == 1 {
		col := columns[0]
		for _, suffix := range []string{"_id", "Id", "ID"} {
			if strings.HasSuffix(col, suffix) && len(col) > len(suffix) {
				return strings.TrimSuffix(col, suffix)
			}
		}
	}
	return target
}

func uniqueField(m *Model, name string) string {
	taken := func(n string) bool {
		for _, f := range m.Fields {
			if f.Field == n {
				return true
			}
		}
		return false
	}
	if !taken(name) {
		return name
	}
	for i := 2; ; i++ {
		candidate := fmt.Sprintf("%s_%d", name, i)
		if !taken(candidate) {
			return candidate
		}
	}
}
