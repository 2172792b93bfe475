package filter

import (
	"reflect"
	"strings"

	"github.com/rebelice/lazyadmin/internal/models"
)

// BuildWhere converts a list of filters into a where input. All conditions are
// conjunctive. It returns nil when there is nothing to filter on.
//
// A filter without a value (nil, empty or blank string) is skipped unless its
// operator is isNull or isNotNull. When two filters target the same field the
// later one replaces the earlier one.
func BuildWhere(filters []models.FilterValue) models.WhereInput {
	if len(filters) == 0 {
		return nil
	}

	where := models.WhereInput{}
	for _, f := range filters {
		if NeedsValue(f.Operator) && isBlank(f.Value) {
			continue
		}

		// Relation filters carry a nested where for the target model. The
		// operator is kept as the key, so isNull becomes {"isNull": nil}.
		if f.Type == models.TypeRelation {
			where[f.Field] = map[string]any{string(f.Operator): f.Value}
			continue
		}

		where[f.Field] = buildCondition(f)
	}

	if len(where) == 0 {
		return nil
	}
	return where
}

// buildCondition returns the predicate for a single filter
func buildCondition(f models.FilterValue) any {
	switch f.Operator {
	case models.OpEquals:
		return f.Value
	case models.OpNot:
		return map[string]any{"not": f.Value}
	case models.OpIn, models.OpNotIn:
		return map[string]any{string(f.Operator): asList(f.Value)}
	case models.OpLt, models.OpLte, models.OpGt, models.OpGte:
		return map[string]any{string(f.Operator): f.Value}
	case models.OpContains, models.OpStartsWith, models.OpEndsWith:
		cond := map[string]any{string(f.Operator): f.Value}
		if f.Mode != "" {
			cond["mode"] = string(f.Mode)
		}
		return cond
	case models.OpStringContains, models.OpStringStartsWith, models.OpStringEndsWith:
		cond := map[string]any{string(f.Operator): f.Value}
		if f.Mode != "" {
			cond["mode"] = string(f.Mode)
		}
		if len(f.Path) > 0 {
			cond["path"] = f.Path
		}
		return cond
	case models.OpArrayContains, models.OpArrayStartsWith, models.OpArrayEndsWith:
		// Arrays have no case sensitivity, so mode is never forwarded
		cond := map[string]any{string(f.Operator): f.Value}
		if len(f.Path) > 0 {
			cond["path"] = f.Path
		}
		return cond
	case models.OpIsNull:
		return nil
	case models.OpIsNotNull:
		return map[string]any{"not": nil}
	default:
		return f.Value
	}
}

// MergeWhereConditions combines the filter where and the search where. Both
// sides are kept intact under AND so that keys present in both never collide.
func MergeWhereConditions(filterWhere, searchWhere models.WhereInput) models.WhereInput {
	switch {
	case filterWhere == nil && searchWhere == nil:
		return nil
	case filterWhere == nil:
		return searchWhere
	case searchWhere == nil:
		return filterWhere
	}
	return models.WhereInput{
		models.WhereAnd: []models.WhereInput{filterWhere, searchWhere},
	}
}

// BuildSearchWhere matches the search text case-insensitively against every
// scalar string field.
func BuildSearchWhere(search string, fields []models.FilterConfig) models.WhereInput {
	search = strings.TrimSpace(search)
	if search == "" {
		return nil
	}

	var or []models.WhereInput
	for _, f := range fields {
		if f.Type != models.TypeString || f.IsRelation() || f.List {
			continue
		}
		or = append(or, models.WhereInput{
			f.Field: map[string]any{
				string(models.OpContains): search,
				"mode":                    string(models.ModeInsensitive),
			},
		})
	}

	if len(or) == 0 {
		return nil
	}
	return models.WhereInput{models.WhereOr: or}
}

func isBlank(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}

// asList wraps a single value into a one-element list
func asList(v any) any {
	if v == nil {
		return []any{}
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if _, isBytes := v.([]byte); !isBytes {
			return v
		}
	}
	return []any{v}
}
