package filter

import (
	"strings"

	"github.com/rebelice/lazyadmin/internal/models"
)

var operatorLabels = map[models.Operator]string{
	models.OpEquals:           "Equals",
	models.OpNot:              "Not equals",
	models.OpIn:               "In",
	models.OpNotIn:            "Not in",
	models.OpLt:               "Less than",
	models.OpLte:              "Less than or equal",
	models.OpGt:               "Greater than",
	models.OpGte:              "Greater than or equal",
	models.OpContains:         "Contains",
	models.OpStartsWith:       "Starts with",
	models.OpEndsWith:         "Ends with",
	models.OpIsNull:           "Is empty",
	models.OpIsNotNull:        "Is not empty",
	models.OpIs:               "Is",
	models.OpIsNot:            "Is not",
	models.OpEvery:            "Every",
	models.OpSome:             "Some",
	models.OpNone:             "None",
	models.OpStringContains:   "String contains",
	models.OpStringStartsWith: "String starts with",
	models.OpStringEndsWith:   "String ends with",
	models.OpArrayContains:    "Array contains",
	models.OpArrayStartsWith:  "Array starts with",
	models.OpArrayEndsWith:    "Array ends with",
}

// OperatorsForType returns available operators for a field type and kind.
// Unknown combinations get equality and null checks.
func OperatorsForType(fieldType models.FieldType, kind models.FieldKind) []models.Operator {
	switch {
	case fieldType == models.TypeRelation || kind == models.KindObject || kind == models.KindObjectList:
		if kind == models.KindObjectList {
			return []models.Operator{models.OpEvery, models.OpSome, models.OpNone}
		}
		return []models.Operator{models.OpIs, models.OpIsNot}
	case fieldType == models.TypeEnum || kind == models.KindEnum:
		return []models.Operator{
			models.OpEquals, models.OpNot,
			models.OpIn, models.OpNotIn,
			models.OpIsNull, models.OpIsNotNull,
		}
	}

	switch fieldType {
	case models.TypeString:
		return []models.Operator{
			models.OpEquals, models.OpNot,
			models.OpContains, models.OpStartsWith, models.OpEndsWith,
			models.OpIn, models.OpNotIn,
			models.OpIsNull, models.OpIsNotNull,
		}
	case models.TypeNumber:
		return []models.Operator{
			models.OpEquals, models.OpNot,
			models.OpLt, models.OpLte, models.OpGt, models.OpGte,
			models.OpIn, models.OpNotIn,
			models.OpIsNull, models.OpIsNotNull,
		}
	case models.TypeDateTime:
		return []models.Operator{
			models.OpEquals, models.OpNot,
			models.OpLt, models.OpLte, models.OpGt, models.OpGte,
			models.OpIsNull, models.OpIsNotNull,
		}
	case models.TypeBoolean:
		return []models.Operator{
			models.OpEquals, models.OpNot,
			models.OpIsNull, models.OpIsNotNull,
		}
	case models.TypeJSON:
		return []models.Operator{
			models.OpEquals, models.OpNot,
			models.OpStringContains, models.OpStringStartsWith, models.OpStringEndsWith,
			models.OpArrayContains, models.OpArrayStartsWith, models.OpArrayEndsWith,
			models.OpIsNull, models.OpIsNotNull,
		}
	default:
		return []models.Operator{
			models.OpEquals, models.OpNot,
			models.OpIsNull, models.OpIsNotNull,
		}
	}
}

// OperatorsFor returns the operators of a configured field. A relation marked
// as a list is treated as to-many even when its kind is left empty.
func OperatorsFor(cfg models.FilterConfig) []models.Operator {
	kind := cfg.Kind
	if cfg.Type == models.TypeRelation && cfg.List {
		kind = models.KindObjectList
	}
	return OperatorsForType(cfg.Type, kind)
}

// OperatorLabel returns the display label of an operator, or the operator
// itself when it has none.
func OperatorLabel(op models.Operator) string {
	if label, ok := operatorLabels[op]; ok {
		return label
	}
	return string(op)
}

// NeedsValue reports whether the operator takes a value.
func NeedsValue(op models.Operator) bool {
	return op != models.OpIsNull && op != models.OpIsNotNull
}

// IsMultiValue reports whether the operator takes a list of values.
func IsMultiValue(op models.Operator) bool {
	return op == models.OpIn || op == models.OpNotIn
}

// NormalizeType maps a Prisma scalar name or a PostgreSQL data type to a
// FieldType. Anything unrecognized, including USER-DEFINED types such as
// citext or point, is treated as a string.
func NormalizeType(raw string) models.FieldType {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "int", "integer", "int2", "int4", "int8", "smallint", "bigint",
		"serial", "serial2", "serial4", "serial8", "smallserial", "bigserial",
		"float", "float4", "float8", "real", "double", "double precision",
		"decimal", "numeric", "number", "money":
		return models.TypeNumber
	case "boolean", "bool":
		return models.TypeBoolean
	case "datetime", "date", "timestamp", "timestamptz",
		"timestamp with time zone", "timestamp without time zone":
		return models.TypeDateTime
	case "json", "jsonb":
		return models.TypeJSON
	case "enum":
		return models.TypeEnum
	case "relation":
		return models.TypeRelation
	default:
		// time of day and intervals have no date part to compare against
		return models.TypeString
	}
}
