package models

// Operator is a filter comparison operator as it appears in the `filters` URL
// parameter and in the generated where input.
type Operator string

const (
	OpEquals     Operator = "equals"
	OpNot        Operator = "not"
	OpIn         Operator = "in"
	OpNotIn      Operator = "notIn"
	OpLt         Operator = "lt"
	OpLte        Operator = "lte"
	OpGt         Operator = "gt"
	OpGte        Operator = "gte"
	OpContains   Operator = "contains"
	OpStartsWith Operator = "startsWith"
	OpEndsWith   Operator = "endsWith"
	OpIsNull     Operator = "isNull"
	OpIsNotNull  Operator = "isNotNull"

	// Relation operators
	OpIs    Operator = "is"    // to-one
	OpIsNot Operator = "isNot" // to-one
	OpEvery Operator = "every" // to-many
	OpSome  Operator = "some"  // to-many
	OpNone  Operator = "none"  // to-many

	// JSON operators
	OpStringContains   Operator = "string_contains"
	OpStringStartsWith Operator = "string_starts_with"
	OpStringEndsWith   Operator = "string_ends_with"
	OpArrayContains    Operator = "array_contains"
	OpArrayStartsWith  Operator = "array_starts_with"
	OpArrayEndsWith    Operator = "array_ends_with"
)

var allOperators = []Operator{
	OpEquals, OpNot, OpIn, OpNotIn,
	OpLt, OpLte, OpGt, OpGte,
	OpContains, OpStartsWith, OpEndsWith,
	OpIsNull, OpIsNotNull,
	OpIs, OpIsNot, OpEvery, OpSome, OpNone,
	OpStringContains, OpStringStartsWith, OpStringEndsWith,
	OpArrayContains, OpArrayStartsWith, OpArrayEndsWith,
}

// AllOperators returns every known operator.
func AllOperators() []Operator {
	ops := make([]Operator, len(allOperators))
	copy(ops, allOperators)
	return ops
}

// Valid reports whether o is one of the known operators.
func (o Operator) Valid() bool {
	for _, op := range allOperators {
		if op == o {
			return true
		}
	}
	return false
}

// FieldType is the filter-level type of a model field
type FieldType string

const (
	TypeString   FieldType = "string"
	TypeNumber   FieldType = "number"
	TypeBoolean  FieldType = "boolean"
	TypeDateTime FieldType = "datetime"
	TypeJSON     FieldType = "json"
	TypeEnum     FieldType = "enum"
	TypeRelation FieldType = "relation"
)

// FieldKind distinguishes scalar, enum and relation fields
type FieldKind string

const (
	KindScalar     FieldKind = "scalar"
	KindEnum       FieldKind = "enum"
	KindObject     FieldKind = "object"     // to-one relation
	KindObjectList FieldKind = "objectList" // to-many relation
)

// Mode controls case sensitivity of string matching
type Mode string

const (
	ModeInsensitive Mode = "insensitive"
	ModeSensitive   Mode = "sensitive"
	ModeDefault     Mode = "default"
)

// FilterValue is a single filter condition.
//
// Value is nil for isNull/isNotNull and a slice for in/notIn. Path is only
// meaningful for json fields.
type FilterValue struct {
	Field    string    `json:"field"`
	Operator Operator  `json:"operator"`
	Value    any       `json:"value"`
	Type     FieldType `json:"type,omitempty"`
	Mode     Mode      `json:"mode,omitempty"`
	Path     []string  `json:"path,omitempty"`
}

// FilterConfig describes how a field can be filtered. It is derived once from
// the schema and never changes afterwards.
type FilterConfig struct {
	Field      string    `json:"field" yaml:"field"`
	Label      string    `json:"label" yaml:"label,omitempty"`
	Type       FieldType `json:"type" yaml:"type"`
	Kind       FieldKind `json:"kind,omitempty" yaml:"kind,omitempty"`
	List       bool      `json:"list,omitempty" yaml:"list,omitempty"`
	RelationTo string    `json:"relationTo,omitempty" yaml:"relationTo,omitempty"`
	EnumValues []string  `json:"enumValues,omitempty" yaml:"enumValues,omitempty"`

	// Column is the database column backing a scalar field.
	Column string `json:"-" yaml:"column,omitempty"`
	// RelationFields and RelationReferences pair up join columns. For a to-one
	// relation RelationFields live on this model and RelationReferences on the
	// target; for a to-many relation RelationFields live on the target and
	// RelationReferences on this model.
	RelationFields     []string `json:"-" yaml:"relationFields,omitempty"`
	RelationReferences []string `json:"-" yaml:"relationReferences,omitempty"`
}

// IsRelation reports whether the field points at another model.
func (c FilterConfig) IsRelation() bool {
	return c.Type == TypeRelation || c.Kind == KindObject || c.Kind == KindObjectList
}

// ColumnName returns the backing column, falling back to the field name.
func (c FilterConfig) ColumnName() string {
	if c.Column != "" {
		return c.Column
	}
	return c.Field
}

// WhereInput is the nested predicate structure handed to the data layer:
// field name -> predicate object (map[string]any) or literal value, plus the
// logical keys AND, OR and NOT.
type WhereInput map[string]any

// Logical keys of a WhereInput
const (
	WhereAnd = "AND"
	WhereOr  = "OR"
	WhereNot = "NOT"
)
