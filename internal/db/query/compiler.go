package query

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/rebelice/lazyadmin/internal/jsonb"
	"github.com/rebelice/lazyadmin/internal/models"
	"github.com/rebelice/lazyadmin/internal/schema"
)

// baseAlias is the alias of the model being listed
const baseAlias = "t0"

// predicateKeys are the keys that turn a map into a predicate object instead
// of a literal value
var predicateKeys = map[string]bool{
	"equals": true, "not": true, "mode": true, "path": true,
	"in": true, "notIn": true,
	"lt": true, "lte": true, "gt": true, "gte": true,
	"contains": true, "startsWith": true, "endsWith": true,
	"string_contains": true, "string_starts_with": true, "string_ends_with": true,
	"array_contains": true, "array_starts_with": true, "array_ends_with": true,
}

var relationKeys = map[string]bool{
	"is": true, "isNot": true, "every": true, "some": true, "none": true,
}

// Compiler translates where inputs into PostgreSQL predicates for the models of
// a schema. A Compiler is safe for concurrent use.
type Compiler struct {
	schema *schema.Schema
}

// NewCompiler creates a compiler for a schema
func NewCompiler(s *schema.Schema) *Compiler {
	return &Compiler{schema: s}
}

// Schema returns the schema the compiler resolves fields against
func (c *Compiler) Schema() *schema.Schema {
	return c.schema
}

// Compile returns the predicate for a where input (without the WHERE keyword)
// and its positional arguments. An empty where input yields an empty clause.
// The base table must be aliased as t0.
func (c *Compiler) Compile(model string, where models.WhereInput) (string, []any, error) {
	m, ok := c.schema.Model(model)
	if !ok {
		return "", nil, fmt.Errorf("%w: %s", ErrUnknownModel, model)
	}
	if len(where) == 0 {
		return "", nil, nil
	}

	st := &compileState{compiler: c}
	clause, err := st.where(m, baseAlias, where)
	if err != nil {
		return "", nil, err
	}
	return clause, st.args, nil
}

// OrderBy returns the ORDER BY clause for a sort column, or an empty string
// when the list is unsorted.
func (c *Compiler) OrderBy(model, field string, order models.SortOrder) (string, error) {
	if field == "" || order == models.SortNone {
		return "", nil
	}
	m, ok := c.schema.Model(model)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownModel, model)
	}
	f, ok := m.Field(field)
	if !ok || f.IsRelation() {
		return "", fieldError(model, field, ErrUnknownField)
	}

	dir := "ASC"
	if order == models.SortDesc {
		dir = "DESC"
	}
	return fmt.Sprintf("ORDER BY %s %s", column(baseAlias, f), dir), nil
}

// TableRef returns the quoted, schema-qualified table of a model
func TableRef(m *schema.Model) string {
	if m.DBSchema != "" {
		return pgx.Identifier{m.DBSchema, m.Table}.Sanitize()
	}
	return pgx.Identifier{m.Table}.Sanitize()
}

type compileState struct {
	compiler *Compiler
	args     []any
	aliases  int
}

func (st *compileState) arg(v any) string {
	st.args = append(st.args, v)
	return "$" + strconv.Itoa(len(st.args))
}

func (st *compileState) nextAlias() string {
	st.aliases++
	return "t" + strconv.Itoa(st.aliases)
}

func (st *compileState) where(m *schema.Model, alias string, where models.WhereInput) (string, error) {
	keys := make([]string, 0, len(where))
	for k := range where {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var clauses []string
	for _, key := range keys {
		value := where[key]

		var (
			clause string
			err    error
		)
		switch key {
		case models.WhereAnd, models.WhereOr:
			clause, err = st.logical(m, alias, key, value)
		case models.WhereNot:
			var inner string
			inner, err = st.logical(m, alias, models.WhereAnd, value)
			clause = "NOT " + inner
		default:
			f, ok := m.Field(key)
			if !ok {
				return "", fieldError(m.Name, key, ErrUnknownField)
			}
			if f.IsRelation() {
				clause, err = st.relation(m, alias, f, value)
			} else {
				clause, err = st.scalar(m, alias, f, value)
			}
		}
		if err != nil {
			return "", err
		}
		clauses = append(clauses, clause)
	}

	switch len(clauses) {
	case 0:
		return "TRUE", nil
	case 1:
		return clauses[0], nil
	default:
		return "(" + strings.Join(clauses, " AND ") + ")", nil
	}
}

// logical compiles AND, OR and NOT operands. A single where input is accepted
// in place of a list.
func (st *compileState) logical(m *schema.Model, alias, op string, value any) (string, error) {
	list, err := whereList(value)
	if err != nil {
		return "", fieldError(m.Name, op, err)
	}

	if len(list) == 0 {
		// An empty OR matches nothing, an empty AND everything
		if op == models.WhereOr {
			return "FALSE", nil
		}
		return "TRUE", nil
	}

	parts := make([]string, 0, len(list))
	for _, w := range list {
		clause, err := st.where(m, alias, w)
		if err != nil {
			return "", err
		}
		parts = append(parts, clause)
	}
	return "(" + strings.Join(parts, " "+op+" ") + ")", nil
}

func (st *compileState) scalar(m *schema.Model, alias string, f models.FilterConfig, value any) (string, error) {
	col := column(alias, f)

	if value == nil {
		return col + " IS NULL", nil
	}

	pred, ok := asWhere(value)
	if !ok || !isPredicate(pred) {
		return st.compare(col, f, "=", value)
	}

	mode := models.Mode(fmt.Sprint(pred["mode"]))
	var path []string
	if p, ok := pred["path"]; ok {
		var err error
		if path, err = stringList(p); err != nil {
			return "", fieldError(m.Name, f.Field, err)
		}
	}

	keys := make([]string, 0, len(pred))
	for k := range pred {
		if k != "mode" && k != "path" {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return "", fieldError(m.Name, f.Field, fmt.Errorf("%w: mode and path need an operator", ErrInvalidValue))
	}
	sort.Strings(keys)

	var clauses []string
	for _, op := range keys {
		v := pred[op]

		var (
			clause string
			err    error
		)
		switch op {
		case "equals":
			if v == nil {
				clause = col + " IS NULL"
			} else if mode == models.ModeInsensitive && f.Type == models.TypeString {
				clause = fmt.Sprintf("lower(%s) = lower(%s)", col, st.arg(formatParam(v)))
			} else {
				clause, err = st.compare(col, f, "=", v)
			}
		case "not":
			if v == nil {
				clause = col + " IS NOT NULL"
				break
			}
			if nested, ok := asWhere(v); ok && isPredicate(nested) {
				var inner string
				inner, err = st.scalar(m, alias, f, nested)
				clause = "NOT (" + inner + ")"
				break
			}
			clause, err = st.compare(col, f, "<>", v)
		case "in", "notIn":
			clause, err = st.in(col, f, v, op == "notIn")
		case "lt":
			clause, err = st.compare(col, f, "<", v)
		case "lte":
			clause, err = st.compare(col, f, "<=", v)
		case "gt":
			clause, err = st.compare(col, f, ">", v)
		case "gte":
			clause, err = st.compare(col, f, ">=", v)
		case "contains", "startsWith", "endsWith":
			clause = st.like(col, op, v, mode)
		case "string_contains", "string_starts_with", "string_ends_with":
			if f.Type != models.TypeJSON {
				err = ErrUnsupportedOperator
				break
			}
			target := "(" + col + " #>> '{}')"
			if len(path) > 0 {
				target = fmt.Sprintf("(%s #>> %s::text[])", col, st.arg(jsonb.Path{Parts: path}.PostgreSQLPath()))
			}
			clause = st.like(target, strings.TrimPrefix(op, "string_"), v, mode)
		case "array_contains", "array_starts_with", "array_ends_with":
			if f.Type != models.TypeJSON {
				err = ErrUnsupportedOperator
				break
			}
			clause, err = st.jsonArray(col, op, v, path)
		default:
			err = fmt.Errorf("%w: %s", ErrUnsupportedOperator, op)
		}
		if err != nil {
			return "", fieldError(m.Name, f.Field, err)
		}
		clauses = append(clauses, clause)
	}

	if len(clauses) == 1 {
		return clauses[0], nil
	}
	return "(" + strings.Join(clauses, " AND ") + ")", nil
}

func (st *compileState) compare(col string, f models.FilterConfig, op string, v any) (string, error) {
	if v == nil {
		return "", ErrInvalidValue
	}
	if f.Type == models.TypeJSON {
		data, err := json.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidValue, err)
		}
		return fmt.Sprintf("%s %s %s::text::jsonb", col, op, st.arg(string(data))), nil
	}
	if _, nested := asWhere(v); nested {
		return "", ErrInvalidValue
	}
	return fmt.Sprintf("%s %s %s", comparable(col, f), op, cast(st.arg(formatParam(v)), f.Type)), nil
}

func (st *compileState) in(col string, f models.FilterConfig, v any, negate bool) (string, error) {
	values, err := anyList(v)
	if err != nil {
		return "", err
	}
	if len(values) == 0 {
		// x IN () is false for every row, x NOT IN () true
		if negate {
			return "TRUE", nil
		}
		return "FALSE", nil
	}

	params := make([]string, len(values))
	for i, e := range values {
		params[i] = formatParam(e)
	}

	ph := st.arg(params) + "::text[]"
	if elem := sqlType(f.Type); elem != "" {
		ph += "::" + elem + "[]"
	}
	clause := fmt.Sprintf("%s = ANY(%s)", comparable(col, f), ph)
	if negate {
		clause = "NOT (" + clause + ")"
	}
	return clause, nil
}

func (st *compileState) like(target, op string, v any, mode models.Mode) string {
	pattern := escapeLike(formatParam(v))
	switch op {
	case "contains", "string_contains":
		pattern = "%" + pattern + "%"
	case "startsWith", "starts_with":
		pattern = pattern + "%"
	case "endsWith", "ends_with":
		pattern = "%" + pattern
	}

	like := "LIKE"
	if mode == models.ModeInsensitive {
		like = "ILIKE"
	}
	return fmt.Sprintf("%s::text %s %s", target, like, st.arg(pattern))
}

func (st *compileState) jsonArray(col, op string, v any, path []string) (string, error) {
	target := col
	if len(path) > 0 {
		target = fmt.Sprintf("(%s #> %s::text[])", col, st.arg(jsonb.Path{Parts: path}.PostgreSQLPath()))
	}

	switch op {
	case "array_contains":
		// A scalar is matched as a one-element array
		if _, err := anyList(v); err != nil || isScalar(v) {
			v = []any{v}
		}
		data, err := json.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidValue, err)
		}
		return fmt.Sprintf("%s @> %s::text::jsonb", target, st.arg(string(data))), nil
	case "array_starts_with", "array_ends_with":
		data, err := json.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidValue, err)
		}
		index := "0"
		if op == "array_ends_with" {
			index = "-1"
		}
		return fmt.Sprintf("%s -> %s = %s::text::jsonb", target, index, st.arg(string(data))), nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedOperator, op)
}

// relation compiles is/isNot/some/every/none into EXISTS subqueries on the
// related model. A map without relation keys is shorthand for is (to-one) or
// some (to-many). A lone isNull or isNotNull key ignores its operand.
func (st *compileState) relation(m *schema.Model, alias string, f models.FilterConfig, value any) (string, error) {
	target, ok := st.compiler.schema.Model(f.RelationTo)
	if !ok {
		return "", fieldError(m.Name, f.Field, fmt.Errorf("%w: %s", ErrUnknownModel, f.RelationTo))
	}
	if len(f.RelationFields) == 0 {
		return "", fieldError(m.Name, f.Field, fmt.Errorf("%w: relation has no join columns", ErrInvalidValue))
	}
	toMany := f.Kind == models.KindObjectList || f.List

	ops := map[string]any{}
	pred, isMap := asWhere(value)
	switch {
	case value == nil && toMany:
		ops["none"] = models.WhereInput{}
	case value == nil:
		ops["is"] = nil
	case isMap && len(pred) == 1 && pred["not"] == nil && hasKey(pred, "not"):
		// {not: null} asks for an existing relation
		if toMany {
			ops["some"] = models.WhereInput{}
		} else {
			ops["isNot"] = nil
		}
	case isMap && len(pred) == 1 && (hasKey(pred, string(models.OpIsNull)) || hasKey(pred, string(models.OpIsNotNull))):
		// isNull and isNotNull test whether a related row exists at all
		missing := hasKey(pred, string(models.OpIsNull))
		switch {
		case toMany && missing:
			ops["none"] = models.WhereInput{}
		case toMany:
			ops["some"] = models.WhereInput{}
		case missing:
			ops["is"] = nil
		default:
			ops["isNot"] = nil
		}
	case isMap && hasRelationKey(pred):
		for k, v := range pred {
			if !relationKeys[k] {
				return "", fieldError(m.Name, f.Field, fmt.Errorf("%w: %s", ErrUnsupportedOperator, k))
			}
			ops[k] = v
		}
	case toMany:
		ops["some"] = value
	default:
		ops["is"] = value
	}

	keys := make([]string, 0, len(ops))
	for k := range ops {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var clauses []string
	for _, op := range keys {
		if toMany != (op == "every" || op == "some" || op == "none") {
			return "", fieldError(m.Name, f.Field, fmt.Errorf("%w: %s", ErrUnsupportedOperator, op))
		}

		nestedValue := ops[op]
		sub := st.nextAlias()
		join := joinCondition(alias, sub, f, toMany)

		// is: null asks for a missing relation
		if nestedValue == nil && (op == "is" || op == "isNot") {
			exists := "EXISTS"
			if op == "is" {
				exists = "NOT EXISTS"
			}
			clauses = append(clauses, fmt.Sprintf("%s (SELECT 1 FROM %s AS %s WHERE %s)",
				exists, TableRef(target), pgx.Identifier{sub}.Sanitize(), join))
			continue
		}

		nested, err := st.nestedWhere(target, nestedValue)
		if err != nil {
			return "", fieldError(m.Name, f.Field, err)
		}
		inner, err := st.where(target, sub, nested)
		if err != nil {
			return "", err
		}

		var clause string
		switch op {
		case "is", "some":
			clause = fmt.Sprintf("EXISTS (SELECT 1 FROM %s AS %s WHERE %s AND %s)",
				TableRef(target), pgx.Identifier{sub}.Sanitize(), join, inner)
		case "isNot", "none":
			clause = fmt.Sprintf("NOT EXISTS (SELECT 1 FROM %s AS %s WHERE %s AND %s)",
				TableRef(target), pgx.Identifier{sub}.Sanitize(), join, inner)
		case "every":
			clause = fmt.Sprintf("NOT EXISTS (SELECT 1 FROM %s AS %s WHERE %s AND NOT (%s))",
				TableRef(target), pgx.Identifier{sub}.Sanitize(), join, inner)
		}
		clauses = append(clauses, clause)
	}

	if len(clauses) == 1 {
		return clauses[0], nil
	}
	return "(" + strings.Join(clauses, " AND ") + ")", nil
}

// nestedWhere turns a relation operand into a where input on the target. A
// scalar operand is matched against the target's primary key.
func (st *compileState) nestedWhere(target *schema.Model, v any) (models.WhereInput, error) {
	if w, ok := asWhere(v); ok {
		return w, nil
	}
	if target.PrimaryKey == "" {
		return nil, fmt.Errorf("%w: %s has no primary key", ErrInvalidValue, target.Name)
	}
	pk := target.PrimaryKey
	for _, f := range target.Fields {
		if f.ColumnName() == target.PrimaryKey {
			pk = f.Field
			break
		}
	}
	return models.WhereInput{pk: v}, nil
}

func joinCondition(alias, sub string, f models.FilterConfig, toMany bool) string {
	parts := make([]string, len(f.RelationFields))
	for i := range f.RelationFields {
		if toMany {
			parts[i] = fmt.Sprintf("%s = %s",
				pgx.Identifier{sub, f.RelationFields[i]}.Sanitize(),
				pgx.Identifier{alias, f.RelationReferences[i]}.Sanitize())
		} else {
			parts[i] = fmt.Sprintf("%s = %s",
				pgx.Identifier{sub, f.RelationReferences[i]}.Sanitize(),
				pgx.Identifier{alias, f.RelationFields[i]}.Sanitize())
		}
	}
	return strings.Join(parts, " AND ")
}

func column(alias string, f models.FilterConfig) string {
	return pgx.Identifier{alias, f.ColumnName()}.Sanitize()
}

// comparable casts string-like columns (uuid, citext and enums included) to
// text so they compare against text parameters
func comparable(col string, f models.FilterConfig) string {
	if f.Type == models.TypeEnum || f.Type == models.TypeString {
		return col + "::text"
	}
	return col
}

func sqlType(t models.FieldType) string {
	switch t {
	case models.TypeNumber:
		return "numeric"
	case models.TypeDateTime:
		return "timestamptz"
	case models.TypeBoolean:
		return "boolean"
	default:
		return ""
	}
}

// cast types a text parameter for the field. Parameters are always sent as
// text so the driver never has to guess an encoding.
func cast(ph string, t models.FieldType) string {
	if elem := sqlType(t); elem != "" {
		return ph + "::text::" + elem
	}
	return ph + "::text"
}

func formatParam(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case bool:
		return strconv.FormatBool(val)
	case json.Number:
		return val.String()
	case time.Time:
		return val.Format(time.RFC3339Nano)
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", val)
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(data)
	}
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}

func asWhere(v any) (models.WhereInput, bool) {
	switch w := v.(type) {
	case models.WhereInput:
		return w, true
	case map[string]any:
		return models.WhereInput(w), true
	default:
		return nil, false
	}
}

func isPredicate(w models.WhereInput) bool {
	if len(w) == 0 {
		return false
	}
	for k := range w {
		if !predicateKeys[k] {
			return false
		}
	}
	return true
}

func hasKey(w models.WhereInput, key string) bool {
	_, ok := w[key]
	return ok
}

func hasRelationKey(w models.WhereInput) bool {
	for k := range w {
		if relationKeys[k] {
			return true
		}
	}
	return false
}

func isScalar(v any) bool {
	if v == nil {
		return true
	}
	switch reflect.ValueOf(v).Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return false
	}
	return true
}

func whereList(v any) ([]models.WhereInput, error) {
	if w, ok := asWhere(v); ok {
		return []models.WhereInput{w}, nil
	}
	switch list := v.(type) {
	case []models.WhereInput:
		return list, nil
	case []map[string]any:
		out := make([]models.WhereInput, len(list))
		for i, w := range list {
			out[i] = w
		}
		return out, nil
	case []any:
		out := make([]models.WhereInput, 0, len(list))
		for _, e := range list {
			w, ok := asWhere(e)
			if !ok {
				return nil, fmt.Errorf("%w: expected object, got %T", ErrInvalidValue, e)
			}
			out = append(out, w)
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: expected list, got %T", ErrInvalidValue, v)
}

func anyList(v any) ([]any, error) {
	if list, ok := v.([]any); ok {
		return list, nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, fmt.Errorf("%w: expected list, got %T", ErrInvalidValue, v)
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, nil
}

func stringList(v any) ([]string, error) {
	if s, ok := v.([]string); ok {
		return s, nil
	}
	list, err := anyList(v)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(list))
	for i, e := range list {
		out[i] = formatParam(e)
	}
	return out, nil
}
