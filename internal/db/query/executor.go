package query

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/rebelice/lazyadmin/internal/db/connection"
	"github.com/rebelice/lazyadmin/internal/models"
)

// Querier runs SQL and returns column-ordered results. *connection.Pool
// implements it.
type Querier interface {
	QueryWithColumns(ctx context.Context, sql string, args ...interface{}) (*connection.QueryResult, error)
}

// PageRequest describes one page of a filtered model listing
type PageRequest struct {
	Model     string
	Where     models.WhereInput
	SortField string
	SortOrder models.SortOrder
	Offset    int
	Limit     int
}

// Statements holds the SQL generated for a page request
type Statements struct {
	Count string
	Page  string
	Args  []any
}

// Build generates the count and page statements for a request without running
// them.
func (c *Compiler) Build(req PageRequest) (*Statements, error) {
	m, ok := c.schema.Model(req.Model)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownModel, req.Model)
	}

	where, args, err := c.Compile(req.Model, req.Where)
	if err != nil {
		return nil, err
	}
	orderBy, err := c.OrderBy(req.Model, req.SortField, req.SortOrder)
	if err != nil {
		return nil, err
	}

	fields := m.ScalarFields()
	cols := make([]string, len(fields))
	for i, f := range fields {
		cols[i] = fmt.Sprintf("%s AS %s", column(baseAlias, f), pgx.Identifier{f.Field}.Sanitize())
	}

	from := fmt.Sprintf("%s AS %s", TableRef(m), pgx.Identifier{baseAlias}.Sanitize())
	if where != "" {
		from += " WHERE " + where
	}

	page := fmt.Sprintf("SELECT %s FROM %s", strings.Join(cols, ", "), from)
	if orderBy != "" {
		page += " " + orderBy
	}
	if req.Limit > 0 {
		page += fmt.Sprintf(" LIMIT %d", req.Limit)
	}
	if req.Offset > 0 {
		page += fmt.Sprintf(" OFFSET %d", req.Offset)
	}

	return &Statements{
		Count: "SELECT count(*) AS total FROM " + from,
		Page:  page,
		Args:  args,
	}, nil
}

// FetchPage counts the matching rows and loads the requested page
func FetchPage(ctx context.Context, q Querier, c *Compiler, req PageRequest) (*models.TableData, error) {
	start := time.Now()

	stmts, err := c.Build(req)
	if err != nil {
		return nil, err
	}

	count, err := q.QueryWithColumns(ctx, stmts.Count, stmts.Args...)
	if err != nil {
		return nil, fmt.Errorf("failed to count rows: %w", err)
	}
	var total int64
	if len(count.Rows) > 0 {
		if n, ok := count.Rows[0]["total"].(int64); ok {
			total = n
		}
	}

	result, err := q.QueryWithColumns(ctx, stmts.Page, stmts.Args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch rows: %w", err)
	}

	rows := make([][]interface{}, 0, len(result.Rows))
	for _, r := range result.Rows {
		row := make([]interface{}, len(result.Columns))
		for i, col := range result.Columns {
			row[i] = normalizeValue(r[col])
		}
		rows = append(rows, row)
	}

	return &models.TableData{
		Columns:   result.Columns,
		Rows:      rows,
		TotalRows: total,
		SQL:       stmts.Page,
		Duration:  time.Since(start),
	}, nil
}

// normalizeValue converts driver values into JSON-friendly ones
func normalizeValue(val interface{}) interface{} {
	switch v := val.(type) {
	case nil:
		return nil
	case [16]byte:
		return uuid.UUID(v).String()
	case pgtype.Numeric:
		if !v.Valid {
			return nil
		}
		f, err := v.Float64Value()
		if err != nil || !f.Valid {
			return nil
		}
		return f.Float64
	case []byte:
		if json.Valid(v) {
			return json.RawMessage(v)
		}
		return string(v)
	case time.Time:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return v
	}
}

// Source fetches pages through a Querier. It is the database-backed data
// source of the HTTP server.
type Source struct {
	querier  Querier
	compiler *Compiler
}

// NewSource creates a Source
func NewSource(q Querier, c *Compiler) *Source {
	return &Source{querier: q, compiler: c}
}

// FetchPage runs the page request
func (s *Source) FetchPage(ctx context.Context, req PageRequest) (*models.TableData, error) {
	return FetchPage(ctx, s.querier, s.compiler, req)
}
