package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rebelice/lazyadmin/internal/db/query"
	"github.com/rebelice/lazyadmin/internal/history"
	"github.com/rebelice/lazyadmin/internal/models"
	"github.com/rebelice/lazyadmin/internal/schema"
	"github.com/rebelice/lazyadmin/internal/urlstate"
)

const testSchema = `
models:
  - name: User
    table: users
    primaryKey: id
    fields:
      - field: id
        type: number
      - field: name
        type: string
      - field: age
        type: number
      - field: role
        type: enum
        enumValues: [ADMIN, USER]
      - field: posts
        type: relation
        relationTo: Post
        list: true
        relationFields: [author_id]
        relationReferences: [id]
  - name: Post
    table: posts
    primaryKey: id
    fields:
      - field: id
        type: number
      - field: title
        type: string
`

// mockSource records the last page request and returns canned data.
type mockSource struct {
	last *query.PageRequest
	data *models.TableData
	err  error
}

func (m *mockSource) FetchPage(_ context.Context, req query.PageRequest) (*models.TableData, error) {
	m.last = &req
	if m.err != nil {
		return nil, m.err
	}
	return m.data, nil
}

// mockHistory keeps entries in memory.
type mockHistory struct {
	entries []history.Entry
}

func (m *mockHistory) Add(e history.Entry) (history.Entry, error) {
	m.entries = append(m.entries, e)
	return e, nil
}

func (m *mockHistory) GetRecent(limit int) ([]history.Entry, error) {
	if limit > len(m.entries) {
		limit = len(m.entries)
	}
	return m.entries[:limit], nil
}

func (m *mockHistory) Search(model string, limit int) ([]history.Entry, error) {
	var out []history.Entry
	for _, e := range m.entries {
		if e.Model == model && len(out) < limit {
			out = append(out, e)
		}
	}
	return out, nil
}

func newTestServer(t *testing.T, opts ...Option) (*Server, *mockSource) {
	t.Helper()
	sch, err := schema.Parse([]byte(testSchema))
	require.NoError(t, err)

	source := &mockSource{data: &models.TableData{
		Columns:   []string{"id", "name"},
		Rows:      [][]interface{}{{float64(1), "alice"}},
		TotalRows: 25,
		SQL:       "SELECT 1",
	}}
	return New(sch, source, opts...), source
}

func do(t *testing.T, s *Server, method, target string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func filtersParam(t *testing.T, filters []models.FilterValue) string {
	t.Helper()
	encoded, err := urlstate.EncodeFilters(filters)
	require.NoError(t, err)
	return url.QueryEscape(encoded)
}

func TestListModels(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/api/models", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"name":"Post","label":"Post"},{"name":"User","label":"User"}]`, rec.Body.String())
}

func TestFilters(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/api/models/User/filters", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var fields []struct {
		Field      string   `json:"field"`
		Type       string   `json:"type"`
		EnumValues []string `json:"enumValues"`
		Operators  []struct {
			Value      string `json:"value"`
			Label      string `json:"label"`
			NeedsValue bool   `json:"needsValue"`
			MultiValue bool   `json:"multiValue"`
		} `json:"operators"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fields))
	require.Len(t, fields, 5)

	byField := map[string]int{}
	for i, f := range fields {
		byField[f.Field] = i
	}

	role := fields[byField["role"]]
	assert.Equal(t, []string{"ADMIN", "USER"}, role.EnumValues)
	var sawIn bool
	for _, op := range role.Operators {
		if op.Value == "in" {
			sawIn = true
			assert.True(t, op.MultiValue)
			assert.True(t, op.NeedsValue)
		}
		if op.Value == "isNull" {
			assert.False(t, op.NeedsValue)
			assert.Equal(t, "Is empty", op.Label)
		}
	}
	assert.True(t, sawIn)

	posts := fields[byField["posts"]]
	var values []string
	for _, op := range posts.Operators {
		values = append(values, op.Value)
	}
	assert.Equal(t, []string{"every", "some", "none"}, values)
}

func TestUnknownModel(t *testing.T) {
	s, _ := newTestServer(t)

	for _, target := range []string{"/api/models/Nope/rows", "/api/models/Nope/filters"} {
		rec := do(t, s, http.MethodGet, target, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code, target)
		assert.Contains(t, rec.Body.String(), "unknown model")
	}
}

func TestRows(t *testing.T) {
	store := &mockHistory{}
	s, source := newTestServer(t, WithHistory(store))

	filters := filtersParam(t, []models.FilterValue{
		{Field: "age", Operator: models.OpGte, Value: 18.0},
		{Field: "role", Operator: models.OpIn, Value: "ADMIN"},
		{Field: "name", Operator: models.OpEquals, Value: "  "},
	})
	rec := do(t, s, http.MethodGet,
		"/api/models/User/rows?filters="+filters+"&search=al&sort=age&order=desc&page=2&pageSize=10", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	require.NotNil(t, source.last)
	assert.Equal(t, "User", source.last.Model)
	assert.Equal(t, "age", source.last.SortField)
	assert.Equal(t, models.SortDesc, source.last.SortOrder)
	assert.Equal(t, 10, source.last.Offset)
	assert.Equal(t, 10, source.last.Limit)

	want := models.WhereInput{
		"AND": []models.WhereInput{
			{
				"age":  map[string]any{"gte": 18.0},
				"role": map[string]any{"in": []any{"ADMIN"}},
			},
			{
				"OR": []models.WhereInput{
					{"name": map[string]any{"contains": "al", "mode": "insensitive"}},
				},
			},
		},
	}
	if diff := cmp.Diff(want, source.last.Where); diff != "" {
		t.Errorf("where mismatch (-want +got):\n%s", diff)
	}

	var resp struct {
		Total      int64  `json:"total"`
		Page       int    `json:"page"`
		PageSize   int    `json:"pageSize"`
		TotalPages int    `json:"totalPages"`
		Query      string `json:"query"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(25), resp.Total)
	assert.Equal(t, 2, resp.Page)
	assert.Equal(t, 10, resp.PageSize)
	assert.Equal(t, 3, resp.TotalPages)
	assert.Contains(t, resp.Query, "page=2")

	require.Len(t, store.entries, 1)
	assert.Equal(t, "User", store.entries[0].Model)
	assert.True(t, store.entries[0].Success)
	assert.Equal(t, "SELECT 1", store.entries[0].SQL)
}

func TestRowsMalformedFilters(t *testing.T) {
	s, source := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/api/models/User/rows?filters=%25%7Bbroken&page=abc", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	require.NotNil(t, source.last)
	assert.Nil(t, source.last.Where)
	assert.Equal(t, 0, source.last.Offset)
	assert.Equal(t, 20, source.last.Limit)
}

func TestRowsErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"compile error", &query.FieldError{Model: "User", Field: "x", Err: query.ErrUnknownField}, http.StatusBadRequest},
		{"unsupported operator", query.ErrUnsupportedOperator, http.StatusBadRequest},
		{"database error", errors.New("connection refused"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &mockHistory{}
			s, source := newTestServer(t, WithHistory(store))
			source.err = tt.err

			rec := do(t, s, http.MethodGet, "/api/models/User/rows", nil)
			assert.Equal(t, tt.want, rec.Code)
			assert.Contains(t, rec.Body.String(), `"error"`)

			require.Len(t, store.entries, 1)
			assert.False(t, store.entries[0].Success)
			assert.Equal(t, tt.err.Error(), store.entries[0].ErrorMessage)
		})
	}
}

func parseQueryResponse(t *testing.T, rec *httptest.ResponseRecorder) urlstate.QueryState {
	t.Helper()
	var resp struct {
		Query string `json:"query"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	values, err := url.ParseQuery(resp.Query)
	require.NoError(t, err)
	state, err := urlstate.ParseQuery(values, urlstate.Defaults{PageSize: 20, MaxPageSize: 200})
	require.NoError(t, err)
	return state
}

func TestApplyFiltersResetsPage(t *testing.T) {
	s, _ := newTestServer(t)

	body := []byte(`{"filters":[{"field":"name","operator":"contains","value":"bo","mode":"insensitive"}]}`)
	rec := do(t, s, http.MethodPost, "/api/models/User/filters/apply?page=5&sort=name&order=asc", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	state := parseQueryResponse(t, rec)
	assert.Equal(t, 1, state.Page)
	assert.Equal(t, "name", state.Sort)
	assert.Equal(t, []models.FilterValue{
		{Field: "name", Operator: models.OpContains, Value: "bo", Mode: models.ModeInsensitive},
	}, state.Filters)
}

func TestApplyFiltersRejectsUnknownField(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/api/models/User/filters/apply",
		[]byte(`{"filters":[{"field":"nope","operator":"equals","value":1}]}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodPost, "/api/models/User/filters/apply", []byte(`{`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSortToggle(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/api/models/User/sort/name?sort=name&order=asc&page=3", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	state := parseQueryResponse(t, rec)
	assert.Equal(t, "name", state.Sort)
	assert.Equal(t, models.SortDesc, state.Order)
	assert.Equal(t, 3, state.Page)

	rec = do(t, s, http.MethodPost, "/api/models/User/sort/posts", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExport(t *testing.T) {
	s, source := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/api/models/User/export?format=csv&page=3", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "id,name\n1,alice\n"))
	assert.Zero(t, source.last.Limit, "exports are not paginated")

	rec = do(t, s, http.MethodGet, "/api/models/User/export?format=xml", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHistory(t *testing.T) {
	s, _ := newTestServer(t)
	rec := do(t, s, http.MethodGet, "/api/history", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	store := &mockHistory{entries: []history.Entry{
		{ID: "1", Model: "User", Success: true},
		{ID: "2", Model: "Post", Success: true},
	}}
	s, _ = newTestServer(t, WithHistory(store))

	rec = do(t, s, http.MethodGet, "/api/history?model=Post", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var entries []history.Entry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "2", entries[0].ID)

	rec = do(t, s, http.MethodGet, "/api/history?limit=0", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRequestID(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/api/models", nil)
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))
}

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)
	rec := do(t, s, http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	down, _ := newTestServer(t, WithHealthCheck(pingerFunc(func(context.Context) error {
		return errors.New("connection refused")
	})))
	rec = do(t, down, http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "connection refused")
}
