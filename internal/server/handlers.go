package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/rebelice/lazyadmin/internal/db/query"
	"github.com/rebelice/lazyadmin/internal/export"
	"github.com/rebelice/lazyadmin/internal/filter"
	"github.com/rebelice/lazyadmin/internal/history"
	"github.com/rebelice/lazyadmin/internal/models"
	"github.com/rebelice/lazyadmin/internal/schema"
	"github.com/rebelice/lazyadmin/internal/urlstate"
)

const (
	defaultHistoryLimit = 50
	healthTimeout       = 5 * time.Second
)

type modelSummary struct {
	Name  string `json:"name"`
	Label string `json:"label"`
}

type operatorOption struct {
	Value      models.Operator `json:"value"`
	Label      string          `json:"label"`
	NeedsValue bool            `json:"needsValue"`
	MultiValue bool            `json:"multiValue"`
}

type filterField struct {
	models.FilterConfig
	Operators []operatorOption `json:"operators"`
}

type rowsResponse struct {
	Columns    []string          `json:"columns"`
	Rows       [][]interface{}   `json:"rows"`
	Total      int64             `json:"total"`
	Page       int               `json:"page"`
	PageSize   int               `json:"pageSize"`
	TotalPages int               `json:"totalPages"`
	Where      models.WhereInput `json:"where"`
	Query      string            `json:"query"`
}

type applyRequest struct {
	Filters []models.FilterValue `json:"filters"`
	Search  *string              `json:"search,omitempty"`
}

type queryResponse struct {
	Query string `json:"query"`
}

func (s *Server) handleListModels(w http.ResponseWriter, r *http.Request) {
	out := make([]modelSummary, 0, len(s.schema.Models))
	for _, name := range s.schema.Names() {
		m, _ := s.schema.Model(name)
		out = append(out, modelSummary{Name: m.Name, Label: m.Label})
	}
	s.writeJSON(w, out)
}

func (s *Server) handleFilters(w http.ResponseWriter, r *http.Request) {
	m, ok := s.model(w, r)
	if !ok {
		return
	}

	out := make([]filterField, 0, len(m.Fields))
	for _, cfg := range m.FilterConfigs() {
		ops := filter.OperatorsFor(cfg)
		options := make([]operatorOption, len(ops))
		for i, op := range ops {
			options[i] = operatorOption{
				Value:      op,
				Label:      filter.OperatorLabel(op),
				NeedsValue: filter.NeedsValue(op),
				MultiValue: filter.IsMultiValue(op),
			}
		}
		out = append(out, filterField{FilterConfig: cfg, Operators: options})
	}
	s.writeJSON(w, out)
}

func (s *Server) handleRows(w http.ResponseWriter, r *http.Request) {
	m, ok := s.model(w, r)
	if !ok {
		return
	}

	state := s.parseState(r)
	where := s.buildWhere(m, state)
	page := state.Pagination()

	req := query.PageRequest{
		Model:     m.Name,
		Where:     where,
		SortField: state.Sort,
		SortOrder: state.Order,
		Offset:    page.Offset(),
		Limit:     page.Limit(),
	}

	data, err := s.source.FetchPage(r.Context(), req)
	s.record(m.Name, r.URL.RawQuery, data, err)
	if err != nil {
		s.writeError(w, err)
		return
	}

	encoded, err := state.Encode()
	if err != nil {
		s.writeError(w, err)
		return
	}

	rows := data.Rows
	if rows == nil {
		rows = [][]interface{}{}
	}
	s.writeJSON(w, rowsResponse{
		Columns:    data.Columns,
		Rows:       rows,
		Total:      data.TotalRows,
		Page:       state.Page,
		PageSize:   state.PageSize,
		TotalPages: page.TotalPages(data.TotalRows),
		Where:      where,
		Query:      encoded,
	})
}

func (s *Server) handleApplyFilters(w http.ResponseWriter, r *http.Request) {
	m, ok := s.model(w, r)
	if !ok {
		return
	}

	var body applyRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeErrorStatus(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	for _, f := range body.Filters {
		if _, ok := m.Field(f.Field); !ok {
			s.writeErrorStatus(w, http.StatusBadRequest, fmt.Errorf("%w: %s", query.ErrUnknownField, f.Field))
			return
		}
	}

	state := s.parseState(r).WithFilters(body.Filters)
	if body.Search != nil {
		state = state.WithSearch(*body.Search)
	}
	s.writeQuery(w, state)
}

func (s *Server) handleSort(w http.ResponseWriter, r *http.Request) {
	m, ok := s.model(w, r)
	if !ok {
		return
	}

	column := mux.Vars(r)["column"]
	if f, ok := m.Field(column); !ok || f.IsRelation() {
		s.writeErrorStatus(w, http.StatusBadRequest, fmt.Errorf("%w: %s is not sortable", query.ErrUnknownField, column))
		return
	}

	s.writeQuery(w, s.parseState(r).ToggleSort(column))
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	m, ok := s.model(w, r)
	if !ok {
		return
	}

	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		s.writeErrorStatus(w, http.StatusBadRequest, err)
		return
	}

	// Exports cover every matching row, not only the current page
	state := s.parseState(r)
	data, err := s.source.FetchPage(r.Context(), query.PageRequest{
		Model:     m.Name,
		Where:     s.buildWhere(m, state),
		SortField: state.Sort,
		SortOrder: state.Order,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", m.Name+"."+string(format)))
	if err := export.Write(w, format, data); err != nil {
		s.logger.Error("export failed", zap.String("model", m.Name), zap.Error(err))
	}
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		s.writeErrorStatus(w, http.StatusNotFound, errors.New("history is disabled"))
		return
	}

	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			s.writeErrorStatus(w, http.StatusBadRequest, fmt.Errorf("invalid limit %q", raw))
			return
		}
		limit = n
	}

	var (
		entries []history.Entry
		err     error
	)
	if model := r.URL.Query().Get("model"); model != "" {
		entries, err = s.history.Search(model, limit)
	} else {
		entries, err = s.history.GetRecent(limit)
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, entries)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.pinger != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()
		if err := s.pinger.Ping(ctx); err != nil {
			s.logger.Warn("health check failed", zap.Error(err))
			s.writeErrorStatus(w, http.StatusServiceUnavailable, err)
			return
		}
	}
	s.writeJSON(w, map[string]string{"status": "ok"})
}

// ---- Helpers ------------------------------------------------------------

func (s *Server) model(w http.ResponseWriter, r *http.Request) (*schema.Model, bool) {
	name := mux.Vars(r)["model"]
	m, ok := s.schema.Model(name)
	if !ok {
		s.writeErrorStatus(w, http.StatusNotFound, fmt.Errorf("%w: %s", query.ErrUnknownModel, name))
		return nil, false
	}
	return m, true
}

// parseState reads the list state from the request URL. Malformed parameters
// are logged and replaced by their defaults.
func (s *Server) parseState(r *http.Request) urlstate.QueryState {
	state, err := urlstate.ParseQuery(r.URL.Query(), s.defaults)
	if err != nil {
		s.logger.Warn("ignoring malformed list state",
			zap.String("path", r.URL.Path),
			zap.Error(err))
	}
	return state
}

// buildWhere merges the filter and search conditions of a state
func (s *Server) buildWhere(m *schema.Model, state urlstate.QueryState) models.WhereInput {
	for _, f := range state.Filters {
		if !f.Operator.Valid() {
			s.logger.Warn("unknown filter operator, matching the literal value",
				zap.String("model", m.Name),
				zap.String("field", f.Field),
				zap.String("operator", string(f.Operator)))
		}
	}

	return filter.MergeWhereConditions(
		filter.BuildWhere(state.Filters),
		filter.BuildSearchWhere(state.Search, m.Fields),
	)
}

func (s *Server) record(model, rawQuery string, data *models.TableData, fetchErr error) {
	if s.history == nil {
		return
	}

	entry := history.Entry{
		Model:   model,
		Query:   rawQuery,
		Success: fetchErr == nil,
	}
	if fetchErr != nil {
		entry.ErrorMessage = fetchErr.Error()
	} else {
		entry.SQL = data.SQL
		entry.Duration = data.Duration
		entry.RowCount = int64(len(data.Rows))
	}

	if _, err := s.history.Add(entry); err != nil {
		s.logger.Warn("failed to record history", zap.Error(err))
	}
}

func (s *Server) writeQuery(w http.ResponseWriter, state urlstate.QueryState) {
	encoded, err := state.Encode()
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, queryResponse{Query: encoded})
}

func (s *Server) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", zap.Error(err))
	}
}

// writeError maps compile errors to 400, unknown models to 404 and anything
// else to 500
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	var fieldErr *query.FieldError
	switch {
	case errors.Is(err, query.ErrUnknownModel):
		status = http.StatusNotFound
	case errors.As(err, &fieldErr),
		errors.Is(err, query.ErrUnknownField),
		errors.Is(err, query.ErrUnsupportedOperator),
		errors.Is(err, query.ErrInvalidValue):
		status = http.StatusBadRequest
	}

	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", zap.Error(err))
	}
	s.writeErrorStatus(w, status, err)
}

func (s *Server) writeErrorStatus(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
