// Package server exposes the admin list views over HTTP: model metadata,
// filtered and sorted row pages, URL state transitions and exports.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/rebelice/lazyadmin/internal/db/query"
	"github.com/rebelice/lazyadmin/internal/history"
	"github.com/rebelice/lazyadmin/internal/models"
	"github.com/rebelice/lazyadmin/internal/schema"
	"github.com/rebelice/lazyadmin/internal/urlstate"
)

// DataSource loads pages of rows. *query.Source is the database-backed
// implementation.
type DataSource interface {
	FetchPage(ctx context.Context, req query.PageRequest) (*models.TableData, error)
}

// HistoryStore records executed fetches. *history.Store implements it.
type HistoryStore interface {
	Add(entry history.Entry) (history.Entry, error)
	GetRecent(limit int) ([]history.Entry, error)
	Search(model string, limit int) ([]history.Entry, error)
}

// Pinger checks that the database is reachable. *connection.Pool implements it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server serves the admin API
type Server struct {
	schema   *schema.Schema
	source   DataSource
	history  HistoryStore
	pinger   Pinger
	logger   *zap.Logger
	defaults urlstate.Defaults
	origins  []string
	router   *mux.Router
}

// Option configures the Server instance.
type Option func(*Server)

// WithHistory records every row fetch in store and enables /api/history
func WithHistory(store HistoryStore) Option {
	return func(s *Server) { s.history = store }
}

// WithHealthCheck makes /api/health ping the database
func WithHealthCheck(p Pinger) Option {
	return func(s *Server) { s.pinger = p }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithPageDefaults sets the default and maximum page size
func WithPageDefaults(d urlstate.Defaults) Option {
	return func(s *Server) { s.defaults = d }
}

// WithCORSOrigins sets the allowed CORS origins
func WithCORSOrigins(origins []string) Option {
	return func(s *Server) { s.origins = origins }
}

// New creates a server for the models of a schema
func New(sch *schema.Schema, source DataSource, opts ...Option) *Server {
	s := &Server{
		schema:   sch,
		source:   source,
		logger:   zap.NewNop(),
		defaults: urlstate.Defaults{PageSize: 20, MaxPageSize: 200},
		origins:  []string{"*"},
		router:   mux.NewRouter(),
	}

	for _, opt := range opts {
		opt(s)
	}

	c := cors.New(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{"Content-Length", "Content-Type", requestIDHeader},
	})
	s.router.Use(s.requestLogger)
	s.router.Use(c.Handler)
	s.registerRoutes()
	return s
}

// Handler returns the http.Handler for the server.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) registerRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/models", s.handleListModels).Methods(http.MethodGet)
	api.HandleFunc("/models/{model}/filters", s.handleFilters).Methods(http.MethodGet)
	api.HandleFunc("/models/{model}/rows", s.handleRows).Methods(http.MethodGet)
	api.HandleFunc("/models/{model}/filters/apply", s.handleApplyFilters).Methods(http.MethodPost)
	api.HandleFunc("/models/{model}/sort/{column}", s.handleSort).Methods(http.MethodPost)
	api.HandleFunc("/models/{model}/export", s.handleExport).Methods(http.MethodGet)
	api.HandleFunc("/history", s.handleHistory).Methods(http.MethodGet)
	api.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	// OPTIONS handlers to allow CORS pre-flight
	preflight := func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}
	api.HandleFunc("/models/{model}/filters/apply", preflight).Methods(http.MethodOptions)
	api.HandleFunc("/models/{model}/sort/{column}", preflight).Methods(http.MethodOptions)
}

// ListenAndServe serves on addr until ctx is canceled, then shuts down
// gracefully
func (s *Server) ListenAndServe(ctx context.Context, addr string, readTimeout, writeTimeout time.Duration) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}
