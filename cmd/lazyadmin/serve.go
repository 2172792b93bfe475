package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rebelice/lazyadmin/internal/db/query"
	"github.com/rebelice/lazyadmin/internal/history"
	"github.com/rebelice/lazyadmin/internal/server"
	"github.com/rebelice/lazyadmin/internal/urlstate"
)

var serveListen string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the admin HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		pool, err := openDatabase(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		sch, err := loadSchema(ctx, pool)
		if err != nil {
			return err
		}
		logger.Info("schema loaded", zap.Int("models", len(sch.Models)))

		opts := []server.Option{
			server.WithLogger(logger),
			server.WithHealthCheck(pool),
			server.WithCORSOrigins(cfg.Server.CORSOrigins),
			server.WithPageDefaults(urlstate.Defaults{
				PageSize:    cfg.Pagination.DefaultPageSize,
				MaxPageSize: cfg.Pagination.MaxPageSize,
			}),
		}

		if cfg.History.Enabled {
			store, err := openHistory()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()
			opts = append(opts, server.WithHistory(store))
		}

		source := query.NewSource(pool, query.NewCompiler(sch))
		srv := server.New(sch, source, opts...)

		addr := cfg.Server.Listen
		if serveListen != "" {
			addr = serveListen
		}
		return srv.ListenAndServe(ctx, addr, cfg.Server.ReadTimeout, cfg.Server.WriteTimeout)
	},
}

func init() {
	serveCmd.Flags().StringVarP(&serveListen, "listen", "l", "", "listen address (overrides server.listen)")
}

// openHistory opens the history store and keeps it at the configured size
func openHistory() (*history.Store, error) {
	path, err := cfg.HistoryPath()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve history path: %w", err)
	}

	store, err := history.NewStore(path)
	if err != nil {
		return nil, err
	}

	if cfg.History.MaxEntries > 0 {
		store.SetMaxEntries(cfg.History.MaxEntries)
		removed, err := store.Prune(cfg.History.MaxEntries)
		if err != nil {
			logger.Warn("failed to prune history", zap.Error(err))
		} else if removed > 0 {
			logger.Debug("pruned history", zap.Int64("removed", removed))
		}
	}
	return store, nil
}
