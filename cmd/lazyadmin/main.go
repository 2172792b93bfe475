package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rebelice/lazyadmin/internal/config"
	"github.com/rebelice/lazyadmin/internal/db/connection"
	"github.com/rebelice/lazyadmin/internal/db/discovery"
	"github.com/rebelice/lazyadmin/internal/logging"
	"github.com/rebelice/lazyadmin/internal/schema"
)

var (
	// Global flags
	configPath string
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "lazyadmin",
	Short: "Filterable admin list views over a PostgreSQL database",
	Long: `lazyadmin serves paginated, filtered and sorted list views of the tables of a
PostgreSQL database. The whole list state lives in URL query parameters, so
every view can be bookmarked and shared.

Models come from a YAML schema file or are introspected from the database.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}

		level := cfg.Log.Level
		if verbose {
			level = logging.LevelDebug
		}
		logger = logging.New(level)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default searches the user config dir, . and ./config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(whereCmd)
	rootCmd.AddCommand(operatorsCmd)
	rootCmd.AddCommand(introspectCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(passwordCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// openDatabase completes the configured connection from the environment and
// opens a pool
func openDatabase(ctx context.Context) (*connection.Pool, error) {
	conn, source, err := discovery.Resolve(cfg.ConnectionConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to resolve connection settings: %w", err)
	}
	logger.Debug("connecting",
		zap.String("target", conn.String()),
		zap.String("password_source", string(source)))

	pool, err := connection.NewPool(ctx, conn)
	if err != nil {
		return nil, err
	}
	return pool, nil
}

// loadSchema reads the configured schema file, or introspects the database
// when none is configured
func loadSchema(ctx context.Context, pool *connection.Pool) (*schema.Schema, error) {
	if cfg.Schema.File != "" {
		logger.Debug("loading schema file", zap.String("path", cfg.Schema.File))
		return schema.LoadFile(cfg.Schema.File)
	}
	if pool == nil {
		return nil, fmt.Errorf("no schema file configured and no database to introspect")
	}
	logger.Debug("introspecting schema", zap.String("schema", cfg.Database.Schema))
	return schema.Introspect(ctx, pool, cfg.Database.Schema)
}
