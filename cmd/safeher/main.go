// Command safeher runs the SafeHer reporting service and its maintenance
// tasks.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/MrEthical07/safeher"
	"github.com/MrEthical07/safeher/store"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global flags
	verbose    bool
	configPath string

	cfg    safeher.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "safeher",
	Short: "SafeHer harassment reporting service",
	Long: `safeher serves the SafeHer reporting API and runs its maintenance tasks.

Configuration is read from a YAML file (--config) over built-in defaults,
then overridden by environment variables such as DATABASE_URL and
JWT_SECRET_KEY.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = safeher.LoadConfig(configPath)
		if err != nil {
			return err
		}
		logger, err = buildLogger(cfg.Logging, verbose)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "safeher.yaml", "Path to the YAML config file")

	rootCmd.AddCommand(serveCmd, migrateCmd, seedAdminCmd, exportCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func buildLogger(lc safeher.LoggingConfig, debug bool) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	if lc.Development {
		config = zap.NewDevelopmentConfig()
	}
	if lc.Level != "" {
		level, err := zapcore.ParseLevel(strings.ToLower(lc.Level))
		if err != nil {
			return nil, err
		}
		config.Level = zap.NewAtomicLevelAt(level)
	}
	if debug {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return config.Build()
}

// openStore opens the configured database and brings its schema up to date.
func openStore(ctx context.Context) (*store.Store, store.MigrationResult, error) {
	st, err := store.Open(ctx, cfg.Database.URL)
	if err != nil {
		return nil, store.MigrationResult{}, err
	}
	res, err := st.Migrate(ctx)
	if err != nil {
		st.Close()
		return nil, store.MigrationResult{}, err
	}
	return st, res, nil
}

// openRedis connects to the configured server, or starts an in-process one
// when embedded mode is on. The returned func releases both.
func openRedis(ctx context.Context) (redis.UniversalClient, func(), error) {
	addr := cfg.Redis.Addr
	var mr *miniredis.Miniredis
	if cfg.Redis.Embedded {
		var err error
		mr, err = miniredis.Run()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to start embedded redis: %w", err)
		}
		addr = mr.Addr()
		logger.Warn("using embedded redis; sessions and rate limits are lost on exit", zap.String("addr", addr))
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	cleanup := func() {
		_ = client.Close()
		if mr != nil {
			mr.Close()
		}
	}
	if err := client.Ping(ctx).Err(); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("redis %s: %w", addr, err)
	}
	return client, cleanup, nil
}

// buildEngine wires the service over an open store and Redis client.
func buildEngine(st *store.Store, rdb redis.UniversalClient) (*safeher.Engine, error) {
	return safeher.New().
		WithConfig(cfg).
		WithStore(st).
		WithRedis(rdb).
		WithLogger(logger).
		Build()
}
