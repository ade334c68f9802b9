package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MrEthical07/safeher/httpapi"
	"github.com/MrEthical07/safeher/metrics/export/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	serveAddr     string
	embeddedRedis bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Opens the database, applies migrations, connects to Redis and serves
the API until SIGINT or SIGTERM.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides http.addr)")
	serveCmd.Flags().BoolVar(&embeddedRedis, "embedded-redis", false, "Run an in-process Redis instead of connecting to one")
}

func runServe(cmd *cobra.Command, args []string) error {
	if serveAddr != "" {
		cfg.HTTP.Addr = serveAddr
	}
	if embeddedRedis {
		cfg.Redis.Embedded = true
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, res, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()
	logMigration(res)

	rdb, closeRedis, err := openRedis(ctx)
	if err != nil {
		return err
	}
	defer closeRedis()

	engine, err := buildEngine(st, rdb)
	if err != nil {
		return err
	}
	defer engine.Close()

	opts := httpapi.Options{
		Logger:      logger,
		CORSOrigins: cfg.HTTP.CORSOrigins,
	}
	if cfg.Metrics.Prometheus {
		opts.Metrics = prometheus.NewExporter(engine).Handler()
	}

	srv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      httpapi.NewRouter(engine, opts),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening",
			zap.String("addr", srv.Addr),
			zap.String("validation_mode", string(cfg.Security.ValidationMode)),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		timeout := cfg.HTTP.ShutdownTimeout
		if timeout == 0 {
			timeout = 10 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		logger.Info("shutting down", zap.Duration("timeout", timeout))
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		// Requests are drained; flush their audit events in the time left.
		if err := engine.Shutdown(shutdownCtx); err != nil {
			logger.Warn("audit flush incomplete", zap.Error(err))
		}
		return nil
	})

	return g.Wait()
}
