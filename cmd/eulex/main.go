// Command eulex serves the EU-law retrieval pipeline over HTTP.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/eulex/internal/app"
	"github.com/kailas-cloud/eulex/internal/config"
	logpkg "github.com/kailas-cloud/eulex/internal/logger"
	chiTransport "github.com/kailas-cloud/eulex/internal/transport/chi"
	"github.com/kailas-cloud/eulex/internal/version"
)

func main() {
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "eulex: load config for %q: %v\n", env, err)
		os.Exit(1)
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "eulex: create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, env, logger); err != nil {
		logger.Error("Server exited", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

// run serves until SIGINT or SIGTERM, then drains in-flight requests
// within http.shutdown_sec.
func run(cfg config.Config, env string, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Starting eulex API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("corpus", cfg.Corpus.Path),
		zap.String("cache_driver", cfg.Cache.Driver),
	)

	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("assemble pipeline: %w", err)
	}
	defer a.Close()

	// Traffic is accepted only once both BM25 indexes are loaded or built.
	start := time.Now()
	if err := a.Retriever.Open(ctx); err != nil {
		return fmt.Errorf("open lexical indexes: %w", err)
	}
	logger.Info("Lexical indexes ready", zap.Duration("took", time.Since(start)))

	server := chiTransport.NewServer(a.Pipeline, a.Health, a.Usage, logger)
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:      chiTransport.NewRouter(server, logger),
		ReadTimeout:  config.Seconds(cfg.HTTP.ReadTimeoutSec),
		WriteTimeout: config.Seconds(cfg.HTTP.WriteTimeoutSec),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), config.Seconds(cfg.HTTP.ShutdownSec))
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err //nolint:wrapcheck // wrapped in the goroutines
	}
	logger.Info("Server stopped gracefully")
	return nil
}
