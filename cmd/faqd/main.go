// Faqd is a tenant-scoped semantic FAQ retrieval service.
//
// It serves FAQ search, insertion, and deletion over HTTP, backed by an
// Elasticsearch index whose ingest pipeline computes question embeddings
// server-side.
//
// Configuration comes from an optional YAML file and FAQD_-prefixed
// environment variables; a .env file in the working directory is loaded
// first. See internal/config for details.
//
// Usage:
//
//	# Start with defaults
//	faqd
//
//	# Point at a config file
//	faqd --config /etc/faqd/config.yaml
//
//	# Configure via environment
//	FAQD_SERVER_PORT=9090 FAQD_AUTH_API_KEY_SECRET=... faqd
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/sembase/faqd/internal/config"
	"github.com/sembase/faqd/internal/embeddings"
	"github.com/sembase/faqd/internal/logging"
	"github.com/sembase/faqd/internal/retrieval"
	"github.com/sembase/faqd/internal/server"
	"github.com/sembase/faqd/internal/store"
	"github.com/sembase/faqd/internal/telemetry"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	// Best-effort: secrets usually live in a local .env during development.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configPath); err != nil {
		log.Fatalf("faqd: %v", err)
	}
}

// run starts the service and blocks until the context is cancelled, then
// shuts the HTTP server down gracefully.
func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer logging.Sync(logger)

	logger.Info("starting faqd",
		zap.Int("port", cfg.Server.Port),
		zap.String("index", cfg.Elastic.Index),
		zap.String("pipeline", cfg.Elastic.Pipeline),
		zap.String("retrieval_mode", cfg.Retrieval.Mode),
	)

	shutdownTelemetry, err := telemetry.Setup(telemetry.Config{
		Enabled:     cfg.Telemetry.Enabled,
		ServiceName: cfg.Telemetry.ServiceName,
	}, logger)
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}
	defer func() {
		if err := shutdownTelemetry(context.Background()); err != nil {
			logger.Warn("telemetry shutdown failed", zap.Error(err))
		}
	}()

	faqStore, err := buildStore(cfg, logger)
	if err != nil {
		return err
	}

	// The index and pipeline must exist before any traffic; a store that
	// cannot be provisioned is a startup failure, not a degraded state.
	if err := faqStore.EnsureIndex(ctx); err != nil {
		return fmt.Errorf("ensuring index: %w", err)
	}
	if err := faqStore.EnsurePipeline(ctx); err != nil {
		return fmt.Errorf("ensuring pipeline: %w", err)
	}

	embedClient, err := embeddings.NewClient(embeddings.Config{
		BaseURL:   cfg.Embeddings.BaseURL,
		AuthToken: cfg.Embeddings.AuthToken,
		Timeout:   cfg.Embeddings.Timeout,
	})
	if err != nil {
		return fmt.Errorf("creating embedding client: %w", err)
	}

	orchestrator, err := retrieval.New(
		faqStore,
		retrieval.NewPipelineSource(faqStore),
		retrieval.NewServiceSource(embedClient),
		retrieval.Config{
			Mode:              retrieval.Mode(cfg.Retrieval.Mode),
			RouteTimeout:      cfg.Retrieval.RouteTimeout,
			DriftTolerance:    cfg.Retrieval.DriftTolerance,
			DefaultMaxResults: cfg.Retrieval.DefaultMaxResults,
		},
		logger,
	)
	if err != nil {
		return fmt.Errorf("creating retrieval orchestrator: %w", err)
	}

	srv, err := server.New(faqStore, orchestrator, logger, &server.Config{
		Host:              cfg.Server.Host,
		Port:              cfg.Server.Port,
		APIKeySecret:      cfg.Auth.APIKeySecret,
		DefaultMaxResults: cfg.Retrieval.DefaultMaxResults,
	})
	if err != nil {
		return fmt.Errorf("creating http server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}

	logger.Info("shutdown complete")
	return nil
}

// buildStore creates the Elasticsearch store, reading the CA certificate
// from disk when configured.
func buildStore(cfg *config.Config, logger *zap.Logger) (*store.Store, error) {
	var caCert []byte
	if cfg.Elastic.CACertPath != "" {
		var err error
		caCert, err = os.ReadFile(cfg.Elastic.CACertPath)
		if err != nil {
			return nil, fmt.Errorf("reading ca certificate: %w", err)
		}
	}

	faqStore, err := store.New(store.Config{
		Addresses:           cfg.Elastic.Addresses,
		Username:            cfg.Elastic.Username,
		Password:            cfg.Elastic.Password,
		CACert:              caCert,
		Index:               cfg.Elastic.Index,
		Pipeline:            cfg.Elastic.Pipeline,
		ModelID:             cfg.Elastic.ModelID,
		Dims:                cfg.Elastic.Dims,
		RequestTimeout:      cfg.Elastic.RequestTimeout,
		ListCap:             cfg.Elastic.ListCap,
		CandidateMultiplier: cfg.Elastic.CandidateMultiplier,
		CandidateCap:        cfg.Elastic.CandidateCap,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("creating document store: %w", err)
	}
	return faqStore, nil
}
