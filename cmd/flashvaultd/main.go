// Command flashvaultd boots the flash-loan lending engine's HTTP surface,
// adapted from the teacher's services/lending/main.go: load config, wire
// observability, open durable storage, bootstrap configured pools, and serve
// until a shutdown signal arrives.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"flashvault/config"
	"flashvault/crypto"
	"flashvault/engine"
	"flashvault/native/pool"
	"flashvault/observability/logging"
	"flashvault/observability/metrics"
	telemetry "flashvault/observability/otel"
	"flashvault/server"
	"flashvault/storage"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "", "optional YAML config file overlaying the environment-derived defaults")
	flag.Parse()

	cfg := config.LoadFromEnv()
	cfg, err := config.ApplyFile(cfg, cfgPath)
	if err != nil {
		log.Fatalf("load config file: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	logger := logging.Setup("flashvaultd", cfg.Environment)
	logger.Info("starting flashvaultd", "config", cfg.Sanitized())

	shutdownTelemetry, err := telemetry.Init(context.Background(), telemetry.Config{
		ServiceName: "flashvaultd",
		Environment: cfg.Environment,
		Endpoint:    cfg.OTELEndpoint,
		Insecure:    cfg.OTELEndpoint == "",
		Metrics:     true,
		Traces:      true,
	})
	if err != nil {
		log.Fatalf("init telemetry: %v", err)
	}
	defer func() {
		if shutdownTelemetry != nil {
			_ = shutdownTelemetry(context.Background())
		}
	}()

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		log.Fatalf("create data dir: %v", err)
	}
	store, err := storage.NewBoltStore(cfg.DataDir+"/flashvault.db", nil)
	if err != nil {
		log.Fatalf("open storage: %v", err)
	}
	defer store.Close()

	if err := bootstrapPools(cfg.PoolManifestPath, store, logger); err != nil {
		log.Fatalf("bootstrap pools: %v", err)
	}

	holder, err := crypto.DecodeAddress(cfg.EngineHolderAddress)
	if err != nil {
		log.Fatalf("invalid %s: %v", "engine holder address", err)
	}

	eng := engine.NewEngine(holder)
	eng.SetState(store)

	if err := initializeIfNeeded(eng, store, cfg, logger); err != nil {
		log.Fatalf("initialize engine: %v", err)
	}

	reg := prometheus.NewRegistry()
	metricsBundle := metrics.New(reg)

	auth := server.NewAuthenticator(cfg.JWTSigningKey)
	router := server.NewRouter(eng, auth, metricsBundle)

	httpServer := &http.Server{
		Addr:         cfg.Listen,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.Listen)
		serverErr <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", "error", err)
		}
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("serve http: %v", err)
		}
	}
}

// bootstrapPools applies the pool manifest at path, if one exists, seeding
// every pool's initial LP fee before the first deposit ever lands (spec.md
// §3's Pool.lp_fee_bps starting point).
func bootstrapPools(path string, store *storage.BoltStore, logger *slog.Logger) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		logger.Info("no pool manifest found, skipping bootstrap", "path", path)
		return nil
	}
	if err := pool.ApplyManifest(path, store); err != nil {
		return err
	}
	logger.Info("applied pool manifest", "path", path)
	return nil
}

// initializeIfNeeded performs the one-time owner/management-fee setup the
// HTTP API's /v1/initialize would otherwise require an authenticated caller
// for, letting an operator configure the owner via FLASHVAULT_OWNER instead.
func initializeIfNeeded(eng *engine.Engine, store *storage.BoltStore, cfg config.Config, logger *slog.Logger) error {
	initialized, err := store.IsInitialized()
	if err != nil {
		return err
	}
	if initialized {
		return nil
	}
	owner, err := crypto.DecodeAddress(cfg.OwnerAddress)
	if err != nil {
		return err
	}
	if err := eng.Initialize(owner, cfg.ManagementFeePct); err != nil {
		return err
	}
	logger.Info("initialized engine", "owner", owner.String(), "managementFeePct", strconv.FormatUint(cfg.ManagementFeePct, 10))
	return nil
}
