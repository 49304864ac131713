package main

import (
	"context"
	"flag"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/tjfontaine/grant-pipeline/internal/adapters/events/direct"
	"github.com/tjfontaine/grant-pipeline/internal/assembler"
	"github.com/tjfontaine/grant-pipeline/internal/config"
	"github.com/tjfontaine/grant-pipeline/internal/gateway"
	"github.com/tjfontaine/grant-pipeline/internal/pipeline"
	"github.com/tjfontaine/grant-pipeline/internal/provider"
	"github.com/tjfontaine/grant-pipeline/internal/seed"
	"github.com/tjfontaine/grant-pipeline/internal/server"
	"github.com/tjfontaine/grant-pipeline/internal/stagegate"
	"github.com/tjfontaine/grant-pipeline/internal/storage"
	"github.com/tjfontaine/grant-pipeline/internal/telemetry"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "path to config.yaml")
	flag.Parse()

	// Load .env file if it exists
	_ = godotenv.Load()

	// Initialize structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Telemetry.Enabled {
		out, closeOut, err := traceOutput(cfg.Telemetry.Output)
		if err != nil {
			log.Fatalf("Failed to open trace output: %v", err)
		}
		defer closeOut()

		shutdown, err := telemetry.InitTracer(cfg.Telemetry.ServiceName, out, logger)
		if err != nil {
			log.Fatalf("Failed to initialize tracer: %v", err)
		}
		defer func() {
			if err := shutdown(context.Background()); err != nil {
				logger.Error("failed to shutdown tracer", slog.String("error", err.Error()))
			}
		}()
	}

	store, err := storage.Open(cfg.Storage.Driver, cfg.Storage.DSN)
	if err != nil {
		log.Fatalf("Failed to open storage: %v", err)
	}
	defer store.Close()

	if cfg.Storage.Seed != "" {
		data, err := seed.Load(cfg.Storage.Seed)
		if err != nil {
			log.Fatalf("Failed to load seed data: %v", err)
		}
		if err := data.Apply(ctx, store); err != nil {
			log.Fatalf("Failed to apply seed data: %v", err)
		}
		logger.Info("seed data applied",
			slog.String("path", cfg.Storage.Seed),
			slog.Int("profiles", len(data.Profiles)),
			slog.Int("members", len(data.Members)))
	}

	p, err := provider.New(cfg.AI)
	if err != nil {
		log.Fatalf("Failed to create AI provider: %v", err)
	}

	gw := gateway.New(p,
		gateway.WithMaxRetries(cfg.AI.MaxRetries),
		gateway.WithCeiling(cfg.AI.Timeout),
		gateway.WithMaxOutputTokens(cfg.AI.MaxOutputTokens),
		gateway.WithTracer(telemetry.Tracer()),
		gateway.WithLogger(logger))

	engine, err := stagegate.New(
		stagegate.WithRoles(cfg.RoleTable()),
		stagegate.WithGates(cfg.Gates()),
		stagegate.WithLogger(logger))
	if err != nil {
		log.Fatalf("Failed to build stage gates: %v", err)
	}

	publisher, err := direct.NewPublisher(store, logger)
	if err != nil {
		log.Fatalf("Failed to create activity publisher: %v", err)
	}
	defer publisher.Close()

	orch := pipeline.New(store, engine, gw,
		pipeline.WithLogger(logger),
		pipeline.WithActivityLogger(publisher),
		pipeline.WithAssembler(assembler.New(assembler.WithBudgets(cfg.Budgets()))),
		pipeline.WithUploadCache(assembler.NewUploadCache(store, cfg.Cache.Size, cfg.Cache.TTL)),
		pipeline.WithChecklists(cfg.Checklists()),
		pipeline.WithModel(cfg.AI.Model))

	if _, err := os.Stat(*configPath); err == nil {
		watcher, err := config.NewWatcher(*configPath, logger)
		if err != nil {
			log.Fatalf("Failed to create config watcher: %v", err)
		}
		err = watcher.Watch(ctx, func(c *config.Config) {
			if err := engine.Reload(c.RoleTable(), c.Gates()); err != nil {
				logger.Error("rejected gate configuration", slog.String("error", err.Error()))
				return
			}
			orch.SetChecklists(c.Checklists())
			logger.Info("pipeline configuration reloaded")
		})
		if err != nil {
			logger.Warn("config hot reload disabled", slog.String("error", err.Error()))
		}
	}

	srv := server.New(cfg.Server.Port, logger, cfg.Server.RequestTimeout)
	server.NewAPI(orch, logger).Register(srv.Router)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	logger.Info("grantd started",
		slog.String("storage", cfg.Storage.Driver),
		slog.String("provider", gw.Provider()),
		slog.String("model", cfg.AI.Model))

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		logger.Info("Shutdown signal received, stopping server...")
	case err := <-errCh:
		if err != nil {
			logger.Error("server failed", slog.String("error", err.Error()))
		}
	}

	cancel()

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", slog.String("error", err.Error()))
	}

	logger.Info("grantd shutdown complete")
}

func traceOutput(target string) (io.Writer, func(), error) {
	switch target {
	case "", "stdout":
		return os.Stdout, func() {}, nil
	case "stderr":
		return os.Stderr, func() {}, nil
	}
	f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { f.Close() }, nil
}
