package main

import (
	"log"
	"net/http"

	"go.uber.org/zap"

	"github.com/dataclinic-ai/engine/pkg/config"
	"github.com/dataclinic-ai/engine/pkg/handlers"
	"github.com/dataclinic-ai/engine/pkg/llm"
	"github.com/dataclinic-ai/engine/pkg/logging"
	"github.com/dataclinic-ai/engine/pkg/pipeline"
	"github.com/dataclinic-ai/engine/pkg/plans"
	"github.com/dataclinic-ai/engine/pkg/store"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	settings, err := config.NewSettingsStore(cfg)
	if err != nil {
		logger.Fatal("Failed to load settings", zap.Error(err))
	}

	workingStore, err := store.New(logger)
	if err != nil {
		logger.Fatal("Failed to open working store", zap.Error(err))
	}
	defer func() { _ = workingStore.Close() }()

	router := plans.NewRouter(plans.NewRegistry())
	factory := llm.NewFactory(logger)
	orchestrator := pipeline.NewOrchestrator(
		router,
		pipeline.NewAnalyzer(factory, logger),
		pipeline.NewGenerator(factory, logger),
		workingStore,
		workingStore,
		settings,
		logger,
	)

	mux := http.NewServeMux()
	handlers.NewHealthHandler(cfg, logger).RegisterRoutes(mux)
	handlers.NewPipelineHandler(orchestrator, workingStore, logger).RegisterRoutes(mux)
	handlers.NewSettingsHandler(settings, router, factory, logger).RegisterRoutes(mux)

	addr := cfg.BindAddr + ":" + cfg.Port
	logger.Info("starting dataclinic-engine",
		zap.String("addr", addr),
		zap.String("version", cfg.Version),
		zap.String("env", cfg.Env))

	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}
