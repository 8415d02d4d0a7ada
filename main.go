package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pochemuchka/pochemuchka/pkg/config"
	"github.com/pochemuchka/pochemuchka/pkg/llm"
	"github.com/pochemuchka/pochemuchka/pkg/service"
	"github.com/pochemuchka/pochemuchka/pkg/store"
	"github.com/pochemuchka/pochemuchka/pkg/utils"
)

func main() {
	// Initialize logging system
	utils.InitLogger()
	logger := utils.GetLogger()

	// Secrets come from .env; settings from the YAML config file.
	config.LoadDotenv()
	cfg, path, err := config.Load()
	if err != nil {
		logger.Error("Failed to load config", "path", path, "error", err)
		os.Exit(1)
	}
	logger.Info("config loaded", "path", path, "storage", cfg.StorageBackend())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Persistent session store per configured backend.
	var persistent store.Store
	switch cfg.StorageBackend() {
	case "redis":
		persistent = store.NewRedisStore(cfg.RedisAddr(), cfg.RedisDB(), cfg.HistoryLimit())
	case "memory":
		persistent = store.NewMemoryStore(cfg.HistoryLimit())
	default:
		persistent, err = store.NewGormStore(cfg.StoragePath(), cfg.HistoryLimit())
		if err != nil {
			logger.Error("Failed to open session store", "error", err)
			os.Exit(1)
		}
	}
	st := store.NewDegradable(persistent, store.NewMemoryStore(cfg.HistoryLimit()), cfg.FailureThreshold())

	// Two model slots: a small analyzer and the dialog model.
	analyzerClient, err := llm.NewClient(ctx, "analyzer", cfg.AnalyzerModel())
	if err != nil {
		logger.Error("Failed to create analyzer model", "error", err)
		os.Exit(1)
	}
	dialogClient, err := llm.NewClient(ctx, "dialog", cfg.DialogModel())
	if err != nil {
		logger.Error("Failed to create dialog model", "error", err)
		os.Exit(1)
	}

	analyzer := service.NewAnalyzer(analyzerClient, cfg.AnalysisWindow())
	dialog := service.NewDialog(dialogClient, cfg.HistoryLimit())
	processor := service.NewProcessor(st, analyzer, dialog)
	dispatcher := service.NewDispatcher(processor)

	// Voice and image capabilities are deployment-provided; without them the
	// API accepts text turns only.
	media := service.NewMediaRouter(nil, nil)

	service.StartCleanup(ctx, st, time.Duration(cfg.CleanupHours())*time.Hour)

	server := NewServer(cfg, dispatcher, media, st)
	if err := server.Start(ctx); err != nil {
		logger.Error("Failed to start server", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}
