package main

import (
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/bydlikbot/bydlik/internal/admin"
	"github.com/bydlikbot/bydlik/internal/bot"
	"github.com/bydlikbot/bydlik/internal/llm"
	"github.com/bydlikbot/bydlik/internal/settings"
	"github.com/bydlikbot/bydlik/internal/storage"
	"github.com/bydlikbot/bydlik/pkg/config"
)

func main() {
	// Load a local .env when present; real deployments use the environment.
	_ = godotenv.Load()

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg, err := config.LoadConfig("config.yaml")
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err), zap.String("path", "config.yaml"))
	}

	var store storage.Storage
	if cfg.Database.UseInMemory {
		logger.Info("Using in-memory storage")
		store = storage.NewMemoryStorage()
	} else {
		logger.Info("Using PostgreSQL storage")
		dbConfig := storage.DatabaseConfig{
			Host:        cfg.Database.Host,
			Port:        cfg.Database.Port,
			User:        cfg.Database.User,
			Password:    cfg.Database.Password,
			DBName:      cfg.Database.DBName,
			SSLMode:     cfg.Database.SSLMode,
			UseInMemory: cfg.Database.UseInMemory,
		}
		store, err = storage.NewPostgresStorage(dbConfig, logger)
		if err != nil {
			logger.Fatal("Failed to initialize storage", zap.Error(err))
		}
	}
	defer store.Close()

	resolver := settings.NewResolver(store, logger)
	admins := admin.NewService(store, logger)

	llmTimeout := time.Duration(cfg.LLM.TimeoutSeconds) * time.Second
	generator := llm.NewClient(cfg.LLM.BaseURL, cfg.LLM.APIKey, cfg.LLM.Model, llmTimeout, logger)
	quota := llm.NewQuotaClient(cfg.LLM.QuotaURL, llmTimeout)

	b, err := bot.New(cfg.Telegram.Token, store, resolver, admins, generator, quota, logger, bot.Options{
		HistoryLimit:   cfg.Bot.HistoryLimit,
		TypingDelayMin: time.Duration(cfg.Bot.TypingDelayMinSeconds) * time.Second,
		TypingDelayMax: time.Duration(cfg.Bot.TypingDelayMaxSeconds) * time.Second,
	})
	if err != nil {
		logger.Fatal("Failed to create bot", zap.Error(err))
	}

	if err := b.Start(); err != nil {
		logger.Fatal("Bot error", zap.Error(err))
	}
}
