package main

import (
	"context"
	"log"
	"os"

	"github.com/Alaeddine-Az/robotics-chatbot/internal/api"
	"github.com/Alaeddine-Az/robotics-chatbot/internal/chat"
	"github.com/Alaeddine-Az/robotics-chatbot/internal/config"
	"github.com/Alaeddine-Az/robotics-chatbot/internal/history"
	"github.com/Alaeddine-Az/robotics-chatbot/internal/provider"
	"github.com/Alaeddine-Az/robotics-chatbot/internal/ratelimit"
	"github.com/Alaeddine-Az/robotics-chatbot/internal/redisx"
	"github.com/Alaeddine-Az/robotics-chatbot/internal/tokens"
	"github.com/Alaeddine-Az/robotics-chatbot/internal/worker"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()

	cfgPath := os.Getenv("CHATD_CONFIG")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	// A missing API key is the only fatal startup condition besides a broken
	// config file.
	client, err := provider.New(context.Background(), cfg.Provider, cfg.Limits)
	if err != nil {
		logger.Fatal("init completion client", zap.Error(err))
	}
	logger.Info("completion backend ready",
		zap.String("provider", cfg.Provider.Name),
		zap.String("model", cfg.Provider.Model))

	var limiter ratelimit.Limiter
	if cfg.Redis.Enabled() {
		rdb, err := redisx.NewClient(cfg.Redis)
		if err != nil {
			logger.Fatal("connect redis", zap.Error(err))
		}
		defer rdb.Close()
		limiter = ratelimit.NewRedisWindow(rdb, cfg.Limits.RequestsPerWindow, cfg.Limits.Window(), logger)
		logger.Info("rate limiting via redis", zap.String("host", cfg.Redis.Host))
	} else {
		limiter = ratelimit.NewWindow(cfg.Limits.RequestsPerWindow, cfg.Limits.Window(), cfg.Limits.MaxIdentities)
	}

	truncator := history.NewTruncator(tokens.New(), cfg.Limits.MaxHistoryTokens)
	pool := worker.NewPool(worker.Config{
		MinWorkers:  cfg.Workers.MinWorkers,
		MaxWorkers:  cfg.Workers.MaxWorkers,
		QueueSize:   cfg.Workers.QueueSize,
		IdleTimeout: cfg.Workers.IdleTimeout(),
	})
	defer pool.Close()

	chatService := chat.NewService(truncator, client, pool, cfg.Limits.Timeout(), logger)
	handler := api.NewHandler(limiter, chatService, logger)

	router := gin.Default()
	handler.RegisterRoutes(router)

	logger.Info("listening", zap.String("address", cfg.Server.Address))
	if err := router.Run(cfg.Server.Address); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
