package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/de7fp/restaurant-rag/config"
	"github.com/de7fp/restaurant-rag/logger"
	"github.com/de7fp/restaurant-rag/queue"
	flag "github.com/spf13/pflag"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output); err != nil {
		logger.Fatal("failed to init logger", zap.Error(err))
	}
	defer logger.Sync()

	for _, check := range []func() error{cfg.RequirePostgres, cfg.RequireNats} {
		if err := check(); err != nil {
			logger.Fatal("invalid configuration", zap.Error(err))
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	nc, err := queue.Connect(cfg.Nats)
	if err != nil {
		logger.Fatal("failed to connect to nats", zap.Error(err))
	}
	defer nc.Close()

	listener := NewListener(cfg, nc)
	defer listener.Close(context.Background())

	if err := listener.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("listener stopped", zap.Error(err))
		return
	}
	logger.Info("shutting down")
}
