package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/de7fp/restaurant-rag/config"
	"github.com/de7fp/restaurant-rag/llm"
	"github.com/de7fp/restaurant-rag/logger"
	"github.com/de7fp/restaurant-rag/queue"
	"github.com/de7fp/restaurant-rag/store"
	flag "github.com/spf13/pflag"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
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

	for _, check := range []func() error{cfg.RequirePostgres, cfg.RequireLLM, cfg.RequireNats} {
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

	client, err := llm.NewClient(ctx, cfg.LLM)
	if err != nil {
		logger.Fatal("failed to create llm client", zap.Error(err))
	}

	pg, err := store.Open(cfg)
	if err != nil {
		logger.Fatal("failed to open store", zap.Error(err))
	}
	defer pg.Close()

	handler := NewHandler(client, pg)

	workers := cfg.Embedder.Workers
	if workers < 1 {
		workers = 2
	}
	queueSize := cfg.Embedder.QueueSize
	if queueSize < 1 {
		queueSize = 100
	}
	logger.Info("starting embedder", zap.Int("workers", workers), zap.Int("queue_size", queueSize))

	pool := NewWorkerPool(ctx, workers, queueSize, handler.HandleRestaurantMessage)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return nc.Subscribe(groupCtx, cfg.Nats.RestaurantsSubject, pool.SubmitMsg(groupCtx))
	})

	// The subscription has stopped submitting once Wait returns, so the
	// pool can be closed.
	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("shutting down due to error", zap.Error(err))
	} else {
		logger.Info("shutting down")
	}

	pool.Stop()
	pool.Wait()
}
