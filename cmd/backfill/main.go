package main

import (
	"context"

	"github.com/de7fp/restaurant-rag/config"
	"github.com/de7fp/restaurant-rag/logger"
	"github.com/de7fp/restaurant-rag/queue"
	"github.com/de7fp/restaurant-rag/store"
	flag "github.com/spf13/pflag"
	"go.uber.org/zap"
)

type unembedded interface {
	UnembeddedRestaurantIDs(ctx context.Context) ([]uint64, error)
}

type publisher interface {
	PublishEmbedRequest(subject string, req queue.EmbedRequest) error
}

// backfill queues every restaurant still missing an embedding and returns
// how many were published.
func backfill(ctx context.Context, src unembedded, pub publisher, subject string) (int, error) {
	ids, err := src.UnembeddedRestaurantIDs(ctx)
	if err != nil {
		return 0, err
	}
	logger.Info("found unembedded restaurants", zap.Int("count", len(ids)))

	published := 0
	for _, id := range ids {
		req := queue.EmbedRequest{Table: "restaurants", Kind: "insert", ID: id}
		if err := pub.PublishEmbedRequest(subject, req); err != nil {
			logger.Error("failed to publish restaurant", zap.Uint64("id", id), zap.Error(err))
			continue
		}
		published++
		logger.Debug("published restaurant for embedding", zap.Uint64("id", id))
	}

	return published, nil
}

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

	if err := cfg.RequirePostgres(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}
	if err := cfg.RequireNats(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	pg, err := store.Open(cfg)
	if err != nil {
		logger.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pg.Close()

	nc, err := queue.Connect(cfg.Nats)
	if err != nil {
		logger.Fatal("failed to connect to nats", zap.Error(err))
	}
	defer nc.Close()

	published, err := backfill(context.Background(), pg, nc, cfg.Nats.RestaurantsSubject)
	if err != nil {
		logger.Fatal("failed to query unembedded restaurants", zap.Error(err))
	}

	logger.Info("backfill complete", zap.Int("restaurants", published))
}
