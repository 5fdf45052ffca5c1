package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/de7fp/restaurant-rag/config"
	"github.com/de7fp/restaurant-rag/llm"
	"github.com/de7fp/restaurant-rag/logger"
	"github.com/de7fp/restaurant-rag/rag"
	"github.com/de7fp/restaurant-rag/store"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	flag "github.com/spf13/pflag"
	"go.uber.org/zap"
)

type history interface {
	rag.HistoryRecorder
	History
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
	if err := cfg.RequireLLM(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pg, err := store.Open(cfg)
	if err != nil {
		logger.Fatal("failed to open store", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.AutoMigrate {
		if err := pg.Migrate(ctx); err != nil {
			logger.Fatal("failed to migrate", zap.Error(err))
		}
	}

	client, err := llm.NewClient(ctx, cfg.LLM)
	if err != nil {
		logger.Fatal("failed to create llm client", zap.Error(err))
	}

	var embedder llm.Embedder = client
	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()

		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unavailable, embedding cache disabled", zap.Error(err))
		} else {
			embedder = rag.NewCachedEmbedder(client, rdb, cfg.Redis.TTL)
			logger.Info("embedding cache enabled", zap.String("addr", cfg.Redis.Addr))
		}
	}

	var hist history = pg
	if cfg.History.Driver == "sqlite" {
		sqliteHistory, db, err := rag.OpenSqliteHistory(cfg.History.SqlitePath, cfg.History.Session)
		if err != nil {
			logger.Fatal("failed to open sqlite history", zap.Error(err))
		}
		defer db.Close()
		hist = sqliteHistory
	}

	chat := rag.NewChat(embedder, pg, client, hist, rag.Options{
		TopK:        cfg.RAG.TopK,
		FallbackIDs: cfg.RAG.FallbackIDs,
		Timeout:     cfg.LLM.Timeout,
	})

	gin.SetMode(cfg.Server.Mode)
	agent := NewAgent(cfg, NewHandler(pg, chat, hist))

	if err := agent.Run(ctx); err != nil {
		logger.Fatal("failed to run the agent", zap.Error(err))
	}
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (a *Agent) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    a.config.Server.Address(),
		Handler: a.Router(),
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Info("agent listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
		close(errChan)
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
