package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/de7fp/restaurant-rag/config"
	"github.com/de7fp/restaurant-rag/ingest"
	"github.com/de7fp/restaurant-rag/llm"
	"github.com/de7fp/restaurant-rag/logger"
	"github.com/de7fp/restaurant-rag/store"
	flag "github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func newFlagSet() *flag.FlagSet {
	fs := flag.NewFlagSet("ingest", flag.ContinueOnError)
	fs.String("config", "", "path to config file")
	fs.String("source", "csv", "row source: csv or warehouse")
	fs.String("crawl", "", "crawl CSV path")
	fs.String("waiting", "", "real-time waiting CSV path joined on id")
	return fs
}

// loadConfig parses args and binds the flags over the file and env values.
func loadConfig(args []string) (*config.Config, error) {
	fs := newFlagSet()
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	v := viper.New()
	for key, name := range map[string]string{
		"ingest.source":     "source",
		"ingest.crawlCSV":   "crawl",
		"ingest.waitingCSV": "waiting",
	} {
		if err := v.BindPFlag(key, fs.Lookup(name)); err != nil {
			return nil, err
		}
	}

	path, _ := fs.GetString("config")
	return config.LoadWith(v, path)
}

// validate checks everything the chosen source needs before any work starts.
func validate(cfg *config.Config) error {
	if err := cfg.RequireLLM(); err != nil {
		return err
	}
	if err := cfg.RequirePostgres(); err != nil {
		return err
	}

	switch cfg.Ingest.Source {
	case "csv":
		if cfg.Ingest.CrawlCSV == "" {
			return fmt.Errorf("missing crawl CSV path")
		}
		for _, path := range []string{cfg.Ingest.CrawlCSV, cfg.Ingest.WaitingCSV} {
			if path == "" {
				continue
			}
			if _, err := os.Stat(path); err != nil {
				return fmt.Errorf("file not found: %s", path)
			}
		}
		return nil
	case "warehouse":
		return cfg.RequireWarehouse()
	default:
		return fmt.Errorf("unknown source %q", cfg.Ingest.Source)
	}
}

func main() {
	cfg, err := loadConfig(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := validate(cfg); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := llm.NewClient(ctx, cfg.LLM)
	if err != nil {
		logger.Fatal("failed to create llm client", zap.Error(err))
	}

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

	var src ingest.Source
	switch cfg.Ingest.Source {
	case "warehouse":
		db, err := ingest.OpenWarehouse(ctx, cfg.Warehouse.ConnStr())
		if err != nil {
			logger.Fatal("failed to connect to warehouse", zap.Error(err))
		}
		defer db.Close()
		src = ingest.NewWarehouseSource(db)
	default:
		src = &ingest.CSVSource{CrawlPath: cfg.Ingest.CrawlCSV, WaitingPath: cfg.Ingest.WaitingCSV}
	}

	summary, err := ingest.NewPipeline(pg, client).Run(ctx, src)
	if err != nil {
		logger.Fatal("ingestion failed", zap.Error(err), zap.Stringer("summary", summary))
	}

	fmt.Printf("Successfully loaded %d restaurants! (%s)\n", summary.Inserted, summary)
}
