package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/de7fp/restaurant-rag/config"
	"github.com/de7fp/restaurant-rag/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var ErrNotFound = errors.New("not found")

// Kind identifies an entity for store routing.
type Kind int

const (
	KindRestaurant Kind = iota
	KindChatHistory
	KindMapSearch
)

const (
	StoreDefault = "default"
	StoreVector  = "vector"
)

// StoreFor maps an entity kind to the name of the store that owns it.
func StoreFor(kind Kind) string {
	switch kind {
	case KindRestaurant:
		return StoreVector
	default:
		return StoreDefault
	}
}

// Router resolves entity kinds to database handles.
type Router struct {
	Default *gorm.DB
	Vector  *gorm.DB
}

func (r Router) For(kind Kind) *gorm.DB {
	if StoreFor(kind) == StoreVector && r.Vector != nil {
		return r.Vector
	}
	return r.Default
}

type Pg struct {
	router Router
}

func NewPg(router Router) *Pg {
	return &Pg{router: router}
}

func openGorm(connStr string) (*gorm.DB, error) {
	newLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Silent,
			IgnoreRecordNotFoundError: true,
			ParameterizedQueries:      true,
			Colorful:                  false,
		},
	)

	return gorm.Open(postgres.Open(connStr), &gorm.Config{
		Logger: newLogger,
	})
}

// Open connects to the default store and, when configured separately, to the
// vector store.
func Open(cfg *config.Config) (*Pg, error) {
	def, err := openGorm(cfg.Postgres.ConnStr())
	if err != nil {
		return nil, fmt.Errorf("open default store: %w", err)
	}

	vec := def
	if cfg.VectorPostgres.Configured() {
		vec, err = openGorm(cfg.VectorPostgres.ConnStr())
		if err != nil {
			return nil, fmt.Errorf("open vector store: %w", err)
		}
	}

	return NewPg(Router{Default: def, Vector: vec}), nil
}

func (p *Pg) db(ctx context.Context, kind Kind) *gorm.DB {
	return p.router.For(kind).WithContext(ctx)
}

// Migrate enables pgvector on the vector store and creates each table on the
// store it is routed to.
func (p *Pg) Migrate(ctx context.Context) error {
	if err := p.db(ctx, KindRestaurant).Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
		return fmt.Errorf("create vector extension: %w", err)
	}

	entities := []struct {
		kind  Kind
		model interface{}
	}{
		{KindRestaurant, &models.Restaurant{}},
		{KindChatHistory, &models.ChatHistory{}},
		{KindMapSearch, &models.MapSearchHistory{}},
	}
	for _, e := range entities {
		if err := p.db(ctx, e.kind).AutoMigrate(e.model); err != nil {
			return fmt.Errorf("migrate %T: %w", e.model, err)
		}
	}

	return nil
}

func (p *Pg) Ping(ctx context.Context) error {
	for _, kind := range []Kind{KindChatHistory, KindRestaurant} {
		sqlDB, err := p.router.For(kind).DB()
		if err != nil {
			return err
		}
		if err := sqlDB.PingContext(ctx); err != nil {
			return fmt.Errorf("ping %s store: %w", StoreFor(kind), err)
		}
	}
	return nil
}

func (p *Pg) Close() error {
	var errs []error
	seen := map[*gorm.DB]bool{}
	for _, db := range []*gorm.DB{p.router.Default, p.router.Vector} {
		if db == nil || seen[db] {
			continue
		}
		seen[db] = true
		sqlDB, err := db.DB()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		errs = append(errs, sqlDB.Close())
	}
	return errors.Join(errs...)
}

// Page is a 1-based page request.
type Page struct {
	Number int
	Size   int
}

func (pg Page) normalized() Page {
	if pg.Number < 1 {
		pg.Number = 1
	}
	if pg.Size < 1 || pg.Size > 200 {
		pg.Size = 50
	}
	return pg
}

func (pg Page) Offset() int {
	n := pg.normalized()
	return (n.Number - 1) * n.Size
}

func (pg Page) Limit() int {
	return pg.normalized().Size
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
