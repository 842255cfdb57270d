package app

import (
	"context"
	"net/http"
	"os"
	"strconv"
	"time"

	"gorm.io/gorm"

	"github.com/phenrril/gemdeals/internal/adapters/httpserver"
	"github.com/phenrril/gemdeals/internal/adapters/repo/postgres"
	"github.com/phenrril/gemdeals/internal/domain"
	"github.com/phenrril/gemdeals/internal/usecase"
)

const (
	defaultTopLimit = 5
	defaultCacheTTL = 15 * time.Minute
)

type App struct {
	DB        *gorm.DB
	Cache     domain.Cache
	IngestUC  *usecase.IngestUC
	RankingUC *usecase.RankingUC
	Deals     *postgres.DealStore
}

func NewApp(db *gorm.DB, cache domain.Cache) (*App, error) {
	dealStore := postgres.NewDealStore(db)
	rankingStore := postgres.NewRankingStore(db)

	topLimit := defaultTopLimit
	if v, err := strconv.Atoi(os.Getenv("TOP_CUSTOMERS_LIMIT")); err == nil && v > 0 {
		topLimit = v
	}
	cacheTTL := defaultCacheTTL
	if v, err := time.ParseDuration(os.Getenv("TOP_CUSTOMERS_CACHE_TTL")); err == nil && v > 0 {
		cacheTTL = v
	}

	a := &App{
		DB:    db,
		Cache: cache,
		Deals: dealStore,
	}
	a.IngestUC = &usecase.IngestUC{Deals: dealStore, Cache: cache}
	a.RankingUC = &usecase.RankingUC{
		Store:        rankingStore,
		Cache:        cache,
		DefaultLimit: topLimit,
		CacheTTL:     cacheTTL,
	}
	return a, nil
}

func (a *App) HTTPHandler() http.Handler {
	return httpserver.New(a.IngestUC, a.RankingUC, a.Deals, a.Cache, a.pingDB)
}

func (a *App) pingDB(ctx context.Context) error {
	sqlDB, err := a.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (a *App) Migrate() error {
	if err := a.DB.AutoMigrate(
		&domain.Customer{}, &domain.Gem{}, &domain.Deal{},
	); err != nil {
		return err
	}

	_ = a.DB.Exec("CREATE UNIQUE INDEX IF NOT EXISTS idx_customers_username ON customers (username)").Error
	_ = a.DB.Exec("CREATE UNIQUE INDEX IF NOT EXISTS idx_gems_name ON gems (name)").Error
	_ = a.DB.Exec("CREATE UNIQUE INDEX IF NOT EXISTS idx_deals_customer_date ON deals (customer_id, date)").Error
	_ = a.DB.Exec("CREATE INDEX IF NOT EXISTS idx_deals_item_id ON deals (item_id)").Error

	return nil
}
