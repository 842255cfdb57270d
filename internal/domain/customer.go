package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Customer struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Username  string    `gorm:"size:255;uniqueIndex"`
	CreatedAt time.Time
}

// CustomerSpend es una fila del ranking: total histórico gastado por el cliente.
type CustomerSpend struct {
	ID         uuid.UUID
	Username   string
	SpentMoney decimal.Decimal
}

// RankingStore expone el plan de consultas del ranking en tres pasos:
// top-N por gasto, gemas populares dentro de ese set, y pares (cliente, gema)
// restringidos a las populares. Evita el fan-out por fila.
type RankingStore interface {
	TopBySpending(ctx context.Context, limit int) ([]CustomerSpend, error)
	PopularGemNames(ctx context.Context, customerIDs []uuid.UUID, minHolders int) ([]string, error)
	GemsByCustomer(ctx context.Context, customerIDs []uuid.UUID, gemNames []string) (map[uuid.UUID][]string, error)
}
