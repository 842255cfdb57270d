package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Deal struct {
	ID         uuid.UUID       `gorm:"type:uuid;primaryKey"`
	CustomerID uuid.UUID       `gorm:"type:uuid;index:idx_deals_customer_date,unique"`
	ItemID     uuid.UUID       `gorm:"type:uuid;index"`
	Quantity   int             `gorm:"not null"`
	TotalCost  decimal.Decimal `gorm:"type:decimal(12,2)"`
	Date       time.Time       `gorm:"type:timestamptz;index:idx_deals_customer_date,unique"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// DealInput es una fila ya validada del archivo subido, lista para aplicar.
type DealInput struct {
	Customer string
	Item     string
	Total    decimal.Decimal
	Quantity int
	Date     time.Time
}

// DealRow es la vista desnormalizada de una deal, usada por el export.
type DealRow struct {
	Customer  string
	Item      string
	TotalCost decimal.Decimal
	Quantity  int
	Date      time.Time
}

// DealStore aplica un archivo completo como un único lote transaccional.
// La clave de upsert es (customer, date): si ya existe una deal con ese par
// se sobreescriben item, total_cost y quantity (last-write-wins; queda abierta
// a nivel producto la posibilidad de varias deals legítimas por timestamp).
type DealStore interface {
	ApplyBatch(ctx context.Context, rows []DealInput) error
	ListRows(ctx context.Context, page, pageSize int) ([]DealRow, int64, error)
}
