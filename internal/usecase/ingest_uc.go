package usecase

import (
	"context"
	"fmt"

	"github.com/phenrril/gemdeals/internal/domain"
	"github.com/phenrril/gemdeals/internal/ingest"
)

// TopCustomersCachePrefix agrupa todas las claves del ranking cacheado.
// La invalidación es gruesa: se borra el prefijo completo, sin importar qué
// valores de limit llegaron a cachearse.
const TopCustomersCachePrefix = "top_customers:"

type IngestUC struct {
	Deals domain.DealStore
	Cache domain.Cache
}

// Upload valida el archivo completo y lo aplica como un único lote atómico.
// Si el store confirma, recién ahí se invalida el caché del ranking; un fallo
// en cualquier fila impide que se persista fila alguna.
func (uc *IngestUC) Upload(ctx context.Context, content []byte) (int, error) {
	rows, err := ingest.ParseDeals(content)
	if err != nil {
		return 0, err
	}

	if err := uc.Deals.ApplyBatch(ctx, rows); err != nil {
		return 0, fmt.Errorf("aplicar lote de deals: %w", err)
	}

	if err := uc.Cache.DeletePrefix(ctx, TopCustomersCachePrefix); err != nil {
		return 0, fmt.Errorf("invalidar caché de ranking: %w", err)
	}

	return len(rows), nil
}
