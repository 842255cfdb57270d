package postgres

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/phenrril/gemdeals/internal/domain"
)

type RankingStore struct{ db *gorm.DB }

func NewRankingStore(db *gorm.DB) *RankingStore { return &RankingStore{db: db} }

// TopBySpending ranquea sobre el set completo de clientes: los que no tienen
// deals entran con 0. El desempate no está documentado y se deja al orden
// natural del store.
func (r *RankingStore) TopBySpending(ctx context.Context, limit int) ([]domain.CustomerSpend, error) {
	var rows []domain.CustomerSpend
	err := r.db.WithContext(ctx).
		Table("customers").
		Select("customers.id, customers.username, COALESCE(SUM(deals.total_cost), 0) AS spent_money").
		Joins("LEFT JOIN deals ON deals.customer_id = customers.id").
		Group("customers.id, customers.username").
		Order("spent_money DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// PopularGemNames cuenta, por gema, los titulares distintos dentro del set
// recibido, y devuelve sólo las que alcanzan el umbral. Una sola consulta
// agregada en lugar del fetch perezoso por cliente.
func (r *RankingStore) PopularGemNames(ctx context.Context, customerIDs []uuid.UUID, minHolders int) ([]string, error) {
	if len(customerIDs) == 0 {
		return nil, nil
	}
	var names []string
	err := r.db.WithContext(ctx).
		Table("gems").
		Select("gems.name").
		Joins("JOIN deals ON deals.item_id = gems.id").
		Where("deals.customer_id IN ?", customerIDs).
		Group("gems.id, gems.name").
		Having("COUNT(DISTINCT deals.customer_id) >= ?", minHolders).
		Scan(&names).Error
	if err != nil {
		return nil, err
	}
	return names, nil
}

// GemsByCustomer trae los pares (cliente, gema) restringidos a las gemas
// populares. El orden dentro de cada cliente no está garantizado.
func (r *RankingStore) GemsByCustomer(ctx context.Context, customerIDs []uuid.UUID, gemNames []string) (map[uuid.UUID][]string, error) {
	if len(customerIDs) == 0 || len(gemNames) == 0 {
		return map[uuid.UUID][]string{}, nil
	}

	type pair struct {
		CustomerID uuid.UUID
		Name       string
	}
	var pairs []pair
	err := r.db.WithContext(ctx).
		Table("deals").
		Select("DISTINCT deals.customer_id, gems.name").
		Joins("JOIN gems ON gems.id = deals.item_id").
		Where("deals.customer_id IN ? AND gems.name IN ?", customerIDs, gemNames).
		Scan(&pairs).Error
	if err != nil {
		return nil, err
	}

	out := make(map[uuid.UUID][]string, len(customerIDs))
	for _, p := range pairs {
		out[p.CustomerID] = append(out[p.CustomerID], p.Name)
	}
	return out, nil
}
