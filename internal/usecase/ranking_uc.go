package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/phenrril/gemdeals/internal/domain"
)

// popularMinHolders: una gema es popular si la tienen al menos dos clientes
// distintos dentro del top mostrado (no del universo completo).
const popularMinHolders = 2

// TopCustomer es la forma serializada de una entrada del ranking.
type TopCustomer struct {
	Username   string   `json:"username"`
	SpentMoney string   `json:"spent_money"`
	Gems       []string `json:"gems"`
}

type RankingUC struct {
	Store        domain.RankingStore
	Cache        domain.Cache
	DefaultLimit int
	CacheTTL     time.Duration
}

// Top devuelve el ranking de clientes por gasto total, anotado con las gemas
// populares del set mostrado. El resultado serializado se cachea por limit;
// un hit de caché evita todo el cómputo (servir datos viejos dentro del TTL
// es parte del contrato, no un bug).
func (uc *RankingUC) Top(ctx context.Context, limit int) ([]TopCustomer, error) {
	if limit <= 0 {
		limit = uc.DefaultLimit
	}
	key := fmt.Sprintf("%slimit=%d", TopCustomersCachePrefix, limit)

	if raw, ok, err := uc.Cache.Get(ctx, key); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache get failed, computing ranking")
	} else if ok {
		var cached []TopCustomer
		if err := json.Unmarshal(raw, &cached); err == nil {
			return cached, nil
		}
		log.Warn().Str("key", key).Msg("discarding unreadable cache entry")
	}

	out, err := uc.compute(ctx, limit)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(out); err == nil {
		if err := uc.Cache.Set(ctx, key, raw, uc.CacheTTL); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("cache set failed")
		}
	}
	return out, nil
}

func (uc *RankingUC) compute(ctx context.Context, limit int) ([]TopCustomer, error) {
	tops, err := uc.Store.TopBySpending(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("ranking por gasto: %w", err)
	}
	if len(tops) == 0 {
		return []TopCustomer{}, nil
	}

	ids := make([]uuid.UUID, len(tops))
	for i, c := range tops {
		ids[i] = c.ID
	}

	popular, err := uc.Store.PopularGemNames(ctx, ids, popularMinHolders)
	if err != nil {
		return nil, fmt.Errorf("gemas populares: %w", err)
	}

	gemsByCustomer := map[uuid.UUID][]string{}
	if len(popular) > 0 {
		gemsByCustomer, err = uc.Store.GemsByCustomer(ctx, ids, popular)
		if err != nil {
			return nil, fmt.Errorf("gemas por cliente: %w", err)
		}
	}

	out := make([]TopCustomer, len(tops))
	for i, c := range tops {
		gems := gemsByCustomer[c.ID]
		if gems == nil {
			gems = []string{}
		}
		out[i] = TopCustomer{
			Username:   c.Username,
			SpentMoney: c.SpentMoney.StringFixed(2),
			Gems:       gems,
		}
	}
	return out, nil
}
