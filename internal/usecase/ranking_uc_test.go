package usecase

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phenrril/gemdeals/internal/adapters/cache/memory"
	"github.com/phenrril/gemdeals/internal/domain"
)

// fakeRankingStore resuelve el plan de consultas del ranking sobre datos en
// memoria: gastos por cliente y tenencia de gemas.
type fakeRankingStore struct {
	spends []domain.CustomerSpend
	gems   map[uuid.UUID][]string
}

func (f *fakeRankingStore) TopBySpending(_ context.Context, limit int) ([]domain.CustomerSpend, error) {
	out := make([]domain.CustomerSpend, len(f.spends))
	copy(out, f.spends)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SpentMoney.GreaterThan(out[j].SpentMoney)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeRankingStore) PopularGemNames(_ context.Context, customerIDs []uuid.UUID, minHolders int) ([]string, error) {
	inTop := map[uuid.UUID]bool{}
	for _, id := range customerIDs {
		inTop[id] = true
	}
	holders := map[string]map[uuid.UUID]bool{}
	for id, names := range f.gems {
		if !inTop[id] {
			continue
		}
		for _, name := range names {
			if holders[name] == nil {
				holders[name] = map[uuid.UUID]bool{}
			}
			holders[name][id] = true
		}
	}
	var popular []string
	for name, hs := range holders {
		if len(hs) >= minHolders {
			popular = append(popular, name)
		}
	}
	return popular, nil
}

func (f *fakeRankingStore) GemsByCustomer(_ context.Context, customerIDs []uuid.UUID, gemNames []string) (map[uuid.UUID][]string, error) {
	wanted := map[string]bool{}
	for _, name := range gemNames {
		wanted[name] = true
	}
	out := map[uuid.UUID][]string{}
	for _, id := range customerIDs {
		seen := map[string]bool{}
		for _, name := range f.gems[id] {
			if wanted[name] && !seen[name] {
				out[id] = append(out[id], name)
				seen[name] = true
			}
		}
	}
	return out, nil
}

func spend(username string, amount float64) domain.CustomerSpend {
	return domain.CustomerSpend{
		ID:         uuid.New(),
		Username:   username,
		SpentMoney: decimal.NewFromFloat(amount),
	}
}

func newRankingUC(store *fakeRankingStore) (*RankingUC, *memory.Cache) {
	cache := memory.New()
	return &RankingUC{Store: store, Cache: cache, DefaultLimit: 5, CacheTTL: time.Minute}, cache
}

func TestTopOrderedBySpentMoney(t *testing.T) {
	store := &fakeRankingStore{
		spends: []domain.CustomerSpend{
			spend("a", 1500), spend("b", 1300), spend("c", 1350),
			spend("d", 1250), spend("e", 1650), spend("f", 1400),
		},
		gems: map[uuid.UUID][]string{},
	}
	uc, _ := newRankingUC(store)

	top, err := uc.Top(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, top, 5)

	usernames := make([]string, len(top))
	for i, c := range top {
		usernames[i] = c.Username
	}
	assert.Equal(t, []string{"e", "a", "f", "c", "b"}, usernames)
	assert.Equal(t, "1650.00", top[0].SpentMoney)
	assert.Equal(t, "1300.00", top[4].SpentMoney)

	// sin gemas populares, cada cliente sale con lista vacía, nunca null
	for _, c := range top {
		assert.NotNil(t, c.Gems)
		assert.Empty(t, c.Gems)
	}
}

func TestTopShorterThanLimit(t *testing.T) {
	store := &fakeRankingStore{
		spends: []domain.CustomerSpend{spend("a", 10), spend("b", 20)},
		gems:   map[uuid.UUID][]string{},
	}
	uc, _ := newRankingUC(store)

	top, err := uc.Top(context.Background(), 5)
	require.NoError(t, err)
	assert.Len(t, top, 2)
}

func TestPopularGemsThreshold(t *testing.T) {
	// top-5 por gasto: c0..c4; c5 y c6 quedan fuera
	cs := make([]domain.CustomerSpend, 7)
	for i := range cs {
		cs[i] = spend(string(rune('p'+i)), float64(1000-i*100))
	}
	store := &fakeRankingStore{
		spends: cs,
		gems: map[uuid.UUID][]string{
			// sapphire: 5 titulares del top → popular
			// ruby: 2 titulares del top → popular
			// aquamarine: 1 titular del top → no
			// brick: 1 titular del top + 1 fuera del top → no
			// emerald: sólo fuera del top → no
			cs[0].ID: {"sapphire", "ruby"},
			cs[1].ID: {"sapphire", "ruby"},
			cs[2].ID: {"sapphire", "aquamarine"},
			cs[3].ID: {"sapphire", "brick"},
			cs[4].ID: {"sapphire"},
			cs[5].ID: {"brick", "emerald"},
			cs[6].ID: {"emerald"},
		},
	}
	uc, _ := newRankingUC(store)

	top, err := uc.Top(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, top, 5)

	// el orden dentro de la lista de gemas no está garantizado
	assert.ElementsMatch(t, []string{"sapphire", "ruby"}, top[0].Gems)
	assert.ElementsMatch(t, []string{"sapphire", "ruby"}, top[1].Gems)
	assert.ElementsMatch(t, []string{"sapphire"}, top[2].Gems)
	assert.ElementsMatch(t, []string{"sapphire"}, top[3].Gems)
	assert.ElementsMatch(t, []string{"sapphire"}, top[4].Gems)

	for _, c := range top {
		assert.NotContains(t, c.Gems, "aquamarine")
		assert.NotContains(t, c.Gems, "brick")
		assert.NotContains(t, c.Gems, "emerald")
	}
}

func TestTopServesStaleCacheUntilCleared(t *testing.T) {
	store := &fakeRankingStore{
		spends: []domain.CustomerSpend{spend("a", 100), spend("b", 50)},
		gems:   map[uuid.UUID][]string{},
	}
	uc, cache := newRankingUC(store)
	ctx := context.Background()

	first, err := uc.Top(ctx, 5)
	require.NoError(t, err)
	require.Len(t, first, 2)

	// se vacía el store: dentro del TTL se sigue sirviendo la copia cacheada
	store.spends = nil
	stale, err := uc.Top(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, first, stale)

	// tras limpiar el caché, la lectura refleja el estado fresco
	require.NoError(t, cache.DeletePrefix(ctx, TopCustomersCachePrefix))
	fresh, err := uc.Top(ctx, 5)
	require.NoError(t, err)
	assert.Empty(t, fresh)
}

func TestTopCachesPerLimit(t *testing.T) {
	store := &fakeRankingStore{
		spends: []domain.CustomerSpend{spend("a", 100), spend("b", 50), spend("c", 25)},
		gems:   map[uuid.UUID][]string{},
	}
	uc, cache := newRankingUC(store)
	ctx := context.Background()

	_, err := uc.Top(ctx, 2)
	require.NoError(t, err)
	_, err = uc.Top(ctx, 3)
	require.NoError(t, err)

	assert.ElementsMatch(t,
		[]string{TopCustomersCachePrefix + "limit=2", TopCustomersCachePrefix + "limit=3"},
		cache.Keys())
}

func TestTopDefaultLimit(t *testing.T) {
	spends := make([]domain.CustomerSpend, 8)
	for i := range spends {
		spends[i] = spend(string(rune('a'+i)), float64(100+i))
	}
	store := &fakeRankingStore{spends: spends, gems: map[uuid.UUID][]string{}}
	uc, _ := newRankingUC(store)

	top, err := uc.Top(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, top, uc.DefaultLimit)
}
