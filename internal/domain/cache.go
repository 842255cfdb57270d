package domain

import (
	"context"
	"time"
)

// Cache es el cliente de caché que se inyecta en los usecases: get, set con
// TTL y borrado por prefijo para la invalidación gruesa del ranking.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	DeletePrefix(ctx context.Context, prefix string) error
	Ping(ctx context.Context) error
}
