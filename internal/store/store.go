package store

import (
	"context"
	"fmt"

	"github.com/nhle/airbrb-notify/internal/model"
)

// KV is the small durable key-value capability the notifier persists
// watermarks through. Get reports found=false for a missing key.
type KV interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key, value string) error
}

// Store is a KV that owns releasable resources.
type Store interface {
	KV
	Close() error
}

// Open builds the Store selected by cfg.
func Open(ctx context.Context, cfg model.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case model.StoreDriverSQLite:
		return NewSQLiteStore(cfg.Path)
	case model.StoreDriverRedis:
		return NewRedisStore(ctx, cfg.RedisURL, "airbrb:")
	case model.StoreDriverMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
