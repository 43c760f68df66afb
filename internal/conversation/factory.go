package conversation

import (
	"context"
	"fmt"
	"strings"
	"time"
)

type Driver string

const (
	DriverMemory   Driver = "memory"
	DriverRedis    Driver = "redis"
	DriverPostgres Driver = "postgres"
)

// StoreConfig selects and configures a session store.
type StoreConfig struct {
	Driver      Driver
	TTL         time.Duration
	MaxEntries  int
	RedisURL    string
	PostgresDSN string
	// CacheEntries > 0 puts a read-through cache in front of Postgres.
	CacheEntries int
	CacheTTL     time.Duration
}

// OpenStore builds the configured store.
func OpenStore(ctx context.Context, cfg StoreConfig) (Store, error) {
	switch Driver(strings.ToLower(strings.TrimSpace(string(cfg.Driver)))) {
	case "", DriverMemory:
		return NewMemoryStore(cfg.TTL, cfg.MaxEntries), nil
	case DriverRedis:
		if strings.TrimSpace(cfg.RedisURL) == "" {
			return nil, fmt.Errorf("session store redis: REDIS_URL is empty")
		}
		return NewRedisStoreFromURL(ctx, cfg.RedisURL, cfg.TTL)
	case DriverPostgres:
		if strings.TrimSpace(cfg.PostgresDSN) == "" {
			return nil, fmt.Errorf("session store postgres: SESSION_PG_DSN is empty")
		}
		pg, err := NewPostgresStore(ctx, cfg.PostgresDSN, cfg.TTL)
		if err != nil {
			return nil, fmt.Errorf("session store postgres: %w", err)
		}
		if cfg.CacheEntries > 0 {
			return NewCachedStore(pg, cfg.CacheEntries, cfg.CacheTTL), nil
		}
		return pg, nil
	default:
		return nil, fmt.Errorf("unknown session store %q", cfg.Driver)
	}
}
