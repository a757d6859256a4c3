// Package storage persists small string values across runs.
//
// It mirrors a browser's localStorage: string keys, string values, and removal.
// [Memory], [SQLite] and [Redis] implement [Storage].
package storage

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotdash/internal/shared"
	"github.com/redis/go-redis/v9"
)

// Keys written by the session controller.
const (
	KeyAccessToken  = "access_token"
	KeyRefreshToken = "refresh_token"
	KeyExpiresAt    = "expires_at"
)

// Storage is a durable string key/value store.
type Storage interface {
	// Get returns the value for key and whether it was present.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set writes value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error
	// Remove deletes keys. Missing keys are not an error.
	Remove(ctx context.Context, keys ...string) error
	// Close releases the backend.
	Close() error
}

// Open builds the [Storage] backend selected in cfg.
func Open(ctx context.Context, cfg *shared.Config, logger *log.Logger) (Storage, error) {
	logger = shared.WithLogger(logger, "component", "storage", "driver", cfg.Storage.Driver)

	switch cfg.Storage.Driver {
	case shared.StorageMemory:
		return NewMemory(), nil
	case shared.StorageSQLite:
		db, err := shared.OpenDatabase(cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", shared.ErrStorage, err)
		}
		logger.Debug("opened sqlite storage", "path", cfg.Database.Path)
		return NewSQLite(db), nil
	case shared.StorageRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("%w: redis ping %s: %v", shared.ErrStorage, cfg.Redis.Addr, err)
		}
		logger.Debug("connected to redis", "addr", cfg.Redis.Addr)
		return NewRedis(client, cfg.Redis.Prefix), nil
	default:
		return nil, fmt.Errorf("%w: unknown storage driver %q", shared.ErrInvalidConfig, cfg.Storage.Driver)
	}
}
