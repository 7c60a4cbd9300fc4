package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"library-desk/config"
	"library-desk/library"
)

// openStore connects the backend selected by LIBRARY_STORE.
func openStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (library.Store, error) {
	var (
		store library.Store
		err   error
	)
	switch cfg.Store {
	case config.StoreSQLite:
		store, err = library.NewDatabase(cfg.DBPath)
	case config.StoreRedis:
		store, err = library.NewRedisStore(ctx, cfg.RedisURL, log)
	case config.StorePostgres:
		store, err = library.NewPostgresStore(ctx, cfg.DatabaseURL, log)
	case config.StoreMemory:
		log.Warn("using in-memory store; nothing will be persisted")
		return library.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store %q", cfg.Store)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Store, err)
	}
	log.Info("store opened", zap.String("backend", cfg.Store))
	return store, nil
}
