package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/abduss/pinstore/internal/config"
	"github.com/abduss/pinstore/internal/state"
)

// OpenState opens the configured state backend. The returned close func
// releases the store and any connection pool behind it.
func OpenState(ctx context.Context, cfg config.Config) (state.Store, func(), error) {
	switch cfg.State.Backend {
	case config.BackendMemory, "":
		store := state.NewMemory()
		return store, func() { _ = store.Close() }, nil

	case config.BackendLevelDB:
		if dir := filepath.Dir(cfg.State.LevelDBPath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, nil, fmt.Errorf("create leveldb directory: %w", err)
			}
		}
		store, err := state.OpenLevelDB(cfg.State.LevelDBPath)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil

	case config.BackendPostgres:
		pool, err := NewPostgresPool(ctx, cfg.Postgres)
		if err != nil {
			return nil, nil, err
		}
		store, err := state.NewPostgres(ctx, pool)
		if err != nil {
			pool.Close()
			return nil, nil, err
		}
		return store, func() {
			_ = store.Close()
			pool.Close()
		}, nil

	default:
		return nil, nil, fmt.Errorf("unsupported state backend %q", cfg.State.Backend)
	}
}
