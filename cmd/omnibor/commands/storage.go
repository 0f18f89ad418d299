package commands

import (
	"context"
	"fmt"
	"log"

	"github.com/dyluth/omnibor/internal/config"
	"github.com/dyluth/omnibor/internal/git"
	"github.com/dyluth/omnibor/internal/printer"
	"github.com/dyluth/omnibor/pkg/omnibor"
	"github.com/dyluth/omnibor/pkg/storage"
)

// manifestStore is implemented by every storage backend.
type manifestStore interface {
	omnibor.Storage
	storage.Lister
}

// openedStore is a connected backend plus what the CLI needs to describe it.
type openedStore struct {
	store    manifestStore
	location string
	redis    *storage.Redis // set only for the redis backend
}

func (s *openedStore) Close() error {
	if s.redis != nil {
		return s.redis.Close()
	}
	return nil
}

// openStorage connects the backend selected by cfg.
func openStorage(ctx context.Context, cfg *config.Config) (*openedStore, error) {
	switch cfg.Storage.Backend {
	case config.BackendMemory:
		log.Printf("[DEBUG] Using in-memory storage; manifests are discarded on exit")
		return &openedStore{store: storage.NewMemory(), location: "memory"}, nil

	case config.BackendRedis:
		rc := cfg.Storage.Redis
		rdb, err := storage.NewRedisFromURL(rc.URL, rc.Namespace)
		if err != nil {
			return nil, printer.Error("invalid Redis configuration", err.Error(), nil)
		}
		if err := rdb.Ping(ctx); err != nil {
			rdb.Close()
			return nil, printer.ErrorWithContext(
				"Redis connection failed",
				fmt.Sprintf("Could not connect to Redis at %s", rc.URL),
				map[string]string{"Namespace": rc.Namespace},
				[]string{
					"Check that Redis is running and reachable",
					"Use local storage instead:\n  omnibor --storage filesystem ...",
				},
			)
		}
		log.Printf("[DEBUG] Connected to Redis namespace %s", rc.Namespace)
		return &openedStore{store: rdb, location: "redis:" + rc.Namespace, redis: rdb}, nil

	default:
		dir := cfg.Dir
		if dir == "" {
			var err error
			dir, err = git.NewChecker().DefaultStorageDir(".")
			if err != nil {
				return nil, fmt.Errorf("failed to locate storage directory: %w", err)
			}
		}
		fs, err := storage.NewFileSystem(dir)
		if err != nil {
			return nil, fmt.Errorf("failed to open storage: %w", err)
		}
		log.Printf("[DEBUG] Using filesystem storage at %s", fs.Root())
		return &openedStore{store: fs, location: fs.Root()}, nil
	}
}
