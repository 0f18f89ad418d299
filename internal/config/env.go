package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/dyluth/omnibor/pkg/gitoid"
)

// Environment variables that override the config file.
const (
	EnvDir       = "OMNIBOR_DIR"
	EnvHash      = "OMNIBOR_HASH"
	EnvFormat    = "OMNIBOR_FORMAT"
	EnvStorage   = "OMNIBOR_STORAGE"
	EnvRedisURL  = "OMNIBOR_REDIS_URL"
	EnvNamespace = "OMNIBOR_NAMESPACE"
	EnvWorkers   = "OMNIBOR_WORKERS"
)

// applyEnvOverrides overrides config values with environment variables if set.
// Invalid values fail fast.
func applyEnvOverrides(cfg *Config) error {
	if dir := os.Getenv(EnvDir); dir != "" {
		cfg.Dir = dir
	}
	if name := os.Getenv(EnvHash); name != "" {
		alg, err := gitoid.ParseHashAlgorithm(name)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvHash, name, err)
		}
		cfg.Hash = alg
	}
	if format := os.Getenv(EnvFormat); format != "" {
		cfg.Format = format
	}
	if backend := os.Getenv(EnvStorage); backend != "" {
		cfg.Storage.Backend = backend
	}

	if url := os.Getenv(EnvRedisURL); url != "" {
		if cfg.Storage.Redis == nil {
			cfg.Storage.Redis = &RedisConfig{}
		}
		cfg.Storage.Redis.URL = url
	}
	if namespace := os.Getenv(EnvNamespace); namespace != "" {
		if cfg.Storage.Redis == nil {
			cfg.Storage.Redis = &RedisConfig{}
		}
		cfg.Storage.Redis.Namespace = namespace
	}

	if workers := os.Getenv(EnvWorkers); workers != "" {
		n, err := strconv.Atoi(workers)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvWorkers, workers, err)
		}
		cfg.Identify.Workers = n
	}

	return nil
}
