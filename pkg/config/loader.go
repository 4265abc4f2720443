package config

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// configCache stores one parsed value per config type.
type configCache struct {
	mu     sync.RWMutex
	values map[string]any
}

var (
	cache = &configCache{values: make(map[string]any)}

	dotenvOnce sync.Once
)

// LoadEnvFiles loads the given .env files into the process environment without
// overriding variables that are already set. Missing files are skipped.
// It also disables the implicit ./.env load done by Load.
func LoadEnvFiles(paths ...string) error {
	var err error
	dotenvOnce.Do(func() {})
	for _, p := range paths {
		if loadErr := godotenv.Load(p); loadErr != nil && !isNotExist(loadErr) {
			err = errors.Join(err, fmt.Errorf("%w: %s: %v", ErrLoadingEnvFile, p, loadErr))
		}
	}
	return err
}

// Load parses environment variables into v using env struct tags.
// The first call loads ./.env when present. Each config type is parsed once;
// later calls copy the cached value.
//
//	type StorageConfig struct {
//		Dir string `env:"STORAGE_DIR" envDefault:"./temp_files"`
//	}
//
//	var cfg StorageConfig
//	if err := config.Load(&cfg); err != nil {
//		return err
//	}
func Load[T any](v *T) error {
	if v == nil {
		return ErrNilPointer
	}
	dotenvOnce.Do(func() {
		_ = godotenv.Load()
	})

	key := typeKey[T]()

	cache.mu.RLock()
	cached, ok := cache.values[key]
	cache.mu.RUnlock()
	if ok {
		*v = cached.(T)
		return nil
	}

	cache.mu.Lock()
	defer cache.mu.Unlock()
	if cached, ok := cache.values[key]; ok {
		*v = cached.(T)
		return nil
	}

	var parsed T
	if err := env.Parse(&parsed); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}
	cache.values[key] = parsed
	*v = parsed

	return nil
}

// MustLoad is Load that panics on failure.
func MustLoad[T any](v *T) {
	if err := Load(v); err != nil {
		panic(fmt.Sprintf("failed to load required configuration: %v", err))
	}
}

// ResetCache drops every cached config. Intended for tests.
func ResetCache() {
	cache.mu.Lock()
	cache.values = make(map[string]any)
	cache.mu.Unlock()
}

func typeKey[T any]() string {
	t := reflect.TypeFor[T]()
	return t.PkgPath() + "." + t.String()
}
