package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dmitrymomot/tempshare/pkg/config"
	"github.com/dmitrymomot/tempshare/pkg/logger"
	"github.com/dmitrymomot/tempshare/pkg/mongo"
	"github.com/dmitrymomot/tempshare/pkg/pg"
	"github.com/dmitrymomot/tempshare/pkg/redis"
	"github.com/dmitrymomot/tempshare/pkg/registry"
)

// document is the selected registry store with its readiness checks and
// the function releasing its connection.
type document struct {
	store  registry.DocumentStore
	checks []func(context.Context) error
	close  func()
}

func openDocument(ctx context.Context, cfg AppConfig, log *slog.Logger) (*document, error) {
	log = log.With(logger.Component("registry"))

	switch cfg.RegistryBackend {
	case "file", "":
		store, err := registry.NewFileDocument(cfg.RegistryPath)
		if err != nil {
			return nil, err
		}
		return &document{store: store, close: func() {}}, nil

	case "memory":
		log.WarnContext(ctx, "registry is in memory, records are lost on restart")
		return &document{store: registry.NewMemoryDocument(), close: func() {}}, nil

	case "redis":
		var rc redis.Config
		if err := config.Load(&rc); err != nil {
			return nil, err
		}
		client, err := redis.Connect(ctx, rc)
		if err != nil {
			return nil, err
		}
		return &document{
			store:  registry.NewRedisDocument(client, rc.RegistryKey),
			checks: []func(context.Context) error{redis.Healthcheck(client)},
			close: func() {
				if err := client.Close(); err != nil {
					log.Error("failed to close redis client", logger.Error(err))
				}
			},
		}, nil

	case "mongo":
		var mc mongo.Config
		if err := config.Load(&mc); err != nil {
			return nil, err
		}
		client, coll, err := mongo.NewCollection(ctx, mc)
		if err != nil {
			return nil, err
		}
		return &document{
			store:  registry.NewMongoDocument(coll, cfg.RegistryName),
			checks: []func(context.Context) error{mongo.Healthcheck(client)},
			close: func() {
				if err := client.Disconnect(context.Background()); err != nil {
					log.Error("failed to disconnect mongo client", logger.Error(err))
				}
			},
		}, nil

	case "postgres":
		var pc pg.Config
		if err := config.Load(&pc); err != nil {
			return nil, err
		}
		pool, err := pg.Connect(ctx, pc)
		if err != nil {
			return nil, err
		}
		if err := pg.Migrate(ctx, pool, registry.Migrations, registry.MigrationsDir, pc, log); err != nil {
			pool.Close()
			return nil, err
		}
		return &document{
			store:  registry.NewPostgresDocument(pool, cfg.RegistryName),
			checks: []func(context.Context) error{pg.Healthcheck(pool)},
			close:  pool.Close,
		}, nil
	}

	return nil, fmt.Errorf("unknown REGISTRY_BACKEND %q", cfg.RegistryBackend)
}
