// Package pg connects to PostgreSQL with pgx/v5 and applies goose migrations
// from an embedded filesystem. It backs the registry's PostgreSQL document
// store.
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, registry.Migrations, registry.MigrationsDir, cfg, log); err != nil {
//		return err
//	}
//
// Healthcheck returns a closure suitable for readiness probes.
package pg
