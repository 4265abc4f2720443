package pg

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/pressly/goose/v3/database"
)

var (
	ErrMigrate            = errors.New("pg: failed to apply migrations")
	ErrMigrationsNotFound = errors.New("pg: migrations directory not found")
	ErrMigrationsNotGiven = errors.New("pg: migrations filesystem or directory not provided")
)

const defaultMigrationsTable = "goose_db_version"

// migrationLogger receives one line per applied migration; *slog.Logger satisfies it.
type migrationLogger interface {
	InfoContext(ctx context.Context, msg string, args ...any)
}

// Migrate applies every pending goose migration in dir of fsys. Versions are
// tracked in cfg.MigrationsTable. The pool is bridged to database/sql
// through pgx stdlib for the duration of the call.
func Migrate(ctx context.Context, pool *pgxpool.Pool, fsys fs.FS, dir string, cfg Config, log migrationLogger) error {
	if fsys == nil || dir == "" {
		return errors.Join(ErrMigrate, ErrMigrationsNotGiven)
	}
	if _, err := fs.Stat(fsys, dir); err != nil {
		return errors.Join(ErrMigrationsNotFound, err)
	}
	migrations, err := fs.Sub(fsys, dir)
	if err != nil {
		return errors.Join(ErrMigrationsNotFound, err)
	}

	table := cfg.MigrationsTable
	if table == "" {
		table = defaultMigrationsTable
	}
	store, err := database.NewStore(database.DialectPostgres, table)
	if err != nil {
		return errors.Join(ErrMigrate, err)
	}

	// A custom store requires the empty dialect.
	provider, err := goose.NewProvider("", stdlib.OpenDBFromPool(pool), migrations, goose.WithStore(store))
	if err != nil {
		return errors.Join(ErrMigrate, err)
	}
	defer provider.Close()

	results, err := provider.Up(ctx)
	for _, res := range results {
		if res.Error != nil {
			continue
		}
		log.InfoContext(ctx, "migration applied",
			slog.Int64("version", res.Source.Version),
			slog.String("file", res.Source.Path),
			slog.Duration("duration", res.Duration),
		)
	}
	if err != nil {
		return errors.Join(ErrMigrate, err)
	}
	return nil
}
