package registry

import (
	"context"
	"embed"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Migrations holds the goose migrations for PostgresDocument.
//
//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsDir is the directory inside Migrations.
const MigrationsDir = "migrations"

// PgxQuerier is the subset of *pgxpool.Pool used by PostgresDocument.
type PgxQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

const (
	selectDocumentSQL = `SELECT body FROM registry_documents WHERE name = $1`
	upsertDocumentSQL = `INSERT INTO registry_documents (name, body, updated_at)
VALUES ($1, $2::jsonb, now())
ON CONFLICT (name) DO UPDATE SET body = EXCLUDED.body, updated_at = EXCLUDED.updated_at`
)

// PostgresDocument stores the registry document in one row of registry_documents.
type PostgresDocument struct {
	db   PgxQuerier
	name string
}

// NewPostgresDocument creates a PostgreSQL-backed document store. An empty name uses DefaultDocumentName.
func NewPostgresDocument(db PgxQuerier, name string) *PostgresDocument {
	if name == "" {
		name = DefaultDocumentName
	}
	return &PostgresDocument{db: db, name: name}
}

func (d *PostgresDocument) Load(ctx context.Context) ([]byte, error) {
	var body string
	err := d.db.QueryRow(ctx, selectDocumentSQL, d.name).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrDocumentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres load %s: %w", d.name, err)
	}
	return []byte(body), nil
}

// Save upserts the row.
func (d *PostgresDocument) Save(ctx context.Context, doc []byte) error {
	if _, err := d.db.Exec(ctx, upsertDocumentSQL, d.name, string(doc)); err != nil {
		return fmt.Errorf("postgres save %s: %w", d.name, err)
	}
	return nil
}
