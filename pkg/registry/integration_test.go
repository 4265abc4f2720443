package registry_test

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/dmitrymomot/tempshare/pkg/mongo"
	"github.com/dmitrymomot/tempshare/pkg/pg"
	"github.com/dmitrymomot/tempshare/pkg/redis"
	"github.com/dmitrymomot/tempshare/pkg/registry"
)

func skipUnlessIntegration(t *testing.T) {
	t.Helper()
	if os.Getenv("TEST_INTEGRATION") == "" {
		t.Skip("integration test: set TEST_INTEGRATION to run")
	}
}

// exerciseDocumentStore runs the registry against a real backend and reopens it.
func exerciseDocumentStore(t *testing.T, newStore func() registry.DocumentStore) {
	t.Helper()
	ctx := context.Background()

	store := newStore()
	_, err := store.Load(ctx)
	require.ErrorIs(t, err, registry.ErrDocumentNotFound)

	r, err := registry.Open(ctx, store)
	require.NoError(t, err)

	keep := newRecord(t, 2)
	drop := newRecord(t, registry.Unlimited)
	require.NoError(t, r.Put(ctx, keep))
	require.NoError(t, r.Put(ctx, drop))
	_, err = r.RecordAccess(ctx, keep.ID)
	require.NoError(t, err)
	_, err = r.Delete(ctx, drop.ID)
	require.NoError(t, err)

	reopened, err := registry.Open(ctx, newStore())
	require.NoError(t, err)
	got, err := reopened.Get(ctx, keep.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.AccessCount)
	require.ErrorIs(t, reopened.Put(ctx, drop), registry.ErrDuplicateID)
}

func TestPostgresDocument_Integration(t *testing.T) {
	skipUnlessIntegration(t)
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"docker.io/postgres:17-alpine",
		postgres.WithDatabase("tempshare_test"),
		postgres.WithUsername("tempshare"),
		postgres.WithPassword("test-password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("terminate postgres container: %v", err)
		}
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	cfg := pg.Config{
		ConnectionString: connStr,
		MaxOpenConns:     2,
		MaxIdleConns:     1,
		RetryAttempts:    3,
		RetryInterval:    time.Second,
		MigrationsTable:  "tempshare_migrations",
	}
	pool, err := pg.Connect(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, pg.Migrate(ctx, pool, registry.Migrations, registry.MigrationsDir, cfg, slog.Default()))
	require.NoError(t, pg.Healthcheck(pool)(ctx))

	exerciseDocumentStore(t, func() registry.DocumentStore {
		return registry.NewPostgresDocument(pool, "")
	})
}

func TestRedisDocument_Integration(t *testing.T) {
	skipUnlessIntegration(t)
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "docker.io/redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("terminate redis container: %v", err)
		}
	})

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	client, err := redis.Connect(ctx, redis.Config{
		ConnectionURL:  fmt.Sprintf("redis://%s/0", endpoint),
		RetryAttempts:  3,
		RetryInterval:  time.Second,
		ConnectTimeout: 30 * time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	var cmd goredis.Cmdable = client
	exerciseDocumentStore(t, func() registry.DocumentStore {
		return registry.NewRedisDocument(cmd, "")
	})
}

func TestMongoDocument_Integration(t *testing.T) {
	skipUnlessIntegration(t)
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "docker.io/mongo:7",
			ExposedPorts: []string{"27017/tcp"},
			WaitingFor:   wait.ForLog("Waiting for connections").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("terminate mongo container: %v", err)
		}
	})

	endpoint, err := container.Endpoint(ctx, "mongodb")
	require.NoError(t, err)

	client, coll, err := mongo.NewCollection(ctx, mongo.Config{
		ConnectionURL:  endpoint,
		Database:       "tempshare_test",
		Collection:     "registry",
		ConnectTimeout: 10 * time.Second,
		MaxPoolSize:    2,
		RetryAttempts:  3,
		RetryInterval:  time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Disconnect(context.Background()) })

	exerciseDocumentStore(t, func() registry.DocumentStore {
		return registry.NewMongoDocument(coll, "")
	})
}
