package registry

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisKey is the key holding the registry document.
const DefaultRedisKey = "tempshare:registry"

// RedisDocument stores the registry document under a single Redis key.
type RedisDocument struct {
	db  redis.Cmdable
	key string
}

// NewRedisDocument creates a Redis-backed document store. An empty key uses DefaultRedisKey.
func NewRedisDocument(db redis.Cmdable, key string) *RedisDocument {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisDocument{db: db, key: key}
}

func (d *RedisDocument) Load(ctx context.Context) ([]byte, error) {
	val, err := d.db.Get(ctx, d.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrDocumentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", d.key, err)
	}
	return val, nil
}

// Save overwrites the key without expiration.
func (d *RedisDocument) Save(ctx context.Context, doc []byte) error {
	if err := d.db.Set(ctx, d.key, doc, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", d.key, err)
	}
	return nil
}
