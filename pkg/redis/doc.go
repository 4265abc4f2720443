// Package redis connects to Redis with go-redis/v9 for the registry's Redis
// document store.
//
// Configuration is read from REDIS_* environment variables through Config:
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	doc := registry.NewRedisDocument(client, cfg.RegistryKey)
//
// Connect retries until the server answers PING or ConnectTimeout elapses.
// Healthcheck wraps PING for readiness endpoints.
package redis
