package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
)

const keyPrefix = "vetpos:view"

// RedisViewCache versions each namespace with a generation counter. Entries
// are written under the generation their Get saw, so bumping it hides all of
// them, including late writes from reads that started earlier, and TTL
// reclaims the leftovers.
type RedisViewCache struct {
	client *redis.Client
}

func NewRedisViewCache(addr string, password string, db int) *RedisViewCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &RedisViewCache{client: client}
}

func (c *RedisViewCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisViewCache) Close() error {
	return c.client.Close()
}

func (c *RedisViewCache) generation(ctx context.Context, namespace string) (int64, error) {
	gen, err := c.client.Get(ctx, generationKey(namespace)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func (c *RedisViewCache) Get(ctx context.Context, namespace string, key string, dst any) (bool, Version, error) {
	gen, err := c.generation(ctx, namespace)
	if err != nil {
		return false, 0, err
	}
	version := Version(gen)
	val, err := c.client.Get(ctx, entryKey(namespace, gen, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, version, nil
	}
	if err != nil {
		return false, version, err
	}
	if err := json.Unmarshal(val, dst); err != nil {
		return false, version, err
	}
	return true, version, nil
}

func (c *RedisViewCache) Set(ctx context.Context, namespace string, key string, version Version, value any, ttl time.Duration) error {
	if value == nil {
		return nil
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, entryKey(namespace, int64(version), key), payload, ttl).Err()
}

func (c *RedisViewCache) Invalidate(ctx context.Context, namespaces ...string) error {
	if len(namespaces) == 0 {
		return nil
	}
	pipe := c.client.TxPipeline()
	for _, ns := range namespaces {
		pipe.Incr(ctx, generationKey(ns))
	}
	_, err := pipe.Exec(ctx)
	return err
}

func generationKey(namespace string) string {
	return fmt.Sprintf("%s:%s:gen", keyPrefix, namespace)
}

func entryKey(namespace string, gen int64, key string) string {
	return fmt.Sprintf("%s:%s:%d:%s", keyPrefix, namespace, gen, key)
}
