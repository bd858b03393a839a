package file

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache is the optional second-tier CacheLayer (§4.N), grounded on the
// teacher's pkg/database/redis.go Redis wrapper: a thin pooled client with a
// configurable key TTL.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// RedisCacheConfig mirrors the teacher's database.RedisConfig shape.
type RedisCacheConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// NewRedisCache dials cfg.Addr and pings it once before returning.
func NewRedisCache(ctx context.Context, cfg RedisCacheConfig) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return &RedisCache{client: client, ttl: cfg.TTL}, nil
}

// Get implements CacheLayer.
func (c *RedisCache) Get(key string) ([]byte, bool, error) {
	v, err := c.client.Get(context.Background(), key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

// Put implements CacheLayer.
func (c *RedisCache) Put(key string, data []byte) error {
	return c.client.Set(context.Background(), key, data, c.ttl).Err()
}

// Close closes the underlying client.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
