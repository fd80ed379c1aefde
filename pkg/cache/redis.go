package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// RedisCache backs the Cache interface with a shared Redis instance so
// invalidations reach every process. Failures are logged and treated as
// misses.
type RedisCache struct {
	client *redis.Client
	log    *logrus.Logger
}

func NewRedisCache(client *redis.Client, log *logrus.Logger) *RedisCache {
	return &RedisCache{client: client, log: log}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.Debugf("redis cache get %s: %v", key, err)
		}
		return nil, false
	}
	return data, true
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		c.log.Debugf("redis cache set %s: %v", key, err)
	}
}

func (c *RedisCache) Delete(ctx context.Context, key string) {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.log.Debugf("redis cache delete %s: %v", key, err)
	}
}

func (c *RedisCache) DeletePrefix(ctx context.Context, prefix string) {
	iter := c.client.Scan(ctx, 0, prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			c.log.Debugf("redis cache delete %s: %v", iter.Val(), err)
		}
	}
	if err := iter.Err(); err != nil {
		c.log.Debugf("redis cache scan %s*: %v", prefix, err)
	}
}
