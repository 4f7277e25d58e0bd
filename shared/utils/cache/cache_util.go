package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

type Cache struct {
	client redis.UniversalClient // works with both single and cluster
}

func NewCache(addrs []string, password string, useCluster bool) *Cache {
	var rdb redis.UniversalClient

	if useCluster && len(addrs) > 1 {
		rdb = redis.NewClusterClient(&redis.ClusterOptions{
			Addrs:    addrs,
			Password: password,
		})
	} else {
		rdb = redis.NewClient(&redis.Options{
			Addr:     addrs[0],
			Password: password,
			DB:       0,
		})
	}

	return &Cache{client: rdb}
}

// NewFromClient wraps an existing client.
func NewFromClient(rdb redis.UniversalClient) *Cache {
	return &Cache{client: rdb}
}

// Client exposes the underlying client, e.g. for the rate limiter.
func (c *Cache) Client() redis.UniversalClient {
	return c.client
}

func (c *Cache) Set(ctx context.Context, namespace, key string, value interface{}, ttl time.Duration) error {
	return c.client.Set(ctx, namespace+":"+key, value, ttl).Err()
}

// SetJSON stores v encoded as JSON.
func (c *Cache) SetJSON(ctx context.Context, namespace, key string, v interface{}, ttl time.Duration) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.Set(ctx, namespace, key, b, ttl)
}

// GetJSON decodes a stored JSON value into dst. A miss returns redis.Nil.
func (c *Cache) GetJSON(ctx context.Context, namespace, key string, dst interface{}) error {
	raw, err := c.client.Get(ctx, namespace+":"+key).Bytes()
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dst)
}

func (c *Cache) Close() error {
	return c.client.Close()
}
