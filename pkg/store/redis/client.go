package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/staffdir/staffdir/pkg/config"
)

// Client wraps the redis connection backing the identity-sync task queue.
type Client struct {
	rdb redis.UniversalClient
}

func NewClient(cfg *config.RedisConfig) (*Client, error) {
	addresses := cfg.Addresses
	if len(addresses) == 0 {
		addresses = []string{"localhost:6379"}
	}

	var rdb redis.UniversalClient
	if cfg.ClusterMode {
		rdb = redis.NewClusterClient(&redis.ClusterOptions{
			Addrs:        addresses,
			Password:     cfg.Password,
			PoolSize:     cfg.PoolSize,
			MinIdleConns: 2,
		})
	} else {
		rdb = redis.NewClient(&redis.Options{
			Addr:         addresses[0],
			Password:     cfg.Password,
			DB:           cfg.DB,
			PoolSize:     cfg.PoolSize,
			MinIdleConns: 2,
		})
	}

	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

func (c *Client) Client() redis.UniversalClient {
	return c.rdb
}

func (c *Client) Close() error {
	return c.rdb.Close()
}
