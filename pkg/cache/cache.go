// Package cache owns the shared Redis connection. The redis session store
// and the redis change notifier both run on the client returned by Connect.
package cache

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/Artssj1234/mesa-y-pedidos-app/config"
)

var (
	mu  sync.Mutex
	rdb *redis.Client
)

// Connect returns the process-wide Redis client, dialing it on first use and
// verifying it with a ping. A failed ping leaves nothing cached so the next
// call retries.
func Connect(ctx context.Context) (*redis.Client, error) {
	mu.Lock()
	defer mu.Unlock()

	if rdb != nil {
		return rdb, nil
	}

	c := redis.NewClient(&redis.Options{
		Addr:     config.RedisAddr(),
		Password: config.RedisPassword(),
		DB:       0,
	})
	if err := c.Ping(ctx).Err(); err != nil {
		c.Close()
		return nil, fmt.Errorf("cache: redis ping %s: %w", config.RedisAddr(), err)
	}

	rdb = c
	return rdb, nil
}

// Close drops the shared client, if any.
func Close() error {
	mu.Lock()
	defer mu.Unlock()

	if rdb == nil {
		return nil
	}
	err := rdb.Close()
	rdb = nil
	return err
}
