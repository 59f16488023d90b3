package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces change channels: mesa:changes:<collection>.
const DefaultRedisPrefix = "mesa:changes:"

// Redis fans changes out through Redis pub/sub. Every instance, including the
// publisher, receives its own messages back through the pattern subscription.
type Redis struct {
	*hub
	rdb    *redis.Client
	ps     *redis.PubSub
	prefix string
	done   chan struct{}
}

// NewRedis subscribes to prefix* and starts the receive loop.
func NewRedis(ctx context.Context, rdb *redis.Client, prefix string, workers int, log *slog.Logger) (*Redis, error) {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}

	ps := rdb.PSubscribe(ctx, prefix+"*")
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("notify: redis subscribe: %w", err)
	}

	r := &Redis{
		hub:    newHub(workers, log),
		rdb:    rdb,
		ps:     ps,
		prefix: prefix,
		done:   make(chan struct{}),
	}
	go r.receive(ps.Channel())
	return r, nil
}

func (r *Redis) Publish(ctx context.Context, c Change) error {
	if r.isClosed() {
		return ErrClosed
	}
	c = stamp(c)
	data, err := json.Marshal(c)
	if err != nil {
		return err
	}
	if err := r.rdb.Publish(ctx, r.prefix+c.Collection, data).Err(); err != nil {
		return fmt.Errorf("notify: redis publish: %w", err)
	}
	return nil
}

func (r *Redis) receive(ch <-chan *redis.Message) {
	defer close(r.done)
	for msg := range ch {
		var c Change
		if err := json.Unmarshal([]byte(msg.Payload), &c); err != nil {
			r.log.Warn("discarding malformed change", "channel", msg.Channel, "error", err)
			continue
		}
		if c.Collection == "" {
			c.Collection = strings.TrimPrefix(msg.Channel, r.prefix)
		}
		r.dispatch(c)
	}
}

// Close unsubscribes and waits for the receive loop. The Redis client itself
// is owned by the caller.
func (r *Redis) Close() error {
	if r.isClosed() {
		return nil
	}
	err := r.ps.Close()
	<-r.done
	r.close()
	return err
}
