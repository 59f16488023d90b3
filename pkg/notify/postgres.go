package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DefaultPGChannel is the LISTEN/NOTIFY channel name.
const DefaultPGChannel = "mesa_changes"

// Postgres rides on LISTEN/NOTIFY. One pooled connection is held for the
// listener; publishes go through the rest of the pool.
type Postgres struct {
	*hub
	pool    *pgxpool.Pool
	channel string
	cancel  context.CancelFunc
	done    chan struct{}
}

// ListenPostgres connects to dsn and starts listening on channel.
func ListenPostgres(ctx context.Context, dsn, channel string, workers int, log *slog.Logger) (*Postgres, error) {
	if channel == "" {
		channel = DefaultPGChannel
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("notify: postgres pool: %w", err)
	}
	conn, err := listen(ctx, pool, channel)
	if err != nil {
		pool.Close()
		return nil, err
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	p := &Postgres{
		hub:     newHub(workers, log),
		pool:    pool,
		channel: channel,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go p.receive(loopCtx, conn)
	return p, nil
}

func listen(ctx context.Context, pool *pgxpool.Pool, channel string) (*pgxpool.Conn, error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("notify: acquire listener: %w", err)
	}
	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{channel}.Sanitize()); err != nil {
		conn.Release()
		return nil, fmt.Errorf("notify: listen %s: %w", channel, err)
	}
	return conn, nil
}

func (p *Postgres) Publish(ctx context.Context, c Change) error {
	if p.isClosed() {
		return ErrClosed
	}
	payload, err := json.Marshal(stamp(c))
	if err != nil {
		return err
	}
	if _, err := p.pool.Exec(ctx, "SELECT pg_notify($1, $2)", p.channel, string(payload)); err != nil {
		return fmt.Errorf("notify: pg_notify: %w", err)
	}
	return nil
}

// receive waits for notifications and re-establishes the listener with a
// capped backoff when the connection drops.
func (p *Postgres) receive(ctx context.Context, conn *pgxpool.Conn) {
	defer close(p.done)

	backoff := 500 * time.Millisecond
	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err == nil {
			backoff = 500 * time.Millisecond
			var c Change
			if jerr := json.Unmarshal([]byte(n.Payload), &c); jerr != nil || c.Collection == "" {
				p.log.Warn("discarding malformed change", "channel", n.Channel, "error", jerr)
				continue
			}
			p.dispatch(c)
			continue
		}

		conn.Release()
		if errors.Is(err, context.Canceled) || ctx.Err() != nil {
			return
		}
		p.log.Warn("postgres listener lost, reconnecting", "error", err, "backoff", backoff)

		for {
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			if conn, err = listen(ctx, p.pool, p.channel); err == nil {
				break
			}
			p.log.Warn("postgres relisten failed", "error", err)
		}
	}
}

func (p *Postgres) Close() error {
	if p.isClosed() {
		return nil
	}
	p.cancel()
	<-p.done
	p.pool.Close()
	p.close()
	return nil
}
