package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// Prober returns an opaque fingerprint of a collection's current contents.
// Any difference between two probes counts as a change.
type Prober func(ctx context.Context, collection string) (string, error)

// Poller turns a Prober into change notifications by sampling every watched
// collection on a fixed interval. Local publishes are also delivered
// immediately.
type Poller struct {
	*hub
	probe    Prober
	interval time.Duration
	watch    []string

	mu   sync.Mutex
	last map[string]string

	cancel context.CancelFunc
	done   chan struct{}
}

// NewPoller starts sampling collections every interval until Close.
func NewPoller(probe Prober, interval time.Duration, collections []string, workers int, log *slog.Logger) *Poller {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &Poller{
		hub:      newHub(workers, log),
		probe:    probe,
		interval: interval,
		watch:    append([]string(nil), collections...),
		last:     map[string]string{},
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	go p.loop(ctx)
	return p
}

func (p *Poller) Publish(ctx context.Context, c Change) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.Collection == "" {
		return errors.New("notify: change without collection")
	}
	if p.isClosed() {
		return ErrClosed
	}
	p.dispatch(stamp(c))
	return nil
}

func (p *Poller) loop(ctx context.Context) {
	defer close(p.done)

	p.PollOnce(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.PollOnce(ctx)
		}
	}
}

// PollOnce probes every watched collection and dispatches a change for each
// fingerprint that moved. The first probe of a collection only records a
// baseline.
func (p *Poller) PollOnce(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, coll := range p.watch {
		fp, err := p.probe(ctx, coll)
		if err != nil {
			if ctx.Err() == nil {
				p.log.Warn("poll probe failed", "collection", coll, "error", err)
			}
			continue
		}
		prev, seen := p.last[coll]
		p.last[coll] = fp
		if seen && prev != fp {
			p.dispatch(Change{Collection: coll, Op: OpUpdate, At: time.Now().UTC()})
		}
	}
}

func (p *Poller) Close() error {
	if p.isClosed() {
		return nil
	}
	p.cancel()
	<-p.done
	p.close()
	return nil
}
