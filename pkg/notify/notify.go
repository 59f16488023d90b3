// Package notify delivers "something changed" signals per collection.
//
// A Notifier hides whether changes arrive by push (Redis pub/sub, a RabbitMQ
// fanout, Postgres LISTEN/NOTIFY) or by polling. Subscribers never see the
// difference: they register a handler per collection and receive at least one
// Change for every insert, update or delete.
//
//	sub, err := n.Subscribe("orders", func(c notify.Change) {
//	    trigger <- struct{}{}
//	})
//	defer sub.Unsubscribe()
//
//	_ = n.Publish(ctx, notify.Change{Collection: "orders", Op: notify.OpInsert, ID: id})
package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/Artssj1234/mesa-y-pedidos-app/pkg/workerpool"
)

// All subscribes to every collection.
const All = "*"

// ErrClosed is returned after Close.
var ErrClosed = errors.New("notify: notifier is closed")

// Op is the kind of write that produced a change.
type Op string

const (
	OpInsert Op = "insert"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Change is the payload of a notification. Subscribers should treat it as a
// hint to refetch rather than as data.
type Change struct {
	Collection string    `json:"collection"`
	Op         Op        `json:"op"`
	ID         string    `json:"id,omitempty"`
	At         time.Time `json:"at"`
}

// Handler receives changes on a worker goroutine.
type Handler func(Change)

// Subscription is returned by Subscribe.
type Subscription interface {
	Unsubscribe()
}

// Notifier is implemented by every driver.
type Notifier interface {
	Publish(ctx context.Context, c Change) error
	Subscribe(collection string, h Handler) (Subscription, error)
	Close() error
}

// ─── Local fan-out ───────────────────────────────────────────────────────────

// hub is the subscriber registry every driver embeds. Drivers feed it with
// changes received from their transport.
type hub struct {
	mu     sync.RWMutex
	subs   map[string]map[uint64]Handler
	nextID uint64
	closed bool
	pool   *workerpool.Pool
	log    *slog.Logger
}

func newHub(workers int, log *slog.Logger) *hub {
	if log == nil {
		log = slog.Default()
	}
	h := &hub{
		subs: map[string]map[uint64]Handler{},
		log:  log,
	}
	h.pool = workerpool.New(workers).OnPanic(func(r interface{}) {
		h.log.Error("change handler panicked", "panic", r)
	})
	return h
}

func (h *hub) Subscribe(collection string, fn Handler) (Subscription, error) {
	if collection == "" || fn == nil {
		return nil, errors.New("notify: collection and handler are required")
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, ErrClosed
	}

	h.nextID++
	id := h.nextID
	if h.subs[collection] == nil {
		h.subs[collection] = map[uint64]Handler{}
	}
	h.subs[collection][id] = fn

	return &subscription{cancel: func() {
		h.mu.Lock()
		delete(h.subs[collection], id)
		if len(h.subs[collection]) == 0 {
			delete(h.subs, collection)
		}
		h.mu.Unlock()
	}}, nil
}

// dispatch hands c to every matching handler. It blocks while the pool is
// saturated so a burst cannot drop signals.
func (h *hub) dispatch(c Change) {
	h.mu.RLock()
	if h.closed {
		h.mu.RUnlock()
		return
	}
	targets := make([]Handler, 0, len(h.subs[c.Collection])+len(h.subs[All]))
	for _, fn := range h.subs[c.Collection] {
		targets = append(targets, fn)
	}
	for _, fn := range h.subs[All] {
		targets = append(targets, fn)
	}
	h.mu.RUnlock()

	for _, fn := range targets {
		fn := fn
		if err := h.pool.SubmitWait(context.Background(), func() { fn(c) }); err != nil {
			h.log.Debug("change dropped", "collection", c.Collection, "error", err)
			return
		}
	}
}

func (h *hub) isClosed() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.closed
}

func (h *hub) close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	h.subs = map[string]map[uint64]Handler{}
	h.mu.Unlock()
	h.pool.Shutdown()
}

type subscription struct {
	once   sync.Once
	cancel func()
}

func (s *subscription) Unsubscribe() { s.once.Do(s.cancel) }

func stamp(c Change) Change {
	if c.At.IsZero() {
		c.At = time.Now().UTC()
	}
	if c.Op == "" {
		c.Op = OpUpdate
	}
	return c
}
