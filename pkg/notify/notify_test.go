package notify_test

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Artssj1234/mesa-y-pedidos-app/pkg/logger"
	"github.com/Artssj1234/mesa-y-pedidos-app/pkg/notify"
)

func collect(t *testing.T, n notify.Notifier, collection string) (<-chan notify.Change, notify.Subscription) {
	t.Helper()
	ch := make(chan notify.Change, 16)
	sub, err := n.Subscribe(collection, func(c notify.Change) { ch <- c })
	require.NoError(t, err)
	return ch, sub
}

func receive(t *testing.T, ch <-chan notify.Change) notify.Change {
	t.Helper()
	select {
	case c := <-ch:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("no change delivered")
		return notify.Change{}
	}
}

func TestMemoryDeliversToCollectionSubscribers(t *testing.T) {
	n := notify.NewMemory(2, logger.Discard())
	defer n.Close()

	orders, _ := collect(t, n, "orders")
	tables, _ := collect(t, n, "restaurant_tables")

	require.NoError(t, n.Publish(context.Background(), notify.Change{Collection: "orders", Op: notify.OpInsert, ID: "o1"}))

	c := receive(t, orders)
	assert.Equal(t, "orders", c.Collection)
	assert.Equal(t, notify.OpInsert, c.Op)
	assert.Equal(t, "o1", c.ID)
	assert.False(t, c.At.IsZero())

	select {
	case c := <-tables:
		t.Fatalf("unexpected delivery to tables: %+v", c)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMemoryWildcardSeesEverything(t *testing.T) {
	n := notify.NewMemory(2, logger.Discard())
	defer n.Close()

	all, _ := collect(t, n, notify.All)
	require.NoError(t, n.Publish(context.Background(), notify.Change{Collection: "products"}))

	c := receive(t, all)
	assert.Equal(t, "products", c.Collection)
	assert.Equal(t, notify.OpUpdate, c.Op)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	n := notify.NewMemory(1, logger.Discard())
	defer n.Close()

	var calls atomic.Int32
	sub, err := n.Subscribe("orders", func(notify.Change) { calls.Add(1) })
	require.NoError(t, err)
	sub.Unsubscribe()
	sub.Unsubscribe()

	require.NoError(t, n.Publish(context.Background(), notify.Change{Collection: "orders"}))
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(0), calls.Load())
}

func TestMemoryRejectsAfterClose(t *testing.T) {
	n := notify.NewMemory(1, logger.Discard())
	require.NoError(t, n.Close())

	err := n.Publish(context.Background(), notify.Change{Collection: "orders"})
	assert.True(t, errors.Is(err, notify.ErrClosed))

	_, err = n.Subscribe("orders", func(notify.Change) {})
	assert.True(t, errors.Is(err, notify.ErrClosed))
}

func TestMemoryRejectsEmptyCollection(t *testing.T) {
	n := notify.NewMemory(1, logger.Discard())
	defer n.Close()

	assert.Error(t, n.Publish(context.Background(), notify.Change{}))
	_, err := n.Subscribe("", func(notify.Change) {})
	assert.Error(t, err)
}

func TestHandlerPanicDoesNotStopDelivery(t *testing.T) {
	n := notify.NewMemory(1, logger.Discard())
	defer n.Close()

	_, err := n.Subscribe("orders", func(c notify.Change) {
		if c.ID == "boom" {
			panic("bad handler")
		}
	})
	require.NoError(t, err)
	ch, _ := collect(t, n, "orders")

	require.NoError(t, n.Publish(context.Background(), notify.Change{Collection: "orders", ID: "boom"}))
	require.NoError(t, n.Publish(context.Background(), notify.Change{Collection: "orders", ID: "ok"}))

	seen := map[string]bool{}
	seen[receive(t, ch).ID] = true
	seen[receive(t, ch).ID] = true
	assert.True(t, seen["ok"])
}

type fakeProbe struct {
	mu  sync.Mutex
	gen map[string]int
}

func (f *fakeProbe) bump(coll string) {
	f.mu.Lock()
	f.gen[coll]++
	f.mu.Unlock()
}

func (f *fakeProbe) probe(_ context.Context, coll string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return strconv.Itoa(f.gen[coll]), nil
}

func TestPollerDetectsFingerprintChanges(t *testing.T) {
	fp := &fakeProbe{gen: map[string]int{}}
	p := notify.NewPoller(fp.probe, time.Hour, []string{"orders", "products"}, 2, logger.Discard())
	defer p.Close()

	orders, _ := collect(t, p, "orders")
	ctx := context.Background()

	p.PollOnce(ctx)
	select {
	case c := <-orders:
		t.Fatalf("unchanged fingerprint produced %+v", c)
	case <-time.After(50 * time.Millisecond):
	}

	fp.bump("orders")
	p.PollOnce(ctx)

	c := receive(t, orders)
	assert.Equal(t, "orders", c.Collection)
	assert.Equal(t, notify.OpUpdate, c.Op)
}

func TestPollerDeliversLocalPublishImmediately(t *testing.T) {
	fp := &fakeProbe{gen: map[string]int{}}
	p := notify.NewPoller(fp.probe, time.Hour, []string{"orders"}, 1, logger.Discard())
	defer p.Close()

	orders, _ := collect(t, p, "orders")
	require.NoError(t, p.Publish(context.Background(), notify.Change{Collection: "orders", Op: notify.OpInsert}))
	assert.Equal(t, notify.OpInsert, receive(t, orders).Op)
}

func TestPollerSkipsFailingProbe(t *testing.T) {
	var calls atomic.Int32
	probe := func(context.Context, string) (string, error) {
		calls.Add(1)
		return "", errors.New("db down")
	}
	p := notify.NewPoller(probe, time.Hour, []string{"orders"}, 1, logger.Discard())
	defer p.Close()

	p.PollOnce(context.Background())
	assert.GreaterOrEqual(t, calls.Load(), int32(1))
}
