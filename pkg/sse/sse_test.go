package sse_test

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Artssj1234/mesa-y-pedidos-app/pkg/logger"
	"github.com/Artssj1234/mesa-y-pedidos-app/pkg/notify"
	"github.com/Artssj1234/mesa-y-pedidos-app/pkg/sse"
)

func TestServeStreamsChanges(t *testing.T) {
	bus := notify.NewMemory(1, logger.Discard())
	defer bus.Close()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = sse.Serve(w, r, bus, time.Hour)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := bufio.NewScanner(resp.Body)
	next := func() string {
		for lines.Scan() {
			if l := lines.Text(); strings.HasPrefix(l, "event: ") {
				require.True(t, lines.Scan())
				return strings.TrimPrefix(l, "event: ") + " " + lines.Text()
			}
		}
		t.Fatal("stream ended")
		return ""
	}

	assert.True(t, strings.HasPrefix(next(), "hello "))

	require.NoError(t, bus.Publish(context.Background(), notify.Change{Collection: "orders", Op: notify.OpInsert, ID: "o1"}))
	got := next()
	assert.True(t, strings.HasPrefix(got, "change data: "), got)
	assert.Contains(t, got, `"collection":"orders"`)
	assert.Contains(t, got, `"id":"o1"`)
}
