// Package sse streams change hints as Server-Sent Events, for terminals
// that cannot hold a WebSocket open.
//
//	event: change
//	data: {"collection":"orders","op":"update","id":"...","at":"..."}
//
// Usage:
//
//	router.Get("/api/events", "events", ctx.Wrap(func(c *ctx.Context) {
//	    sse.Serve(c.W, c.R, notifier, 25*time.Second)
//	}))
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Artssj1234/mesa-y-pedidos-app/pkg/notify"
)

const buffer = 32

// Subscriber is the part of a notifier Serve needs.
type Subscriber interface {
	Subscribe(collection string, h notify.Handler) (notify.Subscription, error)
}

// Stream represents an active SSE connection to one client.
type Stream struct {
	w       http.ResponseWriter
	r       *http.Request
	flusher http.Flusher
	closed  bool
}

// New creates an SSE stream and sets the required headers.
// Returns nil if the ResponseWriter does not support flushing.
func New(w http.ResponseWriter, r *http.Request) *Stream {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return nil
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // disable nginx buffering
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	return &Stream{w: w, r: r, flusher: flusher}
}

// Send writes a named SSE event with a JSON-encoded data payload.
func (s *Stream) Send(event string, data any) error {
	if s.IsClosed() {
		return nil
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("sse: marshal: %w", err)
	}

	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event, payload); err != nil {
		s.closed = true
		return err
	}
	s.flusher.Flush()
	return nil
}

// Comment writes an SSE comment, used as a keepalive heartbeat.
func (s *Stream) Comment(msg string) {
	if s.IsClosed() {
		return
	}
	fmt.Fprintf(s.w, ": %s\n\n", msg)
	s.flusher.Flush()
}

// IsClosed reports whether the client has disconnected.
func (s *Stream) IsClosed() bool {
	if s == nil {
		return true
	}
	select {
	case <-s.r.Context().Done():
		s.closed = true
	default:
	}
	return s.closed
}

// Serve streams every change published on sub until the client goes away.
// A hello event is sent first; a comment every heartbeat keeps proxies from
// closing an idle stream. Changes that arrive faster than the client reads
// are dropped, the next one triggers the same refetch.
func Serve(w http.ResponseWriter, r *http.Request, sub Subscriber, heartbeat time.Duration) error {
	changes := make(chan notify.Change, buffer)
	subscription, err := sub.Subscribe(notify.All, func(c notify.Change) {
		select {
		case changes <- c:
		default:
		}
	})
	if err != nil {
		return err
	}
	defer subscription.Unsubscribe()

	stream := New(w, r)
	if stream == nil {
		return nil
	}
	if err := stream.Send("hello", map[string]string{"at": time.Now().UTC().Format(time.RFC3339)}); err != nil {
		return nil
	}

	ticker := time.NewTicker(heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return nil
		case c := <-changes:
			if err := stream.Send("change", c); err != nil {
				return nil
			}
		case <-ticker.C:
			stream.Comment("ping")
		}
	}
}
