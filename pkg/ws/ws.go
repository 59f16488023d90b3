// Package ws pushes change notifications to connected terminals over
// WebSocket (gorilla/websocket).
//
// Terminals do not receive data on the feed, only a hint naming the
// collection that changed; they re-fetch through the JSON API:
//
//	{"type":"change","change":{"collection":"orders","op":"update","id":"...","at":"..."}}
//
// Wiring:
//
//	hub := ws.NewHub(logger.L)
//	go hub.Run(ctx)
//	sub, _ := hub.Attach(notifier)
//	router.Get("/ws", "ws.feed", ctx.Wrap(func(c *ctx.Context) {
//	    p, _ := c.Principal()
//	    hub.Upgrade(c.W, c.R, p.Subject(), p.RoleName())
//	}))
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Artssj1234/mesa-y-pedidos-app/pkg/metrics"
	"github.com/Artssj1234/mesa-y-pedidos-app/pkg/notify"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024
	sendBuffer     = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// SetCheckOrigin replaces the default (allow-all) origin checker.
func SetCheckOrigin(fn func(r *http.Request) bool) {
	upgrader.CheckOrigin = fn
}

// Message is the frame written to every client.
type Message struct {
	Type   string         `json:"type"`
	Change *notify.Change `json:"change,omitempty"`
}

// ─── Client ───────────────────────────────────────────────────────────────────

// Client is one connected terminal.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	userID string
	role   string
}

// readPump only services pings and close frames; the feed is one-way.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Warn("ws: unexpected close", "error", err, "user_id", c.userID)
			}
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ─── Hub ──────────────────────────────────────────────────────────────────────

// Hub owns the client set. Only Run touches it.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	count      atomic.Int64
	log        *slog.Logger
}

// NewHub creates a Hub. Call hub.Run in a goroutine before upgrading clients.
func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		log:        log,
	}
}

// Run is the hub event loop. It disconnects every client when ctx is done.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				h.drop(client)
			}
			return

		case client := <-h.register:
			h.clients[client] = true
			h.count.Add(1)
			metrics.FeedClients.Inc()
			h.log.Info("ws: client connected", "user_id", client.userID, "role", client.role, "total", len(h.clients))

		case client := <-h.unregister:
			if h.clients[client] {
				h.drop(client)
				h.log.Info("ws: client disconnected", "user_id", client.userID, "total", len(h.clients))
			}

		case msg := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.send <- msg:
				default:
					h.log.Warn("ws: slow client dropped", "user_id", client.userID)
					h.drop(client)
				}
			}
		}
	}
}

func (h *Hub) drop(c *Client) {
	delete(h.clients, c)
	close(c.send)
	h.count.Add(-1)
	metrics.FeedClients.Dec()
}

// Broadcast queues a frame for every client. It never blocks; a frame that
// does not fit in the buffer is dropped since the next change re-triggers a
// refetch anyway.
func (h *Hub) Broadcast(m Message) {
	data, err := json.Marshal(m)
	if err != nil {
		h.log.Error("ws: encode", "error", err)
		return
	}
	select {
	case h.broadcast <- data:
	default:
		h.log.Warn("ws: broadcast buffer full", "type", m.Type)
	}
}

// Attach forwards every change published on n to the connected clients.
func (h *Hub) Attach(n interface {
	Subscribe(collection string, fn notify.Handler) (notify.Subscription, error)
}) (notify.Subscription, error) {
	return n.Subscribe(notify.All, func(c notify.Change) {
		h.Broadcast(Message{Type: "change", Change: &c})
	})
}

// ClientCount returns the number of currently connected clients.
func (h *Hub) ClientCount() int { return int(h.count.Load()) }

// ─── Upgrade ─────────────────────────────────────────────────────────────────

// Upgrade upgrades an authenticated request to a WebSocket and registers
// the client with the hub.
func (h *Hub) Upgrade(w http.ResponseWriter, r *http.Request, userID, role string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws: upgrade failed", "error", err)
		return
	}
	client := &Client{hub: h, conn: conn, send: make(chan []byte, sendBuffer), userID: userID, role: role}
	hello, _ := json.Marshal(Message{Type: "hello"})
	client.send <- hello
	h.register <- client

	go client.writePump()
	go client.readPump()
}
