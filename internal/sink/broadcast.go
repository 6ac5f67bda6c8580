package sink

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// client wraps one subscriber connection. Writes are serialized with a
// mutex because gorilla/websocket forbids concurrent writers on the
// same Conn.
type client struct {
	id   int
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// BroadcastSink is a Sink that fans every frame summary out to
// connected WebSocket subscribers as JSON. It never sees or forwards
// pixel data, only the Frame summary Adapt computes.
type BroadcastSink struct {
	logger *slog.Logger

	mu      sync.RWMutex
	clients map[int]*client
	nextID  int
}

// NewBroadcastSink creates a BroadcastSink with no subscribers yet.
func NewBroadcastSink(logger *slog.Logger) *BroadcastSink {
	return &BroadcastSink{
		logger:  logger,
		clients: make(map[int]*client),
	}
}

// ServeHTTP upgrades the request to a WebSocket and registers it as a
// subscriber. Subscribers are read-only: anything they send is
// discarded, since a frame sink is a one-way feed.
func (b *BroadcastSink) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.logger.Error("broadcast sink: websocket upgrade failed", "error", err)
		return
	}

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	c := &client{id: id, conn: conn}
	b.clients[id] = c
	b.mu.Unlock()

	b.logger.Debug("broadcast sink: subscriber connected", "conn_id", id)
	go b.drain(c)
}

// drain discards inbound traffic until the connection closes, purely
// to notice disconnects and keep gorilla/websocket's read deadline
// machinery fed.
func (b *BroadcastSink) drain(c *client) {
	defer b.remove(c.id)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (b *BroadcastSink) remove(id int) {
	b.mu.Lock()
	c, ok := b.clients[id]
	b.mu.Unlock()
	if !ok {
		return
	}
	c.conn.Close()

	b.mu.Lock()
	delete(b.clients, id)
	b.mu.Unlock()

	b.logger.Debug("broadcast sink: subscriber disconnected", "conn_id", id)
}

// OnFrame implements Sink: it marshals the summary once and fans it
// out to every current subscriber.
func (b *BroadcastSink) OnFrame(f Frame) {
	data, err := json.Marshal(f)
	if err != nil {
		b.logger.Error("broadcast sink: marshal frame summary", "error", err)
		return
	}

	b.mu.RLock()
	clients := make([]*client, 0, len(b.clients))
	for _, c := range b.clients {
		clients = append(clients, c)
	}
	b.mu.RUnlock()

	for _, c := range clients {
		if err := c.send(data); err != nil {
			b.logger.Warn("broadcast sink: send failed", "conn_id", c.id, "error", err)
		}
	}
}

// SubscriberCount reports how many clients are currently connected.
func (b *BroadcastSink) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}
