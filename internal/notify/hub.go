package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
)

const (
	// writeWait bounds one message write to a view.
	writeWait = 10 * time.Second

	// sendBuffer is how many undelivered messages a view may fall behind
	// before it is dropped.
	sendBuffer = 8
)

// Hub broadcasts data-changed messages to connected websocket views.
type Hub struct {
	logger         *slog.Logger
	nowFunc        func() time.Time
	originPatterns []string

	mu      sync.Mutex
	clients map[*hubClient]struct{}
}

type hubClient struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

// NewHub creates a hub. originPatterns lists the allowed browser origins in
// addition to the request host.
func NewHub(logger *slog.Logger, originPatterns ...string) *Hub {
	if logger == nil {
		logger = slog.Default()
	}

	return &Hub{
		logger:         logger,
		nowFunc:        time.Now,
		originPatterns: originPatterns,
		clients:        make(map[*hubClient]struct{}),
	}
}

// ServeHTTP upgrades the request and keeps the view registered until it
// disconnects. Views only receive; anything they send is discarded.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: h.originPatterns})
	if err != nil {
		h.logger.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	c := &hubClient{conn: conn, send: make(chan []byte, sendBuffer)}
	h.register(c)
	defer h.unregister(c)

	ctx := conn.CloseRead(r.Context())

	for {
		select {
		case <-ctx.Done():
			return

		case msg, ok := <-c.send:
			if !ok {
				return
			}

			if err := h.write(ctx, conn, msg); err != nil {
				h.logger.Debug("view write failed", slog.String("error", err.Error()))
				return
			}
		}
	}
}

func (h *Hub) write(ctx context.Context, conn *websocket.Conn, msg []byte) error {
	ctx, cancel := context.WithTimeout(ctx, writeWait)
	defer cancel()

	return conn.Write(ctx, websocket.MessageText, msg)
}

// Notify queues a data-changed message for every view. A view whose buffer
// is full is disconnected.
func (h *Hub) Notify() {
	msg, err := json.Marshal(message{Type: typeDataChanged, At: h.nowFunc().UTC().Format(time.RFC3339Nano)})
	if err != nil {
		h.logger.Error("encoding refresh message", slog.String("error", err.Error()))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.logger.Warn("dropping slow view")
			delete(h.clients, c)
			c.close(websocket.StatusPolicyViolation, "too slow")
		}
	}
}

// Count returns the number of connected views.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.clients)
}

// Close disconnects every view.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		delete(h.clients, c)
		c.close(websocket.StatusGoingAway, "server shutting down")
	}
}

func (h *Hub) register(c *hubClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()

	h.logger.Debug("view connected", slog.Int("views", n))
}

func (h *Hub) unregister(c *hubClient) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()

	c.close(websocket.StatusNormalClosure, "")
}

// close is safe to call more than once. It does not wait for the close
// handshake.
func (c *hubClient) close(code websocket.StatusCode, reason string) {
	c.once.Do(func() {
		close(c.send)
		go c.conn.Close(code, reason)
	})
}
