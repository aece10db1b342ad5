// Package stream fans scheduler instructions and dashboard notifications
// out to browser clients over websockets.
package stream

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/sudorandom/attack-map/pkg/dashboard"
	"github.com/sudorandom/attack-map/pkg/metrics"
	"github.com/sudorandom/attack-map/pkg/scheduler"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 512

	// DefaultSendBuffer is the per-client queue length.
	DefaultSendBuffer = 256
)

// Message kinds.
const (
	KindInstruction  = "instruction"
	KindNotification = "notification"
)

// Envelope is the JSON frame sent to clients.
type Envelope struct {
	Type         string                  `json:"type"`
	Instruction  *scheduler.Instruction  `json:"instruction,omitempty"`
	Notification *dashboard.Notification `json:"notification,omitempty"`
}

// Options configures a Hub.
type Options struct {
	Logger     *zap.Logger
	Metrics    *metrics.Registry
	SendBuffer int
}

// Hub implements scheduler.Sink and dashboard.Notifier. Publishing never
// blocks: a client whose queue is full is disconnected.
type Hub struct {
	upgrader websocket.Upgrader
	logger   *zap.Logger
	metrics  *metrics.Registry
	buffer   int

	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func newClient(conn *websocket.Conn, buffer int) *client {
	return &client{conn: conn, send: make(chan []byte, buffer)}
}

func (c *client) stop() {
	c.once.Do(func() { close(c.send) })
}

// NewHub creates a hub with no clients.
func NewHub(opts Options) *Hub {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = DefaultSendBuffer
	}
	return &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger:  opts.Logger.Named("stream"),
		metrics: opts.Metrics,
		buffer:  opts.SendBuffer,
		clients: make(map[*client]struct{}),
	}
}

// ServeHTTP upgrades the request and registers the client.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", zap.Error(err))
		return
	}
	c := newClient(conn, h.buffer)
	if !h.add(c) {
		_ = conn.Close()
		return
	}
	h.logger.Info("websocket client connected", zap.String("remoteAddr", conn.RemoteAddr().String()))

	go h.writePump(c)
	go h.readPump(c)
}

func (h *Hub) add(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	h.metrics.SetStreamClients(len(h.clients))
	return true
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		h.metrics.SetStreamClients(len(h.clients))
	}
	h.mu.Unlock()
	c.stop()
}

// readPump discards client messages and keeps the deadline fresh.
func (h *Hub) readPump(c *client) {
	defer func() {
		h.remove(c)
		h.logger.Info("websocket client disconnected", zap.String("remoteAddr", c.conn.RemoteAddr().String()))
	}()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.logger.Debug("failed to write to websocket client", zap.Error(err))
				h.remove(c)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.remove(c)
				return
			}
		}
	}
}

// Apply publishes a scheduler instruction.
func (h *Hub) Apply(in scheduler.Instruction) {
	h.publish(Envelope{Type: KindInstruction, Instruction: &in})
}

// Notify publishes a dashboard notification.
func (h *Hub) Notify(n dashboard.Notification) {
	h.publish(Envelope{Type: KindNotification, Notification: &n})
}

func (h *Hub) publish(env Envelope) {
	h.mu.Lock()
	empty := len(h.clients) == 0
	h.mu.Unlock()
	if empty {
		return
	}
	data, err := json.Marshal(env)
	if err != nil {
		h.logger.Error("failed to marshal stream message", zap.Error(err))
		return
	}
	h.broadcast(data)
}

func (h *Hub) broadcast(data []byte) {
	h.mu.Lock()
	var slow []*client
	for c := range h.clients {
		select {
		case c.send <- data:
			h.metrics.RecordStreamMessage()
		default:
			slow = append(slow, c)
		}
	}
	h.mu.Unlock()

	for _, c := range slow {
		h.metrics.RecordStreamDrop()
		h.logger.Warn("dropping slow websocket client")
		h.remove(c)
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client and rejects new ones.
func (h *Hub) Close() error {
	h.mu.Lock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.clients = make(map[*client]struct{})
	h.closed = true
	h.metrics.SetStreamClients(0)
	h.mu.Unlock()

	for _, c := range clients {
		c.stop()
	}
	return nil
}
