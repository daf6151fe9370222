// internal/app/features/live/hub.go
//
// Package live pushes the current snapshot to browsers over a websocket.
// A client receives the full snapshot when it connects and again after every
// store replacement. Messages carry the store revision so a client can ignore
// one it has already applied.
package live

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/dalemusser/eduverse/internal/app/entitystore"
	"github.com/dalemusser/eduverse/internal/app/system/limits"
	"github.com/dalemusser/eduverse/internal/app/system/metrics"
	"github.com/dalemusser/eduverse/internal/domain/models"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 8
)

// Message is the only frame the hub sends.
type Message struct {
	Type     string          `json:"type"`
	Revision uint64          `json:"revision"`
	Data     models.Snapshot `json:"data"`
}

type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (c *client) close() {
	c.once.Do(func() { close(c.send) })
}

// Hub tracks connected clients and fans snapshots out to them.
type Hub struct {
	store    *entitystore.Store
	log      *zap.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[string]*client
	closed  bool
	cancel  func()
}

// NewHub returns a hub subscribed to store.
func NewHub(store *entitystore.Store, logger *zap.Logger) *Hub {
	h := &Hub{
		store:   store,
		log:     logger,
		clients: make(map[string]*client),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 64 * 1024,
		},
	}
	h.cancel = store.OnReplace(h.broadcast)
	return h
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ServeWS handles GET /live.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := &client{id: uuid.NewString(), conn: conn, send: make(chan []byte, sendBuffer)}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
		_ = conn.Close()
		return
	}
	var first []byte
	h.store.View(func(snap models.Snapshot, rev uint64) {
		first, err = encode(snap, rev)
	})
	if err != nil {
		h.mu.Unlock()
		h.log.Error("encode snapshot", zap.Error(err))
		_ = conn.Close()
		return
	}
	c.send <- first
	h.clients[c.id] = c
	h.mu.Unlock()

	metrics.LiveClientConnected()
	h.log.Debug("live client connected", zap.String("client", c.id))

	go h.writePump(c)
	h.readPump(c)
}

func encode(snap models.Snapshot, rev uint64) ([]byte, error) {
	return json.Marshal(Message{Type: "snapshot", Revision: rev, Data: snap})
}

func (h *Hub) broadcast(snap models.Snapshot, rev uint64) {
	msg, err := encode(snap, rev)
	if err != nil {
		h.log.Error("encode snapshot", zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.log.Warn("live client too slow; dropping", zap.String("client", id))
			delete(h.clients, id)
			c.close()
		}
	}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c.id]; ok {
		delete(h.clients, c.id)
		c.close()
	}
	h.mu.Unlock()
}

// readPump discards client frames; it exists to process pongs and notice
// the connection closing.
func (h *Hub) readPump(c *client) {
	defer func() {
		h.remove(c)
		_ = c.conn.Close()
		metrics.LiveClientDisconnected()
		h.log.Debug("live client disconnected", zap.String("client", c.id))
	}()

	c.conn.SetReadLimit(limits.MaxLiveFrame)
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
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Close detaches the hub from the store and disconnects every client.
func (h *Hub) Close() {
	h.cancel()
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for id, c := range h.clients {
		delete(h.clients, id)
		c.close()
	}
}
