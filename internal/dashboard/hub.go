package dashboard

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/blackwell-systems/burnwatch/internal/activity"
)

const (
	writeWait      = 5 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	broadcastQueue = 16
)

// Hub pushes every new snapshot to connected websocket clients. It
// implements monitor.Publisher.
type Hub struct {
	mu       sync.RWMutex
	clients  map[*websocket.Conn]*sync.Mutex // per-connection write lock
	last     []byte
	lastAt   time.Time
	messages chan []byte
	log      logrus.FieldLogger
}

// NewHub creates a hub. Call Run to start delivering messages.
func NewHub(log logrus.FieldLogger) *Hub {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Hub{
		clients:  make(map[*websocket.Conn]*sync.Mutex),
		messages: make(chan []byte, broadcastQueue),
		log:      log.WithField("component", "hub"),
	}
}

// Publish queues s for broadcast. It never blocks: when the queue is full
// the snapshot is dropped, since a newer one follows within one interval.
// A snapshot with the same timestamp as the previous one is skipped.
func (h *Hub) Publish(_ context.Context, s activity.Snapshot) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}

	h.mu.Lock()
	if !h.lastAt.IsZero() && h.lastAt.Equal(s.TakenAt) {
		h.mu.Unlock()
		return nil
	}
	h.last = data
	h.lastAt = s.TakenAt
	h.mu.Unlock()

	select {
	case h.messages <- data:
	default:
		h.log.Debug("broadcast queue full, dropping snapshot")
	}
	return nil
}

// Run delivers queued messages until ctx is cancelled, then closes every
// client.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case data := <-h.messages:
			h.broadcast(data)
		}
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) broadcast(data []byte) {
	h.mu.RLock()
	conns := make(map[*websocket.Conn]*sync.Mutex, len(h.clients))
	for c, l := range h.clients {
		conns[c] = l
	}
	h.mu.RUnlock()

	for conn, lock := range conns {
		if err := write(conn, lock, websocket.TextMessage, data); err != nil {
			h.log.Debugf("broadcast to %s failed: %v", conn.RemoteAddr(), err)
			h.remove(conn)
		}
	}
}

// add registers conn and sends it the latest snapshot, if any.
func (h *Hub) add(conn *websocket.Conn) *sync.Mutex {
	lock := &sync.Mutex{}
	h.mu.Lock()
	h.clients[conn] = lock
	last := h.last
	n := len(h.clients)
	h.mu.Unlock()

	h.log.Debugf("client %s connected (%d total)", conn.RemoteAddr(), n)
	if last != nil {
		if err := write(conn, lock, websocket.TextMessage, last); err != nil {
			h.remove(conn)
		}
	}
	return lock
}

func (h *Hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	_, ok := h.clients[conn]
	delete(h.clients, conn)
	n := len(h.clients)
	h.mu.Unlock()

	if ok {
		conn.Close()
		h.log.Debugf("client %s disconnected (%d total)", conn.RemoteAddr(), n)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	conns := h.clients
	h.clients = make(map[*websocket.Conn]*sync.Mutex)
	h.mu.Unlock()

	for conn, lock := range conns {
		_ = write(conn, lock, websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
		conn.Close()
	}
}

// serve keeps conn alive with pings and drains client frames until the
// connection fails.
func (h *Hub) serve(conn *websocket.Conn) {
	lock := h.add(conn)
	defer h.remove(conn)

	done := make(chan struct{})
	defer close(done)

	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := write(conn, lock, websocket.PingMessage, nil); err != nil {
					return
				}
			case <-done:
				return
			}
		}
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debugf("client %s unexpected close: %v", conn.RemoteAddr(), err)
			}
			return
		}
	}
}

// write serializes writers; gorilla connections allow one concurrent
// writer.
func write(conn *websocket.Conn, lock *sync.Mutex, messageType int, data []byte) error {
	lock.Lock()
	defer lock.Unlock()
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(messageType, data)
}
