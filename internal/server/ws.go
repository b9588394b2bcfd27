package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/ayusman/drivewatch/internal/alert"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait    = 5 * time.Second
	clientBuffer = 16
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// Event is the message pushed to websocket clients after each dispatch.
type Event struct {
	Category  string `json:"category"`
	Message   string `json:"message"`
	HasImage  bool   `json:"has_image"`
	Delivered bool   `json:"delivered"`
	Error     string `json:"error,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// NewEvent converts a dispatch result into an Event.
func NewEvent(r alert.Result) Event {
	ev := Event{
		Category:  string(r.Alert.Category),
		Message:   r.Alert.Message,
		HasImage:  len(r.Alert.Image) > 0,
		Delivered: r.Delivered(),
		Timestamp: r.Alert.Time.UnixMilli(),
	}
	if r.Err != nil {
		ev.Error = r.Err.Error()
	}
	return ev
}

// Hub broadcasts alert events to websocket clients. It implements
// alert.Observer. Each client has its own buffered writer, so Broadcast never
// waits on the network.
type Hub struct {
	logger  *zap.Logger
	clients map[*websocket.Conn]chan []byte
	mu      sync.RWMutex
}

// NewHub creates an empty Hub.
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		logger:  logger.Named("events"),
		clients: make(map[*websocket.Conn]chan []byte),
	}
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade error", zap.Error(err))
		return
	}
	defer conn.Close()

	send := make(chan []byte, clientBuffer)

	h.mu.Lock()
	h.clients[conn] = send
	h.mu.Unlock()

	writerDone := make(chan struct{})
	go h.writePump(conn, send, writerDone)

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
		close(send)
		<-writerDone
	}()

	// Keep connection alive by reading messages
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// writePump writes queued messages to conn until send is closed.
func (h *Hub) writePump(conn *websocket.Conn, send <-chan []byte, done chan<- struct{}) {
	defer close(done)

	for msg := range send {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.logger.Debug("dropping websocket client", zap.Error(err))
			conn.Close()
			// Drain until ServeHTTP unregisters the client.
			for range send {
			}
			return
		}
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Observe sends r to every connected client.
func (h *Hub) Observe(r alert.Result) {
	h.Broadcast(NewEvent(r))
}

// Broadcast queues ev for every connected client. A client whose buffer is
// full is disconnected.
func (h *Hub) Broadcast(ev Event) {
	msg, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("failed to encode event", zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for conn, send := range h.clients {
		select {
		case send <- msg:
		default:
			h.logger.Warn("websocket client too slow, disconnecting")
			conn.Close()
		}
	}
}
