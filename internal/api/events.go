package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Order event types pushed over the stream endpoint.
const (
	EventOrderSubmitted    = "order.submitted"
	EventOrderDiscontinued = "order.discontinued"
)

// OrderEvent is a real-time notification about an order state change.
type OrderEvent struct {
	Type      string    `json:"type"`
	OrderID   string    `json:"order_id"`
	PatientID string    `json:"patient_id,omitempty"`
	DrugCode  string    `json:"drug_code,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// streamClient is one connected WebSocket subscriber.
type streamClient struct {
	id   string
	send chan []byte
}

// OrderEventHub fans order events out to connected WebSocket clients.
// All operations are safe for concurrent use.
type OrderEventHub struct {
	mu      sync.RWMutex
	clients map[*streamClient]struct{}
	logger  *logrus.Logger
}

// NewOrderEventHub creates an empty hub.
func NewOrderEventHub(logger *logrus.Logger) *OrderEventHub {
	return &OrderEventHub{
		clients: make(map[*streamClient]struct{}),
		logger:  logger,
	}
}

// Publish broadcasts an event to every connected client. A slow client
// with a full buffer is skipped rather than blocking the publisher.
func (h *OrderEventHub) Publish(event OrderEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	data, err := json.Marshal(event)
	if err != nil {
		h.logger.WithFields(logrus.Fields{
			"event_type": event.Type,
			"error":      err.Error(),
		}).Error("Failed to encode order event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		select {
		case client.send <- data:
		default:
		}
	}
}

// ClientCount returns the number of connected stream clients.
func (h *OrderEventHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// CloseAll disconnects every client, typically during server shutdown.
func (h *OrderEventHub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
}

func (h *OrderEventHub) register(client *streamClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client] = struct{}{}
}

func (h *OrderEventHub) unregister(client *streamClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	close(client.send)
}

var streamUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// HandleStream upgrades the connection to WebSocket and streams order
// events until the client disconnects.
func (h *OrderEventHub) HandleStream(c *gin.Context) {
	conn, err := streamUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.WithFields(logrus.Fields{
			"error": err.Error(),
		}).Warn("WebSocket upgrade failed")
		return
	}

	client := &streamClient{
		id:   uuid.New().String(),
		send: make(chan []byte, 64),
	}
	h.register(client)

	h.logger.WithFields(logrus.Fields{
		"client_id": client.id,
	}).Info("Order stream client connected")

	go h.writePump(client, conn)
	go h.readPump(client, conn)
}

// readPump drains inbound frames so close and ping control messages are
// processed. Any read error ends the session.
func (h *OrderEventHub) readPump(client *streamClient, conn *websocket.Conn) {
	defer func() {
		h.unregister(client)
		conn.Close()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *OrderEventHub) writePump(client *streamClient, conn *websocket.Conn) {
	defer conn.Close()

	for message := range client.send {
		if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}

	conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "server shutting down"))
}
