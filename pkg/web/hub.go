package web

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/PancyStudios/PancyPremiumGo/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const writeTimeout = 5 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin:     func(r *http.Request) bool { return true },
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// wsClient is one websocket subscriber of the event feed
type wsClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsClient) write(msg []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, msg)
}

// Hub fans lifecycle events out to every connected websocket client
type Hub struct {
	clients map[*wsClient]struct{}
	mu      sync.RWMutex
}

// NewHub creates an empty Hub
func NewHub() *Hub {
	return &Hub{clients: make(map[*wsClient]struct{})}
}

func (h *Hub) register(c *wsClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	total := len(h.clients)
	h.mu.Unlock()
	logger.Debug(fmt.Sprintf("Cliente websocket conectado (total: %d)", total), "WebSocket")
}

func (h *Hub) unregister(c *wsClient) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		_ = c.conn.Close()
	}
	h.mu.Unlock()
}

// Broadcast writes msg to every client, dropping those that fail
func (h *Hub) Broadcast(msg []byte) {
	h.mu.RLock()
	clients := make([]*wsClient, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		if err := c.write(msg); err != nil {
			logger.Debug(fmt.Sprintf("Error escribiendo al cliente websocket: %v", err), "WebSocket")
			h.unregister(c)
		}
	}
}

// ConnectionCount returns the number of connected clients
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		_ = c.conn.Close()
		delete(h.clients, c)
	}
}

// Handle upgrades the request and keeps the client until it disconnects.
// Incoming messages are read only to detect the disconnect.
func (h *Hub) Handle(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn(fmt.Sprintf("No se pudo abrir el websocket: %v", err), "WebSocket")
		return
	}

	client := &wsClient{conn: conn}
	h.register(client)

	go func() {
		defer h.unregister(client)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
