package internal

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const wsWriteTimeout = 5 * time.Second

type wsMessage struct {
	Event   string `json:"event"`
	Payload any    `json:"payload"`
}

type wsClient struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsClient) write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Hub keeps the set of websocket subscribers.
type Hub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]*wsClient
	logger  *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[*websocket.Conn]*wsClient),
		logger:  resolveLogger(logger),
	}
}

// Subscribe registers conn and writes the message built by initial before any
// broadcast can reach it.
func (h *Hub) Subscribe(conn *websocket.Conn, initial func() (string, any)) error {
	cl := &wsClient{conn: conn}
	cl.mu.Lock()
	defer cl.mu.Unlock()

	h.mu.Lock()
	h.clients[conn] = cl
	h.mu.Unlock()

	event, payload := initial()
	data, err := json.Marshal(wsMessage{Event: event, Payload: payload})
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return conn.WriteMessage(websocket.TextMessage, data)
}

func (h *Hub) Remove(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, conn)
	_ = conn.Close()
}

func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Broadcast writes to every subscriber; failed connections are dropped.
func (h *Hub) Broadcast(event string, payload any) error {
	data, err := json.Marshal(wsMessage{Event: event, Payload: payload})
	if err != nil {
		return err
	}
	h.mu.Lock()
	clients := make([]*wsClient, 0, len(h.clients))
	for _, cl := range h.clients {
		clients = append(clients, cl)
	}
	h.mu.Unlock()

	failed := 0
	for _, cl := range clients {
		if err := cl.write(data); err != nil {
			h.logger.Debug("ws subscriber dropped", "event", event, "error", err)
			failed++
			h.Remove(cl.conn)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d subscribers unreachable", failed, len(clients))
	}
	return nil
}

func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		_ = conn.Close()
		delete(h.clients, conn)
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// VisibilitySocket subscribes the caller to gate changes and immediately
// sends the current state.
func VisibilitySocket(a *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			a.Logger.Warn("ws upgrade failed", "remote", c.Request.RemoteAddr, "error", err)
			return
		}
		a.Logger.Info("ws connected", "remote", c.Request.RemoteAddr)
		err = a.Hub.Subscribe(conn, func() (string, any) {
			return EventVisibilityChanged, VisibilityPayload{Locked: a.Gate.Status()}
		})
		if err != nil {
			a.Hub.Remove(conn)
			return
		}
		go a.readWS(conn)
	}
}

func (a *App) readWS(conn *websocket.Conn) {
	defer a.Hub.Remove(conn)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			a.Logger.Info("ws disconnected", "error", err)
			return
		}
	}
}
