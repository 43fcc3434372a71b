package notify

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/Codewithsubhasree/PRAGATIPATH1234/internal/model"
	"github.com/Codewithsubhasree/PRAGATIPATH1234/pkg/auth"
	"github.com/Codewithsubhasree/PRAGATIPATH1234/pkg/logger"
	"go.uber.org/zap"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

const (
	sendBuffer = 16
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type Message struct {
	Type    model.EventType `json:"type"`
	Payload map[string]any  `json:"payload,omitempty"`
}

type client struct {
	username string
	conn     *websocket.Conn
	send     chan []byte
	done     chan struct{}
}

// Hub pushes events to the websocket connections of their recipients. A user may hold
// several connections; events for users with none are dropped.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*client]struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]map[*client]struct{}),
	}
}

func (h *Hub) Notify(_ context.Context, event model.Event) {
	log := logger.Logger()

	h.mu.RLock()
	conns := make([]*client, 0, len(h.clients[event.Recipient]))
	for c := range h.clients[event.Recipient] {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	if len(conns) == 0 {
		return
	}

	out, err := json.Marshal(Message{Type: event.Type, Payload: event.Payload})
	if err != nil {
		log.Error("failed to marshal notification", zap.String("type", string(event.Type)), zap.Error(err))
		return
	}

	for _, c := range conns {
		select {
		case c.send <- out:
		default:
			log.Warn("notification dropped, client too slow",
				zap.String("username", c.username),
				zap.String("type", string(event.Type)))
		}
	}
}

// Connected returns the number of open connections for username.
func (h *Hub) Connected(username string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[username])
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[c.username] == nil {
		h.clients[c.username] = make(map[*client]struct{})
	}
	h.clients[c.username][c] = struct{}{}
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.clients[c.username]; ok {
		if _, ok := conns[c]; ok {
			delete(conns, c)
			close(c.done)
		}
		if len(conns) == 0 {
			delete(h.clients, c.username)
		}
	}
}

// Handler upgrades an authenticated request to a websocket that receives the
// session user's events. It must run after auth.SessionMiddleware.
func (h *Hub) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		log := logger.Logger()

		claims, ok := auth.SessionFrom(c)
		if !ok {
			log.Error("session not found in context")
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Error("websocket upgrade failed", zap.Error(err))
			return
		}

		cl := &client{
			username: claims.Username,
			conn:     conn,
			send:     make(chan []byte, sendBuffer),
			done:     make(chan struct{}),
		}
		h.register(cl)

		go h.writeLoop(cl)
		go h.readLoop(cl)
	}
}

func (h *Hub) readLoop(c *client) {
	defer func() {
		h.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Logger().Info("websocket unexpected close", zap.String("username", c.username), zap.Error(err))
			}
			return
		}
	}
}

func (h *Hub) writeLoop(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logger.Logger().Info("websocket write failed", zap.String("username", c.username), zap.Error(err))
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
