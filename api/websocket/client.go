package websocket

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/OldStager01/predictify/internal/logger"
)

type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	send     chan []byte
	mu       sync.RWMutex
	eventID  string
	settings Settings
}

// IncomingMessage is what clients send to change their subscription.
type IncomingMessage struct {
	Type    string `json:"type"`
	EventID string `json:"event_id,omitempty"`
}

func NewClient(hub *Hub, conn *websocket.Conn, eventID string) *Client {
	return &Client{
		hub:      hub,
		conn:     conn,
		send:     make(chan []byte, hub.settings.ClientBuffer),
		eventID:  eventID,
		settings: hub.settings,
	}
}

// EventID is the event the client follows, empty when unsubscribed.
func (c *Client) EventID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.eventID
}

func (c *Client) setEventID(eventID string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	old := c.eventID
	c.eventID = eventID
	return old
}

func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(c.settings.MaxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.settings.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.settings.PongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Errorf("WebSocket error: %v", err)
			}
			return
		}

		var msg IncomingMessage
		if err := json.Unmarshal(message, &msg); err == nil {
			c.handleMessage(&msg)
		}
	}
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(c.settings.PingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.settings.WriteWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.settings.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleMessage(msg *IncomingMessage) {
	switch msg.Type {
	case "subscribe":
		if msg.EventID == "" {
			return
		}
		c.setEventID(msg.EventID)
		logger.WithEvent(msg.EventID).Debug("WebSocket client subscribed")
		c.enqueue(NewSubscriptionUpdate("subscribed", msg.EventID).JSON())
	case "unsubscribe":
		old := c.setEventID("")
		c.enqueue(NewSubscriptionUpdate("unsubscribed", old).JSON())
	}
}

func (c *Client) enqueue(data []byte) {
	select {
	case c.send <- data:
	default:
		logger.Warn("Client send channel full, dropping message")
	}
}

// ServeWebSocket upgrades the request and subscribes the client to the
// event named by the event_id query parameter, if any.
func ServeWebSocket(hub *Hub, allowedOrigins []string) gin.HandlerFunc {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  hub.settings.ReadBufferSize,
		WriteBufferSize: hub.settings.WriteBufferSize,
		CheckOrigin:     originChecker(allowedOrigins),
	}

	return func(c *gin.Context) {
		if hub.Full() {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "too many websocket connections"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Errorf("WebSocket upgrade failed: %v", err)
			return
		}

		client := NewClient(hub, conn, c.Query("event_id"))
		hub.Register(client)

		go client.WritePump()
		go client.ReadPump()
	}
}

// originChecker allows requests without an Origin header, and any origin
// when the list is empty or contains "*".
func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || len(allowed) == 0 {
			return true
		}
		for _, o := range allowed {
			if o == "*" || o == origin {
				return true
			}
		}
		return false
	}
}
