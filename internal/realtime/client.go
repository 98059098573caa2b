package realtime

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Wire events.
const (
	EventSubscribe    = "subscribe"
	EventUnsubscribe  = "unsubscribe"
	EventSubscribed   = "subscribed"
	EventUnsubscribed = "unsubscribed"
	EventChange       = "change"
	EventError        = "error"
)

const (
	writeWait  = 10 * time.Second
	sendBuffer = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // allow all origins in dev; restrict in production
	},
}

// WSMessage is the WebSocket message envelope.
type WSMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// TableRequest is the data of subscribe/unsubscribe messages and their acks.
type TableRequest struct {
	Table string `json:"table"`
}

// Client represents a single WebSocket connection.
type Client struct {
	id     string
	UserID string
	hub    *Hub
	conn   *websocket.Conn
	send   chan WSMessage
	done   chan struct{}
	logger *zap.Logger
}

// SubscriberID implements Subscriber.
func (c *Client) SubscriberID() string { return c.id }

// Deliver implements Subscriber.
func (c *Client) Deliver(ch Change) bool {
	data, err := json.Marshal(ch)
	if err != nil {
		return false
	}
	return c.enqueue(WSMessage{Event: EventChange, Data: data})
}

func (c *Client) enqueue(msg WSMessage) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (c *Client) reply(event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	c.enqueue(WSMessage{Event: event, Data: data})
}

// ServeWs handles the WebSocket upgrade and runs the client loop. The token query parameter
// carries the caller's JWT; validate returns the user id it belongs to.
func ServeWs(hub *Hub, logger *zap.Logger, validate func(token string) (userID string, err error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "token required"})
			return
		}
		userID, err := validate(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "invalid token"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}

		client := &Client{
			id:     uuid.New().String(),
			UserID: userID,
			hub:    hub,
			conn:   conn,
			send:   make(chan WSMessage, sendBuffer),
			done:   make(chan struct{}),
			logger: logger,
		}
		go client.writePump()
		client.readPump()
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.UnsubscribeAll(c)
		close(c.done)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(65536)
	_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
		return nil
	})

	for {
		var msg WSMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			break
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))

		switch msg.Event {
		case EventSubscribe, EventUnsubscribe:
			var req TableRequest
			if err := json.Unmarshal(msg.Data, &req); err != nil || !KnownTable(req.Table) {
				c.reply(EventError, gin.H{"message": "unknown table", "table": req.Table})
				continue
			}
			if msg.Event == EventSubscribe {
				c.hub.Subscribe(req.Table, c)
				c.reply(EventSubscribed, req)
			} else {
				c.hub.Unsubscribe(req.Table, c)
				c.reply(EventUnsubscribed, req)
			}
		default:
			c.reply(EventError, gin.H{"message": "unsupported event", "event": msg.Event})
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(PingInterval * time.Second)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(msg); err != nil {
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
