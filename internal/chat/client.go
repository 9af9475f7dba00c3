package chat

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second    // Time allowed to write a message to the peer.
	pongWait       = 60 * time.Second    // Time allowed to read the next pong message from the peer.
	pingPeriod     = (pongWait * 9) / 10 // Must be less than pongWait.
	maxMessageSize = 4096                // Maximum inbound frame size.
	sendBuffer     = 256
)

// Client is a middleman between one websocket connection and the hub.
type Client struct {
	ID       string
	UserID   int
	Username string

	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	gone atomic.Bool

	// display name announced with user_joins; only the read pump touches it
	name string
}

func newClient(hub *Hub, conn *websocket.Conn, userID int, username string) *Client {
	return &Client{
		ID:       uuid.NewString(),
		UserID:   userID,
		Username: username,
		hub:      hub,
		conn:     conn,
		send:     make(chan []byte, sendBuffer),
	}
}

// readPump pumps events from the websocket connection to the hub.
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	parser := c.hub.parsers.Get()
	defer c.hub.parsers.Put(parser)

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Info("websocket closed", zap.String("conn_id", c.ID), zap.Error(err))
			}
			return
		}

		ev, err := parseInbound(parser, raw)
		if err != nil {
			c.hub.logger.Debug("ignoring frame", zap.String("conn_id", c.ID), zap.Error(err))
			continue
		}
		c.handle(ev)
	}
}

// handle applies one client event. Events that are missing a room are dropped.
func (c *Client) handle(ev inbound) {
	switch ev.Event {
	case EventJoinRoom:
		if ev.Room != "" {
			c.hub.JoinRoom(c, ev.Room)
		}

	case EventLeaveRoom:
		if ev.Room != "" {
			c.hub.LeaveRoom(c, ev.Room)
		}

	case EventUserJoins:
		c.name = ev.Name
		if c.name == "" {
			c.name = c.Username
		}
		c.hub.Identify(c, c.name)

	case EventTyping, EventStopTyping:
		if ev.Room == "" {
			return
		}
		name := ev.Name
		if name == "" {
			name = c.displayName()
		}
		event := EventUserTyping
		if ev.Event == EventStopTyping {
			event = EventUserStoppedTyping
		}
		c.hub.BroadcastToRoom(ev.Room, event, Typing{Name: name, Room: ev.Room})

	default:
		c.hub.logger.Debug("unknown event", zap.String("conn_id", c.ID), zap.String("event", ev.Event))
	}
}

func (c *Client) displayName() string {
	if c.name != "" {
		return c.name
	}
	return c.Username
}

// writePump pumps frames from the hub to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Coalesce whatever else is queued into the same websocket message.
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
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
