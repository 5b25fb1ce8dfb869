package gateway

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Harshit-Dhanwalkar/NexusView/api"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingEvery      = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

// client is one WebSocket connection. The hub writes into send; writePump is
// the only goroutine touching the connection for writes.
type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan api.ServerMessage
	once sync.Once
}

func (h *Hub) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("Upgrade failed", zap.Error(err))
		return
	}

	c := &client{
		hub:  h,
		conn: conn,
		send: make(chan api.ServerMessage, sendBuffer),
	}
	h.register(c)

	go c.writePump()
	c.readPump()
}

func (c *client) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.closeConn()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var cmd api.Command
		if err := c.conn.ReadJSON(&cmd); err != nil {
			return
		}
		c.hub.handleCommand(c, cmd)
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingEvery)
	defer func() {
		ticker.Stop()
		c.closeConn()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
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

func (c *client) closeConn() {
	c.once.Do(func() { _ = c.conn.Close() })
}
