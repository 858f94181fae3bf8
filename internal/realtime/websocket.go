package realtime

import (
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	applog "stockkeeper/internal/log"
)

// Upgrade rejects plain HTTP requests on the websocket route.
func Upgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// Handler attaches each websocket connection to the hub. Clients only
// listen; anything they send is discarded.
func (h *Hub) Handler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		client := NewClient()
		h.Register(client)
		go writePump(conn, client)
		readPump(conn)
		h.Unregister(client)
	})
}

func writePump(conn *websocket.Conn, c *Client) {
	defer conn.Close()
	for msg := range c.send {
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
	conn.WriteMessage(websocket.CloseMessage, []byte{})
}

func readPump(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				applog.Warn(nil, "realtime.read", map[string]any{"err": err.Error()})
			}
			return
		}
	}
}
