package websocket

import (
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// ServeWs attaches conn to sessionID and blocks until the peer goes away.
func ServeWs(hub *Hub, c *websocket.Conn, sessionID string, userID uuid.UUID, onMessage InboundHandler) {
	client := &Client{
		Hub:       hub,
		Conn:      c,
		SessionID: sessionID,
		UserID:    userID,
		Send:      make(chan []byte, 256),
		onMessage: onMessage,
	}
	client.Hub.add(client)

	go client.writePump()
	client.readPump()
}
