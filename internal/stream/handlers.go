package stream

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"parkease/internal/auth"
)

// RegisterRoutes mounts the owner event websocket. authMiddleware must accept
// the access_token query parameter since browsers cannot set upgrade headers.
func RegisterRoutes(r fiber.Router, hub *Hub, authMiddleware fiber.Handler) {
	r.Get("/ws", authMiddleware, func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		session, ok := auth.SessionFrom(c)
		if !ok {
			return fiber.ErrUnauthorized
		}
		c.Locals("owner_id", session.UserID)
		return c.Next()
	}, websocket.New(func(c *websocket.Conn) {
		ownerID, _ := c.Locals("owner_id").(string)
		client := hub.Register(ownerID)
		defer hub.Unregister(client)

		done := make(chan struct{})
		go func() {
			for msg := range client.Send {
				if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
					break
				}
			}
			close(done)
		}()

		for {
			if _, _, err := c.ReadMessage(); err != nil {
				break
			}
		}
		hub.Unregister(client)
		<-done
	}))
}
