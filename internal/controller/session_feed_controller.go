package controller

import (
	"ai-reading-be/internal/pkg/serverutils"
	internalWS "ai-reading-be/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

type ISessionFeedController interface {
	RegisterRoutes(r fiber.Router)
	Upgrade(ctx *fiber.Ctx) error
}

type sessionFeedController struct {
	hub       *internalWS.Hub
	jwtSecret string
}

func NewSessionFeedController(hub *internalWS.Hub, jwtSecret string) ISessionFeedController {
	return &sessionFeedController{hub: hub, jwtSecret: jwtSecret}
}

func (c *sessionFeedController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/session-feed/v1")
	h.Get("/ws", c.Upgrade)
}

// Upgrade authenticates before the handshake. Browsers cannot set headers on
// websocket requests, so the token may also come as ?token=.
func (c *sessionFeedController) Upgrade(ctx *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(ctx) {
		return fiber.ErrUpgradeRequired
	}

	token := ctx.Query("token")
	if token == "" {
		token = serverutils.BearerToken(ctx)
	}
	if token == "" {
		return fiber.NewError(fiber.StatusUnauthorized, "Missing token")
	}
	sub, err := serverutils.ParseToken(c.jwtSecret, token)
	if err != nil {
		return fiber.NewError(fiber.StatusUnauthorized, "Invalid token")
	}
	userID, err := uuid.Parse(sub)
	if err != nil {
		return fiber.NewError(fiber.StatusUnauthorized, "Invalid token subject")
	}

	return websocket.New(func(conn *websocket.Conn) {
		internalWS.ServeWs(c.hub, conn, userID)
	})(ctx)
}
