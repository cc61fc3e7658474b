package handler

import (
	"strings"

	"ragone-be/internal/pkg/logger"
	"ragone-be/internal/pkg/serverutils"
	internalWS "ragone-be/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

const wsModule = "WS_HANDLER"

// ProfileStatusHandler streams profile generation status changes to the
// owner of the characters.
type ProfileStatusHandler struct {
	hub       *internalWS.Hub
	jwtSecret string
	logger    logger.ILogger
}

func NewProfileStatusHandler(hub *internalWS.Hub, jwtSecret string, log logger.ILogger) *ProfileStatusHandler {
	return &ProfileStatusHandler{
		hub:       hub,
		jwtSecret: jwtSecret,
		logger:    log,
	}
}

// ServeWs authenticates the handshake and upgrades the connection.
// Browsers pass the token as ?token=, other clients may use the header.
func (h *ProfileStatusHandler) ServeWs(c *fiber.Ctx) error {
	tokenStr := c.Query("token")
	if tokenStr == "" {
		tokenStr, _ = strings.CutPrefix(c.Get("Authorization"), "Bearer ")
	}
	if tokenStr == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponse(fiber.StatusUnauthorized, "Missing token", nil))
	}

	userID, err := serverutils.ParseUserID(h.jwtSecret, tokenStr)
	if err != nil {
		h.logger.Warn(wsModule, "Invalid token in websocket handshake", map[string]interface{}{"error": err.Error()})
		return c.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponse(fiber.StatusUnauthorized, err.Error(), nil))
	}

	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	return websocket.New(func(conn *websocket.Conn) {
		h.logger.Info(wsModule, "Profile status stream opened", map[string]interface{}{"user_id": userID})
		internalWS.ServeWs(h.hub, conn, userID)
		h.logger.Info(wsModule, "Profile status stream closed", map[string]interface{}{"user_id": userID})
	})(c)
}

func (h *ProfileStatusHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/ws/profile-status", h.ServeWs)
}
