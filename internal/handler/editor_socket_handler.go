package handler

import (
	"context"
	"encoding/json"
	"errors"

	"post-editor-be/internal/dto"
	"post-editor-be/internal/pkg/logger"
	"post-editor-be/internal/pkg/serverutils"
	"post-editor-be/internal/service"
	internalWS "post-editor-be/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

type EditorSocketHandler struct {
	service   service.IEditorService
	hub       *internalWS.Hub
	jwtSecret string
	logger    logger.ILogger
}

func NewEditorSocketHandler(service service.IEditorService, hub *internalWS.Hub, jwtSecret string, log logger.ILogger) *EditorSocketHandler {
	return &EditorSocketHandler{
		service:   service,
		hub:       hub,
		jwtSecret: jwtSecret,
		logger:    log,
	}
}

func (h *EditorSocketHandler) RegisterRoutes(r fiber.Router) {
	r.Get("/editor/v1/ws/:id", h.ServeWs)
}

// ServeWs authenticates the handshake and attaches the socket to an editor session.
func (h *EditorSocketHandler) ServeWs(c *fiber.Ctx) error {
	// Browsers cannot set headers on the upgrade request, so the query wins.
	tokenStr := c.Query("token")
	if tokenStr == "" {
		tokenStr, _ = serverutils.BearerToken(c.Get("Authorization"))
	}
	if tokenStr == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponse(fiber.StatusUnauthorized, "Missing token (Query 'token' or Header 'Authorization')"))
	}

	userID, err := serverutils.ParseUserID(tokenStr, h.jwtSecret)
	if err != nil {
		h.logger.Warn("EditorSocketHandler", "Invalid Token in WS Handshake", map[string]interface{}{"error": err.Error()})
		return c.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponse(fiber.StatusUnauthorized, "Invalid token"))
	}

	sessionID := c.Params("id")
	if err := h.service.Authorize(userID, sessionID); err != nil {
		return err
	}

	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	return websocket.New(func(conn *websocket.Conn) {
		h.logger.Info("EditorSocketHandler", "Starting WebSocket session", map[string]interface{}{"session_id": sessionID, "user_id": userID})
		internalWS.ServeWs(h.hub, conn, sessionID, userID, h.inbound)
		h.logger.Info("EditorSocketHandler", "WebSocket session ended", map[string]interface{}{"session_id": sessionID, "user_id": userID})
	})(c)
}

func (h *EditorSocketHandler) inbound(client *internalWS.Client, data []byte) []byte {
	result, err := h.handleFrame(context.Background(), client.UserID, client.SessionID, data)
	msg := internalWS.Message{Type: internalWS.TypeResult, SessionID: client.SessionID, Data: result}
	if err != nil {
		code := serverutils.StatusOf(err)
		message := err.Error()
		if code == fiber.StatusInternalServerError {
			message = "Internal server error"
		}
		msg.Type = internalWS.TypeError
		msg.Data = serverutils.ErrorResponse(code, message)
	}
	out, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("EditorSocketHandler", "Failed to encode reply", map[string]interface{}{"error": err.Error()})
		return nil
	}
	return out
}

func (h *EditorSocketHandler) handleFrame(ctx context.Context, userID uuid.UUID, sessionID string, data []byte) (interface{}, error) {
	var frame dto.SocketFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "malformed frame")
	}
	if err := serverutils.ValidateRequest(frame); err != nil {
		return nil, err
	}

	switch frame.Type {
	case "command":
		if err := serverutils.ValidateRequest(frame.Command); err != nil {
			return nil, err
		}
		return h.service.Dispatch(ctx, userID, sessionID, frame.Command)
	case "selection":
		if err := serverutils.ValidateRequest(frame.Selection); err != nil {
			return nil, err
		}
		return h.service.SetSelection(ctx, userID, sessionID, frame.Selection)
	case "resizer":
		if err := serverutils.ValidateRequest(frame.Resizer); err != nil {
			return nil, err
		}
		return h.service.Resizer(ctx, userID, sessionID, frame.Resizer)
	case "state":
		return h.service.State(ctx, userID, sessionID)
	}
	return nil, errors.New("unreachable frame type")
}
