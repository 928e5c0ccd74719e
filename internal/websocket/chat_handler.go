package websocket

import (
	"context"
	"time"

	"mirs-coach-be/internal/constant"
	"mirs-coach-be/internal/dto"
	"mirs-coach-be/internal/pkg/logger"
	"mirs-coach-be/internal/service"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 16 * 1024
)

// ChatHandler serves the websocket variant of the streaming chat: the
// client sends one SendChatRequest frame per turn and receives the same
// fragment/finish/error events as the SSE endpoint.
type ChatHandler struct {
	coachService service.ICoachService
	logger       logger.ILogger
}

func NewChatHandler(coachService service.ICoachService, log logger.ILogger) *ChatHandler {
	return &ChatHandler{
		coachService: coachService,
		logger:       log,
	}
}

// Serve runs the per-connection loop. It returns when the client closes the
// socket or a write fails.
func (h *ChatHandler) Serve(conn *websocket.Conn, userId uuid.UUID) {
	defer conn.Close()
	conn.SetReadLimit(maxMessageSize)

	for {
		var req dto.SendChatRequest
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("websocket", "unexpected close", map[string]interface{}{"error": err.Error()})
			}
			return
		}
		if req.ScoreId == uuid.Nil || req.Chat == "" {
			h.writeEvent(conn, dto.StreamEvent{Type: constant.StreamEventError, Message: "score_id and chat are required"})
			continue
		}

		ctx, cancel := context.WithCancel(context.Background())
		err := h.coachService.StreamChat(ctx, userId, &req, func(event dto.StreamEvent) error {
			return h.writeEvent(conn, event)
		})
		cancel()
		if err != nil {
			h.logger.Error("websocket", "turn failed", map[string]interface{}{"error": err.Error()})
			if h.writeEvent(conn, dto.StreamEvent{Type: constant.StreamEventError, Message: err.Error()}) != nil {
				return
			}
		}
	}
}

func (h *ChatHandler) writeEvent(conn *websocket.Conn, event dto.StreamEvent) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(event)
}
