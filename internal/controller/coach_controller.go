package controller

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"mirs-coach-be/internal/constant"
	"mirs-coach-be/internal/dto"
	"mirs-coach-be/internal/pkg/serverutils"
	"mirs-coach-be/internal/service"
	"mirs-coach-be/pkg/rubric"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/valyala/fasthttp"
)

type ICoachController interface {
	RegisterRoutes(r fiber.Router)
	SendChat(ctx *fiber.Ctx) error
	StreamChat(ctx *fiber.Ctx) error
	GetChatHistory(ctx *fiber.Ctx) error
}

type coachController struct {
	coachService service.ICoachService
}

func NewCoachController(coachService service.ICoachService) ICoachController {
	return &coachController{
		coachService: coachService,
	}
}

func (c *coachController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/coach/v1")
	h.Use(serverutils.JwtMiddleware)
	h.Post("chat", c.SendChat)
	h.Post("chat/stream", c.StreamChat)
	h.Get("history/:scoreId", c.GetChatHistory)
}

func (c *coachController) SendChat(ctx *fiber.Ctx) error {
	userIdStr := ctx.Locals("user_id").(string)
	userId, _ := uuid.Parse(userIdStr)

	var req dto.SendChatRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.coachService.SendChat(ctx.Context(), userId, &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success send chat", res))
}

// StreamChat delivers the coaching reply as server-sent events: any number
// of fragment events, then one finish event, or one error event. Pipeline
// errors raised before the first fragment are also delivered as an error
// event since the 200 header is already on the wire.
func (c *coachController) StreamChat(ctx *fiber.Ctx) error {
	userIdStr := ctx.Locals("user_id").(string)
	userId, _ := uuid.Parse(userIdStr)

	var req dto.SendChatRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	ctx.Set("Content-Type", "text/event-stream")
	ctx.Set("Cache-Control", "no-cache")
	ctx.Set("Connection", "keep-alive")

	// The stream writer runs after this handler returns, so it needs its own
	// context. Cancelling it on a failed flush propagates the client
	// disconnect into the service.
	streamCtx, cancel := context.WithCancel(context.Background())

	ctx.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer cancel()

		emit := func(event dto.StreamEvent) error {
			payload, err := json.Marshal(event)
			if err != nil {
				return err
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
				cancel()
				return err
			}
			if err := w.Flush(); err != nil {
				cancel()
				return err
			}
			return nil
		}

		if err := c.coachService.StreamChat(streamCtx, userId, &req, emit); err != nil {
			_ = emit(dto.StreamEvent{
				Type:    constant.StreamEventError,
				Message: streamErrorMessage(err),
			})
		}
	}))

	return nil
}

// streamErrorMessage keeps user-facing wording consistent with the JSON
// error middleware for errors that surface after streaming has begun.
func streamErrorMessage(err error) string {
	var limitErr *dto.LimitExceededError
	switch {
	case errors.Is(err, rubric.ErrNotFound):
		return "Conversation not found"
	case errors.Is(err, rubric.ErrNotReady):
		return "This conversation has not been fully processed yet. Please wait and retry."
	case errors.As(err, &limitErr):
		return limitErr.Error()
	case errors.Is(err, rubric.ErrNoItems), errors.Is(err, rubric.ErrInvalidItems):
		return err.Error()
	default:
		return "Failed to process the coaching turn. Please try again."
	}
}

func (c *coachController) GetChatHistory(ctx *fiber.Ctx) error {
	userIdStr := ctx.Locals("user_id").(string)
	userId, _ := uuid.Parse(userIdStr)

	scoreIdParam := ctx.Params("scoreId")
	scoreId, err := uuid.Parse(scoreIdParam)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid score id")
	}

	res, err := c.coachService.GetChatHistory(ctx.Context(), userId, scoreId)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success show chat history", res))
}
