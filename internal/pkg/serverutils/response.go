package serverutils

import (
	"errors"
	"net/http"

	"mirs-coach-be/internal/dto"
	"mirs-coach-be/pkg/rubric"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

type Response[T any] struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    T      `json:"data,omitempty"`
}

func SuccessResponse[T any](message string, data T) Response[T] {
	return Response[T]{
		Success: true,
		Message: message,
		Data:    data,
	}
}

var validate = validator.New()

// ValidateRequest runs struct tag validation and converts failures into a
// fiber 400 error so the error middleware renders them uniformly.
func ValidateRequest(req interface{}) error {
	if err := validate.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return nil
}

// ErrorHandlerMiddleware maps domain errors onto HTTP statuses. It is the
// single place errors become responses; controllers just return them.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		var limitErr *dto.LimitExceededError
		if errors.As(err, &limitErr) {
			return ctx.Status(fiber.StatusTooManyRequests).JSON(dto.LimitExceededResponse{
				Success:   false,
				Code:      fiber.StatusTooManyRequests,
				Message:   limitErr.Error(),
				ErrorType: "limit_exceeded",
				Data: dto.LimitExceededData{
					Limit:      limitErr.Limit,
					Used:       limitErr.Used,
					ResetAfter: limitErr.ResetAfter,
				},
			})
		}

		switch {
		case errors.Is(err, rubric.ErrNotFound):
			return failJSON(ctx, fiber.StatusNotFound, "Conversation not found")
		case errors.Is(err, rubric.ErrNotReady):
			return failJSON(ctx, fiber.StatusConflict, "This conversation has not been fully processed yet. Please wait and retry.")
		case errors.Is(err, rubric.ErrNoItems), errors.Is(err, rubric.ErrInvalidItems):
			return failJSON(ctx, fiber.StatusUnprocessableEntity, err.Error())
		}

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return failJSON(ctx, fiberErr.Code, fiberErr.Message)
		}

		return failJSON(ctx, fiber.StatusInternalServerError, http.StatusText(fiber.StatusInternalServerError))
	}
}

func failJSON(ctx *fiber.Ctx, code int, message string) error {
	return ctx.Status(code).JSON(fiber.Map{
		"success": false,
		"message": message,
	})
}
