package server

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/spigell/career-twin/internal/interview"
	"go.uber.org/zap"
)

type successResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func success(c *fiber.Ctx, code int, message string, data any) error {
	return c.Status(code).JSON(successResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

func failure(c *fiber.Ctx, code int, message string) error {
	return c.Status(code).JSON(errorResponse{
		Success: false,
		Message: message,
	})
}

// statusFor maps pipeline errors onto HTTP status codes.
func statusFor(err error) int {
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		return fe.Code
	case errors.Is(err, interview.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, interview.ErrExtraction):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, interview.ErrInvalidInput):
		return fiber.StatusBadRequest
	case errors.Is(err, interview.ErrDuplicateAnswer),
		errors.Is(err, interview.ErrSessionCompleted),
		errors.Is(err, interview.ErrNoAnswers):
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

// errorHandler renders every error returned by a handler in the response envelope.
// Internal failures are logged and reported without details.
func errorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := statusFor(err)

		message := err.Error()
		if code >= fiber.StatusInternalServerError {
			log.Error("request failed",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.Error(err),
			)
			message = "Internal Server Error"
		}

		return failure(c, code, message)
	}
}
