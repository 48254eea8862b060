package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/labelflow/labelflow/api/internal/middleware"
	apperrors "github.com/labelflow/labelflow/api/internal/pkg/errors"
)

// Response is the envelope every API response is wrapped in
type Response struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorBody `json:"error,omitempty"`
}

// ErrorBody describes a failed request. Kind is the machine-checkable error code.
type ErrorBody struct {
	Kind      string            `json:"kind"`
	Message   string            `json:"message"`
	Details   map[string]string `json:"details,omitempty"`
	RequestID string            `json:"requestId,omitempty"`
}

// ListData is the payload of paginated list responses
type ListData[T any] struct {
	Items  []T   `json:"items"`
	Total  int64 `json:"total"`
	Limit  int   `json:"limit"`
	Offset int   `json:"offset"`
}

func ok(c *fiber.Ctx, data any) error {
	return c.JSON(Response{Success: true, Data: data})
}

func created(c *fiber.Ctx, data any) error {
	return c.Status(fiber.StatusCreated).JSON(Response{Success: true, Data: data})
}

// ErrorHandler renders errors returned by handlers and middleware in the
// response envelope. Server-side failures are logged and reported to Sentry.
func ErrorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		body := &ErrorBody{RequestID: middleware.GetRequestID(c)}
		status := fiber.StatusInternalServerError

		var fe *fiber.Error
		switch appErr := apperrors.GetAppError(err); {
		case appErr != nil:
			status = appErr.StatusCode
			body.Kind = appErr.Code
			body.Message = appErr.Message
			body.Details = appErr.Details
		case errors.As(err, &fe):
			status = fe.Code
			body.Kind = fiberErrorKind(fe.Code)
			body.Message = fe.Message
		default:
			body.Kind = apperrors.CodeInternal
			body.Message = "internal server error"
		}

		if status >= fiber.StatusInternalServerError {
			logger.Error("request failed",
				zap.String("request_id", body.RequestID),
				zap.String("path", c.Path()),
				zap.Error(err),
			)
			middleware.CaptureError(c, err)
		}

		return c.Status(status).JSON(Response{Success: false, Error: body})
	}
}

func fiberErrorKind(status int) string {
	switch status {
	case fiber.StatusNotFound:
		return apperrors.CodeNotFound
	case fiber.StatusTooManyRequests:
		return apperrors.CodeRateLimited
	case fiber.StatusServiceUnavailable:
		return apperrors.CodeUnavailable
	}
	if status < fiber.StatusInternalServerError {
		return apperrors.CodeInvalidArgument
	}
	return apperrors.CodeInternal
}
