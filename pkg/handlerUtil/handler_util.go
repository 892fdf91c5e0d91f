package handlerUtil

import (
	"errors"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/sirupsen/logrus"
	"trashiq/internal/api/detection"
	"trashiq/pkg/log"
	"trashiq/pkg/response"
)

type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}

type ErrorHandler struct {
	logger *logrus.Logger
}

func New(logger *logrus.Logger) *ErrorHandler {
	return &ErrorHandler{
		logger: logger,
	}
}

// Resolve maps err to the status and envelope it is reported with.
func Resolve(err error) (int, ErrorResponse) {
	if errors.Is(err, detection.ErrInference) {
		var c interface{ Cause() error }
		if errors.As(err, &c) {
			return fiber.StatusInternalServerError, ErrorResponse{Error: c.Cause().Error()}
		}
	}

	return response.StatusCode(err, fiber.StatusInternalServerError), ErrorResponse{Error: err.Error()}
}

func (h *ErrorHandler) Handle(c *fiber.Ctx, requestID string, err error, path string, operation string) error {
	status, body := Resolve(err)

	fields := log.Fields{
		"request_id": requestID,
		"error":      err.Error(),
		"code":       status,
		"path":       path,
		"operation":  operation,
	}

	switch {
	case errors.Is(err, detection.ErrModelNotLoaded):
		body.TraceID = log.ErrorWithTraceID(fields, "Detection requested while model is unavailable")
	case status >= fiber.StatusInternalServerError:
		body.TraceID = log.ErrorWithTraceID(fields, "Operation failed")
	default:
		h.logger.WithFields(fields).Warn("Operation failed with client error")
	}

	return c.Status(status).JSON(body)
}

func (h *ErrorHandler) HandleValidationError(c *fiber.Ctx, requestID string, err error, path string, kind error) error {
	h.logger.WithFields(log.Fields{
		"request_id": requestID,
		"error":      err.Error(),
		"path":       path,
	}).Warn("Validation failed")

	status, body := Resolve(kind)
	return c.Status(status).JSON(body)
}

func (h *ErrorHandler) HandleRequestTimeout(c *fiber.Ctx) error {
	return c.Status(fiber.StatusRequestTimeout).JSON(ErrorResponse{
		Error: utils.StatusMessage(fiber.StatusRequestTimeout),
	})
}

func (h *ErrorHandler) HandleSuccess(c *fiber.Ctx, statusCode int, data interface{}) error {
	if data == nil {
		return c.SendStatus(statusCode)
	}
	return c.Status(statusCode).JSON(data)
}
