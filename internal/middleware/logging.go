package middleware

import (
	"fmt"
	"time"
	"trashiq/pkg/log"

	"github.com/gofiber/fiber/v2"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type loggingMiddleware struct{}

func newLoggingMiddleware() *loggingMiddleware {
	return &loggingMiddleware{}
}

func (m *middleware) NewLoggingMiddleware() fiber.Handler {
	return m.loggingMiddleware.handle
}

func (l *loggingMiddleware) handle(c *fiber.Ctx) error {
	start := time.Now()

	requestID, ok := c.Locals(RequestIDKey).(string)
	if !ok || requestID == "" {
		requestID = "unknown"
	}

	err := c.Next()

	latency := time.Since(start)
	status := c.Response().StatusCode()

	logFields := log.Fields{
		"request_id":    requestID,
		"method":        c.Method(),
		"path":          c.Path(),
		"status":        status,
		"latency_ms":    latency.Milliseconds(),
		"ip":            c.IP(),
		"user_agent":    c.Get("User-Agent"),
		"response_size": len(c.Response().Body()),
	}

	if body := c.Request().Body(); len(body) > 0 {
		logFields["request_body"] = sanitizeRequestBody(string(c.Request().Header.ContentType()), body)
	}

	if status >= 500 {
		log.Error(logFields, "Server error")
	} else if status >= 400 {
		log.Warn(logFields, "Client error")
	} else {
		log.Info(logFields, "Success")
	}

	return err
}

// sanitizeRequestBody replaces the base64 image with its length so access
// logs stay readable.
func sanitizeRequestBody(contentType string, body []byte) string {
	var jsonBody map[string]interface{}
	if err := json.Unmarshal(body, &jsonBody); err != nil {
		if contentType != "" {
			return fmt.Sprintf("[%s body, %d bytes]", contentType, len(body))
		}
		return "[non-JSON body]"
	}

	if image, ok := jsonBody["image"].(string); ok {
		jsonBody["image"] = fmt.Sprintf("[base64 image, %d chars]", len(image))
	}

	sanitized, err := json.Marshal(jsonBody)
	if err != nil {
		return "[sanitization-failed]"
	}

	return string(sanitized)
}
