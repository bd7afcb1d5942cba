package middleware

import "github.com/gofiber/fiber/v2"

// ErrorPayload is the standardized error response body shared by
// middleware and handlers.
type ErrorPayload struct {
	RequestID string        `json:"request_id"`
	Error     ErrorEnvelope `json:"error"`
}

type ErrorEnvelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteError writes a standardized JSON error response. message must be
// safe to show to clients.
func WriteError(c *fiber.Ctx, status int, code, message string) error {
	rid, _ := c.Locals(RequestIDLocalKey).(string)
	return c.Status(status).JSON(ErrorPayload{
		RequestID: rid,
		Error:     ErrorEnvelope{Code: code, Message: message},
	})
}

// statusOf returns the status a request finished with, including errors the
// global error handler has not rendered yet.
func statusOf(c *fiber.Ctx, err error) int {
	if err == nil {
		return c.Response().StatusCode()
	}
	if fiberErr, ok := err.(*fiber.Error); ok {
		return fiberErr.Code
	}
	return fiber.StatusInternalServerError
}
