package handler

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"docgate/internal/http/middleware"
	"docgate/internal/service"
)

// errorPayload defines the standardized error response body.
type errorPayload = middleware.ErrorPayload

// requestIDFromCtx extracts request_id previously stored by middleware.RequestID.
func requestIDFromCtx(c *fiber.Ctx) string {
	if v := c.Locals(middleware.RequestIDLocalKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// writeError writes a standardized JSON error response without leaking internal errors.
//
// Parameters:
// - status: HTTP status code to return
// - code: machine-readable short error code (e.g., "INVALID_ID", "NOT_FOUND", "INTERNAL_ERROR")
// - message: human-readable safe message (no internal details)
func writeError(c *fiber.Ctx, status int, code, message string) error {
	return middleware.WriteError(c, status, code, message)
}

// quarantinedPayload is returned when generated output was held back.
type quarantinedPayload struct {
	RequestID string   `json:"request_id"`
	Status    string   `json:"status"`
	DraftID   string   `json:"draft_id"`
	Issues    []string `json:"issues"`
	Message   string   `json:"message"`
}

// writeServiceError maps service errors to responses. Anything unknown is
// reported as an internal error without details.
func writeServiceError(c *fiber.Ctx, err error) error {
	var (
		verr    *service.ValidationError
		secret  *service.SecretRejection
		sec     *service.SecurityException
		circuit *service.CircuitOpenError
		denied  *service.AuthorizationDenied
		short   *service.InsufficientApprovals
	)
	switch {
	case errors.As(err, &verr):
		return writeError(c, fiber.StatusBadRequest, "VALIDATION_FAILED", strings.Join(verr.Codes(), ", "))
	case errors.As(err, &secret):
		return writeError(c, fiber.StatusUnprocessableEntity, "SECRET_DETECTED", "content contains credentials and was not processed")
	case errors.As(err, &sec):
		return c.Status(fiber.StatusAccepted).JSON(quarantinedPayload{
			RequestID: requestIDFromCtx(c),
			Status:    "QUARANTINED",
			DraftID:   sec.DraftID,
			Issues:    sec.Issues,
			Message:   "generated output held for manual review",
		})
	case errors.As(err, &circuit):
		c.Set(fiber.HeaderRetryAfter, "30")
		return writeError(c, fiber.StatusServiceUnavailable, "DEPENDENCY_UNAVAILABLE", circuit.Error())
	case errors.Is(err, service.ErrServicePaused):
		return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_PAUSED", "generation paused pending operator review")
	case errors.As(err, &denied):
		return writeError(c, fiber.StatusForbidden, "FORBIDDEN", "not allowed to "+denied.Permission)
	case errors.Is(err, service.ErrNotFound):
		return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "summary not found")
	case errors.Is(err, service.ErrDocumentNotFound):
		return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "document not found")
	case errors.As(err, &short):
		return writeError(c, fiber.StatusConflict, "INSUFFICIENT_APPROVALS", short.Error())
	case errors.Is(err, service.ErrInvalidTransition):
		return writeError(c, fiber.StatusConflict, "INVALID_TRANSITION", "summary is not in a state that allows this action")
	case errors.Is(err, service.ErrIDRequired):
		return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "id is required")
	default:
		return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
}

// ErrorHandler returns a Fiber global error handler that standardizes error responses.
func ErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		if e, ok := err.(*fiber.Error); ok {
			status = e.Code
		}

		switch status {
		case fiber.StatusBadRequest:
			return writeError(c, status, "BAD_REQUEST", "bad request")
		case fiber.StatusNotFound:
			return writeError(c, status, "NOT_FOUND", "resource not found")
		case fiber.StatusMethodNotAllowed:
			return writeError(c, status, "METHOD_NOT_ALLOWED", "method not allowed")
		case fiber.StatusRequestEntityTooLarge:
			return writeError(c, status, "PAYLOAD_TOO_LARGE", "request body too large")
		default:
			return writeError(c, status, "INTERNAL_ERROR", "internal server error")
		}
	}
}
