package middleware

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"

	"docgate/internal/model"
	"docgate/internal/session"
)

// SessionIDHeader optionally binds a request to an interactive session.
const SessionIDHeader = "X-Session-ID"

// SessionLocalKey holds the *model.Session of the current request.
const SessionLocalKey = "session"

// SessionTracker is the part of session.Manager the middleware uses.
type SessionTracker interface {
	GetSession(ctx context.Context, id string) (*model.Session, error)
	RecordAction(ctx context.Context, id string) (int, error)
}

// SessionLimit counts every request carrying X-Session-ID against that
// session's action budget. Requests without the header pass through. It must
// run after Auth.
func SessionLimit(sessions SessionTracker) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get(SessionIDHeader)
		if id == "" {
			return c.Next()
		}
		ctx := c.UserContext()

		s, err := sessions.GetSession(ctx, id)
		if errors.Is(err, session.ErrNotFound) {
			return WriteError(c, fiber.StatusUnauthorized, "SESSION_INVALID", "session expired or unknown")
		}
		if err != nil {
			return WriteError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		if uid, _ := c.Locals(UserIDLocalKey).(string); uid != s.UserID {
			return WriteError(c, fiber.StatusForbidden, "SESSION_FORBIDDEN", "session belongs to another user")
		}

		switch _, err := sessions.RecordAction(ctx, id); {
		case errors.Is(err, session.ErrActionLimit):
			return WriteError(c, fiber.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED", "session action limit reached")
		case errors.Is(err, session.ErrNotFound):
			return WriteError(c, fiber.StatusUnauthorized, "SESSION_INVALID", "session expired or unknown")
		case err != nil:
			return WriteError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}

		c.Locals(SessionLocalKey, s)
		return c.Next()
	}
}
