package handler

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"

	"docgate/internal/model"
	"docgate/internal/repository"
	"docgate/internal/session"
)

// SessionStore is the part of session.Manager the handlers use.
type SessionStore interface {
	CreateSession(ctx context.Context, userID string, metadata map[string]string) (*model.Session, error)
	GetSession(ctx context.Context, id string) (*model.Session, error)
	DestroySession(ctx context.Context, id string) error
}

type createSessionRequest struct {
	Metadata map[string]string `json:"metadata" validate:"max=16,dive,keys,max=64,endkeys,max=256"`
}

// CreateSession starts an interactive session for the caller. The session
// ID is sent as X-Session-ID on later requests.
func CreateSession(sessions SessionStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body createSessionRequest
		if err := bindJSON(c, &body, true); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", err.Error())
		}
		s, err := sessions.CreateSession(c.UserContext(), actorFromCtx(c).UserID, body.Metadata)
		if err != nil {
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.Status(fiber.StatusCreated).JSON(s)
	}
}

// DeleteSession destroys one of the caller's sessions.
func DeleteSession(sessions SessionStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		ctx := c.UserContext()

		s, err := sessions.GetSession(ctx, id)
		if errors.Is(err, session.ErrNotFound) {
			return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "session not found")
		}
		if err != nil {
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		// Someone else's session is reported as missing.
		if s.UserID != actorFromCtx(c).UserID {
			return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "session not found")
		}
		if err := sessions.DestroySession(ctx, id); err != nil && !errors.Is(err, repository.ErrNotFound) {
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
