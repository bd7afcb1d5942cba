package handler

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"docgate/internal/service"
)

// OperatorCheck decides who may lift a leak pause. Publishers are trusted
// with it.
type OperatorCheck interface {
	CanPublish(ctx context.Context, userID string) bool
}

// ResumeService lifts the pause set after an output leak.
func ResumeService(svc service.TranslationService, ops OperatorCheck) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor := actorFromCtx(c)
		if !ops.CanPublish(c.UserContext(), actor.UserID) {
			return writeError(c, fiber.StatusForbidden, "FORBIDDEN", "not allowed to resume the service")
		}
		resumed := svc.Resume(c.UserContext(), actor.UserID)
		return c.JSON(fiber.Map{"resumed": resumed, "paused": svc.Paused()})
	}
}
