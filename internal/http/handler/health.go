package handler

import (
	"context"
	"database/sql"
	"time"

	"github.com/gofiber/fiber/v2"

	"docgate/internal/model"
)

// HealthCheck pings the database. Without a database the service runs on
// in-memory stores and always reports healthy.
func HealthCheck(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if db == nil {
			return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "healthy"})
		}
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "dependency unavailable")
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "healthy"})
	}
}

// LivenessProbe is a dependency-free liveness check.
func LivenessProbe() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	}
}

// CircuitLister reports breaker snapshots.
type CircuitLister interface {
	States() []model.CircuitState
}

// Pauser reports whether generation is paused.
type Pauser interface {
	Paused() bool
}

// ListCircuits reports breaker states and whether generation is paused.
func ListCircuits(circuits CircuitLister, p Pauser) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"paused":   p.Paused(),
			"circuits": circuits.States(),
		})
	}
}
