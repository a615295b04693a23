package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/codebuildervaibhav/skill-dashboard/internal/types"
)

// Pinger checks a backing store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// LogSource returns recent log lines.
type LogSource interface {
	Lines() []string
}

// Integrations reports which external services are configured. Only booleans are
// exposed, never the values.
type Integrations struct {
	AssemblyAI bool   `json:"assemblyai"`
	Auth       bool   `json:"auth"`
	Storage    string `json:"storage"`
	History    string `json:"history"`
	Events     string `json:"events"`
}

// Health reports service status and whether the history store answers
func Health(store Pinger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()

		if err := store.Ping(ctx); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status":   "unhealthy",
				"database": "unreachable",
			})
		}
		return c.JSON(fiber.Map{
			"status":   "healthy",
			"database": "ok",
		})
	}
}

// TestEnv reports the configured integrations
func TestEnv(info Integrations) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(info)
	}
}

// Skills returns the skills catalog
func Skills(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"skills": types.Skills})
}

// Logs returns recent server log lines
func Logs(src LogSource) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"logs": src.Lines()})
	}
}
