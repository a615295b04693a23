package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/codebuildervaibhav/skill-dashboard/internal/apperr"
)

// writeError renders err as {"error", "code"}. The cause is logged, never returned.
func writeError(c *fiber.Ctx, err error) error {
	appErr := apperr.As(err)
	if appErr.HTTPStatus >= fiber.StatusInternalServerError {
		log.Error().Err(err).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Str("code", string(appErr.Code)).
			Msg("Request failed")
	}
	return c.Status(appErr.HTTPStatus).JSON(fiber.Map{
		"error": appErr.Message,
		"code":  appErr.Code,
	})
}
