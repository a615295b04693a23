package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/codebuildervaibhav/skill-dashboard/internal/apperr"
)

// IdentityKey is the Locals key holding the caller's *Identity.
const IdentityKey = "auth.identity"

// Middleware rejects requests without a valid bearer token. The token is read from the
// Authorization header, or from the access_token query parameter for websocket upgrades
// where browsers cannot set headers.
func Middleware(v *Verifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := bearerToken(c.Get(fiber.HeaderAuthorization))
		if raw == "" {
			raw = c.Query("access_token")
		}

		identity, err := v.Verify(raw)
		if err != nil {
			appErr := apperr.Unauthenticated()
			return c.Status(appErr.HTTPStatus).JSON(fiber.Map{
				"error": appErr.Message,
				"code":  appErr.Code,
			})
		}

		c.Locals(IdentityKey, identity)
		return c.Next()
	}
}

// UserID returns the authenticated caller for the request, or "" when there is none.
func UserID(c *fiber.Ctx) string {
	return UserIDFrom(c.Locals(IdentityKey))
}

// UserIDFrom extracts the user from a value stored under IdentityKey. Websocket
// handlers use it with the connection's locals.
func UserIDFrom(v any) string {
	identity, ok := v.(*Identity)
	if !ok || identity == nil {
		return ""
	}
	return identity.UserID
}

func bearerToken(header string) string {
	const prefix = "bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
