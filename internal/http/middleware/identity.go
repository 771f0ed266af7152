package middleware

import (
	"github.com/gofiber/fiber/v2"

	"docarchive/internal/model"
	"docarchive/internal/session"
)

// PrincipalLocalKey is the key under which Identity stores the caller principal in locals.
const PrincipalLocalKey = "principal"

// Identity reads the caller principal from the Authorization bearer and carries it
// in the request's user context, where the backend client picks it up. Requests
// without a usable bearer continue anonymously.
func Identity() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if p, ok := session.ParseBearer(c.Get(fiber.HeaderAuthorization)); ok {
			c.Locals(PrincipalLocalKey, p)
			c.SetUserContext(session.WithPrincipal(c.UserContext(), p))
		}
		return c.Next()
	}
}

// PrincipalFrom returns the principal stored by Identity.
func PrincipalFrom(c *fiber.Ctx) model.Principal {
	p, _ := c.Locals(PrincipalLocalKey).(model.Principal)
	return p
}
