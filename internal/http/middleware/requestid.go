package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"docarchive/internal/session"
)

const (
	RequestIDHeader = session.RequestIDHeader
	// RequestIDLocalKey is the key under which RequestID stores the id in locals.
	RequestIDLocalKey = "request_id"

	maxRequestIDLen = 128
)

// RequestID tags every request with an id: the caller's X-Request-ID when it is
// usable, a fresh UUID otherwise. The id is echoed in the response, kept in locals
// for the access log and error envelope, and put in the user context so that
// backend calls made for the request forward it.
func RequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get(RequestIDHeader)
		if validRequestID(id) {
			id = strings.Clone(id)
		} else {
			id = uuid.NewString()
		}

		c.Locals(RequestIDLocalKey, id)
		c.Set(RequestIDHeader, id)
		c.SetUserContext(session.WithRequestID(c.UserContext(), id))
		return c.Next()
	}
}

// validRequestID accepts up to maxRequestIDLen visible ASCII characters.
func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] <= ' ' || id[i] > '~' {
			return false
		}
	}
	return true
}

// RequestIDFrom returns the id stored by RequestID, or "" outside of it.
func RequestIDFrom(c *fiber.Ctx) string {
	id, _ := c.Locals(RequestIDLocalKey).(string)
	return id
}
