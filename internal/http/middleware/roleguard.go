package middleware

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"docarchive/internal/model"
	"docarchive/internal/rolegate"
)

// RoleLocalKey is the key under which RequireRole stores the resolved role.
const RoleLocalKey = "role"

// GateError is returned by RequireRole when the caller may not reach a route.
type GateError struct {
	Status rolegate.Status
}

func (e *GateError) Error() string {
	if e.Status.Err != nil {
		return fmt.Sprintf("role gate %s: %v", e.Status.State, e.Status.Err)
	}
	return "role gate " + string(e.Status.State)
}

func (e *GateError) Unwrap() error { return e.Status.Err }

// HTTPStatus maps the gate state to a response status.
func (e *GateError) HTTPStatus() int {
	switch {
	case e.Status.State == rolegate.StateUnauthenticated:
		return fiber.StatusUnauthorized
	case e.Status.State == rolegate.StateUnauthorized:
		return fiber.StatusForbidden
	case e.Status.TimedOut:
		return fiber.StatusGatewayTimeout
	default:
		return fiber.StatusBadGateway
	}
}

// Code is the machine-readable error code of the denial.
func (e *GateError) Code() string {
	switch {
	case e.Status.State == rolegate.StateUnauthenticated:
		return "UNAUTHENTICATED"
	case e.Status.State == rolegate.StateUnauthorized:
		return "UNAUTHORIZED"
	case e.Status.TimedOut:
		return "ROLE_CHECK_TIMEOUT"
	default:
		return "ROLE_CHECK_FAILED"
	}
}

// Message is the user-facing text of the denial.
func (e *GateError) Message() string {
	switch {
	case e.Status.State == rolegate.StateUnauthenticated:
		return "please log in to continue"
	case e.Status.State == rolegate.StateUnauthorized:
		return "you do not have permission to access this page"
	case e.Status.TimedOut:
		return "role check timed out, please retry"
	default:
		return "could not verify your role, please retry"
	}
}

// RequireRole lets a request through only when the caller's gate authorizes guard.
// It waits for a role check in progress. Run Identity first.
func RequireRole(gates *rolegate.Registry, guard rolegate.Guard) fiber.Handler {
	return func(c *fiber.Ctx) error {
		st, err := gates.Gate(PrincipalFrom(c)).Wait(c.UserContext(), guard)
		if err != nil {
			return err
		}
		if st.State != rolegate.StateAuthorized {
			return &GateError{Status: st}
		}
		c.Locals(RoleLocalKey, st.Role)
		return c.Next()
	}
}

// RoleFrom returns the role stored by RequireRole.
func RoleFrom(c *fiber.Ctx) model.Role {
	r, _ := c.Locals(RoleLocalKey).(model.Role)
	return r
}
