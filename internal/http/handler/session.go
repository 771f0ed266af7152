package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"docarchive/internal/http/middleware"
	"docarchive/internal/model"
	"docarchive/internal/rolegate"
)

// NavItem is one entry of the application navigation.
type NavItem struct {
	Label string `json:"label"`
	Path  string `json:"path"`
}

// SessionResponse describes the caller's role gate and what they may navigate to.
type SessionResponse struct {
	Principal string          `json:"principal,omitempty"`
	Status    rolegate.Status `json:"status"`
	Nav       []NavItem       `json:"nav"`
}

// sessionGuard is the requirement the session view is evaluated against.
var sessionGuard = rolegate.Guard{RequireUser: true}

// maxSessionWait bounds how long GET /api/session?wait=true blocks.
const maxSessionWait = 20 * time.Second

// Navigation lists the views visible for a resolved role. Settings is admin only.
func Navigation(role model.Role) []NavItem {
	if !sessionGuard.Allows(role) {
		return []NavItem{}
	}
	nav := []NavItem{
		{Label: "Dashboard", Path: "/"},
		{Label: "Documents", Path: "/documents"},
		{Label: "Upload", Path: "/upload"},
	}
	if role == model.RoleAdmin {
		nav = append(nav, NavItem{Label: "Settings", Path: "/settings"})
	}
	return nav
}

func sessionResponse(p model.Principal, st rolegate.Status) SessionResponse {
	res := SessionResponse{Principal: p.Short(), Status: st, Nav: []NavItem{}}
	if st.State == rolegate.StateAuthorized {
		res.Nav = Navigation(st.Role)
	}
	return res
}

// GetSession reports the caller's role gate. With wait=true it blocks until a
// check in progress settles.
func GetSession(gates *rolegate.Registry) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p := middleware.PrincipalFrom(c)
		gate := gates.Gate(p)

		st := gate.Status(sessionGuard)
		if c.QueryBool("wait") {
			ctx, cancel := context.WithTimeout(c.UserContext(), maxSessionWait)
			defer cancel()
			st, _ = gate.Wait(ctx, sessionGuard)
		}
		return c.JSON(sessionResponse(p, st))
	}
}

// RetrySession restarts the caller's role check with a fresh deadline.
func RetrySession(gates *rolegate.Registry) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p := middleware.PrincipalFrom(c)
		if p.IsZero() {
			return writeError(c, fiber.StatusUnauthorized, "UNAUTHENTICATED", "please log in to continue")
		}
		gate := gates.Gate(p)
		gate.Retry()
		return c.Status(fiber.StatusAccepted).JSON(sessionResponse(p, gate.Status(sessionGuard)))
	}
}

// DeleteSession logs the caller out by tearing down their role gate.
func DeleteSession(gates *rolegate.Registry) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if p := middleware.PrincipalFrom(c); !p.IsZero() {
			gates.Forget(p)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
