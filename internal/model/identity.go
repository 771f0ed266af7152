package model

import (
	"strings"
	"time"
)

// Principal is the opaque identity of an authenticated caller as issued by the identity provider.
// Clients may only render it and compare it for equality.
type Principal string

func (p Principal) String() string { return string(p) }

// Short renders the principal truncated for display, e.g. "2vxsx...uaaae".
func (p Principal) Short() string {
	s := string(p)
	if len(s) <= 16 {
		return s
	}
	return s[:5] + "..." + s[len(s)-5:]
}

// IsZero reports whether no principal is set.
func (p Principal) IsZero() bool { return strings.TrimSpace(string(p)) == "" }

// Role is the caller role resolved by the backend. It drives navigation visibility;
// enforcement stays with the backend.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
	RoleGuest Role = "guest"
)

// Valid reports whether r is a known caller role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser || r == RoleGuest
}

// AccountRole is the role stored on a managed user account.
type AccountRole string

const (
	AccountRoleSupervisor AccountRole = "supervisor"
	AccountRoleAdmin      AccountRole = "admin"
)

// Valid reports whether r is a known account role.
func (r AccountRole) Valid() bool {
	return r == AccountRoleSupervisor || r == AccountRoleAdmin
}

// UserAccount is a managed username/password account.
type UserAccount struct {
	Username     string      `json:"username"`
	Role         AccountRole `json:"role"`
	PasswordHash string      `json:"passwordHash"`
}

// UserProfile is the caller's display profile.
type UserProfile struct {
	Name string `json:"name"`
}

// Time is an instant in nanoseconds since the Unix epoch, the backend's time unit.
type Time int64

const nanosPerMilli = 1_000_000

// TimeOf converts a local time to backend time with millisecond precision,
// i.e. floor(ms) * 1_000_000.
func TimeOf(t time.Time) Time {
	return Time(t.UnixMilli() * nanosPerMilli)
}

// In converts backend time to a time.Time in loc.
func (t Time) In(loc *time.Location) time.Time {
	return time.UnixMilli(int64(t) / nanosPerMilli).In(loc)
}
