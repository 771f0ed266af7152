// Package session carries the authenticated caller's identity, and the id of the
// request acting for it, through request contexts.
package session

import (
	"context"
	"errors"
	"strings"

	"docarchive/internal/model"
)

// ErrNoIdentity is returned when a call requires an authenticated caller and none is present.
var ErrNoIdentity = errors.New("not authenticated")

// RequestIDHeader names the request id in inbound requests, responses and backend calls.
const RequestIDHeader = "X-Request-ID"

type (
	principalKey struct{}
	requestIDKey struct{}
)

// WithPrincipal returns a copy of ctx that carries p.
func WithPrincipal(ctx context.Context, p model.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the principal stored in ctx.
func PrincipalFrom(ctx context.Context) (model.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(model.Principal)
	if !ok || p.IsZero() {
		return "", false
	}
	return p, true
}

// MustPrincipal is PrincipalFrom returning ErrNoIdentity instead of a bool.
func MustPrincipal(ctx context.Context) (model.Principal, error) {
	p, ok := PrincipalFrom(ctx)
	if !ok {
		return "", ErrNoIdentity
	}
	return p, nil
}

// ParseBearer extracts the principal from an "Authorization: Bearer <principal>" value.
func ParseBearer(header string) (model.Principal, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	p := model.Principal(strings.TrimSpace(token))
	if p.IsZero() {
		return "", false
	}
	return p, true
}

// WithRequestID returns a copy of ctx that carries the request id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFrom returns the request id stored in ctx.
func RequestIDFrom(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDKey{}).(string)
	return id, ok && id != ""
}
