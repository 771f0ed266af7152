// Package rolegate resolves the caller's role and decides whether a guarded view may
// be shown. A Gate runs one role check per identity under a deadline with bounded
// retries; Guards evaluate the outcome per view.
package rolegate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"docarchive/internal/model"
	"docarchive/internal/session"
)

const pkg = "rolegate/"

// ErrTimeout is the failure recorded when the role check misses its deadline.
var ErrTimeout = errors.New("role check timed out")

// State is what a guarded view renders.
type State string

const (
	StateUnauthenticated State = "unauthenticated"
	StateCheckingRole    State = "checking_role"
	StateAuthorized      State = "authorized"
	StateUnauthorized    State = "unauthorized"
	StateError           State = "error"
)

// Guard holds the requirements of one view. The two predicates compose: a view
// may require both.
type Guard struct {
	RequireUser  bool
	RequireAdmin bool
}

// Allows reports whether role satisfies g. A guest never passes a guard with a requirement.
func (g Guard) Allows(role model.Role) bool {
	if !g.RequireUser && !g.RequireAdmin {
		return true
	}
	if role == model.RoleGuest || !role.Valid() {
		return false
	}
	if g.RequireAdmin && role != model.RoleAdmin {
		return false
	}
	return true
}

// RoleSource resolves the role of the principal carried by ctx.
type RoleSource interface {
	GetCallerUserRole(ctx context.Context) (model.Role, error)
}

// Config tunes a Gate.
type Config struct {
	// Timeout is the deadline of one check, retries included.
	Timeout time.Duration
	// Retries is how many times a failed fetch is repeated.
	Retries int
	// StaleAfter is how long a resolved role is trusted before it is checked again.
	StaleAfter time.Duration
	// BackoffBase and BackoffMax bound the wait between attempts: min(base*2^n, max).
	BackoffBase time.Duration
	BackoffMax  time.Duration
	// IdleAfter is how long a Registry keeps a settled gate nobody asked for.
	// Zero falls back to StaleAfter.
	IdleAfter time.Duration
	// MaxGates caps the gates a Registry keeps. Zero means no cap.
	MaxGates int
}

// DefaultConfig matches the production tuning.
func DefaultConfig() Config {
	return Config{
		Timeout:     15 * time.Second,
		Retries:     2,
		StaleAfter:  5 * time.Minute,
		BackoffBase: time.Second,
		BackoffMax:  5 * time.Second,
		MaxGates:    10000,
	}
}

func (c Config) idleAfter() time.Duration {
	if c.IdleAfter > 0 {
		return c.IdleAfter
	}
	return c.StaleAfter
}

func (c Config) backoff(attempt int) time.Duration {
	d := c.BackoffBase << attempt
	if d <= 0 || d > c.BackoffMax {
		return c.BackoffMax
	}
	return d
}

// Status is a snapshot of a Gate evaluated against a Guard.
type Status struct {
	State    State      `json:"state"`
	Role     model.Role `json:"role,omitempty"`
	Attempt  int        `json:"attempt,omitempty"`
	Deadline time.Time  `json:"deadline,omitempty"`
	TimedOut bool       `json:"timed_out,omitempty"`
	Err      error      `json:"-"`
}

type phase int

const (
	phaseIdle phase = iota
	phaseChecking
	phaseResolved
	phaseFailed
)

// Gate owns the role check of one identity. It is safe for concurrent use.
type Gate struct {
	src RoleSource
	cfg Config
	log *slog.Logger
	now func() time.Time

	mu         sync.Mutex
	principal  model.Principal
	phase      phase
	gen        uint64
	attempt    int
	deadline   time.Time
	role       model.Role
	resolvedAt time.Time
	err        error
	timedOut   bool
	timer      *time.Timer
	cancel     context.CancelFunc
	done       chan struct{}
	closed     bool
}

// NewGate creates a Gate for principal and starts checking its role. A zero
// principal leaves the gate unauthenticated.
func NewGate(src RoleSource, principal model.Principal, cfg Config, log *slog.Logger) *Gate {
	g := &Gate{
		src:       src,
		cfg:       cfg,
		log:       log.With(slog.String("principal", principal.Short())),
		now:       time.Now,
		principal: principal,
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if !principal.IsZero() {
		g.startLocked()
	}
	return g
}

// Principal returns the identity the gate currently checks.
func (g *Gate) Principal() model.Principal {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.principal
}

// Status evaluates the gate against guard without waiting.
func (g *Gate) Status(guard Guard) Status {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.statusLocked(guard)
}

// Wait blocks while the role check is in progress, then evaluates guard. A role
// older than StaleAfter is checked again first. The returned error is only ever
// ctx.Err(); check failures are reported through Status.
func (g *Gate) Wait(ctx context.Context, guard Guard) (Status, error) {
	for {
		g.mu.Lock()
		if g.phase == phaseResolved && g.cfg.StaleAfter > 0 && g.now().Sub(g.resolvedAt) >= g.cfg.StaleAfter && !g.closed {
			g.log.Debug("role is stale, checking again", slog.String("op", pkg+"Wait"))
			g.startLocked()
		}
		if g.phase != phaseChecking {
			st := g.statusLocked(guard)
			g.mu.Unlock()
			return st, nil
		}
		done := g.done
		g.mu.Unlock()

		select {
		case <-done:
		case <-ctx.Done():
			return g.Status(guard), ctx.Err()
		}
	}
}

// Retry starts a fresh check with a fresh deadline. It does nothing while
// unauthenticated or closed.
func (g *Gate) Retry() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed || g.principal.IsZero() {
		return
	}
	g.log.Info("role check retried", slog.String("op", pkg+"Retry"))
	g.startLocked()
}

// SetIdentity switches the gate to principal. A new identity discards any previous
// role, error or timeout and starts over; setting the same identity again is a no-op.
func (g *Gate) SetIdentity(principal model.Principal) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed || principal == g.principal {
		return
	}
	g.principal = principal
	g.log = g.log.With(slog.String("principal", principal.Short()))
	if principal.IsZero() {
		g.stopLocked()
		g.phase = phaseIdle
		g.role, g.err, g.timedOut = "", nil, false
		return
	}
	g.startLocked()
}

// Close stops the timer and any fetch in flight. The gate stays unauthenticated afterwards.
func (g *Gate) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return
	}
	g.closed = true
	g.stopLocked()
	g.phase = phaseIdle
	g.role, g.err, g.timedOut = "", nil, false
}

// settled reports whether no check is in progress.
func (g *Gate) settled() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.phase != phaseChecking
}

func (g *Gate) statusLocked(guard Guard) Status {
	switch g.phase {
	case phaseChecking:
		return Status{State: StateCheckingRole, Attempt: g.attempt, Deadline: g.deadline}
	case phaseFailed:
		return Status{State: StateError, TimedOut: g.timedOut, Err: g.err}
	case phaseResolved:
		st := Status{State: StateUnauthorized, Role: g.role}
		if guard.Allows(g.role) {
			st.State = StateAuthorized
		}
		return st
	}
	return Status{State: StateUnauthenticated}
}

// stopLocked invalidates the running check, if any. Callers hold mu.
func (g *Gate) stopLocked() {
	g.gen++
	if g.timer != nil {
		g.timer.Stop()
		g.timer = nil
	}
	if g.cancel != nil {
		g.cancel()
		g.cancel = nil
	}
	if g.phase == phaseChecking && g.done != nil {
		close(g.done)
	}
	g.done = nil
}

// startLocked begins a new check. Callers hold mu.
func (g *Gate) startLocked() {
	g.stopLocked()

	gen := g.gen
	g.phase = phaseChecking
	g.attempt = 0
	g.deadline = g.now().Add(g.cfg.Timeout)
	g.err, g.timedOut = nil, false
	g.done = make(chan struct{})

	ctx, cancel := context.WithCancel(session.WithPrincipal(context.Background(), g.principal))
	g.cancel = cancel
	g.timer = time.AfterFunc(g.cfg.Timeout, func() { g.expire(gen) })

	go g.fetch(ctx, gen)
}

func (g *Gate) fetch(ctx context.Context, gen uint64) {
	var lastErr error
	for attempt := 0; attempt <= g.cfg.Retries; attempt++ {
		if attempt > 0 {
			g.mu.Lock()
			if g.gen == gen {
				g.attempt = attempt
			}
			g.mu.Unlock()

			select {
			case <-time.After(g.cfg.backoff(attempt - 1)):
			case <-ctx.Done():
				return
			}
		}

		role, err := g.src.GetCallerUserRole(ctx)
		if err == nil {
			g.complete(gen, role, nil)
			return
		}
		if ctx.Err() != nil {
			return
		}
		lastErr = err
		g.log.Warn("role check attempt failed",
			slog.String("op", pkg+"fetch"),
			slog.Int("attempt", attempt+1),
			slog.String("error", err.Error()),
		)
	}
	g.complete(gen, "", fmt.Errorf("resolve role: %w", lastErr))
}

// complete records the outcome of check gen; outcomes of superseded checks are dropped.
func (g *Gate) complete(gen uint64, role model.Role, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if gen != g.gen || g.phase != phaseChecking {
		return
	}
	if err != nil {
		g.phase = phaseFailed
		g.err = err
		g.log.Error("role check failed", slog.String("op", pkg+"complete"), slog.String("error", err.Error()))
	} else {
		g.phase = phaseResolved
		g.role = role
		g.resolvedAt = g.now()
		g.log.Debug("role resolved", slog.String("op", pkg+"complete"), slog.String("role", string(role)))
	}
	g.finishLocked()
}

func (g *Gate) expire(gen uint64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if gen != g.gen || g.phase != phaseChecking {
		return
	}
	g.phase = phaseFailed
	g.err = ErrTimeout
	g.timedOut = true
	g.log.Warn("role check timed out", slog.String("op", pkg+"expire"), slog.Duration("timeout", g.cfg.Timeout))
	g.finishLocked()
}

// finishLocked releases the resources of the current check after it settled.
func (g *Gate) finishLocked() {
	if g.timer != nil {
		g.timer.Stop()
		g.timer = nil
	}
	if g.cancel != nil {
		g.cancel()
		g.cancel = nil
	}
	close(g.done)
	g.done = nil
}
