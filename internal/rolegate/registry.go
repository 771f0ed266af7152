package rolegate

import (
	"log/slog"
	"sync"
	"time"

	"docarchive/internal/model"
)

// Registry keeps one Gate per identity for the lifetime of its session. Gates
// whose check has settled are dropped once unused for Config.IdleAfter, and
// the least recently used gate is dropped when Config.MaxGates would be exceeded.
type Registry struct {
	src RoleSource
	cfg Config
	log *slog.Logger
	now func() time.Time

	mu        sync.Mutex
	gates     map[model.Principal]*entry
	lastSweep time.Time
	closed    bool
}

type entry struct {
	gate     *Gate
	lastUsed time.Time
}

// NewRegistry creates an empty Registry whose gates fetch roles from src.
func NewRegistry(src RoleSource, cfg Config, log *slog.Logger) *Registry {
	return &Registry{
		src:   src,
		cfg:   cfg,
		log:   log,
		now:   time.Now,
		gates: make(map[model.Principal]*entry),
	}
}

// Gate returns the gate of principal, creating and starting it on first use. After
// Close, and for a zero principal, it returns an unauthenticated gate that is not kept.
func (r *Registry) Gate(principal model.Principal) *Gate {
	r.mu.Lock()
	if r.closed || principal.IsZero() {
		r.mu.Unlock()
		return NewGate(r.src, "", r.cfg, r.log)
	}

	now := r.now()
	e, ok := r.gates[principal]
	if ok {
		e.lastUsed = now
	}
	evicted := r.sweepLocked(now)
	if !ok {
		if limit := r.cfg.MaxGates; limit > 0 && len(r.gates) >= limit {
			evicted = append(evicted, r.evictOldestLocked())
		}
		e = &entry{gate: NewGate(r.src, principal, r.cfg, r.log)}
		r.gates[principal] = e
	}
	e.lastUsed = now
	r.mu.Unlock()

	for _, g := range evicted {
		g.Close()
	}
	return e.gate
}

// sweepLocked removes settled gates idle for longer than IdleAfter. It scans at
// most once per quarter of that window. Callers hold mu and close the result.
func (r *Registry) sweepLocked(now time.Time) []*Gate {
	idle := r.cfg.idleAfter()
	if idle <= 0 || now.Sub(r.lastSweep) < idle/4 {
		return nil
	}
	r.lastSweep = now

	var out []*Gate
	for p, e := range r.gates {
		if now.Sub(e.lastUsed) >= idle && e.gate.settled() {
			delete(r.gates, p)
			out = append(out, e.gate)
		}
	}
	if len(out) > 0 {
		r.log.Debug("idle role gates dropped", slog.String("op", pkg+"sweep"), slog.Int("count", len(out)))
	}
	return out
}

// evictOldestLocked removes the least recently used gate. Callers hold mu and
// the map is not empty.
func (r *Registry) evictOldestLocked() *Gate {
	var (
		oldest model.Principal
		at     time.Time
		first  = true
	)
	for p, e := range r.gates {
		if first || e.lastUsed.Before(at) {
			oldest, at, first = p, e.lastUsed, false
		}
	}
	g := r.gates[oldest].gate
	delete(r.gates, oldest)
	return g
}

// Forget tears down the gate of principal, as on logout.
func (r *Registry) Forget(principal model.Principal) {
	r.mu.Lock()
	e, ok := r.gates[principal]
	delete(r.gates, principal)
	r.mu.Unlock()
	if ok {
		e.gate.Close()
	}
}

// Len returns the number of live gates.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.gates)
}

// Close tears down every gate. Later calls to Gate return unauthenticated gates.
func (r *Registry) Close() {
	r.mu.Lock()
	gates := r.gates
	r.gates = make(map[model.Principal]*entry)
	r.closed = true
	r.mu.Unlock()

	for _, e := range gates {
		e.gate.Close()
	}
}
