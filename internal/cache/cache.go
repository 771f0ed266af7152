// Package cache is the query cache in front of the backend. Results are keyed by
// collection and query parameters, served until they go stale, and dropped
// wholesale when a mutation invalidates their collection. Identical concurrent
// queries collapse into one backend call.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/singleflight"
)

const pkg = "cache/"

// Collections used by the query layer.
const (
	Documents        = "documents"
	Document         = "document"
	DashboardMetrics = "dashboardMetrics"
	Categories       = "categories"
	CallerProfile    = "profile"
	Users            = "users"
)

// Store is the key/value backend of the cache. Get returns "" for a missing key.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Incr(ctx context.Context, key string) (int64, error)
}

// Cache wraps a Store with staleness, de-duplication and invalidation.
type Cache struct {
	store      Store
	staleAfter time.Duration
	log        *slog.Logger
	group      singleflight.Group
	lookups    *prometheus.CounterVec
}

// New returns a Cache over store. staleAfter <= 0 disables result reuse;
// concurrent identical queries are still collapsed.
func New(store Store, staleAfter time.Duration, log *slog.Logger) *Cache {
	return &Cache{
		store:      store,
		staleAfter: staleAfter,
		log:        log,
		lookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "query_cache_lookups_total",
				Help: "Query cache lookups by collection and result.",
			},
			[]string{"collection", "result"},
		),
	}
}

// Register exposes the cache counters on reg.
func (c *Cache) Register(reg prometheus.Registerer) error {
	return reg.Register(c.lookups)
}

// Invalidate drops every cached entry of the given collections.
func (c *Cache) Invalidate(ctx context.Context, collections ...string) error {
	for _, col := range collections {
		if _, err := c.store.Incr(ctx, generationKey(col)); err != nil {
			return fmt.Errorf("%sInvalidate %s: %w", pkg, col, err)
		}
	}
	return nil
}

// Fetch returns the cached value for (collection, key) or loads it. Callers share
// the returned value and must not mutate it.
//
// The load runs detached from the caller's cancellation so that one caller going
// away does not fail the others waiting on the same query.
func Fetch[T any](ctx context.Context, c *Cache, collection, key string, load func(context.Context) (T, error)) (T, error) {
	op := pkg + "Fetch"
	log := c.log.With(slog.String("op", op), slog.String("collection", collection))

	var zero T

	gen, err := c.generation(ctx, collection)
	if err != nil {
		log.Warn("failed to read collection generation", slog.String("error", err.Error()))
		c.lookups.WithLabelValues(collection, "error").Inc()
		return load(ctx)
	}
	full := entryKey(collection, gen, key)

	if c.staleAfter > 0 {
		raw, err := c.store.Get(ctx, full)
		if err != nil {
			log.Warn("failed to read cache entry", slog.String("error", err.Error()))
		} else if raw != "" {
			var v T
			if err := json.Unmarshal([]byte(raw), &v); err == nil {
				c.lookups.WithLabelValues(collection, "hit").Inc()
				return v, nil
			}
			log.Warn("discarding undecodable cache entry", slog.String("key", full))
		}
	}
	c.lookups.WithLabelValues(collection, "miss").Inc()

	res, err, shared := c.group.Do(full, func() (any, error) {
		v, err := load(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		if c.staleAfter > 0 {
			c.put(ctx, log, full, v)
		}
		return v, nil
	})
	if err != nil {
		return zero, err
	}
	if shared {
		log.Debug("query shared with in-flight call", slog.String("key", full))
	}
	return res.(T), nil
}

func (c *Cache) put(ctx context.Context, log *slog.Logger, key string, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error("failed to encode cache entry", slog.String("error", err.Error()))
		return
	}
	if err := c.store.Set(context.WithoutCancel(ctx), key, string(b), c.staleAfter); err != nil {
		log.Warn("failed to write cache entry", slog.String("error", err.Error()))
	}
}

func (c *Cache) generation(ctx context.Context, collection string) (int64, error) {
	raw, err := c.store.Get(ctx, generationKey(collection))
	if err != nil {
		return 0, err
	}
	if raw == "" {
		return 0, nil
	}
	return strconv.ParseInt(raw, 10, 64)
}

func generationKey(collection string) string {
	return "gen:" + collection
}

func entryKey(collection string, gen int64, key string) string {
	return fmt.Sprintf("q:%s:%d:%s", collection, gen, key)
}
