// Package app wires configuration into the backend client, caches, repositories
// and services shared by the HTTP server and the CLI.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"docarchive/internal/backend"
	"docarchive/internal/cache"
	"docarchive/internal/config"
	"docarchive/internal/repository/remote"
	"docarchive/internal/rolegate"
	"docarchive/internal/service"
	"docarchive/internal/storage"
	"docarchive/internal/upload"
)

const redisPrefix = "docarchive:"

// SetupLogger picks the log handler by environment: text on local, JSON elsewhere.
func SetupLogger(env string, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}
	switch env {
	case config.EnvProd:
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo}))
	case config.EnvDev:
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
	default:
		return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
}

// App holds the wired services. Close releases what Build opened.
type App struct {
	Backend    *backend.Client
	Cache      *cache.Cache
	Store      storage.Storage
	Uploads    *upload.Orchestrator
	Gates      *rolegate.Registry
	Documents  service.DocumentService
	Categories service.CategoryService
	Users      service.UserService
	Profiles   service.ProfileService
	Registry   *prometheus.Registry

	redis *redis.Client
}

// Build connects to the backend, the cache store and, when configured, MinIO.
func Build(ctx context.Context, cfg *config.AppConfig, log *slog.Logger) (*App, error) {
	const op = "app.Build"

	a := &App{Registry: prometheus.NewRegistry()}
	a.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	a.Backend = backend.NewClient(cfg.Backend.URL,
		backend.WithTimeout(cfg.Backend.Timeout),
		backend.WithMaxReplyBytes(cfg.Backend.MaxReplyBytes),
	)

	var store cache.Store
	switch cfg.Cache.Store {
	case config.CacheStoreRedis:
		client, err := cache.DialRedis(ctx, cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		a.redis = client
		store = cache.NewRedisStore(client, redisPrefix)
	default:
		store = cache.NewMemoryStore()
	}
	a.Cache = cache.New(store, cfg.Cache.StaleAfter, log)
	if err := a.Cache.Register(a.Registry); err != nil {
		a.Close()
		return nil, fmt.Errorf("%s: register cache metrics: %w", op, err)
	}

	docs := remote.NewDocuments(a.Backend, a.Cache, log)
	cats := remote.NewCategories(a.Backend, a.Cache, log)

	opts := []upload.Option{
		upload.WithMaxBytes(cfg.Upload.MaxBytes),
		upload.WithAllowedTypes(cfg.Upload.AllowedTypes),
	}
	if cfg.ObjectStoreEnabled() {
		m, err := storage.NewMinIO(ctx, cfg.MinIO)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		a.Store = m
		opts = append(opts, upload.WithObjectStore(m))
		log.Info("object store enabled", slog.String("op", op), slog.String("bucket", cfg.MinIO.Bucket))
	}

	a.Uploads = upload.NewOrchestrator(docs, cats, log, opts...)
	if err := a.Uploads.Register(a.Registry); err != nil {
		a.Close()
		return nil, fmt.Errorf("%s: register upload metrics: %w", op, err)
	}

	a.Documents = service.NewDocumentService(docs, cats, a.Uploads, a.Store, service.DocumentOptions{
		PageSize:    cfg.PageSize,
		MetricsMode: cfg.MetricsMode,
		Location:    cfg.Location,
	}, log)
	a.Categories = service.NewCategoryService(cats)
	a.Users = service.NewUserService(remote.NewUsers(a.Backend, a.Cache, log))
	a.Profiles = service.NewProfileService(remote.NewProfiles(a.Backend, a.Cache, log))

	gateCfg := rolegate.DefaultConfig()
	gateCfg.Timeout = cfg.RoleCheck.Timeout
	gateCfg.Retries = cfg.RoleCheck.Retries
	gateCfg.StaleAfter = cfg.RoleCheck.StaleAfter
	gateCfg.IdleAfter = cfg.RoleCheck.IdleAfter
	gateCfg.MaxGates = cfg.RoleCheck.MaxGates
	a.Gates = rolegate.NewRegistry(a.Backend, gateCfg, log)

	return a, nil
}

// Close tears down role gates and the Redis connection.
func (a *App) Close() {
	if a.Gates != nil {
		a.Gates.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
}
