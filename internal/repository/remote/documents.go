package remote

import (
	"context"
	"log/slog"

	"docarchive/internal/backend"
	"docarchive/internal/cache"
	"docarchive/internal/model"
	"docarchive/internal/repository"
)

// Documents is a repository.DocumentRepository backed by the archive backend.
type Documents struct {
	be    backend.Backend
	cache *cache.Cache
	log   *slog.Logger
}

var _ repository.DocumentRepository = (*Documents)(nil)

// NewDocuments creates a Documents repository.
func NewDocuments(be backend.Backend, c *cache.Cache, log *slog.Logger) *Documents {
	return &Documents{be: be, cache: c, log: log}
}

// List is keyed by the server-side filter tuple only; text search and paging happen after.
func (r *Documents) List(ctx context.Context, f model.DocumentFilter) ([]model.Document, error) {
	return cache.Fetch(ctx, r.cache, cache.Documents, scoped(ctx, f.Key()), func(ctx context.Context) ([]model.Document, error) {
		docs, err := r.be.FilterDocuments(ctx, f)
		if err != nil {
			return nil, err
		}
		if docs == nil {
			docs = []model.Document{}
		}
		return docs, nil
	})
}

func (r *Documents) FindByID(ctx context.Context, id string) (*model.Document, error) {
	return cache.Fetch(ctx, r.cache, cache.Document, scoped(ctx, id), func(ctx context.Context) (*model.Document, error) {
		return r.be.GetDocument(ctx, id)
	})
}

func (r *Documents) Create(ctx context.Context, doc model.NewDocument) error {
	if err := r.be.AddDocument(ctx, doc); err != nil {
		return err
	}
	invalidate(ctx, r.cache, r.log, pkg+"Documents.Create", cache.Documents, cache.Document, cache.DashboardMetrics)
	return nil
}

func (r *Documents) Delete(ctx context.Context, id string) error {
	if err := r.be.RemoveDocument(ctx, id); err != nil {
		return err
	}
	invalidate(ctx, r.cache, r.log, pkg+"Documents.Delete", cache.Documents, cache.Document, cache.DashboardMetrics)
	return nil
}

func (r *Documents) Metrics(ctx context.Context) (*model.DashboardMetrics, error) {
	return cache.Fetch(ctx, r.cache, cache.DashboardMetrics, scoped(ctx, "all"), func(ctx context.Context) (*model.DashboardMetrics, error) {
		return r.be.GetDashboardMetrics(ctx)
	})
}
