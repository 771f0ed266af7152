package remote

import (
	"context"
	"log/slog"

	"docarchive/internal/backend"
	"docarchive/internal/cache"
	"docarchive/internal/model"
	"docarchive/internal/repository"
)

// Categories is a repository.CategoryRepository backed by the archive backend.
type Categories struct {
	be    backend.Backend
	cache *cache.Cache
	log   *slog.Logger
}

var _ repository.CategoryRepository = (*Categories)(nil)

func NewCategories(be backend.Backend, c *cache.Cache, log *slog.Logger) *Categories {
	return &Categories{be: be, cache: c, log: log}
}

func (r *Categories) List(ctx context.Context) ([]model.Category, error) {
	return cache.Fetch(ctx, r.cache, cache.Categories, scoped(ctx, "all"), func(ctx context.Context) ([]model.Category, error) {
		cats, err := r.be.GetCategories(ctx)
		if err != nil {
			return nil, err
		}
		if cats == nil {
			cats = []model.Category{}
		}
		return cats, nil
	})
}

func (r *Categories) Create(ctx context.Context, id, name string) error {
	return r.write(ctx, "Create", func(ctx context.Context) error {
		return r.be.AddCategory(ctx, id, name)
	})
}

func (r *Categories) Rename(ctx context.Context, id, name string) error {
	return r.write(ctx, "Rename", func(ctx context.Context) error {
		return r.be.UpdateCategory(ctx, id, name)
	})
}

func (r *Categories) Delete(ctx context.Context, id string) error {
	return r.write(ctx, "Delete", func(ctx context.Context) error {
		return r.be.RemoveCategory(ctx, id)
	})
}

func (r *Categories) AddOffice(ctx context.Context, categoryID, officeID, name string) error {
	return r.write(ctx, "AddOffice", func(ctx context.Context) error {
		return r.be.AddOfficeToCategory(ctx, categoryID, officeID, name)
	})
}

func (r *Categories) RenameOffice(ctx context.Context, categoryID, officeID, name string) error {
	return r.write(ctx, "RenameOffice", func(ctx context.Context) error {
		return r.be.UpdateOfficeInCategory(ctx, categoryID, officeID, name)
	})
}

func (r *Categories) RemoveOffice(ctx context.Context, categoryID, officeID string) error {
	return r.write(ctx, "RemoveOffice", func(ctx context.Context) error {
		return r.be.RemoveOfficeFromCategory(ctx, categoryID, officeID)
	})
}

func (r *Categories) write(ctx context.Context, name string, call func(context.Context) error) error {
	if err := call(ctx); err != nil {
		return err
	}
	invalidate(ctx, r.cache, r.log, pkg+"Categories."+name, cache.Categories)
	return nil
}
