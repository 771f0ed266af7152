package remote

import (
	"context"
	"log/slog"

	"docarchive/internal/backend"
	"docarchive/internal/cache"
	"docarchive/internal/model"
	"docarchive/internal/repository"
)

// Users is a repository.UserRepository backed by the archive backend.
type Users struct {
	be    backend.Backend
	cache *cache.Cache
	log   *slog.Logger
}

var _ repository.UserRepository = (*Users)(nil)

func NewUsers(be backend.Backend, c *cache.Cache, log *slog.Logger) *Users {
	return &Users{be: be, cache: c, log: log}
}

func (r *Users) List(ctx context.Context) ([]model.UserAccount, error) {
	return cache.Fetch(ctx, r.cache, cache.Users, scoped(ctx, "all"), func(ctx context.Context) ([]model.UserAccount, error) {
		users, err := r.be.ListUsers(ctx)
		if err != nil {
			return nil, err
		}
		if users == nil {
			users = []model.UserAccount{}
		}
		return users, nil
	})
}

// Find is not cached; it backs existence checks right before writes.
func (r *Users) Find(ctx context.Context, username string) (*model.UserAccount, error) {
	return r.be.GetUser(ctx, username)
}

func (r *Users) Create(ctx context.Context, username, passwordHash string, role model.AccountRole) error {
	if err := r.be.CreateUser(ctx, username, passwordHash, role); err != nil {
		return err
	}
	invalidate(ctx, r.cache, r.log, pkg+"Users.Create", cache.Users)
	return nil
}

func (r *Users) Update(ctx context.Context, username string, passwordHash *string, role *model.AccountRole) error {
	if err := r.be.UpdateUser(ctx, username, passwordHash, role); err != nil {
		return err
	}
	invalidate(ctx, r.cache, r.log, pkg+"Users.Update", cache.Users)
	return nil
}

func (r *Users) Delete(ctx context.Context, username string) error {
	if err := r.be.DeleteUser(ctx, username); err != nil {
		return err
	}
	invalidate(ctx, r.cache, r.log, pkg+"Users.Delete", cache.Users)
	return nil
}

func (r *Users) Authenticate(ctx context.Context, username, passwordHash string) (bool, error) {
	return r.be.Authenticate(ctx, username, passwordHash)
}

// Profiles is a repository.ProfileRepository backed by the archive backend.
type Profiles struct {
	be    backend.Backend
	cache *cache.Cache
	log   *slog.Logger
}

var _ repository.ProfileRepository = (*Profiles)(nil)

func NewProfiles(be backend.Backend, c *cache.Cache, log *slog.Logger) *Profiles {
	return &Profiles{be: be, cache: c, log: log}
}

func (r *Profiles) Get(ctx context.Context) (*model.UserProfile, error) {
	return cache.Fetch(ctx, r.cache, cache.CallerProfile, scoped(ctx, "self"), func(ctx context.Context) (*model.UserProfile, error) {
		return r.be.GetCallerUserProfile(ctx)
	})
}

func (r *Profiles) Save(ctx context.Context, p model.UserProfile) error {
	if err := r.be.SaveCallerUserProfile(ctx, p); err != nil {
		return err
	}
	invalidate(ctx, r.cache, r.log, pkg+"Profiles.Save", cache.CallerProfile)
	return nil
}
