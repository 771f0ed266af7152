package remote

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"docarchive/internal/backend"
	"docarchive/internal/backend/mocks"
	"docarchive/internal/cache"
	"docarchive/internal/model"
	"docarchive/internal/session"
)

func newDeps(t *testing.T) (*mocks.MockBackend, *cache.Cache, *slog.Logger) {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return new(mocks.MockBackend), cache.New(cache.NewMemoryStore(), time.Minute, log), log
}

func TestDocuments_ListIsCachedPerFilterAndPrincipal(t *testing.T) {
	be, c, log := newDeps(t)
	repo := NewDocuments(be, c, log)

	alice := session.WithPrincipal(context.Background(), "alice")
	bob := session.WithPrincipal(context.Background(), "bob")
	inward := model.DocumentFilter{Direction: model.DirectionInward}

	be.On("FilterDocuments", mock.Anything, model.DocumentFilter{}).Return([]model.Document{{ID: "1"}}, nil).Twice()
	be.On("FilterDocuments", mock.Anything, inward).Return([]model.Document{{ID: "2"}}, nil).Once()

	for range 3 {
		docs, err := repo.List(alice, model.DocumentFilter{})
		require.NoError(t, err)
		assert.Equal(t, "1", docs[0].ID)
	}
	docs, err := repo.List(alice, inward)
	require.NoError(t, err)
	assert.Equal(t, "2", docs[0].ID)

	_, err = repo.List(bob, model.DocumentFilter{})
	require.NoError(t, err)

	be.AssertExpectations(t)
}

func TestDocuments_MutationsInvalidate(t *testing.T) {
	ctx := session.WithPrincipal(context.Background(), "alice")

	tests := []struct {
		name   string
		setup  func(be *mocks.MockBackend)
		mutate func(r *Documents) error
	}{
		{
			name:   "create",
			setup:  func(be *mocks.MockBackend) { be.On("AddDocument", ctx, mock.Anything).Return(nil) },
			mutate: func(r *Documents) error { return r.Create(ctx, model.NewDocument{ID: "n"}) },
		},
		{
			name:   "delete",
			setup:  func(be *mocks.MockBackend) { be.On("RemoveDocument", ctx, "1").Return(nil) },
			mutate: func(r *Documents) error { return r.Delete(ctx, "1") },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			be, c, log := newDeps(t)
			repo := NewDocuments(be, c, log)
			tt.setup(be)
			be.On("FilterDocuments", mock.Anything, model.DocumentFilter{}).Return([]model.Document{}, nil).Twice()
			be.On("GetDashboardMetrics", mock.Anything).Return(&model.DashboardMetrics{TotalDocuments: 1}, nil).Twice()

			_, _ = repo.List(ctx, model.DocumentFilter{})
			_, _ = repo.Metrics(ctx)
			require.NoError(t, tt.mutate(repo))
			_, _ = repo.List(ctx, model.DocumentFilter{})
			_, _ = repo.Metrics(ctx)

			be.AssertExpectations(t)
		})
	}
}

func TestDocuments_FailedMutationKeepsCache(t *testing.T) {
	be, c, log := newDeps(t)
	repo := NewDocuments(be, c, log)
	ctx := context.Background()

	be.On("FilterDocuments", mock.Anything, model.DocumentFilter{}).Return([]model.Document{}, nil).Once()
	be.On("RemoveDocument", ctx, "x").Return(&backend.RejectionError{Method: "removeDocument", Message: "Document not found"})

	_, _ = repo.List(ctx, model.DocumentFilter{})
	err := repo.Delete(ctx, "x")
	_, _ = repo.List(ctx, model.DocumentFilter{})

	assert.True(t, backend.IsRejection(err))
	be.AssertExpectations(t)
}

func TestDocuments_ErrorsPropagate(t *testing.T) {
	be, c, log := newDeps(t)
	repo := NewDocuments(be, c, log)

	be.On("GetDocument", mock.Anything, "missing").Return(nil, errors.New("boom"))

	doc, err := repo.FindByID(context.Background(), "missing")

	assert.Nil(t, doc)
	assert.EqualError(t, err, "boom")
}

func TestCategories(t *testing.T) {
	be, c, log := newDeps(t)
	repo := NewCategories(be, c, log)
	ctx := context.Background()

	be.On("GetCategories", mock.Anything).Return(nil, nil).Once()
	be.On("GetCategories", mock.Anything).Return([]model.Category{{ID: "fin", Name: "Finance"}}, nil).Once()
	be.On("AddCategory", ctx, "fin", "Finance").Return(nil)
	be.On("AddOfficeToCategory", ctx, "fin", "head-office", "Head Office").Return(nil)

	cats, err := repo.List(ctx)
	require.NoError(t, err)
	assert.NotNil(t, cats)
	assert.Empty(t, cats)

	require.NoError(t, repo.Create(ctx, "fin", "Finance"))
	cats, err = repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, cats, 1)

	require.NoError(t, repo.AddOffice(ctx, "fin", "head-office", "Head Office"))
	be.AssertExpectations(t)
}

func TestProfiles(t *testing.T) {
	be, c, log := newDeps(t)
	repo := NewProfiles(be, c, log)
	ctx := session.WithPrincipal(context.Background(), "alice")

	be.On("GetCallerUserProfile", mock.Anything).Return(nil, nil).Once()
	be.On("SaveCallerUserProfile", ctx, model.UserProfile{Name: "Alice"}).Return(nil)
	be.On("GetCallerUserProfile", mock.Anything).Return(&model.UserProfile{Name: "Alice"}, nil).Once()

	p, err := repo.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, p)

	p, err = repo.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, p, "absent profile is cached too")

	require.NoError(t, repo.Save(ctx, model.UserProfile{Name: "Alice"}))
	p, err = repo.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Alice", p.Name)
	be.AssertExpectations(t)
}

func TestUsers(t *testing.T) {
	be, c, log := newDeps(t)
	repo := NewUsers(be, c, log)
	ctx := context.Background()
	role := model.AccountRoleAdmin

	be.On("ListUsers", mock.Anything).Return([]model.UserAccount{{Username: "bob"}}, nil).Twice()
	be.On("UpdateUser", ctx, "bob", (*string)(nil), &role).Return(nil)
	be.On("Authenticate", ctx, "bob", "hash").Return(true, nil)

	_, err := repo.List(ctx)
	require.NoError(t, err)
	require.NoError(t, repo.Update(ctx, "bob", nil, &role))
	_, err = repo.List(ctx)
	require.NoError(t, err)

	ok, err := repo.Authenticate(ctx, "bob", "hash")
	require.NoError(t, err)
	assert.True(t, ok)
	be.AssertExpectations(t)
}
