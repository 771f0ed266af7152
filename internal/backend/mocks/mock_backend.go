package mocks

import (
	"context"

	"docarchive/internal/backend"
	"docarchive/internal/model"

	"github.com/stretchr/testify/mock"
)

type MockBackend struct {
	mock.Mock
}

var _ backend.Backend = (*MockBackend)(nil)

func (m *MockBackend) GetCategories(ctx context.Context) ([]model.Category, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Category), args.Error(1)
}

func (m *MockBackend) AddCategory(ctx context.Context, id, name string) error {
	return m.Called(ctx, id, name).Error(0)
}

func (m *MockBackend) UpdateCategory(ctx context.Context, id, newName string) error {
	return m.Called(ctx, id, newName).Error(0)
}

func (m *MockBackend) RemoveCategory(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockBackend) AddOfficeToCategory(ctx context.Context, categoryID, officeID, officeName string) error {
	return m.Called(ctx, categoryID, officeID, officeName).Error(0)
}

func (m *MockBackend) UpdateOfficeInCategory(ctx context.Context, categoryID, officeID, newOfficeName string) error {
	return m.Called(ctx, categoryID, officeID, newOfficeName).Error(0)
}

func (m *MockBackend) RemoveOfficeFromCategory(ctx context.Context, categoryID, officeID string) error {
	return m.Called(ctx, categoryID, officeID).Error(0)
}

func (m *MockBackend) FilterDocuments(ctx context.Context, f model.DocumentFilter) ([]model.Document, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Document), args.Error(1)
}

func (m *MockBackend) AddDocument(ctx context.Context, doc model.NewDocument) error {
	return m.Called(ctx, doc).Error(0)
}

func (m *MockBackend) GetDocument(ctx context.Context, id string) (*model.Document, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Document), args.Error(1)
}

func (m *MockBackend) RemoveDocument(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockBackend) GetCallerUserRole(ctx context.Context) (model.Role, error) {
	args := m.Called(ctx)
	return args.Get(0).(model.Role), args.Error(1)
}

func (m *MockBackend) IsCallerAdmin(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

func (m *MockBackend) GetCallerUserProfile(ctx context.Context) (*model.UserProfile, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.UserProfile), args.Error(1)
}

func (m *MockBackend) SaveCallerUserProfile(ctx context.Context, profile model.UserProfile) error {
	return m.Called(ctx, profile).Error(0)
}

func (m *MockBackend) GetDashboardMetrics(ctx context.Context) (*model.DashboardMetrics, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DashboardMetrics), args.Error(1)
}

func (m *MockBackend) CreateUser(ctx context.Context, username, passwordHash string, role model.AccountRole) error {
	return m.Called(ctx, username, passwordHash, role).Error(0)
}

func (m *MockBackend) DeleteUser(ctx context.Context, username string) error {
	return m.Called(ctx, username).Error(0)
}

func (m *MockBackend) UpdateUser(ctx context.Context, username string, newPasswordHash *string, newRole *model.AccountRole) error {
	return m.Called(ctx, username, newPasswordHash, newRole).Error(0)
}

func (m *MockBackend) ListUsers(ctx context.Context) ([]model.UserAccount, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.UserAccount), args.Error(1)
}

func (m *MockBackend) GetUser(ctx context.Context, username string) (*model.UserAccount, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.UserAccount), args.Error(1)
}

func (m *MockBackend) Authenticate(ctx context.Context, username, passwordHash string) (bool, error) {
	args := m.Called(ctx, username, passwordHash)
	return args.Bool(0), args.Error(1)
}

func (m *MockBackend) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}
