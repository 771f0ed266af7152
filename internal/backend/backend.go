// Package backend is the typed client of the external archive service. Storage, identity and
// business rules live behind this interface; nothing here second-guesses them.
package backend

import (
	"context"
	"fmt"

	"docarchive/internal/model"
)

// Backend is the remote procedure surface consumed by this module.
type Backend interface {
	GetCategories(ctx context.Context) ([]model.Category, error)
	AddCategory(ctx context.Context, id, name string) error
	UpdateCategory(ctx context.Context, id, newName string) error
	RemoveCategory(ctx context.Context, id string) error
	AddOfficeToCategory(ctx context.Context, categoryID, officeID, officeName string) error
	UpdateOfficeInCategory(ctx context.Context, categoryID, officeID, newOfficeName string) error
	RemoveOfficeFromCategory(ctx context.Context, categoryID, officeID string) error

	FilterDocuments(ctx context.Context, f model.DocumentFilter) ([]model.Document, error)
	AddDocument(ctx context.Context, doc model.NewDocument) error
	GetDocument(ctx context.Context, id string) (*model.Document, error)
	RemoveDocument(ctx context.Context, id string) error

	GetCallerUserRole(ctx context.Context) (model.Role, error)
	IsCallerAdmin(ctx context.Context) (bool, error)
	GetCallerUserProfile(ctx context.Context) (*model.UserProfile, error)
	SaveCallerUserProfile(ctx context.Context, profile model.UserProfile) error
	GetDashboardMetrics(ctx context.Context) (*model.DashboardMetrics, error)

	CreateUser(ctx context.Context, username, passwordHash string, role model.AccountRole) error
	DeleteUser(ctx context.Context, username string) error
	UpdateUser(ctx context.Context, username string, newPasswordHash *string, newRole *model.AccountRole) error
	ListUsers(ctx context.Context) ([]model.UserAccount, error)
	GetUser(ctx context.Context, username string) (*model.UserAccount, error)
	Authenticate(ctx context.Context, username, passwordHash string) (bool, error)

	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error
}

// RejectionError is an explicit refusal by the backend (trap, validation, permission).
// Its message is the backend's own and is safe to show to the user.
type RejectionError struct {
	Method  string
	Message string
}

func (e *RejectionError) Error() string {
	return e.Message
}

// TransportError is a failure to reach the backend or to read its reply.
type TransportError struct {
	Method string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Method, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
