// Package repository defines data access for archive entities. Implementations live in
// subpackages; remote reads through the query cache and writes to the backend.
package repository

import (
	"context"

	"docarchive/internal/model"
)

// DocumentRepository reads and writes document metadata.
type DocumentRepository interface {
	// List returns every document matching f, in backend order.
	List(ctx context.Context, f model.DocumentFilter) ([]model.Document, error)

	// FindByID returns a single document.
	FindByID(ctx context.Context, id string) (*model.Document, error)

	// Create stores a new document in a single write.
	Create(ctx context.Context, doc model.NewDocument) error

	// Delete removes a document by ID.
	Delete(ctx context.Context, id string) error

	// Metrics returns the dashboard aggregate as computed by the backend.
	Metrics(ctx context.Context) (*model.DashboardMetrics, error)
}

// CategoryRepository manages the category/office taxonomy.
type CategoryRepository interface {
	List(ctx context.Context) ([]model.Category, error)
	Create(ctx context.Context, id, name string) error
	Rename(ctx context.Context, id, name string) error
	Delete(ctx context.Context, id string) error
	AddOffice(ctx context.Context, categoryID, officeID, name string) error
	RenameOffice(ctx context.Context, categoryID, officeID, name string) error
	RemoveOffice(ctx context.Context, categoryID, officeID string) error
}

// UserRepository manages username/password accounts.
type UserRepository interface {
	List(ctx context.Context) ([]model.UserAccount, error)
	// Find returns nil when no account has that username.
	Find(ctx context.Context, username string) (*model.UserAccount, error)
	Create(ctx context.Context, username, passwordHash string, role model.AccountRole) error
	Update(ctx context.Context, username string, passwordHash *string, role *model.AccountRole) error
	Delete(ctx context.Context, username string) error
	Authenticate(ctx context.Context, username, passwordHash string) (bool, error)
}

// ProfileRepository reads and writes the caller's own profile.
type ProfileRepository interface {
	// Get returns nil when the caller has no profile yet.
	Get(ctx context.Context) (*model.UserProfile, error)
	Save(ctx context.Context, p model.UserProfile) error
}
