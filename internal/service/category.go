package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"docarchive/internal/model"
	"docarchive/internal/repository"
	"docarchive/internal/taxonomy"
)

// ErrNameRequired is returned when a category or office name is blank.
var ErrNameRequired = errors.New("name is required")

// CategoryService manages the category/office taxonomy.
type CategoryService interface {
	List(ctx context.Context) ([]model.Category, error)
	// Resolver returns a resolver over the current taxonomy.
	Resolver(ctx context.Context) (*taxonomy.Resolver, error)
	// Offices lists the office options of a category; none when categoryID is empty.
	Offices(ctx context.Context, categoryID string) ([]taxonomy.Option, error)

	// Create adds a category whose id is derived from name and returns it.
	Create(ctx context.Context, name string) (*model.Category, error)
	Rename(ctx context.Context, id, name string) error
	Delete(ctx context.Context, id string) error

	// AddOffice adds an office whose id is derived from name and returns it.
	AddOffice(ctx context.Context, categoryID, name string) (*model.Office, error)
	RenameOffice(ctx context.Context, categoryID, officeID, name string) error
	RemoveOffice(ctx context.Context, categoryID, officeID string) error
}

type categoryService struct {
	repo repository.CategoryRepository
}

func NewCategoryService(repo repository.CategoryRepository) CategoryService {
	return &categoryService{repo: repo}
}

func (s *categoryService) List(ctx context.Context) ([]model.Category, error) {
	return s.repo.List(ctx)
}

func (s *categoryService) Resolver(ctx context.Context) (*taxonomy.Resolver, error) {
	cats, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	return taxonomy.NewResolver(cats), nil
}

func (s *categoryService) Offices(ctx context.Context, categoryID string) ([]taxonomy.Option, error) {
	if categoryID == "" {
		return []taxonomy.Option{}, nil
	}
	r, err := s.Resolver(ctx)
	if err != nil {
		return nil, err
	}
	return r.OfficeOptions(categoryID), nil
}

func (s *categoryService) Create(ctx context.Context, name string) (*model.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("category: %w", ErrNameRequired)
	}
	c := &model.Category{ID: taxonomy.Slug(name), Name: name, Offices: []model.Office{}}
	if err := s.repo.Create(ctx, c.ID, c.Name); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *categoryService) Rename(ctx context.Context, id, name string) error {
	if id == "" {
		return ErrIDRequired
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("category: %w", ErrNameRequired)
	}
	return s.repo.Rename(ctx, id, name)
}

func (s *categoryService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return ErrIDRequired
	}
	return s.repo.Delete(ctx, id)
}

func (s *categoryService) AddOffice(ctx context.Context, categoryID, name string) (*model.Office, error) {
	if categoryID == "" {
		return nil, ErrIDRequired
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("office: %w", ErrNameRequired)
	}
	o := &model.Office{ID: taxonomy.Slug(name), Name: name}
	if err := s.repo.AddOffice(ctx, categoryID, o.ID, o.Name); err != nil {
		return nil, err
	}
	return o, nil
}

func (s *categoryService) RenameOffice(ctx context.Context, categoryID, officeID, name string) error {
	if categoryID == "" || officeID == "" {
		return ErrIDRequired
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("office: %w", ErrNameRequired)
	}
	return s.repo.RenameOffice(ctx, categoryID, officeID, name)
}

func (s *categoryService) RemoveOffice(ctx context.Context, categoryID, officeID string) error {
	if categoryID == "" || officeID == "" {
		return ErrIDRequired
	}
	return s.repo.RemoveOffice(ctx, categoryID, officeID)
}
