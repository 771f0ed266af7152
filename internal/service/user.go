package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"docarchive/internal/model"
	"docarchive/internal/repository"
)

var (
	ErrUsernameRequired = errors.New("username is required")
	ErrPasswordRequired = errors.New("password is required")
	ErrInvalidRole      = errors.New("invalid account role")
	ErrUserExists       = errors.New("user already exists")
	ErrBadCredentials   = errors.New("invalid username or password")
)

// HashPassword returns the hex SHA-256 digest the backend stores and compares.
func HashPassword(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

// UserService manages accounts and signs users in.
type UserService interface {
	List(ctx context.Context) ([]model.UserAccount, error)
	Create(ctx context.Context, username, password string, role model.AccountRole) error
	// Update changes the password, the role, or both; nil leaves a field as is.
	Update(ctx context.Context, username string, password *string, role *model.AccountRole) error
	Delete(ctx context.Context, username string) error
	// Login checks credentials and returns the account.
	Login(ctx context.Context, username, password string) (*model.UserAccount, error)
}

type userService struct {
	repo repository.UserRepository
}

func NewUserService(repo repository.UserRepository) UserService {
	return &userService{repo: repo}
}

// List never exposes password hashes.
func (s *userService) List(ctx context.Context) ([]model.UserAccount, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.UserAccount, len(users))
	for i, u := range users {
		u.PasswordHash = ""
		out[i] = u
	}
	return out, nil
}

func (s *userService) Create(ctx context.Context, username, password string, role model.AccountRole) error {
	username = strings.TrimSpace(username)
	switch {
	case username == "":
		return ErrUsernameRequired
	case password == "":
		return ErrPasswordRequired
	case !role.Valid():
		return fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}
	existing, err := s.repo.Find(ctx, username)
	if err != nil {
		return err
	}
	if existing != nil {
		return fmt.Errorf("%w: %s", ErrUserExists, username)
	}
	return s.repo.Create(ctx, username, HashPassword(password), role)
}

func (s *userService) Update(ctx context.Context, username string, password *string, role *model.AccountRole) error {
	if strings.TrimSpace(username) == "" {
		return ErrUsernameRequired
	}
	if role != nil && !role.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidRole, *role)
	}
	var hash *string
	if password != nil {
		if *password == "" {
			return ErrPasswordRequired
		}
		h := HashPassword(*password)
		hash = &h
	}
	return s.repo.Update(ctx, username, hash, role)
}

func (s *userService) Delete(ctx context.Context, username string) error {
	if strings.TrimSpace(username) == "" {
		return ErrUsernameRequired
	}
	return s.repo.Delete(ctx, username)
}

func (s *userService) Login(ctx context.Context, username, password string) (*model.UserAccount, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, ErrUsernameRequired
	}
	if password == "" {
		return nil, ErrPasswordRequired
	}
	ok, err := s.repo.Authenticate(ctx, username, HashPassword(password))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrBadCredentials
	}
	acct, err := s.repo.Find(ctx, username)
	if err != nil {
		return nil, err
	}
	if acct == nil {
		return nil, ErrBadCredentials
	}
	acct.PasswordHash = ""
	return acct, nil
}

// ProfileService reads and saves the caller's display profile.
type ProfileService interface {
	Get(ctx context.Context) (*model.UserProfile, error)
	Save(ctx context.Context, p model.UserProfile) error
}

type profileService struct {
	repo repository.ProfileRepository
}

func NewProfileService(repo repository.ProfileRepository) ProfileService {
	return &profileService{repo: repo}
}

// Get returns an empty profile when the caller has not saved one.
func (s *profileService) Get(ctx context.Context) (*model.UserProfile, error) {
	p, err := s.repo.Get(ctx)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return &model.UserProfile{}, nil
	}
	return p, nil
}

func (s *profileService) Save(ctx context.Context, p model.UserProfile) error {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return fmt.Errorf("profile: %w", ErrNameRequired)
	}
	return s.repo.Save(ctx, p)
}
