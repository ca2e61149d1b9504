package repository

import (
	"context"
	"errors"

	"user-account-service/internal/user/domain"
)

var (
	// ErrDuplicateEmail is returned by Create when the email is already registered.
	ErrDuplicateEmail = errors.New("repository: email already exists")
	// ErrVersionConflict is returned by UpdateByID when the record exists but its version is not
	// the one the caller read.
	ErrVersionConflict = errors.New("repository: version conflict")
)

// Repository defines persistence for user accounts.
type Repository interface {
	// Create persists u. The user must have ID set; it is not assigned by this method.
	Create(ctx context.Context, u *domain.User) error
	// IsExisting reports whether a user with email exists.
	IsExisting(ctx context.Context, email string) (bool, error)
	// GetByEmail returns the user with the given email, or nil if not found.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	// GetByID returns the user for id, or nil if not found.
	GetByID(ctx context.Context, id string) (*domain.User, error)
	// UpdateByID applies patch to the user with id only if its stored version equals
	// expectedVersion (0 also matches records that carry no version). Returns the updated user,
	// nil if no user has id, or ErrVersionConflict if the user changed since it was read.
	UpdateByID(ctx context.Context, id string, expectedVersion int, patch domain.Patch) (*domain.User, error)
	// Ping checks that the backing store is reachable.
	Ping(ctx context.Context) error
}
