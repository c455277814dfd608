package user

import (
	"context"

	"github.com/google/uuid"
)

// Repository provides persistence for users. Implementations bind to the
// transaction carried by the context so entity writes and outbox writes
// commit atomically.
type Repository interface {
	// Create inserts the user and its phone numbers, assigning ID.
	Create(ctx context.Context, u *User) error

	// Update replaces the stored user if the persisted version matches
	// u.Version, then increments the version. Returns ErrVersionConflict
	// on a stale version and ErrNotFound when the user does not exist.
	Update(ctx context.Context, u *User) error

	// FindByIdentifier returns the user with its phone numbers or
	// ErrNotFound.
	FindByIdentifier(ctx context.Context, identifier uuid.UUID) (*User, error)

	// FindAll lists users with their phone numbers.
	FindAll(ctx context.Context) ([]User, error)
}
