package accommodation

import (
	"context"

	"github.com/google/uuid"
)

// Repository provides persistence for accommodations. Implementations bind
// to the transaction carried by the context so entity writes and outbox
// writes commit atomically.
type Repository interface {
	// Create inserts a new accommodation.
	Create(ctx context.Context, a *Accommodation) error

	// Update replaces the stored accommodation if the persisted version
	// matches a.Version, then increments the version. Returns
	// ErrVersionConflict on a stale version and ErrNotFound when the id
	// does not exist.
	Update(ctx context.Context, a *Accommodation) error

	// FindByID returns the accommodation or ErrNotFound.
	FindByID(ctx context.Context, id uuid.UUID) (*Accommodation, error)

	// FindAll lists accommodations, optionally filtered by a name fragment.
	FindAll(ctx context.Context, nameFilter string) ([]Accommodation, error)
}

// RoomTypeRepository provides persistence for room types.
type RoomTypeRepository interface {
	Create(ctx context.Context, rt *RoomType) error

	// Update replaces the stored room type. Returns ErrNotFound when the id
	// does not exist. Room types carry no version, so there is no conflict
	// case.
	Update(ctx context.Context, rt *RoomType) error

	// Delete removes the room type. Returns ErrNotFound when the id does
	// not exist.
	Delete(ctx context.Context, id uuid.UUID) error

	// FindByAccommodation lists the room types of one accommodation.
	FindByAccommodation(ctx context.Context, accommodationID uuid.UUID) ([]RoomType, error)
}
