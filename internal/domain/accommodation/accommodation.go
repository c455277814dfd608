// Package accommodation contains the accommodation aggregate and its room
// types. Accommodations use optimistic concurrency via a version counter;
// room types are unversioned.
package accommodation

import "github.com/google/uuid"

// IsoCountryCode enumerates the countries supported by the platform.
type IsoCountryCode string

const (
	CountryDE IsoCountryCode = "DE"
	CountryUS IsoCountryCode = "US"
)

// BedType enumerates the supported bed configurations of a room type.
type BedType string

const (
	BedTypeSingle     BedType = "Single"
	BedTypeTwinSingle BedType = "TwinSingle"
	BedTypeDouble     BedType = "Double"
	BedTypeKing       BedType = "King"
)

// Address is the postal address of an accommodation.
type Address struct {
	Street      string
	HouseNumber uint16
	ZipCode     string
	City        string
	Area        *string
	Country     IsoCountryCode
}

// Accommodation is the aggregate root. Version starts at 0 and increments on
// every successful update; updates carrying a stale version are rejected.
type Accommodation struct {
	ID          uuid.UUID
	Version     int64
	Name        string
	Description string
	Address     Address
}

// RoomType belongs to one accommodation. It carries no version; its events
// are keyed with a sentinel version of -1 to signal the absence of
// optimistic locking to consumers.
type RoomType struct {
	ID              uuid.UUID
	AccommodationID uuid.UUID
	Size            uint16
	Balcony         bool
	BedType         BedType
	TV              bool
	WiFi            bool
}
