// Package user contains the user aggregate persisted in the relational
// store. Users use optimistic concurrency via a version column.
package user

import (
	"errors"

	"github.com/google/uuid"
)

// IsoCountryCode enumerates the countries supported by the platform.
type IsoCountryCode string

const (
	CountryDE IsoCountryCode = "DE"
	CountryUS IsoCountryCode = "US"
)

// PhoneNumberType enumerates the kind of a phone number.
type PhoneNumberType string

const (
	PhoneNumberTypeBusiness PhoneNumberType = "Business"
	PhoneNumberTypeHome     PhoneNumberType = "Home"
	PhoneNumberTypeMobile   PhoneNumberType = "Mobile"
)

// PhoneNumber is a contact number attached to a user.
type PhoneNumber struct {
	CountryCode string
	Type        PhoneNumberType
	CallNumber  string
}

// User is the aggregate root. ID is the database surrogate key; Identifier
// is the stable public identity used in event keys and partitioning.
type User struct {
	ID           int64
	Identifier   uuid.UUID
	Version      int64
	Name         string
	Email        string
	Country      IsoCountryCode
	PhoneNumbers []PhoneNumber
}

var (
	// ErrNotFound indicates the targeted user does not exist.
	ErrNotFound = errors.New("user: not found")

	// ErrVersionConflict indicates an update carried a stale expected
	// version.
	ErrVersionConflict = errors.New("user: version conflict")
)
