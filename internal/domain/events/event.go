// Package events provides the domain event model used to communicate entity
// changes to the rest of the system through the transactional outbox.
package events

import "context"

// EventType identifies the kind of domain event. The value doubles as the
// schema registry record name under which the payload's Avro schema is
// registered, so producers and consumers agree on the wire shape per type.
type EventType string

// DomainEvent is a transient, typed snapshot of a business entity change.
// It is produced inside a business transaction and handed to the event
// dispatcher immediately; it is never persisted in this form.
type DomainEvent struct {
	// Type selects the converters and the payload schema.
	Type EventType

	// Payload holds the entity snapshot (e.g. *accommodation.Accommodation).
	// The concrete type depends on the EventType.
	Payload any
}

// EncodedMessage is a broker-ready message produced by an event converter.
// Key and Payload are already wire-encoded; the relay publishes them as-is
// without re-encoding.
type EncodedMessage struct {
	// Topic is the destination topic name.
	Topic string

	// Partition is the target partition, derived deterministically from the
	// aggregate identifier so all events of one aggregate stay ordered.
	Partition int32

	// Key contains the encoded key record (identity + version + data type).
	Key []byte

	// Payload contains the encoded business event.
	Payload []byte
}

// EventConverter translates a domain event into a broker-ready message.
// A converter is specialized to one aggregate type and declares the event
// types it understands via Handles. Convert must only be called with event
// types the converter handles; calling it with anything else indicates a
// registry bug and panics.
type EventConverter interface {
	// Handles reports whether this converter produces messages for events
	// of the given type.
	Handles(eventType EventType) bool

	// Convert encodes the domain event into a broker-ready message. Encoding
	// failures (schema registry unreachable, incompatible schema) are
	// returned as errors and must fail the enclosing business transaction.
	Convert(ctx context.Context, event DomainEvent) (EncodedMessage, error)
}

// Event type constants. The values are the schema registry record names and
// must stay stable for wire compatibility.
const (
	EventTypeAccommodationCreated EventType = "CreateAccommodationAvroV1"
	EventTypeAccommodationUpdated EventType = "UpdateAccommodationAvroV1"

	EventTypeRoomTypeCreated EventType = "CreateRoomTypeAvroV1"
	EventTypeRoomTypeUpdated EventType = "UpdateRoomTypeAvroV1"
	EventTypeRoomTypeDeleted EventType = "DeleteRoomTypeAvroV1"

	EventTypeUserCreated EventType = "create_user"
)
