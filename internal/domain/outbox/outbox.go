// Package outbox defines the persisted representation of pending event
// deliveries and the paging primitives used by the relay.
package outbox

// Record is the only persisted form of a pending delivery. It is created by
// the unit of work inside a business transaction, read and deleted by the
// relay, and never updated in place.
type Record struct {
	// ID is assigned at insert time by the backing store (sequence or
	// generated object id) and is used for paging and targeted deletion.
	// Stores encode their native id type as a string.
	ID string

	// Topic is the destination topic name.
	Topic string

	// Partition is the target partition recorded at dispatch time.
	Partition int32

	// Key holds the encoded key record bytes.
	Key []byte

	// Payload holds the encoded business event bytes.
	Payload []byte

	// TraceID carries the W3C traceparent captured when the record was
	// written. Empty means the originating context carried no trace, which
	// is valid (e.g. background jobs).
	TraceID string
}

// Page is one relay batch of records in insertion order. HasMore signals
// that undrained records exist beyond this page so the relay keeps looping
// without waiting for the next tick.
type Page struct {
	Records []Record
	HasMore bool
}

// DefaultPageSize bounds how many records one relay iteration publishes
// inside a single broker transaction.
const DefaultPageSize = 500
