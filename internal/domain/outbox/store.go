package outbox

import "context"

// Writer appends a record to the outbox inside the business transaction
// carried by the context. The record becomes visible to the relay only when
// that transaction commits.
type Writer interface {
	Save(ctx context.Context, record Record) error
}

// Store gives the relay transactional access to the outbox. The relay reads
// a page, publishes it, and deletes it inside one store transaction so a
// failed publish leaves every record in place.
type Store interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context, tx TxOps) error) error
}

// TxOps are the outbox operations available inside a store transaction.
type TxOps interface {
	// FindNextPage returns up to pageSize records in insertion order and
	// reports whether more records remain beyond the page.
	FindNextPage(ctx context.Context, pageSize int) (Page, error)

	// Delete removes the given records and returns how many were deleted.
	Delete(ctx context.Context, records []Record) (int64, error)
}
