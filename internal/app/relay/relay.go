// Package relay drains the transactional outbox into Kafka. Each tick moves
// complete pages: the page is read and deleted inside one database
// transaction, and published inside one Kafka transaction between those two
// steps. A failed publish rolls the database transaction back, so records
// are only ever lost from the outbox after the broker accepted them.
package relay

import (
	"context"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/cschaible/go-microservices-kafka/internal/domain/outbox"
	"github.com/cschaible/go-microservices-kafka/pkg/common/logger"
)

// Publisher sends one outbox page inside a single broker transaction.
type Publisher interface {
	PublishPage(ctx context.Context, records []outbox.Record) error
}

// Relay periodically drains the outbox. Ticks never overlap: a tick that
// fires while the previous one still runs is skipped, not queued.
type Relay struct {
	store     outbox.Store
	publisher Publisher
	pageSize  int

	// busy guards against overlapping ticks.
	busy atomic.Bool

	logger  *logger.Logger
	tracer  trace.Tracer
	metrics Metrics
}

// New creates a relay over the given store and publisher. A pageSize of
// zero falls back to outbox.DefaultPageSize.
func New(store outbox.Store, publisher Publisher, pageSize int, log *logger.Logger, tracer trace.Tracer, metrics Metrics) *Relay {
	if pageSize <= 0 {
		pageSize = outbox.DefaultPageSize
	}
	return &Relay{
		store:     store,
		publisher: publisher,
		pageSize:  pageSize,
		logger:    log,
		tracer:    tracer,
		metrics:   metrics,
	}
}

// Run drains the outbox every interval until ctx is cancelled. Errors are
// logged and the next tick retries; the records are still in the outbox.
func (r *Relay) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	r.logger.Info(ctx, "Outbox relay started", "interval", interval.String(), "page_size", r.pageSize)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info(ctx, "Outbox relay stopped")
			return
		case <-ticker.C:
			if err := r.Tick(ctx); err != nil {
				r.logger.Error(ctx, "Outbox relay tick failed", "error", err)
			}
		}
	}
}

// Tick drains the outbox until it is empty, page by page. If another tick
// is still running, Tick returns immediately.
func (r *Relay) Tick(ctx context.Context) error {
	if !r.busy.CompareAndSwap(false, true) {
		return nil
	}
	defer r.busy.Store(false)

	for {
		hasMore, err := r.drainPage(ctx)
		if err != nil {
			if r.metrics != nil {
				r.metrics.IncRelayError(ctx)
			}
			return err
		}
		if !hasMore {
			return nil
		}
	}
}

// drainPage reads, publishes, and deletes one page inside a single store
// transaction. It reports whether more records remain beyond the page.
func (r *Relay) drainPage(ctx context.Context) (bool, error) {
	ctx, span := r.tracer.Start(ctx, "outbox_relay.drain_page")
	defer span.End()

	var hasMore bool
	err := r.store.WithinTransaction(ctx, func(ctx context.Context, tx outbox.TxOps) error {
		page, err := tx.FindNextPage(ctx, r.pageSize)
		if err != nil {
			return err
		}
		if len(page.Records) == 0 {
			hasMore = false
			return nil
		}

		span.SetAttributes(
			attribute.Int("record_count", len(page.Records)),
			attribute.Bool("has_more", page.HasMore),
		)

		if err := r.publisher.PublishPage(ctx, page.Records); err != nil {
			return err
		}

		if _, err := tx.Delete(ctx, page.Records); err != nil {
			return err
		}

		if r.metrics != nil {
			r.metrics.ObservePagePublished(ctx, len(page.Records))
		}
		r.logger.Debug(ctx, "Drained outbox page", "record_count", len(page.Records), "has_more", page.HasMore)

		hasMore = page.HasMore
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return false, err
	}
	return hasMore, nil
}
