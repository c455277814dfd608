// Package postgres persists outbox records in the event_entity table.
package postgres

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/cschaible/go-microservices-kafka/internal/domain/outbox"
	"github.com/cschaible/go-microservices-kafka/internal/infra/storage"
	pgstore "github.com/cschaible/go-microservices-kafka/internal/infra/storage/postgres"
)

var (
	_ outbox.Writer = (*Store)(nil)
	_ outbox.Store  = (*Store)(nil)
	_ outbox.TxOps  = (*Store)(nil)
)

// Store implements the outbox write and drain operations on Postgres.
// Records are identified by a bigserial; insertion order equals id order.
type Store struct {
	pool   *pgxpool.Pool
	tx     *pgstore.TxManager
	tracer trace.Tracer
}

// NewStore creates an outbox store over the given pool.
func NewStore(pool *pgxpool.Pool, tracer trace.Tracer) *Store {
	return &Store{pool: pool, tx: pgstore.NewTxManager(pool), tracer: tracer}
}

// Save inserts one record. It joins the business transaction carried by ctx.
func (s *Store) Save(ctx context.Context, record outbox.Record) error {
	return storage.ExecuteAndTrace(ctx, s.tracer, "postgres.save_outbox_record", []attribute.KeyValue{
		attribute.String("topic", record.Topic),
		attribute.Int("partition", int(record.Partition)),
	}, func(ctx context.Context) error {
		db := pgstore.DBFrom(ctx, s.pool)
		_, err := db.Exec(ctx, `
			INSERT INTO event_entity (topic, partition, key, payload, trace_id)
			VALUES ($1, $2, $3, $4, NULLIF($5, ''))`,
			record.Topic, record.Partition, record.Key, record.Payload, record.TraceID,
		)
		if err != nil {
			return fmt.Errorf("insert outbox record: %w", err)
		}
		return nil
	})
}

// WithinTransaction runs fn inside one database transaction.
func (s *Store) WithinTransaction(ctx context.Context, fn func(ctx context.Context, tx outbox.TxOps) error) error {
	return s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		return fn(ctx, s)
	})
}

// FindNextPage reads up to pageSize records in id order. One extra row is
// fetched to detect whether more records remain.
func (s *Store) FindNextPage(ctx context.Context, pageSize int) (outbox.Page, error) {
	var page outbox.Page
	err := storage.ExecuteAndTrace(ctx, s.tracer, "postgres.find_next_outbox_page", []attribute.KeyValue{
		attribute.Int("page_size", pageSize),
	}, func(ctx context.Context) error {
		db := pgstore.DBFrom(ctx, s.pool)
		rows, err := db.Query(ctx, `
			SELECT id, topic, partition, key, payload, COALESCE(trace_id, '')
			FROM event_entity
			ORDER BY id
			LIMIT $1`,
			pageSize+1,
		)
		if err != nil {
			return fmt.Errorf("query outbox page: %w", err)
		}
		defer rows.Close()

		var records []outbox.Record
		for rows.Next() {
			var id int64
			var r outbox.Record
			if err := rows.Scan(&id, &r.Topic, &r.Partition, &r.Key, &r.Payload, &r.TraceID); err != nil {
				return fmt.Errorf("scan outbox record: %w", err)
			}
			r.ID = strconv.FormatInt(id, 10)
			records = append(records, r)
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("iterate outbox page: %w", err)
		}

		page.HasMore = len(records) > pageSize
		if page.HasMore {
			records = records[:pageSize]
		}
		page.Records = records
		return nil
	})
	return page, err
}

// Delete removes the given records by id.
func (s *Store) Delete(ctx context.Context, records []outbox.Record) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}

	ids := make([]int64, 0, len(records))
	for _, r := range records {
		id, err := strconv.ParseInt(r.ID, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid outbox record id %q: %w", r.ID, err)
		}
		ids = append(ids, id)
	}

	var deleted int64
	err := storage.ExecuteAndTrace(ctx, s.tracer, "postgres.delete_outbox_records", []attribute.KeyValue{
		attribute.Int("record_count", len(ids)),
	}, func(ctx context.Context) error {
		db := pgstore.DBFrom(ctx, s.pool)
		tag, err := db.Exec(ctx, `DELETE FROM event_entity WHERE id = ANY($1)`, ids)
		if err != nil {
			return fmt.Errorf("delete outbox records: %w", err)
		}
		deleted = tag.RowsAffected()
		return nil
	})
	return deleted, err
}
