// Package mongodb persists outbox records in the event collection.
package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/cschaible/go-microservices-kafka/internal/domain/outbox"
	"github.com/cschaible/go-microservices-kafka/internal/infra/storage"
	mongostore "github.com/cschaible/go-microservices-kafka/internal/infra/storage/mongodb"
)

// CollectionName is the collection outbox records are stored in.
const CollectionName = "event"

type eventDocument struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Topic     string             `bson:"topic"`
	Partition int32              `bson:"partition"`
	Key       []byte             `bson:"key"`
	Payload   []byte             `bson:"payload"`
	TraceID   *string            `bson:"trace_id,omitempty"`
}

var (
	_ outbox.Writer = (*Store)(nil)
	_ outbox.Store  = (*Store)(nil)
	_ outbox.TxOps  = (*Store)(nil)
)

// Store implements the outbox write and drain operations on MongoDB.
// Records are identified by their object id; insertion order equals id order
// because object ids are monotonic per process.
type Store struct {
	collection *mongo.Collection
	tx         *mongostore.TxManager
	tracer     trace.Tracer
}

// NewStore creates an outbox store over the given database.
func NewStore(db *mongo.Database, tx *mongostore.TxManager, tracer trace.Tracer) *Store {
	return &Store{collection: db.Collection(CollectionName), tx: tx, tracer: tracer}
}

// Save inserts one record. The session carried by ctx makes the insert part
// of the enclosing business transaction.
func (s *Store) Save(ctx context.Context, record outbox.Record) error {
	return storage.ExecuteAndTrace(ctx, s.tracer, "mongodb.save_outbox_record", []attribute.KeyValue{
		attribute.String("topic", record.Topic),
		attribute.Int("partition", int(record.Partition)),
	}, func(ctx context.Context) error {
		doc := eventDocument{
			Topic:     record.Topic,
			Partition: record.Partition,
			Key:       record.Key,
			Payload:   record.Payload,
		}
		if record.TraceID != "" {
			doc.TraceID = &record.TraceID
		}

		if _, err := s.collection.InsertOne(ctx, doc); err != nil {
			return fmt.Errorf("insert outbox record: %w", err)
		}
		return nil
	})
}

// WithinTransaction runs fn inside one multi-document transaction.
func (s *Store) WithinTransaction(ctx context.Context, fn func(ctx context.Context, tx outbox.TxOps) error) error {
	return s.tx.Transactional(ctx, func(sessCtx mongo.SessionContext) error {
		return fn(sessCtx, s)
	})
}

// FindNextPage reads up to pageSize records in id order. One extra document
// is fetched to detect whether more records remain.
func (s *Store) FindNextPage(ctx context.Context, pageSize int) (outbox.Page, error) {
	var page outbox.Page
	err := storage.ExecuteAndTrace(ctx, s.tracer, "mongodb.find_next_outbox_page", []attribute.KeyValue{
		attribute.Int("page_size", pageSize),
	}, func(ctx context.Context) error {
		findOpts := options.Find().
			SetSort(bson.D{{Key: "_id", Value: 1}}).
			SetLimit(int64(pageSize + 1))

		cursor, err := s.collection.Find(ctx, bson.D{}, findOpts)
		if err != nil {
			return fmt.Errorf("query outbox page: %w", err)
		}

		var docs []eventDocument
		if err := cursor.All(ctx, &docs); err != nil {
			return fmt.Errorf("read outbox page: %w", err)
		}

		page.HasMore = len(docs) > pageSize
		if page.HasMore {
			docs = docs[:pageSize]
		}

		records := make([]outbox.Record, 0, len(docs))
		for _, doc := range docs {
			r := outbox.Record{
				ID:        doc.ID.Hex(),
				Topic:     doc.Topic,
				Partition: doc.Partition,
				Key:       doc.Key,
				Payload:   doc.Payload,
			}
			if doc.TraceID != nil {
				r.TraceID = *doc.TraceID
			}
			records = append(records, r)
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

	ids := make([]primitive.ObjectID, 0, len(records))
	for _, r := range records {
		id, err := primitive.ObjectIDFromHex(r.ID)
		if err != nil {
			return 0, fmt.Errorf("invalid outbox record id %q: %w", r.ID, err)
		}
		ids = append(ids, id)
	}

	var deleted int64
	err := storage.ExecuteAndTrace(ctx, s.tracer, "mongodb.delete_outbox_records", []attribute.KeyValue{
		attribute.Int("record_count", len(ids)),
	}, func(ctx context.Context) error {
		result, err := s.collection.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}})
		if err != nil {
			return fmt.Errorf("delete outbox records: %w", err)
		}
		deleted = result.DeletedCount
		return nil
	})
	return deleted, err
}
