// Package mongodb persists the accommodation aggregate in MongoDB. The
// repositories join the session transaction carried by the context, so
// entity writes commit together with their outbox records.
package mongodb

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/cschaible/go-microservices-kafka/internal/domain/accommodation"
	"github.com/cschaible/go-microservices-kafka/internal/infra/storage"
)

// AccommodationCollection is the collection accommodations are stored in.
const AccommodationCollection = "accommodation"

type addressDocument struct {
	Street      string  `bson:"street"`
	HouseNumber int32   `bson:"house_number"`
	ZipCode     string  `bson:"zip_code"`
	City        string  `bson:"city"`
	Area        *string `bson:"area,omitempty"`
	Country     string  `bson:"country"`
}

type accommodationDocument struct {
	ID          string          `bson:"_id"`
	Version     int64           `bson:"version"`
	Name        string          `bson:"name"`
	Description string          `bson:"description"`
	Address     addressDocument `bson:"address"`
}

func toAccommodationDocument(a *accommodation.Accommodation) accommodationDocument {
	return accommodationDocument{
		ID:          a.ID.String(),
		Version:     a.Version,
		Name:        a.Name,
		Description: a.Description,
		Address: addressDocument{
			Street:      a.Address.Street,
			HouseNumber: int32(a.Address.HouseNumber),
			ZipCode:     a.Address.ZipCode,
			City:        a.Address.City,
			Area:        a.Address.Area,
			Country:     string(a.Address.Country),
		},
	}
}

func (d accommodationDocument) toDomain() (*accommodation.Accommodation, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid accommodation id %q: %w", d.ID, err)
	}
	return &accommodation.Accommodation{
		ID:          id,
		Version:     d.Version,
		Name:        d.Name,
		Description: d.Description,
		Address: accommodation.Address{
			Street:      d.Address.Street,
			HouseNumber: uint16(d.Address.HouseNumber),
			ZipCode:     d.Address.ZipCode,
			City:        d.Address.City,
			Area:        d.Address.Area,
			Country:     accommodation.IsoCountryCode(d.Address.Country),
		},
	}, nil
}

var _ accommodation.Repository = (*AccommodationRepository)(nil)

// AccommodationRepository implements accommodation.Repository on MongoDB.
type AccommodationRepository struct {
	collection *mongo.Collection
	tracer     trace.Tracer
}

// NewAccommodationRepository creates a repository over the given database.
func NewAccommodationRepository(db *mongo.Database, tracer trace.Tracer) *AccommodationRepository {
	return &AccommodationRepository{collection: db.Collection(AccommodationCollection), tracer: tracer}
}

// Create inserts a new accommodation.
func (r *AccommodationRepository) Create(ctx context.Context, a *accommodation.Accommodation) error {
	return storage.ExecuteAndTrace(ctx, r.tracer, "mongodb.create_accommodation", []attribute.KeyValue{
		attribute.String("accommodation_id", a.ID.String()),
	}, func(ctx context.Context) error {
		if _, err := r.collection.InsertOne(ctx, toAccommodationDocument(a)); err != nil {
			return fmt.Errorf("insert accommodation: %w", err)
		}
		return nil
	})
}

// Update replaces the stored document if the persisted version matches
// a.Version and increments the version in the same operation.
func (r *AccommodationRepository) Update(ctx context.Context, a *accommodation.Accommodation) error {
	return storage.ExecuteAndTrace(ctx, r.tracer, "mongodb.update_accommodation", []attribute.KeyValue{
		attribute.String("accommodation_id", a.ID.String()),
		attribute.Int64("expected_version", a.Version),
	}, func(ctx context.Context) error {
		doc := toAccommodationDocument(a)
		doc.Version = a.Version + 1

		filter := bson.M{"_id": doc.ID, "version": a.Version}
		result, err := r.collection.UpdateOne(ctx, filter, bson.M{"$set": doc})
		if err != nil {
			return fmt.Errorf("update accommodation: %w", err)
		}
		if result.MatchedCount == 0 {
			// Distinguish a stale version from a missing document.
			count, err := r.collection.CountDocuments(ctx, bson.M{"_id": doc.ID})
			if err != nil {
				return fmt.Errorf("check accommodation existence: %w", err)
			}
			if count == 0 {
				return accommodation.ErrNotFound
			}
			return accommodation.ErrVersionConflict
		}

		a.Version = doc.Version
		return nil
	})
}

// FindByID returns the accommodation or accommodation.ErrNotFound.
func (r *AccommodationRepository) FindByID(ctx context.Context, id uuid.UUID) (*accommodation.Accommodation, error) {
	var found *accommodation.Accommodation
	err := storage.ExecuteAndTrace(ctx, r.tracer, "mongodb.find_accommodation", []attribute.KeyValue{
		attribute.String("accommodation_id", id.String()),
	}, func(ctx context.Context) error {
		var doc accommodationDocument
		err := r.collection.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc)
		if errors.Is(err, mongo.ErrNoDocuments) {
			return accommodation.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("find accommodation: %w", err)
		}

		found, err = doc.toDomain()
		return err
	})
	return found, err
}

// FindAll lists accommodations, optionally filtered by a case-insensitive
// name fragment.
func (r *AccommodationRepository) FindAll(ctx context.Context, nameFilter string) ([]accommodation.Accommodation, error) {
	var found []accommodation.Accommodation
	err := storage.ExecuteAndTrace(ctx, r.tracer, "mongodb.find_accommodations", nil,
		func(ctx context.Context) error {
			filter := bson.M{}
			if nameFilter != "" {
				filter["name"] = bson.M{"$regex": nameFilter, "$options": "i"}
			}

			cursor, err := r.collection.Find(ctx, filter)
			if err != nil {
				return fmt.Errorf("find accommodations: %w", err)
			}

			var docs []accommodationDocument
			if err := cursor.All(ctx, &docs); err != nil {
				return fmt.Errorf("read accommodations: %w", err)
			}

			found = make([]accommodation.Accommodation, 0, len(docs))
			for _, doc := range docs {
				a, err := doc.toDomain()
				if err != nil {
					return err
				}
				found = append(found, *a)
			}
			return nil
		})
	return found, err
}
