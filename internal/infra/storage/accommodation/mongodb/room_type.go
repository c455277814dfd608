package mongodb

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/cschaible/go-microservices-kafka/internal/domain/accommodation"
	"github.com/cschaible/go-microservices-kafka/internal/infra/storage"
)

// RoomTypeCollection is the collection room types are stored in.
const RoomTypeCollection = "room_type"

type roomTypeDocument struct {
	ID              string `bson:"_id"`
	AccommodationID string `bson:"accommodation_id"`
	Size            int32  `bson:"size"`
	Balcony         bool   `bson:"balcony"`
	BedType         string `bson:"bed_type"`
	TV              bool   `bson:"tv"`
	WiFi            bool   `bson:"wifi"`
}

func toRoomTypeDocument(rt *accommodation.RoomType) roomTypeDocument {
	return roomTypeDocument{
		ID:              rt.ID.String(),
		AccommodationID: rt.AccommodationID.String(),
		Size:            int32(rt.Size),
		Balcony:         rt.Balcony,
		BedType:         string(rt.BedType),
		TV:              rt.TV,
		WiFi:            rt.WiFi,
	}
}

func (d roomTypeDocument) toDomain() (accommodation.RoomType, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return accommodation.RoomType{}, fmt.Errorf("invalid room type id %q: %w", d.ID, err)
	}
	accommodationID, err := uuid.Parse(d.AccommodationID)
	if err != nil {
		return accommodation.RoomType{}, fmt.Errorf("invalid accommodation id %q: %w", d.AccommodationID, err)
	}
	return accommodation.RoomType{
		ID:              id,
		AccommodationID: accommodationID,
		Size:            uint16(d.Size),
		Balcony:         d.Balcony,
		BedType:         accommodation.BedType(d.BedType),
		TV:              d.TV,
		WiFi:            d.WiFi,
	}, nil
}

var _ accommodation.RoomTypeRepository = (*RoomTypeRepository)(nil)

// RoomTypeRepository implements accommodation.RoomTypeRepository on MongoDB.
type RoomTypeRepository struct {
	collection *mongo.Collection
	tracer     trace.Tracer
}

// NewRoomTypeRepository creates a repository over the given database.
func NewRoomTypeRepository(db *mongo.Database, tracer trace.Tracer) *RoomTypeRepository {
	return &RoomTypeRepository{collection: db.Collection(RoomTypeCollection), tracer: tracer}
}

// Create inserts a new room type.
func (r *RoomTypeRepository) Create(ctx context.Context, rt *accommodation.RoomType) error {
	return storage.ExecuteAndTrace(ctx, r.tracer, "mongodb.create_room_type", []attribute.KeyValue{
		attribute.String("room_type_id", rt.ID.String()),
		attribute.String("accommodation_id", rt.AccommodationID.String()),
	}, func(ctx context.Context) error {
		if _, err := r.collection.InsertOne(ctx, toRoomTypeDocument(rt)); err != nil {
			return fmt.Errorf("insert room type: %w", err)
		}
		return nil
	})
}

// Update replaces the stored room type.
func (r *RoomTypeRepository) Update(ctx context.Context, rt *accommodation.RoomType) error {
	return storage.ExecuteAndTrace(ctx, r.tracer, "mongodb.update_room_type", []attribute.KeyValue{
		attribute.String("room_type_id", rt.ID.String()),
	}, func(ctx context.Context) error {
		doc := toRoomTypeDocument(rt)
		result, err := r.collection.UpdateOne(ctx, bson.M{"_id": doc.ID}, bson.M{"$set": doc})
		if err != nil {
			return fmt.Errorf("update room type: %w", err)
		}
		if result.MatchedCount == 0 {
			return accommodation.ErrNotFound
		}
		return nil
	})
}

// Delete removes the room type.
func (r *RoomTypeRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return storage.ExecuteAndTrace(ctx, r.tracer, "mongodb.delete_room_type", []attribute.KeyValue{
		attribute.String("room_type_id", id.String()),
	}, func(ctx context.Context) error {
		result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id.String()})
		if err != nil {
			return fmt.Errorf("delete room type: %w", err)
		}
		if result.DeletedCount == 0 {
			return accommodation.ErrNotFound
		}
		return nil
	})
}

// FindByAccommodation lists the room types of one accommodation.
func (r *RoomTypeRepository) FindByAccommodation(ctx context.Context, accommodationID uuid.UUID) ([]accommodation.RoomType, error) {
	var found []accommodation.RoomType
	err := storage.ExecuteAndTrace(ctx, r.tracer, "mongodb.find_room_types", []attribute.KeyValue{
		attribute.String("accommodation_id", accommodationID.String()),
	}, func(ctx context.Context) error {
		cursor, err := r.collection.Find(ctx, bson.M{"accommodation_id": accommodationID.String()})
		if err != nil {
			return fmt.Errorf("find room types: %w", err)
		}

		var docs []roomTypeDocument
		if err := cursor.All(ctx, &docs); err != nil {
			return fmt.Errorf("read room types: %w", err)
		}

		found = make([]accommodation.RoomType, 0, len(docs))
		for _, doc := range docs {
			rt, err := doc.toDomain()
			if err != nil {
				return err
			}
			found = append(found, rt)
		}
		return nil
	})
	return found, err
}
