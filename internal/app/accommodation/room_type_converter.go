package accommodation

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/trace"

	domain "github.com/cschaible/go-microservices-kafka/internal/domain/accommodation"
	"github.com/cschaible/go-microservices-kafka/internal/domain/events"
	"github.com/cschaible/go-microservices-kafka/internal/infra/eventbus/serialization"
	"github.com/cschaible/go-microservices-kafka/pkg/common"
)

// roomTypeNoVersion marks room type keys as unversioned. Room types carry no
// optimistic lock, and consumers rely on this sentinel to skip version
// checks.
const roomTypeNoVersion = -1

var _ events.EventConverter = (*RoomTypeConverter)(nil)

// RoomTypeConverter encodes room type create, update, and delete events.
// Room type events are partitioned by their parent accommodation, so they
// stay ordered relative to the accommodation's own events.
type RoomTypeConverter struct {
	encoder serialization.Encoder
	topic   events.TopicConfiguration
	tracer  trace.Tracer
}

// NewRoomTypeConverter creates a converter publishing to the given topic.
func NewRoomTypeConverter(encoder serialization.Encoder, topic events.TopicConfiguration, tracer trace.Tracer) *RoomTypeConverter {
	return &RoomTypeConverter{encoder: encoder, topic: topic, tracer: tracer}
}

// Handles reports whether this converter produces messages for the event type.
func (c *RoomTypeConverter) Handles(eventType events.EventType) bool {
	switch eventType {
	case events.EventTypeRoomTypeCreated, events.EventTypeRoomTypeUpdated, events.EventTypeRoomTypeDeleted:
		return true
	}
	return false
}

// Convert encodes the room type snapshot into a broker-ready message.
func (c *RoomTypeConverter) Convert(ctx context.Context, event events.DomainEvent) (events.EncodedMessage, error) {
	ctx, span := c.tracer.Start(ctx, "room_type_converter.convert")
	defer span.End()

	rt, ok := event.Payload.(*domain.RoomType)
	if !ok {
		panic(fmt.Sprintf("unexpected payload type %T for event type %s", event.Payload, event.Type))
	}

	partition, err := common.PartitionOf(rt.AccommodationID, c.topic.Partitions)
	if err != nil {
		return events.EncodedMessage{}, err
	}

	var payload []byte
	switch event.Type {
	case events.EventTypeRoomTypeCreated:
		payload, err = c.encoder.Encode(ctx, serialization.SchemaNameCreateRoomType, toRoomTypeAvro(rt))
	case events.EventTypeRoomTypeUpdated:
		payload, err = c.encoder.Encode(ctx, serialization.SchemaNameUpdateRoomType, serialization.UpdateRoomTypeAvro(toRoomTypeAvro(rt)))
	case events.EventTypeRoomTypeDeleted:
		payload, err = c.encoder.Encode(ctx, serialization.SchemaNameDeleteRoomType, serialization.DeleteRoomTypeAvro{
			AccommodationID: rt.AccommodationID.String(),
			Identifier:      rt.ID.String(),
		})
	default:
		panic(fmt.Sprintf("unhandled event type: %s", event.Type))
	}
	if err != nil {
		return events.EncodedMessage{}, err
	}

	key, err := c.encoder.Encode(ctx, serialization.SchemaNameKey, serialization.KeyAvro{
		ContextIdentifier: rt.AccommodationID.String(),
		Identifier: serialization.IdentifierAvro{
			DataType:   serialization.DataTypeRoomType,
			Identifier: rt.ID.String(),
			Version:    roomTypeNoVersion,
		},
	})
	if err != nil {
		return events.EncodedMessage{}, err
	}

	return events.EncodedMessage{
		Topic:     c.topic.Name,
		Partition: partition,
		Key:       key,
		Payload:   payload,
	}, nil
}

func toRoomTypeAvro(rt *domain.RoomType) serialization.CreateRoomTypeAvro {
	return serialization.CreateRoomTypeAvro{
		AccommodationID: rt.AccommodationID.String(),
		Identifier:      rt.ID.String(),
		Size:            int(rt.Size),
		Balcony:         rt.Balcony,
		BedType:         bedTypeAvroSymbol(rt.BedType),
		TV:              rt.TV,
		WiFi:            rt.WiFi,
	}
}

// bedTypeAvroSymbol maps the domain enum to the uppercase Avro enum symbols.
func bedTypeAvroSymbol(b domain.BedType) string {
	switch b {
	case domain.BedTypeSingle:
		return "SINGLE"
	case domain.BedTypeTwinSingle:
		return "TWINSINGLE"
	case domain.BedTypeDouble:
		return "DOUBLE"
	case domain.BedTypeKing:
		return "KING"
	default:
		panic(fmt.Sprintf("unknown bed type: %s", b))
	}
}
