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

var _ events.EventConverter = (*AccommodationConverter)(nil)

// AccommodationConverter encodes accommodation create and update events.
// Keys carry the aggregate's optimistic lock version so consumers can detect
// stale messages.
type AccommodationConverter struct {
	encoder serialization.Encoder
	topic   events.TopicConfiguration
	tracer  trace.Tracer
}

// NewAccommodationConverter creates a converter publishing to the given topic.
func NewAccommodationConverter(encoder serialization.Encoder, topic events.TopicConfiguration, tracer trace.Tracer) *AccommodationConverter {
	return &AccommodationConverter{encoder: encoder, topic: topic, tracer: tracer}
}

// Handles reports whether this converter produces messages for the event type.
func (c *AccommodationConverter) Handles(eventType events.EventType) bool {
	return eventType == events.EventTypeAccommodationCreated ||
		eventType == events.EventTypeAccommodationUpdated
}

// Convert encodes the accommodation snapshot into a broker-ready message.
func (c *AccommodationConverter) Convert(ctx context.Context, event events.DomainEvent) (events.EncodedMessage, error) {
	ctx, span := c.tracer.Start(ctx, "accommodation_converter.convert")
	defer span.End()

	a, ok := event.Payload.(*domain.Accommodation)
	if !ok {
		panic(fmt.Sprintf("unexpected payload type %T for event type %s", event.Payload, event.Type))
	}

	partition, err := common.PartitionOf(a.ID, c.topic.Partitions)
	if err != nil {
		return events.EncodedMessage{}, err
	}

	var payload []byte
	switch event.Type {
	case events.EventTypeAccommodationCreated:
		payload, err = c.encoder.Encode(ctx, serialization.SchemaNameCreateAccommodation, serialization.CreateAccommodationAvro{
			Identifier:  a.ID.String(),
			Name:        a.Name,
			Description: a.Description,
			Address:     toAddressAvro(a.Address),
		})
	case events.EventTypeAccommodationUpdated:
		payload, err = c.encoder.Encode(ctx, serialization.SchemaNameUpdateAccommodation, serialization.UpdateAccommodationAvro{
			Identifier:  a.ID.String(),
			Name:        a.Name,
			Description: a.Description,
			Address:     toAddressAvro(a.Address),
		})
	default:
		panic(fmt.Sprintf("unhandled event type: %s", event.Type))
	}
	if err != nil {
		return events.EncodedMessage{}, err
	}

	key, err := c.encoder.Encode(ctx, serialization.SchemaNameKey, serialization.KeyAvro{
		ContextIdentifier: a.ID.String(),
		Identifier: serialization.IdentifierAvro{
			DataType:   serialization.DataTypeAccommodation,
			Identifier: a.ID.String(),
			Version:    a.Version,
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

func toAddressAvro(a domain.Address) serialization.AccommodationAddressAvro {
	return serialization.AccommodationAddressAvro{
		Street:      a.Street,
		HouseNumber: int(a.HouseNumber),
		ZipCode:     a.ZipCode,
		City:        a.City,
		Area:        a.Area,
		Country:     string(a.Country),
	}
}
