package user

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/trace"

	"github.com/cschaible/go-microservices-kafka/internal/domain/events"
	domain "github.com/cschaible/go-microservices-kafka/internal/domain/user"
	"github.com/cschaible/go-microservices-kafka/internal/infra/eventbus/serialization"
	"github.com/cschaible/go-microservices-kafka/pkg/common"
)

var _ events.EventConverter = (*UserConverter)(nil)

// UserConverter encodes user creation events. Users are partitioned by their
// public identifier, not the database surrogate key.
type UserConverter struct {
	encoder serialization.Encoder
	topic   events.TopicConfiguration
	tracer  trace.Tracer
}

// NewUserConverter creates a converter publishing to the given topic.
func NewUserConverter(encoder serialization.Encoder, topic events.TopicConfiguration, tracer trace.Tracer) *UserConverter {
	return &UserConverter{encoder: encoder, topic: topic, tracer: tracer}
}

// Handles reports whether this converter produces messages for the event type.
func (c *UserConverter) Handles(eventType events.EventType) bool {
	return eventType == events.EventTypeUserCreated
}

// Convert encodes the user snapshot into a broker-ready message.
func (c *UserConverter) Convert(ctx context.Context, event events.DomainEvent) (events.EncodedMessage, error) {
	ctx, span := c.tracer.Start(ctx, "user_converter.convert")
	defer span.End()

	u, ok := event.Payload.(*domain.User)
	if !ok {
		panic(fmt.Sprintf("unexpected payload type %T for event type %s", event.Payload, event.Type))
	}

	partition, err := common.PartitionOf(u.Identifier, c.topic.Partitions)
	if err != nil {
		return events.EncodedMessage{}, err
	}

	phoneNumbers := make([]serialization.PhoneNumberAvro, 0, len(u.PhoneNumbers))
	for _, n := range u.PhoneNumbers {
		phoneNumbers = append(phoneNumbers, serialization.PhoneNumberAvro{
			CountryCode:     n.CountryCode,
			PhoneNumberType: string(n.Type),
			CallNumber:      n.CallNumber,
		})
	}

	payload, err := c.encoder.Encode(ctx, serialization.SchemaNameCreateUser, serialization.CreateUserAvro{
		Identifier:   u.Identifier.String(),
		Name:         u.Name,
		Email:        u.Email,
		Country:      string(u.Country),
		PhoneNumbers: phoneNumbers,
	})
	if err != nil {
		return events.EncodedMessage{}, err
	}

	key, err := c.encoder.Encode(ctx, serialization.SchemaNameKey, serialization.KeyAvro{
		ContextIdentifier: u.Identifier.String(),
		Identifier: serialization.IdentifierAvro{
			DataType:   serialization.DataTypeUser,
			Identifier: u.Identifier.String(),
			Version:    u.Version,
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
