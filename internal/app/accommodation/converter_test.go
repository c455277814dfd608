package accommodation

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	domain "github.com/cschaible/go-microservices-kafka/internal/domain/accommodation"
	"github.com/cschaible/go-microservices-kafka/internal/domain/events"
	"github.com/cschaible/go-microservices-kafka/internal/infra/eventbus/serialization"
	"github.com/cschaible/go-microservices-kafka/pkg/common"
)

type encodedCall struct {
	schemaName string
	value      any
}

type fakeEncoder struct {
	calls []encodedCall
	err   error
}

func (f *fakeEncoder) Encode(_ context.Context, schemaName string, v any) ([]byte, error) {
	f.calls = append(f.calls, encodedCall{schemaName: schemaName, value: v})
	if f.err != nil {
		return nil, f.err
	}
	return []byte(schemaName), nil
}

func testAccommodation() *domain.Accommodation {
	area := "Kreuzberg"
	return &domain.Accommodation{
		ID:          uuid.New(),
		Version:     4,
		Name:        "City Hotel",
		Description: "Central",
		Address: domain.Address{
			Street:      "Oranienstr",
			HouseNumber: 10,
			ZipCode:     "10997",
			City:        "Berlin",
			Area:        &area,
			Country:     domain.CountryDE,
		},
	}
}

func TestAccommodationConverterHandles(t *testing.T) {
	c := NewAccommodationConverter(&fakeEncoder{}, events.TopicConfiguration{Name: "accommodation", Partitions: 6},
		noop.NewTracerProvider().Tracer("test"))

	assert.True(t, c.Handles(events.EventTypeAccommodationCreated))
	assert.True(t, c.Handles(events.EventTypeAccommodationUpdated))
	assert.False(t, c.Handles(events.EventTypeRoomTypeCreated))
	assert.False(t, c.Handles(events.EventTypeUserCreated))
}

func TestAccommodationConverterConvertCreate(t *testing.T) {
	encoder := &fakeEncoder{}
	topic := events.TopicConfiguration{Name: "accommodation", Partitions: 6}
	c := NewAccommodationConverter(encoder, topic, noop.NewTracerProvider().Tracer("test"))

	a := testAccommodation()
	msg, err := c.Convert(context.Background(), events.DomainEvent{
		Type:    events.EventTypeAccommodationCreated,
		Payload: a,
	})
	require.NoError(t, err)

	assert.Equal(t, "accommodation", msg.Topic)

	expectedPartition, err := common.PartitionOf(a.ID, topic.Partitions)
	require.NoError(t, err)
	assert.Equal(t, expectedPartition, msg.Partition)

	require.Len(t, encoder.calls, 2)

	payload, ok := encoder.calls[0].value.(serialization.CreateAccommodationAvro)
	require.True(t, ok)
	assert.Equal(t, serialization.SchemaNameCreateAccommodation, encoder.calls[0].schemaName)
	assert.Equal(t, a.ID.String(), payload.Identifier)
	assert.Equal(t, "City Hotel", payload.Name)
	assert.Equal(t, "DE", payload.Address.Country)

	key, ok := encoder.calls[1].value.(serialization.KeyAvro)
	require.True(t, ok)
	assert.Equal(t, serialization.SchemaNameKey, encoder.calls[1].schemaName)
	assert.Equal(t, a.ID.String(), key.ContextIdentifier)
	assert.Equal(t, serialization.DataTypeAccommodation, key.Identifier.DataType)
	assert.Equal(t, int64(4), key.Identifier.Version)
}

func TestAccommodationConverterConvertUpdate(t *testing.T) {
	encoder := &fakeEncoder{}
	c := NewAccommodationConverter(encoder, events.TopicConfiguration{Name: "accommodation", Partitions: 6},
		noop.NewTracerProvider().Tracer("test"))

	_, err := c.Convert(context.Background(), events.DomainEvent{
		Type:    events.EventTypeAccommodationUpdated,
		Payload: testAccommodation(),
	})
	require.NoError(t, err)

	require.NotEmpty(t, encoder.calls)
	assert.Equal(t, serialization.SchemaNameUpdateAccommodation, encoder.calls[0].schemaName)
	_, ok := encoder.calls[0].value.(serialization.UpdateAccommodationAvro)
	assert.True(t, ok)
}

func TestAccommodationConverterPanicsOnWrongPayload(t *testing.T) {
	c := NewAccommodationConverter(&fakeEncoder{}, events.TopicConfiguration{Name: "accommodation", Partitions: 6},
		noop.NewTracerProvider().Tracer("test"))

	assert.Panics(t, func() {
		_, _ = c.Convert(context.Background(), events.DomainEvent{
			Type:    events.EventTypeAccommodationCreated,
			Payload: "not an accommodation",
		})
	})
}

func testRoomType() *domain.RoomType {
	return &domain.RoomType{
		ID:              uuid.New(),
		AccommodationID: uuid.New(),
		Size:            32,
		Balcony:         true,
		BedType:         domain.BedTypeTwinSingle,
		TV:              true,
		WiFi:            true,
	}
}

func TestRoomTypeConverterHandles(t *testing.T) {
	c := NewRoomTypeConverter(&fakeEncoder{}, events.TopicConfiguration{Name: "accommodation", Partitions: 6},
		noop.NewTracerProvider().Tracer("test"))

	assert.True(t, c.Handles(events.EventTypeRoomTypeCreated))
	assert.True(t, c.Handles(events.EventTypeRoomTypeUpdated))
	assert.True(t, c.Handles(events.EventTypeRoomTypeDeleted))
	assert.False(t, c.Handles(events.EventTypeAccommodationCreated))
}

func TestRoomTypeConverterPartitionsByAccommodation(t *testing.T) {
	encoder := &fakeEncoder{}
	topic := events.TopicConfiguration{Name: "accommodation", Partitions: 6}
	c := NewRoomTypeConverter(encoder, topic, noop.NewTracerProvider().Tracer("test"))

	rt := testRoomType()
	msg, err := c.Convert(context.Background(), events.DomainEvent{
		Type:    events.EventTypeRoomTypeCreated,
		Payload: rt,
	})
	require.NoError(t, err)

	// Room type events follow their parent accommodation's partition so
	// they stay ordered relative to it.
	expectedPartition, err := common.PartitionOf(rt.AccommodationID, topic.Partitions)
	require.NoError(t, err)
	assert.Equal(t, expectedPartition, msg.Partition)

	require.Len(t, encoder.calls, 2)

	payload, ok := encoder.calls[0].value.(serialization.CreateRoomTypeAvro)
	require.True(t, ok)
	assert.Equal(t, "TWINSINGLE", payload.BedType)
	assert.Equal(t, rt.AccommodationID.String(), payload.AccommodationID)

	key, ok := encoder.calls[1].value.(serialization.KeyAvro)
	require.True(t, ok)
	assert.Equal(t, rt.AccommodationID.String(), key.ContextIdentifier)
	assert.Equal(t, rt.ID.String(), key.Identifier.Identifier)
	assert.Equal(t, serialization.DataTypeRoomType, key.Identifier.DataType)
	assert.Equal(t, int64(-1), key.Identifier.Version)
}

func TestRoomTypeConverterConvertDelete(t *testing.T) {
	encoder := &fakeEncoder{}
	c := NewRoomTypeConverter(encoder, events.TopicConfiguration{Name: "accommodation", Partitions: 6},
		noop.NewTracerProvider().Tracer("test"))

	rt := testRoomType()
	_, err := c.Convert(context.Background(), events.DomainEvent{
		Type:    events.EventTypeRoomTypeDeleted,
		Payload: rt,
	})
	require.NoError(t, err)

	require.NotEmpty(t, encoder.calls)
	assert.Equal(t, serialization.SchemaNameDeleteRoomType, encoder.calls[0].schemaName)

	payload, ok := encoder.calls[0].value.(serialization.DeleteRoomTypeAvro)
	require.True(t, ok)
	assert.Equal(t, rt.ID.String(), payload.Identifier)
	assert.Equal(t, rt.AccommodationID.String(), payload.AccommodationID)
}
