package serialization

import (
	"context"
	"encoding/binary"
	"testing"

	"github.com/riferrei/srclient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
)

func newTestCodec(t *testing.T) (*RegistryCodec, *srclient.MockSchemaRegistryClient) {
	t.Helper()

	registry := srclient.CreateMockSchemaRegistryClient("mock://registry")
	for subject, schema := range Schemas() {
		_, err := registry.CreateSchema(subject, schema, srclient.Avro)
		require.NoError(t, err)
	}

	tracer := noop.NewTracerProvider().Tracer("test")
	return NewRegistryCodec(registry, tracer), registry
}

func TestRegistryCodecEncodeFraming(t *testing.T) {
	codec, registry := newTestCodec(t)

	key := KeyAvro{
		ContextIdentifier: "9f0c6f1a-2e0a-4b7f-9a44-8f8f3d6c0a11",
		Identifier: IdentifierAvro{
			DataType:   DataTypeUser,
			Identifier: "9f0c6f1a-2e0a-4b7f-9a44-8f8f3d6c0a11",
			Version:    3,
		},
	}

	data, err := codec.Encode(context.Background(), SchemaNameKey, key)
	require.NoError(t, err)
	require.Greater(t, len(data), 5)

	assert.Equal(t, byte(0x0), data[0])

	registered, err := registry.GetLatestSchema(SchemaNameKey)
	require.NoError(t, err)
	assert.Equal(t, uint32(registered.ID()), binary.BigEndian.Uint32(data[1:5]))
}

func TestRegistryCodecRoundTripKey(t *testing.T) {
	codec, _ := newTestCodec(t)
	ctx := context.Background()

	key := KeyAvro{
		ContextIdentifier: "ctx-1",
		Identifier: IdentifierAvro{
			DataType:   DataTypeRoomType,
			Identifier: "rt-1",
			Version:    -1,
		},
	}

	encoded, err := codec.Encode(ctx, SchemaNameKey, key)
	require.NoError(t, err)

	decoded, err := codec.Decode(ctx, encoded)
	require.NoError(t, err)

	assert.Equal(t, "KeyAvro", decoded.Name)
	assert.Equal(t, "ctx-1", decoded.Value["contextIdentifier"])

	identifier, ok := decoded.Value["identifier"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, DataTypeRoomType, identifier["dataType"])
	assert.Equal(t, "rt-1", identifier["identifier"])
	assert.Equal(t, int64(-1), identifier["version"])
}

func TestRegistryCodecRoundTripUserPayload(t *testing.T) {
	codec, _ := newTestCodec(t)
	ctx := context.Background()

	payload := CreateUserAvro{
		Identifier: "2b7a4c7e-6a2f-4f3f-8a0a-1c9f5b1d2e33",
		Name:       "Jane Doe",
		Email:      "jane@example.com",
		Country:    "DE",
		PhoneNumbers: []PhoneNumberAvro{
			{CountryCode: "+49", PhoneNumberType: "Mobile", CallNumber: "1234567"},
		},
	}

	encoded, err := codec.Encode(ctx, SchemaNameCreateUser, payload)
	require.NoError(t, err)

	decoded, err := codec.Decode(ctx, encoded)
	require.NoError(t, err)

	assert.Equal(t, "user", decoded.Name)
	assert.Equal(t, "Jane Doe", decoded.Value["name"])
	assert.Equal(t, "DE", decoded.Value["country"])

	numbers, ok := decoded.Value["phoneNumbers"].([]any)
	require.True(t, ok)
	require.Len(t, numbers, 1)

	number, ok := numbers[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Mobile", number["phoneNumberType"])
	assert.Equal(t, "1234567", number["callNumber"])
}

func TestRegistryCodecRoundTripRoomTypePayload(t *testing.T) {
	codec, _ := newTestCodec(t)
	ctx := context.Background()

	payload := CreateRoomTypeAvro{
		AccommodationID: "acc-1",
		Identifier:      "rt-1",
		Size:            24,
		Balcony:         true,
		BedType:         "KING",
		TV:              true,
		WiFi:            false,
	}

	encoded, err := codec.Encode(ctx, SchemaNameCreateRoomType, payload)
	require.NoError(t, err)

	decoded, err := codec.Decode(ctx, encoded)
	require.NoError(t, err)

	assert.Equal(t, "CreateRoomTypeAvroV1", decoded.Name)
	assert.Equal(t, "acc-1", decoded.Value["accommodationId"])
	assert.Equal(t, "KING", decoded.Value["bedType"])
	assert.Equal(t, true, decoded.Value["balcony"])
	assert.Equal(t, false, decoded.Value["wifi"])
}

func TestRegistryCodecEncodeUnknownSubject(t *testing.T) {
	codec, _ := newTestCodec(t)

	_, err := codec.Encode(context.Background(), "NoSuchSchema", KeyAvro{})
	require.Error(t, err)
}

func TestRegistryCodecDecodeMalformed(t *testing.T) {
	codec, _ := newTestCodec(t)
	ctx := context.Background()

	_, err := codec.Decode(ctx, nil)
	require.Error(t, err)

	_, err = codec.Decode(ctx, []byte{0x1, 0, 0, 0, 1, 0xff})
	require.Error(t, err)

	_, err = codec.Decode(ctx, []byte{0x0, 0, 0})
	require.Error(t, err)
}
