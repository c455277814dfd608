// Package serialization provides the Avro wire codec backed by a Confluent
// schema registry. Payload and key records are encoded under logical schema
// names (record name strategy), so every record shape evolves independently.
//
// The wire format is the Confluent framing: one magic byte, the registered
// schema id as a big-endian uint32, then the Avro binary encoding. Consumers
// resolve the schema by id and can decode without prior knowledge of the
// record shape.
package serialization

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/hamba/avro/v2"
	"github.com/riferrei/srclient"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// magicByte marks the start of a Confluent-framed message.
const magicByte byte = 0x0

// Encoder encodes a typed record under a logical schema name. Implementations
// must return an error (not panic) on registry or schema failures so the
// enclosing business transaction rolls back.
type Encoder interface {
	Encode(ctx context.Context, schemaName string, v any) ([]byte, error)
}

// Decoder decodes a wire-framed message back into a dynamic value.
type Decoder interface {
	Decode(ctx context.Context, data []byte) (Decoded, error)
}

// Decoded is the result of decoding a wire message: the record's full name
// from its writer schema plus the generically decoded value.
type Decoded struct {
	Name  string
	Value map[string]any
}

// RegistryCodec implements Encoder and Decoder against a schema registry.
// Resolved schemas are cached; the registry is only consulted once per
// schema name (encode) or schema id (decode).
type RegistryCodec struct {
	registry srclient.ISchemaRegistryClient
	tracer   trace.Tracer

	mu     sync.RWMutex
	byName map[string]registeredSchema
	byID   map[int]avro.Schema
}

type registeredSchema struct {
	id     int
	schema avro.Schema
}

var (
	_ Encoder = (*RegistryCodec)(nil)
	_ Decoder = (*RegistryCodec)(nil)
)

// NewRegistryCodec creates a codec backed by the provided registry client.
func NewRegistryCodec(registry srclient.ISchemaRegistryClient, tracer trace.Tracer) *RegistryCodec {
	return &RegistryCodec{
		registry: registry,
		tracer:   tracer,
		byName:   make(map[string]registeredSchema),
		byID:     make(map[int]avro.Schema),
	}
}

// Encode serializes v under the latest schema registered for schemaName and
// frames it for the wire.
func (c *RegistryCodec) Encode(ctx context.Context, schemaName string, v any) ([]byte, error) {
	_, span := c.tracer.Start(ctx, "avro_codec.encode",
		trace.WithAttributes(attribute.String("schema_name", schemaName)))
	defer span.End()

	rs, err := c.schemaByName(schemaName)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "schema resolution failed")
		return nil, err
	}

	data, err := avro.Marshal(rs.schema, v)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "avro marshal failed")
		return nil, fmt.Errorf("marshal %s: %w", schemaName, err)
	}

	framed := make([]byte, 5, 5+len(data))
	framed[0] = magicByte
	binary.BigEndian.PutUint32(framed[1:5], uint32(rs.id))
	framed = append(framed, data...)

	return framed, nil
}

// Decode reverses Encode: it resolves the writer schema by id and decodes
// the Avro binary into a generic value.
func (c *RegistryCodec) Decode(ctx context.Context, data []byte) (Decoded, error) {
	_, span := c.tracer.Start(ctx, "avro_codec.decode")
	defer span.End()

	if len(data) < 5 || data[0] != magicByte {
		err := fmt.Errorf("malformed wire message: missing confluent framing")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Decoded{}, err
	}

	schemaID := int(binary.BigEndian.Uint32(data[1:5]))
	schema, err := c.schemaByID(schemaID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "schema resolution failed")
		return Decoded{}, err
	}

	var value map[string]any
	if err := avro.Unmarshal(schema, data[5:], &value); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "avro unmarshal failed")
		return Decoded{}, fmt.Errorf("unmarshal schema id %d: %w", schemaID, err)
	}

	name := ""
	if named, ok := schema.(avro.NamedSchema); ok {
		name = named.FullName()
	}

	return Decoded{Name: name, Value: value}, nil
}

func (c *RegistryCodec) schemaByName(schemaName string) (registeredSchema, error) {
	c.mu.RLock()
	rs, ok := c.byName[schemaName]
	c.mu.RUnlock()
	if ok {
		return rs, nil
	}

	latest, err := c.registry.GetLatestSchema(schemaName)
	if err != nil {
		return registeredSchema{}, fmt.Errorf("get latest schema for subject %s: %w", schemaName, err)
	}

	parsed, err := avro.Parse(latest.Schema())
	if err != nil {
		return registeredSchema{}, fmt.Errorf("parse schema for subject %s: %w", schemaName, err)
	}

	rs = registeredSchema{id: latest.ID(), schema: parsed}

	c.mu.Lock()
	c.byName[schemaName] = rs
	c.byID[rs.id] = parsed
	c.mu.Unlock()

	return rs, nil
}

func (c *RegistryCodec) schemaByID(id int) (avro.Schema, error) {
	c.mu.RLock()
	schema, ok := c.byID[id]
	c.mu.RUnlock()
	if ok {
		return schema, nil
	}

	fetched, err := c.registry.GetSchema(id)
	if err != nil {
		return nil, fmt.Errorf("get schema id %d: %w", id, err)
	}

	parsed, err := avro.Parse(fetched.Schema())
	if err != nil {
		return nil, fmt.Errorf("parse schema id %d: %w", id, err)
	}

	c.mu.Lock()
	c.byID[id] = parsed
	c.mu.Unlock()

	return parsed, nil
}
