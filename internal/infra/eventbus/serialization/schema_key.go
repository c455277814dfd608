package serialization

// KeyAvro is the record key shared by all topics. The context identifier
// carries the aggregate root's id so that every event of the same aggregate
// lands on the same partition, while the inner identifier names the concrete
// record the event refers to.
type KeyAvro struct {
	ContextIdentifier string         `avro:"contextIdentifier"`
	Identifier        IdentifierAvro `avro:"identifier"`
}

// IdentifierAvro identifies one record instance and its optimistic lock
// version at the time the event was raised.
type IdentifierAvro struct {
	DataType   string `avro:"dataType"`
	Identifier string `avro:"identifier"`
	Version    int64  `avro:"version"`
}

// SchemaNameKey is the registry subject and record name of KeyAvro.
const SchemaNameKey = "KeyAvro"

const schemaKey = `{
  "type": "record",
  "name": "KeyAvro",
  "fields": [
    {"name": "contextIdentifier", "type": "string"},
    {"name": "identifier", "type": {
      "type": "record",
      "name": "IdentifierAvro",
      "fields": [
        {"name": "dataType", "type": "string"},
        {"name": "identifier", "type": "string"},
        {"name": "version", "type": "long"}
      ]
    }}
  ]
}`
