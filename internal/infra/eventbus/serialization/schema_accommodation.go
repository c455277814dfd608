package serialization

// Data type discriminators carried in the key's identifier record.
const (
	DataTypeAccommodation = "accommodation"
	DataTypeRoomType      = "roomType"
)

// Registry subjects and record names of the accommodation payload schemas.
const (
	SchemaNameCreateAccommodation = "CreateAccommodationAvroV1"
	SchemaNameUpdateAccommodation = "UpdateAccommodationAvroV1"
	SchemaNameCreateRoomType      = "CreateRoomTypeAvroV1"
	SchemaNameUpdateRoomType      = "UpdateRoomTypeAvroV1"
	SchemaNameDeleteRoomType      = "DeleteRoomTypeAvroV1"
)

// AccommodationAddressAvro is the embedded address record shared by the
// accommodation create and update payloads.
type AccommodationAddressAvro struct {
	Street      string  `avro:"street"`
	HouseNumber int     `avro:"houseNumber"`
	ZipCode     string  `avro:"zipCode"`
	City        string  `avro:"city"`
	Area        *string `avro:"area"`
	Country     string  `avro:"country"`
}

// CreateAccommodationAvro is the payload published when an accommodation is
// created.
type CreateAccommodationAvro struct {
	Identifier  string                   `avro:"identifier"`
	Name        string                   `avro:"name"`
	Description string                   `avro:"description"`
	Address     AccommodationAddressAvro `avro:"address"`
}

// UpdateAccommodationAvro is the payload published when an accommodation is
// updated. It mirrors the create shape but evolves as its own schema.
type UpdateAccommodationAvro struct {
	Identifier  string                   `avro:"identifier"`
	Name        string                   `avro:"name"`
	Description string                   `avro:"description"`
	Address     AccommodationAddressAvro `avro:"address"`
}

// CreateRoomTypeAvro is the payload published when a room type is added to
// an accommodation.
type CreateRoomTypeAvro struct {
	AccommodationID string `avro:"accommodationId"`
	Identifier      string `avro:"identifier"`
	Size            int    `avro:"size"`
	Balcony         bool   `avro:"balcony"`
	BedType         string `avro:"bedType"`
	TV              bool   `avro:"tv"`
	WiFi            bool   `avro:"wifi"`
}

// UpdateRoomTypeAvro is the payload published when a room type is modified.
type UpdateRoomTypeAvro struct {
	AccommodationID string `avro:"accommodationId"`
	Identifier      string `avro:"identifier"`
	Size            int    `avro:"size"`
	Balcony         bool   `avro:"balcony"`
	BedType         string `avro:"bedType"`
	TV              bool   `avro:"tv"`
	WiFi            bool   `avro:"wifi"`
}

// DeleteRoomTypeAvro is the payload published when a room type is removed.
type DeleteRoomTypeAvro struct {
	AccommodationID string `avro:"accommodationId"`
	Identifier      string `avro:"identifier"`
}

const schemaAddressFields = `[
  {"name": "street", "type": "string"},
  {"name": "houseNumber", "type": "int"},
  {"name": "zipCode", "type": "string"},
  {"name": "city", "type": "string"},
  {"name": "area", "type": ["null", "string"], "default": null},
  {"name": "country", "type": {"type": "enum", "name": "IsoCountryCodeEnumAvro", "symbols": ["DE", "US"]}}
]`

const schemaCreateAccommodation = `{
  "type": "record",
  "name": "CreateAccommodationAvroV1",
  "fields": [
    {"name": "identifier", "type": "string"},
    {"name": "name", "type": "string"},
    {"name": "description", "type": "string"},
    {"name": "address", "type": {"type": "record", "name": "AccommodationAddressAvro", "fields": ` + schemaAddressFields + `}}
  ]
}`

const schemaUpdateAccommodation = `{
  "type": "record",
  "name": "UpdateAccommodationAvroV1",
  "fields": [
    {"name": "identifier", "type": "string"},
    {"name": "name", "type": "string"},
    {"name": "description", "type": "string"},
    {"name": "address", "type": {"type": "record", "name": "AccommodationAddressAvro", "fields": ` + schemaAddressFields + `}}
  ]
}`

const schemaBedType = `{"type": "enum", "name": "BedTypeAvro", "symbols": ["SINGLE", "TWINSINGLE", "DOUBLE", "KING"]}`

const schemaCreateRoomType = `{
  "type": "record",
  "name": "CreateRoomTypeAvroV1",
  "fields": [
    {"name": "accommodationId", "type": "string"},
    {"name": "identifier", "type": "string"},
    {"name": "size", "type": "int"},
    {"name": "balcony", "type": "boolean"},
    {"name": "bedType", "type": ` + schemaBedType + `},
    {"name": "tv", "type": "boolean"},
    {"name": "wifi", "type": "boolean"}
  ]
}`

const schemaUpdateRoomType = `{
  "type": "record",
  "name": "UpdateRoomTypeAvroV1",
  "fields": [
    {"name": "accommodationId", "type": "string"},
    {"name": "identifier", "type": "string"},
    {"name": "size", "type": "int"},
    {"name": "balcony", "type": "boolean"},
    {"name": "bedType", "type": ` + schemaBedType + `},
    {"name": "tv", "type": "boolean"},
    {"name": "wifi", "type": "boolean"}
  ]
}`

const schemaDeleteRoomType = `{
  "type": "record",
  "name": "DeleteRoomTypeAvroV1",
  "fields": [
    {"name": "accommodationId", "type": "string"},
    {"name": "identifier", "type": "string"}
  ]
}`
