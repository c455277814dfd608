package serialization

// DataTypeUser is the key discriminator for user events.
const DataTypeUser = "user"

// SchemaNameCreateUser is the registry subject of the user creation payload.
// The record name inside the schema is "user"; the subject predates the
// versioned naming convention and must stay as-is for wire compatibility.
const SchemaNameCreateUser = "create_user"

// PhoneNumberAvro is the embedded phone number record of the user payload.
type PhoneNumberAvro struct {
	CountryCode     string `avro:"countryCode"`
	PhoneNumberType string `avro:"phoneNumberType"`
	CallNumber      string `avro:"callNumber"`
}

// CreateUserAvro is the payload published when a user is created.
type CreateUserAvro struct {
	Identifier   string            `avro:"identifier"`
	Name         string            `avro:"name"`
	Email        string            `avro:"email"`
	Country      string            `avro:"country"`
	PhoneNumbers []PhoneNumberAvro `avro:"phoneNumbers"`
}

const schemaCreateUser = `{
  "type": "record",
  "name": "user",
  "fields": [
    {"name": "identifier", "type": "string"},
    {"name": "name", "type": "string"},
    {"name": "email", "type": "string"},
    {"name": "country", "type": {"type": "enum", "name": "IsoCountryCodeEnumAvro", "symbols": ["DE", "US"]}},
    {"name": "phoneNumbers", "type": {"type": "array", "items": {
      "type": "record",
      "name": "phoneNumber",
      "fields": [
        {"name": "countryCode", "type": "string"},
        {"name": "phoneNumberType", "type": {"type": "enum", "name": "PhoneNumberTypeEnumAvro", "symbols": ["Business", "Home", "Mobile"]}},
        {"name": "callNumber", "type": "string"}
      ]
    }}}
  ]
}`
