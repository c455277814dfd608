package serialization

// Schemas returns every schema this system publishes or consumes, keyed by
// registry subject. The schema publisher registers them at deploy time so the
// services never need write access to the registry.
func Schemas() map[string]string {
	return map[string]string{
		SchemaNameKey:                 schemaKey,
		SchemaNameCreateAccommodation: schemaCreateAccommodation,
		SchemaNameUpdateAccommodation: schemaUpdateAccommodation,
		SchemaNameCreateRoomType:      schemaCreateRoomType,
		SchemaNameUpdateRoomType:      schemaUpdateRoomType,
		SchemaNameDeleteRoomType:      schemaDeleteRoomType,
		SchemaNameCreateUser:          schemaCreateUser,
	}
}
