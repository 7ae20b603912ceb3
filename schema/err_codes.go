package schema

const (
	// CodeInvalidSchema is returned when a row type cannot be described as a table.
	CodeInvalidSchema = "INVALID_SCHEMA"
)
