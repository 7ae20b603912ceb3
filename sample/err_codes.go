package sample

const (
	// CodeUnsupportedField is returned when a field cannot hold a generated value.
	CodeUnsupportedField = "UNSUPPORTED_FIELD"

	// CodeInvalidCount is returned when a negative number of rows is requested.
	CodeInvalidCount = "INVALID_COUNT"
)
