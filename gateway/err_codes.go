package gateway

const (
	// CodeUnknownColumn is returned when a condition names a column outside the schema.
	CodeUnknownColumn = "UNKNOWN_COLUMN"

	// CodeQueryFailed is returned when a select, insert or delete statement fails.
	CodeQueryFailed = "QUERY_FAILED"
)
