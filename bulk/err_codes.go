package bulk

const (
	// CodeInvalidConfiguration is returned for a bad chunk size, conflict target or returning setup.
	CodeInvalidConfiguration = "INVALID_CONFIGURATION"

	// CodeDriverError is returned when the database rejects a chunk.
	CodeDriverError = "DRIVER_ERROR"

	// CodeCorrelationMismatch is returned when the number of returned ids differs from the number of rows.
	CodeCorrelationMismatch = "CORRELATION_MISMATCH"

	// CodeCanceled is returned when the context is done before all chunks were executed.
	CodeCanceled = "CANCELED"
)
