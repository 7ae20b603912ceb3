package columnar

const (
	// CodeInvalidConfiguration is returned for a chunk size below one.
	CodeInvalidConfiguration = "INVALID_CONFIGURATION"
)
