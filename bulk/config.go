package bulk

// Config is the yaml configuration of a Writer.
type Config struct {
	// ChunkSize is the number of rows bound into one statement.
	ChunkSize int `yaml:"chunk_size" default:"1000" validate:"min=1"`
}
