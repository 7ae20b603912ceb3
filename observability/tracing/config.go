package tracing

import "time"

const (
	reconnectionPeriod = 30 * time.Second
	shutdownTimeout    = 5 * time.Second
)

// Config holds the configuration for exporting bulk write spans.
type Config struct {
	// Disable, if true, installs a no-op tracer provider.
	Disable bool `yaml:"disable" default:"false"`

	// SampleRate is the fraction of traces sampled, between 0.0 and 1.0.
	SampleRate float64 `yaml:"sample_rate" default:"1" validate:"gte=0,lte=1"`

	// ExporterHost is the hostname of the OTLP gRPC collector.
	ExporterHost string `yaml:"exporter_host" validate:"required_if=Disable false"`

	// ExporterPort is the port of the OTLP gRPC collector.
	ExporterPort int `yaml:"exporter_port" default:"4317"`

	// Tags are added as resource attributes to all spans.
	Tags map[string]string `yaml:"tags"`
}
