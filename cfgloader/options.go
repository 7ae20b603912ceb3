package cfgloader

// Options holds configuration options for Load and MustLoad.
type Options struct {
	// Silent disables printing the loaded (masked) config.
	Silent bool

	// Dir is the directory holding ${ENVIRONMENT}.yaml files. Default "./config".
	Dir string

	// EnvFile is the dotenv file loaded before reading the config. Default ".env".
	EnvFile string
}

// Option is a functional option for configuring Load behavior.
type Option func(*Options)

// WithSilent disables config logging to stdout.
func WithSilent() Option {
	return func(o *Options) {
		o.Silent = true
	}
}

// WithDir sets the directory the environment yaml files are read from.
func WithDir(dir string) Option {
	return func(o *Options) {
		o.Dir = dir
	}
}

// WithEnvFile sets the dotenv file loaded before the config is read.
func WithEnvFile(path string) Option {
	return func(o *Options) {
		o.EnvFile = path
	}
}

func buildOptions(opts []Option) Options {
	o := Options{Dir: "./config", EnvFile: ".env"}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
