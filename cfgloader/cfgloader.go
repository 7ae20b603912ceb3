// Package cfgloader loads and validates configuration at the start of an application.
package cfgloader

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"strings"

	"github.com/code19m/errx"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	EnvProduction = "production"
	EnvStaging    = "staging"
	EnvDev        = "dev"
	EnvLocal      = "local"
	EnvTest       = "test"

	CodeInvalidConfig = "INVALID_CONFIG"
)

// MustLoad is Load that logs the failure and exits the process.
func MustLoad[T any](opts ...Option) T {
	config, err := Load[T](opts...)
	if err != nil {
		slog.Error(fmt.Sprintf("[cfgloader]: %s", err.Error()))
		os.Exit(1)
	}
	return config
}

// Load reads ${ENVIRONMENT}.yaml from the config directory into T.
//
// The yaml text goes through os.ExpandEnv first, so values like ${PG_PASSWORD}
// are taken from the environment (a .env file is loaded when present).
// Fields are then filled from `default` tags and checked with `validate` tags
// (go-playground/validator).
//
// Example:
//
//	type Config struct {
//	    Table     string `yaml:"table" validate:"required"`
//	    ChunkSize int    `yaml:"chunk_size" default:"1000" validate:"min=1"`
//	}
func Load[T any](opts ...Option) (T, error) {
	var config T
	o := buildOptions(opts)

	if reflect.ValueOf(config).Kind() == reflect.Ptr {
		return config, errx.New("[cfgloader]: type argument must not be a pointer", errx.WithCode(CodeInvalidConfig))
	}

	_ = godotenv.Load(o.EnvFile)

	env, err := defineEnvironment()
	if err != nil {
		return config, err
	}

	path := filepath.Join(o.Dir, env+".yaml")
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return config, errx.New(
			"[cfgloader]: config file not found",
			errx.WithCode(CodeInvalidConfig),
			errx.WithDetails(errx.D{"path": path}),
		)
	}
	if err != nil {
		return config, errx.Wrap(err, errx.WithDetails(errx.D{"path": path}))
	}

	data = []byte(os.ExpandEnv(string(data)))

	if err = yaml.Unmarshal(data, &config); err != nil {
		return config, errx.Wrap(err, errx.WithCode(CodeInvalidConfig), errx.WithDetails(errx.D{"env": env}))
	}

	if err = defaults.Set(&config); err != nil {
		return config, errx.Wrap(err, errx.WithCode(CodeInvalidConfig))
	}

	if err = validateConfig(&config, env); err != nil {
		return config, err
	}

	if !o.Silent {
		printConfig(config)
	}

	return config, nil
}

func defineEnvironment() (string, error) {
	env := os.Getenv("ENVIRONMENT")
	if !slices.Contains([]string{EnvProduction, EnvStaging, EnvDev, EnvLocal, EnvTest}, env) {
		return "", errx.New(
			"[cfgloader]: ENVIRONMENT env variable is not set or invalid. Choices are: production, staging, dev, local, test",
			errx.WithCode(CodeInvalidConfig),
			errx.WithDetails(errx.D{"environment": env}),
		)
	}
	return env, nil
}

func validateConfig(config any, env string) error {
	v := validator.New(validator.WithRequiredStructEnabled())
	err := v.Struct(config)
	if err == nil {
		return nil
	}

	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return errx.Wrap(err, errx.WithCode(CodeInvalidConfig))
	}

	failedFields := make([]string, 0, len(errs))
	for _, fe := range errs {
		tagErr := fe.Tag()
		if fe.Param() != "" {
			tagErr += "=" + fe.Param()
		}
		failedFields = append(failedFields, fmt.Sprintf("%s: %s", fe.Namespace(), tagErr))
	}

	return errx.New(
		fmt.Sprintf("[cfgloader]: invalid fields in %s config -> %s", env, strings.Join(failedFields, ",  ")),
		errx.WithCode(CodeInvalidConfig),
		errx.WithType(errx.T_Validation),
	)
}
