package cfgloader

import (
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const maskedValue = "******"

func printConfig(config any) {
	out, err := yaml.Marshal(Masked(config))
	if err != nil {
		slog.Error("[cfgloader]: failed to marshal config", "error", err.Error())
		return
	}
	slog.Info(fmt.Sprintf("[cfgloader]: loaded config:\n%s", out))
}

// Masked returns config as a map keyed by yaml field names, with every field
// tagged `mask:"true"` replaced by a fixed placeholder. Unset masked fields stay
// empty so a missing secret is still visible.
func Masked(config any) map[string]any {
	v := reflect.Indirect(reflect.ValueOf(config))
	if v.Kind() != reflect.Struct {
		return nil
	}
	m, _ := plain(v).(map[string]any)
	return m
}

func plain(v reflect.Value) any {
	switch v.Kind() { //nolint:exhaustive // scalars fall through to Interface
	case reflect.Ptr, reflect.Interface:
		if v.IsNil() {
			return nil
		}
		return plain(v.Elem())

	case reflect.Struct:
		if v.Type() == reflect.TypeFor[time.Time]() {
			return v.Interface()
		}
		out := make(map[string]any, v.NumField())
		for i := range v.NumField() {
			f := v.Type().Field(i)
			if !f.IsExported() {
				continue
			}
			name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
			if name == "-" {
				continue
			}
			if name == "" {
				name = strings.ToLower(f.Name)
			}

			fv := v.Field(i)
			if f.Tag.Get("mask") == "true" && !fv.IsZero() {
				out[name] = maskedValue
				continue
			}
			out[name] = plain(fv)
		}
		return out

	case reflect.Map:
		if v.IsNil() {
			return nil
		}
		out := make(map[string]any, v.Len())
		for it := v.MapRange(); it.Next(); {
			out[fmt.Sprint(it.Key().Interface())] = plain(it.Value())
		}
		return out

	case reflect.Slice, reflect.Array:
		if v.Kind() == reflect.Slice && v.IsNil() {
			return nil
		}
		out := make([]any, v.Len())
		for i := range out {
			out[i] = plain(v.Index(i))
		}
		return out

	default:
		if d, ok := v.Interface().(time.Duration); ok {
			return d.String()
		}
		return v.Interface()
	}
}
