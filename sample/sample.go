// Package sample generates deterministic rows for a schema, for fixtures, demos
// and upsert round trips.
package sample

import (
	"database/sql"
	"encoding/json"
	"reflect"
	"time"

	"github.com/code19m/errx"
	"github.com/google/uuid"
	"github.com/spf13/cast"

	"github.com/rise-and-shine/pgbulk/schema"
)

//nolint:gochecknoglobals // reflect types
var (
	timeType     = reflect.TypeFor[time.Time]()
	durationType = reflect.TypeFor[time.Duration]()
	uuidType     = reflect.TypeFor[uuid.UUID]()
	scannerType  = reflect.TypeFor[sql.Scanner]()
)

// Rows returns n rows with every insert column filled. Each column counts through
// its own sequence, so the i-th row is the same on every call. Auto columns stay zero.
func Rows[T any](s *schema.Schema[T], n int) ([]T, error) {
	if n < 0 {
		return nil, errx.New("[sample]: row count must not be negative",
			errx.WithCode(CodeInvalidCount),
			errx.WithType(errx.T_Validation),
			errx.WithDetails(errx.D{"n": n}),
		)
	}

	cols := s.InsertColumns()
	seqs := make([]sequence, len(cols))
	for i, c := range cols {
		seqs[i] = newSequence(c.Type)
	}

	rows := make([]T, n)
	for r := range rows {
		rv := reflect.ValueOf(&rows[r]).Elem()
		for i, c := range cols {
			if err := assign(c.FieldOf(rv), seqs[i]()); err != nil {
				return nil, unsupported(c, err)
			}
		}
	}
	return rows, nil
}

// Mutate changes every value column of row (insert columns outside the key), leaving
// key and auto columns intact so an upsert of the mutated row overwrites the original.
// NULL values stay NULL.
func Mutate[T any](s *schema.Schema[T], row *T) error {
	rv := reflect.ValueOf(row).Elem()
	for _, c := range s.ValueColumns() {
		if err := mutate(c.FieldOf(rv), c.Type); err != nil {
			return unsupported(c, err)
		}
	}
	return nil
}

func assign(field reflect.Value, v any) error {
	ft := field.Type()

	if ft.Kind() == reflect.Ptr {
		p := reflect.New(ft.Elem())
		if err := assign(p.Elem(), v); err != nil {
			return err
		}
		field.Set(p)
		return nil
	}

	switch {
	case ft == uuidType:
		field.Set(reflect.ValueOf(v))
		return nil
	case reflect.PointerTo(ft).Implements(scannerType):
		return errx.Wrap(field.Addr().Interface().(sql.Scanner).Scan(v))
	case ft == timeType:
		t, err := cast.ToTimeE(v)
		if err != nil {
			return errx.Wrap(err)
		}
		field.Set(reflect.ValueOf(t))
		return nil
	case ft == durationType:
		d, err := cast.ToDurationE(v)
		if err != nil {
			return errx.Wrap(err)
		}
		field.SetInt(int64(d))
		return nil
	}

	switch ft.Kind() { //nolint:exhaustive // schema only admits these kinds
	case reflect.Slice:
		b, ok := v.([]byte)
		if !ok {
			b = []byte(cast.ToString(v))
		}
		field.SetBytes(b)
	case reflect.String:
		s, err := cast.ToStringE(v)
		if err != nil {
			return errx.Wrap(err)
		}
		field.SetString(s)
	case reflect.Int, reflect.Int16, reflect.Int32, reflect.Int64:
		i, err := cast.ToInt64E(v)
		if err != nil {
			return errx.Wrap(err)
		}
		field.SetInt(i)
	case reflect.Float64:
		f, err := cast.ToFloat64E(v)
		if err != nil {
			return errx.Wrap(err)
		}
		field.SetFloat(f)
	case reflect.Bool:
		b, err := cast.ToBoolE(v)
		if err != nil {
			return errx.Wrap(err)
		}
		field.SetBool(b)
	default:
		return errx.New("unsupported kind", errx.WithDetails(errx.D{"kind": ft.Kind().String()}))
	}
	return nil
}

func mutate(field reflect.Value, t schema.Type) error {
	ft := field.Type()

	if ft.Kind() == reflect.Ptr {
		if field.IsNil() {
			return nil
		}
		return mutate(field.Elem(), t)
	}

	switch {
	case ft == uuidType:
		id, _ := field.Interface().(uuid.UUID)
		field.Set(reflect.ValueOf(uuid.NewSHA1(mutateNamespace, id[:])))
		return nil
	case ft == timeType:
		tm, _ := field.Interface().(time.Time)
		field.Set(reflect.ValueOf(tm.AddDate(0, 0, 1)))
		return nil
	case ft == durationType:
		field.SetInt(field.Int() + int64(time.Second))
		return nil
	case reflect.PointerTo(ft).Implements(scannerType) && ft.Kind() == reflect.Struct:
		// sql.Null* types: value first, Valid last
		if !field.FieldByName("Valid").Bool() {
			return nil
		}
		return mutate(field.Field(0), t)
	}

	switch ft.Kind() { //nolint:exhaustive // schema only admits these kinds
	case reflect.Slice:
		if t == schema.TypeJSON || t == schema.TypeJSONB {
			field.SetBytes(wrapJSON(field.Bytes()))
			return nil
		}
		b := make([]byte, field.Len())
		for i, x := range field.Bytes() {
			b[i] = ^x
		}
		field.SetBytes(b)
	case reflect.String:
		if t == schema.TypeJSON || t == schema.TypeJSONB {
			field.SetString(string(wrapJSON([]byte(field.String()))))
			return nil
		}
		field.SetString(field.String() + "*")
	case reflect.Int, reflect.Int16, reflect.Int32, reflect.Int64:
		field.SetInt(field.Int() + 1)
	case reflect.Float64:
		field.SetFloat(field.Float() + 1)
	case reflect.Bool:
		field.SetBool(!field.Bool())
	default:
		return errx.New("unsupported kind", errx.WithDetails(errx.D{"kind": ft.Kind().String()}))
	}
	return nil
}

// wrapJSON nests a document as {"mutated": <doc>}.
func wrapJSON(doc []byte) []byte {
	raw := json.RawMessage(doc)
	if !json.Valid(doc) {
		raw = json.RawMessage("null")
	}
	out, _ := json.Marshal(map[string]json.RawMessage{"mutated": raw})
	return out
}

func unsupported(c schema.Column, err error) error {
	return errx.Wrap(err,
		errx.WithCode(CodeUnsupportedField),
		errx.WithDetails(errx.D{"column": c.Name, "field": c.Field}),
	)
}
