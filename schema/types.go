package schema

import (
	"database/sql"
	"encoding/json"
	"reflect"
	"time"

	"github.com/google/uuid"
)

// Type is the semantic SQL type of a column.
type Type int

const (
	TypeUnknown Type = iota
	TypeText
	TypeVarchar
	TypeSmallInt
	TypeInteger
	TypeBigInt
	TypeDouble
	TypeBoolean
	TypeDate
	TypeTimestamp
	TypeTimestampTZ
	TypeInterval
	TypeUUID
	TypeJSON
	TypeJSONB
	TypeBytea
)

//nolint:gochecknoglobals // lookup tables
var (
	typeNames = map[Type]string{
		TypeText:        "text",
		TypeVarchar:     "varchar",
		TypeSmallInt:    "smallint",
		TypeInteger:     "integer",
		TypeBigInt:      "bigint",
		TypeDouble:      "double precision",
		TypeBoolean:     "boolean",
		TypeDate:        "date",
		TypeTimestamp:   "timestamp",
		TypeTimestampTZ: "timestamptz",
		TypeInterval:    "interval",
		TypeUUID:        "uuid",
		TypeJSON:        "json",
		TypeJSONB:       "jsonb",
		TypeBytea:       "bytea",
	}

	tagTypes = map[string]Type{
		"text":        TypeText,
		"varchar":     TypeVarchar,
		"smallint":    TypeSmallInt,
		"integer":     TypeInteger,
		"int":         TypeInteger,
		"bigint":      TypeBigInt,
		"double":      TypeDouble,
		"boolean":     TypeBoolean,
		"bool":        TypeBoolean,
		"date":        TypeDate,
		"timestamp":   TypeTimestamp,
		"timestamptz": TypeTimestampTZ,
		"interval":    TypeInterval,
		"uuid":        TypeUUID,
		"json":        TypeJSON,
		"jsonb":       TypeJSONB,
		"bytea":       TypeBytea,
	}

	timeType       = reflect.TypeFor[time.Time]()
	durationType   = reflect.TypeFor[time.Duration]()
	uuidType       = reflect.TypeFor[uuid.UUID]()
	rawMessageType = reflect.TypeFor[json.RawMessage]()
	bytesType      = reflect.TypeFor[[]byte]()

	nullTypes = map[reflect.Type]Type{
		reflect.TypeFor[sql.NullString]():  TypeText,
		reflect.TypeFor[sql.NullInt16]():   TypeSmallInt,
		reflect.TypeFor[sql.NullInt32]():   TypeInteger,
		reflect.TypeFor[sql.NullInt64]():   TypeBigInt,
		reflect.TypeFor[sql.NullFloat64](): TypeDouble,
		reflect.TypeFor[sql.NullBool]():    TypeBoolean,
		reflect.TypeFor[sql.NullTime]():    TypeTimestamp,
	}
)

// String returns the PostgreSQL spelling of the type.
func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return "unknown"
}

// ArrayCast returns the array cast used for an UNNEST parameter, e.g. "integer[]".
func (t Type) ArrayCast() string {
	return t.String() + "[]"
}

// ParseType resolves a `type=` tag value.
func ParseType(s string) (Type, bool) {
	t, ok := tagTypes[s]
	return t, ok
}

// inferType maps a Go field type to a semantic type and reports whether the
// Go type itself can hold NULL.
func inferType(rt reflect.Type) (Type, bool) {
	if t, ok := nullTypes[rt]; ok {
		return t, true
	}

	nullable := false
	if rt.Kind() == reflect.Ptr {
		nullable = true
		rt = rt.Elem()
	}

	switch rt {
	case timeType:
		return TypeTimestamp, nullable
	case durationType:
		return TypeInterval, nullable
	case uuidType:
		return TypeUUID, nullable
	case rawMessageType:
		return TypeJSONB, nullable
	case bytesType:
		return TypeBytea, nullable
	}

	switch rt.Kind() { //nolint:exhaustive // unsupported kinds fall through to TypeUnknown
	case reflect.String:
		return TypeText, nullable
	case reflect.Int16:
		return TypeSmallInt, nullable
	case reflect.Int32:
		return TypeInteger, nullable
	case reflect.Int64, reflect.Int:
		return TypeBigInt, nullable
	case reflect.Float64:
		return TypeDouble, nullable
	case reflect.Bool:
		return TypeBoolean, nullable
	default:
		return TypeUnknown, nullable
	}
}

// compatible reports whether an explicit `type=` override can be stored in a Go type
// inferred as the given semantic type.
func compatible(inferred, override Type) bool {
	if inferred == override {
		return true
	}
	switch inferred { //nolint:exhaustive // only families with aliases are listed
	case TypeText:
		return override == TypeVarchar || override == TypeJSON || override == TypeJSONB
	case TypeTimestamp:
		return override == TypeDate || override == TypeTimestampTZ
	case TypeJSONB:
		return override == TypeJSON
	case TypeBytea:
		return override == TypeJSON || override == TypeJSONB
	default:
		return false
	}
}
