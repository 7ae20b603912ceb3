// Package schema describes a Go struct as an ordered list of table columns.
//
// A schema is built once per row type and is then shared by the transposer,
// the statement builders and the gateway, keeping column order consistent
// between statement text and bound parameters.
package schema

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/code19m/errx"
	"github.com/iancoleman/strcase"
	"github.com/jackc/pgx/v5"
	"github.com/samber/lo"
)

const tagName = "db"

// Column describes one table column backed by a struct field.
type Column struct {
	// Name is the column name in the table.
	Name string
	// Field is the dotted Go field path, e.g. "Data.TheName".
	Field string
	// Type is the semantic SQL type.
	Type Type
	// Nullable reports whether the column accepts NULL.
	Nullable bool
	// Key marks the column as part of the natural key (the default conflict target).
	Key bool
	// Auto marks a database-generated column (serial id), excluded from inserts.
	Auto bool

	index  []int
	goType reflect.Type
}

// GoType returns the Go type of the backing struct field.
func (c Column) GoType() reflect.Type {
	return c.goType
}

// FieldOf returns the field of row backing the column. row must be a struct value
// of the schema's row type.
func (c Column) FieldOf(row reflect.Value) reflect.Value {
	return row.FieldByIndex(c.index)
}

// Schema is the column description of row type T stored in a table.
type Schema[T any] struct {
	table   string
	columns []Column
	byName  map[string]int
}

// Option configures schema construction.
type Option func(*options)

type options struct {
	keys  []string
	namer func(string) string
}

// WithKey marks the named columns as key columns in addition to `key` tags.
func WithKey(columns ...string) Option {
	return func(o *options) {
		o.keys = append(o.keys, columns...)
	}
}

// WithNamer sets the function deriving column names for untagged fields.
// Defaults to snake_case.
func WithNamer(fn func(string) string) Option {
	return func(o *options) {
		o.namer = fn
	}
}

// MustOf is like Of but panics on error. Intended for package-level schema declarations.
func MustOf[T any](table string, opts ...Option) *Schema[T] {
	s, err := Of[T](table, opts...)
	if err != nil {
		panic(err)
	}
	return s
}

// Of reflects T into a schema for the given table.
//
// Fields are read in declaration order. The `db` tag controls the mapping:
//
//	db:"name"               column name
//	db:"name,key"           natural key column
//	db:"name,auto"          database generated (serial), skipped on insert
//	db:"name,nullable"      column accepts NULL
//	db:"name,type=date"     override the inferred SQL type
//	db:"-"                  field is ignored
//
// Anonymous struct fields are flattened.
func Of[T any](table string, opts ...Option) (*Schema[T], error) {
	o := options{namer: strcase.ToSnake}
	for _, opt := range opts {
		opt(&o)
	}

	if strings.TrimSpace(table) == "" {
		return nil, invalid("table name is required", errx.D{})
	}

	rt := reflect.TypeFor[T]()
	if rt.Kind() != reflect.Struct {
		return nil, invalid("row type must be a struct", errx.D{"type": rt.String()})
	}

	var columns []Column
	if err := collect(rt, nil, "", o, &columns); err != nil {
		return nil, err
	}

	if len(columns) == 0 {
		return nil, invalid("row type has no columns", errx.D{"type": rt.String()})
	}

	s := &Schema[T]{
		table:   table,
		columns: columns,
		byName:  make(map[string]int, len(columns)),
	}

	for i, c := range columns {
		if _, dup := s.byName[c.Name]; dup {
			return nil, invalid("duplicate column", errx.D{"column": c.Name, "table": table})
		}
		s.byName[c.Name] = i
	}

	for _, key := range o.keys {
		i, ok := s.byName[key]
		if !ok {
			return nil, invalid("unknown key column", errx.D{"column": key, "table": table})
		}
		s.columns[i].Key = true
	}

	autos := lo.Filter(s.columns, func(c Column, _ int) bool { return c.Auto })
	if len(autos) > 1 {
		return nil, invalid("more than one auto column", errx.D{"table": table})
	}
	if len(autos) == 1 && !isSerial(autos[0].Type) {
		return nil, invalid("auto column must be an integer", errx.D{"column": autos[0].Name})
	}
	if len(autos) == len(s.columns) {
		return nil, invalid("row type has no insertable columns", errx.D{"table": table})
	}

	return s, nil
}

func collect(rt reflect.Type, index []int, prefix string, o options, out *[]Column) error {
	for i := range rt.NumField() {
		f := rt.Field(i)
		tag := f.Tag.Get(tagName)
		if tag == "-" {
			continue
		}

		fieldIndex := append(append([]int{}, index...), i)

		if f.Anonymous && f.Type.Kind() == reflect.Struct && tag == "" {
			if err := collect(f.Type, fieldIndex, prefix+f.Name+".", o, out); err != nil {
				return err
			}
			continue
		}

		if !f.IsExported() {
			continue
		}

		col, err := parseField(f, tag, o)
		if err != nil {
			return err
		}
		col.Field = prefix + f.Name
		col.index = fieldIndex
		*out = append(*out, col)
	}
	return nil
}

func parseField(f reflect.StructField, tag string, o options) (Column, error) {
	parts := strings.Split(tag, ",")
	name := strings.TrimSpace(parts[0])
	if name == "" {
		name = o.namer(f.Name)
	}

	typ, nullable := inferType(f.Type)
	col := Column{
		Name:     name,
		Type:     typ,
		Nullable: nullable,
		goType:   f.Type,
	}

	for _, opt := range parts[1:] {
		opt = strings.TrimSpace(opt)
		switch {
		case opt == "key":
			col.Key = true
		case opt == "auto":
			col.Auto = true
		case opt == "nullable":
			col.Nullable = true
		case strings.HasPrefix(opt, "type="):
			override, ok := ParseType(strings.TrimPrefix(opt, "type="))
			if !ok || !compatible(typ, override) {
				return Column{}, invalid("unsupported type override", errx.D{"field": f.Name, "tag": tag})
			}
			col.Type = override
		case opt == "":
		default:
			return Column{}, invalid("unknown tag option", errx.D{"field": f.Name, "option": opt})
		}
	}

	if col.Type == TypeUnknown {
		return Column{}, invalid("unsupported field type", errx.D{"field": f.Name, "type": f.Type.String()})
	}

	return col, nil
}

func isSerial(t Type) bool {
	return t == TypeSmallInt || t == TypeInteger || t == TypeBigInt
}

func invalid(msg string, details errx.D) error {
	return errx.New(
		"[schema]: "+msg,
		errx.WithCode(CodeInvalidSchema),
		errx.WithType(errx.T_Validation),
		errx.WithDetails(details),
	)
}

// Table returns the table name as given to Of.
func (s *Schema[T]) Table() string {
	return s.table
}

// QuotedTable returns the table name quoted as an identifier. A dotted name is
// treated as schema-qualified.
func (s *Schema[T]) QuotedTable() string {
	return QuoteTable(s.table)
}

// Columns returns all columns in declaration order.
func (s *Schema[T]) Columns() []Column {
	return s.columns
}

// Names returns the names of all columns.
func (s *Schema[T]) Names() []string {
	return lo.Map(s.columns, func(c Column, _ int) string { return c.Name })
}

// InsertColumns returns the columns written by inserts (all but the auto column).
func (s *Schema[T]) InsertColumns() []Column {
	return lo.Filter(s.columns, func(c Column, _ int) bool { return !c.Auto })
}

// KeyColumns returns the key columns.
func (s *Schema[T]) KeyColumns() []Column {
	return lo.Filter(s.columns, func(c Column, _ int) bool { return c.Key })
}

// ValueColumns returns the insertable non-key columns, the ones an upsert overwrites.
func (s *Schema[T]) ValueColumns() []Column {
	return lo.Filter(s.columns, func(c Column, _ int) bool { return !c.Key && !c.Auto })
}

// AutoColumn returns the database generated column, if any.
func (s *Schema[T]) AutoColumn() (Column, bool) {
	return lo.Find(s.columns, func(c Column) bool { return c.Auto })
}

// Column looks a column up by name.
func (s *Schema[T]) Column(name string) (Column, bool) {
	i, ok := s.byName[name]
	if !ok {
		return Column{}, false
	}
	return s.columns[i], true
}

// Values returns the field values of row for the given columns, in order.
func (s *Schema[T]) Values(row T, cols []Column) []any {
	rv := reflect.ValueOf(row)
	return lo.Map(cols, func(c Column, _ int) any { return c.FieldOf(rv).Interface() })
}

// ScanTargets returns pointers to the fields of row for every column, in
// declaration order, suitable for Rows.Scan after a SELECT of Names().
func (s *Schema[T]) ScanTargets(row *T) []any {
	rv := reflect.ValueOf(row).Elem()
	return lo.Map(s.columns, func(c Column, _ int) any { return c.FieldOf(rv).Addr().Interface() })
}

// CreateTableStatement returns a CREATE TABLE IF NOT EXISTS statement for the schema.
// The key columns form the primary key; without key columns the auto column does.
func (s *Schema[T]) CreateTableStatement() string {
	defs := lo.Map(s.columns, func(c Column, _ int) string {
		ident := QuoteIdent(c.Name)
		if c.Auto {
			return ident + " " + serialType(c.Type)
		}
		def := ident + " " + c.Type.String()
		if !c.Nullable {
			def += " NOT NULL"
		}
		return def
	})

	pk := lo.Map(s.KeyColumns(), func(c Column, _ int) string { return QuoteIdent(c.Name) })
	if auto, ok := s.AutoColumn(); ok && len(pk) == 0 {
		pk = []string{QuoteIdent(auto.Name)}
	}
	if len(pk) > 0 {
		defs = append(defs, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(pk, ", ")))
	}

	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)", s.QuotedTable(), strings.Join(defs, ",\n\t"))
}

func serialType(t Type) string {
	switch t { //nolint:exhaustive // auto columns are integers
	case TypeSmallInt:
		return "smallserial"
	case TypeInteger:
		return "serial"
	default:
		return "bigserial"
	}
}

// QuoteIdent quotes a single identifier.
func QuoteIdent(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

// QuoteTable quotes a possibly schema-qualified table name.
func QuoteTable(table string) string {
	return pgx.Identifier(strings.Split(table, ".")).Sanitize()
}
