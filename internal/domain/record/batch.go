package record

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrSchemaMismatch  = errors.New("record schema mismatch")
	ErrMalformedRecord = errors.New("malformed record")
)

type ColumnType uint8

const (
	ColumnText ColumnType = iota
	ColumnInteger
)

func (t ColumnType) String() string {
	if t == ColumnInteger {
		return "integer"
	}
	return "text"
}

type Column struct {
	Name string
	Type ColumnType
}

func Text(name string) Column { return Column{Name: name, Type: ColumnText} }

func Integer(name string) Column { return Column{Name: name, Type: ColumnInteger} }

// Schema is a destination table and its ordered columns.
type Schema struct {
	Table   string
	Columns []Column
}

func (s Schema) ColumnNames() []string {
	out := make([]string, 0, len(s.Columns))
	for _, col := range s.Columns {
		out = append(out, col.Name)
	}
	return out
}

func (s Schema) Index(name string) int {
	for i, col := range s.Columns {
		if strings.EqualFold(col.Name, name) {
			return i
		}
	}
	return -1
}

// MatchColumns fails with ErrSchemaMismatch unless names equal the schema's
// columns in the same order. Comparison ignores case.
func (s Schema) MatchColumns(names []string) error {
	if len(names) != len(s.Columns) {
		return fmt.Errorf("%w: table %s has %d columns, batch declares %d", ErrSchemaMismatch, s.Table, len(names), len(s.Columns))
	}
	for i, col := range s.Columns {
		if !strings.EqualFold(strings.TrimSpace(names[i]), col.Name) {
			return fmt.Errorf("%w: table %s column %d is %q, batch declares %q", ErrSchemaMismatch, s.Table, i+1, names[i], col.Name)
		}
	}
	return nil
}

// Record is one row, aligned with its batch schema.
type Record []Value

// Batch is an ordered set of records bound for one table.
type Batch struct {
	Schema  Schema
	Records []Record
}

func NewBatch(schema Schema) *Batch {
	return &Batch{Schema: schema, Records: make([]Record, 0, 16)}
}

func (b *Batch) Table() string { return b.Schema.Table }

func (b *Batch) Len() int {
	if b == nil {
		return 0
	}
	return len(b.Records)
}

func (b *Batch) Append(rec Record) {
	b.Records = append(b.Records, rec)
}

// Validate checks every record's width and value kinds against the schema.
func (b *Batch) Validate() error {
	width := len(b.Schema.Columns)
	for i, rec := range b.Records {
		if len(rec) != width {
			return fmt.Errorf("%w: table %s row %d has %d values, expected %d", ErrMalformedRecord, b.Schema.Table, i+1, len(rec), width)
		}
		for j, value := range rec {
			col := b.Schema.Columns[j]
			if value.IsNull() {
				continue
			}
			if col.Type == ColumnInteger && value.Kind() != KindInt {
				return fmt.Errorf("%w: table %s row %d column %s expects integer, got %s %q", ErrMalformedRecord, b.Schema.Table, i+1, col.Name, value.Kind(), value.Text())
			}
		}
	}
	return nil
}

// Get returns the named column of row i, or null when absent.
func (b *Batch) Get(i int, column string) Value {
	idx := b.Schema.Index(column)
	if i < 0 || i >= len(b.Records) || idx < 0 || idx >= len(b.Records[i]) {
		return Null()
	}
	return b.Records[i][idx]
}
