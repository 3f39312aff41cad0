package staging

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/riskibarqy/football-etl/internal/domain/record"
	"github.com/valyala/bytebufferpool"
)

// EncodeCSV writes the batch with an upper-case header row. Null values are
// written as empty fields.
func EncodeCSV(batch *record.Batch) ([]byte, error) {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	w := csv.NewWriter(buf)
	header := batch.Schema.ColumnNames()
	for i := range header {
		header[i] = strings.ToUpper(header[i])
	}
	if err := w.Write(header); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}

	row := make([]string, len(batch.Schema.Columns))
	for i, rec := range batch.Records {
		if len(rec) != len(row) {
			return nil, fmt.Errorf("%w: table %s row %d has %d values, expected %d", record.ErrMalformedRecord, batch.Table(), i+1, len(rec), len(row))
		}
		for j, value := range rec {
			row[j] = value.Text()
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("write csv row %d: %w", i+1, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}

	return append([]byte(nil), buf.B...), nil
}

// DecodeCSV reads a batch written by EncodeCSV back into the given schema.
// The header must match the schema's columns; empty fields become null.
func DecodeCSV(data []byte, schema record.Schema) (*record.Batch, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = len(schema.Columns)

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: table %s csv has no header", record.ErrSchemaMismatch, schema.Table)
		}
		return nil, fmt.Errorf("%w: table %s csv header: %v", record.ErrSchemaMismatch, schema.Table, err)
	}
	if err := schema.MatchColumns(header); err != nil {
		return nil, err
	}

	batch := record.NewBatch(schema)
	for line := 2; ; line++ {
		fields, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: table %s csv line %d: %v", record.ErrMalformedRecord, schema.Table, line, err)
		}

		rec := make(record.Record, len(fields))
		for i, field := range fields {
			value, err := parseField(schema.Columns[i], field)
			if err != nil {
				return nil, fmt.Errorf("%w: table %s csv line %d: %v", record.ErrMalformedRecord, schema.Table, line, err)
			}
			rec[i] = value
		}
		batch.Append(rec)
	}
	return batch, nil
}

func parseField(col record.Column, field string) (record.Value, error) {
	if field == "" {
		return record.Null(), nil
	}
	if col.Type != record.ColumnInteger {
		return record.String(field), nil
	}
	v, err := strconv.ParseInt(strings.TrimSpace(field), 10, 64)
	if err != nil {
		return record.Null(), fmt.Errorf("column %s: %q is not an integer", col.Name, field)
	}
	return record.Int(v), nil
}
