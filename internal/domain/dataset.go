package domain

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// RawRow is one data line of the dataset, addressed by column name.
// Missing and non-numeric fields read as NaN.
type RawRow struct {
	index  map[string]int
	values []float64
}

// RowFromMap builds a standalone RawRow from column/value pairs.
func RowFromMap(m map[string]float64) RawRow {
	row := RawRow{
		index:  make(map[string]int, len(m)),
		values: make([]float64, 0, len(m)),
	}
	for name, v := range m {
		row.index[name] = len(row.values)
		row.values = append(row.values, v)
	}
	return row
}

// Value returns the value of column, or NaN when the row has no such field.
func (r RawRow) Value(column string) float64 {
	i, ok := r.index[column]
	if !ok || i >= len(r.values) {
		return math.NaN()
	}
	return r.values[i]
}

// Has reports whether the row's header declares column.
func (r RawRow) Has(column string) bool {
	_, ok := r.index[column]
	return ok
}

// Dataset is a parsed rainfall file.
type Dataset struct {
	Columns []string
	Rows    []RawRow

	index map[string]int
}

// HasColumn reports whether the header declares column.
func (d *Dataset) HasColumn(column string) bool {
	_, ok := d.index[column]
	return ok
}

// ParseCSV parses raw dataset text. The first non-blank line is the header;
// each following non-blank line becomes one RawRow matched to the header by
// position. Fields that are not numbers become NaN. A duplicated column name
// resolves to its last occurrence.
func ParseCSV(data []byte) (*Dataset, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.ReuseRecord = true

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: empty file, no header", ErrParse)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: header: %w", ErrParse, err)
	}

	ds := &Dataset{
		Columns: make([]string, len(header)),
		index:   make(map[string]int, len(header)),
	}
	named := 0
	for i, name := range header {
		name = strings.TrimSpace(name)
		ds.Columns[i] = name
		if name == "" {
			continue
		}
		ds.index[name] = i
		named++
	}
	if named == 0 {
		return nil, fmt.Errorf("%w: header has no column names", ErrParse)
	}

	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrParse, err)
		}
		ds.Rows = append(ds.Rows, ds.newRow(record))
	}
	return ds, nil
}

func (d *Dataset) newRow(record []string) RawRow {
	values := make([]float64, len(d.Columns))
	for i := range values {
		if i >= len(record) {
			values[i] = math.NaN()
			continue
		}
		values[i] = parseFloatOrNaN(record[i])
	}
	return RawRow{index: d.index, values: values}
}

// parseFloatOrNaN parses s as float64, returning NaN on failure.
func parseFloatOrNaN(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}
