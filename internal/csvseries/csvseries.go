// Package csvseries extracts a numeric level series from one column of a CSV
// document.
package csvseries

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"praxis/internal/model"
)

// ErrMissingColumn is returned when the header lacks the requested column.
var ErrMissingColumn = errors.New("csv: column not found")

// RowError reports a cell that could not be parsed as a number.
type RowError struct {
	Row    int // 1-based data row, header excluded
	Column string
	Value  string
	Err    error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d: %s value %q is not a number", e.Row, e.Column, e.Value)
}

func (e *RowError) Unwrap() error { return e.Err }

// Read parses r as CSV with a header row and returns the values of column in
// row order. Blank cells are skipped.
func Read(r io.Reader, column string) (model.ReturnSeries, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %q (empty document)", ErrMissingColumn, column)
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	idx := -1
	for i, name := range header {
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		if strings.TrimSpace(name) == column {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("%w: %q", ErrMissingColumn, column)
	}

	var series model.ReturnSeries
	for row := 1; ; row++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", row, err)
		}
		if idx >= len(record) {
			continue
		}
		cell := strings.TrimSpace(record[idx])
		if cell == "" {
			continue
		}
		v, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			return nil, &RowError{Row: row, Column: column, Value: cell, Err: err}
		}
		series = append(series, v)
	}
	return series, nil
}
