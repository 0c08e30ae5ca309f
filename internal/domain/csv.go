package domain

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"
)

// Required CSV header columns.
const (
	ColumnName  = "name"
	ColumnCity  = "city"
	ColumnState = "state"
)

var (
	requiredColumns = []string{ColumnName, ColumnCity, ColumnState}
	utf8BOM         = []byte{0xEF, 0xBB, 0xBF}
)

// Row is one record of an import CSV. Values are taken verbatim.
type Row struct {
	Line  int    `json:"line"`
	Name  string `json:"name"`
	City  string `json:"city"`
	State string `json:"state"`
}

// RowReader iterates the rows of an import payload in file order.
type RowReader struct {
	r     *csv.Reader
	index map[string]int
	done  bool
}

// NewRowReader validates the payload encoding and reads the header row.
// An empty payload yields a reader with no rows.
func NewRowReader(payload []byte) (*RowReader, error) {
	if !utf8.Valid(payload) {
		return nil, ErrInvalidEncoding
	}
	payload = bytes.TrimPrefix(payload, utf8BOM)

	r := csv.NewReader(bytes.NewReader(payload))
	r.LazyQuotes = true

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return &RowReader{r: r, done: true}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, col := range header {
		index[col] = i
	}
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrMissingColumn, col)
		}
	}

	return &RowReader{r: r, index: index}, nil
}

// Next returns the next row or io.EOF when the payload is exhausted.
// Malformed records return a wrapped *csv.ParseError.
func (rr *RowReader) Next() (Row, error) {
	if rr.done {
		return Row{}, io.EOF
	}
	rec, err := rr.r.Read()
	if errors.Is(err, io.EOF) {
		rr.done = true
		return Row{}, io.EOF
	}
	if err != nil {
		rr.done = true
		return Row{}, fmt.Errorf("parse csv: %w", err)
	}

	line, _ := rr.r.FieldPos(0)
	return Row{
		Line:  line,
		Name:  rec[rr.index[ColumnName]],
		City:  rec[rr.index[ColumnCity]],
		State: rec[rr.index[ColumnState]],
	}, nil
}
