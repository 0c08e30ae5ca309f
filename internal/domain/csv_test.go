package domain

import (
	"encoding/csv"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readAll(t *testing.T, payload string) ([]Row, error) {
	t.Helper()
	rr, err := NewRowReader([]byte(payload))
	if err != nil {
		return nil, err
	}
	var rows []Row
	for {
		row, err := rr.Next()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return rows, err
		}
		rows = append(rows, row)
	}
}

func TestRowReader_Basic(t *testing.T) {
	rows, err := readAll(t, "name,city,state\nDEN01-DC,Denver,CO\nRIC-BR,Richmond,VA\n")
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, Row{Line: 2, Name: "DEN01-DC", City: "Denver", State: "CO"}, rows[0])
	assert.Equal(t, Row{Line: 3, Name: "RIC-BR", City: "Richmond", State: "VA"}, rows[1])
}

func TestRowReader_ColumnOrderAndExtras(t *testing.T) {
	rows, err := readAll(t, "state,notes,name,city\nIL,corner office,CHI-BR,Chicago\n")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "CHI-BR", rows[0].Name)
	assert.Equal(t, "Chicago", rows[0].City)
	assert.Equal(t, "IL", rows[0].State)
}

func TestRowReader_StripsBOM(t *testing.T) {
	rows, err := readAll(t, "\ufeffname,city,state\nDEN01-DC,Denver,CO\n")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "DEN01-DC", rows[0].Name)
}

func TestRowReader_KeepsWhitespace(t *testing.T) {
	rows, err := readAll(t, "name,city,state\n DEN01-DC ,Denver , CO\n")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, " DEN01-DC ", rows[0].Name)
	assert.Equal(t, " CO", rows[0].State)
}

func TestRowReader_QuotedFields(t *testing.T) {
	rows, err := readAll(t, "name,city,state\n\"NYC, East-BR\",\"Jersey City\",NJ\n")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "NYC, East-BR", rows[0].Name)
}

func TestRowReader_Empty(t *testing.T) {
	rows, err := readAll(t, "")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestRowReader_HeaderOnly(t *testing.T) {
	rows, err := readAll(t, "name,city,state\n")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestRowReader_MissingColumn(t *testing.T) {
	_, err := NewRowReader([]byte("name,town,state\nDEN01-DC,Denver,CO\n"))
	require.ErrorIs(t, err, ErrMissingColumn)
	assert.Contains(t, err.Error(), `"city"`)
}

func TestRowReader_InvalidUTF8(t *testing.T) {
	_, err := NewRowReader([]byte("name,city,state\nM\xfcnchen-BR,M\xfcnchen,CO\n"))
	require.ErrorIs(t, err, ErrInvalidEncoding)
}

func TestRowReader_MalformedRecordAfterGoodRows(t *testing.T) {
	rr, err := NewRowReader([]byte("name,city,state\nDEN01-DC,Denver,CO\nBROKEN-BR,Boulder\n"))
	require.NoError(t, err)

	row, err := rr.Next()
	require.NoError(t, err)
	assert.Equal(t, "DEN01-DC", row.Name)

	_, err = rr.Next()
	var parseErr *csv.ParseError
	require.ErrorAs(t, err, &parseErr)

	_, err = rr.Next()
	assert.ErrorIs(t, err, io.EOF)
}
