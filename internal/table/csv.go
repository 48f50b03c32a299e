package table

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"
)

var (
	utf8BOM        = []byte{0xEF, 0xBB, 0xBF}
	errInvalidUTF8 = errors.New("invalid UTF-8 text")
)

// parseCSV reads quotes leniently: a bare quote inside an unquoted field, such
// as an inch mark in 55" TV, is kept as a literal character.
func parseCSV(data []byte) (*Table, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if line := invalidUTF8Line(data); line > 0 {
		return nil, &ParseError{Format: FormatCSV, Line: line, Err: errInvalidUTF8}
	}
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	t := &Table{}
	headerSeen := false
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			line := 0
			var csvErr *csv.ParseError
			if errors.As(err, &csvErr) {
				line = csvErr.StartLine
				err = csvErr.Err
			}
			return nil, &ParseError{Format: FormatCSV, Line: line, Err: err}
		}
		if isBlankRecord(record) {
			continue
		}
		if !headerSeen {
			t.Headers = trimHeaders(record)
			headerSeen = true
			continue
		}
		t.Rows = append(t.Rows, record)
	}
	return t, nil
}

// invalidUTF8Line returns the 1-based line holding the first invalid UTF-8
// sequence, or zero when data is valid.
func invalidUTF8Line(data []byte) int {
	if utf8.Valid(data) {
		return 0
	}
	line := 1
	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r == utf8.RuneError && size == 1 {
			return line
		}
		if r == '\n' {
			line++
		}
		data = data[size:]
	}
	return line
}

// WriteCSV encodes t as comma separated values. Fields containing a comma, a
// quote or a line break are quoted with internal quotes doubled.
func WriteCSV(w io.Writer, t *Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Headers); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for i, row := range t.Rows {
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// Write encodes t in the requested format.
func Write(w io.Writer, t *Table, format Format) error {
	switch format {
	case FormatCSV:
		return WriteCSV(w, t)
	case FormatXLSX:
		return WriteXLSX(w, t)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}
