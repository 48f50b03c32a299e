package table

import (
	"fmt"
	"mime"
	"path/filepath"
	"strings"
)

// Table is a parsed catalog: a header row and data rows of string cells.
// After Normalize every row has exactly len(Headers) cells.
type Table struct {
	Headers []string
	Rows    [][]string
}

// Format identifies a tabular file encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

const xlsxMIME = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Extension returns the file extension, without the dot, used for artifacts.
func (f Format) Extension() string {
	return string(f)
}

// ContentType returns the MIME type served for files of this format.
func (f Format) ContentType() string {
	if f == FormatXLSX {
		return xlsxMIME
	}
	return "text/csv; charset=utf-8"
}

// ParseFormat maps a user-supplied format name to a Format.
func ParseFormat(value string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "csv":
		return FormatCSV, nil
	case "xlsx":
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, value)
	}
}

// DetectFormat picks the format from a file name, falling back to a MIME type.
func DetectFormat(name, mimeType string) (Format, error) {
	switch strings.ToLower(filepath.Ext(strings.TrimSpace(name))) {
	case ".csv", ".txt":
		return FormatCSV, nil
	case ".xlsx":
		return FormatXLSX, nil
	}
	if mimeType != "" {
		mediaType, _, err := mime.ParseMediaType(mimeType)
		if err == nil {
			switch mediaType {
			case "text/csv", "text/plain", "application/csv":
				return FormatCSV, nil
			case xlsxMIME:
				return FormatXLSX, nil
			}
		}
	}
	return "", fmt.Errorf("%w: name %q, type %q", ErrUnsupportedFormat, name, mimeType)
}

// Parse decodes data in the given format into a normalized Table.
func Parse(data []byte, format Format) (*Table, error) {
	var (
		t   *Table
		err error
	)
	switch format {
	case FormatCSV:
		t, err = parseCSV(data)
	case FormatXLSX:
		t, err = parseXLSX(data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, err
	}
	if len(t.Rows) == 0 {
		return nil, &EmptyFileError{Format: format}
	}
	t.Normalize()
	return t, nil
}

// Normalize pads short rows with empty cells and truncates long rows so each
// row matches the header width.
func (t *Table) Normalize() {
	width := len(t.Headers)
	for i, row := range t.Rows {
		switch {
		case len(row) < width:
			padded := make([]string, width)
			copy(padded, row)
			t.Rows[i] = padded
		case len(row) > width:
			t.Rows[i] = row[:width]
		}
	}
}

// Clone returns a deep copy so callers can write cells without aliasing.
func (t *Table) Clone() *Table {
	if t == nil {
		return nil
	}
	out := &Table{
		Headers: append([]string(nil), t.Headers...),
		Rows:    make([][]string, len(t.Rows)),
	}
	for i, row := range t.Rows {
		out.Rows[i] = append([]string(nil), row...)
	}
	return out
}

// Column returns the index of the named header, or -1.
func (t *Table) Column(name string) int {
	for i, h := range t.Headers {
		if h == name {
			return i
		}
	}
	return -1
}

func isBlankRecord(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func trimHeaders(headers []string) []string {
	out := make([]string, len(headers))
	for i, h := range headers {
		out[i] = strings.TrimSpace(h)
	}
	return out
}
