package table

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const defaultSheet = "Sheet1"

func parseXLSX(data []byte) (*Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, &ParseError{Format: FormatXLSX, Err: err}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, &ParseError{Format: FormatXLSX, Err: errors.New("workbook has no sheets")}
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, &ParseError{Format: FormatXLSX, Err: fmt.Errorf("read sheet %q: %w", sheets[0], err)}
	}

	t := &Table{}
	headerSeen := false
	for _, row := range rows {
		if isBlankRecord(row) {
			continue
		}
		if !headerSeen {
			t.Headers = trimHeaders(row)
			headerSeen = true
			continue
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// WriteXLSX encodes t as a single-sheet workbook with the header in row 1.
func WriteXLSX(w io.Writer, t *Table) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := writeSheetRow(f, 1, t.Headers); err != nil {
		return err
	}
	for i, row := range t.Rows {
		if err := writeSheetRow(f, i+2, row); err != nil {
			return err
		}
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

func writeSheetRow(f *excelize.File, rowNum int, cells []string) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return fmt.Errorf("xlsx cell name: %w", err)
	}
	values := make([]any, len(cells))
	for i, v := range cells {
		values[i] = v
	}
	if err := f.SetSheetRow(defaultSheet, cell, &values); err != nil {
		return fmt.Errorf("xlsx row %d: %w", rowNum, err)
	}
	return nil
}
