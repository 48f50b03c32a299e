// Package table reads and writes the tabular catalogs sheetlingo translates.
//
// CSV input is decoded with encoding/csv after stripping a UTF-8 BOM; XLSX
// input reads the first sheet's formatted cell text. Both produce a Table
// whose rows are padded or truncated to the header width. Parse failures
// match ErrParse so callers can tell bad input from infrastructure errors.
package table
