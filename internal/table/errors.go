package table

import (
	"errors"
	"fmt"
)

// ErrParse matches every error that means the input could not become a Table.
var ErrParse = errors.New("parse table")

// ErrUnsupportedFormat is returned for file types other than CSV and XLSX.
var ErrUnsupportedFormat = errors.New("unsupported table format")

// ParseError reports malformed input.
type ParseError struct {
	Format Format
	Line   int // 1-based; zero when unknown
	Err    error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("parse %s: line %d: %v", e.Format, e.Line, e.Err)
	}
	return fmt.Sprintf("parse %s: %v", e.Format, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

func (e *ParseError) Is(target error) bool { return target == ErrParse }

// EmptyFileError reports input with no data rows after the header.
type EmptyFileError struct {
	Format Format
}

func (e *EmptyFileError) Error() string {
	return fmt.Sprintf("parse %s: file has no data rows", e.Format)
}

func (e *EmptyFileError) Is(target error) bool { return target == ErrParse }
