package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrSchema marks input that lacks required columns.
	ErrSchema = errors.New("schema error")
	// ErrParse marks input that cannot be read or decoded.
	ErrParse = errors.New("parse error")
)

// SchemaError reports every required column absent from the input header.
// It is fatal: no part of the report is computed.
type SchemaError struct {
	Missing  []string
	Required []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("missing required columns: %s (required: %s)",
		strings.Join(e.Missing, ", "), strings.Join(e.Required, ", "))
}

// Unwrap lets errors.Is match ErrSchema.
func (e *SchemaError) Unwrap() error {
	return ErrSchema
}

// ParseError reports an unreadable file or a cell that cannot be decoded.
// Row is 1-based over data rows (header excluded) and 0 when the error is
// not tied to a row.
type ParseError struct {
	Row    int
	Column string
	Value  string
	Err    error
}

func (e *ParseError) Error() string {
	var b strings.Builder
	b.WriteString("parse error")
	if e.Row > 0 {
		fmt.Fprintf(&b, " at row %d", e.Row)
	}
	if e.Column != "" {
		fmt.Fprintf(&b, " column %q", e.Column)
	}
	if e.Value != "" {
		fmt.Fprintf(&b, " value %q", e.Value)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Is matches ErrParse.
func (e *ParseError) Is(target error) bool {
	return target == ErrParse
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// NewParseError wraps err as a file-level ParseError.
func NewParseError(err error) error {
	return &ParseError{Err: err}
}

// IsSchemaError reports whether err is or wraps a SchemaError.
func IsSchemaError(err error) bool {
	return errors.Is(err, ErrSchema)
}

// IsParseError reports whether err is or wraps a ParseError.
func IsParseError(err error) bool {
	return errors.Is(err, ErrParse)
}
