package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Input errors (user-correctable)
	ErrEmptyFile         = errors.New("file has no data rows")
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrFileTooLarge      = errors.New("file exceeds size ceiling")
	ErrSheetNotFound     = errors.New("sheet not found in workbook")
	ErrSheetRequired     = errors.New("sheet index required for multi-sheet workbook")

	// Not found errors
	ErrNotFound        = errors.New("resource not found")
	ErrDatasetNotFound = fmt.Errorf("%w: dataset", ErrNotFound)
	ErrRunNotFound     = fmt.Errorf("%w: run", ErrNotFound)
	ErrColumnNotFound  = fmt.Errorf("%w: column", ErrNotFound)

	// Analysis errors
	ErrInsufficientData = errors.New("insufficient data for analysis")
	ErrNotNumeric       = errors.New("column is not numeric")
	ErrUnknownOperation = errors.New("unknown compute operation")
	ErrNotReady         = errors.New("compute service not initialized")
)

// ParseError reports malformed row structure with enough context to find
// the offending row. Line is 1-based and counts the header row; Chunk is
// -1 when the parse was not chunked.
type ParseError struct {
	Line  int
	Chunk int
	Cause error
}

func (e *ParseError) Error() string {
	if e.Chunk >= 0 {
		return fmt.Sprintf("parse error at line %d (chunk %d): %v", e.Line, e.Chunk, e.Cause)
	}
	return fmt.Sprintf("parse error at line %d: %v", e.Line, e.Cause)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}

// NewParseError creates a ParseError for an unchunked parse
func NewParseError(line int, cause error) *ParseError {
	return &ParseError{Line: line, Chunk: -1, Cause: cause}
}

// Error constructors with context
func NewNotFoundError(resource string, id string) error {
	return fmt.Errorf("%w: %s with id %s", ErrNotFound, resource, id)
}

func NewValidationError(field string, reason string) error {
	return fmt.Errorf("validation failed for %s: %s", field, reason)
}

// Error checking helpers
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

// IsInputError reports whether the error is user-correctable rather than
// a fault of the pipeline itself.
func IsInputError(err error) bool {
	return errors.Is(err, ErrEmptyFile) ||
		errors.Is(err, ErrUnsupportedFormat) ||
		errors.Is(err, ErrFileTooLarge) ||
		errors.Is(err, ErrSheetRequired) ||
		errors.Is(err, ErrSheetNotFound)
}
