package annotations

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrMalformedRow is matched by every ParseError.
var ErrMalformedRow = errors.New("malformed annotation row")

// ParseError describes a row that does not have the expected field count or a
// field that is not numeric.
type ParseError struct {
	// File is the name of the input, usually its path.
	File string
	// Line is the 1-based line number of the offending row.
	Line int
	// Field names the offending field; empty for field count errors.
	Field string
	// Err is the underlying cause.
	Err error
}

func (e *ParseError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s:%d: %v", e.File, e.Line, e.Err)
	}
	return fmt.Sprintf("%s:%d: field %s: %v", e.File, e.Line, e.Field, e.Err)
}

// Unwrap returns the underlying cause.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrMalformedRow.
func (e *ParseError) Is(target error) bool {
	return target == ErrMalformedRow
}
