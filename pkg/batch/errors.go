package batch

import "fmt"

// ArityError reports a row whose cell count differs from the schema
// width. The row is rejected before any column advances.
type ArityError struct {
	Expected int
	Got      int
}

func (e *ArityError) Error() string {
	return fmt.Sprintf("row length %d does not match schema width %d", e.Got, e.Expected)
}

// TypeError reports a cell that is structurally incompatible with its
// column's logical type. Detected during the pre-append check, so no
// builder state has changed.
type TypeError struct {
	Column   int
	Field    string
	Expected string
	Got      string
	Cause    error
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("type mismatch at column %d (%s): expected %s, found %s: %v",
		e.Column, e.Field, e.Expected, e.Got, e.Cause)
}

// Unwrap returns the underlying compatibility error.
func (e *TypeError) Unwrap() error { return e.Cause }

// BuilderError reports a failure from a column builder or the
// underlying Arrow array assembly.
type BuilderError struct {
	Column  int
	Message string
}

func (e *BuilderError) Error() string {
	if e.Column < 0 {
		return fmt.Sprintf("builder error: %s", e.Message)
	}
	return fmt.Sprintf("builder error at column %d: %s", e.Column, e.Message)
}

// NullabilityError reports the first nullability violation found while
// validating a finished batch. Path uses dotted field names with []
// for list items, .keys/.values for maps and name#tag for union
// variants.
type NullabilityError struct {
	Column  int
	Path    string
	Row     int
	Message string
}

func (e *NullabilityError) Error() string {
	return fmt.Sprintf("nullability violation at column %d (%s) index %d: %s",
		e.Column, e.Path, e.Row, e.Message)
}
