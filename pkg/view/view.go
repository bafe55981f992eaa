// Package view provides zero-copy row-oriented access over finished
// batches. A RowView borrows the batch's column buffers; nothing is
// materialized until ToCell is called. Projections narrow a view to a
// subset of columns, descending through nested structs, and can hand
// the matching flat leaf indices to columnar readers that select
// leaves by position.
package view

import (
	"fmt"
)

// ViewError reports a path that could not be resolved or a view used
// against the wrong batch.
type ViewError struct {
	Path   string
	Reason string
}

func (e *ViewError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("view: %s", e.Reason)
	}
	return fmt.Sprintf("view: %s: %s", e.Path, e.Reason)
}
