// Package batch implements the schema-driven dynamic column builder
// engine: a factory mapping runtime Arrow types to concrete builders, a
// row append engine with validate-before-mutate semantics, a deferred
// nullability validator, and the immutable Batch result.
package batch

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"go.uber.org/zap"

	"github.com/ajitpratap0/dynbatch/pkg/cell"
	"github.com/ajitpratap0/dynbatch/pkg/logger"
	"github.com/ajitpratap0/dynbatch/pkg/schema"
)

// unionNulls records, per finished union array, the row indices that
// were appended as union-level nulls. The finished arrays alone cannot
// answer "was this slot logically null" once variants interleave, so
// the builders capture it out of band and thread it to the validator
// and the view layer.
type unionNulls map[arrow.ArrayData][]int

func (u unionNulls) merge(other unionNulls) unionNulls {
	if len(other) == 0 {
		return u
	}
	if u == nil {
		u = make(unionNulls, len(other))
	}
	for k, v := range other {
		u[k] = v
	}
	return u
}

// columnBuilder is the capability set every concrete builder variant
// implements. The factory in this package is the only place the set is
// extended; everything else treats builders as opaque.
type columnBuilder interface {
	dataType() arrow.DataType
	appendNull()
	append(c *cell.Cell) error
	// finish consumes the builder and returns the immutable array plus
	// any union null records collected in its subtree.
	finish() (arrow.Array, unionNulls, error)
	reserve(n int)
	release()
}

// Options configures a builder set.
type Options struct {
	// Capacity is a row-count hint reserved on every column builder.
	Capacity int

	// AllowUnknownTypes opts into the forward-compatibility fallback:
	// a logical type the factory does not recognize produces an
	// all-null placeholder column instead of a construction error.
	// Off by default because the fallback can mask data loss.
	AllowUnknownTypes bool

	// Allocator is the Arrow memory allocator; defaults to the Go
	// allocator.
	Allocator memory.Allocator

	// Logger receives factory diagnostics; defaults to the global
	// logger.
	Logger *zap.Logger
}

// Builders is the dynamic builder set for one schema: one column
// builder per field, advancing in lock-step. It is exclusively owned
// while rows are appended and consumed by finish.
type Builders struct {
	desc     *schema.Descriptor
	cols     []columnBuilder
	rows     int
	finished bool
	log      *zap.Logger
}

// New creates one column builder per schema field.
func New(desc *schema.Descriptor, opts Options) (*Builders, error) {
	mem := opts.Allocator
	if mem == nil {
		mem = memory.NewGoAllocator()
	}
	log := opts.Logger
	if log == nil {
		log = logger.Get()
	}

	cols := make([]columnBuilder, desc.Len())
	for i := range cols {
		field := desc.Field(i)
		col, err := newColumnBuilder(mem, field.Type, factoryOptions{
			allowUnknown: opts.AllowUnknownTypes,
			log:          log,
		})
		if err != nil {
			for _, built := range cols[:i] {
				built.release()
			}
			return nil, fmt.Errorf("field %q: %w", field.Name, err)
		}
		cols[i] = col
	}

	if opts.Capacity > 0 {
		for _, col := range cols {
			col.reserve(opts.Capacity)
		}
	}

	return &Builders{desc: desc, cols: cols, log: log}, nil
}

// Schema returns the descriptor the builders were created for.
func (b *Builders) Schema() *schema.Descriptor { return b.desc }

// Len returns the number of rows appended so far.
func (b *Builders) Len() int { return b.rows }

// AppendRow validates row against the schema and, only if the whole
// row is compatible, dispatches each cell to its column builder. A
// rejected row leaves every builder untouched: builders have no
// rollback primitive, so the check phase must fully succeed before the
// first mutation. A nil row is treated as a null row.
func (b *Builders) AppendRow(row cell.Row) error {
	if b.finished {
		return &BuilderError{Column: -1, Message: "builder set already finished"}
	}
	if row == nil {
		return b.AppendNullRow()
	}
	if len(row) != len(b.cols) {
		return &ArityError{Expected: len(b.cols), Got: len(row)}
	}

	// Check phase: recursive structural compatibility, no mutation.
	for i, c := range row {
		if c.IsNull() {
			continue
		}
		if _, ok := b.cols[i].(*nullColumn); ok {
			// Unknown-type columns discard payloads, nothing to check.
			continue
		}
		field := b.desc.Field(i)
		if err := cell.Check(field.Type, c); err != nil {
			return &TypeError{
				Column:   i,
				Field:    field.Name,
				Expected: field.Type.String(),
				Got:      c.TypeName(),
				Cause:    err,
			}
		}
	}

	// Commit phase: cannot fail structurally after the check above;
	// residual builder failures are still surfaced per column.
	for i, c := range row {
		if c.IsNull() {
			b.cols[i].appendNull()
			continue
		}
		if err := b.cols[i].append(c); err != nil {
			return &BuilderError{Column: i, Message: err.Error()}
		}
	}
	b.rows++
	return nil
}

// AppendNullRow appends null to every column. Null at row granularity
// is always structurally legal; non-nullable violations surface at
// finish validation.
func (b *Builders) AppendNullRow() error {
	if b.finished {
		return &BuilderError{Column: -1, Message: "builder set already finished"}
	}
	for _, col := range b.cols {
		col.appendNull()
	}
	b.rows++
	return nil
}

// TryFinish consumes the builder set, assembles the per-column arrays
// and validates nullability against the schema. No partial Batch is
// returned on error. This is the production finish path.
func (b *Builders) TryFinish() (*Batch, error) {
	if b.finished {
		return nil, &BuilderError{Column: -1, Message: "builder set already finished"}
	}
	b.finished = true

	arrays := make([]arrow.Array, len(b.cols))
	aux := make(unionNulls)
	for i, col := range b.cols {
		arr, nulls, err := col.finish()
		if err != nil {
			for _, done := range arrays[:i] {
				done.Release()
			}
			return nil, &BuilderError{Column: i, Message: err.Error()}
		}
		arrays[i] = arr
		aux = aux.merge(nulls)
	}

	if err := validateNullability(b.desc, arrays, aux); err != nil {
		for _, arr := range arrays {
			arr.Release()
		}
		return nil, err
	}

	return &Batch{
		desc:       b.desc,
		cols:       arrays,
		rows:       int64(b.rows),
		unionNulls: aux,
	}, nil
}

// MustFinish consumes the builder set and assembles the batch without
// nullability validation, panicking if array assembly rejects the
// shape. Debug use only; production callers must use TryFinish.
func (b *Builders) MustFinish() *Batch {
	if b.finished {
		panic("dynbatch: builder set already finished")
	}
	b.finished = true

	arrays := make([]arrow.Array, len(b.cols))
	aux := make(unionNulls)
	for i, col := range b.cols {
		arr, nulls, err := col.finish()
		if err != nil {
			panic(fmt.Sprintf("dynbatch: column %d finish: %v", i, err))
		}
		arrays[i] = arr
		aux = aux.merge(nulls)
	}

	return &Batch{
		desc:       b.desc,
		cols:       arrays,
		rows:       int64(b.rows),
		unionNulls: aux,
	}
}

// Release frees unfinished builder state. Safe to call after finish.
func (b *Builders) Release() {
	if b.finished {
		return
	}
	b.finished = true
	for _, col := range b.cols {
		col.release()
	}
}
