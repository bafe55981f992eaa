package batch

import (
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/ajitpratap0/dynbatch/pkg/errors"
	"github.com/ajitpratap0/dynbatch/pkg/schema"
)

// Batch is a finished set of equal-length columns plus the descriptor
// they were built from. It owns one reference to every column array;
// Release drops them.
type Batch struct {
	desc       *schema.Descriptor
	cols       []arrow.Array
	rows       int64
	unionNulls unionNulls
}

// Schema returns the descriptor the batch was built against.
func (b *Batch) Schema() *schema.Descriptor { return b.desc }

// NumRows returns the row count shared by every column.
func (b *Batch) NumRows() int64 { return b.rows }

// NumCols returns the number of top-level columns.
func (b *Batch) NumCols() int { return len(b.cols) }

// Column returns the i-th column array. The batch keeps its reference;
// callers that hold on to the array must Retain it.
func (b *Batch) Column(i int) arrow.Array { return b.cols[i] }

// Columns returns the column arrays in schema order.
func (b *Batch) Columns() []arrow.Array { return b.cols }

// UnionNull reports whether row of the given union array was appended
// as a row-level null. Arrays not produced by this batch report false,
// as do unions whose carrier variant is itself nullable.
func (b *Batch) UnionNull(arr arrow.Array, row int) bool {
	return isLogicalNull(arr, row, b.unionNulls)
}

// Record wraps the batch as an Arrow record. The record retains the
// columns, so it stays valid after the batch is released.
func (b *Batch) Record() arrow.Record {
	return array.NewRecord(b.desc.Arrow(), b.cols, b.rows)
}

// WriteIPC serializes the batch to w in the Arrow IPC file format.
// Union null-row records do not survive serialization.
func (b *Batch) WriteIPC(w io.Writer) error {
	rec := b.Record()
	defer rec.Release()

	fw, err := ipc.NewFileWriter(w,
		ipc.WithSchema(b.desc.Arrow()),
		ipc.WithAllocator(memory.NewGoAllocator()))
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeInternal, "create ipc writer")
	}
	if err := fw.Write(rec); err != nil {
		fw.Close()
		return errors.Wrap(err, errors.ErrorTypeData, "write record")
	}
	return fw.Close()
}

// Release drops the batch's column references. The batch must not be
// used afterwards.
func (b *Batch) Release() {
	for _, col := range b.cols {
		col.Release()
	}
	b.cols = nil
	b.unionNulls = nil
}
