package view

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"

	"github.com/ajitpratap0/dynbatch/pkg/batch"
)

// boundCol is a column resolved against one concrete batch. For
// projected views descending into structs, ancestors records the
// struct arrays crossed on the way down so inherited nulls can be
// detected per row.
type boundCol struct {
	field     arrow.Field
	arr       arrow.Array
	ancestors []*array.Struct
}

func (c boundCol) ancestorNull(row int) bool {
	for _, anc := range c.ancestors {
		if anc.IsNull(row) {
			return true
		}
	}
	return false
}

// RowView is a borrowed view of one row. It stays valid until the
// batch is released.
type RowView struct {
	b    *batch.Batch
	cols []boundCol
	row  int
}

// Index returns the row's position in the batch.
func (v RowView) Index() int { return v.row }

// Len returns the number of columns visible through the view.
func (v RowView) Len() int { return len(v.cols) }

// Field returns the i-th visible column's field.
func (v RowView) Field(i int) arrow.Field { return v.cols[i].field }

// Cell returns a reference to the i-th visible column's slot.
func (v RowView) Cell(i int) CellRef {
	c := v.cols[i]
	return CellRef{
		b:            v.b,
		arr:          c.arr,
		row:          v.row,
		ancestorNull: c.ancestorNull(v.row),
	}
}

// Project narrows the view to the projection's columns.
func (v RowView) Project(p *Projection) (RowView, error) {
	cols, err := p.bind(v.b)
	if err != nil {
		return RowView{}, err
	}
	return RowView{b: v.b, cols: cols, row: v.row}, nil
}

// Iter walks a batch row by row.
//
//	it := view.Rows(b)
//	for it.Next() {
//	    row := it.Row()
//	    ...
//	}
type Iter struct {
	b    *batch.Batch
	cols []boundCol
	row  int
}

// Rows returns an iterator over every row of b with all columns
// visible.
func Rows(b *batch.Batch) *Iter {
	cols := make([]boundCol, b.NumCols())
	for i := range cols {
		cols[i] = boundCol{field: b.Schema().Field(i), arr: b.Column(i)}
	}
	return &Iter{b: b, cols: cols, row: -1}
}

// ProjectedRows returns an iterator over every row of b narrowed to
// the projection's columns. Paths resolve once, not per row.
func ProjectedRows(b *batch.Batch, p *Projection) (*Iter, error) {
	cols, err := p.bind(b)
	if err != nil {
		return nil, err
	}
	return &Iter{b: b, cols: cols, row: -1}, nil
}

// Next advances the iterator. It returns false once the rows are
// exhausted.
func (it *Iter) Next() bool {
	if it.row+1 >= int(it.b.NumRows()) {
		return false
	}
	it.row++
	return true
}

// Row returns the view of the current row.
func (it *Iter) Row() RowView {
	return RowView{b: it.b, cols: it.cols, row: it.row}
}
