package view

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/decimal128"

	"github.com/ajitpratap0/dynbatch/pkg/batch"
	"github.com/ajitpratap0/dynbatch/pkg/cell"
	"github.com/ajitpratap0/dynbatch/pkg/errors"
)

// CellRef points at one slot of one array inside a batch. It borrows
// the batch's buffers and stays valid until the batch is released.
type CellRef struct {
	b   *batch.Batch
	arr arrow.Array
	row int

	// ancestorNull marks slots hidden by a null parent struct. The
	// physical slot may contain leftover values, so the flag wins.
	ancestorNull bool
}

// Type returns the slot's declared Arrow type.
func (r CellRef) Type() arrow.DataType { return r.arr.DataType() }

// IsNull reports whether the slot is logically null, including nulls
// inherited from an ancestor and union rows appended as nulls.
func (r CellRef) IsNull() bool {
	if r.ancestorNull {
		return true
	}
	return r.b.UnionNull(r.arr, r.row)
}

// scalar resolves dictionary indirection so value accessors always see
// the underlying value array.
func (r CellRef) scalar() (arrow.Array, int) {
	if d, ok := r.arr.(*array.Dictionary); ok {
		return d.Dictionary(), d.GetValueIndex(r.row)
	}
	return r.arr, r.row
}

func (r CellRef) mismatch(want string) error {
	return errors.New(errors.ErrorTypeData,
		fmt.Sprintf("cell has type %s, not %s", r.arr.DataType(), want))
}

func (r CellRef) errNull() error {
	return errors.New(errors.ErrorTypeData, "cell is null")
}

// Bool returns the slot as a boolean.
func (r CellRef) Bool() (bool, error) {
	if r.IsNull() {
		return false, r.errNull()
	}
	arr, row := r.scalar()
	if a, ok := arr.(*array.Boolean); ok {
		return a.Value(row), nil
	}
	return false, r.mismatch("bool")
}

// Int returns any signed integer, date, time, timestamp, or duration
// slot widened to int64.
func (r CellRef) Int() (int64, error) {
	if r.IsNull() {
		return 0, r.errNull()
	}
	switch a, row := r.scalar(); a := a.(type) {
	case *array.Int8:
		return int64(a.Value(row)), nil
	case *array.Int16:
		return int64(a.Value(row)), nil
	case *array.Int32:
		return int64(a.Value(row)), nil
	case *array.Int64:
		return a.Value(row), nil
	case *array.Date32:
		return int64(a.Value(row)), nil
	case *array.Date64:
		return int64(a.Value(row)), nil
	case *array.Time32:
		return int64(a.Value(row)), nil
	case *array.Time64:
		return int64(a.Value(row)), nil
	case *array.Timestamp:
		return int64(a.Value(row)), nil
	case *array.Duration:
		return int64(a.Value(row)), nil
	}
	return 0, r.mismatch("signed integer")
}

// Uint returns any unsigned integer slot widened to uint64.
func (r CellRef) Uint() (uint64, error) {
	if r.IsNull() {
		return 0, r.errNull()
	}
	switch a, row := r.scalar(); a := a.(type) {
	case *array.Uint8:
		return uint64(a.Value(row)), nil
	case *array.Uint16:
		return uint64(a.Value(row)), nil
	case *array.Uint32:
		return uint64(a.Value(row)), nil
	case *array.Uint64:
		return a.Value(row), nil
	}
	return 0, r.mismatch("unsigned integer")
}

// Float returns a float32 or float64 slot widened to float64.
func (r CellRef) Float() (float64, error) {
	if r.IsNull() {
		return 0, r.errNull()
	}
	switch a, row := r.scalar(); a := a.(type) {
	case *array.Float32:
		return float64(a.Value(row)), nil
	case *array.Float64:
		return a.Value(row), nil
	}
	return 0, r.mismatch("float")
}

// Str returns a utf8 slot without copying.
func (r CellRef) Str() (string, error) {
	if r.IsNull() {
		return "", r.errNull()
	}
	arr, row := r.scalar()
	if a, ok := arr.(*array.String); ok {
		return a.Value(row), nil
	}
	return "", r.mismatch("utf8")
}

// Bytes returns a binary or fixed-size binary slot. The slice aliases
// the batch's buffer and must not be modified.
func (r CellRef) Bytes() ([]byte, error) {
	if r.IsNull() {
		return nil, r.errNull()
	}
	switch a, row := r.scalar(); a := a.(type) {
	case *array.Binary:
		return a.Value(row), nil
	case *array.FixedSizeBinary:
		return a.Value(row), nil
	}
	return nil, r.mismatch("binary")
}

// Decimal returns a decimal128 slot.
func (r CellRef) Decimal() (decimal128.Num, error) {
	if r.IsNull() {
		return decimal128.Num{}, r.errNull()
	}
	arr, row := r.scalar()
	if a, ok := arr.(*array.Decimal128); ok {
		return a.Value(row), nil
	}
	return decimal128.Num{}, r.mismatch("decimal128")
}

// StructView exposes the children of one struct slot.
type StructView struct {
	b   *batch.Batch
	arr *array.Struct
	row int
}

func (v StructView) NumFields() int { return v.arr.NumField() }

func (v StructView) FieldName(i int) string {
	return v.arr.DataType().(*arrow.StructType).Field(i).Name
}

func (v StructView) Field(i int) CellRef {
	return CellRef{b: v.b, arr: v.arr.Field(i), row: v.row}
}

// Struct returns the slot as a struct view.
func (r CellRef) Struct() (StructView, error) {
	if r.IsNull() {
		return StructView{}, r.errNull()
	}
	if a, ok := r.arr.(*array.Struct); ok {
		return StructView{b: r.b, arr: a, row: r.row}, nil
	}
	return StructView{}, r.mismatch("struct")
}

// ListView exposes the item range of one list slot. It serves list,
// large list, and fixed-size list alike.
type ListView struct {
	b      *batch.Batch
	values arrow.Array
	start  int
	length int
}

func (v ListView) Len() int { return v.length }

func (v ListView) Item(i int) CellRef {
	return CellRef{b: v.b, arr: v.values, row: v.start + i}
}

// List returns the slot as a list view.
func (r CellRef) List() (ListView, error) {
	if r.IsNull() {
		return ListView{}, r.errNull()
	}
	switch a := r.arr.(type) {
	case *array.List:
		off := a.Offsets()
		return ListView{b: r.b, values: a.ListValues(),
			start: int(off[r.row]), length: int(off[r.row+1] - off[r.row])}, nil
	case *array.LargeList:
		off := a.Offsets()
		return ListView{b: r.b, values: a.ListValues(),
			start: int(off[r.row]), length: int(off[r.row+1] - off[r.row])}, nil
	case *array.FixedSizeList:
		width := int(a.DataType().(*arrow.FixedSizeListType).Len())
		return ListView{b: r.b, values: a.ListValues(),
			start: r.row * width, length: width}, nil
	}
	return ListView{}, r.mismatch("list")
}

// MapView exposes the entries of one map slot.
type MapView struct {
	b     *batch.Batch
	keys  arrow.Array
	items arrow.Array
	start int
	count int
}

func (v MapView) Len() int { return v.count }

func (v MapView) Key(i int) CellRef {
	return CellRef{b: v.b, arr: v.keys, row: v.start + i}
}

func (v MapView) Value(i int) CellRef {
	return CellRef{b: v.b, arr: v.items, row: v.start + i}
}

// Map returns the slot as a map view.
func (r CellRef) Map() (MapView, error) {
	if r.IsNull() {
		return MapView{}, r.errNull()
	}
	if a, ok := r.arr.(*array.Map); ok {
		off := a.Offsets()
		return MapView{b: r.b, keys: a.Keys(), items: a.Items(),
			start: int(off[r.row]), count: int(off[r.row+1] - off[r.row])}, nil
	}
	return MapView{}, r.mismatch("map")
}

// UnionView exposes the selected variant of one union slot.
type UnionView struct {
	tag     arrow.UnionTypeCode
	payload CellRef
}

func (v UnionView) Tag() arrow.UnionTypeCode { return v.tag }
func (v UnionView) Payload() CellRef         { return v.payload }

// Union returns the slot as a union view. Rows appended as nulls are
// reported by IsNull and have no variant to view.
func (r CellRef) Union() (UnionView, error) {
	if r.IsNull() {
		return UnionView{}, r.errNull()
	}
	switch a := r.arr.(type) {
	case *array.DenseUnion:
		id := a.ChildID(r.row)
		return UnionView{
			tag:     a.RawTypeCodes()[r.row],
			payload: CellRef{b: r.b, arr: a.Field(id), row: int(a.ValueOffset(r.row))},
		}, nil
	case *array.SparseUnion:
		id := a.ChildID(r.row)
		return UnionView{
			tag:     a.RawTypeCodes()[r.row],
			payload: CellRef{b: r.b, arr: a.Field(id), row: r.row},
		}, nil
	}
	return UnionView{}, r.mismatch("union")
}

// ToCell copies the slot out of the batch into an owned dynamic cell.
// Dictionary slots materialize their decoded value.
func (r CellRef) ToCell() (*cell.Cell, error) {
	if r.IsNull() {
		return cell.Null(), nil
	}

	switch a, row := r.scalar(); a := a.(type) {
	case *array.Boolean:
		return cell.Bool(a.Value(row)), nil
	case *array.Int8:
		return cell.Int8(a.Value(row)), nil
	case *array.Int16:
		return cell.Int16(a.Value(row)), nil
	case *array.Int32:
		return cell.Int32(a.Value(row)), nil
	case *array.Int64:
		return cell.Int64(a.Value(row)), nil
	case *array.Uint8:
		return cell.Uint8(a.Value(row)), nil
	case *array.Uint16:
		return cell.Uint16(a.Value(row)), nil
	case *array.Uint32:
		return cell.Uint32(a.Value(row)), nil
	case *array.Uint64:
		return cell.Uint64(a.Value(row)), nil
	case *array.Float32:
		return cell.Float32(a.Value(row)), nil
	case *array.Float64:
		return cell.Float64(a.Value(row)), nil
	case *array.String:
		return cell.String(a.Value(row)), nil
	case *array.Binary:
		return cell.Bytes(append([]byte(nil), a.Value(row)...)), nil
	case *array.FixedSizeBinary:
		return cell.Bytes(append([]byte(nil), a.Value(row)...)), nil
	case *array.Date32:
		return cell.Int32(int32(a.Value(row))), nil
	case *array.Date64:
		return cell.Int64(int64(a.Value(row))), nil
	case *array.Time32:
		return cell.Int32(int32(a.Value(row))), nil
	case *array.Time64:
		return cell.Int64(int64(a.Value(row))), nil
	case *array.Timestamp:
		return cell.Int64(int64(a.Value(row))), nil
	case *array.Duration:
		return cell.Int64(int64(a.Value(row))), nil
	case *array.Decimal128:
		return cell.Decimal(a.Value(row)), nil
	}

	switch r.arr.(type) {
	case *array.Struct:
		sv, err := r.Struct()
		if err != nil {
			return nil, err
		}
		kids := make([]*cell.Cell, sv.NumFields())
		for i := range kids {
			kid, err := sv.Field(i).ToCell()
			if err != nil {
				return nil, err
			}
			kids[i] = kid
		}
		return cell.Struct(kids...), nil

	case *array.List, *array.LargeList, *array.FixedSizeList:
		lv, err := r.List()
		if err != nil {
			return nil, err
		}
		items := make([]*cell.Cell, lv.Len())
		for i := range items {
			item, err := lv.Item(i).ToCell()
			if err != nil {
				return nil, err
			}
			items[i] = item
		}
		if _, fixed := r.arr.(*array.FixedSizeList); fixed {
			return cell.FixedList(items...), nil
		}
		return cell.List(items...), nil

	case *array.Map:
		mv, err := r.Map()
		if err != nil {
			return nil, err
		}
		entries := make([]cell.Entry, mv.Len())
		for i := range entries {
			k, err := mv.Key(i).ToCell()
			if err != nil {
				return nil, err
			}
			v, err := mv.Value(i).ToCell()
			if err != nil {
				return nil, err
			}
			entries[i] = cell.Entry{Key: k, Value: v}
		}
		return cell.Map(entries...), nil

	case *array.DenseUnion, *array.SparseUnion:
		uv, err := r.Union()
		if err != nil {
			return nil, err
		}
		if uv.Payload().IsNull() {
			return cell.UnionNull(uv.Tag()), nil
		}
		payload, err := uv.Payload().ToCell()
		if err != nil {
			return nil, err
		}
		return cell.Union(uv.Tag(), payload), nil
	}

	return nil, errors.New(errors.ErrorTypeCapability,
		fmt.Sprintf("no materialization for type %s", r.arr.DataType()))
}
