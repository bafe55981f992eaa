package batch

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"go.uber.org/zap"

	"github.com/ajitpratap0/dynbatch/pkg/cell"
	"github.com/ajitpratap0/dynbatch/pkg/errors"
)

type factoryOptions struct {
	allowUnknown bool
	log          *zap.Logger
}

// newColumnBuilder maps a runtime Arrow type to a concrete column
// builder, recursing into children for nested types. This switch is
// the only place builder variants are selected; new logical types are
// added here and nowhere else.
func newColumnBuilder(mem memory.Allocator, dt arrow.DataType, opts factoryOptions) (columnBuilder, error) {
	switch t := dt.(type) {
	case *arrow.BooleanType,
		*arrow.Int8Type, *arrow.Int16Type, *arrow.Int32Type, *arrow.Int64Type,
		*arrow.Uint8Type, *arrow.Uint16Type, *arrow.Uint32Type, *arrow.Uint64Type,
		*arrow.Float32Type, *arrow.Float64Type,
		*arrow.StringType, *arrow.BinaryType, *arrow.FixedSizeBinaryType,
		*arrow.Date32Type, *arrow.Date64Type,
		*arrow.Time32Type, *arrow.Time64Type,
		*arrow.TimestampType, *arrow.DurationType,
		*arrow.Decimal128Type:
		return &leafColumn{dt: dt, b: array.NewBuilder(mem, dt)}, nil

	case *arrow.DictionaryType:
		if !dictionaryValueSupported(t.ValueType) {
			return nil, errors.New(errors.ErrorTypeCapability,
				fmt.Sprintf("unsupported dictionary value type %s", t.ValueType))
		}
		return &dictColumn{dt: t, b: array.NewBuilder(mem, t)}, nil

	case *arrow.StructType:
		children := make([]columnBuilder, t.NumFields())
		for i := range children {
			child, err := newColumnBuilder(mem, t.Field(i).Type, opts)
			if err != nil {
				releaseAll(children[:i])
				return nil, err
			}
			children[i] = child
		}
		return &structCol{dt: t, mem: mem, children: children}, nil

	case *arrow.ListType:
		child, err := newColumnBuilder(mem, t.Elem(), opts)
		if err != nil {
			return nil, err
		}
		return &listCol{dt: t, mem: mem, child: child, offsets: []int32{0}}, nil

	case *arrow.LargeListType:
		child, err := newColumnBuilder(mem, t.Elem(), opts)
		if err != nil {
			return nil, err
		}
		return &largeListCol{dt: t, mem: mem, child: child, offsets: []int64{0}}, nil

	case *arrow.FixedSizeListType:
		child, err := newColumnBuilder(mem, t.Elem(), opts)
		if err != nil {
			return nil, err
		}
		return &fixedListCol{dt: t, mem: mem, child: child, width: t.Len()}, nil

	case *arrow.MapType:
		keys, err := newColumnBuilder(mem, t.KeyType(), opts)
		if err != nil {
			return nil, err
		}
		values, err := newColumnBuilder(mem, t.ItemType(), opts)
		if err != nil {
			keys.release()
			return nil, err
		}
		return &mapCol{dt: t, mem: mem, keys: keys, values: values, offsets: []int32{0}}, nil

	case arrow.UnionType:
		return newUnionCol(mem, t, opts)

	default:
		if opts.allowUnknown {
			opts.log.Warn("unrecognized logical type, appends will be discarded as nulls",
				zap.String("type", dt.String()))
			return &nullColumn{dt: dt, b: array.NewBuilder(mem, dt)}, nil
		}
		return nil, errors.New(errors.ErrorTypeCapability,
			fmt.Sprintf("unrecognized logical type %s", dt)).
			WithDetail("hint", "set AllowUnknownTypes to degrade to all-null columns")
	}
}

func releaseAll(cols []columnBuilder) {
	for _, c := range cols {
		c.release()
	}
}

// leafColumn wraps an Arrow scalar builder. Dispatch happens on the
// concrete builder type so the physical representation stays owned by
// the array runtime.
type leafColumn struct {
	dt arrow.DataType
	b  array.Builder
}

func (l *leafColumn) dataType() arrow.DataType { return l.dt }
func (l *leafColumn) appendNull()              { l.b.AppendNull() }
func (l *leafColumn) reserve(n int)            { l.b.Reserve(n) }
func (l *leafColumn) release()                 { l.b.Release() }

func (l *leafColumn) append(c *cell.Cell) error {
	if c.IsNull() {
		l.b.AppendNull()
		return nil
	}

	switch b := l.b.(type) {
	case *array.BooleanBuilder:
		b.Append(c.BoolVal())
	case *array.Int8Builder:
		b.Append(int8(c.IntVal()))
	case *array.Int16Builder:
		b.Append(int16(c.IntVal()))
	case *array.Int32Builder:
		b.Append(int32(c.IntVal()))
	case *array.Int64Builder:
		b.Append(c.IntVal())
	case *array.Uint8Builder:
		b.Append(uint8(c.UintVal()))
	case *array.Uint16Builder:
		b.Append(uint16(c.UintVal()))
	case *array.Uint32Builder:
		b.Append(uint32(c.UintVal()))
	case *array.Uint64Builder:
		b.Append(c.UintVal())
	case *array.Float32Builder:
		b.Append(float32(c.FloatVal()))
	case *array.Float64Builder:
		b.Append(c.FloatVal())
	case *array.StringBuilder:
		b.Append(c.StringVal())
	case *array.BinaryBuilder:
		b.Append(c.BytesVal())
	case *array.FixedSizeBinaryBuilder:
		width := l.dt.(*arrow.FixedSizeBinaryType).ByteWidth
		if len(c.BytesVal()) != width {
			return fmt.Errorf("fixed-size binary expects %d bytes, got %d", width, len(c.BytesVal()))
		}
		b.Append(c.BytesVal())
	case *array.Date32Builder:
		b.Append(arrow.Date32(c.IntVal()))
	case *array.Date64Builder:
		b.Append(arrow.Date64(c.IntVal()))
	case *array.Time32Builder:
		b.Append(arrow.Time32(c.IntVal()))
	case *array.Time64Builder:
		b.Append(arrow.Time64(c.IntVal()))
	case *array.TimestampBuilder:
		b.Append(arrow.Timestamp(c.IntVal()))
	case *array.DurationBuilder:
		b.Append(arrow.Duration(c.IntVal()))
	case *array.Decimal128Builder:
		b.Append(c.DecimalVal())
	default:
		return fmt.Errorf("no append path for builder %T", l.b)
	}
	return nil
}

func (l *leafColumn) finish() (arrow.Array, unionNulls, error) {
	arr := l.b.NewArray()
	l.b.Release()
	return arr, nil, nil
}

// dictColumn wraps an Arrow dictionary builder: the memo table interns
// each appended payload to an integer key, so repeated values share one
// dictionary entry. A null is a null key, not a dictionary-coded null
// value.
type dictColumn struct {
	dt *arrow.DictionaryType
	b  array.Builder
}

func (d *dictColumn) dataType() arrow.DataType { return d.dt }
func (d *dictColumn) appendNull()              { d.b.AppendNull() }
func (d *dictColumn) reserve(n int)            { d.b.Reserve(n) }
func (d *dictColumn) release()                 { d.b.Release() }

func (d *dictColumn) append(c *cell.Cell) error {
	if c.IsNull() {
		d.b.AppendNull()
		return nil
	}

	switch b := d.b.(type) {
	case *array.BinaryDictionaryBuilder:
		if c.Kind() == cell.KindString {
			return b.AppendString(c.StringVal())
		}
		return b.Append(c.BytesVal())
	case *array.FixedSizeBinaryDictionaryBuilder:
		width := d.dt.ValueType.(*arrow.FixedSizeBinaryType).ByteWidth
		if len(c.BytesVal()) != width {
			return fmt.Errorf("fixed-size binary expects %d bytes, got %d", width, len(c.BytesVal()))
		}
		return b.Append(c.BytesVal())
	case *array.Int8DictionaryBuilder:
		return b.Append(int8(c.IntVal()))
	case *array.Int16DictionaryBuilder:
		return b.Append(int16(c.IntVal()))
	case *array.Int32DictionaryBuilder:
		return b.Append(int32(c.IntVal()))
	case *array.Int64DictionaryBuilder:
		return b.Append(c.IntVal())
	case *array.Uint8DictionaryBuilder:
		return b.Append(uint8(c.UintVal()))
	case *array.Uint16DictionaryBuilder:
		return b.Append(uint16(c.UintVal()))
	case *array.Uint32DictionaryBuilder:
		return b.Append(uint32(c.UintVal()))
	case *array.Uint64DictionaryBuilder:
		return b.Append(c.UintVal())
	case *array.Float32DictionaryBuilder:
		return b.Append(float32(c.FloatVal()))
	case *array.Float64DictionaryBuilder:
		return b.Append(c.FloatVal())
	case *array.Date32DictionaryBuilder:
		return b.Append(arrow.Date32(c.IntVal()))
	case *array.Date64DictionaryBuilder:
		return b.Append(arrow.Date64(c.IntVal()))
	case *array.Time32DictionaryBuilder:
		return b.Append(arrow.Time32(c.IntVal()))
	case *array.Time64DictionaryBuilder:
		return b.Append(arrow.Time64(c.IntVal()))
	case *array.TimestampDictionaryBuilder:
		return b.Append(arrow.Timestamp(c.IntVal()))
	case *array.DurationDictionaryBuilder:
		return b.Append(arrow.Duration(c.IntVal()))
	case *array.Decimal128DictionaryBuilder:
		return b.Append(c.DecimalVal())
	default:
		return fmt.Errorf("no append path for dictionary builder %T", d.b)
	}
}

func (d *dictColumn) finish() (arrow.Array, unionNulls, error) {
	arr := d.b.NewArray()
	d.b.Release()
	return arr, nil, nil
}

func dictionaryValueSupported(dt arrow.DataType) bool {
	switch dt.ID() {
	case arrow.BOOL, arrow.STRUCT, arrow.LIST, arrow.LARGE_LIST,
		arrow.FIXED_SIZE_LIST, arrow.MAP, arrow.DENSE_UNION,
		arrow.SPARSE_UNION, arrow.DICTIONARY:
		return false
	}
	switch dt.(type) {
	case *arrow.Int8Type, *arrow.Int16Type, *arrow.Int32Type, *arrow.Int64Type,
		*arrow.Uint8Type, *arrow.Uint16Type, *arrow.Uint32Type, *arrow.Uint64Type,
		*arrow.Float32Type, *arrow.Float64Type,
		*arrow.StringType, *arrow.BinaryType, *arrow.FixedSizeBinaryType,
		*arrow.Date32Type, *arrow.Date64Type,
		*arrow.Time32Type, *arrow.Time64Type,
		*arrow.TimestampType, *arrow.DurationType,
		*arrow.Decimal128Type:
		return true
	}
	return false
}

// nullColumn is the opt-in fallback for unrecognized logical types: it
// accepts and discards every append, reporting an all-null column.
type nullColumn struct {
	dt arrow.DataType
	b  array.Builder
}

func (n *nullColumn) dataType() arrow.DataType { return n.dt }
func (n *nullColumn) appendNull()              { n.b.AppendNull() }
func (n *nullColumn) reserve(c int)            { n.b.Reserve(c) }
func (n *nullColumn) release()                 { n.b.Release() }

func (n *nullColumn) append(*cell.Cell) error {
	n.b.AppendNull()
	return nil
}

func (n *nullColumn) finish() (arrow.Array, unionNulls, error) {
	arr := n.b.NewArray()
	n.b.Release()
	return arr, nil, nil
}
