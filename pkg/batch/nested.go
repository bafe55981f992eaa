package batch

import (
	"fmt"
	"math"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/bitutil"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/ajitpratap0/dynbatch/pkg/cell"
)

// Nested columns own their validity and offset bookkeeping directly
// and assemble the final array from parts. Child payloads still flow
// through child column builders, so arbitrary nesting depth falls out
// of composition.

func validsToBitmap(valids []bool, mem memory.Allocator) (*memory.Buffer, int) {
	buf := memory.NewResizableBuffer(mem)
	buf.Resize(int(bitutil.BytesForBits(int64(len(valids)))))

	wr := bitutil.NewBitmapWriter(buf.Bytes(), 0, len(valids))
	wr.AppendBools(valids)
	wr.Finish()

	nulls := len(valids) - bitutil.CountSetBits(buf.Bytes(), 0, len(valids))
	return buf, nulls
}

// finishChildren finalizes every child builder, returning their data
// segments and the merged union null-row records. The returned arrays
// must be released by the caller.
func finishChildren(children []columnBuilder) ([]arrow.Array, []arrow.ArrayData, unionNulls, error) {
	arrs := make([]arrow.Array, len(children))
	data := make([]arrow.ArrayData, len(children))
	var aux unionNulls
	for i, child := range children {
		arr, childAux, err := child.finish()
		if err != nil {
			for j := 0; j < i; j++ {
				arrs[j].Release()
			}
			return nil, nil, nil, err
		}
		arrs[i] = arr
		data[i] = arr.Data()
		aux = aux.merge(childAux)
	}
	return arrs, data, aux, nil
}

func releaseArrays(arrs []arrow.Array) {
	for _, a := range arrs {
		a.Release()
	}
}

type structCol struct {
	dt       *arrow.StructType
	mem      memory.Allocator
	children []columnBuilder
	valid    []bool
}

func (s *structCol) dataType() arrow.DataType { return s.dt }

func (s *structCol) appendNull() {
	for _, child := range s.children {
		child.appendNull()
	}
	s.valid = append(s.valid, false)
}

func (s *structCol) append(c *cell.Cell) error {
	kids := c.Children()
	if len(kids) != len(s.children) {
		return fmt.Errorf("struct expects %d children, got %d", len(s.children), len(kids))
	}
	for i, kid := range kids {
		if kid.IsNull() {
			s.children[i].appendNull()
			continue
		}
		if err := s.children[i].append(kid); err != nil {
			return err
		}
	}
	s.valid = append(s.valid, true)
	return nil
}

func (s *structCol) finish() (arrow.Array, unionNulls, error) {
	arrs, childData, aux, err := finishChildren(s.children)
	if err != nil {
		return nil, nil, err
	}
	defer releaseArrays(arrs)

	bitmap, nulls := validsToBitmap(s.valid, s.mem)
	defer bitmap.Release()

	data := array.NewData(s.dt, len(s.valid), []*memory.Buffer{bitmap}, childData, nulls, 0)
	defer data.Release()
	return array.NewStructData(data), aux, nil
}

func (s *structCol) reserve(n int) {
	for _, child := range s.children {
		child.reserve(n)
	}
}

func (s *structCol) release() {
	for _, child := range s.children {
		child.release()
	}
}

type listCol struct {
	dt      *arrow.ListType
	mem     memory.Allocator
	child   columnBuilder
	offsets []int32
	valid   []bool
}

func (l *listCol) dataType() arrow.DataType { return l.dt }

func (l *listCol) appendNull() {
	l.offsets = append(l.offsets, l.offsets[len(l.offsets)-1])
	l.valid = append(l.valid, false)
}

func (l *listCol) append(c *cell.Cell) error {
	items := c.Children()
	end := int64(l.offsets[len(l.offsets)-1]) + int64(len(items))
	if end > math.MaxInt32 {
		return fmt.Errorf("list offsets overflow int32 at %d items", end)
	}
	for _, item := range items {
		if item.IsNull() {
			l.child.appendNull()
			continue
		}
		if err := l.child.append(item); err != nil {
			return err
		}
	}
	l.offsets = append(l.offsets, int32(end))
	l.valid = append(l.valid, true)
	return nil
}

func (l *listCol) finish() (arrow.Array, unionNulls, error) {
	values, aux, err := l.child.finish()
	if err != nil {
		return nil, nil, err
	}
	defer values.Release()

	bitmap, nulls := validsToBitmap(l.valid, l.mem)
	defer bitmap.Release()

	offsets := memory.NewBufferBytes(arrow.Int32Traits.CastToBytes(l.offsets))
	defer offsets.Release()

	data := array.NewData(l.dt, len(l.valid), []*memory.Buffer{bitmap, offsets},
		[]arrow.ArrayData{values.Data()}, nulls, 0)
	defer data.Release()
	return array.NewListData(data), aux, nil
}

func (l *listCol) reserve(n int) { l.child.reserve(n) }
func (l *listCol) release()      { l.child.release() }

type largeListCol struct {
	dt      *arrow.LargeListType
	mem     memory.Allocator
	child   columnBuilder
	offsets []int64
	valid   []bool
}

func (l *largeListCol) dataType() arrow.DataType { return l.dt }

func (l *largeListCol) appendNull() {
	l.offsets = append(l.offsets, l.offsets[len(l.offsets)-1])
	l.valid = append(l.valid, false)
}

func (l *largeListCol) append(c *cell.Cell) error {
	items := c.Children()
	for _, item := range items {
		if item.IsNull() {
			l.child.appendNull()
			continue
		}
		if err := l.child.append(item); err != nil {
			return err
		}
	}
	l.offsets = append(l.offsets, l.offsets[len(l.offsets)-1]+int64(len(items)))
	l.valid = append(l.valid, true)
	return nil
}

func (l *largeListCol) finish() (arrow.Array, unionNulls, error) {
	values, aux, err := l.child.finish()
	if err != nil {
		return nil, nil, err
	}
	defer values.Release()

	bitmap, nulls := validsToBitmap(l.valid, l.mem)
	defer bitmap.Release()

	offsets := memory.NewBufferBytes(arrow.Int64Traits.CastToBytes(l.offsets))
	defer offsets.Release()

	data := array.NewData(l.dt, len(l.valid), []*memory.Buffer{bitmap, offsets},
		[]arrow.ArrayData{values.Data()}, nulls, 0)
	defer data.Release()
	return array.NewLargeListData(data), aux, nil
}

func (l *largeListCol) reserve(n int) { l.child.reserve(n) }
func (l *largeListCol) release()      { l.child.release() }

type fixedListCol struct {
	dt    *arrow.FixedSizeListType
	mem   memory.Allocator
	child columnBuilder
	width int32
	valid []bool
}

func (f *fixedListCol) dataType() arrow.DataType { return f.dt }

// appendNull still pads the child with width slots so child length
// stays rows*width, matching the fixed-size-list layout.
func (f *fixedListCol) appendNull() {
	for i := int32(0); i < f.width; i++ {
		f.child.appendNull()
	}
	f.valid = append(f.valid, false)
}

func (f *fixedListCol) append(c *cell.Cell) error {
	items := c.Children()
	if int32(len(items)) != f.width {
		return fmt.Errorf("fixed-size list expects %d items, got %d", f.width, len(items))
	}
	for _, item := range items {
		if item.IsNull() {
			f.child.appendNull()
			continue
		}
		if err := f.child.append(item); err != nil {
			return err
		}
	}
	f.valid = append(f.valid, true)
	return nil
}

func (f *fixedListCol) finish() (arrow.Array, unionNulls, error) {
	values, aux, err := f.child.finish()
	if err != nil {
		return nil, nil, err
	}
	defer values.Release()

	bitmap, nulls := validsToBitmap(f.valid, f.mem)
	defer bitmap.Release()

	data := array.NewData(f.dt, len(f.valid), []*memory.Buffer{bitmap},
		[]arrow.ArrayData{values.Data()}, nulls, 0)
	defer data.Release()
	return array.NewFixedSizeListData(data), aux, nil
}

func (f *fixedListCol) reserve(n int) { f.child.reserve(n * int(f.width)) }
func (f *fixedListCol) release()      { f.child.release() }

type mapCol struct {
	dt      *arrow.MapType
	mem     memory.Allocator
	keys    columnBuilder
	values  columnBuilder
	offsets []int32
	valid   []bool
}

func (m *mapCol) dataType() arrow.DataType { return m.dt }

func (m *mapCol) appendNull() {
	m.offsets = append(m.offsets, m.offsets[len(m.offsets)-1])
	m.valid = append(m.valid, false)
}

func (m *mapCol) append(c *cell.Cell) error {
	entries := c.Entries()
	end := int64(m.offsets[len(m.offsets)-1]) + int64(len(entries))
	if end > math.MaxInt32 {
		return fmt.Errorf("map offsets overflow int32 at %d entries", end)
	}
	for _, e := range entries {
		if e.Key.IsNull() {
			return fmt.Errorf("map key must not be null")
		}
		if err := m.keys.append(e.Key); err != nil {
			return err
		}
		if e.Value.IsNull() {
			m.values.appendNull()
			continue
		}
		if err := m.values.append(e.Value); err != nil {
			return err
		}
	}
	m.offsets = append(m.offsets, int32(end))
	m.valid = append(m.valid, true)
	return nil
}

func (m *mapCol) finish() (arrow.Array, unionNulls, error) {
	keys, keyAux, err := m.keys.finish()
	if err != nil {
		return nil, nil, err
	}
	defer keys.Release()
	values, valAux, err := m.values.finish()
	if err != nil {
		return nil, nil, err
	}
	defer values.Release()
	aux := keyAux.merge(valAux)

	// The physical child is the non-nullable entries struct.
	entries := array.NewData(m.dt.ValueType(), keys.Len(), []*memory.Buffer{nil},
		[]arrow.ArrayData{keys.Data(), values.Data()}, 0, 0)
	defer entries.Release()

	bitmap, nulls := validsToBitmap(m.valid, m.mem)
	defer bitmap.Release()

	offsets := memory.NewBufferBytes(arrow.Int32Traits.CastToBytes(m.offsets))
	defer offsets.Release()

	data := array.NewData(m.dt, len(m.valid), []*memory.Buffer{bitmap, offsets},
		[]arrow.ArrayData{entries}, nulls, 0)
	defer data.Release()
	return array.NewMapData(data), aux, nil
}

func (m *mapCol) reserve(n int) {
	m.keys.reserve(n)
	m.values.reserve(n)
}

func (m *mapCol) release() {
	m.keys.release()
	m.values.release()
}
