package batch

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/ajitpratap0/dynbatch/pkg/cell"
)

// Union arrays have no validity bitmap: a row-level null is stored as a
// null slot in a designated carrier variant, the first nullable variant
// or variant 0. Every null row is also recorded out of band, so the
// validator and the view layer can tell "null row" apart from "carrier
// variant holds null". The records travel with the finished array as
// unionNulls.

func newUnionCol(mem memory.Allocator, t arrow.UnionType, opts factoryOptions) (columnBuilder, error) {
	fields := t.Fields()
	if len(fields) == 0 {
		return nil, fmt.Errorf("union type %s has no variants", t)
	}

	children := make([]columnBuilder, len(fields))
	for i, f := range fields {
		child, err := newColumnBuilder(mem, f.Type, opts)
		if err != nil {
			releaseAll(children[:i])
			return nil, err
		}
		children[i] = child
	}

	codeToIdx := make(map[arrow.UnionTypeCode]int, len(fields))
	for i, code := range t.TypeCodes() {
		if _, dup := codeToIdx[code]; dup {
			releaseAll(children)
			return nil, fmt.Errorf("union type %s repeats tag %d", t, code)
		}
		codeToIdx[code] = i
	}

	carrier := 0
	for i, f := range fields {
		if f.Nullable {
			carrier = i
			break
		}
	}

	switch dt := t.(type) {
	case *arrow.DenseUnionType:
		return &denseUnionCol{
			dt:         dt,
			children:   children,
			codeToIdx:  codeToIdx,
			slots:      make([]int32, len(children)),
			carrier:    carrier,
			carrierTag: dt.TypeCodes()[carrier],
		}, nil
	case *arrow.SparseUnionType:
		return &sparseUnionCol{
			dt:         dt,
			children:   children,
			codeToIdx:  codeToIdx,
			carrier:    carrier,
			carrierTag: dt.TypeCodes()[carrier],
		}, nil
	default:
		releaseAll(children)
		return nil, fmt.Errorf("unsupported union mode %s", t.Mode())
	}
}

type denseUnionCol struct {
	dt       *arrow.DenseUnionType
	children []columnBuilder

	typeIDs   []arrow.UnionTypeCode
	offsets   []int32
	slots     []int32
	codeToIdx map[arrow.UnionTypeCode]int

	carrier    int
	carrierTag arrow.UnionTypeCode
	nullRows   []int
}

func (u *denseUnionCol) dataType() arrow.DataType { return u.dt }

func (u *denseUnionCol) appendNull() {
	u.nullRows = append(u.nullRows, len(u.typeIDs))
	u.children[u.carrier].appendNull()
	u.typeIDs = append(u.typeIDs, u.carrierTag)
	u.offsets = append(u.offsets, u.slots[u.carrier])
	u.slots[u.carrier]++
}

func (u *denseUnionCol) append(c *cell.Cell) error {
	idx, ok := u.codeToIdx[c.Tag()]
	if !ok {
		return fmt.Errorf("tag %d is not a variant of %s", c.Tag(), u.dt)
	}
	payload := c.Payload()
	if payload.IsNull() {
		u.children[idx].appendNull()
	} else if err := u.children[idx].append(payload); err != nil {
		return err
	}
	u.typeIDs = append(u.typeIDs, c.Tag())
	u.offsets = append(u.offsets, u.slots[idx])
	u.slots[idx]++
	return nil
}

func (u *denseUnionCol) finish() (arrow.Array, unionNulls, error) {
	arrs, childData, aux, err := finishChildren(u.children)
	if err != nil {
		return nil, nil, err
	}
	defer releaseArrays(arrs)

	typeIDBuf := memory.NewBufferBytes(arrow.Int8Traits.CastToBytes(u.typeIDs))
	defer typeIDBuf.Release()
	offsetBuf := memory.NewBufferBytes(arrow.Int32Traits.CastToBytes(u.offsets))
	defer offsetBuf.Release()

	data := array.NewData(u.dt, len(u.typeIDs),
		[]*memory.Buffer{nil, typeIDBuf, offsetBuf}, childData, 0, 0)
	defer data.Release()
	arr := array.NewDenseUnionData(data)

	if len(u.nullRows) > 0 {
		if aux == nil {
			aux = make(unionNulls)
		}
		aux[arr.Data()] = u.nullRows
	}
	return arr, aux, nil
}

func (u *denseUnionCol) reserve(n int) {
	u.children[u.carrier].reserve(n)
}

func (u *denseUnionCol) release() {
	releaseAll(u.children)
}

type sparseUnionCol struct {
	dt       *arrow.SparseUnionType
	children []columnBuilder

	typeIDs   []arrow.UnionTypeCode
	codeToIdx map[arrow.UnionTypeCode]int

	carrier    int
	carrierTag arrow.UnionTypeCode
	nullRows   []int
}

func (u *sparseUnionCol) dataType() arrow.DataType { return u.dt }

// pad appends a null to every child except active, keeping all children
// in lockstep with the row count.
func (u *sparseUnionCol) pad(active int) {
	for i, child := range u.children {
		if i != active {
			child.appendNull()
		}
	}
}

func (u *sparseUnionCol) appendNull() {
	u.nullRows = append(u.nullRows, len(u.typeIDs))
	u.children[u.carrier].appendNull()
	u.pad(u.carrier)
	u.typeIDs = append(u.typeIDs, u.carrierTag)
}

func (u *sparseUnionCol) append(c *cell.Cell) error {
	idx, ok := u.codeToIdx[c.Tag()]
	if !ok {
		return fmt.Errorf("tag %d is not a variant of %s", c.Tag(), u.dt)
	}
	payload := c.Payload()
	if payload.IsNull() {
		u.children[idx].appendNull()
	} else if err := u.children[idx].append(payload); err != nil {
		return err
	}
	u.pad(idx)
	u.typeIDs = append(u.typeIDs, c.Tag())
	return nil
}

func (u *sparseUnionCol) finish() (arrow.Array, unionNulls, error) {
	arrs, childData, aux, err := finishChildren(u.children)
	if err != nil {
		return nil, nil, err
	}
	defer releaseArrays(arrs)

	typeIDBuf := memory.NewBufferBytes(arrow.Int8Traits.CastToBytes(u.typeIDs))
	defer typeIDBuf.Release()

	data := array.NewData(u.dt, len(u.typeIDs),
		[]*memory.Buffer{nil, typeIDBuf}, childData, 0, 0)
	defer data.Release()
	arr := array.NewSparseUnionData(data)

	if len(u.nullRows) > 0 {
		if aux == nil {
			aux = make(unionNulls)
		}
		aux[arr.Data()] = u.nullRows
	}
	return arr, aux, nil
}

func (u *sparseUnionCol) reserve(n int) {
	for _, child := range u.children {
		child.reserve(n)
	}
}

func (u *sparseUnionCol) release() {
	releaseAll(u.children)
}
