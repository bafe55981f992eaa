package batch

import (
	"fmt"
	"sort"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"

	"github.com/ajitpratap0/dynbatch/pkg/schema"
)

// validateNullability walks every column depth-first and reports the
// first value that is null where the schema says it must not be.
// Reachability masks propagate downward: a null struct makes its child
// slots unreachable, a null list row hides its item range, and a union
// row only reaches the variant selected for it. aux carries the union
// null-row records, which are the only way to tell a deliberately null
// union row from a variant that happens to hold null.
func validateNullability(desc *schema.Descriptor, cols []arrow.Array, aux unionNulls) error {
	for i := 0; i < desc.Len(); i++ {
		field := desc.Field(i)
		arr := cols[i]

		if !field.Nullable {
			for row := 0; row < arr.Len(); row++ {
				if isLogicalNull(arr, row, aux) {
					return &NullabilityError{
						Column:  i,
						Path:    field.Name,
						Row:     row,
						Message: "non-nullable field contains null",
					}
				}
			}
		}

		mask := make([]bool, arr.Len())
		for r := range mask {
			mask[r] = true
		}
		if err := validateChildren(field.Name, i, arr, mask, aux); err != nil {
			return err
		}
	}
	return nil
}

// isLogicalNull reports whether row is null at the row level. Union
// arrays carry no validity bitmap, so their nulls live in aux.
func isLogicalNull(arr arrow.Array, row int, aux unionNulls) bool {
	switch arr.DataType().ID() {
	case arrow.DENSE_UNION, arrow.SPARSE_UNION:
		rows := aux[arr.Data()]
		n := sort.SearchInts(rows, row)
		return n < len(rows) && rows[n] == row
	}
	return arr.IsNull(row)
}

// validateChildren enforces child nullability for one nested level and
// recurses. mask marks the rows of arr that are reachable from the
// root; unreachable slots are padding and exempt from every check.
func validateChildren(path string, col int, arr arrow.Array, mask []bool, aux unionNulls) error {
	switch a := arr.(type) {
	case *array.Struct:
		t := a.DataType().(*arrow.StructType)
		eff := make([]bool, a.Len())
		for row := range eff {
			eff[row] = mask[row] && a.IsValid(row)
		}
		for j := 0; j < t.NumFields(); j++ {
			f := t.Field(j)
			child := a.Field(j)
			childPath := path + "." + f.Name
			if !f.Nullable {
				for row := range eff {
					if eff[row] && isLogicalNull(child, row, aux) {
						return &NullabilityError{
							Column:  col,
							Path:    childPath,
							Row:     row,
							Message: "non-nullable struct field contains null",
						}
					}
				}
			}
			if err := validateChildren(childPath, col, child, eff, aux); err != nil {
				return err
			}
		}
		return nil

	case *array.List:
		t := a.DataType().(*arrow.ListType)
		offsets := a.Offsets()
		ranges := func(row int) (int, int) { return int(offsets[row]), int(offsets[row+1]) }
		return validateListItems(path, col, a, a.ListValues(), t.ElemField(), mask, ranges, aux)

	case *array.LargeList:
		t := a.DataType().(*arrow.LargeListType)
		offsets := a.Offsets()
		ranges := func(row int) (int, int) { return int(offsets[row]), int(offsets[row+1]) }
		return validateListItems(path, col, a, a.ListValues(), t.ElemField(), mask, ranges, aux)

	case *array.FixedSizeList:
		t := a.DataType().(*arrow.FixedSizeListType)
		width := int(t.Len())
		ranges := func(row int) (int, int) { return row * width, (row + 1) * width }
		return validateListItems(path, col, a, a.ListValues(), t.ElemField(), mask, ranges, aux)

	case *array.Map:
		return validateMapEntries(path, col, a, mask, aux)

	case *array.DenseUnion:
		offset := func(row int) int { return int(a.ValueOffset(row)) }
		return validateUnion(path, col, a, a.UnionType(), mask, offset, aux)

	case *array.SparseUnion:
		offset := func(row int) int { return row }
		return validateUnion(path, col, a, a.UnionType(), mask, offset, aux)

	default:
		return nil
	}
}

func validateListItems(path string, col int, list arrow.Array, values arrow.Array, item arrow.Field, mask []bool, ranges func(int) (int, int), aux unionNulls) error {
	childMask := make([]bool, values.Len())
	for row := 0; row < list.Len(); row++ {
		if !mask[row] || list.IsNull(row) {
			continue
		}
		start, end := ranges(row)
		for j := start; j < end; j++ {
			childMask[j] = true
		}
	}

	itemPath := path + "[]"
	if !item.Nullable {
		for j := range childMask {
			if childMask[j] && isLogicalNull(values, j, aux) {
				return &NullabilityError{
					Column:  col,
					Path:    itemPath,
					Row:     j,
					Message: "non-nullable list item contains null",
				}
			}
		}
	}
	return validateChildren(itemPath, col, values, childMask, aux)
}

func validateMapEntries(path string, col int, m *array.Map, mask []bool, aux unionNulls) error {
	t := m.DataType().(*arrow.MapType)
	keys, items := m.Keys(), m.Items()
	offsets := m.Offsets()

	entryMask := make([]bool, keys.Len())
	for row := 0; row < m.Len(); row++ {
		if !mask[row] || m.IsNull(row) {
			continue
		}
		for j := int(offsets[row]); j < int(offsets[row+1]); j++ {
			entryMask[j] = true
		}
	}

	keyPath, valuePath := path+".keys", path+".values"
	for j := range entryMask {
		if !entryMask[j] {
			continue
		}
		if isLogicalNull(keys, j, aux) {
			return &NullabilityError{
				Column:  col,
				Path:    keyPath,
				Row:     j,
				Message: "map key contains null",
			}
		}
		if !t.ItemField().Nullable && isLogicalNull(items, j, aux) {
			return &NullabilityError{
				Column:  col,
				Path:    valuePath,
				Row:     j,
				Message: "non-nullable map value contains null",
			}
		}
	}

	if err := validateChildren(keyPath, col, keys, entryMask, aux); err != nil {
		return err
	}
	return validateChildren(valuePath, col, items, entryMask, aux)
}

type unionAccessor interface {
	arrow.Array
	ChildID(i int) int
	Field(pos int) arrow.Array
}

func validateUnion(path string, col int, u unionAccessor, t arrow.UnionType, mask []bool, offset func(int) int, aux unionNulls) error {
	fields := t.Fields()
	codes := t.TypeCodes()

	eff := make([]bool, u.Len())
	for row := range eff {
		eff[row] = mask[row] && !isLogicalNull(u, row, aux)
	}

	childMasks := make([][]bool, len(fields))
	for i := range childMasks {
		childMasks[i] = make([]bool, u.Field(i).Len())
	}

	for row := range eff {
		if !eff[row] {
			continue
		}
		id := u.ChildID(row)
		slot := offset(row)
		if !fields[id].Nullable && isLogicalNull(u.Field(id), slot, aux) {
			return &NullabilityError{
				Column:  col,
				Path:    variantPath(path, fields[id].Name, codes[id]),
				Row:     row,
				Message: "non-nullable union variant contains null",
			}
		}
		childMasks[id][slot] = true
	}

	for i := range fields {
		vp := variantPath(path, fields[i].Name, codes[i])
		if err := validateChildren(vp, col, u.Field(i), childMasks[i], aux); err != nil {
			return err
		}
	}
	return nil
}

func variantPath(path, name string, code arrow.UnionTypeCode) string {
	return fmt.Sprintf("%s.%s#%d", path, name, code)
}
