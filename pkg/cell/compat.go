package cell

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
)

// Check verifies that c is structurally compatible with the column type
// dt, recursing through nested children. It is pure: no builder state is
// touched, which lets the append engine reject a whole row before any
// column advances.
func Check(dt arrow.DataType, c *Cell) error {
	if c.IsNull() {
		return nil
	}

	switch t := dt.(type) {
	case *arrow.BooleanType:
		return expectKind(dt, c, KindBool)
	case *arrow.Int8Type:
		return expectKind(dt, c, KindInt8)
	case *arrow.Int16Type:
		return expectKind(dt, c, KindInt16)
	case *arrow.Int32Type, *arrow.Date32Type, *arrow.Time32Type:
		return expectKind(dt, c, KindInt32)
	case *arrow.Int64Type, *arrow.Date64Type, *arrow.Time64Type,
		*arrow.TimestampType, *arrow.DurationType:
		return expectKind(dt, c, KindInt64)
	case *arrow.Uint8Type:
		return expectKind(dt, c, KindUint8)
	case *arrow.Uint16Type:
		return expectKind(dt, c, KindUint16)
	case *arrow.Uint32Type:
		return expectKind(dt, c, KindUint32)
	case *arrow.Uint64Type:
		return expectKind(dt, c, KindUint64)
	case *arrow.Float32Type:
		return expectKind(dt, c, KindFloat32)
	case *arrow.Float64Type:
		return expectKind(dt, c, KindFloat64)
	case *arrow.StringType:
		return expectKind(dt, c, KindString)
	case *arrow.BinaryType:
		return expectKind(dt, c, KindBytes)
	case *arrow.FixedSizeBinaryType:
		if err := expectKind(dt, c, KindBytes); err != nil {
			return err
		}
		if len(c.BytesVal()) != t.ByteWidth {
			return fmt.Errorf("fixed-size binary length mismatch: expected %d bytes, got %d",
				t.ByteWidth, len(c.BytesVal()))
		}
		return nil
	case *arrow.Decimal128Type:
		return expectKind(dt, c, KindDecimal)
	case *arrow.StructType:
		if err := expectKind(dt, c, KindStruct); err != nil {
			return err
		}
		children := c.Children()
		if len(children) != t.NumFields() {
			return fmt.Errorf("struct arity mismatch: expected %d children, got %d",
				t.NumFields(), len(children))
		}
		for i, child := range children {
			if err := Check(t.Field(i).Type, child); err != nil {
				return fmt.Errorf("struct child %q: %w", t.Field(i).Name, err)
			}
		}
		return nil
	case *arrow.ListType:
		return checkListItems(dt, c, KindList, t.Elem())
	case *arrow.LargeListType:
		return checkListItems(dt, c, KindList, t.Elem())
	case *arrow.FixedSizeListType:
		if err := expectKind(dt, c, KindFixedList); err != nil {
			return err
		}
		if int32(len(c.Children())) != t.Len() {
			return fmt.Errorf("fixed-size list length mismatch: expected %d items, got %d",
				t.Len(), len(c.Children()))
		}
		for i, item := range c.Children() {
			if err := Check(t.Elem(), item); err != nil {
				return fmt.Errorf("item %d: %w", i, err)
			}
		}
		return nil
	case *arrow.MapType:
		if err := expectKind(dt, c, KindMap); err != nil {
			return err
		}
		for i, entry := range c.Entries() {
			if entry.Key.IsNull() {
				return fmt.Errorf("map key at entry %d cannot be null", i)
			}
			if err := Check(t.KeyType(), entry.Key); err != nil {
				return fmt.Errorf("map key at entry %d: %w", i, err)
			}
			if err := Check(t.ItemType(), entry.Value); err != nil {
				return fmt.Errorf("map value at entry %d: %w", i, err)
			}
		}
		return nil
	case *arrow.DictionaryType:
		// Dictionary columns accept the value type's cells; keys are
		// managed by the builder.
		return Check(t.ValueType, c)
	case arrow.UnionType:
		if err := expectKind(dt, c, KindUnion); err != nil {
			return err
		}
		idx := -1
		for i, code := range t.TypeCodes() {
			if code == c.Tag() {
				idx = i
				break
			}
		}
		if idx < 0 {
			return fmt.Errorf("unknown union type id %d", c.Tag())
		}
		if payload := c.Payload(); payload != nil {
			variant := t.Fields()[idx]
			if err := Check(variant.Type, payload); err != nil {
				return fmt.Errorf("union variant %q: %w", variant.Name, err)
			}
		}
		return nil
	default:
		return fmt.Errorf("column type %s does not accept dynamic cells", dt)
	}
}

func checkListItems(dt arrow.DataType, c *Cell, kind Kind, elem arrow.DataType) error {
	if err := expectKind(dt, c, kind); err != nil {
		return err
	}
	for i, item := range c.Children() {
		if err := Check(elem, item); err != nil {
			return fmt.Errorf("item %d: %w", i, err)
		}
	}
	return nil
}

func expectKind(dt arrow.DataType, c *Cell, want Kind) error {
	if c.Kind() != want {
		return fmt.Errorf("expected %s, got %s", dt, c.TypeName())
	}
	return nil
}
