// Package cell provides the dynamic value model appended into runtime
// column builders and produced back by the view layer.
//
// A Cell is a tagged value tree mirroring a column's logical type. A nil
// *Cell means null everywhere a cell is expected; Null() constructs an
// explicit null that is accepted by every column type. Date, time,
// timestamp and duration columns take Int32/Int64 cells carrying the raw
// unit count; the builder owns the physical representation.
package cell

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/decimal128"
)

// Kind discriminates the payload held by a Cell.
type Kind uint8

// Cell kinds.
const (
	KindNull Kind = iota
	KindBool
	KindInt8
	KindInt16
	KindInt32
	KindInt64
	KindUint8
	KindUint16
	KindUint32
	KindUint64
	KindFloat32
	KindFloat64
	KindString
	KindBytes
	KindDecimal
	KindStruct
	KindList
	KindFixedList
	KindMap
	KindUnion
)

// Entry is one key/value pair of a map cell. A nil Value is a null map
// value; a nil or null Key is rejected at the compatibility check.
type Entry struct {
	Key   *Cell
	Value *Cell
}

// Cell is a dynamic value. Construct cells with the typed constructors;
// the zero value is an explicit null.
type Cell struct {
	kind Kind

	b   bool
	i   int64
	u   uint64
	f   float64
	s   string
	buf []byte
	dec decimal128.Num

	children []*Cell
	entries  []Entry
	tag      arrow.UnionTypeCode
	payload  *Cell
}

// Null returns an explicit null cell.
func Null() *Cell { return &Cell{kind: KindNull} }

// Bool returns a boolean cell.
func Bool(v bool) *Cell { return &Cell{kind: KindBool, b: v} }

// Int8 returns an 8-bit signed integer cell.
func Int8(v int8) *Cell { return &Cell{kind: KindInt8, i: int64(v)} }

// Int16 returns a 16-bit signed integer cell.
func Int16(v int16) *Cell { return &Cell{kind: KindInt16, i: int64(v)} }

// Int32 returns a 32-bit signed integer cell. Also feeds date32 and
// time32 columns.
func Int32(v int32) *Cell { return &Cell{kind: KindInt32, i: int64(v)} }

// Int64 returns a 64-bit signed integer cell. Also feeds date64,
// time64, timestamp and duration columns.
func Int64(v int64) *Cell { return &Cell{kind: KindInt64, i: v} }

// Uint8 returns an 8-bit unsigned integer cell.
func Uint8(v uint8) *Cell { return &Cell{kind: KindUint8, u: uint64(v)} }

// Uint16 returns a 16-bit unsigned integer cell.
func Uint16(v uint16) *Cell { return &Cell{kind: KindUint16, u: uint64(v)} }

// Uint32 returns a 32-bit unsigned integer cell.
func Uint32(v uint32) *Cell { return &Cell{kind: KindUint32, u: uint64(v)} }

// Uint64 returns a 64-bit unsigned integer cell.
func Uint64(v uint64) *Cell { return &Cell{kind: KindUint64, u: v} }

// Float32 returns a 32-bit floating point cell.
func Float32(v float32) *Cell { return &Cell{kind: KindFloat32, f: float64(v)} }

// Float64 returns a 64-bit floating point cell.
func Float64(v float64) *Cell { return &Cell{kind: KindFloat64, f: v} }

// String returns a UTF-8 string cell.
func String(v string) *Cell { return &Cell{kind: KindString, s: v} }

// Bytes returns a binary cell. For fixed-size binary columns the length
// must equal the declared byte width.
func Bytes(v []byte) *Cell { return &Cell{kind: KindBytes, buf: v} }

// Decimal returns a decimal128 cell.
func Decimal(v decimal128.Num) *Cell { return &Cell{kind: KindDecimal, dec: v} }

// Struct returns a struct cell with one entry per child field, in schema
// order. Nil children encode null child values.
func Struct(children ...*Cell) *Cell {
	return &Cell{kind: KindStruct, children: children}
}

// List returns a variable-length list cell. Used for both list and
// large_list columns; the builder selects the offset width.
func List(items ...*Cell) *Cell {
	return &Cell{kind: KindList, children: items}
}

// FixedList returns a fixed-size list cell. The item count must match
// the column's declared width.
func FixedList(items ...*Cell) *Cell {
	return &Cell{kind: KindFixedList, children: items}
}

// Map returns a map cell from key/value entries.
func Map(entries ...Entry) *Cell {
	return &Cell{kind: KindMap, entries: entries}
}

// Union returns a union cell selecting the variant identified by tag and
// carrying payload as its value.
func Union(tag arrow.UnionTypeCode, payload *Cell) *Cell {
	return &Cell{kind: KindUnion, tag: tag, payload: payload}
}

// UnionNull returns a union cell encoding a null for the given variant.
func UnionNull(tag arrow.UnionTypeCode) *Cell {
	return &Cell{kind: KindUnion, tag: tag}
}

// Kind returns the cell's discriminator. A nil cell reports KindNull.
func (c *Cell) Kind() Kind {
	if c == nil {
		return KindNull
	}
	return c.kind
}

// IsNull reports whether the cell encodes a null.
func (c *Cell) IsNull() bool { return c == nil || c.kind == KindNull }

// BoolVal returns the boolean payload.
func (c *Cell) BoolVal() bool { return c.b }

// IntVal returns the signed integer payload widened to 64 bits.
func (c *Cell) IntVal() int64 { return c.i }

// UintVal returns the unsigned integer payload widened to 64 bits.
func (c *Cell) UintVal() uint64 { return c.u }

// FloatVal returns the floating point payload widened to 64 bits.
func (c *Cell) FloatVal() float64 { return c.f }

// StringVal returns the string payload.
func (c *Cell) StringVal() string { return c.s }

// BytesVal returns the binary payload.
func (c *Cell) BytesVal() []byte { return c.buf }

// DecimalVal returns the decimal128 payload.
func (c *Cell) DecimalVal() decimal128.Num { return c.dec }

// Children returns struct children or list items.
func (c *Cell) Children() []*Cell { return c.children }

// Entries returns map entries.
func (c *Cell) Entries() []Entry { return c.entries }

// Tag returns the union type id.
func (c *Cell) Tag() arrow.UnionTypeCode { return c.tag }

// Payload returns the union payload; nil encodes a null in the selected
// variant.
func (c *Cell) Payload() *Cell { return c.payload }

// TypeName returns a short human-readable name for diagnostics.
func (c *Cell) TypeName() string {
	switch c.Kind() {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt8:
		return "int8"
	case KindInt16:
		return "int16"
	case KindInt32:
		return "int32"
	case KindInt64:
		return "int64"
	case KindUint8:
		return "uint8"
	case KindUint16:
		return "uint16"
	case KindUint32:
		return "uint32"
	case KindUint64:
		return "uint64"
	case KindFloat32:
		return "float32"
	case KindFloat64:
		return "float64"
	case KindString:
		return "utf8"
	case KindBytes:
		return "binary"
	case KindDecimal:
		return "decimal"
	case KindStruct:
		return "struct"
	case KindList:
		return "list"
	case KindFixedList:
		return "fixed_size_list"
	case KindMap:
		return "map"
	case KindUnion:
		return "union"
	default:
		return "unknown"
	}
}

// Row is an ordered sequence of cells, one per schema field. A nil entry
// appends null to that field's column.
type Row []*Cell
