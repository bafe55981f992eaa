package schema

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/goccy/go-json"

	"github.com/ajitpratap0/dynbatch/pkg/errors"
)

// Document is the serializable form of a Descriptor. It mirrors the
// field-list layout used by embedded file-format schemas so descriptors
// can be loaded from configuration or sidecar files.
type Document struct {
	Fields []FieldDoc `json:"fields"`
}

// FieldDoc describes one field (or nested child) in a schema document.
type FieldDoc struct {
	// Name is the field identifier. Optional on list items and map
	// key/value entries.
	Name string `json:"name,omitempty"`

	// Type is the logical type name (e.g. "int64", "utf8", "list",
	// "struct", "union").
	Type string `json:"type"`

	// Nullable indicates whether the field admits nulls.
	Nullable bool `json:"nullable"`

	// Unit is the time unit for time32/time64/timestamp/duration:
	// "s", "ms", "us" or "ns".
	Unit string `json:"unit,omitempty"`

	// Timezone is the optional timestamp timezone.
	Timezone string `json:"timezone,omitempty"`

	// ByteWidth is the width for fixed_size_binary.
	ByteWidth int `json:"byteWidth,omitempty"`

	// Precision and Scale parameterize decimal128.
	Precision int32 `json:"precision,omitempty"`
	Scale     int32 `json:"scale,omitempty"`

	// ListSize is the declared width for fixed_size_list.
	ListSize int32 `json:"listSize,omitempty"`

	// Fields holds struct children or union variants.
	Fields []FieldDoc `json:"fields,omitempty"`

	// Item is the element of list/large_list/fixed_size_list.
	Item *FieldDoc `json:"item,omitempty"`

	// Key and Value describe map entries; Value doubles as the
	// dictionary value type.
	Key   *FieldDoc `json:"key,omitempty"`
	Value *FieldDoc `json:"value,omitempty"`

	// KeysSorted marks a map with sorted keys.
	KeysSorted bool `json:"keysSorted,omitempty"`

	// Index is the dictionary key width ("int8".."int64").
	Index string `json:"index,omitempty"`

	// Mode selects the union encoding: "dense" or "sparse".
	Mode string `json:"mode,omitempty"`

	// Tag is the union type id for a variant; defaults to its position.
	Tag *int8 `json:"tag,omitempty"`
}

// FromJSON decodes a schema document into a Descriptor.
func FromJSON(data []byte) (*Descriptor, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "malformed schema document")
	}
	if len(doc.Fields) == 0 {
		return nil, errors.New(errors.ErrorTypeConfig, "schema document has no fields")
	}
	fields := make([]arrow.Field, 0, len(doc.Fields))
	for i, fd := range doc.Fields {
		f, err := fd.toArrow()
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeValidation,
				fmt.Sprintf("invalid field %q at index %d", fd.Name, i))
		}
		fields = append(fields, f)
	}
	return New(fields), nil
}

// MarshalJSON encodes the Descriptor as a schema document.
func (d *Descriptor) MarshalJSON() ([]byte, error) {
	doc := Document{Fields: make([]FieldDoc, 0, d.Len())}
	for i := 0; i < d.Len(); i++ {
		fd, err := fromArrowField(d.Field(i))
		if err != nil {
			return nil, err
		}
		doc.Fields = append(doc.Fields, fd)
	}
	return json.Marshal(doc)
}

func (fd FieldDoc) toArrow() (arrow.Field, error) {
	dt, err := fd.dataType()
	if err != nil {
		return arrow.Field{}, err
	}
	return arrow.Field{Name: fd.Name, Type: dt, Nullable: fd.Nullable}, nil
}

func (fd FieldDoc) dataType() (arrow.DataType, error) {
	switch fd.Type {
	case "bool":
		return arrow.FixedWidthTypes.Boolean, nil
	case "int8":
		return arrow.PrimitiveTypes.Int8, nil
	case "int16":
		return arrow.PrimitiveTypes.Int16, nil
	case "int32":
		return arrow.PrimitiveTypes.Int32, nil
	case "int64":
		return arrow.PrimitiveTypes.Int64, nil
	case "uint8":
		return arrow.PrimitiveTypes.Uint8, nil
	case "uint16":
		return arrow.PrimitiveTypes.Uint16, nil
	case "uint32":
		return arrow.PrimitiveTypes.Uint32, nil
	case "uint64":
		return arrow.PrimitiveTypes.Uint64, nil
	case "float32":
		return arrow.PrimitiveTypes.Float32, nil
	case "float64":
		return arrow.PrimitiveTypes.Float64, nil
	case "utf8":
		return arrow.BinaryTypes.String, nil
	case "binary":
		return arrow.BinaryTypes.Binary, nil
	case "fixed_size_binary":
		if fd.ByteWidth <= 0 {
			return nil, fmt.Errorf("fixed_size_binary requires a positive byteWidth")
		}
		return &arrow.FixedSizeBinaryType{ByteWidth: fd.ByteWidth}, nil
	case "date32":
		return arrow.FixedWidthTypes.Date32, nil
	case "date64":
		return arrow.FixedWidthTypes.Date64, nil
	case "time32":
		unit, err := parseUnit(fd.Unit)
		if err != nil {
			return nil, err
		}
		return &arrow.Time32Type{Unit: unit}, nil
	case "time64":
		unit, err := parseUnit(fd.Unit)
		if err != nil {
			return nil, err
		}
		return &arrow.Time64Type{Unit: unit}, nil
	case "timestamp":
		unit, err := parseUnit(fd.Unit)
		if err != nil {
			return nil, err
		}
		return &arrow.TimestampType{Unit: unit, TimeZone: fd.Timezone}, nil
	case "duration":
		unit, err := parseUnit(fd.Unit)
		if err != nil {
			return nil, err
		}
		return &arrow.DurationType{Unit: unit}, nil
	case "decimal128":
		if fd.Precision <= 0 {
			return nil, fmt.Errorf("decimal128 requires a positive precision")
		}
		return &arrow.Decimal128Type{Precision: fd.Precision, Scale: fd.Scale}, nil
	case "struct":
		children := make([]arrow.Field, 0, len(fd.Fields))
		for _, child := range fd.Fields {
			f, err := child.toArrow()
			if err != nil {
				return nil, err
			}
			children = append(children, f)
		}
		return arrow.StructOf(children...), nil
	case "list", "large_list":
		if fd.Item == nil {
			return nil, fmt.Errorf("%s requires an item", fd.Type)
		}
		item, err := fd.Item.toArrow()
		if err != nil {
			return nil, err
		}
		item.Name = "item"
		if fd.Type == "large_list" {
			return arrow.LargeListOfField(item), nil
		}
		return arrow.ListOfField(item), nil
	case "fixed_size_list":
		if fd.Item == nil {
			return nil, fmt.Errorf("fixed_size_list requires an item")
		}
		if fd.ListSize <= 0 {
			return nil, fmt.Errorf("fixed_size_list requires a positive listSize")
		}
		item, err := fd.Item.toArrow()
		if err != nil {
			return nil, err
		}
		item.Name = "item"
		return arrow.FixedSizeListOfField(fd.ListSize, item), nil
	case "map":
		if fd.Key == nil || fd.Value == nil {
			return nil, fmt.Errorf("map requires key and value")
		}
		keyType, err := fd.Key.dataType()
		if err != nil {
			return nil, err
		}
		valueType, err := fd.Value.dataType()
		if err != nil {
			return nil, err
		}
		mt := arrow.MapOfWithMetadata(keyType, arrow.Metadata{}, valueType, arrow.Metadata{})
		mt.KeysSorted = fd.KeysSorted
		if !fd.Value.Nullable {
			mt.SetItemNullable(false)
		}
		return mt, nil
	case "dictionary":
		if fd.Value == nil {
			return nil, fmt.Errorf("dictionary requires a value type")
		}
		indexType, err := parseDictIndex(fd.Index)
		if err != nil {
			return nil, err
		}
		valueType, err := fd.Value.dataType()
		if err != nil {
			return nil, err
		}
		return &arrow.DictionaryType{IndexType: indexType, ValueType: valueType}, nil
	case "union":
		if len(fd.Fields) == 0 {
			return nil, fmt.Errorf("union requires at least one variant")
		}
		variants := make([]arrow.Field, 0, len(fd.Fields))
		codes := make([]arrow.UnionTypeCode, 0, len(fd.Fields))
		for i, variant := range fd.Fields {
			f, err := variant.toArrow()
			if err != nil {
				return nil, err
			}
			variants = append(variants, f)
			if variant.Tag != nil {
				codes = append(codes, *variant.Tag)
			} else {
				codes = append(codes, arrow.UnionTypeCode(i))
			}
		}
		switch fd.Mode {
		case "dense", "":
			return arrow.DenseUnionOf(variants, codes), nil
		case "sparse":
			return arrow.SparseUnionOf(variants, codes), nil
		default:
			return nil, fmt.Errorf("unknown union mode %q", fd.Mode)
		}
	default:
		return nil, fmt.Errorf("unknown logical type %q", fd.Type)
	}
}

func fromArrowField(f arrow.Field) (FieldDoc, error) {
	fd, err := fromArrowType(f.Type)
	if err != nil {
		return FieldDoc{}, err
	}
	fd.Name = f.Name
	fd.Nullable = f.Nullable
	return fd, nil
}

func fromArrowType(dt arrow.DataType) (FieldDoc, error) {
	switch t := dt.(type) {
	case *arrow.BooleanType:
		return FieldDoc{Type: "bool"}, nil
	case *arrow.Int8Type:
		return FieldDoc{Type: "int8"}, nil
	case *arrow.Int16Type:
		return FieldDoc{Type: "int16"}, nil
	case *arrow.Int32Type:
		return FieldDoc{Type: "int32"}, nil
	case *arrow.Int64Type:
		return FieldDoc{Type: "int64"}, nil
	case *arrow.Uint8Type:
		return FieldDoc{Type: "uint8"}, nil
	case *arrow.Uint16Type:
		return FieldDoc{Type: "uint16"}, nil
	case *arrow.Uint32Type:
		return FieldDoc{Type: "uint32"}, nil
	case *arrow.Uint64Type:
		return FieldDoc{Type: "uint64"}, nil
	case *arrow.Float32Type:
		return FieldDoc{Type: "float32"}, nil
	case *arrow.Float64Type:
		return FieldDoc{Type: "float64"}, nil
	case *arrow.StringType:
		return FieldDoc{Type: "utf8"}, nil
	case *arrow.BinaryType:
		return FieldDoc{Type: "binary"}, nil
	case *arrow.FixedSizeBinaryType:
		return FieldDoc{Type: "fixed_size_binary", ByteWidth: t.ByteWidth}, nil
	case *arrow.Date32Type:
		return FieldDoc{Type: "date32"}, nil
	case *arrow.Date64Type:
		return FieldDoc{Type: "date64"}, nil
	case *arrow.Time32Type:
		return FieldDoc{Type: "time32", Unit: unitName(t.Unit)}, nil
	case *arrow.Time64Type:
		return FieldDoc{Type: "time64", Unit: unitName(t.Unit)}, nil
	case *arrow.TimestampType:
		return FieldDoc{Type: "timestamp", Unit: unitName(t.Unit), Timezone: t.TimeZone}, nil
	case *arrow.DurationType:
		return FieldDoc{Type: "duration", Unit: unitName(t.Unit)}, nil
	case *arrow.Decimal128Type:
		return FieldDoc{Type: "decimal128", Precision: t.Precision, Scale: t.Scale}, nil
	case *arrow.StructType:
		children := make([]FieldDoc, 0, t.NumFields())
		for i := 0; i < t.NumFields(); i++ {
			fd, err := fromArrowField(t.Field(i))
			if err != nil {
				return FieldDoc{}, err
			}
			children = append(children, fd)
		}
		return FieldDoc{Type: "struct", Fields: children}, nil
	case *arrow.ListType:
		item, err := fromArrowField(t.ElemField())
		if err != nil {
			return FieldDoc{}, err
		}
		return FieldDoc{Type: "list", Item: &item}, nil
	case *arrow.LargeListType:
		item, err := fromArrowField(t.ElemField())
		if err != nil {
			return FieldDoc{}, err
		}
		return FieldDoc{Type: "large_list", Item: &item}, nil
	case *arrow.FixedSizeListType:
		item, err := fromArrowField(t.ElemField())
		if err != nil {
			return FieldDoc{}, err
		}
		return FieldDoc{Type: "fixed_size_list", Item: &item, ListSize: t.Len()}, nil
	case *arrow.MapType:
		key, err := fromArrowType(t.KeyType())
		if err != nil {
			return FieldDoc{}, err
		}
		value, err := fromArrowType(t.ItemType())
		if err != nil {
			return FieldDoc{}, err
		}
		value.Nullable = t.ItemField().Nullable
		return FieldDoc{Type: "map", Key: &key, Value: &value, KeysSorted: t.KeysSorted}, nil
	case *arrow.DictionaryType:
		value, err := fromArrowType(t.ValueType)
		if err != nil {
			return FieldDoc{}, err
		}
		return FieldDoc{Type: "dictionary", Index: t.IndexType.Name(), Value: &value}, nil
	case arrow.UnionType:
		variants := make([]FieldDoc, 0, len(t.Fields()))
		codes := t.TypeCodes()
		for i, f := range t.Fields() {
			fd, err := fromArrowField(f)
			if err != nil {
				return FieldDoc{}, err
			}
			tag := codes[i]
			fd.Tag = &tag
			variants = append(variants, fd)
		}
		mode := "dense"
		if t.Mode() == arrow.SparseMode {
			mode = "sparse"
		}
		return FieldDoc{Type: "union", Mode: mode, Fields: variants}, nil
	default:
		return FieldDoc{}, fmt.Errorf("type %s has no document form", dt)
	}
}

func parseUnit(s string) (arrow.TimeUnit, error) {
	switch s {
	case "s":
		return arrow.Second, nil
	case "ms":
		return arrow.Millisecond, nil
	case "us":
		return arrow.Microsecond, nil
	case "ns":
		return arrow.Nanosecond, nil
	default:
		return arrow.Second, fmt.Errorf("unknown time unit %q", s)
	}
}

func unitName(u arrow.TimeUnit) string {
	switch u {
	case arrow.Second:
		return "s"
	case arrow.Millisecond:
		return "ms"
	case arrow.Microsecond:
		return "us"
	default:
		return "ns"
	}
}

func parseDictIndex(s string) (arrow.DataType, error) {
	switch s {
	case "int8":
		return arrow.PrimitiveTypes.Int8, nil
	case "int16":
		return arrow.PrimitiveTypes.Int16, nil
	case "int32", "":
		return arrow.PrimitiveTypes.Int32, nil
	case "int64":
		return arrow.PrimitiveTypes.Int64, nil
	default:
		return nil, fmt.Errorf("unsupported dictionary index width %q", s)
	}
}
