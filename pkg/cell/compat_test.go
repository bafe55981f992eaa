package cell

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckScalars(t *testing.T) {
	require.NoError(t, Check(arrow.FixedWidthTypes.Boolean, Bool(true)))
	require.NoError(t, Check(arrow.PrimitiveTypes.Int64, Int64(1)))
	require.NoError(t, Check(arrow.PrimitiveTypes.Uint16, Uint16(9)))
	require.NoError(t, Check(arrow.BinaryTypes.String, String("x")))
	require.NoError(t, Check(arrow.BinaryTypes.Binary, Bytes([]byte{1})))

	assert.Error(t, Check(arrow.PrimitiveTypes.Int64, String("x")))
	assert.Error(t, Check(arrow.BinaryTypes.String, Int64(1)))
	assert.Error(t, Check(arrow.PrimitiveTypes.Uint8, Int8(1)))
}

func TestCheckNullIsAlwaysCompatible(t *testing.T) {
	for _, dt := range []arrow.DataType{
		arrow.PrimitiveTypes.Int64,
		arrow.BinaryTypes.String,
		arrow.ListOf(arrow.PrimitiveTypes.Int32),
		arrow.StructOf(arrow.Field{Name: "a", Type: arrow.PrimitiveTypes.Int64}),
	} {
		assert.NoError(t, Check(dt, Null()))
		assert.NoError(t, Check(dt, nil))
	}
}

func TestCheckTemporalReuseIntKinds(t *testing.T) {
	// Temporal types ride the integer kinds of their physical width.
	require.NoError(t, Check(arrow.FixedWidthTypes.Date32, Int32(19000)))
	require.NoError(t, Check(&arrow.Time32Type{Unit: arrow.Second}, Int32(3600)))
	require.NoError(t, Check(&arrow.TimestampType{Unit: arrow.Nanosecond}, Int64(1)))
	require.NoError(t, Check(&arrow.DurationType{Unit: arrow.Millisecond}, Int64(250)))

	assert.Error(t, Check(arrow.FixedWidthTypes.Date32, Int64(1)))
	assert.Error(t, Check(&arrow.TimestampType{Unit: arrow.Nanosecond}, Int32(1)))
}

func TestCheckFixedSizeBinaryWidth(t *testing.T) {
	dt := &arrow.FixedSizeBinaryType{ByteWidth: 4}
	require.NoError(t, Check(dt, Bytes([]byte{1, 2, 3, 4})))
	assert.Error(t, Check(dt, Bytes([]byte{1, 2})))
}

func TestCheckStruct(t *testing.T) {
	dt := arrow.StructOf(
		arrow.Field{Name: "a", Type: arrow.PrimitiveTypes.Int64},
		arrow.Field{Name: "b", Type: arrow.BinaryTypes.String, Nullable: true},
	)
	require.NoError(t, Check(dt, Struct(Int64(1), String("x"))))
	require.NoError(t, Check(dt, Struct(Int64(1), Null())))

	assert.Error(t, Check(dt, Struct(Int64(1))))
	assert.Error(t, Check(dt, Struct(String("x"), Null())))
	assert.Error(t, Check(dt, Int64(1)))
}

func TestCheckListRecursion(t *testing.T) {
	dt := arrow.ListOf(arrow.ListOf(arrow.PrimitiveTypes.Int32))
	require.NoError(t, Check(dt, List(List(Int32(1)), Null())))
	assert.Error(t, Check(dt, List(List(String("no")))))
	assert.Error(t, Check(dt, List(Int32(1))))
}

func TestCheckFixedSizeListWidth(t *testing.T) {
	dt := arrow.FixedSizeListOf(2, arrow.PrimitiveTypes.Float64)
	require.NoError(t, Check(dt, FixedList(Float64(1), Float64(2))))
	assert.Error(t, Check(dt, FixedList(Float64(1))))
	assert.Error(t, Check(dt, List(Float64(1), Float64(2))))
}

func TestCheckMap(t *testing.T) {
	dt := arrow.MapOf(arrow.BinaryTypes.String, arrow.PrimitiveTypes.Int64)
	require.NoError(t, Check(dt, Map(Entry{Key: String("k"), Value: Int64(1)})))
	require.NoError(t, Check(dt, Map(Entry{Key: String("k"), Value: Null()})))

	assert.Error(t, Check(dt, Map(Entry{Key: Null(), Value: Int64(1)})))
	assert.Error(t, Check(dt, Map(Entry{Key: Int64(1), Value: Int64(1)})))
}

func TestCheckDictionaryDelegatesToValue(t *testing.T) {
	dt := &arrow.DictionaryType{
		IndexType: arrow.PrimitiveTypes.Int32,
		ValueType: arrow.BinaryTypes.String,
	}
	require.NoError(t, Check(dt, String("value")))
	assert.Error(t, Check(dt, Int64(1)))
}

func TestCheckUnion(t *testing.T) {
	dt := arrow.DenseUnionOf(
		[]arrow.Field{
			{Name: "i", Type: arrow.PrimitiveTypes.Int64, Nullable: false},
			{Name: "s", Type: arrow.BinaryTypes.String, Nullable: true},
		},
		[]arrow.UnionTypeCode{4, 8},
	)
	require.NoError(t, Check(dt, Union(4, Int64(1))))
	require.NoError(t, Check(dt, Union(8, String("x"))))
	require.NoError(t, Check(dt, UnionNull(4)))

	assert.Error(t, Check(dt, Union(1, Int64(1))))
	assert.Error(t, Check(dt, Union(4, String("wrong"))))
	assert.Error(t, Check(dt, Int64(1)))
}

func TestTypeName(t *testing.T) {
	assert.Equal(t, "null", Null().TypeName())
	assert.Equal(t, "null", (*Cell)(nil).TypeName())
	assert.NotEmpty(t, String("x").TypeName())
	assert.NotEmpty(t, Union(0, Int64(1)).TypeName())
}
