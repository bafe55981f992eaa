package batch

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/dynbatch/pkg/cell"
	"github.com/ajitpratap0/dynbatch/pkg/schema"
)

func denseUnionSchema(t *testing.T) *schema.Descriptor {
	t.Helper()
	ut := arrow.DenseUnionOf(
		[]arrow.Field{
			{Name: "i", Type: arrow.PrimitiveTypes.Int64, Nullable: false},
			{Name: "s", Type: arrow.BinaryTypes.String, Nullable: true},
		},
		[]arrow.UnionTypeCode{0, 1},
	)
	return schema.New([]arrow.Field{{Name: "v", Type: ut, Nullable: true}})
}

func TestDenseUnionSelectorSequence(t *testing.T) {
	b, err := New(denseUnionSchema(t), Options{})
	require.NoError(t, err)

	require.NoError(t, b.AppendRow(cell.Row{cell.Union(0, cell.Int64(10))}))
	require.NoError(t, b.AppendRow(cell.Row{cell.Union(1, cell.String("x"))}))
	require.NoError(t, b.AppendRow(cell.Row{cell.Union(0, cell.Int64(20))}))
	require.NoError(t, b.AppendRow(cell.Row{cell.Union(1, cell.String("y"))}))

	batch, err := b.TryFinish()
	require.NoError(t, err)
	defer batch.Release()

	u := batch.Column(0).(*array.DenseUnion)
	require.Equal(t, 4, u.Len())
	assert.Equal(t, []arrow.UnionTypeCode{0, 1, 0, 1}, u.RawTypeCodes())
	// Each variant keeps its own compact slot sequence.
	assert.Equal(t, []int32{0, 0, 1, 1}, u.RawValueOffsets())

	ints := u.Field(0).(*array.Int64)
	assert.Equal(t, []int64{10, 20}, ints.Int64Values())
	strs := u.Field(1).(*array.String)
	assert.Equal(t, "x", strs.Value(0))
	assert.Equal(t, "y", strs.Value(1))
}

func TestDenseUnionNullRowsTracked(t *testing.T) {
	// Variant 0 is non-nullable, so it only carries null rows together
	// with the out-of-band record; "s" is the first nullable variant
	// and becomes the carrier instead.
	b, err := New(denseUnionSchema(t), Options{})
	require.NoError(t, err)

	require.NoError(t, b.AppendRow(cell.Row{cell.Union(0, cell.Int64(1))}))
	require.NoError(t, b.AppendRow(cell.Row{cell.Null()}))
	require.NoError(t, b.AppendRow(cell.Row{cell.Union(1, cell.String("z"))}))

	batch, err := b.TryFinish()
	require.NoError(t, err)
	defer batch.Release()

	u := batch.Column(0).(*array.DenseUnion)
	// Null row landed in the nullable carrier variant 1.
	assert.Equal(t, []arrow.UnionTypeCode{0, 1, 1}, u.RawTypeCodes())
	strs := u.Field(1).(*array.String)
	assert.True(t, strs.IsNull(0))
	assert.Equal(t, "z", strs.Value(1))

	assert.False(t, batch.UnionNull(u, 0))
	assert.True(t, batch.UnionNull(u, 1))
	assert.False(t, batch.UnionNull(u, 2))
}

func TestDenseUnionNullCarrierFallback(t *testing.T) {
	// No nullable variant: nulls fall back to variant 0 and must be
	// recorded out of band, or they would read as real zero values.
	ut := arrow.DenseUnionOf(
		[]arrow.Field{
			{Name: "i", Type: arrow.PrimitiveTypes.Int64, Nullable: false},
			{Name: "f", Type: arrow.PrimitiveTypes.Float64, Nullable: false},
		},
		[]arrow.UnionTypeCode{3, 7},
	)
	desc := schema.New([]arrow.Field{{Name: "v", Type: ut, Nullable: true}})
	b, err := New(desc, Options{})
	require.NoError(t, err)

	require.NoError(t, b.AppendRow(cell.Row{cell.Union(3, cell.Int64(5))}))
	require.NoError(t, b.AppendRow(cell.Row{cell.Null()}))
	require.NoError(t, b.AppendRow(cell.Row{cell.Union(7, cell.Float64(1.5))}))

	batch, err := b.TryFinish()
	require.NoError(t, err)
	defer batch.Release()

	u := batch.Column(0).(*array.DenseUnion)
	assert.Equal(t, []arrow.UnionTypeCode{3, 3, 7}, u.RawTypeCodes())
	assert.False(t, batch.UnionNull(u, 0))
	assert.True(t, batch.UnionNull(u, 1))
	assert.False(t, batch.UnionNull(u, 2))
}

func TestDenseUnionUnknownTagRejected(t *testing.T) {
	b, err := New(denseUnionSchema(t), Options{})
	require.NoError(t, err)
	defer b.Release()

	err = b.AppendRow(cell.Row{cell.Union(9, cell.Int64(1))})
	var typeErr *TypeError
	require.ErrorAs(t, err, &typeErr)
	assert.Equal(t, 0, b.Len())
}

func TestSparseUnionLockstep(t *testing.T) {
	ut := arrow.SparseUnionOf(
		[]arrow.Field{
			{Name: "i", Type: arrow.PrimitiveTypes.Int32, Nullable: true},
			{Name: "s", Type: arrow.BinaryTypes.String, Nullable: true},
		},
		[]arrow.UnionTypeCode{0, 1},
	)
	desc := schema.New([]arrow.Field{{Name: "v", Type: ut, Nullable: true}})
	b, err := New(desc, Options{})
	require.NoError(t, err)

	require.NoError(t, b.AppendRow(cell.Row{cell.Union(0, cell.Int32(1))}))
	require.NoError(t, b.AppendRow(cell.Row{cell.Union(1, cell.String("a"))}))
	require.NoError(t, b.AppendRow(cell.Row{cell.Null()}))

	batch, err := b.TryFinish()
	require.NoError(t, err)
	defer batch.Release()

	u := batch.Column(0).(*array.SparseUnion)
	require.Equal(t, 3, u.Len())
	// Sparse children advance in lock-step with the row count.
	assert.Equal(t, 3, u.Field(0).Len())
	assert.Equal(t, 3, u.Field(1).Len())

	ints := u.Field(0).(*array.Int32)
	assert.Equal(t, int32(1), ints.Value(0))
	assert.True(t, ints.IsNull(1))

	strs := u.Field(1).(*array.String)
	assert.True(t, strs.IsNull(0))
	assert.Equal(t, "a", strs.Value(1))
}

func TestNonNullableUnionFieldRejectsNullRows(t *testing.T) {
	ut := arrow.DenseUnionOf(
		[]arrow.Field{
			{Name: "i", Type: arrow.PrimitiveTypes.Int64, Nullable: false},
		},
		[]arrow.UnionTypeCode{0},
	)
	desc := schema.New([]arrow.Field{{Name: "v", Type: ut, Nullable: false}})
	b, err := New(desc, Options{})
	require.NoError(t, err)

	require.NoError(t, b.AppendRow(cell.Row{cell.Union(0, cell.Int64(1))}))
	require.NoError(t, b.AppendNullRow())

	batch, err := b.TryFinish()
	require.Nil(t, batch)
	var nullErr *NullabilityError
	require.ErrorAs(t, err, &nullErr)
	assert.Equal(t, "v", nullErr.Path)
	assert.Equal(t, 1, nullErr.Row)
}

func TestUnionVariantNullPayload(t *testing.T) {
	b, err := New(denseUnionSchema(t), Options{})
	require.NoError(t, err)

	// A union cell may select the nullable variant with a null
	// payload; that is a variant-level null, not a row-level one.
	require.NoError(t, b.AppendRow(cell.Row{cell.UnionNull(1)}))

	batch, err := b.TryFinish()
	require.NoError(t, err)
	defer batch.Release()

	u := batch.Column(0).(*array.DenseUnion)
	assert.False(t, batch.UnionNull(u, 0))
	assert.True(t, u.Field(1).IsNull(0))
}
