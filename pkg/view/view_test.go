package view

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/dynbatch/pkg/batch"
	"github.com/ajitpratap0/dynbatch/pkg/cell"
	"github.com/ajitpratap0/dynbatch/pkg/schema"
)

func profileSchema() *schema.Descriptor {
	return schema.New([]arrow.Field{
		{Name: "id", Type: arrow.PrimitiveTypes.Int64, Nullable: false},
		{Name: "user", Type: arrow.StructOf(
			arrow.Field{Name: "name", Type: arrow.BinaryTypes.String, Nullable: false},
			arrow.Field{Name: "age", Type: arrow.PrimitiveTypes.Int32, Nullable: true},
		), Nullable: true},
		{Name: "tags", Type: arrow.ListOf(arrow.PrimitiveTypes.Int32), Nullable: true},
		{Name: "attrs", Type: arrow.MapOf(arrow.BinaryTypes.String, arrow.PrimitiveTypes.Int64), Nullable: true},
		{Name: "country", Type: &arrow.DictionaryType{
			IndexType: arrow.PrimitiveTypes.Int32,
			ValueType: arrow.BinaryTypes.String,
		}, Nullable: true},
	})
}

func buildProfileBatch(t *testing.T) *batch.Batch {
	t.Helper()
	b, err := batch.New(profileSchema(), batch.Options{})
	require.NoError(t, err)

	require.NoError(t, b.AppendRow(cell.Row{
		cell.Int64(1),
		cell.Struct(cell.String("ann"), cell.Int32(34)),
		cell.List(cell.Int32(10), cell.Int32(20)),
		cell.Map(cell.Entry{Key: cell.String("tier"), Value: cell.Int64(3)}),
		cell.String("de"),
	}))
	require.NoError(t, b.AppendRow(cell.Row{
		cell.Int64(2),
		cell.Null(),
		cell.Null(),
		cell.Null(),
		cell.String("de"),
	}))

	out, err := b.TryFinish()
	require.NoError(t, err)
	return out
}

func TestRowIteration(t *testing.T) {
	b := buildProfileBatch(t)
	defer b.Release()

	it := Rows(b)
	var ids []int64
	for it.Next() {
		row := it.Row()
		require.Equal(t, 5, row.Len())
		id, err := row.Cell(0).Int()
		require.NoError(t, err)
		ids = append(ids, id)
	}
	assert.Equal(t, []int64{1, 2}, ids)
}

func TestScalarAccessors(t *testing.T) {
	b := buildProfileBatch(t)
	defer b.Release()

	it := Rows(b)
	require.True(t, it.Next())
	row := it.Row()

	id, err := row.Cell(0).Int()
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	// Dictionary slots decode transparently.
	country, err := row.Cell(4).Str()
	require.NoError(t, err)
	assert.Equal(t, "de", country)

	// Kind mismatch is an error, not a zero value.
	_, err = row.Cell(0).Str()
	require.Error(t, err)
	_, err = row.Cell(0).Float()
	require.Error(t, err)
}

func TestStructAndListViews(t *testing.T) {
	b := buildProfileBatch(t)
	defer b.Release()

	it := Rows(b)
	require.True(t, it.Next())
	row := it.Row()

	user, err := row.Cell(1).Struct()
	require.NoError(t, err)
	require.Equal(t, 2, user.NumFields())
	assert.Equal(t, "name", user.FieldName(0))
	name, err := user.Field(0).Str()
	require.NoError(t, err)
	assert.Equal(t, "ann", name)

	tags, err := row.Cell(2).List()
	require.NoError(t, err)
	require.Equal(t, 2, tags.Len())
	v, err := tags.Item(1).Int()
	require.NoError(t, err)
	assert.Equal(t, int64(20), v)

	attrs, err := row.Cell(3).Map()
	require.NoError(t, err)
	require.Equal(t, 1, attrs.Len())
	k, err := attrs.Key(0).Str()
	require.NoError(t, err)
	assert.Equal(t, "tier", k)

	// Null slots refuse composite access.
	require.True(t, it.Next())
	row = it.Row()
	_, err = row.Cell(1).Struct()
	require.Error(t, err)
	_, err = row.Cell(2).List()
	require.Error(t, err)
}

func TestUnionView(t *testing.T) {
	ut := arrow.DenseUnionOf(
		[]arrow.Field{
			{Name: "i", Type: arrow.PrimitiveTypes.Int64, Nullable: false},
			{Name: "s", Type: arrow.BinaryTypes.String, Nullable: true},
		},
		[]arrow.UnionTypeCode{0, 1},
	)
	desc := schema.New([]arrow.Field{{Name: "v", Type: ut, Nullable: true}})
	bld, err := batch.New(desc, batch.Options{})
	require.NoError(t, err)

	require.NoError(t, bld.AppendRow(cell.Row{cell.Union(0, cell.Int64(42))}))
	require.NoError(t, bld.AppendRow(cell.Row{cell.Union(1, cell.String("x"))}))
	require.NoError(t, bld.AppendRow(cell.Row{cell.Null()}))

	b, err := bld.TryFinish()
	require.NoError(t, err)
	defer b.Release()

	it := Rows(b)

	require.True(t, it.Next())
	uv, err := it.Row().Cell(0).Union()
	require.NoError(t, err)
	assert.Equal(t, arrow.UnionTypeCode(0), uv.Tag())
	n, err := uv.Payload().Int()
	require.NoError(t, err)
	assert.Equal(t, int64(42), n)

	require.True(t, it.Next())
	uv, err = it.Row().Cell(0).Union()
	require.NoError(t, err)
	assert.Equal(t, arrow.UnionTypeCode(1), uv.Tag())
	s, err := uv.Payload().Str()
	require.NoError(t, err)
	assert.Equal(t, "x", s)

	require.True(t, it.Next())
	ref := it.Row().Cell(0)
	assert.True(t, ref.IsNull())
	_, err = ref.Union()
	require.Error(t, err)
}

func TestToCellRoundTrip(t *testing.T) {
	b := buildProfileBatch(t)
	defer b.Release()

	it := Rows(b)
	require.True(t, it.Next())
	row := it.Row()

	user, err := row.Cell(1).ToCell()
	require.NoError(t, err)
	require.Equal(t, cell.KindStruct, user.Kind())
	kids := user.Children()
	require.Len(t, kids, 2)
	assert.Equal(t, "ann", kids[0].StringVal())
	assert.Equal(t, int64(34), kids[1].IntVal())

	tags, err := row.Cell(2).ToCell()
	require.NoError(t, err)
	require.Equal(t, cell.KindList, tags.Kind())
	require.Len(t, tags.Children(), 2)

	attrs, err := row.Cell(3).ToCell()
	require.NoError(t, err)
	entries := attrs.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "tier", entries[0].Key.StringVal())

	// Dictionary slots materialize their decoded value.
	country, err := row.Cell(4).ToCell()
	require.NoError(t, err)
	assert.Equal(t, cell.KindString, country.Kind())
	assert.Equal(t, "de", country.StringVal())

	require.True(t, it.Next())
	null, err := it.Row().Cell(1).ToCell()
	require.NoError(t, err)
	assert.True(t, null.IsNull())
}

func TestProjection(t *testing.T) {
	desc := profileSchema()
	p, err := Resolve(desc, "id", "user.age")
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "user.age"}, p.Names())
	assert.Equal(t, "age", p.Fields()[1].Name)

	b := buildProfileBatch(t)
	defer b.Release()

	it, err := ProjectedRows(b, p)
	require.NoError(t, err)

	require.True(t, it.Next())
	row := it.Row()
	require.Equal(t, 2, row.Len())
	age, err := row.Cell(1).Int()
	require.NoError(t, err)
	assert.Equal(t, int64(34), age)

	// Row 2 has a null user; the projected child inherits the null.
	require.True(t, it.Next())
	assert.True(t, it.Row().Cell(1).IsNull())
}

func TestProjectionByIndex(t *testing.T) {
	desc := profileSchema()
	p, err := Resolve(desc, "1.0")
	require.NoError(t, err)
	assert.Equal(t, "name", p.Fields()[0].Name)
}

func TestProjectionErrors(t *testing.T) {
	desc := profileSchema()

	_, err := Resolve(desc, "missing")
	var verr *ViewError
	require.ErrorAs(t, err, &verr)

	_, err = Resolve(desc, "id.child")
	require.ErrorAs(t, err, &verr)

	_, err = Resolve(desc, "user.missing")
	require.ErrorAs(t, err, &verr)

	// Binding against a batch built from another schema is refused.
	p, err := Resolve(schema.New([]arrow.Field{
		{Name: "other", Type: arrow.PrimitiveTypes.Int64, Nullable: true},
	}), "other")
	require.NoError(t, err)

	b := buildProfileBatch(t)
	defer b.Release()
	_, err = ProjectedRows(b, p)
	require.ErrorAs(t, err, &verr)
}

func TestLeafColumnIndices(t *testing.T) {
	desc := schema.New([]arrow.Field{
		{Name: "a", Type: arrow.PrimitiveTypes.Int64, Nullable: false},
		{Name: "user", Type: arrow.StructOf(
			arrow.Field{Name: "name", Type: arrow.BinaryTypes.String, Nullable: true},
			arrow.Field{Name: "addr", Type: arrow.StructOf(
				arrow.Field{Name: "city", Type: arrow.BinaryTypes.String, Nullable: true},
				arrow.Field{Name: "zip", Type: arrow.BinaryTypes.String, Nullable: true},
			), Nullable: true},
		), Nullable: true},
		{Name: "tags", Type: arrow.ListOf(arrow.PrimitiveTypes.Int32), Nullable: true},
		{Name: "attrs", Type: arrow.MapOf(arrow.BinaryTypes.String, arrow.PrimitiveTypes.Int64), Nullable: true},
	})
	// Depth-first leaves: a=0, user.name=1, user.addr.city=2,
	// user.addr.zip=3, tags[]=4, attrs.keys=5, attrs.values=6.

	p, err := Resolve(desc, "a")
	require.NoError(t, err)
	assert.Equal(t, []int{0}, p.LeafColumnIndices())

	p, err = Resolve(desc, "user.addr.zip")
	require.NoError(t, err)
	assert.Equal(t, []int{3}, p.LeafColumnIndices())

	p, err = Resolve(desc, "user.addr", "a")
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2, 3}, p.LeafColumnIndices())

	p, err = Resolve(desc, "attrs", "user.name", "attrs")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 5, 6}, p.LeafColumnIndices())
}
