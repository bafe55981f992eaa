package view

import (
	"bytes"
	"context"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/dynbatch/pkg/batch"
	"github.com/ajitpratap0/dynbatch/pkg/cell"
	"github.com/ajitpratap0/dynbatch/pkg/schema"
)

// The leaf numbering must line up with how parquet flattens nested
// schemas, so a projection can drive column-pruned reads directly.
func TestLeafColumnIndicesDriveParquetProjection(t *testing.T) {
	desc := schema.New([]arrow.Field{
		{Name: "id", Type: arrow.PrimitiveTypes.Int64, Nullable: false},
		{Name: "user", Type: arrow.StructOf(
			arrow.Field{Name: "name", Type: arrow.BinaryTypes.String, Nullable: true},
			arrow.Field{Name: "age", Type: arrow.PrimitiveTypes.Int32, Nullable: true},
		), Nullable: true},
		{Name: "score", Type: arrow.PrimitiveTypes.Float64, Nullable: true},
	})

	bld, err := batch.New(desc, batch.Options{})
	require.NoError(t, err)
	require.NoError(t, bld.AppendRow(cell.Row{
		cell.Int64(1), cell.Struct(cell.String("ann"), cell.Int32(34)), cell.Float64(0.5),
	}))
	require.NoError(t, bld.AppendRow(cell.Row{
		cell.Int64(2), cell.Struct(cell.String("bob"), cell.Null()), cell.Null(),
	}))

	b, err := bld.TryFinish()
	require.NoError(t, err)
	defer b.Release()

	rec := b.Record()
	defer rec.Release()
	tbl := array.NewTableFromRecords(b.Schema().Arrow(), []arrow.Record{rec})
	defer tbl.Release()

	var buf bytes.Buffer
	require.NoError(t, pqarrow.WriteTable(tbl, &buf, tbl.NumRows(),
		parquet.NewWriterProperties(), pqarrow.DefaultWriterProps()))

	p, err := Resolve(desc, "id", "user.age")
	require.NoError(t, err)
	// Parquet leaves: id=0, user.name=1, user.age=2, score=3.
	leaves := p.LeafColumnIndices()
	require.Equal(t, []int{0, 2}, leaves)

	pf, err := file.NewParquetReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer pf.Close()

	fr, err := pqarrow.NewFileReader(pf, pqarrow.ArrowReadProperties{}, memory.NewGoAllocator())
	require.NoError(t, err)

	rowGroups := make([]int, pf.NumRowGroups())
	for i := range rowGroups {
		rowGroups[i] = i
	}
	out, err := fr.ReadRowGroups(context.Background(), leaves, rowGroups)
	require.NoError(t, err)
	defer out.Release()

	require.Equal(t, int64(2), out.NumRows())
	require.Equal(t, int64(2), out.NumCols())

	ids := out.Column(0).Data().Chunks()[0].(*array.Int64)
	assert.Equal(t, []int64{1, 2}, ids.Int64Values())

	// The struct came back pruned to the projected child.
	user := out.Column(1).Data().Chunks()[0].(*array.Struct)
	require.Equal(t, 1, user.NumField())
	ages := user.Field(0).(*array.Int32)
	assert.Equal(t, int32(34), ages.Value(0))
	assert.True(t, ages.IsNull(1))
}
