// Package dynbatch builds Apache Arrow record batches from schemas known
// only at runtime.
//
// A caller describes a schema as arrow.Fields (or a JSON document), feeds
// rows of dynamic cells into a builder set, and receives an immutable
// Batch whose columns are ordinary Arrow arrays. The builder set owns all
// per-column bookkeeping: validity bitmaps, list offsets, union type ids
// and dictionary interning. Row appends are atomic; a rejected row leaves
// every column untouched. Declared nullability is enforced once, at
// finish.
//
// # Quick Start
//
//	import (
//	    "github.com/apache/arrow-go/v18/arrow"
//	    "github.com/ajitpratap0/dynbatch/pkg/batch"
//	    "github.com/ajitpratap0/dynbatch/pkg/cell"
//	    "github.com/ajitpratap0/dynbatch/pkg/schema"
//	)
//
//	desc := schema.New([]arrow.Field{
//	    {Name: "id", Type: arrow.PrimitiveTypes.Int64},
//	    {Name: "name", Type: arrow.BinaryTypes.String, Nullable: true},
//	})
//
//	b, err := batch.New(desc, batch.Options{Capacity: 1024})
//	if err != nil {
//	    return err
//	}
//	if err := b.AppendRow(cell.Row{cell.Int64(1), cell.String("a")}); err != nil {
//	    return err
//	}
//	out, err := b.TryFinish()
//	if err != nil {
//	    return err
//	}
//	defer out.Release()
//	rec := out.Record()
//
// # Key Packages
//
//	pkg/schema - schema descriptor and JSON schema codec
//	pkg/cell   - dynamic cell/row model and compatibility checking
//	pkg/batch  - column builders, append engine, nullability validation
//	pkg/view   - zero-copy row views and column projections
//	pkg/errors - structured error handling
//	pkg/logger - structured logging
package dynbatch
