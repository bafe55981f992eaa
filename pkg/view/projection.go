package view

import (
	"sort"
	"strconv"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"

	"github.com/ajitpratap0/dynbatch/pkg/batch"
	"github.com/ajitpratap0/dynbatch/pkg/schema"
)

// Projection is a resolved set of column paths. Resolution happens
// once against the descriptor; binding against a batch is a cheap
// array walk per path. Paths are dotted names descending through
// struct fields, with numeric segments addressing children by
// position: "user.address.city", "user.0".
type Projection struct {
	desc   *schema.Descriptor
	names  []string
	chains [][]int
	fields []arrow.Field
}

// Resolve builds a projection over desc from dotted paths.
func Resolve(desc *schema.Descriptor, paths ...string) (*Projection, error) {
	p := &Projection{
		desc:   desc,
		names:  make([]string, len(paths)),
		chains: make([][]int, len(paths)),
		fields: make([]arrow.Field, len(paths)),
	}
	for i, path := range paths {
		chain, field, err := resolvePath(desc, path)
		if err != nil {
			return nil, err
		}
		p.names[i] = path
		p.chains[i] = chain
		p.fields[i] = field
	}
	return p, nil
}

func resolvePath(desc *schema.Descriptor, path string) ([]int, arrow.Field, error) {
	segs := strings.Split(path, ".")
	if path == "" || len(segs) == 0 {
		return nil, arrow.Field{}, &ViewError{Path: path, Reason: "empty path"}
	}

	var field arrow.Field
	top, err := topLevelIndex(desc, segs[0])
	if err != nil {
		return nil, arrow.Field{}, err
	}
	field = desc.Field(top)
	chain := []int{top}

	for _, seg := range segs[1:] {
		st, ok := field.Type.(*arrow.StructType)
		if !ok {
			return nil, arrow.Field{}, &ViewError{Path: path,
				Reason: "segment " + seg + " descends into non-struct type " + field.Type.String()}
		}
		idx, err := structChildIndex(st, seg, path)
		if err != nil {
			return nil, arrow.Field{}, err
		}
		field = st.Field(idx)
		chain = append(chain, idx)
	}
	return chain, field, nil
}

func topLevelIndex(desc *schema.Descriptor, seg string) (int, error) {
	if n, err := strconv.Atoi(seg); err == nil {
		if n < 0 || n >= desc.Len() {
			return 0, &ViewError{Path: seg, Reason: "column index out of range"}
		}
		return n, nil
	}
	if _, idx, ok := desc.FieldByName(seg); ok {
		return idx, nil
	}
	return 0, &ViewError{Path: seg, Reason: "no such column"}
}

func structChildIndex(st *arrow.StructType, seg, path string) (int, error) {
	if n, err := strconv.Atoi(seg); err == nil {
		if n < 0 || n >= st.NumFields() {
			return 0, &ViewError{Path: path, Reason: "child index " + seg + " out of range"}
		}
		return n, nil
	}
	if idx, ok := st.FieldIdx(seg); ok {
		return idx, nil
	}
	return 0, &ViewError{Path: path, Reason: "no child named " + seg}
}

// Names returns the paths in projection order.
func (p *Projection) Names() []string { return p.names }

// Fields returns the resolved field for each path.
func (p *Projection) Fields() []arrow.Field { return p.fields }

// bind resolves every chain against a concrete batch's arrays.
func (p *Projection) bind(b *batch.Batch) ([]boundCol, error) {
	if !p.desc.Equal(b.Schema()) {
		return nil, &ViewError{Reason: "projection resolved against a different schema"}
	}

	cols := make([]boundCol, len(p.chains))
	for i, chain := range p.chains {
		arr := b.Column(chain[0])
		var ancestors []*array.Struct
		for _, idx := range chain[1:] {
			sa, ok := arr.(*array.Struct)
			if !ok {
				return nil, &ViewError{Path: p.names[i], Reason: "batch column is not a struct"}
			}
			ancestors = append(ancestors, sa)
			arr = sa.Field(idx)
		}
		cols[i] = boundCol{field: p.fields[i], arr: arr, ancestors: ancestors}
	}
	return cols, nil
}

// LeafColumnIndices returns the flat leaf positions covered by the
// projection, in depth-first schema order with duplicates removed.
// The numbering matches columnar file formats that flatten nested
// schemas into leaf columns, so the result can be fed directly to
// readers that select leaves by index.
func (p *Projection) LeafColumnIndices() []int {
	seen := make(map[int]struct{})
	var out []int
	for _, chain := range p.chains {
		base, span := leafRange(p.desc, chain)
		for leaf := base; leaf < base+span; leaf++ {
			if _, dup := seen[leaf]; dup {
				continue
			}
			seen[leaf] = struct{}{}
			out = append(out, leaf)
		}
	}
	sort.Ints(out)
	return out
}

func leafRange(desc *schema.Descriptor, chain []int) (base, span int) {
	for i := 0; i < chain[0]; i++ {
		base += countLeaves(desc.Field(i).Type)
	}
	dt := desc.Field(chain[0]).Type
	for _, idx := range chain[1:] {
		st := dt.(*arrow.StructType)
		for i := 0; i < idx; i++ {
			base += countLeaves(st.Field(i).Type)
		}
		dt = st.Field(idx).Type
	}
	return base, countLeaves(dt)
}

// countLeaves counts the flat leaf columns a type expands to.
func countLeaves(dt arrow.DataType) int {
	switch t := dt.(type) {
	case *arrow.StructType:
		n := 0
		for i := 0; i < t.NumFields(); i++ {
			n += countLeaves(t.Field(i).Type)
		}
		return n
	case *arrow.ListType:
		return countLeaves(t.Elem())
	case *arrow.LargeListType:
		return countLeaves(t.Elem())
	case *arrow.FixedSizeListType:
		return countLeaves(t.Elem())
	case *arrow.MapType:
		return countLeaves(t.KeyType()) + countLeaves(t.ItemType())
	case arrow.UnionType:
		n := 0
		for _, f := range t.Fields() {
			n += countLeaves(f.Type)
		}
		return n
	default:
		return 1
	}
}
