package operations

import (
	"sort"

	"github.com/wzqhbustb/jagged/index"
	"github.com/wzqhbustb/jagged/layout"
	"github.com/wzqhbustb/jagged/storage/errors"
	"github.com/wzqhbustb/jagged/types"
)

type zipOptions struct {
	depthLimit int
	params     types.Parameters
}

// ZipOption configures Zip and ZipTuple.
type ZipOption func(*zipOptions)

// DepthLimit stops zipping at the given list depth; 1 zips the outermost
// dimension only. Without it the inputs are broadcast down to their leaves.
func DepthLimit(depth int) ZipOption {
	return func(o *zipOptions) { o.depthLimit = depth }
}

// WithRecordName names the records built by Zip.
func WithRecordName(name string) ZipOption {
	return func(o *zipOptions) { o.params = o.params.With(types.RecordKey, name) }
}

// Zip combines arrays into one array of records, with a field per map key
// in sorted order. The arrays are broadcast against each other, so records
// are built at the deepest list level they share.
func Zip(arrays map[string]layout.Content, opts ...ZipOption) (layout.Content, error) {
	names := make([]string, 0, len(arrays))
	for name := range arrays {
		names = append(names, name)
	}
	sort.Strings(names)
	contents := make([]layout.Content, len(names))
	for i, name := range names {
		contents[i] = arrays[name]
	}
	return zip(names, contents, opts)
}

// ZipTuple is Zip for positional fields.
func ZipTuple(arrays []layout.Content, opts ...ZipOption) (layout.Content, error) {
	return zip(nil, arrays, opts)
}

func zip(fields []string, contents []layout.Content, opts []ZipOption) (layout.Content, error) {
	const op = "zip"
	o := zipOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if len(contents) == 0 {
		return nil, errors.InvalidArg(op, "at least one array is required")
	}
	inputs := make([]any, len(contents))
	for i, c := range contents {
		if c == nil {
			return nil, errors.InvalidArg(op, "arrays must not be nil")
		}
		inputs[i] = c
	}
	outs, err := layout.BroadcastAndApply(inputs, func(inputs []any, ctx *layout.BroadcastContext) ([]layout.Content, error) {
		atLeaves := true
		for _, in := range inputs {
			if in.(layout.Content).PurelistDepth() != 1 {
				atLeaves = false
			}
		}
		if !atLeaves && (o.depthLimit <= 0 || ctx.Depth != o.depthLimit) {
			return nil, nil
		}
		cs := make([]layout.Content, len(inputs))
		for i, in := range inputs {
			cs[i] = in.(layout.Content)
		}
		record, err := layout.NewRecordArray(cs, fields, cs[0].Len(), o.params)
		if err != nil {
			return nil, err
		}
		return []layout.Content{record}, nil
	}, layout.WithRightBroadcast(false))
	if err != nil {
		return nil, err
	}
	return outs[0], nil
}

// Where picks x where condition is true and y elsewhere. The three inputs
// are broadcast; x and y may be scalars. When the picked values have
// different types the result is their union.
func Where(condition layout.Content, x, y any) (layout.Content, error) {
	const op = "where"
	if condition == nil {
		return nil, errors.InvalidArg(op, "condition must be an array")
	}
	if layout.IsStringLike(condition) {
		return nil, errors.Typef(op, "condition must be boolean or numeric, not strings")
	}
	outs, err := layout.BroadcastAndApply([]any{condition, x, y}, func(inputs []any, _ *layout.BroadcastContext) ([]layout.Content, error) {
		cond, ok := inputs[0].(*layout.NumpyArray)
		if !ok || len(cond.Shape()) != 1 {
			return nil, nil
		}
		n := cond.Len()
		branches := make([]layout.Content, 2)
		for i, in := range inputs[1:] {
			if c, isContent := in.(layout.Content); isContent {
				branches[i] = c
				continue
			}
			filled, err := repeated(in, n)
			if err != nil {
				return nil, errors.New(errors.ErrType).Op(op).Wrap(err).Build()
			}
			branches[i] = filled
		}
		tags := make([]int8, n)
		for i, v := range cond.Bools() {
			if !v {
				tags[i] = 1
			}
		}
		out, err := layout.SimplifyUnion(index.FromInt8(tags), index.Arange(n), branches, emptyParams)
		if err != nil {
			return nil, err
		}
		return []layout.Content{out}, nil
	})
	if err != nil {
		return nil, err
	}
	return outs[0], nil
}

// repeated builds an array of n copies of a Go value.
func repeated(value any, n int) (layout.Content, error) {
	values := make([]any, n)
	for i := range values {
		values[i] = value
	}
	return layout.FromIterable(values)
}

// MergeUnionOfRecords turns a union of records at axis into records whose
// fields are the fields of all branches. A field takes each element's value
// from that element's branch; elements of branches without the field are
// missing there.
func MergeUnionOfRecords(c layout.Content, axis int) (layout.Content, error) {
	const op = "merge_union_of_records"
	posaxis, err := layout.NormalizeAxis(c, axis)
	if err != nil {
		return nil, err
	}
	return layout.Apply(c, layout.VisitorFunc(func(x layout.Content, ctx *layout.ApplyContext) (layout.Content, error) {
		if ctx.Depth != posaxis+1 {
			return leafBeforeAxis(op, x, ctx.Depth, posaxis)
		}
		switch u := x.(type) {
		case *layout.UnionArray:
			return mergeRecordBranches(op, u)
		case *layout.IndexedArray:
			return nil, nil
		}
		if x.IsOption() {
			return nil, nil
		}
		return x, nil
	}))
}

func mergeRecordBranches(op string, u *layout.UnionArray) (layout.Content, error) {
	branches := u.Contents()
	records := make([]*layout.RecordArray, len(branches))
	masks := make([][]int64, len(branches))
	var names []string
	seen := make(map[string]bool)
	tuple := true
	for b, branch := range branches {
		content := branch
		if branch.IsOption() {
			opt, err := layout.ToIndexedOptionArray64(branch)
			if err != nil {
				return nil, err
			}
			masks[b] = opt.Index().Int64s()
			content = opt.Content()
		}
		if ix, ok := content.(*layout.IndexedArray); ok {
			projected, err := ix.Project()
			if err != nil {
				return nil, err
			}
			content = projected
		}
		rec, ok := content.(*layout.RecordArray)
		if !ok {
			return nil, errors.Typef(op, "union branch %d has type %s, not a record", b, branch.Type())
		}
		records[b] = rec
		tuple = tuple && rec.IsTuple()
		for _, f := range rec.Fields() {
			if !seen[f] {
				seen[f] = true
				names = append(names, f)
			}
		}
	}

	n := u.Len()
	var tags []int8
	var pos []int64
	outindex := make([]int64, n)
	anyMissing := false
	for i := 0; i < n; i++ {
		b, p := u.Tags().Get(i), u.Index().Get(i)
		if masks[b] != nil {
			p = masks[b][p]
		}
		if p < 0 {
			outindex[i] = -1
			anyMissing = true
			continue
		}
		outindex[i] = int64(len(tags))
		tags = append(tags, int8(b))
		pos = append(pos, p)
	}

	params := records[0].Parameters()
	for _, rec := range records[1:] {
		params = params.Intersect(rec.Parameters())
	}
	contents := make([]layout.Content, len(names))
	for f, name := range names {
		fieldBranches := make([]layout.Content, len(records))
		for b, rec := range records {
			field, err := rec.Content(name)
			if err != nil {
				field, err = allMissing(rec.Len(), layout.NewEmptyArray(emptyParams), emptyParams)
				if err != nil {
					return nil, err
				}
			}
			fieldBranches[b] = field
		}
		merged, err := layout.SimplifyUnion(index.FromInt8(tags), index.FromInt64(pos), fieldBranches, emptyParams)
		if err != nil {
			return nil, err
		}
		contents[f] = merged
	}
	var fields []string
	if !tuple {
		fields = names
	}
	out, err := layout.NewRecordArray(contents, fields, len(tags), params)
	if err != nil {
		return nil, err
	}
	if !anyMissing {
		return out, nil
	}
	return layout.NewIndexedOptionArraySimplified(index.FromInt64(outindex), out, emptyParams)
}

// allMissing is an option array of n missing values over content.
func allMissing(n int, content layout.Content, params types.Parameters) (layout.Content, error) {
	idx := make([]int64, n)
	for i := range idx {
		idx[i] = -1
	}
	return layout.NewIndexedOptionArray(index.FromInt64(idx), content, params)
}

// IsCategorical reports whether c, or the content below its list and option
// layers, was built by DictionaryEncode.
func IsCategorical(c layout.Content) bool {
	for c != nil {
		if c.Parameters().String(types.ArrayKey) == CategoricalKey {
			return true
		}
		if layout.IsStringLike(c) {
			return false
		}
		wrapper, ok := c.(interface{ Content() layout.Content })
		if !ok {
			return false
		}
		c = wrapper.Content()
	}
	return false
}
