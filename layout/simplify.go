package layout

import (
	"github.com/wzqhbustb/jagged/index"
	"github.com/wzqhbustb/jagged/storage/errors"
	"github.com/wzqhbustb/jagged/types"
)

// SimplifyUnion builds the simplest node equivalent to the union described by
// tags, idx and contents. Nested unions are flattened, option and indexed
// branches are resolved per element (missing elements become an outer
// option), and branches whose types can be merged are merged into one. A single
// surviving branch is returned without a union around it.
func SimplifyUnion(tags, idx *index.Index, contents []Content, params types.Parameters) (Content, error) {
	const op = "SimplifyUnion"
	if len(contents) == 0 {
		return nil, errors.FormMismatch(op, "UnionArray", "a union needs at least one content")
	}
	length := tags.Len()
	if idx.Len() < length {
		return nil, errors.FormMismatchf(op, "UnionArray", "index length %d is less than tags length %d", idx.Len(), length)
	}
	if length == 0 {
		return simplifyEmptyUnion(tags, idx, contents, params)
	}

	r := newBranchResolver()
	leaf := make([]int, length)
	pos := make([]int64, length)
	missing := make([]bool, length)
	anyMissing := false
	for i := 0; i < length; i++ {
		t := tags.Get(i)
		if t < 0 || t >= int64(len(contents)) {
			return nil, errors.FormMismatchf(op, "UnionArray", "tags[%d] = %d is not a valid tag", i, t)
		}
		b, p, ok, err := r.resolve(contents[t], idx.Get(i))
		if err != nil {
			return nil, err
		}
		if !ok {
			missing[i] = true
			anyMissing = true
			continue
		}
		leaf[i], pos[i] = b, p
	}
	if len(r.leaves) == 0 {
		// Every element is missing; keep the branch types for the result.
		for _, c := range contents {
			r.collect(c)
		}
	}

	groups, offsets, err := r.merge()
	if err != nil {
		return nil, err
	}
	var out Content
	if len(groups) == 1 {
		carry := make([]int64, 0, length)
		outindex := make([]int64, length)
		for i := 0; i < length; i++ {
			if missing[i] {
				outindex[i] = -1
				continue
			}
			outindex[i] = int64(len(carry))
			carry = append(carry, offsets[leaf[i]]+pos[i])
		}
		next, err := groups[0].content.carry(carry)
		if err != nil {
			return nil, err
		}
		if !anyMissing {
			return next.withParameters(groups[0].content.Parameters().Merge(params)), nil
		}
		return NewIndexedOptionArraySimplified(index.FromInt64(outindex), next, params)
	}

	contentsOut := make([]Content, len(groups))
	for g, grp := range groups {
		contentsOut[g] = grp.content
	}
	outtags := make([]int8, 0, length)
	outpos := make([]int64, 0, length)
	outindex := make([]int64, length)
	for i := 0; i < length; i++ {
		if missing[i] {
			outindex[i] = -1
			continue
		}
		outindex[i] = int64(len(outtags))
		outtags = append(outtags, int8(r.group[leaf[i]]))
		outpos = append(outpos, offsets[leaf[i]]+pos[i])
	}
	union, err := NewUnionArray(index.FromInt8(outtags), index.FromInt64(outpos), contentsOut, params)
	if err != nil {
		return nil, err
	}
	out = union
	if anyMissing {
		return NewIndexedOptionArray(index.FromInt64(outindex), out, emptyParams)
	}
	return out, nil
}

// simplifyEmptyUnion handles a zero-length union, where no element tells us
// which branches are reachable.
func simplifyEmptyUnion(tags, idx *index.Index, contents []Content, params types.Parameters) (Content, error) {
	r := newBranchResolver()
	for _, c := range contents {
		r.collect(c)
	}
	groups, _, err := r.merge()
	if err != nil {
		return nil, err
	}
	if len(groups) == 1 {
		return groups[0].content.rangeUnsafe(0, 0).withParameters(params), nil
	}
	contentsOut := make([]Content, len(groups))
	for g, grp := range groups {
		contentsOut[g] = grp.content
	}
	return NewUnionArray(index.FromInt8(nil), index.FromInt64(nil), contentsOut, params)
}

type branchGroup struct {
	members []int
	content Content
}

// branchResolver walks each element through unions, indexed and option
// nodes down to a leaf branch.
type branchResolver struct {
	leaves  []Content
	ids     map[Content]int
	options map[Content]*IndexedOptionArray
	group   []int
}

func newBranchResolver() *branchResolver {
	return &branchResolver{ids: map[Content]int{}, options: map[Content]*IndexedOptionArray{}}
}

func (r *branchResolver) leafID(c Content) int {
	if id, ok := r.ids[c]; ok {
		return id
	}
	id := len(r.leaves)
	r.ids[c] = id
	r.leaves = append(r.leaves, c)
	return id
}

func (r *branchResolver) option(c Content) (*IndexedOptionArray, error) {
	if opt, ok := r.options[c]; ok {
		return opt, nil
	}
	opt, err := toIndexedOptionArray64(c)
	if err != nil {
		return nil, err
	}
	r.options[c] = opt
	return opt, nil
}

// resolve follows element p of c; ok is false when the element is missing.
func (r *branchResolver) resolve(c Content, p int64) (int, int64, bool, error) {
	for {
		switch x := c.(type) {
		case *UnionArray:
			c, p = x.contents[x.tags.Get(int(p))], x.index.Get(int(p))
		case *IndexedArray:
			c, p = x.content, x.index.Get(int(p))
		case *IndexedOptionArray, *ByteMaskedArray, *BitMaskedArray, *UnmaskedArray:
			opt, err := r.option(c)
			if err != nil {
				return 0, 0, false, err
			}
			next := opt.index.Get(int(p))
			if next < 0 {
				return 0, 0, false, nil
			}
			c, p = opt.content, next
		default:
			return r.leafID(c), p, true, nil
		}
	}
}

// collect registers every leaf reachable from c without following elements.
func (r *branchResolver) collect(c Content) {
	switch x := c.(type) {
	case *UnionArray:
		for _, sub := range x.contents {
			r.collect(sub)
		}
	case *IndexedArray:
		r.collect(x.content)
	case *IndexedOptionArray:
		r.collect(x.content)
	case *ByteMaskedArray:
		r.collect(x.content)
	case *BitMaskedArray:
		r.collect(x.content)
	case *UnmaskedArray:
		r.collect(x.content)
	default:
		r.leafID(c)
	}
}

// merge groups leaves that can be merged and concatenates each group.
// offsets[leaf] is where that leaf's elements start inside its group's merged
// content.
func (r *branchResolver) merge() ([]branchGroup, []int64, error) {
	var groups []branchGroup
	r.group = make([]int, len(r.leaves))
	for id, c := range r.leaves {
		g := -1
		for k := range groups {
			fits := true
			for _, member := range groups[k].members {
				if !mergeable(r.leaves[member], c) {
					fits = false
					break
				}
			}
			if fits {
				g = k
				break
			}
		}
		if g < 0 {
			g = len(groups)
			groups = append(groups, branchGroup{})
		}
		groups[g].members = append(groups[g].members, id)
		r.group[id] = g
	}
	if len(groups) > 127 {
		return nil, nil, errors.NotSupported("SimplifyUnion", "a union cannot have more than 127 distinct branches")
	}
	offsets := make([]int64, len(r.leaves))
	for g := range groups {
		members := make([]Content, len(groups[g].members))
		var total int64
		for k, id := range groups[g].members {
			members[k] = r.leaves[id]
			offsets[id] = total
			total += int64(r.leaves[id].Len())
		}
		merged, err := mergeContents(members)
		if err != nil {
			return nil, nil, err
		}
		groups[g].content = merged
	}
	return groups, offsets, nil
}
