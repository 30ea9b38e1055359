package operations

import (
	"strconv"

	"github.com/wzqhbustb/jagged/index"
	"github.com/wzqhbustb/jagged/layout"
	"github.com/wzqhbustb/jagged/storage/errors"
	"github.com/wzqhbustb/jagged/types"
)

// EnforceType converts c to the element type t. Primitives are cast, option
// layers are added, or removed when nothing is missing. Variable lists become
// regular when their lengths match t's size. Records keep the fields t names
// and gain all-missing values for absent option fields. A union is converted
// branch by branch, and a non-union becomes the first branch of t that
// accepts it. The result carries t's parameters.
func EnforceType(c layout.Content, t types.Type) (layout.Content, error) {
	if c == nil || t == nil {
		return nil, errors.InvalidArg("enforce_type", "array and type are required")
	}
	return enforce(c, t)
}

func enforce(c layout.Content, t types.Type) (layout.Content, error) {
	const op = "enforce_type"
	if types.Equal(c.Type(), t) {
		return c, nil
	}
	if c.IsUnknown() {
		return emptyOf(t)
	}
	if x, ok := c.(*layout.IndexedArray); ok {
		projected, err := x.Project()
		if err != nil {
			return nil, err
		}
		return enforce(projected, t)
	}

	if tt, ok := t.(types.OptionType); ok {
		if c.IsOption() {
			opt, err := layout.ToIndexedOptionArray64(c)
			if err != nil {
				return nil, err
			}
			content, err := enforce(opt.Content(), tt.Content)
			if err != nil {
				return nil, err
			}
			return layout.NewIndexedOptionArray(opt.Index(), content, tt.Params)
		}
		content, err := enforce(c, tt.Content)
		if err != nil {
			return nil, err
		}
		return layout.NewUnmaskedArraySimplified(content, tt.Params)
	}
	if c.IsOption() {
		valid, err := presence(c)
		if err != nil {
			return nil, err
		}
		missing := 0
		for _, ok := range valid {
			if !ok {
				missing++
			}
		}
		if missing > 0 {
			return nil, errors.New(errors.ErrType).
				Op(op).
				Context("type", t.String()).
				Message("cannot remove the option type: %d of %d values are missing", missing, len(valid)).
				Build()
		}
		projected, err := project(c)
		if err != nil {
			return nil, err
		}
		return enforce(projected, t)
	}

	if u, ok := c.(*layout.UnionArray); ok {
		return enforceUnion(u, t)
	}
	if x, ok := c.(*layout.NumpyArray); ok && len(x.Shape()) > 1 {
		regular, err := layout.ToRegularArray(x)
		if err != nil {
			return nil, err
		}
		return enforce(regular, t)
	}

	mismatch := errors.TypeMismatch(op, t.String(), c.Type().String())
	switch tt := t.(type) {
	case types.UnknownType:
		if c.Len() == 0 {
			return layout.NewEmptyArray(tt.Params), nil
		}
		return nil, mismatch

	case types.NumpyType:
		x, ok := c.(*layout.NumpyArray)
		if !ok {
			return nil, mismatch
		}
		cast, err := x.AsType(tt.Primitive)
		if err != nil {
			return nil, err
		}
		return layout.WithParameters(cast, tt.Params), nil

	case types.RegularType:
		if !c.IsList() {
			return nil, mismatch
		}
		converted, err := layout.ToRegularArray(c)
		if err != nil {
			return nil, err
		}
		reg := converted.(*layout.RegularArray)
		if reg.Size() != tt.Size && reg.Len() > 0 {
			return nil, mismatch
		}
		inner, err := reg.Content().GetItemRange(0, reg.Len()*reg.Size(), 1)
		if err != nil {
			return nil, err
		}
		content, err := enforce(inner, tt.Content)
		if err != nil {
			return nil, err
		}
		return layout.NewRegularArray(content, tt.Size, reg.Len(), tt.Params)

	case types.ListType:
		if !c.IsList() {
			return nil, mismatch
		}
		list, err := layout.ToListOffsetArray64(c)
		if err != nil {
			return nil, err
		}
		offsets := list.Offsets().ToInt64()
		start, stop := offsets[0], offsets[len(offsets)-1]
		inner, err := list.Content().GetItemRange(int(start), int(stop), 1)
		if err != nil {
			return nil, err
		}
		for i := range offsets {
			offsets[i] -= start
		}
		content, err := enforce(inner, tt.Content)
		if err != nil {
			return nil, err
		}
		return layout.NewListOffsetArray(index.FromInt64(offsets), content, tt.Params)

	case types.RecordType:
		rec, ok := c.(*layout.RecordArray)
		if !ok || rec.IsTuple() != tt.IsTuple() {
			return nil, mismatch
		}
		contents := make([]layout.Content, len(tt.Contents))
		for i, ft := range tt.Contents {
			name := strconv.Itoa(i)
			if !tt.IsTuple() {
				name = tt.Fields[i]
			}
			field, err := rec.Content(name)
			if err != nil {
				opt, isOption := ft.(types.OptionType)
				if !isOption {
					return nil, errors.Typef(op, "field %q is absent and %s is not an option type", name, ft)
				}
				empty, err := emptyOf(opt.Content)
				if err != nil {
					return nil, err
				}
				if contents[i], err = allMissing(rec.Len(), empty, opt.Params); err != nil {
					return nil, err
				}
				continue
			}
			if contents[i], err = enforce(field, ft); err != nil {
				return nil, err
			}
		}
		return layout.NewRecordArray(contents, tt.Fields, rec.Len(), tt.Params)

	case types.UnionType:
		for b, bt := range tt.Contents {
			branch, err := enforce(c, bt)
			if err != nil {
				continue
			}
			contents := make([]layout.Content, len(tt.Contents))
			for other, ot := range tt.Contents {
				if other == b {
					contents[other] = branch
					continue
				}
				if contents[other], err = emptyOf(ot); err != nil {
					return nil, err
				}
			}
			tags := make([]int8, c.Len())
			for i := range tags {
				tags[i] = int8(b)
			}
			return layout.NewUnionArray(index.FromInt8(tags), index.Arange(c.Len()), contents, tt.Params)
		}
		return nil, mismatch
	}
	return nil, errors.NotSupported(op, "cannot enforce type "+t.String())
}

// enforceUnion converts a union branch by branch to a union type, or every
// branch to t and merges them.
func enforceUnion(u *layout.UnionArray, t types.Type) (layout.Content, error) {
	const op = "enforce_type"
	branches := u.Contents()
	if tt, ok := t.(types.UnionType); ok {
		if len(tt.Contents) != len(branches) {
			return nil, errors.Typef(op, "cannot convert a union of %d types to %s", len(branches), t)
		}
		contents := make([]layout.Content, len(branches))
		for b, branch := range branches {
			converted, err := enforce(branch, tt.Contents[b])
			if err != nil {
				return nil, err
			}
			contents[b] = converted
		}
		return layout.NewUnionArray(u.Tags(), u.Index(), contents, tt.Params)
	}
	contents := make([]layout.Content, len(branches))
	for b, branch := range branches {
		converted, err := enforce(branch, t)
		if err != nil {
			return nil, err
		}
		contents[b] = converted
	}
	return layout.SimplifyUnion(u.Tags(), u.Index(), contents, t.Parameters())
}

// emptyOf builds an array of length zero with element type t.
func emptyOf(t types.Type) (layout.Content, error) {
	switch tt := t.(type) {
	case types.UnknownType:
		return layout.NewEmptyArray(tt.Params), nil
	case types.NumpyType:
		x, err := layout.NewNumpyFromValues(tt.Primitive, nil)
		if err != nil {
			return nil, err
		}
		return layout.WithParameters(x, tt.Params), nil
	case types.RegularType:
		content, err := emptyOf(tt.Content)
		if err != nil {
			return nil, err
		}
		return layout.NewRegularArray(content, tt.Size, 0, tt.Params)
	case types.ListType:
		content, err := emptyOf(tt.Content)
		if err != nil {
			return nil, err
		}
		return layout.NewListOffsetArray(index.FromInt64([]int64{0}), content, tt.Params)
	case types.OptionType:
		content, err := emptyOf(tt.Content)
		if err != nil {
			return nil, err
		}
		return layout.NewIndexedOptionArray(index.FromInt64([]int64{}), content, tt.Params)
	case types.RecordType:
		contents := make([]layout.Content, len(tt.Contents))
		for i, ft := range tt.Contents {
			content, err := emptyOf(ft)
			if err != nil {
				return nil, err
			}
			contents[i] = content
		}
		return layout.NewRecordArray(contents, tt.Fields, 0, tt.Params)
	case types.UnionType:
		contents := make([]layout.Content, len(tt.Contents))
		for i, bt := range tt.Contents {
			content, err := emptyOf(bt)
			if err != nil {
				return nil, err
			}
			contents[i] = content
		}
		return layout.NewUnionArray(index.FromInt8([]int8{}), index.FromInt64([]int64{}), contents, tt.Params)
	}
	return nil, errors.NotSupported("enforce_type", "cannot build an empty array of type "+t.String())
}
