package layout

import (
	"github.com/wzqhbustb/jagged/forms"
	"github.com/wzqhbustb/jagged/storage/errors"
	"github.com/wzqhbustb/jagged/types"
)

// UnmaskedArray has an option type but no missing values.
type UnmaskedArray struct {
	meta
	content Content
}

func NewUnmaskedArray(content Content, params types.Parameters) (*UnmaskedArray, error) {
	if content.IsOption() {
		return nil, errors.FormMismatchf("NewUnmaskedArray", "UnmaskedArray",
			"an option type cannot directly contain another option type (%s)", className(content))
	}
	return &UnmaskedArray{meta: meta{params: params}, content: content}, nil
}

// NewUnmaskedArraySimplified returns an option-typed content unchanged and
// wraps anything else.
func NewUnmaskedArraySimplified(content Content, params types.Parameters) (Content, error) {
	if content.IsOption() {
		if params.IsEmpty() {
			return content, nil
		}
		return content.withParameters(content.Parameters().Merge(params)), nil
	}
	return NewUnmaskedArray(content, params)
}

func (x *UnmaskedArray) Len() int         { return x.content.Len() }
func (x *UnmaskedArray) Content() Content { return x.content }
func (x *UnmaskedArray) IsOption() bool   { return true }
func (x *UnmaskedArray) Type() types.Type { return x.Form().Type() }
func (x *UnmaskedArray) String() string   { return describe("UnmaskedArray", x) }

func (x *UnmaskedArray) Form() forms.Form {
	return forms.UnmaskedForm{Meta: formMeta(x.params), Content: x.content.Form()}
}

func (x *UnmaskedArray) GetItemAt(i int) (any, error) {
	return x.content.GetItemAt(i)
}

func (x *UnmaskedArray) GetItemRange(start, stop, step int) (Content, error) {
	return getItemRange(x, start, stop, step)
}

func (x *UnmaskedArray) GetItemField(name string) (Content, error) {
	content, err := x.content.GetItemField(name)
	if err != nil {
		return nil, err
	}
	return NewUnmaskedArraySimplified(content, emptyParams)
}

func (x *UnmaskedArray) GetItemFields(names []string) (Content, error) {
	content, err := x.content.GetItemFields(names)
	if err != nil {
		return nil, err
	}
	return NewUnmaskedArraySimplified(content, emptyParams)
}

func (x *UnmaskedArray) BranchDepth() (bool, int) { return x.content.BranchDepth() }
func (x *UnmaskedArray) MinMaxDepth() (int, int)  { return x.content.MinMaxDepth() }
func (x *UnmaskedArray) PurelistDepth() int       { return x.content.PurelistDepth() }

func (x *UnmaskedArray) withParameters(params types.Parameters) Content {
	return &UnmaskedArray{meta: meta{params: params}, content: x.content}
}

func (x *UnmaskedArray) carry(carry []int64) (Content, error) {
	content, err := x.content.carry(carry)
	if err != nil {
		return nil, err
	}
	return &UnmaskedArray{meta: x.meta, content: content}, nil
}

func (x *UnmaskedArray) rangeUnsafe(start, stop int) Content {
	return &UnmaskedArray{meta: x.meta, content: x.content.rangeUnsafe(start, stop)}
}

func (x *UnmaskedArray) getitemNext(head sliceItem, tail []sliceItem, advanced []int64) (Content, error) {
	switch head.(type) {
	case sliceAt, sliceRange, sliceArray, sliceJagged:
		out, err := x.content.getitemNext(head, tail, advanced)
		if err != nil {
			return nil, err
		}
		return NewUnmaskedArraySimplified(out, x.params)
	}
	return getitemNextSpecial(x, head, tail, advanced)
}

func (x *UnmaskedArray) getitemNextJagged(slicestarts, slicestops []int64, slicecontent sliceItem, tail []sliceItem) (Content, error) {
	out, err := x.content.getitemNextJagged(slicestarts, slicestops, slicecontent, tail)
	if err != nil {
		return nil, err
	}
	return NewUnmaskedArraySimplified(out, x.params)
}
