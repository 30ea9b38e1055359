package layout

import (
	"github.com/wzqhbustb/jagged/forms"
	"github.com/wzqhbustb/jagged/index"
	"github.com/wzqhbustb/jagged/storage/errors"
	"github.com/wzqhbustb/jagged/types"
)

// RegularArray groups its content into lists of a fixed size.
type RegularArray struct {
	meta
	content Content
	size    int
	length  int
}

// NewRegularArray groups content into lists of size elements. The length is
// len(content)/size, or zerosLength when size is 0.
func NewRegularArray(content Content, size, zerosLength int, params types.Parameters) (*RegularArray, error) {
	if size < 0 {
		return nil, errors.FormMismatchf("NewRegularArray", "RegularArray", "size must be non-negative, got %d", size)
	}
	if zerosLength < 0 {
		return nil, errors.FormMismatchf("NewRegularArray", "RegularArray", "zeros length must be non-negative, got %d", zerosLength)
	}
	length := zerosLength
	if size != 0 {
		length = content.Len() / size
	}
	return &RegularArray{meta: meta{params: params}, content: content, size: size, length: length}, nil
}

func (x *RegularArray) Len() int         { return x.length }
func (x *RegularArray) Content() Content { return x.content }
func (x *RegularArray) Size() int        { return x.size }
func (x *RegularArray) IsList() bool     { return true }
func (x *RegularArray) IsRegular() bool  { return true }
func (x *RegularArray) Type() types.Type { return x.Form().Type() }
func (x *RegularArray) String() string   { return describe("RegularArray", x) }

func (x *RegularArray) Form() forms.Form {
	return forms.RegularForm{Meta: formMeta(x.params), Content: x.content.Form(), Size: x.size}
}

// compactOffsets returns the offsets 0, size, 2*size, ...
func (x *RegularArray) compactOffsets() []int64 {
	out := make([]int64, x.length+1)
	for i := range out {
		out[i] = int64(i * x.size)
	}
	return out
}

// ToListOffsetArray64 converts to variable-length lists over the same content.
func (x *RegularArray) ToListOffsetArray64() *ListOffsetArray {
	out, _ := NewListOffsetArray(index.FromInt64(x.compactOffsets()), x.content, x.params)
	return out
}

func (x *RegularArray) GetItemAt(i int) (any, error) {
	at, ok := regularizeAt(i, x.length)
	if !ok {
		return nil, errors.IndexOutOfRange("getitem_at", i, x.length)
	}
	return x.content.rangeUnsafe(at*x.size, (at+1)*x.size), nil
}

func (x *RegularArray) GetItemRange(start, stop, step int) (Content, error) {
	return getItemRange(x, start, stop, step)
}

func (x *RegularArray) GetItemField(name string) (Content, error) {
	content, err := x.content.GetItemField(name)
	if err != nil {
		return nil, err
	}
	return NewRegularArray(content, x.size, x.length, emptyParams)
}

func (x *RegularArray) GetItemFields(names []string) (Content, error) {
	content, err := x.content.GetItemFields(names)
	if err != nil {
		return nil, err
	}
	return NewRegularArray(content, x.size, x.length, emptyParams)
}

func (x *RegularArray) BranchDepth() (bool, int) {
	branch, depth := x.content.BranchDepth()
	return branch, depth + 1
}

func (x *RegularArray) MinMaxDepth() (int, int) {
	lo, hi := x.content.MinMaxDepth()
	return lo + 1, hi + 1
}

func (x *RegularArray) PurelistDepth() int {
	if isStringLike(x.params) {
		return 1
	}
	return x.content.PurelistDepth() + 1
}

func (x *RegularArray) withParameters(params types.Parameters) Content {
	return &RegularArray{meta: meta{params: params}, content: x.content, size: x.size, length: x.length}
}

func (x *RegularArray) carry(carry []int64) (Content, error) {
	if err := checkCarry("carry", carry, x.length); err != nil {
		return nil, err
	}
	nextcarry := make([]int64, len(carry)*x.size)
	for i, c := range carry {
		for j := 0; j < x.size; j++ {
			nextcarry[i*x.size+j] = c*int64(x.size) + int64(j)
		}
	}
	content, err := x.content.carry(nextcarry)
	if err != nil {
		return nil, err
	}
	return NewRegularArray(content, x.size, len(carry), x.params)
}

func (x *RegularArray) rangeUnsafe(start, stop int) Content {
	return &RegularArray{
		meta:    x.meta,
		content: x.content.rangeUnsafe(start*x.size, stop*x.size),
		size:    x.size,
		length:  stop - start,
	}
}

func (x *RegularArray) getitemNext(head sliceItem, tail []sliceItem, advanced []int64) (Content, error) {
	nexthead, nexttail := headTail(tail)
	size := int64(x.size)
	switch h := head.(type) {
	case sliceAt:
		at, ok := regularizeAt(h.at, x.size)
		if !ok {
			return nil, errors.IndexOutOfRange("getitem", h.at, x.size)
		}
		nextcarry := make([]int64, x.length)
		for i := range nextcarry {
			nextcarry[i] = int64(i)*size + int64(at)
		}
		next, err := x.content.carry(nextcarry)
		if err != nil {
			return nil, err
		}
		return next.getitemNext(nexthead, nexttail, advanced)

	case sliceRange:
		if h.step == 0 {
			return nil, errInvalidStep("getitem")
		}
		start, stop := regularizeRange(h.start, h.stop, h.step, h.hasStart, h.hasStop, x.size)
		nextsize := rangeLength(start, stop, h.step)
		nextcarry := make([]int64, x.length*nextsize)
		for i := 0; i < x.length; i++ {
			for j := 0; j < nextsize; j++ {
				nextcarry[i*nextsize+j] = int64(i)*size + int64(start+j*h.step)
			}
		}
		next, err := x.content.carry(nextcarry)
		if err != nil {
			return nil, err
		}
		var nextadvanced []int64
		if len(advanced) > 0 {
			nextadvanced = make([]int64, x.length*nextsize)
			for i := 0; i < x.length; i++ {
				for j := 0; j < nextsize; j++ {
					nextadvanced[i*nextsize+j] = advanced[i]
				}
			}
		} else {
			nextadvanced = advanced
		}
		out, err := next.getitemNext(nexthead, nexttail, nextadvanced)
		if err != nil {
			return nil, err
		}
		return NewRegularArray(out, nextsize, x.length, x.params)

	case sliceArray:
		regular := make([]int64, len(h.index))
		for j, v := range h.index {
			at, ok := regularizeAt(int(v), x.size)
			if !ok {
				return nil, errors.AdvancedIndexOutOfRange("getitem", j, v, size)
			}
			regular[j] = int64(at)
		}
		if len(advanced) == 0 {
			lenhead := len(regular)
			nextcarry := make([]int64, x.length*lenhead)
			nextadvanced := make([]int64, x.length*lenhead)
			for i := 0; i < x.length; i++ {
				for j := 0; j < lenhead; j++ {
					nextcarry[i*lenhead+j] = int64(i)*size + regular[j]
					nextadvanced[i*lenhead+j] = int64(j)
				}
			}
			next, err := x.content.carry(nextcarry)
			if err != nil {
				return nil, err
			}
			out, err := next.getitemNext(nexthead, nexttail, nextadvanced)
			if err != nil {
				return nil, err
			}
			if advanced == nil {
				return NewRegularArray(out, lenhead, x.length, x.params)
			}
			return out, nil
		}
		nextcarry := make([]int64, x.length)
		for i := 0; i < x.length; i++ {
			nextcarry[i] = int64(i)*size + regular[advanced[i]]
		}
		next, err := x.content.carry(nextcarry)
		if err != nil {
			return nil, err
		}
		return next.getitemNext(nexthead, nexttail, advanced)

	case sliceJagged:
		if advanced != nil {
			return nil, errJaggedWithAdvanced()
		}
		headlength := len(h.offsets) - 1
		if x.size != headlength {
			return nil, errors.New(errors.ErrIndex).
				Op("getitem").
				Path("RegularArray").
				Message("cannot fit a jagged slice of length %d into lists of size %d", headlength, x.size).
				Build()
		}
		multistarts := make([]int64, x.length*headlength)
		multistops := make([]int64, x.length*headlength)
		for i := 0; i < x.length; i++ {
			for j := 0; j < headlength; j++ {
				multistarts[i*headlength+j] = h.offsets[j]
				multistops[i*headlength+j] = h.offsets[j+1]
			}
		}
		down, err := x.content.getitemNextJagged(multistarts, multistops, h.content, tail)
		if err != nil {
			return nil, err
		}
		return NewRegularArray(down, headlength, x.length, x.params)
	}
	return getitemNextSpecial(x, head, tail, advanced)
}

func (x *RegularArray) getitemNextJagged(slicestarts, slicestops []int64, slicecontent sliceItem, tail []sliceItem) (Content, error) {
	return x.ToListOffsetArray64().getitemNextJagged(slicestarts, slicestops, slicecontent, tail)
}

func errJaggedWithAdvanced() error {
	return errors.New(errors.ErrIndex).
		Op("getitem").
		Message("cannot mix a jagged slice with array selectors").
		Build()
}
