package layout

import (
	"github.com/wzqhbustb/jagged/index"
	"github.com/wzqhbustb/jagged/storage/errors"
	"github.com/wzqhbustb/jagged/types"
)

// listGetitemNext applies head inside each list [starts[i], stops[i]) of
// content. It serves ListArray and ListOffsetArray.
func listGetitemNext(x Content, starts, stops []int64, content Content, head sliceItem, tail []sliceItem, advanced []int64) (Content, error) {
	nexthead, nexttail := headTail(tail)
	length := len(starts)
	switch h := head.(type) {
	case sliceAt:
		nextcarry := make([]int64, length)
		for i := 0; i < length; i++ {
			count := int(stops[i] - starts[i])
			at, ok := regularizeAt(h.at, count)
			if !ok {
				return nil, errors.New(errors.ErrIndex).
					Op("getitem").
					Path(className(x)).
					Context("index", h.at).
					Context("row", i).
					Message("index %d is out of bounds for list %d of length %d", h.at, i, count).
					Build()
			}
			nextcarry[i] = starts[i] + int64(at)
		}
		next, err := content.carry(nextcarry)
		if err != nil {
			return nil, err
		}
		return next.getitemNext(nexthead, nexttail, advanced)

	case sliceRange:
		if h.step == 0 {
			return nil, errInvalidStep("getitem")
		}
		nextoffsets := make([]int64, length+1)
		var nextcarry []int64
		for i := 0; i < length; i++ {
			count := int(stops[i] - starts[i])
			start, stop := regularizeRange(h.start, h.stop, h.step, h.hasStart, h.hasStop, count)
			for _, j := range rangeCarry(start, stop, h.step) {
				nextcarry = append(nextcarry, starts[i]+j)
			}
			nextoffsets[i+1] = int64(len(nextcarry))
		}
		if nextcarry == nil {
			nextcarry = []int64{}
		}
		next, err := content.carry(nextcarry)
		if err != nil {
			return nil, err
		}
		nextadvanced := advanced
		if len(advanced) > 0 {
			nextadvanced = make([]int64, len(nextcarry))
			for i := 0; i < length; i++ {
				for k := nextoffsets[i]; k < nextoffsets[i+1]; k++ {
					nextadvanced[k] = advanced[i]
				}
			}
		}
		out, err := next.getitemNext(nexthead, nexttail, nextadvanced)
		if err != nil {
			return nil, err
		}
		return NewListOffsetArray(index.FromInt64(nextoffsets), out, x.Parameters())

	case sliceArray:
		lenarray := len(h.index)
		regularAt := func(i int, j int) (int64, error) {
			count := stops[i] - starts[i]
			v := h.index[j]
			if v < 0 {
				v += count
			}
			if v < 0 || v >= count {
				return 0, errors.AdvancedIndexOutOfRange("getitem", j, h.index[j], count)
			}
			return starts[i] + v, nil
		}
		if len(advanced) == 0 {
			nextcarry := make([]int64, length*lenarray)
			nextadvanced := make([]int64, length*lenarray)
			for i := 0; i < length; i++ {
				for j := 0; j < lenarray; j++ {
					pos, err := regularAt(i, j)
					if err != nil {
						return nil, err
					}
					nextcarry[i*lenarray+j] = pos
					nextadvanced[i*lenarray+j] = int64(j)
				}
			}
			next, err := content.carry(nextcarry)
			if err != nil {
				return nil, err
			}
			out, err := next.getitemNext(nexthead, nexttail, nextadvanced)
			if err != nil {
				return nil, err
			}
			if advanced == nil {
				return NewRegularArray(out, lenarray, length, x.Parameters())
			}
			return out, nil
		}
		nextcarry := make([]int64, length)
		for i := 0; i < length; i++ {
			pos, err := regularAt(i, int(advanced[i]))
			if err != nil {
				return nil, err
			}
			nextcarry[i] = pos
		}
		next, err := content.carry(nextcarry)
		if err != nil {
			return nil, err
		}
		return next.getitemNext(nexthead, nexttail, advanced)

	case sliceJagged:
		if advanced != nil {
			return nil, errJaggedWithAdvanced()
		}
		headlength := len(h.offsets) - 1
		multistarts := make([]int64, length*headlength)
		multistops := make([]int64, length*headlength)
		nextcarry := make([]int64, length*headlength)
		for i := 0; i < length; i++ {
			if count := stops[i] - starts[i]; count != int64(headlength) {
				return nil, errors.New(errors.ErrIndex).
					Op("getitem").
					Path(className(x)).
					Context("row", i).
					Message("cannot fit a jagged slice of length %d into list %d of length %d", headlength, i, count).
					Build()
			}
			for j := 0; j < headlength; j++ {
				multistarts[i*headlength+j] = h.offsets[j]
				multistops[i*headlength+j] = h.offsets[j+1]
				nextcarry[i*headlength+j] = starts[i] + int64(j)
			}
		}
		carried, err := content.carry(nextcarry)
		if err != nil {
			return nil, err
		}
		down, err := carried.getitemNextJagged(multistarts, multistops, h.content, tail)
		if err != nil {
			return nil, err
		}
		return NewRegularArray(down, headlength, length, x.Parameters())
	}
	return getitemNextSpecial(x, head, tail, advanced)
}

// listGetitemNextJagged applies a jagged selector whose list i,
// [slicestarts[i], slicestops[i]) of slicecontent, selects within list i.
func listGetitemNextJagged(params types.Parameters, starts, stops []int64, content Content, slicestarts, slicestops []int64, slicecontent sliceItem, tail []sliceItem) (*ListOffsetArray, error) {
	length := len(starts)
	if len(slicestarts) != length {
		return nil, errors.New(errors.ErrIndex).
			Op("getitem").
			Message("cannot fit a jagged slice of length %d into an array of length %d", len(slicestarts), length).
			Build()
	}
	outoffsets := make([]int64, length+1)

	switch sc := slicecontent.(type) {
	case sliceArray:
		nextcarry := []int64{}
		for i := 0; i < length; i++ {
			slicestart, slicestop := slicestarts[i], slicestops[i]
			if slicestop < slicestart || slicestop > int64(len(sc.index)) {
				return nil, errors.New(errors.ErrIndex).
					Op("getitem").
					Message("jagged slice offsets [%d, %d) extend beyond its content of length %d", slicestart, slicestop, len(sc.index)).
					Build()
			}
			count := stops[i] - starts[i]
			for j := slicestart; j < slicestop; j++ {
				v := sc.index[j]
				if v < -count || v >= count {
					return nil, errors.New(errors.ErrIndex).
						Op("getitem").
						Context("row", i).
						Context("index", v).
						Message("index %d is out of bounds for list %d of length %d", v, i, count).
						Build()
				}
				if v < 0 {
					v += count
				}
				nextcarry = append(nextcarry, starts[i]+v)
			}
			outoffsets[i+1] = int64(len(nextcarry))
		}
		next, err := content.carry(nextcarry)
		if err != nil {
			return nil, err
		}
		nexthead, nexttail := headTail(tail)
		out, err := next.getitemNext(nexthead, nexttail, nil)
		if err != nil {
			return nil, err
		}
		return NewListOffsetArray(index.FromInt64(outoffsets), out, params)

	case sliceJagged:
		nextcarry := []int64{}
		var substarts, substops []int64
		for i := 0; i < length; i++ {
			slicecount := slicestops[i] - slicestarts[i]
			count := stops[i] - starts[i]
			if slicecount != count {
				return nil, errors.New(errors.ErrIndex).
					Op("getitem").
					Context("row", i).
					Message("jagged slice list %d has length %d but the array's list has length %d", i, slicecount, count).
					Build()
			}
			for k := int64(0); k < count; k++ {
				nextcarry = append(nextcarry, starts[i]+k)
				r := slicestarts[i] + k
				substarts = append(substarts, sc.offsets[r])
				substops = append(substops, sc.offsets[r+1])
			}
			outoffsets[i+1] = outoffsets[i] + count
		}
		next, err := content.carry(nextcarry)
		if err != nil {
			return nil, err
		}
		if substarts == nil {
			substarts, substops = []int64{}, []int64{}
		}
		out, err := next.getitemNextJagged(substarts, substops, sc.content, tail)
		if err != nil {
			return nil, err
		}
		return NewListOffsetArray(index.FromInt64(outoffsets), out, params)

	case sliceMissing:
		var valid []int64
		newstarts := make([]int64, length)
		newstops := make([]int64, length)
		outindex := []int64{}
		for i := 0; i < length; i++ {
			slicestart, slicestop := slicestarts[i], slicestops[i]
			if slicestop < slicestart || slicestop > int64(len(sc.index)) {
				return nil, errors.New(errors.ErrIndex).
					Op("getitem").
					Message("jagged slice offsets [%d, %d) extend beyond its content of length %d", slicestart, slicestop, len(sc.index)).
					Build()
			}
			newstarts[i] = int64(len(valid))
			for j := slicestart; j < slicestop; j++ {
				if sc.index[j] < 0 {
					outindex = append(outindex, -1)
					continue
				}
				outindex = append(outindex, int64(len(valid)))
				valid = append(valid, sc.index[j])
			}
			newstops[i] = int64(len(valid))
			outoffsets[i+1] = int64(len(outindex))
		}
		if valid == nil {
			valid = []int64{}
		}
		inner, err := listGetitemNextJagged(emptyParams, starts, stops, content, newstarts, newstops, carrySlice(sc.content, valid), tail)
		if err != nil {
			return nil, err
		}
		opt, err := NewIndexedOptionArraySimplified(index.FromInt64(outindex), inner.content, emptyParams)
		if err != nil {
			return nil, err
		}
		return NewListOffsetArray(index.FromInt64(outoffsets), opt, params)
	}
	return nil, errors.New(errors.ErrNotSupported).
		Op("getitem").
		Message("unsupported jagged slice content %T", slicecontent).
		Build()
}

// toListOffsetArray64 converts any list node to a ListOffsetArray with int64
// offsets; with startAtZero the offsets begin at 0 and the content is trimmed.
func toListOffsetArray64(c Content, startAtZero bool) (*ListOffsetArray, error) {
	switch x := c.(type) {
	case *ListOffsetArray:
		offsets := x.offsets.Int64s()
		if !startAtZero || offsets[0] == 0 {
			if x.offsets.Type() == index.Int64 {
				return x, nil
			}
			return NewListOffsetArray(x.offsets.To64(), x.content, x.params)
		}
		shifted := make([]int64, len(offsets))
		for i, o := range offsets {
			shifted[i] = o - offsets[0]
		}
		content := x.content.rangeUnsafe(int(offsets[0]), int(offsets[len(offsets)-1]))
		return NewListOffsetArray(index.FromInt64(shifted), content, x.params)
	case *ListArray:
		starts, stops := x.startsStops()
		contiguous := true
		for i := 0; i+1 < len(starts); i++ {
			if stops[i] != starts[i+1] {
				contiguous = false
				break
			}
		}
		if contiguous && len(starts) > 0 && (!startAtZero || starts[0] == 0) && stops[len(stops)-1] <= int64(x.content.Len()) {
			offsets := make([]int64, len(starts)+1)
			copy(offsets, starts)
			offsets[len(starts)] = stops[len(stops)-1]
			return NewListOffsetArray(index.FromInt64(offsets), x.content, x.params)
		}
		content, err := x.content.carry(listCarry(starts, stops))
		if err != nil {
			return nil, err
		}
		return NewListOffsetArray(index.FromInt64(compactOffsets(starts, stops)), content, x.params)
	case *RegularArray:
		return x.ToListOffsetArray64(), nil
	}
	return nil, errors.TypeMismatch("to_ListOffsetArray64", "a list type", className(c))
}

// ToListOffsetArray64 converts a list node to a ListOffsetArray whose offsets
// start at zero.
func ToListOffsetArray64(c Content) (*ListOffsetArray, error) {
	return toListOffsetArray64(c, true)
}
