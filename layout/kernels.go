package layout

import (
	"github.com/wzqhbustb/jagged/index"
	"github.com/wzqhbustb/jagged/storage/errors"
)

// regularizeAt maps a possibly negative index into [0, length).
func regularizeAt(at, length int) (int, bool) {
	if at < 0 {
		at += length
	}
	return at, at >= 0 && at < length
}

// regularizeRange applies Python slice.indices to one list of the given
// length. hasStart and hasStop are false for omitted bounds.
func regularizeRange(start, stop, step int, hasStart, hasStop bool, length int) (int, int) {
	if step > 0 {
		if !hasStart {
			start = 0
		} else if start < 0 {
			start += length
		}
		if !hasStop {
			stop = length
		} else if stop < 0 {
			stop += length
		}
		start = clamp(start, 0, length)
		stop = clamp(stop, 0, length)
		return start, stop
	}
	if !hasStart {
		start = length - 1
	} else if start < 0 {
		start += length
	}
	if !hasStop {
		stop = -1
	} else if stop < 0 {
		stop += length
	}
	start = clamp(start, -1, length-1)
	stop = clamp(stop, -1, length-1)
	return start, stop
}

func clamp(x, lo, hi int) int {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// rangeCarry lists the positions start, start+step, ... before stop.
func rangeCarry(start, stop, step int) []int64 {
	out := make([]int64, 0, rangeLength(start, stop, step))
	if step > 0 {
		for j := start; j < stop; j += step {
			out = append(out, int64(j))
		}
	} else {
		for j := start; j > stop; j += step {
			out = append(out, int64(j))
		}
	}
	return out
}

func rangeLength(start, stop, step int) int {
	if step > 0 && stop > start {
		return (stop - start + step - 1) / step
	}
	if step < 0 && stop < start {
		return (start - stop - step - 1) / -step
	}
	return 0
}

func arange(n int) []int64 {
	out := make([]int64, n)
	for i := range out {
		out[i] = int64(i)
	}
	return out
}

// checkCarry verifies that every carry entry addresses one of length rows.
func checkCarry(op string, carry []int64, length int) error {
	for i, c := range carry {
		if c < 0 || c >= int64(length) {
			return errors.AdvancedIndexOutOfRange(op, i, c, int64(length))
		}
	}
	return nil
}

func takeIndex(op string, ix *index.Index, carry []int64) (*index.Index, error) {
	if err := checkCarry(op, carry, ix.Len()); err != nil {
		return nil, err
	}
	src := ix.Int64s()
	out := make([]int64, len(carry))
	for i, c := range carry {
		out[i] = src[c]
	}
	return index.FromInt64(out), nil
}

// offsetsToStartsStops splits offsets into starts and stops views.
func offsetsToStartsStops(offsets []int64) ([]int64, []int64) {
	if len(offsets) == 0 {
		return nil, nil
	}
	return offsets[:len(offsets)-1], offsets[1:]
}

// compactOffsets returns the offsets of lists with the given bounds laid out
// back to back from zero.
func compactOffsets(starts, stops []int64) []int64 {
	out := make([]int64, len(starts)+1)
	for i := range starts {
		out[i+1] = out[i] + (stops[i] - starts[i])
	}
	return out
}

// listCarry returns the content positions covered by each list in order.
func listCarry(starts, stops []int64) []int64 {
	var total int64
	for i := range starts {
		total += stops[i] - starts[i]
	}
	out := make([]int64, 0, total)
	for i := range starts {
		for j := starts[i]; j < stops[i]; j++ {
			out = append(out, j)
		}
	}
	return out
}

// nextcarryOutindex projects away missing entries: nextcarry addresses the
// valid rows and outindex maps every row to its position in nextcarry or -1.
func nextcarryOutindex(valid func(i int) (int64, bool), length int) (nextcarry, outindex []int64, numnull int) {
	nextcarry = make([]int64, 0, length)
	outindex = make([]int64, length)
	for i := 0; i < length; i++ {
		if pos, ok := valid(i); ok {
			outindex[i] = int64(len(nextcarry))
			nextcarry = append(nextcarry, pos)
		} else {
			outindex[i] = -1
			numnull++
		}
	}
	return nextcarry, outindex, numnull
}

// takeInt64 gathers values at positions, or returns nil for a nil source.
func takeInt64(values []int64, positions []int64) []int64 {
	if values == nil {
		return nil
	}
	out := make([]int64, len(positions))
	for i, p := range positions {
		out[i] = values[p]
	}
	return out
}

func errInvalidStep(op string) error {
	return errors.New(errors.ErrInvalidArgument).Op(op).Message("slice step cannot be zero").Build()
}

func errTooManyDimensions(op string, c Content) error {
	return errors.New(errors.ErrIndex).
		Op(op).
		Path(className(c)).
		Message("too many dimensions in slice").
		Build()
}
