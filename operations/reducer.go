package operations

import (
	"cmp"

	"github.com/wzqhbustb/jagged/dtype"
	"github.com/wzqhbustb/jagged/layout"
	"github.com/wzqhbustb/jagged/storage/errors"
	"github.com/wzqhbustb/jagged/storage/memory"
	"github.com/wzqhbustb/jagged/types"
)

var emptyParams types.Parameters

type kind int

const (
	kindSum kind = iota
	kindProd
	kindMin
	kindMax
	kindAny
	kindAll
	kindCount
	kindCountNonzero
	kindArgMin
	kindArgMax
)

var kindNames = [...]string{
	kindSum:          "sum",
	kindProd:         "prod",
	kindMin:          "min",
	kindMax:          "max",
	kindAny:          "any",
	kindAll:          "all",
	kindCount:        "count",
	kindCountNonzero: "count_nonzero",
	kindArgMin:       "argmin",
	kindArgMax:       "argmax",
}

func (k kind) String() string { return kindNames[k] }

// combine reduces the values of a one-dimensional leaf into outlength groups.
func (r *reduction) combine(x *layout.NumpyArray, parents []int64, outlength int, shifts []int64, keepdims bool) (layout.Content, error) {
	out, err := r.kind.apply(x, parents, outlength, shifts)
	if err != nil {
		return nil, err
	}
	var result layout.Content = out
	if r.opts.maskIdentity {
		valid := make([]bool, outlength)
		for _, p := range parents {
			valid[p] = true
		}
		if result, err = layout.NewByteMaskedArrayFromValid(valid, out, emptyParams); err != nil {
			return nil, err
		}
	}
	if keepdims {
		return layout.NewRegularArray(result, 1, outlength, emptyParams)
	}
	return result, nil
}

func (k kind) apply(x *layout.NumpyArray, parents []int64, outlength int, shifts []int64) (*layout.NumpyArray, error) {
	dt := x.DType()
	switch k {
	case kindCount:
		out := make([]int64, outlength)
		for _, p := range parents {
			out[p]++
		}
		return layout.NewNumpy(out), nil

	case kindCountNonzero:
		vals := x.Bools()
		out := make([]int64, outlength)
		for i, p := range parents {
			if vals[i] {
				out[p]++
			}
		}
		return layout.NewNumpy(out), nil

	case kindAny, kindAll:
		vals := x.Bools()
		out := make([]bool, outlength)
		if k == kindAll {
			for i := range out {
				out[i] = true
			}
		}
		for i, p := range parents {
			if k == kindAll {
				out[p] = out[p] && vals[i]
			} else {
				out[p] = out[p] || vals[i]
			}
		}
		return layout.NewNumpy(out), nil

	case kindSum, kindProd:
		prod := k == kindProd
		switch {
		case dt.IsFloat():
			vals, err := valuesAs[float64](x, dtype.Float64)
			if err != nil {
				return nil, err
			}
			return layout.NewNumpy(accumulate(vals, parents, outlength, prod)).AsType(dt)
		case dt.IsUnsigned():
			vals, err := valuesAs[uint64](x, dtype.Uint64)
			if err != nil {
				return nil, err
			}
			return layout.NewNumpy(accumulate(vals, parents, outlength, prod)), nil
		default:
			vals, err := valuesAs[int64](x, dtype.Int64)
			if err != nil {
				return nil, err
			}
			return layout.NewNumpy(accumulate(vals, parents, outlength, prod)), nil
		}

	case kindMin, kindMax:
		identity := dtype.MaxValue(dt)
		if k == kindMax {
			identity = dtype.MinValue(dt)
		}
		switch {
		case dt.IsFloat():
			return extremumIn[float64](x, dtype.Float64, identity, parents, outlength, k == kindMax)
		case dt.IsUnsigned():
			return extremumIn[uint64](x, dtype.Uint64, identity, parents, outlength, k == kindMax)
		default:
			return extremumIn[int64](x, dtype.Int64, identity, parents, outlength, k == kindMax)
		}

	case kindArgMin, kindArgMax:
		largest := k == kindArgMax
		var out []int64
		switch {
		case dt.IsFloat():
			vals, err := valuesAs[float64](x, dtype.Float64)
			if err != nil {
				return nil, err
			}
			out = argExtremum(vals, parents, outlength, shifts, largest)
		case dt.IsUnsigned():
			vals, err := valuesAs[uint64](x, dtype.Uint64)
			if err != nil {
				return nil, err
			}
			out = argExtremum(vals, parents, outlength, shifts, largest)
		default:
			vals, err := valuesAs[int64](x, dtype.Int64)
			if err != nil {
				return nil, err
			}
			out = argExtremum(vals, parents, outlength, shifts, largest)
		}
		return layout.NewNumpy(out), nil
	}
	return nil, errors.NotSupported(k.String(), "unknown reducer")
}

func valuesAs[T memory.Number](x *layout.NumpyArray, dt dtype.DType) ([]T, error) {
	y, err := x.AsType(dt)
	if err != nil {
		return nil, err
	}
	return layout.NumpyValues[T](y)
}

func accumulate[T int64 | uint64 | float64](vals []T, parents []int64, outlength int, prod bool) []T {
	out := make([]T, outlength)
	if prod {
		for i := range out {
			out[i] = 1
		}
	}
	for i, p := range parents {
		if prod {
			out[p] *= vals[i]
		} else {
			out[p] += vals[i]
		}
	}
	return out
}

// extremumIn computes min or max in the domain type T and casts the result
// back to the input type.
func extremumIn[T int64 | uint64 | float64](x *layout.NumpyArray, domain dtype.DType, identity any, parents []int64, outlength int, largest bool) (*layout.NumpyArray, error) {
	vals, err := valuesAs[T](x, domain)
	if err != nil {
		return nil, err
	}
	id, err := dtype.Cast(identity, domain)
	if err != nil {
		return nil, err
	}
	out := extremum(vals, parents, outlength, id.(T), largest)
	return layout.NewNumpy(out).AsType(x.DType())
}

func extremum[T cmp.Ordered](vals []T, parents []int64, outlength int, identity T, largest bool) []T {
	out := make([]T, outlength)
	for i := range out {
		out[i] = identity
	}
	for i, p := range parents {
		if v := vals[i]; (largest && v > out[p]) || (!largest && v < out[p]) {
			out[p] = v
		}
	}
	return out
}

// argExtremum returns, for each group, the position of its extreme value:
// shifts[i] when shifts are given, otherwise the offset of i within its
// group. Empty groups are -1.
func argExtremum[T cmp.Ordered](vals []T, parents []int64, outlength int, shifts []int64, largest bool) []int64 {
	out := make([]int64, outlength)
	best := make([]T, outlength)
	for i := range out {
		out[i] = -1
	}
	start := int64(0)
	for i, p := range parents {
		if i == 0 || p != parents[i-1] {
			start = int64(i)
		}
		v := vals[i]
		if out[p] == -1 || (largest && v > best[p]) || (!largest && v < best[p]) {
			best[p] = v
			if shifts != nil {
				out[p] = shifts[i]
			} else {
				out[p] = int64(i) - start
			}
		}
	}
	return out
}
