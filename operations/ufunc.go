package operations

import (
	"math"

	"github.com/wzqhbustb/jagged/dtype"
	"github.com/wzqhbustb/jagged/layout"
	"github.com/wzqhbustb/jagged/storage/errors"
	"github.com/wzqhbustb/jagged/storage/memory"
)

// Elementwise functions take Contents or Go scalars, broadcast them against
// each other and apply the function to the aligned primitive leaves. The
// result type follows dtype.Promote over the array operands; a float scalar
// promotes integer arrays to float64 and other scalars adopt the array type.

func Add(x, y any) (layout.Content, error)         { return binary(addKernel, x, y) }
func Subtract(x, y any) (layout.Content, error)    { return binary(subtractKernel, x, y) }
func Multiply(x, y any) (layout.Content, error)    { return binary(multiplyKernel, x, y) }
func Divide(x, y any) (layout.Content, error)      { return binary(divideKernel, x, y) }
func FloorDivide(x, y any) (layout.Content, error) { return binary(floorDivideKernel, x, y) }

// Modulo takes the sign of the divisor, like floored division.
func Modulo(x, y any) (layout.Content, error) { return binary(moduloKernel, x, y) }
func Power(x, y any) (layout.Content, error)  { return binary(powerKernel, x, y) }

func Equal(x, y any) (layout.Content, error) { return binary(compareKernel("equal", cmpEq), x, y) }
func NotEqual(x, y any) (layout.Content, error) {
	return binary(compareKernel("not_equal", cmpNe), x, y)
}
func Less(x, y any) (layout.Content, error) { return binary(compareKernel("less", cmpLt), x, y) }
func LessEqual(x, y any) (layout.Content, error) {
	return binary(compareKernel("less_equal", cmpLe), x, y)
}
func Greater(x, y any) (layout.Content, error) { return binary(compareKernel("greater", cmpGt), x, y) }
func GreaterEqual(x, y any) (layout.Content, error) {
	return binary(compareKernel("greater_equal", cmpGe), x, y)
}

func LogicalAnd(x, y any) (layout.Content, error) { return binary(logicalAndKernel, x, y) }
func LogicalOr(x, y any) (layout.Content, error)  { return binary(logicalOrKernel, x, y) }

func Negate(x any) (layout.Content, error)     { return unary(negateKernel, x) }
func Absolute(x any) (layout.Content, error)   { return unary(absoluteKernel, x) }
func LogicalNot(x any) (layout.Content, error) { return unary(logicalNotKernel, x) }

// Round rounds floats half to even; integers are returned unchanged.
func Round(x any) (layout.Content, error) { return unary(roundKernel, x) }

type binaryKernel struct {
	name   string
	result func(dtype.DType) dtype.DType
	floats func(a, b float64) any
	ints   func(a, b int64) any
	uints  func(a, b uint64) any
}

type unaryKernel struct {
	name   string
	result func(dtype.DType) dtype.DType
	floats func(a float64) any
	ints   func(a int64) any
	uints  func(a uint64) any
}

// numeric keeps the promoted type, computing booleans as int64.
func numeric(t dtype.DType) dtype.DType {
	if t == dtype.Bool {
		return dtype.Int64
	}
	return t
}

func floating(t dtype.DType) dtype.DType {
	if t == dtype.Float32 {
		return dtype.Float32
	}
	return dtype.Float64
}

func boolean(dtype.DType) dtype.DType { return dtype.Bool }

var addKernel = binaryKernel{
	name:   "add",
	result: numeric,
	floats: func(a, b float64) any { return a + b },
	ints:   func(a, b int64) any { return a + b },
	uints:  func(a, b uint64) any { return a + b },
}

var subtractKernel = binaryKernel{
	name:   "subtract",
	result: numeric,
	floats: func(a, b float64) any { return a - b },
	ints:   func(a, b int64) any { return a - b },
	uints:  func(a, b uint64) any { return a - b },
}

var multiplyKernel = binaryKernel{
	name:   "multiply",
	result: numeric,
	floats: func(a, b float64) any { return a * b },
	ints:   func(a, b int64) any { return a * b },
	uints:  func(a, b uint64) any { return a * b },
}

var divideKernel = binaryKernel{
	name:   "divide",
	result: floating,
	floats: func(a, b float64) any { return a / b },
}

// Integer division by zero yields 0.
var floorDivideKernel = binaryKernel{
	name:   "floor_divide",
	result: numeric,
	floats: func(a, b float64) any { return math.Floor(a / b) },
	ints: func(a, b int64) any {
		if b == 0 {
			return int64(0)
		}
		q := a / b
		if (a%b != 0) && ((a < 0) != (b < 0)) {
			q--
		}
		return q
	},
	uints: func(a, b uint64) any {
		if b == 0 {
			return uint64(0)
		}
		return a / b
	},
}

var moduloKernel = binaryKernel{
	name:   "modulo",
	result: numeric,
	floats: func(a, b float64) any {
		if b == 0 {
			return math.NaN()
		}
		m := math.Mod(a, b)
		if m != 0 && (m < 0) != (b < 0) {
			m += b
		}
		return m
	},
	ints: func(a, b int64) any {
		if b == 0 {
			return int64(0)
		}
		m := a % b
		if m != 0 && (m < 0) != (b < 0) {
			m += b
		}
		return m
	},
	uints: func(a, b uint64) any {
		if b == 0 {
			return uint64(0)
		}
		return a % b
	},
}

var powerKernel = binaryKernel{
	name:   "power",
	result: numeric,
	floats: func(a, b float64) any { return math.Pow(a, b) },
	ints: func(a, b int64) any {
		if b < 0 {
			switch a {
			case 1:
				return int64(1)
			case -1:
				if b%2 == 0 {
					return int64(1)
				}
				return int64(-1)
			}
			return int64(0)
		}
		return ipow(a, uint64(b))
	},
	uints: func(a, b uint64) any { return ipow(a, b) },
}

func ipow[T int64 | uint64](base T, exp uint64) T {
	result := T(1)
	for exp > 0 {
		if exp&1 == 1 {
			result *= base
		}
		base *= base
		exp >>= 1
	}
	return result
}

type comparison int

const (
	cmpEq comparison = iota
	cmpNe
	cmpLt
	cmpLe
	cmpGt
	cmpGe
)

func compare[T int64 | uint64 | float64](c comparison, a, b T) bool {
	switch c {
	case cmpEq:
		return a == b
	case cmpNe:
		return a != b
	case cmpLt:
		return a < b
	case cmpLe:
		return a <= b
	case cmpGt:
		return a > b
	default:
		return a >= b
	}
}

func compareKernel(name string, c comparison) binaryKernel {
	return binaryKernel{
		name:   name,
		result: boolean,
		floats: func(a, b float64) any { return compare(c, a, b) },
		ints:   func(a, b int64) any { return compare(c, a, b) },
		uints:  func(a, b uint64) any { return compare(c, a, b) },
	}
}

var logicalAndKernel = binaryKernel{
	name:   "logical_and",
	result: boolean,
	floats: func(a, b float64) any { return a != 0 && b != 0 },
	ints:   func(a, b int64) any { return a != 0 && b != 0 },
}

var logicalOrKernel = binaryKernel{
	name:   "logical_or",
	result: boolean,
	floats: func(a, b float64) any { return a != 0 || b != 0 },
	ints:   func(a, b int64) any { return a != 0 || b != 0 },
}

var negateKernel = unaryKernel{
	name:   "negative",
	result: numeric,
	floats: func(a float64) any { return -a },
	ints:   func(a int64) any { return -a },
	uints:  func(a uint64) any { return -a },
}

var absoluteKernel = unaryKernel{
	name:   "absolute",
	result: numeric,
	floats: func(a float64) any { return math.Abs(a) },
	ints: func(a int64) any {
		if a < 0 {
			return -a
		}
		return a
	},
	uints: func(a uint64) any { return a },
}

var logicalNotKernel = unaryKernel{
	name:   "logical_not",
	result: boolean,
	floats: func(a float64) any { return a == 0 },
	ints:   func(a int64) any { return a == 0 },
}

var roundKernel = unaryKernel{
	name:   "round",
	result: func(t dtype.DType) dtype.DType { return t },
	floats: func(a float64) any { return math.RoundToEven(a) },
	ints:   func(a int64) any { return a },
	uints:  func(a uint64) any { return a },
}

// operand is one input at the leaf level: an array or a broadcast scalar.
type operand struct {
	arr    *layout.NumpyArray
	scalar any
	dt     dtype.DType
}

// leafOperands returns the inputs as operands when every array among them is
// a one-dimensional NumpyArray, or false when the broadcast must descend.
func leafOperands(op string, inputs []any) ([]operand, int, bool, error) {
	ops := make([]operand, len(inputs))
	n := -1
	for i, in := range inputs {
		switch x := in.(type) {
		case *layout.NumpyArray:
			if len(x.Shape()) != 1 {
				return nil, 0, false, nil
			}
			ops[i] = operand{arr: x, dt: x.DType()}
			n = x.Len()
		case layout.Content:
			if layout.IsStringLike(x) {
				return nil, 0, false, errors.Typef(op, "cannot apply %s to strings", op)
			}
			return nil, 0, false, nil
		default:
			dt, ok := dtype.Of(in)
			if !ok {
				return nil, 0, false, errors.Typef(op, "cannot apply %s to %T", op, in)
			}
			ops[i] = operand{scalar: in, dt: dt}
		}
	}
	return ops, n, n >= 0, nil
}

func promoteOperands(ops []operand) dtype.DType {
	var promoted dtype.DType
	seen, floatScalar := false, false
	for _, o := range ops {
		if o.arr == nil {
			floatScalar = floatScalar || o.dt.IsFloat()
			continue
		}
		if !seen {
			promoted, seen = o.dt, true
		} else {
			promoted = dtype.Promote(promoted, o.dt)
		}
	}
	if floatScalar && !promoted.IsFloat() {
		return dtype.Float64
	}
	return promoted
}

type domain int

const (
	domainInt domain = iota
	domainUint
	domainFloat
)

func domainFor(t dtype.DType, hasInts, hasUints bool) domain {
	switch {
	case t.IsFloat() || !hasInts:
		return domainFloat
	case t.IsUnsigned() && hasUints:
		return domainUint
	case t.IsUnsigned():
		return domainFloat
	}
	return domainInt
}

func column[T memory.Number](o operand, n int, dt dtype.DType) ([]T, error) {
	if o.arr != nil {
		return valuesAs[T](o.arr, dt)
	}
	v, err := dtype.Cast(o.scalar, dt)
	if err != nil {
		return nil, err
	}
	out := make([]T, n)
	for i := range out {
		out[i] = v.(T)
	}
	return out, nil
}

func evalBinary[T memory.Number](a, b operand, n int, dt dtype.DType, f func(a, b T) any) ([]any, error) {
	av, err := column[T](a, n, dt)
	if err != nil {
		return nil, err
	}
	bv, err := column[T](b, n, dt)
	if err != nil {
		return nil, err
	}
	out := make([]any, n)
	for i := range out {
		out[i] = f(av[i], bv[i])
	}
	return out, nil
}

func evalUnary[T memory.Number](a operand, n int, dt dtype.DType, f func(a T) any) ([]any, error) {
	av, err := column[T](a, n, dt)
	if err != nil {
		return nil, err
	}
	out := make([]any, n)
	for i := range out {
		out[i] = f(av[i])
	}
	return out, nil
}

func (k binaryKernel) eval(ops []operand, n int) (*layout.NumpyArray, error) {
	promoted := promoteOperands(ops)
	var values []any
	var err error
	switch domainFor(promoted, k.ints != nil, k.uints != nil) {
	case domainFloat:
		values, err = evalBinary(ops[0], ops[1], n, dtype.Float64, k.floats)
	case domainUint:
		values, err = evalBinary(ops[0], ops[1], n, dtype.Uint64, k.uints)
	default:
		values, err = evalBinary(ops[0], ops[1], n, dtype.Int64, k.ints)
	}
	if err != nil {
		return nil, err
	}
	return layout.NewNumpyFromValues(k.result(promoted), values)
}

func (k unaryKernel) eval(ops []operand, n int) (*layout.NumpyArray, error) {
	promoted := ops[0].dt
	var values []any
	var err error
	switch domainFor(promoted, k.ints != nil, k.uints != nil) {
	case domainFloat:
		values, err = evalUnary(ops[0], n, dtype.Float64, k.floats)
	case domainUint:
		values, err = evalUnary(ops[0], n, dtype.Uint64, k.uints)
	default:
		values, err = evalUnary(ops[0], n, dtype.Int64, k.ints)
	}
	if err != nil {
		return nil, err
	}
	return layout.NewNumpyFromValues(k.result(promoted), values)
}

func elementwise(name string, inputs []any, eval func([]operand, int) (*layout.NumpyArray, error), opts ...layout.BroadcastOption) (layout.Content, error) {
	outs, err := layout.BroadcastAndApply(inputs, func(inputs []any, _ *layout.BroadcastContext) ([]layout.Content, error) {
		ops, n, ok, err := leafOperands(name, inputs)
		if err != nil || !ok {
			return nil, err
		}
		out, err := eval(ops, n)
		if err != nil {
			return nil, errors.New(errors.ErrType).Op(name).Wrap(err).Build()
		}
		return []layout.Content{out}, nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	return outs[0], nil
}

// Binary applies the elementwise function called name ("add", "less", ...)
// with explicit broadcasting options.
func Binary(name string, x, y any, opts ...layout.BroadcastOption) (layout.Content, error) {
	k, ok := binaryKernels[name]
	if !ok {
		return nil, errors.New(errors.ErrNotSupported).Op("binary").Context("name", name).
			Message("unknown elementwise function %q", name).Build()
	}
	return elementwise(k.name, []any{x, y}, k.eval, opts...)
}

var binaryKernels = map[string]binaryKernel{}

func init() {
	for _, k := range []binaryKernel{
		addKernel, subtractKernel, multiplyKernel, divideKernel, floorDivideKernel,
		moduloKernel, powerKernel, logicalAndKernel, logicalOrKernel,
		compareKernel("equal", cmpEq), compareKernel("not_equal", cmpNe),
		compareKernel("less", cmpLt), compareKernel("less_equal", cmpLe),
		compareKernel("greater", cmpGt), compareKernel("greater_equal", cmpGe),
	} {
		binaryKernels[k.name] = k
	}
}

func binary(k binaryKernel, x, y any) (layout.Content, error) {
	return elementwise(k.name, []any{x, y}, k.eval)
}

func unary(k unaryKernel, x any) (layout.Content, error) {
	if _, ok := x.(layout.Content); !ok {
		return nil, errors.InvalidArg(k.name, "argument must be an array")
	}
	return elementwise(k.name, []any{x}, k.eval)
}
