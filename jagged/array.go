package jagged

import (
	"fmt"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/google/uuid"

	"github.com/wzqhbustb/jagged/layout"
	"github.com/wzqhbustb/jagged/operations"
	"github.com/wzqhbustb/jagged/types"
)

// Array is the user-facing handle around an immutable layout tree. It pairs
// the tree with an identity, string metadata and the configuration that
// drives logging, reductions and serialization. Operations return new
// handles that inherit the metadata and configuration.
type Array struct {
	id       uuid.UUID
	layout   layout.Content
	metadata map[string]string
	cfg      *Config
	logger   log.Logger
}

// Wrap creates a handle around root with the given metadata. The layout is
// validated before it is accepted.
func Wrap(root layout.Content, metadata map[string]string, opts ...Option) (*Array, error) {
	cfg := newConfig(opts)
	if root == nil {
		return nil, wrapError("Wrap", "", ErrNilLayout)
	}
	if err := layout.Validate(root); err != nil {
		level.Warn(cfg.Logger).Log("msg", "rejected invalid layout", "err", err)
		return nil, wrapError("Wrap", "", err)
	}
	a := newArray(uuid.New(), root, copyMetadata(metadata), cfg)
	level.Debug(a.logger).Log("msg", "wrapped layout", "length", root.Len(), "form", root.Form().Class())
	return a, nil
}

// Unwrap returns the layout tree of a handle.
func Unwrap(a *Array) layout.Content {
	if a == nil {
		return nil
	}
	return a.layout
}

// FromIterable builds a layout from nested Go values and wraps it.
func FromIterable(v any, metadata map[string]string, opts ...Option) (*Array, error) {
	root, err := layout.FromIterable(v)
	if err != nil {
		return nil, wrapError("FromIterable", "", err)
	}
	return Wrap(root, metadata, opts...)
}

func newArray(id uuid.UUID, root layout.Content, metadata map[string]string, cfg *Config) *Array {
	return &Array{
		id:       id,
		layout:   root,
		metadata: metadata,
		cfg:      cfg,
		logger:   log.With(cfg.Logger, "array", id.String()),
	}
}

// derive wraps the result of an operation on a, keeping metadata and
// configuration.
func (a *Array) derive(c layout.Content) *Array {
	return newArray(uuid.New(), c, a.metadata, a.cfg)
}

func (a *Array) fail(op string, err error) error {
	level.Warn(a.logger).Log("msg", "operation failed", "op", op, "err", err)
	return wrapError(op, a.id.String(), err)
}

// ID returns the handle's identity. It survives MarshalBinary.
func (a *Array) ID() uuid.UUID { return a.id }

// Layout returns the wrapped layout tree.
func (a *Array) Layout() layout.Content { return a.layout }

// Metadata returns a copy of the handle's metadata.
func (a *Array) Metadata() map[string]string { return copyMetadata(a.metadata) }

// WithMetadata returns a handle sharing the layout with metadata replaced.
func (a *Array) WithMetadata(metadata map[string]string) *Array {
	return newArray(a.id, a.layout, copyMetadata(metadata), a.cfg)
}

// Len returns the length of the outermost dimension.
func (a *Array) Len() int { return a.layout.Len() }

// Type returns the array type, e.g. "3 * var * ?int64".
func (a *Array) Type() types.ArrayType {
	return types.ArrayType{Content: a.layout.Form().Type(), Length: a.layout.Len()}
}

// String formats the values, e.g. [[1, 2], [], [3]].
func (a *Array) String() string { return layout.Format(a.layout) }

// ToList materializes the array as nested Go values.
func (a *Array) ToList() ([]any, error) {
	out, err := layout.ToList(a.layout)
	if err != nil {
		return nil, a.fail("ToList", err)
	}
	return out, nil
}

// Equal reports whether both handles hold equal values of the same type.
// Metadata and identity are ignored.
func (a *Array) Equal(b *Array) bool {
	if a == nil || b == nil {
		return a == b
	}
	return layout.Equal(a.layout, b.layout)
}

// Get selects with the given items. Results that are arrays are returned as
// *Array; scalars and records are returned as is.
func (a *Array) Get(items ...layout.SliceItem) (any, error) {
	out, err := layout.GetItem(a.layout, items...)
	if err != nil {
		return nil, a.fail("Get", err)
	}
	return a.result(out), nil
}

// Slice is Get for selections that keep the array nature.
func (a *Array) Slice(items ...layout.SliceItem) (*Array, error) {
	out, err := layout.GetItemContent(a.layout, items...)
	if err != nil {
		return nil, a.fail("Slice", err)
	}
	return a.derive(out), nil
}

// Field projects a record field through every dimension.
func (a *Array) Field(name string) (*Array, error) {
	out, err := layout.GetItemContent(a.layout, layout.Field(name))
	if err != nil {
		return nil, a.fail("Field", err)
	}
	return a.derive(out), nil
}

func (a *Array) result(v any) any {
	if c, ok := v.(layout.Content); ok {
		return a.derive(c)
	}
	return v
}

type reducer func(layout.Content, ...operations.ReduceOption) (any, error)

func (a *Array) reduce(op string, fn reducer, opts []operations.ReduceOption) (any, error) {
	all := append([]operations.ReduceOption{operations.MaskIdentity(a.cfg.MaskIdentity)}, opts...)
	start := time.Now()
	out, err := fn(a.layout, all...)
	if err != nil {
		return nil, a.fail(op, err)
	}
	level.Debug(a.logger).Log("msg", "reduced", "op", op, "duration", time.Since(start))
	return a.result(out), nil
}

func (a *Array) Sum(opts ...operations.ReduceOption) (any, error) {
	return a.reduce("Sum", operations.Sum, opts)
}

func (a *Array) Prod(opts ...operations.ReduceOption) (any, error) {
	return a.reduce("Prod", operations.Prod, opts)
}

func (a *Array) Min(opts ...operations.ReduceOption) (any, error) {
	return a.reduce("Min", operations.Min, opts)
}

func (a *Array) Max(opts ...operations.ReduceOption) (any, error) {
	return a.reduce("Max", operations.Max, opts)
}

func (a *Array) Any(opts ...operations.ReduceOption) (any, error) {
	return a.reduce("Any", operations.Any, opts)
}

func (a *Array) All(opts ...operations.ReduceOption) (any, error) {
	return a.reduce("All", operations.All, opts)
}

func (a *Array) Count(opts ...operations.ReduceOption) (any, error) {
	return a.reduce("Count", operations.Count, opts)
}

func (a *Array) CountNonzero(opts ...operations.ReduceOption) (any, error) {
	return a.reduce("CountNonzero", operations.CountNonzero, opts)
}

// ArgMin returns positions local to each reduced group, -1 for empty groups.
func (a *Array) ArgMin(opts ...operations.ReduceOption) (any, error) {
	return a.reduce("ArgMin", operations.ArgMin, opts)
}

func (a *Array) ArgMax(opts ...operations.ReduceOption) (any, error) {
	return a.reduce("ArgMax", operations.ArgMax, opts)
}

// Apply runs the elementwise function called name ("add", "less", ...)
// with other, which may be an *Array, a layout or a scalar.
func (a *Array) Apply(name string, other any) (*Array, error) {
	if b, ok := other.(*Array); ok {
		other = b.layout
	}
	out, err := operations.Binary(name, a.layout, other, layout.WithParallel(a.cfg.ParallelRecords))
	if err != nil {
		return nil, a.fail(name, err)
	}
	return a.derive(out), nil
}

func (a *Array) Add(other any) (*Array, error)      { return a.Apply("add", other) }
func (a *Array) Subtract(other any) (*Array, error) { return a.Apply("subtract", other) }
func (a *Array) Multiply(other any) (*Array, error) { return a.Apply("multiply", other) }
func (a *Array) Divide(other any) (*Array, error)   { return a.Apply("divide", other) }

// Num counts the elements at axis.
func (a *Array) Num(axis int) (any, error) {
	out, err := operations.Num(a.layout, axis)
	if err != nil {
		return nil, a.fail("Num", err)
	}
	return a.result(out), nil
}

// Flatten removes one level of nesting at axis.
func (a *Array) Flatten(axis int) (*Array, error) {
	return a.transform("Flatten", func(c layout.Content) (layout.Content, error) {
		return operations.Flatten(c, axis)
	})
}

// FillNone replaces missing values at axis.
func (a *Array) FillNone(value any, axis int) (*Array, error) {
	return a.transform("FillNone", func(c layout.Content) (layout.Content, error) {
		return operations.FillNone(c, value, axis)
	})
}

// DropNone removes missing values at axis.
func (a *Array) DropNone(axis int) (*Array, error) {
	return a.transform("DropNone", func(c layout.Content) (layout.Content, error) {
		return operations.DropNone(c, axis)
	})
}

func (a *Array) transform(op string, fn func(layout.Content) (layout.Content, error)) (*Array, error) {
	out, err := fn(a.layout)
	if err != nil {
		return nil, a.fail(op, err)
	}
	return a.derive(out), nil
}

// GoString includes the type, for debugging.
func (a *Array) GoString() string {
	return fmt.Sprintf("<Array %s type=%q>", a.String(), a.Type().String())
}

func copyMetadata(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
