package layout

import (
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/wzqhbustb/jagged/dtype"
	"github.com/wzqhbustb/jagged/index"
	"github.com/wzqhbustb/jagged/storage/errors"
	"github.com/wzqhbustb/jagged/types"
)

// BroadcastAction is called at every level of the lock-step walk. inputs
// holds Contents (all of the same length) and the Go scalars passed to
// BroadcastAndApply. Returning nil outputs asks the engine to descend one
// more level.
type BroadcastAction func(inputs []any, ctx *BroadcastContext) ([]Content, error)

// BroadcastContext describes the current level of a broadcast.
type BroadcastContext struct {
	// Depth is 0 for the packed inputs and grows by one per list level.
	Depth int
}

type broadcastOptions struct {
	allowRecords   bool
	leftBroadcast  bool
	rightBroadcast bool
	parallel       bool
}

// BroadcastOption configures BroadcastAndApply.
type BroadcastOption func(*broadcastOptions)

// WithAllowRecords controls whether records may be broadcast field by field.
func WithAllowRecords(allow bool) BroadcastOption {
	return func(o *broadcastOptions) { o.allowRecords = allow }
}

// WithLeftBroadcast controls whether a shallower array is broadcast into the
// lists of a deeper one, element i filling row i.
func WithLeftBroadcast(allow bool) BroadcastOption {
	return func(o *broadcastOptions) { o.leftBroadcast = allow }
}

// WithRightBroadcast controls NumPy-style alignment of purely regular inputs
// by their innermost dimension.
func WithRightBroadcast(allow bool) BroadcastOption {
	return func(o *broadcastOptions) { o.rightBroadcast = allow }
}

// WithParallel broadcasts record fields concurrently. The action must then
// be safe for concurrent use.
func WithParallel(parallel bool) BroadcastOption {
	return func(o *broadcastOptions) { o.parallel = parallel }
}

type broadcaster struct {
	action BroadcastAction
	opts   broadcastOptions
}

// BroadcastAndApply walks inputs in lock step, aligning their dimensions,
// and calls action at every level until it returns outputs.
func BroadcastAndApply(inputs []any, action BroadcastAction, opts ...BroadcastOption) ([]Content, error) {
	b := &broadcaster{
		action: action,
		opts:   broadcastOptions{allowRecords: true, leftBroadcast: true, rightBroadcast: true},
	}
	for _, opt := range opts {
		opt(&b.opts)
	}
	hasContent := false
	for _, in := range inputs {
		if _, ok := in.(Content); ok {
			hasContent = true
		}
	}
	if !hasContent {
		return nil, errors.InvalidArg("broadcast_and_apply", "at least one input must be an array")
	}

	packed := make([]any, len(inputs))
	copy(packed, inputs)
	if b.opts.rightBroadcast {
		if err := rightBroadcast(packed); err != nil {
			return nil, err
		}
	}
	for i, in := range packed {
		if c, ok := in.(Content); ok {
			reg, err := NewRegularArray(c, c.Len(), 1, emptyParams)
			if err != nil {
				return nil, err
			}
			packed[i] = reg
		}
	}

	outs, err := b.apply(packed, 0)
	if err != nil {
		return nil, err
	}
	for i, out := range outs {
		if reg, ok := out.(*RegularArray); ok && reg.length == 1 {
			outs[i] = reg.content.rangeUnsafe(0, reg.size)
		}
	}
	return outs, nil
}

// regularDims counts the dimensions of a purely rectangular array, or
// returns false when c has variable lists, options, records or unions.
func regularDims(c Content) (int, bool) {
	switch x := c.(type) {
	case *NumpyArray:
		return len(x.shape), true
	case *RegularArray:
		d, ok := regularDims(x.content)
		return d + 1, ok
	}
	return 0, false
}

func rightBroadcast(inputs []any) error {
	dims := make([]int, len(inputs))
	most := 0
	for i, in := range inputs {
		c, ok := in.(Content)
		if !ok {
			continue
		}
		d, regular := regularDims(c)
		if !regular {
			return nil
		}
		dims[i] = d
		if d > most {
			most = d
		}
	}
	for i, in := range inputs {
		c, ok := in.(Content)
		if !ok {
			continue
		}
		for d := dims[i]; d < most; d++ {
			reg, err := NewRegularArray(c, c.Len(), 1, emptyParams)
			if err != nil {
				return err
			}
			c = reg
		}
		inputs[i] = c
	}
	return nil
}

func (b *broadcaster) apply(inputs []any, depth int) ([]Content, error) {
	outs, err := b.action(inputs, &BroadcastContext{Depth: depth})
	if err != nil || outs != nil {
		return outs, err
	}
	return b.step(inputs, depth)
}

func (b *broadcaster) step(inputs []any, depth int) ([]Content, error) {
	const op = "broadcast_and_apply"
	length := -1
	var lengths []int
	consistent := true
	for _, in := range inputs {
		if c, ok := in.(Content); ok {
			lengths = append(lengths, c.Len())
			if length == -1 {
				length = c.Len()
			} else if c.Len() != length {
				consistent = false
			}
		}
	}
	if !consistent {
		return nil, errors.BroadcastMismatch(op, depth, lengths...)
	}

	inputs = append([]any{}, inputs...)
	var anyUnion, anyOption, anyList, anyRecord, allRegular = false, false, false, false, true
	converted := false
	for i, in := range inputs {
		c, ok := in.(Content)
		if !ok {
			continue
		}
		switch x := c.(type) {
		case *EmptyArray:
			c = x.ToNumpyArray(dtype.Float64)
			converted = true
		case *NumpyArray:
			c = x.toRegularArray()
		case *IndexedArray:
			projected, err := x.Project()
			if err != nil {
				return nil, err
			}
			c = projected
			converted = true
		}
		inputs[i] = c
		switch {
		case c.IsUnion():
			anyUnion = true
		case c.IsOption():
			anyOption = true
		case c.IsList():
			anyList = true
			if !c.IsRegular() {
				allRegular = false
			}
		case c.IsRecord():
			anyRecord = true
		}
	}

	switch {
	case anyUnion:
		return b.unionStep(inputs, length, depth)
	case anyOption:
		return b.optionStep(inputs, length, depth)
	case anyList && allRegular:
		return b.regularStep(inputs, length, depth)
	case anyList:
		return b.jaggedStep(inputs, length, depth)
	case anyRecord:
		return b.recordStep(inputs, length, depth)
	case converted:
		// The leaves only became primitive here; offer them to the action.
		return b.apply(inputs, depth)
	}
	return nil, errors.New(errors.ErrType).
		Op(op).
		Context("depth", depth).
		Message("no action defined for these leaf inputs").
		Build()
}

// repeatCarry repeats position i counts[i] times.
func repeatCarry(counts []int64) []int64 {
	var total int64
	for _, c := range counts {
		total += c
	}
	out := make([]int64, 0, total)
	for i, c := range counts {
		for k := int64(0); k < c; k++ {
			out = append(out, int64(i))
		}
	}
	return out
}

func listParams(inputs []any) types.Parameters {
	var params types.Parameters
	first := true
	for _, in := range inputs {
		c, ok := in.(Content)
		if !ok || !c.IsList() {
			continue
		}
		if first {
			params = c.Parameters()
			first = false
			continue
		}
		params = params.Intersect(c.Parameters())
	}
	return params
}

func (b *broadcaster) leftBroadcastError(depth int) error {
	return errors.New(errors.ErrBroadcast).
		Op("broadcast_and_apply").
		Context("depth", depth).
		Message("cannot broadcast a shallower array into lists without left broadcasting").
		Build()
}

func (b *broadcaster) regularStep(inputs []any, length, depth int) ([]Content, error) {
	dimsize := -1
	var sizes []int
	mismatch := false
	for _, in := range inputs {
		if x, ok := in.(*RegularArray); ok {
			sizes = append(sizes, x.size)
			if x.size == 1 {
				continue
			}
			if dimsize == -1 {
				dimsize = x.size
			} else if x.size != dimsize {
				mismatch = true
			}
		}
	}
	if mismatch {
		return nil, errors.BroadcastMismatch("broadcast_and_apply", depth+1, sizes...)
	}
	if dimsize == -1 {
		dimsize = 1
	}
	counts := make([]int64, length)
	for i := range counts {
		counts[i] = int64(dimsize)
	}
	next := make([]any, len(inputs))
	for i, in := range inputs {
		c, ok := in.(Content)
		if !ok {
			next[i] = in
			continue
		}
		var err error
		switch x := c.(type) {
		case *RegularArray:
			if x.size == dimsize {
				next[i] = x.content.rangeUnsafe(0, length*x.size)
			} else {
				next[i], err = x.content.carry(repeatCarry(counts))
			}
		default:
			if !b.opts.leftBroadcast {
				return nil, b.leftBroadcastError(depth)
			}
			next[i], err = c.carry(repeatCarry(counts))
		}
		if err != nil {
			return nil, err
		}
	}
	outs, err := b.apply(next, depth+1)
	if err != nil {
		return nil, err
	}
	params := listParams(inputs)
	result := make([]Content, len(outs))
	for i, out := range outs {
		reg, err := NewRegularArray(out, dimsize, length, params)
		if err != nil {
			return nil, err
		}
		result[i] = reg
	}
	return result, nil
}

func (b *broadcaster) jaggedStep(inputs []any, length, depth int) ([]Content, error) {
	var counts []int64
	for _, in := range inputs {
		c, ok := in.(Content)
		if !ok || !c.IsList() || c.IsRegular() {
			continue
		}
		list, err := toListOffsetArray64(c, true)
		if err != nil {
			return nil, err
		}
		offsets := list.offsets.Int64s()
		rows := make([]int64, length)
		for i := range rows {
			rows[i] = offsets[i+1] - offsets[i]
		}
		if counts == nil {
			counts = rows
			continue
		}
		for i := range rows {
			if rows[i] != counts[i] {
				return nil, errors.BroadcastMismatch("broadcast_and_apply", depth+1, int(counts[i]), int(rows[i]))
			}
		}
	}

	offsets := make([]int64, length+1)
	for i, n := range counts {
		offsets[i+1] = offsets[i] + n
	}
	next := make([]any, len(inputs))
	for i, in := range inputs {
		c, ok := in.(Content)
		if !ok {
			next[i] = in
			continue
		}
		var err error
		switch x := c.(type) {
		case *RegularArray:
			if x.size == 1 {
				next[i], err = x.content.carry(repeatCarry(counts))
				break
			}
			for _, n := range counts {
				if n != int64(x.size) {
					return nil, errors.BroadcastMismatch("broadcast_and_apply", depth+1, int(n), x.size)
				}
			}
			next[i] = x.content.rangeUnsafe(0, length*x.size)
		case *ListOffsetArray, *ListArray:
			list, lerr := toListOffsetArray64(c, true)
			if lerr != nil {
				return nil, lerr
			}
			last := list.offsets.Get(list.offsets.Len() - 1)
			next[i] = list.content.rangeUnsafe(0, int(last))
		default:
			if !b.opts.leftBroadcast {
				return nil, b.leftBroadcastError(depth)
			}
			next[i], err = c.carry(repeatCarry(counts))
		}
		if err != nil {
			return nil, err
		}
	}
	outs, err := b.apply(next, depth+1)
	if err != nil {
		return nil, err
	}
	params := listParams(inputs)
	result := make([]Content, len(outs))
	for i, out := range outs {
		list, err := NewListOffsetArray(index.FromInt64(offsets), out, params)
		if err != nil {
			return nil, err
		}
		result[i] = list
	}
	return result, nil
}

func (b *broadcaster) optionStep(inputs []any, length, depth int) ([]Content, error) {
	opts := make([]*IndexedOptionArray, len(inputs))
	valid := make([]bool, length)
	for i := range valid {
		valid[i] = true
	}
	for k, in := range inputs {
		c, ok := in.(Content)
		if !ok || !c.IsOption() {
			continue
		}
		opt, err := toIndexedOptionArray64(c)
		if err != nil {
			return nil, err
		}
		opts[k] = opt
		for i := 0; i < length; i++ {
			if opt.index.Get(i) < 0 {
				valid[i] = false
			}
		}
	}
	outindex := make([]int64, length)
	var carry []int64
	for i, ok := range valid {
		if ok {
			outindex[i] = int64(len(carry))
			carry = append(carry, int64(i))
		} else {
			outindex[i] = -1
		}
	}
	next := make([]any, len(inputs))
	for k, in := range inputs {
		c, ok := in.(Content)
		if !ok {
			next[k] = in
			continue
		}
		var err error
		if opts[k] != nil {
			next[k], err = opts[k].content.carry(takeInt64(opts[k].index.Int64s(), carry))
		} else {
			next[k], err = c.carry(carry)
		}
		if err != nil {
			return nil, err
		}
	}
	outs, err := b.apply(next, depth)
	if err != nil {
		return nil, err
	}
	result := make([]Content, len(outs))
	for i, out := range outs {
		wrapped, err := NewIndexedOptionArraySimplified(index.FromInt64(outindex), out, emptyParams)
		if err != nil {
			return nil, err
		}
		result[i] = wrapped
	}
	return result, nil
}

func (b *broadcaster) unionStep(inputs []any, length, depth int) ([]Content, error) {
	var unions []int
	slot := map[int]int{}
	for k, in := range inputs {
		if c, ok := in.(Content); ok && c.IsUnion() {
			slot[k] = len(unions)
			unions = append(unions, k)
		}
	}
	comboIDs := map[string]int{}
	var comboTags [][]int8
	var comboPositions [][]int64
	tags := make([]int8, length)
	rank := make([]int64, length)
	key := make([]byte, len(unions))
	for i := 0; i < length; i++ {
		for j, k := range unions {
			key[j] = byte(inputs[k].(*UnionArray).tags.Get(i))
		}
		id, ok := comboIDs[string(key)]
		if !ok {
			id = len(comboPositions)
			comboIDs[string(key)] = id
			combo := make([]int8, len(key))
			for j := range key {
				combo[j] = int8(key[j])
			}
			comboTags = append(comboTags, combo)
			comboPositions = append(comboPositions, nil)
		}
		tags[i] = int8(id)
		rank[i] = int64(len(comboPositions[id]))
		comboPositions[id] = append(comboPositions[id], int64(i))
	}
	if length == 0 {
		// Every combination of branches is visited with nothing selected, so
		// the output keeps one branch per combination.
		comboTags = [][]int8{{}}
		for _, k := range unions {
			n := len(inputs[k].(*UnionArray).contents)
			var next [][]int8
			for _, prefix := range comboTags {
				for t := 0; t < n; t++ {
					next = append(next, append(append([]int8{}, prefix...), int8(t)))
				}
			}
			comboTags = next
			if len(comboTags) > 127 {
				break
			}
		}
		comboPositions = make([][]int64, len(comboTags))
	}
	if len(comboPositions) > 127 {
		return nil, errors.NotSupported("broadcast_and_apply", "too many union tag combinations")
	}
	var perCombo [][]Content
	for id, positions := range comboPositions {
		next := make([]any, len(inputs))
		for k, in := range inputs {
			c, ok := in.(Content)
			if !ok {
				next[k] = in
				continue
			}
			var err error
			if u, isUnion := c.(*UnionArray); isUnion {
				t := comboTags[id][slot[k]]
				next[k], err = u.contents[t].carry(takeInt64(u.index.Int64s(), positions))
			} else {
				next[k], err = c.carry(positions)
			}
			if err != nil {
				return nil, err
			}
		}
		outs, err := b.apply(next, depth)
		if err != nil {
			return nil, err
		}
		if len(perCombo) > 0 && len(outs) != len(perCombo[0]) {
			return nil, errors.New(errors.ErrType).
				Op("broadcast_and_apply").
				Message("union branches returned %d and %d outputs", len(perCombo[0]), len(outs)).
				Build()
		}
		perCombo = append(perCombo, outs)
	}
	if len(perCombo) == 0 {
		return nil, errors.NotSupported("broadcast_and_apply", "cannot broadcast a union without branches")
	}
	result := make([]Content, len(perCombo[0]))
	for j := range result {
		contents := make([]Content, len(perCombo))
		for id := range perCombo {
			contents[id] = perCombo[id][j]
		}
		out, err := SimplifyUnion(index.FromInt8(tags), index.FromInt64(rank), contents, emptyParams)
		if err != nil {
			return nil, err
		}
		result[j] = out
	}
	return result, nil
}

func (b *broadcaster) recordStep(inputs []any, length, depth int) ([]Content, error) {
	const op = "broadcast_and_apply"
	if !b.opts.allowRecords {
		return nil, errors.New(errors.ErrType).Op(op).Message("records are not allowed in this operation").Build()
	}
	var first *RecordArray
	var names []string
	for _, in := range inputs {
		x, ok := in.(*RecordArray)
		if !ok {
			continue
		}
		fields := x.Fields()
		sorted := append([]string{}, fields...)
		sort.Strings(sorted)
		if first == nil {
			first, names = x, sorted
			continue
		}
		if x.IsTuple() != first.IsTuple() || !equalStrings(sorted, names) {
			return nil, errors.New(errors.ErrBroadcast).
				Op(op).
				Context("depth", depth).
				Context("fields", []any{first.Fields(), fields}).
				Message("cannot broadcast records with different fields").
				Build()
		}
	}
	if len(first.contents) == 0 {
		return nil, errors.NotSupported(op, "cannot broadcast records without fields")
	}

	fields := first.Fields()
	perField := make([][]Content, len(fields))
	run := func(f int) error {
		next := make([]any, len(inputs))
		for k, in := range inputs {
			if x, ok := in.(*RecordArray); ok {
				c, err := x.Content(fields[f])
				if err != nil {
					return err
				}
				next[k] = c
			} else {
				next[k] = in
			}
		}
		outs, err := b.apply(next, depth)
		if err != nil {
			return err
		}
		perField[f] = outs
		return nil
	}
	if b.opts.parallel {
		var g errgroup.Group
		g.SetLimit(runtime.GOMAXPROCS(0))
		for f := range fields {
			g.Go(func() error { return run(f) })
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	} else {
		for f := range fields {
			if err := run(f); err != nil {
				return nil, err
			}
		}
	}

	result := make([]Content, len(perField[0]))
	for j := range result {
		contents := make([]Content, len(fields))
		for f := range fields {
			if len(perField[f]) != len(result) {
				return nil, errors.New(errors.ErrType).
					Op(op).
					Message("record fields returned different numbers of outputs").
					Build()
			}
			contents[f] = perField[f][j]
		}
		rec, err := NewRecordArray(contents, first.fields, length, emptyParams)
		if err != nil {
			return nil, err
		}
		result[j] = rec
	}
	return result, nil
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
