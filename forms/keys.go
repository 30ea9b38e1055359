package forms

import "strconv"

// WithChildren returns a copy of f with its direct contents replaced.
func WithChildren(f Form, children []Form) Form {
	switch x := f.(type) {
	case RegularForm:
		x.Content = children[0]
		return x
	case ListOffsetForm:
		x.Content = children[0]
		return x
	case ListForm:
		x.Content = children[0]
		return x
	case IndexedForm:
		x.Content = children[0]
		return x
	case IndexedOptionForm:
		x.Content = children[0]
		return x
	case ByteMaskedForm:
		x.Content = children[0]
		return x
	case BitMaskedForm:
		x.Content = children[0]
		return x
	case UnmaskedForm:
		x.Content = children[0]
		return x
	case RecordForm:
		x.Contents = children
		return x
	case UnionForm:
		x.Contents = children
		return x
	}
	return f
}

// WithMeta returns a copy of f with its parameters and form key replaced.
func WithMeta(f Form, meta Meta) Form {
	switch x := f.(type) {
	case EmptyForm:
		x.Meta = meta
		return x
	case NumpyForm:
		x.Meta = meta
		return x
	case RegularForm:
		x.Meta = meta
		return x
	case ListOffsetForm:
		x.Meta = meta
		return x
	case ListForm:
		x.Meta = meta
		return x
	case IndexedForm:
		x.Meta = meta
		return x
	case IndexedOptionForm:
		x.Meta = meta
		return x
	case ByteMaskedForm:
		x.Meta = meta
		return x
	case BitMaskedForm:
		x.Meta = meta
		return x
	case UnmaskedForm:
		x.Meta = meta
		return x
	case RecordForm:
		x.Meta = meta
		return x
	case UnionForm:
		x.Meta = meta
		return x
	}
	return f
}

// AssignKeys numbers every node "node0", "node1", ... in pre-order,
// overwriting existing form keys.
func AssignKeys(f Form) Form {
	n := 0
	var walk func(Form) Form
	walk = func(f Form) Form {
		key := "node" + strconv.Itoa(n)
		n++
		out := WithMeta(f, Meta{Params: f.Parameters(), Key: key})
		if children := f.Children(); len(children) > 0 {
			next := make([]Form, len(children))
			for i, c := range children {
				next[i] = walk(c)
			}
			out = WithChildren(out, next)
		}
		return out
	}
	return walk(f)
}

// Walk visits f and its descendants in pre-order. Descendants of a node for
// which fn returns false are skipped.
func Walk(f Form, fn func(Form) bool) {
	if !fn(f) {
		return
	}
	for _, c := range f.Children() {
		Walk(c, fn)
	}
}
