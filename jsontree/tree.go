// Package jsontree holds the in-memory model of a localization document and
// the operations that treat it as a flat space of key paths: enumeration of
// leaves, reads, writes and deletes.
//
// The model is deliberately small:
//
//	*Object      ordered mapping (insertion order is kept for output)
//	*Array       sequence that may contain holes (unpopulated slots)
//	string, json.Number, bool, nil
//
// Any other Go value found in a tree is treated as an opaque leaf.
//
// Trees are not safe for concurrent mutation. Each document has a single
// owner at a time.
package jsontree

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/minios-linux/jta/keypath"
)

// Object is an insertion-ordered JSON mapping.
type Object = orderedmap.OrderedMap[string, any]

// NewObject returns an empty mapping.
func NewObject() *Object {
	return orderedmap.New[string, any]()
}

// hole marks a sequence slot that was never written. It is not the same as
// a stored JSON null: reads report it as absent and enumeration skips it.
type hole struct{}

// Array is a JSON sequence. Writing past the end grows it and leaves holes
// in the gap, so its length is always the highest populated index + 1.
type Array struct {
	elems []any
}

// NewArray returns a sequence holding values.
func NewArray(values ...any) *Array {
	return &Array{elems: append([]any(nil), values...)}
}

// Len reports the sequence length, holes included.
func (a *Array) Len() int {
	return len(a.elems)
}

// At returns the element at i. Out-of-range positions and holes are absent.
func (a *Array) At(i int) (any, bool) {
	if i < 0 || i >= len(a.elems) {
		return nil, false
	}
	if _, ok := a.elems[i].(hole); ok {
		return nil, false
	}
	return a.elems[i], true
}

// IsHole reports whether position i is inside the sequence but unpopulated.
func (a *Array) IsHole(i int) bool {
	if i < 0 || i >= len(a.elems) {
		return false
	}
	_, ok := a.elems[i].(hole)
	return ok
}

// Put stores v at position i, growing the sequence with holes if needed.
// Positions outside 0..keypath.MaxIndex are ignored and Put reports false.
func (a *Array) Put(i int, v any) bool {
	if i < 0 || i > keypath.MaxIndex {
		return false
	}
	for len(a.elems) <= i {
		a.elems = append(a.elems, hole{})
	}
	a.elems[i] = v
	return true
}

// Append adds v at the end.
func (a *Array) Append(v any) {
	a.elems = append(a.elems, v)
}

// Remove clears position i. Removing the last element shortens the sequence
// (together with any holes left before it). Removing an inner element leaves
// a hole so the remaining positions keep their addresses.
func (a *Array) Remove(i int) bool {
	if _, ok := a.At(i); !ok {
		return false
	}
	if i < len(a.elems)-1 {
		a.elems[i] = hole{}
		return true
	}
	a.elems = a.elems[:i]
	for n := len(a.elems); n > 0; n-- {
		if _, ok := a.elems[n-1].(hole); !ok {
			break
		}
		a.elems = a.elems[:n-1]
	}
	return true
}

// Populated counts the non-hole elements.
func (a *Array) Populated() int {
	n := 0
	for _, v := range a.elems {
		if _, ok := v.(hole); !ok {
			n++
		}
	}
	return n
}

// Values returns a copy of the elements with holes reported as nil.
func (a *Array) Values() []any {
	out := make([]any, len(a.elems))
	for i, v := range a.elems {
		if _, ok := v.(hole); ok {
			continue
		}
		out[i] = v
	}
	return out
}

// MarshalJSON encodes the sequence compactly. Holes are written as null.
func (a *Array) MarshalJSON() ([]byte, error) {
	return MarshalCompact(a)
}

// IsContainer reports whether v is a mapping or a sequence.
func IsContainer(v any) bool {
	switch v.(type) {
	case *Object, *Array:
		return true
	}
	return false
}

// Clone returns a deep copy of v. Scalars and opaque leaves are shared.
// The input must be acyclic.
func Clone(v any) any {
	switch n := v.(type) {
	case *Object:
		out := NewObject()
		for pair := n.Oldest(); pair != nil; pair = pair.Next() {
			out.Set(pair.Key, Clone(pair.Value))
		}
		return out
	case *Array:
		out := &Array{elems: make([]any, len(n.elems))}
		for i, e := range n.elems {
			out.elems[i] = Clone(e)
		}
		return out
	default:
		return v
	}
}
