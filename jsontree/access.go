package jsontree

import (
	"github.com/minios-linux/jta/keypath"
)

// step applies one segment to a container. Numeric segments act as a
// position on sequences and as a key on mappings.
func step(container any, seg keypath.Segment) (any, bool) {
	switch c := container.(type) {
	case *Object:
		name, ok := seg.Name()
		if !ok {
			return nil, false
		}
		return c.Get(name)
	case *Array:
		i, ok := seg.Index()
		if !ok {
			return nil, false
		}
		return c.At(i)
	}
	return nil, false
}

// Get returns the value at p. A stored null is reported as (nil, true);
// anything that cannot be reached (wrong container kind, missing key,
// out-of-range position, hole, scalar in the way) is (nil, false).
// An empty path addresses the root.
func Get(root any, p keypath.Path) (any, bool) {
	cur := root
	for _, seg := range p {
		next, ok := step(cur, seg)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

// Exists reports whether a value, including null, is stored at p.
func Exists(root any, p keypath.Path) bool {
	_, ok := Get(root, p)
	return ok
}

// Resolve replaces numeric segments with the concrete name or position they
// address in root. It fails where Get would.
func Resolve(root any, p keypath.Path) (keypath.Path, bool) {
	out := make(keypath.Path, len(p))
	cur := root
	for i, seg := range p {
		if seg.Kind == keypath.KindNumeric {
			switch cur.(type) {
			case *Object:
				seg = keypath.Key(seg.Key)
			case *Array:
				seg = keypath.Idx(seg.Pos)
			}
		}
		next, ok := step(cur, seg)
		if !ok {
			return nil, false
		}
		out[i] = seg
		cur = next
	}
	return out, true
}

// Set stores v at p, creating intermediate containers as needed, and
// returns the root, which may be a new value.
//
// The container kind at each step follows the segment applied to it: a name
// needs a mapping, a position needs a sequence, and a numeric segment uses
// whichever container is already there (a sequence when there is none).
// Missing, null and scalar intermediates are replaced with a fresh
// container. So is a container of the wrong kind, which discards its
// contents: writing items[0] where items is a mapping turns items into a
// one-element sequence.
//
// Positions past the end of a sequence grow it with holes. A path with a
// position above keypath.MaxIndex is not written and root is returned as is.
func Set(root any, p keypath.Path, v any) any {
	if len(p) == 0 {
		return v
	}
	for _, seg := range p {
		if i, ok := seg.Index(); ok && i > keypath.MaxIndex {
			return root
		}
	}
	root, _ = containerFor(root, p[0])
	cur := root
	for i := 0; i < len(p)-1; i++ {
		existing, _ := step(cur, p[i])
		child, created := containerFor(existing, p[i+1])
		if created {
			put(cur, p[i], child)
		}
		cur = child
	}
	put(cur, p.Last(), v)
	return root
}

// containerFor returns c when it can take seg, or a new container of the
// kind seg requires.
func containerFor(c any, seg keypath.Segment) (any, bool) {
	switch seg.Kind {
	case keypath.KindName:
		if o, ok := c.(*Object); ok {
			return o, false
		}
		return NewObject(), true
	case keypath.KindIndex:
		if a, ok := c.(*Array); ok {
			return a, false
		}
		return NewArray(), true
	default:
		if IsContainer(c) {
			return c, false
		}
		return NewArray(), true
	}
}

func put(container any, seg keypath.Segment, v any) {
	switch c := container.(type) {
	case *Object:
		name, _ := seg.Name()
		c.Set(name, v)
	case *Array:
		i, _ := seg.Index()
		c.Put(i, v)
	}
}

// Delete removes the value at p and reports whether something was removed.
// See Array.Remove for how sequences shrink.
func Delete(root any, p keypath.Path) bool {
	if len(p) == 0 {
		return false
	}
	parent, ok := Get(root, p.Parent())
	if !ok {
		return false
	}
	seg := p.Last()
	switch c := parent.(type) {
	case *Object:
		name, ok := seg.Name()
		if !ok {
			return false
		}
		_, present := c.Delete(name)
		return present
	case *Array:
		i, ok := seg.Index()
		if !ok {
			return false
		}
		return c.Remove(i)
	}
	return false
}

// ---------------------------------------------------------------------------
// String path helpers
// ---------------------------------------------------------------------------

// GetPath parses path and reads it. A malformed path is reported as not
// found.
func GetPath(root any, path string, d keypath.Dialect) (any, bool) {
	p, err := keypath.Parse(path, d)
	if err != nil {
		return nil, false
	}
	return Get(root, p)
}

// ExistsPath is the string form of Exists. A malformed path does not exist.
func ExistsPath(root any, path string, d keypath.Dialect) bool {
	_, ok := GetPath(root, path, d)
	return ok
}

// SetPath parses path and writes v. Parse errors are returned unchanged.
func SetPath(root any, path string, d keypath.Dialect, v any) (any, error) {
	p, err := keypath.Parse(path, d)
	if err != nil {
		return root, err
	}
	return Set(root, p, v), nil
}
