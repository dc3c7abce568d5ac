package jsontree

import (
	"fmt"

	"github.com/minios-linux/jta/keypath"
)

// CyclicStructureError is returned when a container is reached again while
// it is still being traversed.
type CyclicStructureError struct {
	// Path is where the cycle closed. Empty when the cycle involves the root
	// or when the caller did not track paths.
	Path keypath.Path
}

func (e *CyclicStructureError) Error() string {
	if len(e.Path) == 0 {
		return "cyclic structure in document"
	}
	return fmt.Sprintf("cyclic structure at %s", e.Path)
}

type walkFrame struct {
	value any
	path  keypath.Path
	leave bool
}

// Walk calls fn for root and every value below it, depth first, with
// mapping keys in insertion order and sequence positions ascending. The
// root is reported with an empty path. Returning false from fn skips the
// children of a container. Holes are never reported.
//
// The traversal uses an explicit stack, so deeply nested documents do not
// grow the goroutine stack. A container that is reached again while still
// on the stack yields a CyclicStructureError; shared subtrees are fine and
// are visited once per reference.
func Walk(root any, fn func(p keypath.Path, v any) bool) error {
	visiting := make(map[any]struct{})
	stack := []walkFrame{{value: root}}

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if f.leave {
			delete(visiting, f.value)
			continue
		}

		switch node := f.value.(type) {
		case *Object:
			if _, seen := visiting[node]; seen {
				return &CyclicStructureError{Path: f.path}
			}
			if !fn(f.path, node) {
				continue
			}
			visiting[node] = struct{}{}
			stack = append(stack, walkFrame{value: node, leave: true})
			// Pushed in reverse so the oldest key is popped first.
			for pair := node.Newest(); pair != nil; pair = pair.Prev() {
				stack = append(stack, walkFrame{value: pair.Value, path: f.path.Child(keypath.Key(pair.Key))})
			}
		case *Array:
			if _, seen := visiting[node]; seen {
				return &CyclicStructureError{Path: f.path}
			}
			if !fn(f.path, node) {
				continue
			}
			visiting[node] = struct{}{}
			stack = append(stack, walkFrame{value: node, leave: true})
			for i := len(node.elems) - 1; i >= 0; i-- {
				if _, isHole := node.elems[i].(hole); isHole {
					continue
				}
				stack = append(stack, walkFrame{value: node.elems[i], path: f.path.Child(keypath.Idx(i))})
			}
		default:
			fn(f.path, node)
		}
	}
	return nil
}

// EnumerateOptions tunes Enumerate.
type EnumerateOptions struct {
	// ExcludeKeys are mapping keys skipped together with their subtree at
	// every depth.
	ExcludeKeys []string
}

// Enumerate lists the path of every leaf under root in Walk order. Empty
// containers and sequence holes produce no paths. A scalar root produces
// none either.
func Enumerate(root any, opts EnumerateOptions) ([]keypath.Path, error) {
	var exclude map[string]struct{}
	if len(opts.ExcludeKeys) > 0 {
		exclude = make(map[string]struct{}, len(opts.ExcludeKeys))
		for _, k := range opts.ExcludeKeys {
			exclude[k] = struct{}{}
		}
	}

	var out []keypath.Path
	err := Walk(root, func(p keypath.Path, v any) bool {
		if len(p) == 0 {
			return true
		}
		if last := p.Last(); last.Kind == keypath.KindName && exclude != nil {
			if _, skip := exclude[last.Key]; skip {
				return false
			}
		}
		if IsContainer(v) {
			return true
		}
		out = append(out, p)
		return true
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
