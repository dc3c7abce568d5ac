// Package diff compares a template document with a localized target and
// reports which leaf paths need work.
//
// All results are recomputed from the trees on every call; nothing is
// cached between calls.
package diff

import (
	"github.com/minios-linux/jta/jsontree"
	"github.com/minios-linux/jta/keypath"
)

// DefaultMarker is the reserved mapping key that lists keys whose template
// text changed and must be translated again.
const DefaultMarker = "__updated_keys__"

// Options configures a comparison.
type Options struct {
	// Marker is excluded from enumeration on both sides. Empty means no
	// marker is in use.
	Marker string
}

func (o Options) enumerate() jsontree.EnumerateOptions {
	if o.Marker == "" {
		return jsontree.EnumerateOptions{}
	}
	return jsontree.EnumerateOptions{ExcludeKeys: []string{o.Marker}}
}

// Result holds both directions of a comparison.
type Result struct {
	// Missing are template leaves absent from the target, in template order.
	Missing []keypath.Path
	// Extra are target leaves absent from the template, in target order.
	Extra []keypath.Path
}

// Missing returns the template leaf paths that do not exist in target.
func Missing(template, target any, opts Options) ([]keypath.Path, error) {
	return absent(template, target, opts)
}

// Extra returns the target leaf paths that do not exist in template.
func Extra(template, target any, opts Options) ([]keypath.Path, error) {
	return absent(target, template, opts)
}

// absent lists leaves of from that cannot be reached in in.
func absent(from, in any, opts Options) ([]keypath.Path, error) {
	leaves, err := jsontree.Enumerate(from, opts.enumerate())
	if err != nil {
		return nil, err
	}
	var out []keypath.Path
	for _, p := range leaves {
		if !jsontree.Exists(in, p) {
			out = append(out, p)
		}
	}
	return out, nil
}

// Compute returns both missing and extra paths.
func Compute(template, target any, opts Options) (*Result, error) {
	missing, err := Missing(template, target, opts)
	if err != nil {
		return nil, err
	}
	extra, err := Extra(template, target, opts)
	if err != nil {
		return nil, err
	}
	return &Result{Missing: missing, Extra: extra}, nil
}

// KeysToTranslate returns the missing paths followed by the updated paths,
// without duplicates and in first-seen order.
//
// Updated paths are resolved against the template: one that names a
// container stands for every leaf below it, and one the template does not
// have is dropped.
func KeysToTranslate(template, target any, updated []keypath.Path, opts Options) ([]keypath.Path, error) {
	missing, err := Missing(template, target, opts)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(missing)+len(updated))
	out := make([]keypath.Path, 0, len(missing)+len(updated))
	add := func(p keypath.Path) {
		id := p.ID()
		if _, dup := seen[id]; dup {
			return
		}
		seen[id] = struct{}{}
		out = append(out, p)
	}

	for _, p := range missing {
		add(p)
	}
	for _, u := range updated {
		resolved, ok := jsontree.Resolve(template, u)
		if !ok {
			continue
		}
		v, _ := jsontree.Get(template, resolved)
		if !jsontree.IsContainer(v) {
			add(resolved)
			continue
		}
		leaves, err := jsontree.Enumerate(v, opts.enumerate())
		if err != nil {
			return nil, err
		}
		for _, leaf := range leaves {
			add(append(resolved[:len(resolved):len(resolved)], leaf...))
		}
	}
	return out, nil
}
