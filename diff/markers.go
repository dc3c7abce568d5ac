package diff

import (
	"fmt"

	"github.com/minios-linux/jta/jsontree"
	"github.com/minios-linux/jta/keypath"
)

// ---------------------------------------------------------------------------
// Updated-keys markers
// ---------------------------------------------------------------------------
//
// A template author flags changed strings by listing sibling key names
// under the marker key of the mapping that holds them:
//
//	{
//	  "__updated_keys__": ["title"],
//	  "title": "New title",
//	  "menu": {"__updated_keys__": ["save"], "save": "Save all"}
//	}

// MarkerError describes an invalid marker entry.
type MarkerError struct {
	// Path is the mapping holding the marker.
	Path   keypath.Path
	Entry  any
	Reason string
}

func (e *MarkerError) Error() string {
	where := "root"
	if len(e.Path) > 0 {
		where = fmt.Sprintf("%q", e.Path.String())
	}
	return fmt.Sprintf("invalid updated-keys entry %v in mapping at %s: %s", e.Entry, where, e.Reason)
}

// markerNames returns the marker list of obj, if it has one.
func markerNames(obj *jsontree.Object, marker string) (*jsontree.Array, bool) {
	v, ok := obj.Get(marker)
	if !ok {
		return nil, false
	}
	arr, ok := v.(*jsontree.Array)
	return arr, ok
}

// UpdatedKeys collects the paths named by marker lists anywhere in template,
// the root mapping included. Non-string entries are ignored.
func UpdatedKeys(template any, marker string) ([]keypath.Path, error) {
	var out []keypath.Path
	err := jsontree.Walk(template, func(p keypath.Path, v any) bool {
		obj, ok := v.(*jsontree.Object)
		if !ok {
			return true
		}
		if len(p) > 0 && p.Last().Kind == keypath.KindName && p.Last().Key == marker {
			return false
		}
		names, ok := markerNames(obj, marker)
		if !ok {
			return true
		}
		for _, v := range names.Values() {
			if name, ok := v.(string); ok {
				out = append(out, p.Child(keypath.Key(name)))
			}
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ValidateUpdatedKeys reports marker entries that are not strings or that
// do not name a key of their mapping, and markers that are not lists.
func ValidateUpdatedKeys(template any, marker string) []error {
	var errs []error
	err := jsontree.Walk(template, func(p keypath.Path, v any) bool {
		obj, ok := v.(*jsontree.Object)
		if !ok {
			return true
		}
		raw, ok := obj.Get(marker)
		if !ok {
			return true
		}
		names, ok := raw.(*jsontree.Array)
		if !ok {
			errs = append(errs, &MarkerError{Path: p, Entry: raw, Reason: "marker is not a list"})
			return true
		}
		for _, entry := range names.Values() {
			name, ok := entry.(string)
			if !ok {
				errs = append(errs, &MarkerError{Path: p, Entry: entry, Reason: "entry is not a string"})
				continue
			}
			if _, present := obj.Get(name); !present || name == marker {
				errs = append(errs, &MarkerError{Path: p, Entry: fmt.Sprintf("%q", name), Reason: "key does not exist"})
			}
		}
		return true
	})
	if err != nil {
		errs = append(errs, err)
	}
	return errs
}

// StripMarkers returns a deep copy of tree with every marker key removed.
func StripMarkers(tree any, marker string) any {
	out := jsontree.Clone(tree)
	_ = jsontree.Walk(out, func(_ keypath.Path, v any) bool {
		if obj, ok := v.(*jsontree.Object); ok {
			obj.Delete(marker)
		}
		return true
	})
	return out
}
