package jsontree

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Marshal encodes v as JSON indented with two spaces and a trailing
// newline. HTML characters are not escaped and mapping order is preserved.
func Marshal(v any) ([]byte, error) {
	return MarshalIndent(v, "  ")
}

// MarshalIndent is like Marshal with a custom indent unit.
func MarshalIndent(v any, indent string) ([]byte, error) {
	w := &writer{indent: indent, pretty: true, visiting: make(map[any]struct{})}
	if err := w.value(v, 0); err != nil {
		return nil, err
	}
	w.buf.WriteByte('\n')
	return w.buf.Bytes(), nil
}

// MarshalCompact encodes v on a single line.
func MarshalCompact(v any) ([]byte, error) {
	w := &writer{visiting: make(map[any]struct{})}
	if err := w.value(v, 0); err != nil {
		return nil, err
	}
	return w.buf.Bytes(), nil
}

type writer struct {
	buf      bytes.Buffer
	indent   string
	pretty   bool
	visiting map[any]struct{}
}

func (w *writer) newline(depth int) {
	if !w.pretty {
		return
	}
	w.buf.WriteByte('\n')
	w.buf.WriteString(strings.Repeat(w.indent, depth))
}

func (w *writer) value(v any, depth int) error {
	switch n := v.(type) {
	case nil, hole:
		w.buf.WriteString("null")
	case string:
		w.buf.WriteString(quote(n))
	case json.Number:
		if n == "" {
			w.buf.WriteByte('0')
		} else {
			w.buf.WriteString(string(n))
		}
	case bool:
		if n {
			w.buf.WriteString("true")
		} else {
			w.buf.WriteString("false")
		}
	case *Object:
		if _, seen := w.visiting[n]; seen {
			return &CyclicStructureError{}
		}
		if n.Len() == 0 {
			w.buf.WriteString("{}")
			return nil
		}
		w.visiting[n] = struct{}{}
		defer delete(w.visiting, n)
		w.buf.WriteByte('{')
		first := true
		for pair := n.Oldest(); pair != nil; pair = pair.Next() {
			if !first {
				w.buf.WriteByte(',')
			}
			first = false
			w.newline(depth + 1)
			w.buf.WriteString(quote(pair.Key))
			w.buf.WriteByte(':')
			if w.pretty {
				w.buf.WriteByte(' ')
			}
			if err := w.value(pair.Value, depth+1); err != nil {
				return err
			}
		}
		w.newline(depth)
		w.buf.WriteByte('}')
	case *Array:
		if _, seen := w.visiting[n]; seen {
			return &CyclicStructureError{}
		}
		if len(n.elems) == 0 {
			w.buf.WriteString("[]")
			return nil
		}
		w.visiting[n] = struct{}{}
		defer delete(w.visiting, n)
		w.buf.WriteByte('[')
		for i, e := range n.elems {
			if i > 0 {
				w.buf.WriteByte(',')
			}
			w.newline(depth + 1)
			if err := w.value(e, depth+1); err != nil {
				return err
			}
		}
		w.newline(depth)
		w.buf.WriteByte(']')
	default:
		// Opaque leaves fall back to encoding/json.
		data, err := json.Marshal(n)
		if err != nil {
			return fmt.Errorf("encoding %T: %w", v, err)
		}
		w.buf.Write(data)
	}
	return nil
}

func quote(s string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	return strings.TrimSuffix(buf.String(), "\n")
}

// WriteFile encodes root with Marshal and writes it to path, creating
// parent directories as needed.
func WriteFile(path string, root any) error {
	data, err := Marshal(root)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
