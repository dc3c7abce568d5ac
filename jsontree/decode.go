package jsontree

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
)

// Decode parses a JSON document into the tree model. Mapping order is taken
// from the input, numbers are kept as json.Number so they are written back
// unchanged, and nesting depth is bounded only by memory.
func Decode(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	type frame struct {
		obj     *Object
		arr     *Array
		key     string
		haveKey bool
	}

	var (
		stack    []*frame
		root     any
		haveRoot bool
	)

	attach := func(v any) {
		if len(stack) == 0 {
			root, haveRoot = v, true
			return
		}
		top := stack[len(stack)-1]
		if top.arr != nil {
			top.arr.Append(v)
			return
		}
		top.obj.Set(top.key, v)
		top.haveKey = false
	}

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if haveRoot && len(stack) == 0 {
			return nil, errors.New("unexpected data after top-level value")
		}

		// Inside a mapping every other token is a key.
		if n := len(stack); n > 0 && stack[n-1].obj != nil && !stack[n-1].haveKey {
			if d, ok := tok.(json.Delim); ok && d == '}' {
				stack = stack[:n-1]
				continue
			}
			key, ok := tok.(string)
			if !ok {
				return nil, fmt.Errorf("expected object key, got %v", tok)
			}
			stack[n-1].key = key
			stack[n-1].haveKey = true
			continue
		}

		switch t := tok.(type) {
		case json.Delim:
			switch t {
			case '{':
				o := NewObject()
				attach(o)
				stack = append(stack, &frame{obj: o})
			case '[':
				a := NewArray()
				attach(a)
				stack = append(stack, &frame{arr: a})
			case ']', '}':
				stack = stack[:len(stack)-1]
			}
		default:
			attach(t)
		}
	}

	if !haveRoot {
		return nil, errors.New("empty document")
	}
	if len(stack) > 0 {
		return nil, io.ErrUnexpectedEOF
	}
	return root, nil
}

// ---------------------------------------------------------------------------
// File loading
// ---------------------------------------------------------------------------

// Role names the part a document plays in a sync, for error messages.
type Role string

const (
	RoleTemplate Role = "template"
	RoleTarget   Role = "target"
)

// LoadError is returned by LoadFile. NotFound separates a missing file from
// one that exists but cannot be read or parsed.
type LoadError struct {
	Role     Role
	Path     string
	NotFound bool
	Err      error
}

func (e *LoadError) Error() string {
	if e.NotFound {
		return fmt.Sprintf("%s file not found: %s", e.Role, e.Path)
	}
	return fmt.Sprintf("%s file %s: %v", e.Role, e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is a LoadError for a missing file.
func IsNotFound(err error) bool {
	var le *LoadError
	return errors.As(err, &le) && le.NotFound
}

// LoadFile reads and decodes the JSON document at path.
func LoadFile(path string, role Role) (any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Role: role, Path: path, NotFound: errors.Is(err, os.ErrNotExist), Err: err}
	}
	root, err := Decode(data)
	if err != nil {
		return nil, &LoadError{Role: role, Path: path, Err: fmt.Errorf("invalid JSON: %w", err)}
	}
	return root, nil
}
