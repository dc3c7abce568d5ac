// Package keypath parses and formats the addresses used to reach leaf values
// inside nested JSON documents.
//
// Two notations are supported:
//
//	dotted     navigation.items.0.label
//	bracketed  navigation.items[0].label   matrix[0][1]   [2].name
//
// Bracketed paths are unambiguous: an index is always written as [N] and a
// bare numeric component after a dot is a mapping key. Empty components
// ("a..b") and indices above MaxIndex are malformed.
//
// Dotted paths are ambiguous: "0" may be a mapping key or a sequence
// position. Parse therefore produces
// a Numeric segment for every canonical all-digit dotted component, and the
// meaning is decided later by the accessor against the actual container
// (sequence => index, mapping => key).
package keypath

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind discriminates the segment variants.
type Kind uint8

const (
	// KindName addresses a mapping key.
	KindName Kind = iota
	// KindIndex addresses a sequence position.
	KindIndex
	// KindNumeric is an all-digit dotted component whose meaning depends on
	// the container it is applied to.
	KindNumeric
)

func (k Kind) String() string {
	switch k {
	case KindName:
		return "name"
	case KindIndex:
		return "index"
	case KindNumeric:
		return "numeric"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Segment is one step of a Path.
type Segment struct {
	Kind Kind
	// Key is the mapping key for KindName and the original digits for
	// KindNumeric.
	Key string
	// Pos is the sequence position for KindIndex and KindNumeric.
	Pos int
}

// Key returns a mapping-key segment.
func Key(name string) Segment {
	return Segment{Kind: KindName, Key: name}
}

// Idx returns a sequence-position segment.
func Idx(pos int) Segment {
	return Segment{Kind: KindIndex, Pos: pos}
}

// Num returns an unresolved numeric segment, as produced by dotted parsing.
func Num(pos int) Segment {
	return Segment{Kind: KindNumeric, Key: strconv.Itoa(pos), Pos: pos}
}

// Index reports the sequence position this segment can address.
func (s Segment) Index() (int, bool) {
	if s.Kind == KindIndex || s.Kind == KindNumeric {
		return s.Pos, true
	}
	return 0, false
}

// Name reports the mapping key this segment can address.
func (s Segment) Name() (string, bool) {
	if s.Kind == KindName || s.Kind == KindNumeric {
		return s.Key, true
	}
	return "", false
}

func (s Segment) String() string {
	if s.Kind == KindIndex {
		return "[" + strconv.Itoa(s.Pos) + "]"
	}
	return s.Key
}

// Path is an ordered, non-empty list of segments.
type Path []Segment

// Child returns a new path with seg appended. The receiver is never shared
// with the result.
func (p Path) Child(seg Segment) Path {
	out := make(Path, len(p)+1)
	copy(out, p)
	out[len(p)] = seg
	return out
}

// Parent returns the path without its last segment.
func (p Path) Parent() Path {
	if len(p) == 0 {
		return nil
	}
	return p[:len(p)-1]
}

// Last returns the final segment. It panics on an empty path.
func (p Path) Last() Segment {
	return p[len(p)-1]
}

// Equal reports whether two paths have identical segments.
func (p Path) Equal(q Path) bool {
	if len(p) != len(q) {
		return false
	}
	for i := range p {
		if p[i] != q[i] {
			return false
		}
	}
	return true
}

// HasPrefix reports whether prefix is a leading part of p.
func (p Path) HasPrefix(prefix Path) bool {
	return len(prefix) <= len(p) && p[:len(prefix)].Equal(prefix)
}

// ID returns a string that identifies the path including segment kinds.
// Unlike the textual notations it never collides, so it is suitable as a
// map key for de-duplication.
func (p Path) ID() string {
	var b strings.Builder
	for _, seg := range p {
		switch seg.Kind {
		case KindIndex:
			b.WriteString("i:")
			b.WriteString(strconv.Itoa(seg.Pos))
		case KindNumeric:
			b.WriteString("d:")
			b.WriteString(seg.Key)
		default:
			b.WriteString("n:")
			b.WriteString(seg.Key)
		}
		b.WriteByte(0x1f)
	}
	return b.String()
}

// String formats the path in bracketed notation.
func (p Path) String() string {
	return Format(p, Bracketed)
}

// ---------------------------------------------------------------------------
// Parsing
// ---------------------------------------------------------------------------

// MaxIndex is the highest sequence position a path may address. Parse
// rejects larger bracketed indices and jsontree never grows a sequence
// past it.
const MaxIndex = 1<<20 - 1

// MalformedPathError reports a path string that cannot be parsed.
type MalformedPathError struct {
	Path   string
	Offset int
	Reason string
}

func (e *MalformedPathError) Error() string {
	return fmt.Sprintf("malformed key path %q at offset %d: %s", e.Path, e.Offset, e.Reason)
}

// Parse converts a path string into segments using the given dialect.
func Parse(s string, d Dialect) (Path, error) {
	if s == "" {
		return nil, &MalformedPathError{Path: s, Reason: "empty path"}
	}
	if d == Bracketed {
		return parseBracketed(s)
	}
	return parseDotted(s), nil
}

// MustParse is like Parse but panics on error. Intended for tests and
// static paths.
func MustParse(s string, d Dialect) Path {
	p, err := Parse(s, d)
	if err != nil {
		panic(err)
	}
	return p
}

func parseDotted(s string) Path {
	parts := strings.Split(s, ".")
	out := make(Path, 0, len(parts))
	for _, part := range parts {
		if n, ok := canonicalNumber(part); ok {
			out = append(out, Segment{Kind: KindNumeric, Key: part, Pos: n})
			continue
		}
		out = append(out, Key(part))
	}
	return out
}

// canonicalNumber accepts "0" and digit strings without a leading zero, up
// to MaxIndex. "01" and larger numbers stay mapping keys because they can
// never address a sequence slot.
func canonicalNumber(s string) (int, bool) {
	if s == "" || (len(s) > 1 && s[0] == '0') {
		return 0, false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil || n > MaxIndex {
		return 0, false
	}
	return n, true
}

func parseBracketed(s string) (Path, error) {
	var out Path
	offset := 0
	for _, comp := range strings.Split(s, ".") {
		var err error
		out, err = parseComponent(s, comp, offset, out)
		if err != nil {
			return nil, err
		}
		offset += len(comp) + 1
	}
	return out, nil
}

// parseComponent handles one dot-separated piece: name, name[1], name[1][2]
// or a bare [1] group.
func parseComponent(full, comp string, offset int, out Path) (Path, error) {
	open := strings.IndexByte(comp, '[')
	if open < 0 {
		if i := strings.IndexByte(comp, ']'); i >= 0 {
			return nil, &MalformedPathError{Path: full, Offset: offset + i, Reason: "unmatched ']'"}
		}
		if comp == "" {
			return nil, &MalformedPathError{Path: full, Offset: offset, Reason: "empty component"}
		}
		return append(out, Key(comp)), nil
	}

	name := comp[:open]
	if i := strings.IndexByte(name, ']'); i >= 0 {
		return nil, &MalformedPathError{Path: full, Offset: offset + i, Reason: "unmatched ']'"}
	}
	if name != "" {
		out = append(out, Key(name))
	}

	pos := open
	for pos < len(comp) {
		if comp[pos] != '[' {
			return nil, &MalformedPathError{Path: full, Offset: offset + pos, Reason: "unexpected text after ']'"}
		}
		end := strings.IndexByte(comp[pos:], ']')
		if end < 0 {
			return nil, &MalformedPathError{Path: full, Offset: offset + pos, Reason: "unmatched '['"}
		}
		digits := comp[pos+1 : pos+end]
		if digits == "" {
			return nil, &MalformedPathError{Path: full, Offset: offset + pos, Reason: "empty index"}
		}
		for i := 0; i < len(digits); i++ {
			if digits[i] < '0' || digits[i] > '9' {
				return nil, &MalformedPathError{Path: full, Offset: offset + pos + 1 + i, Reason: fmt.Sprintf("invalid index %q", digits)}
			}
		}
		n, err := strconv.Atoi(digits)
		if err != nil || n > MaxIndex {
			return nil, &MalformedPathError{Path: full, Offset: offset + pos + 1, Reason: fmt.Sprintf("index %s out of range", digits)}
		}
		out = append(out, Idx(n))
		pos += end + 1
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Formatting
// ---------------------------------------------------------------------------

// Format renders p in the given dialect. Names containing '.' or '[' are
// written verbatim and will not parse back to the same path.
func Format(p Path, d Dialect) string {
	var b strings.Builder
	for i, seg := range p {
		if d == Bracketed && seg.Kind == KindIndex {
			b.WriteByte('[')
			b.WriteString(strconv.Itoa(seg.Pos))
			b.WriteByte(']')
			continue
		}
		if i > 0 {
			b.WriteByte('.')
		}
		if seg.Kind == KindIndex {
			b.WriteString(strconv.Itoa(seg.Pos))
		} else {
			b.WriteString(seg.Key)
		}
	}
	return b.String()
}

// FormatAll renders every path in the given dialect.
func FormatAll(paths []Path, d Dialect) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = Format(p, d)
	}
	return out
}
