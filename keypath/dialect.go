package keypath

import (
	"fmt"
	"strings"
)

// Dialect selects the textual notation of a path.
type Dialect int

const (
	// Dotted joins every segment with '.', including sequence positions.
	Dotted Dialect = iota
	// Bracketed writes sequence positions as [N] appended to the previous
	// segment.
	Bracketed
)

// ParseDialect accepts "dotted" or "bracketed" (case-insensitive).
func ParseDialect(s string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "dotted", "dot":
		return Dotted, nil
	case "bracketed", "bracket":
		return Bracketed, nil
	default:
		return Dotted, fmt.Errorf("unknown path dialect %q (want dotted or bracketed)", s)
	}
}

func (d Dialect) String() string {
	if d == Bracketed {
		return "bracketed"
	}
	return "dotted"
}

// Set implements pflag.Value.
func (d *Dialect) Set(s string) error {
	v, err := ParseDialect(s)
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// Type implements pflag.Value.
func (d *Dialect) Type() string {
	return "dialect"
}

// UnmarshalText allows dialects in YAML and other text-based configs.
func (d *Dialect) UnmarshalText(text []byte) error {
	return d.Set(string(text))
}

// MarshalText renders the dialect name.
func (d Dialect) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}
