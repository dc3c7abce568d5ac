package keypath

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseBracketed(t *testing.T) {
	tests := []struct {
		in   string
		want Path
	}{
		{"a", Path{Key("a")}},
		{"a.b.c", Path{Key("a"), Key("b"), Key("c")}},
		{"items[0]", Path{Key("items"), Idx(0)}},
		{"items[2].label", Path{Key("items"), Idx(2), Key("label")}},
		{"matrix[0][1]", Path{Key("matrix"), Idx(0), Idx(1)}},
		{"[3].name", Path{Idx(3), Key("name")}},
		{"a.0", Path{Key("a"), Key("0")}},
		{"a.[1]", Path{Key("a"), Idx(1)}},
		{"items[1048575]", Path{Key("items"), Idx(MaxIndex)}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in, Bracketed)
			if err != nil {
				t.Fatalf("Parse(%q) error: %v", tt.in, err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("Parse(%q) mismatch (-want +got):\n%s", tt.in, diff)
			}
		})
	}
}

func TestParseDottedNumericIsDeferred(t *testing.T) {
	got, err := Parse("items.0.label", Dotted)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	want := Path{Key("items"), Num(0), Key("label")}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Parse mismatch (-want +got):\n%s", diff)
	}

	// Leading zeros and signs never address a sequence slot.
	for _, in := range []string{"a.01", "a.-1", "a.1e3"} {
		p := MustParse(in, Dotted)
		if p.Last().Kind != KindName {
			t.Errorf("Parse(%q) last kind = %v, want name", in, p.Last().Kind)
		}
	}

	// Numbers past MaxIndex cannot address a slot either.
	if p := MustParse("a.1048576", Dotted); p.Last().Kind != KindName {
		t.Errorf("Parse(a.1048576) last kind = %v, want name", p.Last().Kind)
	}
	if p := MustParse("a.1048575", Dotted); p.Last() != Num(MaxIndex) {
		t.Errorf("Parse(a.1048575) last = %v, want Num(MaxIndex)", p.Last())
	}

	// Brackets carry no meaning in the dotted dialect.
	p := MustParse("a[0]", Dotted)
	if len(p) != 1 || p[0].Key != "a[0]" {
		t.Fatalf("dotted Parse(a[0]) = %v, want single name segment", p)
	}
}

func TestParseMalformed(t *testing.T) {
	for _, in := range []string{
		"",
		"items[0",
		"items0]",
		"items[]",
		"items[x]",
		"items[-1]",
		"items[0]x",
		"items[0]]",
		"items[99999999999999999999999]",
		"items[9223372036854775807]",
		"items[1048576]",
		"a.",
		".a",
		"a..b",
	} {
		t.Run(in, func(t *testing.T) {
			_, err := Parse(in, Bracketed)
			var mpe *MalformedPathError
			if !errors.As(err, &mpe) {
				t.Fatalf("Parse(%q) error = %v, want *MalformedPathError", in, err)
			}
			if mpe.Path != in {
				t.Fatalf("MalformedPathError.Path = %q, want %q", mpe.Path, in)
			}
		})
	}
}

func TestFormat(t *testing.T) {
	p := Path{Key("nav"), Key("items"), Idx(1), Key("label")}
	if got := Format(p, Bracketed); got != "nav.items[1].label" {
		t.Fatalf("Format(bracketed) = %q, want %q", got, "nav.items[1].label")
	}
	if got := Format(p, Dotted); got != "nav.items.1.label" {
		t.Fatalf("Format(dotted) = %q, want %q", got, "nav.items.1.label")
	}
	root := Path{Idx(0), Idx(2)}
	if got := Format(root, Bracketed); got != "[0][2]" {
		t.Fatalf("Format(root index) = %q, want %q", got, "[0][2]")
	}
	if got := p.String(); got != "nav.items[1].label" {
		t.Fatalf("String() = %q", got)
	}
}

func TestBracketedRoundTrip(t *testing.T) {
	paths := []Path{
		{Key("a")},
		{Key("a"), Idx(0), Idx(1), Key("b")},
		{Idx(7)},
		{Key("x"), Key("0"), Idx(0)},
		{Key("a"), Key("")},
	}
	for _, p := range paths {
		s := Format(p, Bracketed)
		back, err := Parse(s, Bracketed)
		if err != nil {
			t.Fatalf("Parse(Format(%v)) error: %v", p, err)
		}
		if !back.Equal(p) {
			t.Fatalf("round trip %q = %v, want %v", s, back, p)
		}
	}
}

func TestChildDoesNotAlias(t *testing.T) {
	base := make(Path, 1, 4)
	base[0] = Key("root")
	a := base.Child(Key("a"))
	b := base.Child(Key("b"))
	if a[1].Key != "a" || b[1].Key != "b" {
		t.Fatalf("Child aliased backing array: a=%v b=%v", a, b)
	}
}

func TestIDDistinguishesKinds(t *testing.T) {
	if (Path{Key("a"), Idx(0)}).ID() == (Path{Key("a"), Key("0")}).ID() {
		t.Fatal("index and name segments share an ID")
	}
	if (Path{Key("a.b")}).ID() == (Path{Key("a"), Key("b")}).ID() {
		t.Fatal("dotted name collides with two segments")
	}
}

func TestParseDialect(t *testing.T) {
	var d Dialect
	if err := d.Set("Bracketed"); err != nil || d != Bracketed {
		t.Fatalf("Set(Bracketed) = %v, %v", d, err)
	}
	if err := d.Set("dotted"); err != nil || d != Dotted {
		t.Fatalf("Set(dotted) = %v, %v", d, err)
	}
	if err := d.Set("jsonpointer"); err == nil {
		t.Fatal("Set(jsonpointer) expected error")
	}
	if d.Type() != "dialect" {
		t.Fatalf("Type() = %q", d.Type())
	}
}
