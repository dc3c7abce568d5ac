package langmeta

import "testing"

func TestCanonicalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{in: "pt_br", want: "pt-BR"},
		{in: " EN-us ", want: "en-US"},
		{in: "ru", want: "ru"},
		{in: "", want: ""},
	}

	for _, tc := range cases {
		got := canonicalize(tc.in)
		if got != tc.want {
			t.Fatalf("canonicalize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestCanonical(t *testing.T) {
	for in, want := range map[string]string{
		"de":    "de",
		"pt-br": "pt-BR",
		"EN-GB": "en-GB",
	} {
		if got := Canonical(in); got != want {
			t.Fatalf("Canonical(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestResolve(t *testing.T) {
	t.Run("english name", func(t *testing.T) {
		got := Resolve("de")
		if got.English != "German" || !got.Known {
			t.Fatalf("unexpected result: %#v", got)
		}
		if got.Native != "Deutsch" {
			t.Fatalf("Native = %q, want Deutsch", got.Native)
		}
	})

	t.Run("explicit region flag", func(t *testing.T) {
		got := Resolve("fr-CA")
		if got.Flag != "🇨🇦" {
			t.Fatalf("Flag = %q, want 🇨🇦", got.Flag)
		}
	})

	t.Run("likely region flag", func(t *testing.T) {
		got := Resolve("ja")
		if got.Flag != "🇯🇵" {
			t.Fatalf("Flag = %q, want 🇯🇵", got.Flag)
		}
	})

	t.Run("unknown passthrough", func(t *testing.T) {
		got := Resolve("not a language")
		if got.English != "not a language" || got.Flag != "" || got.Known {
			t.Fatalf("unexpected unknown result: %#v", got)
		}
	})
}

func TestEnglishNameForPrompts(t *testing.T) {
	cases := map[string]string{
		"es": "Spanish",
		"ru": "Russian",
		"ja": "Japanese",
	}
	for code, want := range cases {
		if got := EnglishName(code); got != want {
			t.Errorf("EnglishName(%q) = %q, want %q", code, got, want)
		}
	}
}

func TestFlag(t *testing.T) {
	if got := flag("de"); got != "🇩🇪" {
		t.Fatalf("flag(de) = %q", got)
	}
	if got := flag("419"); got != "" {
		t.Fatalf("flag(419) = %q, want empty", got)
	}
}
