package referral

import (
	"strings"
	"testing"
)

func TestGenerate(t *testing.T) {
	seen := make(map[string]bool)
	charCounts := make(map[rune]int)
	for i := 0; i < 200; i++ {
		code, err := Generate()
		if err != nil {
			t.Fatalf("Generate() error = %v", err)
		}
		if len(code) != CodeLength {
			t.Fatalf("Generate() length = %d, want %d", len(code), CodeLength)
		}
		for _, c := range code {
			if !strings.ContainsRune(Alphabet, c) {
				t.Fatalf("Generate() produced %q outside the alphabet", c)
			}
			charCounts[c]++
		}
		if !Valid(code) {
			t.Fatalf("Generate() produced invalid code %q", code)
		}
		seen[code] = true
	}
	// Not a uniqueness proof, but 200 identical draws means a broken source.
	if len(seen) < 2 {
		t.Error("Generate() returned the same code repeatedly")
	}
	// 1600 uniform draws over 31 characters miss one with probability
	// well under 1e-20; a hole means the sampling loop is broken.
	for _, c := range Alphabet {
		if charCounts[c] == 0 {
			t.Errorf("character %q never drawn across 1600 samples", c)
		}
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"already normal", "ABCDEF23", "ABCDEF23"},
		{"lowercase", "abcdef23", "ABCDEF23"},
		{"surrounding whitespace", "  ABCDEF23\n", "ABCDEF23"},
		{"mixed", " abcDEF23 ", "ABCDEF23"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.in); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestValid(t *testing.T) {
	tests := []struct {
		name string
		code string
		want bool
	}{
		{"valid", "ABCDEF23", true},
		{"all digits from alphabet", "23456789", true},
		{"too short", "ABCDEF2", false},
		{"too long", "ABCDEF234", false},
		{"empty", "", false},
		{"ambiguous zero", "ABCDEF20", false},
		{"ambiguous letter O", "ABCDEFO2", false},
		{"ambiguous one", "ABCDEF21", false},
		{"ambiguous letter I", "ABCDEFI2", false},
		{"ambiguous letter L", "ABCDEFL2", false},
		{"lowercase not normalized", "abcdef23", false},
		{"punctuation", "ABC-EF23", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Valid(tt.code); got != tt.want {
				t.Errorf("Valid(%q) = %v, want %v", tt.code, got, tt.want)
			}
		})
	}
}
