// Package referral provides referral code generation and normalization.
//
// Codes use a restricted alphabet that excludes visually ambiguous
// characters (0/O, 1/I/L) so codes survive being read aloud or retyped
// from a screenshot.
package referral

import (
	"crypto/rand"
	"fmt"
	"strings"
)

const (
	// Alphabet is the restricted code alphabet: uppercase alphanumerics
	// minus 0, O, 1, I, and L.
	Alphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

	// CodeLength is the fixed code length. 31^8 ≈ 8.5e11 values keeps the
	// collision retry loop a formality even at large user counts.
	CodeLength = 8
)

// Generate returns a new random referral code. Bytes at or above the largest
// multiple of the alphabet size are rejected, so every character is drawn
// uniformly rather than favoring the front of the alphabet.
func Generate() (string, error) {
	const limit = 256 - 256%len(Alphabet)

	code := make([]byte, 0, CodeLength)
	buf := make([]byte, CodeLength)
	for len(code) < CodeLength {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("generate referral code: %w", err)
		}
		for _, b := range buf {
			if int(b) >= limit {
				continue
			}
			code = append(code, Alphabet[int(b)%len(Alphabet)])
			if len(code) == CodeLength {
				break
			}
		}
	}
	return string(code), nil
}

// Normalize uppercases and trims a user-supplied code.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Valid reports whether a normalized code has the right shape.
// Ambiguous characters never appear in issued codes, so their presence
// means a typo, not a different encoding of a real code.
func Valid(code string) bool {
	if len(code) != CodeLength {
		return false
	}
	for _, c := range code {
		if !strings.ContainsRune(Alphabet, c) {
			return false
		}
	}
	return true
}
