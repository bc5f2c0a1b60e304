package analyzer

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	gibberishMinLength   = 8
	gibberishVowelRatio  = 0.15
	gibberishVowelsLower = "aeiouáéíóúâêôãõ"
)

// IsGibberish reports whether text looks like keyboard mashing: a single
// long alphabetic token with almost no vowels. No model call is made.
func IsGibberish(text string) bool {
	t := strings.TrimSpace(text)
	if strings.IndexFunc(t, unicode.IsSpace) >= 0 {
		return false
	}

	length := utf8.RuneCountInString(t)
	if length < gibberishMinLength {
		return false
	}

	vowels := 0
	for _, r := range t {
		if !unicode.IsLetter(r) {
			return false
		}
		if strings.ContainsRune(gibberishVowelsLower, unicode.ToLower(r)) {
			vowels++
		}
	}

	return float64(vowels)/float64(length) < gibberishVowelRatio
}
