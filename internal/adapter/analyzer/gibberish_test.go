package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsGibberish(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want bool
	}{
		{"consonant run", "asdfghjk", true},
		{"no vowels", "zxcvbnmq", true},
		{"uppercase consonants", "ZXCVBNMQ", true},
		{"real word", "universidade", false},
		{"accented vowels count", "pãçãçãçã", false},
		{"seven chars", "xkqzjwv", false},
		{"contains space", "asdfghjk qwrtyp", false},
		{"contains digit", "asdfghj1", false},
		{"punctuation", "zxcvbnm!", false},
		{"empty", "", false},
		{"surrounding whitespace trimmed", "  zxcvbnmq  ", true},
		{"tab inside", "zxcvb\tnmq", false},
		{"one vowel in eight", "zxcvbnma", true},
		{"two vowels in eight", "zxcvbnae", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsGibberish(tt.in))
		})
	}
}

func TestIsGibberish_SpaceNeverGibberish(t *testing.T) {
	inputs := []string{"zxcvbnmq zxcvbnmq", "a b", "qwrtypsdfghjklzxcvbnm x"}
	for _, in := range inputs {
		assert.False(t, IsGibberish(in), in)
	}
}

func TestIsGibberish_ShortNeverGibberish(t *testing.T) {
	inputs := []string{"b", "bcdfg", "xkqzjwv", "çççç"}
	for _, in := range inputs {
		assert.False(t, IsGibberish(in), in)
	}
}
