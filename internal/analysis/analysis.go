// Package analysis computes the derived properties of a string.
package analysis

import (
	"crypto/sha256"
	"encoding/hex"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Properties is the immutable snapshot of everything derived from a value.
type Properties struct {
	// Length is the number of characters (runes, not bytes)
	Length int `json:"length"`

	// IsPalindrome ignores whitespace and case
	IsPalindrome bool `json:"is_palindrome"`

	// UniqueCharacters counts distinct runes with no normalization
	UniqueCharacters int `json:"unique_characters"`

	// WordCount is the number of whitespace-delimited tokens
	WordCount int `json:"word_count"`

	// SHA256Hash is the lowercase hex digest of the UTF-8 bytes; it doubles as the record ID
	SHA256Hash string `json:"sha256_hash"`

	// CharacterFrequencyMap counts every rune, whitespace and punctuation included
	CharacterFrequencyMap map[string]int `json:"character_frequency_map"`
}

// Analyze computes Properties for value. It is total: every string,
// including the empty string, has a result.
func Analyze(value string) Properties {
	freq := CharacterFrequency(value)
	return Properties{
		Length:                CountChars(value),
		IsPalindrome:          IsPalindrome(value),
		UniqueCharacters:      len(freq),
		WordCount:             CountWords(value),
		SHA256Hash:            ID(value),
		CharacterFrequencyMap: freq,
	}
}

// ID derives the content address of value. Create, lookup and delete all
// key off this function.
func ID(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}

// CountChars returns the character count as runes (not bytes).
func CountChars(value string) int {
	return utf8.RuneCountInString(value)
}

// CountWords returns the number of whitespace-separated tokens.
func CountWords(value string) int {
	return len(strings.FieldsFunc(value, isSpace))
}

// isSpace reports unicode.IsSpace runes and the ASCII information
// separators U+001C..U+001F.
func isSpace(r rune) bool {
	return unicode.IsSpace(r) || (r >= '\x1c' && r <= '\x1f')
}

// IsPalindrome reports whether value reads the same backwards once
// whitespace is removed and every rune is lowercased.
func IsPalindrome(value string) bool {
	runes := make([]rune, 0, len(value))
	for _, r := range value {
		if isSpace(r) {
			continue
		}
		runes = append(runes, unicode.ToLower(r))
	}

	reversed := slices.Clone(runes)
	slices.Reverse(reversed)
	return slices.Equal(runes, reversed)
}

// CharacterFrequency tallies every rune in value.
func CharacterFrequency(value string) map[string]int {
	freq := make(map[string]int)
	for _, r := range value {
		freq[string(r)]++
	}
	return freq
}
