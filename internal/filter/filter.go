// Package filter evaluates property predicates against stored strings and
// translates natural-language queries into those predicates.
package filter

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/hpungsan/sift/internal/analysis"
	"github.com/hpungsan/sift/internal/errors"
)

// Query parameter names, also used as JSON keys.
const (
	ParamIsPalindrome      = "is_palindrome"
	ParamMinLength         = "min_length"
	ParamMaxLength         = "max_length"
	ParamWordCount         = "word_count"
	ParamContainsCharacter = "contains_character"
)

// Set is a sparse conjunction of predicates. Nil fields impose no
// constraint.
type Set struct {
	IsPalindrome      *bool   `json:"is_palindrome,omitempty"`
	MinLength         *int    `json:"min_length,omitempty"`
	MaxLength         *int    `json:"max_length,omitempty"`
	WordCount         *int    `json:"word_count,omitempty"`
	ContainsCharacter *string `json:"contains_character,omitempty"`
}

// IsEmpty reports whether no predicate is set.
func (s Set) IsEmpty() bool {
	return s.IsPalindrome == nil && s.MinLength == nil && s.MaxLength == nil &&
		s.WordCount == nil && s.ContainsCharacter == nil
}

// Validate rejects negative bounds and a contains_character that is not
// exactly one character. Contradictory bounds are valid; they match nothing.
func (s Set) Validate() error {
	bounds := []struct {
		name string
		v    *int
	}{
		{ParamMinLength, s.MinLength},
		{ParamMaxLength, s.MaxLength},
		{ParamWordCount, s.WordCount},
	}
	for _, b := range bounds {
		if b.v != nil && *b.v < 0 {
			return errors.NewInvalidRequest(fmt.Sprintf("%s must be a non-negative integer", b.name))
		}
	}
	if s.ContainsCharacter != nil && utf8.RuneCountInString(*s.ContainsCharacter) != 1 {
		return errors.NewInvalidRequest("contains_character must be exactly one character")
	}
	return nil
}

// Matches reports whether props satisfies every predicate in set.
func Matches(props analysis.Properties, set Set) bool {
	if set.IsPalindrome != nil && props.IsPalindrome != *set.IsPalindrome {
		return false
	}
	if set.MinLength != nil && props.Length < *set.MinLength {
		return false
	}
	if set.MaxLength != nil && props.Length > *set.MaxLength {
		return false
	}
	if set.WordCount != nil && props.WordCount != *set.WordCount {
		return false
	}
	if set.ContainsCharacter != nil && props.CharacterFrequencyMap[*set.ContainsCharacter] <= 0 {
		return false
	}
	return true
}

// FromQuery builds a validated Set from URL query parameters. Absent or
// empty parameters are ignored.
func FromQuery(q url.Values) (Set, error) {
	var set Set

	if s := q.Get(ParamIsPalindrome); s != "" {
		b, err := parseBool(s)
		if err != nil {
			return Set{}, errors.NewInvalidRequest("is_palindrome must be true or false")
		}
		set.IsPalindrome = &b
	}

	ints := []struct {
		name string
		dst  **int
	}{
		{ParamMinLength, &set.MinLength},
		{ParamMaxLength, &set.MaxLength},
		{ParamWordCount, &set.WordCount},
	}
	for _, p := range ints {
		s := q.Get(p.name)
		if s == "" {
			continue
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return Set{}, errors.NewInvalidRequest(fmt.Sprintf("%s must be a non-negative integer", p.name))
		}
		*p.dst = &n
	}

	if _, ok := q[ParamContainsCharacter]; ok {
		c := q.Get(ParamContainsCharacter)
		set.ContainsCharacter = &c
	}

	if err := set.Validate(); err != nil {
		return Set{}, err
	}
	return set, nil
}

// parseBool accepts the usual spellings of a boolean flag.
func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes", "on", "t":
		return true, nil
	case "false", "0", "no", "off", "f":
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean %q", s)
}

// Bool returns a pointer to b.
func Bool(b bool) *bool { return &b }

// Int returns a pointer to n.
func Int(n int) *int { return &n }

// String returns a pointer to s.
func String(s string) *string { return &s }
