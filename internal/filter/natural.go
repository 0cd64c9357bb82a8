package filter

import (
	stderrors "errors"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// ErrUnparseable is returned when no rule matched a natural-language query.
var ErrUnparseable = stderrors.New("unparseable query")

// Rule is one interpretation step. Apply inspects the lowercased query and,
// if it recognizes something, writes to set and returns true.
type Rule interface {
	Name() string
	Apply(query string, set *Set) bool
}

// phraseRule fires when the query contains any of its phrases.
type phraseRule struct {
	name    string
	phrases []string
	set     func(*Set)
}

func (r phraseRule) Name() string { return r.name }

func (r phraseRule) Apply(query string, set *Set) bool {
	for _, p := range r.phrases {
		if strings.Contains(query, p) {
			r.set(set)
			return true
		}
	}
	return false
}

// patternRule fires on the first match of its expression. set receives the
// capture groups and may decline the match by returning false.
type patternRule struct {
	name string
	re   *regexp.Regexp
	set  func(s *Set, groups []string) bool
}

func (r patternRule) Name() string { return r.name }

func (r patternRule) Apply(query string, set *Set) bool {
	m := r.re.FindStringSubmatch(query)
	if m == nil {
		return false
	}
	return r.set(set, m[1:])
}

// DefaultRules is the canonical rule order. Every rule is evaluated; when
// two rules write the same field the later one wins.
var DefaultRules = []Rule{
	phraseRule{
		name:    "single_word",
		phrases: []string{"single word", "one word"},
		set:     func(s *Set) { s.WordCount = Int(1) },
	},
	phraseRule{
		name:    "palindrome",
		phrases: []string{"palindrome", "palindromic"},
		set:     func(s *Set) { s.IsPalindrome = Bool(true) },
	},
	patternRule{
		name: "longer_than",
		re:   regexp.MustCompile(`longer than (\d+)`),
		set: func(s *Set, g []string) bool {
			n, err := strconv.Atoi(g[0])
			if err != nil || n == math.MaxInt {
				return false
			}
			s.MinLength = Int(n + 1)
			return true
		},
	},
	patternRule{
		name: "contains_letter",
		re:   regexp.MustCompile(`\bcontain(?:s|ing)? the letter ([a-z])\b`),
		set: func(s *Set, g []string) bool {
			s.ContainsCharacter = String(g[0])
			return true
		},
	},
}

// Interpreter translates natural-language queries into a Set.
type Interpreter struct {
	rules []Rule
}

// NewInterpreter creates an Interpreter over rules, or DefaultRules if none
// are given.
func NewInterpreter(rules ...Rule) *Interpreter {
	if len(rules) == 0 {
		rules = DefaultRules
	}
	return &Interpreter{rules: rules}
}

// Parse applies every rule in order. It returns ErrUnparseable when none
// fired, along with the names of the rules that did fire otherwise.
func (i *Interpreter) Parse(query string) (Set, []string, error) {
	q := strings.ToLower(strings.TrimSpace(query))

	var (
		set   Set
		fired []string
	)
	for _, r := range i.rules {
		if r.Apply(q, &set) {
			fired = append(fired, r.Name())
		}
	}
	if len(fired) == 0 {
		return Set{}, nil, ErrUnparseable
	}
	return set, fired, nil
}

var defaultInterpreter = NewInterpreter()

// ParseNatural parses query with DefaultRules.
func ParseNatural(query string) (Set, error) {
	set, _, err := defaultInterpreter.Parse(query)
	return set, err
}
