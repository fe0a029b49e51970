package tokenclass

import (
	"strings"
	"unicode"

	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"

	"TokenFSM/internal/automaton"
)

// Rule kinds.
const (
	KindExact    = "exact"
	KindPrefix   = "prefix"
	KindWildcard = "wildcard"
	KindFuzzy    = "fuzzy"
	KindNumber   = "number"
	KindPunct    = "punct"
	KindTitle    = "title"
)

// DefaultCacheSize is the number of classified terms remembered.
const DefaultCacheSize = 4096

var ErrUnknownRuleKind = errors.New("unknown rule kind")

// Rule maps every term accepted by its matcher to Class.
type Rule struct {
	Kind       string `toml:"kind" json:"kind"`
	Pattern    string `toml:"pattern" json:"pattern,omitempty"`
	Class      string `toml:"class" json:"class"`
	Distance   int    `toml:"distance" json:"distance,omitempty"`
	IgnoreCase bool   `toml:"ignore-case" json:"ignore_case,omitempty"`
}

type compiledRule struct {
	Rule
	matches func(term string) bool
}

// Classifier assigns a class to a term using the first rule that accepts
// it. It is safe for concurrent use.
type Classifier struct {
	rules []compiledRule
	cache *lru.Cache
}

type classification struct {
	class string
	ok    bool
}

// NewClassifier compiles rules in order. cacheSize <= 0 uses
// DefaultCacheSize.
func NewClassifier(rules []Rule, cacheSize int) (*Classifier, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New(cacheSize)
	if err != nil {
		return nil, errors.Wrap(err, "create classifier cache")
	}

	c := &Classifier{cache: cache}
	for i, r := range rules {
		if r.Class == "" {
			return nil, errors.Errorf("rule %d (%s %q) has no class", i, r.Kind, r.Pattern)
		}
		fn, err := compileRule(r)
		if err != nil {
			return nil, errors.Wrapf(err, "rule %d (%s %q)", i, r.Kind, r.Pattern)
		}
		c.rules = append(c.rules, compiledRule{Rule: r, matches: fn})
	}
	return c, nil
}

func compileRule(r Rule) (func(string) bool, error) {
	pattern := r.Pattern
	if r.IgnoreCase {
		pattern = strings.ToLower(pattern)
	}
	fold := func(term string) string {
		if r.IgnoreCase {
			return strings.ToLower(term)
		}
		return term
	}

	var m Matcher
	switch r.Kind {
	case KindExact:
		return func(term string) bool { return fold(term) == pattern }, nil
	case KindNumber:
		return isNumber, nil
	case KindPunct:
		return isPunct, nil
	case KindTitle:
		return isTitle, nil
	case KindPrefix:
		m = NewPrefixMatcher(pattern)
	case KindWildcard:
		w, err := NewWildcardMatcher(pattern)
		if err != nil {
			return nil, err
		}
		m = w
	case KindFuzzy:
		l, err := NewLevenshteinMatcher(pattern, r.Distance)
		if err != nil {
			return nil, err
		}
		m = l
	default:
		return nil, errors.Wrapf(ErrUnknownRuleKind, "%q", r.Kind)
	}
	return func(term string) bool { return Run(m, fold(term)) }, nil
}

// Classify returns the class of the first rule accepting term.
func (c *Classifier) Classify(term string) (string, bool) {
	if v, ok := c.cache.Get(term); ok {
		cl := v.(classification)
		return cl.class, cl.ok
	}
	cl := classification{}
	for _, r := range c.rules {
		if r.matches(term) {
			cl = classification{class: r.Class, ok: true}
			break
		}
	}
	c.cache.Add(term, cl)
	return cl.class, cl.ok
}

// Classes returns the distinct classes in rule order.
func (c *Classifier) Classes() []string {
	seen := make(map[string]bool, len(c.rules))
	var out []string
	for _, r := range c.rules {
		if !seen[r.Class] {
			seen[r.Class] = true
			out = append(out, r.Class)
		}
	}
	return out
}

// TransformText replaces a classified term with its class.
func (c *Classifier) TransformText(token string, _ any, _ int) string {
	if class, ok := c.Classify(token); ok {
		return class
	}
	return token
}

// Vocabulary is the slice of a lexicon needed to classify integer tokens.
type Vocabulary interface {
	Value(id int) (string, bool)
	Intern(term string) int
}

// Transform returns a TransformFunc over lexicon identifiers. Class ids are
// interned up front so recognition never grows the vocabulary.
func (c *Classifier) Transform(v Vocabulary) automaton.TransformFunc[int] {
	classIDs := make(map[string]int)
	for _, class := range c.Classes() {
		classIDs[class] = v.Intern(class)
	}
	return func(id int, _ any, _ int) int {
		term, ok := v.Value(id)
		if !ok {
			return id
		}
		if class, ok := c.Classify(term); ok {
			return classIDs[class]
		}
		return id
	}
}

func isNumber(term string) bool {
	digits := 0
	for i, r := range term {
		switch {
		case unicode.IsDigit(r):
			digits++
		case (r == '.' || r == ',') && i > 0:
		case (r == '-' || r == '+') && i == 0:
		default:
			return false
		}
	}
	return digits > 0
}

func isPunct(term string) bool {
	if term == "" {
		return false
	}
	for _, r := range term {
		if !unicode.IsPunct(r) && !unicode.IsSymbol(r) {
			return false
		}
	}
	return true
}

// isTitle reports whether term starts with an upper-case letter followed by
// at least one rune and no further upper-case letters.
func isTitle(term string) bool {
	n := 0
	for _, r := range term {
		if n == 0 && !unicode.IsUpper(r) {
			return false
		}
		if n > 0 && unicode.IsUpper(r) {
			return false
		}
		n++
	}
	return n > 1
}
