package lexicon

import (
	"strings"

	lru "github.com/hashicorp/golang-lru"
	"github.com/kljensen/snowball"
	"github.com/pkg/errors"

	"TokenFSM/internal/automaton"
)

// DefaultCacheSize bounds each normalizer memo.
const DefaultCacheSize = 8192

var ErrUnsupportedLanguage = errors.New("unsupported stem language")

// Normalizer folds a term before it is looked up or learned.
type Normalizer func(term string) string

// Lower folds case.
func Lower(term string) string {
	return strings.ToLower(term)
}

// Stemmer returns a Normalizer that lower-cases and stems terms in the
// lexicon's language. Stop words are stemmed too.
func (l *Lexicon) Stemmer() Normalizer {
	return func(term string) string {
		lowered := strings.ToLower(term)
		stemmed, err := snowball.Stem(lowered, l.language, true)
		if err != nil {
			l.logger.Debug("stem failed", "term", term, "error", err)
			return lowered
		}
		return stemmed
	}
}

func checkLanguage(language string) error {
	if _, err := snowball.Stem("test", language, true); err != nil {
		return errors.Wrapf(ErrUnsupportedLanguage, "%q", language)
	}
	return nil
}

func isReserved(term string) bool {
	return term == automaton.DefaultLineBreak || term == automaton.DefaultEndOfStream
}

// Transform adapts n to a token transform over lexicon ids. A token whose
// normalized form was never interned is returned unchanged, so recognition
// never grows the lexicon. Normalized terms are memoised per id.
func (l *Lexicon) Transform(n Normalizer) automaton.TransformFunc[int] {
	if n == nil {
		return nil
	}
	cache, err := lru.New(l.cacheSize)
	if err != nil {
		// Only reachable with a non-positive size, which New rules out.
		panic(err)
	}
	return func(id int, _ any, _ int) int {
		var folded string
		if v, ok := cache.Get(id); ok {
			folded = v.(string)
		} else {
			term, ok := l.Value(id)
			if !ok || isReserved(term) {
				return id
			}
			folded = n(term)
			cache.Add(id, folded)
		}
		if to, ok := l.ID(folded); ok {
			return to
		}
		return id
	}
}

// Resolver returns an automaton.Resolver over this lexicon. Pattern words
// are folded with n (which may be nil) before interning so that learned
// patterns meet the same normal form the token transform produces.
func (l *Lexicon) Resolver(n Normalizer) automaton.Resolver[int] {
	return resolver{lex: l, normalize: n}
}

type resolver struct {
	lex       *Lexicon
	normalize Normalizer
}

func (r resolver) EndOfStream() int { return EndOfStreamID }

func (r resolver) LineBreak() int { return LineBreakID }

func (r resolver) FromText(word string) (int, error) {
	if word == "" {
		return 0, errors.New("empty pattern word")
	}
	if !isReserved(word) && r.normalize != nil {
		word = r.normalize(word)
	}
	return r.lex.Intern(word), nil
}
