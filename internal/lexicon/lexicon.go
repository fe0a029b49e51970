// Package lexicon interns terms to dense integer identifiers and supplies the
// identifier-resolution side of the automaton: sentinel ids, pattern-word
// resolution and the case and stem normalizers used as token transforms.
package lexicon

import (
	"log/slog"
	"sync"

	"github.com/pkg/errors"

	"TokenFSM/internal/automaton"
)

// Reserved identifiers.
const (
	LineBreakID   = 0
	EndOfStreamID = 1
)

// DefaultStemLanguage is the snowball language used when none is configured.
const DefaultStemLanguage = "english"

var ErrUnknownID = errors.New("unknown lexicon id")

// Options configures a Lexicon.
type Options struct {
	// CacheSize bounds each normalizer's memo. <= 0 uses DefaultCacheSize.
	CacheSize int
	// StemLanguage selects the snowball stemmer.
	StemLanguage string
	Logger       *slog.Logger
}

// Lexicon is a concurrency-safe term dictionary. Ids are assigned densely
// in first-seen order and never change.
type Lexicon struct {
	mu    sync.RWMutex
	ids   map[string]int
	terms []string

	cacheSize int
	language  string
	logger    *slog.Logger
}

// New creates a lexicon holding only the reserved terms.
func New(opts Options) (*Lexicon, error) {
	if opts.StemLanguage == "" {
		opts.StemLanguage = DefaultStemLanguage
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = DefaultCacheSize
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if err := checkLanguage(opts.StemLanguage); err != nil {
		return nil, err
	}

	l := &Lexicon{
		ids:       make(map[string]int),
		cacheSize: opts.CacheSize,
		language:  opts.StemLanguage,
		logger:    opts.Logger.With("component", "lexicon"),
	}
	l.Intern(automaton.DefaultLineBreak)
	l.Intern(automaton.DefaultEndOfStream)
	return l, nil
}

// Intern returns the id of term, assigning the next id if it is new.
func (l *Lexicon) Intern(term string) int {
	l.mu.RLock()
	id, ok := l.ids[term]
	l.mu.RUnlock()
	if ok {
		return id
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if id, ok := l.ids[term]; ok {
		return id
	}
	id = len(l.terms)
	l.ids[term] = id
	l.terms = append(l.terms, term)
	return id
}

// InternAll interns every term in order.
func (l *Lexicon) InternAll(terms []string) []int {
	ids := make([]int, len(terms))
	for i, t := range terms {
		ids[i] = l.Intern(t)
	}
	return ids
}

// ID returns the id of term if it has been interned.
func (l *Lexicon) ID(term string) (int, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	id, ok := l.ids[term]
	return id, ok
}

// Value returns the term for id.
func (l *Lexicon) Value(id int) (string, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if id < 0 || id >= len(l.terms) {
		return "", false
	}
	return l.terms[id], true
}

// Values maps ids back to terms.
func (l *Lexicon) Values(ids []int) ([]string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]string, len(ids))
	for i, id := range ids {
		if id < 0 || id >= len(l.terms) {
			return nil, errors.Wrapf(ErrUnknownID, "%d at %d", id, i)
		}
		out[i] = l.terms[id]
	}
	return out, nil
}

// Size returns the number of interned terms.
func (l *Lexicon) Size() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.terms)
}

// Language returns the stemmer language.
func (l *Lexicon) Language() string {
	return l.language
}
