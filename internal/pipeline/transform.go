package pipeline

import (
	"github.com/pkg/errors"

	"TokenFSM/internal/automaton"
	"TokenFSM/internal/lexicon"
	"TokenFSM/internal/tokenclass"
)

// Stage transforms.
const (
	TransformNone      = "none"
	TransformLower     = "lower"
	TransformStem      = "stem"
	TransformHint      = "hint"
	TransformHintLower = "hint+lower"
)

var ErrUnknownTransform = errors.New("unknown transform")

// transformSet pairs a token transform with the normalizer applied to
// pattern words, so that learning and recognition meet in the same form.
type transformSet struct {
	name      string
	transform automaton.TransformFunc[int]
	normalize lexicon.Normalizer
}

// newTransformSet builds the transform named name. protected words, such as
// hint classes and the names of a composed stage, are never normalized.
func newTransformSet(name string, lex *lexicon.Lexicon, hints *tokenclass.Classifier, protected func(string) bool) (transformSet, error) {
	if name == "" {
		name = TransformNone
	}
	ts := transformSet{name: name}

	needsHints := name == TransformHint || name == TransformHintLower
	if needsHints && hints == nil {
		return ts, errors.Errorf("transform %q needs hint rules", name)
	}

	switch name {
	case TransformNone, TransformHint:
	case TransformLower, TransformHintLower:
		ts.normalize = lexicon.Lower
	case TransformStem:
		ts.normalize = lex.Stemmer()
	default:
		return ts, errors.Wrapf(ErrUnknownTransform, "%q", name)
	}

	var fold automaton.TransformFunc[int]
	if ts.normalize != nil {
		fold = lex.Transform(ts.normalize)
		ts.normalize = protect(ts.normalize, protected)
	}
	switch {
	case needsHints && fold != nil:
		ts.transform = chain(hints.Transform(lex), fold)
	case needsHints:
		ts.transform = hints.Transform(lex)
	default:
		ts.transform = fold
	}
	return ts, nil
}

func protect(n lexicon.Normalizer, protected func(string) bool) lexicon.Normalizer {
	if protected == nil {
		return n
	}
	return func(word string) string {
		if protected(word) {
			return word
		}
		return n(word)
	}
}

// chain applies first and falls back to second when first leaves the token
// unchanged.
func chain(first, second automaton.TransformFunc[int]) automaton.TransformFunc[int] {
	return func(token int, param any, index int) int {
		if t := first(token, param, index); t != token {
			return t
		}
		return second(token, param, index)
	}
}
