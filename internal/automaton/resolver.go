package automaton

import (
	"reflect"
	"strconv"

	"github.com/pkg/errors"
)

// Default sentinels used when no Resolver is supplied.
const (
	DefaultEndOfStream = "<EOS>"
	DefaultLineBreak   = "\n"

	defaultEndOfStreamID = -1
	defaultLineBreakID   = -2
)

// Resolver is the identifier-resolution capability of a lexicon. The
// automaton consults it only while constructing and training; recognition
// never calls back into it.
type Resolver[T Token] interface {
	// EndOfStream is the token a pattern uses to anchor at the input end.
	EndOfStream() T
	// LineBreak is the default ignored token.
	LineBreak() T
	// FromText maps one word of a string pattern to a token.
	FromText(word string) (T, error)
}

type defaultResolver[T Token] struct{}

// DefaultResolver returns the resolver used when none is configured. In
// text mode words map to themselves; in integer mode words must be decimal
// identifiers and the sentinels are negative.
func DefaultResolver[T Token]() Resolver[T] {
	return defaultResolver[T]{}
}

func (defaultResolver[T]) EndOfStream() T {
	return sentinel[T](DefaultEndOfStream, defaultEndOfStreamID)
}

func (defaultResolver[T]) LineBreak() T {
	return sentinel[T](DefaultLineBreak, defaultLineBreakID)
}

func (defaultResolver[T]) FromText(word string) (T, error) {
	return parseToken[T](word)
}

func isTextMode[T Token]() bool {
	var t T
	return reflect.ValueOf(t).Kind() == reflect.String
}

func sentinel[T Token](text string, id int64) T {
	var t T
	v := reflect.ValueOf(&t).Elem()
	if v.Kind() == reflect.String {
		v.SetString(text)
	} else {
		v.SetInt(id)
	}
	return t
}

// formatToken renders a token as its persisted event key.
func formatToken[T Token](t T) string {
	v := reflect.ValueOf(t)
	if v.Kind() == reflect.String {
		return v.String()
	}
	return strconv.FormatInt(v.Int(), 10)
}

func parseToken[T Token](s string) (T, error) {
	var t T
	v := reflect.ValueOf(&t).Elem()
	if v.Kind() == reflect.String {
		v.SetString(s)
		return t, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return t, errors.Wrapf(err, "parse token %q", s)
	}
	v.SetInt(n)
	return t, nil
}
