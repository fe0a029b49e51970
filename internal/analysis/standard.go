package analysis

import (
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// StandardAnalyzer splits NFC-normalized text into words, numbers,
// single-rune punctuation and line-break tokens. Case is preserved.
//
// A word keeps an inner apostrophe, hyphen or period when a word rune
// follows it, so "don't", "e-mail" and "3.14" stay whole. Each run of
// whitespace containing a line break yields one LineBreak token.
type StandardAnalyzer struct{}

// NewStandardAnalyzer creates a new StandardAnalyzer.
func NewStandardAnalyzer() *StandardAnalyzer {
	return &StandardAnalyzer{}
}

// Normalize returns the form of text whose byte offsets Analyze reports.
func (a *StandardAnalyzer) Normalize(text string) string {
	return norm.NFC.String(text)
}

// Analyze tokenizes the NFC form of text.
func (a *StandardAnalyzer) Analyze(text string) []Token {
	text = a.Normalize(text)

	var tokens []Token
	emit := func(term string, start, end int) {
		tokens = append(tokens, Token{
			Term:      term,
			Position:  len(tokens),
			StartByte: start,
			EndByte:   end,
		})
	}

	i := 0
	for i < len(text) {
		r, size := utf8.DecodeRuneInString(text[i:])
		start := i

		switch {
		case unicode.IsSpace(r):
			var breaks bool
			i, breaks = spaceRun(text, i)
			if breaks {
				emit(LineBreak, start, i)
			}

		case isWordRune(r):
			i += size
			for i < len(text) {
				r, size = utf8.DecodeRuneInString(text[i:])
				if isWordRune(r) {
					i += size
					continue
				}
				if isJoiner(r) && i+size < len(text) {
					if next, _ := utf8.DecodeRuneInString(text[i+size:]); isWordRune(next) {
						i += size
						continue
					}
				}
				break
			}
			emit(text[start:i], start, i)

		default:
			i += size
			emit(text[start:i], start, i)
		}
	}

	return tokens
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r) || r == '_'
}

func isJoiner(r rune) bool {
	return r == '\'' || r == '’' || r == '-' || r == '.'
}

// spaceRun returns the end of the whitespace run starting at i and whether
// it holds a line break.
func spaceRun(text string, i int) (int, bool) {
	breaks := false
	for i < len(text) {
		r, size := utf8.DecodeRuneInString(text[i:])
		if !unicode.IsSpace(r) {
			break
		}
		if r == '\n' || r == '\r' {
			breaks = true
		}
		i += size
	}
	return i, breaks
}
