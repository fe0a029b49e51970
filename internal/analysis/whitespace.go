package analysis

import (
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// WhitespaceAnalyzer splits NFC-normalized text on whitespace. Punctuation
// stays attached to its word, so "end." is one token. Runs of whitespace
// holding a line break still yield a LineBreak token, which the automaton
// skips by default.
type WhitespaceAnalyzer struct{}

// NewWhitespaceAnalyzer creates a new WhitespaceAnalyzer.
func NewWhitespaceAnalyzer() *WhitespaceAnalyzer {
	return &WhitespaceAnalyzer{}
}

// Normalize returns the form of text whose byte offsets Analyze reports.
func (a *WhitespaceAnalyzer) Normalize(text string) string {
	return norm.NFC.String(text)
}

// Analyze splits the NFC form of text into whitespace-separated terms.
func (a *WhitespaceAnalyzer) Analyze(text string) []Token {
	text = a.Normalize(text)

	var tokens []Token
	i := 0
	for i < len(text) {
		start := i
		r, size := utf8.DecodeRuneInString(text[i:])
		if unicode.IsSpace(r) {
			var breaks bool
			i, breaks = spaceRun(text, i)
			if breaks {
				tokens = append(tokens, Token{Term: LineBreak, Position: len(tokens), StartByte: start, EndByte: i})
			}
			continue
		}

		for i += size; i < len(text); i += size {
			r, size = utf8.DecodeRuneInString(text[i:])
			if unicode.IsSpace(r) {
				break
			}
		}
		tokens = append(tokens, Token{Term: text[start:i], Position: len(tokens), StartByte: start, EndByte: i})
	}
	return tokens
}
