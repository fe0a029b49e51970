package analysis

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// KeywordAnalyzer yields the whole NFC-normalized input, minus surrounding
// whitespace, as a single token. It suits gazetteer lookups where a full
// field is one entry.
type KeywordAnalyzer struct{}

// NewKeywordAnalyzer creates a new KeywordAnalyzer.
func NewKeywordAnalyzer() *KeywordAnalyzer {
	return &KeywordAnalyzer{}
}

// Normalize returns the form of text whose byte offsets Analyze reports.
func (a *KeywordAnalyzer) Normalize(text string) string {
	return norm.NFC.String(text)
}

// Analyze returns the trimmed input as one token, or nil when it is blank.
func (a *KeywordAnalyzer) Analyze(text string) []Token {
	text = a.Normalize(text)
	term := strings.TrimSpace(text)
	if term == "" {
		return nil
	}
	start := strings.Index(text, term)
	return []Token{{Term: term, Position: 0, StartByte: start, EndByte: start + len(term)}}
}
