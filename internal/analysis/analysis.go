package analysis

// LineBreak is the term emitted for a run of line breaks.
const LineBreak = "\n"

// Token represents a single token produced by an analyzer.
// StartByte and EndByte index the analyzed (normalized) text.
type Token struct {
	Term      string
	Position  int
	StartByte int
	EndByte   int
}

// Analyzer processes text into a stream of tokens.
// Implementations MUST be safe for concurrent use.
type Analyzer interface {
	// Analyze tokenizes the input text and returns tokens with positions.
	Analyze(text string) []Token
}

// Terms returns the term of every token.
func Terms(tokens []Token) []string {
	if len(tokens) == 0 {
		return nil
	}
	terms := make([]string, len(tokens))
	for i, t := range tokens {
		terms[i] = t.Term
	}
	return terms
}
