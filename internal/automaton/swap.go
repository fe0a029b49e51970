package automaton

// Swap replaces the input span [Start, End] with the single token Token
// during recognition, letting a later pass match over an earlier pass's
// results.
type Swap[T Token] struct {
	Start int
	End   int
	Token T
}

// SwapTable indexes swaps by start position.
type SwapTable[T Token] map[int]Swap[T]

// NewSwapTable builds a start-indexed table from spans. Inverted spans are
// ignored; on duplicate starts the later span wins.
func NewSwapTable[T Token](spans []Swap[T]) SwapTable[T] {
	table := make(SwapTable[T], len(spans))
	for _, s := range spans {
		if s.End < s.Start || s.Start < 0 {
			continue
		}
		table[s.Start] = s
	}
	return table
}

// SwapsFromMatches turns matches into swaps, deriving each substitute token
// from the match name.
func SwapsFromMatches[T Token](matches []Match, token func(name string) T) []Swap[T] {
	spans := make([]Swap[T], len(matches))
	for i, m := range matches {
		spans[i] = Swap[T]{Start: m.Start, End: m.End, Token: token(m.Name)}
	}
	return spans
}

// SetPatternSwap installs the substitution table used by Recognize. A nil
// spans clears substitution.
func (a *Automaton[T]) SetPatternSwap(spans []Swap[T]) {
	if spans == nil {
		a.swap = nil
		return
	}
	a.swap = NewSwapTable(spans)
}

// SetOnPatternDetection registers the detection callback used by Recognize.
// It reports false and keeps the previous callback when fn is nil.
func (a *Automaton[T]) SetOnPatternDetection(fn DetectFunc) bool {
	if fn == nil {
		return false
	}
	a.onDetect = fn
	return true
}
