package pipeline

import (
	"encoding/json"
	"strconv"

	"TokenFSM/internal/analysis"
	"TokenFSM/internal/automaton"
)

// Entity is a match of one stage resolved against the analyzed text.
// Start and End are inclusive token indices; StartByte and EndByte index
// Document.Text.
type Entity struct {
	Stage     string `json:"stage"`
	Name      string `json:"name"`
	Start     int    `json:"start"`
	End       int    `json:"end"`
	StartByte int    `json:"startByte"`
	EndByte   int    `json:"endByte"`
	Literal   string `json:"literal,omitempty"`
	Custom    any    `json:"custom,omitempty"`
}

// Span is an inclusive token range.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Document is the result of running a pipeline over one text.
type Document struct {
	// Text is the analyzed form of the input.
	Text     string           `json:"text"`
	Tokens   []analysis.Token `json:"-"`
	IDs      []int            `json:"-"`
	Entities []Entity         `json:"entities"`

	kinds   map[string]string
	matches map[string][]automaton.Match
}

// Terms returns the analyzed terms.
func (d *Document) Terms() []string {
	return analysis.Terms(d.Tokens)
}

// Stage returns the entities of one stage in ascending start order.
func (d *Document) Stage(name string) []Entity {
	var out []Entity
	for _, e := range d.Entities {
		if e.Stage == name {
			out = append(out, e)
		}
	}
	return out
}

func (d *Document) ofKind(kind string) []Entity {
	var out []Entity
	for _, e := range d.Entities {
		if d.kinds[e.Stage] == kind {
			out = append(out, e)
		}
	}
	return out
}

// Sentences splits the tokens after every sentence-boundary entity. Line
// break tokens at a sentence start are skipped. Without an sbd stage the
// whole document is one sentence.
func (d *Document) Sentences() []Span {
	n := len(d.Tokens)
	if n == 0 {
		return nil
	}
	boundary := make(map[int]bool)
	for _, e := range d.ofKind(KindSBD) {
		boundary[e.End] = true
	}

	var spans []Span
	start := -1
	for i, tok := range d.Tokens {
		if start < 0 {
			if tok.Term == analysis.LineBreak {
				continue
			}
			start = i
		}
		if boundary[i] {
			spans = append(spans, Span{Start: start, End: i})
			start = -1
		}
	}
	if start >= 0 {
		spans = append(spans, Span{Start: start, End: n - 1})
	}
	return spans
}

// Tags returns the part-of-speech name covering each token, or "" where
// no pos entity applies.
func (d *Document) Tags() []string {
	tags := make([]string, len(d.Tokens))
	for _, e := range d.ofKind(KindPOS) {
		for i := e.Start; i <= e.End && i < len(tags); i++ {
			tags[i] = e.Name
		}
	}
	return tags
}

// Sentiment sums the numeric custom scores of sentiment entities. A score
// is negated when a negation entity ends within the two tokens before it,
// or overlaps it.
func (d *Document) Sentiment() float64 {
	negations := d.ofKind(KindNegation)
	negated := func(e Entity) bool {
		for _, n := range negations {
			if n.End >= e.Start-2 && n.Start <= e.End {
				return true
			}
		}
		return false
	}

	var total float64
	for _, e := range d.ofKind(KindSentiment) {
		score, ok := number(e.Custom)
		if !ok {
			continue
		}
		if negated(e) {
			score = -score
		}
		total += score
	}
	return total
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	}
	return 0, false
}
