package automaton

import (
	"log/slog"
	"math"
	"strings"
)

// Expansion sizes past which CompilePattern reports a diagnostic. Neither
// is a hard limit.
const (
	ExpansionWarnLimit  = 512
	ExpansionErrorLimit = 65536
)

// CompilePattern expands the alternation syntax "[a] [b|c]" into the
// cartesian product of its groups, each combination split on whitespace.
// Text outside brackets is a fixed phrase. A string with no bracket group
// yields one sequence, the whitespace-split text.
func CompilePattern(text string) [][]string {
	return compilePattern(text, slog.Default())
}

// ExpansionSize returns how many sequences CompilePattern would produce,
// saturating at math.MaxInt.
func ExpansionSize(text string) int {
	groups := parseGroups(text)
	if groups == nil {
		return 1
	}
	return productSize(groups)
}

func compilePattern(text string, logger *slog.Logger) [][]string {
	groups := parseGroups(text)
	if groups == nil {
		return [][]string{strings.Fields(text)}
	}

	size := productSize(groups)
	switch {
	case size > ExpansionErrorLimit:
		logger.Error("pattern expansion exceeds hard guard", "pattern", text, "size", size, "limit", ExpansionErrorLimit)
	case size > ExpansionWarnLimit:
		logger.Warn("pattern expansion is large", "pattern", text, "size", size, "limit", ExpansionWarnLimit)
	}

	combos := [][]string{nil}
	for _, alts := range groups {
		next := make([][]string, 0, len(combos)*len(alts))
		for _, prefix := range combos {
			for _, alt := range alts {
				words := strings.Fields(alt)
				seq := make([]string, 0, len(prefix)+len(words))
				seq = append(seq, prefix...)
				seq = append(seq, words...)
				next = append(next, seq)
			}
		}
		combos = next
	}
	return combos
}

// parseGroups splits text into phrase groups, each a list of alternatives.
// It returns nil when text holds no complete bracket group. An unterminated
// '[' and everything after it is treated as literal text.
func parseGroups(text string) [][]string {
	var groups [][]string
	found := false
	rest := text
	for {
		open := strings.IndexByte(rest, '[')
		if open < 0 {
			break
		}
		end := strings.IndexByte(rest[open+1:], ']')
		if end < 0 {
			break
		}
		end += open + 1
		if lit := strings.TrimSpace(rest[:open]); lit != "" {
			groups = append(groups, []string{lit})
		}
		groups = append(groups, strings.Split(rest[open+1:end], "|"))
		found = true
		rest = rest[end+1:]
	}
	if !found {
		return nil
	}
	if lit := strings.TrimSpace(rest); lit != "" {
		groups = append(groups, []string{lit})
	}
	return groups
}

func productSize(groups [][]string) int {
	size := 1
	for _, alts := range groups {
		n := len(alts)
		if size > math.MaxInt/n {
			return math.MaxInt
		}
		size *= n
	}
	return size
}
