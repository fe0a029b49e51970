package tokenclass

import (
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Wildcard pattern limits.
const (
	MaxWildcardPatternLength = 256
	MaxDFAStates             = 4096
)

var (
	ErrWildcardPatternTooLong = errors.New("wildcard pattern exceeds maximum length")
	ErrDFAStateLimitExceeded  = errors.New("DFA state limit exceeded during construction")
)

// WildcardMatcher accepts terms matching a wildcard pattern.
// Supports '*' (zero or more runes) and '?' (exactly one rune).
//
// Construction converts the pattern to a DFA via subset construction over
// the pattern's literal runes plus one class for every other rune.
type WildcardMatcher struct {
	// transitions[state][r] = next state for literal runes of the pattern.
	transitions []map[rune]State
	// other[state] = next state for any rune not in the pattern.
	other     []State
	accepting []bool
}

// NewWildcardMatcher compiles a wildcard pattern into a DFA.
func NewWildcardMatcher(pattern string) (*WildcardMatcher, error) {
	pat := []rune(pattern)
	if len(pat) > MaxWildcardPatternLength {
		return nil, ErrWildcardPatternTooLong
	}
	return subsetConstruct(pat)
}

func (m *WildcardMatcher) Start() State {
	return 1 // State 1 is start; 0 is dead.
}

func (m *WildcardMatcher) Step(state State, r rune) State {
	if state == DeadState || int(state) >= len(m.transitions) {
		return DeadState
	}
	if next, ok := m.transitions[state][r]; ok {
		return next
	}
	return m.other[state]
}

func (m *WildcardMatcher) IsAccept(state State) bool {
	if state == DeadState || int(state) >= len(m.accepting) {
		return false
	}
	return m.accepting[state]
}

func (m *WildcardMatcher) CanMatch(state State) bool {
	return state != DeadState
}

// positions is a set of NFA positions: position k means k pattern runes
// have been consumed.
type positions []int

func (p positions) key() string {
	var b strings.Builder
	for i, k := range p {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(k))
	}
	return b.String()
}

// closure adds the positions reachable by skipping '*'.
func closure(pat []rune, set map[int]bool) positions {
	stack := make([]int, 0, len(set))
	for k := range set {
		stack = append(stack, k)
	}
	for len(stack) > 0 {
		k := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if k < len(pat) && pat[k] == '*' && !set[k+1] {
			set[k+1] = true
			stack = append(stack, k+1)
		}
	}
	out := make(positions, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}

// move computes the successor set. literal reports whether r is one of the
// pattern's literal runes; the "other" class passes literal=false.
func move(pat []rune, from positions, r rune, literal bool) positions {
	next := make(map[int]bool)
	for _, k := range from {
		if k >= len(pat) {
			continue
		}
		switch p := pat[k]; {
		case p == '*':
			next[k] = true
		case p == '?':
			next[k+1] = true
		case literal && p == r:
			next[k+1] = true
		}
	}
	if len(next) == 0 {
		return nil
	}
	return closure(pat, next)
}

// subsetConstruct converts the wildcard NFA into a WildcardMatcher.
// Returns an error if the DFA exceeds MaxDFAStates.
func subsetConstruct(pat []rune) (*WildcardMatcher, error) {
	var alphabet []rune
	seen := make(map[rune]bool)
	for _, r := range pat {
		if r != '*' && r != '?' && !seen[r] {
			seen[r] = true
			alphabet = append(alphabet, r)
		}
	}

	accepts := func(set positions) bool {
		for _, k := range set {
			if k == len(pat) {
				return true
			}
		}
		return false
	}

	// DFA state 0 = dead, state 1 = start.
	m := &WildcardMatcher{
		transitions: []map[rune]State{nil},
		other:       []State{DeadState},
		accepting:   []bool{false},
	}
	add := func(set positions) State {
		id := State(len(m.transitions))
		m.transitions = append(m.transitions, make(map[rune]State, len(alphabet)))
		m.other = append(m.other, DeadState)
		m.accepting = append(m.accepting, accepts(set))
		return id
	}

	start := closure(pat, map[int]bool{0: true})
	ids := map[string]State{start.key(): add(start)}
	queue := []positions{start}

	resolve := func(set positions) (State, error) {
		if set == nil {
			return DeadState, nil
		}
		if id, ok := ids[set.key()]; ok {
			return id, nil
		}
		if len(m.transitions) >= MaxDFAStates {
			return DeadState, ErrDFAStateLimitExceeded
		}
		id := add(set)
		ids[set.key()] = id
		queue = append(queue, set)
		return id, nil
	}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		id := ids[current.key()]

		for _, r := range alphabet {
			next, err := resolve(move(pat, current, r, true))
			if err != nil {
				return nil, err
			}
			m.transitions[id][r] = next
		}
		next, err := resolve(move(pat, current, 0, false))
		if err != nil {
			return nil, err
		}
		m.other[id] = next
	}

	return m, nil
}
