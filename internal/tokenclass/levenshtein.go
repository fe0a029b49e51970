package tokenclass

import "github.com/pkg/errors"

// MaxEditDistance bounds fuzzy rules.
const MaxEditDistance = 2

var ErrEditDistanceTooLarge = errors.New("edit distance must be between 0 and 2")

// LevenshteinMatcher accepts terms within edit distance maxDist of target.
// State encoding: state = position*(maxDist+1) + editsUsed + 1, with
// DeadState (0) reserved. Mismatches greedily take whichever edit advances
// furthest through target.
type LevenshteinMatcher struct {
	target  []rune
	maxDist int
}

// NewLevenshteinMatcher creates a matcher for terms near target.
func NewLevenshteinMatcher(target string, maxDist int) (*LevenshteinMatcher, error) {
	if maxDist < 0 || maxDist > MaxEditDistance {
		return nil, ErrEditDistanceTooLarge
	}
	return &LevenshteinMatcher{target: []rune(target), maxDist: maxDist}, nil
}

func (m *LevenshteinMatcher) Start() State {
	return m.encode(0, 0)
}

func (m *LevenshteinMatcher) Step(state State, r rune) State {
	if state == DeadState {
		return DeadState
	}
	pos, edits := m.decode(state)

	// Past the end of target every rune is an insertion.
	if pos >= len(m.target) {
		return m.encode(pos, edits+1)
	}
	if r == m.target[pos] {
		return m.encode(pos+1, edits)
	}
	if edits >= m.maxDist {
		return DeadState
	}

	substitute := m.encode(pos+1, edits+1)
	insert := m.encode(pos, edits+1)
	if pos+1 < len(m.target) && r == m.target[pos+1] {
		// Delete target[pos], then match target[pos+1].
		return m.furthest(substitute, insert, m.encode(pos+2, edits+1))
	}
	return m.furthest(substitute, insert)
}

func (m *LevenshteinMatcher) IsAccept(state State) bool {
	if state == DeadState {
		return false
	}
	pos, edits := m.decode(state)
	return len(m.target)-pos <= m.maxDist-edits
}

func (m *LevenshteinMatcher) CanMatch(state State) bool {
	return state != DeadState
}

func (m *LevenshteinMatcher) encode(pos, edits int) State {
	if edits > m.maxDist || pos > len(m.target)+m.maxDist {
		return DeadState
	}
	return State(pos*(m.maxDist+1) + edits + 1)
}

func (m *LevenshteinMatcher) decode(state State) (pos, edits int) {
	v := int(state) - 1
	return v / (m.maxDist + 1), v % (m.maxDist + 1)
}

func (m *LevenshteinMatcher) furthest(states ...State) State {
	best, bestPos := DeadState, -1
	for _, s := range states {
		if s == DeadState {
			continue
		}
		if pos, _ := m.decode(s); pos > bestPos {
			best, bestPos = s, pos
		}
	}
	return best
}
