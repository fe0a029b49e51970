package tokenclass

// PrefixMatcher accepts every term starting with a given prefix.
//
// State k+1 means k prefix runes have been matched; state len(prefix)+1
// accepts and loops on any rune.
type PrefixMatcher struct {
	prefix []rune
}

// NewPrefixMatcher creates a matcher for terms with the given prefix.
func NewPrefixMatcher(prefix string) *PrefixMatcher {
	return &PrefixMatcher{prefix: []rune(prefix)}
}

func (m *PrefixMatcher) Start() State {
	return 1
}

func (m *PrefixMatcher) Step(state State, r rune) State {
	if state == DeadState {
		return DeadState
	}
	matched := int(state) - 1
	if matched >= len(m.prefix) {
		return state
	}
	if r != m.prefix[matched] {
		return DeadState
	}
	return state + 1
}

func (m *PrefixMatcher) IsAccept(state State) bool {
	return state != DeadState && int(state)-1 >= len(m.prefix)
}

func (m *PrefixMatcher) CanMatch(state State) bool {
	return state != DeadState
}
