package tokenclass

// State represents a state in a deterministic rune automaton.
type State uint32

// DeadState is the sink state from which no accepting state is reachable.
const DeadState State = 0

// Matcher is a deterministic automaton over the runes of a single token.
// Classifier rules are compiled to Matchers and run against each term.
//
// Properties:
//   - Deterministic: single transition per (state, rune)
//   - Finite: bounded state count
//   - No ε-transitions
type Matcher interface {
	// Start returns the initial state.
	Start() State

	// Step returns the next state for the given rune.
	// Returns DeadState if no transition exists.
	Step(state State, r rune) State

	// IsAccept returns true if the state is an accepting state.
	IsAccept(state State) bool

	// CanMatch returns true if any accepting state is reachable from this state.
	CanMatch(state State) bool
}

// Run feeds term through m rune by rune and reports whether m accepts it.
func Run(m Matcher, term string) bool {
	state := m.Start()
	for _, r := range term {
		state = m.Step(state, r)
		if !m.CanMatch(state) {
			return false
		}
	}
	return m.IsAccept(state)
}
