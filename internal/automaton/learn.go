package automaton

import (
	"sort"

	"github.com/pkg/errors"
)

var (
	ErrEmptyPattern   = errors.New("pattern expands to an empty token sequence")
	ErrReservedToken  = errors.New("pattern uses a reserved token")
	ErrMalformedModel = errors.New("malformed automaton model")
)

// literal is one fully expanded pattern ready for insertion.
type literal[T Token] struct {
	name    string
	discard bool
	tokens  []T
	mark    *Mark
	custom  any
}

// Learn adds patterns to the automaton and returns the number of distinct
// terminal names it now holds. Every pattern is validated before any table
// is touched, so a failed call leaves the automaton unchanged.
func (a *Automaton[T]) Learn(patterns []Pattern[T]) (int, error) {
	literals, err := a.expand(patterns)
	if err != nil {
		return 0, err
	}

	// Longer patterns must claim their deeper states before a shorter one
	// sharing the prefix is attached through an otherwise edge.
	sort.SliceStable(literals, func(i, j int) bool {
		return len(literals[i].tokens) > len(literals[j].tokens)
	})
	for _, l := range literals {
		a.insert(l)
	}

	n := len(a.Names())
	a.logger.Debug("patterns learned",
		"patterns", len(patterns),
		"literals", len(literals),
		"states", a.lastUsed,
		"names", n,
	)
	return n, nil
}

func (a *Automaton[T]) expand(patterns []Pattern[T]) ([]literal[T], error) {
	var literals []literal[T]
	for i, p := range patterns {
		discard := p.Discard || p.Name == DiscardName

		var seqs [][]T
		if len(p.Tokens) > 0 {
			seqs = [][]T{p.Tokens}
		} else {
			for _, words := range compilePattern(p.Text, a.logger) {
				seq := make([]T, len(words))
				for k, w := range words {
					tok, err := a.resolver.FromText(w)
					if err != nil {
						return nil, errors.Wrapf(err, "pattern %d (%q)", i, p.Name)
					}
					seq[k] = tok
				}
				seqs = append(seqs, seq)
			}
		}

		for _, seq := range seqs {
			if len(seq) == 0 {
				return nil, errors.Wrapf(ErrEmptyPattern, "pattern %d (%q)", i, p.Name)
			}
			if isTextMode[T]() {
				for _, tok := range seq {
					if formatToken(tok) == OtherwiseKey {
						return nil, errors.Wrapf(ErrReservedToken, "pattern %d (%q): %q", i, p.Name, OtherwiseKey)
					}
				}
			}
			literals = append(literals, literal[T]{
				name:    p.Name,
				discard: discard,
				tokens:  seq,
				mark:    p.Mark,
				custom:  p.Custom,
			})
		}
	}
	return literals, nil
}

// insert walks l from the root, extending the table so that l ends at a
// fresh terminal without disturbing any previously learned path.
func (a *Automaton[T]) insert(l literal[T]) {
	state, goBackTo := Root, Root
	last := len(l.tokens) - 1

	for k, tok := range l.tokens {
		next, ok := a.transitions[state][tok]
		switch {
		case !ok:
			next = a.newState(goBackTo)
			a.transitions[state][tok] = next

		case a.isTerminal(next):
			// A shorter pattern ends here. Route this token through a fresh
			// state that falls back to the old terminal.
			fresh := a.newState(next)
			a.transitions[state][tok] = fresh
			goBackTo = next
			next = fresh

		case k == last:
			// l is a strict prefix of a longer learned path: hang its
			// terminal off the shared state's otherwise edge.
			fresh := a.newState(Root)
			if old := a.otherwise[next]; old != Root {
				a.retarget(next, old, fresh)
			}
			a.otherwise[next] = fresh
			next = fresh
		}
		state = next
	}

	a.terminals[state] = terminal{name: l.name, discard: l.discard}
	if l.mark != nil {
		m := NormalizeMark(*l.mark, len(l.tokens))
		a.marks[state] = markOffsets{head: m.First, tail: last - m.Last}
	}
	if l.custom != nil {
		a.custom[state] = l.custom
	}
}

// retarget points every state below s that falls back to old at fresh, the
// nearer terminal now hanging off s.
func (a *Automaton[T]) retarget(s, old, fresh State) {
	seen := map[State]bool{s: true}
	stack := []State{s}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, next := range a.transitions[cur] {
			if seen[next] {
				continue
			}
			seen[next] = true
			if a.otherwise[next] == old {
				a.otherwise[next] = fresh
			}
			stack = append(stack, next)
		}
	}
}
