package automaton

import "fmt"

// TransformFunc generalizes a raw token before table lookup, e.g. mapping
// any numeral to a "number" class. index is the token's input position.
type TransformFunc[T Token] func(token T, param any, index int) T

// DetectFunc observes each match before it is returned. It may mutate the
// match in place, typically by appending to Extra. custom is the custom
// property learned with the pattern, or nil.
type DetectFunc func(m *Match, custom any)

// RecognizeConfig is the full per-call configuration of RecognizeWith.
type RecognizeConfig[T Token] struct {
	Transform TransformFunc[T]
	Param     any
	// Swap substitutes previously recognized spans, keyed by start index.
	// Build it with NewSwapTable.
	Swap     SwapTable[T]
	OnDetect DetectFunc
}

// fallback is the shortest-match recovery point remembered during a walk.
// passed holds every fallback terminal already met, so a deeper state that
// still points back at one of them cannot stretch its span.
type fallback struct {
	state  State
	end    int
	passed []State
}

func (f *fallback) offer(s State, end int) {
	for _, p := range f.passed {
		if p == s {
			return
		}
	}
	f.passed = append(f.passed, s)
	f.state = s
	f.end = end
}

// Recognize scans tokens using the instance-level pattern swap and
// detection callback. transform may be nil.
func (a *Automaton[T]) Recognize(tokens []T, transform TransformFunc[T], param any) []Match {
	return a.RecognizeWith(tokens, RecognizeConfig[T]{
		Transform: transform,
		Param:     param,
		Swap:      a.swap,
		OnDetect:  a.onDetect,
	})
}

// RecognizeWith scans tokens once, left to right, and returns the greedy
// non-overlapping matches in ascending start order.
func (a *Automaton[T]) RecognizeWith(tokens []T, cfg RecognizeConfig[T]) []Match {
	var matches []Match
	n := len(tokens)

	for i := 0; i < n; i++ {
		state := Root
		first := i
		fb := fallback{state: Root}
		resume := i
		done := false

		j := i
		for j <= n && !done {
			tok := a.eos
			delta := 1
			if j < n {
				tok = tokens[j]
				if tok == a.ignored {
					j++
					continue
				}
				if s, ok := cfg.Swap[j]; ok {
					tok = s.Token
					delta = s.End - s.Start + 1
				} else if cfg.Transform != nil {
					tok = cfg.Transform(tok, cfg.Param, j)
				}
			}

			next := a.transitions[state][tok]
			if state == Root && next != Root {
				first = j
			}
			end := j + delta - 1

			switch {
			case a.isTerminal(next):
				matches = a.finish(matches, first, end, next, n, cfg.OnDetect)
				resume = end
				done = true
			case next == Root:
				if fb.state != Root {
					matches = a.finish(matches, first, fb.end, fb.state, n, cfg.OnDetect)
					resume = fb.end
				}
				done = true
			default:
				if o := a.otherwise[next]; o != Root {
					fb.offer(o, end)
				}
				state = next
				j += delta
			}
		}

		// The walk ran past the end-of-stream event still mid-pattern.
		if !done && fb.state != Root {
			matches = a.finish(matches, first, fb.end, fb.state, n, cfg.OnDetect)
			resume = fb.end
		}
		i = resume
	}
	return matches
}

// finish applies the terminal's mark, runs the detection callback and
// appends the match unless it is a discard or its span shrank to nothing.
func (a *Automaton[T]) finish(out []Match, start, end int, s State, n int, onDetect DetectFunc) []Match {
	t, ok := a.terminals[s]
	if !ok {
		panic(fmt.Sprintf("automaton: state %d reached as terminal has no name", s))
	}
	if m, ok := a.marks[s]; ok {
		start += m.head
		end -= m.tail
	}
	// A pattern anchored on end-of-stream may reach one past the input.
	if end > n-1 {
		end = n - 1
	}

	match := Match{Start: start, End: end, Name: t.name}
	if onDetect != nil {
		onDetect(&match, a.custom[s])
	}
	if t.discard || match.Start > match.End {
		return out
	}
	return append(out, match)
}
