// Package automaton implements a trainable token-sequence recognizer.
//
// An Automaton learns named patterns (token sequences, optionally written in
// the "[a] [b|c]" alternation syntax) into a transition table and then scans
// token streams in a single left-to-right pass, emitting greedy,
// non-overlapping matches. When a longer pattern fails to complete, the walk
// falls back to the longest shorter pattern it passed through.
//
// The same engine backs every recognition stage of the pipeline; each stage
// owns its own instance.
package automaton
