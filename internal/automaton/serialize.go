package automaton

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/pkg/errors"
)

// OtherwiseKey is the persisted event key of an otherwise edge. It holds a
// space, so no whitespace-split word can collide with it; Learn rejects it
// as a text token.
const OtherwiseKey = " otherwise"

// modelTupleLen is the fixed arity of the persisted model.
const modelTupleLen = 6

// EmptyModelJSON returns the persisted form of an untrained automaton.
func (a *Automaton[T]) EmptyModelJSON() string {
	return emptyModelJSON
}

const emptyModelJSON = `[100,0,{"0":{}},{},{},{}]`

// ExportJSON serializes the learned tables as
// [100, lastUsedState, transitions, terminals, marks, customProperties].
// Output is deterministic: map keys are sorted and custom properties are
// written in canonical form.
func (a *Automaton[T]) ExportJSON() (string, error) {
	transitions := make(map[State]map[string]State, len(a.transitions))
	for s, row := range a.transitions {
		out := make(map[string]State, len(row)+1)
		for tok, next := range row {
			out[formatToken(tok)] = next
		}
		if o := a.otherwise[s]; o != Root {
			out[OtherwiseKey] = o
		}
		transitions[State(s)] = out
	}

	terminals := make(map[State]string, len(a.terminals))
	for s, t := range a.terminals {
		terminals[s] = t.persistedName()
	}

	marks := make(map[State][2]int, len(a.marks))
	for s, m := range a.marks {
		marks[s] = [2]int{m.head, m.tail}
	}

	custom := make(map[State]any, len(a.custom))
	for s, v := range a.custom {
		c, err := canonicalJSON(v)
		if err != nil {
			return "", errors.Wrapf(err, "export custom property of state %d", s)
		}
		custom[s] = c
	}

	data, err := marshalCompact([]any{FormatVersion, a.lastUsed, transitions, terminals, marks, custom})
	if err != nil {
		return "", errors.Wrap(err, "export model")
	}
	return string(data), nil
}

// ImportJSON replaces every learned table with the persisted model in data.
// The automaton is left untouched when data is malformed.
func (a *Automaton[T]) ImportJSON(data string) error {
	var tuple []json.RawMessage
	if err := json.Unmarshal([]byte(data), &tuple); err != nil {
		return errors.Wrapf(ErrMalformedModel, "decode tuple: %v", err)
	}
	if len(tuple) != modelTupleLen {
		return errors.Wrapf(ErrMalformedModel, "tuple has %d elements, want %d", len(tuple), modelTupleLen)
	}

	var version int
	if err := json.Unmarshal(tuple[0], &version); err != nil {
		return errors.Wrapf(ErrMalformedModel, "decode version: %v", err)
	}
	if version != FormatVersion {
		return errors.Wrapf(ErrMalformedModel, "version %d, want %d", version, FormatVersion)
	}

	var lastUsed State
	if err := json.Unmarshal(tuple[1], &lastUsed); err != nil {
		return errors.Wrapf(ErrMalformedModel, "decode last used state: %v", err)
	}
	var rawTransitions map[State]map[string]State
	if err := json.Unmarshal(tuple[2], &rawTransitions); err != nil {
		return errors.Wrapf(ErrMalformedModel, "decode transitions: %v", err)
	}
	var rawTerminals map[State]string
	if err := json.Unmarshal(tuple[3], &rawTerminals); err != nil {
		return errors.Wrapf(ErrMalformedModel, "decode terminals: %v", err)
	}
	var rawMarks map[State][2]int
	if err := json.Unmarshal(tuple[4], &rawMarks); err != nil {
		return errors.Wrapf(ErrMalformedModel, "decode marks: %v", err)
	}
	var rawCustom map[State]any
	dec := json.NewDecoder(bytes.NewReader(tuple[5]))
	dec.UseNumber()
	if err := dec.Decode(&rawCustom); err != nil {
		return errors.Wrapf(ErrMalformedModel, "decode custom properties: %v", err)
	}

	// Every state has a row, so the row count bounds what lastUsed may claim.
	if uint64(len(rawTransitions)) != uint64(lastUsed)+1 {
		return errors.Wrapf(ErrMalformedModel, "%d transition rows for last used state %d", len(rawTransitions), lastUsed)
	}
	inRange := func(s State) bool { return s <= lastUsed }

	terminals := make(map[State]terminal, len(rawTerminals))
	for s, name := range rawTerminals {
		if s == Root || !inRange(s) {
			return errors.Wrapf(ErrMalformedModel, "terminal state %d out of range", s)
		}
		terminals[s] = terminal{name: name, discard: name == DiscardName}
	}

	transitions := make([]map[T]State, int(lastUsed)+1)
	otherwise := make([]State, int(lastUsed)+1)
	for s := range transitions {
		transitions[s] = make(map[T]State)
	}
	for s, row := range rawTransitions {
		if !inRange(s) {
			return errors.Wrapf(ErrMalformedModel, "transition state %d out of range", s)
		}
		for key, next := range row {
			if !inRange(next) {
				return errors.Wrapf(ErrMalformedModel, "state %d: target %d out of range", s, next)
			}
			if key == OtherwiseKey {
				if _, ok := terminals[next]; next != Root && !ok {
					return errors.Wrapf(ErrMalformedModel, "state %d: otherwise target %d is not terminal", s, next)
				}
				otherwise[s] = next
				continue
			}
			tok, err := parseToken[T](key)
			if err != nil {
				return errors.Wrapf(ErrMalformedModel, "state %d: %v", s, err)
			}
			transitions[s][tok] = next
		}
	}

	marks := make(map[State]markOffsets, len(rawMarks))
	for s, m := range rawMarks {
		if _, ok := terminals[s]; !ok {
			return errors.Wrapf(ErrMalformedModel, "mark on non-terminal state %d", s)
		}
		if m[0] < 0 || m[1] < 0 {
			return errors.Wrapf(ErrMalformedModel, "state %d: negative mark offsets %v", s, m)
		}
		marks[s] = markOffsets{head: m[0], tail: m[1]}
	}

	custom := make(map[State]any, len(rawCustom))
	for s, v := range rawCustom {
		if !inRange(s) {
			return errors.Wrapf(ErrMalformedModel, "custom property state %d out of range", s)
		}
		custom[s] = v
	}

	a.transitions = transitions
	a.otherwise = otherwise
	a.terminals = terminals
	a.marks = marks
	a.custom = custom
	a.lastUsed = lastUsed
	a.logger.Debug("model imported", "states", lastUsed, "terminals", len(terminals))
	return nil
}

// canonicalJSON round-trips v through JSON so that re-exporting an imported
// value reproduces the same bytes.
func canonicalJSON(v any) (any, error) {
	data, err := marshalCompact(v)
	if err != nil {
		return nil, err
	}
	var out any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

func marshalCompact(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// stateKey is the persisted form of a state used by diagnostics.
func stateKey(s State) string {
	return strconv.FormatUint(uint64(s), 10)
}
