package automaton

import (
	"bytes"
	"encoding/json"

	"github.com/pkg/errors"
)

// Pattern is one named pattern definition. Exactly one of Tokens or Text is
// used: Tokens when non-empty, otherwise Text in the alternation syntax.
type Pattern[T Token] struct {
	Name   string
	Tokens []T
	Text   string
	Mark   *Mark
	Custom any
	// Discard registers a disambiguation-only pattern whose matches are
	// never reported. A Name equal to DiscardName implies Discard.
	Discard bool
}

type patternJSON struct {
	Name    string          `json:"name"`
	Pattern json.RawMessage `json:"pattern"`
	Mark    *Mark           `json:"mark,omitempty"`
	Custom  any             `json:"customProperty,omitempty"`
	Discard bool            `json:"discard,omitempty"`
}

// UnmarshalJSON accepts {"name", "pattern", "mark", "customProperty"} where
// pattern is either a string or an array of tokens.
func (p *Pattern[T]) UnmarshalJSON(data []byte) error {
	var raw patternJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return errors.Wrap(err, "decode pattern")
	}
	*p = Pattern[T]{Name: raw.Name, Mark: raw.Mark, Custom: raw.Custom, Discard: raw.Discard}

	body := bytes.TrimSpace(raw.Pattern)
	switch {
	case len(body) == 0:
		return errors.Errorf("pattern %q has no pattern field", raw.Name)
	case body[0] == '"':
		if err := json.Unmarshal(body, &p.Text); err != nil {
			return errors.Wrapf(err, "decode pattern %q text", raw.Name)
		}
	default:
		if err := json.Unmarshal(body, &p.Tokens); err != nil {
			return errors.Wrapf(err, "decode pattern %q tokens", raw.Name)
		}
	}
	return nil
}

// MarshalJSON mirrors UnmarshalJSON.
func (p Pattern[T]) MarshalJSON() ([]byte, error) {
	raw := patternJSON{Name: p.Name, Mark: p.Mark, Custom: p.Custom, Discard: p.Discard}
	var err error
	if len(p.Tokens) > 0 {
		raw.Pattern, err = json.Marshal(p.Tokens)
	} else {
		raw.Pattern, err = json.Marshal(p.Text)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "encode pattern %q", p.Name)
	}
	return json.Marshal(raw)
}
