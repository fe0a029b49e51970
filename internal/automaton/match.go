package automaton

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// Match is one recognized span. Start and End are inclusive token indices.
// Extra carries whatever a detection callback appended.
type Match struct {
	Start int
	End   int
	Name  string
	Extra []any
}

// Len returns the number of tokens covered by the match.
func (m Match) Len() int {
	return m.End - m.Start + 1
}

// MarshalJSON encodes the match as [start, end, name, extra...].
func (m Match) MarshalJSON() ([]byte, error) {
	tuple := make([]any, 0, 3+len(m.Extra))
	tuple = append(tuple, m.Start, m.End, m.Name)
	tuple = append(tuple, m.Extra...)
	return json.Marshal(tuple)
}

// UnmarshalJSON decodes the tuple form written by MarshalJSON.
func (m *Match) UnmarshalJSON(data []byte) error {
	var tuple []json.RawMessage
	if err := json.Unmarshal(data, &tuple); err != nil {
		return errors.Wrap(err, "decode match")
	}
	if len(tuple) < 3 {
		return errors.Errorf("match needs at least 3 elements, got %d", len(tuple))
	}
	*m = Match{}
	if err := json.Unmarshal(tuple[0], &m.Start); err != nil {
		return errors.Wrap(err, "decode match start")
	}
	if err := json.Unmarshal(tuple[1], &m.End); err != nil {
		return errors.Wrap(err, "decode match end")
	}
	if err := json.Unmarshal(tuple[2], &m.Name); err != nil {
		return errors.Wrap(err, "decode match name")
	}
	for _, raw := range tuple[3:] {
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return errors.Wrap(err, "decode match extra")
		}
		m.Extra = append(m.Extra, v)
	}
	return nil
}
