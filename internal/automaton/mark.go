package automaton

import (
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
)

// Mark selects the sub-span of a pattern that is reported on a match.
// Negative indices count from the end; -1 is the last token.
type Mark struct {
	First int
	Last  int
}

// NormalizeMark resolves m against a pattern of the given length into a
// forward pair within [0, length-1]. Negative endpoints are offset by
// length; a First still negative or past the last index becomes 0; a Last
// below First becomes length-1 and a Last past the end is clamped.
func NormalizeMark(m Mark, length int) Mark {
	if length <= 0 {
		panic(fmt.Sprintf("automaton: normalize mark against length %d", length))
	}
	first, last := m.First, m.Last
	if first < 0 {
		first += length
	}
	if last < 0 {
		last += length
	}
	if first < 0 || first > length-1 {
		first = 0
	}
	if last < first || last > length-1 {
		last = length - 1
	}
	if first > last {
		panic(fmt.Sprintf("automaton: mark %v normalized to inverted [%d, %d]", m, first, last))
	}
	return Mark{First: first, Last: last}
}

// MarshalJSON encodes the mark as a two-element array.
func (m Mark) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{m.First, m.Last})
}

// UnmarshalJSON decodes a two-element array.
func (m *Mark) UnmarshalJSON(data []byte) error {
	var pair []int
	if err := json.Unmarshal(data, &pair); err != nil {
		return errors.Wrap(err, "decode mark")
	}
	if len(pair) != 2 {
		return errors.Errorf("mark must have 2 elements, got %d", len(pair))
	}
	m.First, m.Last = pair[0], pair[1]
	return nil
}
