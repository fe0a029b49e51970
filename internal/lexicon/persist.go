package lexicon

import (
	"encoding/json"

	"github.com/pkg/errors"
)

var ErrLexiconConflict = errors.New("lexicon conflict")

// Terms returns every interned term in id order.
func (l *Lexicon) Terms() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]string, len(l.terms))
	copy(out, l.terms)
	return out
}

// MarshalJSON encodes the lexicon as its term array. Integer models are
// only meaningful together with the lexicon they were learned against.
func (l *Lexicon) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.Terms())
}

// Restore extends the lexicon with a saved term array. The current terms
// must be a prefix of terms, so ids already handed out keep their meaning.
func (l *Lexicon) Restore(terms []string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(terms) < len(l.terms) {
		return errors.Wrapf(ErrLexiconConflict, "saved lexicon has %d terms, current has %d", len(terms), len(l.terms))
	}
	for i, t := range l.terms {
		if terms[i] != t {
			return errors.Wrapf(ErrLexiconConflict, "id %d is %q, saved lexicon has %q", i, t, terms[i])
		}
	}
	added := terms[len(l.terms):]
	fresh := make(map[string]bool, len(added))
	for _, t := range added {
		if _, dup := l.ids[t]; dup || fresh[t] {
			return errors.Wrapf(ErrLexiconConflict, "duplicate term %q", t)
		}
		fresh[t] = true
	}
	for _, t := range added {
		l.ids[t] = len(l.terms)
		l.terms = append(l.terms, t)
	}
	l.logger.Debug("lexicon restored", "terms", len(l.terms))
	return nil
}

// UnmarshalJSON restores a term array written by MarshalJSON.
func (l *Lexicon) UnmarshalJSON(data []byte) error {
	var terms []string
	if err := json.Unmarshal(data, &terms); err != nil {
		return errors.Wrap(err, "decode lexicon")
	}
	return l.Restore(terms)
}
