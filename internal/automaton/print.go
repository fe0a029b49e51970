package automaton

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/kr/pretty"
)

// PrintModel writes a human-readable dump of the learned tables to w. The
// layout is for diagnostics only and may change.
func (a *Automaton[T]) PrintModel(w io.Writer) {
	fmt.Fprintf(w, "automaton: %d states, %d terminals, ignored=%q eos=%q\n",
		int(a.lastUsed)+1, len(a.terminals), formatToken(a.ignored), formatToken(a.eos))

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STATE\tEVENT\tNEXT\tTERMINAL")
	for s := range a.transitions {
		state := State(s)
		for _, e := range a.Edges(state) {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", stateKey(state), eventLabel(e.Event), stateKey(e.To), a.terminalLabel(e.To))
		}
	}
	tw.Flush()

	for s := range a.transitions {
		state := State(s)
		if m, ok := a.marks[state]; ok {
			fmt.Fprintf(w, "mark %s: head=%d tail=%d\n", stateKey(state), m.head, m.tail)
		}
		if v, ok := a.custom[state]; ok {
			fmt.Fprintf(w, "custom %s: %s\n", stateKey(state), pretty.Sprint(v))
		}
	}
}

func (a *Automaton[T]) terminalLabel(s State) string {
	t, ok := a.terminals[s]
	if !ok {
		return "-"
	}
	if t.discard {
		return "(discard)"
	}
	return t.name
}

func eventLabel[T Token](e Event[T]) string {
	switch e.Kind {
	case EventOtherwise:
		return "<otherwise>"
	case EventEndOfStream:
		return "<eos>"
	default:
		return strconv.Quote(formatToken(e.Token))
	}
}
