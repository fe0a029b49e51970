package automaton

import (
	"log/slog"
	"sort"
)

// State identifies a node of the transition table.
type State uint32

// Root is the initial state. A walk whose next state is Root has failed.
const Root State = 0

// FormatVersion is the leading tag of the persisted model tuple.
const FormatVersion = 100

// DiscardName is the persisted name of a terminal whose matches are dropped.
const DiscardName = "0"

// Token is the set of token representations the automaton accepts: integer
// identifiers from a lexicon, or raw text.
type Token interface {
	~int | ~string
}

// EventKind tags an Event.
type EventKind uint8

const (
	EventToken EventKind = iota
	EventOtherwise
	EventEndOfStream
)

func (k EventKind) String() string {
	switch k {
	case EventToken:
		return "token"
	case EventOtherwise:
		return "otherwise"
	case EventEndOfStream:
		return "eos"
	default:
		return "unknown"
	}
}

// Event labels an edge of the transition table. Token is only meaningful
// when Kind is EventToken.
type Event[T Token] struct {
	Kind  EventKind
	Token T
}

// Edge is one outgoing transition.
type Edge[T Token] struct {
	Event Event[T]
	To    State
}

type terminal struct {
	name    string
	discard bool
}

// markOffsets is a normalized mark stored as distances from the start and
// end of the matched span.
type markOffsets struct {
	head int
	tail int
}

// Options configures a new Automaton.
type Options[T Token] struct {
	// Resolver supplies the end-of-stream and line-break sentinels and maps
	// pattern words to tokens. If nil, DefaultResolver is used.
	Resolver Resolver[T]

	// IgnoredToken overrides the resolver's line-break as the token skipped
	// during recognition.
	IgnoredToken *T

	// Logger receives training diagnostics. If nil, slog.Default() is used.
	Logger *slog.Logger
}

// Automaton is a trainable recognizer of token sequences.
//
// An Automaton has no internal locking. Learn and ImportJSON must not run
// concurrently with each other or with Recognize; SetPatternSwap and
// SetOnPatternDetection must not be called while a Recognize is in flight.
// Any number of Recognize calls may run concurrently once training is done.
type Automaton[T Token] struct {
	resolver Resolver[T]
	ignored  T
	eos      T
	logger   *slog.Logger

	// transitions[s] maps a token to the next state; len is lastUsed+1.
	transitions []map[T]State
	// otherwise[s] is the fallback terminal of s, Root when absent.
	otherwise []State
	terminals map[State]terminal
	marks     map[State]markOffsets
	custom    map[State]any
	lastUsed  State

	swap     map[int]Swap[T]
	onDetect DetectFunc
}

// New creates an empty automaton holding only the root state.
func New[T Token](opts Options[T]) *Automaton[T] {
	res := opts.Resolver
	if res == nil {
		res = DefaultResolver[T]()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	a := &Automaton[T]{
		resolver: res,
		ignored:  res.LineBreak(),
		eos:      res.EndOfStream(),
		logger:   logger,
	}
	if opts.IgnoredToken != nil {
		a.ignored = *opts.IgnoredToken
	}
	a.reset()
	return a
}

func (a *Automaton[T]) reset() {
	a.transitions = []map[T]State{make(map[T]State)}
	a.otherwise = []State{Root}
	a.terminals = make(map[State]terminal)
	a.marks = make(map[State]markOffsets)
	a.custom = make(map[State]any)
	a.lastUsed = Root
}

// newState allocates a fresh state whose fallback is otherwise.
func (a *Automaton[T]) newState(otherwise State) State {
	a.lastUsed++
	a.transitions = append(a.transitions, make(map[T]State))
	a.otherwise = append(a.otherwise, otherwise)
	return a.lastUsed
}

func (a *Automaton[T]) isTerminal(s State) bool {
	_, ok := a.terminals[s]
	return ok
}

// LastUsedState returns the highest state allocated so far.
func (a *Automaton[T]) LastUsedState() State {
	return a.lastUsed
}

// IgnoredToken returns the token skipped during recognition.
func (a *Automaton[T]) IgnoredToken() T {
	return a.ignored
}

// EndOfStream returns the token fed to the walk past the last input token.
func (a *Automaton[T]) EndOfStream() T {
	return a.eos
}

// Names returns the distinct terminal names, sorted.
func (a *Automaton[T]) Names() []string {
	seen := make(map[string]struct{}, len(a.terminals))
	for _, t := range a.terminals {
		seen[t.persistedName()] = struct{}{}
	}
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Edges lists the outgoing transitions of s ordered by persisted event key,
// followed by its otherwise edge when present.
func (a *Automaton[T]) Edges(s State) []Edge[T] {
	if int(s) >= len(a.transitions) {
		return nil
	}
	row := a.transitions[s]
	edges := make([]Edge[T], 0, len(row)+1)
	for tok, next := range row {
		kind := EventToken
		if tok == a.eos {
			kind = EventEndOfStream
		}
		edges = append(edges, Edge[T]{Event: Event[T]{Kind: kind, Token: tok}, To: next})
	}
	sort.Slice(edges, func(i, j int) bool {
		return formatToken(edges[i].Event.Token) < formatToken(edges[j].Event.Token)
	})
	if o := a.otherwise[s]; o != Root {
		edges = append(edges, Edge[T]{Event: Event[T]{Kind: EventOtherwise}, To: o})
	}
	return edges
}

func (t terminal) persistedName() string {
	if t.discard {
		return DiscardName
	}
	return t.name
}
