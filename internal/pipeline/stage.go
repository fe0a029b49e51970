package pipeline

import (
	"io"
	"log/slog"
	"sync"

	"github.com/pkg/errors"

	"TokenFSM/internal/automaton"
	"TokenFSM/internal/config"
	"TokenFSM/internal/lexicon"
)

// Stage kinds.
const (
	KindSBD       = "sbd"
	KindNER       = "ner"
	KindPOS       = "pos"
	KindNegation  = "negation"
	KindSentiment = "sentiment"
	KindCER       = "cer"
)

var (
	ErrStageNotFound = errors.New("stage not found")
	ErrUnknownKind   = errors.New("unknown stage kind")
)

func validKind(kind string) bool {
	switch kind {
	case KindSBD, KindNER, KindPOS, KindNegation, KindSentiment, KindCER:
		return true
	}
	return false
}

// Stage is one trained automaton together with the transform and resolver
// its patterns were learned under. It is safe for concurrent use: learning
// and model import take the write lock, recognition the read lock.
type Stage struct {
	Name      string
	Kind      string
	Transform string
	Compose   string

	mu        sync.RWMutex
	automaton *automaton.Automaton[int]
	resolver  automaton.Resolver[int]
	transform automaton.TransformFunc[int]
	logger    *slog.Logger
}

// Learn trains the stage and returns the number of distinct names it holds.
func (s *Stage) Learn(patterns []automaton.Pattern[int]) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, err := s.automaton.Learn(patterns)
	if err != nil {
		return 0, errors.Wrapf(err, "stage %s", s.Name)
	}
	return n, nil
}

// LearnDefinitions converts configured patterns through the stage resolver
// and learns them.
func (s *Stage) LearnDefinitions(defs []config.Definition) (int, error) {
	patterns := make([]automaton.Pattern[int], len(defs))
	for i, d := range defs {
		p := automaton.Pattern[int]{
			Name:    d.Name,
			Text:    d.Text,
			Mark:    d.Mark,
			Custom:  d.Custom,
			Discard: d.Discard,
		}
		for _, w := range d.Words {
			id, err := s.resolver.FromText(w)
			if err != nil {
				return 0, errors.Wrapf(err, "stage %s pattern %q", s.Name, d.Name)
			}
			p.Tokens = append(p.Tokens, id)
		}
		patterns[i] = p
	}
	return s.Learn(patterns)
}

// Recognize runs the stage over ids with an optional swap table.
func (s *Stage) Recognize(ids []int, swap automaton.SwapTable[int], onDetect automaton.DetectFunc) []automaton.Match {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.automaton.RecognizeWith(ids, automaton.RecognizeConfig[int]{
		Transform: s.transform,
		Swap:      swap,
		OnDetect:  onDetect,
	})
}

// Names returns the distinct names the stage can report.
func (s *Stage) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.automaton.Names()
}

// States returns the highest allocated state.
func (s *Stage) States() automaton.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.automaton.LastUsedState()
}

// ExportJSON serializes the stage model.
func (s *Stage) ExportJSON() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.automaton.ExportJSON()
}

// ImportJSON replaces the stage model.
func (s *Stage) ImportJSON(model string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.automaton.ImportJSON(model); err != nil {
		return errors.Wrapf(err, "stage %s", s.Name)
	}
	s.logger.Info("model imported", "states", s.automaton.LastUsedState())
	return nil
}

// PrintModel writes a readable dump of the stage model.
func (s *Stage) PrintModel(w io.Writer) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	s.automaton.PrintModel(w)
}

// Info summarizes the stage.
type Info struct {
	Name      string   `json:"name"`
	Kind      string   `json:"kind"`
	Transform string   `json:"transform"`
	Compose   string   `json:"compose,omitempty"`
	States    int      `json:"states"`
	Names     []string `json:"names"`
}

func (s *Stage) Info() Info {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Info{
		Name:      s.Name,
		Kind:      s.Kind,
		Transform: s.Transform,
		Compose:   s.Compose,
		States:    int(s.automaton.LastUsedState()),
		Names:     s.automaton.Names(),
	}
}

func newStage(sc config.StageConfig, lex *lexicon.Lexicon, tr transformSet, logger *slog.Logger) *Stage {
	resolver := lex.Resolver(tr.normalize)
	logger = logger.With("stage", sc.Name, "kind", sc.Kind)
	return &Stage{
		Name:      sc.Name,
		Kind:      sc.Kind,
		Transform: tr.name,
		Compose:   sc.Compose,
		automaton: automaton.New(automaton.Options[int]{
			Resolver: resolver,
			Logger:   logger,
		}),
		resolver:  resolver,
		transform: tr.transform,
		logger:    logger,
	}
}
