// Package pipeline wires analyzers, the lexicon and trained automata into a
// sequence of recognition stages. A stage may compose an earlier stage: the
// earlier stage's matches are swapped in as single tokens before the later
// stage runs.
package pipeline

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/pkg/errors"

	"TokenFSM/internal/analysis"
	"TokenFSM/internal/automaton"
	"TokenFSM/internal/config"
	"TokenFSM/internal/lexicon"
	"TokenFSM/internal/tokenclass"
)

// ModelSource yields stored model JSON by name.
type ModelSource interface {
	Load(name string) (string, error)
}

// Pipeline runs its stages in configured order.
type Pipeline struct {
	lex      *lexicon.Lexicon
	analyzer analysis.Analyzer
	stages   []*Stage
	byName   map[string]*Stage
	models   map[string]string
	logger   *slog.Logger
}

// Build creates and trains every configured stage.
func Build(cfg *config.Config, lex *lexicon.Lexicon, logger *slog.Logger) (*Pipeline, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "pipeline")

	analyzer, err := analysis.NewRegistry().Get(cfg.Pipeline.Analyzer)
	if err != nil {
		return nil, errors.Wrap(err, "pipeline analyzer")
	}

	p := &Pipeline{
		lex:      lex,
		analyzer: analyzer,
		byName:   make(map[string]*Stage, len(cfg.Stages)),
		models:   make(map[string]string),
		logger:   logger,
	}
	for _, sc := range cfg.Stages {
		st, err := p.buildStage(sc, cfg.Lexicon.CacheSize)
		if err != nil {
			return nil, err
		}
		p.stages = append(p.stages, st)
		p.byName[st.Name] = st
		if sc.Model != "" {
			p.models[st.Name] = sc.Model
		}
	}
	return p, nil
}

func (p *Pipeline) buildStage(sc config.StageConfig, cacheSize int) (*Stage, error) {
	if !validKind(sc.Kind) {
		return nil, errors.Wrapf(ErrUnknownKind, "stage %s: %q", sc.Name, sc.Kind)
	}
	if _, dup := p.byName[sc.Name]; dup {
		return nil, errors.Errorf("duplicate stage %q", sc.Name)
	}

	var hints *tokenclass.Classifier
	if len(sc.Hints) > 0 {
		var err error
		hints, err = tokenclass.NewClassifier(sc.Hints, cacheSize)
		if err != nil {
			return nil, errors.Wrapf(err, "stage %s hints", sc.Name)
		}
	}

	var composed *Stage
	if sc.Compose != "" {
		var ok bool
		if composed, ok = p.byName[sc.Compose]; !ok {
			return nil, errors.Wrapf(ErrStageNotFound, "stage %s composes %q", sc.Name, sc.Compose)
		}
	}
	protected := func(word string) bool {
		if hints != nil {
			for _, c := range hints.Classes() {
				if c == word {
					return true
				}
			}
		}
		if composed != nil {
			for _, n := range composed.Names() {
				if n == word {
					return true
				}
			}
		}
		return false
	}

	tr, err := newTransformSet(sc.Transform, p.lex, hints, protected)
	if err != nil {
		return nil, errors.Wrapf(err, "stage %s", sc.Name)
	}
	st := newStage(sc, p.lex, tr, p.logger)

	if len(sc.Patterns) > 0 {
		defs := make([]config.Definition, len(sc.Patterns))
		for i, pc := range sc.Patterns {
			if defs[i], err = pc.Convert(); err != nil {
				return nil, errors.Wrapf(err, "stage %s", sc.Name)
			}
		}
		n, err := st.LearnDefinitions(defs)
		if err != nil {
			return nil, err
		}
		p.logger.Info("stage trained",
			"stage", sc.Name,
			"patterns", len(defs),
			"names", n,
			"states", st.States(),
		)
	}
	return st, nil
}

// LoadModels imports the stored model of every stage configured with one.
func (p *Pipeline) LoadModels(src ModelSource) error {
	for _, st := range p.stages {
		name, ok := p.models[st.Name]
		if !ok {
			continue
		}
		model, err := src.Load(name)
		if err != nil {
			return errors.Wrapf(err, "load model %q for stage %s", name, st.Name)
		}
		if err := st.ImportJSON(model); err != nil {
			return err
		}
	}
	return nil
}

// ModelName returns the name a stage's model is stored under: the
// configured model, or else the stage name.
func (p *Pipeline) ModelName(stage string) string {
	if m, ok := p.models[stage]; ok {
		return m
	}
	return stage
}

// Configured reports whether the stage was configured with a stored model.
func (p *Pipeline) Configured(stage string) bool {
	_, ok := p.models[stage]
	return ok
}

// Lexicon returns the shared lexicon.
func (p *Pipeline) Lexicon() *lexicon.Lexicon {
	return p.lex
}

// Stages returns the stages in run order.
func (p *Pipeline) Stages() []*Stage {
	out := make([]*Stage, len(p.stages))
	copy(out, p.stages)
	return out
}

// Stage returns the stage named name.
func (p *Pipeline) Stage(name string) (*Stage, error) {
	st, ok := p.byName[name]
	if !ok {
		return nil, errors.Wrapf(ErrStageNotFound, "%q", name)
	}
	return st, nil
}

// Analyze tokenizes text and interns its terms.
func (p *Pipeline) Analyze(text string) (string, []analysis.Token, []int) {
	if n, ok := p.analyzer.(interface{ Normalize(string) string }); ok {
		text = n.Normalize(text)
	}
	tokens := p.analyzer.Analyze(text)
	return text, tokens, p.lex.InternAll(analysis.Terms(tokens))
}

// Run analyzes text and runs every stage in order. ctx is checked between
// stages.
func (p *Pipeline) Run(ctx context.Context, text string) (*Document, error) {
	started := time.Now()
	normalized, tokens, ids := p.Analyze(text)
	doc := &Document{
		Text:    normalized,
		Tokens:  tokens,
		IDs:     ids,
		kinds:   make(map[string]string, len(p.stages)),
		matches: make(map[string][]automaton.Match, len(p.stages)),
	}

	for _, st := range p.stages {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrapf(err, "before stage %s", st.Name)
		}
		doc.kinds[st.Name] = st.Kind
		matches := p.runStage(st, doc)
		doc.matches[st.Name] = matches
		for _, m := range matches {
			doc.Entities = append(doc.Entities, doc.entity(st.Name, m))
		}
	}

	p.logger.Debug("pipeline run",
		"tokens", len(tokens),
		"entities", len(doc.Entities),
		"duration", time.Since(started),
	)
	return doc, nil
}

// RunStage recognizes text with one stage, first running the stages it
// composes.
func (p *Pipeline) RunStage(ctx context.Context, name, text string) (*Document, error) {
	normalized, tokens, ids := p.Analyze(text)
	return p.runChain(ctx, name, &Document{Text: normalized, Tokens: tokens, IDs: ids})
}

// RunStageTerms is RunStage over pre-tokenized input. Byte offsets index
// the terms joined by single spaces.
func (p *Pipeline) RunStageTerms(ctx context.Context, name string, terms []string) (*Document, error) {
	doc := &Document{
		Tokens: make([]analysis.Token, len(terms)),
		IDs:    p.lex.InternAll(terms),
	}
	var b strings.Builder
	for i, t := range terms {
		if i > 0 {
			b.WriteByte(' ')
		}
		start := b.Len()
		b.WriteString(t)
		doc.Tokens[i] = analysis.Token{Term: t, Position: i, StartByte: start, EndByte: b.Len()}
	}
	doc.Text = b.String()
	return p.runChain(ctx, name, doc)
}

func (p *Pipeline) runChain(ctx context.Context, name string, doc *Document) (*Document, error) {
	st, err := p.Stage(name)
	if err != nil {
		return nil, err
	}
	var chain []*Stage
	for s := st; s != nil; s = p.byName[s.Compose] {
		chain = append([]*Stage{s}, chain...)
		if s.Compose == "" {
			break
		}
	}

	doc.kinds = map[string]string{st.Name: st.Kind}
	doc.matches = make(map[string][]automaton.Match, len(chain))
	for _, s := range chain {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrapf(err, "before stage %s", s.Name)
		}
		doc.matches[s.Name] = p.runStage(s, doc)
	}
	for _, m := range doc.matches[st.Name] {
		doc.Entities = append(doc.Entities, doc.entity(st.Name, m))
	}
	return doc, nil
}

func (p *Pipeline) runStage(st *Stage, doc *Document) []automaton.Match {
	var swap automaton.SwapTable[int]
	if st.Compose != "" {
		spans := automaton.SwapsFromMatches(doc.matches[st.Compose], p.lex.Intern)
		swap = automaton.NewSwapTable(spans)
	}
	return st.Recognize(doc.IDs, swap, doc.detector(st))
}

// detector appends the custom property to every match; cer matches also
// carry the literal text first.
func (d *Document) detector(st *Stage) automaton.DetectFunc {
	return func(m *automaton.Match, custom any) {
		if st.Kind == KindCER {
			m.Extra = append(m.Extra, d.literal(m.Start, m.End))
		}
		if custom != nil {
			m.Extra = append(m.Extra, custom)
		}
	}
}

func (d *Document) literal(start, end int) string {
	if start < 0 || end >= len(d.Tokens) || start > end {
		return ""
	}
	return d.Text[d.Tokens[start].StartByte:d.Tokens[end].EndByte]
}

func (d *Document) entity(stage string, m automaton.Match) Entity {
	e := Entity{
		Stage:     stage,
		Name:      m.Name,
		Start:     m.Start,
		End:       m.End,
		StartByte: d.Tokens[m.Start].StartByte,
		EndByte:   d.Tokens[m.End].EndByte,
	}
	extra := m.Extra
	if d.kinds[stage] == KindCER && len(extra) > 0 {
		e.Literal, _ = extra[0].(string)
		extra = extra[1:]
	}
	if len(extra) > 0 {
		e.Custom = extra[0]
	}
	return e
}

// Matches returns the raw matches of a stage that ran over the document.
func (d *Document) Matches(stage string) []automaton.Match {
	return d.matches[stage]
}
