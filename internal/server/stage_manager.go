package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/pkg/errors"

	"TokenFSM/internal/config"
	"TokenFSM/internal/lexicon"
	"TokenFSM/internal/modelstore"
	"TokenFSM/internal/pipeline"
)

// StageManager owns the trained pipeline and the model store behind it.
type StageManager struct {
	pipeline *pipeline.Pipeline
	store    modelstore.Store
	logger   *slog.Logger

	// saveMu serializes saves so a stage model and the lexicon it refers
	// to are written together.
	saveMu sync.Mutex
}

// NewStageManager opens the store, restores the saved lexicon, builds the
// pipeline and loads every stored stage model.
func NewStageManager(cfg *config.Config, logger *slog.Logger) (*StageManager, error) {
	if logger == nil {
		logger = slog.Default()
	}

	store, err := modelstore.Open(cfg.Store.Kind, cfg.Store.Dir, logger)
	if err != nil {
		return nil, errors.Wrap(err, "open model store")
	}
	mgr, err := newStageManager(cfg, store, logger)
	if err != nil {
		store.Close()
		return nil, err
	}
	return mgr, nil
}

func newStageManager(cfg *config.Config, store modelstore.Store, logger *slog.Logger) (*StageManager, error) {
	lex, err := lexicon.New(lexicon.Options{
		CacheSize:    cfg.Lexicon.CacheSize,
		StemLanguage: cfg.Lexicon.StemLanguage,
		Logger:       logger,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create lexicon")
	}

	saved, err := store.Load(modelstore.LexiconModel)
	switch {
	case errors.Is(err, modelstore.ErrModelNotFound):
	case err != nil:
		return nil, errors.Wrap(err, "load lexicon")
	default:
		if err := json.Unmarshal([]byte(saved), lex); err != nil {
			return nil, errors.Wrap(err, "restore lexicon")
		}
		logger.Info("lexicon restored", "terms", lex.Size())
	}

	p, err := pipeline.Build(cfg, lex, logger)
	if err != nil {
		return nil, errors.Wrap(err, "build pipeline")
	}
	if err := p.LoadModels(store); err != nil {
		return nil, err
	}

	mgr := &StageManager{pipeline: p, store: store, logger: logger}
	if err := mgr.restoreSaved(); err != nil {
		return nil, err
	}
	return mgr, nil
}

// restoreSaved imports models saved under a stage's own name, replacing
// what the stage was trained with from configuration.
func (m *StageManager) restoreSaved() error {
	for _, st := range m.pipeline.Stages() {
		if m.pipeline.Configured(st.Name) {
			continue
		}
		model, err := m.store.Load(st.Name)
		if errors.Is(err, modelstore.ErrModelNotFound) {
			continue
		}
		if err != nil {
			return errors.Wrapf(err, "load saved model for stage %s", st.Name)
		}
		if err := st.ImportJSON(model); err != nil {
			m.logger.Error("failed to restore stage model", "stage", st.Name, "error", err)
			continue
		}
		m.logger.Info("stage model restored", "stage", st.Name)
	}
	return nil
}

// Pipeline returns the managed pipeline.
func (m *StageManager) Pipeline() *pipeline.Pipeline {
	return m.pipeline
}

// Infos summarizes every stage in run order.
func (m *StageManager) Infos() []pipeline.Info {
	stages := m.pipeline.Stages()
	infos := make([]pipeline.Info, len(stages))
	for i, st := range stages {
		infos[i] = st.Info()
	}
	return infos
}

// Info summarizes one stage.
func (m *StageManager) Info(name string) (pipeline.Info, error) {
	st, err := m.pipeline.Stage(name)
	if err != nil {
		return pipeline.Info{}, err
	}
	return st.Info(), nil
}

// Learn trains a stage with additional patterns.
func (m *StageManager) Learn(name string, patterns []config.PatternConfig) (int, error) {
	st, err := m.pipeline.Stage(name)
	if err != nil {
		return 0, err
	}
	defs := make([]config.Definition, len(patterns))
	for i, pc := range patterns {
		if defs[i], err = pc.Convert(); err != nil {
			return 0, errors.Wrapf(ErrBadRequest, "pattern %d: %v", i, err)
		}
	}
	n, err := st.LearnDefinitions(defs)
	if err != nil {
		return 0, err
	}
	m.logger.Info("stage learned", "stage", name, "patterns", len(defs), "names", n)
	return n, nil
}

// Recognize runs one stage, and the stages it composes, over text or terms.
func (m *StageManager) Recognize(ctx context.Context, name, text string, terms []string) (*pipeline.Document, error) {
	if terms != nil {
		return m.pipeline.RunStageTerms(ctx, name, terms)
	}
	return m.pipeline.RunStage(ctx, name, text)
}

// Analyze runs the whole pipeline.
func (m *StageManager) Analyze(ctx context.Context, text string) (*pipeline.Document, error) {
	return m.pipeline.Run(ctx, text)
}

// Model exports a stage model.
func (m *StageManager) Model(name string) (string, error) {
	st, err := m.pipeline.Stage(name)
	if err != nil {
		return "", err
	}
	return st.ExportJSON()
}

// ImportModel replaces a stage model. The model must refer to ids of the
// running lexicon.
func (m *StageManager) ImportModel(name, model string) error {
	st, err := m.pipeline.Stage(name)
	if err != nil {
		return err
	}
	return st.ImportJSON(model)
}

// Save persists a stage model and the lexicon.
func (m *StageManager) Save(name string) (string, error) {
	st, err := m.pipeline.Stage(name)
	if err != nil {
		return "", err
	}
	model, err := st.ExportJSON()
	if err != nil {
		return "", err
	}

	m.saveMu.Lock()
	defer m.saveMu.Unlock()

	lex, err := json.Marshal(m.pipeline.Lexicon())
	if err != nil {
		return "", errors.Wrap(err, "encode lexicon")
	}
	if err := m.store.Save(modelstore.LexiconModel, string(lex)); err != nil {
		return "", err
	}
	modelName := m.pipeline.ModelName(name)
	if err := m.store.Save(modelName, model); err != nil {
		return "", err
	}
	return modelName, nil
}

// StoredModels lists the names in the model store.
func (m *StageManager) StoredModels() ([]string, error) {
	return m.store.List()
}

// Close releases the model store.
func (m *StageManager) Close() error {
	return m.store.Close()
}
