// Package modelstore persists serialized automaton models by name.
package modelstore

import (
	"log/slog"
	"regexp"

	"github.com/pkg/errors"

	"TokenFSM/internal/config"
)

var (
	ErrModelNotFound = errors.New("model not found")
	ErrInvalidName   = errors.New("invalid model name")
	ErrUnknownKind   = errors.New("unknown store kind")
)

// LexiconModel is the reserved name under which the shared lexicon is kept.
const LexiconModel = "_lexicon"

var validName = regexp.MustCompile(`^[A-Za-z0-9_][A-Za-z0-9_.-]{0,127}$`)

// Store saves and loads model JSON documents.
type Store interface {
	Save(name, model string) error
	// Load returns ErrModelNotFound when no model is stored under name.
	Load(name string) (string, error)
	Delete(name string) error
	// List returns the stored names, sorted.
	List() ([]string, error)
	Close() error
}

// CheckName validates a model name.
func CheckName(name string) error {
	if !validName.MatchString(name) {
		return errors.Wrapf(ErrInvalidName, "%q", name)
	}
	return nil
}

// Open creates the store of the given kind rooted at dir.
func Open(kind, dir string, logger *slog.Logger) (Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "modelstore", "kind", kind)

	switch kind {
	case config.StoreFile:
		return NewFileStore(dir, logger)
	case config.StoreBolt:
		return NewBoltStore(dir, logger)
	default:
		return nil, errors.Wrapf(ErrUnknownKind, "%q", kind)
	}
}
