package modelstore

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"TokenFSM/internal/storage"
)

const (
	modelsDir      = "models"
	modelExt       = ".json"
	checksumSuffix = ".sha256"
)

// FileStore keeps each model in <dir>/models/<name>.json with a SHA-256
// sidecar <name>.json.sha256. Both are written atomically; the sidecar is
// written last and verified on every load.
type FileStore struct {
	dir    string
	mu     sync.Mutex
	logger *slog.Logger
}

// NewFileStore creates the models directory if needed.
func NewFileStore(dir string, logger *slog.Logger) (*FileStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	root := filepath.Join(dir, modelsDir)
	if err := storage.EnsureDir(root); err != nil {
		return nil, err
	}
	s := &FileStore{dir: root, logger: logger}
	if err := s.recover(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FileStore) path(name string) string {
	return filepath.Join(s.dir, name+modelExt)
}

func (s *FileStore) Save(name, model string) error {
	if err := CheckName(name); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	data := []byte(model)
	path := s.path(name)
	if err := storage.AtomicWriteFile(path, data); err != nil {
		return errors.Wrapf(err, "save model %s", name)
	}
	sum := storage.ComputeChecksum(data)
	if err := storage.AtomicWriteFile(path+checksumSuffix, []byte(sum+"\n")); err != nil {
		return errors.Wrapf(err, "save model %s checksum", name)
	}
	s.logger.Info("model saved", "name", name, "bytes", len(data), "checksum", sum)
	return nil
}

func (s *FileStore) Load(name string) (string, error) {
	if err := CheckName(name); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.path(name)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return "", errors.Wrapf(ErrModelNotFound, "%q", name)
	}
	if err != nil {
		return "", errors.Wrapf(err, "load model %s", name)
	}

	sum, err := os.ReadFile(path + checksumSuffix)
	switch {
	case os.IsNotExist(err):
		s.logger.Warn("model has no checksum sidecar", "name", name)
	case err != nil:
		return "", errors.Wrapf(err, "load model %s checksum", name)
	default:
		if err := storage.VerifyChecksum(data, storage.Checksum(strings.TrimSpace(string(sum)))); err != nil {
			return "", errors.Wrapf(err, "model %s", name)
		}
	}
	return string(data), nil
}

func (s *FileStore) Delete(name string) error {
	if err := CheckName(name); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.path(name)
	if !storage.FileExists(path) {
		return errors.Wrapf(ErrModelNotFound, "%q", name)
	}
	if err := storage.RemoveFiles(path+checksumSuffix, path); err != nil {
		return errors.Wrapf(err, "delete model %s", name)
	}
	s.logger.Info("model deleted", "name", name)
	return nil
}

func (s *FileStore) List() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	files, err := storage.ListFiles(s.dir, modelExt)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(files))
	for _, f := range files {
		names = append(names, strings.TrimSuffix(f, modelExt))
	}
	return names, nil
}

func (s *FileStore) Close() error {
	return nil
}
