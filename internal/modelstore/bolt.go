package modelstore

import (
	"log/slog"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"

	"TokenFSM/internal/storage"
)

const boltFile = "models.db"

var modelsBucket = []byte("models")

// BoltStore keeps models in one bbolt database, bucket "models".
type BoltStore struct {
	db     *bolt.DB
	logger *slog.Logger
}

// NewBoltStore opens (or creates) <dir>/models.db.
func NewBoltStore(dir string, logger *slog.Logger) (*BoltStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := storage.EnsureDir(dir); err != nil {
		return nil, err
	}
	path := filepath.Join(dir, boltFile)
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(modelsBucket)
		return errors.Wrap(err, "create bucket")
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &BoltStore{db: db, logger: logger}, nil
}

func (s *BoltStore) Save(name, model string) error {
	if err := CheckName(name); err != nil {
		return err
	}
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(modelsBucket).Put([]byte(name), []byte(model))
	})
	if err != nil {
		return errors.Wrapf(err, "save model %s", name)
	}
	s.logger.Info("model saved", "name", name, "bytes", len(model))
	return nil
}

func (s *BoltStore) Load(name string) (string, error) {
	if err := CheckName(name); err != nil {
		return "", err
	}
	var model string
	found := false
	err := s.db.View(func(tx *bolt.Tx) error {
		// Get's slice is only valid inside the transaction; string() copies.
		if v := tx.Bucket(modelsBucket).Get([]byte(name)); v != nil {
			model, found = string(v), true
		}
		return nil
	})
	if err != nil {
		return "", errors.Wrapf(err, "load model %s", name)
	}
	if !found {
		return "", errors.Wrapf(ErrModelNotFound, "%q", name)
	}
	return model, nil
}

func (s *BoltStore) Delete(name string) error {
	if err := CheckName(name); err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(modelsBucket)
		if b.Get([]byte(name)) == nil {
			return errors.Wrapf(ErrModelNotFound, "%q", name)
		}
		return errors.Wrapf(b.Delete([]byte(name)), "delete model %s", name)
	})
}

func (s *BoltStore) List() ([]string, error) {
	var names []string
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(modelsBucket).ForEach(func(k, _ []byte) error {
			names = append(names, string(k))
			return nil
		})
	})
	return names, errors.Wrap(err, "list models")
}

func (s *BoltStore) Close() error {
	return errors.Wrap(s.db.Close(), "close model store")
}
