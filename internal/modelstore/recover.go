package modelstore

import (
	"path/filepath"
	"strings"

	"TokenFSM/internal/storage"
)

// recover removes what an interrupted Save or Delete can leave behind:
// atomic-write temp files and checksum sidecars whose model is gone.
// A model without a sidecar is kept; Load warns about it.
func (s *FileStore) recover() error {
	removed, err := storage.RemoveStaleTemps(s.dir)
	if err != nil {
		return err
	}
	if len(removed) > 0 {
		s.logger.Info("recovery: cleaned temp files", "removed", len(removed))
		for _, p := range removed {
			s.logger.Debug("removed temp file", "path", p)
		}
	}

	sidecars, err := storage.ListFiles(s.dir, modelExt+checksumSuffix)
	if err != nil {
		return err
	}
	var orphans []string
	for _, f := range sidecars {
		model := filepath.Join(s.dir, strings.TrimSuffix(f, checksumSuffix))
		if !storage.FileExists(model) {
			orphans = append(orphans, filepath.Join(s.dir, f))
		}
	}
	if len(orphans) == 0 {
		return nil
	}
	s.logger.Warn("recovery: removing orphaned checksums", "count", len(orphans))
	return storage.RemoveFiles(orphans...)
}
