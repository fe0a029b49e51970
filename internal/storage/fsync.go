package storage

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

const (
	DirPerm  os.FileMode = 0755
	FilePerm os.FileMode = 0644
)

// FsyncDir opens the directory at path and calls fsync on it.
// This ensures directory entries (file names) are durable.
func FsyncDir(path string) error {
	d, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "fsync dir open %s", path)
	}
	if err := d.Sync(); err != nil {
		d.Close()
		return errors.Wrapf(err, "fsync dir sync %s", path)
	}
	return errors.Wrapf(d.Close(), "fsync dir close %s", path)
}

// AtomicWriteFile writes data to a temporary file beside finalPath, fsyncs
// it, renames it over finalPath and fsyncs the parent directory. Readers
// see either the old content or the new, never a partial file.
func AtomicWriteFile(finalPath string, data []byte) error {
	dir := filepath.Dir(finalPath)
	tmp, err := os.CreateTemp(dir, TempPrefix+"*")
	if err != nil {
		return errors.Wrapf(err, "atomic write create temp in %s", dir)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrap(err, "atomic write data")
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return errors.Wrap(err, "atomic write fsync")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "atomic write close")
	}
	if err := os.Chmod(tmpPath, FilePerm); err != nil {
		return errors.Wrap(err, "atomic write chmod")
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		return errors.Wrapf(err, "atomic write rename %s -> %s", tmpPath, finalPath)
	}
	if err := FsyncDir(dir); err != nil {
		return errors.Wrap(err, "atomic write fsync parent dir")
	}

	success = true
	return nil
}

// EnsureDir creates a directory (and parents) if it does not exist.
func EnsureDir(path string) error {
	return errors.Wrapf(os.MkdirAll(path, DirPerm), "ensure dir %s", path)
}
