package storage

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// TempPrefix starts the names of AtomicWriteFile's temporary files.
const TempPrefix = ".atomic-"

// ListFiles returns the sorted names (not full paths) of the regular files
// in dir ending in suffix. A missing dir lists as empty.
func ListFiles(dir, suffix string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "list files %s", dir)
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), suffix) {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

// FileExists returns true if the path exists and is a regular file.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// RemoveFiles removes every path and fsyncs their parent directories.
// Missing files are not an error.
func RemoveFiles(paths ...string) error {
	dirs := make(map[string]bool)
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return errors.Wrapf(err, "remove %s", p)
		}
		dirs[filepath.Dir(p)] = true
	}
	for dir := range dirs {
		if err := FsyncDir(dir); err != nil {
			return err
		}
	}
	return nil
}

// RemoveStaleTemps removes temporary files left in dir by interrupted
// atomic writes and returns their paths.
func RemoveStaleTemps(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "list temps %s", dir)
	}

	var stale []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasPrefix(entry.Name(), TempPrefix) {
			stale = append(stale, filepath.Join(dir, entry.Name()))
		}
	}
	if len(stale) == 0 {
		return nil, nil
	}
	return stale, RemoveFiles(stale...)
}
