package modelstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TokenFSM/internal/config"
	"TokenFSM/internal/storage"
)

const emptyModel = `[100,0,{"0":{}},{},{},{}]`

func openStores(t *testing.T) map[string]Store {
	t.Helper()
	stores := make(map[string]Store)
	for _, kind := range []string{config.StoreFile, config.StoreBolt} {
		s, err := Open(kind, t.TempDir(), nil)
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		stores[kind] = s
	}
	return stores
}

func TestStore_SaveLoad(t *testing.T) {
	for kind, s := range openStores(t) {
		t.Run(kind, func(t *testing.T) {
			require.NoError(t, s.Save("ner", emptyModel))
			got, err := s.Load("ner")
			require.NoError(t, err)
			assert.Equal(t, emptyModel, got)

			require.NoError(t, s.Save("ner", `[100,1,{"0":{"5":1}},{"1":"X"},{},{}]`))
			got, err = s.Load("ner")
			require.NoError(t, err)
			assert.Equal(t, `[100,1,{"0":{"5":1}},{"1":"X"},{},{}]`, got)
		})
	}
}

func TestStore_NotFound(t *testing.T) {
	for kind, s := range openStores(t) {
		t.Run(kind, func(t *testing.T) {
			_, err := s.Load("missing")
			assert.ErrorIs(t, err, ErrModelNotFound)
			assert.ErrorIs(t, s.Delete("missing"), ErrModelNotFound)
		})
	}
}

func TestStore_ListAndDelete(t *testing.T) {
	for kind, s := range openStores(t) {
		t.Run(kind, func(t *testing.T) {
			names, err := s.List()
			require.NoError(t, err)
			assert.Empty(t, names)

			for _, name := range []string{"sbd", "ner", LexiconModel} {
				require.NoError(t, s.Save(name, emptyModel))
			}
			names, err = s.List()
			require.NoError(t, err)
			assert.Equal(t, []string{"_lexicon", "ner", "sbd"}, names)

			require.NoError(t, s.Delete("ner"))
			names, err = s.List()
			require.NoError(t, err)
			assert.Equal(t, []string{"_lexicon", "sbd"}, names)
		})
	}
}

func TestStore_InvalidName(t *testing.T) {
	for kind, s := range openStores(t) {
		t.Run(kind, func(t *testing.T) {
			for _, name := range []string{"", "../escape", ".hidden", "a/b", "with space"} {
				assert.ErrorIs(t, s.Save(name, emptyModel), ErrInvalidName, name)
				_, err := s.Load(name)
				assert.ErrorIs(t, err, ErrInvalidName, name)
			}
		})
	}
}

func TestOpen_UnknownKind(t *testing.T) {
	_, err := Open("s3", t.TempDir(), nil)
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestFileStore_Layout(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir, nil)
	require.NoError(t, err)
	require.NoError(t, s.Save("ner", emptyModel))

	path := filepath.Join(dir, "models", "ner.json")
	assert.True(t, storage.FileExists(path))
	sum, err := os.ReadFile(path + ".sha256")
	require.NoError(t, err)
	assert.Equal(t, string(storage.ComputeChecksum([]byte(emptyModel)))+"\n", string(sum))
}

func TestFileStore_DetectsCorruption(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir, nil)
	require.NoError(t, err)
	require.NoError(t, s.Save("ner", emptyModel))

	path := filepath.Join(dir, "models", "ner.json")
	require.NoError(t, os.WriteFile(path, []byte(`[100,0,{"0":{}},{},{},{"1":2}]`), storage.FilePerm))

	_, err = s.Load("ner")
	assert.ErrorIs(t, err, storage.ErrChecksumMismatch)
}

func TestFileStore_MissingSidecarLoads(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir, nil)
	require.NoError(t, err)

	path := filepath.Join(dir, "models", "hand.json")
	require.NoError(t, os.WriteFile(path, []byte(emptyModel), storage.FilePerm))

	got, err := s.Load("hand")
	require.NoError(t, err)
	assert.Equal(t, emptyModel, got)
}

func TestBoltStore_Reopen(t *testing.T) {
	dir := t.TempDir()
	s, err := NewBoltStore(dir, nil)
	require.NoError(t, err)
	require.NoError(t, s.Save("ner", emptyModel))
	require.NoError(t, s.Close())

	s, err = NewBoltStore(dir, nil)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.Load("ner")
	require.NoError(t, err)
	assert.Equal(t, emptyModel, got)
}

func TestFileStore_RecoversOnOpen(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir, nil)
	require.NoError(t, err)
	require.NoError(t, s.Save("ner", emptyModel))
	require.NoError(t, s.Save("pos", emptyModel))

	models := filepath.Join(dir, "models")
	stray := filepath.Join(models, storage.TempPrefix+"42")
	require.NoError(t, os.WriteFile(stray, []byte("partial"), storage.FilePerm))
	// A model removed by hand.
	require.NoError(t, os.Remove(filepath.Join(models, "pos.json")))

	_, err = NewFileStore(dir, nil)
	require.NoError(t, err)

	assert.NoFileExists(t, stray)
	assert.NoFileExists(t, filepath.Join(models, "pos.json.sha256"))
	assert.FileExists(t, filepath.Join(models, "ner.json.sha256"))
}
