package testutil

import (
	"path/filepath"
	"sort"
	"testing"

	"github.com/spf13/afero"
)

// Files maps slash-separated paths, relative to a fixture root, to contents.
type Files map[string]string

// WriteFiles writes files under root on fs, creating parent directories.
// Paths are written in sorted order so failures are reproducible.
func WriteFiles(t testing.TB, fs afero.Fs, root string, files Files) {
	t.Helper()

	if err := WriteTree(fs, root, files); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
}

// WriteTree is WriteFiles without a testing.TB, for callers that build
// fixtures outside of a test (the scenario harness).
func WriteTree(fs afero.Fs, root string, files Files) error {
	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, p := range paths {
		full := filepath.Join(root, filepath.FromSlash(p))
		if err := fs.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			return err
		}
		if err := afero.WriteFile(fs, full, []byte(files[p]), 0o644); err != nil {
			return err
		}
	}
	return nil
}

// MemFS returns an in-memory filesystem populated with files under root.
func MemFS(t testing.TB, root string, files Files) afero.Fs {
	t.Helper()

	fs := afero.NewMemMapFs()
	WriteFiles(t, fs, root, files)
	return fs
}
