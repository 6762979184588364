package cache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProjectID(t *testing.T) {
	a := ProjectID("/home/dev/project-a")
	b := ProjectID("/home/dev/project-b")

	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, ProjectID("/home/dev/project-a"), "id must be stable")
}

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "state.json")

	require.NoError(t, WriteFileAtomic(path, []byte(`{"ok":true}`)))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, string(data))

	// Overwrite leaves no temp files behind.
	require.NoError(t, WriteFileAtomic(path, []byte(`{"ok":false}`)))
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestCachePaths(t *testing.T) {
	dir := t.TempDir()
	c, err := NewAt(dir)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "rules.json"), c.Path("rules.json"))
	require.NoError(t, c.Remove("missing.json"))
}
