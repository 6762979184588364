package discover

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, root string, paths ...string) {
	t.Helper()
	for _, p := range paths {
		full := filepath.Join(root, filepath.FromSlash(p))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte("// source\n"), 0o644))
	}
}

func TestSourceFiles(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root,
		"routes/api.ts",
		"db/client.ts",
		"lib/util.py",
		"node_modules/pkg/index.js",
		"dist/bundle.js",
		".archspec/cached.ts",
		"docs/readme.md",
	)

	files, err := SourceFiles(root, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"db/client.ts",
		"lib/util.py",
		"routes/api.ts",
	}, files)
}

func TestSourceFilesScope(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root,
		"routes/api.ts",
		"routes/admin/users.ts",
		"db/client.ts",
	)

	files, err := SourceFiles(root, Options{Scope: []string{"routes/**"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"routes/admin/users.ts", "routes/api.ts"}, files)
}

func TestSourceFilesExtraIgnores(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root,
		"src/main.go",
		"generated/api.go",
	)

	files, err := SourceFiles(root, Options{ExtraIgnoredDirs: []string{"generated"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"src/main.go"}, files)
}

func TestExpandDirs(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root,
		"services/auth/main.go",
		"services/users/main.go",
		"frontend/app.ts",
	)

	dirs, err := ExpandDirs(root, []string{"services/*", "frontend"})
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "frontend"),
		filepath.Join(root, "services", "auth"),
		filepath.Join(root, "services", "users"),
	}, dirs)
}
