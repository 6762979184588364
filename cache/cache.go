// Package cache provides an explicit, project-scoped cache handle for
// derived artifacts such as parsed rule stores and session ledgers. The
// handle is constructed once and passed into the engine, replacing any
// implicit working-directory-derived global state.
package cache

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/minio/highwayhash"
)

// hashKey is a fixed 32-byte key for highwayhash. The hash only namespaces
// cache directories per project, so the key is not secret.
var hashKey = []byte("archspec.project.cache.key.v1..!")

// Cache is a per-project cache directory handle.
type Cache struct {
	dir string
}

// ProjectID returns a stable hex identifier for a project root path.
func ProjectID(root string) string {
	abs, err := filepath.Abs(root)
	if err != nil {
		abs = root
	}
	h, err := highwayhash.New64(hashKey)
	if err != nil {
		// Only possible with a malformed key length.
		panic(fmt.Sprintf("cache: highwayhash init: %v", err))
	}
	_, _ = h.Write([]byte(abs))
	return hex.EncodeToString(h.Sum(nil))
}

// New creates (or reuses) the cache directory for the given project root.
// The directory lives under the user cache dir, falling back to the system
// temp dir when the former is unavailable.
func New(projectRoot string) (*Cache, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		base = os.TempDir()
	}
	dir := filepath.Join(base, "archspec", ProjectID(projectRoot))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &Cache{dir: dir}, nil
}

// NewAt creates a cache handle rooted at an explicit directory. Used by
// tests and by callers that manage cache placement themselves.
func NewAt(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &Cache{dir: dir}, nil
}

// Dir returns the cache directory path.
func (c *Cache) Dir() string { return c.dir }

// Path returns the path of a named cache file.
func (c *Cache) Path(name string) string { return filepath.Join(c.dir, name) }

// Remove deletes a named cache file, ignoring files that do not exist.
func (c *Cache) Remove(name string) error {
	err := os.Remove(c.Path(name))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
