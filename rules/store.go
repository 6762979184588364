package rules

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/c360studio/archspec/cache"
)

// StoreFileName is the rule store file inside the project state directory.
const StoreFileName = "invariants.yml"

// ErrNoStore indicates the project has no rule store; all checks become
// no-ops for such projects.
var ErrNoStore = errors.New("rules: no invariants.yml for project")

// Store is the ordered collection of invariants for one project.
type Store struct {
	// Invariants in file order.
	Invariants []Invariant `json:"invariants"`

	// Skipped counts entries that were structurally ambiguous (for example
	// missing an id) and were recovered by skipping rather than aborting.
	Skipped int `json:"skipped,omitempty"`
}

// storeFile mirrors the on-disk document. Entries are decoded individually
// so a single malformed entry does not poison the whole store.
type storeFile struct {
	Invariants []yaml.Node `yaml:"invariants"`
}

// Parse decodes a rule store document. Entries missing an id or failing to
// decode are skipped and counted; a document that is not shaped like a rule
// store at all is a structural error.
func Parse(data []byte) (*Store, error) {
	var doc storeFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse rule store: %w", err)
	}

	store := &Store{}
	for i, node := range doc.Invariants {
		var inv Invariant
		if err := node.Decode(&inv); err != nil {
			slog.Debug("skipping malformed rule entry", slog.Int("index", i), slog.String("error", err.Error()))
			store.Skipped++
			continue
		}
		if err := inv.Validate(); err != nil {
			slog.Debug("skipping invalid rule entry", slog.Int("index", i), slog.String("error", err.Error()))
			store.Skipped++
			continue
		}
		store.Invariants = append(store.Invariants, inv)
	}
	return store, nil
}

// Loader loads and caches parsed rule stores. The parsed form is cached as
// JSON in the project cache and is valid only while it is newer than the
// source file; any write to the source invalidates every cached copy.
type Loader struct {
	cache  *cache.Cache
	logger *slog.Logger
}

// NewLoader creates a store loader backed by the given project cache.
func NewLoader(c *cache.Cache, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{cache: c, logger: logger}
}

// Load reads the rule store at path, using the named cache slot when it is
// fresher than the source. Returns ErrNoStore when the file does not exist.
func (l *Loader) Load(path, cacheSlot string) (*Store, error) {
	srcInfo, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoStore
		}
		return nil, fmt.Errorf("stat rule store: %w", err)
	}

	cachePath := ""
	if l.cache != nil && cacheSlot != "" {
		cachePath = l.cache.Path(cacheSlot)
		if cacheInfo, err := os.Stat(cachePath); err == nil && cacheInfo.ModTime().After(srcInfo.ModTime()) {
			if store, err := readCached(cachePath); err == nil {
				return store, nil
			}
			// Corrupt cache falls through to a re-parse.
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rule store: %w", err)
	}
	store, err := Parse(data)
	if err != nil {
		return nil, err
	}
	if store.Skipped > 0 {
		l.logger.Warn("recovered rule store with skipped entries",
			slog.String("path", path),
			slog.Int("loaded", len(store.Invariants)),
			slog.Int("skipped", store.Skipped))
	}

	if cachePath != "" {
		if err := cache.WriteJSONAtomic(cachePath, store); err != nil {
			l.logger.Debug("rule store cache write failed", slog.String("error", err.Error()))
		}
	}
	return store, nil
}

func readCached(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var store Store
	if err := json.Unmarshal(data, &store); err != nil {
		return nil, err
	}
	return &store, nil
}

// Append adds one invariant to the store file without re-serializing the
// existing entries, preserving comments and formatting above the new entry.
// The previous file content is backed up first; if the resulting document
// fails to parse the backup is restored and an error returned.
func Append(path string, inv Invariant) error {
	if err := inv.Validate(); err != nil {
		return err
	}

	original, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("read rule store: %w", err)
		}
		original = []byte("invariants:\n")
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("create rule store dir: %w", err)
		}
	}

	entry, err := marshalEntry(inv)
	if err != nil {
		return err
	}

	updated := original
	if len(updated) > 0 && updated[len(updated)-1] != '\n' {
		updated = append(updated, '\n')
	}
	updated = append(updated, entry...)

	// Validate the whole document before committing.
	if _, err := Parse(updated); err != nil {
		return fmt.Errorf("append would corrupt rule store: %w", err)
	}

	backup := path + ".bak"
	if err := cache.WriteFileAtomic(backup, original); err != nil {
		return fmt.Errorf("write rule store backup: %w", err)
	}
	if err := cache.WriteFileAtomic(path, updated); err != nil {
		// Restore the pre-edit backup on failure.
		if rerr := cache.WriteFileAtomic(path, original); rerr != nil {
			return fmt.Errorf("write rule store (restore also failed: %v): %w", rerr, err)
		}
		return fmt.Errorf("write rule store: %w", err)
	}
	_ = os.Remove(backup)
	return nil
}

// marshalEntry renders one invariant as a list item indented to the store's
// two-space entry convention.
func marshalEntry(inv Invariant) ([]byte, error) {
	item, err := yaml.Marshal([]Invariant{inv})
	if err != nil {
		return nil, fmt.Errorf("marshal rule entry: %w", err)
	}
	// yaml.Marshal emits "- id: ..." at column zero; the store keeps
	// entries indented two spaces under the invariants key.
	var out []byte
	for _, line := range strings.Split(strings.TrimRight(string(item), "\n"), "\n") {
		if line != "" {
			out = append(out, ' ', ' ')
		}
		out = append(out, line...)
		out = append(out, '\n')
	}
	return out, nil
}
