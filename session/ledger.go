// Package session tracks per-edit checks across one working session: a
// violation ledger for edited files, calibration events derived from
// consecutive checks of the same file, and a closing summary.
package session

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/c360studio/archspec/cache"
	"github.com/c360studio/archspec/engine"
)

// LedgerFileName is the session violation ledger inside the project cache.
const LedgerFileName = "session-violations.json"

// Ledger accumulates violations observed during a session. All writes go
// through an in-process mutex and land via temp-and-rename, so rapid
// consecutive edits never interleave a partial write.
type Ledger struct {
	path   string
	mu     sync.Mutex
	logger *slog.Logger
}

// NewLedger creates a ledger at path.
func NewLedger(path string, logger *slog.Logger) *Ledger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ledger{path: path, logger: logger}
}

func (l *Ledger) load() []engine.Violation {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil
	}
	var viols []engine.Violation
	if err := json.Unmarshal(data, &viols); err != nil {
		l.logger.Warn("session ledger corrupt, starting fresh", slog.String("path", l.path))
		return nil
	}
	return viols
}

// Violations returns everything recorded so far. A corrupt ledger reads
// as empty.
func (l *Ledger) Violations() []engine.Violation {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.load()
}

// RulesFor returns the set of rules recorded against one file.
func (l *Ledger) RulesFor(relPath string) map[string]struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()

	rules := map[string]struct{}{}
	for _, v := range l.load() {
		if v.File == relPath && v.Rule != "" {
			rules[v.Rule] = struct{}{}
		}
	}
	return rules
}

// Append records violations from one check.
func (l *Ledger) Append(viols []engine.Violation) error {
	if len(viols) == 0 {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	all := append(l.load(), viols...)
	data, err := json.Marshal(all)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return err
	}
	return cache.WriteFileAtomic(l.path, data)
}

// Reset discards the ledger, ending the session's record.
func (l *Ledger) Reset() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
