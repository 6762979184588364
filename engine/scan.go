package engine

import (
	"context"
	"log/slog"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/c360studio/archspec/discover"
	"github.com/c360studio/archspec/rules"
)

// Default time budgets for a scan invocation. The soft budget triggers a
// warning, the hard budget abandons the scan and reports no violations.
const (
	DefaultSoftBudget = 2 * time.Second
	DefaultHardBudget = 10 * time.Second
)

// Scanner runs invariants over many files with a bounded worker pool.
type Scanner struct {
	root       string
	workers    int
	hardBudget time.Duration
	softBudget time.Duration
	ignore     []string
	logger     *slog.Logger
}

// ScannerOption configures a Scanner.
type ScannerOption func(*Scanner)

// WithWorkers sets the worker pool size.
func WithWorkers(n int) ScannerOption {
	return func(s *Scanner) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithBudgets sets the soft and hard time budgets.
func WithBudgets(soft, hard time.Duration) ScannerOption {
	return func(s *Scanner) {
		if soft > 0 {
			s.softBudget = soft
		}
		if hard > 0 {
			s.hardBudget = hard
		}
	}
}

// WithIgnoredDirs adds directory names pruned during discovery.
func WithIgnoredDirs(dirs []string) ScannerOption {
	return func(s *Scanner) { s.ignore = dirs }
}

// NewScanner creates a scanner for the project at root.
func NewScanner(root string, logger *slog.Logger, opts ...ScannerOption) *Scanner {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Scanner{
		root:       root,
		workers:    runtime.NumCPU(),
		softBudget: DefaultSoftBudget,
		hardBudget: DefaultHardBudget,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scan evaluates the store against every source file under root, optionally
// restricted to a scope path prefix. Results are deterministic: violations
// appear in file order, then rule order within each file. A scan that
// exceeds the hard budget returns an empty result rather than an error.
func (s *Scanner) Scan(ctx context.Context, scopePrefix string, store *rules.Store) (*ScanResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.hardBudget)
	defer cancel()

	files, err := discover.SourceFiles(s.root, discover.Options{ExtraIgnoredDirs: s.ignore})
	if err != nil {
		return nil, err
	}
	if scopePrefix != "" {
		filtered := files[:0]
		for _, f := range files {
			if strings.HasPrefix(f, scopePrefix) {
				filtered = append(filtered, f)
			}
		}
		files = filtered
	}

	result := &ScanResult{
		Scope:        scopePrefix,
		FilesChecked: len(files),
		Violations:   []Violation{},
	}
	if len(files) == 0 || len(store.Invariants) == 0 {
		return result, nil
	}

	start := time.Now()
	perFile := make([][]Violation, len(files))
	indexes := make(chan int)
	var wg sync.WaitGroup

	workers := s.workers
	if workers > len(files) {
		workers = len(files)
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			eval := NewEvaluator(s.root, s.logger)
			for i := range indexes {
				perFile[i] = eval.EvaluateFile(files[i], store)
			}
		}()
	}

feed:
	for i := range files {
		select {
		case indexes <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(indexes)
	wg.Wait()

	if ctx.Err() != nil {
		// Over the hard budget: the scan reports nothing rather than a
		// partial, misleading result.
		s.logger.Warn("scan abandoned over time budget",
			slog.Duration("budget", s.hardBudget),
			slog.Int("files", len(files)))
		return &ScanResult{Scope: scopePrefix, Violations: []Violation{}}, nil
	}
	if elapsed := time.Since(start); elapsed > s.softBudget {
		s.logger.Warn("scan exceeded soft budget",
			slog.Duration("elapsed", elapsed),
			slog.Int("files", len(files)))
	}

	for _, batch := range perFile {
		result.Violations = append(result.Violations, batch...)
	}
	result.Stats = tally(result.Violations)
	return result, nil
}

// CheckFile evaluates the store against one file, honoring the hard budget.
func (s *Scanner) CheckFile(ctx context.Context, relPath string, store *rules.Store) (*ScanResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.hardBudget)
	defer cancel()

	result := &ScanResult{
		Scope:        relPath,
		FilesChecked: 1,
		Violations:   []Violation{},
	}

	done := make(chan []Violation, 1)
	go func() {
		done <- NewEvaluator(s.root, s.logger).EvaluateFile(relPath, store)
	}()

	select {
	case violations := <-done:
		result.Violations = append(result.Violations, violations...)
	case <-ctx.Done():
		s.logger.Warn("file check abandoned over time budget", slog.String("file", relPath))
	}
	result.Stats = tally(result.Violations)
	return result, nil
}
