package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/c360studio/archspec/cache"
	"github.com/c360studio/archspec/config"
	"github.com/c360studio/archspec/discover"
	"github.com/c360studio/archspec/engine"
	"github.com/c360studio/archspec/history"
	"github.com/c360studio/archspec/rules"
	"github.com/c360studio/archspec/session"
)

type globalOptions struct {
	repo     string
	logLevel string
}

// App wires configuration, the project cache and the rule store loader for
// one command invocation.
type App struct {
	cfg    *config.Config
	root   string
	cache  *cache.Cache
	loader *rules.Loader
	logger *slog.Logger
}

func newApp(opts *globalOptions) (*App, error) {
	logger := newLogger(opts.logLevel)
	slog.SetDefault(logger)

	cfg, err := config.NewLoader(logger).Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	root := cfg.Repo.Path
	if opts.repo != "" {
		root = opts.repo
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve repo path: %w", err)
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("stat repo path: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", absRoot)
	}

	c, err := cache.New(absRoot)
	if err != nil {
		return nil, err
	}

	return &App{
		cfg:    cfg,
		root:   absRoot,
		cache:  c,
		loader: rules.NewLoader(c, logger),
		logger: logger,
	}, nil
}

func newLogger(level string) *slog.Logger {
	lvl := slog.LevelWarn
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "error":
		lvl = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

// stateDir is the per-project directory holding the rule store, history
// timeline and calibration data.
func (a *App) stateDir() string {
	return filepath.Join(a.root, ".archspec")
}

func (a *App) rulePath() string {
	p := a.cfg.Rules.Store
	if !filepath.IsAbs(p) {
		p = filepath.Join(a.root, p)
	}
	return p
}

func (a *App) historyPath() string {
	return filepath.Join(a.stateDir(), history.FileName)
}

func (a *App) calibrationPath() string {
	return filepath.Join(a.stateDir(), history.CalibrationFileName)
}

const storeCacheSlot = "invariants.json"

// loadStore loads the rule store or fails with a hint toward init.
func (a *App) loadStore() (*rules.Store, error) {
	store, err := a.loader.Load(a.rulePath(), storeCacheSlot)
	if err == rules.ErrNoStore {
		return nil, fmt.Errorf("no rule store at %s (run %q first)", a.rulePath(), appName+" init")
	}
	return store, err
}

func (a *App) newScanner() *engine.Scanner {
	return engine.NewScanner(a.root, a.logger,
		engine.WithWorkers(a.cfg.Scan.Workers),
		engine.WithBudgets(a.cfg.Scan.SoftBudget, a.cfg.Scan.HardBudget),
		engine.WithIgnoredDirs(a.cfg.Repo.IgnoreDirs),
	)
}

func (a *App) historyStore() *history.Store {
	hs := history.NewStore(a.historyPath(), a.logger)
	hs.SetCap(a.cfg.History.Cap)
	return hs
}

func (a *App) newChecker() *session.Checker {
	ledger := session.NewLedger(a.cache.Path(session.LedgerFileName), a.logger)
	return session.NewChecker(a.newScanner(), ledger, a.calibrationPath(), a.logger)
}

// sourceFiles lists discoverable source paths, optionally restricted to a
// relative path prefix.
func (a *App) sourceFiles(scopePrefix string) ([]string, error) {
	files, err := discover.SourceFiles(a.root, discover.Options{ExtraIgnoredDirs: a.cfg.Repo.IgnoreDirs})
	if err != nil {
		return nil, err
	}
	if scopePrefix == "" {
		return files, nil
	}
	filtered := files[:0]
	for _, f := range files {
		if strings.HasPrefix(f, scopePrefix) {
			filtered = append(filtered, f)
		}
	}
	return filtered, nil
}

// relPath normalizes a user-supplied file argument to a slash-separated
// path relative to the repo root.
func (a *App) relPath(arg string) (string, error) {
	abs, err := filepath.Abs(arg)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(a.root, abs)
	if err != nil || strings.HasPrefix(rel, "..") {
		// Not under the root: treat the argument as already relative.
		rel = arg
	}
	return filepath.ToSlash(rel), nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
