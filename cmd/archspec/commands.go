package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/c360studio/archspec/cache"
	"github.com/c360studio/archspec/config"
	"github.com/c360studio/archspec/engine"
	"github.com/c360studio/archspec/graph"
	"github.com/c360studio/archspec/history"
	"github.com/c360studio/archspec/infer"
	"github.com/c360studio/archspec/inspect"
	"github.com/c360studio/archspec/rules"
	"github.com/c360studio/archspec/watch"
)

func scanCmd(opts *globalOptions) *cobra.Command {
	var record bool
	cmd := &cobra.Command{
		Use:   "scan [scope]",
		Short: "Check every source file against the rule store",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(opts)
			if err != nil {
				return err
			}
			store, err := app.loadStore()
			if err != nil {
				return err
			}

			scopePrefix := ""
			if len(args) > 0 {
				scopePrefix = filepath.ToSlash(args[0])
			}

			result, err := app.newScanner().Scan(cmd.Context(), scopePrefix, store)
			if err != nil {
				return err
			}

			if record {
				snap := history.BuildSnapshot(cmd.Context(), result)
				if err := app.historyStore().Append(snap); err != nil {
					app.logger.Warn("history append failed", "error", err)
				}
			}

			if err := writeJSON(cmd.OutOrStdout(), result); err != nil {
				return err
			}
			if result.Stats.Errors > 0 {
				return errViolations
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&record, "record", true, "Append a snapshot to the history timeline")
	return cmd
}

func checkCmd(opts *globalOptions) *cobra.Command {
	var endSession bool
	cmd := &cobra.Command{
		Use:   "check [file]...",
		Short: "Check individual files and track the edit session",
		Long: `Check evaluates the given files against the rule store and records
the outcome in the session ledger. Consecutive checks of the same file feed
rule calibration: a violation that disappears counts as fixed, one that
persists counts as ignored.

With --end-session the session ledger is summarized, a timeline snapshot is
appended, and the ledger is reset.`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && !endSession {
				return fmt.Errorf("no files given (or use --end-session)")
			}

			app, err := newApp(opts)
			if err != nil {
				return err
			}
			checker := app.newChecker()

			var results []*engine.ScanResult
			hadErrors := false
			if len(args) > 0 {
				store, err := app.loadStore()
				if err != nil {
					return err
				}
				for _, arg := range args {
					rel, err := app.relPath(arg)
					if err != nil {
						return err
					}
					result, err := checker.Check(cmd.Context(), rel, store)
					if err != nil {
						return err
					}
					if result.Stats.Errors > 0 {
						hadErrors = true
					}
					results = append(results, result)
				}
			}

			out := cmd.OutOrStdout()
			if endSession {
				summary, err := checker.Close(cmd.Context(), app.historyStore())
				if err != nil {
					return err
				}
				if err := writeJSON(out, summary); err != nil {
					return err
				}
			} else if err := writeJSON(out, results); err != nil {
				return err
			}
			if hadErrors {
				return errViolations
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&endSession, "end-session", false, "Summarize and reset the session ledger")
	return cmd
}

func graphCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph [scope]",
		Short: "Build the module dependency graph",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(opts)
			if err != nil {
				return err
			}

			scopePrefix := ""
			if len(args) > 0 {
				scopePrefix = filepath.ToSlash(args[0])
			}
			files, err := app.sourceFiles(scopePrefix)
			if err != nil {
				return err
			}
			entries := graph.CollectEntries(app.root, files)

			// Edge annotations come from a scan when a rule store exists.
			var violations []engine.Violation
			if store, err := app.loader.Load(app.rulePath(), storeCacheSlot); err == nil {
				result, err := app.newScanner().Scan(cmd.Context(), scopePrefix, store)
				if err != nil {
					return err
				}
				violations = result.Violations
			} else if err != rules.ErrNoStore {
				return err
			}

			return writeJSON(cmd.OutOrStdout(), graph.Build(entries, violations))
		},
	}
	return cmd
}

func inferCmd(opts *globalOptions) *cobra.Command {
	var minConfidence float64
	var write bool
	cmd := &cobra.Command{
		Use:   "infer",
		Short: "Propose invariants from observed import structure",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(opts)
			if err != nil {
				return err
			}

			files, err := app.sourceFiles("")
			if err != nil {
				return err
			}
			g := graph.Build(graph.CollectEntries(app.root, files), nil)
			proposals := infer.Rules(g, minConfidence)

			fmt.Fprint(cmd.OutOrStdout(), infer.EmitYAML(proposals, minConfidence))

			if !write {
				return nil
			}
			existing := map[string]struct{}{}
			if store, err := app.loader.Load(app.rulePath(), storeCacheSlot); err == nil {
				for _, inv := range store.Invariants {
					existing[inv.ID] = struct{}{}
				}
			} else if err != rules.ErrNoStore {
				return err
			}
			appended := 0
			for _, inv := range proposals {
				if _, ok := existing[inv.ID]; ok {
					continue
				}
				if err := rules.Append(app.rulePath(), inv); err != nil {
					return fmt.Errorf("append %s: %w", inv.ID, err)
				}
				appended++
			}
			app.logger.Info("inferred rules written",
				"path", app.rulePath(), "appended", appended,
				"skipped_existing", len(proposals)-appended)
			return nil
		},
	}
	cmd.Flags().Float64Var(&minConfidence, "min-confidence", infer.DefaultMinConfidence, "Minimum detector confidence percentage")
	cmd.Flags().BoolVar(&write, "write", false, "Append inferred rules to the rule store")
	return cmd
}

func inspectCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect",
		Short: "Profile the project: language, framework, dependencies, structure",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(opts)
			if err != nil {
				return err
			}
			result, err := inspect.Inspect(app.root)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), result)
		},
	}
}

// Report is the combined analytics record emitted by the report command.
type Report struct {
	GeneratedAt     string                              `json:"generated_at"`
	ComplianceScore float64                             `json:"compliance_score"`
	HealthScore     int                                 `json:"health_score"`
	Current         engine.Stats                        `json:"current"`
	FilesChecked    int                                 `json:"files_checked"`
	Snapshots       int                                 `json:"snapshots"`
	SkippedEntries  int                                 `json:"skipped_entries,omitempty"`
	Debt            *history.DebtProjection             `json:"debt,omitempty"`
	Calibration     []history.CalibrationRecommendation `json:"calibration,omitempty"`
}

func reportCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "Summarize compliance, health, debt trend and rule calibration",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(opts)
			if err != nil {
				return err
			}
			store, err := app.loadStore()
			if err != nil {
				return err
			}

			result, err := app.newScanner().Scan(cmd.Context(), "", store)
			if err != nil {
				return err
			}
			snaps, skipped, err := app.historyStore().Snapshots()
			if err != nil {
				return err
			}

			report := Report{
				GeneratedAt:     time.Now().UTC().Format(time.RFC3339),
				ComplianceScore: history.Compliance(result.FilesChecked, result.Stats.Errors),
				HealthScore:     history.HealthFromScan(result),
				Current:         result.Stats,
				FilesChecked:    result.FilesChecked,
				Snapshots:       len(snaps),
				SkippedEntries:  skipped,
				Debt:            history.Project(snaps, result.Violations),
			}
			if cal, err := history.LoadCalibration(app.calibrationPath()); err == nil {
				report.Calibration = cal.Recommendations()
			} else {
				app.logger.Warn("calibration unreadable", "error", err)
			}
			return writeJSON(cmd.OutOrStdout(), report)
		},
	}
}

func historyCmd(opts *globalOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print the scan timeline",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(opts)
			if err != nil {
				return err
			}
			snaps, _, err := app.historyStore().Snapshots()
			if err != nil {
				return err
			}
			if limit > 0 && len(snaps) > limit {
				snaps = snaps[len(snaps)-limit:]
			}
			if snaps == nil {
				snaps = []history.Snapshot{}
			}
			return writeJSON(cmd.OutOrStdout(), snaps)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "Only the most recent N snapshots (0 = all)")
	return cmd
}

func watchCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Continuously check files as they change",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(opts)
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			var metrics *watch.Metrics
			if addr := app.cfg.Watch.MetricsAddr; addr != "" {
				metrics = watch.NewMetrics()
				go func() {
					if err := metrics.Serve(ctx, addr, app.logger); err != nil {
						app.logger.Error("metrics server failed", "error", err)
					}
				}()
			}

			checker := app.newChecker()
			watcher, err := watch.NewWatcher(watch.Config{
				Root:       app.root,
				RulePath:   app.rulePath(),
				Debounce:   app.cfg.Watch.Debounce,
				IgnoreDirs: app.cfg.Repo.IgnoreDirs,
				Logger:     app.logger,
				Metrics:    metrics,
			}, checker, app.loader)
			if err != nil {
				return err
			}
			if err := watcher.Start(ctx); err != nil {
				return err
			}
			defer watcher.Stop()

			out := cmd.OutOrStdout()
		loop:
			for {
				select {
				case <-ctx.Done():
					break loop
				case event, ok := <-watcher.Events():
					if !ok {
						break loop
					}
					if event.Err != nil {
						app.logger.Warn("check failed", "file", event.Path, "error", event.Err)
						continue
					}
					if err := writeJSON(out, event.Result); err != nil {
						return err
					}
				}
			}

			// The watch loop is one long session; summarize it on the way out.
			summary, err := checker.Close(context.Background(), app.historyStore())
			if err != nil {
				return err
			}
			return writeJSON(out, summary)
		},
	}
}

const seedStore = `# Architectural invariants for this project.
# Entries are appended as standalone list items; archspec never
# re-serializes this file, so comments and ordering survive edits.
#
# Example:
#   - id: no-db-in-api
#     type: boundary
#     severity: error
#     description: API handlers must not import the database layer directly
#     source_glob: "src/api/**"
#     forbidden_imports:
#       - "**db/**"
invariants:
`

func initCmd(opts *globalOptions) *cobra.Command {
	var force bool
	var withConfig bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the rule store (and optionally a project config)",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(opts)
			if err != nil {
				return err
			}

			rulePath := app.rulePath()
			if _, err := os.Stat(rulePath); err == nil && !force {
				return fmt.Errorf("rule store already exists at %s (use --force to overwrite)", rulePath)
			}
			if err := os.MkdirAll(filepath.Dir(rulePath), 0o755); err != nil {
				return err
			}
			if err := cache.WriteFileAtomic(rulePath, []byte(seedStore)); err != nil {
				return fmt.Errorf("write rule store: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Initialized rule store at %s\n", rulePath)

			if withConfig {
				cfgPath := filepath.Join(app.root, config.ProjectConfigFile)
				if _, err := os.Stat(cfgPath); err == nil && !force {
					return fmt.Errorf("config already exists at %s (use --force to overwrite)", cfgPath)
				}
				if err := config.DefaultConfig().SaveToFile(cfgPath); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote default config to %s\n", cfgPath)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing files")
	cmd.Flags().BoolVar(&withConfig, "with-config", false, "Also write a default archspec.yaml")
	return cmd
}
