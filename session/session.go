package session

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/c360studio/archspec/engine"
	"github.com/c360studio/archspec/history"
	"github.com/c360studio/archspec/rules"
)

// Checker runs single-file checks for one session, recording outcomes in
// the ledger and deriving calibration events.
type Checker struct {
	id              string
	scanner         *engine.Scanner
	ledger          *Ledger
	calibrationPath string
	calMu           sync.Mutex
	logger          *slog.Logger
}

// NewChecker creates a session-scoped checker. calibrationPath may be
// empty to disable calibration tracking.
func NewChecker(scanner *engine.Scanner, ledger *Ledger, calibrationPath string, logger *slog.Logger) *Checker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Checker{
		id:              uuid.NewString(),
		scanner:         scanner,
		ledger:          ledger,
		calibrationPath: calibrationPath,
		logger:          logger,
	}
}

// ID is the session identifier.
func (c *Checker) ID() string { return c.id }

// Check evaluates one edited file. Rules that were violated at the file's
// previous check and still are count as ignored; ones that cleared count
// as fixed. New violations are appended to the ledger.
func (c *Checker) Check(ctx context.Context, relPath string, store *rules.Store) (*engine.ScanResult, error) {
	prev := c.ledger.RulesFor(relPath)

	result, err := c.scanner.CheckFile(ctx, relPath, store)
	if err != nil {
		return nil, err
	}

	curr := map[string]struct{}{}
	for _, v := range result.Violations {
		if v.Rule != "" {
			curr[v.Rule] = struct{}{}
		}
	}
	c.recordCalibration(prev, curr)

	if err := c.ledger.Append(result.Violations); err != nil {
		c.logger.Warn("failed to record session violations", slog.String("error", err.Error()))
	}
	return result, nil
}

func (c *Checker) recordCalibration(prev, curr map[string]struct{}) {
	if c.calibrationPath == "" || len(prev) == 0 {
		return
	}
	c.calMu.Lock()
	defer c.calMu.Unlock()

	cal, err := history.LoadCalibration(c.calibrationPath)
	if err != nil {
		c.logger.Warn("calibration unreadable", slog.String("error", err.Error()))
		cal = history.Calibration{}
	}
	for rule := range prev {
		if _, still := curr[rule]; still {
			cal.Record(rule, history.EventIgnored)
		} else {
			cal.Record(rule, history.EventFixed)
		}
	}
	if err := history.SaveCalibration(c.calibrationPath, cal); err != nil {
		c.logger.Warn("failed to save calibration", slog.String("error", err.Error()))
	}
}

// Summary describes what happened over one session.
type Summary struct {
	Session       string   `json:"session"`
	Total         int      `json:"total"`
	Errors        int      `json:"errors"`
	Warnings      int      `json:"warnings"`
	FilesChecked  int      `json:"files_checked"`
	Rules         []string `json:"rules,omitempty"`
	RepeatedRules []string `json:"repeated_rules,omitempty"`
}

// RepeatThreshold is how often a rule must fire across the timeline before
// the summary flags it as recurring.
const RepeatThreshold = 3

// Close summarizes the session, appends a timeline snapshot covering the
// session's checks, and resets the ledger. hist may be nil to skip the
// snapshot.
func (c *Checker) Close(ctx context.Context, hist *history.Store) (*Summary, error) {
	viols := c.ledger.Violations()

	files := map[string]struct{}{}
	ruleSet := map[string]struct{}{}
	summary := &Summary{Session: c.id, Total: len(viols)}
	for _, v := range viols {
		files[v.File] = struct{}{}
		if v.Rule != "" {
			ruleSet[v.Rule] = struct{}{}
		}
		switch v.Severity {
		case rules.SeverityError:
			summary.Errors++
		case rules.SeverityWarning:
			summary.Warnings++
		}
	}
	summary.FilesChecked = len(files)
	for r := range ruleSet {
		summary.Rules = append(summary.Rules, r)
	}
	sort.Strings(summary.Rules)

	if hist != nil {
		snap := history.BuildSnapshot(ctx, &engine.ScanResult{
			FilesChecked: summary.FilesChecked,
			Violations:   viols,
		})
		if err := hist.Append(snap); err != nil {
			c.logger.Warn("failed to append session snapshot", slog.String("error", err.Error()))
		}
		summary.RepeatedRules = repeatedRules(hist)
	}

	if err := c.ledger.Reset(); err != nil {
		return summary, err
	}
	return summary, nil
}

func repeatedRules(hist *history.Store) []string {
	snaps, _, err := hist.Snapshots()
	if err != nil {
		return nil
	}
	counts := map[string]int{}
	for _, snap := range snaps {
		for rule, n := range snap.ByRule {
			counts[rule] += n
		}
	}
	var repeated []string
	for rule, n := range counts {
		if n >= RepeatThreshold {
			repeated = append(repeated, rule)
		}
	}
	sort.Strings(repeated)
	return repeated
}
