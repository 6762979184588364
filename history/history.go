// Package history maintains the bounded scan timeline and the longitudinal
// analytics computed over it.
package history

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/c360studio/archspec/cache"
	"github.com/c360studio/archspec/engine"
	"github.com/c360studio/archspec/rules"
)

// FIFOCap bounds the timeline; the oldest entries are evicted beyond it.
const FIFOCap = 500

// FileName is the timeline file inside the project state directory.
const FileName = "history.jsonl"

// SeverityCounts groups a snapshot's violations by severity.
type SeverityCounts struct {
	Error int `json:"error"`
	Warn  int `json:"warn"`
	Info  int `json:"info"`
}

// Snapshot is one appended timeline entry. Entries are never edited.
type Snapshot struct {
	Timestamp       string         `json:"timestamp"`
	Commit          string         `json:"commit"`
	TotalFiles      int            `json:"total_files"`
	FilesChecked    int            `json:"files_checked"`
	Violations      SeverityCounts `json:"violations"`
	ComplianceScore float64        `json:"compliance_score"`
	ByRule          map[string]int `json:"by_rule"`
}

// Total is the snapshot's violation count across severities.
func (s Snapshot) Total() int {
	return s.Violations.Error + s.Violations.Warn + s.Violations.Info
}

// Store reads and appends the JSONL timeline.
type Store struct {
	path   string
	cap    int
	logger *slog.Logger
}

// NewStore creates a timeline store at path with the default retention cap.
func NewStore(path string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{path: path, cap: FIFOCap, logger: logger}
}

// SetCap overrides the retention cap. Values below one are ignored.
func (s *Store) SetCap(n int) {
	if n >= 1 {
		s.cap = n
	}
}

// BuildSnapshot derives a timeline entry from a scan result. The commit id
// is resolved from git when available.
func BuildSnapshot(ctx context.Context, result *engine.ScanResult) Snapshot {
	counts := SeverityCounts{}
	byRule := map[string]int{}
	for _, v := range result.Violations {
		switch v.Severity {
		case rules.SeverityError:
			counts.Error++
		case rules.SeverityWarning:
			counts.Warn++
		case rules.SeverityInfo:
			counts.Info++
		}
		if v.Rule != "" {
			byRule[v.Rule]++
		}
	}

	return Snapshot{
		Timestamp:       time.Now().UTC().Format(time.RFC3339),
		Commit:          gitCommit(ctx),
		TotalFiles:      result.FilesChecked,
		FilesChecked:    result.FilesChecked,
		Violations:      counts,
		ComplianceScore: Compliance(result.FilesChecked, counts.Error),
		ByRule:          byRule,
	}
}

func gitCommit(ctx context.Context) string {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	out, err := exec.CommandContext(ctx, "git", "rev-parse", "--short", "HEAD").Output()
	if err != nil {
		return "unknown"
	}
	return strings.TrimSpace(string(out))
}

// Append adds one snapshot, evicting the oldest entries beyond FIFOCap.
// The rewritten file lands via temp-and-rename so a crash never leaves a
// partial timeline.
func (s *Store) Append(snap Snapshot) error {
	line, err := json.Marshal(snap)
	if err != nil {
		return err
	}

	var lines [][]byte
	if data, err := os.ReadFile(s.path); err == nil {
		for _, l := range bytes.Split(data, []byte("\n")) {
			if len(bytes.TrimSpace(l)) > 0 {
				lines = append(lines, l)
			}
		}
	}

	lines = append(lines, line)
	if len(lines) > s.cap {
		lines = lines[len(lines)-s.cap:]
	}

	var buf bytes.Buffer
	for _, l := range lines {
		buf.Write(l)
		buf.WriteByte('\n')
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	return cache.WriteFileAtomic(s.path, buf.Bytes())
}

// Snapshots reads the timeline in order. Malformed lines are skipped and
// counted, never fatal; analytics over a partially corrupt timeline still
// use every entry that parses.
func (s *Store) Snapshots() ([]Snapshot, int, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, 0, nil
		}
		return nil, 0, err
	}
	defer f.Close()

	var snaps []Snapshot
	skipped := 0
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var snap Snapshot
		if err := json.Unmarshal([]byte(line), &snap); err != nil {
			skipped++
			continue
		}
		snaps = append(snaps, snap)
	}
	if err := scanner.Err(); err != nil {
		return snaps, skipped, err
	}
	if skipped > 0 {
		s.logger.Warn("timeline has corrupt entries", slog.String("path", s.path), slog.Int("skipped", skipped))
	}
	return snaps, skipped, nil
}

// Compliance is the share of checked files without an error violation, as
// a percentage rounded to one decimal place. An empty scan is fully
// compliant.
func Compliance(filesChecked, errorCount int) float64 {
	if filesChecked == 0 {
		return 100.0
	}
	score := float64(filesChecked-errorCount) / float64(filesChecked) * 100
	return math.Round(score*10) / 10
}

// HealthScore penalizes rule diversity heavily and volume logarithmically,
// floored at zero.
func HealthScore(uniqueErrorRules, uniqueWarningRules, errorCount, warningCount int) int {
	rulePenalty := float64(uniqueErrorRules*10 + uniqueWarningRules*3)
	volPenalty := 0.0
	if errorCount > 0 {
		volPenalty += math.Log2(float64(errorCount)+1) * 3
	}
	if warningCount > 0 {
		volPenalty += math.Log2(float64(warningCount) + 1)
	}
	return int(math.Max(0, 100-rulePenalty-volPenalty))
}

// HealthFromScan computes the health score for a scan result.
func HealthFromScan(result *engine.ScanResult) int {
	errorRules := map[string]struct{}{}
	warningRules := map[string]struct{}{}
	errorCount, warningCount := 0, 0
	for _, v := range result.Violations {
		switch v.Severity {
		case rules.SeverityError:
			errorRules[v.Rule] = struct{}{}
			errorCount++
		case rules.SeverityWarning:
			warningRules[v.Rule] = struct{}{}
			warningCount++
		}
	}
	return HealthScore(len(errorRules), len(warningRules), errorCount, warningCount)
}
