package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/c360studio/archspec/cache"
)

// CalibrationFileName holds per-rule fix/ignore tallies inside the project
// state directory.
const CalibrationFileName = "calibration.json"

// Calibration outcome events observed after a rule fired.
const (
	EventFixed   = "fixed"
	EventIgnored = "ignored"
)

// Downgrade thresholds: a rule needs this many observed outcomes before a
// recommendation is made, and this share of them must be ignores.
const (
	calibrationMinPoints   = 10
	calibrationIgnoreRatio = 0.7
)

// RuleStats tallies observed outcomes for one rule.
type RuleStats struct {
	Fixed   int `json:"fixed"`
	Ignored int `json:"ignored"`
}

// Calibration is the persisted tally across all rules.
type Calibration struct {
	Rules map[string]RuleStats `json:"rules"`
}

// Record adds one outcome event for a rule.
func (c *Calibration) Record(ruleID, event string) {
	if c.Rules == nil {
		c.Rules = map[string]RuleStats{}
	}
	stats := c.Rules[ruleID]
	switch event {
	case EventFixed:
		stats.Fixed++
	case EventIgnored:
		stats.Ignored++
	default:
		return
	}
	c.Rules[ruleID] = stats
}

// LoadCalibration reads the tally file; a missing file is an empty tally.
func LoadCalibration(path string) (Calibration, error) {
	cal := Calibration{Rules: map[string]RuleStats{}}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cal, nil
		}
		return cal, err
	}
	if err := json.Unmarshal(data, &cal); err != nil {
		return Calibration{Rules: map[string]RuleStats{}}, fmt.Errorf("parse %s: %w", path, err)
	}
	if cal.Rules == nil {
		cal.Rules = map[string]RuleStats{}
	}
	return cal, nil
}

// SaveCalibration writes the tally atomically.
func SaveCalibration(path string, cal Calibration) error {
	data, err := json.MarshalIndent(cal, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return cache.WriteFileAtomic(path, append(data, '\n'))
}

// CalibrationRecommendation suggests adjusting a rule whose violations are
// routinely ignored.
type CalibrationRecommendation struct {
	Rule    string `json:"rule"`
	Action  string `json:"action"`
	Reason  string `json:"reason"`
	Fixed   int    `json:"fixed"`
	Ignored int    `json:"ignored"`
}

// Recommendations lists severity downgrades for rules with enough data
// points and a high ignore ratio, sorted by rule id.
func (c Calibration) Recommendations() []CalibrationRecommendation {
	var recs []CalibrationRecommendation
	for id, stats := range c.Rules {
		total := stats.Fixed + stats.Ignored
		if total < calibrationMinPoints {
			continue
		}
		ratio := float64(stats.Ignored) / float64(total)
		if ratio < calibrationIgnoreRatio {
			continue
		}
		recs = append(recs, CalibrationRecommendation{
			Rule:    id,
			Action:  "downgrade",
			Reason:  fmt.Sprintf("%.0f%% of %d observed violations were ignored", ratio*100, total),
			Fixed:   stats.Fixed,
			Ignored: stats.Ignored,
		})
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].Rule < recs[j].Rule })
	return recs
}
