package history

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/archspec/engine"
	"github.com/c360studio/archspec/rules"
)

func snapAt(day, total int) Snapshot {
	return Snapshot{
		Timestamp:  fmt.Sprintf("2026-01-%02dT00:00:00Z", day+1),
		Commit:     "abc1234",
		Violations: SeverityCounts{Error: total},
	}
}

func TestCompliance(t *testing.T) {
	tests := []struct {
		name   string
		files  int
		errors int
		want   float64
	}{
		{"empty scan", 0, 0, 100.0},
		{"clean", 10, 0, 100.0},
		{"some errors", 10, 2, 80.0},
		{"rounds to one decimal", 3, 1, 66.7},
		{"all errors", 5, 5, 0.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Compliance(tt.files, tt.errors))
		})
	}
}

func TestHealthScore(t *testing.T) {
	assert.Equal(t, 100, HealthScore(0, 0, 0, 0))

	// One error rule firing once: 10 rule penalty + log2(2)*3 volume.
	assert.Equal(t, 87, HealthScore(1, 0, 1, 0))

	// Floors at zero under heavy penalties.
	assert.Equal(t, 0, HealthScore(20, 10, 500, 500))
}

func TestHealthFromScan(t *testing.T) {
	result := &engine.ScanResult{
		Violations: []engine.Violation{
			{Rule: "no-db", Severity: rules.SeverityError},
			{Rule: "no-db", Severity: rules.SeverityError},
			{Rule: "naming", Severity: rules.SeverityWarning},
		},
	}
	// 10 + 3 rule penalty, log2(3)*3 + log2(2) volume.
	assert.Equal(t, 81, HealthFromScan(result))
}

func TestVelocity(t *testing.T) {
	// 10 violations on day 0, 20 on day 5, 15 on day 10: deltas of
	// +2/day and -1/day average out to +0.5/day.
	snaps := []Snapshot{snapAt(0, 10), snapAt(5, 20), snapAt(10, 15)}

	v, ok := Velocity(snaps)
	require.True(t, ok)
	assert.InDelta(t, 0.5, v, 1e-9)
	assert.Equal(t, TrendStable, TrendOf(v))
}

func TestVelocityNeedsTwoSnapshots(t *testing.T) {
	_, ok := Velocity([]Snapshot{snapAt(0, 10)})
	assert.False(t, ok)
	assert.Nil(t, Project([]Snapshot{snapAt(0, 10)}, nil))
}

func TestVelocitySkipsZeroIntervalPairs(t *testing.T) {
	snaps := []Snapshot{snapAt(0, 10), snapAt(0, 12), snapAt(2, 14)}
	v, ok := Velocity(snaps)
	require.True(t, ok)
	assert.InDelta(t, 1.0, v, 1e-9)
}

func TestTrendOf(t *testing.T) {
	assert.Equal(t, TrendDegrading, TrendOf(0.51))
	assert.Equal(t, TrendStable, TrendOf(0.5))
	assert.Equal(t, TrendStable, TrendOf(-0.5))
	assert.Equal(t, TrendImproving, TrendOf(-0.51))
}

func TestHotspots(t *testing.T) {
	violations := []engine.Violation{
		{File: "src/api/users.ts"},
		{File: "src/api/orders.ts"},
		{File: "src/api/orders.ts"},
		{File: "src/db/client.ts"},
		{File: "src/db/pool.ts"},
		{File: "lib/util/strings.ts"},
		{File: "main.ts"},
	}

	spots := Hotspots(violations)
	require.Len(t, spots, 3)
	assert.Equal(t, Hotspot{Module: "src/api", Count: 3}, spots[0])
	assert.Equal(t, Hotspot{Module: "src/db", Count: 2}, spots[1])
	// Remaining modules tie at one; alphabetical order decides.
	assert.Equal(t, Hotspot{Module: "lib/util", Count: 1}, spots[2])
}

func TestProject(t *testing.T) {
	snaps := []Snapshot{snapAt(0, 10), snapAt(5, 20)}
	current := []engine.Violation{{File: "src/api/users.ts"}}

	proj := Project(snaps, current)
	require.NotNil(t, proj)
	assert.Equal(t, 2.0, proj.Velocity)
	assert.Equal(t, 60, proj.Projection30d)
	assert.Equal(t, TrendDegrading, proj.Trend)
	require.Len(t, proj.Hotspots, 1)
	assert.Contains(t, proj.Recommendation, "accumulating")
}

func TestProjectClampsNegativeProjection(t *testing.T) {
	snaps := []Snapshot{snapAt(0, 30), snapAt(5, 10)}

	proj := Project(snaps, nil)
	require.NotNil(t, proj)
	assert.Equal(t, TrendImproving, proj.Trend)
	assert.Equal(t, 0, proj.Projection30d)
}

func TestStoreAppendAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".archspec", FileName)
	store := NewStore(path, nil)

	for i := 0; i < 3; i++ {
		require.NoError(t, store.Append(snapAt(i, i*2)))
	}

	snaps, skipped, err := store.Snapshots()
	require.NoError(t, err)
	assert.Zero(t, skipped)
	require.Len(t, snaps, 3)
	assert.Equal(t, 0, snaps[0].Total())
	assert.Equal(t, 4, snaps[2].Total())
}

func TestStoreEvictsOldest(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)

	var b strings.Builder
	for i := 0; i < FIFOCap; i++ {
		fmt.Fprintf(&b, `{"timestamp":"2026-01-01T00:00:00Z","commit":"c%d"}`+"\n", i)
	}
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))

	store := NewStore(path, nil)
	require.NoError(t, store.Append(snapAt(0, 1)))

	snaps, _, err := store.Snapshots()
	require.NoError(t, err)
	require.Len(t, snaps, FIFOCap)
	assert.Equal(t, "c1", snaps[0].Commit)
	assert.Equal(t, "abc1234", snaps[FIFOCap-1].Commit)
}

func TestStoreSkipsMalformedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	content := `{"timestamp":"2026-01-01T00:00:00Z","commit":"one"}
not json at all
{"timestamp":"2026-01-02T00:00:00Z","commit":"two"}
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	snaps, skipped, err := NewStore(path, nil).Snapshots()
	require.NoError(t, err)
	assert.Equal(t, 1, skipped)
	require.Len(t, snaps, 2)
	assert.Equal(t, "two", snaps[1].Commit)
}

func TestStoreMissingFile(t *testing.T) {
	snaps, skipped, err := NewStore(filepath.Join(t.TempDir(), FileName), nil).Snapshots()
	require.NoError(t, err)
	assert.Zero(t, skipped)
	assert.Empty(t, snaps)
}

func TestBuildSnapshot(t *testing.T) {
	result := &engine.ScanResult{
		FilesChecked: 10,
		Violations: []engine.Violation{
			{Rule: "no-db", Severity: rules.SeverityError, File: "src/api/users.ts"},
			{Rule: "no-db", Severity: rules.SeverityError, File: "src/api/orders.ts"},
			{Rule: "naming", Severity: rules.SeverityWarning, File: "src/db/client.ts"},
		},
	}

	snap := BuildSnapshot(context.Background(), result)
	assert.NotEmpty(t, snap.Timestamp)
	assert.NotEmpty(t, snap.Commit)
	assert.Equal(t, 10, snap.FilesChecked)
	assert.Equal(t, SeverityCounts{Error: 2, Warn: 1}, snap.Violations)
	assert.Equal(t, 80.0, snap.ComplianceScore)
	assert.Equal(t, map[string]int{"no-db": 2, "naming": 1}, snap.ByRule)
}

func TestCalibrationRecordAndRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), CalibrationFileName)

	var cal Calibration
	cal.Record("no-db", EventFixed)
	cal.Record("no-db", EventIgnored)
	cal.Record("no-db", EventIgnored)
	cal.Record("naming", EventFixed)

	require.NoError(t, SaveCalibration(path, cal))

	loaded, err := LoadCalibration(path)
	require.NoError(t, err)
	assert.Equal(t, RuleStats{Fixed: 1, Ignored: 2}, loaded.Rules["no-db"])
	assert.Equal(t, RuleStats{Fixed: 1}, loaded.Rules["naming"])
}

func TestLoadCalibrationMissingFile(t *testing.T) {
	cal, err := LoadCalibration(filepath.Join(t.TempDir(), CalibrationFileName))
	require.NoError(t, err)
	assert.Empty(t, cal.Rules)
}

func TestCalibrationRecommendations(t *testing.T) {
	cal := Calibration{Rules: map[string]RuleStats{
		// 10 points, 70% ignored: downgrade.
		"noisy": {Fixed: 3, Ignored: 7},
		// 10 points but mostly fixed: keep.
		"useful": {Fixed: 7, Ignored: 3},
		// High ratio but too few points.
		"young": {Fixed: 0, Ignored: 8},
	}}

	recs := cal.Recommendations()
	require.Len(t, recs, 1)
	assert.Equal(t, "noisy", recs[0].Rule)
	assert.Equal(t, "downgrade", recs[0].Action)
	assert.Equal(t, 3, recs[0].Fixed)
	assert.Equal(t, 7, recs[0].Ignored)
	assert.Contains(t, recs[0].Reason, "70%")
}
