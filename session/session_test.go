package session

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/archspec/engine"
	"github.com/c360studio/archspec/history"
	"github.com/c360studio/archspec/rules"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func noDBStore() *rules.Store {
	return &rules.Store{Invariants: []rules.Invariant{{
		ID:               "no-db-in-api",
		Type:             rules.TypeBoundary,
		Severity:         rules.SeverityError,
		Description:      "api must not import db",
		SourceGlob:       "src/api/**",
		ForbiddenImports: []string{"**db/**"},
	}}}
}

func newChecker(t *testing.T, root, calPath string) *Checker {
	t.Helper()
	ledger := NewLedger(filepath.Join(t.TempDir(), LedgerFileName), nil)
	return NewChecker(engine.NewScanner(root, nil), ledger, calPath, nil)
}

func TestLedgerAppendAndRulesFor(t *testing.T) {
	ledger := NewLedger(filepath.Join(t.TempDir(), LedgerFileName), nil)

	require.NoError(t, ledger.Append([]engine.Violation{
		{Rule: "no-db", File: "src/api/users.ts"},
		{Rule: "naming", File: "src/api/users.ts"},
		{Rule: "no-db", File: "src/api/orders.ts"},
	}))

	assert.Len(t, ledger.Violations(), 3)
	got := ledger.RulesFor("src/api/users.ts")
	assert.Len(t, got, 2)
	assert.Contains(t, got, "no-db")
	assert.Contains(t, got, "naming")
}

func TestLedgerCorruptReadsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), LedgerFileName)
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	ledger := NewLedger(path, nil)
	assert.Empty(t, ledger.Violations())

	// Appending over a corrupt ledger starts a fresh record.
	require.NoError(t, ledger.Append([]engine.Violation{{Rule: "no-db", File: "a.ts"}}))
	assert.Len(t, ledger.Violations(), 1)
}

func TestLedgerReset(t *testing.T) {
	path := filepath.Join(t.TempDir(), LedgerFileName)
	ledger := NewLedger(path, nil)
	require.NoError(t, ledger.Append([]engine.Violation{{Rule: "no-db", File: "a.ts"}}))
	require.NoError(t, ledger.Reset())
	assert.Empty(t, ledger.Violations())
	require.NoError(t, ledger.Reset())
}

func TestCheckRecordsViolations(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "src/api/users.ts", "import db from '../db/client'\n")

	checker := newChecker(t, root, "")
	result, err := checker.Check(context.Background(), "src/api/users.ts", noDBStore())
	require.NoError(t, err)
	require.Len(t, result.Violations, 1)
	assert.Equal(t, "no-db-in-api", result.Violations[0].Rule)
	assert.Len(t, checker.ledger.Violations(), 1)
}

func TestCheckDerivesCalibrationEvents(t *testing.T) {
	root := t.TempDir()
	calPath := filepath.Join(t.TempDir(), history.CalibrationFileName)
	writeFile(t, root, "src/api/users.ts", "import db from '../db/client'\n")

	checker := newChecker(t, root, calPath)
	ctx := context.Background()
	store := noDBStore()

	// First check establishes the baseline; no prior state, no events.
	_, err := checker.Check(ctx, "src/api/users.ts", store)
	require.NoError(t, err)
	cal, err := history.LoadCalibration(calPath)
	require.NoError(t, err)
	assert.Empty(t, cal.Rules)

	// Second check with the violation still present: ignored.
	_, err = checker.Check(ctx, "src/api/users.ts", store)
	require.NoError(t, err)
	cal, err = history.LoadCalibration(calPath)
	require.NoError(t, err)
	assert.Equal(t, history.RuleStats{Ignored: 1}, cal.Rules["no-db-in-api"])

	// Third check after the import is removed: fixed.
	writeFile(t, root, "src/api/users.ts", "export const users = []\n")
	_, err = checker.Check(ctx, "src/api/users.ts", store)
	require.NoError(t, err)
	cal, err = history.LoadCalibration(calPath)
	require.NoError(t, err)
	assert.Equal(t, history.RuleStats{Fixed: 1, Ignored: 1}, cal.Rules["no-db-in-api"])
}

func TestCloseSummarizesAndResets(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "src/api/users.ts", "import db from '../db/client'\n")
	writeFile(t, root, "src/api/orders.ts", "import db from '../db/pool'\n")

	histPath := filepath.Join(t.TempDir(), history.FileName)
	hist := history.NewStore(histPath, nil)

	checker := newChecker(t, root, "")
	ctx := context.Background()
	store := noDBStore()
	_, err := checker.Check(ctx, "src/api/users.ts", store)
	require.NoError(t, err)
	_, err = checker.Check(ctx, "src/api/orders.ts", store)
	require.NoError(t, err)

	summary, err := checker.Close(ctx, hist)
	require.NoError(t, err)
	assert.Equal(t, checker.ID(), summary.Session)
	assert.Equal(t, 2, summary.Total)
	assert.Equal(t, 2, summary.Errors)
	assert.Equal(t, 2, summary.FilesChecked)
	assert.Equal(t, []string{"no-db-in-api"}, summary.Rules)

	snaps, _, err := hist.Snapshots()
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, 2, snaps[0].Violations.Error)

	assert.Empty(t, checker.ledger.Violations())
}

func TestCloseFlagsRepeatedRules(t *testing.T) {
	root := t.TempDir()
	histPath := filepath.Join(t.TempDir(), history.FileName)
	hist := history.NewStore(histPath, nil)
	for i := 0; i < 3; i++ {
		require.NoError(t, hist.Append(history.Snapshot{
			Timestamp: "2026-01-01T00:00:00Z",
			ByRule:    map[string]int{"no-db-in-api": 1, "rare": 0},
		}))
	}

	checker := newChecker(t, root, "")
	summary, err := checker.Close(context.Background(), hist)
	require.NoError(t, err)
	assert.Equal(t, []string{"no-db-in-api"}, summary.RepeatedRules)
}

func TestCloseEmptySession(t *testing.T) {
	checker := newChecker(t, t.TempDir(), "")
	summary, err := checker.Close(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, summary.Total)
	assert.Zero(t, summary.FilesChecked)
	assert.Empty(t, summary.Rules)
}
