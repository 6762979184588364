package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/archspec/rules"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	full := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

func boundaryRule() rules.Invariant {
	return rules.Invariant{
		ID:               "no-db-in-routes",
		Type:             rules.TypeBoundary,
		Severity:         rules.SeverityError,
		Description:      "routes must not import the db layer",
		SourceGlob:       "routes/**",
		ForbiddenImports: []string{"**db/client**", "db/**"},
	}
}

func TestBoundaryViolation(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "routes/api.ts", "import { db } from '../db/client';\n")
	writeFile(t, root, "services/user.ts", "import { db } from '../db/client';\n")

	eval := NewEvaluator(root, nil)
	rule := boundaryRule()

	got := eval.Evaluate("routes/api.ts", &rule)
	require.Len(t, got, 1)
	assert.Equal(t, "no-db-in-routes", got[0].Rule)
	assert.Equal(t, rules.SeverityError, got[0].Severity)
	assert.Equal(t, "routes/api.ts", got[0].File)
	assert.Equal(t, "../db/client", got[0].Import)

	// Out of scope file is untouched.
	assert.Empty(t, eval.Evaluate("services/user.ts", &rule))
}

func TestBoundaryCommentedImportIgnored(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "routes/api.ts", "// import { db } from '../db/client';\nexport const ok = 1;\n")

	eval := NewEvaluator(root, nil)
	rule := boundaryRule()
	assert.Empty(t, eval.Evaluate("routes/api.ts", &rule))
}

func TestBoundaryAllowedOverride(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "routes/api.ts", "import { types } from '../db/types';\n")

	rule := boundaryRule()
	rule.ForbiddenImports = []string{"**db/**"}
	rule.AllowedImports = []string{"**db/types**"}

	eval := NewEvaluator(root, nil)
	assert.Empty(t, eval.Evaluate("routes/api.ts", &rule))
}

func TestBoundaryDottedImport(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "routes/handler.py", "import db.client\n")

	rule := rules.Invariant{
		ID:               "no-db-in-routes",
		Type:             rules.TypeBoundary,
		Severity:         rules.SeverityError,
		Description:      "no db in routes",
		SourceGlob:       "routes/**",
		ForbiddenImports: []string{"db/**"},
	}

	eval := NewEvaluator(root, nil)
	got := eval.Evaluate("routes/handler.py", &rule)
	require.Len(t, got, 1)
	assert.Equal(t, "db.client", got[0].Import)
}

func TestPatternRule(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "services/report.ts",
		"const q = 'x';\nconst sql = `SELECT * FROM users`;\nconst more = `SELECT 1`;\n")
	writeFile(t, root, "db/query.ts", "const sql = `SELECT * FROM users`;\n")

	rule := rules.Invariant{
		ID:               "no-raw-sql",
		Type:             rules.TypePattern,
		Severity:         rules.SeverityWarning,
		Description:      "raw SQL outside the db layer",
		ScopeGlob:        "**",
		ScopeGlobExclude: []string{"db/**"},
		ForbiddenPattern: "SELECT",
	}

	eval := NewEvaluator(root, nil)

	got := eval.Evaluate("services/report.ts", &rule)
	require.Len(t, got, 1)
	assert.Equal(t, 2, got[0].Line)

	// Excluded directory is exempt.
	assert.Empty(t, eval.Evaluate("db/query.ts", &rule))
}

func TestPatternPosixClasses(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "app/main.go", "package main\n\nfunc main() {\tprintln(1)\n}\n")

	rule := rules.Invariant{
		ID:               "no-println",
		Type:             rules.TypePattern,
		Severity:         rules.SeverityInfo,
		Description:      "println in committed code",
		ForbiddenPattern: "[[:space:]]println\\(",
	}

	eval := NewEvaluator(root, nil)
	got := eval.Evaluate("app/main.go", &rule)
	require.Len(t, got, 1)
	assert.Equal(t, 3, got[0].Line)
}

func TestPatternInvalidRegexSkipped(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "app/main.ts", "anything\n")

	rule := rules.Invariant{
		ID:               "broken",
		Type:             rules.TypePattern,
		Severity:         rules.SeverityError,
		Description:      "broken regex",
		ForbiddenPattern: "se(lect",
	}

	eval := NewEvaluator(root, nil)
	assert.Empty(t, eval.Evaluate("app/main.ts", &rule))
}

func TestConventionTestColocation(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "services/user.ts", "export const u = 1;\n")
	writeFile(t, root, "services/order.ts", "export const o = 1;\n")
	writeFile(t, root, "services/order.test.ts", "import './order';\n")

	rule := rules.Invariant{
		ID:          "colocated-tests",
		Type:        rules.TypeConvention,
		Severity:    rules.SeverityInfo,
		Description: "source files keep tests next to them",
		Rule:        "every module has a colocated test file",
	}

	eval := NewEvaluator(root, nil)

	got := eval.Evaluate("services/user.ts", &rule)
	require.Len(t, got, 1)
	assert.Equal(t, "missing colocated test file", got[0].Message)

	assert.Empty(t, eval.Evaluate("services/order.ts", &rule))
	// Test files themselves are never flagged.
	assert.Empty(t, eval.Evaluate("services/order.test.ts", &rule))
}

func TestConventionInertText(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "services/user.ts", "export const u = 1;\n")

	rule := rules.Invariant{
		ID:          "naming",
		Type:        rules.TypeConvention,
		Severity:    rules.SeverityInfo,
		Description: "naming convention",
		Rule:        "handlers use verbNoun naming",
	}

	eval := NewEvaluator(root, nil)
	assert.Empty(t, eval.Evaluate("services/user.ts", &rule))
}

func TestGoTestColocation(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "pkg/store.go", "package pkg\n")
	writeFile(t, root, "pkg/store_test.go", "package pkg\n")
	writeFile(t, root, "pkg/naked.go", "package pkg\n")

	rule := rules.Invariant{
		ID:       "colocated-tests",
		Type:     rules.TypeConvention,
		Severity: rules.SeverityInfo,
		Rule:     "tests live with the code",
	}

	eval := NewEvaluator(root, nil)
	assert.Empty(t, eval.Evaluate("pkg/store.go", &rule))
	assert.Len(t, eval.Evaluate("pkg/naked.go", &rule), 1)
}

func TestDependencyRule(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "routes/api.ts", "import pg from 'pg';\nimport more from 'pg-pool';\n")
	writeFile(t, root, "db/client.ts", "import pg from 'pg';\n")

	rule := rules.Invariant{
		ID:          "pg-only-in-db",
		Type:        rules.TypeDependency,
		Severity:    rules.SeverityError,
		Description: "postgres driver only in the db layer",
		Package:     "pg",
		AllowedIn:   []string{"db/**"},
	}

	eval := NewEvaluator(root, nil)

	got := eval.Evaluate("routes/api.ts", &rule)
	require.Len(t, got, 1)
	assert.Equal(t, "pg", got[0].Package)

	assert.Empty(t, eval.Evaluate("db/client.ts", &rule))
}

func TestEvaluateIdempotent(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "routes/api.ts", "import { db } from '../db/client';\nconst sql = `SELECT 1`;\n")

	store := &rules.Store{Invariants: []rules.Invariant{
		boundaryRule(),
		{
			ID:               "no-raw-sql",
			Type:             rules.TypePattern,
			Severity:         rules.SeverityWarning,
			Description:      "raw SQL",
			ForbiddenPattern: "SELECT",
		},
	}}

	eval := NewEvaluator(root, nil)
	first := eval.EvaluateFile("routes/api.ts", store)
	second := eval.EvaluateFile("routes/api.ts", store)
	assert.Equal(t, first, second)
	require.Len(t, first, 2)
}

func TestScan(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "routes/api.ts", "import { db } from '../db/client';\n")
	writeFile(t, root, "routes/admin.ts", "export const ok = 1;\n")
	writeFile(t, root, "db/client.ts", "export const db = {};\n")

	store := &rules.Store{Invariants: []rules.Invariant{boundaryRule()}}

	s := NewScanner(root, nil)
	result, err := s.Scan(context.Background(), "", store)
	require.NoError(t, err)

	assert.Equal(t, 3, result.FilesChecked)
	require.Len(t, result.Violations, 1)
	assert.Equal(t, "routes/api.ts", result.Violations[0].File)
	assert.Equal(t, Stats{Total: 1, Errors: 1}, result.Stats)
}

func TestScanScopePrefix(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "routes/api.ts", "import { db } from '../db/client';\n")
	writeFile(t, root, "services/user.ts", "export const u = 1;\n")

	store := &rules.Store{Invariants: []rules.Invariant{boundaryRule()}}

	s := NewScanner(root, nil)
	result, err := s.Scan(context.Background(), "services/", store)
	require.NoError(t, err)
	assert.Equal(t, 1, result.FilesChecked)
	assert.Empty(t, result.Violations)
}

func TestScanEmptyProject(t *testing.T) {
	root := t.TempDir()
	store := &rules.Store{Invariants: []rules.Invariant{boundaryRule()}}

	s := NewScanner(root, nil)
	result, err := s.Scan(context.Background(), "", store)
	require.NoError(t, err)
	assert.Equal(t, 0, result.FilesChecked)
	assert.Empty(t, result.Violations)
	assert.Equal(t, Stats{}, result.Stats)
}

func TestScanDeterministicOrder(t *testing.T) {
	root := t.TempDir()
	for _, f := range []string{"routes/a.ts", "routes/b.ts", "routes/c.ts", "routes/d.ts"} {
		writeFile(t, root, f, "import { db } from '../db/client';\n")
	}
	store := &rules.Store{Invariants: []rules.Invariant{boundaryRule()}}

	s := NewScanner(root, nil, WithWorkers(3))
	first, err := s.Scan(context.Background(), "", store)
	require.NoError(t, err)
	second, err := s.Scan(context.Background(), "", store)
	require.NoError(t, err)

	assert.Equal(t, first.Violations, second.Violations)
	require.Len(t, first.Violations, 4)
	assert.Equal(t, "routes/a.ts", first.Violations[0].File)
	assert.Equal(t, "routes/d.ts", first.Violations[3].File)
}

func TestCheckFile(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "routes/api.ts", "import { db } from '../db/client';\n")

	store := &rules.Store{Invariants: []rules.Invariant{boundaryRule()}}
	s := NewScanner(root, nil)

	result, err := s.CheckFile(context.Background(), "routes/api.ts", store)
	require.NoError(t, err)
	assert.Equal(t, 1, result.FilesChecked)
	require.Len(t, result.Violations, 1)
}

func TestImportForbidden(t *testing.T) {
	inv := &rules.Invariant{ForbiddenImports: []string{"db/**"}, AllowedImports: []string{"db/types**"}}

	assert.True(t, ImportForbidden("db/client", inv, false))
	assert.False(t, ImportForbidden("db/types", inv, false))
	assert.False(t, ImportForbidden("app/db", inv, false))

	// Dotted profile converts a.b to a/b for matching.
	assert.True(t, ImportForbidden("db.client", inv, true))
	assert.False(t, ImportForbidden("db.client", inv, false))
}
