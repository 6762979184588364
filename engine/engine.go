// Package engine evaluates invariants against source files and orchestrates
// project scans.
package engine

import (
	"bufio"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/c360studio/archspec/extract"
	"github.com/c360studio/archspec/rules"
	"github.com/c360studio/archspec/scope"
)

// Violation is one rule breach at one location. Optional fields carry the
// type-specific evidence: the offending import for boundary rules, the line
// for pattern rules, the package for dependency rules.
type Violation struct {
	Rule     string         `json:"rule"`
	Severity rules.Severity `json:"severity"`
	Message  string         `json:"message"`
	File     string         `json:"file"`
	Line     int            `json:"line,omitempty"`
	Import   string         `json:"import,omitempty"`
	Package  string         `json:"package,omitempty"`
}

// Stats summarizes a scan.
type Stats struct {
	Total    int `json:"total"`
	Errors   int `json:"errors"`
	Warnings int `json:"warnings"`
}

// ScanResult is the structured output of one scan invocation.
type ScanResult struct {
	Scope        string      `json:"scope"`
	FilesChecked int         `json:"files_checked"`
	Violations   []Violation `json:"violations"`
	Stats        Stats       `json:"stats"`
}

func tally(violations []Violation) Stats {
	s := Stats{Total: len(violations)}
	for _, v := range violations {
		switch v.Severity {
		case rules.SeverityError:
			s.Errors++
		case rules.SeverityWarning:
			s.Warnings++
		}
	}
	return s
}

// Evaluator applies invariants to files under a project root.
type Evaluator struct {
	root   string
	logger *slog.Logger
}

// NewEvaluator creates an evaluator rooted at the project directory.
func NewEvaluator(root string, logger *slog.Logger) *Evaluator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Evaluator{root: root, logger: logger}
}

// EvaluateFile runs every invariant in the store against one file and
// returns the violations in store order.
func (e *Evaluator) EvaluateFile(relPath string, store *rules.Store) []Violation {
	facts := factCache{path: filepath.Join(e.root, filepath.FromSlash(relPath))}
	var out []Violation
	for i := range store.Invariants {
		out = append(out, e.evalRule(relPath, &store.Invariants[i], &facts)...)
	}
	return out
}

// Evaluate runs a single invariant against one file.
func (e *Evaluator) Evaluate(relPath string, inv *rules.Invariant) []Violation {
	facts := factCache{path: filepath.Join(e.root, filepath.FromSlash(relPath))}
	return e.evalRule(relPath, inv, &facts)
}

// factCache extracts a file's import facts at most once per file per
// evaluation pass.
type factCache struct {
	path   string
	done   bool
	cached []string
}

func (f *factCache) facts() []string {
	if !f.done {
		f.cached = extract.Facts(f.path)
		f.done = true
	}
	return f.cached
}

func (e *Evaluator) evalRule(relPath string, inv *rules.Invariant, facts *factCache) []Violation {
	if !inv.AppliesTo(relPath) {
		return nil
	}
	if info, err := os.Stat(facts.path); err != nil || !info.Mode().IsRegular() {
		return nil
	}

	switch inv.Type {
	case rules.TypeBoundary:
		return e.evalBoundary(relPath, inv, facts.facts())
	case rules.TypePattern:
		return e.evalPattern(relPath, inv)
	case rules.TypeConvention:
		return e.evalConvention(relPath, inv, facts.path)
	case rules.TypeDependency:
		return e.evalDependency(relPath, inv, facts)
	}
	return nil
}

func (e *Evaluator) evalBoundary(relPath string, inv *rules.Invariant, facts []string) []Violation {
	if len(facts) == 0 {
		return nil
	}
	dotted := dottedImportProfile(filepath.Ext(relPath))
	var out []Violation
	for _, imp := range facts {
		if imp == "" {
			continue
		}
		if ImportForbidden(imp, inv, dotted) {
			out = append(out, Violation{
				Rule:     inv.ID,
				Severity: inv.Severity,
				Message:  inv.Description,
				File:     relPath,
				Import:   imp,
			})
		}
	}
	return out
}

// dottedImportProfile reports whether a language names modules with dotted
// packages, in which case a dotted fact is also matched in its
// path-converted form.
func dottedImportProfile(ext string) bool {
	switch strings.ToLower(ext) {
	case ".py", ".java", ".kt", ".kts", ".cs":
		return true
	}
	return false
}

// ImportForbidden tests one import fact against a boundary rule: a fact
// matching any forbidden pattern is forbidden unless it also matches an
// allowed pattern. When dotted is set, a dotted fact with no separator is
// additionally tested in slash form (a.b.c as a/b/c).
func ImportForbidden(imp string, inv *rules.Invariant, dotted bool) bool {
	if len(inv.ForbiddenImports) == 0 {
		return false
	}

	asPath := imp
	if dotted && strings.Contains(imp, ".") && !strings.Contains(imp, "/") {
		asPath = strings.ReplaceAll(imp, ".", "/")
	}

	matches := func(patterns []string) bool {
		for _, pat := range patterns {
			if imp == pat || scope.Matches(imp, pat) || scope.Matches(asPath, pat) {
				return true
			}
		}
		return false
	}

	if !matches(inv.ForbiddenImports) {
		return false
	}
	return !matches(inv.AllowedImports)
}

// posixClasses maps POSIX character classes in authored patterns to Go
// regexp equivalents.
var posixClasses = strings.NewReplacer(
	"[[:space:]]", `\s`,
	"[[:alpha:]]", "[a-zA-Z]",
	"[[:digit:]]", `\d`,
	"[[:alnum:]]", "[a-zA-Z0-9]",
	"[[:upper:]]", "[A-Z]",
	"[[:lower:]]", "[a-z]",
	"[[:punct:]]", `[^\w\s]`,
	"[[:blank:]]", `[ \t]`,
)

func (e *Evaluator) evalPattern(relPath string, inv *rules.Invariant) []Violation {
	if inv.ForbiddenPattern == "" {
		return nil
	}
	pat, err := regexp.Compile(posixClasses.Replace(inv.ForbiddenPattern))
	if err != nil {
		e.logger.Debug("invalid regex in pattern rule",
			slog.String("rule", inv.ID),
			slog.String("pattern", inv.ForbiddenPattern))
		return nil
	}

	f, err := os.Open(filepath.Join(e.root, filepath.FromSlash(relPath)))
	if err != nil {
		return nil
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), extract.MaxFileSize)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		if pat.MatchString(scanner.Text()) {
			// Only the first matching line is reported.
			return []Violation{{
				Rule:     inv.ID,
				Severity: inv.Severity,
				Message:  inv.Description,
				File:     relPath,
				Line:     lineNum,
			}}
		}
	}
	return nil
}

var conventionTestRe = regexp.MustCompile(`(?i)test`)

func (e *Evaluator) evalConvention(relPath string, inv *rules.Invariant, absPath string) []Violation {
	// Only test-colocation conventions are executable; any other rule text
	// is inert documentation.
	if !conventionTestRe.MatchString(inv.Rule) {
		return nil
	}
	if hasColocatedTest(e.root, absPath, relPath) {
		return nil
	}
	return []Violation{{
		Rule:     inv.ID,
		Severity: inv.Severity,
		Message:  "missing colocated test file",
		File:     relPath,
	}}
}

func (e *Evaluator) evalDependency(relPath string, inv *rules.Invariant, facts *factCache) []Violation {
	if inv.Package == "" {
		return nil
	}
	for _, allowed := range inv.AllowedIn {
		if scope.Matches(relPath, allowed) {
			return nil
		}
	}
	for _, imp := range facts.facts() {
		if strings.Contains(imp, inv.Package) {
			// One violation per file per rule.
			return []Violation{{
				Rule:     inv.ID,
				Severity: inv.Severity,
				Message:  inv.Description,
				File:     relPath,
				Package:  inv.Package,
			}}
		}
	}
	return nil
}
