// Package rules defines architectural invariants and loads them from the
// project rule store. The on-disk format is a plain, greppable YAML list of
// entries so that authoring tools can append one entry without re-serializing
// the whole file.
package rules

import (
	"fmt"

	"github.com/c360studio/archspec/scope"
)

// Type identifies the enforcement semantics of an invariant.
type Type string

const (
	TypeBoundary   Type = "boundary"
	TypePattern    Type = "pattern"
	TypeConvention Type = "convention"
	TypeDependency Type = "dependency"
)

// Severity ranks how serious a violation of an invariant is.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Invariant is a single declarative architectural constraint. It is
// immutable once loaded for a scan; the authoring workflow appends new
// definitions and revalidates the whole store.
type Invariant struct {
	// ID is the unique, stable identifier for the rule.
	ID string `yaml:"id" json:"id"`

	// Type selects boundary, pattern, convention or dependency semantics.
	Type Type `yaml:"type" json:"type"`

	// Severity is error, warning or info.
	Severity Severity `yaml:"severity" json:"severity"`

	// Description is the human-readable rule text shown in violations.
	Description string `yaml:"description" json:"description"`

	// SourceGlob restricts which files the rule applies to. ScopeGlob is
	// an accepted alias; SourceGlob wins when both are set.
	SourceGlob string `yaml:"source_glob,omitempty" json:"source_glob,omitempty"`
	ScopeGlob  string `yaml:"scope_glob,omitempty" json:"scope_glob,omitempty"`

	// ScopeGlobExclude lists patterns carved out of the scope.
	ScopeGlobExclude []string `yaml:"scope_glob_exclude,omitempty" json:"scope_glob_exclude,omitempty"`

	// ForbiddenImports holds boundary rule patterns. AllowedImports are
	// override patterns: an import matching both is not a violation.
	ForbiddenImports []string `yaml:"forbidden_imports,omitempty" json:"forbidden_imports,omitempty"`
	AllowedImports   []string `yaml:"allowed_imports,omitempty" json:"allowed_imports,omitempty"`

	// ForbiddenPattern is the content pattern for pattern rules.
	ForbiddenPattern string `yaml:"forbidden_pattern,omitempty" json:"forbidden_pattern,omitempty"`

	// Rule is the free-text description for convention rules. Only
	// test-colocation semantics are executable; other texts are inert.
	Rule string `yaml:"rule,omitempty" json:"rule,omitempty"`

	// Package and AllowedIn configure dependency rules: the named package
	// may only be referenced from files matching an AllowedIn pattern.
	Package   string   `yaml:"package,omitempty" json:"package,omitempty"`
	AllowedIn []string `yaml:"allowed_in,omitempty" json:"allowed_in,omitempty"`

	// Inferred marks rules proposed by graph analysis rather than authored
	// by hand; Confidence is the detector's confidence percentage.
	Inferred   bool    `yaml:"inferred,omitempty" json:"inferred,omitempty"`
	Confidence float64 `yaml:"confidence,omitempty" json:"confidence,omitempty"`
}

// Scope returns the effective primary scope pattern.
func (inv *Invariant) Scope() string {
	if inv.SourceGlob != "" {
		return inv.SourceGlob
	}
	return inv.ScopeGlob
}

// AppliesTo reports whether the invariant's scope covers the given
// project-relative path. A rule with no scope applies to every file.
func (inv *Invariant) AppliesTo(relPath string) bool {
	return scope.InScope(relPath, inv.Scope(), inv.ScopeGlobExclude)
}

// Validate checks structural validity of a single invariant.
func (inv *Invariant) Validate() error {
	if inv.ID == "" {
		return fmt.Errorf("invariant missing id")
	}
	switch inv.Type {
	case TypeBoundary, TypePattern, TypeConvention, TypeDependency:
	default:
		return fmt.Errorf("invariant %s: unknown type %q", inv.ID, inv.Type)
	}
	switch inv.Severity {
	case SeverityError, SeverityWarning, SeverityInfo:
	default:
		return fmt.Errorf("invariant %s: unknown severity %q", inv.ID, inv.Severity)
	}
	for _, p := range append([]string{inv.Scope()}, inv.ScopeGlobExclude...) {
		if err := scope.Validate(p); err != nil {
			return fmt.Errorf("invariant %s: %w", inv.ID, err)
		}
	}
	return nil
}
