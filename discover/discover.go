// Package discover walks project trees and selects the source files a scan
// will evaluate.
package discover

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/c360studio/archspec/extract"
)

// DefaultIgnoredDirs are directory names pruned from every walk. Project
// config can extend but not shrink this list.
var DefaultIgnoredDirs = []string{
	"node_modules", "dist", ".next", ".git", "coverage",
	"__pycache__", ".venv", "vendor", "target", "build", ".archspec",
}

// Options tune a walk.
type Options struct {
	// ExtraIgnoredDirs are pruned in addition to DefaultIgnoredDirs.
	ExtraIgnoredDirs []string

	// Scope restricts results to relative paths matching any of these
	// doublestar patterns. Empty means everything.
	Scope []string
}

// SourceFiles walks root and returns sorted slash-separated relative paths
// of every file with a supported source extension. Ignored directories are
// pruned before descent.
func SourceFiles(root string, opts Options) ([]string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	ignored := make(map[string]struct{}, len(DefaultIgnoredDirs)+len(opts.ExtraIgnoredDirs))
	for _, d := range DefaultIgnoredDirs {
		ignored[d] = struct{}{}
	}
	for _, d := range opts.ExtraIgnoredDirs {
		ignored[d] = struct{}{}
	}

	var files []string
	err = filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable subtrees contribute no files.
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if path != abs {
				if _, skip := ignored[d.Name()]; skip {
					return filepath.SkipDir
				}
			}
			return nil
		}
		if !extract.Supported(filepath.Ext(d.Name())) {
			return nil
		}
		rel, err := filepath.Rel(abs, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if len(opts.Scope) > 0 && !matchesAny(rel, opts.Scope) {
			return nil
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}

func matchesAny(rel string, patterns []string) bool {
	for _, p := range patterns {
		if ok, err := doublestar.Match(p, rel); err == nil && ok {
			return true
		}
	}
	return false
}

// ExpandDirs resolves glob patterns to concrete directories under root,
// for watch targets. Patterns without glob characters pass through when
// they name a directory.
func ExpandDirs(root string, patterns []string) ([]string, error) {
	var resolved []string
	seen := make(map[string]bool)

	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			resolved = append(resolved, p)
		}
	}

	for _, pattern := range patterns {
		if !strings.ContainsAny(pattern, "*?[") {
			full := filepath.Join(root, pattern)
			if info, err := os.Stat(full); err == nil && info.IsDir() {
				add(full)
			}
			continue
		}
		matches, err := doublestar.FilepathGlob(filepath.Join(root, pattern))
		if err != nil {
			return nil, err
		}
		for _, m := range matches {
			if info, err := os.Stat(m); err == nil && info.IsDir() {
				add(m)
			}
		}
	}
	sort.Strings(resolved)
	return resolved, nil
}
