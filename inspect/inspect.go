// Package inspect profiles a project: primary language, framework,
// declared dependencies, import hot paths, cross-module coupling and
// structural layout. The profile feeds rule authoring; nothing here
// enforces anything.
package inspect

import (
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/c360studio/archspec/discover"
)

// Import is one internal import path with its occurrence count.
type Import struct {
	Path  string `json:"path"`
	Count int    `json:"count"`
}

// CrossImport is one observed module-to-module dependency.
type CrossImport struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// DirCount is a file tally for one top-level directory.
type DirCount struct {
	Dir   string `json:"dir"`
	Count int    `json:"count"`
}

// Result is the full project profile.
type Result struct {
	Language           string        `json:"language"`
	Framework          string        `json:"framework"`
	ExternalDeps       []string      `json:"external_deps"`
	ImportFrequency    []Import      `json:"import_frequency"`
	CrossModuleImports []CrossImport `json:"cross_module_imports"`
	Structure          *Structure    `json:"structure"`
}

// Inspect profiles the project rooted at root.
func Inspect(root string) (*Result, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	language := DetectLanguage(abs)
	structure, err := ProfileStructure(abs)
	if err != nil {
		return nil, err
	}
	return &Result{
		Language:           language,
		Framework:          DetectFramework(abs, language),
		ExternalDeps:       ExternalDeps(abs, language),
		ImportFrequency:    ImportFrequency(abs, language),
		CrossModuleImports: CrossModuleImports(abs, language),
		Structure:          structure,
	}, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func readFileSafe(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return string(data)
}

func loadJSONSafe(path string, out any) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	return json.Unmarshal(data, out) == nil
}

func ignored(name string) bool {
	for _, d := range discover.DefaultIgnoredDirs {
		if name == d {
			return true
		}
	}
	return false
}

// hasFilesWithExt reports whether files with the extension exist under
// root, looking at most maxDepth directories deep.
func hasFilesWithExt(root, ext string, maxDepth int) bool {
	if !dirExists(root) {
		return false
	}
	found := false
	filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		depth := 0
		if rel != "." {
			depth = strings.Count(filepath.ToSlash(rel), "/") + 1
		}
		if d.IsDir() {
			if depth > maxDepth {
				return fs.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(d.Name(), ext) {
			found = true
			return fs.SkipAll
		}
		return nil
	})
	return found
}

// hasEntryWithSuffix checks the root's direct entries for a name suffix.
// Bundle formats like .xcodeproj are directories, so both kinds count.
func hasEntryWithSuffix(root, suffix string) bool {
	entries, err := os.ReadDir(root)
	if err != nil {
		return false
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), suffix) {
			return true
		}
	}
	return false
}
