// Package graph builds module-level dependency graphs from file-level
// import facts.
package graph

import (
	"path"
	"sort"
	"strings"

	"github.com/c360studio/archspec/engine"
)

// Entry is one file and its extracted import facts.
type Entry struct {
	File    string   `json:"file"`
	Imports []string `json:"imports"`
}

// ImportRef records one concrete import contributing to an edge.
type ImportRef struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// Module is a group of files sharing the same module id.
type Module struct {
	ID         string   `json:"id"`
	Files      []string `json:"files"`
	FileCount  int      `json:"file_count"`
	Violations int      `json:"violations"`
}

// Edge is a directed dependency between two modules.
type Edge struct {
	From      string      `json:"from"`
	To        string      `json:"to"`
	Imports   []ImportRef `json:"imports"`
	Violation bool        `json:"violation"`
	RuleIDs   []string    `json:"rule_ids"`
}

// Graph is the full adjacency result.
type Graph struct {
	Modules []Module `json:"modules"`
	Edges   []Edge   `json:"edges"`
}

// FileModule maps a file path to its module id: the first two path
// segments. A two-segment path belongs to its directory; a bare file is its
// own module, named by the stem.
func FileModule(filePath string) string {
	parts := strings.Split(strings.ReplaceAll(filePath, `\`, "/"), "/")
	switch {
	case len(parts) >= 3:
		return parts[0] + "/" + parts[1]
	case len(parts) == 2:
		return parts[0]
	default:
		name := parts[0]
		if dot := strings.LastIndex(name, "."); dot > 0 {
			return name[:dot]
		}
		return name
	}
}

// ResolveImport resolves a relative import specifier against the source
// file's directory. Non-relative specifiers pass through unchanged.
func ResolveImport(sourceFile, imp string) string {
	if !strings.HasPrefix(imp, ".") {
		return imp
	}
	return path.Clean(path.Join(path.Dir(sourceFile), imp))
}

// Build constructs the module adjacency graph from import entries,
// cross-referencing scan violations onto edges. Edges inside a single
// module are skipped. Output ordering is deterministic: modules and edges
// sorted by id.
func Build(entries []Entry, violations []engine.Violation) *Graph {
	type edgeKey struct{ from, to string }

	// (source file, resolved import) -> rule ids, for boundary violations.
	violationMap := make(map[[2]string][]string)
	for _, v := range violations {
		if v.Import == "" || v.File == "" || v.Rule == "" {
			continue
		}
		key := [2]string{v.File, ResolveImport(v.File, v.Import)}
		if !contains(violationMap[key], v.Rule) {
			violationMap[key] = append(violationMap[key], v.Rule)
		}
	}

	moduleFiles := make(map[string]map[string]struct{})
	edgeImports := make(map[edgeKey][]ImportRef)
	edgeRules := make(map[edgeKey]map[string]struct{})

	ensureModule := func(id string) map[string]struct{} {
		if moduleFiles[id] == nil {
			moduleFiles[id] = make(map[string]struct{})
		}
		return moduleFiles[id]
	}

	for _, entry := range entries {
		if entry.File == "" {
			continue
		}
		sourceModule := FileModule(entry.File)
		ensureModule(sourceModule)[entry.File] = struct{}{}

		for _, imp := range entry.Imports {
			if imp == "" {
				continue
			}
			resolved := ResolveImport(entry.File, imp)
			targetModule := FileModule(resolved)
			if targetModule == sourceModule {
				continue
			}
			ensureModule(targetModule)

			key := edgeKey{sourceModule, targetModule}
			edgeImports[key] = append(edgeImports[key], ImportRef{Source: entry.File, Target: imp})

			if ruleIDs, ok := violationMap[[2]string{entry.File, resolved}]; ok {
				if edgeRules[key] == nil {
					edgeRules[key] = make(map[string]struct{})
				}
				for _, id := range ruleIDs {
					edgeRules[key][id] = struct{}{}
				}
			}
		}
	}

	moduleViolations := make(map[string]int)
	for key, ruleIDs := range violationMap {
		moduleViolations[FileModule(key[0])] += len(ruleIDs)
	}

	g := &Graph{Modules: []Module{}, Edges: []Edge{}}

	moduleIDs := make([]string, 0, len(moduleFiles))
	for id := range moduleFiles {
		moduleIDs = append(moduleIDs, id)
	}
	sort.Strings(moduleIDs)
	for _, id := range moduleIDs {
		files := make([]string, 0, len(moduleFiles[id]))
		for f := range moduleFiles[id] {
			files = append(files, f)
		}
		sort.Strings(files)
		g.Modules = append(g.Modules, Module{
			ID:         id,
			Files:      files,
			FileCount:  len(files),
			Violations: moduleViolations[id],
		})
	}

	keys := make([]edgeKey, 0, len(edgeImports))
	for k := range edgeImports {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].from != keys[j].from {
			return keys[i].from < keys[j].from
		}
		return keys[i].to < keys[j].to
	})
	for _, k := range keys {
		ruleIDs := make([]string, 0, len(edgeRules[k]))
		for id := range edgeRules[k] {
			ruleIDs = append(ruleIDs, id)
		}
		sort.Strings(ruleIDs)
		g.Edges = append(g.Edges, Edge{
			From:      k.from,
			To:        k.to,
			Imports:   edgeImports[k],
			Violation: len(ruleIDs) > 0,
			RuleIDs:   ruleIDs,
		})
	}

	return g
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
