package inspect

import (
	"io/fs"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// Structure is the layout profile: directory tree, recognized layer
// directories, multi-part naming conventions, untested source files and
// per-directory file counts.
type Structure struct {
	RawStructure   []string   `json:"raw_structure"`
	DetectedLayers []string   `json:"detected_layers"`
	NamingPatterns []string   `json:"naming_patterns"`
	TestGaps       []string   `json:"test_gaps"`
	FileCounts     []DirCount `json:"file_counts"`
}

// knownLayers in reporting order; detection preserves this order so the
// profile reads architecture-first.
var knownLayers = []string{
	"routes", "controllers", "controller", "services", "service",
	"repositories", "repository", "models", "model", "middleware",
	"utils", "util", "lib", "helpers", "types", "handlers", "resolvers",
	"stores", "hooks", "components", "pages", "app", "api", "db",
	"database", "config", "auth", "tests", "test", "__tests__",
	"entity", "entities", "dto", "converter", "mapper", "filter",
	"interceptor", "domain", "infrastructure", "adapter", "port",
	"presenter", "exception", "exceptions",
}

// structureExts limits naming and test-gap analysis to the mainstream
// source families.
var structureExts = map[string]struct{}{
	".ts": {}, ".js": {}, ".py": {}, ".java": {}, ".go": {}, ".rs": {},
}

var (
	testFileRe = regexp.MustCompile(
		`\.test\.[^.]+$|\.spec\.[^.]+$|\.d\.ts$|_test\.go$|Test\.java$|Tests\.java$|IT\.java$|Spec\.java$`)
	multiExtRe = regexp.MustCompile(`\.[a-zA-Z]+\.[a-z]+$`)
)

// ProfileStructure walks the tree once and computes all layout metrics.
func ProfileStructure(root string) (*Structure, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	var rawStructure []string
	layerSet := map[string]struct{}{}
	namingCounts := map[string]int{}
	topLevelCounts := map[string]int{}
	allFiles := map[string]struct{}{}

	type sourceFile struct {
		absPath string
		relPath string
		ext     string
	}
	var sources []sourceFile

	err = filepath.WalkDir(abs, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil
		}
		rel, relErr := filepath.Rel(abs, path)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if path != abs && ignored(d.Name()) {
				return fs.SkipDir
			}
			if rel != "." {
				if strings.Count(rel, "/")+1 <= 3 {
					rawStructure = append(rawStructure, rel)
				}
				if _, known := layerIndex[d.Name()]; known {
					layerSet[d.Name()] = struct{}{}
				}
			}
			return nil
		}

		allFiles[path] = struct{}{}
		if rel != "." && strings.Contains(rel, "/") {
			top, _, _ := strings.Cut(rel, "/")
			topLevelCounts[top]++
		}

		ext := strings.ToLower(filepath.Ext(d.Name()))
		if _, ok := structureExts[ext]; !ok {
			return nil
		}
		if m := multiExtRe.FindString(d.Name()); m != "" {
			namingCounts[m]++
		}
		if !testFileRe.MatchString(d.Name()) {
			sources = append(sources, sourceFile{absPath: path, relPath: rel, ext: strings.TrimPrefix(ext, ".")})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	var gaps []string
	for _, src := range sources {
		if !hasColocatedTest(src.absPath, src.ext, allFiles) {
			gaps = append(gaps, src.relPath)
		}
	}
	sort.Strings(gaps)
	sort.Strings(rawStructure)

	var layers []string
	for _, layer := range knownLayers {
		if _, ok := layerSet[layer]; ok {
			layers = append(layers, layer)
		}
	}

	type namingEntry struct {
		pattern string
		count   int
	}
	naming := make([]namingEntry, 0, len(namingCounts))
	for pattern, n := range namingCounts {
		naming = append(naming, namingEntry{pattern, n})
	}
	sort.Slice(naming, func(i, j int) bool {
		if naming[i].count != naming[j].count {
			return naming[i].count > naming[j].count
		}
		return naming[i].pattern < naming[j].pattern
	})
	if len(naming) > 20 {
		naming = naming[:20]
	}
	patterns := make([]string, 0, len(naming))
	for _, e := range naming {
		patterns = append(patterns, e.pattern)
	}

	counts := make([]DirCount, 0, len(topLevelCounts))
	for dir, n := range topLevelCounts {
		counts = append(counts, DirCount{Dir: dir, Count: n})
	}
	sort.Slice(counts, func(i, j int) bool { return counts[i].Dir < counts[j].Dir })

	return &Structure{
		RawStructure:   rawStructure,
		DetectedLayers: layers,
		NamingPatterns: patterns,
		TestGaps:       gaps,
		FileCounts:     counts,
	}, nil
}

var layerIndex = func() map[string]int {
	idx := make(map[string]int, len(knownLayers))
	for i, layer := range knownLayers {
		idx[layer] = i
	}
	return idx
}()

// hasColocatedTest checks for a sibling test file, with the extra Java
// conventions: suffix names and the src/main/java to src/test/java mirror.
func hasColocatedTest(absPath, ext string, allFiles map[string]struct{}) bool {
	base := strings.TrimSuffix(absPath, "."+ext)
	dir := filepath.Dir(absPath)
	stem := filepath.Base(base)

	if _, ok := allFiles[base+".test."+ext]; ok {
		return true
	}
	if _, ok := allFiles[base+".spec."+ext]; ok {
		return true
	}

	switch ext {
	case "go":
		if _, ok := allFiles[base+"_test.go"]; ok {
			return true
		}
	case "java":
		for _, suffix := range []string{"Test.java", "Tests.java", "IT.java"} {
			if _, ok := allFiles[filepath.Join(dir, stem+suffix)]; ok {
				return true
			}
		}
		slash := filepath.ToSlash(absPath)
		if strings.Contains(slash, "/src/main/java/") {
			mirror := strings.Replace(slash, "src/main/java", "src/test/java", 1)
			mirrorBase := strings.TrimSuffix(filepath.FromSlash(mirror), ".java")
			for _, suffix := range []string{"Test.java", "Tests.java", "IT.java"} {
				if fileExists(mirrorBase + suffix) {
					return true
				}
			}
		}
	}
	return false
}
