package inspect

import (
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/c360studio/archspec/extract"
)

var importPatterns = map[string]*regexp.Regexp{
	"typescript": regexp.MustCompile(`from\s+['"]([./][^'"]*?)['"]`),
	"javascript": regexp.MustCompile(`from\s+['"]([./][^'"]*?)['"]`),
	"python":     regexp.MustCompile(`(?m)^(?:from\s+(\.\S+)|import\s+(\.\S+))`),
	"go":         regexp.MustCompile(`"([a-z0-9_-]+/.+?)"`),
	"java":       regexp.MustCompile(`(?m)^import\s+(?:static\s+)?([a-z][\w.]*)`),
	"kotlin":     regexp.MustCompile(`(?m)^import\s+([a-z][\w.]*)`),
	"dart":       regexp.MustCompile(`(?m)^import\s+['"]package:([^'"]+)['"]`),
	"swift":      regexp.MustCompile(`(?m)^import\s+(\w+)`),
	"csharp":     regexp.MustCompile(`(?m)^using\s+([A-Z][\w.]*)`),
	"php":        regexp.MustCompile(`(?m)^use\s+([A-Z][\w\\]*)`),
	"ruby":       regexp.MustCompile(`(?m)^require\S*\s+['"](.+?)['"]`),
	"rust":       regexp.MustCompile(`(?m)^use\s+(.+?)\s*;`),
}

var langExts = map[string][]string{
	"typescript": {".ts", ".js"},
	"javascript": {".ts", ".js"},
	"python":     {".py"},
	"go":         {".go"},
	"java":       {".java"},
	"kotlin":     {".kt", ".kts"},
	"dart":       {".dart"},
	"swift":      {".swift"},
	"csharp":     {".cs"},
	"php":        {".php"},
	"ruby":       {".rb"},
	"rust":       {".rs"},
}

func hasExt(name string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}

// walkSources calls fn for every non-ignored file under root whose name
// matches one of the extensions.
func walkSources(root string, exts []string, fn func(path, dir, name string)) {
	filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != root && ignored(d.Name()) {
				return fs.SkipDir
			}
			return nil
		}
		if hasExt(d.Name(), exts) {
			fn(path, filepath.Dir(path), d.Name())
		}
		return nil
	})
}

// ImportFrequency counts internal import paths across source files and
// returns the 20 most frequent, ties broken alphabetically.
func ImportFrequency(root, language string) []Import {
	pattern, ok := importPatterns[language]
	if !ok {
		return nil
	}

	counts := map[string]int{}
	walkSources(root, langExts[language], func(path, _, _ string) {
		data, err := os.ReadFile(path)
		if err != nil {
			return
		}
		for _, m := range pattern.FindAllStringSubmatch(string(data), -1) {
			imp := m[1]
			if imp == "" && len(m) > 2 {
				imp = m[2]
			}
			if imp != "" {
				counts[imp]++
			}
		}
	})

	freq := make([]Import, 0, len(counts))
	for path, n := range counts {
		freq = append(freq, Import{Path: path, Count: n})
	}
	sort.Slice(freq, func(i, j int) bool {
		if freq[i].Count != freq[j].Count {
			return freq[i].Count > freq[j].Count
		}
		return freq[i].Path < freq[j].Path
	})
	if len(freq) > 20 {
		freq = freq[:20]
	}
	return freq
}

// CrossModuleImports lists module-to-module dependencies using the
// language's module layout convention.
func CrossModuleImports(root, language string) []CrossImport {
	switch language {
	case "java", "kotlin":
		return crossImportsJVM(root, language)
	case "go":
		return crossImportsGo(root)
	case "rust":
		return crossImportsRust(root)
	case "dart":
		return crossImportsDart(root)
	case "csharp":
		return crossImportsCSharp(root)
	case "php":
		return crossImportsPHP(root)
	case "ruby":
		return crossImportsRuby(root)
	case "swift":
		return crossImportsSwift(root)
	default:
		return crossImportsRelative(root, language)
	}
}

type crossSet map[CrossImport]struct{}

func (s crossSet) add(from, to string) {
	if from != "" && to != "" && from != to {
		s[CrossImport{From: from, To: to}] = struct{}{}
	}
}

func (s crossSet) sorted() []CrossImport {
	out := make([]CrossImport, 0, len(s))
	for ci := range s {
		out = append(out, ci)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].From != out[j].From {
			return out[i].From < out[j].From
		}
		return out[i].To < out[j].To
	})
	return out
}

var (
	pyParentImportRe = regexp.MustCompile(`from\s+\.\.([a-z_]+)`)
	jsParentImportRe = regexp.MustCompile("from\\s+['\"`]\\.\\./([a-z_-]+)")
)

// crossImportsRelative covers JS/TS/Python style projects: top-level
// directories under src/ (or the root) are modules, parent-relative
// imports cross between them.
func crossImportsRelative(root, language string) []CrossImport {
	srcRoot := filepath.Join(root, "src")
	if !dirExists(srcRoot) {
		srcRoot = root
	}

	pattern := jsParentImportRe
	if language == "python" {
		pattern = pyParentImportRe
	}

	entries, err := os.ReadDir(srcRoot)
	if err != nil {
		return nil
	}

	results := crossSet{}
	for _, entry := range entries {
		if !entry.IsDir() || ignored(entry.Name()) {
			continue
		}
		fromModule := entry.Name()
		walkSources(filepath.Join(srcRoot, fromModule), extract.SourceExtensions(), func(path, _, _ string) {
			data, err := os.ReadFile(path)
			if err != nil {
				return
			}
			for _, m := range pattern.FindAllStringSubmatch(string(data), -1) {
				results.add(fromModule, m[1])
			}
		})
	}
	return results.sorted()
}

// crossImportsJVM treats the first branching directory under the source
// root as the base package and its children as modules.
func crossImportsJVM(root, language string) []CrossImport {
	fileExt := ".java"
	srcSub := "java"
	if language == "kotlin" {
		fileExt = ".kt"
		if dirExists(filepath.Join(root, "src/main/kotlin")) {
			srcSub = "kotlin"
		}
	}
	srcRoot := filepath.Join(root, "src/main", srcSub)
	if !dirExists(srcRoot) {
		return nil
	}

	baseDir := basePackageDir(srcRoot, fileExt)
	if baseDir == "" {
		return nil
	}
	rel, err := filepath.Rel(srcRoot, baseDir)
	if err != nil {
		return nil
	}
	basePackage := strings.ReplaceAll(filepath.ToSlash(rel), "/", ".")

	entries, err := os.ReadDir(baseDir)
	if err != nil {
		return nil
	}

	results := crossSet{}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		fromModule := entry.Name()
		walkSources(filepath.Join(baseDir, fromModule), []string{fileExt}, func(path, _, _ string) {
			for _, imp := range facts(path) {
				if strings.HasPrefix(imp, basePackage+".") {
					sub, _, _ := strings.Cut(imp[len(basePackage)+1:], ".")
					results.add(fromModule, sub)
				}
			}
		})
	}
	return results.sorted()
}

// basePackageDir descends to the first source file, then walks back up to
// the first directory with sibling packages.
func basePackageDir(srcRoot, fileExt string) string {
	firstFile := ""
	filepath.WalkDir(srcRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if strings.HasSuffix(d.Name(), fileExt) {
			firstFile = path
			return fs.SkipAll
		}
		return nil
	})
	if firstFile == "" {
		return ""
	}

	dir := filepath.Dir(firstFile)
	parent := filepath.Dir(dir)
	for parent != srcRoot && parent != string(filepath.Separator) {
		entries, err := os.ReadDir(parent)
		if err != nil {
			break
		}
		subdirs := 0
		for _, e := range entries {
			if e.IsDir() {
				subdirs++
			}
		}
		if subdirs > 1 {
			return parent
		}
		dir = parent
		parent = filepath.Dir(parent)
	}
	return dir
}

func crossImportsGo(root string) []CrossImport {
	modulePath := goModulePath(filepath.Join(root, "go.mod"))
	if modulePath == "" {
		return nil
	}
	srcRoot := filepath.Join(root, "src")
	if !dirExists(srcRoot) {
		srcRoot = root
	}

	results := crossSet{}
	walkSources(srcRoot, []string{".go"}, func(path, dir, name string) {
		if strings.HasSuffix(name, "_test.go") {
			return
		}
		fromModule := filepath.Base(dir)
		for _, imp := range facts(path) {
			if !strings.HasPrefix(imp, modulePath+"/") {
				continue
			}
			rel := strings.TrimPrefix(imp[len(modulePath)+1:], "src/")
			toModule, _, _ := strings.Cut(rel, "/")
			results.add(fromModule, toModule)
		}
	})
	return results.sorted()
}

func goModulePath(path string) string {
	for _, line := range strings.Split(readFileSafe(path), "\n") {
		if strings.HasPrefix(line, "module ") {
			fields := strings.Fields(line)
			if len(fields) > 1 {
				return fields[1]
			}
		}
	}
	return ""
}

func crossImportsRust(root string) []CrossImport {
	srcRoot := filepath.Join(root, "src")
	if !dirExists(srcRoot) {
		return nil
	}

	results := crossSet{}
	walkSources(srcRoot, []string{".rs"}, func(path, dir, name string) {
		fromModule := filepath.Base(dir)
		if dir == srcRoot {
			fromModule = strings.TrimSuffix(name, ".rs")
		}
		for _, imp := range facts(path) {
			if strings.HasPrefix(imp, "crate::") {
				toModule, _, _ := strings.Cut(imp[len("crate::"):], ":")
				results.add(fromModule, toModule)
			}
		}
	})
	return results.sorted()
}

func crossImportsDart(root string) []CrossImport {
	packageName := ""
	for _, line := range strings.Split(readFileSafe(filepath.Join(root, "pubspec.yaml")), "\n") {
		if strings.HasPrefix(line, "name:") {
			packageName = strings.Trim(strings.TrimSpace(strings.TrimPrefix(line, "name:")), `'"`)
			break
		}
	}
	libRoot := filepath.Join(root, "lib")
	if packageName == "" || !dirExists(libRoot) {
		return nil
	}

	prefix := "package:" + packageName + "/"
	results := crossSet{}
	walkSources(libRoot, []string{".dart"}, func(path, dir, _ string) {
		fromModule := filepath.Base(dir)
		if dir == libRoot {
			fromModule = "lib"
		}
		for _, imp := range facts(path) {
			if strings.HasPrefix(imp, prefix) {
				toModule, _, _ := strings.Cut(imp[len(prefix):], "/")
				results.add(fromModule, toModule)
			}
		}
	})
	return results.sorted()
}

var rootNamespaceRe = regexp.MustCompile(`<RootNamespace>([^<]*)</RootNamespace>`)

func crossImportsCSharp(root string) []CrossImport {
	rootNS := ""
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
			if depth > 2 {
				return fs.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(d.Name(), ".csproj") {
			if m := rootNamespaceRe.FindStringSubmatch(readFileSafe(path)); m != nil {
				rootNS = m[1]
			} else {
				rootNS = strings.TrimSuffix(d.Name(), ".csproj")
			}
			return fs.SkipAll
		}
		return nil
	})
	if rootNS == "" {
		return nil
	}

	results := crossSet{}
	walkSources(root, []string{".cs"}, func(path, dir, _ string) {
		fromModule := filepath.Base(dir)
		for _, imp := range facts(path) {
			if strings.HasPrefix(imp, rootNS+".") {
				toModule, _, _ := strings.Cut(imp[len(rootNS)+1:], ".")
				results.add(fromModule, toModule)
			}
		}
	})
	return results.sorted()
}

func crossImportsPHP(root string) []CrossImport {
	var composer struct {
		Autoload struct {
			PSR4 map[string]any `json:"psr-4"`
		} `json:"autoload"`
	}
	if !loadJSONSafe(filepath.Join(root, "composer.json"), &composer) {
		return nil
	}

	rootNS := ""
	for ns := range composer.Autoload.PSR4 {
		ns = strings.TrimRight(ns, `\`)
		if rootNS == "" || ns < rootNS {
			rootNS = ns
		}
	}
	if rootNS == "" {
		return nil
	}

	results := crossSet{}
	walkSources(root, []string{".php"}, func(path, dir, _ string) {
		fromModule := filepath.Base(dir)
		for _, imp := range facts(path) {
			if strings.HasPrefix(imp, rootNS+`\`) {
				toModule, _, _ := strings.Cut(imp[len(rootNS)+1:], `\`)
				results.add(fromModule, toModule)
			}
		}
	})
	return results.sorted()
}

func crossImportsRuby(root string) []CrossImport {
	srcRoot := filepath.Join(root, "app")
	if !dirExists(srcRoot) {
		srcRoot = filepath.Join(root, "lib")
	}
	if !dirExists(srcRoot) {
		return nil
	}

	results := crossSet{}
	walkSources(srcRoot, []string{".rb"}, func(path, dir, _ string) {
		fromModule := filepath.Base(dir)
		for _, imp := range facts(path) {
			if strings.HasPrefix(imp, "../") || strings.Contains(imp, "/") {
				toModule, _, _ := strings.Cut(strings.TrimLeft(imp, "./"), "/")
				results.add(fromModule, toModule)
			}
		}
	})
	return results.sorted()
}

func crossImportsSwift(root string) []CrossImport {
	sourcesRoot := filepath.Join(root, "Sources")
	entries, err := os.ReadDir(sourcesRoot)
	if err != nil {
		return nil
	}
	targets := map[string]struct{}{}
	for _, e := range entries {
		if e.IsDir() {
			targets[e.Name()] = struct{}{}
		}
	}

	results := crossSet{}
	walkSources(sourcesRoot, []string{".swift"}, func(path, dir, _ string) {
		rel, err := filepath.Rel(sourcesRoot, dir)
		if err != nil {
			return
		}
		fromModule, _, _ := strings.Cut(filepath.ToSlash(rel), "/")
		for _, imp := range facts(path) {
			if _, ok := targets[imp]; ok {
				results.add(fromModule, imp)
			}
		}
	})
	return results.sorted()
}

// facts runs lexical extraction; unreadable files read as empty.
func facts(path string) []string {
	return extract.Facts(path)
}
