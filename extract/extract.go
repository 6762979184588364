// Package extract pulls import facts out of source files across the twelve
// language families the engine understands. Extraction is lexical: each
// language gets a comment and string aware scanner, never a full parser.
package extract

import (
	"bytes"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// MaxFileSize is the largest file the extractor will read. Larger files
// yield no facts.
const MaxFileSize = 512 * 1024

type extractor func(src string) []string

var extractors = map[string]extractor{
	".ts":    JSTSImports,
	".tsx":   JSTSImports,
	".js":    JSTSImports,
	".jsx":   JSTSImports,
	".mjs":   JSTSImports,
	".cjs":   JSTSImports,
	".py":    PythonImports,
	".go":    GoImports,
	".rs":    RustImports,
	".java":  JavaImports,
	".dart":  DartImports,
	".kt":    KotlinImports,
	".kts":   KotlinImports,
	".swift": SwiftImports,
	".cs":    CSharpImports,
	".php":   PHPImports,
	".rb":    RubyImports,
}

// Supported reports whether files with the given extension have an
// extractor. The extension includes the leading dot.
func Supported(ext string) bool {
	_, ok := extractors[strings.ToLower(ext)]
	return ok
}

// SourceExtensions lists every extension with an extractor, sorted.
func SourceExtensions() []string {
	exts := make([]string, 0, len(extractors))
	for ext := range extractors {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Facts extracts import facts from the file at path. Unknown extensions,
// symlinks, binary content and files over MaxFileSize all yield an empty
// fact set rather than an error; a file the engine cannot read contributes
// nothing to a scan.
func Facts(path string) []string {
	fn, ok := extractors[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return nil
	}
	info, err := os.Lstat(path)
	if err != nil || !info.Mode().IsRegular() || info.Size() > MaxFileSize {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil || looksBinary(data) {
		return nil
	}
	return fn(string(data))
}

// FromSource extracts import facts from in-memory content, dispatching on
// the extension of name.
func FromSource(name string, src []byte) []string {
	fn, ok := extractors[strings.ToLower(filepath.Ext(name))]
	if !ok {
		return nil
	}
	return fn(string(src))
}

// looksBinary uses the NUL-byte heuristic over the leading chunk.
func looksBinary(data []byte) bool {
	probe := data
	if len(probe) > 8000 {
		probe = probe[:8000]
	}
	return bytes.IndexByte(probe, 0) >= 0
}

// importSet collects facts preserving first-seen order.
type importSet struct {
	list []string
	seen map[string]struct{}
}

func (s *importSet) add(path string) {
	if path == "" {
		return
	}
	if s.seen == nil {
		s.seen = make(map[string]struct{})
	}
	if _, dup := s.seen[path]; dup {
		return
	}
	s.seen[path] = struct{}{}
	s.list = append(s.list, path)
}

func splitLines(s string) []string {
	return strings.Split(s, "\n")
}

func isWordByte(c byte) bool {
	return c == '_' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func isAlphaByte(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}
