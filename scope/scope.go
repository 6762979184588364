// Package scope implements the path pattern grammar used to decide which
// rules apply to which files.
//
// The grammar is deliberately small: `*` matches any run of characters
// except `/`, `**` matches any run of characters including `/`, every other
// character matches literally, and the whole pattern must match the whole
// path. Extended glob syntax (character classes, brace alternation, `!`
// negation) is NOT part of this grammar; patterns using it are rejected at
// validation time rather than silently given broader semantics.
package scope

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
)

// compiled caches translated patterns. Patterns come from rule files and
// repeat across every file in a scan, so the cache is small and hot.
var (
	compiledMu sync.RWMutex
	compiled   = map[string]*regexp.Regexp{}
)

// Translate converts a pattern into an anchored regular expression string.
// Order matters: dots are escaped first, then `**` is protected before `*`
// is narrowed to a single path segment.
func Translate(pattern string) string {
	r := strings.ReplaceAll(pattern, ".", `\.`)
	r = strings.ReplaceAll(r, "**", "\x00")
	r = strings.ReplaceAll(r, "*", "[^/]*")
	r = strings.ReplaceAll(r, "\x00", ".*")
	return "^" + r + "$"
}

func compile(pattern string) (*regexp.Regexp, error) {
	compiledMu.RLock()
	re, ok := compiled[pattern]
	compiledMu.RUnlock()
	if ok {
		return re, nil
	}

	re, err := regexp.Compile(Translate(pattern))
	if err != nil {
		return nil, fmt.Errorf("compile scope pattern %q: %w", pattern, err)
	}

	compiledMu.Lock()
	compiled[pattern] = re
	compiledMu.Unlock()
	return re, nil
}

// Matches reports whether path matches pattern under the scope grammar.
// A pattern that fails to compile never matches.
func Matches(path, pattern string) bool {
	re, err := compile(pattern)
	if err != nil {
		return false
	}
	return re.MatchString(path)
}

// Validate rejects patterns that use syntax outside the supported grammar.
// Negation and exclude-group segments in particular must fail loudly at
// authoring time instead of silently never matching.
func Validate(pattern string) error {
	if pattern == "" {
		return nil
	}
	if strings.ContainsAny(pattern, "!{}[]") {
		return fmt.Errorf("pattern %q uses unsupported glob syntax (only * and ** are recognized)", pattern)
	}
	if _, err := compile(pattern); err != nil {
		return err
	}
	return nil
}

// InScope reports whether path matches the primary pattern and none of the
// exclusions. An empty primary pattern puts every path in scope.
func InScope(path, pattern string, exclude []string) bool {
	if pattern != "" && !Matches(path, pattern) {
		return false
	}
	for _, ex := range exclude {
		if Matches(path, ex) {
			return false
		}
	}
	return true
}
