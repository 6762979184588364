package extract

import (
	"regexp"
	"strings"
)

// Python extraction blanks both comments and string bodies before matching,
// because docstrings routinely carry "import foo" examples at the start of a
// line. With strings blanked, an import or from statement at line start is
// always real.

const (
	pyCode = iota
	pyComment
	pySingleString
	pyDoubleString
	pyTripleSingle
	pyTripleDouble
)

var (
	pyImportRe = regexp.MustCompile(`^import\s+(.+)$`)
	pyFromRe   = regexp.MustCompile(`^from\s+(\.*)([\w.]*)\s+import\b`)
	pyNameRe   = regexp.MustCompile(`^[\w.]+$`)
)

// PythonImports extracts module names from import and from-import
// statements. Relative prefixes are dropped; `from . import x` contributes
// nothing, matching how the module name resolves to the package itself.
func PythonImports(src string) []string {
	cleaned := stripPythonStringsAndComments(src)
	var set importSet

	for _, line := range splitLines(cleaned) {
		stripped := strings.TrimSpace(line)
		if stripped == "" {
			continue
		}

		if m := pyFromRe.FindStringSubmatch(stripped); m != nil {
			set.add(m[2])
			continue
		}
		if m := pyImportRe.FindStringSubmatch(stripped); m != nil {
			for _, item := range strings.Split(m[1], ",") {
				name := strings.TrimSpace(item)
				if idx := strings.Index(name, " as "); idx >= 0 {
					name = strings.TrimSpace(name[:idx])
				}
				if pyNameRe.MatchString(name) {
					set.add(name)
				}
			}
		}
	}
	return set.list
}

// stripPythonStringsAndComments blanks comment and string content with
// spaces, preserving line structure. Quote prefixes (r, b, f and their
// combinations) are left in place; only the quoted body is blanked.
func stripPythonStringsAndComments(src string) string {
	source := []byte(src)
	out := append([]byte(nil), source...)
	state := pyCode
	n := len(source)

	for i := 0; i < n; {
		ch := source[i]

		switch state {
		case pyCode:
			switch {
			case ch == '#':
				out[i] = ' '
				state = pyComment
				i++
			case ch == '\'' && i+2 < n && source[i+1] == '\'' && source[i+2] == '\'':
				out[i], out[i+1], out[i+2] = ' ', ' ', ' '
				state = pyTripleSingle
				i += 3
			case ch == '"' && i+2 < n && source[i+1] == '"' && source[i+2] == '"':
				out[i], out[i+1], out[i+2] = ' ', ' ', ' '
				state = pyTripleDouble
				i += 3
			case ch == '\'':
				out[i] = ' '
				state = pySingleString
				i++
			case ch == '"':
				out[i] = ' '
				state = pyDoubleString
				i++
			default:
				i++
			}

		case pyComment:
			if ch == '\n' {
				state = pyCode
			} else {
				out[i] = ' '
			}
			i++

		case pySingleString:
			if ch == '\\' && i+1 < n {
				out[i] = ' '
				if source[i+1] != '\n' {
					out[i+1] = ' '
				}
				i += 2
				continue
			}
			if ch == '\'' || ch == '\n' {
				if ch == '\'' {
					out[i] = ' '
				}
				state = pyCode
			} else {
				out[i] = ' '
			}
			i++

		case pyDoubleString:
			if ch == '\\' && i+1 < n {
				out[i] = ' '
				if source[i+1] != '\n' {
					out[i+1] = ' '
				}
				i += 2
				continue
			}
			if ch == '"' || ch == '\n' {
				if ch == '"' {
					out[i] = ' '
				}
				state = pyCode
			} else {
				out[i] = ' '
			}
			i++

		case pyTripleSingle:
			if ch == '\'' && i+2 < n && source[i+1] == '\'' && source[i+2] == '\'' {
				out[i], out[i+1], out[i+2] = ' ', ' ', ' '
				state = pyCode
				i += 3
				continue
			}
			if ch != '\n' {
				out[i] = ' '
			}
			i++

		case pyTripleDouble:
			if ch == '"' && i+2 < n && source[i+1] == '"' && source[i+2] == '"' {
				out[i], out[i+1], out[i+2] = ' ', ' ', ' '
				state = pyCode
				i += 3
				continue
			}
			if ch != '\n' {
				out[i] = ' '
			}
			i++

		default:
			i++
		}
	}
	return string(out)
}
