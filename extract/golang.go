package extract

import (
	"regexp"
	"strings"
)

// Go import statements only appear at file scope, so after comments are
// stripped an import keyword at the start of a line is always real. Grouped
// imports are tracked with a small in-group flag.

const (
	goCode = iota
	goLineComment
	goBlockComment
	goDoubleString
	goRawString
	goRuneLiteral
)

var (
	goGroupOpenRe  = regexp.MustCompile(`^import\s*\(`)
	goGroupLineRe  = regexp.MustCompile(`^\s*(?:[\w.]+\s+)?"([^"]+)"`)
	goSingleLineRe = regexp.MustCompile(`^import\s+(?:[\w.]+\s+)?"([^"]+)"`)
)

// GoImports extracts import paths from Go source, including grouped and
// aliased imports.
func GoImports(src string) []string {
	cleaned := stripGoComments(src)
	var set importSet
	inGroup := false

	for _, line := range splitLines(cleaned) {
		stripped := strings.TrimSpace(line)
		if stripped == "" {
			continue
		}
		if goGroupOpenRe.MatchString(stripped) {
			inGroup = true
			continue
		}
		if inGroup && strings.HasPrefix(stripped, ")") {
			inGroup = false
			continue
		}
		if inGroup {
			if m := goGroupLineRe.FindStringSubmatch(line); m != nil {
				set.add(m[1])
			}
		} else if strings.HasPrefix(stripped, "import ") {
			if m := goSingleLineRe.FindStringSubmatch(stripped); m != nil {
				set.add(m[1])
			}
		}
	}
	return set.list
}

// stripGoComments blanks comment content while preserving strings, raw
// strings, rune literals and line structure.
func stripGoComments(src string) string {
	source := []byte(src)
	out := append([]byte(nil), source...)
	state := goCode
	n := len(source)

	for i := 0; i < n; {
		ch := source[i]

		switch state {
		case goCode:
			if ch == '/' && i+1 < n {
				switch source[i+1] {
				case '/':
					out[i], out[i+1] = ' ', ' '
					state = goLineComment
					i += 2
					continue
				case '*':
					out[i], out[i+1] = ' ', ' '
					state = goBlockComment
					i += 2
					continue
				}
			}
			switch ch {
			case '"':
				state = goDoubleString
			case '`':
				state = goRawString
			case '\'':
				state = goRuneLiteral
			}
			i++

		case goLineComment:
			if ch == '\n' {
				state = goCode
			} else {
				out[i] = ' '
			}
			i++

		case goBlockComment:
			if ch == '*' && i+1 < n && source[i+1] == '/' {
				out[i], out[i+1] = ' ', ' '
				state = goCode
				i += 2
				continue
			}
			if ch != '\n' {
				out[i] = ' '
			}
			i++

		case goDoubleString:
			if ch == '\\' && i+1 < n {
				i += 2
				continue
			}
			if ch == '"' {
				state = goCode
			}
			i++

		case goRawString:
			if ch == '`' {
				state = goCode
			}
			i++

		case goRuneLiteral:
			if ch == '\\' && i+1 < n {
				i += 2
				continue
			}
			if ch == '\'' {
				state = goCode
			}
			i++

		default:
			i++
		}
	}
	return string(out)
}
