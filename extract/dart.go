package extract

import (
	"regexp"
	"strings"
)

const (
	dtCode = iota
	dtLineComment
	dtBlockComment
	dtDoubleString
	dtSingleString
	dtTripleDouble
	dtTripleSingle
	dtRawDouble
	dtRawSingle
)

var dartDirectiveRe = regexp.MustCompile(`^(?:import|export|part)\s+['"](.+?)['"]`)

// DartImports extracts import, export and part directives from Dart source.
func DartImports(src string) []string {
	cleaned := stripDartComments(src)
	var set importSet
	for _, line := range splitLines(cleaned) {
		stripped := strings.TrimSpace(line)
		if stripped == "" {
			continue
		}
		if m := dartDirectiveRe.FindStringSubmatch(stripped); m != nil {
			set.add(m[1])
		}
	}
	return set.list
}

// stripDartComments blanks comments while preserving strings, including
// triple-quoted and raw (r-prefixed) forms.
func stripDartComments(src string) string {
	source := []byte(src)
	out := append([]byte(nil), source...)
	state := dtCode
	n := len(source)

	for i := 0; i < n; {
		ch := source[i]

		switch state {
		case dtCode:
			if ch == 'r' && i+1 < n {
				if source[i+1] == '"' {
					state = dtRawDouble
					i += 2
					continue
				}
				if source[i+1] == '\'' {
					state = dtRawSingle
					i += 2
					continue
				}
			}
			if ch == '/' && i+1 < n {
				switch source[i+1] {
				case '/':
					out[i], out[i+1] = ' ', ' '
					state = dtLineComment
					i += 2
					continue
				case '*':
					out[i], out[i+1] = ' ', ' '
					state = dtBlockComment
					i += 2
					continue
				}
			}
			if ch == '"' && i+2 < n && source[i+1] == '"' && source[i+2] == '"' {
				state = dtTripleDouble
				i += 3
				continue
			}
			if ch == '\'' && i+2 < n && source[i+1] == '\'' && source[i+2] == '\'' {
				state = dtTripleSingle
				i += 3
				continue
			}
			switch ch {
			case '"':
				state = dtDoubleString
			case '\'':
				state = dtSingleString
			}
			i++

		case dtLineComment:
			if ch == '\n' {
				state = dtCode
			} else {
				out[i] = ' '
			}
			i++

		case dtBlockComment:
			if ch == '*' && i+1 < n && source[i+1] == '/' {
				out[i], out[i+1] = ' ', ' '
				state = dtCode
				i += 2
				continue
			}
			if ch != '\n' {
				out[i] = ' '
			}
			i++

		case dtDoubleString:
			if ch == '\\' && i+1 < n {
				i += 2
				continue
			}
			if ch == '"' {
				state = dtCode
			}
			i++

		case dtSingleString:
			if ch == '\\' && i+1 < n {
				i += 2
				continue
			}
			if ch == '\'' {
				state = dtCode
			}
			i++

		case dtTripleDouble:
			if ch == '"' && i+2 < n && source[i+1] == '"' && source[i+2] == '"' {
				state = dtCode
				i += 3
				continue
			}
			i++

		case dtTripleSingle:
			if ch == '\'' && i+2 < n && source[i+1] == '\'' && source[i+2] == '\'' {
				state = dtCode
				i += 3
				continue
			}
			i++

		case dtRawDouble:
			if ch == '"' {
				state = dtCode
			}
			i++

		case dtRawSingle:
			if ch == '\'' {
				state = dtCode
			}
			i++

		default:
			i++
		}
	}
	return string(out)
}
