package extract

import (
	"regexp"
	"strings"
)

const (
	phCode = iota
	phLineComment
	phBlockComment
	phSingleString
	phDoubleString
	phHeredoc
)

var (
	phpUseRe = regexp.MustCompile(`^use\s+(?:function\s+|const\s+)?([\w\\]+)\s*(?:as\s+\w+\s*)?;`)
	// use App\Models\{User, Role};
	phpGroupUseRe = regexp.MustCompile(`^use\s+(?:function\s+|const\s+)?([\w\\]+)\\\{([^}]+)\}`)
	phpRequireRe  = regexp.MustCompile(`^(?:require_once|require|include_once|include)\s+['"](.+?)['"]`)
)

// PHPImports extracts use statements (plain, function, const, grouped) and
// require/include targets from PHP source.
func PHPImports(src string) []string {
	cleaned := stripPHPComments(src)
	var set importSet

	for _, line := range splitLines(cleaned) {
		stripped := strings.TrimSpace(line)
		if stripped == "" {
			continue
		}

		if m := phpUseRe.FindStringSubmatch(stripped); m != nil {
			set.add(m[1])
			continue
		}
		if m := phpGroupUseRe.FindStringSubmatch(stripped); m != nil {
			prefix := m[1]
			for _, item := range strings.Split(m[2], ",") {
				item = strings.TrimSpace(item)
				if idx := strings.Index(item, " as "); idx >= 0 {
					item = strings.TrimSpace(item[:idx])
				}
				if item != "" {
					set.add(prefix + `\` + item)
				}
			}
			continue
		}
		if m := phpRequireRe.FindStringSubmatch(stripped); m != nil {
			set.add(m[1])
		}
	}
	return set.list
}

// stripPHPComments blanks comments while preserving strings and heredoc or
// nowdoc bodies. A bare # starts a comment unless it opens an attribute #[.
func stripPHPComments(src string) string {
	source := []byte(src)
	out := append([]byte(nil), source...)
	state := phCode
	heredocID := ""
	n := len(source)

	for i := 0; i < n; {
		ch := source[i]

		switch state {
		case phCode:
			if ch == '/' && i+1 < n {
				switch source[i+1] {
				case '/':
					out[i], out[i+1] = ' ', ' '
					state = phLineComment
					i += 2
					continue
				case '*':
					out[i], out[i+1] = ' ', ' '
					state = phBlockComment
					i += 2
					continue
				}
			}
			if ch == '#' && (i+1 >= n || source[i+1] != '[') {
				out[i] = ' '
				state = phLineComment
				i++
				continue
			}
			// Heredoc or nowdoc opener <<<ID / <<<'ID'.
			if ch == '<' && i+2 < n && source[i+1] == '<' && source[i+2] == '<' {
				j := i + 3
				for j < n && (source[j] == ' ' || source[j] == '\t') {
					j++
				}
				nowdoc := false
				if j < n && source[j] == '\'' {
					nowdoc = true
					j++
				}
				idStart := j
				for j < n && isWordByte(source[j]) {
					j++
				}
				if j > idStart {
					heredocID = string(source[idStart:j])
					if nowdoc && j < n && source[j] == '\'' {
						j++
					}
					for j < n && source[j] != '\n' {
						j++
					}
					state = phHeredoc
					i = j
					continue
				}
			}
			switch ch {
			case '\'':
				state = phSingleString
			case '"':
				state = phDoubleString
			}
			i++

		case phLineComment:
			if ch == '\n' {
				state = phCode
			} else {
				out[i] = ' '
			}
			i++

		case phBlockComment:
			if ch == '*' && i+1 < n && source[i+1] == '/' {
				out[i], out[i+1] = ' ', ' '
				state = phCode
				i += 2
				continue
			}
			if ch != '\n' {
				out[i] = ' '
			}
			i++

		case phSingleString:
			if ch == '\\' && i+1 < n && (source[i+1] == '\\' || source[i+1] == '\'') {
				i += 2
				continue
			}
			if ch == '\'' {
				state = phCode
			}
			i++

		case phDoubleString:
			if ch == '\\' && i+1 < n {
				i += 2
				continue
			}
			if ch == '"' {
				state = phCode
			}
			i++

		case phHeredoc:
			if ch == '\n' {
				j := i + 1
				for j < n && (source[j] == ' ' || source[j] == '\t') {
					j++
				}
				if j+len(heredocID) <= n && string(source[j:j+len(heredocID)]) == heredocID {
					after := j + len(heredocID)
					if after >= n || source[after] == '\n' || source[after] == ';' {
						state = phCode
						i = after
						continue
					}
				}
			}
			i++

		default:
			i++
		}
	}
	return string(out)
}
