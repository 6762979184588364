package extract

import (
	"regexp"
	"strings"
)

// C# strings come in several shapes the stripper must keep straight:
// regular "...", verbatim @"..." where "" escapes a quote, raw """...""" with
// three or more quotes, interpolated $"..." and $@"..." combinations, plus
// char literals.

const (
	csCode = iota
	csLineComment
	csBlockComment
	csDoubleString
	csVerbatimString
	csCharLiteral
	csRawString
)

var (
	csStopRe  = regexp.MustCompile(`^(namespace|class|struct|interface|enum|record)\s`)
	csUsingRe = regexp.MustCompile(`^(?:global\s+)?using\s+(?:static\s+)?(?:\w+\s*=\s*)?(?:global::)?([\w.]+)`)
	csGenRe   = regexp.MustCompile(`<.*`)
)

// CSharpImports extracts top level using directives. Scanning stops at the
// first namespace or type declaration since usings inside a namespace body
// still lex the same but file scoped ones carry the dependency story.
func CSharpImports(src string) []string {
	cleaned := stripCSharpComments(src)
	var set importSet

	for _, line := range splitLines(cleaned) {
		stripped := strings.TrimSpace(line)
		if stripped == "" {
			continue
		}
		if csStopRe.MatchString(stripped) {
			break
		}
		if m := csUsingRe.FindStringSubmatch(stripped); m != nil {
			set.add(csGenRe.ReplaceAllString(m[1], ""))
		}
	}
	return set.list
}

func stripCSharpComments(src string) string {
	source := []byte(src)
	out := append([]byte(nil), source...)
	state := csCode
	rawQuotes := 0
	n := len(source)

	for i := 0; i < n; {
		ch := source[i]

		switch state {
		case csCode:
			if ch == '/' && i+1 < n {
				switch source[i+1] {
				case '/':
					out[i], out[i+1] = ' ', ' '
					state = csLineComment
					i += 2
					continue
				case '*':
					out[i], out[i+1] = ' ', ' '
					state = csBlockComment
					i += 2
					continue
				}
			}
			// Verbatim strings: @"..." or $@"...".
			if (ch == '@' || ch == '$') && i+1 < n {
				j := -1
				if ch == '$' && i+1 < n && source[i+1] == '@' {
					j = i + 2
				} else if ch == '@' {
					j = i + 1
				}
				if j > 0 && j < n && source[j] == '"' {
					qcount := 0
					k := j
					for k < n && source[k] == '"' {
						qcount++
						k++
					}
					if qcount >= 3 {
						rawQuotes = qcount
						state = csRawString
						i = k
						continue
					}
					state = csVerbatimString
					i = j + 1
					continue
				}
			}
			// Raw string literals open with three or more quotes.
			if ch == '"' && i+2 < n && source[i+1] == '"' && source[i+2] == '"' {
				qcount := 0
				j := i
				for j < n && source[j] == '"' {
					qcount++
					j++
				}
				rawQuotes = qcount
				state = csRawString
				i = j
				continue
			}
			if ch == '$' && i+1 < n && source[i+1] == '"' {
				state = csDoubleString
				i += 2
				continue
			}
			switch ch {
			case '"':
				state = csDoubleString
			case '\'':
				state = csCharLiteral
			}
			i++

		case csLineComment:
			if ch == '\n' {
				state = csCode
			} else {
				out[i] = ' '
			}
			i++

		case csBlockComment:
			if ch == '*' && i+1 < n && source[i+1] == '/' {
				out[i], out[i+1] = ' ', ' '
				state = csCode
				i += 2
				continue
			}
			if ch != '\n' {
				out[i] = ' '
			}
			i++

		case csDoubleString:
			if ch == '\\' && i+1 < n {
				i += 2
				continue
			}
			if ch == '"' {
				state = csCode
			}
			i++

		case csVerbatimString:
			if ch == '"' {
				if i+1 < n && source[i+1] == '"' {
					i += 2
					continue
				}
				state = csCode
			}
			i++

		case csCharLiteral:
			if ch == '\\' && i+1 < n {
				i += 2
				continue
			}
			if ch == '\'' {
				state = csCode
			}
			i++

		case csRawString:
			if ch == '"' {
				qcount := 0
				j := i
				for j < n && source[j] == '"' {
					qcount++
					j++
				}
				if qcount >= rawQuotes {
					state = csCode
					i = j
					continue
				}
			}
			i++

		default:
			i++
		}
	}
	return string(out)
}
