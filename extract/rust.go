package extract

import (
	"regexp"
	"strings"
)

// Rust stripping handles nested block comments with a depth counter and raw
// strings with hash-counted delimiters (r"...", r#"..."#, br##"..."##).
// A single quote is only treated as a char literal when it closes within
// two characters or escapes, which keeps lifetimes ('a) out of string state.

const (
	rsCode = iota
	rsLineComment
	rsBlockComment
	rsDoubleString
	rsRawString
	rsCharLiteral
)

var (
	rsExternCrateRe = regexp.MustCompile(`^extern\s+crate\s+(\w+)`)
	rsGroupedUseRe  = regexp.MustCompile(`^use\s+([\w:]+)::\{([^}]+)\}`)
	rsSimpleUseRe   = regexp.MustCompile(`^use\s+([\w:]+(?:::\*)?)\s*(?:as\s+\w+\s*)?;`)
)

// RustImports extracts use and extern crate paths from Rust source. Grouped
// uses expand to one fact per item, with `as` renames dropped.
func RustImports(src string) []string {
	cleaned := stripRustComments(src)
	var set importSet

	for _, line := range splitLines(cleaned) {
		stripped := strings.TrimSpace(line)
		if stripped == "" {
			continue
		}
		if !strings.HasPrefix(stripped, "use ") && !strings.HasPrefix(stripped, "extern ") {
			continue
		}

		if m := rsExternCrateRe.FindStringSubmatch(stripped); m != nil {
			set.add(m[1])
			continue
		}
		if m := rsGroupedUseRe.FindStringSubmatch(stripped); m != nil {
			prefix := m[1]
			for _, item := range strings.Split(m[2], ",") {
				item = strings.TrimSpace(item)
				if idx := strings.Index(item, " as "); idx >= 0 {
					item = strings.TrimSpace(item[:idx])
				}
				if item != "" {
					set.add(prefix + "::" + item)
				}
			}
			continue
		}
		if m := rsSimpleUseRe.FindStringSubmatch(stripped); m != nil {
			set.add(m[1])
		}
	}
	return set.list
}

func stripRustComments(src string) string {
	source := []byte(src)
	out := append([]byte(nil), source...)
	state := rsCode
	blockDepth := 0
	rawHashes := 0
	n := len(source)

	for i := 0; i < n; {
		ch := source[i]

		switch state {
		case rsCode:
			if ch == '/' && i+1 < n {
				switch source[i+1] {
				case '/':
					out[i], out[i+1] = ' ', ' '
					state = rsLineComment
					i += 2
					continue
				case '*':
					out[i], out[i+1] = ' ', ' '
					state = rsBlockComment
					blockDepth = 1
					i += 2
					continue
				}
			}
			// Raw strings: r"...", r#"..."#, also br"..." forms.
			if (ch == 'r' || ch == 'b') && i+1 < n {
				j := -1
				if ch == 'b' && source[i+1] == 'r' {
					j = i + 2
				} else if ch == 'r' {
					j = i + 1
				}
				if j > 0 && j < n {
					hashes := 0
					for j < n && source[j] == '#' {
						hashes++
						j++
					}
					if j < n && source[j] == '"' {
						rawHashes = hashes
						state = rsRawString
						i = j + 1
						continue
					}
				}
			}
			if ch == 'b' && i+1 < n && source[i+1] == '"' {
				state = rsDoubleString
				i += 2
				continue
			}
			if ch == '"' {
				state = rsDoubleString
				i++
				continue
			}
			if ch == '\'' {
				if i+2 < n && source[i+1] == '\\' {
					state = rsCharLiteral
					i++
					continue
				}
				if i+2 < n && source[i+2] == '\'' {
					state = rsCharLiteral
					i++
					continue
				}
				// Likely a lifetime, stay in code.
			}
			i++

		case rsLineComment:
			if ch == '\n' {
				state = rsCode
			} else {
				out[i] = ' '
			}
			i++

		case rsBlockComment:
			if ch == '/' && i+1 < n && source[i+1] == '*' {
				out[i], out[i+1] = ' ', ' '
				blockDepth++
				i += 2
				continue
			}
			if ch == '*' && i+1 < n && source[i+1] == '/' {
				out[i], out[i+1] = ' ', ' '
				blockDepth--
				if blockDepth == 0 {
					state = rsCode
				}
				i += 2
				continue
			}
			if ch != '\n' {
				out[i] = ' '
			}
			i++

		case rsDoubleString:
			if ch == '\\' && i+1 < n {
				i += 2
				continue
			}
			if ch == '"' {
				state = rsCode
			}
			i++

		case rsRawString:
			if ch == '"' {
				j := i + 1
				hashes := 0
				for j < n && source[j] == '#' && hashes < rawHashes {
					hashes++
					j++
				}
				if hashes == rawHashes {
					state = rsCode
					i = j
					continue
				}
			}
			i++

		case rsCharLiteral:
			if ch == '\\' && i+1 < n {
				i += 2
				continue
			}
			if ch == '\'' {
				state = rsCode
			}
			i++

		default:
			i++
		}
	}
	return string(out)
}
