package extract

import (
	"regexp"
	"strings"
)

const (
	ktCode = iota
	ktLineComment
	ktBlockComment
	ktDoubleString
	ktTripleString
	ktCharLiteral
)

var kotlinImportRe = regexp.MustCompile(`^import\s+(\w+(?:\.\w+)*(?:\.\*)?)`)

// KotlinImports extracts import declarations from Kotlin source. Kotlin
// block comments nest, so the stripper keeps a depth counter.
func KotlinImports(src string) []string {
	cleaned := stripKotlinComments(src)
	var set importSet
	for _, line := range splitLines(cleaned) {
		stripped := strings.TrimSpace(line)
		if stripped == "" {
			continue
		}
		if m := kotlinImportRe.FindStringSubmatch(stripped); m != nil {
			set.add(m[1])
		}
	}
	return set.list
}

func stripKotlinComments(src string) string {
	source := []byte(src)
	out := append([]byte(nil), source...)
	state := ktCode
	blockDepth := 0
	n := len(source)

	for i := 0; i < n; {
		ch := source[i]

		switch state {
		case ktCode:
			if ch == '/' && i+1 < n {
				switch source[i+1] {
				case '/':
					out[i], out[i+1] = ' ', ' '
					state = ktLineComment
					i += 2
					continue
				case '*':
					out[i], out[i+1] = ' ', ' '
					state = ktBlockComment
					blockDepth = 1
					i += 2
					continue
				}
			}
			if ch == '"' && i+2 < n && source[i+1] == '"' && source[i+2] == '"' {
				state = ktTripleString
				i += 3
				continue
			}
			switch ch {
			case '"':
				state = ktDoubleString
			case '\'':
				state = ktCharLiteral
			}
			i++

		case ktLineComment:
			if ch == '\n' {
				state = ktCode
			} else {
				out[i] = ' '
			}
			i++

		case ktBlockComment:
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
					state = ktCode
				}
				i += 2
				continue
			}
			if ch != '\n' {
				out[i] = ' '
			}
			i++

		case ktDoubleString:
			if ch == '\\' && i+1 < n {
				i += 2
				continue
			}
			if ch == '"' {
				state = ktCode
			}
			i++

		case ktTripleString:
			if ch == '"' && i+2 < n && source[i+1] == '"' && source[i+2] == '"' {
				state = ktCode
				i += 3
				continue
			}
			i++

		case ktCharLiteral:
			if ch == '\\' && i+1 < n {
				i += 2
				continue
			}
			if ch == '\'' {
				state = ktCode
			}
			i++

		default:
			i++
		}
	}
	return string(out)
}
