package extract

import (
	"regexp"
	"strings"
)

const (
	swCode = iota
	swLineComment
	swBlockComment
	swDoubleString
	swTripleString
)

var swiftImportRe = regexp.MustCompile(
	`^(?:@testable\s+)?import\s+(?:(?:struct|class|enum|protocol|typealias|func|var|let)\s+)?(\w+)`)

// SwiftImports extracts imported module names, covering @testable imports
// and type-scoped imports like `import struct Foundation.Date` (the module
// name is what matters for boundary checks).
func SwiftImports(src string) []string {
	cleaned := stripSwiftComments(src)
	var set importSet
	for _, line := range splitLines(cleaned) {
		stripped := strings.TrimSpace(line)
		if stripped == "" {
			continue
		}
		if m := swiftImportRe.FindStringSubmatch(stripped); m != nil {
			set.add(m[1])
		}
	}
	return set.list
}

func stripSwiftComments(src string) string {
	source := []byte(src)
	out := append([]byte(nil), source...)
	state := swCode
	blockDepth := 0
	n := len(source)

	for i := 0; i < n; {
		ch := source[i]

		switch state {
		case swCode:
			if ch == '/' && i+1 < n {
				switch source[i+1] {
				case '/':
					out[i], out[i+1] = ' ', ' '
					state = swLineComment
					i += 2
					continue
				case '*':
					out[i], out[i+1] = ' ', ' '
					state = swBlockComment
					blockDepth = 1
					i += 2
					continue
				}
			}
			if ch == '"' && i+2 < n && source[i+1] == '"' && source[i+2] == '"' {
				state = swTripleString
				i += 3
				continue
			}
			if ch == '"' {
				state = swDoubleString
			}
			i++

		case swLineComment:
			if ch == '\n' {
				state = swCode
			} else {
				out[i] = ' '
			}
			i++

		case swBlockComment:
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
					state = swCode
				}
				i += 2
				continue
			}
			if ch != '\n' {
				out[i] = ' '
			}
			i++

		case swDoubleString:
			if ch == '\\' && i+1 < n {
				i += 2
				continue
			}
			if ch == '"' {
				state = swCode
			}
			i++

		case swTripleString:
			if ch == '"' && i+2 < n && source[i+1] == '"' && source[i+2] == '"' {
				state = swCode
				i += 3
				continue
			}
			i++

		default:
			i++
		}
	}
	return string(out)
}
