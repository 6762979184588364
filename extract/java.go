package extract

import "regexp"

var javaImportRe = regexp.MustCompile(`import\s+(?:static\s+)?([\w.*]+)`)

// JavaImports extracts import declarations, including static imports and
// wildcard imports, after removing comments.
func JavaImports(src string) []string {
	cleaned := stripJavaComments(src)
	var set importSet
	for _, m := range javaImportRe.FindAllStringSubmatch(cleaned, -1) {
		set.add(m[1])
	}
	return set.list
}

// stripJavaComments removes line and block comments entirely while copying
// string and char literals through verbatim.
func stripJavaComments(src string) string {
	source := []byte(src)
	var result []byte
	n := len(source)

	for i := 0; i < n; {
		c := source[i]
		switch {
		case c == '"' || c == '\'':
			quote := c
			result = append(result, c)
			i++
			for i < n && source[i] != quote {
				if source[i] == '\\' {
					result = append(result, source[i])
					i++
					if i < n {
						result = append(result, source[i])
						i++
					}
				} else {
					result = append(result, source[i])
					i++
				}
			}
			if i < n {
				result = append(result, source[i])
				i++
			}
		case c == '/' && i+1 < n && source[i+1] == '/':
			for i < n && source[i] != '\n' {
				i++
			}
		case c == '/' && i+1 < n && source[i+1] == '*':
			i += 2
			for i+1 < n && !(source[i] == '*' && source[i+1] == '/') {
				i++
			}
			i += 2
		default:
			result = append(result, c)
			i++
		}
	}
	return string(result)
}
