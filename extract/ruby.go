package extract

import (
	"regexp"
	"strings"
)

const (
	rbCode = iota
	rbLineComment
	rbBlockComment
	rbSingleString
	rbDoubleString
	rbHeredoc
)

var (
	rubyRequireRe  = regexp.MustCompile(`^(?:require_relative|require_dependency|require|load)\s+['"](.+?)['"]`)
	rubyAutoloadRe = regexp.MustCompile(`^autoload\s+:\w+,\s*['"](.+?)['"]`)
)

// RubyImports extracts require, require_relative, load and autoload targets
// from Ruby source.
func RubyImports(src string) []string {
	cleaned := stripRubyComments(src)
	var set importSet

	for _, line := range splitLines(cleaned) {
		stripped := strings.TrimSpace(line)
		if stripped == "" {
			continue
		}
		if m := rubyRequireRe.FindStringSubmatch(stripped); m != nil {
			set.add(m[1])
			continue
		}
		if m := rubyAutoloadRe.FindStringSubmatch(stripped); m != nil {
			set.add(m[1])
		}
	}
	return set.list
}

// stripRubyComments blanks # comments, =begin/=end blocks and nothing else,
// preserving strings and heredoc bodies. Heredoc openers (<<~ID, <<-ID,
// <<ID, quoted variants) are recognized only when the rest of the line
// looks like a plain statement tail, which keeps << shifts out of heredoc
// state.
func stripRubyComments(src string) string {
	source := []byte(src)
	out := append([]byte(nil), source...)
	state := rbCode
	heredocID := ""
	atLineStart := true
	n := len(source)

	for i := 0; i < n; {
		ch := source[i]

		switch state {
		case rbCode:
			if atLineStart && ch == '=' && hasPrefixAt(source, i, "=begin") && wordEndsAt(source, i+6) {
				for i < n && source[i] != '\n' {
					out[i] = ' '
					i++
				}
				state = rbBlockComment
				atLineStart = true
				continue
			}
			if ch == '#' {
				out[i] = ' '
				state = rbLineComment
				i++
				continue
			}
			if ch == '<' && i+1 < n && source[i+1] == '<' {
				j := i + 2
				if j < n && (source[j] == '~' || source[j] == '-') {
					j++
				}
				var quote byte
				if j < n && (source[j] == '\'' || source[j] == '"') {
					quote = source[j]
					j++
				}
				idStart := j
				for j < n && isWordByte(source[j]) {
					j++
				}
				if j > idStart {
					id := string(source[idStart:j])
					if quote != 0 && j < n && source[j] == quote {
						j++
					}
					k := j
					for k < n && (source[k] == ' ' || source[k] == '\t') {
						k++
					}
					if k < n && (source[k] == '\n' || source[k] == ',' || source[k] == '.' || source[k] == ')') {
						heredocID = id
						for i < n && source[i] != '\n' {
							i++
						}
						state = rbHeredoc
						atLineStart = true
						continue
					}
				}
			}
			switch ch {
			case '\'':
				state = rbSingleString
			case '"':
				state = rbDoubleString
			}
			atLineStart = ch == '\n'
			i++

		case rbLineComment:
			if ch == '\n' {
				state = rbCode
				atLineStart = true
			} else {
				out[i] = ' '
			}
			i++

		case rbBlockComment:
			if atLineStart && ch == '=' && hasPrefixAt(source, i, "=end") && wordEndsAt(source, i+4) {
				for i < n && source[i] != '\n' {
					out[i] = ' '
					i++
				}
				state = rbCode
				atLineStart = true
				continue
			}
			if ch != '\n' {
				out[i] = ' '
			}
			atLineStart = ch == '\n'
			i++

		case rbSingleString:
			if ch == '\\' && i+1 < n && (source[i+1] == '\\' || source[i+1] == '\'') {
				i += 2
				continue
			}
			if ch == '\'' {
				state = rbCode
			}
			atLineStart = ch == '\n'
			i++

		case rbDoubleString:
			if ch == '\\' && i+1 < n {
				i += 2
				continue
			}
			if ch == '"' {
				state = rbCode
			}
			atLineStart = ch == '\n'
			i++

		case rbHeredoc:
			if ch == '\n' {
				j := i + 1
				for j < n && (source[j] == ' ' || source[j] == '\t') {
					j++
				}
				if j+len(heredocID) <= n && string(source[j:j+len(heredocID)]) == heredocID {
					after := j + len(heredocID)
					if after >= n || source[after] == '\n' || source[after] == ' ' || source[after] == '\t' {
						state = rbCode
						i = after
						atLineStart = false
						continue
					}
				}
				atLineStart = true
			} else {
				atLineStart = false
			}
			i++

		default:
			i++
		}
	}
	return string(out)
}

func hasPrefixAt(src []byte, pos int, s string) bool {
	return pos+len(s) <= len(src) && string(src[pos:pos+len(s)]) == s
}

// wordEndsAt reports whether position pos is past the end of a word, either
// end of input or whitespace.
func wordEndsAt(src []byte, pos int) bool {
	if pos >= len(src) {
		return true
	}
	c := src[pos]
	return c == ' ' || c == '\t' || c == '\n'
}
