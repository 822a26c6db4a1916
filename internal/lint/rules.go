package lint

import (
	"fmt"
	"regexp"
	"strings"
)

// Rule checks a single source line.
type Rule struct {
	Name  string
	Check func(line string) (column int, message string, ok bool)
}

var (
	// Group 1 of every pattern is the context before the offending token.
	varDecl     = regexp.MustCompile(`(^|[^\w$.])var\s`)
	looseEqual  = regexp.MustCompile(`(^|[^=!<>])(?:==|!=)(?:[^=]|$)`)
	debuggerUse = regexp.MustCompile(`(^|[^\w$.])debugger\s*(?:;|$)`)
	consoleUse  = regexp.MustCompile(`(^|[^\w$.])console\.(?:log|debug|info|trace)\(`)
)

// Rules returns the fixed rule set applied to every source file.
func Rules(maxLineLength int) []Rule {
	return []Rule{
		regexpRule("no-var", varDecl, "use let or const instead of var"),
		regexpRule("triple-equals", looseEqual, "use === and !== instead of == and !="),
		regexpRule("no-debugger", debuggerUse, "debugger statements are not allowed"),
		regexpRule("no-console", consoleUse, "calls to console are not allowed"),
		{
			Name: "no-trailing-whitespace",
			Check: func(line string) (int, string, bool) {
				trimmed := strings.TrimRight(line, " \t")
				if len(trimmed) == len(line) {
					return 0, "", false
				}
				return len(trimmed) + 1, "trailing whitespace", true
			},
		},
		{
			Name: "max-line-length",
			Check: func(line string) (int, string, bool) {
				n := len([]rune(line))
				if n <= maxLineLength {
					return 0, "", false
				}
				return maxLineLength + 1, fmt.Sprintf("exceeds maximum line length of %d", maxLineLength), true
			},
		},
	}
}

func regexpRule(name string, re *regexp.Regexp, message string) Rule {
	return Rule{
		Name: name,
		Check: func(line string) (int, string, bool) {
			code := stripComment(line)
			loc := re.FindStringSubmatchIndex(code)
			if loc == nil {
				return 0, "", false
			}
			return loc[3] + 1, message, true
		},
	}
}

// stripComment drops a trailing // comment and the contents of string
// literals so they do not trigger code rules.
func stripComment(line string) string {
	var b strings.Builder
	var quote rune

	runes := []rune(line)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case quote != 0:
			if r == '\\' {
				i++
				b.WriteString("  ")
				continue
			}
			if r == quote {
				quote = 0
				b.WriteRune(r)
				continue
			}
			b.WriteRune(' ')
		case r == '\'' || r == '"' || r == '`':
			quote = r
			b.WriteRune(r)
		case r == '/' && i+1 < len(runes) && runes[i+1] == '/':
			return b.String()
		default:
			b.WriteRune(r)
		}
	}

	return b.String()
}

// maskBlockComments blanks out /* */ comments in line, keeping byte offsets
// intact. inBlock reports whether line starts inside a comment; the returned
// flag reports whether the next line does.
func maskBlockComments(line string, inBlock bool) (string, bool) {
	b := []byte(line)
	var quote byte

	for i := 0; i < len(b); i++ {
		switch {
		case inBlock:
			if b[i] == '*' && i+1 < len(b) && b[i+1] == '/' {
				b[i], b[i+1] = ' ', ' '
				i++
				inBlock = false
				continue
			}
			b[i] = ' '
		case quote != 0:
			if b[i] == '\\' {
				i++
			} else if b[i] == quote {
				quote = 0
			}
		case b[i] == '\'' || b[i] == '"' || b[i] == '`':
			quote = b[i]
		case b[i] == '/' && i+1 < len(b) && b[i+1] == '/':
			return string(b), false
		case b[i] == '/' && i+1 < len(b) && b[i+1] == '*':
			b[i], b[i+1] = ' ', ' '
			i++
			inBlock = true
		}
	}

	return string(b), inBlock
}
