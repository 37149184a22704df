// Package util provides small string helpers shared by command parsing.
package util

import "strings"

// TrimQuotes removes leading and trailing double quotes from a string.
func TrimQuotes(s string) string {
	return strings.Trim(s, `"`)
}

// FixEscapeQuotes replaces escaped double quotes ("") with single double quotes (").
func FixEscapeQuotes(s string) string {
	return strings.ReplaceAll(s, `""`, `"`)
}

// CleanArgs trims whitespace and quotes from every argument and unescapes
// embedded quotes. The input slice is not modified.
func CleanArgs(args []string) []string {
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = FixEscapeQuotes(TrimQuotes(strings.TrimSpace(a)))
	}
	return out
}

// SplitCommand splits a raw line such as `:ORDER:MOVE: 1 "4,2" run` into the
// command and its arguments. Quoted arguments may contain spaces.
func SplitCommand(line string) (command string, args []string) {
	var fields []string
	var b strings.Builder
	quoted := false
	flush := func() {
		if b.Len() > 0 {
			fields = append(fields, b.String())
			b.Reset()
		}
	}
	for _, r := range strings.TrimSpace(line) {
		switch {
		case r == '"':
			quoted = !quoted
		case !quoted && (r == ' ' || r == '\t'):
			flush()
		default:
			b.WriteRune(r)
		}
	}
	flush()
	if len(fields) == 0 {
		return "", nil
	}
	if len(fields) == 1 {
		return strings.ToUpper(fields[0]), nil
	}
	return strings.ToUpper(fields[0]), fields[1:]
}
