package command

import "strings"

// Format renders a program and its arguments as a single shell command line.
func Format(program string, args ...string) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, Quote(program))
	for _, arg := range args {
		parts = append(parts, Quote(arg))
	}
	return strings.Join(parts, " ")
}

// Quote returns arg unchanged when it only contains characters that are safe
// to pass to a shell, otherwise it wraps it in single quotes.
// Single quotes inside arg are closed, escaped and reopened ('\'') since
// nothing can be escaped inside a single-quoted shell string.
func Quote(arg string) string {
	if arg != "" && strings.IndexFunc(arg, unsafe) < 0 {
		return arg
	}
	return "'" + strings.ReplaceAll(arg, "'", `'\''`) + "'"
}

func unsafe(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return false
	case strings.ContainsRune("-_=/,.+", r):
		return false
	}
	return true
}
