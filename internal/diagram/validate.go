// Package diagram validates generated flowchart text, repairs it through a
// model when it is broken, and synthesises a deterministic fallback.
package diagram

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Validation is the verdict for one diagram.
type Validation struct {
	Valid  bool
	Reason string
}

var headerRe = regexp.MustCompile(`^(flowchart|graph)\s+(TB|TD|BT|RL|LR)\b`)

// Normalize trims the text, turns literal "\n" escapes into newlines and
// unifies line endings.
func Normalize(text string) string {
	s := strings.TrimSpace(text)
	if !strings.Contains(s, "\n") && strings.Contains(s, `\n`) {
		s = strings.ReplaceAll(s, `\n`, "\n")
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return s
}

// Validate checks the header and the first character of every statement.
// It is a guard against corrupted output, not a grammar.
func Validate(text string) Validation {
	lines := strings.Split(Normalize(text), "\n")
	header := -1
	for i, l := range lines {
		l = strings.TrimSpace(l)
		if l == "" || strings.HasPrefix(l, "%%") {
			continue
		}
		header = i
		break
	}
	if header < 0 {
		return Validation{Reason: "diagram is empty"}
	}
	first := strings.TrimSpace(lines[header])
	if !headerRe.MatchString(first) {
		return Validation{Reason: fmt.Sprintf("line %d: expected a flowchart header with a direction (e.g. \"flowchart TB\"), got %q", header+1, clip(first))}
	}
	for i := header + 1; i < len(lines); i++ {
		l := strings.TrimSpace(lines[i])
		if l == "" || strings.HasPrefix(l, "%%") {
			continue
		}
		r := []rune(l)[0]
		if !allowedLead(r) {
			return Validation{Reason: fmt.Sprintf("line %d: unexpected character %q at start of %q", i+1, r, clip(l))}
		}
	}
	return Validation{Valid: true}
}

func allowedLead(r rune) bool {
	if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
		return true
	}
	return strings.ContainsRune("_[](){}-<>|", r)
}

func clip(s string) string {
	const limit = 60
	if len(s) <= limit {
		return s
	}
	n := limit
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
