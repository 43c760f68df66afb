package jsonutil

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Kind is the top-level shape of a parsed model response.
type Kind int

const (
	KindScalar Kind = iota
	KindObject
	KindArray
)

func (k Kind) String() string {
	switch k {
	case KindObject:
		return "object"
	case KindArray:
		return "array"
	default:
		return "scalar"
	}
}

// Parsed is a successfully recovered JSON value.
type Parsed struct {
	Kind  Kind
	Raw   json.RawMessage
	Value any
}

func (p Parsed) Array() ([]any, bool) {
	a, ok := p.Value.([]any)
	return a, ok
}

func (p Parsed) Object() (map[string]any, bool) {
	m, ok := p.Value.(map[string]any)
	return m, ok
}

// Decode unmarshals the recovered JSON into v.
func (p Parsed) Decode(v any) error {
	return UnmarshalFlex(p.Raw, v)
}

var ErrUnparseable = errors.New("unparseable model response")

const snippetLimit = 200

// UnparseableError carries a truncated copy of the raw text.
type UnparseableError struct {
	Snippet string
}

func (e *UnparseableError) Error() string {
	return fmt.Sprintf("%v: %q", ErrUnparseable, e.Snippet)
}

func (e *UnparseableError) Unwrap() error { return ErrUnparseable }

var fenceRe = regexp.MustCompile("(?s)```[A-Za-z0-9_+-]*[ \t]*\r?\n?(.*?)```")

// StripCodeFence returns the contents of the first fenced block, or text
// unchanged when there is none.
func StripCodeFence(text string) string {
	if m := fenceRe.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return text
}

// Extract recovers a JSON value from free-form model output. It tries, in
// order: the whole text, the first fenced code block, and the span between
// the first opening and last matching closing bracket with comments and
// trailing commas removed. A document quoted as a JSON string is unwrapped.
func Extract(text string) (Parsed, error) {
	trimmed := strings.TrimSpace(text)
	if p, ok := strict(trimmed); ok {
		return p, nil
	}

	fenced, hasFence := "", false
	if m := fenceRe.FindStringSubmatch(trimmed); m != nil {
		fenced, hasFence = strings.TrimSpace(m[1]), true
		if p, ok := strict(fenced); ok {
			return p, nil
		}
	}

	sources := []string{trimmed}
	if hasFence {
		sources = []string{fenced, trimmed}
	}
	for _, src := range sources {
		span, ok := bracketSpan(src)
		if !ok {
			continue
		}
		if p, ok := strict(span); ok {
			return p, nil
		}
		if p, ok := strict(stripTrailingCommas(stripComments(span))); ok {
			return p, nil
		}
	}
	return Parsed{}, &UnparseableError{Snippet: truncate(trimmed, snippetLimit)}
}

func strict(s string) (Parsed, bool) {
	if s == "" {
		return Parsed{}, false
	}
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return Parsed{}, false
	}
	if str, ok := v.(string); ok && quotedDocument(str) {
		if norm, err := NormalizeJSONUnicode([]byte(s)); err == nil {
			return strict(string(norm))
		}
	}
	p := Parsed{Raw: json.RawMessage(s), Value: v}
	switch v.(type) {
	case map[string]any:
		p.Kind = KindObject
	case []any:
		p.Kind = KindArray
	default:
		p.Kind = KindScalar
	}
	return p, true
}

func quotedDocument(s string) bool {
	s = strings.TrimSpace(s)
	return strings.HasPrefix(s, "{") || strings.HasPrefix(s, "[")
}

// bracketSpan slices from the first '{' or '[' to the last matching closer.
func bracketSpan(s string) (string, bool) {
	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return "", false
	}
	closer := "}"
	if s[start] == '[' {
		closer = "]"
	}
	end := strings.LastIndex(s, closer)
	if end <= start {
		end = strings.LastIndexAny(s, "}]")
		if end <= start {
			return "", false
		}
	}
	return s[start : end+1], true
}

// stripComments removes // and /* */ comments outside string literals.
func stripComments(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inStr, esc := false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inStr {
			b.WriteByte(c)
			switch {
			case esc:
				esc = false
			case c == '\\':
				esc = true
			case c == '"':
				inStr = false
			}
			continue
		}
		if c == '"' {
			inStr = true
			b.WriteByte(c)
			continue
		}
		if c == '/' && i+1 < len(s) {
			switch s[i+1] {
			case '/':
				for i < len(s) && s[i] != '\n' {
					i++
				}
				if i < len(s) {
					b.WriteByte('\n')
				}
				continue
			case '*':
				end := strings.Index(s[i+2:], "*/")
				if end < 0 {
					return b.String()
				}
				i += end + 3
				continue
			}
		}
		b.WriteByte(c)
	}
	return b.String()
}

// stripTrailingCommas drops commas that directly precede } or ] outside strings.
func stripTrailingCommas(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inStr, esc := false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inStr {
			b.WriteByte(c)
			switch {
			case esc:
				esc = false
			case c == '\\':
				esc = true
			case c == '"':
				inStr = false
			}
			continue
		}
		if c == '"' {
			inStr = true
		}
		if c == ',' {
			j := i + 1
			for j < len(s) && strings.ContainsRune(" \t\r\n", rune(s[j])) {
				j++
			}
			if j < len(s) && (s[j] == '}' || s[j] == ']') {
				continue
			}
		}
		b.WriteByte(c)
	}
	return b.String()
}

// truncate cuts s to at most n bytes on a rune boundary.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
