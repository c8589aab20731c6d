package resolver

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// CommentMarker starts a trailing comment in a statement.
const CommentMarker = ";;"

// Normalize strips a trailing comment, trims whitespace and applies NFC so
// that visually identical statements compare equal. A comment marker inside
// a quoted term is text.
func Normalize(text string) string {
	if i := IndexUnquoted(text, CommentMarker); i >= 0 {
		text = text[:i]
	}
	return norm.NFC.String(strings.TrimSpace(text))
}

// IndexUnquoted is strings.Index that skips quoted terms. A quote without a
// closing partner is plain text, as in template captures.
func IndexUnquoted(s, substr string) int {
	for i := 0; i < len(s); {
		if q := quotedPrefix(s[i:]); q != "" {
			i += len(q)
			continue
		}
		if strings.HasPrefix(s[i:], substr) {
			return i
		}
		i++
	}
	return -1
}

// SplitUnquoted splits s around each sep outside quoted terms, trims the
// parts and drops empty ones.
func SplitUnquoted(s, sep string) []string {
	var out []string
	for {
		i := IndexUnquoted(s, sep)
		part := s
		if i >= 0 {
			part = s[:i]
		}
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
		if i < 0 {
			return out
		}
		s = s[i+len(sep):]
	}
}

// Unquote strips one level of matching double quotes or backquotes.
func Unquote(s string) string {
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if first == last && (first == '"' || first == '`') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
