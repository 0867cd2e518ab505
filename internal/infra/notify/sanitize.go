package notify

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// TruncationMarker is appended to content cut at a channel's limit.
const TruncationMarker = "...(truncated)"

var (
	brTag       = regexp.MustCompile(`(?i)<br\s*/?>`)
	newlineRuns = regexp.MustCompile(`\n{2,}`)
)

// Sanitize normalises line breaks to "\n", collapses blank lines, strips other
// control characters and truncates to maxLen runes (0 means no limit).
func Sanitize(s string, maxLen int) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = brTag.ReplaceAllString(s, "\n")
	s = strings.Map(func(r rune) rune {
		if r != '\n' && unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
	s = newlineRuns.ReplaceAllString(s, "\n")
	s = strings.Trim(s, "\n")

	if maxLen > 0 && utf8.RuneCountInString(s) > maxLen {
		s = string([]rune(s)[:maxLen]) + TruncationMarker
	}
	return s
}

// sanitizeTitle keeps titles on one line.
func sanitizeTitle(s string) string {
	return strings.ReplaceAll(Sanitize(s, 0), "\n", " ")
}
