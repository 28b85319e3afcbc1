package tgui

import "unicode/utf8"

// MaxMessageRunes is the Bot API limit for a text message after entity parsing.
const MaxMessageRunes = 4096

// TruncRunes cuts s to at most n runes, ending with "…" when it had to cut.
func TruncRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	seen := 0
	for i := range s {
		if seen == n-1 {
			return s[:i] + "…"
		}
		seen++
	}
	return s
}
