package tgui

import (
	"html"
	"strings"
)

// H is HTML that is safe to send with ParseMode=HTML.
type H string

func (h H) String() string { return string(h) }

// Esc escapes text for Telegram HTML parse mode.
func Esc(s string) H { return H(html.EscapeString(s)) }

// B renders s in bold.
func B(s string) H { return H("<b>" + html.EscapeString(s) + "</b>") }

// Lines joins non-blank parts with newlines.
func Lines(parts ...H) H {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(string(p)) == "" {
			continue
		}
		kept = append(kept, string(p))
	}
	return H(strings.Join(kept, "\n"))
}
