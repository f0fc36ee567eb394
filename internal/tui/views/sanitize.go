package views

import (
	"strings"
	"unicode"
)

// sanitizeForTerminal drops runes tcell cannot lay out reliably: emoji
// modifiers and joiners, variation selectors, and control characters other
// than newline and tab.
func sanitizeForTerminal(s string) string {
	return strings.Map(func(r rune) rune {
		if dropRune(r) {
			return -1
		}
		return r
	}, s)
}

func dropRune(r rune) bool {
	switch {
	case r == '\n' || r == '\t':
		return false
	case unicode.IsControl(r):
		return true
	case r >= 0x1F3FB && r <= 0x1F3FF: // skin tones
		return true
	case r == 0x200D: // ZWJ
		return true
	case r >= 0xFE00 && r <= 0xFE0F, r >= 0xE0100 && r <= 0xE01EF:
		return true
	default:
		return false
	}
}
