package shared

import (
	"fmt"
	"strings"
)

var pitchClasses = [...]string{"C", "C♯/D♭", "D", "D♯/E♭", "E", "F", "F♯/G♭", "G", "G♯/A♭", "A", "A♯/B♭", "B"}

// FormatDuration renders a millisecond duration as m:ss (or h:mm:ss).
func FormatDuration(ms int) string {
	if ms < 0 {
		ms = 0
	}
	total := ms / 1000
	h, m, s := total/3600, (total%3600)/60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// VisibilityString returns "Public" or "Private".
func VisibilityString(public bool) string {
	if public {
		return "Public"
	}
	return "Private"
}

// KeyName converts a pitch class integer (0 = C) to standard notation.
//
// Spotify reports -1 when no key was detected.
func KeyName(key int) string {
	if key < 0 || key >= len(pitchClasses) {
		return "Unknown"
	}
	return pitchClasses[key]
}

// ModeName maps 1 to Major and 0 to Minor.
func ModeName(mode int) string {
	if mode == 1 {
		return "Major"
	}
	return "Minor"
}

// Truncate shortens s to at most n runes, marking the cut with an ellipsis.
func Truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n == 1 {
		return "…"
	}
	return strings.TrimSpace(string(r[:n-1])) + "…"
}
