package utils

import "time"

// Truncate shortens s to at most limit runes, appending an ellipsis when cut.
func Truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	if limit <= 3 {
		return string(runes[:limit])
	}
	return string(runes[:limit-3]) + "..."
}

// FormatDateSpan renders the period two dates cover, collapsing equal days.
func FormatDateSpan(earliest, latest time.Time) string {
	const layout = "2006-01-02"
	if earliest.Format(layout) == latest.Format(layout) {
		return earliest.Format(layout)
	}
	return earliest.Format(layout) + " to " + latest.Format(layout)
}
