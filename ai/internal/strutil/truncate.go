// Package strutil holds small string helpers shared across the ai packages.
package strutil

// Truncate caps s at max runes, appending "..." when anything was cut.
// Counting runes keeps multi-byte text intact. A non-positive max yields "".
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
