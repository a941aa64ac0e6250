package domain

import "strconv"

// Ordinal extracts the trailing numeric suffix of a segment code ("SEG07" -> 7).
// Lower ordinals are better tiers. Returns false when the code has no numeric suffix.
func Ordinal(code string) (int, bool) {
	end := len(code)
	start := end
	for start > 0 && code[start-1] >= '0' && code[start-1] <= '9' {
		start--
	}
	if start == end {
		return 0, false
	}
	n, err := strconv.Atoi(code[start:end])
	if err != nil {
		return 0, false
	}
	return n, true
}
