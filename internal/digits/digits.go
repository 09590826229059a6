package digits

import "strings"

// Unique keeps the decimal digits of s, each at most once, in order of first
// occurrence. Anything else is dropped.
func Unique(s string) string {
	var b strings.Builder
	var seen [10]bool
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			continue
		}
		if seen[c-'0'] {
			continue
		}
		seen[c-'0'] = true
		b.WriteByte(c)
	}
	return b.String()
}

// IsUnique reports whether s is non-empty and made only of distinct digits.
func IsUnique(s string) bool {
	return s != "" && Unique(s) == s
}
