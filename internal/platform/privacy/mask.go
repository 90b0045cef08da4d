// Package privacy masks personally identifiable submission fields before
// they reach logs. Stored rows keep the full values; only log output is
// reduced.
package privacy

import "strings"

// MaskDigits hides all but the last four digits of a numeric identifier
// (phone or bank account). Short values are fully masked.
func MaskDigits(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return ""
	}
	if len(v) <= 4 {
		return strings.Repeat("*", len(v))
	}
	return strings.Repeat("*", len(v)-4) + v[len(v)-4:]
}

// MaskEmail hides the local part except its first rune.
func MaskEmail(v string) string {
	v = strings.TrimSpace(v)
	at := strings.IndexByte(v, '@')
	if at <= 0 {
		return MaskDigits(v)
	}
	local := []rune(v[:at])
	if len(local) == 1 {
		return "*" + v[at:]
	}
	return string(local[0]) + strings.Repeat("*", len(local)-1) + v[at:]
}
