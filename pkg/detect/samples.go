package detect

import (
	"strings"
	"unicode"
)

// maxFilteredSamples caps how many samples the expensive strategies see.
const maxFilteredSamples = 100

// FilterSamples drops values that carry no signal: empty strings, whitespace,
// and literal NULL markers from CSV-ish sources. Remaining values are trimmed
// and the set is capped.
func FilterSamples(samples []string) []string {
	filtered := make([]string, 0, len(samples))
	for _, s := range samples {
		trimmed := strings.TrimSpace(s)
		if trimmed == "" {
			continue
		}
		switch strings.ToLower(trimmed) {
		case "null", "nil", "none", "n/a":
			continue
		}
		filtered = append(filtered, trimmed)
		if len(filtered) == maxFilteredSamples {
			break
		}
	}
	return filtered
}

// IsAllNumeric reports whether every sample is a numeric value: digits with
// optional formatting separators (spaces, dashes), as in card numbers and
// national IDs. An empty set is not numeric.
func IsAllNumeric(samples []string) bool {
	if len(samples) == 0 {
		return false
	}
	for _, s := range samples {
		if !isNumericValue(s) {
			return false
		}
	}
	return true
}

// IsAllString reports whether no sample is a purely numeric value. Columns
// holding emails, IPs, or free text qualify; a mixed set of numbers and text
// does not. An empty set is not string-like.
func IsAllString(samples []string) bool {
	if len(samples) == 0 {
		return false
	}
	for _, s := range samples {
		if isNumericValue(s) {
			return false
		}
	}
	return true
}

func isNumericValue(s string) bool {
	hasDigit := false
	for _, r := range s {
		switch {
		case unicode.IsDigit(r):
			hasDigit = true
		case r == '-' || r == ' ':
		default:
			return false
		}
	}
	return hasDigit
}
