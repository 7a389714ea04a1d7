// Package logging provides redaction helpers for log output. The engine
// handles raw sample values that are by definition likely to contain PII,
// so nothing from a sample set may reach a log line unredacted.
package logging

import (
	"regexp"
	"strings"
)

const (
	// MaxSampleLogLength caps how much of a redacted sample is logged.
	MaxSampleLogLength = 32
	// RedactedText is the replacement text for sensitive data.
	RedactedText = "[REDACTED]"
)

var (
	// Matches email addresses embedded in error messages.
	emailPattern = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)

	// Matches runs of 6+ digits (account numbers, SSNs, card fragments).
	digitRunPattern = regexp.MustCompile(`\d{6,}`)

	// Matches credentials in connection strings (user:pass@host).
	connStringPattern = regexp.MustCompile(`://[^:]+:[^@]+@[^/\s]+`)
)

// RedactSample masks a sample value for logging, keeping only the first and
// last character as orientation.
func RedactSample(value string) string {
	if len(value) <= 4 {
		return "****"
	}
	masked := value[:1] + strings.Repeat("*", len(value)-2) + value[len(value)-1:]
	if len(masked) > MaxSampleLogLength {
		masked = masked[:MaxSampleLogLength] + "..."
	}
	return masked
}

// RedactSamples masks every value in a sample set.
func RedactSamples(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = RedactSample(v)
	}
	return out
}

// SanitizeError strips sample-derived content from an error message before
// it is logged or stored in result metadata. Errors from the NER client and
// from strategies can echo the text they were asked to analyze.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}

	sanitized := emailPattern.ReplaceAllString(err.Error(), RedactedText)
	sanitized = digitRunPattern.ReplaceAllString(sanitized, RedactedText)
	sanitized = connStringPattern.ReplaceAllString(sanitized, "://"+RedactedText+"@"+RedactedText)

	return sanitized
}
