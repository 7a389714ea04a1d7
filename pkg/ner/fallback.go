package ner

import (
	"regexp"
	"strings"
)

const (
	// fallbackConfidenceCap bounds fallback confidence below what the real
	// NER service can produce, so degraded results are distinguishable.
	fallbackConfidenceCap = 0.85
	// fallbackConfidenceFloor discards noise matches.
	fallbackConfidenceFloor = 0.25
)

// fallbackPattern is one local detection rule applied when the NER service
// is unreachable.
type fallbackPattern struct {
	entityType string
	regex      *regexp.Regexp
	validate   func(string) bool
}

// FallbackDetector is a stateless local substitute for the NER service.
// It applies a small fixed set of regex patterns and never fails.
type FallbackDetector struct {
	patterns []fallbackPattern
}

// NewFallbackDetector creates a detector with the built-in pattern set:
// email, phone, national-ID-like, and credit-card-like values.
func NewFallbackDetector() *FallbackDetector {
	return &FallbackDetector{
		patterns: []fallbackPattern{
			{
				entityType: "EMAIL",
				regex:      regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`),
			},
			{
				entityType: "PHONE",
				regex:      regexp.MustCompile(`(?:\+?1[-.\s]?)?\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}\b`),
			},
			{
				entityType: "SSN",
				regex:      regexp.MustCompile(`\b\d{3}[-\s]?\d{2}[-\s]?\d{4}\b`),
				validate:   validSSN,
			},
			{
				entityType: "CREDIT_CARD",
				regex:      regexp.MustCompile(`\b(?:4\d{12}(?:\d{3})?|5[1-5]\d{14}|3[47]\d{13}|6(?:011|5\d{2})\d{12})\b`),
				validate:   validLuhn,
			},
		},
	}
}

// DetectPII counts pattern matches across the sample set and converts each
// entity's match ratio into a confidence: ratio x 0.85, discarding entities
// below the 0.25 floor. Returns an empty map for empty input.
func (d *FallbackDetector) DetectPII(samples []string) map[string]float64 {
	result := make(map[string]float64)
	if len(samples) == 0 {
		return result
	}

	counts := make(map[string]int)
	for _, sample := range samples {
		for _, p := range d.patterns {
			match := p.regex.FindString(sample)
			if match == "" {
				continue
			}
			if p.validate != nil && !p.validate(match) {
				continue
			}
			counts[p.entityType]++
		}
	}

	for entityType, count := range counts {
		confidence := float64(count) / float64(len(samples)) * fallbackConfidenceCap
		if confidence < fallbackConfidenceFloor {
			continue
		}
		result[entityType] = confidence
	}
	return result
}

func validSSN(ssn string) bool {
	clean := strings.ReplaceAll(strings.ReplaceAll(ssn, "-", ""), " ", "")
	if len(clean) != 9 {
		return false
	}

	area := clean[:3]
	if area == "000" || area == "666" || area[0] == '9' {
		return false
	}
	if clean[3:5] == "00" {
		return false
	}
	return clean[5:] != "0000"
}

func validLuhn(number string) bool {
	clean := strings.ReplaceAll(strings.ReplaceAll(number, " ", ""), "-", "")
	if len(clean) < 13 || len(clean) > 19 {
		return false
	}

	sum := 0
	alternate := false
	for i := len(clean) - 1; i >= 0; i-- {
		n := int(clean[i] - '0')
		if n < 0 || n > 9 {
			return false
		}
		if alternate {
			n *= 2
			if n > 9 {
				n = n%10 + 1
			}
		}
		sum += n
		alternate = !alternate
	}
	return sum%10 == 0
}
