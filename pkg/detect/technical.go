package detect

import (
	"fmt"
	"strings"
)

// technicalExactNames are column names that are technical regardless of
// context: keys, audit fields, bookkeeping counters.
var technicalExactNames = map[string]bool{
	"id":          true,
	"uuid":        true,
	"guid":        true,
	"pk":          true,
	"version":     true,
	"revision":    true,
	"sequence":    true,
	"sort_order":  true,
	"created":     true,
	"updated":     true,
	"deleted":     true,
	"modified":    true,
	"timestamp":   true,
	"status":      true,
	"state":       true,
	"active":      true,
	"enabled":     true,
	"checksum":    true,
	"hash":        true,
	"etag":        true,
	"row_version": true,
}

// technicalSuffixes mark audit timestamps, foreign keys, and counters.
var technicalSuffixes = []string{
	"_at", "_on", "_ts", "_timestamp", "_date_created",
	"_count", "_total", "_num", "_seq", "_version", "_hash", "_checksum",
	"_flag", "_status", "_type_id",
}

// technicalPrefixes mark boolean flags.
var technicalPrefixes = []string{"is_", "has_", "can_", "should_", "num_"}

// identityIDStems keep "_id" columns in scope when the stem names a personal
// identifier rather than a surrogate key.
var identityIDStems = []string{"national", "tax", "ssn", "passport", "citizen", "government"}

// TechnicalAnalyzer classifies columns that by naming convention do not hold
// PII: surrogate keys, audit timestamps, flags, counters. Classification is
// name-only; it must work before any samples are fetched.
type TechnicalAnalyzer struct{}

// NewTechnicalAnalyzer creates the analyzer.
func NewTechnicalAnalyzer() *TechnicalAnalyzer {
	return &TechnicalAnalyzer{}
}

// Classify reports whether the column is technical, with the rule that fired.
func (a *TechnicalAnalyzer) Classify(columnName string) (bool, string) {
	name := normalizeIdentifier(columnName)

	if technicalExactNames[name] {
		return true, fmt.Sprintf("technical name (%s)", name)
	}

	for _, prefix := range technicalPrefixes {
		if strings.HasPrefix(name, prefix) {
			return true, fmt.Sprintf("flag prefix (%s)", prefix)
		}
	}

	if strings.HasSuffix(name, "_id") || strings.HasSuffix(name, "_uuid") || strings.HasSuffix(name, "_key") {
		for _, stem := range identityIDStems {
			if strings.Contains(name, stem) {
				return false, ""
			}
		}
		return true, "key suffix"
	}

	for _, suffix := range technicalSuffixes {
		if strings.HasSuffix(name, suffix) {
			return true, fmt.Sprintf("technical suffix (%s)", suffix)
		}
	}

	return false, ""
}

// IsTechnical is Classify without the reason.
func (a *TechnicalAnalyzer) IsTechnical(columnName string) bool {
	technical, _ := a.Classify(columnName)
	return technical
}
