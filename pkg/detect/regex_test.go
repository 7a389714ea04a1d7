package detect

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/columnsight/columnsight-engine/pkg/models"
)

func regexDetect(t *testing.T, threshold float64, samples []string) models.ColumnPIIInfo {
	t.Helper()
	s := NewRegexStrategy(threshold)
	info, err := s.DetectColumnPII(context.Background(), DetectionRequest{
		TableName:  "t",
		ColumnName: "c",
		Samples:    samples,
	})
	require.NoError(t, err)
	return info
}

func TestRegexStrategy_Emails(t *testing.T) {
	info := regexDetect(t, 0.5, []string{"a@example.com", "b@example.org", "c@example.net"})

	require.True(t, info.PIIDetected)
	best := info.BestDetection()
	assert.Equal(t, models.PIITypeEmail, best.Type)
	assert.InDelta(t, 1.0, best.Confidence, 1e-9)
	assert.Equal(t, StrategyRegex, best.Method)
	assert.Equal(t, "3", best.Metadata["sample_matches"])
}

func TestRegexStrategy_FractionBelowThreshold(t *testing.T) {
	// 1 of 3 samples matches: fraction 0.33 < threshold 0.5.
	info := regexDetect(t, 0.5, []string{"a@example.com", "plain", "text"})
	assert.False(t, info.PIIDetected)
}

func TestRegexStrategy_ConfidenceIsMatchFraction(t *testing.T) {
	info := regexDetect(t, 0.5, []string{"a@example.com", "b@example.com", "not-an-email", "also-not"})

	require.True(t, info.PIIDetected)
	assert.InDelta(t, 0.5, info.BestDetection().Confidence, 1e-9)
}

func TestRegexStrategy_NumericGating(t *testing.T) {
	// Valid card numbers, but the set contains a non-numeric value, so the
	// numeric-only card pattern must not run.
	info := regexDetect(t, 0.5, []string{"4111111111111111", "4111111111111111", "alice"})
	for _, d := range info.Detections {
		assert.NotEqual(t, models.PIITypeCreditCard, d.Type)
	}

	// An all-numeric set runs the card pattern.
	info = regexDetect(t, 0.5, []string{"4111111111111111", "5500005555555559"})
	require.True(t, info.PIIDetected)
	assert.Equal(t, models.PIITypeCreditCard, info.BestDetection().Type)
}

func TestRegexStrategy_StringGating(t *testing.T) {
	// The string-only email pattern must not run over a set containing a
	// purely numeric value.
	info := regexDetect(t, 0.3, []string{"a@example.com", "12345"})
	for _, d := range info.Detections {
		assert.NotEqual(t, models.PIITypeEmail, d.Type)
	}
}

func TestRegexStrategy_IPAddresses(t *testing.T) {
	info := regexDetect(t, 0.5, []string{"10.0.0.1", "192.168.1.254"})

	require.True(t, info.PIIDetected)
	assert.Equal(t, models.PIITypeIPAddress, info.BestDetection().Type)

	// Out-of-range octets are rejected.
	info = regexDetect(t, 0.5, []string{"999.999.999.999"})
	assert.False(t, info.PIIDetected)
}

func TestRegexStrategy_SSN(t *testing.T) {
	info := regexDetect(t, 0.5, []string{"123-45-6789", "321-54-9876"})

	require.True(t, info.PIIDetected)
	assert.Equal(t, models.PIITypeSSN, info.BestDetection().Type)
}

func TestRegexStrategy_LuhnRejectsInvalidCards(t *testing.T) {
	info := regexDetect(t, 0.5, []string{"4111111111111112", "4111111111111113"})
	for _, d := range info.Detections {
		assert.NotEqual(t, models.PIITypeCreditCard, d.Type)
	}
}

func TestRegexStrategy_EmptySamples(t *testing.T) {
	info := regexDetect(t, 0.5, nil)
	assert.False(t, info.PIIDetected)

	info = regexDetect(t, 0.5, []string{"", "  ", "NULL"})
	assert.False(t, info.PIIDetected)
}

func TestRegexStrategy_RequiresSamples(t *testing.T) {
	s := NewRegexStrategy(0.5)
	assert.False(t, s.IsApplicable(true, false))
	assert.True(t, s.IsApplicable(false, true))
}
