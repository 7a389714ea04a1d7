package detect

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTechnicalAnalyzer(t *testing.T) {
	a := NewTechnicalAnalyzer()

	tests := []struct {
		column    string
		technical bool
	}{
		{"id", true},
		{"uuid", true},
		{"created_at", true},
		{"updated_at", true},
		{"deleted_on", true},
		{"is_active", true},
		{"has_consent", true},
		{"user_id", true},
		{"order_uuid", true},
		{"partition_key", true},
		{"retry_count", true},
		{"row_version", true},
		{"payload_hash", true},

		{"email", false},
		{"first_name", false},
		{"phone_number", false},
		{"street_address", false},
		{"date_of_birth", false},
		// Identity documents are named like keys but hold PII.
		{"national_id", false},
		{"tax_id", false},
		{"passport_id", false},
	}
	for _, tt := range tests {
		t.Run(tt.column, func(t *testing.T) {
			assert.Equal(t, tt.technical, a.IsTechnical(tt.column), "column %s", tt.column)
		})
	}
}

func TestTechnicalAnalyzer_ReportsReason(t *testing.T) {
	a := NewTechnicalAnalyzer()

	technical, reason := a.Classify("created_at")
	assert.True(t, technical)
	assert.NotEmpty(t, reason)

	technical, reason = a.Classify("email")
	assert.False(t, technical)
	assert.Empty(t, reason)
}

func TestTechnicalAnalyzer_CamelCaseNames(t *testing.T) {
	a := NewTechnicalAnalyzer()
	assert.True(t, a.IsTechnical("createdAt"))
	assert.True(t, a.IsTechnical("userId"))
	assert.False(t, a.IsTechnical("firstName"))
}
