package detect

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/columnsight/columnsight-engine/pkg/models"
)

func heuristicDetect(t *testing.T, columnName string) models.ColumnPIIInfo {
	t.Helper()
	s := NewHeuristicStrategy(0.5)
	info, err := s.DetectColumnPII(context.Background(), DetectionRequest{
		ConnectionID: "conn-1",
		DBType:       "postgres",
		TableName:    "users",
		ColumnName:   columnName,
	})
	require.NoError(t, err)
	return info
}

func TestHeuristicStrategy_ExactMatch(t *testing.T) {
	info := heuristicDetect(t, "ssn")

	require.True(t, info.PIIDetected)
	best := info.BestDetection()
	require.NotNil(t, best)
	assert.Equal(t, models.PIITypeSSN, best.Type)
	assert.Equal(t, heuristicExactConfidence, best.Confidence)
	assert.Equal(t, StrategyHeuristic, best.Method)
}

func TestHeuristicStrategy_SubstringMatch(t *testing.T) {
	info := heuristicDetect(t, "customer_email")

	require.True(t, info.PIIDetected)
	best := info.BestDetection()
	assert.Equal(t, models.PIITypeEmail, best.Type)
	assert.Equal(t, heuristicSubstringConfidence, best.Confidence)
	assert.Equal(t, "email", best.Metadata["matched_keyword"])
}

func TestHeuristicStrategy_CaseAndSeparatorInsensitive(t *testing.T) {
	tests := []struct {
		column string
		want   models.PIIType
	}{
		{"FirstName", models.PIITypeName},
		{"DATE-OF-BIRTH", models.PIITypeDateOfBirth},
		{"Phone Number", models.PIITypePhone},
	}
	for _, tt := range tests {
		t.Run(tt.column, func(t *testing.T) {
			info := heuristicDetect(t, tt.column)
			require.True(t, info.PIIDetected, "expected detection for %s", tt.column)
			assert.Equal(t, tt.want, info.BestDetection().Type)
		})
	}
}

func TestHeuristicStrategy_NoMatch(t *testing.T) {
	info := heuristicDetect(t, "quantity")
	assert.False(t, info.PIIDetected)
	assert.Empty(t, info.Detections)
}

func TestHeuristicStrategy_ThresholdFiltersSubstringMatches(t *testing.T) {
	s := NewHeuristicStrategy(0.9)
	info, err := s.DetectColumnPII(context.Background(), DetectionRequest{
		TableName:  "users",
		ColumnName: "customer_email", // substring match scores 0.80
	})
	require.NoError(t, err)
	assert.False(t, info.PIIDetected)
}

func TestHeuristicStrategy_AlwaysApplicable(t *testing.T) {
	s := NewHeuristicStrategy(0.5)
	assert.True(t, s.IsApplicable(false, false))
	assert.True(t, s.IsApplicable(true, true))
}
