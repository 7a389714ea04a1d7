package detect

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/columnsight/columnsight-engine/pkg/models"
)

func TestCompositeStrategy_AveragesAgreeingStrategies(t *testing.T) {
	composite := NewCompositeStrategy([]Strategy{
		NewHeuristicStrategy(0.5),
		NewRegexStrategy(0.5),
	}, 0.5)

	info, err := composite.DetectColumnPII(context.Background(), DetectionRequest{
		TableName:  "users",
		ColumnName: "email",
		Samples:    []string{"a@example.com", "b@example.com"},
	})
	require.NoError(t, err)

	require.True(t, info.PIIDetected)
	require.Len(t, info.Detections, 1)
	d := info.Detections[0]
	assert.Equal(t, models.PIITypeEmail, d.Type)
	// Heuristic exact match 0.95 and regex fraction 1.0 average to 0.975.
	assert.InDelta(t, 0.975, d.Confidence, 1e-9)
	assert.Equal(t, StrategyComposite, d.Method)
	assert.Equal(t, "heuristic,regex", d.Metadata["agreeing_strategies"])
}

func TestCompositeStrategy_SingleStrategyOpinionCounts(t *testing.T) {
	composite := NewCompositeStrategy([]Strategy{
		NewHeuristicStrategy(0.5),
		NewRegexStrategy(0.5),
	}, 0.5)

	// Name matches but samples do not: only the heuristic contributes, and
	// its sole opinion is the average.
	info, err := composite.DetectColumnPII(context.Background(), DetectionRequest{
		TableName:  "users",
		ColumnName: "email",
		Samples:    []string{"not an email", "also not"},
	})
	require.NoError(t, err)

	require.True(t, info.PIIDetected)
	assert.InDelta(t, heuristicExactConfidence, info.Detections[0].Confidence, 1e-9)
}

func TestCompositeStrategy_ThresholdFiltersAverage(t *testing.T) {
	composite := NewCompositeStrategy([]Strategy{
		NewHeuristicStrategy(0.3),
		NewRegexStrategy(0.3),
	}, 0.9)

	// Heuristic substring 0.80 and regex 0.5 average to 0.65 < 0.9.
	info, err := composite.DetectColumnPII(context.Background(), DetectionRequest{
		TableName:  "users",
		ColumnName: "backup_email_address",
		Samples:    []string{"a@example.com", "junk"},
	})
	require.NoError(t, err)
	assert.False(t, info.PIIDetected)
}

func TestCompositeStrategy_SkipsInapplicableMembers(t *testing.T) {
	composite := NewCompositeStrategy([]Strategy{
		NewHeuristicStrategy(0.5),
		NewRegexStrategy(0.5),
	}, 0.5)

	// No samples: the regex member is not applicable and must not run.
	info, err := composite.DetectColumnPII(context.Background(), DetectionRequest{
		TableName:  "users",
		ColumnName: "ssn",
	})
	require.NoError(t, err)

	require.True(t, info.PIIDetected)
	assert.Equal(t, models.PIITypeSSN, info.Detections[0].Type)
}
