package detect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/columnsight/columnsight-engine/pkg/models"
)

func detectionOf(piiType models.PIIType, confidence float64) models.ColumnPIIInfo {
	info := models.NewColumnPIIInfo("conn", "postgres", "t", "c")
	info.AddDetection(models.PIITypeDetection{
		Type:       piiType,
		Confidence: confidence,
		Method:     StrategyRegex,
	})
	return info
}

func TestEnhancer_BoostsOnColumnNameMatch(t *testing.T) {
	e := NewEnhancer(zap.NewNop())
	info := detectionOf(models.PIITypeEmail, 0.6)

	e.EnhanceConfidenceWithContext("orders", "customer_email", &info)

	d := info.Detections[0]
	assert.InDelta(t, 0.6*1.15, d.Confidence, 1e-9)
	assert.Equal(t, "0.6000", d.Metadata["original_confidence"])
	assert.Equal(t, "1.15", d.Metadata["enhancement_factor"])
	assert.Equal(t, "column_name", d.Metadata["enhanced_by"])
}

func TestEnhancer_NameTypeGetsHigherFactor(t *testing.T) {
	e := NewEnhancer(zap.NewNop())
	info := detectionOf(models.PIITypeName, 0.6)

	e.EnhanceConfidenceWithContext("t", "full_name", &info)

	assert.InDelta(t, 0.6*1.20, info.Detections[0].Confidence, 1e-9)
}

func TestEnhancer_CapsAtCeiling(t *testing.T) {
	e := NewEnhancer(zap.NewNop())
	info := detectionOf(models.PIITypeEmail, 0.9)

	e.EnhanceConfidenceWithContext("t", "email", &info)

	assert.Equal(t, enhancementCap, info.Detections[0].Confidence)
}

func TestEnhancer_OnlyStrictIncrease(t *testing.T) {
	e := NewEnhancer(zap.NewNop())
	// Already at the cap: multiplying cannot strictly increase, so nothing
	// changes and no audit metadata is written.
	info := detectionOf(models.PIITypeEmail, 0.95)

	e.EnhanceConfidenceWithContext("t", "email", &info)

	d := info.Detections[0]
	assert.Equal(t, 0.95, d.Confidence)
	assert.Empty(t, d.Metadata["original_confidence"])
}

func TestEnhancer_NoKeywordMatchNoChange(t *testing.T) {
	e := NewEnhancer(zap.NewNop())
	info := detectionOf(models.PIITypeEmail, 0.6)

	e.EnhanceConfidenceWithContext("widgets", "payload", &info)

	assert.Equal(t, 0.6, info.Detections[0].Confidence)
}

func TestEnhancer_IDColumnExemptFromSSNBoost(t *testing.T) {
	e := NewEnhancer(zap.NewNop())
	info := detectionOf(models.PIITypeSSN, 0.6)

	// "id" is a primary key, not a national identifier.
	e.EnhanceConfidenceWithContext("national_ids", "id", &info)

	assert.Equal(t, 0.6, info.Detections[0].Confidence)
}

func TestEnhancer_TableNameContext(t *testing.T) {
	e := NewEnhancer(zap.NewNop())
	info := detectionOf(models.PIITypePhone, 0.6)

	// Plural table name is singularized before keyword matching.
	e.EnhanceConfidenceWithContext("phones", "contact_value", &info)

	d := info.Detections[0]
	require.InDelta(t, 0.6*1.15, d.Confidence, 1e-9)
	assert.Equal(t, "table_name", d.Metadata["enhanced_by"])
}

func TestEnhancer_ConfidenceNeverExceedsCap(t *testing.T) {
	e := NewEnhancer(zap.NewNop())
	for _, conf := range []float64{0.1, 0.5, 0.82, 0.9, 0.949} {
		info := detectionOf(models.PIITypeName, conf)
		e.EnhanceConfidenceWithContext("users", "full_name", &info)
		assert.LessOrEqual(t, info.Detections[0].Confidence, enhancementCap)
		assert.GreaterOrEqual(t, info.Detections[0].Confidence, conf)
	}
}
