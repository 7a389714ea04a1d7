package detect

import (
	"fmt"
	"strings"

	"github.com/jinzhu/inflection"
	"go.uber.org/zap"

	"github.com/columnsight/columnsight-engine/pkg/models"
)

const (
	// enhancementFactorName applies to name-type PII, where column naming is
	// especially reliable evidence.
	enhancementFactorName = 1.20
	// enhancementFactorDefault applies to every other PII type.
	enhancementFactorDefault = 1.15
	// enhancementCap is the ceiling for enhanced confidence.
	enhancementCap = 0.95
)

// Enhancer boosts detection confidence using column-name and table-name
// semantics. A detection whose PII type matches a keyword in its column name
// (or its singularized table name) gets its confidence multiplied, capped at
// 0.95. Enhancement only ever raises confidence.
type Enhancer struct {
	logger *zap.Logger
}

// NewEnhancer creates the context enhancer.
func NewEnhancer(logger *zap.Logger) *Enhancer {
	return &Enhancer{logger: logger.Named("enhancer")}
}

// EnhanceConfidenceWithContext boosts each detection in place. Columns
// literally named "id" are exempt from SSN/national-ID boosts: a primary key
// matching an "id" keyword is not evidence of a national identifier.
func (e *Enhancer) EnhanceConfidenceWithContext(tableName, columnName string, info *models.ColumnPIIInfo) {
	column := normalizeIdentifier(columnName)
	table := inflection.Singular(normalizeIdentifier(tableName))

	for i := range info.Detections {
		d := &info.Detections[i]

		if column == "id" && d.Type == models.PIITypeSSN {
			continue
		}

		keywords := heuristicKeywords[d.Type]
		source := matchContext(column, table, keywords)
		if source == "" {
			continue
		}

		factor := enhancementFactorDefault
		if d.Type == models.PIITypeName {
			factor = enhancementFactorName
		}

		enhanced := d.Confidence * factor
		if enhanced > enhancementCap {
			enhanced = enhancementCap
		}
		if enhanced <= d.Confidence {
			continue
		}

		d.SetMetadata("original_confidence", fmt.Sprintf("%.4f", d.Confidence))
		d.SetMetadata("enhancement_factor", fmt.Sprintf("%.2f", factor))
		d.SetMetadata("enhanced_by", source)
		d.Confidence = enhanced

		e.logger.Debug("confidence enhanced",
			zap.String("table", tableName),
			zap.String("column", columnName),
			zap.String("pii_type", string(d.Type)),
			zap.Float64("confidence", d.Confidence))
	}
}

// matchContext reports which context matched a keyword list: the column name
// itself or the singularized table name.
func matchContext(column, table string, keywords []string) string {
	for _, kw := range keywords {
		if strings.Contains(column, kw) {
			return "column_name"
		}
	}
	for _, kw := range keywords {
		if strings.Contains(table, kw) {
			return "table_name"
		}
	}
	return ""
}
