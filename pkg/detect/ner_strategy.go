package detect

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/columnsight/columnsight-engine/pkg/models"
	"github.com/columnsight/columnsight-engine/pkg/ner"
)

// entityToPIIType maps the NER service's entity labels onto PII types. The
// service's label set is wider than ours; unmapped labels are ignored.
var entityToPIIType = map[string]models.PIIType{
	"EMAIL":         models.PIITypeEmail,
	"EMAIL_ADDRESS": models.PIITypeEmail,
	"PHONE":         models.PIITypePhone,
	"PHONE_NUMBER":  models.PIITypePhone,
	"PERSON":        models.PIITypeName,
	"NAME":          models.PIITypeName,
	"SSN":           models.PIITypeSSN,
	"NATIONAL_ID":   models.PIITypeSSN,
	"CREDIT_CARD":   models.PIITypeCreditCard,
	"ADDRESS":       models.PIITypeAddress,
	"LOCATION":      models.PIITypeAddress,
	"DATE_OF_BIRTH": models.PIITypeDateOfBirth,
	"IP_ADDRESS":    models.PIITypeIPAddress,
	"PASSPORT":      models.PIITypePassport,
	"IBAN":          models.PIITypeIBAN,
}

// NERStrategy delegates sample analysis to the external NER service through
// the resilient client. Service failures degrade inside the client (fallback
// detector); an error from this strategy means the request could not be
// formed at all.
type NERStrategy struct {
	client *ner.Client
	logger *zap.Logger

	mu        sync.RWMutex
	threshold float64
}

// NewNERStrategy creates the model-backed strategy.
func NewNERStrategy(client *ner.Client, threshold float64, logger *zap.Logger) *NERStrategy {
	return &NERStrategy{
		client:    client,
		threshold: threshold,
		logger:    logger.Named("ner_strategy"),
	}
}

func (s *NERStrategy) Name() string { return StrategyNER }

// IsApplicable requires sample data.
func (s *NERStrategy) IsApplicable(hasMetadata, hasSamples bool) bool {
	return hasSamples
}

func (s *NERStrategy) SetConfidenceThreshold(threshold float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.threshold = threshold
}

func (s *NERStrategy) DetectColumnPII(ctx context.Context, req DetectionRequest) (models.ColumnPIIInfo, error) {
	s.mu.RLock()
	threshold := s.threshold
	s.mu.RUnlock()

	info := models.NewColumnPIIInfo(req.ConnectionID, req.DBType, req.TableName, req.ColumnName)
	samples := FilterSamples(req.Samples)
	if len(samples) == 0 {
		return info, nil
	}

	scores, err := s.client.AnalyzeText(ctx, samples)
	if err != nil {
		return info, fmt.Errorf("ner analysis for %s.%s: %w", req.TableName, req.ColumnName, err)
	}

	for entity, confidence := range scores {
		piiType, ok := entityToPIIType[entity]
		if !ok {
			s.logger.Debug("unmapped ner entity", zap.String("entity", entity))
			continue
		}
		if confidence < threshold {
			continue
		}
		detection := models.PIITypeDetection{
			Type:       piiType,
			Confidence: confidence,
			Method:     StrategyNER,
		}
		detection.SetMetadata("entity", entity)
		info.AddDetection(detection)
	}
	return info, nil
}
