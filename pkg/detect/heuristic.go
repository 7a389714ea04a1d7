package detect

import (
	"context"
	"strings"
	"sync"

	"github.com/columnsight/columnsight-engine/pkg/models"
)

// Confidence levels for heuristic name matches. An exact keyword match is
// strong enough to end the cascade on its own.
const (
	heuristicExactConfidence     = 0.95
	heuristicSubstringConfidence = 0.80
)

// heuristicKeywords maps each PII type to the column-name fragments that
// suggest it. Matching is case-insensitive substring; the more specific
// multi-word fragments come first so metadata records the best evidence.
var heuristicKeywords = map[models.PIIType][]string{
	models.PIITypeEmail:       {"email_address", "e_mail", "email", "mail_addr"},
	models.PIITypePhone:       {"phone_number", "mobile_number", "telephone", "phone", "mobile", "msisdn", "fax"},
	models.PIITypeName:        {"first_name", "last_name", "full_name", "middle_name", "given_name", "family_name", "surname", "maiden_name", "nickname", "name"},
	models.PIITypeSSN:         {"social_security", "national_id", "tax_id", "ssn", "nino", "sin_number"},
	models.PIITypeCreditCard:  {"credit_card", "card_number", "cc_number", "card_num", "pan"},
	models.PIITypeAddress:     {"street_address", "home_address", "address", "street", "postal_code", "zip_code", "zipcode", "city"},
	models.PIITypeDateOfBirth: {"date_of_birth", "birth_date", "birthdate", "birthday", "dob", "born"},
	models.PIITypeIPAddress:   {"ip_address", "ip_addr", "ipaddr", "client_ip", "remote_ip"},
	models.PIITypePassport:    {"passport_number", "passport"},
	models.PIITypeIBAN:        {"iban", "bank_account", "account_iban"},
}

// HeuristicStrategy classifies columns by name alone. It needs no sample
// data, making it the cheapest stage and the default cascade opener.
type HeuristicStrategy struct {
	mu        sync.RWMutex
	threshold float64
}

// NewHeuristicStrategy creates the name-based strategy.
func NewHeuristicStrategy(threshold float64) *HeuristicStrategy {
	return &HeuristicStrategy{threshold: threshold}
}

func (s *HeuristicStrategy) Name() string { return StrategyHeuristic }

// IsApplicable is always true: a column name is always available.
func (s *HeuristicStrategy) IsApplicable(hasMetadata, hasSamples bool) bool {
	return true
}

func (s *HeuristicStrategy) SetConfidenceThreshold(threshold float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.threshold = threshold
}

// DetectColumnPII matches the column name against the keyword lists. An
// exact match on a keyword scores 0.95, a substring match 0.80. At most one
// detection per PII type is emitted.
func (s *HeuristicStrategy) DetectColumnPII(_ context.Context, req DetectionRequest) (models.ColumnPIIInfo, error) {
	s.mu.RLock()
	threshold := s.threshold
	s.mu.RUnlock()

	info := models.NewColumnPIIInfo(req.ConnectionID, req.DBType, req.TableName, req.ColumnName)
	name := normalizeIdentifier(req.ColumnName)

	for piiType, keywords := range heuristicKeywords {
		confidence, keyword := matchKeywords(name, keywords)
		if confidence == 0 || confidence < threshold {
			continue
		}
		detection := models.PIITypeDetection{
			Type:       piiType,
			Confidence: confidence,
			Method:     StrategyHeuristic,
		}
		detection.SetMetadata("matched_keyword", keyword)
		info.AddDetection(detection)
	}
	return info, nil
}

// matchKeywords returns the best match confidence for a normalized column
// name, preferring exact matches over substring hits.
func matchKeywords(name string, keywords []string) (float64, string) {
	for _, kw := range keywords {
		if name == kw {
			return heuristicExactConfidence, kw
		}
	}
	for _, kw := range keywords {
		if strings.Contains(name, kw) {
			return heuristicSubstringConfidence, kw
		}
	}
	return 0, ""
}

// normalizeIdentifier lowercases a column name and unifies separators so
// camelCase, kebab-case, and snake_case names match the same keywords.
func normalizeIdentifier(name string) string {
	var b strings.Builder
	b.Grow(len(name) + 4)
	for i, r := range name {
		if r >= 'A' && r <= 'Z' {
			if i > 0 && name[i-1] != '_' && name[i-1] != '-' {
				b.WriteByte('_')
			}
			b.WriteRune(r - 'A' + 'a')
			continue
		}
		if r == '-' || r == ' ' {
			b.WriteByte('_')
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
