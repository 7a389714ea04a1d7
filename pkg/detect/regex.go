package detect

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/columnsight/columnsight-engine/pkg/models"
)

// samplePattern is one value-level detection rule. Quick checks are cheap
// string tests that reject non-candidates before the regex runs; gating
// flags skip whole patterns when the sample set's shape rules them out.
type samplePattern struct {
	piiType models.PIIType
	regex   *regexp.Regexp
	// numericOnly patterns only run when every sample is numeric.
	numericOnly bool
	// stringOnly patterns only run when no sample is numeric.
	stringOnly bool
	quickCheck func(string) bool
	validate   func(string) bool
}

var samplePatterns = []samplePattern{
	{
		piiType:    models.PIITypeEmail,
		regex:      regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`),
		stringOnly: true,
		quickCheck: func(s string) bool { return strings.Contains(s, "@") },
	},
	{
		piiType:    models.PIITypePhone,
		regex:      regexp.MustCompile(`^(?:\+?\d{1,3}[-.\s]?)?\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}$`),
		quickCheck: func(s string) bool { return len(s) >= 10 && len(s) <= 17 },
	},
	{
		piiType:     models.PIITypeSSN,
		regex:       regexp.MustCompile(`^\d{3}[-\s]?\d{2}[-\s]?\d{4}$`),
		numericOnly: true,
		quickCheck:  func(s string) bool { return len(s) >= 9 && len(s) <= 11 },
		validate:    validSSNValue,
	},
	{
		piiType:     models.PIITypeCreditCard,
		regex:       regexp.MustCompile(`^(?:\d[ -]?){13,19}$`),
		numericOnly: true,
		quickCheck:  func(s string) bool { return len(s) >= 13 && len(s) <= 23 },
		validate:    luhnValid,
	},
	{
		piiType:    models.PIITypeIPAddress,
		regex:      regexp.MustCompile(`^(?:\d{1,3}\.){3}\d{1,3}$`),
		stringOnly: true,
		quickCheck: func(s string) bool { return strings.Count(s, ".") == 3 },
		validate:   validIPv4Octets,
	},
	{
		piiType:    models.PIITypeIBAN,
		regex:      regexp.MustCompile(`^[A-Z]{2}\d{2}[A-Z0-9]{11,30}$`),
		stringOnly: true,
		quickCheck: func(s string) bool { return len(s) >= 15 && len(s) <= 34 },
	},
	{
		piiType:    models.PIITypeDateOfBirth,
		regex:      regexp.MustCompile(`^(?:19|20)\d{2}[-/](?:0[1-9]|1[0-2])[-/](?:0[1-9]|[12]\d|3[01])$`),
		quickCheck: func(s string) bool { return len(s) == 10 },
	},
}

// RegexStrategy inspects sample values against per-PII-type patterns. A
// detection is emitted when the fraction of matching samples clears the
// confidence threshold; that fraction is the detection's confidence.
type RegexStrategy struct {
	mu        sync.RWMutex
	threshold float64
}

// NewRegexStrategy creates the pattern-based strategy.
func NewRegexStrategy(threshold float64) *RegexStrategy {
	return &RegexStrategy{threshold: threshold}
}

func (s *RegexStrategy) Name() string { return StrategyRegex }

// IsApplicable requires sample data.
func (s *RegexStrategy) IsApplicable(hasMetadata, hasSamples bool) bool {
	return hasSamples
}

func (s *RegexStrategy) SetConfidenceThreshold(threshold float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.threshold = threshold
}

func (s *RegexStrategy) DetectColumnPII(_ context.Context, req DetectionRequest) (models.ColumnPIIInfo, error) {
	s.mu.RLock()
	threshold := s.threshold
	s.mu.RUnlock()

	info := models.NewColumnPIIInfo(req.ConnectionID, req.DBType, req.TableName, req.ColumnName)
	samples := FilterSamples(req.Samples)
	if len(samples) == 0 {
		return info, nil
	}

	allNumeric := IsAllNumeric(samples)
	allString := IsAllString(samples)

	for _, p := range samplePatterns {
		if p.numericOnly && !allNumeric {
			continue
		}
		if p.stringOnly && !allString {
			continue
		}

		matches := 0
		for _, sample := range samples {
			if p.quickCheck != nil && !p.quickCheck(sample) {
				continue
			}
			if !p.regex.MatchString(sample) {
				continue
			}
			if p.validate != nil && !p.validate(sample) {
				continue
			}
			matches++
		}

		fraction := float64(matches) / float64(len(samples))
		if fraction < threshold || fraction == 0 {
			continue
		}
		detection := models.PIITypeDetection{
			Type:       p.piiType,
			Confidence: fraction,
			Method:     StrategyRegex,
		}
		detection.SetMetadata("sample_matches", strconv.Itoa(matches))
		detection.SetMetadata("sample_count", strconv.Itoa(len(samples)))
		info.AddDetection(detection)
	}
	return info, nil
}

func validSSNValue(s string) bool {
	clean := strings.NewReplacer("-", "", " ", "").Replace(s)
	if len(clean) != 9 {
		return false
	}
	area := clean[:3]
	if area == "000" || area == "666" || area[0] == '9' {
		return false
	}
	return clean[3:5] != "00" && clean[5:] != "0000"
}

func luhnValid(s string) bool {
	clean := strings.NewReplacer("-", "", " ", "").Replace(s)
	if len(clean) < 13 || len(clean) > 19 {
		return false
	}
	sum := 0
	double := false
	for i := len(clean) - 1; i >= 0; i-- {
		d := int(clean[i] - '0')
		if d < 0 || d > 9 {
			return false
		}
		if double {
			d *= 2
			if d > 9 {
				d = d%10 + 1
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

func validIPv4Octets(s string) bool {
	for _, part := range strings.Split(s, ".") {
		n, err := strconv.Atoi(part)
		if err != nil || n > 255 {
			return false
		}
	}
	return true
}
