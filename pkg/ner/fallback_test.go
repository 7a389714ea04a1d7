package ner

import (
	"math"
	"testing"
)

func TestFallbackDetector_EmailOnly(t *testing.T) {
	d := NewFallbackDetector()

	result := d.DetectPII([]string{"john@example.com"})

	if len(result) != 1 {
		t.Fatalf("expected exactly one entity, got %v", result)
	}
	if math.Abs(result["EMAIL"]-0.85) > 1e-9 {
		t.Errorf("expected EMAIL confidence 0.85, got %v", result["EMAIL"])
	}
}

func TestFallbackDetector_MatchRatio(t *testing.T) {
	d := NewFallbackDetector()

	// 2 of 4 samples are emails: 0.5 x 0.85 = 0.425.
	result := d.DetectPII([]string{
		"alice@example.com",
		"bob@example.org",
		"not an email",
		"also not",
	})

	if math.Abs(result["EMAIL"]-0.425) > 1e-9 {
		t.Errorf("expected EMAIL confidence 0.425, got %v", result["EMAIL"])
	}
}

func TestFallbackDetector_FloorDiscardsWeakMatches(t *testing.T) {
	d := NewFallbackDetector()

	// 1 of 4 samples matches: 0.25 x 0.85 = 0.2125, below the floor.
	samples := []string{"carol@example.com", "x", "y", "z"}
	result := d.DetectPII(samples)

	if _, ok := result["EMAIL"]; ok {
		t.Errorf("expected sub-floor match to be discarded, got %v", result)
	}
}

func TestFallbackDetector_EmptyInput(t *testing.T) {
	d := NewFallbackDetector()

	if result := d.DetectPII(nil); len(result) != 0 {
		t.Errorf("expected empty map for empty input, got %v", result)
	}
}

func TestFallbackDetector_CreditCardLuhn(t *testing.T) {
	d := NewFallbackDetector()

	tests := []struct {
		name   string
		sample string
		want   bool
	}{
		{"valid visa", "4111111111111111", true},
		{"luhn failure", "4111111111111112", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := d.DetectPII([]string{tt.sample})
			_, ok := result["CREDIT_CARD"]
			if ok != tt.want {
				t.Errorf("DetectPII(%q) CREDIT_CARD presence = %v, want %v", tt.sample, ok, tt.want)
			}
		})
	}
}

func TestFallbackDetector_SSNValidation(t *testing.T) {
	d := NewFallbackDetector()

	tests := []struct {
		name   string
		sample string
		want   bool
	}{
		{"valid", "123-45-6789", true},
		{"area 000", "000-45-6789", false},
		{"area 666", "666-45-6789", false},
		{"area 9xx", "912-45-6789", false},
		{"zero serial", "123-45-0000", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := d.DetectPII([]string{tt.sample})
			_, ok := result["SSN"]
			if ok != tt.want {
				t.Errorf("DetectPII(%q) SSN presence = %v, want %v", tt.sample, ok, tt.want)
			}
		})
	}
}

func TestFallbackDetector_Phone(t *testing.T) {
	d := NewFallbackDetector()

	result := d.DetectPII([]string{"(555) 867-5309"})
	if _, ok := result["PHONE"]; !ok {
		t.Errorf("expected PHONE detection, got %v", result)
	}
}
