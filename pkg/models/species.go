package models

import "strings"

// Status is the collapsed five level risk bucket.
type Status string

const (
	StatusCR Status = "CR"
	StatusEN Status = "EN"
	StatusVU Status = "VU"
	StatusNT Status = "NT"
	StatusLC Status = "LC"
)

// ParseStatus returns the bucket named by s, or LC for anything else.
func ParseStatus(s string) Status {
	switch st := Status(s); st {
	case StatusCR, StatusEN, StatusVU, StatusNT, StatusLC:
		return st
	default:
		return StatusLC
	}
}

// IsEndangered reports whether the bucket is CR, EN or VU.
func (s Status) IsEndangered() bool {
	return s == StatusCR || s == StatusEN || s == StatusVU
}

// Trend is a population trend as reported by the registry or the narrative source.
type Trend string

const (
	TrendIncreasing Trend = "Increasing"
	TrendStable     Trend = "Stable"
	TrendDecreasing Trend = "Decreasing"
	TrendUnknown    Trend = "Unknown"
)

// ParseTrend normalizes free text to a known trend, case-insensitively.
func ParseTrend(s string) Trend {
	s = strings.TrimSpace(s)
	switch {
	case strings.EqualFold(s, string(TrendIncreasing)):
		return TrendIncreasing
	case strings.EqualFold(s, string(TrendStable)):
		return TrendStable
	case strings.EqualFold(s, string(TrendDecreasing)):
		return TrendDecreasing
	default:
		return TrendUnknown
	}
}

// Unknown is the placeholder for descriptive text no source could supply.
const Unknown = "Unknown"

// Candidate is the pre-enrichment identification of an image.
type Candidate struct {
	CommonName        string
	ScientificName    string
	ConfidencePercent float64
}

// ConservationFacts is what the registry knows about a species.
type ConservationFacts struct {
	CategoryCode   string
	Status         Status
	RiskScore      int
	PopulationText string
	HabitatText    string
	ThreatTitles   []string
	Trend          Trend
}

// NarrativeFacts is advisory text from the generative source. Unknown fields
// hold Unknown or are empty.
type NarrativeFacts struct {
	PopulationText    string
	HabitatText       string
	Trend             Trend
	ThreatTitles      []string
	Description       string
	FallbackRiskScore *int
	QuotaExceeded     bool
}

// EmptyNarrativeFacts is the degraded value returned when no narrative is available.
func EmptyNarrativeFacts() NarrativeFacts {
	return NarrativeFacts{
		PopulationText: Unknown,
		HabitatText:    Unknown,
		Trend:          TrendUnknown,
		ThreatTitles:   []string{},
	}
}
