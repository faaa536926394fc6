package identification

import (
	"strings"

	"github.com/Gobusters/ectolinq"

	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/registry"
)

const (
	// MaxThreats caps the threats in a Result regardless of source.
	MaxThreats = 10
	// MaxHabitats is how many registry habitats are joined when narrative has none.
	MaxHabitats = 5
	// DefaultRiskScore applies when neither the registry nor the narrative can score a species.
	DefaultRiskScore = 20
)

// ResolveStatus derives the bucket and score. A registry category decides both;
// without one the bucket is LC and the score is the narrative fallback or 20.
func ResolveStatus(facts *models.ConservationFacts, narrative models.NarrativeFacts) (models.Status, int) {
	if facts != nil {
		return registry.StatusForCategory(facts.CategoryCode)
	}

	if score := narrative.FallbackRiskScore; score != nil && *score >= 0 && *score <= 100 {
		return models.StatusLC, *score
	}
	return models.StatusLC, DefaultRiskScore
}

// Descriptive is the text half of a Result.
type Descriptive struct {
	Population  string
	Habitat     string
	Trend       models.Trend
	Threats     []string
	Description string
}

// NeedsThreats reports whether a dedicated registry threats lookup is required.
func (d Descriptive) NeedsThreats() bool {
	return len(d.Threats) == 0
}

// NeedsHabitat reports whether a dedicated registry habitats lookup is required.
func (d Descriptive) NeedsHabitat() bool {
	return isUnknown(d.Habitat)
}

// MergeDescriptive starts from the narrative and fills only its Unknown or
// empty fields from the registry facts.
func MergeDescriptive(narrative models.NarrativeFacts, facts *models.ConservationFacts) Descriptive {
	d := Descriptive{
		Population:  orUnknown(narrative.PopulationText),
		Habitat:     orUnknown(narrative.HabitatText),
		Trend:       narrative.Trend,
		Threats:     nonBlank(narrative.ThreatTitles),
		Description: strings.TrimSpace(narrative.Description),
	}
	if d.Trend == "" {
		d.Trend = models.TrendUnknown
	}

	if facts == nil {
		return d
	}

	if d.Trend == models.TrendUnknown {
		d.Trend = facts.Trend
		if d.Trend == "" {
			d.Trend = models.TrendUnknown
		}
	}
	if isUnknown(d.Population) {
		d.Population = orUnknown(facts.PopulationText)
	}
	if isUnknown(d.Habitat) && strings.TrimSpace(facts.HabitatText) != "" {
		d.Habitat = strings.TrimSpace(facts.HabitatText)
	}
	if len(d.Threats) == 0 {
		d.Threats = nonBlank(facts.ThreatTitles)
	}
	return d
}

// BackfillThreats applies the result of a dedicated threats lookup.
func (d Descriptive) BackfillThreats(threats []string) Descriptive {
	if len(d.Threats) == 0 {
		d.Threats = nonBlank(threats)
	}
	return d
}

// BackfillHabitat applies the result of a dedicated habitats lookup.
func (d Descriptive) BackfillHabitat(habitats []string) Descriptive {
	if !isUnknown(d.Habitat) || len(habitats) == 0 {
		return d
	}
	if len(habitats) > MaxHabitats {
		habitats = habitats[:MaxHabitats]
	}
	d.Habitat = strings.Join(habitats, ", ")
	return d
}

// CapThreats returns at most MaxThreats threats, never nil.
func CapThreats(threats []string) []string {
	if len(threats) > MaxThreats {
		threats = threats[:MaxThreats]
	}
	if threats == nil {
		return []string{}
	}
	return threats
}

func nonBlank(values []string) []string {
	return ectolinq.Filter(values, func(v string) bool {
		return strings.TrimSpace(v) != ""
	})
}

func isUnknown(s string) bool {
	s = strings.TrimSpace(s)
	return s == "" || s == models.Unknown
}

func orUnknown(s string) string {
	if isUnknown(s) {
		return models.Unknown
	}
	return strings.TrimSpace(s)
}
