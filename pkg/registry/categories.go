package registry

import (
	"strings"

	"github.com/Ramsey-B/fern/pkg/models"
)

type categoryRisk struct {
	status models.Status
	score  int
	label  string
}

var categories = map[string]categoryRisk{
	"EX": {models.StatusCR, 100, "Extinct"},
	"EW": {models.StatusCR, 98, "Extinct in the Wild"},
	"CR": {models.StatusCR, 95, "Critically Endangered"},
	"EN": {models.StatusEN, 80, "Endangered"},
	"VU": {models.StatusVU, 65, "Vulnerable"},
	"NT": {models.StatusNT, 45, "Near Threatened"},
	"LC": {models.StatusLC, 20, "Least Concern"},
	"DD": {models.StatusLC, 25, "Data Deficient"},
	"NE": {models.StatusLC, 25, "Not Evaluated"},
}

const (
	unknownCategoryStatus = models.StatusLC
	unknownCategoryScore  = 25
)

// StatusForCategory maps a registry category code to its risk bucket and score.
// Unrecognized codes map to LC/25.
func StatusForCategory(code string) (models.Status, int) {
	risk, ok := categories[code]
	if !ok {
		return unknownCategoryStatus, unknownCategoryScore
	}
	return risk.status, risk.score
}

// CategoryLabel is the registry's display name for a category code, or "" if unknown.
func CategoryLabel(code string) string {
	return categories[code].label
}

// EndangermentLabel is the category label for endangered buckets and
// "Not endangered" for everything else.
func EndangermentLabel(status models.Status) string {
	if !status.IsEndangered() {
		return "Not endangered"
	}
	return CategoryLabel(string(status))
}

// NormalizeCategory reads a raw category value: trimmed, upper-cased and cut
// to two characters. Non-string or empty values become NE.
func NormalizeCategory(raw any) string {
	s, ok := raw.(string)
	if !ok || s == "" {
		return "NE"
	}
	s = strings.ToUpper(strings.TrimSpace(s))
	if len(s) > 2 {
		s = s[:2]
	}
	return s
}
