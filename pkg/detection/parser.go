package detection

import (
	"math"
	"strings"

	"github.com/Ramsey-B/fern/pkg/classifier"
	"github.com/Ramsey-B/fern/pkg/expressions"
	"github.com/Ramsey-B/fern/pkg/models"
)

// Candidate key paths, in order of preference, for the shapes the detection
// service has been seen to return.
var (
	detectionPaths      = []string{"detections[0]", "results[0]", "predictions[0]", "detection", "top_prediction"}
	commonNamePaths     = []string{"common_name", "name", "label", "species"}
	nestedCommonPaths   = []string{"common", "scientific"}
	scientificNamePaths = []string{"scientific_name", "sci", "species", "taxon"}
	nestedSciPaths      = []string{"scientific", "common"}
	confidencePaths     = []string{"confidence", "score"}
)

// Parser turns a decoded detection response into a Candidate.
type Parser struct {
	evaluator *expressions.Evaluator
}

func NewParser(evaluator *expressions.Evaluator) *Parser {
	return &Parser{evaluator: evaluator}
}

// Parse returns false when the body holds no detection.
func (p *Parser) Parse(body any) (models.Candidate, bool) {
	detection, ok := p.evaluator.FirstObject(body, detectionPaths...)
	if !ok {
		return models.Candidate{}, false
	}

	commonName := p.name(detection, commonNamePaths, nestedCommonPaths)
	commonName = classifier.TitleCase(commonName)
	if commonName == "" {
		commonName = models.Unknown
	}

	scientificName := p.name(detection, scientificNamePaths, nestedSciPaths)
	if len(strings.Fields(scientificName)) < 2 {
		scientificName = commonName
	}

	confidence, _ := p.evaluator.FirstNumber(detection, confidencePaths...)
	if confidence <= 1 {
		confidence *= 100
	}
	confidence = math.Max(0, math.Min(100, confidence))

	return models.Candidate{
		CommonName:        commonName,
		ScientificName:    scientificName,
		ConfidencePercent: math.Round(confidence*10) / 10,
	}, true
}

// name reads the first present field; an object value is resolved through nested.
func (p *Parser) name(detection map[string]any, paths, nested []string) string {
	value := p.evaluator.FirstOf(detection, paths...)
	if obj, ok := value.(map[string]any); ok {
		s, _ := p.evaluator.FirstString(obj, nested...)
		return s
	}
	s, _ := expressions.AsString(value)
	return s
}
