package identification

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/Ramsey-B/fern/pkg/classifier"
	"github.com/Ramsey-B/fern/pkg/metrics"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/registry"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// Pipeline turns image bytes into a single resolved identification.
type Pipeline struct {
	classifier Classifier
	detector   Detector
	registry   Registry
	narrator   Narrator
	store      SightingStore
	publisher  EventPublisher
	logger     ectologger.Logger
}

// Dependencies wires a Pipeline. Detector and Publisher may be nil.
type Dependencies struct {
	Classifier Classifier
	Detector   Detector
	Registry   Registry
	Narrator   Narrator
	Store      SightingStore
	Publisher  EventPublisher
}

func NewPipeline(deps Dependencies, logger ectologger.Logger) *Pipeline {
	return &Pipeline{
		classifier: deps.Classifier,
		detector:   deps.Detector,
		registry:   deps.Registry,
		narrator:   deps.Narrator,
		store:      deps.Store,
		publisher:  deps.Publisher,
		logger:     logger,
	}
}

// Identify produces the candidate for an image: the detection service when it
// answers, otherwise the local classifier.
func (p *Pipeline) Identify(ctx context.Context, image []byte, contentType string) (models.Candidate, error) {
	ctx, span := tracing.StartSpan(ctx, "Pipeline.Identify")
	defer span.End()

	if p.detector != nil {
		if candidate, ok := p.detector.Detect(ctx, image, contentType); ok {
			return candidate, nil
		}
	}

	label, confidence, err := p.classifier.Classify(ctx, image)
	if err != nil {
		tracing.RecordError(span, err)
		p.logger.WithContext(ctx).WithError(err).Warn("image could not be classified")
		return models.Candidate{}, fmt.Errorf("%w: %w", ErrUnprocessableImage, err)
	}

	commonName, scientificName := classifier.SpeciesFromLabel(label)
	return models.Candidate{
		CommonName:        commonName,
		ScientificName:    scientificName,
		ConfidencePercent: confidence,
	}, nil
}

// Scan runs the full pipeline. Only ErrUnprocessableImage aborts it; every
// other upstream failure degrades to a default value.
func (p *Pipeline) Scan(ctx context.Context, req Request) (*Result, error) {
	ctx, span := tracing.StartSpan(ctx, "Pipeline.Scan")
	defer span.End()

	start := time.Now()
	defer func() {
		metrics.ScanDuration.Observe(time.Since(start).Seconds())
	}()

	logger := p.logger.WithContext(ctx)

	candidate, err := p.Identify(ctx, req.Image, req.ContentType)
	if err != nil {
		metrics.ScanRequestsTotal.WithLabelValues(metrics.OutcomeRejected).Inc()
		return nil, err
	}

	facts, narrative := p.lookup(ctx, candidate)

	status, score := ResolveStatus(facts, narrative)

	descriptive := MergeDescriptive(narrative, facts)
	if descriptive.NeedsThreats() {
		descriptive = descriptive.BackfillThreats(p.registry.Threats(ctx, candidate.ScientificName))
	}
	if descriptive.NeedsHabitat() {
		descriptive = descriptive.BackfillHabitat(p.registry.Habitats(ctx, candidate.ScientificName))
	}

	result := &Result{
		Name:                candidate.CommonName,
		Sci:                 candidate.ScientificName,
		Status:              status,
		EndangermentLabel:   registry.EndangermentLabel(status),
		Confidence:          math.Round(candidate.ConfidencePercent*10) / 10,
		Population:          descriptive.Population,
		Trend:               descriptive.Trend,
		ThreatScore:         score,
		Habitat:             descriptive.Habitat,
		Threats:             CapThreats(descriptive.Threats),
		IsEndangered:        status.IsEndangered(),
		Description:         descriptive.Description,
		OpenAIQuotaExceeded: narrative.QuotaExceeded,
		Lat:                 req.Lat,
		Lng:                 req.Lng,
	}

	result.NearbySightings = p.countNearby(ctx, candidate)

	if req.UserID != uuid.Nil {
		p.save(ctx, req, result)
	}

	logger.WithFields(map[string]any{
		"name":         result.Name,
		"sci":          result.Sci,
		"status":       result.Status,
		"threat_score": result.ThreatScore,
		"saved":        result.SavedToMap,
	}).Info("scan resolved")
	metrics.ScanRequestsTotal.WithLabelValues(metrics.OutcomeSuccess).Inc()

	return result, nil
}

// lookup queries the registry and the narrative source concurrently. The
// narrative result is merged afterwards, so neither call waits on the other.
func (p *Pipeline) lookup(ctx context.Context, candidate models.Candidate) (*models.ConservationFacts, models.NarrativeFacts) {
	var (
		wg        sync.WaitGroup
		narrative models.NarrativeFacts
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		narrative = p.narrator.Enrich(ctx, candidate.CommonName, candidate.ScientificName)
	}()

	facts, found := p.registry.Lookup(ctx, candidate.ScientificName)
	wg.Wait()

	if !found {
		return nil, narrative
	}
	return &facts, narrative
}

func (p *Pipeline) countNearby(ctx context.Context, candidate models.Candidate) int {
	if p.store == nil {
		return 0
	}

	count, err := p.store.CountMatching(ctx, candidate.ScientificName, candidate.CommonName)
	if err != nil {
		p.logger.WithContext(ctx).WithError(err).Warn("failed to count matching sightings")
		return 0
	}
	return count
}

func (p *Pipeline) save(ctx context.Context, req Request, result *Result) {
	logger := p.logger.WithContext(ctx).WithField("user_id", req.UserID)

	// a disconnected caller must not leave a half-enriched sighting behind
	if err := ctx.Err(); err != nil {
		logger.WithError(err).Warn("scan cancelled before the sighting was saved")
		result.SaveError = fmt.Errorf("%w: %w", ErrPersistence, err).Error()
		metrics.SightingsSavedTotal.WithLabelValues(metrics.OutcomeSkipped).Inc()
		return
	}
	if p.store == nil {
		return
	}

	sighting := &models.Sighting{
		ID:          uuid.New(),
		UserID:      req.UserID,
		Name:        result.Name,
		Sci:         result.Sci,
		Status:      result.Status,
		Lat:         valueOrZero(req.Lat),
		Lng:         valueOrZero(req.Lng),
		ThreatScore: result.ThreatScore,
	}

	if err := p.store.Create(ctx, sighting); err != nil {
		logger.WithError(err).Error("failed to save sighting")
		result.SaveError = fmt.Errorf("%w: %w", ErrPersistence, err).Error()
		metrics.SightingsSavedTotal.WithLabelValues(metrics.OutcomeError).Inc()
		return
	}

	result.SavedToMap = true
	result.SightingID = &sighting.ID
	metrics.SightingsSavedTotal.WithLabelValues(metrics.OutcomeSuccess).Inc()

	if p.publisher != nil {
		if err := p.publisher.PublishSightingCreated(ctx, *sighting); err != nil {
			logger.WithError(err).Warn("failed to publish sighting event")
		}
	}
}

func valueOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
