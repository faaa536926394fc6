package identification

import (
	"context"
	"errors"
	"sync"

	"github.com/Ramsey-B/fern/pkg/classifier"
	"github.com/Ramsey-B/fern/pkg/models"
)

type fakeClassifier struct {
	label      string
	confidence float64
	err        error
	calls      int
}

func (f *fakeClassifier) Classify(_ context.Context, _ []byte) (string, float64, error) {
	f.calls++
	return f.label, f.confidence, f.err
}

type fakeDetector struct {
	candidate *models.Candidate
	calls     int
}

func (f *fakeDetector) Detect(_ context.Context, _ []byte, _ string) (models.Candidate, bool) {
	f.calls++
	if f.candidate == nil {
		return models.Candidate{}, false
	}
	return *f.candidate, true
}

type fakeRegistry struct {
	mu           sync.Mutex
	facts        *models.ConservationFacts
	threats      []string
	habitats     []string
	lookups      []string
	threatCalls  int
	habitatCalls int
}

func (f *fakeRegistry) Lookup(_ context.Context, sci string) (models.ConservationFacts, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups = append(f.lookups, sci)
	if f.facts == nil {
		return models.ConservationFacts{}, false
	}
	return *f.facts, true
}

func (f *fakeRegistry) Threats(_ context.Context, _ string) []string {
	f.threatCalls++
	if f.threats == nil {
		return []string{}
	}
	return f.threats
}

func (f *fakeRegistry) Habitats(_ context.Context, _ string) []string {
	f.habitatCalls++
	if f.habitats == nil {
		return []string{}
	}
	return f.habitats
}

type fakeNarrator struct {
	facts *models.NarrativeFacts
}

func (f *fakeNarrator) Enrich(_ context.Context, _, _ string) models.NarrativeFacts {
	if f.facts == nil {
		return models.EmptyNarrativeFacts()
	}
	return *f.facts
}

type fakeStore struct {
	sightings []models.Sighting
	count     int
	countErr  error
	createErr error
}

func (f *fakeStore) Create(_ context.Context, sighting *models.Sighting) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.sightings = append(f.sightings, *sighting)
	return nil
}

func (f *fakeStore) CountMatching(_ context.Context, _, _ string) (int, error) {
	return f.count, f.countErr
}

type fakePublisher struct {
	published []models.Sighting
	err       error
}

func (f *fakePublisher) PublishSightingCreated(_ context.Context, sighting models.Sighting) error {
	f.published = append(f.published, sighting)
	return f.err
}

var errDecode = &classifier.ClassificationError{Reason: "image could not be decoded", Err: errors.New("unknown format")}
