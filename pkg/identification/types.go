package identification

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/Ramsey-B/fern/pkg/models"
)

var (
	// ErrUnprocessableImage aborts the pipeline: no candidate could be produced from the image.
	ErrUnprocessableImage = errors.New("unprocessable image")
	// ErrPersistence is reported on an otherwise complete result when the sighting could not be saved.
	ErrPersistence = errors.New("sighting could not be saved")
)

// Classifier is the local image model.
type Classifier interface {
	Classify(ctx context.Context, image []byte) (label string, confidencePercent float64, err error)
}

// Detector is the optional external detection service. ok is false when it
// is not configured, fails, or finds nothing.
type Detector interface {
	Detect(ctx context.Context, image []byte, contentType string) (candidate models.Candidate, ok bool)
}

// Registry is the conservation status registry. Lookups never fail; absence is ok=false or an empty list.
type Registry interface {
	Lookup(ctx context.Context, scientificName string) (models.ConservationFacts, bool)
	Threats(ctx context.Context, scientificName string) []string
	Habitats(ctx context.Context, scientificName string) []string
}

// Narrator supplies advisory descriptive text.
type Narrator interface {
	Enrich(ctx context.Context, commonName, scientificName string) models.NarrativeFacts
}

// SightingStore persists sightings and counts earlier matches.
type SightingStore interface {
	Create(ctx context.Context, sighting *models.Sighting) error
	CountMatching(ctx context.Context, scientificName, commonName string) (int, error)
}

// EventPublisher announces saved sightings.
type EventPublisher interface {
	PublishSightingCreated(ctx context.Context, sighting models.Sighting) error
}

// Request is one image to identify.
type Request struct {
	Image       []byte
	ContentType string
	Lat         *float64
	Lng         *float64
	// UserID is uuid.Nil for anonymous scans, which are never saved.
	UserID uuid.UUID
}

// Result is the resolved identification returned to the caller.
type Result struct {
	Name                string        `json:"name"`
	Sci                 string        `json:"sci"`
	Status              models.Status `json:"status"`
	EndangermentLabel   string        `json:"endangermentLabel"`
	Confidence          float64       `json:"confidence"`
	Population          string        `json:"population"`
	Trend               models.Trend  `json:"trend"`
	ThreatScore         int           `json:"threatScore"`
	Habitat             string        `json:"habitat"`
	Threats             []string      `json:"threats"`
	NearbySightings     int           `json:"nearbySightings"`
	IsEndangered        bool          `json:"isEndangered"`
	Description         string        `json:"description"`
	SavedToMap          bool          `json:"savedToMap"`
	OpenAIQuotaExceeded bool          `json:"openaiQuotaExceeded"`
	Lat                 *float64      `json:"lat,omitempty"`
	Lng                 *float64      `json:"lng,omitempty"`
	SaveError           string        `json:"saveError,omitempty"`

	// SightingID is set when the sighting was saved.
	SightingID *uuid.UUID `json:"sightingId,omitempty"`
}
