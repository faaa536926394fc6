package handlers

import (
	"context"

	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/fern/pkg/identification"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/repositories"
	"github.com/Ramsey-B/fern/pkg/utils"
)

const (
	defaultSightingsLimit = 500
	maxSightingsLimit     = 1000
)

// SightingResponse is a sighting as shown on the map
type SightingResponse struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Sci         string        `json:"sci"`
	Status      models.Status `json:"status"`
	Lat         float64       `json:"lat"`
	Lng         float64       `json:"lng"`
	Timestamp   int64         `json:"timestamp"`
	ThreatScore int           `json:"threat_score"`
	Reporter    string        `json:"reporter"`
}

// NewSightingResponse builds the map view of a sighting
func NewSightingResponse(sighting models.Sighting, reporter string) SightingResponse {
	if reporter == "" {
		reporter = models.Unknown
	}
	return SightingResponse{
		ID:          sighting.ID.String(),
		Name:        sighting.Name,
		Sci:         sighting.Sci,
		Status:      models.ParseStatus(string(sighting.Status)),
		Lat:         sighting.Lat,
		Lng:         sighting.Lng,
		Timestamp:   sighting.CreatedAt.Unix(),
		ThreatScore: sighting.ThreatScore,
		Reporter:    reporter,
	}
}

// SightingHandler handles sighting listing and manual reports
type SightingHandler struct {
	repo      repositories.SightingRepo
	users     repositories.UserRepo
	publisher identification.EventPublisher
	logger    ectologger.Logger
}

// NewSightingHandler creates a new sighting handler. publisher may be nil.
func NewSightingHandler(repo repositories.SightingRepo, users repositories.UserRepo, publisher identification.EventPublisher, logger ectologger.Logger) *SightingHandler {
	return &SightingHandler{
		repo:      repo,
		users:     users,
		publisher: publisher,
		logger:    logger,
	}
}

// CreateSightingRequest is the request body for a manual sighting
type CreateSightingRequest struct {
	Name        string  `json:"name" validate:"required"`
	Sci         string  `json:"sci"`
	Status      string  `json:"status"`
	Lat         float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lng         float64 `json:"lng" validate:"gte=-180,lte=180"`
	ThreatScore int     `json:"threat_score"`
}

// RegisterRoutes registers the sighting routes. requireAuth guards creation.
func (h *SightingHandler) RegisterRoutes(g *echo.Group, requireAuth echo.MiddlewareFunc) {
	g.GET("/sightings", h.List)
	g.POST("/sightings", h.Create, requireAuth)
}

// List handles GET /api/sightings
func (h *SightingHandler) List(c echo.Context) error {
	ctx := c.Request().Context()
	limit := utils.ClampedIntQuery(c, "limit", defaultSightingsLimit, 1, maxSightingsLimit)

	sightings, err := h.repo.ListRecent(ctx, limit)
	if err != nil {
		return err
	}

	resp := make([]SightingResponse, 0, len(sightings))
	for _, s := range sightings {
		reporter := ""
		if s.Reporter != nil {
			reporter = *s.Reporter
		}
		resp = append(resp, NewSightingResponse(s.Sighting, reporter))
	}
	return SuccessResponse(c, resp)
}

// Create handles POST /api/sightings
func (h *SightingHandler) Create(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := GetUserID(c)
	if err != nil {
		return err
	}

	req, err := utils.BindRequest[CreateSightingRequest](c)
	if err != nil {
		return err
	}

	sci := req.Sci
	if sci == "" {
		sci = req.Name
	}

	sighting := &models.Sighting{
		UserID:      userID,
		Name:        req.Name,
		Sci:         sci,
		Status:      models.ParseStatus(req.Status),
		Lat:         req.Lat,
		Lng:         req.Lng,
		ThreatScore: min(max(req.ThreatScore, 0), 100),
	}
	if err := h.repo.Create(ctx, sighting); err != nil {
		return err
	}
	h.publish(ctx, *sighting)

	reporter := ""
	if user, err := h.users.GetByID(ctx, userID); err == nil {
		reporter = user.Name
	}
	return CreatedResponse(c, NewSightingResponse(*sighting, reporter))
}

func (h *SightingHandler) publish(ctx context.Context, sighting models.Sighting) {
	if h.publisher == nil {
		return
	}
	if err := h.publisher.PublishSightingCreated(ctx, sighting); err != nil {
		h.logger.WithContext(ctx).WithError(err).Warn("failed to publish sighting event")
	}
}
