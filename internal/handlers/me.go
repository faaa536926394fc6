package handlers

import (
	"math"

	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/fern/pkg/repositories"
)

const maxOwnSightings = 200

// MeHandler serves the authenticated user's profile and history
type MeHandler struct {
	users     repositories.UserRepo
	sightings repositories.SightingRepo
}

// NewMeHandler creates a new profile handler
func NewMeHandler(users repositories.UserRepo, sightings repositories.SightingRepo) *MeHandler {
	return &MeHandler{
		users:     users,
		sightings: sightings,
	}
}

// ProfileResponse is the public view of the caller's account
type ProfileResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// StatsResponse summarizes the caller's sightings
type StatsResponse struct {
	EndangeredSpecies int     `json:"endangered_species"`
	TotalSightings    int     `json:"total_sightings"`
	AvgThreatScore    float64 `json:"avg_threat_score"`
}

// RegisterRoutes registers the profile routes. Every route requires a user.
func (h *MeHandler) RegisterRoutes(g *echo.Group, requireAuth echo.MiddlewareFunc) {
	me := g.Group("/me", requireAuth)
	me.GET("", h.Profile)
	me.GET("/sightings", h.Sightings)
	me.GET("/stats", h.Stats)
}

// Profile handles GET /api/me
func (h *MeHandler) Profile(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := GetUserID(c)
	if err != nil {
		return err
	}

	user, err := h.users.GetByID(ctx, userID)
	if err != nil {
		return Unauthorized("User not found")
	}

	return SuccessResponse(c, ProfileResponse{
		ID:    user.ID.String(),
		Name:  user.Name,
		Email: user.Email,
	})
}

// Sightings handles GET /api/me/sightings
func (h *MeHandler) Sightings(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := GetUserID(c)
	if err != nil {
		return err
	}

	sightings, err := h.sightings.ListByUser(ctx, userID, maxOwnSightings)
	if err != nil {
		return err
	}

	reporter := ""
	if user, err := h.users.GetByID(ctx, userID); err == nil {
		reporter = user.Name
	}

	resp := make([]SightingResponse, 0, len(sightings))
	for _, s := range sightings {
		resp = append(resp, NewSightingResponse(s, reporter))
	}
	return SuccessResponse(c, resp)
}

// Stats handles GET /api/me/stats
func (h *MeHandler) Stats(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := GetUserID(c)
	if err != nil {
		return err
	}

	stats, err := h.sightings.StatsForUser(ctx, userID)
	if err != nil {
		return err
	}

	return SuccessResponse(c, StatsResponse{
		EndangeredSpecies: stats.EndangeredSpecies,
		TotalSightings:    stats.TotalSightings,
		AvgThreatScore:    math.Round(stats.AvgThreatScore*10) / 10,
	})
}
