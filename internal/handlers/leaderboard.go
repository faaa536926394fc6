package handlers

import (
	"math"

	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/fern/pkg/repositories"
	"github.com/Ramsey-B/fern/pkg/utils"
)

const (
	defaultLeaderboardLimit = 100
	maxLeaderboardLimit     = 500
)

// LeaderboardHandler ranks users by the endangered species they reported
type LeaderboardHandler struct {
	sightings repositories.SightingRepo
}

// NewLeaderboardHandler creates a new leaderboard handler
func NewLeaderboardHandler(sightings repositories.SightingRepo) *LeaderboardHandler {
	return &LeaderboardHandler{sightings: sightings}
}

// LeaderboardEntryResponse is one ranked user
type LeaderboardEntryResponse struct {
	Rank              int     `json:"rank"`
	Name              string  `json:"name"`
	Score             int     `json:"score"`
	Species           int     `json:"species"`
	EndangeredSpecies int     `json:"endangered_species"`
	AvgThreatScore    float64 `json:"avg_threat_score"`
	Joined            string  `json:"joined"`
}

// RegisterRoutes registers the leaderboard route
func (h *LeaderboardHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/leaderboard", h.List)
}

// List handles GET /api/leaderboard
func (h *LeaderboardHandler) List(c echo.Context) error {
	ctx := c.Request().Context()
	limit := utils.ClampedIntQuery(c, "limit", defaultLeaderboardLimit, 1, maxLeaderboardLimit)

	entries, err := h.sightings.Leaderboard(ctx, limit)
	if err != nil {
		return err
	}

	resp := make([]LeaderboardEntryResponse, 0, len(entries))
	for i, entry := range entries {
		name := entry.Name
		if name == "" {
			name = "Anonymous"
		}

		resp = append(resp, LeaderboardEntryResponse{
			Rank:              i + 1,
			Name:              name,
			Score:             entry.EndangeredSpecies*100 + int(math.Round(entry.AvgThreatScore)),
			Species:           entry.SpeciesCount,
			EndangeredSpecies: entry.EndangeredSpecies,
			AvgThreatScore:    math.Round(entry.AvgThreatScore*10) / 10,
			Joined:            entry.JoinedAt.Format("Jan 2006"),
		})
	}
	return SuccessResponse(c, resp)
}
