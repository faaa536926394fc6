package repositories

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

const sightingsTable = "sightings"

var sightingStruct = database.NewStruct(new(models.Sighting))

// SightingRepository handles database operations for sightings
type SightingRepository struct {
	*Repository
}

// NewSightingRepository creates a new sighting repository
func NewSightingRepository(db database.DB, logger ectologger.Logger) *SightingRepository {
	return &SightingRepository{
		Repository: NewRepository(db, logger),
	}
}

// Create inserts a sighting and fills in its id and created_at
func (r *SightingRepository) Create(ctx context.Context, sighting *models.Sighting) error {
	ctx, span := tracing.StartSpan(ctx, "SightingRepository.Create")
	defer span.End()

	if sighting.ID == uuid.Nil {
		sighting.ID = uuid.New()
	}

	ib := database.NewInsertBuilder()
	ib.InsertInto(sightingsTable).
		Cols("id", "user_id", "name", "sci", "status", "lat", "lng", "threat_score", "created_at").
		Values(sighting.ID, sighting.UserID, sighting.Name, sighting.Sci, sighting.Status,
			sighting.Lat, sighting.Lng, sighting.ThreatScore, sqlbuilder.Raw("NOW()")).
		Returning("created_at")

	query, args := ib.Build()
	err := r.DB().QueryRowContext(ctx, query, args...).Scan(&sighting.CreatedAt)
	if err != nil {
		return r.internal(ctx, err, "create sighting", map[string]any{
			"sighting_id": sighting.ID,
			"user_id":     sighting.UserID,
		})
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"sighting_id": sighting.ID,
	}).Debugf("Created %s", sightingsTable)
	return nil
}

// CountMatching counts earlier sightings whose scientific or common name
// matches case-insensitively.
func (r *SightingRepository) CountMatching(ctx context.Context, scientificName, commonName string) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "SightingRepository.CountMatching")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select("COUNT(*)").From(sightingsTable)
	sb.Where(sb.Or(
		"LOWER(sci) = LOWER("+sb.Var(scientificName)+")",
		"LOWER(name) = LOWER("+sb.Var(commonName)+")",
	))

	query, args := sb.Build()
	var count int
	if err := r.DB().GetContext(ctx, &count, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to count matching sightings")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to count sightings")
	}
	return count, nil
}

// ListRecent returns the newest sightings with the reporting user's name.
func (r *SightingRepository) ListRecent(ctx context.Context, limit int) ([]models.SightingWithReporter, error) {
	ctx, span := tracing.StartSpan(ctx, "SightingRepository.ListRecent")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select(
		"s.id", "s.user_id", "s.name", "s.sci", "s.status", "s.lat", "s.lng", "s.threat_score", "s.created_at",
		"u.name AS reporter",
	).
		From(sb.As(sightingsTable, "s")).
		JoinWithOption(sqlbuilder.LeftJoin, sb.As(usersTable, "u"), "u.id = s.user_id").
		OrderBy("s.created_at").Desc().
		Limit(limit)

	query, args := sb.Build()
	sightings := []models.SightingWithReporter{}
	if err := r.DB().SelectContext(ctx, &sightings, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to list sightings")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list sightings")
	}

	r.logger.WithContext(ctx).Debugf("Listed %d %s", len(sightings), sightingsTable)
	return sightings, nil
}

// ListByUser returns a user's newest sightings.
func (r *SightingRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.Sighting, error) {
	ctx, span := tracing.StartSpan(ctx, "SightingRepository.ListByUser")
	defer span.End()

	sb := sightingStruct.SelectFrom(sightingsTable)
	sb.Where(sb.Equal("user_id", userID)).
		OrderBy("created_at").Desc().
		Limit(limit)

	query, args := sb.Build()
	sightings := []models.Sighting{}
	if err := r.DB().SelectContext(ctx, &sightings, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"user_id": userID,
		}).Error("failed to list sightings for user")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list sightings")
	}
	return sightings, nil
}

// StatsForUser aggregates a user's sightings. Endangered species are counted
// once per distinct lower(trim(sci)).
func (r *SightingRepository) StatsForUser(ctx context.Context, userID uuid.UUID) (*models.UserStats, error) {
	ctx, span := tracing.StartSpan(ctx, "SightingRepository.StatsForUser")
	defer span.End()

	query := `
		SELECT
			COUNT(*) AS total_sightings,
			COUNT(DISTINCT CASE WHEN status IN ('CR', 'EN', 'VU') THEN LOWER(TRIM(sci)) END) AS endangered_species,
			COALESCE(AVG(threat_score), 0)::float8 AS avg_threat_score
		FROM sightings
		WHERE user_id = $1`

	var stats models.UserStats
	if err := r.DB().GetContext(ctx, &stats, query, userID); err != nil {
		return nil, r.internal(ctx, err, "get user stats", map[string]any{"user_id": userID})
	}
	return &stats, nil
}

// Leaderboard ranks every user by distinct endangered species then average
// threat score. Users without sightings are included with zero counts.
func (r *SightingRepository) Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	ctx, span := tracing.StartSpan(ctx, "SightingRepository.Leaderboard")
	defer span.End()

	query := `
		SELECT
			u.id AS user_id,
			u.name,
			u.created_at AS joined_at,
			COUNT(DISTINCT LOWER(TRIM(s.sci))) AS species_count,
			COUNT(DISTINCT CASE WHEN s.status IN ('CR', 'EN', 'VU') THEN LOWER(TRIM(s.sci)) END) AS endangered_species,
			COALESCE(AVG(s.threat_score), 0)::float8 AS avg_threat_score
		FROM users u
		LEFT JOIN sightings s ON s.user_id = u.id
		GROUP BY u.id, u.name, u.created_at
		ORDER BY endangered_species DESC, avg_threat_score DESC
		LIMIT $1`

	entries := []models.LeaderboardEntry{}
	if err := r.DB().SelectContext(ctx, &entries, query, limit); err != nil {
		return nil, r.internal(ctx, err, "build leaderboard", nil)
	}
	return entries, nil
}
