package repositories

import (
	"context"

	"github.com/google/uuid"

	"github.com/Ramsey-B/fern/pkg/models"
)

// UserRepo defines the interface for user repository operations
type UserRepo interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

// SightingRepo defines the interface for sighting repository operations
type SightingRepo interface {
	Create(ctx context.Context, sighting *models.Sighting) error
	CountMatching(ctx context.Context, scientificName, commonName string) (int, error)
	ListRecent(ctx context.Context, limit int) ([]models.SightingWithReporter, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.Sighting, error)
	StatsForUser(ctx context.Context, userID uuid.UUID) (*models.UserStats, error)
	Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error)
}

var (
	_ UserRepo     = (*UserRepository)(nil)
	_ SightingRepo = (*SightingRepository)(nil)
)
