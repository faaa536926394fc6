package models

import (
	"time"

	"github.com/google/uuid"
)

// User is an account that can save sightings.
type User struct {
	ID           uuid.UUID `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	Name         string    `db:"name" json:"name"`
	PasswordHash string    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// TableName returns the database table name
func (User) TableName() string {
	return "users"
}

// UserStats summarizes a user's sightings.
type UserStats struct {
	TotalSightings    int     `db:"total_sightings" json:"total_sightings"`
	EndangeredSpecies int     `db:"endangered_species" json:"endangered_species"`
	AvgThreatScore    float64 `db:"avg_threat_score" json:"avg_threat_score"`
}

// LeaderboardEntry is one user's aggregate row on the leaderboard.
type LeaderboardEntry struct {
	UserID            uuid.UUID `db:"user_id" json:"-"`
	Name              string    `db:"name" json:"name"`
	JoinedAt          time.Time `db:"joined_at" json:"-"`
	SpeciesCount      int       `db:"species_count" json:"species_count"`
	EndangeredSpecies int       `db:"endangered_species" json:"endangered_species"`
	AvgThreatScore    float64   `db:"avg_threat_score" json:"avg_threat_score"`
}
