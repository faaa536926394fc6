package models

import (
	"time"

	"github.com/google/uuid"
)

// Sighting is a resolved identification saved to the map by a user.
type Sighting struct {
	ID          uuid.UUID `db:"id" json:"id"`
	UserID      uuid.UUID `db:"user_id" json:"user_id"`
	Name        string    `db:"name" json:"name"`
	Sci         string    `db:"sci" json:"sci"`
	Status      Status    `db:"status" json:"status"`
	Lat         float64   `db:"lat" json:"lat"`
	Lng         float64   `db:"lng" json:"lng"`
	ThreatScore int       `db:"threat_score" json:"threat_score"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// TableName returns the database table name
func (Sighting) TableName() string {
	return "sightings"
}

// SightingWithReporter is a sighting joined with the reporting user's name.
type SightingWithReporter struct {
	Sighting
	Reporter *string `db:"reporter" json:"reporter"`
}
