package handlers

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/repositories"
)

type memoryUsers struct {
	mu    sync.Mutex
	users map[uuid.UUID]*models.User
}

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{users: map[uuid.UUID]*models.User{}}
}

func (m *memoryUsers) Create(_ context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, user.Email) {
			return repositories.BadRequest("An account with this email already exists.")
		}
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	user.CreatedAt = time.Now()
	stored := *user
	m.users[user.ID] = &stored
	return nil
}

func (m *memoryUsers) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, repositories.NotFound("user %s does not exist", id)
}

func (m *memoryUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, strings.TrimSpace(email)) {
			return u, nil
		}
	}
	return nil, repositories.NotFound("user with email %s does not exist", email)
}

type memorySightings struct {
	mu          sync.Mutex
	sightings   []models.Sighting
	stats       models.UserStats
	leaderboard []models.LeaderboardEntry
	lastLimit   int
}

func (m *memorySightings) Create(_ context.Context, sighting *models.Sighting) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sighting.ID == uuid.Nil {
		sighting.ID = uuid.New()
	}
	sighting.CreatedAt = time.Now()
	m.sightings = append(m.sightings, *sighting)
	return nil
}

func (m *memorySightings) CountMatching(_ context.Context, scientificName, commonName string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, s := range m.sightings {
		if strings.EqualFold(s.Sci, scientificName) || strings.EqualFold(s.Name, commonName) {
			count++
		}
	}
	return count, nil
}

func (m *memorySightings) ListRecent(_ context.Context, limit int) ([]models.SightingWithReporter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastLimit = limit
	out := []models.SightingWithReporter{}
	for i := len(m.sightings) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, models.SightingWithReporter{Sighting: m.sightings[i]})
	}
	return out, nil
}

func (m *memorySightings) ListByUser(_ context.Context, userID uuid.UUID, limit int) ([]models.Sighting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastLimit = limit
	out := []models.Sighting{}
	for i := len(m.sightings) - 1; i >= 0 && len(out) < limit; i-- {
		if m.sightings[i].UserID == userID {
			out = append(out, m.sightings[i])
		}
	}
	return out, nil
}

func (m *memorySightings) StatsForUser(_ context.Context, _ uuid.UUID) (*models.UserStats, error) {
	stats := m.stats
	return &stats, nil
}

func (m *memorySightings) Leaderboard(_ context.Context, limit int) ([]models.LeaderboardEntry, error) {
	m.lastLimit = limit
	return m.leaderboard, nil
}
