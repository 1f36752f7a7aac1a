package user

import (
	"context"
	"sync"

	"medgate/internal/auth/models"
	"medgate/pkg/domain"
	"medgate/pkg/platform/sentinel"
)

// InMemoryUserStore indexes users by id and by username.
type InMemoryUserStore struct {
	mu         sync.RWMutex
	byID       map[domain.UserID]*models.User
	byUsername map[string]domain.UserID
	lastID     domain.UserID
}

func New() *InMemoryUserStore {
	return &InMemoryUserStore{
		byID:       make(map[domain.UserID]*models.User),
		byUsername: make(map[string]domain.UserID),
	}
}

// Create assigns an id. A taken username is sentinel.ErrConflict.
func (s *InMemoryUserStore) Create(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.byUsername[user.Username]; taken {
		return sentinel.ErrConflict
	}
	s.lastID++
	user.ID = s.lastID
	stored := *user
	s.byID[user.ID] = &stored
	s.byUsername[user.Username] = user.ID
	return nil
}

func (s *InMemoryUserStore) FindByID(_ context.Context, id domain.UserID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.byID[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := *u
	return &out, nil
}

// FindByUsername matches exactly; usernames are case-sensitive.
func (s *InMemoryUserStore) FindByUsername(_ context.Context, username string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byUsername[username]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := *s.byID[id]
	return &out, nil
}
