package user

import (
	"context"
	"fmt"
	"sync"

	"trustcore/internal/identity/models"
	id "trustcore/pkg/domain"
	"trustcore/pkg/platform/sentinel"
)

// InMemory is a mutex-guarded user store used in tests and single-process
// deployments. Stored users are cloned on the way in and out.
type InMemory struct {
	mu      sync.RWMutex
	users   map[id.UserID]*models.User
	byEmail map[string]id.UserID
}

func NewInMemory() *InMemory {
	return &InMemory{
		users:   make(map[id.UserID]*models.User),
		byEmail: make(map[string]id.UserID),
	}
}

// Create inserts a new user. Email uniqueness is case-insensitive.
func (s *InMemory) Create(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := models.NormalizeEmail(u.Email)
	if _, taken := s.byEmail[key]; taken {
		return fmt.Errorf("email %s: %w", key, sentinel.ErrAlreadyUsed)
	}
	if _, exists := s.users[u.ID]; exists {
		return fmt.Errorf("user %s: %w", u.ID, sentinel.ErrAlreadyUsed)
	}
	s.users[u.ID] = u.Clone()
	s.byEmail[key] = u.ID
	return nil
}

func (s *InMemory) FindByID(_ context.Context, userID id.UserID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[userID]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", userID, sentinel.ErrNotFound)
	}
	return u.Clone(), nil
}

func (s *InMemory) FindByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	userID, ok := s.byEmail[models.NormalizeEmail(email)]
	if !ok {
		return nil, fmt.Errorf("user with email: %w", sentinel.ErrNotFound)
	}
	return s.users[userID].Clone(), nil
}

// Save overwrites an existing user. Email is immutable after creation.
func (s *InMemory) Save(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[u.ID]; !ok {
		return fmt.Errorf("user %s: %w", u.ID, sentinel.ErrNotFound)
	}
	s.users[u.ID] = u.Clone()
	return nil
}

// Execute loads the user, runs validate, and on success applies mutate and
// persists the result, all under the store lock. A validate error leaves
// the stored user untouched. A nil validate imposes no precondition.
func (s *InMemory) Execute(_ context.Context, userID id.UserID, validate func(*models.User) error, mutate func(*models.User)) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.users[userID]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", userID, sentinel.ErrNotFound)
	}
	working := stored.Clone()
	if validate != nil {
		if err := validate(working); err != nil {
			return nil, err
		}
	}
	mutate(working)
	s.users[userID] = working.Clone()
	return working, nil
}
