package store

import (
	"context"
	"sync"

	"legitify/internal/account/models"
	id "legitify/pkg/domain"
	"legitify/pkg/platform/sentinel"
)

// InMemoryStore keeps accounts in memory, unique by normalized email.
type InMemoryStore struct {
	mu       sync.RWMutex
	accounts map[id.UserID]*models.Account
	byEmail  map[string]id.UserID
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		accounts: make(map[id.UserID]*models.Account),
		byEmail:  make(map[string]id.UserID),
	}
}

func (s *InMemoryStore) Create(_ context.Context, acc *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	email := models.NormalizeEmail(acc.Email)
	if _, ok := s.accounts[acc.ID]; ok {
		return sentinel.ErrAlreadyUsed
	}
	if _, ok := s.byEmail[email]; ok {
		return sentinel.ErrAlreadyUsed
	}
	c := *acc
	s.accounts[acc.ID] = &c
	s.byEmail[email] = acc.ID
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, userID id.UserID) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acc, ok := s.accounts[userID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	c := *acc
	return &c, nil
}

func (s *InMemoryStore) FindByEmail(_ context.Context, email string) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	userID, ok := s.byEmail[models.NormalizeEmail(email)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	c := *s.accounts[userID]
	return &c, nil
}
