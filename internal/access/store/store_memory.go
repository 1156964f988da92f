package store

import (
	"context"
	"slices"
	"sync"

	"legitify/internal/access/models"
	id "legitify/pkg/domain"
	"legitify/pkg/platform/sentinel"
)

// InMemoryStore keeps access requests in a map. The one-pending-request rule
// is checked under the write lock.
type InMemoryStore struct {
	mu       sync.RWMutex
	requests map[id.AccessRequestID]*models.Request
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{requests: make(map[id.AccessRequestID]*models.Request)}
}

func (s *InMemoryStore) Create(_ context.Context, req *models.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.requests[req.ID]; exists {
		return sentinel.ErrAlreadyUsed
	}
	if req.IsPending() {
		for _, existing := range s.requests {
			if existing.IsPending() && existing.DocumentID == req.DocumentID && existing.VerifierID == req.VerifierID {
				return sentinel.ErrAlreadyUsed
			}
		}
	}
	s.requests[req.ID] = clone(req)
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, reqID id.AccessRequestID) (*models.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	req, ok := s.requests[reqID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(req), nil
}

func (s *InMemoryStore) ListByHolder(_ context.Context, holderID id.UserID) ([]*models.Request, error) {
	return s.list(func(r *models.Request) bool { return r.HolderID == holderID }), nil
}

func (s *InMemoryStore) ListByVerifier(_ context.Context, verifierID id.UserID) ([]*models.Request, error) {
	return s.list(func(r *models.Request) bool { return r.VerifierID == verifierID }), nil
}

func (s *InMemoryStore) HasGranted(_ context.Context, docID id.DocumentID, verifierID id.UserID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.requests {
		if r.DocumentID == docID && r.VerifierID == verifierID && r.Status == models.StatusGranted {
			return true, nil
		}
	}
	return false, nil
}

func (s *InMemoryStore) Execute(_ context.Context, reqID id.AccessRequestID, validate func(*models.Request) error, mutate func(*models.Request)) (*models.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.requests[reqID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	req := clone(stored)
	if err := validate(req); err != nil {
		return nil, err
	}
	mutate(req)
	s.requests[reqID] = req
	return clone(req), nil
}

func (s *InMemoryStore) list(match func(*models.Request) bool) []*models.Request {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Request
	for _, r := range s.requests {
		if match(r) {
			out = append(out, clone(r))
		}
	}
	slices.SortFunc(out, func(a, b *models.Request) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return slices.Compare(a.ID[:], b.ID[:])
	})
	return out
}

func clone(r *models.Request) *models.Request {
	c := *r
	if r.ResolvedAt != nil {
		t := *r.ResolvedAt
		c.ResolvedAt = &t
	}
	return &c
}
