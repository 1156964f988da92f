package store

import (
	"context"
	"sort"
	"sync"

	"legitify/internal/identity/models"
	"legitify/pkg/platform/sentinel"
)

// InMemory keeps ledger identities in process memory. Used by tests and
// single-process development runs without a database.
type InMemory struct {
	mu         sync.RWMutex
	identities map[key]*models.Identity

	// FailWrites makes Put and Remove fail; lets tests exercise write-through ordering.
	FailWrites error
}

type key struct {
	label string
	org   string
}

// NewInMemory creates an empty in-memory identity store.
func NewInMemory() *InMemory {
	return &InMemory{identities: make(map[key]*models.Identity)}
}

func (s *InMemory) Get(_ context.Context, label, org string) (*models.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ident, ok := s.identities[key{label, org}]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *ident
	return &cp, nil
}

// Put inserts or replaces the identity keyed by (label, org).
func (s *InMemory) Put(_ context.Context, ident *models.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWrites != nil {
		return s.FailWrites
	}
	k := key{ident.Label, ident.OrgName}
	cp := *ident
	if existing, ok := s.identities[k]; ok {
		cp.CreatedAt = existing.CreatedAt
	}
	s.identities[k] = &cp
	return nil
}

func (s *InMemory) List(ctx context.Context, org string) ([]string, error) {
	idents, err := s.ListIdentities(ctx, org)
	if err != nil {
		return nil, err
	}
	labels := make([]string, 0, len(idents))
	for _, ident := range idents {
		labels = append(labels, ident.Label)
	}
	return labels, nil
}

func (s *InMemory) ListIdentities(_ context.Context, org string) ([]*models.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Identity
	for k, ident := range s.identities {
		if k.org != org {
			continue
		}
		cp := *ident
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out, nil
}

// Remove deletes the identity. Removing an absent identity is not an error.
func (s *InMemory) Remove(_ context.Context, label, org string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWrites != nil {
		return s.FailWrites
	}
	delete(s.identities, key{label, org})
	return nil
}
