package store

import (
	"context"
	"slices"
	"sync"

	"legitify/internal/credential/models"
	id "legitify/pkg/domain"
	"legitify/pkg/platform/sentinel"
)

// InMemoryStore keeps documents in a map. Execute holds the write lock for the
// whole validate-mutate cycle, giving the same atomicity as SELECT FOR UPDATE.
type InMemoryStore struct {
	mu   sync.RWMutex
	docs map[id.DocumentID]*models.Document
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{docs: make(map[id.DocumentID]*models.Document)}
}

func (s *InMemoryStore) Create(_ context.Context, doc *models.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.docs[doc.ID]; exists {
		return sentinel.ErrAlreadyUsed
	}
	s.docs[doc.ID] = clone(doc)
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, docID id.DocumentID) (*models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[docID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(doc), nil
}

func (s *InMemoryStore) ListByHolder(_ context.Context, holderID id.UserID, filter *models.Filter) ([]*models.Document, error) {
	return s.list(func(d *models.Document) bool { return d.HolderID == holderID }, filter), nil
}

func (s *InMemoryStore) ListByIssuerOrg(_ context.Context, orgID id.OrgID, filter *models.Filter) ([]*models.Document, error) {
	return s.list(func(d *models.Document) bool { return d.IssuerOrgID == orgID }, filter), nil
}

func (s *InMemoryStore) list(owned func(*models.Document) bool, filter *models.Filter) []*models.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Document
	for _, doc := range s.docs {
		if owned(doc) && filter.Matches(doc) {
			out = append(out, clone(doc))
		}
	}
	slices.SortFunc(out, func(a, b *models.Document) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return slices.Compare(a.ID[:], b.ID[:])
	})
	return out
}

func (s *InMemoryStore) Execute(_ context.Context, docID id.DocumentID, validate func(*models.Document) error, mutate func(*models.Document)) (*models.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.docs[docID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	doc := clone(stored)
	if err := validate(doc); err != nil {
		return nil, err
	}
	mutate(doc)
	s.docs[docID] = doc
	return clone(doc), nil
}

func clone(doc *models.Document) *models.Document {
	c := *doc
	c.Payload = slices.Clone(doc.Payload)
	if doc.Supersedes != nil {
		prev := *doc.Supersedes
		c.Supersedes = &prev
	}
	return &c
}
