package store

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"legitify/internal/affiliation/models"
	id "legitify/pkg/domain"
	"legitify/pkg/platform/sentinel"
)

// InMemoryStore keeps organizations, affiliations and join requests behind
// one lock, mirroring the unique indexes of the Postgres schema.
type InMemoryStore struct {
	mu           sync.RWMutex
	orgs         map[id.OrgID]*models.Organization
	affiliations map[id.AffiliationID]*models.Affiliation
	joins        map[id.JoinRequestID]*models.JoinRequest
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		orgs:         make(map[id.OrgID]*models.Organization),
		affiliations: make(map[id.AffiliationID]*models.Affiliation),
		joins:        make(map[id.JoinRequestID]*models.JoinRequest),
	}
}

// LockUser is a no-op; callers serialize through a tx.MutexRunner.
func (s *InMemoryStore) LockUser(context.Context, id.UserID) error {
	return nil
}

func (s *InMemoryStore) CreateOrganization(_ context.Context, org *models.Organization) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orgs[org.ID]; ok {
		return sentinel.ErrAlreadyUsed
	}
	for _, existing := range s.orgs {
		if strings.EqualFold(existing.Name, org.Name) {
			return sentinel.ErrAlreadyUsed
		}
	}
	c := *org
	s.orgs[org.ID] = &c
	return nil
}

func (s *InMemoryStore) FindOrganization(_ context.Context, orgID id.OrgID) (*models.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	org, ok := s.orgs[orgID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	c := *org
	return &c, nil
}

func (s *InMemoryStore) ListOrganizations(context.Context) ([]*models.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Organization, 0, len(s.orgs))
	for _, org := range s.orgs {
		c := *org
		out = append(out, &c)
	}
	slices.SortFunc(out, func(a, b *models.Organization) int {
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	})
	return out, nil
}

func (s *InMemoryStore) CreateAffiliation(_ context.Context, aff *models.Affiliation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.affiliations[aff.ID]; ok {
		return sentinel.ErrAlreadyUsed
	}
	if aff.IsLive() {
		for _, existing := range s.affiliations {
			if existing.Status == aff.Status && existing.UserID == aff.UserID &&
				existing.OrgID == aff.OrgID && existing.Role == aff.Role {
				return sentinel.ErrAlreadyUsed
			}
		}
	}
	c := *aff
	s.affiliations[aff.ID] = &c
	return nil
}

func (s *InMemoryStore) FindAffiliation(_ context.Context, affID id.AffiliationID) (*models.Affiliation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	aff, ok := s.affiliations[affID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	c := *aff
	return &c, nil
}

func (s *InMemoryStore) ExecuteAffiliation(_ context.Context, affID id.AffiliationID, validate func(*models.Affiliation) error, mutate func(*models.Affiliation)) (*models.Affiliation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.affiliations[affID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	aff := *stored
	if err := validate(&aff); err != nil {
		return nil, err
	}
	mutate(&aff)
	if aff.Status == models.StatusActive && s.hasStatus(aff.UserID, aff.OrgID, aff.Role, models.StatusActive, aff.ID) {
		return nil, sentinel.ErrAlreadyUsed
	}
	s.affiliations[affID] = &aff
	c := aff
	return &c, nil
}

// ListLiveAffiliations returns the pending and active affiliations of
// userID in role, across organizations.
func (s *InMemoryStore) ListLiveAffiliations(_ context.Context, userID id.UserID, role models.Role) ([]*models.Affiliation, error) {
	return s.listAffiliations(func(a *models.Affiliation) bool {
		return a.UserID == userID && a.Role == role && a.IsLive()
	}), nil
}

func (s *InMemoryStore) ListAffiliationsByOrg(_ context.Context, orgID id.OrgID) ([]*models.Affiliation, error) {
	return s.listAffiliations(func(a *models.Affiliation) bool { return a.OrgID == orgID }), nil
}

func (s *InMemoryStore) ListAffiliationsByUser(_ context.Context, userID id.UserID) ([]*models.Member, error) {
	affs := s.listAffiliations(func(a *models.Affiliation) bool { return a.UserID == userID })
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Member, 0, len(affs))
	for _, a := range affs {
		m := &models.Member{Affiliation: a}
		if org, ok := s.orgs[a.OrgID]; ok {
			m.OrgName = org.Name
		}
		out = append(out, m)
	}
	return out, nil
}

func (s *InMemoryStore) IsActiveAdmin(_ context.Context, userID id.UserID, orgID id.OrgID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hasStatus(userID, orgID, models.RoleAdmin, models.StatusActive, id.AffiliationID{}), nil
}

// ActivateAdmin reactivates the user's latest admin affiliation with orgID
// or inserts a new active one.
func (s *InMemoryStore) ActivateAdmin(_ context.Context, userID id.UserID, orgID id.OrgID, now time.Time) (*models.Affiliation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var latest *models.Affiliation
	for _, a := range s.affiliations {
		if a.UserID != userID || a.OrgID != orgID || a.Role != models.RoleAdmin {
			continue
		}
		if a.Status == models.StatusActive {
			c := *a
			return &c, nil
		}
		if latest == nil || a.UpdatedAt.After(latest.UpdatedAt) {
			latest = a
		}
	}
	if latest != nil {
		latest.Status = models.StatusActive
		latest.UpdatedAt = now
		c := *latest
		return &c, nil
	}

	aff, err := models.NewAffiliation(id.AffiliationID(uuid.New()), userID, orgID, models.RoleAdmin, models.StatusActive, models.InitiatedByMember, now)
	if err != nil {
		return nil, err
	}
	s.affiliations[aff.ID] = aff
	c := *aff
	return &c, nil
}

func (s *InMemoryStore) CreateJoinRequest(_ context.Context, req *models.JoinRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.joins[req.ID]; ok {
		return sentinel.ErrAlreadyUsed
	}
	for _, existing := range s.joins {
		if existing.RequesterID == req.RequesterID && existing.Status == models.JoinPending {
			return sentinel.ErrAlreadyUsed
		}
	}
	s.joins[req.ID] = cloneJoin(req)
	return nil
}

func (s *InMemoryStore) FindJoinRequest(_ context.Context, reqID id.JoinRequestID) (*models.JoinRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	req, ok := s.joins[reqID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneJoin(req), nil
}

func (s *InMemoryStore) ExecuteJoinRequest(_ context.Context, reqID id.JoinRequestID, validate func(*models.JoinRequest) error, mutate func(*models.JoinRequest)) (*models.JoinRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.joins[reqID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	req := cloneJoin(stored)
	if err := validate(req); err != nil {
		return nil, err
	}
	mutate(req)
	s.joins[reqID] = req
	return cloneJoin(req), nil
}

func (s *InMemoryStore) ListJoinRequests(_ context.Context, orgID id.OrgID, status *models.JoinStatus) ([]*models.JoinRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.JoinRequest
	for _, r := range s.joins {
		if r.OrgID == orgID && (status == nil || r.Status == *status) {
			out = append(out, cloneJoin(r))
		}
	}
	slices.SortFunc(out, func(a, b *models.JoinRequest) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return slices.Compare(a.ID[:], b.ID[:])
	})
	return out, nil
}

func (s *InMemoryStore) HasPendingJoinRequest(_ context.Context, userID id.UserID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.joins {
		if r.RequesterID == userID && r.Status == models.JoinPending {
			return true, nil
		}
	}
	return false, nil
}

func (s *InMemoryStore) listAffiliations(match func(*models.Affiliation) bool) []*models.Affiliation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Affiliation
	for _, a := range s.affiliations {
		if match(a) {
			c := *a
			out = append(out, &c)
		}
	}
	slices.SortFunc(out, func(a, b *models.Affiliation) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return slices.Compare(a.ID[:], b.ID[:])
	})
	return out
}

// hasStatus must be called with the lock held.
func (s *InMemoryStore) hasStatus(userID id.UserID, orgID id.OrgID, role models.Role, status models.Status, except id.AffiliationID) bool {
	for _, a := range s.affiliations {
		if a.ID != except && a.UserID == userID && a.OrgID == orgID && a.Role == role && a.Status == status {
			return true
		}
	}
	return false
}

func cloneJoin(r *models.JoinRequest) *models.JoinRequest {
	c := *r
	if r.ResolvedAt != nil {
		t := *r.ResolvedAt
		c.ResolvedAt = &t
	}
	return &c
}
