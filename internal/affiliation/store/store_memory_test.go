package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"legitify/internal/affiliation/models"
	id "legitify/pkg/domain"
	"legitify/pkg/platform/sentinel"
	"legitify/pkg/testutil"
)

func newOrg(t *testing.T, name string) *models.Organization {
	t.Helper()
	org, err := models.NewOrganization(testutil.NewOrgID(), name, testutil.NewUserID(), testutil.FixedNow)
	require.NoError(t, err)
	return org
}

func newAffiliation(t *testing.T, userID id.UserID, orgID id.OrgID, role models.Role, status models.Status) *models.Affiliation {
	t.Helper()
	aff, err := models.NewAffiliation(id.AffiliationID(uuid.New()), userID, orgID, role, status, models.InitiatedByOrganization, testutil.FixedNow)
	require.NoError(t, err)
	return aff
}

func TestOrganizations(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()

	require.NoError(t, s.CreateOrganization(ctx, newOrg(t, "Trinity College")))
	require.NoError(t, s.CreateOrganization(ctx, newOrg(t, "Aston University")))
	assert.ErrorIs(t, s.CreateOrganization(ctx, newOrg(t, "trinity college")), sentinel.ErrAlreadyUsed)

	orgs, err := s.ListOrganizations(ctx)
	require.NoError(t, err)
	require.Len(t, orgs, 2)
	assert.Equal(t, "Aston University", orgs[0].Name)

	found, err := s.FindOrganization(ctx, orgs[1].ID)
	require.NoError(t, err)
	assert.Equal(t, "Trinity College", found.Name)

	_, err = s.FindOrganization(ctx, testutil.NewOrgID())
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestAffiliationUniqueness(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()
	org := newOrg(t, "Trinity College")
	require.NoError(t, s.CreateOrganization(ctx, org))
	userID := testutil.NewUserID()

	pending := newAffiliation(t, userID, org.ID, models.RoleMember, models.StatusPending)
	require.NoError(t, s.CreateAffiliation(ctx, pending))
	assert.ErrorIs(t, s.CreateAffiliation(ctx, newAffiliation(t, userID, org.ID, models.RoleMember, models.StatusPending)), sentinel.ErrAlreadyUsed)
	assert.NoError(t, s.CreateAffiliation(ctx, newAffiliation(t, userID, org.ID, models.RoleAdmin, models.StatusPending)), "role is part of the key")

	active := newAffiliation(t, userID, org.ID, models.RoleMember, models.StatusActive)
	require.NoError(t, s.CreateAffiliation(ctx, active))

	_, err := s.ExecuteAffiliation(ctx, pending.ID, (*models.Affiliation).EnsurePending, func(a *models.Affiliation) {
		a.MarkResolved(true, testutil.FixedNow)
	})
	assert.ErrorIs(t, err, sentinel.ErrAlreadyUsed, "a second active affiliation is rejected")

	stored, err := s.FindAffiliation(ctx, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, stored.Status, "failed execute leaves the row untouched")
}

func TestListAffiliations(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()
	org := newOrg(t, "Trinity College")
	require.NoError(t, s.CreateOrganization(ctx, org))
	userID := testutil.NewUserID()

	older := newAffiliation(t, userID, org.ID, models.RoleMember, models.StatusRejected)
	older.CreatedAt = testutil.FixedNow.Add(-time.Hour)
	require.NoError(t, s.CreateAffiliation(ctx, older))
	require.NoError(t, s.CreateAffiliation(ctx, newAffiliation(t, userID, org.ID, models.RoleAdmin, models.StatusActive)))
	require.NoError(t, s.CreateAffiliation(ctx, newAffiliation(t, testutil.NewUserID(), org.ID, models.RoleMember, models.StatusPending)))

	members, err := s.ListAffiliationsByUser(ctx, userID)
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, "Trinity College", members[0].OrgName)
	assert.Equal(t, older.ID, members[1].Affiliation.ID)

	byOrg, err := s.ListAffiliationsByOrg(ctx, org.ID)
	require.NoError(t, err)
	assert.Len(t, byOrg, 3)

	live, err := s.ListLiveAffiliations(ctx, userID, models.RoleMember)
	require.NoError(t, err)
	assert.Empty(t, live, "rejected affiliations are not live")

	admin, err := s.IsActiveAdmin(ctx, userID, org.ID)
	require.NoError(t, err)
	assert.True(t, admin)
}

func TestActivateAdmin(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()
	orgID := testutil.NewOrgID()
	userID := testutil.NewUserID()

	t.Run("inserts when none exists", func(t *testing.T) {
		aff, err := s.ActivateAdmin(ctx, userID, orgID, testutil.FixedNow)
		require.NoError(t, err)
		assert.Equal(t, models.StatusActive, aff.Status)
		assert.Equal(t, models.RoleAdmin, aff.Role)

		again, err := s.ActivateAdmin(ctx, userID, orgID, testutil.FixedNow)
		require.NoError(t, err)
		assert.Equal(t, aff.ID, again.ID, "already active is idempotent")
	})

	t.Run("reactivates a rejected affiliation", func(t *testing.T) {
		other := testutil.NewUserID()
		rejected := newAffiliation(t, other, orgID, models.RoleAdmin, models.StatusRejected)
		require.NoError(t, s.CreateAffiliation(ctx, rejected))

		later := testutil.FixedNow.Add(time.Hour)
		aff, err := s.ActivateAdmin(ctx, other, orgID, later)
		require.NoError(t, err)
		assert.Equal(t, rejected.ID, aff.ID)
		assert.Equal(t, later, aff.UpdatedAt)
	})
}

func TestJoinRequests(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()
	orgID := testutil.NewOrgID()
	requester := testutil.NewUserID()

	req, err := models.NewJoinRequest(id.JoinRequestID(uuid.New()), requester, orgID, testutil.FixedNow)
	require.NoError(t, err)
	require.NoError(t, s.CreateJoinRequest(ctx, req))

	dup, err := models.NewJoinRequest(id.JoinRequestID(uuid.New()), requester, testutil.NewOrgID(), testutil.FixedNow)
	require.NoError(t, err)
	assert.ErrorIs(t, s.CreateJoinRequest(ctx, dup), sentinel.ErrAlreadyUsed, "one pending request per requester")

	pending, err := s.HasPendingJoinRequest(ctx, requester)
	require.NoError(t, err)
	assert.True(t, pending)

	resolved, err := s.ExecuteJoinRequest(ctx, req.ID, (*models.JoinRequest).EnsurePending, func(r *models.JoinRequest) {
		r.MarkResolved(false, testutil.FixedNow)
	})
	require.NoError(t, err)
	assert.Equal(t, models.JoinRejected, resolved.Status)

	_, err = s.ExecuteJoinRequest(ctx, req.ID, (*models.JoinRequest).EnsurePending, func(*models.JoinRequest) {})
	assert.Error(t, err)

	status := models.JoinPending
	list, err := s.ListJoinRequests(ctx, orgID, &status)
	require.NoError(t, err)
	assert.Empty(t, list)

	list, err = s.ListJoinRequests(ctx, orgID, nil)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, s.CreateJoinRequest(ctx, dup), "a resolved request frees the requester")
}
