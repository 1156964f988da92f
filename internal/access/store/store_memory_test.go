package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"legitify/internal/access/models"
	id "legitify/pkg/domain"
	dErrors "legitify/pkg/domain-errors"
	"legitify/pkg/platform/sentinel"
	"legitify/pkg/testutil"
)

func newRequest(t *testing.T, docID id.DocumentID, verifierID, holderID id.UserID, at time.Time) *models.Request {
	t.Helper()
	req, err := models.NewRequest(id.AccessRequestID(uuid.New()), docID, verifierID, holderID, at)
	require.NoError(t, err)
	return req
}

func TestInMemoryOnePendingPerDocumentAndVerifier(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()
	docID := id.DocumentID(uuid.New())
	verifier, holder := testutil.NewUserID(), testutil.NewUserID()

	first := newRequest(t, docID, verifier, holder, testutil.FixedNow)
	require.NoError(t, s.Create(ctx, first))
	assert.ErrorIs(t, s.Create(ctx, newRequest(t, docID, verifier, holder, testutil.FixedNow)), sentinel.ErrAlreadyUsed)

	require.NoError(t, s.Create(ctx, newRequest(t, docID, testutil.NewUserID(), holder, testutil.FixedNow)),
		"another verifier may ask for the same document")

	_, err := s.Execute(ctx, first.ID, (*models.Request).EnsurePending, func(r *models.Request) {
		r.MarkResolved(false, testutil.FixedNow)
	})
	require.NoError(t, err)
	assert.NoError(t, s.Create(ctx, newRequest(t, docID, verifier, holder, testutil.FixedNow)),
		"a denied request does not block a new one")
}

func TestInMemoryListsAndGrants(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()
	docID := id.DocumentID(uuid.New())
	verifier, holder := testutil.NewUserID(), testutil.NewUserID()

	older := newRequest(t, docID, verifier, holder, testutil.FixedNow.Add(-time.Hour))
	newer := newRequest(t, id.DocumentID(uuid.New()), verifier, holder, testutil.FixedNow)
	require.NoError(t, s.Create(ctx, older))
	require.NoError(t, s.Create(ctx, newer))

	byVerifier, err := s.ListByVerifier(ctx, verifier)
	require.NoError(t, err)
	require.Len(t, byVerifier, 2)
	assert.Equal(t, newer.ID, byVerifier[0].ID)

	byHolder, err := s.ListByHolder(ctx, holder)
	require.NoError(t, err)
	assert.Len(t, byHolder, 2)

	granted, err := s.HasGranted(ctx, docID, verifier)
	require.NoError(t, err)
	assert.False(t, granted)

	_, err = s.Execute(ctx, older.ID, (*models.Request).EnsurePending, func(r *models.Request) {
		r.MarkResolved(true, testutil.FixedNow)
	})
	require.NoError(t, err)

	granted, err = s.HasGranted(ctx, docID, verifier)
	require.NoError(t, err)
	assert.True(t, granted)

	_, err = s.Execute(ctx, older.ID, (*models.Request).EnsurePending, func(*models.Request) {})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidState))

	_, err = s.FindByID(ctx, id.AccessRequestID(uuid.New()))
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}
