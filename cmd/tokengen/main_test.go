package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "legitify/pkg/domain"
)

func TestBuildCaller(t *testing.T) {
	const userID = "550e8400-e29b-41d4-a716-446655440001"
	const orgID = "550e8400-e29b-41d4-a716-446655440002"

	t.Run("issuer with organization", func(t *testing.T) {
		caller, err := buildCaller(userID, "issuer", orgID)
		require.NoError(t, err)
		assert.Equal(t, userID, caller.UserID.String())
		assert.Equal(t, orgID, caller.OrgID.String())
	})

	t.Run("generates a user when omitted", func(t *testing.T) {
		caller, err := buildCaller("", "verifier", "")
		require.NoError(t, err)
		assert.False(t, caller.UserID.IsNil())
		assert.Equal(t, id.RoleVerifier, caller.Role)
	})

	t.Run("rejects bad input", func(t *testing.T) {
		_, err := buildCaller(userID, "admin", "")
		assert.Error(t, err)
		_, err = buildCaller("nope", "holder", "")
		assert.Error(t, err)
		_, err = buildCaller(userID, "holder", orgID)
		assert.Error(t, err)
	})
}
