package jwttoken

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "legitify/pkg/domain"
	dErrors "legitify/pkg/domain-errors"
	"legitify/pkg/platform/middleware/requesttime"
	"legitify/pkg/testutil"
)

var jwtService = NewJWTService(
	"test-signing-key",
	"test-issuer",
	"test-audience",
	time.Minute,
)

func Test_GenerateAccessToken(t *testing.T) {
	caller := testutil.Issuer(testutil.NewOrgID())
	token, err := jwtService.GenerateAccessToken(context.Background(), caller)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := jwtService.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, caller.UserID.String(), claims.UserID)
	assert.Equal(t, caller.UserID.String(), claims.Subject)
	assert.Equal(t, "issuer", claims.Role)
	assert.Equal(t, caller.OrgID.String(), claims.OrgID)
	assert.Equal(t, "test-issuer", claims.Issuer)
	assert.Equal(t, jwt.ClaimStrings{"test-audience"}, claims.Audience)
	assert.NotEmpty(t, claims.ID)
}

func Test_GenerateAccessToken_OmitsMissingOrg(t *testing.T) {
	token, err := jwtService.GenerateAccessToken(context.Background(), testutil.Holder())
	require.NoError(t, err)

	claims, err := jwtService.ValidateToken(token)
	require.NoError(t, err)
	assert.Empty(t, claims.OrgID)

	caller, err := NewJWTServiceAdapter(jwtService).ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "holder", caller.Role)
}

func Test_GenerateAccessToken_RejectsInvalidCaller(t *testing.T) {
	_, err := jwtService.GenerateAccessToken(context.Background(), id.Caller{Role: id.RoleHolder})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))

	_, err = jwtService.GenerateAccessToken(context.Background(), id.Caller{UserID: testutil.NewUserID(), Role: "admin"})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func Test_ValidateToken_Expired(t *testing.T) {
	ctx := requesttime.WithTime(context.Background(), time.Now().Add(-2*time.Hour))
	token, err := jwtService.GenerateAccessToken(ctx, testutil.Verifier())
	require.NoError(t, err)

	_, err = jwtService.ValidateToken(token)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	assert.Contains(t, err.Error(), "expired")
}

func Test_ValidateToken_RejectsInvalidIssuer(t *testing.T) {
	other := NewJWTService("test-signing-key", "someone-else", "test-audience", time.Minute)
	token, err := other.GenerateAccessToken(context.Background(), testutil.Holder())
	require.NoError(t, err)

	_, err = jwtService.ValidateToken(token)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func Test_ValidateToken_RejectsWrongKey(t *testing.T) {
	other := NewJWTService("another-key", "test-issuer", "test-audience", time.Minute)
	token, err := other.GenerateAccessToken(context.Background(), testutil.Holder())
	require.NoError(t, err)

	_, err = jwtService.ValidateToken(token)
	assert.Error(t, err)
}

func Test_ValidateToken_RejectsAlgorithmConfusion(t *testing.T) {
	claims := AccessTokenClaims{
		UserID: testutil.NewUserID().String(),
		Role:   "issuer",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "test-issuer",
			Audience:  []string{"test-audience"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	}

	t.Run("none", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = jwtService.ValidateToken(token)
		assert.Error(t, err)
	})

	t.Run("HS512 with the same key", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("test-signing-key"))
		require.NoError(t, err)
		_, err = jwtService.ValidateToken(token)
		assert.Error(t, err)
	})
}
