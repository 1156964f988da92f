package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	id "legitify/pkg/domain"
	"legitify/pkg/requestcontext"
)

const (
	testUserID = "550e8400-e29b-41d4-a716-446655440001"
	testOrgID  = "550e8400-e29b-41d4-a716-446655440002"
)

type MockJWTValidator struct {
	mock.Mock
}

func (m *MockJWTValidator) ValidateToken(tokenString string) (*JWTClaims, error) {
	args := m.Called(tokenString)
	if claims := args.Get(0); claims != nil {
		return claims.(*JWTClaims), args.Error(1)
	}
	return nil, args.Error(1)
}

type AuthMiddlewareSuite struct {
	suite.Suite
	validator *MockJWTValidator
	called    bool
	ctx       context.Context
}

func TestAuthMiddlewareSuite(t *testing.T) {
	suite.Run(t, new(AuthMiddlewareSuite))
}

func (s *AuthMiddlewareSuite) SetupTest() {
	s.validator = new(MockJWTValidator)
	s.called = false
	s.ctx = nil
}

func (s *AuthMiddlewareSuite) TearDownTest() {
	s.validator.AssertExpectations(s.T())
}

func (s *AuthMiddlewareSuite) serve(authHeader string) *httptest.ResponseRecorder {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.called = true
		s.ctx = r.Context()
	})
	req := httptest.NewRequest(http.MethodGet, "/credentials/held", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	RequireAuth(s.validator, slog.Default())(next).ServeHTTP(w, req)
	return w
}

func (s *AuthMiddlewareSuite) TestValidToken() {
	s.validator.On("ValidateToken", "good").
		Return(&JWTClaims{UserID: testUserID, Role: "issuer", OrgID: testOrgID}, nil)

	w := s.serve("Bearer good")

	s.Require().True(s.called)
	s.Equal(http.StatusOK, w.Code)
	caller := requestcontext.Caller(s.ctx)
	s.Equal(testUserID, caller.UserID.String())
	s.Equal(id.RoleIssuer, caller.Role)
	s.Equal(testOrgID, caller.OrgID.String())
}

func (s *AuthMiddlewareSuite) TestOrgClaimIsOptional() {
	s.validator.On("ValidateToken", "holder").
		Return(&JWTClaims{UserID: testUserID, Role: "holder"}, nil)

	s.serve("Bearer holder")

	s.Require().True(s.called)
	s.True(requestcontext.Caller(s.ctx).OrgID.IsNil())
}

func (s *AuthMiddlewareSuite) TestRejections() {
	cases := []struct {
		name   string
		header string
		claims *JWTClaims
		err    error
		desc   string
	}{
		{name: "missing header", header: "", desc: "Missing or invalid Authorization header"},
		{name: "wrong scheme", header: "Basic abc", desc: "Missing or invalid Authorization header"},
		{name: "invalid token", header: "Bearer bad", err: errors.New("expired"), desc: "Invalid or expired token"},
		{name: "malformed sub", header: "Bearer bad", claims: &JWTClaims{UserID: "nope", Role: "holder"}, desc: "Invalid or expired token"},
		{name: "unknown role", header: "Bearer bad", claims: &JWTClaims{UserID: testUserID, Role: "admin"}, desc: "Invalid or expired token"},
		{name: "malformed org", header: "Bearer bad", claims: &JWTClaims{UserID: testUserID, Role: "issuer", OrgID: "x"}, desc: "Invalid or expired token"},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			s.SetupTest()
			if tc.claims != nil || tc.err != nil {
				s.validator.On("ValidateToken", "bad").Return(tc.claims, tc.err).Once()
			}

			w := s.serve(tc.header)

			s.False(s.called)
			s.Equal(http.StatusUnauthorized, w.Code)
			s.JSONEq(`{"error":"unauthorized","error_description":"`+tc.desc+`"}`, w.Body.String())
		})
	}
}

type stubResolver struct {
	orgID id.OrgID
	found bool
	err   error
	calls int
}

func (r *stubResolver) AdminOrg(context.Context, id.UserID) (id.OrgID, bool, error) {
	r.calls++
	return r.orgID, r.found, r.err
}

func serveResolved(resolver *stubResolver, caller id.Caller) (*httptest.ResponseRecorder, id.Caller, bool) {
	var seen id.Caller
	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		seen = requestcontext.Caller(r.Context())
	})
	req := httptest.NewRequest(http.MethodGet, "/organizations", nil)
	req = req.WithContext(requestcontext.WithCaller(req.Context(), caller))
	w := httptest.NewRecorder()
	ResolveIssuerOrg(resolver, slog.Default())(next).ServeHTTP(w, req)
	return w, seen, called
}

func TestResolveIssuerOrg(t *testing.T) {
	userID, _ := id.ParseUserID(testUserID)
	orgID, _ := id.ParseOrgID(testOrgID)

	t.Run("fills the org of an issuer token without one", func(t *testing.T) {
		resolver := &stubResolver{orgID: orgID, found: true}
		_, caller, called := serveResolved(resolver, id.Caller{UserID: userID, Role: id.RoleIssuer})
		require.True(t, called)
		assert.Equal(t, orgID, caller.OrgID)
	})

	t.Run("issuer without an organization passes through", func(t *testing.T) {
		resolver := &stubResolver{}
		_, caller, called := serveResolved(resolver, id.Caller{UserID: userID, Role: id.RoleIssuer})
		require.True(t, called)
		assert.True(t, caller.OrgID.IsNil())
	})

	t.Run("token org and other roles skip the lookup", func(t *testing.T) {
		resolver := &stubResolver{err: errors.New("unused")}
		_, _, called := serveResolved(resolver, id.Caller{UserID: userID, Role: id.RoleIssuer, OrgID: orgID})
		assert.True(t, called)
		_, _, called = serveResolved(resolver, id.Caller{UserID: userID, Role: id.RoleHolder})
		assert.True(t, called)
		assert.Zero(t, resolver.calls)
	})

	t.Run("lookup failure is an internal error", func(t *testing.T) {
		resolver := &stubResolver{err: errors.New("db down")}
		w, _, called := serveResolved(resolver, id.Caller{UserID: userID, Role: id.RoleIssuer})
		assert.False(t, called)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}
