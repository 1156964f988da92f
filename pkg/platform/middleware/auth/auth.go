// Package auth resolves the caller from a bearer token. Tokens are minted by
// an upstream identity provider; this package only validates them and reads
// the user ID, role and organization claims.
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	id "legitify/pkg/domain"
	"legitify/pkg/requestcontext"
)

// JWTValidator validates a raw token and returns its claims.
type JWTValidator interface {
	ValidateToken(tokenString string) (*JWTClaims, error)
}

// JWTClaims are the caller claims the service relies on.
type JWTClaims struct {
	UserID string
	Role   string
	OrgID  string
}

func writeJSONError(w http.ResponseWriter, status int, errCode, errDesc string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(fmt.Appendf(nil, `{"error":"%s","error_description":"%s"}`, errCode, errDesc))
}

// ParseCaller converts string claims into a typed Caller.
func ParseCaller(claims *JWTClaims) (id.Caller, error) {
	userID, err := id.ParseUserID(claims.UserID)
	if err != nil {
		return id.Caller{}, fmt.Errorf("invalid sub: %w", err)
	}
	if userID.IsNil() {
		return id.Caller{}, fmt.Errorf("invalid sub: nil user")
	}
	role := id.Role(claims.Role)
	if !role.IsValid() {
		return id.Caller{}, fmt.Errorf("invalid role %q", claims.Role)
	}

	// org is optional; only issuers administering an organization carry one.
	var orgID id.OrgID
	if claims.OrgID != "" {
		orgID, err = id.ParseOrgID(claims.OrgID)
		if err != nil {
			return id.Caller{}, fmt.Errorf("invalid org: %w", err)
		}
	}
	return id.Caller{UserID: userID, Role: role, OrgID: orgID}, nil
}

// RequireAuth rejects requests without a valid bearer token and stores the
// resolved Caller in the request context.
func RequireAuth(validator JWTValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := requestcontext.RequestID(ctx)

			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestID,
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Missing or invalid Authorization header")
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", requestID,
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Invalid or expired token")
				return
			}

			caller, err := ParseCaller(claims)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - malformed token claims",
					"error", err,
					"request_id", requestID,
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(requestcontext.WithCaller(ctx, caller)))
		})
	}
}

// AdminOrgResolver looks up the organization an issuer actively administers.
type AdminOrgResolver interface {
	AdminOrg(ctx context.Context, userID id.UserID) (id.OrgID, bool, error)
}

// ResolveIssuerOrg fills in the organization of issuer callers whose token
// predates their organization membership. Must run after RequireAuth.
func ResolveIssuerOrg(resolver AdminOrgResolver, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			caller := requestcontext.Caller(ctx)
			if caller.IsZero() || caller.Role != id.RoleIssuer || !caller.OrgID.IsNil() {
				next.ServeHTTP(w, r)
				return
			}

			orgID, found, err := resolver.AdminOrg(ctx, caller.UserID)
			if err != nil {
				logger.ErrorContext(ctx, "failed to resolve issuer organization",
					"error", err,
					"user_id", caller.UserID.String(),
					"request_id", requestcontext.RequestID(ctx),
				)
				writeJSONError(w, http.StatusInternalServerError, "internal_error", "Failed to resolve organization")
				return
			}
			if !found {
				next.ServeHTTP(w, r)
				return
			}

			caller.OrgID = orgID
			next.ServeHTTP(w, r.WithContext(requestcontext.WithCaller(ctx, caller)))
		})
	}
}
