// Package main mints development bearer tokens for the Legitify API.
// Tokens are signed with the dev key unless JWT_SIGNING_KEY is set and
// will not validate against a production deployment.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	jwttoken "legitify/internal/jwt_token"
	"legitify/internal/platform/config"
	id "legitify/pkg/domain"
)

type tokenOutput struct {
	Token     string            `json:"token"`
	Type      string            `json:"type"`
	ExpiresIn string            `json:"expires_in"`
	Claims    map[string]string `json:"claims"`
	Usage     string            `json:"usage"`
}

func main() {
	userFlag := flag.String("user", "", "User ID (UUID). Generated if empty.")
	roleFlag := flag.String("role", "holder", "Caller role: issuer, holder or verifier")
	orgFlag := flag.String("org", "", "Organization ID (UUID) for issuers administering an organization")
	ttlFlag := flag.Duration("ttl", 0, "Token time-to-live (defaults to TOKEN_TTL)")
	jsonFlag := flag.Bool("json", false, "Output as JSON")
	flag.Parse()

	if err := run(*userFlag, *roleFlag, *orgFlag, *ttlFlag, *jsonFlag); err != nil {
		fmt.Fprintf(os.Stderr, "tokengen: %v\n", err)
		os.Exit(1)
	}
}

func run(user, role, org string, ttl time.Duration, asJSON bool) error {
	cfg := config.FromEnv()
	if ttl <= 0 {
		ttl = cfg.JWT.TokenTTL
	}

	caller, err := buildCaller(user, role, org)
	if err != nil {
		return err
	}

	svc := jwttoken.NewJWTService(cfg.JWT.SigningKey, cfg.JWT.Issuer, cfg.JWT.Audience, ttl)
	svc.SetEnv(cfg.Environment)
	token, err := svc.GenerateAccessToken(context.Background(), caller)
	if err != nil {
		return err
	}

	out := tokenOutput{
		Token:     token,
		Type:      "Bearer",
		ExpiresIn: ttl.String(),
		Claims: map[string]string{
			"user_id": caller.UserID.String(),
			"role":    string(caller.Role),
		},
		Usage: fmt.Sprintf("curl -H 'Authorization: Bearer %s' http://localhost%s/accounts/me", token, cfg.Addr),
	}
	if !caller.OrgID.IsNil() {
		out.Claims["org_id"] = caller.OrgID.String()
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
	fmt.Println(out.Token)
	fmt.Fprintf(os.Stderr, "user_id=%s role=%s expires_in=%s\n", caller.UserID, caller.Role, out.ExpiresIn)
	return nil
}

func buildCaller(user, role, org string) (id.Caller, error) {
	caller := id.Caller{Role: id.Role(role)}
	if !caller.Role.IsValid() {
		return id.Caller{}, fmt.Errorf("invalid role %q", role)
	}

	if user == "" {
		caller.UserID = id.UserID(uuid.New())
	} else {
		userID, err := id.ParseUserID(user)
		if err != nil {
			return id.Caller{}, fmt.Errorf("invalid user: %w", err)
		}
		caller.UserID = userID
	}

	if org != "" {
		if caller.Role != id.RoleIssuer {
			return id.Caller{}, fmt.Errorf("only issuers carry an organization")
		}
		orgID, err := id.ParseOrgID(org)
		if err != nil {
			return id.Caller{}, fmt.Errorf("invalid org: %w", err)
		}
		caller.OrgID = orgID
	}
	return caller, nil
}
