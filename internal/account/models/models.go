package models

import (
	"strings"
	"time"

	id "legitify/pkg/domain"
	dErrors "legitify/pkg/domain-errors"
)

// Account is a registered user. Its ledger identity lives in LedgerOrg
// under the account ID as wallet label.
type Account struct {
	ID        id.UserID
	Email     string
	Name      string
	Role      id.Role
	LedgerOrg string
	CreatedAt time.Time
}

type RegisterCommand struct {
	Email string
	Name  string
	Role  id.Role
}

// NormalizeEmail is the canonical form used for uniqueness and lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func NewAccount(userID id.UserID, email, name string, role id.Role, ledgerOrg string, now time.Time) (*Account, error) {
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "account ID required")
	}
	email = NormalizeEmail(email)
	if email == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "email required")
	}
	if !role.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "invalid role")
	}
	if ledgerOrg == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "ledger organization required")
	}
	return &Account{
		ID:        userID,
		Email:     email,
		Name:      strings.TrimSpace(name),
		Role:      role,
		LedgerOrg: ledgerOrg,
		CreatedAt: now,
	}, nil
}
