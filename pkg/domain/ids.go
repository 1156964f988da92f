// Package domain provides type-safe identifiers to prevent mixing up IDs at compile time.
package domain

import (
	"github.com/google/uuid"

	dErrors "legitify/pkg/domain-errors"
)

// Distinct ID types - compiler prevents passing UserID where DocumentID is expected.
type (
	UserID          uuid.UUID
	OrgID           uuid.UUID
	DocumentID      uuid.UUID
	AccessRequestID uuid.UUID
	AffiliationID   uuid.UUID
	JoinRequestID   uuid.UUID
)

// Parse functions - use at trust boundaries (handlers, API inputs).

func ParseUserID(s string) (UserID, error) {
	id, err := parseUUID(s, "user ID")
	return UserID(id), err
}

func ParseOrgID(s string) (OrgID, error) {
	id, err := parseUUID(s, "organization ID")
	return OrgID(id), err
}

func ParseDocumentID(s string) (DocumentID, error) {
	id, err := parseUUID(s, "document ID")
	return DocumentID(id), err
}

func ParseAccessRequestID(s string) (AccessRequestID, error) {
	id, err := parseUUID(s, "access request ID")
	return AccessRequestID(id), err
}

func ParseAffiliationID(s string) (AffiliationID, error) {
	id, err := parseUUID(s, "affiliation ID")
	return AffiliationID(id), err
}

func ParseJoinRequestID(s string) (JoinRequestID, error) {
	id, err := parseUUID(s, "join request ID")
	return JoinRequestID(id), err
}

// String methods - for logging and ledger arguments.

func (id UserID) String() string          { return uuid.UUID(id).String() }
func (id OrgID) String() string           { return uuid.UUID(id).String() }
func (id DocumentID) String() string      { return uuid.UUID(id).String() }
func (id AccessRequestID) String() string { return uuid.UUID(id).String() }
func (id AffiliationID) String() string   { return uuid.UUID(id).String() }
func (id JoinRequestID) String() string   { return uuid.UUID(id).String() }

func (id UserID) IsNil() bool          { return uuid.UUID(id) == uuid.Nil }
func (id OrgID) IsNil() bool           { return uuid.UUID(id) == uuid.Nil }
func (id DocumentID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id AccessRequestID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id AffiliationID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id JoinRequestID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }

// parseUUID is the shared validation logic.
// Nil UUIDs are allowed here; services reject them with IsNil so that store
// lookups keep returning consistent not-found errors.
func parseUUID(s, label string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be empty")
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label+" format")
	}
	return id, nil
}
