package models

import (
	"strings"
	"time"

	id "legitify/pkg/domain"
	dErrors "legitify/pkg/domain-errors"
)

// Organization is an issuing institution. Names are unique ignoring case.
type Organization struct {
	ID        id.OrgID
	Name      string
	OwnerID   id.UserID
	CreatedAt time.Time
}

func NewOrganization(orgID id.OrgID, name string, ownerID id.UserID, now time.Time) (*Organization, error) {
	name = strings.TrimSpace(name)
	if orgID.IsNil() || ownerID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "organization and owner IDs required")
	}
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "organization name required")
	}
	return &Organization{ID: orgID, Name: name, OwnerID: ownerID, CreatedAt: now}, nil
}

// Role distinguishes holder memberships from administrator memberships.
type Role string

const (
	RoleMember Role = "member"
	RoleAdmin  Role = "admin"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusActive   Status = "active"
	StatusRejected Status = "rejected"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusActive, StatusRejected:
		return true
	}
	return false
}

// Initiator records which side proposed an affiliation. The other side
// answers it.
type Initiator string

const (
	InitiatedByOrganization Initiator = "organization"
	InitiatedByMember       Initiator = "member"
)

func (i Initiator) IsValid() bool {
	return i == InitiatedByOrganization || i == InitiatedByMember
}

// Affiliation links a user to an organization. At most one active and one
// pending affiliation exist per (user, org, role).
type Affiliation struct {
	ID          id.AffiliationID
	UserID      id.UserID
	OrgID       id.OrgID
	Role        Role
	Status      Status
	InitiatedBy Initiator
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func NewAffiliation(affID id.AffiliationID, userID id.UserID, orgID id.OrgID, role Role, status Status, by Initiator, now time.Time) (*Affiliation, error) {
	if affID.IsNil() || userID.IsNil() || orgID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "affiliation, user and organization IDs required")
	}
	if role != RoleMember && role != RoleAdmin {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "invalid affiliation role")
	}
	if !status.IsValid() || !by.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "invalid affiliation status or initiator")
	}
	return &Affiliation{
		ID:          affID,
		UserID:      userID,
		OrgID:       orgID,
		Role:        role,
		Status:      status,
		InitiatedBy: by,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

func (a *Affiliation) IsLive() bool {
	return a.Status == StatusPending || a.Status == StatusActive
}

func (a *Affiliation) EnsurePending() error {
	if a.Status != StatusPending {
		return dErrors.New(dErrors.CodeInvalidState, "affiliation is already "+string(a.Status))
	}
	return nil
}

func (a *Affiliation) MarkResolved(accept bool, now time.Time) {
	if accept {
		a.Status = StatusActive
	} else {
		a.Status = StatusRejected
	}
	a.UpdatedAt = now
}

// RespondentIsMember reports whether the member, rather than an
// organization admin, answers this affiliation.
func (a *Affiliation) RespondentIsMember() bool {
	return a.InitiatedBy == InitiatedByOrganization
}

type JoinStatus string

const (
	JoinPending  JoinStatus = "pending"
	JoinApproved JoinStatus = "approved"
	JoinRejected JoinStatus = "rejected"
)

func (s JoinStatus) IsValid() bool {
	switch s {
	case JoinPending, JoinApproved, JoinRejected:
		return true
	}
	return false
}

// JoinRequest is an issuer asking to become an administrator of an
// organization.
type JoinRequest struct {
	ID          id.JoinRequestID
	RequesterID id.UserID
	OrgID       id.OrgID
	Status      JoinStatus
	CreatedAt   time.Time
	ResolvedAt  *time.Time
}

func NewJoinRequest(reqID id.JoinRequestID, requesterID id.UserID, orgID id.OrgID, now time.Time) (*JoinRequest, error) {
	if reqID.IsNil() || requesterID.IsNil() || orgID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "join request, requester and organization IDs required")
	}
	return &JoinRequest{
		ID:          reqID,
		RequesterID: requesterID,
		OrgID:       orgID,
		Status:      JoinPending,
		CreatedAt:   now,
	}, nil
}

func (r *JoinRequest) EnsurePending() error {
	if r.Status != JoinPending {
		return dErrors.New(dErrors.CodeInvalidState, "join request is already "+string(r.Status))
	}
	return nil
}

func (r *JoinRequest) MarkResolved(accept bool, now time.Time) {
	if accept {
		r.Status = JoinApproved
	} else {
		r.Status = JoinRejected
	}
	r.ResolvedAt = &now
}

// Member is an affiliation listed with its organization name.
type Member struct {
	Affiliation *Affiliation
	OrgName     string
}
