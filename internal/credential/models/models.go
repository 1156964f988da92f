package models

import (
	"time"

	id "legitify/pkg/domain"
	dErrors "legitify/pkg/domain-errors"
)

// Status is the lifecycle state of a credential document.
type Status string

const (
	StatusIssued   Status = "issued"
	StatusAccepted Status = "accepted"
	StatusDenied   Status = "denied"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusIssued, StatusAccepted, StatusDenied:
		return true
	}
	return false
}

// Verification reasons reported when a payload does not verify.
const (
	ReasonHolderNotFound     = "holder_not_found"
	ReasonNoMatchingDocument = "no_matching_document"
)

// Document is an issued credential. Payload and Hash never change after
// creation; Status moves from issued to accepted or denied exactly once.
type Document struct {
	ID          id.DocumentID
	IssuerID    id.UserID
	IssuerOrgID id.OrgID
	HolderID    id.UserID
	Payload     []byte
	Hash        string
	FileName    string
	Attributes  Attributes
	Status      Status
	Supersedes  *id.DocumentID
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewDocument creates an issued document with invariant checks. The caller
// supplies the hash computed over payload.
func NewDocument(docID id.DocumentID, issuerID id.UserID, issuerOrgID id.OrgID, holderID id.UserID,
	payload []byte, hash, fileName string, attrs Attributes, supersedes *id.DocumentID, now time.Time,
) (*Document, error) {
	if docID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "document ID required")
	}
	if issuerID.IsNil() || issuerOrgID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "issuer required")
	}
	if holderID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "holder required")
	}
	if len(payload) == 0 || hash == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "payload and hash required")
	}
	if now.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "creation time required")
	}
	return &Document{
		ID:          docID,
		IssuerID:    issuerID,
		IssuerOrgID: issuerOrgID,
		HolderID:    holderID,
		Payload:     payload,
		Hash:        hash,
		FileName:    fileName,
		Attributes:  attrs,
		Status:      StatusIssued,
		Supersedes:  supersedes,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// IsPending reports whether the holder has not decided yet.
func (d *Document) IsPending() bool {
	return d.Status == StatusIssued
}

// EnsurePending fails with InvalidState once the holder has decided.
func (d *Document) EnsurePending() error {
	if !d.IsPending() {
		return dErrors.New(dErrors.CodeInvalidState, "document is already "+string(d.Status))
	}
	return nil
}

// MarkResolved records the holder's decision. Callers check EnsurePending
// under the same lock first.
func (d *Document) MarkResolved(to Status, now time.Time) {
	d.Status = to
	d.UpdatedAt = now
}

// Filter narrows list queries. Nil fields match everything.
type Filter struct {
	Status *Status
}

// Matches reports whether d passes the filter.
func (f *Filter) Matches(d *Document) bool {
	if f == nil || f.Status == nil {
		return true
	}
	return d.Status == *f.Status
}

// IssueCommand carries the input of an issuance.
type IssueCommand struct {
	HolderEmail string
	FileName    string
	Payload     []byte
	Attributes  Attributes
	Supersedes  *id.DocumentID
}

// IssueResult identifies the created document.
type IssueResult struct {
	DocumentID id.DocumentID
	Hash       string
}

// Verification is the answer to a verify-by-holder-email query. A failed
// match is reported here, never as an error.
type Verification struct {
	Verified bool
	Hash     string
	Document *Document
	Reason   string
	// LedgerVerified is set only for a local match the ledger answered for.
	LedgerVerified *bool
}
