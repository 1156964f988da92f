package models

import (
	"time"

	credmodels "legitify/internal/credential/models"
	id "legitify/pkg/domain"
	dErrors "legitify/pkg/domain-errors"
)

// Status is the state of a verifier's access request.
type Status string

const (
	StatusPending Status = "pending"
	StatusGranted Status = "granted"
	StatusDenied  Status = "denied"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusGranted, StatusDenied:
		return true
	}
	return false
}

// Request is a verifier asking a holder to see one accepted document.
// HolderID is copied from the document at creation; it never changes.
type Request struct {
	ID         id.AccessRequestID
	DocumentID id.DocumentID
	VerifierID id.UserID
	HolderID   id.UserID
	Status     Status
	CreatedAt  time.Time
	ResolvedAt *time.Time
}

func NewRequest(reqID id.AccessRequestID, docID id.DocumentID, verifierID, holderID id.UserID, now time.Time) (*Request, error) {
	if reqID.IsNil() || docID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "request and document IDs required")
	}
	if verifierID.IsNil() || holderID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "verifier and holder required")
	}
	if now.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "creation time required")
	}
	return &Request{
		ID:         reqID,
		DocumentID: docID,
		VerifierID: verifierID,
		HolderID:   holderID,
		Status:     StatusPending,
		CreatedAt:  now,
	}, nil
}

func (r *Request) IsPending() bool {
	return r.Status == StatusPending
}

// EnsurePending fails with InvalidState once the request is resolved.
func (r *Request) EnsurePending() error {
	if !r.IsPending() {
		return dErrors.New(dErrors.CodeInvalidState, "access request is already "+string(r.Status))
	}
	return nil
}

func (r *Request) MarkResolved(granted bool, now time.Time) {
	if granted {
		r.Status = StatusGranted
	} else {
		r.Status = StatusDenied
	}
	r.ResolvedAt = &now
}

// View is a document served to an authorized reader together with a fresh
// integrity check of the stored payload.
type View struct {
	Document *credmodels.Document
	Payload  []byte
	Verified bool
	Hash     string
	// LedgerVerified is nil when no ledger answer was available.
	LedgerVerified *bool
}
