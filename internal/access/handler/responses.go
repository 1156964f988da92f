package handler

import (
	"time"

	"legitify/internal/access/models"
)

type RequestResponse struct {
	ID         string        `json:"id"`
	DocumentID string        `json:"document_id"`
	VerifierID string        `json:"verifier_id"`
	HolderID   string        `json:"holder_id"`
	Status     models.Status `json:"status"`
	CreatedAt  time.Time     `json:"created_at"`
	ResolvedAt *time.Time    `json:"resolved_at,omitempty"`
}

type RequestListResponse struct {
	Requests []*RequestResponse `json:"requests"`
}

// ViewResponse carries the document payload base64-encoded.
type ViewResponse struct {
	DocumentID     string    `json:"document_id"`
	IssuerOrgID    string    `json:"issuer_org_id"`
	HolderID       string    `json:"holder_id"`
	FileName       string    `json:"file_name"`
	Title          string    `json:"title"`
	Kind           string    `json:"kind"`
	StoredHash     string    `json:"stored_hash"`
	Hash           string    `json:"computed_hash"`
	Verified       bool      `json:"verified"`
	LedgerVerified *bool     `json:"ledger_verified,omitempty"`
	Payload        []byte    `json:"payload"`
	IssuedAt       time.Time `json:"issued_at"`
}

func toRequestResponse(r *models.Request) *RequestResponse {
	return &RequestResponse{
		ID:         r.ID.String(),
		DocumentID: r.DocumentID.String(),
		VerifierID: r.VerifierID.String(),
		HolderID:   r.HolderID.String(),
		Status:     r.Status,
		CreatedAt:  r.CreatedAt,
		ResolvedAt: r.ResolvedAt,
	}
}

func toRequestListResponse(reqs []*models.Request) *RequestListResponse {
	out := make([]*RequestResponse, 0, len(reqs))
	for _, r := range reqs {
		out = append(out, toRequestResponse(r))
	}
	return &RequestListResponse{Requests: out}
}

func toViewResponse(v *models.View) *ViewResponse {
	doc := v.Document
	return &ViewResponse{
		DocumentID:     doc.ID.String(),
		IssuerOrgID:    doc.IssuerOrgID.String(),
		HolderID:       doc.HolderID.String(),
		FileName:       doc.FileName,
		Title:          doc.Attributes.Title,
		Kind:           string(doc.Attributes.Kind),
		StoredHash:     doc.Hash,
		Hash:           v.Hash,
		Verified:       v.Verified,
		LedgerVerified: v.LedgerVerified,
		Payload:        v.Payload,
		IssuedAt:       doc.CreatedAt,
	}
}
