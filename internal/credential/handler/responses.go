package handler

import (
	"time"

	"legitify/internal/credential/models"
)

type IssueResponse struct {
	DocumentID string `json:"document_id"`
	Hash       string `json:"hash"`
}

// DocumentResponse omits the payload; it is only served by the access view.
type DocumentResponse struct {
	ID          string            `json:"id"`
	IssuerID    string            `json:"issuer_id"`
	IssuerOrgID string            `json:"issuer_org_id"`
	HolderID    string            `json:"holder_id"`
	Hash        string            `json:"hash"`
	FileName    string            `json:"file_name"`
	Attributes  models.Attributes `json:"attributes"`
	Status      models.Status     `json:"status"`
	Supersedes  string            `json:"supersedes,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

type DocumentListResponse struct {
	Documents []*DocumentResponse `json:"documents"`
}

type VerifyResponse struct {
	Verified       bool              `json:"verified"`
	Hash           string            `json:"hash"`
	Reason         string            `json:"reason,omitempty"`
	Document       *DocumentResponse `json:"document,omitempty"`
	LedgerVerified *bool             `json:"ledger_verified,omitempty"`
}

func toDocumentResponse(d *models.Document) *DocumentResponse {
	res := &DocumentResponse{
		ID:          d.ID.String(),
		IssuerID:    d.IssuerID.String(),
		IssuerOrgID: d.IssuerOrgID.String(),
		HolderID:    d.HolderID.String(),
		Hash:        d.Hash,
		FileName:    d.FileName,
		Attributes:  d.Attributes,
		Status:      d.Status,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
	if d.Supersedes != nil {
		res.Supersedes = d.Supersedes.String()
	}
	return res
}

func toDocumentListResponse(docs []*models.Document) *DocumentListResponse {
	out := make([]*DocumentResponse, 0, len(docs))
	for _, d := range docs {
		out = append(out, toDocumentResponse(d))
	}
	return &DocumentListResponse{Documents: out}
}

func toVerifyResponse(v *models.Verification) *VerifyResponse {
	res := &VerifyResponse{Verified: v.Verified, Hash: v.Hash, Reason: v.Reason, LedgerVerified: v.LedgerVerified}
	if v.Document != nil {
		res.Document = toDocumentResponse(v.Document)
	}
	return res
}
