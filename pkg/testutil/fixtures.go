package testutil

import (
	"context"
	"time"

	"github.com/google/uuid"

	credmodels "legitify/internal/credential/models"
	id "legitify/pkg/domain"
	"legitify/pkg/platform/middleware/requesttime"
)

// FixedNow is the clock used by service tests.
var FixedNow = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

// Ctx returns a context pinned to FixedNow.
func Ctx() context.Context {
	return requesttime.WithTime(context.Background(), FixedNow)
}

func NewUserID() id.UserID { return id.UserID(uuid.New()) }
func NewOrgID() id.OrgID   { return id.OrgID(uuid.New()) }

// Issuer returns an issuer caller acting for orgID.
func Issuer(orgID id.OrgID) id.Caller {
	return id.Caller{UserID: NewUserID(), Role: id.RoleIssuer, OrgID: orgID}
}

func Holder() id.Caller {
	return id.Caller{UserID: NewUserID(), Role: id.RoleHolder}
}

func Verifier() id.Caller {
	return id.Caller{UserID: NewUserID(), Role: id.RoleVerifier}
}

// DegreeAttributes returns valid degree attributes achieved before FixedNow.
func DegreeAttributes() credmodels.Attributes {
	return credmodels.Attributes{
		Kind:            credmodels.KindDegree,
		Title:           "MSc Distributed Systems",
		Description:     "Graduated with distinction",
		AchievementDate: time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC),
		Degree: &credmodels.DegreeDetails{
			Field:         "Computer Science",
			Grade:         "Distinction",
			ProgramLength: "2 years",
		},
	}
}

// DocumentBuilder builds credential documents for store tests.
type DocumentBuilder struct {
	doc *credmodels.Document
}

func NewDocumentBuilder() *DocumentBuilder {
	return &DocumentBuilder{doc: &credmodels.Document{
		ID:          id.DocumentID(uuid.New()),
		IssuerID:    NewUserID(),
		IssuerOrgID: NewOrgID(),
		HolderID:    NewUserID(),
		Payload:     []byte("%PDF-1.7 diploma"),
		Hash:        "c3a9b3f1b0f2f8a3c9a0d1b2e3f4a5b6c7d8e9f0a1b2c3d4e5f6a7b8c9d0e1f2",
		FileName:    "diploma.pdf",
		Attributes:  DegreeAttributes(),
		Status:      credmodels.StatusIssued,
		CreatedAt:   FixedNow,
		UpdatedAt:   FixedNow,
	}}
}

func (b *DocumentBuilder) WithHolder(holderID id.UserID) *DocumentBuilder {
	b.doc.HolderID = holderID
	return b
}

func (b *DocumentBuilder) WithIssuer(issuerID id.UserID, orgID id.OrgID) *DocumentBuilder {
	b.doc.IssuerID = issuerID
	b.doc.IssuerOrgID = orgID
	return b
}

func (b *DocumentBuilder) WithPayload(payload []byte, hash string) *DocumentBuilder {
	b.doc.Payload = payload
	b.doc.Hash = hash
	return b
}

func (b *DocumentBuilder) WithStatus(status credmodels.Status) *DocumentBuilder {
	b.doc.Status = status
	return b
}

func (b *DocumentBuilder) CreatedAt(t time.Time) *DocumentBuilder {
	b.doc.CreatedAt = t
	b.doc.UpdatedAt = t
	return b
}

func (b *DocumentBuilder) Build() *credmodels.Document {
	c := *b.doc
	return &c
}
