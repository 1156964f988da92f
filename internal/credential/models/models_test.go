package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "legitify/pkg/domain"
	dErrors "legitify/pkg/domain-errors"
)

var now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func degree() Attributes {
	return Attributes{
		Kind:            KindDegree,
		Title:           "BSc Computer Science",
		AchievementDate: time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC),
		Degree:          &DegreeDetails{Field: "Computer Science", Grade: "First", ProgramLength: "3 years"},
	}
}

func TestAttributesValidate(t *testing.T) {
	require.NoError(t, degree().Validate(now))

	cert := Attributes{
		Kind:            KindCertificate,
		Title:           "Cloud Practitioner",
		AchievementDate: now,
		Certificate:     &CertificateDetails{Domain: "cloud"},
	}
	require.NoError(t, cert.Validate(now))

	future := now.Add(24 * time.Hour)
	before := now.Add(-48 * time.Hour)
	cases := map[string]func(a *Attributes){
		"unknown kind":          func(a *Attributes) { a.Kind = "diploma" },
		"blank title":           func(a *Attributes) { a.Title = "  " },
		"missing variant":       func(a *Attributes) { a.Degree = nil },
		"both variants":         func(a *Attributes) { a.Certificate = &CertificateDetails{Domain: "x"} },
		"blank field":           func(a *Attributes) { a.Degree.Field = "" },
		"future achievement":    func(a *Attributes) { a.AchievementDate = future },
		"missing achievement":   func(a *Attributes) { a.AchievementDate = time.Time{} },
		"expiry before achieve": func(a *Attributes) { a.ExpirationDate = &before; a.AchievementDate = now },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			a := degree()
			mutate(&a)
			err := a.Validate(now)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput), "got %v", err)
		})
	}
}

func TestLedgerArgs(t *testing.T) {
	a := degree()
	exp := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	a.ExpirationDate = &exp
	a.Description = "Honours programme"

	args, err := a.LedgerArgs()
	require.NoError(t, err)
	require.Len(t, args, 8)
	assert.Equal(t, []string{"degree", "BSc Computer Science", "Honours programme", "2024-07-01", "2030-01-01", "3 years", "Computer Science"}, args[:7])
	assert.JSONEq(t, `{"field":"Computer Science","grade":"First"}`, args[7])
}

func TestDocumentResolve(t *testing.T) {
	doc, err := NewDocument(id.DocumentID(uuid.New()), id.UserID(uuid.New()), id.OrgID(uuid.New()), id.UserID(uuid.New()),
		[]byte("pdf"), "abc", "d.pdf", degree(), nil, now)
	require.NoError(t, err)
	assert.Equal(t, StatusIssued, doc.Status)

	require.NoError(t, doc.EnsurePending())

	later := now.Add(time.Minute)
	doc.MarkResolved(StatusAccepted, later)
	assert.Equal(t, StatusAccepted, doc.Status)
	assert.Equal(t, later, doc.UpdatedAt)

	err = doc.EnsurePending()
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidState))
}

func TestNewDocumentInvariants(t *testing.T) {
	_, err := NewDocument(id.DocumentID(uuid.New()), id.UserID(uuid.New()), id.OrgID(uuid.New()), id.UserID(uuid.New()),
		nil, "", "d.pdf", degree(), nil, now)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
}

func TestFilterMatches(t *testing.T) {
	doc := &Document{Status: StatusAccepted}
	var nilFilter *Filter
	assert.True(t, nilFilter.Matches(doc))

	accepted, issued := StatusAccepted, StatusIssued
	assert.True(t, (&Filter{Status: &accepted}).Matches(doc))
	assert.False(t, (&Filter{Status: &issued}).Matches(doc))
}
