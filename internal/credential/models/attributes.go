package models

import (
	"encoding/json"
	"strings"
	"time"

	dErrors "legitify/pkg/domain-errors"
)

// Kind tags which variant of Attributes is populated.
type Kind string

const (
	KindDegree      Kind = "degree"
	KindCertificate Kind = "certificate"
)

func (k Kind) IsValid() bool {
	return k == KindDegree || k == KindCertificate
}

// DateLayout is the wire format of achievement and expiration dates.
const DateLayout = "2006-01-02"

// Attributes describe what a credential certifies. Exactly one of Degree and
// Certificate is set, matching Kind.
type Attributes struct {
	Kind            Kind                `json:"kind"`
	Title           string              `json:"title"`
	Description     string              `json:"description,omitempty"`
	AchievementDate time.Time           `json:"achievement_date"`
	ExpirationDate  *time.Time          `json:"expiration_date,omitempty"`
	Degree          *DegreeDetails      `json:"degree,omitempty"`
	Certificate     *CertificateDetails `json:"certificate,omitempty"`
	Extra           map[string]string   `json:"extra,omitempty"`
}

type DegreeDetails struct {
	Field         string `json:"field"`
	Grade         string `json:"grade,omitempty"`
	Honors        string `json:"honors,omitempty"`
	ProgramLength string `json:"program_length,omitempty"`
}

type CertificateDetails struct {
	Domain        string `json:"domain"`
	ProgramLength string `json:"program_length,omitempty"`
}

// Validate checks variant consistency and dates against now.
func (a Attributes) Validate(now time.Time) error {
	if !a.Kind.IsValid() {
		return dErrors.New(dErrors.CodeInvalidInput, "kind must be degree or certificate")
	}
	if strings.TrimSpace(a.Title) == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "title is required")
	}
	switch a.Kind {
	case KindDegree:
		if a.Degree == nil || a.Certificate != nil {
			return dErrors.New(dErrors.CodeInvalidInput, "degree credentials carry degree details only")
		}
		if strings.TrimSpace(a.Degree.Field) == "" {
			return dErrors.New(dErrors.CodeInvalidInput, "degree field is required")
		}
	case KindCertificate:
		if a.Certificate == nil || a.Degree != nil {
			return dErrors.New(dErrors.CodeInvalidInput, "certificate credentials carry certificate details only")
		}
		if strings.TrimSpace(a.Certificate.Domain) == "" {
			return dErrors.New(dErrors.CodeInvalidInput, "certificate domain is required")
		}
	}
	if a.AchievementDate.IsZero() {
		return dErrors.New(dErrors.CodeInvalidInput, "achievement date is required")
	}
	if a.AchievementDate.After(now) {
		return dErrors.New(dErrors.CodeInvalidInput, "achievement date cannot be in the future")
	}
	if a.ExpirationDate != nil && a.ExpirationDate.Before(a.AchievementDate) {
		return dErrors.New(dErrors.CodeInvalidInput, "expiration date precedes achievement date")
	}
	return nil
}

// ProgramLength returns the program length of whichever variant is set.
func (a Attributes) ProgramLength() string {
	switch {
	case a.Degree != nil:
		return a.Degree.ProgramLength
	case a.Certificate != nil:
		return a.Certificate.ProgramLength
	}
	return ""
}

// Domain returns the certificate domain or the degree field.
func (a Attributes) Domain() string {
	switch {
	case a.Certificate != nil:
		return a.Certificate.Domain
	case a.Degree != nil:
		return a.Degree.Field
	}
	return ""
}

// LedgerArgs renders the attribute part of the IssueCredential arguments:
// type, title, description, achievementDate, expirationDate, programLength,
// domain, attributesJSON.
func (a Attributes) LedgerArgs() ([]string, error) {
	extra, err := json.Marshal(a.variantFields())
	if err != nil {
		return nil, err
	}
	expiration := ""
	if a.ExpirationDate != nil {
		expiration = a.ExpirationDate.Format(DateLayout)
	}
	return []string{
		string(a.Kind),
		a.Title,
		a.Description,
		a.AchievementDate.Format(DateLayout),
		expiration,
		a.ProgramLength(),
		a.Domain(),
		string(extra),
	}, nil
}

func (a Attributes) variantFields() map[string]string {
	out := make(map[string]string, len(a.Extra)+3)
	for k, v := range a.Extra {
		out[k] = v
	}
	if a.Degree != nil {
		out["field"] = a.Degree.Field
		if a.Degree.Grade != "" {
			out["grade"] = a.Degree.Grade
		}
		if a.Degree.Honors != "" {
			out["honors"] = a.Degree.Honors
		}
	}
	return out
}
