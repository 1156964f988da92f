package handler

import (
	"strings"
	"time"

	"legitify/internal/credential/models"
	id "legitify/pkg/domain"
	dErrors "legitify/pkg/domain-errors"
	s "legitify/pkg/string"
	"legitify/pkg/validation"
)

// IssueRequest carries a credential upload. Payload is base64 in JSON.
type IssueRequest struct {
	HolderEmail     string              `json:"holder_email" validate:"required,email,max=255"`
	FileName        string              `json:"file_name" validate:"notblank,max=255"`
	Payload         []byte              `json:"payload" validate:"required"`
	Kind            string              `json:"kind" validate:"required,oneof=degree certificate"`
	Title           string              `json:"title" validate:"notblank,max=200"`
	Description     string              `json:"description" validate:"max=2000"`
	AchievementDate string              `json:"achievement_date" validate:"required,datetime=2006-01-02"`
	ExpirationDate  string              `json:"expiration_date" validate:"omitempty,datetime=2006-01-02"`
	Degree          *DegreeRequest      `json:"degree" validate:"required_if=Kind degree,excluded_unless=Kind degree"`
	Certificate     *CertificateRequest `json:"certificate" validate:"required_if=Kind certificate,excluded_unless=Kind certificate"`
	Extra           map[string]string   `json:"extra" validate:"max=20"`
	Supersedes      string              `json:"supersedes" validate:"omitempty,uuid"`
}

type DegreeRequest struct {
	Field         string `json:"field" validate:"notblank,max=200"`
	Grade         string `json:"grade" validate:"max=50"`
	Honors        string `json:"honors" validate:"max=100"`
	ProgramLength string `json:"program_length" validate:"max=50"`
}

type CertificateRequest struct {
	Domain        string `json:"domain" validate:"notblank,max=200"`
	ProgramLength string `json:"program_length" validate:"max=50"`
}

func (r *IssueRequest) Normalize() {
	if r == nil {
		return
	}
	r.HolderEmail = s.NormalizeEmail(r.HolderEmail)
	r.Kind = strings.ToLower(strings.TrimSpace(r.Kind))
	s.TrimStrings(&r.FileName, &r.Title, &r.Description, &r.AchievementDate, &r.ExpirationDate, &r.Supersedes)
	if r.Degree != nil {
		s.TrimStrings(&r.Degree.Field, &r.Degree.Grade, &r.Degree.Honors, &r.Degree.ProgramLength)
	}
	if r.Certificate != nil {
		s.TrimStrings(&r.Certificate.Domain, &r.Certificate.ProgramLength)
	}
}

func (r *IssueRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	return validation.Validate(r)
}

// ToCommand converts a validated request into the issuance command.
func (r *IssueRequest) ToCommand() (models.IssueCommand, error) {
	achieved, err := time.Parse(models.DateLayout, r.AchievementDate)
	if err != nil {
		return models.IssueCommand{}, dErrors.New(dErrors.CodeValidation, "achievement_date must be a date formatted 2006-01-02")
	}
	attrs := models.Attributes{
		Kind:            models.Kind(r.Kind),
		Title:           r.Title,
		Description:     r.Description,
		AchievementDate: achieved,
		Extra:           r.Extra,
	}
	if r.ExpirationDate != "" {
		expires, err := time.Parse(models.DateLayout, r.ExpirationDate)
		if err != nil {
			return models.IssueCommand{}, dErrors.New(dErrors.CodeValidation, "expiration_date must be a date formatted 2006-01-02")
		}
		attrs.ExpirationDate = &expires
	}
	if r.Degree != nil {
		attrs.Degree = &models.DegreeDetails{
			Field:         r.Degree.Field,
			Grade:         r.Degree.Grade,
			Honors:        r.Degree.Honors,
			ProgramLength: r.Degree.ProgramLength,
		}
	}
	if r.Certificate != nil {
		attrs.Certificate = &models.CertificateDetails{
			Domain:        r.Certificate.Domain,
			ProgramLength: r.Certificate.ProgramLength,
		}
	}

	cmd := models.IssueCommand{
		HolderEmail: r.HolderEmail,
		FileName:    r.FileName,
		Payload:     r.Payload,
		Attributes:  attrs,
	}
	if r.Supersedes != "" {
		prev, err := id.ParseDocumentID(r.Supersedes)
		if err != nil {
			return models.IssueCommand{}, err
		}
		cmd.Supersedes = &prev
	}
	return cmd, nil
}

// VerifyRequest asks whether payload is an accepted credential of the holder.
type VerifyRequest struct {
	HolderEmail string `json:"holder_email" validate:"required,email,max=255"`
	Payload     []byte `json:"payload" validate:"required"`
}

func (r *VerifyRequest) Normalize() {
	if r == nil {
		return
	}
	r.HolderEmail = s.NormalizeEmail(r.HolderEmail)
}

func (r *VerifyRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	return validation.Validate(r)
}

// parseStatusFilter reads the optional ?status= list filter.
func parseStatusFilter(raw string) (*models.Filter, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return nil, nil
	}
	status := models.Status(raw)
	if !status.IsValid() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "status must be issued, accepted or denied")
	}
	return &models.Filter{Status: &status}, nil
}
