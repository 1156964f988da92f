package handler

import (
	"strings"

	"legitify/internal/affiliation/models"
	dErrors "legitify/pkg/domain-errors"
	"legitify/pkg/validation"
)

type CreateOrganizationRequest struct {
	Name string `json:"name" validate:"required,notblank,max=120"`
}

func (r *CreateOrganizationRequest) Normalize() {
	if r == nil {
		return
	}
	r.Name = strings.Join(strings.Fields(r.Name), " ")
}

func (r *CreateOrganizationRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if err := validation.CheckStringLength("name", r.Name, validation.MaxOrgNameLength); err != nil {
		return err
	}
	return validation.Validate(r)
}

// ProposeRequest opens an affiliation. InitiatedBy defaults to the
// caller's side: holders apply as members, issuers invite for the
// organization.
type ProposeRequest struct {
	UserID      string `json:"user_id" validate:"omitempty,uuid"`
	InitiatedBy string `json:"initiated_by" validate:"omitempty,oneof=organization member"`
}

func (r *ProposeRequest) Normalize() {
	if r == nil {
		return
	}
	r.UserID = strings.TrimSpace(r.UserID)
	r.InitiatedBy = strings.ToLower(strings.TrimSpace(r.InitiatedBy))
}

func (r *ProposeRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	return validation.Validate(r)
}

type RespondRequest struct {
	Accept *bool `json:"accept" validate:"required"`
}

func (r *RespondRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	return validation.Validate(r)
}

func parseJoinStatus(raw string) (*models.JoinStatus, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return nil, nil
	}
	status := models.JoinStatus(raw)
	if !status.IsValid() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "status must be pending, approved or rejected")
	}
	return &status, nil
}
