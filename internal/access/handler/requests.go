package handler

import (
	"strings"

	dErrors "legitify/pkg/domain-errors"
	"legitify/pkg/validation"
)

type CreateRequest struct {
	DocumentID string `json:"document_id" validate:"required,uuid"`
}

func (r *CreateRequest) Normalize() {
	if r == nil {
		return
	}
	r.DocumentID = strings.TrimSpace(r.DocumentID)
}

func (r *CreateRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	return validation.Validate(r)
}
