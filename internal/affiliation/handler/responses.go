package handler

import (
	"time"

	"legitify/internal/affiliation/models"
)

type OrganizationResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	OwnerID   string    `json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
}

type OrganizationListResponse struct {
	Organizations []*OrganizationResponse `json:"organizations"`
}

type AffiliationResponse struct {
	ID          string           `json:"id"`
	UserID      string           `json:"user_id"`
	OrgID       string           `json:"org_id"`
	OrgName     string           `json:"org_name,omitempty"`
	Role        models.Role      `json:"role"`
	Status      models.Status    `json:"status"`
	InitiatedBy models.Initiator `json:"initiated_by"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

type AffiliationListResponse struct {
	Affiliations []*AffiliationResponse `json:"affiliations"`
}

type JoinRequestResponse struct {
	ID          string            `json:"id"`
	RequesterID string            `json:"requester_id"`
	OrgID       string            `json:"org_id"`
	Status      models.JoinStatus `json:"status"`
	CreatedAt   time.Time         `json:"created_at"`
	ResolvedAt  *time.Time        `json:"resolved_at,omitempty"`
}

type JoinRequestListResponse struct {
	JoinRequests []*JoinRequestResponse `json:"join_requests"`
}

func toOrganizationResponse(o *models.Organization) *OrganizationResponse {
	return &OrganizationResponse{
		ID:        o.ID.String(),
		Name:      o.Name,
		OwnerID:   o.OwnerID.String(),
		CreatedAt: o.CreatedAt,
	}
}

func toOrganizationListResponse(orgs []*models.Organization) *OrganizationListResponse {
	out := &OrganizationListResponse{Organizations: make([]*OrganizationResponse, 0, len(orgs))}
	for _, o := range orgs {
		out.Organizations = append(out.Organizations, toOrganizationResponse(o))
	}
	return out
}

func toAffiliationResponse(a *models.Affiliation) *AffiliationResponse {
	return &AffiliationResponse{
		ID:          a.ID.String(),
		UserID:      a.UserID.String(),
		OrgID:       a.OrgID.String(),
		Role:        a.Role,
		Status:      a.Status,
		InitiatedBy: a.InitiatedBy,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
}

func toAffiliationListResponse(affs []*models.Affiliation) *AffiliationListResponse {
	out := &AffiliationListResponse{Affiliations: make([]*AffiliationResponse, 0, len(affs))}
	for _, a := range affs {
		out.Affiliations = append(out.Affiliations, toAffiliationResponse(a))
	}
	return out
}

func toMemberListResponse(members []*models.Member) *AffiliationListResponse {
	out := &AffiliationListResponse{Affiliations: make([]*AffiliationResponse, 0, len(members))}
	for _, m := range members {
		res := toAffiliationResponse(m.Affiliation)
		res.OrgName = m.OrgName
		out.Affiliations = append(out.Affiliations, res)
	}
	return out
}

func toJoinRequestResponse(r *models.JoinRequest) *JoinRequestResponse {
	return &JoinRequestResponse{
		ID:          r.ID.String(),
		RequesterID: r.RequesterID.String(),
		OrgID:       r.OrgID.String(),
		Status:      r.Status,
		CreatedAt:   r.CreatedAt,
		ResolvedAt:  r.ResolvedAt,
	}
}

func toJoinRequestListResponse(reqs []*models.JoinRequest) *JoinRequestListResponse {
	out := &JoinRequestListResponse{JoinRequests: make([]*JoinRequestResponse, 0, len(reqs))}
	for _, r := range reqs {
		out.JoinRequests = append(out.JoinRequests, toJoinRequestResponse(r))
	}
	return out
}
