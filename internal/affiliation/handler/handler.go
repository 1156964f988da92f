package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"legitify/internal/affiliation/models"
	id "legitify/pkg/domain"
	"legitify/pkg/platform/httputil"
	"legitify/pkg/requestcontext"
)

// Service defines the organization and membership operations exposed over HTTP.
type Service interface {
	CreateOrganization(ctx context.Context, caller id.Caller, name string) (*models.Organization, error)
	ListOrganizations(ctx context.Context) ([]*models.Organization, error)
	ProposeAffiliation(ctx context.Context, caller id.Caller, orgID id.OrgID, targetID id.UserID, by models.Initiator) (*models.Affiliation, error)
	RespondToAffiliation(ctx context.Context, caller id.Caller, affID id.AffiliationID, accept bool) (*models.Affiliation, error)
	RequestJoin(ctx context.Context, caller id.Caller, orgID id.OrgID) (*models.JoinRequest, error)
	RespondToJoinRequest(ctx context.Context, caller id.Caller, reqID id.JoinRequestID, accept bool) (*models.JoinRequest, error)
	ListMembers(ctx context.Context, caller id.Caller, orgID id.OrgID) ([]*models.Affiliation, error)
	ListForUser(ctx context.Context, caller id.Caller) ([]*models.Member, error)
	ListJoinRequests(ctx context.Context, caller id.Caller, orgID id.OrgID, status *models.JoinStatus) ([]*models.JoinRequest, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/organizations", h.HandleListOrganizations)
	r.Post("/organizations", h.HandleCreateOrganization)
	r.Get("/organizations/{id}/affiliations", h.HandleListMembers)
	r.Post("/organizations/{id}/affiliations", h.HandlePropose)
	r.Get("/organizations/{id}/join-requests", h.HandleListJoinRequests)
	r.Post("/organizations/{id}/join-requests", h.HandleRequestJoin)
	r.Get("/affiliations", h.HandleListMine)
	r.Post("/affiliations/{id}/respond", h.HandleRespondAffiliation)
	r.Post("/join-requests/{id}/respond", h.HandleRespondJoinRequest)
}

func (h *Handler) HandleCreateOrganization(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	caller, err := httputil.RequireCaller(ctx, h.logger, requestID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[CreateOrganizationRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	org, err := h.service.CreateOrganization(ctx, caller, req.Name)
	if err != nil {
		h.logger.WarnContext(ctx, "create organization failed", "error", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toOrganizationResponse(org))
}

func (h *Handler) HandleListOrganizations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	if _, err := httputil.RequireCaller(ctx, h.logger, requestID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	orgs, err := h.service.ListOrganizations(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toOrganizationListResponse(orgs))
}

func (h *Handler) HandlePropose(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	caller, err := httputil.RequireCaller(ctx, h.logger, requestID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	orgID, err := id.ParseOrgID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[ProposeRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	var target id.UserID
	if req.UserID != "" {
		if target, err = id.ParseUserID(req.UserID); err != nil {
			httputil.WriteError(w, err)
			return
		}
	}
	by := models.Initiator(req.InitiatedBy)
	if by == "" {
		by = models.InitiatedByOrganization
		if caller.HasRole(id.RoleHolder) {
			by = models.InitiatedByMember
		}
	}

	aff, err := h.service.ProposeAffiliation(ctx, caller, orgID, target, by)
	if err != nil {
		h.logger.WarnContext(ctx, "propose affiliation failed", "error", err, "request_id", requestID, "org_id", orgID)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toAffiliationResponse(aff))
}

func (h *Handler) HandleRespondAffiliation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	caller, err := httputil.RequireCaller(ctx, h.logger, requestID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	affID, err := id.ParseAffiliationID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[RespondRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	aff, err := h.service.RespondToAffiliation(ctx, caller, affID, *req.Accept)
	if err != nil {
		h.logger.WarnContext(ctx, "respond to affiliation failed", "error", err, "request_id", requestID, "affiliation_id", affID)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toAffiliationResponse(aff))
}

func (h *Handler) HandleRequestJoin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	caller, err := httputil.RequireCaller(ctx, h.logger, requestID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	orgID, err := id.ParseOrgID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, err := h.service.RequestJoin(ctx, caller, orgID)
	if err != nil {
		h.logger.WarnContext(ctx, "join request failed", "error", err, "request_id", requestID, "org_id", orgID)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toJoinRequestResponse(req))
}

func (h *Handler) HandleRespondJoinRequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	caller, err := httputil.RequireCaller(ctx, h.logger, requestID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	reqID, err := id.ParseJoinRequestID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[RespondRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	resolved, err := h.service.RespondToJoinRequest(ctx, caller, reqID, *req.Accept)
	if err != nil {
		h.logger.WarnContext(ctx, "respond to join request failed", "error", err, "request_id", requestID, "join_request_id", reqID)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toJoinRequestResponse(resolved))
}

func (h *Handler) HandleListMembers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	caller, err := httputil.RequireCaller(ctx, h.logger, requestID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	orgID, err := id.ParseOrgID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	affs, err := h.service.ListMembers(ctx, caller, orgID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toAffiliationListResponse(affs))
}

func (h *Handler) HandleListMine(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	caller, err := httputil.RequireCaller(ctx, h.logger, requestID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	members, err := h.service.ListForUser(ctx, caller)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toMemberListResponse(members))
}

func (h *Handler) HandleListJoinRequests(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	caller, err := httputil.RequireCaller(ctx, h.logger, requestID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	orgID, err := id.ParseOrgID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	status, err := parseJoinStatus(r.URL.Query().Get("status"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	reqs, err := h.service.ListJoinRequests(ctx, caller, orgID, status)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toJoinRequestListResponse(reqs))
}
