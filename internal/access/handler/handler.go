package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"legitify/internal/access/models"
	id "legitify/pkg/domain"
	"legitify/pkg/platform/httputil"
	"legitify/pkg/requestcontext"
)

// Service defines the access control operations exposed over HTTP.
type Service interface {
	RequestAccess(ctx context.Context, caller id.Caller, docID id.DocumentID) (*models.Request, error)
	GrantOrDeny(ctx context.Context, caller id.Caller, reqID id.AccessRequestID, granted bool) (*models.Request, error)
	View(ctx context.Context, caller id.Caller, docID id.DocumentID) (*models.View, error)
	ListForHolder(ctx context.Context, caller id.Caller) ([]*models.Request, error)
	ListForVerifier(ctx context.Context, caller id.Caller) ([]*models.Request, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/access-requests", h.HandleCreate)
	r.Get("/access-requests/incoming", h.HandleListIncoming)
	r.Get("/access-requests/outgoing", h.HandleListOutgoing)
	r.Post("/access-requests/{id}/grant", h.HandleGrant)
	r.Post("/access-requests/{id}/deny", h.HandleDeny)
	r.Get("/credentials/{id}/view", h.HandleView)
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	caller, err := httputil.RequireCaller(ctx, h.logger, requestID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[CreateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	docID, err := id.ParseDocumentID(req.DocumentID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	created, err := h.service.RequestAccess(ctx, caller, docID)
	if err != nil {
		h.logger.WarnContext(ctx, "request access failed", "error", err, "request_id", requestID, "document_id", docID)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toRequestResponse(created))
}

func (h *Handler) HandleGrant(w http.ResponseWriter, r *http.Request) {
	h.handleResolve(w, r, true)
}

func (h *Handler) HandleDeny(w http.ResponseWriter, r *http.Request) {
	h.handleResolve(w, r, false)
}

func (h *Handler) handleResolve(w http.ResponseWriter, r *http.Request, granted bool) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	caller, err := httputil.RequireCaller(ctx, h.logger, requestID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	reqID, err := id.ParseAccessRequestID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	resolved, err := h.service.GrantOrDeny(ctx, caller, reqID, granted)
	if err != nil {
		h.logger.WarnContext(ctx, "resolve access request failed", "error", err, "request_id", requestID, "access_request_id", reqID)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toRequestResponse(resolved))
}

func (h *Handler) HandleView(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	caller, err := httputil.RequireCaller(ctx, h.logger, requestID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	docID, err := id.ParseDocumentID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	view, err := h.service.View(ctx, caller, docID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toViewResponse(view))
}

func (h *Handler) HandleListIncoming(w http.ResponseWriter, r *http.Request) {
	h.handleList(w, r, h.service.ListForHolder)
}

func (h *Handler) HandleListOutgoing(w http.ResponseWriter, r *http.Request) {
	h.handleList(w, r, h.service.ListForVerifier)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request, list func(context.Context, id.Caller) ([]*models.Request, error)) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	caller, err := httputil.RequireCaller(ctx, h.logger, requestID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	reqs, err := list(ctx, caller)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toRequestListResponse(reqs))
}
