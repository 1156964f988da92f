package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"legitify/internal/credential/models"
	id "legitify/pkg/domain"
	"legitify/pkg/platform/httputil"
	"legitify/pkg/requestcontext"
)

// Service defines the credential operations exposed over HTTP.
type Service interface {
	Issue(ctx context.Context, caller id.Caller, cmd models.IssueCommand) (*models.IssueResult, error)
	Accept(ctx context.Context, caller id.Caller, docID id.DocumentID) (*models.Document, error)
	Deny(ctx context.Context, caller id.Caller, docID id.DocumentID) (*models.Document, error)
	VerifyByHolderEmail(ctx context.Context, email string, payload []byte) (*models.Verification, error)
	Get(ctx context.Context, caller id.Caller, docID id.DocumentID) (*models.Document, error)
	ListHeld(ctx context.Context, caller id.Caller, filter *models.Filter) ([]*models.Document, error)
	ListIssued(ctx context.Context, caller id.Caller, filter *models.Filter) ([]*models.Document, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the credential routes. All of them require an
// authenticated caller.
func (h *Handler) Register(r chi.Router) {
	r.Post("/credentials", h.HandleIssue)
	r.Post("/credentials/verify", h.HandleVerify)
	r.Get("/credentials/held", h.HandleListHeld)
	r.Get("/credentials/issued", h.HandleListIssued)
	r.Get("/credentials/{id}", h.HandleGet)
	r.Post("/credentials/{id}/accept", h.HandleAccept)
	r.Post("/credentials/{id}/deny", h.HandleDeny)
}

func (h *Handler) HandleIssue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	caller, err := httputil.RequireCaller(ctx, h.logger, requestID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.DecodeAndPrepare[IssueRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	cmd, err := req.ToCommand()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	res, err := h.service.Issue(ctx, caller, cmd)
	if err != nil {
		h.logger.WarnContext(ctx, "issue credential failed", "error", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, &IssueResponse{
		DocumentID: res.DocumentID.String(),
		Hash:       res.Hash,
	})
}

func (h *Handler) HandleAccept(w http.ResponseWriter, r *http.Request) {
	h.handleDecision(w, r, h.service.Accept, "accept")
}

func (h *Handler) HandleDeny(w http.ResponseWriter, r *http.Request) {
	h.handleDecision(w, r, h.service.Deny, "deny")
}

type decisionFunc func(ctx context.Context, caller id.Caller, docID id.DocumentID) (*models.Document, error)

func (h *Handler) handleDecision(w http.ResponseWriter, r *http.Request, decide decisionFunc, action string) {
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

	doc, err := decide(ctx, caller, docID)
	if err != nil {
		h.logger.WarnContext(ctx, action+" credential failed", "error", err, "request_id", requestID, "document_id", docID)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toDocumentResponse(doc))
}

func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	if _, err := httputil.RequireCaller(ctx, h.logger, requestID); err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.DecodeAndPrepare[VerifyRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	v, err := h.service.VerifyByHolderEmail(ctx, req.HolderEmail, req.Payload)
	if err != nil {
		h.logger.ErrorContext(ctx, "verify credential failed", "error", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toVerifyResponse(v))
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
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

	doc, err := h.service.Get(ctx, caller, docID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toDocumentResponse(doc))
}

func (h *Handler) HandleListHeld(w http.ResponseWriter, r *http.Request) {
	h.handleList(w, r, h.service.ListHeld)
}

func (h *Handler) HandleListIssued(w http.ResponseWriter, r *http.Request) {
	h.handleList(w, r, h.service.ListIssued)
}

type listFunc func(ctx context.Context, caller id.Caller, filter *models.Filter) ([]*models.Document, error)

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request, list listFunc) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	caller, err := httputil.RequireCaller(ctx, h.logger, requestID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	filter, err := parseStatusFilter(r.URL.Query().Get("status"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	docs, err := list(ctx, caller, filter)
	if err != nil {
		h.logger.WarnContext(ctx, "list credentials failed", "error", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toDocumentListResponse(docs))
}
