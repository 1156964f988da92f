package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"legitify/internal/account/models"
	id "legitify/pkg/domain"
	"legitify/pkg/platform/httputil"
	"legitify/pkg/requestcontext"
)

type Service interface {
	Register(ctx context.Context, cmd models.RegisterCommand) (*models.Account, error)
	Get(ctx context.Context, userID id.UserID) (*models.Account, error)
}

type AccountResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      id.Role   `json:"role"`
	LedgerOrg string    `json:"ledger_org"`
	CreatedAt time.Time `json:"created_at"`
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterPublic mounts routes that run without a caller.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Post("/accounts", h.HandleRegister)
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/accounts/me", h.HandleMe)
}

func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	req, ok := httputil.DecodeAndPrepare[RegisterRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	acc, err := h.service.Register(ctx, models.RegisterCommand{
		Email: req.Email,
		Name:  req.Name,
		Role:  id.Role(req.Role),
	})
	if err != nil {
		h.logger.WarnContext(ctx, "registration failed", "error", err, "request_id", requestID, "role", req.Role)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toAccountResponse(acc))
}

func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	caller, err := httputil.RequireCaller(ctx, h.logger, requestID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	acc, err := h.service.Get(ctx, caller.UserID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toAccountResponse(acc))
}

func toAccountResponse(a *models.Account) *AccountResponse {
	return &AccountResponse{
		ID:        a.ID.String(),
		Email:     a.Email,
		Name:      a.Name,
		Role:      a.Role,
		LedgerOrg: a.LedgerOrg,
		CreatedAt: a.CreatedAt,
	}
}
