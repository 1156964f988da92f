package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"legitify/internal/access/metrics"
	"legitify/internal/access/models"
	credmodels "legitify/internal/credential/models"
	identitymodels "legitify/internal/identity/models"
	"legitify/internal/integrity"
	"legitify/internal/ledger"
	"legitify/internal/ledger/anchor"
	id "legitify/pkg/domain"
	dErrors "legitify/pkg/domain-errors"
	"legitify/pkg/platform/middleware/requesttime"
	"legitify/pkg/platform/sentinel"
)

// Store persists access requests.
// Error contract:
//   - Create returns sentinel.ErrAlreadyUsed when a pending request for the
//     same (document, verifier) exists
//   - FindByID and Execute return sentinel.ErrNotFound for unknown IDs
type Store interface {
	Create(ctx context.Context, req *models.Request) error
	FindByID(ctx context.Context, reqID id.AccessRequestID) (*models.Request, error)
	ListByHolder(ctx context.Context, holderID id.UserID) ([]*models.Request, error)
	ListByVerifier(ctx context.Context, verifierID id.UserID) ([]*models.Request, error)
	HasGranted(ctx context.Context, docID id.DocumentID, verifierID id.UserID) (bool, error)
	Execute(ctx context.Context, reqID id.AccessRequestID, validate func(*models.Request) error, mutate func(*models.Request)) (*models.Request, error)
}

// Documents reads credential documents. FindByID returns sentinel.ErrNotFound
// for unknown IDs.
type Documents interface {
	FindByID(ctx context.Context, docID id.DocumentID) (*credmodels.Document, error)
}

type Anchorer interface {
	Dispatch(ctx context.Context, task anchor.Task) bool
}

// LedgerReader reads anchored credentials back from the ledger.
type LedgerReader interface {
	ReadCredential(ctx context.Context, label, org, docID string) (*ledger.Record, error)
}

type Option func(*Service)

// Service gates verifier access to accepted credentials on the holder's
// decision.
type Service struct {
	store     Store
	documents Documents
	anchorer  Anchorer
	ledger    LedgerReader
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

func New(store Store, documents Documents, anchorer Anchorer, opts ...Option) *Service {
	svc := &Service{
		store:     store,
		documents: documents,
		anchorer:  anchorer,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithLedgerReader enables the anchored hash cross-check in View.
func WithLedgerReader(r LedgerReader) Option {
	return func(s *Service) {
		s.ledger = r
	}
}

func (s *Service) RequestAccess(ctx context.Context, caller id.Caller, docID id.DocumentID) (*models.Request, error) {
	if !caller.HasRole(id.RoleVerifier) {
		return nil, dErrors.New(dErrors.CodeForbidden, "only verifiers can request access")
	}
	doc, err := s.findDocument(ctx, docID)
	if err != nil {
		return nil, err
	}
	if doc.Status != credmodels.StatusAccepted {
		return nil, dErrors.New(dErrors.CodeInvalidState, "credential has not been accepted by its holder")
	}

	req, err := models.NewRequest(id.AccessRequestID(uuid.New()), doc.ID, caller.UserID, doc.HolderID, requesttime.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, req); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.New(dErrors.CodeConflict, "a pending access request already exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save access request")
	}

	s.logger.InfoContext(ctx, "access requested",
		"log_type", "audit",
		"request_id", req.ID,
		"document_id", doc.ID,
		"verifier_id", caller.UserID,
	)
	if s.metrics != nil {
		s.metrics.IncrementCreated()
	}
	return req, nil
}

// GrantOrDeny resolves a pending request. Only the document's holder may
// decide, exactly once.
func (s *Service) GrantOrDeny(ctx context.Context, caller id.Caller, reqID id.AccessRequestID, granted bool) (*models.Request, error) {
	now := requesttime.Now(ctx)
	req, err := s.store.Execute(ctx, reqID,
		func(r *models.Request) error {
			if r.HolderID != caller.UserID {
				return dErrors.New(dErrors.CodeForbidden, "only the holder can resolve this request")
			}
			return r.EnsurePending()
		},
		func(r *models.Request) {
			r.MarkResolved(granted, now)
		},
	)
	if err != nil {
		return nil, translateStoreErr(err)
	}

	if granted && s.anchorer != nil {
		if task, ok := anchor.TaskFor(caller, ledger.FnGrantAccess, req.DocumentID.String(),
			req.DocumentID.String(), req.VerifierID.String()); ok {
			s.anchorer.Dispatch(ctx, task)
		}
	}
	s.logger.InfoContext(ctx, "access request "+string(req.Status),
		"log_type", "audit",
		"request_id", req.ID,
		"document_id", req.DocumentID,
		"verifier_id", req.VerifierID,
		"holder_id", caller.UserID,
	)
	if s.metrics != nil {
		s.metrics.IncrementResolved(string(req.Status))
	}
	return req, nil
}

// View serves the document payload to its issuer, its holder or a verifier
// holding a granted request, re-verifying the payload against the stored
// hash. A mismatch is reported in the view, not as an error.
func (s *Service) View(ctx context.Context, caller id.Caller, docID id.DocumentID) (*models.View, error) {
	doc, err := s.findDocument(ctx, docID)
	if err != nil {
		return nil, err
	}

	allowed := doc.IssuerID == caller.UserID || doc.HolderID == caller.UserID
	if !allowed && caller.HasRole(id.RoleVerifier) {
		allowed, err = s.store.HasGranted(ctx, doc.ID, caller.UserID)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check access")
		}
	}
	if !allowed {
		return nil, dErrors.New(dErrors.CodeForbidden, "access to this credential has not been granted")
	}

	res := integrity.Verify(doc.Payload, doc.Hash)
	if !res.Verified {
		s.logger.WarnContext(ctx, "stored payload does not match its hash",
			"document_id", doc.ID,
			"stored_hash", doc.Hash,
			"computed_hash", res.Hash,
		)
	}
	if s.metrics != nil {
		s.metrics.IncrementView(res.Verified)
	}
	return &models.View{
		Document:       doc,
		Payload:        doc.Payload,
		Verified:       res.Verified,
		Hash:           res.Hash,
		LedgerVerified: s.ledgerCheck(ctx, caller, doc),
	}, nil
}

// ledgerCheck compares the anchored hash with the stored one, reading as
// caller. It returns nil when the ledger cannot answer.
func (s *Service) ledgerCheck(ctx context.Context, caller id.Caller, doc *credmodels.Document) *bool {
	if s.ledger == nil {
		return nil
	}
	org, ok := identitymodels.OrgForRole(caller.Role)
	if !ok {
		return nil
	}
	rec, err := s.ledger.ReadCredential(ctx, caller.UserID.String(), org.Name, doc.ID.String())
	if err != nil {
		s.logger.WarnContext(ctx, "ledger cross-check unavailable",
			"document_id", doc.ID,
			"error", err,
		)
		return nil
	}
	match := strings.EqualFold(rec.DocHash, doc.Hash)
	if !match {
		s.logger.WarnContext(ctx, "anchored hash does not match stored hash",
			"document_id", doc.ID,
			"stored_hash", doc.Hash,
			"anchored_hash", rec.DocHash,
		)
	}
	return &match
}

func (s *Service) ListForHolder(ctx context.Context, caller id.Caller) ([]*models.Request, error) {
	if !caller.HasRole(id.RoleHolder) {
		return nil, dErrors.New(dErrors.CodeForbidden, "only holders receive access requests")
	}
	reqs, err := s.store.ListByHolder(ctx, caller.UserID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list access requests")
	}
	return reqs, nil
}

func (s *Service) ListForVerifier(ctx context.Context, caller id.Caller) ([]*models.Request, error) {
	if !caller.HasRole(id.RoleVerifier) {
		return nil, dErrors.New(dErrors.CodeForbidden, "only verifiers send access requests")
	}
	reqs, err := s.store.ListByVerifier(ctx, caller.UserID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list access requests")
	}
	return reqs, nil
}

func (s *Service) findDocument(ctx context.Context, docID id.DocumentID) (*credmodels.Document, error) {
	doc, err := s.documents.FindByID(ctx, docID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "document not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load document")
	}
	return doc, nil
}

func translateStoreErr(err error) error {
	var de *dErrors.Error
	switch {
	case errors.As(err, &de):
		return err
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "access request not found")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update access request")
	}
}
