package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"legitify/internal/credential/metrics"
	"legitify/internal/credential/models"
	identitymodels "legitify/internal/identity/models"
	"legitify/internal/integrity"
	"legitify/internal/ledger"
	"legitify/internal/ledger/anchor"
	id "legitify/pkg/domain"
	dErrors "legitify/pkg/domain-errors"
	"legitify/pkg/platform/middleware/requesttime"
	"legitify/pkg/platform/sentinel"
	"legitify/pkg/validation"
)

// Store persists credential documents.
// Error contract:
// - FindByID and Execute return sentinel.ErrNotFound for unknown IDs
// - Create returns sentinel.ErrAlreadyUsed for a duplicate ID
// - Execute returns validate's error unchanged
type Store interface {
	Create(ctx context.Context, doc *models.Document) error
	FindByID(ctx context.Context, docID id.DocumentID) (*models.Document, error)
	ListByHolder(ctx context.Context, holderID id.UserID, filter *models.Filter) ([]*models.Document, error)
	ListByIssuerOrg(ctx context.Context, orgID id.OrgID, filter *models.Filter) ([]*models.Document, error)
	Execute(ctx context.Context, docID id.DocumentID, validate func(*models.Document) error, mutate func(*models.Document)) (*models.Document, error)
}

// HolderDirectory resolves holder accounts by email. A miss is reported
// as a CodeNotFound domain error.
type HolderDirectory interface {
	FindHolderByEmail(ctx context.Context, email string) (id.UserID, error)
}

// Memberships answers issuer administration questions.
type Memberships interface {
	IsActiveAdmin(ctx context.Context, userID id.UserID, orgID id.OrgID) (bool, error)
}

// Anchorer accepts ledger tasks for asynchronous submission.
type Anchorer interface {
	Dispatch(ctx context.Context, task anchor.Task) bool
}

// LedgerVerifier asks the ledger whether a document was anchored with a hash.
type LedgerVerifier interface {
	VerifyHash(ctx context.Context, label, org, docID, hash string) (bool, error)
}

type Option func(*Service)

// Service runs the credential lifecycle: issuance, the holder's one-time
// decision and verification by holder email.
type Service struct {
	store          Store
	holders        HolderDirectory
	memberships    Memberships
	anchorer       Anchorer
	ledger         LedgerVerifier
	metrics        *metrics.Metrics
	logger         *slog.Logger
	maxPayloadSize int
}

func New(store Store, holders HolderDirectory, memberships Memberships, anchorer Anchorer, opts ...Option) *Service {
	svc := &Service{
		store:          store,
		holders:        holders,
		memberships:    memberships,
		anchorer:       anchorer,
		logger:         slog.Default(),
		maxPayloadSize: validation.MaxFileSize,
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

// WithLedgerVerifier enables the anchored hash cross-check on verification.
func WithLedgerVerifier(v LedgerVerifier) Option {
	return func(s *Service) {
		s.ledger = v
	}
}

// WithMaxPayloadSize caps issued payloads. Non-positive values keep the default.
func WithMaxPayloadSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.maxPayloadSize = size
		}
	}
}

func (s *Service) Issue(ctx context.Context, caller id.Caller, cmd models.IssueCommand) (*models.IssueResult, error) {
	if !caller.HasRole(id.RoleIssuer) {
		return nil, dErrors.New(dErrors.CodeForbidden, "only issuers can issue credentials")
	}
	if err := s.requireAdmin(ctx, caller); err != nil {
		return nil, err
	}

	now := requesttime.Now(ctx)
	if err := validation.CheckPayloadSize(len(cmd.Payload), s.maxPayloadSize); err != nil {
		return nil, err
	}
	if err := cmd.Attributes.Validate(now); err != nil {
		return nil, err
	}

	holderID, err := s.holders.FindHolderByEmail(ctx, cmd.HolderEmail)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "holder not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up holder")
	}

	if cmd.Supersedes != nil {
		if err := s.checkSupersedes(ctx, caller.OrgID, holderID, *cmd.Supersedes); err != nil {
			return nil, err
		}
	}

	hash := integrity.Hash(cmd.Payload)
	doc, err := models.NewDocument(id.DocumentID(uuid.New()), caller.UserID, caller.OrgID, holderID,
		cmd.Payload, hash, cmd.FileName, cmd.Attributes, cmd.Supersedes, now)
	if err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, doc); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.New(dErrors.CodeConflict, "document already exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save document")
	}

	attrArgs, err := cmd.Attributes.LedgerArgs()
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to render ledger arguments", "document_id", doc.ID, "error", err)
	} else {
		args := append([]string{doc.ID.String(), hash, holderID.String(), caller.UserID.String(), caller.OrgID.String()}, attrArgs...)
		s.anchor(ctx, caller, ledger.FnIssueCredential, doc.ID, args...)
	}

	s.logger.InfoContext(ctx, "credential issued",
		"log_type", "audit",
		"document_id", doc.ID,
		"issuer_id", caller.UserID,
		"org_id", caller.OrgID,
		"holder_id", holderID,
		"kind", cmd.Attributes.Kind,
	)
	if s.metrics != nil {
		s.metrics.IncrementIssued(string(cmd.Attributes.Kind))
		s.metrics.ObservePayloadSize(len(cmd.Payload))
	}
	return &models.IssueResult{DocumentID: doc.ID, Hash: hash}, nil
}

func (s *Service) Accept(ctx context.Context, caller id.Caller, docID id.DocumentID) (*models.Document, error) {
	return s.resolve(ctx, caller, docID, models.StatusAccepted, ledger.FnAcceptCredential)
}

func (s *Service) Deny(ctx context.Context, caller id.Caller, docID id.DocumentID) (*models.Document, error) {
	return s.resolve(ctx, caller, docID, models.StatusDenied, ledger.FnDenyCredential)
}

func (s *Service) resolve(ctx context.Context, caller id.Caller, docID id.DocumentID, to models.Status, fn string) (*models.Document, error) {
	now := requesttime.Now(ctx)
	doc, err := s.store.Execute(ctx, docID,
		func(d *models.Document) error {
			if d.HolderID != caller.UserID {
				return dErrors.New(dErrors.CodeForbidden, "only the holder can decide on a credential")
			}
			return d.EnsurePending()
		},
		func(d *models.Document) {
			d.MarkResolved(to, now)
		},
	)
	if err != nil {
		return nil, translateStoreErr(err, "failed to update document")
	}

	s.anchor(ctx, caller, fn, doc.ID, doc.ID.String())
	s.logger.InfoContext(ctx, "credential "+string(to),
		"log_type", "audit",
		"document_id", doc.ID,
		"holder_id", caller.UserID,
	)
	if s.metrics != nil {
		s.metrics.IncrementResolved(string(to))
	}
	return doc, nil
}

// VerifyByHolderEmail checks whether payload matches one of the holder's
// accepted credentials. A miss is a negative Verification, never an error.
func (s *Service) VerifyByHolderEmail(ctx context.Context, email string, payload []byte) (*models.Verification, error) {
	if len(payload) == 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "payload is required")
	}
	hash := integrity.Hash(payload)

	holderID, err := s.holders.FindHolderByEmail(ctx, email)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			s.countVerification(models.ReasonHolderNotFound)
			return &models.Verification{Hash: hash, Reason: models.ReasonHolderNotFound}, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up holder")
	}

	accepted := models.StatusAccepted
	docs, err := s.store.ListByHolder(ctx, holderID, &models.Filter{Status: &accepted})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list documents")
	}
	for _, doc := range docs {
		if integrity.Verify(payload, doc.Hash).Verified {
			s.countVerification("verified")
			return &models.Verification{
				Verified:       true,
				Hash:           hash,
				Document:       doc,
				LedgerVerified: s.ledgerCheck(ctx, doc, hash),
			}, nil
		}
	}
	s.countVerification(models.ReasonNoMatchingDocument)
	return &models.Verification{Hash: hash, Reason: models.ReasonNoMatchingDocument}, nil
}

// ledgerCheck asks the ledger to confirm hash for doc, evaluating as the
// holder. It returns nil when the ledger cannot answer.
func (s *Service) ledgerCheck(ctx context.Context, doc *models.Document, hash string) *bool {
	if s.ledger == nil {
		return nil
	}
	ok, err := s.ledger.VerifyHash(ctx, doc.HolderID.String(), identitymodels.OrgIndividual.Name, doc.ID.String(), hash)
	if err != nil {
		s.logger.WarnContext(ctx, "ledger cross-check unavailable",
			"document_id", doc.ID,
			"error", err,
		)
		return nil
	}
	if !ok {
		s.logger.WarnContext(ctx, "ledger does not confirm verified hash", "document_id", doc.ID, "hash", hash)
	}
	return &ok
}

// Get returns a document to its holder, its issuing user or an active
// administrator of the issuing organization.
func (s *Service) Get(ctx context.Context, caller id.Caller, docID id.DocumentID) (*models.Document, error) {
	doc, err := s.store.FindByID(ctx, docID)
	if err != nil {
		return nil, translateStoreErr(err, "failed to load document")
	}
	if doc.HolderID == caller.UserID || doc.IssuerID == caller.UserID {
		return doc, nil
	}
	if caller.HasRole(id.RoleIssuer) && caller.OrgID == doc.IssuerOrgID {
		ok, err := s.memberships.IsActiveAdmin(ctx, caller.UserID, doc.IssuerOrgID)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check membership")
		}
		if ok {
			return doc, nil
		}
	}
	return nil, dErrors.New(dErrors.CodeForbidden, "not permitted to read this credential")
}

func (s *Service) ListHeld(ctx context.Context, caller id.Caller, filter *models.Filter) ([]*models.Document, error) {
	if !caller.HasRole(id.RoleHolder) {
		return nil, dErrors.New(dErrors.CodeForbidden, "only holders have held credentials")
	}
	docs, err := s.store.ListByHolder(ctx, caller.UserID, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list documents")
	}
	return docs, nil
}

func (s *Service) ListIssued(ctx context.Context, caller id.Caller, filter *models.Filter) ([]*models.Document, error) {
	if !caller.HasRole(id.RoleIssuer) {
		return nil, dErrors.New(dErrors.CodeForbidden, "only issuers have issued credentials")
	}
	if err := s.requireAdmin(ctx, caller); err != nil {
		return nil, err
	}
	docs, err := s.store.ListByIssuerOrg(ctx, caller.OrgID, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list documents")
	}
	return docs, nil
}

func (s *Service) requireAdmin(ctx context.Context, caller id.Caller) error {
	if caller.OrgID.IsNil() {
		return dErrors.New(dErrors.CodeForbidden, "issuer is not affiliated with an organization")
	}
	ok, err := s.memberships.IsActiveAdmin(ctx, caller.UserID, caller.OrgID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check membership")
	}
	if !ok {
		return dErrors.New(dErrors.CodeForbidden, "issuer is not an active administrator of the organization")
	}
	return nil
}

func (s *Service) checkSupersedes(ctx context.Context, orgID id.OrgID, holderID id.UserID, prevID id.DocumentID) error {
	prev, err := s.store.FindByID(ctx, prevID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeInvalidInput, "superseded document does not exist")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load superseded document")
	}
	if prev.IssuerOrgID != orgID || prev.HolderID != holderID {
		return dErrors.New(dErrors.CodeInvalidInput, "superseded document belongs to another issuer or holder")
	}
	return nil
}

func (s *Service) anchor(ctx context.Context, caller id.Caller, fn string, docID id.DocumentID, args ...string) {
	if s.anchorer == nil {
		return
	}
	task, ok := anchor.TaskFor(caller, fn, docID.String(), args...)
	if !ok {
		s.logger.WarnContext(ctx, "no ledger organization for caller role", "role", caller.Role, "function", fn)
		return
	}
	s.anchorer.Dispatch(ctx, task)
}

func (s *Service) countVerification(outcome string) {
	if s.metrics != nil {
		s.metrics.IncrementVerification(outcome)
	}
}

// translateStoreErr maps store sentinels to domain errors exactly once.
// Domain errors raised by validate callbacks pass through untouched.
func translateStoreErr(err error, msg string) error {
	var de *dErrors.Error
	switch {
	case errors.As(err, &de):
		return err
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "document not found")
	case errors.Is(err, sentinel.ErrInvalidState):
		return dErrors.New(dErrors.CodeInvalidState, "document is not pending")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, msg)
	}
}
