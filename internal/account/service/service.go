package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"legitify/internal/account/metrics"
	"legitify/internal/account/models"
	identitymodels "legitify/internal/identity/models"
	id "legitify/pkg/domain"
	dErrors "legitify/pkg/domain-errors"
	"legitify/pkg/platform/middleware/requesttime"
	"legitify/pkg/platform/sentinel"
)

// Store persists accounts.
// Error contract:
// - FindByID and FindByEmail return sentinel.ErrNotFound on a miss
// - Create returns sentinel.ErrAlreadyUsed for a duplicate email
type Store interface {
	Create(ctx context.Context, acc *models.Account) error
	FindByID(ctx context.Context, userID id.UserID) (*models.Account, error)
	FindByEmail(ctx context.Context, email string) (*models.Account, error)
}

// Enroller creates ledger identities for new accounts.
type Enroller interface {
	EnrollUser(ctx context.Context, label, org string) error
}

type Option func(*Service)

// Service registers accounts and enrolls each one in the ledger
// organization of its role before the account row exists.
type Service struct {
	store    Store
	enroller Enroller
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

func New(store Store, enroller Enroller, opts ...Option) *Service {
	svc := &Service{
		store:    store,
		enroller: enroller,
		logger:   slog.Default(),
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

// Register enrolls the ledger identity first; an enrollment failure leaves
// no account behind.
func (s *Service) Register(ctx context.Context, cmd models.RegisterCommand) (*models.Account, error) {
	org, ok := identitymodels.OrgForRole(cmd.Role)
	if !ok {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "role must be issuer, holder or verifier")
	}
	email := models.NormalizeEmail(cmd.Email)
	if email == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "email is required")
	}

	if _, err := s.store.FindByEmail(ctx, email); err == nil {
		s.count(cmd.Role, "conflict")
		return nil, dErrors.New(dErrors.CodeConflict, "email is already registered")
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up account")
	}

	acc, err := models.NewAccount(id.UserID(uuid.New()), email, cmd.Name, cmd.Role, org.Name, requesttime.Now(ctx))
	if err != nil {
		return nil, err
	}

	if err := s.enroller.EnrollUser(ctx, acc.ID.String(), org.Name); err != nil {
		s.count(cmd.Role, "enrollment_failed")
		s.logger.ErrorContext(ctx, "ledger enrollment failed",
			"user_id", acc.ID,
			"org", org.Name,
			"error", err,
		)
		if dErrors.HasCode(err, dErrors.CodeEnrollment) {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeEnrollment, "failed to enroll ledger identity")
	}

	if err := s.store.Create(ctx, acc); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			// Lost a registration race; the enrolled identity stays orphaned
			// under an unused label.
			s.logger.WarnContext(ctx, "registration raced on email", "user_id", acc.ID)
			s.count(cmd.Role, "conflict")
			return nil, dErrors.New(dErrors.CodeConflict, "email is already registered")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save account")
	}

	s.logger.InfoContext(ctx, "account registered",
		"log_type", "audit",
		"user_id", acc.ID,
		"role", acc.Role,
		"ledger_org", acc.LedgerOrg,
	)
	s.count(cmd.Role, "registered")
	return acc, nil
}

func (s *Service) Get(ctx context.Context, userID id.UserID) (*models.Account, error) {
	acc, err := s.store.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "account not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load account")
	}
	return acc, nil
}

// FindHolderByEmail resolves a holder account. Accounts of other roles are
// reported as not found.
func (s *Service) FindHolderByEmail(ctx context.Context, email string) (id.UserID, error) {
	acc, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return id.UserID{}, dErrors.New(dErrors.CodeNotFound, "holder not found")
		}
		return id.UserID{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up holder")
	}
	if acc.Role != id.RoleHolder {
		return id.UserID{}, dErrors.New(dErrors.CodeNotFound, "holder not found")
	}
	return acc.ID, nil
}

func (s *Service) count(role id.Role, outcome string) {
	if s.metrics != nil {
		s.metrics.IncrementRegistration(string(role), outcome)
	}
}
