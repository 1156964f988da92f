package identity

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"legitify/internal/identity/models"
	dErrors "legitify/pkg/domain-errors"
	"legitify/pkg/platform/middleware/requesttime"
	platformsync "legitify/pkg/platform/sync"
)

// CredentialSource provides externally provisioned admin material.
type CredentialSource interface {
	AdminCredential(org models.Org) (certificate, privateKey string, err error)
}

// Metrics counts enrollment outcomes.
type Metrics struct {
	Enrollments *prometheus.CounterVec
}

// NewMetrics registers identity metrics with the default registry.
func NewMetrics() *Metrics {
	return &Metrics{
		Enrollments: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "legitify_identity_enrollments_total",
			Help: "Ledger identity enrollments by organization and outcome",
		}, []string{"org", "outcome"}),
	}
}

func (m *Metrics) observe(org, outcome string) {
	if m == nil {
		return
	}
	m.Enrollments.WithLabelValues(org, outcome).Inc()
}

// Enroller imports admin identities and mints user identities.
//
// Every user identity in an organization is a copy of the organization
// admin's credential material (a single-CA trust model). Swapping in a real
// CA issuance step only changes mint.
type Enroller struct {
	registry *Registry
	source   CredentialSource
	metrics  *Metrics
	logger   *slog.Logger
	// labels serializes check-then-mint per org and label.
	labels *platformsync.ShardedMutex
}

type EnrollerOption func(*Enroller)

func WithEnrollerLogger(logger *slog.Logger) EnrollerOption {
	return func(e *Enroller) {
		e.logger = logger
	}
}

func WithEnrollerMetrics(m *Metrics) EnrollerOption {
	return func(e *Enroller) {
		e.metrics = m
	}
}

func NewEnroller(registry *Registry, source CredentialSource, opts ...EnrollerOption) *Enroller {
	e := &Enroller{
		registry: registry,
		source:   source,
		logger:   slog.Default(),
		labels:   platformsync.NewShardedMutex(0),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// EnsureAdmin imports the organization admin identity from the credential
// source unless it already exists. Returns true when an identity was imported.
func (e *Enroller) EnsureAdmin(ctx context.Context, org string) (bool, error) {
	w, err := e.registry.Wallet(org)
	if err != nil {
		return false, err
	}
	o := w.Org()
	lockKey := o.Name + "/" + o.AdminLabel()
	e.labels.Lock(lockKey)
	defer e.labels.Unlock(lockKey)

	if w.Exists(o.AdminLabel()) {
		e.logger.InfoContext(ctx, "admin identity already present", "org", org)
		return false, nil
	}
	if e.source == nil {
		return false, dErrors.New(dErrors.CodeEnrollment, "no admin credential source configured")
	}

	cert, key, err := e.source.AdminCredential(o)
	if err != nil {
		e.metrics.observe(org, "admin_failed")
		return false, dErrors.Wrap(err, dErrors.CodeEnrollment, fmt.Sprintf("admin credential for %s unavailable", org))
	}
	ident, err := models.NewIdentity(o.AdminLabel(), o, cert, key, requesttime.Now(ctx))
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeEnrollment, "invalid admin credential")
	}
	if err := w.Put(ctx, ident); err != nil {
		e.metrics.observe(org, "admin_failed")
		return false, err
	}
	e.metrics.observe(org, "admin_imported")
	e.logger.InfoContext(ctx, "admin identity imported", "org", org, "log_type", "audit")
	return true, nil
}

// EnsureAdmins runs EnsureAdmin for every organization in the registry.
func (e *Enroller) EnsureAdmins(ctx context.Context) error {
	for _, org := range e.registry.Orgs() {
		if _, err := e.EnsureAdmin(ctx, org.Name); err != nil {
			return err
		}
	}
	return nil
}

// EnrollUser gives label a ledger identity in org. It is a no-op when the
// identity already exists and fails with CodeEnrollment when the org admin
// has not been imported.
func (e *Enroller) EnrollUser(ctx context.Context, label, org string) error {
	w, err := e.registry.Wallet(org)
	if err != nil {
		return err
	}
	return e.labels.WithLock(org+"/"+label, func() error {
		if w.Exists(label) {
			e.metrics.observe(org, "already_enrolled")
			return nil
		}
		return e.mint(ctx, w, label, "enrolled")
	})
}

// Reenroll replaces label's identity in org with freshly minted material.
func (e *Enroller) Reenroll(ctx context.Context, label, org string) error {
	w, err := e.registry.Wallet(org)
	if err != nil {
		return err
	}
	return e.labels.WithLock(org+"/"+label, func() error {
		return e.mint(ctx, w, label, "reenrolled")
	})
}

func (e *Enroller) mint(ctx context.Context, w *Wallet, label, outcome string) error {
	o := w.Org()
	admin, ok := w.Identity(o.AdminLabel())
	if !ok {
		e.metrics.observe(o.Name, "admin_missing")
		return dErrors.New(dErrors.CodeEnrollment, fmt.Sprintf("admin for %s must be enrolled before registering users", o.Name))
	}

	ident, err := models.NewIdentity(label, o, admin.Certificate, admin.PrivateKey, requesttime.Now(ctx))
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeEnrollment, "invalid user identity")
	}
	if err := w.Put(ctx, ident); err != nil {
		e.metrics.observe(o.Name, "failed")
		return err
	}
	e.metrics.observe(o.Name, outcome)
	e.logger.InfoContext(ctx, "ledger identity "+outcome,
		"org", o.Name,
		"label", label,
		"log_type", "audit",
	)
	return nil
}
