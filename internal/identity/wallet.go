// Package identity bridges application users to ledger signing identities.
//
// Identities are persisted in the relational store and mirrored into an
// in-memory fabric-sdk-go wallet per organization. The mirror exists because
// the SDK resolves identities through its wallet abstraction; the store is the
// durable copy. Every mutation goes through Wallet.Put or Wallet.Remove, which
// write the store first and only then the mirror.
package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/hyperledger/fabric-sdk-go/pkg/gateway"

	"legitify/internal/identity/models"
	dErrors "legitify/pkg/domain-errors"
	"legitify/pkg/platform/sentinel"
)

// Store is the durable identity store.
// Get returns sentinel.ErrNotFound when no identity exists for (label, org).
type Store interface {
	Get(ctx context.Context, label, org string) (*models.Identity, error)
	Put(ctx context.Context, ident *models.Identity) error
	List(ctx context.Context, org string) ([]string, error)
	ListIdentities(ctx context.Context, org string) ([]*models.Identity, error)
	Remove(ctx context.Context, label, org string) error
}

// Change describes a committed wallet mutation, broadcast so other replicas
// can refresh their mirror.
type Change struct {
	Org     string `json:"org"`
	Label   string `json:"label"`
	Removed bool   `json:"removed,omitempty"`
	Origin  string `json:"origin,omitempty"`
}

// ChangePublisher broadcasts committed wallet mutations.
type ChangePublisher interface {
	PublishChange(ctx context.Context, change Change) error
}

// Wallet is one organization's identity wallet.
type Wallet struct {
	org       models.Org
	store     Store
	mem       *gateway.Wallet
	publisher ChangePublisher
	logger    *slog.Logger

	// mu serializes write-through so store and mirror apply mutations in the same order.
	mu sync.Mutex
}

// Option configures a Wallet.
type Option func(*Wallet)

func WithLogger(logger *slog.Logger) Option {
	return func(w *Wallet) {
		w.logger = logger
	}
}

func WithChangePublisher(p ChangePublisher) Option {
	return func(w *Wallet) {
		w.publisher = p
	}
}

// Open builds the organization's wallet and bulk-loads every persisted identity into it.
func Open(ctx context.Context, org models.Org, store Store, opts ...Option) (*Wallet, error) {
	w := &Wallet{
		org:    org,
		store:  store,
		mem:    gateway.NewInMemoryWallet(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}

	idents, err := store.ListIdentities(ctx, org.Name)
	if err != nil {
		return nil, fmt.Errorf("load identities for %s: %w", org.Name, err)
	}
	for _, ident := range idents {
		if err := w.mem.Put(ident.Label, toSDK(ident)); err != nil {
			return nil, fmt.Errorf("mirror identity %s/%s: %w", org.Name, ident.Label, err)
		}
	}
	w.logger.InfoContext(ctx, "identity wallet loaded",
		"org", org.Name,
		"identities", len(idents),
	)
	return w, nil
}

// Org returns the organization this wallet serves.
func (w *Wallet) Org() models.Org {
	return w.org
}

// Get returns the SDK identity mirrored for label.
func (w *Wallet) Get(label string) (gateway.Identity, error) {
	return w.mem.Get(label)
}

// SDK returns the read-only view handed to gateway.WithIdentity.
func (w *Wallet) SDK() *SDKWallet {
	return &SDKWallet{wallet: w}
}

// Exists reports whether the mirror holds an identity for label.
func (w *Wallet) Exists(label string) bool {
	return w.mem.Exists(label)
}

// List returns the labels held in the mirror.
func (w *Wallet) List() ([]string, error) {
	return w.mem.List()
}

// Identity returns the mirrored identity for label, or false when absent.
func (w *Wallet) Identity(label string) (*models.Identity, bool) {
	if !w.mem.Exists(label) {
		return nil, false
	}
	sdkID, err := w.mem.Get(label)
	if err != nil {
		return nil, false
	}
	x509, ok := sdkID.(*gateway.X509Identity)
	if !ok {
		return nil, false
	}
	return &models.Identity{
		Label:       label,
		OrgName:     w.org.Name,
		MSPID:       x509.MspID,
		Type:        models.X509Type,
		Certificate: x509.Certificate(),
		PrivateKey:  x509.Key(),
	}, true
}

// Put persists ident and then mirrors it. When the store write fails the
// mirror is left untouched and the error is returned.
func (w *Wallet) Put(ctx context.Context, ident *models.Identity) error {
	if ident.OrgName != w.org.Name {
		return dErrors.New(dErrors.CodeInvariantViolation, "identity belongs to a different organization")
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.store.Put(ctx, ident); err != nil {
		return dErrors.Wrap(err, dErrors.CodeEnrollment, "failed to persist ledger identity")
	}
	// The in-memory wallet only fails when an identity cannot be encoded,
	// which an X509 identity built by toSDK never hits.
	if err := w.mem.Put(ident.Label, toSDK(ident)); err != nil {
		return dErrors.Wrap(err, dErrors.CodeEnrollment, "failed to mirror ledger identity")
	}
	w.publish(ctx, Change{Org: w.org.Name, Label: ident.Label})
	return nil
}

// Remove deletes the identity from the store and then from the mirror.
func (w *Wallet) Remove(ctx context.Context, label string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.store.Remove(ctx, label, w.org.Name); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to remove ledger identity")
	}
	if w.mem.Exists(label) {
		if err := w.mem.Remove(label); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to remove mirrored identity")
		}
	}
	w.publish(ctx, Change{Org: w.org.Name, Label: label, Removed: true})
	return nil
}

// refresh re-reads label from the store into the mirror. Used when another
// replica reports a change.
func (w *Wallet) refresh(ctx context.Context, label string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	ident, err := w.store.Get(ctx, label, w.org.Name)
	if errors.Is(err, sentinel.ErrNotFound) {
		if w.mem.Exists(label) {
			return w.mem.Remove(label)
		}
		return nil
	}
	if err != nil {
		return err
	}
	return w.mem.Put(label, toSDK(ident))
}

func (w *Wallet) publish(ctx context.Context, change Change) {
	if w.publisher == nil {
		return
	}
	if err := w.publisher.PublishChange(ctx, change); err != nil {
		w.logger.WarnContext(ctx, "failed to broadcast wallet change",
			"org", change.Org,
			"label", change.Label,
			"error", err,
		)
	}
}

func toSDK(ident *models.Identity) *gateway.X509Identity {
	return gateway.NewX509Identity(ident.MSPID, ident.Certificate, ident.PrivateKey)
}

// SDKWallet exposes a Wallet through the SDK's wallet method set. Lookups go
// to the mirror; mutations are refused so every write goes through
// Wallet.Put and Wallet.Remove.
type SDKWallet struct {
	wallet *Wallet
}

var errReadOnlyWallet = errors.New("ledger wallet is read-only to the SDK; use identity.Wallet")

func (v *SDKWallet) Get(label string) (gateway.Identity, error) {
	return v.wallet.Get(label)
}

func (v *SDKWallet) Exists(label string) bool {
	return v.wallet.Exists(label)
}

func (v *SDKWallet) List() ([]string, error) {
	return v.wallet.List()
}

func (v *SDKWallet) Put(string, gateway.Identity) error {
	return errReadOnlyWallet
}

func (v *SDKWallet) Remove(string) error {
	return errReadOnlyWallet
}
