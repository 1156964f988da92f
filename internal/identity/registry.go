package identity

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"legitify/internal/identity/models"
	dErrors "legitify/pkg/domain-errors"
)

// Registry owns the per-organization wallets. It is constructed once at
// startup and shared by the enroller and the ledger connector.
type Registry struct {
	mu      sync.RWMutex
	wallets map[string]*Wallet
	logger  *slog.Logger
}

// NewRegistry opens a wallet for each organization.
func NewRegistry(ctx context.Context, store Store, orgs []models.Org, opts ...Option) (*Registry, error) {
	r := &Registry{wallets: make(map[string]*Wallet, len(orgs)), logger: slog.Default()}
	for _, org := range orgs {
		w, err := Open(ctx, org, store, opts...)
		if err != nil {
			return nil, err
		}
		r.wallets[org.Name] = w
		r.logger = w.logger
	}
	return r, nil
}

// Wallet returns the named organization's wallet.
func (r *Registry) Wallet(org string) (*Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.wallets[org]
	if !ok {
		return nil, dErrors.New(dErrors.CodeEnrollment, fmt.Sprintf("unknown ledger organization %q", org))
	}
	return w, nil
}

// Orgs lists the organizations served, sorted by name.
func (r *Registry) Orgs() []models.Org {
	r.mu.RLock()
	defer r.mu.RUnlock()
	orgs := make([]models.Org, 0, len(r.wallets))
	for _, w := range r.wallets {
		orgs = append(orgs, w.org)
	}
	sort.Slice(orgs, func(i, j int) bool { return orgs[i].Name < orgs[j].Name })
	return orgs
}

// Refresh applies a change broadcast by another replica.
// Changes for organizations this registry does not serve are ignored.
func (r *Registry) Refresh(ctx context.Context, change Change) error {
	r.mu.RLock()
	w, ok := r.wallets[change.Org]
	r.mu.RUnlock()
	if !ok {
		return nil
	}
	if err := w.refresh(ctx, change.Label); err != nil {
		return fmt.Errorf("refresh %s/%s: %w", change.Org, change.Label, err)
	}
	r.logger.DebugContext(ctx, "wallet entry refreshed", "org", change.Org, "label", change.Label)
	return nil
}
