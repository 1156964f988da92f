package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	accountmodels "legitify/internal/account/models"
	"legitify/internal/affiliation/metrics"
	"legitify/internal/affiliation/models"
	identitymodels "legitify/internal/identity/models"
	"legitify/internal/ledger"
	"legitify/internal/ledger/anchor"
	id "legitify/pkg/domain"
	dErrors "legitify/pkg/domain-errors"
	"legitify/pkg/platform/middleware/requesttime"
	"legitify/pkg/platform/sentinel"
	"legitify/pkg/platform/tx"
)

// Store persists organizations, affiliations and join requests.
// Error contract:
//   - Find* and Execute* return sentinel.ErrNotFound for unknown IDs
//   - Create* return sentinel.ErrAlreadyUsed when a uniqueness rule is hit
//   - ExecuteAffiliation returns sentinel.ErrAlreadyUsed when the update
//     would create a second active affiliation
//   - Execute* return validate's error unchanged
type Store interface {
	LockUser(ctx context.Context, userID id.UserID) error

	CreateOrganization(ctx context.Context, org *models.Organization) error
	FindOrganization(ctx context.Context, orgID id.OrgID) (*models.Organization, error)
	ListOrganizations(ctx context.Context) ([]*models.Organization, error)

	CreateAffiliation(ctx context.Context, aff *models.Affiliation) error
	FindAffiliation(ctx context.Context, affID id.AffiliationID) (*models.Affiliation, error)
	ExecuteAffiliation(ctx context.Context, affID id.AffiliationID, validate func(*models.Affiliation) error, mutate func(*models.Affiliation)) (*models.Affiliation, error)
	ListLiveAffiliations(ctx context.Context, userID id.UserID, role models.Role) ([]*models.Affiliation, error)
	ListAffiliationsByOrg(ctx context.Context, orgID id.OrgID) ([]*models.Affiliation, error)
	ListAffiliationsByUser(ctx context.Context, userID id.UserID) ([]*models.Member, error)
	IsActiveAdmin(ctx context.Context, userID id.UserID, orgID id.OrgID) (bool, error)
	ActivateAdmin(ctx context.Context, userID id.UserID, orgID id.OrgID, now time.Time) (*models.Affiliation, error)

	CreateJoinRequest(ctx context.Context, req *models.JoinRequest) error
	FindJoinRequest(ctx context.Context, reqID id.JoinRequestID) (*models.JoinRequest, error)
	ExecuteJoinRequest(ctx context.Context, reqID id.JoinRequestID, validate func(*models.JoinRequest) error, mutate func(*models.JoinRequest)) (*models.JoinRequest, error)
	ListJoinRequests(ctx context.Context, orgID id.OrgID, status *models.JoinStatus) ([]*models.JoinRequest, error)
	HasPendingJoinRequest(ctx context.Context, userID id.UserID) (bool, error)
}

// Accounts resolves registered accounts. Get returns a NotFound domain
// error for unknown users.
type Accounts interface {
	Get(ctx context.Context, userID id.UserID) (*accountmodels.Account, error)
}

// Enroller re-issues ledger identities.
type Enroller interface {
	Reenroll(ctx context.Context, label, org string) error
}

// Anchorer accepts ledger tasks for asynchronous submission.
type Anchorer interface {
	Dispatch(ctx context.Context, task anchor.Task) bool
}

type Option func(*Service)

// Service manages organizations, holder memberships and issuer
// administration. An issuer administers at most one organization.
type Service struct {
	store    Store
	tx       tx.Runner
	accounts Accounts
	enroller Enroller
	anchorer Anchorer
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

func New(store Store, runner tx.Runner, accounts Accounts, enroller Enroller, anchorer Anchorer, opts ...Option) *Service {
	svc := &Service{
		store:    store,
		tx:       runner,
		accounts: accounts,
		enroller: enroller,
		anchorer: anchorer,
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

// CreateOrganization registers an organization and makes the calling
// issuer its active administrator.
func (s *Service) CreateOrganization(ctx context.Context, caller id.Caller, name string) (*models.Organization, error) {
	if !caller.HasRole(id.RoleIssuer) {
		return nil, dErrors.New(dErrors.CodeForbidden, "only issuers can create organizations")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "organization name is required")
	}

	now := requesttime.Now(ctx)
	org, err := models.NewOrganization(id.OrgID(uuid.New()), name, caller.UserID, now)
	if err != nil {
		return nil, err
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.lockUser(ctx, caller.UserID); err != nil {
			return err
		}
		if err := s.ensureNotAdministering(ctx, caller.UserID, id.OrgID{}); err != nil {
			return err
		}
		if err := s.store.CreateOrganization(ctx, org); err != nil {
			if errors.Is(err, sentinel.ErrAlreadyUsed) {
				return dErrors.New(dErrors.CodeConflict, "organization name is already taken")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save organization")
		}
		if _, err := s.store.ActivateAdmin(ctx, caller.UserID, org.ID, now); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save administrator")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "organization created",
		"log_type", "audit",
		"org_id", org.ID,
		"owner_id", caller.UserID,
	)
	if s.metrics != nil {
		s.metrics.IncrementOrganizations()
	}
	return org, nil
}

func (s *Service) ListOrganizations(ctx context.Context) ([]*models.Organization, error) {
	orgs, err := s.store.ListOrganizations(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list organizations")
	}
	return orgs, nil
}

// ProposeAffiliation opens a pending member affiliation. When the
// organization initiates, the caller must administer orgID and targetID
// names the member. When the member initiates, the caller is the member.
func (s *Service) ProposeAffiliation(ctx context.Context, caller id.Caller, orgID id.OrgID, targetID id.UserID, by models.Initiator) (*models.Affiliation, error) {
	if _, err := s.store.FindOrganization(ctx, orgID); err != nil {
		return nil, translateStoreErr(err, "organization not found", "failed to load organization")
	}

	var memberID id.UserID
	switch by {
	case models.InitiatedByOrganization:
		if err := s.requireAdmin(ctx, caller, orgID); err != nil {
			return nil, err
		}
		if targetID.IsNil() {
			return nil, dErrors.New(dErrors.CodeInvalidInput, "member is required")
		}
		if targetID == caller.UserID {
			return nil, dErrors.New(dErrors.CodeInvalidInput, "administrators cannot affiliate themselves as members")
		}
		if err := s.requireHolder(ctx, targetID); err != nil {
			return nil, err
		}
		memberID = targetID
	case models.InitiatedByMember:
		if !caller.HasRole(id.RoleHolder) {
			return nil, dErrors.New(dErrors.CodeForbidden, "only holders can request membership")
		}
		if !targetID.IsNil() && targetID != caller.UserID {
			return nil, dErrors.New(dErrors.CodeInvalidInput, "members can only affiliate themselves")
		}
		memberID = caller.UserID
	default:
		return nil, dErrors.New(dErrors.CodeInvalidInput, "unknown initiator")
	}

	live, err := s.store.ListLiveAffiliations(ctx, memberID, models.RoleMember)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list affiliations")
	}
	for _, a := range live {
		if a.OrgID == orgID {
			return nil, dErrors.New(dErrors.CodeConflict, "affiliation already "+string(a.Status))
		}
	}

	aff, err := models.NewAffiliation(id.AffiliationID(uuid.New()), memberID, orgID,
		models.RoleMember, models.StatusPending, by, requesttime.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.store.CreateAffiliation(ctx, aff); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.New(dErrors.CodeConflict, "affiliation already pending")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save affiliation")
	}

	s.logger.InfoContext(ctx, "affiliation proposed",
		"log_type", "audit",
		"affiliation_id", aff.ID,
		"org_id", orgID,
		"member_id", memberID,
		"initiated_by", by,
	)
	if s.metrics != nil {
		s.metrics.IncrementProposed(string(by))
	}
	return aff, nil
}

// RespondToAffiliation lets the side that did not initiate accept or reject
// a pending affiliation. Accepting anchors the relationship on the ledger.
func (s *Service) RespondToAffiliation(ctx context.Context, caller id.Caller, affID id.AffiliationID, accept bool) (*models.Affiliation, error) {
	current, err := s.store.FindAffiliation(ctx, affID)
	if err != nil {
		return nil, translateStoreErr(err, "affiliation not found", "failed to load affiliation")
	}
	if current.RespondentIsMember() {
		if current.UserID != caller.UserID {
			return nil, dErrors.New(dErrors.CodeForbidden, "only the invited member can respond")
		}
	} else if err := s.requireAdmin(ctx, caller, current.OrgID); err != nil {
		return nil, err
	}

	now := requesttime.Now(ctx)
	aff, err := s.store.ExecuteAffiliation(ctx, affID,
		(*models.Affiliation).EnsurePending,
		func(a *models.Affiliation) {
			a.MarkResolved(accept, now)
		},
	)
	if err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.New(dErrors.CodeConflict, "affiliation already active")
		}
		return nil, translateStoreErr(err, "affiliation not found", "failed to update affiliation")
	}

	if accept && aff.Role == models.RoleMember {
		s.anchor(ctx, caller, ledger.FnAddIssuerHolderRelationship, aff.ID.String(),
			aff.UserID.String(), aff.OrgID.String())
	}
	s.logger.InfoContext(ctx, "affiliation "+string(aff.Status),
		"log_type", "audit",
		"affiliation_id", aff.ID,
		"org_id", aff.OrgID,
		"member_id", aff.UserID,
		"responder_id", caller.UserID,
	)
	if s.metrics != nil {
		s.metrics.IncrementResolved(string(aff.Status))
	}
	return aff, nil
}

// RequestJoin asks to become an administrator of orgID. An issuer may have
// one pending join request and administer one organization at a time.
func (s *Service) RequestJoin(ctx context.Context, caller id.Caller, orgID id.OrgID) (*models.JoinRequest, error) {
	if !caller.HasRole(id.RoleIssuer) {
		return nil, dErrors.New(dErrors.CodeForbidden, "only issuers can join organizations")
	}
	if _, err := s.store.FindOrganization(ctx, orgID); err != nil {
		return nil, translateStoreErr(err, "organization not found", "failed to load organization")
	}

	req, err := models.NewJoinRequest(id.JoinRequestID(uuid.New()), caller.UserID, orgID, requesttime.Now(ctx))
	if err != nil {
		return nil, err
	}
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.lockUser(ctx, caller.UserID); err != nil {
			return err
		}
		if err := s.ensureNotAdministering(ctx, caller.UserID, id.OrgID{}); err != nil {
			return err
		}
		pending, err := s.store.HasPendingJoinRequest(ctx, caller.UserID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check join requests")
		}
		if pending {
			return dErrors.New(dErrors.CodeConflict, "a join request is already pending")
		}
		if err := s.store.CreateJoinRequest(ctx, req); err != nil {
			if errors.Is(err, sentinel.ErrAlreadyUsed) {
				return dErrors.New(dErrors.CodeConflict, "a join request is already pending")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save join request")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "join request created",
		"log_type", "audit",
		"join_request_id", req.ID,
		"org_id", orgID,
		"requester_id", caller.UserID,
	)
	if s.metrics != nil {
		s.metrics.IncrementJoinRequests(string(models.JoinPending))
	}
	return req, nil
}

// RespondToJoinRequest resolves a pending join request. Approval activates
// the requester as an administrator and then re-enrolls their ledger
// identity under the issuing organization; a failed re-enrollment is logged
// and does not undo the approval.
func (s *Service) RespondToJoinRequest(ctx context.Context, caller id.Caller, reqID id.JoinRequestID, accept bool) (*models.JoinRequest, error) {
	current, err := s.store.FindJoinRequest(ctx, reqID)
	if err != nil {
		return nil, translateStoreErr(err, "join request not found", "failed to load join request")
	}
	if err := s.requireAdmin(ctx, caller, current.OrgID); err != nil {
		return nil, err
	}

	now := requesttime.Now(ctx)
	var resolved *models.JoinRequest
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if accept {
			if err := s.lockUser(ctx, current.RequesterID); err != nil {
				return err
			}
			if err := s.ensureNotAdministering(ctx, current.RequesterID, current.OrgID); err != nil {
				return err
			}
		}

		req, err := s.store.ExecuteJoinRequest(ctx, reqID,
			(*models.JoinRequest).EnsurePending,
			func(r *models.JoinRequest) {
				r.MarkResolved(accept, now)
			},
		)
		if err != nil {
			return translateStoreErr(err, "join request not found", "failed to update join request")
		}
		if accept {
			if _, err := s.store.ActivateAdmin(ctx, req.RequesterID, req.OrgID, now); err != nil {
				if errors.Is(err, sentinel.ErrAlreadyUsed) {
					return dErrors.New(dErrors.CodeConflict, "requester is already an administrator")
				}
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save administrator")
			}
		}
		resolved = req
		return nil
	})
	if err != nil {
		return nil, err
	}

	if accept {
		s.reenroll(ctx, resolved.RequesterID)
	}
	s.logger.InfoContext(ctx, "join request "+string(resolved.Status),
		"log_type", "audit",
		"join_request_id", resolved.ID,
		"org_id", resolved.OrgID,
		"requester_id", resolved.RequesterID,
		"responder_id", caller.UserID,
	)
	if s.metrics != nil {
		s.metrics.IncrementJoinRequests(string(resolved.Status))
	}
	return resolved, nil
}

// ListMembers returns every affiliation of orgID to one of its administrators.
func (s *Service) ListMembers(ctx context.Context, caller id.Caller, orgID id.OrgID) ([]*models.Affiliation, error) {
	if err := s.requireAdmin(ctx, caller, orgID); err != nil {
		return nil, err
	}
	affs, err := s.store.ListAffiliationsByOrg(ctx, orgID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list members")
	}
	return affs, nil
}

func (s *Service) ListForUser(ctx context.Context, caller id.Caller) ([]*models.Member, error) {
	members, err := s.store.ListAffiliationsByUser(ctx, caller.UserID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list affiliations")
	}
	return members, nil
}

func (s *Service) ListJoinRequests(ctx context.Context, caller id.Caller, orgID id.OrgID, status *models.JoinStatus) ([]*models.JoinRequest, error) {
	if err := s.requireAdmin(ctx, caller, orgID); err != nil {
		return nil, err
	}
	reqs, err := s.store.ListJoinRequests(ctx, orgID, status)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list join requests")
	}
	return reqs, nil
}

func (s *Service) IsActiveAdmin(ctx context.Context, userID id.UserID, orgID id.OrgID) (bool, error) {
	ok, err := s.store.IsActiveAdmin(ctx, userID, orgID)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check administrator")
	}
	return ok, nil
}

// AdminOrg returns the organization userID actively administers. The
// boolean is false when there is none.
func (s *Service) AdminOrg(ctx context.Context, userID id.UserID) (id.OrgID, bool, error) {
	live, err := s.store.ListLiveAffiliations(ctx, userID, models.RoleAdmin)
	if err != nil {
		return id.OrgID{}, false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list affiliations")
	}
	for _, a := range live {
		if a.Status == models.StatusActive {
			return a.OrgID, true, nil
		}
	}
	return id.OrgID{}, false, nil
}

func (s *Service) requireAdmin(ctx context.Context, caller id.Caller, orgID id.OrgID) error {
	if !caller.HasRole(id.RoleIssuer) {
		return dErrors.New(dErrors.CodeForbidden, "only organization administrators may do this")
	}
	ok, err := s.IsActiveAdmin(ctx, caller.UserID, orgID)
	if err != nil {
		return err
	}
	if !ok {
		return dErrors.New(dErrors.CodeForbidden, "not an active administrator of the organization")
	}
	return nil
}

// requireHolder fails with NotFound unless userID is a registered holder.
func (s *Service) requireHolder(ctx context.Context, userID id.UserID) error {
	acc, err := s.accounts.Get(ctx, userID)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "holder not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load account")
	}
	if acc.Role != id.RoleHolder {
		return dErrors.New(dErrors.CodeNotFound, "holder not found")
	}
	return nil
}

// ensureNotAdministering fails with Conflict when userID already holds a
// live admin affiliation with an organization other than except.
func (s *Service) ensureNotAdministering(ctx context.Context, userID id.UserID, except id.OrgID) error {
	live, err := s.store.ListLiveAffiliations(ctx, userID, models.RoleAdmin)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to list affiliations")
	}
	for _, a := range live {
		if a.OrgID != except {
			return dErrors.New(dErrors.CodeConflict, "issuer already administers an organization")
		}
	}
	return nil
}

func (s *Service) lockUser(ctx context.Context, userID id.UserID) error {
	if err := s.store.LockUser(ctx, userID); err != nil {
		return translateStoreErr(err, "account not found", "failed to lock account")
	}
	return nil
}

func (s *Service) reenroll(ctx context.Context, userID id.UserID) {
	if s.enroller == nil {
		return
	}
	org := identitymodels.OrgUniversity.Name
	if err := s.enroller.Reenroll(ctx, userID.String(), org); err != nil {
		s.logger.ErrorContext(ctx, "ledger re-enrollment failed after join approval",
			"user_id", userID,
			"org", org,
			"error", err,
		)
		if s.metrics != nil {
			s.metrics.IncrementReenrollFailures()
		}
	}
}

func (s *Service) anchor(ctx context.Context, caller id.Caller, fn, aggregate string, args ...string) {
	if s.anchorer == nil {
		return
	}
	task, ok := anchor.TaskFor(caller, fn, aggregate, args...)
	if !ok {
		s.logger.WarnContext(ctx, "no ledger organization for caller role", "role", caller.Role, "function", fn)
		return
	}
	s.anchorer.Dispatch(ctx, task)
}

// translateStoreErr maps store sentinels to domain errors exactly once.
// Domain errors raised by validate callbacks pass through untouched.
func translateStoreErr(err error, notFound, msg string) error {
	var de *dErrors.Error
	switch {
	case errors.As(err, &de):
		return err
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, notFound)
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, msg)
	}
}
