package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"legitify/internal/affiliation/models"
	id "legitify/pkg/domain"
	"legitify/pkg/platform/pgutil"
	"legitify/pkg/platform/sentinel"
	txcontext "legitify/pkg/platform/tx"
)

// PostgresStore persists organizations, affiliations and join requests.
// Uniqueness rules live in partial indexes; violations surface as
// sentinel.ErrAlreadyUsed.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// LockUser takes a row lock on the account for the rest of the ambient
// transaction. Outside a transaction the lock is released immediately.
func (s *PostgresStore) LockUser(ctx context.Context, userID id.UserID) error {
	var locked uuid.UUID
	err := s.execer(ctx).QueryRowContext(ctx,
		`SELECT id FROM accounts WHERE id = $1 FOR UPDATE`, uuid.UUID(userID),
	).Scan(&locked)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return sentinel.ErrNotFound
		}
		return fmt.Errorf("lock account: %w", err)
	}
	return nil
}

// Organizations

func (s *PostgresStore) CreateOrganization(ctx context.Context, org *models.Organization) error {
	_, err := s.execer(ctx).ExecContext(ctx,
		`INSERT INTO organizations (id, name, owner_id, created_at) VALUES ($1, $2, $3, $4)`,
		uuid.UUID(org.ID), org.Name, uuid.UUID(org.OwnerID), org.CreatedAt,
	)
	if err != nil {
		if pgutil.IsUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("insert organization: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindOrganization(ctx context.Context, orgID id.OrgID) (*models.Organization, error) {
	org, err := scanOrganization(s.execer(ctx).QueryRowContext(ctx,
		`SELECT id, name, owner_id, created_at FROM organizations WHERE id = $1`, uuid.UUID(orgID),
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find organization: %w", err)
	}
	return org, nil
}

func (s *PostgresStore) ListOrganizations(ctx context.Context) ([]*models.Organization, error) {
	rows, err := s.execer(ctx).QueryContext(ctx,
		`SELECT id, name, owner_id, created_at FROM organizations ORDER BY LOWER(name)`)
	if err != nil {
		return nil, fmt.Errorf("list organizations: %w", err)
	}
	defer rows.Close()

	var out []*models.Organization
	for rows.Next() {
		org, err := scanOrganization(rows)
		if err != nil {
			return nil, fmt.Errorf("scan organization: %w", err)
		}
		out = append(out, org)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate organizations: %w", err)
	}
	return out, nil
}

// Affiliations

const affiliationColumns = `id, user_id, org_id, role, status, initiated_by, created_at, updated_at`

func (s *PostgresStore) CreateAffiliation(ctx context.Context, aff *models.Affiliation) error {
	query := `INSERT INTO affiliations (` + affiliationColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(aff.ID),
		uuid.UUID(aff.UserID),
		uuid.UUID(aff.OrgID),
		string(aff.Role),
		string(aff.Status),
		string(aff.InitiatedBy),
		aff.CreatedAt,
		aff.UpdatedAt,
	)
	if err != nil {
		if pgutil.IsUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("insert affiliation: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindAffiliation(ctx context.Context, affID id.AffiliationID) (*models.Affiliation, error) {
	query := `SELECT ` + affiliationColumns + ` FROM affiliations WHERE id = $1`
	aff, err := scanAffiliation(s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(affID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find affiliation: %w", err)
	}
	return aff, nil
}

// ExecuteAffiliation locks the affiliation row, runs validate, applies
// mutate and writes the status back.
func (s *PostgresStore) ExecuteAffiliation(ctx context.Context, affID id.AffiliationID, validate func(*models.Affiliation) error, mutate func(*models.Affiliation)) (*models.Affiliation, error) {
	var out *models.Affiliation
	err := s.inTx(ctx, "affiliation", func(tx *sql.Tx) error {
		query := `SELECT ` + affiliationColumns + ` FROM affiliations WHERE id = $1 FOR UPDATE`
		aff, err := scanAffiliation(tx.QueryRowContext(ctx, query, uuid.UUID(affID)))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return sentinel.ErrNotFound
			}
			return fmt.Errorf("find affiliation for execute: %w", err)
		}
		if err := validate(aff); err != nil {
			return err
		}
		mutate(aff)

		_, err = tx.ExecContext(ctx,
			`UPDATE affiliations SET status = $2, updated_at = $3 WHERE id = $1`,
			uuid.UUID(aff.ID), string(aff.Status), aff.UpdatedAt,
		)
		if err != nil {
			if pgutil.IsUniqueViolation(err) {
				return sentinel.ErrAlreadyUsed
			}
			return fmt.Errorf("update affiliation: %w", err)
		}
		out = aff
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *PostgresStore) ListLiveAffiliations(ctx context.Context, userID id.UserID, role models.Role) ([]*models.Affiliation, error) {
	query := `SELECT ` + affiliationColumns + ` FROM affiliations
		WHERE user_id = $1 AND role = $2 AND status IN ('pending', 'active')
		ORDER BY created_at DESC, id`
	return s.listAffiliations(ctx, query, uuid.UUID(userID), string(role))
}

func (s *PostgresStore) ListAffiliationsByOrg(ctx context.Context, orgID id.OrgID) ([]*models.Affiliation, error) {
	query := `SELECT ` + affiliationColumns + ` FROM affiliations WHERE org_id = $1 ORDER BY created_at DESC, id`
	return s.listAffiliations(ctx, query, uuid.UUID(orgID))
}

func (s *PostgresStore) ListAffiliationsByUser(ctx context.Context, userID id.UserID) ([]*models.Member, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, `
		SELECT a.id, a.user_id, a.org_id, a.role, a.status, a.initiated_by, a.created_at, a.updated_at, o.name
		FROM affiliations a
		JOIN organizations o ON o.id = a.org_id
		WHERE a.user_id = $1
		ORDER BY a.created_at DESC, a.id`, uuid.UUID(userID))
	if err != nil {
		return nil, fmt.Errorf("list user affiliations: %w", err)
	}
	defer rows.Close()

	var out []*models.Member
	for rows.Next() {
		var orgName string
		aff, err := scanAffiliation(rows, &orgName)
		if err != nil {
			return nil, fmt.Errorf("scan user affiliation: %w", err)
		}
		out = append(out, &models.Member{Affiliation: aff, OrgName: orgName})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate user affiliations: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) IsActiveAdmin(ctx context.Context, userID id.UserID, orgID id.OrgID) (bool, error) {
	var exists bool
	err := s.execer(ctx).QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM affiliations WHERE user_id = $1 AND org_id = $2 AND role = 'admin' AND status = 'active')`,
		uuid.UUID(userID), uuid.UUID(orgID),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check admin affiliation: %w", err)
	}
	return exists, nil
}

// ActivateAdmin reactivates the user's latest admin affiliation with orgID
// or inserts a new active one.
func (s *PostgresStore) ActivateAdmin(ctx context.Context, userID id.UserID, orgID id.OrgID, now time.Time) (*models.Affiliation, error) {
	var out *models.Affiliation
	err := s.inTx(ctx, "admin affiliation", func(tx *sql.Tx) error {
		query := `SELECT ` + affiliationColumns + ` FROM affiliations
			WHERE user_id = $1 AND org_id = $2 AND role = 'admin'
			ORDER BY (status = 'active') DESC, updated_at DESC
			LIMIT 1 FOR UPDATE`
		aff, err := scanAffiliation(tx.QueryRowContext(ctx, query, uuid.UUID(userID), uuid.UUID(orgID)))
		switch {
		case errors.Is(err, sql.ErrNoRows):
			aff, err = models.NewAffiliation(id.AffiliationID(uuid.New()), userID, orgID,
				models.RoleAdmin, models.StatusActive, models.InitiatedByMember, now)
			if err != nil {
				return err
			}
			_, err = tx.ExecContext(ctx,
				`INSERT INTO affiliations (`+affiliationColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
				uuid.UUID(aff.ID), uuid.UUID(aff.UserID), uuid.UUID(aff.OrgID), string(aff.Role),
				string(aff.Status), string(aff.InitiatedBy), aff.CreatedAt, aff.UpdatedAt,
			)
			if err != nil {
				return fmt.Errorf("insert admin affiliation: %w", err)
			}
		case err != nil:
			return fmt.Errorf("find admin affiliation: %w", err)
		case aff.Status != models.StatusActive:
			aff.Status = models.StatusActive
			aff.UpdatedAt = now
			_, err = tx.ExecContext(ctx,
				`UPDATE affiliations SET status = 'active', updated_at = $2 WHERE id = $1`,
				uuid.UUID(aff.ID), now,
			)
			if err != nil {
				return fmt.Errorf("reactivate admin affiliation: %w", err)
			}
		}
		out = aff
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *PostgresStore) listAffiliations(ctx context.Context, query string, args ...any) ([]*models.Affiliation, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list affiliations: %w", err)
	}
	defer rows.Close()

	var out []*models.Affiliation
	for rows.Next() {
		aff, err := scanAffiliation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan affiliation: %w", err)
		}
		out = append(out, aff)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate affiliations: %w", err)
	}
	return out, nil
}

// Join requests

const joinColumns = `id, requester_id, org_id, status, created_at, resolved_at`

func (s *PostgresStore) CreateJoinRequest(ctx context.Context, req *models.JoinRequest) error {
	query := `INSERT INTO org_join_requests (` + joinColumns + `) VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(req.ID),
		uuid.UUID(req.RequesterID),
		uuid.UUID(req.OrgID),
		string(req.Status),
		req.CreatedAt,
		req.ResolvedAt,
	)
	if err != nil {
		if pgutil.IsUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("insert join request: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindJoinRequest(ctx context.Context, reqID id.JoinRequestID) (*models.JoinRequest, error) {
	query := `SELECT ` + joinColumns + ` FROM org_join_requests WHERE id = $1`
	req, err := scanJoinRequest(s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(reqID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find join request: %w", err)
	}
	return req, nil
}

func (s *PostgresStore) ExecuteJoinRequest(ctx context.Context, reqID id.JoinRequestID, validate func(*models.JoinRequest) error, mutate func(*models.JoinRequest)) (*models.JoinRequest, error) {
	var out *models.JoinRequest
	err := s.inTx(ctx, "join request", func(tx *sql.Tx) error {
		query := `SELECT ` + joinColumns + ` FROM org_join_requests WHERE id = $1 FOR UPDATE`
		req, err := scanJoinRequest(tx.QueryRowContext(ctx, query, uuid.UUID(reqID)))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return sentinel.ErrNotFound
			}
			return fmt.Errorf("find join request for execute: %w", err)
		}
		if err := validate(req); err != nil {
			return err
		}
		mutate(req)

		_, err = tx.ExecContext(ctx,
			`UPDATE org_join_requests SET status = $2, resolved_at = $3 WHERE id = $1`,
			uuid.UUID(req.ID), string(req.Status), req.ResolvedAt,
		)
		if err != nil {
			return fmt.Errorf("update join request: %w", err)
		}
		out = req
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *PostgresStore) ListJoinRequests(ctx context.Context, orgID id.OrgID, status *models.JoinStatus) ([]*models.JoinRequest, error) {
	query := `SELECT ` + joinColumns + ` FROM org_join_requests WHERE org_id = $1`
	args := []any{uuid.UUID(orgID)}
	if status != nil {
		query += ` AND status = $2`
		args = append(args, string(*status))
	}
	query += ` ORDER BY created_at DESC, id`

	rows, err := s.execer(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list join requests: %w", err)
	}
	defer rows.Close()

	var out []*models.JoinRequest
	for rows.Next() {
		req, err := scanJoinRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan join request: %w", err)
		}
		out = append(out, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate join requests: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) HasPendingJoinRequest(ctx context.Context, userID id.UserID) (bool, error) {
	var exists bool
	err := s.execer(ctx).QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM org_join_requests WHERE requester_id = $1 AND status = 'pending')`,
		uuid.UUID(userID),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check pending join request: %w", err)
	}
	return exists, nil
}

// inTx runs fn in the ambient transaction or, when there is none, in a
// transaction of its own.
func (s *PostgresStore) inTx(ctx context.Context, what string, fn func(tx *sql.Tx) error) error {
	if tx, ok := txcontext.From(ctx); ok {
		return fn(tx)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin %s tx: %w", what, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s: %w", what, err)
	}
	return nil
}

type row interface {
	Scan(dest ...any) error
}

func scanOrganization(r row) (*models.Organization, error) {
	var (
		org            models.Organization
		orgID, ownerID uuid.UUID
	)
	if err := r.Scan(&orgID, &org.Name, &ownerID, &org.CreatedAt); err != nil {
		return nil, err
	}
	org.ID = id.OrgID(orgID)
	org.OwnerID = id.UserID(ownerID)
	return &org, nil
}

// scanAffiliation reads affiliationColumns followed by any extra columns.
func scanAffiliation(r row, extra ...any) (*models.Affiliation, error) {
	var (
		aff                  models.Affiliation
		affID, userID, orgID uuid.UUID
		role, status, initBy string
	)
	dest := append([]any{&affID, &userID, &orgID, &role, &status, &initBy, &aff.CreatedAt, &aff.UpdatedAt}, extra...)
	if err := r.Scan(dest...); err != nil {
		return nil, err
	}
	aff.ID = id.AffiliationID(affID)
	aff.UserID = id.UserID(userID)
	aff.OrgID = id.OrgID(orgID)
	aff.Role = models.Role(role)
	aff.Status = models.Status(status)
	aff.InitiatedBy = models.Initiator(initBy)
	return &aff, nil
}

func scanJoinRequest(r row) (*models.JoinRequest, error) {
	var (
		req                       models.JoinRequest
		reqID, requesterID, orgID uuid.UUID
		status                    string
		resolvedAt                sql.NullTime
	)
	if err := r.Scan(&reqID, &requesterID, &orgID, &status, &req.CreatedAt, &resolvedAt); err != nil {
		return nil, err
	}
	req.ID = id.JoinRequestID(reqID)
	req.RequesterID = id.UserID(requesterID)
	req.OrgID = id.OrgID(orgID)
	req.Status = models.JoinStatus(status)
	if resolvedAt.Valid {
		t := resolvedAt.Time
		req.ResolvedAt = &t
	}
	return &req, nil
}
