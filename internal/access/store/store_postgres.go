package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"legitify/internal/access/models"
	id "legitify/pkg/domain"
	"legitify/pkg/platform/pgutil"
	"legitify/pkg/platform/sentinel"
	txcontext "legitify/pkg/platform/tx"
)

// PostgresStore persists access requests. The partial unique index
// access_requests_pending_key enforces one pending request per
// (document, verifier).
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

const requestColumns = `id, document_id, verifier_id, holder_id, status, created_at, resolved_at`

func (s *PostgresStore) Create(ctx context.Context, req *models.Request) error {
	query := `INSERT INTO access_requests (` + requestColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(req.ID),
		uuid.UUID(req.DocumentID),
		uuid.UUID(req.VerifierID),
		uuid.UUID(req.HolderID),
		string(req.Status),
		req.CreatedAt,
		req.ResolvedAt,
	)
	if err != nil {
		if pgutil.IsConstraint(err, pendingIndex) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("insert access request: %w", err)
	}
	return nil
}

const pendingIndex = "access_requests_pending_key"

func (s *PostgresStore) FindByID(ctx context.Context, reqID id.AccessRequestID) (*models.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM access_requests WHERE id = $1`
	req, err := scanRequest(s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(reqID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find access request: %w", err)
	}
	return req, nil
}

func (s *PostgresStore) ListByHolder(ctx context.Context, holderID id.UserID) ([]*models.Request, error) {
	return s.list(ctx, `holder_id`, uuid.UUID(holderID))
}

func (s *PostgresStore) ListByVerifier(ctx context.Context, verifierID id.UserID) ([]*models.Request, error) {
	return s.list(ctx, `verifier_id`, uuid.UUID(verifierID))
}

func (s *PostgresStore) list(ctx context.Context, column string, owner uuid.UUID) ([]*models.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM access_requests WHERE ` + column + ` = $1 ORDER BY created_at DESC, id`
	rows, err := s.execer(ctx).QueryContext(ctx, query, owner)
	if err != nil {
		return nil, fmt.Errorf("list access requests: %w", err)
	}
	defer rows.Close()

	var out []*models.Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan access request: %w", err)
		}
		out = append(out, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate access requests: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) HasGranted(ctx context.Context, docID id.DocumentID, verifierID id.UserID) (bool, error) {
	var exists bool
	err := s.execer(ctx).QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM access_requests WHERE document_id = $1 AND verifier_id = $2 AND status = 'granted')`,
		uuid.UUID(docID), uuid.UUID(verifierID),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check granted access: %w", err)
	}
	return exists, nil
}

// Execute locks the request row, runs validate, applies mutate and writes
// the resolution back.
func (s *PostgresStore) Execute(ctx context.Context, reqID id.AccessRequestID, validate func(*models.Request) error, mutate func(*models.Request)) (*models.Request, error) {
	if tx, ok := txcontext.From(ctx); ok {
		return executeWithTx(ctx, tx, reqID, validate, mutate)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin access request tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	req, err := executeWithTx(ctx, tx, reqID, validate, mutate)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit access request: %w", err)
	}
	return req, nil
}

func executeWithTx(ctx context.Context, tx *sql.Tx, reqID id.AccessRequestID, validate func(*models.Request) error, mutate func(*models.Request)) (*models.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM access_requests WHERE id = $1 FOR UPDATE`
	req, err := scanRequest(tx.QueryRowContext(ctx, query, uuid.UUID(reqID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find access request for execute: %w", err)
	}

	if err := validate(req); err != nil {
		return nil, err
	}
	mutate(req)

	res, err := tx.ExecContext(ctx,
		`UPDATE access_requests SET status = $2, resolved_at = $3 WHERE id = $1`,
		uuid.UUID(req.ID), string(req.Status), req.ResolvedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("update access request: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return nil, fmt.Errorf("update access request rows: %w", err)
	} else if n == 0 {
		return nil, sentinel.ErrNotFound
	}
	return req, nil
}

type requestRow interface {
	Scan(dest ...any) error
}

func scanRequest(row requestRow) (*models.Request, error) {
	var (
		req                                models.Request
		reqID, docID, verifierID, holderID uuid.UUID
		status                             string
		resolvedAt                         sql.NullTime
	)
	if err := row.Scan(&reqID, &docID, &verifierID, &holderID, &status, &req.CreatedAt, &resolvedAt); err != nil {
		return nil, err
	}
	req.ID = id.AccessRequestID(reqID)
	req.DocumentID = id.DocumentID(docID)
	req.VerifierID = id.UserID(verifierID)
	req.HolderID = id.UserID(holderID)
	req.Status = models.Status(status)
	if resolvedAt.Valid {
		t := resolvedAt.Time
		req.ResolvedAt = &t
	}
	return &req, nil
}
