package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"legitify/internal/account/models"
	id "legitify/pkg/domain"
	"legitify/pkg/platform/pgutil"
	"legitify/pkg/platform/sentinel"
	txcontext "legitify/pkg/platform/tx"
)

// PostgresStore persists accounts. accounts_email_key enforces unique
// lower-cased emails.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const accountColumns = `id, email, name, role, ledger_org, created_at`

func (s *PostgresStore) Create(ctx context.Context, acc *models.Account) error {
	query := `INSERT INTO accounts (` + accountColumns + `) VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(acc.ID),
		models.NormalizeEmail(acc.Email),
		acc.Name,
		string(acc.Role),
		acc.LedgerOrg,
		acc.CreatedAt,
	)
	if err != nil {
		if pgutil.IsUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, userID id.UserID) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	acc, err := scanAccount(s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(userID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find account by id: %w", err)
	}
	return acc, nil
}

func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE LOWER(email) = $1`
	acc, err := scanAccount(s.execer(ctx).QueryRowContext(ctx, query, models.NormalizeEmail(email)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find account by email: %w", err)
	}
	return acc, nil
}

func scanAccount(row *sql.Row) (*models.Account, error) {
	var (
		acc    models.Account
		userID uuid.UUID
		role   string
	)
	if err := row.Scan(&userID, &acc.Email, &acc.Name, &role, &acc.LedgerOrg, &acc.CreatedAt); err != nil {
		return nil, err
	}
	acc.ID = id.UserID(userID)
	acc.Role = id.Role(role)
	return &acc, nil
}
