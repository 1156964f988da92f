package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"legitify/internal/identity/models"
	"legitify/pkg/platform/sentinel"
)

// PostgresStore persists ledger identities in the wallet_identities table.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed identity store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Get(ctx context.Context, label, org string) (*models.Identity, error) {
	query := `
		SELECT label, org_name, msp_id, id_type, certificate, private_key, created_at, updated_at
		FROM wallet_identities
		WHERE label = $1 AND org_name = $2
	`
	ident, err := scanIdentity(s.db.QueryRowContext(ctx, query, label, org))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find identity: %w", err)
	}
	return ident, nil
}

// Put upserts on (label, org_name); created_at survives re-enrollment.
func (s *PostgresStore) Put(ctx context.Context, ident *models.Identity) error {
	if ident == nil {
		return fmt.Errorf("identity is required")
	}
	query := `
		INSERT INTO wallet_identities (label, org_name, msp_id, id_type, certificate, private_key, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (label, org_name) DO UPDATE SET
			msp_id = EXCLUDED.msp_id,
			id_type = EXCLUDED.id_type,
			certificate = EXCLUDED.certificate,
			private_key = EXCLUDED.private_key,
			updated_at = EXCLUDED.updated_at
	`
	_, err := s.db.ExecContext(ctx, query,
		ident.Label,
		ident.OrgName,
		ident.MSPID,
		ident.Type,
		ident.Certificate,
		ident.PrivateKey,
		ident.CreatedAt,
		ident.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert identity: %w", err)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, org string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT label FROM wallet_identities WHERE org_name = $1 ORDER BY label`, org)
	if err != nil {
		return nil, fmt.Errorf("list identity labels: %w", err)
	}
	defer rows.Close()

	var labels []string
	for rows.Next() {
		var label string
		if err := rows.Scan(&label); err != nil {
			return nil, fmt.Errorf("scan identity label: %w", err)
		}
		labels = append(labels, label)
	}
	return labels, rows.Err()
}

func (s *PostgresStore) ListIdentities(ctx context.Context, org string) ([]*models.Identity, error) {
	query := `
		SELECT label, org_name, msp_id, id_type, certificate, private_key, created_at, updated_at
		FROM wallet_identities
		WHERE org_name = $1
		ORDER BY label
	`
	rows, err := s.db.QueryContext(ctx, query, org)
	if err != nil {
		return nil, fmt.Errorf("list identities: %w", err)
	}
	defer rows.Close()

	var out []*models.Identity
	for rows.Next() {
		ident, err := scanIdentity(rows)
		if err != nil {
			return nil, fmt.Errorf("scan identity: %w", err)
		}
		out = append(out, ident)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Remove(ctx context.Context, label, org string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM wallet_identities WHERE label = $1 AND org_name = $2`, label, org)
	if err != nil {
		return fmt.Errorf("remove identity: %w", err)
	}
	return nil
}

type identityRow interface {
	Scan(dest ...any) error
}

func scanIdentity(row identityRow) (*models.Identity, error) {
	var ident models.Identity
	if err := row.Scan(
		&ident.Label,
		&ident.OrgName,
		&ident.MSPID,
		&ident.Type,
		&ident.Certificate,
		&ident.PrivateKey,
		&ident.CreatedAt,
		&ident.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &ident, nil
}
