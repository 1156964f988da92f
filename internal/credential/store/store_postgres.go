package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"legitify/internal/credential/models"
	id "legitify/pkg/domain"
	"legitify/pkg/platform/pgutil"
	"legitify/pkg/platform/sentinel"
	txcontext "legitify/pkg/platform/tx"
)

// PostgresStore persists credential documents in the documents table.
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

const documentColumns = `id, issuer_id, issuer_org_id, holder_id, payload, hash, file_name, attributes, status, supersedes_id, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, doc *models.Document) error {
	if doc == nil {
		return fmt.Errorf("document is required")
	}
	attrs, err := json.Marshal(doc.Attributes)
	if err != nil {
		return fmt.Errorf("encode attributes: %w", err)
	}
	query := `INSERT INTO documents (` + documentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err = s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(doc.ID),
		uuid.UUID(doc.IssuerID),
		uuid.UUID(doc.IssuerOrgID),
		uuid.UUID(doc.HolderID),
		doc.Payload,
		doc.Hash,
		doc.FileName,
		string(attrs),
		string(doc.Status),
		nullableDocumentID(doc.Supersedes),
		doc.CreatedAt,
		doc.UpdatedAt,
	)
	if err != nil {
		if pgutil.IsUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, docID id.DocumentID) (*models.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1`
	doc, err := scanDocument(s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(docID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find document: %w", err)
	}
	return doc, nil
}

func (s *PostgresStore) ListByHolder(ctx context.Context, holderID id.UserID, filter *models.Filter) ([]*models.Document, error) {
	return s.list(ctx, "holder_id", uuid.UUID(holderID), filter)
}

func (s *PostgresStore) ListByIssuerOrg(ctx context.Context, orgID id.OrgID, filter *models.Filter) ([]*models.Document, error) {
	return s.list(ctx, "issuer_org_id", uuid.UUID(orgID), filter)
}

// list returns documents newest first. column is one of the two indexed
// owner columns and never comes from input.
func (s *PostgresStore) list(ctx context.Context, column string, owner uuid.UUID, filter *models.Filter) ([]*models.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE ` + column + ` = $1`
	args := []any{owner}
	if filter != nil && filter.Status != nil {
		query += ` AND status = $2`
		args = append(args, string(*filter.Status))
	}
	query += ` ORDER BY created_at DESC, id`

	rows, err := s.execer(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []*models.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return docs, nil
}

// Execute locks the document row, runs validate, applies mutate and writes
// the status back. validate errors are returned unchanged.
func (s *PostgresStore) Execute(ctx context.Context, docID id.DocumentID, validate func(*models.Document) error, mutate func(*models.Document)) (*models.Document, error) {
	if tx, ok := txcontext.From(ctx); ok {
		return executeWithTx(ctx, tx, docID, validate, mutate)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin document execute tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	doc, err := executeWithTx(ctx, tx, docID, validate, mutate)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit document execute: %w", err)
	}
	return doc, nil
}

func executeWithTx(ctx context.Context, tx *sql.Tx, docID id.DocumentID, validate func(*models.Document) error, mutate func(*models.Document)) (*models.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1 FOR UPDATE`
	doc, err := scanDocument(tx.QueryRowContext(ctx, query, uuid.UUID(docID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find document for execute: %w", err)
	}

	if err := validate(doc); err != nil {
		return nil, err
	}
	mutate(doc)

	res, err := tx.ExecContext(ctx,
		`UPDATE documents SET status = $2, updated_at = $3 WHERE id = $1`,
		uuid.UUID(doc.ID), string(doc.Status), doc.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("update document status: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return nil, fmt.Errorf("update document rows: %w", err)
	} else if n == 0 {
		return nil, sentinel.ErrNotFound
	}
	return doc, nil
}

func nullableDocumentID(docID *id.DocumentID) any {
	if docID == nil {
		return nil
	}
	return uuid.UUID(*docID)
}

type documentRow interface {
	Scan(dest ...any) error
}

func scanDocument(row documentRow) (*models.Document, error) {
	var (
		doc                                    models.Document
		docID, issuerID, issuerOrgID, holderID uuid.UUID
		attrs                                  []byte
		status                                 string
		supersedes                             uuid.NullUUID
	)
	if err := row.Scan(&docID, &issuerID, &issuerOrgID, &holderID, &doc.Payload, &doc.Hash, &doc.FileName,
		&attrs, &status, &supersedes, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(attrs, &doc.Attributes); err != nil {
		return nil, fmt.Errorf("decode attributes: %w", err)
	}
	doc.ID = id.DocumentID(docID)
	doc.IssuerID = id.UserID(issuerID)
	doc.IssuerOrgID = id.OrgID(issuerOrgID)
	doc.HolderID = id.UserID(holderID)
	doc.Status = models.Status(status)
	if supersedes.Valid {
		prev := id.DocumentID(supersedes.UUID)
		doc.Supersedes = &prev
	}
	return &doc, nil
}
