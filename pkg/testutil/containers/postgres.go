//go:build integration

package containers

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"legitify/migrations"
	id "legitify/pkg/domain"
)

// PostgresContainer wraps a testcontainers Postgres instance with the schema applied.
type PostgresContainer struct {
	Container testcontainers.Container
	DSN       string
	DB        *sql.DB
}

// NewPostgresContainer starts Postgres and applies migrations.
func NewPostgresContainer(t *testing.T) *PostgresContainer {
	t.Helper()

	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:17-alpine",
		postgres.WithDatabase("legitify_test"),
		postgres.WithUsername("legitify"),
		postgres.WithPassword("legitify_test_password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to get postgres connection string: %v", err)
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to connect to postgres: %v", err)
	}

	if _, err := migrations.Apply(ctx, db); err != nil {
		_ = db.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to run migrations: %v", err)
	}

	// The Manager shares the container across suites; Ryuk removes it when
	// the test process exits.
	return &PostgresContainer{Container: container, DSN: dsn, DB: db}
}

// TruncateTables clears the given tables with CASCADE.
func (p *PostgresContainer) TruncateTables(ctx context.Context, tables ...string) error {
	for _, table := range tables {
		if _, err := p.DB.ExecContext(ctx, "TRUNCATE TABLE "+table+" CASCADE"); err != nil {
			return fmt.Errorf("truncate %s: %w", table, err)
		}
	}
	return nil
}

// TruncateModuleTables clears every application table.
func (p *PostgresContainer) TruncateModuleTables(ctx context.Context) error {
	return p.TruncateTables(ctx,
		"access_requests",
		"documents",
		"org_join_requests",
		"affiliations",
		"organizations",
		"accounts",
		"wallet_identities",
	)
}

// CreateAccount inserts an account with the given role and returns its ID.
func (p *PostgresContainer) CreateAccount(ctx context.Context, t testing.TB, role id.Role) id.UserID {
	t.Helper()
	userID := id.UserID(uuid.New())
	_, err := p.DB.ExecContext(ctx, `
		INSERT INTO accounts (id, email, name, role, ledger_org, created_at)
		VALUES ($1, $2, 'Test Account', $3, 'orgindividual', NOW())
	`, uuid.UUID(userID), "test-"+uuid.NewString()+"@example.com", string(role))
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	return userID
}

// CreateOrganization inserts an organization owned by ownerID.
func (p *PostgresContainer) CreateOrganization(ctx context.Context, t testing.TB, ownerID id.UserID) id.OrgID {
	t.Helper()
	orgID := id.OrgID(uuid.New())
	_, err := p.DB.ExecContext(ctx, `
		INSERT INTO organizations (id, name, owner_id, created_at)
		VALUES ($1, $2, $3, NOW())
	`, uuid.UUID(orgID), "Org "+uuid.NewString(), uuid.UUID(ownerID))
	if err != nil {
		t.Fatalf("CreateOrganization: %v", err)
	}
	return orgID
}
