package main

import (
	"database/sql"

	accessservice "legitify/internal/access/service"
	accessstore "legitify/internal/access/store"
	accountservice "legitify/internal/account/service"
	accountstore "legitify/internal/account/store"
	affiliationservice "legitify/internal/affiliation/service"
	affiliationstore "legitify/internal/affiliation/store"
	credentialservice "legitify/internal/credential/service"
	credentialstore "legitify/internal/credential/store"
	"legitify/internal/identity"
	identitystore "legitify/internal/identity/store"
	"legitify/pkg/platform/tx"
)

// stores bundles the persistence chosen at startup: Postgres when a database
// is configured, process-local memory otherwise.
type stores struct {
	identities   identity.Store
	accounts     accountservice.Store
	credentials  credentialservice.Store
	access       accessservice.Store
	affiliations affiliationservice.Store
	runner       tx.Runner
}

func newPostgresStores(db *sql.DB) *stores {
	return &stores{
		identities:   identitystore.NewPostgres(db),
		accounts:     accountstore.NewPostgres(db),
		credentials:  credentialstore.NewPostgres(db),
		access:       accessstore.NewPostgres(db),
		affiliations: affiliationstore.NewPostgres(db),
		runner:       newPostgresTx(db),
	}
}

func newMemoryStores() *stores {
	return &stores{
		identities:   identitystore.NewInMemory(),
		accounts:     accountstore.NewInMemory(),
		credentials:  credentialstore.NewInMemory(),
		access:       accessstore.NewInMemory(),
		affiliations: affiliationstore.NewInMemory(),
		runner:       tx.NewMutexRunner(),
	}
}
