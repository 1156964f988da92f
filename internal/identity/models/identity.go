package models

import (
	"strings"
	"time"

	id "legitify/pkg/domain"
	dErrors "legitify/pkg/domain-errors"
)

// X509Type is the only identity type the ledger network accepts.
const X509Type = "X.509"

// Org describes a ledger organization namespace and its membership service provider.
type Org struct {
	Name  string
	MSPID string
}

// Domain is the organization's DNS suffix in the network's crypto layout.
func (o Org) Domain() string {
	return o.Name + ".com"
}

// AdminLabel is the wallet label under which an organization's admin identity is kept.
func (o Org) AdminLabel() string {
	return AdminLabel(o.Name)
}

// AdminLabel returns the admin wallet label for the named organization.
func AdminLabel(org string) string {
	return org + "admin"
}

// Default ledger organizations of the network.
var (
	OrgUniversity = Org{Name: "orguniversity", MSPID: "OrgUniversityMSP"}
	OrgEmployer   = Org{Name: "orgemployer", MSPID: "OrgEmployerMSP"}
	OrgIndividual = Org{Name: "orgindividual", MSPID: "OrgIndividualMSP"}
)

// DefaultOrgs lists the organizations a wallet registry opens by default.
func DefaultOrgs() []Org {
	return []Org{OrgUniversity, OrgEmployer, OrgIndividual}
}

// OrgForRole maps an account role to the ledger organization its identity
// is enrolled in.
func OrgForRole(role id.Role) (Org, bool) {
	switch role {
	case id.RoleIssuer:
		return OrgUniversity, true
	case id.RoleVerifier:
		return OrgEmployer, true
	case id.RoleHolder:
		return OrgIndividual, true
	}
	return Org{}, false
}

// Identity is a ledger signing identity: certificate, private key and MSP.
// (Label, OrgName) is unique; re-enrollment replaces the row.
type Identity struct {
	Label       string
	OrgName     string
	MSPID       string
	Type        string
	Certificate string
	PrivateKey  string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewIdentity creates an X.509 identity with invariant checks.
func NewIdentity(label string, org Org, certificate, privateKey string, now time.Time) (*Identity, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "identity label required")
	}
	if org.Name == "" || org.MSPID == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "identity organization required")
	}
	if strings.TrimSpace(certificate) == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "identity certificate required")
	}
	if strings.TrimSpace(privateKey) == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "identity private key required")
	}
	return &Identity{
		Label:       label,
		OrgName:     org.Name,
		MSPID:       org.MSPID,
		Type:        X509Type,
		Certificate: certificate,
		PrivateKey:  privateKey,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}
