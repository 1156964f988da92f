package ledger

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	dErrors "legitify/pkg/domain-errors"
)

// Record is the anchored state of a credential as the chaincode stores it.
type Record struct {
	DocID       string `json:"docId"`
	DocHash     string `json:"docHash"`
	HolderID    string `json:"holderId"`
	IssuerID    string `json:"issuerId"`
	IssuerOrgID string `json:"issuerOrgId"`
	Accepted    bool   `json:"accepted"`
	Denied      bool   `json:"denied"`
}

// Reader evaluates read-side chaincode queries. Nothing it does is committed.
type Reader struct {
	connector Connector
}

func NewReader(connector Connector) *Reader {
	return &Reader{connector: connector}
}

// ReadCredential returns the anchored record for docID, evaluated as (label, org).
func (r *Reader) ReadCredential(ctx context.Context, label, org, docID string) (*Record, error) {
	out, err := Evaluate(ctx, r.connector, label, org, FnReadCredential, docID)
	if err != nil {
		return nil, err
	}
	var rec Record
	if err := json.Unmarshal(out, &rec); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeLedgerUnavailable, "malformed ledger record")
	}
	return &rec, nil
}

// VerifyHash asks the ledger whether docID was anchored with hash.
func (r *Reader) VerifyHash(ctx context.Context, label, org, docID, hash string) (bool, error) {
	out, err := Evaluate(ctx, r.connector, label, org, FnVerifyHash, docID, hash)
	if err != nil {
		return false, err
	}
	ok, err := strconv.ParseBool(strings.TrimSpace(string(out)))
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeLedgerUnavailable, "malformed VerifyHash result")
	}
	return ok, nil
}
