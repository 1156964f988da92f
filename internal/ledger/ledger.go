// Package ledger opens sessions against the permissioned ledger on behalf of
// a (user, organization) pair and exposes its submit/evaluate contract.
package ledger

import (
	"context"
	"fmt"
	"sync"

	dErrors "legitify/pkg/domain-errors"
)

// Chaincode functions invoked by the service.
const (
	FnIssueCredential             = "IssueCredential"
	FnAcceptCredential            = "AcceptCredential"
	FnDenyCredential              = "DenyCredential"
	FnReadCredential              = "ReadCredential"
	FnVerifyHash                  = "VerifyHash"
	FnGrantAccess                 = "GrantAccess"
	FnAddIssuerHolderRelationship = "AddIssuerHolderRelationship"
)

// Defaults for the network the service is deployed against.
const (
	DefaultChannel   = "legitifychannel"
	DefaultChaincode = "credentialCC"
)

// Contract is the chaincode surface. Submits are ordered and committed;
// evaluates are answered by a peer without commit.
type Contract interface {
	SubmitTransaction(name string, args ...string) ([]byte, error)
	EvaluateTransaction(name string, args ...string) ([]byte, error)
}

// Connector opens ledger sessions.
type Connector interface {
	Connect(ctx context.Context, label, org string) (*Session, error)
}

// Session is an open ledger connection. Close must be called on every exit
// path; WithSession does that for callers.
type Session struct {
	Contract
	once    sync.Once
	closeFn func()
}

// NewSession wraps contract with a close function.
func NewSession(contract Contract, closeFn func()) *Session {
	return &Session{Contract: contract, closeFn: closeFn}
}

// Close releases the underlying connection. It is safe to call more than once.
func (s *Session) Close() {
	s.once.Do(func() {
		if s.closeFn != nil {
			s.closeFn()
		}
	})
}

// WithSession connects as (label, org), runs fn, and always closes the session,
// including when fn panics.
func WithSession(ctx context.Context, c Connector, label, org string, fn func(Contract) error) error {
	session, err := c.Connect(ctx, label, org)
	if err != nil {
		return err
	}
	defer session.Close()
	return fn(session)
}

// Submit is a convenience for a single submit in its own session.
func Submit(ctx context.Context, c Connector, label, org, fn string, args ...string) ([]byte, error) {
	var out []byte
	err := WithSession(ctx, c, label, org, func(contract Contract) error {
		res, err := contract.SubmitTransaction(fn, args...)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeLedgerUnavailable, fmt.Sprintf("submit %s failed", fn))
		}
		out = res
		return nil
	})
	return out, err
}

// Evaluate is a convenience for a single evaluate in its own session.
func Evaluate(ctx context.Context, c Connector, label, org, fn string, args ...string) ([]byte, error) {
	var out []byte
	err := WithSession(ctx, c, label, org, func(contract Contract) error {
		res, err := contract.EvaluateTransaction(fn, args...)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeLedgerUnavailable, fmt.Sprintf("evaluate %s failed", fn))
		}
		out = res
		return nil
	})
	return out, err
}
