package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Anchorer

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"legitify/internal/access/models"
	"legitify/internal/access/service/mocks"
	"legitify/internal/access/store"
	credmodels "legitify/internal/credential/models"
	credstore "legitify/internal/credential/store"
	"legitify/internal/integrity"
	"legitify/internal/ledger"
	"legitify/internal/ledger/anchor"
	id "legitify/pkg/domain"
	dErrors "legitify/pkg/domain-errors"
	"legitify/pkg/testutil"
)

type ledgerRecords struct {
	records map[string]*ledger.Record
	err     error
	calls   []string
}

func (l *ledgerRecords) ReadCredential(_ context.Context, label, org, docID string) (*ledger.Record, error) {
	l.calls = append(l.calls, label+"@"+org)
	if l.err != nil {
		return nil, l.err
	}
	rec, ok := l.records[docID]
	if !ok {
		return nil, dErrors.New(dErrors.CodeLedgerUnavailable, "credential not anchored")
	}
	return rec, nil
}

type ServiceSuite struct {
	suite.Suite
	ctrl     *gomock.Controller
	anchorer *mocks.MockAnchorer
	docs     *credstore.InMemoryStore
	store    *store.InMemoryStore
	svc      *Service

	issuer   id.Caller
	holder   id.Caller
	verifier id.Caller
	doc      *credmodels.Document
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.anchorer = mocks.NewMockAnchorer(s.ctrl)
	s.docs = credstore.NewInMemory()
	s.store = store.NewInMemory()
	s.svc = New(s.store, s.docs, s.anchorer)

	s.issuer = testutil.Issuer(testutil.NewOrgID())
	s.holder = testutil.Holder()
	s.verifier = testutil.Verifier()

	payload := []byte("%PDF-1.7 certificate")
	s.doc = testutil.NewDocumentBuilder().
		WithIssuer(s.issuer.UserID, s.issuer.OrgID).
		WithHolder(s.holder.UserID).
		WithPayload(payload, integrity.Hash(payload)).
		WithStatus(credmodels.StatusAccepted).
		Build()
	s.Require().NoError(s.docs.Create(context.Background(), s.doc))
}

func (s *ServiceSuite) request() *models.Request {
	req, err := s.svc.RequestAccess(testutil.Ctx(), s.verifier, s.doc.ID)
	s.Require().NoError(err)
	return req
}

func (s *ServiceSuite) TestRequestAccess() {
	s.Run("verifier requests an accepted document", func() {
		req := s.request()
		s.Equal(models.StatusPending, req.Status)
		s.Equal(s.holder.UserID, req.HolderID)
		s.Equal(testutil.FixedNow, req.CreatedAt)
	})

	s.Run("a second pending request conflicts", func() {
		_, err := s.svc.RequestAccess(testutil.Ctx(), s.verifier, s.doc.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("non-verifiers are forbidden", func() {
		_, err := s.svc.RequestAccess(testutil.Ctx(), s.holder, s.doc.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("unknown document is not found", func() {
		_, err := s.svc.RequestAccess(testutil.Ctx(), s.verifier, id.DocumentID(uuid.New()))
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("documents not yet accepted are in the wrong state", func() {
		pending := testutil.NewDocumentBuilder().WithHolder(s.holder.UserID).Build()
		s.Require().NoError(s.docs.Create(context.Background(), pending))
		_, err := s.svc.RequestAccess(testutil.Ctx(), s.verifier, pending.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})
}

func (s *ServiceSuite) TestGrantOrDeny() {
	s.Run("holder grants and the grant is anchored", func() {
		req := s.request()
		var task anchor.Task
		s.anchorer.EXPECT().Dispatch(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, t anchor.Task) bool {
			task = t
			return true
		})

		resolved, err := s.svc.GrantOrDeny(testutil.Ctx(), s.holder, req.ID, true)
		s.Require().NoError(err)
		s.Equal(models.StatusGranted, resolved.Status)
		s.Require().NotNil(resolved.ResolvedAt)
		s.Equal(ledger.FnGrantAccess, task.Function)
		s.Equal([]string{s.doc.ID.String(), s.verifier.UserID.String()}, task.Args)
		s.Equal("orgindividual", task.Org)

		_, err = s.svc.GrantOrDeny(testutil.Ctx(), s.holder, req.ID, false)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})

	s.Run("a denial is not anchored and allows a new request", func() {
		verifier := testutil.Verifier()
		req, err := s.svc.RequestAccess(testutil.Ctx(), verifier, s.doc.ID)
		s.Require().NoError(err)

		resolved, err := s.svc.GrantOrDeny(testutil.Ctx(), s.holder, req.ID, false)
		s.Require().NoError(err)
		s.Equal(models.StatusDenied, resolved.Status)

		_, err = s.svc.RequestAccess(testutil.Ctx(), verifier, s.doc.ID)
		s.NoError(err)
	})

	s.Run("only the holder can resolve", func() {
		verifier := testutil.Verifier()
		req, err := s.svc.RequestAccess(testutil.Ctx(), verifier, s.doc.ID)
		s.Require().NoError(err)

		_, err = s.svc.GrantOrDeny(testutil.Ctx(), verifier, req.ID, true)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
		_, err = s.svc.GrantOrDeny(testutil.Ctx(), testutil.Holder(), req.ID, true)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("unknown request is not found", func() {
		_, err := s.svc.GrantOrDeny(testutil.Ctx(), s.holder, id.AccessRequestID(uuid.New()), true)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *ServiceSuite) TestConcurrentResolutionIsSingle() {
	req := s.request()
	s.anchorer.EXPECT().Dispatch(gomock.Any(), gomock.Any()).Return(true).MaxTimes(1)

	res := testutil.RunConcurrent(12, func(idx int) error {
		_, err := s.svc.GrantOrDeny(testutil.Ctx(), s.holder, req.ID, idx%2 == 0)
		return err
	})
	s.Equal(int32(1), res.Successes)
	s.Equal(int32(11), res.InvalidStates)
}

func (s *ServiceSuite) TestView() {
	s.Run("verifier without a grant is forbidden", func() {
		s.request()
		_, err := s.svc.View(testutil.Ctx(), s.verifier, s.doc.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("issuer and holder see the verified payload", func() {
		for _, caller := range []id.Caller{s.issuer, s.holder} {
			view, err := s.svc.View(testutil.Ctx(), caller, s.doc.ID)
			s.Require().NoError(err)
			s.True(view.Verified)
			s.Equal(s.doc.Payload, view.Payload)
		}
	})

	s.Run("granted verifier sees the payload", func() {
		reqs, err := s.svc.ListForVerifier(testutil.Ctx(), s.verifier)
		s.Require().NoError(err)
		s.Require().Len(reqs, 1)
		s.anchorer.EXPECT().Dispatch(gomock.Any(), gomock.Any()).Return(true)
		_, err = s.svc.GrantOrDeny(testutil.Ctx(), s.holder, reqs[0].ID, true)
		s.Require().NoError(err)

		view, err := s.svc.View(testutil.Ctx(), s.verifier, s.doc.ID)
		s.Require().NoError(err)
		s.True(view.Verified)
		s.Equal(s.doc.Hash, view.Hash)
	})

	s.Run("tampered payload is reported unverified", func() {
		tampered := testutil.NewDocumentBuilder().
			WithIssuer(s.issuer.UserID, s.issuer.OrgID).
			WithHolder(s.holder.UserID).
			WithPayload([]byte("altered bytes"), s.doc.Hash).
			WithStatus(credmodels.StatusAccepted).
			Build()
		s.Require().NoError(s.docs.Create(context.Background(), tampered))

		view, err := s.svc.View(testutil.Ctx(), s.holder, tampered.ID)
		s.Require().NoError(err)
		s.False(view.Verified)
		s.NotEqual(tampered.Hash, view.Hash)
	})

	s.Run("unknown document is not found", func() {
		_, err := s.svc.View(testutil.Ctx(), s.holder, id.DocumentID(uuid.New()))
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *ServiceSuite) TestViewLedgerCrossCheck() {
	reader := &ledgerRecords{records: map[string]*ledger.Record{
		s.doc.ID.String(): {DocID: s.doc.ID.String(), DocHash: s.doc.Hash},
	}}
	svc := New(s.store, s.docs, s.anchorer, WithLedgerReader(reader))

	s.Run("no reader leaves the field unset", func() {
		view, err := s.svc.View(testutil.Ctx(), s.holder, s.doc.ID)
		s.Require().NoError(err)
		s.Nil(view.LedgerVerified)
	})

	s.Run("anchored hash matches", func() {
		view, err := svc.View(testutil.Ctx(), s.holder, s.doc.ID)
		s.Require().NoError(err)
		s.Require().NotNil(view.LedgerVerified)
		s.True(*view.LedgerVerified)
		s.Equal([]string{s.holder.UserID.String() + "@orgindividual"}, reader.calls)
	})

	s.Run("anchored hash differs", func() {
		reader.records[s.doc.ID.String()] = &ledger.Record{DocID: s.doc.ID.String(), DocHash: "0000"}
		view, err := svc.View(testutil.Ctx(), s.issuer, s.doc.ID)
		s.Require().NoError(err)
		s.True(view.Verified)
		s.Require().NotNil(view.LedgerVerified)
		s.False(*view.LedgerVerified)
	})

	s.Run("ledger failures never fail the view", func() {
		reader.err = errors.New("peer unreachable")
		view, err := svc.View(testutil.Ctx(), s.holder, s.doc.ID)
		s.Require().NoError(err)
		s.True(view.Verified)
		s.Nil(view.LedgerVerified)
	})
}

func (s *ServiceSuite) TestLists() {
	s.request()

	incoming, err := s.svc.ListForHolder(testutil.Ctx(), s.holder)
	s.Require().NoError(err)
	s.Len(incoming, 1)

	outgoing, err := s.svc.ListForVerifier(testutil.Ctx(), s.verifier)
	s.Require().NoError(err)
	s.Len(outgoing, 1)

	_, err = s.svc.ListForHolder(testutil.Ctx(), s.verifier)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	_, err = s.svc.ListForVerifier(testutil.Ctx(), s.holder)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
}
