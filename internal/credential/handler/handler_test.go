package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"legitify/internal/credential/service"
	"legitify/internal/credential/store"
	"legitify/internal/integrity"
	"legitify/internal/ledger/anchor"
	id "legitify/pkg/domain"
	dErrors "legitify/pkg/domain-errors"
	"legitify/pkg/requestcontext"
	"legitify/pkg/testutil"
)

type holderDirectory map[string]id.UserID

func (d holderDirectory) FindHolderByEmail(_ context.Context, email string) (id.UserID, error) {
	if userID, ok := d[email]; ok {
		return userID, nil
	}
	return id.UserID{}, dErrors.New(dErrors.CodeNotFound, "account not found")
}

type adminSet map[id.UserID]id.OrgID

func (a adminSet) IsActiveAdmin(_ context.Context, userID id.UserID, orgID id.OrgID) (bool, error) {
	org, ok := a[userID]
	return ok && org == orgID, nil
}

type discardAnchorer struct{}

func (discardAnchorer) Dispatch(context.Context, anchor.Task) bool { return true }

type HandlerSuite struct {
	suite.Suite
	router  http.Handler
	issuer  id.Caller
	holder  id.Caller
	payload []byte
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.issuer = testutil.Issuer(testutil.NewOrgID())
	s.holder = testutil.Holder()
	s.payload = []byte("%PDF-1.7 transcript")

	svc := service.New(store.NewInMemory(),
		holderDirectory{"ada@example.org": s.holder.UserID},
		adminSet{s.issuer.UserID: s.issuer.OrgID},
		discardAnchorer{},
	)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := chi.NewRouter()
	New(svc, logger).Register(r)
	s.router = r
}

func (s *HandlerSuite) do(caller *id.Caller, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if caller != nil {
		req = req.WithContext(requestcontext.WithCaller(req.Context(), *caller))
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *HandlerSuite) issueBody() map[string]any {
	return map[string]any{
		"holder_email":     "  Ada@Example.org ",
		"file_name":        "transcript.pdf",
		"payload":          s.payload,
		"kind":             "degree",
		"title":            "BSc Mathematics",
		"achievement_date": "2024-06-30",
		"degree":           map[string]string{"field": "Mathematics", "grade": "First"},
	}
}

func (s *HandlerSuite) decode(rec *httptest.ResponseRecorder, out any) {
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), out))
}

func (s *HandlerSuite) issue() string {
	rec := s.do(&s.issuer, http.MethodPost, "/credentials", s.issueBody())
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	var res IssueResponse
	s.decode(rec, &res)
	return res.DocumentID
}

func (s *HandlerSuite) TestIssue() {
	rec := s.do(&s.issuer, http.MethodPost, "/credentials", s.issueBody())
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())

	var res IssueResponse
	s.decode(rec, &res)
	s.Equal(integrity.Hash(s.payload), res.Hash)
	_, err := uuid.Parse(res.DocumentID)
	s.NoError(err)
}

func (s *HandlerSuite) TestIssueErrors() {
	s.Run("missing caller is unauthorized", func() {
		rec := s.do(nil, http.MethodPost, "/credentials", s.issueBody())
		s.Equal(http.StatusUnauthorized, rec.Code)
	})

	s.Run("holder cannot issue", func() {
		rec := s.do(&s.holder, http.MethodPost, "/credentials", s.issueBody())
		s.Equal(http.StatusForbidden, rec.Code)
	})

	s.Run("degree kind without degree details", func() {
		body := s.issueBody()
		delete(body, "degree")
		rec := s.do(&s.issuer, http.MethodPost, "/credentials", body)
		s.Equal(http.StatusBadRequest, rec.Code)
		s.Contains(rec.Body.String(), "validation_error")
	})

	s.Run("malformed date", func() {
		body := s.issueBody()
		body["achievement_date"] = "30/06/2024"
		rec := s.do(&s.issuer, http.MethodPost, "/credentials", body)
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("unknown holder", func() {
		body := s.issueBody()
		body["holder_email"] = "nobody@example.org"
		rec := s.do(&s.issuer, http.MethodPost, "/credentials", body)
		s.Equal(http.StatusNotFound, rec.Code)
	})
}

func (s *HandlerSuite) TestAcceptThenVerify() {
	docID := s.issue()

	rec := s.do(&s.holder, http.MethodPost, "/credentials/"+docID+"/accept", nil)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	var doc DocumentResponse
	s.decode(rec, &doc)
	s.Equal("accepted", string(doc.Status))

	rec = s.do(&s.holder, http.MethodPost, "/credentials/"+docID+"/deny", nil)
	s.Equal(http.StatusConflict, rec.Code)
	s.Contains(rec.Body.String(), "invalid_state")

	rec = s.do(&s.issuer, http.MethodPost, "/credentials/verify", map[string]any{
		"holder_email": "ada@example.org",
		"payload":      s.payload,
	})
	s.Require().Equal(http.StatusOK, rec.Code)
	var v VerifyResponse
	s.decode(rec, &v)
	s.True(v.Verified)
	s.Require().NotNil(v.Document)
	s.Equal(docID, v.Document.ID)

	rec = s.do(&s.issuer, http.MethodPost, "/credentials/verify", map[string]any{
		"holder_email": "nobody@example.org",
		"payload":      s.payload,
	})
	s.Require().Equal(http.StatusOK, rec.Code)
	v = VerifyResponse{}
	s.decode(rec, &v)
	s.False(v.Verified)
	s.Equal("holder_not_found", v.Reason)
}

func (s *HandlerSuite) TestDecisionErrors() {
	docID := s.issue()

	rec := s.do(&s.holder, http.MethodPost, "/credentials/not-a-uuid/accept", nil)
	s.Equal(http.StatusBadRequest, rec.Code)

	stranger := testutil.Holder()
	rec = s.do(&stranger, http.MethodPost, "/credentials/"+docID+"/accept", nil)
	s.Equal(http.StatusForbidden, rec.Code)

	rec = s.do(&s.holder, http.MethodPost, "/credentials/"+uuid.NewString()+"/accept", nil)
	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *HandlerSuite) TestGetAndList() {
	docID := s.issue()
	s.issue()

	rec := s.do(&s.holder, http.MethodGet, "/credentials/"+docID, nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.NotContains(rec.Body.String(), "payload")

	rec = s.do(&s.holder, http.MethodGet, "/credentials/held", nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	var list DocumentListResponse
	s.decode(rec, &list)
	s.Len(list.Documents, 2)

	rec = s.do(&s.holder, http.MethodGet, "/credentials/held?status=accepted", nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	list = DocumentListResponse{}
	s.decode(rec, &list)
	s.Empty(list.Documents)

	rec = s.do(&s.holder, http.MethodGet, "/credentials/held?status=revoked", nil)
	s.Equal(http.StatusBadRequest, rec.Code)

	rec = s.do(&s.issuer, http.MethodGet, "/credentials/issued", nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	list = DocumentListResponse{}
	s.decode(rec, &list)
	s.Len(list.Documents, 2)
}
