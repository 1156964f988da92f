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

	accountmodels "legitify/internal/account/models"
	"legitify/internal/affiliation/service"
	"legitify/internal/affiliation/store"
	id "legitify/pkg/domain"
	dErrors "legitify/pkg/domain-errors"
	"legitify/pkg/platform/tx"
	"legitify/pkg/requestcontext"
	"legitify/pkg/testutil"
)

type holderAccounts map[id.UserID]bool

func (h holderAccounts) Get(_ context.Context, userID id.UserID) (*accountmodels.Account, error) {
	if !h[userID] {
		return nil, dErrors.New(dErrors.CodeNotFound, "account not found")
	}
	return &accountmodels.Account{ID: userID, Role: id.RoleHolder}, nil
}

type HandlerSuite struct {
	suite.Suite
	router http.Handler
	owner  id.Caller
	holder id.Caller
	orgID  string
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.owner = testutil.Issuer(id.OrgID{})
	s.holder = testutil.Holder()

	svc := service.New(store.NewInMemory(), tx.NewMutexRunner(), holderAccounts{s.holder.UserID: true}, nil, nil)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := chi.NewRouter()
	New(svc, logger).Register(r)
	s.router = r

	rec := s.do(&s.owner, http.MethodPost, "/organizations", map[string]any{"name": "  Trinity   College "})
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	var org OrganizationResponse
	s.decode(rec, &org)
	s.Equal("Trinity College", org.Name)
	s.orgID = org.ID
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

func (s *HandlerSuite) decode(rec *httptest.ResponseRecorder, out any) {
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), out))
}

func (s *HandlerSuite) TestCreateOrganizationErrors() {
	rec := s.do(&s.owner, http.MethodPost, "/organizations", map[string]any{"name": "Another"})
	s.Equal(http.StatusConflict, rec.Code)

	issuer := testutil.Issuer(id.OrgID{})
	rec = s.do(&issuer, http.MethodPost, "/organizations", map[string]any{"name": "   "})
	s.Equal(http.StatusBadRequest, rec.Code)

	rec = s.do(nil, http.MethodPost, "/organizations", map[string]any{"name": "Anon"})
	s.Equal(http.StatusUnauthorized, rec.Code)

	rec = s.do(&s.holder, http.MethodGet, "/organizations", nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	var list OrganizationListResponse
	s.decode(rec, &list)
	s.Len(list.Organizations, 1)
}

func (s *HandlerSuite) TestMembershipFlow() {
	rec := s.do(&s.holder, http.MethodPost, "/organizations/"+s.orgID+"/affiliations", map[string]any{})
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	var aff AffiliationResponse
	s.decode(rec, &aff)
	s.Equal("member", string(aff.InitiatedBy))
	s.Equal("pending", string(aff.Status))

	rec = s.do(&s.holder, http.MethodPost, "/affiliations/"+aff.ID+"/respond", map[string]any{"accept": true})
	s.Equal(http.StatusForbidden, rec.Code)

	rec = s.do(&s.owner, http.MethodPost, "/affiliations/"+aff.ID+"/respond", map[string]any{})
	s.Equal(http.StatusBadRequest, rec.Code, "accept is required")

	rec = s.do(&s.owner, http.MethodPost, "/affiliations/"+aff.ID+"/respond", map[string]any{"accept": true})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	aff = AffiliationResponse{}
	s.decode(rec, &aff)
	s.Equal("active", string(aff.Status))

	rec = s.do(&s.owner, http.MethodPost, "/affiliations/"+aff.ID+"/respond", map[string]any{"accept": false})
	s.Equal(http.StatusConflict, rec.Code)
	s.Contains(rec.Body.String(), "invalid_state")

	rec = s.do(&s.holder, http.MethodGet, "/affiliations", nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	var mine AffiliationListResponse
	s.decode(rec, &mine)
	s.Require().Len(mine.Affiliations, 1)
	s.Equal("Trinity College", mine.Affiliations[0].OrgName)

	rec = s.do(&s.owner, http.MethodGet, "/organizations/"+s.orgID+"/affiliations", nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	var members AffiliationListResponse
	s.decode(rec, &members)
	s.Len(members.Affiliations, 2)
}

func (s *HandlerSuite) TestInviteRequiresUser() {
	rec := s.do(&s.owner, http.MethodPost, "/organizations/"+s.orgID+"/affiliations", map[string]any{})
	s.Equal(http.StatusBadRequest, rec.Code)

	rec = s.do(&s.owner, http.MethodPost, "/organizations/"+s.orgID+"/affiliations", map[string]any{"user_id": "nope"})
	s.Equal(http.StatusBadRequest, rec.Code)

	rec = s.do(&s.owner, http.MethodPost, "/organizations/"+s.orgID+"/affiliations", map[string]any{
		"user_id": uuid.NewString(),
	})
	s.Equal(http.StatusNotFound, rec.Code)

	rec = s.do(&s.owner, http.MethodPost, "/organizations/"+s.orgID+"/affiliations", map[string]any{
		"user_id": s.holder.UserID.String(),
	})
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	var aff AffiliationResponse
	s.decode(rec, &aff)
	s.Equal("organization", string(aff.InitiatedBy))
}

func (s *HandlerSuite) TestJoinRequestFlow() {
	requester := testutil.Issuer(id.OrgID{})
	rec := s.do(&requester, http.MethodPost, "/organizations/"+s.orgID+"/join-requests", nil)
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	var req JoinRequestResponse
	s.decode(rec, &req)

	rec = s.do(&s.owner, http.MethodGet, "/organizations/"+s.orgID+"/join-requests?status=pending", nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	var list JoinRequestListResponse
	s.decode(rec, &list)
	s.Require().Len(list.JoinRequests, 1)
	s.Equal(req.ID, list.JoinRequests[0].ID)

	rec = s.do(&s.owner, http.MethodGet, "/organizations/"+s.orgID+"/join-requests?status=lost", nil)
	s.Equal(http.StatusBadRequest, rec.Code)

	rec = s.do(&s.owner, http.MethodPost, "/join-requests/"+req.ID+"/respond", map[string]any{"accept": true})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	req = JoinRequestResponse{}
	s.decode(rec, &req)
	s.Equal("approved", string(req.Status))
	s.NotNil(req.ResolvedAt)

	rec = s.do(&requester, http.MethodPost, "/organizations/"+s.orgID+"/join-requests", nil)
	s.Equal(http.StatusConflict, rec.Code)
}

func (s *HandlerSuite) TestNotFound() {
	rec := s.do(&s.owner, http.MethodPost, "/join-requests/"+uuid.NewString()+"/respond", map[string]any{"accept": true})
	s.Equal(http.StatusNotFound, rec.Code)

	rec = s.do(&s.holder, http.MethodPost, "/organizations/"+uuid.NewString()+"/affiliations", map[string]any{})
	s.Equal(http.StatusNotFound, rec.Code)

	rec = s.do(&s.holder, http.MethodPost, "/affiliations/bad-id/respond", map[string]any{"accept": true})
	s.Equal(http.StatusBadRequest, rec.Code)
}
