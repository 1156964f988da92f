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
	"github.com/stretchr/testify/suite"

	"legitify/internal/account/service"
	"legitify/internal/account/store"
	id "legitify/pkg/domain"
	dErrors "legitify/pkg/domain-errors"
	"legitify/pkg/requestcontext"
)

type stubEnroller struct {
	err error
}

func (e stubEnroller) EnrollUser(context.Context, string, string) error { return e.err }

type HandlerSuite struct {
	suite.Suite
	enroller *stubEnroller
	router   http.Handler
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.enroller = &stubEnroller{}
	svc := service.New(store.NewInMemory(), s.enroller)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := New(svc, logger)
	r := chi.NewRouter()
	h.RegisterPublic(r)
	h.Register(r)
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

func (s *HandlerSuite) TestRegisterAndMe() {
	rec := s.do(nil, http.MethodPost, "/accounts", map[string]any{
		"email": " Ada@Example.org",
		"name":  "Ada Lovelace",
		"role":  "Holder",
	})
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	var acc AccountResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &acc))
	s.Equal("ada@example.org", acc.Email)
	s.Equal("orgindividual", acc.LedgerOrg)

	userID, err := id.ParseUserID(acc.ID)
	s.Require().NoError(err)
	caller := id.Caller{UserID: userID, Role: id.RoleHolder}
	rec = s.do(&caller, http.MethodGet, "/accounts/me", nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), "Ada Lovelace")

	rec = s.do(nil, http.MethodPost, "/accounts", map[string]any{
		"email": "ada@example.org",
		"name":  "Imposter",
		"role":  "verifier",
	})
	s.Equal(http.StatusConflict, rec.Code)
}

func (s *HandlerSuite) TestRegisterValidation() {
	for _, body := range []map[string]any{
		{"email": "not-an-email", "name": "A", "role": "holder"},
		{"email": "a@example.org", "name": "  ", "role": "holder"},
		{"email": "a@example.org", "name": "A", "role": "admin"},
	} {
		rec := s.do(nil, http.MethodPost, "/accounts", body)
		s.Equal(http.StatusBadRequest, rec.Code, body)
	}
}

func (s *HandlerSuite) TestEnrollmentFailureIsBadGateway() {
	s.enroller.err = dErrors.New(dErrors.CodeEnrollment, "admin credential unavailable")
	rec := s.do(nil, http.MethodPost, "/accounts", map[string]any{
		"email": "ada@example.org",
		"name":  "Ada",
		"role":  "holder",
	})
	s.Equal(http.StatusBadGateway, rec.Code)
	s.Contains(rec.Body.String(), "enrollment_error")
}

func (s *HandlerSuite) TestMeRequiresCaller() {
	rec := s.do(nil, http.MethodGet, "/accounts/me", nil)
	s.Equal(http.StatusUnauthorized, rec.Code)
}
