package handler_test

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	salesmodels "immo/internal/sales/models"
	sales "immo/internal/sales/service"
	salesstore "immo/internal/sales/store"
	"immo/internal/signature/handler"
	"immo/internal/signature/models"
	"immo/internal/signature/service"
	"immo/internal/signature/store"
	id "immo/pkg/domain"
	"immo/pkg/testutil"
)

var t0 = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

type inbox struct {
	mu    sync.Mutex
	codes map[id.ContractID]string
}

func (i *inbox) SendSignatureCode(_ context.Context, d models.CodeDelivery) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.codes[d.ContractID] = d.Code
	return nil
}

func (i *inbox) code(contractID id.ContractID) string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.codes[contractID]
}

type SignatureHandlerSuite struct {
	suite.Suite
	router     http.Handler
	inbox      *inbox
	contractID id.ContractID

	client id.Actor
	staff  id.Actor
	admin  id.Actor
}

func TestSignatureHandlerSuite(t *testing.T) {
	suite.Run(t, new(SignatureHandlerSuite))
}

func (s *SignatureHandlerSuite) SetupTest() {
	mem := salesstore.NewMemory()
	salesSvc := sales.New(mem, mem)
	s.inbox = &inbox{codes: map[id.ContractID]string{}}

	cfg := service.DefaultConfig()
	cfg.BcryptCost = bcrypt.MinCost
	svc, err := service.New(store.NewMemory(), salesSvc, s.inbox, service.WithConfig(cfg))
	s.Require().NoError(err)

	r := chi.NewRouter()
	handler.New(svc, slog.New(slog.DiscardHandler)).Register(r)
	s.router = r

	s.client = id.Actor{UserID: id.UserID(uuid.New()), ClientID: id.ClientID(uuid.New()), Roles: []id.Role{id.RoleClient}}
	s.staff = id.Actor{UserID: id.UserID(uuid.New()), Roles: []id.Role{id.RoleCommercial}}
	s.admin = id.Actor{UserID: id.UserID(uuid.New()), Roles: []id.Role{id.RoleAdmin}}

	unitID := id.UnitID(uuid.New())
	mem.PutUnit(&salesmodels.Unit{ID: unitID, Price: decimal.NewFromInt(1_000_000), Availability: salesmodels.AvailabilityAvailable, UpdatedAt: t0})

	ctx := context.Background()
	res, err := salesSvc.CreateReservation(ctx, s.client, unitID, s.client.ClientID, decimal.Zero)
	s.Require().NoError(err)
	_, err = salesSvc.ConfirmReservation(ctx, s.staff, res.ID)
	s.Require().NoError(err)
	c, err := salesSvc.CreateContract(ctx, s.staff, res.ID, []byte("deed of sale"))
	s.Require().NoError(err)
	s.contractID = c.ID
}

func (s *SignatureHandlerSuite) do(actor id.Actor, at time.Duration, method, path string, body any) *httptest.ResponseRecorder {
	req := testutil.NewJSONRequest(s.T(), method, path, body)
	return testutil.DoRequest(s.router, testutil.AsActorAt(req, actor, t0.Add(at)))
}

func (s *SignatureHandlerSuite) path(suffix string) string {
	return "/contracts/" + s.contractID.String() + suffix
}

func (s *SignatureHandlerSuite) issue(at time.Duration) string {
	rr := s.do(s.client, at, http.MethodPost, s.path("/signature-code"), nil)
	s.Require().Equal(http.StatusCreated, rr.Code, rr.Body.String())
	return s.inbox.code(s.contractID)
}

func wrong(code string) string {
	b := []byte(code)
	b[0] = '0' + (b[0]-'0'+1)%10
	return string(b)
}

func (s *SignatureHandlerSuite) TestIssue() {
	rr := s.do(s.client, 0, http.MethodPost, s.path("/signature-code"), nil)
	s.Require().Equal(http.StatusCreated, rr.Code, rr.Body.String())

	resp := testutil.UnmarshalResponse[handler.IssueResponse](s.T(), rr)
	s.Equal(s.contractID, resp.ContractID)
	s.EqualValues(300, resp.ExpiresIn)
	s.True(resp.ExpiresAt.Equal(t0.Add(300 * time.Second)))
	s.NotContains(rr.Body.String(), s.inbox.code(s.contractID))
}

func (s *SignatureHandlerSuite) TestIssueUnknownContract() {
	rr := s.do(s.client, 0, http.MethodPost, "/contracts/"+uuid.NewString()+"/signature-code", nil)
	testutil.AssertStatusAndError(s.T(), rr, http.StatusNotFound, "not_found")
}

func (s *SignatureHandlerSuite) TestMalformedContractID() {
	rr := s.do(s.client, 0, http.MethodGet, "/contracts/nope/signature-code", nil)
	testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "invalid_input")
}

func (s *SignatureHandlerSuite) TestSubmitCorrectCodeSigns() {
	code := s.issue(0)

	rr := s.do(s.client, 30*time.Second, http.MethodPost, s.path("/signature"), map[string]any{"code": code})
	s.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())

	resp := testutil.UnmarshalResponse[handler.SubmitResponse](s.T(), rr)
	s.Equal(models.OutcomeSigned, resp.Outcome)
	s.Require().NotNil(resp.Contract)
	s.Equal(salesmodels.ContractSigned, resp.Contract.Status)
}

func (s *SignatureHandlerSuite) TestSubmitEmptyCode() {
	s.issue(0)
	rr := s.do(s.client, 0, http.MethodPost, s.path("/signature"), map[string]any{"code": "  "})
	testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "validation_error")
}

func (s *SignatureHandlerSuite) TestWrongCodesBlock() {
	code := s.issue(0)

	rr := s.do(s.client, time.Second, http.MethodPost, s.path("/signature"), map[string]any{"code": wrong(code)})
	s.Require().Equal(http.StatusUnprocessableEntity, rr.Code, rr.Body.String())
	resp := testutil.UnmarshalResponse[handler.SubmitResponse](s.T(), rr)
	s.Equal(models.OutcomeIncorrect, resp.Outcome)
	s.Equal(1, resp.AttemptsUsed)
	s.Equal(2, resp.AttemptsLeft)

	s.do(s.client, 2*time.Second, http.MethodPost, s.path("/signature"), map[string]any{"code": wrong(code)})
	rr = s.do(s.client, 3*time.Second, http.MethodPost, s.path("/signature"), map[string]any{"code": wrong(code)})
	s.Require().Equal(http.StatusTooManyRequests, rr.Code, rr.Body.String())
	s.Equal("900", rr.Header().Get("Retry-After"))
	resp = testutil.UnmarshalResponse[handler.SubmitResponse](s.T(), rr)
	s.Equal(models.OutcomeBlocked, resp.Outcome)
	s.EqualValues(900, resp.RetryAfter)

	rr = s.do(s.client, 4*time.Second, http.MethodGet, s.path("/signature-code"), nil)
	s.Require().Equal(http.StatusOK, rr.Code)
	status := testutil.UnmarshalResponse[handler.StatusResponse](s.T(), rr)
	s.True(status.Blocked)
	s.EqualValues(899, status.BlockRemaining)

	s.Run("client cannot lift the block", func() {
		rr := s.do(s.client, 5*time.Second, http.MethodDelete, s.path("/signature-block"), nil)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusForbidden, "forbidden")
	})

	s.Run("admin lifts the block", func() {
		rr := s.do(s.admin, 5*time.Second, http.MethodDelete, s.path("/signature-block"), nil)
		s.Equal(http.StatusNoContent, rr.Code, rr.Body.String())

		rr = s.do(s.client, 6*time.Second, http.MethodGet, s.path("/signature-code"), nil)
		status := testutil.UnmarshalResponse[handler.StatusResponse](s.T(), rr)
		s.False(status.Blocked)
	})
}

func (s *SignatureHandlerSuite) TestRetryAfterNeverZeroWhileBlocked() {
	code := s.issue(0)
	for i := 1; i <= 3; i++ {
		s.do(s.client, time.Duration(i)*time.Second, http.MethodPost, s.path("/signature"), map[string]any{"code": wrong(code)})
	}

	rr := s.do(s.client, 902*time.Second+600*time.Millisecond, http.MethodPost, s.path("/signature"), map[string]any{"code": code})
	s.Require().Equal(http.StatusTooManyRequests, rr.Code, rr.Body.String())
	s.Equal("1", rr.Header().Get("Retry-After"))
	resp := testutil.UnmarshalResponse[handler.SubmitResponse](s.T(), rr)
	s.EqualValues(1, resp.RetryAfter)

	rr = s.do(s.client, 902*time.Second+600*time.Millisecond, http.MethodPost, s.path("/signature-code"), nil)
	testutil.AssertStatusAndError(s.T(), rr, http.StatusTooManyRequests, "rate_limited")
	s.Equal("1", rr.Header().Get("Retry-After"))
}

func (s *SignatureHandlerSuite) TestExpiredCode() {
	code := s.issue(0)
	rr := s.do(s.client, 301*time.Second, http.MethodPost, s.path("/signature"), map[string]any{"code": code})
	s.Require().Equal(http.StatusGone, rr.Code, rr.Body.String())
	resp := testutil.UnmarshalResponse[handler.SubmitResponse](s.T(), rr)
	s.Equal(models.OutcomeExpired, resp.Outcome)
}

func (s *SignatureHandlerSuite) TestStatus() {
	s.Run("no live code", func() {
		rr := s.do(s.client, 0, http.MethodGet, s.path("/signature-code"), nil)
		s.Require().Equal(http.StatusOK, rr.Code)
		testutil.AssertJSONContains(s.T(), rr, "remaining_validity", nil)
		testutil.AssertJSONContains(s.T(), rr, "blocked", false)
	})

	s.Run("countdown after issue", func() {
		s.issue(0)
		rr := s.do(s.client, 100*time.Second, http.MethodGet, s.path("/signature-code"), nil)
		status := testutil.UnmarshalResponse[handler.StatusResponse](s.T(), rr)
		s.Require().NotNil(status.RemainingValidity)
		s.EqualValues(200, *status.RemainingValidity)
	})
}
