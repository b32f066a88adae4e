package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"btclotto/application"
	"btclotto/domain/entities"
	"btclotto/domain/interfaces"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

type MockLedgerService struct {
	mock.Mock
}

func (m *MockLedgerService) CurrentRound(ctx context.Context) (*entities.Round, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Round), args.Error(1)
}

func (m *MockLedgerService) GetRoundByID(ctx context.Context, id int64) (*entities.Round, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Round), args.Error(1)
}

func (m *MockLedgerService) GetStats(ctx context.Context) (*entities.SystemStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.SystemStats), args.Error(1)
}

func (m *MockLedgerService) GetUser(ctx context.Context, owner entities.Principal) (*entities.Account, error) {
	args := m.Called(ctx, owner)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Account), args.Error(1)
}

func (m *MockLedgerService) CreateUser(ctx context.Context, owner entities.Principal) (*entities.Account, error) {
	args := m.Called(ctx, owner)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Account), args.Error(1)
}

func (m *MockLedgerService) PlaceBet(ctx context.Context, owner entities.Principal) (*interfaces.BetResult, error) {
	args := m.Called(ctx, owner)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*interfaces.BetResult), args.Error(1)
}

func (m *MockLedgerService) TriggerDraw(ctx context.Context, caller entities.Principal) (*interfaces.DrawResult, error) {
	args := m.Called(ctx, caller)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*interfaces.DrawResult), args.Error(1)
}

func (m *MockLedgerService) InitializeAuth(ctx context.Context, caller entities.Principal) error {
	args := m.Called(ctx, caller)
	return args.Error(0)
}

func (m *MockLedgerService) CheckDeposits(ctx context.Context, owner entities.Principal) (*application.DepositReport, error) {
	args := m.Called(ctx, owner)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*application.DepositReport), args.Error(1)
}

func (m *MockLedgerService) ListDeposits(ctx context.Context, owner entities.Principal, limit int) ([]*entities.Deposit, error) {
	args := m.Called(ctx, owner, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Deposit), args.Error(1)
}

func (m *MockLedgerService) Withdraw(ctx context.Context, owner entities.Principal, amount uint64, destination *entities.LedgerAccount) (*entities.Withdrawal, error) {
	args := m.Called(ctx, owner, amount, destination)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Withdrawal), args.Error(1)
}

func (m *MockLedgerService) ListWithdrawals(ctx context.Context, owner entities.Principal, limit int) ([]*entities.Withdrawal, error) {
	args := m.Called(ctx, owner, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Withdrawal), args.Error(1)
}

func (m *MockLedgerService) DepositAccount(owner entities.Principal) (entities.LedgerAccount, error) {
	args := m.Called(owner)
	return args.Get(0).(entities.LedgerAccount), args.Error(1)
}

func (m *MockLedgerService) TreasuryAccount() entities.LedgerAccount {
	args := m.Called()
	return args.Get(0).(entities.LedgerAccount)
}

func (m *MockLedgerService) LedgerBalance(ctx context.Context, account entities.LedgerAccount) (uint64, error) {
	args := m.Called(ctx, account)
	return args.Get(0).(uint64), args.Error(1)
}

func init() {
	gin.SetMode(gin.TestMode)
}

func testPrincipal(t *testing.T, n byte) entities.Principal {
	t.Helper()
	p, err := entities.PrincipalFromBytes([]byte{0x40, n, 0x01})
	require.NoError(t, err)
	return p
}

func newTestServer(ledger LedgerService, healthChecks ...func(ctx context.Context) error) *Server {
	return NewServer(ledger, ServerConfig{
		JWTSecret:        testSecret,
		UnitDecimals:     8,
		LedgerCanisterID: "mxzaz-hqaaa-aaaar-qaada-cai",
	}, healthChecks...)
}

func doRequest(t *testing.T, server *Server, method, path string, caller entities.Principal, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if caller != "" {
		token, err := IssueToken(testSecret, caller, time.Hour)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func activeRound() *entities.Round {
	start := time.Now().Add(-time.Minute)
	return &entities.Round{
		ID:           5,
		Status:       entities.RoundStatusActive,
		StartTime:    start,
		EndTime:      start.Add(5 * time.Minute),
		BetCost:      1_000_000,
		PrizePool:    3_000_000,
		SeedHash:     []byte{0xab, 0xcd},
		ServerSeed:   []byte{0x01, 0x02},
		Participants: []entities.Principal{"ryjl3-tyaaa-aaaaa-aaaba-cai"},
	}
}

func TestServer_Health(t *testing.T) {
	t.Parallel()

	healthy := newTestServer(new(MockLedgerService), func(ctx context.Context) error { return nil })
	rec := doRequest(t, healthy, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode(t, rec)["status"])
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))

	unhealthy := newTestServer(new(MockLedgerService), func(ctx context.Context) error { return errors.New("database down") })
	rec = doRequest(t, unhealthy, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "database down", decode(t, rec)["error"])
}

func TestServer_GetRound(t *testing.T) {
	t.Parallel()

	ledger := new(MockLedgerService)
	ledger.On("CurrentRound", mock.Anything).Return(activeRound(), nil)
	server := newTestServer(ledger)

	rec := doRequest(t, server, http.MethodGet, "/api/v1/round", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, float64(5), body["id"])
	assert.Equal(t, "active", body["phase"])
	assert.Equal(t, "0.01", body["bet_cost_display"])
	assert.Equal(t, "0.03", body["prize_pool_display"])
	assert.Equal(t, "abcd", body["seed_hash"])
	assert.NotContains(t, body, "server_seed", "seed stays secret until drawn")
	assert.Equal(t, []any{}, body["winners"])
	assert.Len(t, body["participants"], 1)
}

func TestServer_GetRoundByID(t *testing.T) {
	t.Parallel()

	drawnAt := time.Now()
	winner := entities.Principal("ryjl3-tyaaa-aaaaa-aaaba-cai")
	index := int64(0)
	drawn := activeRound()
	drawn.Complete(&winner, &index, []byte{0xff}, drawnAt)

	ledger := new(MockLedgerService)
	ledger.On("GetRoundByID", mock.Anything, int64(5)).Return(drawn, nil)
	ledger.On("GetRoundByID", mock.Anything, int64(9)).Return(nil, nil)
	server := newTestServer(ledger)

	rec := doRequest(t, server, http.MethodGet, "/api/v1/rounds/5", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "drawn", body["phase"])
	assert.Equal(t, "0102", body["server_seed"])
	assert.Equal(t, "ff", body["beacon"])
	assert.Equal(t, []any{winner.String()}, body["winners"])
	assert.Equal(t, float64(drawnAt.UnixNano()), body["drawn_at"])

	rec = doRequest(t, server, http.MethodGet, "/api/v1/rounds/9", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(t, server, http.MethodGet, "/api/v1/rounds/abc", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_GetUser(t *testing.T) {
	t.Parallel()

	owner := testPrincipal(t, 1)
	missing := testPrincipal(t, 2)
	depositAccount := entities.LedgerAccount{Owner: "ryjl3-tyaaa-aaaaa-aaaba-cai", Subaccount: entities.Subaccount{31: 1}}

	ledger := new(MockLedgerService)
	ledger.On("GetUser", mock.Anything, owner).Return(&entities.Account{
		Owner:   owner,
		Balance: 150_000_000,
		TransactionHistory: []*entities.Transaction{
			{ID: 1, Type: entities.TransactionTypeDeposit, Amount: 150_000_000, BalanceAfter: 150_000_000},
		},
	}, nil)
	ledger.On("GetUser", mock.Anything, missing).Return(nil, nil)
	ledger.On("DepositAccount", owner).Return(depositAccount, nil)
	server := newTestServer(ledger)

	rec := doRequest(t, server, http.MethodGet, "/api/v1/users/"+owner.String(), "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "1.5", body["balance_display"])
	assert.Equal(t, depositAccount.String(), body["deposit_account"])
	history := body["transaction_history"].([]any)
	require.Len(t, history, 1)
	assert.Equal(t, "Deposit", history[0].(map[string]any)["description"])

	rec = doRequest(t, server, http.MethodGet, "/api/v1/users/"+missing.String(), "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "null", rec.Body.String())

	rec = doRequest(t, server, http.MethodGet, "/api/v1/users/not-a-principal", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_RequiresIdentity(t *testing.T) {
	t.Parallel()

	server := newTestServer(new(MockLedgerService))

	tests := []struct {
		name   string
		header string
	}{
		{"no header", ""},
		{"not bearer", "Basic abc"},
		{"garbage token", "Bearer abc.def.ghi"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodPost, "/api/v1/bets", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			server.Handler().ServeHTTP(rec, req)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}

	forged, err := IssueToken("other-secret", testPrincipal(t, 1), time.Hour)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/bets", nil)
	req.Header.Set("Authorization", "Bearer "+forged)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestServer_PlaceBet(t *testing.T) {
	t.Parallel()

	owner := testPrincipal(t, 1)
	broke := testPrincipal(t, 2)

	ledger := new(MockLedgerService)
	ledger.On("PlaceBet", mock.Anything, owner).Return(&interfaces.BetResult{
		Round:      activeRound(),
		Entry:      &entities.RoundEntry{ID: 12, RoundID: 5, Owner: owner},
		NewBalance: 500_000,
	}, nil)
	ledger.On("PlaceBet", mock.Anything, broke).Return(nil, entities.ErrInsufficientBalance)
	server := newTestServer(ledger)

	rec := doRequest(t, server, http.MethodPost, "/api/v1/bets", owner, "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, float64(12), body["entry_id"])
	assert.Equal(t, "0.005", body["new_balance_display"])

	rec = doRequest(t, server, http.MethodPost, "/api/v1/bets", broke, "")
	assert.Equal(t, http.StatusPaymentRequired, rec.Code)
	assert.Equal(t, entities.ErrInsufficientBalance.Error(), decode(t, rec)["error"])
}

func TestServer_Admin(t *testing.T) {
	t.Parallel()

	admin := testPrincipal(t, 1)
	stranger := testPrincipal(t, 2)

	ledger := new(MockLedgerService)
	ledger.On("TriggerDraw", mock.Anything, stranger).Return(nil, entities.ErrUnauthorized)
	ledger.On("TriggerDraw", mock.Anything, admin).Return(&interfaces.DrawResult{NextRound: activeRound()}, nil)
	ledger.On("InitializeAuth", mock.Anything, stranger).Return(entities.ErrUnauthorized)
	ledger.On("InitializeAuth", mock.Anything, admin).Return(nil)
	server := newTestServer(ledger)

	rec := doRequest(t, server, http.MethodPost, "/api/v1/admin/draw", stranger, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doRequest(t, server, http.MethodPost, "/api/v1/admin/draw", admin, "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.NotContains(t, body, "round")
	assert.Contains(t, body, "next_round")

	rec = doRequest(t, server, http.MethodPost, "/api/v1/admin/initialize", stranger, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doRequest(t, server, http.MethodPost, "/api/v1/admin/initialize", admin, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_CheckDeposits(t *testing.T) {
	t.Parallel()

	owner := testPrincipal(t, 1)
	flaky := testPrincipal(t, 2)
	credited := &entities.Deposit{TxHash: "abc", Owner: owner, Amount: 500, Status: entities.DepositStatusConfirmed}

	ledger := new(MockLedgerService)
	ledger.On("CheckDeposits", mock.Anything, owner).Return(&application.DepositReport{
		Owner:    owner,
		Credited: []*entities.Deposit{credited},
		Cursor:   7,
	}, nil)
	ledger.On("CheckDeposits", mock.Anything, flaky).Return(&application.DepositReport{
		Owner:    flaky,
		Credited: []*entities.Deposit{},
		Cursor:   3,
	}, fmt.Errorf("%w: list_transfers: timeout", entities.ErrExternalCallFailed))
	server := newTestServer(ledger)

	rec := doRequest(t, server, http.MethodPost, "/api/v1/deposits/check", owner, "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, float64(7), body["cursor"])
	deposits := body["credited"].([]any)
	require.Len(t, deposits, 1)
	assert.Equal(t, "abc", deposits[0].(map[string]any)["tx_hash"])

	rec = doRequest(t, server, http.MethodPost, "/api/v1/deposits/check", flaky, "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	data := decode(t, rec)["data"].(map[string]any)
	assert.Equal(t, float64(3), data["cursor"])
}

func TestServer_ListDeposits(t *testing.T) {
	t.Parallel()

	owner := testPrincipal(t, 1)
	ledger := new(MockLedgerService)
	ledger.On("ListDeposits", mock.Anything, owner, maxListLimit).Return([]*entities.Deposit{}, nil)
	server := newTestServer(ledger)

	rec := doRequest(t, server, http.MethodGet, "/api/v1/deposits?limit=1000", owner, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", rec.Body.String())

	rec = doRequest(t, server, http.MethodGet, "/api/v1/deposits?limit=-1", owner, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_Withdraw(t *testing.T) {
	t.Parallel()

	owner := testPrincipal(t, 1)
	destination := entities.LedgerAccount{Owner: testPrincipal(t, 9)}
	failed := entities.NewWithdrawal(owner, 1000, 10, entities.LedgerAccount{Owner: owner}, time.Now())
	failed.Fail("ledger rejected transfer: insufficient_funds")
	pending := entities.NewWithdrawal(owner, 2000, 10, destination, time.Now())
	completed := entities.NewWithdrawal(owner, 3000, 10, entities.LedgerAccount{Owner: owner}, time.Now())
	completed.Complete(42)

	ledger := new(MockLedgerService)
	ledger.On("Withdraw", mock.Anything, owner, uint64(1000), (*entities.LedgerAccount)(nil)).
		Return(failed, fmt.Errorf("%w: insufficient funds", entities.ErrWithdrawFailed))
	ledger.On("Withdraw", mock.Anything, owner, uint64(2000), &destination).
		Return(pending, fmt.Errorf("%w: %s: timeout", application.ErrWithdrawalPending, pending.ID))
	ledger.On("Withdraw", mock.Anything, owner, uint64(3000), (*entities.LedgerAccount)(nil)).
		Return(completed, nil)
	server := newTestServer(ledger)

	tests := []struct {
		name       string
		body       string
		wantStatus int
		check      func(t *testing.T, body map[string]any)
	}{
		{
			name:       "rejected transfer is refunded",
			body:       `{"amount": 1000}`,
			wantStatus: http.StatusBadGateway,
			check: func(t *testing.T, body map[string]any) {
				data := body["data"].(map[string]any)
				assert.Equal(t, "failed", data["status"])
				assert.Contains(t, data["failure_reason"], "insufficient_funds")
			},
		},
		{
			name:       "unknown outcome is accepted as pending",
			body:       fmt.Sprintf(`{"amount": 2000, "to": %q}`, destination.String()),
			wantStatus: http.StatusAccepted,
			check: func(t *testing.T, body map[string]any) {
				data := body["data"].(map[string]any)
				assert.Equal(t, "pending", data["status"])
				assert.Equal(t, destination.String(), data["destination"])
			},
		},
		{
			name:       "decimal amount",
			body:       `{"amount_display": "0.00003"}`,
			wantStatus: http.StatusOK,
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, "completed", body["status"])
				assert.Equal(t, float64(42), body["block_index"])
				assert.Equal(t, "0.00003", body["amount_display"])
			},
		},
		{
			name:       "amount finer than one unit",
			body:       `{"amount_display": "0.000000001"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "missing amount",
			body:       `{}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "invalid destination",
			body:       `{"amount": 1000, "to": "nope"}`,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec := doRequest(t, server, http.MethodPost, "/api/v1/withdrawals", owner, tt.body)
			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			if tt.check != nil {
				tt.check(t, decode(t, rec))
			}
		})
	}
}

func TestServer_LedgerAccounts(t *testing.T) {
	t.Parallel()

	owner := testPrincipal(t, 1)
	treasury := entities.LedgerAccount{Owner: "ryjl3-tyaaa-aaaaa-aaaba-cai"}
	depositAccount := entities.LedgerAccount{Owner: treasury.Owner, Subaccount: entities.Subaccount{0: 3, 1: 0x40}}
	withSub := entities.LedgerAccount{Owner: owner, Subaccount: entities.Subaccount{31: 0x0a}}

	ledger := new(MockLedgerService)
	ledger.On("DepositAccount", owner).Return(depositAccount, nil)
	ledger.On("TreasuryAccount").Return(treasury)
	ledger.On("LedgerBalance", mock.Anything, withSub).Return(uint64(250_000_000), nil)
	server := newTestServer(ledger)

	rec := doRequest(t, server, http.MethodGet, "/api/v1/users/"+owner.String()+"/deposit-account", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, depositAccount.String(), body["account"])
	assert.Equal(t, depositAccount.Subaccount.Hex(), body["subaccount"])

	rec = doRequest(t, server, http.MethodGet, "/api/v1/ledger/balance?owner="+owner.String()+"&subaccount=0a", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body = decode(t, rec)
	assert.Equal(t, "2.5", body["balance_display"])
	assert.Equal(t, withSub.String(), body["account"])

	rec = doRequest(t, server, http.MethodGet, "/api/v1/ledger/balance?owner=bad", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, server, http.MethodGet, "/api/v1/treasury", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body = decode(t, rec)
	assert.Equal(t, "mxzaz-hqaaa-aaaar-qaada-cai", body["ledger_canister_id"])
	assert.Equal(t, treasury.String(), body["treasury"].(map[string]any)["account"])
}

func TestStatusFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want int
	}{
		{entities.ErrUnknownAccount, http.StatusNotFound},
		{entities.ErrRoundNotFound, http.StatusNotFound},
		{fmt.Errorf("bet: %w", entities.ErrInsufficientBalance), http.StatusPaymentRequired},
		{entities.ErrRoundClosed, http.StatusConflict},
		{entities.ErrAccountFrozen, http.StatusConflict},
		{&entities.InvariantError{Owner: "2vxsx-fae", Reason: "drift"}, http.StatusConflict},
		{entities.ErrUnauthorized, http.StatusForbidden},
		{entities.ErrAnonymousCaller, http.StatusForbidden},
		{entities.ErrInvalidAmount, http.StatusBadRequest},
		{fmt.Errorf("%w: cannot withdraw to a treasury account", entities.ErrInvalidDestination), http.StatusBadRequest},
		{application.ErrWithdrawalPending, http.StatusAccepted},
		{entities.ErrExternalCallFailed, http.StatusBadGateway},
		{entities.ErrWithdrawFailed, http.StatusBadGateway},
		{errors.New("database down"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}

func TestParseToken(t *testing.T) {
	t.Parallel()

	owner := testPrincipal(t, 1)

	token, err := IssueToken(testSecret, owner, time.Hour)
	require.NoError(t, err)
	parsed, err := ParseToken(testSecret, token)
	require.NoError(t, err)
	assert.Equal(t, owner, parsed)

	expired, err := IssueToken(testSecret, owner, -time.Minute)
	require.NoError(t, err)
	_, err = ParseToken(testSecret, expired)
	assert.Error(t, err)

	badSubject, err := IssueToken(testSecret, "Not-Canonical", time.Hour)
	require.NoError(t, err)
	_, err = ParseToken(testSecret, badSubject)
	assert.ErrorContains(t, err, "invalid token subject")
}
