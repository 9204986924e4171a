package web

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/elys-network/lgevault/internal/app"
	"github.com/elys-network/lgevault/internal/config"
	"github.com/elys-network/lgevault/internal/state"
	"github.com/elys-network/lgevault/internal/types"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testSecret = []byte("test-secret")
	admin      = types.MustParseAddress("0x7000000000000000000000000000000000000001")
	dev        = types.MustParseAddress("0x7000000000000000000000000000000000000002")
	alice      = types.MustParseAddress("0x7000000000000000000000000000000000000003")
)

type harness struct {
	t      *testing.T
	app    *app.App
	server *httptest.Server
}

// newHarness serves a fresh app whose genesis block mints balances.
func newHarness(t *testing.T, cfg Config, balances ...types.Allocation) *harness {
	t.Helper()
	clock := clockwork.NewFakeClockAt(time.Unix(1_700_000_000, 0))
	a, err := app.New(app.Config{Store: state.NewMemoryStore(), Clock: clock, Params: config.DefaultParameters})
	require.NoError(t, err)
	_, err = a.InitGenesis(context.Background(), app.Genesis{Admin: admin, Dev: dev, Balances: balances})
	require.NoError(t, err)

	cfg.JWTSecret = string(testSecret)
	ws := NewWebServer(cfg, a)
	srv := httptest.NewServer(ws.Handler())
	t.Cleanup(func() {
		_ = ws.Shutdown(context.Background())
		srv.Close()
	})
	return &harness{t: t, app: a, server: srv}
}

func fund(denom string, to types.Address, amount sdkmath.Int) types.Allocation {
	return types.Allocation{Denom: denom, Address: to, Amount: amount}
}

func (h *harness) token(addr types.Address) string {
	h.t.Helper()
	tok, err := IssueToken(testSecret, addr, time.Hour)
	require.NoError(h.t, err)
	return tok
}

// do sends a request and decodes the JSON response body.
func (h *harness) do(method, path string, caller types.Address, body string) (int, map[string]interface{}) {
	h.t.Helper()
	req, err := http.NewRequest(method, h.server.URL+path, strings.NewReader(body))
	require.NoError(h.t, err)
	req.Header.Set("Content-Type", "application/json")
	if caller != "" {
		req.Header.Set("Authorization", "Bearer "+h.token(caller))
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(h.t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(h.t, err)
	out := map[string]interface{}{}
	require.NoError(h.t, json.Unmarshal(raw, &out), string(raw))
	return resp.StatusCode, out
}

func TestHealth(t *testing.T) {
	h := newHarness(t, Config{})
	code, body := h.do("GET", "/health", "", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "OK", body["status"])
	assert.Equal(t, float64(1), body["ledger"].(map[string]interface{})["height"])
}

func TestOperationsRequireToken(t *testing.T) {
	h := newHarness(t, Config{})

	code, body := h.do("POST", "/api/vault/mass-update", "", "")
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "Unauthenticated", body["error"])

	forged, err := IssueToken([]byte("other-secret"), alice, time.Hour)
	require.NoError(t, err)
	req, err := http.NewRequest("POST", h.server.URL+"/api/vault/mass-update", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+forged)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	code, body = h.do("POST", "/api/vault/mass-update", alice, "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, string(alice), body["sender"])
}

// addStakePool lists a second pool, id 1, for a plain stake token.
func (h *harness) addStakePool() {
	h.t.Helper()
	code, body := h.do("POST", "/api/vault/pools", admin, `{"alloc_point":100,"stake_token":"stake","withdrawable":true}`)
	require.Equal(h.t, http.StatusOK, code, body)
}

func TestDepositAndViews(t *testing.T) {
	h := newHarness(t, Config{}, fund("stake", alice, sdkmath.NewInt(5000)))
	h.addStakePool()

	code, body := h.do("POST", "/api/vault/pools/1/deposit", alice, `{"amount":"1000"}`)
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, "deposit", body["op"])

	code, body = h.do("GET", "/api/vault/pools/1", "", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "1000", body["total_staked"])
	assert.Equal(t, "stake", body["stake_token"])

	code, body = h.do("GET", "/api/vault/pools/1/users/"+string(alice), "", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "1000", body["info"].(map[string]interface{})["amount"])

	code, body = h.do("GET", "/api/bank/balances/"+string(alice)+"?denom=stake", "", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "4000", body["balance"].(map[string]interface{})["amount"])

	code, body = h.do("GET", "/api/vault/pools", "", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(2), body["count"])
}

func TestRejectionsMapToStatus(t *testing.T) {
	h := newHarness(t, Config{}, fund("stake", alice, sdkmath.NewInt(5000)))
	h.addStakePool()
	code, _ := h.do("POST", "/api/vault/pools/1/deposit", alice, `{"amount":"1000"}`)
	require.Equal(t, http.StatusOK, code)

	code, body := h.do("POST", "/api/vault/pools/1/withdraw", alice, `{"amount":"2000"}`)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "InsufficientStake", body["error"])
	assert.Equal(t, false, body["receipt"].(map[string]interface{})["success"])

	code, body = h.do("POST", "/api/vault/dev-fee", alice, `{"bps":100}`)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "NotOwner", body["error"])

	code, body = h.do("GET", "/api/vault/pools/7", "", "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "UnknownPool", body["error"])

	code, _ = h.do("POST", "/api/vault/dev-fee", admin, `{"bps":1000}`)
	assert.Equal(t, http.StatusOK, code)
	code, body = h.do("GET", "/api/vault/state", "", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(1000), body["state"].(map[string]interface{})["dev_fee_bps"])
}

func TestBadRequests(t *testing.T) {
	h := newHarness(t, Config{})
	tests := []struct {
		name, path, body string
	}{
		{"negative amount", "/api/vault/pools/0/deposit", `{"amount":"-5"}`},
		{"not a number", "/api/vault/pools/0/deposit", `{"amount":"lots"}`},
		{"missing amount", "/api/vault/pools/0/deposit", `{}`},
		{"unknown field", "/api/vault/pools/0/deposit", `{"amount":"1","extra":true}`},
		{"bad beneficiary", "/api/vault/pools/0/deposit", `{"amount":"1","on":"bob"}`},
		{"bad policy", "/api/vault/drain-policy", `{"policy":"random"}`},
		{"bad address", "/api/vault/ownership", `{"address":"0x12"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := h.do("POST", tt.path, admin, tt.body)
			assert.Equal(t, http.StatusBadRequest, code)
			assert.Equal(t, "BadRequest", body["error"])
		})
	}
}

func TestContributeWithDecimalAmount(t *testing.T) {
	h := newHarness(t, Config{}, fund("native", alice, sdkmath.NewInt(2).Mul(sdkmath.NewIntWithDecimal(1, 18))))

	code, body := h.do("POST", "/api/lge/contribute", alice, `{"amount":"1.5","agreement":false}`)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "NoAgreement", body["error"])

	code, body = h.do("POST", "/api/lge/contribute", alice, `{"amount":"1.5","agreement":true}`)
	require.Equal(t, http.StatusOK, code, body)

	code, body = h.do("GET", "/api/lge/contributions/"+string(alice), "", "")
	require.Equal(t, http.StatusOK, code)
	contributed := body["contributed"].(map[string]interface{})
	assert.Equal(t, "1500000000000000000", contributed["amount"])
	assert.Equal(t, "1.5", contributed["formatted"])
	assert.Equal(t, "0", body["claimable_lp"])

	code, body = h.do("GET", "/api/lge/status", "", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "open", body["phase"])
	assert.Equal(t, "1500000000000000000", body["total_contributed"])

	code, body = h.do("POST", "/api/lge/create-liquidity", alice, "")
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "EventOngoing", body["error"])
}

func TestTransferAppliesFee(t *testing.T) {
	h := newHarness(t, Config{}, fund("magic", alice, sdkmath.NewInt(1000)))

	code, body := h.do("POST", "/api/bank/transfer", alice, `{"denom":"magic","to":"`+string(dev)+`","amount":"1000"}`)
	require.Equal(t, http.StatusOK, code, body)
	transfers := body["transfers"].([]interface{})
	require.Len(t, transfers, 1)
	assert.Equal(t, "10", transfers[0].(map[string]interface{})["fee"])

	code, body = h.do("GET", "/api/vault/pending", "", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "10", body["amount"])
}

func TestReceipts(t *testing.T) {
	h := newHarness(t, Config{})
	for i := 0; i < 3; i++ {
		code, _ := h.do("POST", "/api/vault/mass-update", alice, "")
		require.Equal(t, http.StatusOK, code)
	}

	code, body := h.do("GET", "/api/receipts?limit=2", "", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(2), body["count"])
	receipts := body["receipts"].([]interface{})
	assert.Equal(t, float64(4), receipts[0].(map[string]interface{})["height"])
	assert.Equal(t, float64(3), receipts[1].(map[string]interface{})["height"])
}

func TestRateLimit(t *testing.T) {
	h := newHarness(t, Config{RateLimitRPS: 0.001, RateLimitBurst: 2})

	for i := 0; i < 2; i++ {
		code, _ := h.do("GET", "/health", "", "")
		assert.Equal(t, http.StatusOK, code)
	}
	code, body := h.do("GET", "/health", "", "")
	assert.Equal(t, http.StatusTooManyRequests, code)
	assert.Equal(t, "RateLimited", body["error"])
}

func TestEventFeed(t *testing.T) {
	h := newHarness(t, Config{}, fund("magic", alice, sdkmath.NewInt(100)))
	url := "ws" + strings.TrimPrefix(h.server.URL, "http") + "/api/events?op=massUpdatePools"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	// Filtered out by op.
	code, _ := h.do("POST", "/api/bank/transfer", alice, `{"denom":"magic","to":"`+string(dev)+`","amount":"1"}`)
	require.Equal(t, http.StatusOK, code)
	code, _ = h.do("POST", "/api/vault/mass-update", alice, "")
	require.Equal(t, http.StatusOK, code)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)
	var receipt types.Receipt
	require.NoError(t, json.Unmarshal(payload, &receipt))
	assert.Equal(t, "massUpdatePools", receipt.Op)
	assert.Equal(t, alice, receipt.Sender)
	assert.True(t, receipt.Success)
}

func TestParseToken(t *testing.T) {
	tok, err := IssueToken(testSecret, alice, time.Hour)
	require.NoError(t, err)
	addr, err := ParseToken(testSecret, tok)
	require.NoError(t, err)
	assert.Equal(t, alice, addr)

	expired, err := IssueToken(testSecret, alice, -time.Minute)
	require.NoError(t, err)
	_, err = ParseToken(testSecret, expired)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	_, err = ParseToken(testSecret, "not-a-token")
	assert.ErrorIs(t, err, ErrUnauthenticated)
}
