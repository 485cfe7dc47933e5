package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"stealth-swap/config"
	"stealth-swap/pkg/catalog"
	"stealth-swap/pkg/session"
	"stealth-swap/pkg/swap"
	"stealth-swap/pkg/types"
)

type fakeWallet struct {
	connected bool
}

func (f *fakeWallet) Connect(context.Context) error {
	f.connected = true
	return nil
}

func (f *fakeWallet) Disconnect()       { f.connected = false }
func (f *fakeWallet) IsConnected() bool { return f.connected }
func (f *fakeWallet) Chain() string     { return "ethereum" }

func (f *fakeWallet) Account() string {
	return "0x1234567890123456789012345678901234567890"
}

func (f *fakeWallet) Balance(context.Context, string, types.Token) (string, error) {
	return "5.0000", nil
}

type fakeExecutor struct {
	err error
}

func (f *fakeExecutor) Execute(context.Context, types.SwapRequest) (*types.Outcome, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &types.Outcome{Reference: "0xdeposit", AmountOut: "2500"}, nil
}

type legBody struct {
	Chain  *types.Chain `json:"chain"`
	Token  *types.Token `json:"token"`
	Amount string       `json:"amount"`
}

type viewBody struct {
	Source      legBody `json:"source"`
	Destination legBody `json:"destination"`
	Visibility  string  `json:"visibility"`
	Status      string  `json:"status"`
	Ready       bool    `json:"ready"`
	Connected   bool    `json:"connected"`
	Button      string  `json:"button"`
	CanSubmit   bool    `json:"can_submit"`
}

type testServer struct {
	handler http.Handler
	wallet  *fakeWallet
	exec    *fakeExecutor
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	cat := catalog.NewStatic(config.CatalogConfig{Chains: config.DefaultChains, Tokens: config.DefaultTokens})
	w := &fakeWallet{}
	exec := &fakeExecutor{}
	cfg := config.ExecutorConfig{BridgeFeePercent: "0.1", EstimatedDuration: "~3-5 minutes"}

	store := NewStore(time.Minute, time.Minute, func() *session.Session {
		return session.New(cat, w, exec, nil, cfg, zap.NewNop())
	}, zap.NewNop())

	return &testServer{
		handler: NewServer(store, cat, cat, zap.NewNop()).Handler(),
		wallet:  w,
		exec:    exec,
	}
}

func (ts *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) create(t *testing.T) string {
	t.Helper()
	rec := ts.do(t, http.MethodPost, "/sessions", "")
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		ID   string   `json:"id"`
		View viewBody `json:"view"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.ID)
	assert.Equal(t, "masked", resp.View.Visibility)
	return resp.ID
}

func decodeView(t *testing.T, rec *httptest.ResponseRecorder) viewBody {
	t.Helper()
	var v viewBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var e errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &e))
	assert.Equal(t, "error", e.Status)
	return e
}

func (ts *testServer) fill(t *testing.T, id string) {
	t.Helper()
	for _, step := range []struct{ path, body string }{
		{"/legs/source/chain", `{"id":"ethereum"}`},
		{"/legs/destination/chain", `{"id":"polygon"}`},
		{"/legs/from/token", `{"id":"eth"}`},
		{"/legs/to/token", `{"id":"USDC"}`},
		{"/legs/source/amount", `{"amount":"1.5"}`},
		{"/legs/destination/amount", `{"amount":"2500"}`},
	} {
		rec := ts.do(t, http.MethodPost, "/sessions/"+id+step.path, step.body)
		require.Equal(t, http.StatusOK, rec.Code, step.path)
	}
}

func TestServer_Catalog(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodGet, "/chains", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var chains []types.Chain
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &chains))
	assert.Len(t, chains, 5)
	assert.Equal(t, "ethereum", chains[0].ID)

	rec = ts.do(t, http.MethodGet, "/tokens?q=coin", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var tokens []types.Token
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tokens))
	require.Len(t, tokens, 3)
	assert.Equal(t, "USDC", tokens[0].Symbol)
	for _, tok := range tokens {
		assert.Empty(t, tok.Balance, tok.Symbol)
	}

	rec = ts.do(t, http.MethodOptions, "/sessions", "")
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestServer_SwapFlow(t *testing.T) {
	ts := newTestServer(t)
	id := ts.create(t)
	ts.fill(t, id)

	rec := ts.do(t, http.MethodGet, "/sessions/"+id, "")
	require.Equal(t, http.StatusOK, rec.Code)
	v := decodeView(t, rec)
	assert.True(t, v.Ready)
	assert.False(t, v.CanSubmit)
	assert.Equal(t, session.LabelConnect, v.Button)
	assert.Equal(t, "••••••", v.Source.Amount)
	assert.Equal(t, "Amount Encrypted", v.Status)

	rec = ts.do(t, http.MethodPost, "/sessions/"+id+"/submit", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, decodeError(t, rec).Message, "wallet not connected")

	rec = ts.do(t, http.MethodPost, "/sessions/"+id+"/connect", "")
	require.Equal(t, http.StatusOK, rec.Code)
	v = decodeView(t, rec)
	assert.True(t, v.Connected)
	assert.Equal(t, session.LabelSwap, v.Button)

	rec = ts.do(t, http.MethodPost, "/sessions/"+id+"/visibility", "")
	require.Equal(t, http.StatusOK, rec.Code)
	v = decodeView(t, rec)
	assert.Equal(t, "plain", v.Visibility)
	assert.Equal(t, "1.5", v.Source.Amount)

	rec = ts.do(t, http.MethodPost, "/sessions/"+id+"/reverse", "")
	require.Equal(t, http.StatusOK, rec.Code)
	v = decodeView(t, rec)
	assert.Equal(t, "polygon", v.Source.Chain.ID)
	assert.Equal(t, "USDC", v.Source.Token.Symbol)
	assert.Equal(t, "2500", v.Source.Amount)
	assert.Equal(t, "1.5", v.Destination.Amount)

	rec = ts.do(t, http.MethodPost, "/sessions/"+id+"/submit", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var outcome types.Outcome
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &outcome))
	assert.Equal(t, "0xdeposit", outcome.Reference)

	rec = ts.do(t, http.MethodGet, "/sessions/"+id, "")
	v = decodeView(t, rec)
	assert.False(t, v.Ready)
	assert.Nil(t, v.Source.Chain)
	assert.Equal(t, "plain", v.Visibility)
}

func TestServer_AmountIsStoredVerbatim(t *testing.T) {
	ts := newTestServer(t)
	id := ts.create(t)
	ts.fill(t, id)

	ts.do(t, http.MethodPost, "/sessions/"+id+"/visibility", `{"mode":"plain"}`)
	rec := ts.do(t, http.MethodPost, "/sessions/"+id+"/legs/source/amount", `{"amount":"abc"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	v := decodeView(t, rec)
	assert.Equal(t, "abc", v.Source.Amount)
	assert.False(t, v.Ready)

	ts.wallet.connected = true
	rec = ts.do(t, http.MethodPost, "/sessions/"+id+"/submit", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, decodeError(t, rec).Message, "swap request not ready")
}

func TestServer_ExponentAmountIsNotReady(t *testing.T) {
	ts := newTestServer(t)
	id := ts.create(t)
	ts.fill(t, id)
	ts.do(t, http.MethodPost, "/sessions/"+id+"/visibility", `{"mode":"plain"}`)

	for _, amount := range []string{"1e50000000", "1,5"} {
		rec := ts.do(t, http.MethodPost, "/sessions/"+id+"/legs/destination/amount", `{"amount":"`+amount+`"}`)
		require.Equal(t, http.StatusOK, rec.Code)
		v := decodeView(t, rec)
		assert.Equal(t, amount, v.Destination.Amount)
		assert.False(t, v.Ready, amount)
	}
}

func TestServer_SessionTokens(t *testing.T) {
	ts := newTestServer(t)
	id := ts.create(t)

	tokens := func() map[string]string {
		rec := ts.do(t, http.MethodGet, "/sessions/"+id+"/tokens", "")
		require.Equal(t, http.StatusOK, rec.Code)
		var list []types.Token
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
		out := make(map[string]string)
		for _, tok := range list {
			out[tok.ID] = tok.Balance
		}
		return out
	}

	assert.Equal(t, swap.MaskedAmount, tokens()["usdc"])

	require.Equal(t, http.StatusOK, ts.do(t, http.MethodPost, "/sessions/"+id+"/connect", "").Code)
	ts.do(t, http.MethodPost, "/sessions/"+id+"/visibility", `{"mode":"plain"}`)
	assert.Equal(t, "5.0000", tokens()["usdc"])

	rec := ts.do(t, http.MethodGet, "/sessions/missing/tokens", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_ApplyMax(t *testing.T) {
	ts := newTestServer(t)
	id := ts.create(t)

	rec := ts.do(t, http.MethodPost, "/sessions/"+id+"/legs/source/max", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	ts.do(t, http.MethodPost, "/sessions/"+id+"/legs/source/token", `{"id":"usdc"}`)
	ts.do(t, http.MethodPost, "/sessions/"+id+"/visibility", `{"mode":"visible"}`)
	rec = ts.do(t, http.MethodPost, "/sessions/"+id+"/legs/source/max", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1,234.56", decodeView(t, rec).Source.Amount)
}

func TestServer_Errors(t *testing.T) {
	ts := newTestServer(t)
	id := ts.create(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		code   int
	}{
		{"unknown session", http.MethodGet, "/sessions/nope", "", http.StatusNotFound},
		{"unknown chain", http.MethodPost, "/sessions/" + id + "/legs/source/chain", `{"id":"solana"}`, http.StatusNotFound},
		{"unknown token", http.MethodPost, "/sessions/" + id + "/legs/source/token", `{"id":"doge"}`, http.StatusNotFound},
		{"unknown side", http.MethodPost, "/sessions/" + id + "/legs/middle/chain", `{"id":"ethereum"}`, http.StatusBadRequest},
		{"missing id", http.MethodPost, "/sessions/" + id + "/legs/source/chain", `{}`, http.StatusBadRequest},
		{"bad visibility", http.MethodPost, "/sessions/" + id + "/visibility", `{"mode":"blurry"}`, http.StatusBadRequest},
		{"bad body", http.MethodPost, "/sessions/" + id + "/legs/source/amount", `{"amount":`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.code, rec.Code)
			decodeError(t, rec)
		})
	}
}

func TestServer_ExecutorFailure(t *testing.T) {
	ts := newTestServer(t)
	ts.exec.err = errors.New("API error (status 400): amount too low")
	ts.wallet.connected = true
	id := ts.create(t)
	ts.fill(t, id)

	rec := ts.do(t, http.MethodPost, "/sessions/"+id+"/submit", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "API error (status 400): amount too low", decodeError(t, rec).Message)

	rec = ts.do(t, http.MethodGet, "/sessions/"+id, "")
	assert.True(t, decodeView(t, rec).Ready)
}

func TestServer_DeleteSession(t *testing.T) {
	ts := newTestServer(t)
	id := ts.create(t)

	rec := ts.do(t, http.MethodDelete, "/sessions/"+id, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = ts.do(t, http.MethodDelete, "/sessions/"+id, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_WalletCard(t *testing.T) {
	ts := newTestServer(t)
	ts.wallet.connected = true
	id := ts.create(t)

	rec := ts.do(t, http.MethodGet, "/sessions/"+id+"/wallet", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var card session.WalletCard
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &card))
	assert.Equal(t, "0x1234...7890", card.Short)
	assert.Equal(t, "Ethereum", card.Network)
	assert.Equal(t, "5.0000", card.Balance)
}
