package wallet

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"stealth-swap/config"
	"stealth-swap/pkg/catalog"
	"stealth-swap/pkg/types"
)

func TestFormatBalance(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0", "0.0000"},
		{"1.2345", "1.2345"},
		{"1234.56", "1,234.5600"},
		{"999.99999", "1,000.0000"},
		{"1234567.1", "1,234,567.1000"},
		{"100", "100.0000"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatBalance(decimal.RequireFromString(tt.in)))
		})
	}
}

func TestFormatUnits(t *testing.T) {
	wei, _ := new(big.Int).SetString("1500000000000000000", 10)
	assert.Equal(t, "1.5000", FormatUnits(wei, 18))
	assert.Equal(t, "1,234.5600", FormatUnits(big.NewInt(1234560000), 6))
	assert.Equal(t, "", FormatUnits(nil, 6))
}

func TestShortAddress(t *testing.T) {
	assert.Equal(t, "0x1234...abcd", ShortAddress("0x1234567890123456789012345678901234abcd"))
	assert.Equal(t, "0x12", ShortAddress("0x12"))
}

type fakeWallet struct {
	connected bool
	chain     string
	calls     int
	balance   string
	err       error
}

func (f *fakeWallet) Connect(context.Context) error {
	f.connected = true
	return nil
}

func (f *fakeWallet) Disconnect()       { f.connected = false }
func (f *fakeWallet) IsConnected() bool { return f.connected }
func (f *fakeWallet) Chain() string     { return f.chain }

func (f *fakeWallet) Account() string {
	return "0xAbC0000000000000000000000000000000000001"
}

func (f *fakeWallet) Balance(context.Context, string, types.Token) (string, error) {
	f.calls++
	return f.balance, f.err
}

func TestCachedBalances(t *testing.T) {
	inner := &fakeWallet{connected: true, chain: "ethereum", balance: "1.0000"}
	c := NewCachedBalances(inner, time.Minute, zap.NewNop())
	ctx := context.Background()
	eth := types.Token{ID: "eth", Symbol: "ETH"}

	b, err := c.Balance(ctx, inner.Account(), eth)
	require.NoError(t, err)
	assert.Equal(t, "1.0000", b)

	inner.balance = "2.0000"
	b, err = c.Balance(ctx, inner.Account(), eth)
	require.NoError(t, err)
	assert.Equal(t, "1.0000", b)
	assert.Equal(t, 1, inner.calls)

	inner.chain = "polygon"
	b, err = c.Balance(ctx, inner.Account(), eth)
	require.NoError(t, err)
	assert.Equal(t, "2.0000", b)
	assert.Equal(t, 2, inner.calls)

	c.Disconnect()
	assert.False(t, inner.IsConnected())
	assert.Equal(t, 0, c.cache.ItemCount())
}

func TestCachedBalances_ErrorsAreNotCached(t *testing.T) {
	inner := &fakeWallet{connected: true, chain: "ethereum", err: errors.New("rpc down")}
	c := NewCachedBalances(inner, time.Minute, zap.NewNop())
	eth := types.Token{ID: "eth"}

	_, err := c.Balance(context.Background(), inner.Account(), eth)
	assert.Error(t, err)

	inner.err = nil
	inner.balance = "3.0000"
	b, err := c.Balance(context.Background(), inner.Account(), eth)
	require.NoError(t, err)
	assert.Equal(t, "3.0000", b)
	assert.Equal(t, 2, inner.calls)
}

func newTestEVMWallet(t *testing.T, key string) *EVMWallet {
	t.Helper()
	cat := catalog.NewStatic(config.CatalogConfig{Chains: config.DefaultChains, Tokens: config.DefaultTokens})
	w, err := NewEVMWallet(
		config.WalletConfig{PrivateKey: key, DefaultChain: "ethereum"},
		map[string]config.EVMNetwork{},
		cat,
		zap.NewNop(),
	)
	require.NoError(t, err)
	return w
}

func TestEVMWallet_Disconnected(t *testing.T) {
	w := newTestEVMWallet(t, "")

	assert.False(t, w.IsConnected())
	assert.Equal(t, "", w.Account())
	assert.Equal(t, "ethereum", w.Chain())

	_, err := w.Balance(context.Background(), "0x0000000000000000000000000000000000000001", types.Token{Symbol: "ETH"})
	assert.ErrorIs(t, err, ErrNotConnected)

	_, err = w.Transfer(context.Background(), "ethereum", "0x0000000000000000000000000000000000000001", types.Token{Symbol: "ETH"}, decimal.NewFromInt(1))
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestEVMWallet_ConnectErrors(t *testing.T) {
	err := newTestEVMWallet(t, "").Connect(context.Background())
	assert.ErrorContains(t, err, "private key not configured")

	err = newTestEVMWallet(t, "0xnothex").Connect(context.Background())
	assert.ErrorContains(t, err, "invalid private key")

	key := "0x4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"
	w := newTestEVMWallet(t, key)
	err = w.Connect(context.Background())
	assert.ErrorContains(t, err, "RPC URL not configured")
	assert.False(t, w.IsConnected())
}

func TestEVMWallet_Resolve(t *testing.T) {
	w := newTestEVMWallet(t, "")

	native, _, err := w.resolve("ethereum", types.Token{Symbol: "ETH"})
	require.NoError(t, err)
	assert.True(t, native)

	native, addr, err := w.resolve("ethereum", config.DefaultTokens[1])
	require.NoError(t, err)
	assert.False(t, native)
	assert.Equal(t, "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", addr.Hex())

	native, _, err = w.resolve("arbitrum", types.Token{Symbol: "ETH", Contracts: map[string]string{"arbitrum": NativeContract}})
	require.NoError(t, err)
	assert.True(t, native)

	_, _, err = w.resolve("polygon", config.DefaultTokens[1])
	assert.ErrorIs(t, err, ErrUnsupportedToken)

	_, _, err = w.resolve("bsc", types.Token{Symbol: "X", Contracts: map[string]string{"bsc": "nope"}})
	assert.ErrorContains(t, err, "invalid token contract address")
}
