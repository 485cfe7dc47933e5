package wallet

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"stealth-swap/pkg/types"
)

// CachedBalances decorates a Wallet with a TTL cache for balance lookups.
// Balances are snapshots, so a short TTL is enough to avoid hammering RPCs
// while the user edits a swap.
type CachedBalances struct {
	Wallet
	cache *cache.Cache
	log   *zap.Logger
}

var (
	_ Wallet     = (*CachedBalances)(nil)
	_ Switcher   = (*CachedBalances)(nil)
	_ Transferer = (*CachedBalances)(nil)
)

// NewCachedBalances wraps inner with a cache holding entries for ttl
func NewCachedBalances(inner Wallet, ttl time.Duration, log *zap.Logger) *CachedBalances {
	log = log.Named("balance-cache")
	log.Debug("Initialized go-cache for balances", zap.Duration("ttl", ttl))

	return &CachedBalances{
		Wallet: inner,
		cache:  cache.New(ttl, 2*ttl),
		log:    log,
	}
}

// Balance returns a cached balance when fresh, otherwise asks the wallet
func (c *CachedBalances) Balance(ctx context.Context, account string, token types.Token) (string, error) {
	key := balanceKey(account, c.Chain(), token.ID)
	if x, found := c.cache.Get(key); found {
		if balance, ok := x.(string); ok {
			c.log.Debug("balance cache hit", zap.String("key", key))
			return balance, nil
		}
	}

	balance, err := c.Wallet.Balance(ctx, account, token)
	if err != nil {
		return "", err
	}

	c.cache.SetDefault(key, balance)
	c.log.Debug("balance cache set", zap.String("key", key))
	return balance, nil
}

// Disconnect drops every cached balance before disconnecting
func (c *CachedBalances) Disconnect() {
	c.cache.Flush()
	c.Wallet.Disconnect()
}

// SwitchChain forwards to the wrapped wallet when it supports switching
func (c *CachedBalances) SwitchChain(ctx context.Context, chainID string) error {
	s, ok := c.Wallet.(Switcher)
	if !ok {
		return ErrNotConnected
	}
	return s.SwitchChain(ctx, chainID)
}

// Transfer forwards to the wrapped wallet and drops cached balances, which
// the transfer makes stale
func (c *CachedBalances) Transfer(ctx context.Context, chainID, to string, token types.Token, amount decimal.Decimal) (string, error) {
	t, ok := c.Wallet.(Transferer)
	if !ok {
		return "", fmt.Errorf("wallet cannot send transactions")
	}

	txHash, err := t.Transfer(ctx, chainID, to, token, amount)
	if err != nil {
		return "", err
	}
	c.cache.Flush()
	return txHash, nil
}

func balanceKey(account, chain, token string) string {
	return strings.ToLower(account) + "|" + chain + "|" + token
}
