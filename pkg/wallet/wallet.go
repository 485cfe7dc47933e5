package wallet

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"

	"stealth-swap/pkg/types"
)

var (
	// ErrNotConnected is returned by account operations before Connect.
	ErrNotConnected = errors.New("wallet not connected")

	// ErrUnsupportedToken means the token has no contract or native form on
	// the wallet's current chain.
	ErrUnsupportedToken = errors.New("token not available on chain")
)

// Wallet is the account collaborator the presentation layer gates on
type Wallet interface {
	Connect(ctx context.Context) error
	Disconnect()
	IsConnected() bool
	Account() string
	Chain() string
	Balance(ctx context.Context, account string, token types.Token) (string, error)
}

// Switcher is implemented by wallets that can change their current chain
type Switcher interface {
	SwitchChain(ctx context.Context, chainID string) error
}

// Transferer is implemented by wallets that can send funds
type Transferer interface {
	Transfer(ctx context.Context, chainID, to string, token types.Token, amount decimal.Decimal) (string, error)
}

// FormatUnits converts a base-unit integer into a balance string with four
// decimal places and comma thousands separators, e.g. "1,234.5600".
func FormatUnits(raw *big.Int, decimals int32) string {
	if raw == nil {
		return ""
	}
	return FormatBalance(decimal.NewFromBigInt(raw, -decimals))
}

// FormatBalance renders a decimal with four places and grouped thousands
func FormatBalance(d decimal.Decimal) string {
	s := d.StringFixed(4)

	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}

	intPart, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, frac = s[:i], s[i:]
	}

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}

	return sign + b.String() + frac
}

// ShortAddress abbreviates an address as 0x1234...abcd
func ShortAddress(addr string) string {
	if len(addr) <= 10 {
		return addr
	}
	return fmt.Sprintf("%s...%s", addr[:6], addr[len(addr)-4:])
}
