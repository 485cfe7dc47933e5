package session

import (
	"context"
	"fmt"

	"stealth-swap/pkg/swap"
	"stealth-swap/pkg/types"
	"stealth-swap/pkg/wallet"
)

// Details is the swap details panel shown once both amounts are entered
type Details struct {
	Rate          string `json:"rate"`
	BridgeFee     string `json:"bridge_fee"`
	EstimatedTime string `json:"estimated_time"`
}

// WalletCard describes the connected account
type WalletCard struct {
	Connected bool   `json:"connected"`
	Address   string `json:"address,omitempty"`
	Short     string `json:"short,omitempty"`
	Network   string `json:"network,omitempty"`
	Balance   string `json:"balance,omitempty"`
	Symbol    string `json:"symbol,omitempty"`
}

// View is everything a front end needs to draw the swap form
type View struct {
	swap.View
	Connected  bool     `json:"connected"`
	Account    string   `json:"account,omitempty"`
	Button     string   `json:"button"`
	CanSubmit  bool     `json:"can_submit"`
	Submitting bool     `json:"submitting"`
	Details    *Details `json:"details,omitempty"`
}

// Details returns the details panel, or nil until both amounts are entered.
// The rate is masked together with the amounts.
func (s *Session) Details() *Details {
	req := s.coord.Snapshot()
	if req.Source.Amount == "" || req.Destination.Amount == "" {
		return nil
	}

	d := &Details{
		BridgeFee:     s.cfg.BridgeFeePercent + "%",
		EstimatedTime: s.cfg.EstimatedDuration,
	}

	rate, ok := s.coord.Rate()
	if !ok || req.Source.Token == nil || req.Destination.Token == nil {
		d.Rate = "-"
		return d
	}

	value := rate.String()
	if s.coord.Visibility() == swap.Masked {
		value = swap.MaskedAmount
	}
	d.Rate = fmt.Sprintf("1 %s = %s %s", req.Source.Token.Symbol, value, req.Destination.Token.Symbol)
	return d
}

// View renders the session from one coordinator snapshot
func (s *Session) View() View {
	v := View{
		View:       s.coord.Render(),
		Connected:  s.wallet.IsConnected(),
		Button:     s.ButtonLabel(),
		CanSubmit:  s.CanSubmit(),
		Submitting: s.inFlight.Load(),
		Details:    s.Details(),
	}
	if v.Connected {
		v.Account = s.wallet.Account()
	}
	return v
}

// WalletCard looks up the native balance of the connected account on the
// wallet's current chain
func (s *Session) WalletCard(ctx context.Context) (WalletCard, error) {
	if !s.wallet.IsConnected() {
		return WalletCard{}, nil
	}

	account := s.wallet.Account()
	card := WalletCard{
		Connected: true,
		Address:   account,
		Short:     wallet.ShortAddress(account),
		Network:   s.wallet.Chain(),
	}

	chain, err := s.Catalog().Chain(s.wallet.Chain())
	if err != nil {
		return card, nil
	}
	card.Network = chain.Name
	card.Symbol = chain.Symbol

	native := s.nativeToken(chain)
	balance, err := s.wallet.Balance(ctx, account, native)
	if err != nil {
		return card, fmt.Errorf("failed to get balance: %w", err)
	}
	card.Balance = balance
	return card, nil
}

func (s *Session) nativeToken(chain types.Chain) types.Token {
	tokens := s.Catalog().Tokens()
	for _, t := range tokens {
		if addr, ok := t.ContractOn(chain.ID); ok && addr == wallet.NativeContract {
			return t
		}
	}
	for _, t := range tokens {
		if t.Symbol == chain.Symbol {
			if _, ok := t.ContractOn(chain.ID); !ok {
				return t
			}
		}
	}
	return types.Token{ID: chain.ID, Symbol: chain.Symbol, Name: chain.Name, Decimals: 18}
}
