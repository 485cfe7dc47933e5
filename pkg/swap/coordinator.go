package swap

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"stealth-swap/pkg/catalog"
	"stealth-swap/pkg/types"
)

// Executor submits a ready swap request. Implementations live outside this
// package; the coordinator never interprets the outcome.
type Executor interface {
	Execute(ctx context.Context, req types.SwapRequest) (*types.Outcome, error)
}

// Coordinator owns the two legs of a swap session and the session-wide
// visibility mode. Every operation completes synchronously.
type Coordinator struct {
	mu         sync.RWMutex
	chains     catalog.ChainProvider
	tokens     catalog.TokenProvider
	legs       [2]types.SwapLeg
	visibility Visibility
}

// NewCoordinator creates a coordinator with empty legs and masked amounts
func NewCoordinator(chains catalog.ChainProvider, tokens catalog.TokenProvider) *Coordinator {
	return &Coordinator{
		chains:     chains,
		tokens:     tokens,
		visibility: Masked,
	}
}

// SelectChain replaces the chain on one leg. The same chain may be picked
// on both legs.
func (c *Coordinator) SelectChain(side types.Side, chain types.Chain) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.legs[side].Chain = &chain
}

// SelectChainByID resolves the chain through the injected catalog
func (c *Coordinator) SelectChainByID(side types.Side, id string) error {
	chain, err := c.chains.Chain(id)
	if err != nil {
		return err
	}
	c.SelectChain(side, chain)
	return nil
}

// SelectToken replaces the token on one leg. The same token may be picked
// on both legs.
func (c *Coordinator) SelectToken(side types.Side, token types.Token) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.legs[side].Token = &token
}

// SelectTokenByID resolves the token through the injected catalog
func (c *Coordinator) SelectTokenByID(side types.Side, id string) error {
	c.mu.RLock()
	tokens := c.tokens
	c.mu.RUnlock()

	token, err := tokens.Token(id)
	if err != nil {
		return err
	}
	c.SelectToken(side, token)
	return nil
}

// SetAmount stores raw input verbatim
func (c *Coordinator) SetAmount(side types.Side, raw string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.legs[side].Amount = raw
}

// ApplyMax copies the selected token's balance snapshot into the amount
func (c *Coordinator) ApplyMax(side types.Side) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	leg := &c.legs[side]
	if leg.Token == nil {
		return fmt.Errorf("%w: no %s token selected", ErrNoBalanceKnown, side)
	}
	if !leg.Token.HasBalance() {
		return fmt.Errorf("%w: for %s", ErrNoBalanceKnown, leg.Token.Symbol)
	}

	leg.Amount = leg.Token.Balance
	return nil
}

// ReverseDirection exchanges chain, token and amount between the legs in a
// single assignment.
func (c *Coordinator) ReverseDirection() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.legs[types.Source], c.legs[types.Destination] = c.legs[types.Destination], c.legs[types.Source]
}

// ToggleVisibility flips between masked and plain rendering
func (c *Coordinator) ToggleVisibility() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.visibility = c.visibility.Toggle()
}

// SetVisibility sets the rendering mode explicitly
func (c *Coordinator) SetVisibility(v Visibility) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.visibility = v
}

// Visibility returns the current rendering mode
func (c *Coordinator) Visibility() Visibility {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.visibility
}

// Leg returns a copy of one leg
func (c *Coordinator) Leg(side types.Side) types.SwapLeg {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return cloneLeg(c.legs[side])
}

// Snapshot returns a consistent copy of both legs
func (c *Coordinator) Snapshot() types.SwapRequest {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.snapshotLocked()
}

// IsReadyToSubmit reports whether both legs have a chain, a token and a
// positive amount.
func (c *Coordinator) IsReadyToSubmit() bool {
	return len(c.Readiness()) == 0
}

// Readiness lists the reasons the request cannot be submitted yet, in a
// stable order. An empty result means the request is ready.
func (c *Coordinator) Readiness() []error {
	return readiness(c.Snapshot())
}

// BuildRequest returns the current legs when ready. Otherwise the error
// wraps ErrNotReady and names the first failing condition.
func (c *Coordinator) BuildRequest() (types.SwapRequest, error) {
	req := c.Snapshot()
	if problems := readiness(req); len(problems) > 0 {
		return types.SwapRequest{}, problems[0]
	}
	return req, nil
}

// Rate returns destination units per source unit when both amounts parse
func (c *Coordinator) Rate() (decimal.Decimal, bool) {
	req := c.Snapshot()

	in, err := ParseAmount(req.Source.Amount)
	if err != nil {
		return decimal.Zero, false
	}
	out, err := ParseAmount(req.Destination.Amount)
	if err != nil {
		return decimal.Zero, false
	}
	return out.DivRound(in, 8), true
}

// UpdateBalances refreshes the balance snapshot of selected tokens, keyed
// by token ID, and swaps in a token catalog carrying the same snapshots.
func (c *Coordinator) UpdateBalances(tokens catalog.TokenProvider, balances map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if tokens != nil {
		c.tokens = tokens
	}
	for i := range c.legs {
		t := c.legs[i].Token
		if t == nil {
			continue
		}
		if b, ok := balances[t.ID]; ok {
			next := *t
			next.Balance = b
			c.legs[i].Token = &next
		}
	}
}

// Reset clears both legs. The visibility mode is session-wide and survives.
func (c *Coordinator) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.legs = [2]types.SwapLeg{}
}

func (c *Coordinator) snapshotLocked() types.SwapRequest {
	return types.SwapRequest{
		Source:      cloneLeg(c.legs[types.Source]),
		Destination: cloneLeg(c.legs[types.Destination]),
	}
}

func readiness(req types.SwapRequest) []error {
	var problems []error

	for _, side := range []types.Side{types.Source, types.Destination} {
		if req.Leg(side).Chain == nil {
			problems = append(problems, fmt.Errorf("%w: %s chain not selected", ErrNotReady, side))
		}
	}
	for _, side := range []types.Side{types.Source, types.Destination} {
		if req.Leg(side).Token == nil {
			problems = append(problems, fmt.Errorf("%w: %s token not selected", ErrNotReady, side))
		}
	}
	for _, side := range []types.Side{types.Source, types.Destination} {
		if _, err := ParseAmount(req.Leg(side).Amount); err != nil {
			problems = append(problems, fmt.Errorf("%w: %s amount: %w", ErrNotReady, side, err))
		}
	}

	return problems
}

func cloneLeg(leg types.SwapLeg) types.SwapLeg {
	out := types.SwapLeg{Amount: leg.Amount}
	if leg.Chain != nil {
		chain := *leg.Chain
		out.Chain = &chain
	}
	if leg.Token != nil {
		token := *leg.Token
		if token.Contracts != nil {
			contracts := make(map[string]string, len(token.Contracts))
			for k, v := range token.Contracts {
				contracts[k] = v
			}
			token.Contracts = contracts
		}
		out.Token = &token
	}
	return out
}
