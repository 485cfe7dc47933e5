package catalog

import (
	"errors"
	"fmt"
	"strings"

	"stealth-swap/config"
	"stealth-swap/pkg/types"
)

var (
	// ErrChainNotFound means the requested chain is not in the catalog.
	ErrChainNotFound = errors.New("chain not found")

	// ErrTokenNotFound means the requested token is not in the catalog.
	ErrTokenNotFound = errors.New("token not found")
)

// ChainProvider supplies the ordered chain catalog
type ChainProvider interface {
	Chains() []types.Chain
	Chain(id string) (types.Chain, error)
}

// TokenProvider supplies the ordered token catalog
type TokenProvider interface {
	Tokens() []types.Token
	Token(id string) (types.Token, error)
	Search(term string) []types.Token
}

// Static is an immutable catalog built from configuration
type Static struct {
	chains []types.Chain
	tokens []types.Token
}

var (
	_ ChainProvider = (*Static)(nil)
	_ TokenProvider = (*Static)(nil)
)

// NewStatic copies the configured chains and tokens, preserving their order
func NewStatic(cfg config.CatalogConfig) *Static {
	s := &Static{
		chains: make([]types.Chain, len(cfg.Chains)),
		tokens: make([]types.Token, len(cfg.Tokens)),
	}
	copy(s.chains, cfg.Chains)
	for i, t := range cfg.Tokens {
		s.tokens[i] = cloneToken(t)
	}
	return s
}

// Chains returns a copy of the chain list
func (s *Static) Chains() []types.Chain {
	out := make([]types.Chain, len(s.chains))
	copy(out, s.chains)
	return out
}

// Chain looks a chain up by identifier
func (s *Static) Chain(id string) (types.Chain, error) {
	for _, c := range s.chains {
		if strings.EqualFold(c.ID, id) {
			return c, nil
		}
	}
	return types.Chain{}, fmt.Errorf("%w: %s", ErrChainNotFound, id)
}

// Tokens returns a copy of the token list
func (s *Static) Tokens() []types.Token {
	out := make([]types.Token, len(s.tokens))
	for i, t := range s.tokens {
		out[i] = cloneToken(t)
	}
	return out
}

// Token looks a token up by identifier, falling back to its symbol
func (s *Static) Token(id string) (types.Token, error) {
	for _, t := range s.tokens {
		if strings.EqualFold(t.ID, id) {
			return cloneToken(t), nil
		}
	}
	for _, t := range s.tokens {
		if strings.EqualFold(t.Symbol, id) {
			return cloneToken(t), nil
		}
	}
	return types.Token{}, fmt.Errorf("%w: %s", ErrTokenNotFound, id)
}

// Search matches the term against token symbols and names, case-insensitively.
// An empty term returns every token.
func (s *Static) Search(term string) []types.Token {
	term = strings.ToLower(strings.TrimSpace(term))

	var found []types.Token
	for _, t := range s.tokens {
		if strings.Contains(strings.ToLower(t.Symbol), term) ||
			strings.Contains(strings.ToLower(t.Name), term) {
			found = append(found, cloneToken(t))
		}
	}
	return found
}

// WithBalances returns a catalog whose tokens carry the given balance
// snapshots, keyed by token ID. Tokens missing from the map keep theirs.
func (s *Static) WithBalances(balances map[string]string) *Static {
	next := &Static{
		chains: s.Chains(),
		tokens: s.Tokens(),
	}
	for i := range next.tokens {
		if b, ok := balances[next.tokens[i].ID]; ok {
			next.tokens[i].Balance = b
		}
	}
	return next
}

func cloneToken(t types.Token) types.Token {
	if t.Contracts != nil {
		contracts := make(map[string]string, len(t.Contracts))
		for k, v := range t.Contracts {
			contracts[k] = v
		}
		t.Contracts = contracts
	}
	return t
}
