package types

// Chain is an entry of the chain catalog
type Chain struct {
	ID     string `json:"id" mapstructure:"id"`
	Name   string `json:"name" mapstructure:"name"`
	Symbol string `json:"symbol" mapstructure:"symbol"`
	Icon   string `json:"icon" mapstructure:"icon"`
}

// Token is an entry of the token catalog. Balance is a formatted snapshot,
// not live state.
type Token struct {
	ID        string            `json:"id" mapstructure:"id"`
	Symbol    string            `json:"symbol" mapstructure:"symbol"`
	Name      string            `json:"name" mapstructure:"name"`
	Icon      string            `json:"icon" mapstructure:"icon"`
	Balance   string            `json:"balance,omitempty" mapstructure:"balance"`
	Decimals  int32             `json:"decimals" mapstructure:"decimals"`
	Contracts map[string]string `json:"contracts,omitempty" mapstructure:"contracts"` // chain ID -> ERC20 address
}

// HasBalance reports whether a balance snapshot is known for the token
func (t Token) HasBalance() bool {
	return t.Balance != ""
}

// ContractOn returns the token contract on the given chain, if any
func (t Token) ContractOn(chainID string) (string, bool) {
	addr, ok := t.Contracts[chainID]
	return addr, ok && addr != ""
}

// Side names one of the two legs of a swap
type Side int

const (
	Source Side = iota
	Destination
)

func (s Side) String() string {
	switch s {
	case Source:
		return "source"
	case Destination:
		return "destination"
	default:
		return "unknown"
	}
}

// ParseSide accepts the names used by the CLI and the HTTP API
func ParseSide(s string) (Side, bool) {
	switch s {
	case "source", "from", "src":
		return Source, true
	case "destination", "to", "dest", "dst":
		return Destination, true
	default:
		return 0, false
	}
}

// SwapLeg is one side of a swap. Amount holds raw user input.
type SwapLeg struct {
	Chain  *Chain `json:"chain"`
	Token  *Token `json:"token"`
	Amount string `json:"amount"`
}

// SwapRequest is the pair of legs handed to the executor
type SwapRequest struct {
	Source      SwapLeg `json:"source"`
	Destination SwapLeg `json:"destination"`
}

// Leg returns the leg for the given side
func (r SwapRequest) Leg(side Side) SwapLeg {
	if side == Destination {
		return r.Destination
	}
	return r.Source
}

// Outcome is the result of executing a swap request
type Outcome struct {
	Reference        string  `json:"reference"`
	TxHash           string  `json:"tx_hash,omitempty"`
	AmountIn         string  `json:"amount_in,omitempty"`
	AmountOut        string  `json:"amount_out,omitempty"`
	Memo             string  `json:"memo,omitempty"`
	EstimatedSeconds float64 `json:"estimated_seconds,omitempty"`
}
