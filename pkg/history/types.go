package history

import (
	"strings"
	"time"

	"stealth-swap/pkg/types"
)

// Status defines the state of a submitted swap request
type Status string

const (
	StatusQuoted    Status = "quoted"    // Deposit address issued, nothing sent
	StatusDeposited Status = "deposited" // Deposit sent from the wallet
	StatusCompleted Status = "completed" // Swap settled
	StatusFailed    Status = "failed"    // Submission or settlement failed
)

// Record is one submitted swap request and what came of it
type Record struct {
	ID      string            `json:"id"`
	Created time.Time         `json:"created"`
	Updated time.Time         `json:"updated"`
	Request types.SwapRequest `json:"request"`
	Status  Status            `json:"status"`

	Reference        string  `json:"reference,omitempty"` // Deposit address from quote
	TxHash           string  `json:"tx_hash,omitempty"`   // Deposit transaction hash
	AmountIn         string  `json:"amount_in,omitempty"`
	AmountOut        string  `json:"amount_out,omitempty"` // Quoted output amount
	EstimatedSeconds float64 `json:"estimated_seconds,omitempty"`
	SwapStatus       string  `json:"swap_status,omitempty"` // Latest status from API
	ErrorMessage     string  `json:"error_message,omitempty"`
}

// IsFinal reports whether the record can no longer change
func (r *Record) IsFinal() bool {
	return r.Status == StatusCompleted || r.Status == StatusFailed
}

// Pair renders the record as "1.5 ETH (ethereum) -> USDC (arbitrum)"
func (r *Record) Pair() string {
	return describeLeg(r.Request.Source, true) + " -> " + describeLeg(r.Request.Destination, false)
}

func describeLeg(leg types.SwapLeg, withAmount bool) string {
	var parts []string
	if withAmount && leg.Amount != "" {
		parts = append(parts, leg.Amount)
	}
	if leg.Token != nil {
		parts = append(parts, leg.Token.Symbol)
	}
	if leg.Chain != nil {
		parts = append(parts, "("+leg.Chain.ID+")")
	}
	return strings.Join(parts, " ")
}

// statusFromSwap maps a 1Click execution status onto a record status
func statusFromSwap(current Status, swapStatus string) Status {
	switch strings.ToUpper(swapStatus) {
	case "SUCCESS", "COMPLETED":
		return StatusCompleted
	case "FAILED", "REFUNDED":
		return StatusFailed
	case "PROCESSING", "KNOWN_DEPOSIT_TX", "INCOMPLETE_DEPOSIT":
		return StatusDeposited
	default:
		return current
	}
}
