package swap

import (
	"encoding/json"
	"fmt"

	"stealth-swap/pkg/types"
)

// Visibility controls how amounts are rendered. It never changes the
// stored amount.
type Visibility int

const (
	Masked Visibility = iota
	Plain
)

const (
	// MaskedAmount replaces every amount while masked
	MaskedAmount = "••••••"
	// EmptyAmount is shown for an empty amount in plain mode
	EmptyAmount = "0.0"
)

// Toggle returns the opposite mode
func (v Visibility) Toggle() Visibility {
	if v == Masked {
		return Plain
	}
	return Masked
}

func (v Visibility) String() string {
	if v == Masked {
		return "masked"
	}
	return "plain"
}

// Label is the status line shown next to the visibility toggle
func (v Visibility) Label() string {
	if v == Masked {
		return "Amount Encrypted"
	}
	return "Amount Visible"
}

// MarshalJSON renders the mode by name
func (v Visibility) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.String())
}

// ParseVisibility accepts "masked"/"encrypted" and "plain"/"visible"
func ParseVisibility(s string) (Visibility, error) {
	switch s {
	case "masked", "encrypted":
		return Masked, nil
	case "plain", "visible":
		return Plain, nil
	default:
		return Masked, fmt.Errorf("unknown visibility mode %q", s)
	}
}

// FormatAmount renders a raw amount under the given mode
func FormatAmount(raw string, v Visibility) string {
	if v == Masked {
		return MaskedAmount
	}
	if raw == "" {
		return EmptyAmount
	}
	return raw
}

// RenderAmount renders one leg's amount under the current mode
func (c *Coordinator) RenderAmount(side types.Side) string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return FormatAmount(c.legs[side].Amount, c.visibility)
}

// LegView is the display form of one leg
type LegView struct {
	Chain   *types.Chain `json:"chain"`
	Token   *types.Token `json:"token"`
	Amount  string       `json:"amount"`
	Balance string       `json:"balance,omitempty"`
}

// View is the display form of the whole coordinator state
type View struct {
	Source      LegView    `json:"source"`
	Destination LegView    `json:"destination"`
	Visibility  Visibility `json:"visibility"`
	Status      string     `json:"status"`
	Ready       bool       `json:"ready"`
	Rate        string     `json:"rate,omitempty"`
}

// Render builds the display form from a single consistent snapshot.
// Balances are masked together with amounts.
func (c *Coordinator) Render() View {
	c.mu.RLock()
	req := c.snapshotLocked()
	vis := c.visibility
	c.mu.RUnlock()

	view := View{
		Source:      legView(req.Source, vis),
		Destination: legView(req.Destination, vis),
		Visibility:  vis,
		Status:      vis.Label(),
		Ready:       len(readiness(req)) == 0,
	}

	if vis == Plain {
		if in, err := ParseAmount(req.Source.Amount); err == nil {
			if out, err := ParseAmount(req.Destination.Amount); err == nil {
				view.Rate = out.DivRound(in, 8).String()
			}
		}
	}

	return view
}

func legView(leg types.SwapLeg, v Visibility) LegView {
	lv := LegView{
		Chain:  leg.Chain,
		Token:  leg.Token,
		Amount: FormatAmount(leg.Amount, v),
	}
	if leg.Token != nil && leg.Token.HasBalance() {
		lv.Balance = FormatAmount(leg.Token.Balance, v)
		if v == Masked {
			masked := *leg.Token
			masked.Balance = MaskedAmount
			lv.Token = &masked
		}
	}
	return lv
}
