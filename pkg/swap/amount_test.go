package swap

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stealth-swap/pkg/types"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		raw     string
		want    string
		wantErr bool
	}{
		{raw: "1.5", want: "1.5"},
		{raw: "2500", want: "2500"},
		{raw: " 0.001 ", want: "0.001"},
		{raw: "1,234.56", want: "1234.56"},
		{raw: "", wantErr: true},
		{raw: "   ", wantErr: true},
		{raw: "abc", wantErr: true},
		{raw: "-5", wantErr: true},
		{raw: "0", wantErr: true},
		{raw: "0.000", wantErr: true},
		{raw: "1.2.3", wantErr: true},
		{raw: "12,345,678.9", want: "12345678.9"},
		{raw: ".5", want: "0.5"},
		{raw: "1e3", wantErr: true},
		{raw: "1E2", wantErr: true},
		{raw: "1e50000000", wantErr: true},
		{raw: "1,5", wantErr: true},
		{raw: ",,1,,", wantErr: true},
		{raw: "1,23.4", wantErr: true},
		{raw: "1,234,", wantErr: true},
		{raw: "1.", wantErr: true},
		{raw: "+5", wantErr: true},
		{raw: "0x10", wantErr: true},
		{raw: "1 000", wantErr: true},
		{raw: "1" + strings.Repeat("0", MaxAmountLength), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseAmount(tt.raw)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidAmount)
				return
			}
			require.NoError(t, err)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "got %s", got)
		})
	}
}

func TestToBaseUnits(t *testing.T) {
	assert.Equal(t, "1500000000000000000", ToBaseUnits(decimal.RequireFromString("1.5"), 18))
	assert.Equal(t, "2500000000", ToBaseUnits(decimal.RequireFromString("2500"), 6))
	assert.Equal(t, "1", ToBaseUnits(decimal.RequireFromString("0.0000019"), 6))
}

func TestRenderAmount(t *testing.T) {
	c := newTestCoordinator(t)
	c.SetAmount(types.Source, "1.5")

	assert.Equal(t, MaskedAmount, c.RenderAmount(types.Source))
	assert.Equal(t, MaskedAmount, c.RenderAmount(types.Destination))

	c.ToggleVisibility()
	assert.Equal(t, "1.5", c.RenderAmount(types.Source))
	assert.Equal(t, EmptyAmount, c.RenderAmount(types.Destination))
	assert.Equal(t, "1.5", c.Leg(types.Source).Amount)
}

func TestRender(t *testing.T) {
	c := newTestCoordinator(t)
	fill(t, c)

	view := c.Render()
	assert.True(t, view.Ready)
	assert.Equal(t, "Amount Encrypted", view.Status)
	assert.Equal(t, MaskedAmount, view.Source.Amount)
	assert.Equal(t, MaskedAmount, view.Source.Balance)
	assert.Equal(t, MaskedAmount, view.Source.Token.Balance)
	assert.Empty(t, view.Rate)
	assert.Equal(t, "1.2345", c.Leg(types.Source).Token.Balance)

	c.ToggleVisibility()
	view = c.Render()
	assert.Equal(t, "Amount Visible", view.Status)
	assert.Equal(t, "1.5", view.Source.Amount)
	assert.Equal(t, "1.2345", view.Source.Balance)
	assert.Equal(t, "1666.66666667", view.Rate)
}

func TestParseVisibility(t *testing.T) {
	v, err := ParseVisibility("visible")
	require.NoError(t, err)
	assert.Equal(t, Plain, v)

	v, err = ParseVisibility("encrypted")
	require.NoError(t, err)
	assert.Equal(t, Masked, v)

	_, err = ParseVisibility("hidden")
	assert.Error(t, err)
}
