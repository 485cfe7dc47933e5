package swap

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// MaxAmountLength bounds the length of amount input
const MaxAmountLength = 64

var (
	plainAmount   = regexp.MustCompile(`^(\d+(\.\d+)?|\.\d+)$`)
	groupedAmount = regexp.MustCompile(`^\d{1,3}(,\d{3})+(\.\d+)?$`)
)

// ParseAmount converts raw user input into a positive decimal.
// Only plain decimal text is accepted. Comma thousands separators are allowed
// when they form whole groups, so balance snapshots such as "1,234.56" can be
// submitted as typed.
func ParseAmount(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero, fmt.Errorf("%w: amount is empty", ErrInvalidAmount)
	}

	if len(s) > MaxAmountLength {
		return decimal.Zero, fmt.Errorf("%w: amount exceeds %d characters", ErrInvalidAmount, MaxAmountLength)
	}

	switch {
	case plainAmount.MatchString(s):
	case groupedAmount.MatchString(s):
		s = strings.ReplaceAll(s, ",", "")
	default:
		return decimal.Zero, fmt.Errorf("%w: %q is not a number", ErrInvalidAmount, raw)
	}

	value, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q is not a number", ErrInvalidAmount, raw)
	}

	if !value.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: amount must be greater than 0", ErrInvalidAmount)
	}

	return value, nil
}

// ToBaseUnits scales a parsed amount by the token decimals, truncating any
// precision the token cannot represent.
func ToBaseUnits(amount decimal.Decimal, decimals int32) string {
	return amount.Shift(decimals).Truncate(0).String()
}
