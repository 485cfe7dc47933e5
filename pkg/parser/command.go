package parser

import (
	"fmt"
	"regexp"
	"strings"
)

// SwapCommand is a parsed natural language swap command. Amounts are kept
// as typed; validation happens when the request is built.
type SwapCommand struct {
	SourceAmount string
	SourceToken  string
	DestAmount   string
	DestToken    string
}

var swapPattern = regexp.MustCompile(`^([\d,]*\.?\d*)\s+([A-Z0-9]+)\s+TO\s+(?:([\d,]*\.?\d*)\s+)?([A-Z0-9]+)$`)

// ParseSwapCommand parses a natural language swap command
// Examples:
//   - "swap 1 ETH to USDC"
//   - "1.5 ETH to 2500 USDC"
//   - "1,234.56 USDC to DAI"
func ParseSwapCommand(command string) (*SwapCommand, error) {
	// Normalize the command
	command = strings.Join(strings.Fields(strings.ToUpper(command)), " ")

	// Remove the word "SWAP" if present at the beginning
	command = strings.TrimPrefix(command, "SWAP ")

	matches := swapPattern.FindStringSubmatch(command)
	if matches == nil || !hasDigit(matches[1]) || (matches[3] != "" && !hasDigit(matches[3])) {
		return nil, fmt.Errorf("invalid swap command format. Expected: 'swap <amount> <token> to [<amount>] <token>' (e.g., 'swap 1.5 ETH to 2500 USDC')")
	}

	return &SwapCommand{
		SourceAmount: matches[1],
		SourceToken:  matches[2],
		DestAmount:   matches[3],
		DestToken:    matches[4],
	}, nil
}

// ValidateSwapCommand validates that a command has all required fields
func ValidateSwapCommand(cmd *SwapCommand) error {
	if cmd.SourceAmount == "" {
		return fmt.Errorf("amount is required")
	}
	if cmd.SourceToken == "" {
		return fmt.Errorf("source token is required")
	}
	if cmd.DestToken == "" {
		return fmt.Errorf("destination token is required")
	}
	return nil
}

// NormalizeTokenSymbol maps common aliases onto catalog token IDs
func NormalizeTokenSymbol(symbol string) string {
	symbol = strings.TrimSpace(strings.ToLower(symbol))

	aliases := map[string]string{
		"btc":  "wbtc",
		"weth": "eth",
		"xdai": "dai",
	}

	if normalized, exists := aliases[symbol]; exists {
		return normalized
	}

	return symbol
}

func hasDigit(s string) bool {
	return strings.ContainsAny(s, "0123456789")
}
