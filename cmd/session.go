package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"stealth-swap/pkg/session"
	"stealth-swap/pkg/swap"
	"stealth-swap/pkg/types"
)

var sessionCmd = &cobra.Command{
	Use:     "session",
	Aliases: []string{"ui"},
	Short:   "Build a swap request interactively",
	Long:    "Start an interactive session holding one swap request.\n\n" + sessionHelp,
	Run:     runSession,
}

const sessionHelp = `Commands:
  chain <from|to> <id>      select a chain
  token <from|to> <id>      select a token
  amount <from|to> [value]  enter an amount, no value clears it
  max <from|to>             use the token balance as the amount
  reverse                   swap the two legs
  toggle                    show or mask amounts
  connect | disconnect      manage the wallet connection
  wallet                    show the wallet card
  chains | tokens [term]    browse the catalog
  show                      redraw the request
  submit                    submit the request
  quit                      leave the session`

func init() {
	rootCmd.AddCommand(sessionCmd)
}

func runSession(cmd *cobra.Command, args []string) {
	a, err := loadApp(cmd)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	defer a.log.Sync()

	sess := a.newSession()
	displayView(sess.View())

	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Print("\nswap> ")
		line, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			printError(err)
			os.Exit(1)
		}

		fields := strings.Fields(line)
		if len(fields) > 0 {
			if fields[0] == "quit" || fields[0] == "exit" {
				return
			}
			if cmdErr := runSessionCommand(cmd, sess, fields); cmdErr != nil {
				color.Red("Error: %v", cmdErr)
			}
		}

		if errors.Is(err, io.EOF) {
			fmt.Println()
			return
		}
	}
}

func runSessionCommand(cmd *cobra.Command, sess *session.Session, fields []string) error {
	c := sess.Coordinator()
	name, rest := fields[0], fields[1:]

	side := func() (types.Side, error) {
		if len(rest) == 0 {
			return 0, fmt.Errorf("%s needs a side: from or to", name)
		}
		s, ok := types.ParseSide(rest[0])
		if !ok {
			return 0, fmt.Errorf("unknown side %q", rest[0])
		}
		return s, nil
	}

	switch name {
	case "chain", "token", "amount":
		s, err := side()
		if err != nil {
			return err
		}
		switch {
		case name == "amount":
			// no value clears the amount
			c.SetAmount(s, strings.Join(rest[1:], " "))
			fmt.Printf("%s amount: %s\n", s, c.RenderAmount(s))
		case len(rest) < 2:
			return fmt.Errorf("usage: %s <from|to> <value>", name)
		case name == "chain":
			err = c.SelectChainByID(s, rest[1])
		default:
			err = c.SelectTokenByID(s, rest[1])
		}
		if err != nil {
			return err
		}

	case "max":
		s, err := side()
		if err != nil {
			return err
		}
		if err := sess.ApplyMax(cmd.Context(), s); err != nil {
			return err
		}

	case "reverse":
		c.ReverseDirection()

	case "toggle":
		c.ToggleVisibility()

	case "connect":
		if err := sess.Connect(cmd.Context()); err != nil {
			return err
		}

	case "disconnect":
		sess.Disconnect()

	case "wallet":
		card, err := sess.WalletCard(cmd.Context())
		if err != nil {
			return err
		}
		displayWalletCard(card)
		return nil

	case "chains":
		displayChains(sess.Catalog().Chains())
		return nil

	case "tokens":
		tokens := sess.Catalog().Tokens()
		if len(rest) > 0 {
			tokens = sess.Catalog().Search(strings.Join(rest, " "))
		}
		displayCatalogTokens(tokens, c.Visibility())
		return nil

	case "show":

	case "submit":
		outcome, err := sess.Submit(cmd.Context())
		if outcome != nil {
			displayOutcome(outcome)
		}
		if err != nil {
			return err
		}
		printSuccess(color.GreenString("✓ Swap request submitted. Track it with: stealth-swap status %s", outcome.Reference))

	case "help":
		fmt.Println(sessionHelp)
		return nil

	default:
		return fmt.Errorf("unknown command %q (try help)", name)
	}

	displayView(sess.View())
	return nil
}

func displayWalletCard(card session.WalletCard) {
	if !card.Connected {
		color.Yellow("\nWallet not connected. Run 'connect' first.")
		return
	}

	printBanner("WALLET", 50)
	fmt.Printf("\n  Address:   %s\n", color.CyanString(card.Short))
	fmt.Printf("  Network:   %s\n", card.Network)
	if card.Balance != "" {
		fmt.Printf("  Balance:   %s %s\n", card.Balance, card.Symbol)
	}
	fmt.Println("\n" + strings.Repeat("=", 50))
}

// maskBalance hides catalog balances while the session is masked
func maskBalance(t types.Token, v swap.Visibility) string {
	if !t.HasBalance() {
		return ""
	}
	return swap.FormatAmount(t.Balance, v)
}
