package cmd

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"stealth-swap/pkg/client"
	"stealth-swap/pkg/parser"
	"stealth-swap/pkg/session"
	"stealth-swap/pkg/swap"
	"stealth-swap/pkg/types"
)

var (
	fromChain   string
	toChain     string
	useMax      bool
	reverseDir  bool
	showAmounts bool
	noConfirm   bool
)

var swapCmd = &cobra.Command{
	Use:   "swap <amount> <source-token> to <amount> <dest-token>",
	Short: "Submit a private cross-chain swap request",
	Long: `Build a swap request and submit it from the connected wallet.

Amounts are masked in the output unless --show-amounts is given. The request
is only submitted once both chains, both tokens and both amounts are set and
the wallet is connected.

Examples:
  # Cross-chain swap
  stealth-swap swap 1.5 ETH to 2500 USDC --from-chain ethereum --to-chain polygon

  # Use the full balance of the source token
  stealth-swap swap 0 USDC to 1000 DAI --max --from-chain ethereum --to-chain arbitrum

  # Show amounts and skip the confirmation
  stealth-swap swap 1,234.56 USDC to 0.5 ETH --show-amounts --yes`,
	Args: cobra.MinimumNArgs(1),
	Run:  runSwap,
}

func init() {
	rootCmd.AddCommand(swapCmd)

	swapCmd.Flags().StringVar(&fromChain, "from-chain", "", "Source chain (defaults to the wallet chain)")
	swapCmd.Flags().StringVar(&toChain, "to-chain", "", "Destination chain (defaults to the source chain)")
	swapCmd.Flags().BoolVar(&useMax, "max", false, "Use the full source token balance as the amount")
	swapCmd.Flags().BoolVar(&reverseDir, "reverse", false, "Swap the source and destination legs before submitting")
	swapCmd.Flags().BoolVar(&showAmounts, "show-amounts", false, "Show amounts instead of masking them")
	swapCmd.Flags().BoolVarP(&noConfirm, "yes", "y", false, "Skip confirmation prompt")
}

func runSwap(cmd *cobra.Command, args []string) {
	// Parse the command
	command, err := parser.ParseSwapCommand(strings.Join(args, " "))
	if err == nil {
		err = parser.ValidateSwapCommand(command)
	}
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")

	a, err := loadApp(cmd)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	defer a.log.Sync()

	if err := a.cfg.RequireExecutor(); err != nil {
		printError(err)
		os.Exit(1)
	}

	sess := a.newSession()
	if err := fillSwap(sess, command, a.cfg.Wallet.DefaultChain); err != nil {
		printError(err)
		os.Exit(1)
	}
	if showAmounts {
		sess.Coordinator().SetVisibility(swap.Plain)
	}

	// Connect with spinner
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput {
		s.Suffix = " Connecting wallet..."
		s.Start()
	}

	err = sess.Connect(cmd.Context())
	if !jsonOutput {
		s.Stop()
	}
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if useMax {
		if err := sess.ApplyMax(cmd.Context(), types.Source); err != nil {
			printError(err)
			os.Exit(1)
		}
	}
	if reverseDir {
		sess.Coordinator().ReverseDirection()
	}

	if !jsonOutput {
		displayView(sess.View())
	}

	if !sess.CanSubmit() {
		for _, problem := range sess.Coordinator().Readiness() {
			color.Red("  - %v", problem)
		}
		printError(fmt.Errorf("swap request is not ready: %s", sess.ButtonLabel()))
		os.Exit(1)
	}

	// Ask for confirmation
	if !noConfirm && !jsonOutput && !a.cfg.AutoConfirm {
		if !confirmSwap() {
			fmt.Println("\nSwap cancelled.")
			os.Exit(0)
		}
	}

	if !jsonOutput {
		s.Suffix = " " + session.LabelSubmitting
		s.Start()
	}

	outcome, err := sess.Submit(cmd.Context())
	if !jsonOutput {
		s.Stop()
	}

	if err != nil && !(errors.Is(err, client.ErrDepositFailed) && outcome != nil) {
		printError(err)
		os.Exit(1)
	}

	if jsonOutput {
		output := map[string]interface{}{
			"outcome": outcome,
			"status":  "submitted",
		}
		if err != nil {
			output["status"] = "deposit_failed"
			output["error"] = err.Error()
		}
		jsonData, _ := json.MarshalIndent(output, "", "  ")
		fmt.Println(string(jsonData))
		return
	}

	displayOutcome(outcome)

	if err != nil {
		color.Red("\nAuto-deposit failed: %v", err)
		color.Yellow("Please send the deposit manually to: %s\n", outcome.Reference)
	}

	fmt.Println("\nYou can monitor the swap status using:")
	color.Cyan("  stealth-swap status %s\n", outcome.Reference)
}

// fillSwap applies a parsed command to a fresh session. Tokens are looked up
// by alias-normalized ID, then by symbol.
func fillSwap(sess *session.Session, command *parser.SwapCommand, defaultChain string) error {
	c := sess.Coordinator()

	source := fromChain
	if source == "" {
		source = defaultChain
	}
	dest := toChain
	if dest == "" {
		dest = source
	}

	if err := c.SelectChainByID(types.Source, source); err != nil {
		return fmt.Errorf("source chain error: %w", err)
	}
	if err := c.SelectChainByID(types.Destination, dest); err != nil {
		return fmt.Errorf("destination chain error: %w", err)
	}

	if err := c.SelectTokenByID(types.Source, parser.NormalizeTokenSymbol(command.SourceToken)); err != nil {
		return fmt.Errorf("source token error: %w", err)
	}
	if err := c.SelectTokenByID(types.Destination, parser.NormalizeTokenSymbol(command.DestToken)); err != nil {
		return fmt.Errorf("destination token error: %w", err)
	}

	c.SetAmount(types.Source, command.SourceAmount)
	c.SetAmount(types.Destination, command.DestAmount)
	return nil
}

func displayOutcome(outcome *types.Outcome) {
	printBanner("SWAP SUBMITTED", 60)

	fmt.Printf("\n  Deposit Address:   %s\n", color.CyanString(outcome.Reference))
	if outcome.AmountIn != "" {
		fmt.Printf("  Amount In:         %s\n", outcome.AmountIn)
	}
	if outcome.AmountOut != "" {
		fmt.Printf("  Quoted Out:        ~%s\n", outcome.AmountOut)
	}
	if outcome.EstimatedSeconds > 0 {
		fmt.Printf("  Estimated Time:    %.0f seconds\n", outcome.EstimatedSeconds)
	}
	if outcome.TxHash != "" {
		fmt.Printf("  Deposit Tx:        %s\n", color.CyanString(outcome.TxHash))
	} else {
		color.Yellow("\n  Send the source amount to the deposit address to start the swap.")
	}
	if outcome.Memo != "" {
		fmt.Printf("\n  Memo (REQUIRED):   %s\n", color.MagentaString(outcome.Memo))
	}

	fmt.Println("\n" + strings.Repeat("=", 60) + "\n")
}

func confirmSwap() bool {
	reader := bufio.NewReader(os.Stdin)
	fmt.Print("\nProceed with swap? (y/N): ")

	response, err := reader.ReadString('\n')
	if err != nil {
		return false
	}

	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}
