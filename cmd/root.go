package cmd

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"stealth-swap/config"
	"stealth-swap/pkg/catalog"
	"stealth-swap/pkg/client"
	"stealth-swap/pkg/history"
	"stealth-swap/pkg/logger"
	"stealth-swap/pkg/session"
	"stealth-swap/pkg/swap"
	"stealth-swap/pkg/wallet"
)

var rootCmd = &cobra.Command{
	Use:   "stealth-swap",
	Short: "Private cross-chain swaps from your terminal",
	Long: `stealth-swap builds cross-chain swap requests with amounts hidden by default
and submits them through the NEAR Intents 1Click API.

Pick a source and destination chain and token, enter the amounts, connect
your wallet and submit. Amounts stay masked on screen unless you ask to see them.

Examples:
  stealth-swap swap 1.5 ETH to 2500 USDC --from-chain ethereum --to-chain polygon
  stealth-swap session
  stealth-swap tokens --search usd
  stealth-swap status <deposit-address>
  stealth-swap deploy --fee-collector 0x... --protocol-fee 30`,
	Version: "0.1.0",
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Add global flags
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "Output in JSON format")
}

// app holds the collaborators shared by the commands
type app struct {
	cfg      *config.Config
	log      *zap.Logger
	catalog  *catalog.Static
	wallet   *wallet.CachedBalances
	api      *client.OneClickClient
	executor *client.OneClickExecutor
	history  *history.Storage
}

func loadApp(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logCfg := cfg.Logger
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		logCfg.Level = "debug"
	}
	log, err := logger.NewLogger(logCfg)
	if err != nil {
		return nil, err
	}

	cat := catalog.NewStatic(cfg.Catalog)

	evm, err := wallet.NewEVMWallet(cfg.Wallet, cfg.Networks, cat, log)
	if err != nil {
		return nil, err
	}
	w := wallet.NewCachedBalances(evm, cfg.Wallet.BalanceTTL, log)

	api := client.NewOneClickClient(cfg.Executor.JWTToken, log)

	store, err := history.NewStorage(cfg.HistoryPath, log)
	if err != nil {
		return nil, fmt.Errorf("failed to open swap history: %w", err)
	}

	return &app{
		cfg:      cfg,
		log:      log,
		catalog:  cat,
		wallet:   w,
		api:      api,
		executor: client.NewOneClickExecutor(api, w, cfg.Executor, log),
		history:  store,
	}, nil
}

// newSession starts a swap session over the shared collaborators
func (a *app) newSession() *session.Session {
	return session.New(a.catalog, a.wallet, a.executor, a.history, a.cfg.Executor, a.log)
}

func printError(err error) {
	fmt.Printf("\nError: %v\n\n", err)
}

func printSuccess(message string) {
	fmt.Printf("\n%s\n\n", message)
}

func printBanner(title string, width int) {
	fmt.Println("\n" + strings.Repeat("=", width))
	color.Green("%s%s", strings.Repeat(" ", (width-len(title))/2), title)
	fmt.Println(strings.Repeat("=", width))
}

// describeLeg renders a leg line for terminal output
func describeLeg(leg swap.LegView) string {
	chain, token := color.HiBlackString("<chain?>"), color.HiBlackString("<token?>")
	if leg.Chain != nil {
		chain = leg.Chain.Icon + " " + leg.Chain.Name
	}
	if leg.Token != nil {
		token = color.YellowString(leg.Token.Symbol)
	}

	line := fmt.Sprintf("%s %s on %s", color.CyanString(leg.Amount), token, chain)
	if leg.Balance != "" {
		line += color.HiBlackString("  (balance %s)", leg.Balance)
	}
	return line
}

func displayView(v session.View) {
	printBanner("SWAP REQUEST", 60)

	fmt.Printf("\n  From:            %s\n", describeLeg(v.Source))
	fmt.Printf("  To:              %s\n", describeLeg(v.Destination))
	fmt.Printf("  Privacy:         %s\n", visibilityLabel(v.View))

	if v.Details != nil {
		fmt.Printf("  Rate:            %s\n", v.Details.Rate)
		fmt.Printf("  Bridge Fee:      %s\n", v.Details.BridgeFee)
		fmt.Printf("  Estimated Time:  %s\n", v.Details.EstimatedTime)
	}

	if v.Connected {
		fmt.Printf("  Wallet:          %s\n", color.CyanString(wallet.ShortAddress(v.Account)))
	} else {
		fmt.Printf("  Wallet:          %s\n", color.HiBlackString("not connected"))
	}

	button := v.Button
	if v.CanSubmit {
		button = color.GreenString(button)
	} else {
		button = color.HiBlackString(button)
	}
	fmt.Printf("\n  [ %s ]\n", button)
	fmt.Println("\n" + strings.Repeat("=", 60))
}

func visibilityLabel(v swap.View) string {
	if v.Visibility == swap.Masked {
		return color.MagentaString(v.Status)
	}
	return color.YellowString(v.Status)
}
