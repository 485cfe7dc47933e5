package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var walletChain string

var walletCmd = &cobra.Command{
	Use:   "wallet",
	Short: "Connect the configured wallet and show its card",
	Long: `Connect the wallet configured by STEALTH_SWAP_WALLET_PRIVATE_KEY and show the
address, network and native balance.

Examples:
  stealth-swap wallet
  stealth-swap wallet --chain polygon`,
	Run: runWallet,
}

func init() {
	rootCmd.AddCommand(walletCmd)

	walletCmd.Flags().StringVar(&walletChain, "chain", "", "Chain to show (defaults to wallet.default_chain)")
}

func runWallet(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	a, err := loadApp(cmd)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	defer a.log.Sync()

	if err := a.wallet.Connect(cmd.Context()); err != nil {
		printError(err)
		os.Exit(1)
	}
	defer a.wallet.Disconnect()

	if walletChain != "" {
		if err := a.wallet.SwitchChain(cmd.Context(), walletChain); err != nil {
			printError(err)
			os.Exit(1)
		}
	}

	card, err := a.newSession().WalletCard(cmd.Context())
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if jsonOutput {
		jsonData, _ := json.MarshalIndent(card, "", "  ")
		fmt.Println(string(jsonData))
		return
	}
	displayWalletCard(card)
}
