package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"stealth-swap/pkg/client"
	"stealth-swap/pkg/swap"
	"stealth-swap/pkg/types"
)

var (
	searchTerm   string
	remoteTokens bool
	filterChain  string
)

var chainsCmd = &cobra.Command{
	Use:   "chains",
	Short: "List the chains you can swap between",
	Run:   runListChains,
}

var tokensCmd = &cobra.Command{
	Use:     "tokens",
	Aliases: []string{"list-tokens", "ls"},
	Short:   "List the tokens you can swap",
	Long: `List the tokens of the swap catalog, or every asset the 1Click API supports.

Examples:
  stealth-swap tokens
  stealth-swap tokens --search usd
  stealth-swap tokens --remote --chain eth`,
	Run: runListTokens,
}

func init() {
	rootCmd.AddCommand(chainsCmd)
	rootCmd.AddCommand(tokensCmd)

	tokensCmd.Flags().StringVarP(&searchTerm, "search", "s", "", "Filter by symbol or name")
	tokensCmd.Flags().BoolVar(&remoteTokens, "remote", false, "List assets supported by the 1Click API")
	tokensCmd.Flags().StringVar(&filterChain, "chain", "", "Filter remote assets by 1Click blockchain")
}

func runListChains(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	a, err := loadApp(cmd)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	chains := a.catalog.Chains()
	if jsonOutput {
		jsonData, _ := json.MarshalIndent(chains, "", "  ")
		fmt.Println(string(jsonData))
		return
	}
	displayChains(chains)
}

func runListTokens(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	a, err := loadApp(cmd)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if remoteTokens {
		listRemoteAssets(cmd, a, jsonOutput)
		return
	}

	tokens := a.catalog.Tokens()
	if searchTerm != "" {
		tokens = a.catalog.Search(searchTerm)
	}

	if jsonOutput {
		jsonData, _ := json.MarshalIndent(tokens, "", "  ")
		fmt.Println(string(jsonData))
		return
	}
	displayCatalogTokens(tokens, swap.Plain)
}

func listRemoteAssets(cmd *cobra.Command, a *app, jsonOutput bool) {
	if err := a.cfg.RequireExecutor(); err != nil {
		printError(err)
		os.Exit(1)
	}

	// Get assets with spinner
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput {
		s.Suffix = " Fetching supported tokens..."
		s.Start()
	}

	assets, err := a.api.Tokens(cmd.Context())
	if !jsonOutput {
		s.Stop()
	}
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	// Apply filters
	var filtered []client.Asset
	for _, asset := range assets {
		if filterChain != "" && !strings.EqualFold(asset.Blockchain, filterChain) {
			continue
		}
		if searchTerm != "" && !strings.Contains(strings.ToUpper(asset.Symbol), strings.ToUpper(searchTerm)) {
			continue
		}
		filtered = append(filtered, asset)
	}

	if jsonOutput {
		jsonData, _ := json.MarshalIndent(filtered, "", "  ")
		fmt.Println(string(jsonData))
		return
	}
	displayAssets(filtered)
}

func displayChains(chains []types.Chain) {
	printBanner("CHAINS", 50)
	for _, chain := range chains {
		fmt.Printf("  %s  %-12s %-10s %s\n", chain.Icon, color.CyanString(chain.ID), chain.Name, color.HiBlackString(chain.Symbol))
	}
	fmt.Println(strings.Repeat("=", 50))
}

func displayCatalogTokens(tokens []types.Token, v swap.Visibility) {
	if len(tokens) == 0 {
		fmt.Println("\nNo tokens found matching the criteria.")
		return
	}

	printBanner("TOKENS", 60)
	for _, token := range tokens {
		fmt.Printf("  %s  %-8s %-18s %s\n",
			token.Icon,
			color.YellowString(token.Symbol),
			token.Name,
			color.HiBlackString(maskBalance(token, v)))
	}
	fmt.Println(strings.Repeat("=", 60))
}

func displayAssets(assets []client.Asset) {
	if len(assets) == 0 {
		fmt.Println("\nNo tokens found matching the criteria.")
		return
	}

	printBanner("SUPPORTED TOKENS", 90)

	// Group assets by blockchain
	byChain := make(map[string][]client.Asset)
	for _, asset := range assets {
		byChain[asset.Blockchain] = append(byChain[asset.Blockchain], asset)
	}

	// Sort chains alphabetically
	chains := make([]string, 0, len(byChain))
	for chain := range byChain {
		chains = append(chains, chain)
	}
	sort.Strings(chains)

	for _, chain := range chains {
		color.Cyan("\n%s", strings.ToUpper(chain))
		fmt.Println(strings.Repeat("-", 90))

		for _, asset := range byChain[chain] {
			id := asset.AssetID
			if len(id) > 50 {
				id = id[:47] + "..."
			}

			fmt.Printf("  %-10s  %2d decimals  %s\n",
				color.YellowString(asset.Symbol),
				asset.Decimals,
				color.HiBlackString(id))
		}
	}

	fmt.Println("\n" + strings.Repeat("=", 90))
	fmt.Printf("\nTotal: %d tokens across %d blockchains\n\n", len(assets), len(chains))
}
