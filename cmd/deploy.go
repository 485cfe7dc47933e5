package cmd

import (
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"stealth-swap/pkg/vault"
)

var (
	deployFeeCollector string
	deployProtocolFee  uint64
	deployNetwork      string
	deployArtifact     string
	deployOutput       string
	deployShow         bool
)

var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Deploy the StealthSwap vault contract",
	Long: `Deploy the vault contract with a fee collector and a protocol fee in basis
points, read the values back from the chain and save a deployment record.

The deployer key is STEALTH_SWAP_WALLET_PRIVATE_KEY and the RPC endpoint comes
from networks.<network> in the config.

Examples:
  stealth-swap deploy --fee-collector 0x1234... --protocol-fee 30
  stealth-swap deploy --network sepolia --artifact ./StealthSwapVault.json
  stealth-swap deploy --show`,
	Run: runDeploy,
}

func init() {
	rootCmd.AddCommand(deployCmd)

	deployCmd.Flags().StringVar(&deployFeeCollector, "fee-collector", "", "Fee collector address (default vault.fee_collector)")
	deployCmd.Flags().Uint64Var(&deployProtocolFee, "protocol-fee", 0, "Protocol fee in basis points (default vault.protocol_fee)")
	deployCmd.Flags().StringVar(&deployNetwork, "network", "", "Network to deploy to (default vault.network)")
	deployCmd.Flags().StringVar(&deployArtifact, "artifact", "", "Hardhat artifact of the vault contract (default vault.artifact)")
	deployCmd.Flags().StringVar(&deployOutput, "output", "", "Deployment record file (default vault.output)")
	deployCmd.Flags().BoolVar(&deployShow, "show", false, "Show the saved deployment record instead of deploying")
}

func runDeploy(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	a, err := loadApp(cmd)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	defer a.log.Sync()

	// Flags override the vault section of the config
	vc := a.cfg.Vault
	if deployFeeCollector != "" {
		vc.FeeCollector = deployFeeCollector
	}
	if cmd.Flags().Changed("protocol-fee") {
		vc.ProtocolFee = deployProtocolFee
	}
	if deployNetwork != "" {
		vc.Network = deployNetwork
	}
	if deployArtifact != "" {
		vc.Artifact = deployArtifact
	}
	if deployOutput != "" {
		vc.Output = deployOutput
	}

	if deployShow {
		rec, err := vault.ReadRecord(vc.Output)
		if err != nil {
			printError(err)
			os.Exit(1)
		}
		displayRecord(rec, jsonOutput)
		return
	}

	params := vault.Params{FeeCollector: vc.FeeCollector, ProtocolFee: vc.ProtocolFee, Network: vc.Network}
	if err := params.Validate(); err != nil {
		printError(err)
		os.Exit(1)
	}

	artifact, err := vault.LoadArtifact(vc.Artifact)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	network, err := a.cfg.Network(vc.Network)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if a.cfg.Wallet.PrivateKey == "" {
		printError(fmt.Errorf("deployer key not configured. Set STEALTH_SWAP_WALLET_PRIVATE_KEY or wallet.private_key"))
		os.Exit(1)
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(a.cfg.Wallet.PrivateKey, "0x"))
	if err != nil {
		printError(fmt.Errorf("invalid private key: %w", err))
		os.Exit(1)
	}

	backend, err := ethclient.DialContext(cmd.Context(), network.RPCUrl)
	if err != nil {
		printError(fmt.Errorf("failed to connect to RPC endpoint: %w", err))
		os.Exit(1)
	}
	defer backend.Close()

	chainID := big.NewInt(network.ChainID)
	if network.ChainID == 0 {
		if chainID, err = backend.ChainID(cmd.Context()); err != nil {
			printError(fmt.Errorf("failed to get chain ID: %w", err))
			os.Exit(1)
		}
	}

	if !jsonOutput {
		fmt.Printf("\nDeploying %s contract...\n", artifact.ContractName)
		fmt.Printf("  Network:       %s\n", vc.Network)
		fmt.Printf("  Deployer:      %s\n", color.CyanString(crypto.PubkeyToAddress(key.PublicKey).Hex()))
		fmt.Printf("  Fee Collector: %s\n", vc.FeeCollector)
		fmt.Printf("  Protocol Fee:  %d basis points\n", vc.ProtocolFee)
		if strings.Trim(strings.TrimPrefix(strings.ToLower(vc.FeeCollector), "0x"), "0") == "" {
			color.Yellow("\n  Warning: the fee collector is the zero address")
		}
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput {
		s.Suffix = " Deploying and waiting for confirmation..."
		s.Start()
	}

	rec, err := vault.NewDeployer(backend, key, chainID, artifact, a.log).Deploy(cmd.Context(), params)
	if !jsonOutput {
		s.Stop()
	}
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if err := vault.WriteRecord(vc.Output, rec); err != nil {
		printError(err)
		os.Exit(1)
	}

	displayRecord(rec, jsonOutput)
	if !jsonOutput {
		printSuccess(color.GreenString("✓ Deployment info saved to %s", vc.Output))
	}
}

func displayRecord(rec *vault.Record, jsonOutput bool) {
	if jsonOutput {
		jsonData, _ := json.MarshalIndent(rec, "", "  ")
		fmt.Println(string(jsonData))
		return
	}

	printBanner("VAULT DEPLOYMENT", 60)
	fmt.Printf("\n  Contract:      %s\n", color.CyanString(rec.ContractAddress))
	fmt.Printf("  Network:       %s\n", rec.Network)
	fmt.Printf("  Owner:         %s\n", rec.Owner)
	fmt.Printf("  Fee Collector: %s\n", rec.FeeCollector)
	fmt.Printf("  Protocol Fee:  %s basis points\n", rec.ProtocolFee)
	fmt.Printf("  Deployed At:   %s\n", rec.DeploymentTime)
	fmt.Println("\n" + strings.Repeat("=", 60))
}
