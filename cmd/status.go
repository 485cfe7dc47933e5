package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"stealth-swap/pkg/client"
)

var (
	watchStatus   bool
	watchInterval int
)

var statusCmd = &cobra.Command{
	Use:   "status <deposit-address|history-id>",
	Short: "Check the status of a swap",
	Long: `Check the settlement status of a submitted swap by its deposit address or
its history record ID. The history record is updated with the result.

Examples:
  stealth-swap status 0x1234...abcd
  stealth-swap status 3f2a --watch
  stealth-swap status 0x1234...abcd --watch --interval 10`,
	Args: cobra.ExactArgs(1),
	Run:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().BoolVarP(&watchStatus, "watch", "w", false, "Watch status updates continuously")
	statusCmd.Flags().IntVar(&watchInterval, "interval", 5, "Polling interval in seconds (when watching)")
}

func runStatus(cmd *cobra.Command, args []string) {
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

	// History IDs resolve to the deposit address they were issued
	depositAddress := args[0]
	if rec, err := a.history.Get(args[0]); err == nil {
		depositAddress = rec.Reference
	}
	if depositAddress == "" {
		printError(fmt.Errorf("swap %s has no deposit address", args[0]))
		os.Exit(1)
	}

	if watchStatus {
		watchSwapStatus(cmd.Context(), a, depositAddress, jsonOutput)
	} else {
		checkSwapStatus(cmd.Context(), a, depositAddress, jsonOutput)
	}
}

func checkSwapStatus(ctx context.Context, a *app, depositAddress string, jsonOutput bool) {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput {
		s.Suffix = " Checking swap status..."
		s.Start()
	}

	status, err := fetchStatus(ctx, a, depositAddress)
	if !jsonOutput {
		s.Stop()
	}

	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if jsonOutput {
		jsonData, _ := json.MarshalIndent(status, "", "  ")
		fmt.Println(string(jsonData))
	} else {
		displayStatus(status, depositAddress)
	}
}

func watchSwapStatus(ctx context.Context, a *app, depositAddress string, jsonOutput bool) {
	if jsonOutput {
		fmt.Println(`{"error": "watch mode not supported with JSON output"}`)
		os.Exit(1)
	}

	fmt.Printf("\nWatching swap status (Deposit Address: %s)\n", color.CyanString(depositAddress))
	fmt.Printf("Checking every %d seconds. Press Ctrl+C to stop.\n\n", watchInterval)

	ticker := time.NewTicker(time.Duration(watchInterval) * time.Second)
	defer ticker.Stop()

	// Check immediately first
	if checkAndDisplayStatus(ctx, a, depositAddress) {
		return
	}

	// Then check periodically until the swap settles
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if checkAndDisplayStatus(ctx, a, depositAddress) {
				return
			}
		}
	}
}

// checkAndDisplayStatus reports whether the swap reached a final state
func checkAndDisplayStatus(ctx context.Context, a *app, depositAddress string) bool {
	status, err := fetchStatus(ctx, a, depositAddress)
	if err != nil {
		color.Red("Error: %v", err)
		return false
	}

	displayStatus(status, depositAddress)
	return isFinalStatus(status.Status)
}

// fetchStatus asks the API for the status and stores it on the matching
// history record, if there is one
func fetchStatus(ctx context.Context, a *app, depositAddress string) (*client.ExecutionStatus, error) {
	status, err := a.executor.Status(ctx, depositAddress)
	if err != nil {
		return nil, err
	}

	if rec, err := a.history.FindByReference(depositAddress); err == nil {
		if _, err := a.history.UpdateSwapStatus(rec.ID, status.Status); err != nil {
			a.log.Warn("failed to update swap history", zap.String("id", rec.ID), zap.Error(err))
		}
	}
	return status, nil
}

func displayStatus(status *client.ExecutionStatus, depositAddress string) {
	printBanner("SWAP STATUS", 70)

	fmt.Printf("\n  Deposit Address: %s\n", color.CyanString(depositAddress))
	fmt.Printf("  Status:          %s\n", getColoredStatus(status.Status))
	if !status.UpdatedAt.IsZero() {
		fmt.Printf("  Last Updated:    %s\n", status.UpdatedAt.Format("2006-01-02 15:04:05"))
	}

	for _, hash := range status.DepositTxs {
		fmt.Printf("  Deposit Tx:      %s\n", color.HiBlackString(hash))
	}
	for _, hash := range status.WithdrawTxs {
		fmt.Printf("  Withdrawal Tx:   %s\n", color.HiBlackString(hash))
	}

	if status.AmountIn != "" {
		fmt.Printf("  Amount In:       %s\n", status.AmountIn)
	}
	if status.AmountOut != "" {
		fmt.Printf("  Amount Out:      %s\n", status.AmountOut)
	}

	fmt.Println("\n" + strings.Repeat("=", 70) + "\n")
}

func isFinalStatus(status string) bool {
	switch strings.ToUpper(status) {
	case "SUCCESS", "COMPLETED", "FAILED", "REFUNDED":
		return true
	default:
		return false
	}
}

func getColoredStatus(status string) string {
	status = strings.ToUpper(status)

	switch status {
	case "SUCCESS", "COMPLETED":
		return color.GreenString(status)
	case "PENDING_DEPOSIT", "PENDING", "PROCESSING", "KNOWN_DEPOSIT_TX":
		return color.YellowString(status)
	case "FAILED", "REFUNDED":
		return color.RedString(status)
	case "INCOMPLETE_DEPOSIT":
		return color.MagentaString(status)
	default:
		return status
	}
}
