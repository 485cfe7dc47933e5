package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"stealth-swap/pkg/history"
	"stealth-swap/pkg/swap"
	"stealth-swap/pkg/types"
)

var (
	historyStatusFilter string
	historyShowAmounts  bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List submitted swap requests",
	Long: `Display every swap request submitted from this machine, newest first.

Amounts are masked unless --show-amounts is given.

Examples:
  stealth-swap history
  stealth-swap history --status deposited
  stealth-swap history view 3f2a --show-amounts`,
	Run: runHistoryList,
}

var historyViewCmd = &cobra.Command{
	Use:   "view <id>",
	Short: "View one submitted swap request",
	Long: `Display a submitted swap request. The ID may be shortened to any unique prefix.

Examples:
  stealth-swap history view 3f2a
  stealth-swap history view 3f2a --json`,
	Args: cobra.ExactArgs(1),
	Run:  runHistoryView,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyViewCmd)

	historyCmd.PersistentFlags().BoolVar(&historyShowAmounts, "show-amounts", false, "Show amounts instead of masking them")
	historyCmd.Flags().StringVar(&historyStatusFilter, "status", "", "Filter by status (quoted, deposited, completed, failed)")
}

func historyVisibility() swap.Visibility {
	if historyShowAmounts {
		return swap.Plain
	}
	return swap.Masked
}

func runHistoryList(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	a, err := loadApp(cmd)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	var records []*history.Record
	if historyStatusFilter != "" {
		records = a.history.ListByStatus(history.Status(historyStatusFilter))
	} else {
		records = a.history.List()
	}

	if jsonOutput {
		output, _ := json.MarshalIndent(records, "", "  ")
		fmt.Println(string(output))
		return
	}

	if len(records) == 0 {
		color.Yellow("No swap requests found.\n")
		fmt.Println("\nSubmit one with:")
		color.Cyan("  stealth-swap swap <amount> <token> to <amount> <token>\n")
		return
	}

	printBanner("SWAP HISTORY", 110)

	vis := historyVisibility()
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "\nID\tCREATED\tFROM\tTO\tAMOUNT\tSTATUS\tDEPOSIT ADDRESS")
	fmt.Fprintln(w, strings.Repeat("-", 110))

	for _, rec := range records {
		req := rec.Request
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			rec.ID[:8],
			rec.Created.Format("2006-01-02 15:04"),
			legLabel(req.Source.Token, req.Source.Chain),
			legLabel(req.Destination.Token, req.Destination.Chain),
			swap.FormatAmount(req.Source.Amount, vis),
			getHistoryStatusColor(rec.Status),
			shorten(rec.Reference, 20))
	}

	w.Flush()
	fmt.Println("\n" + strings.Repeat("=", 110))
	fmt.Printf("Showing %d of %d swap requests\n\n", len(records), a.history.Count())
}

func runHistoryView(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	a, err := loadApp(cmd)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	rec, err := a.history.Get(args[0])
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if jsonOutput {
		output, _ := json.MarshalIndent(rec, "", "  ")
		fmt.Println(string(output))
		return
	}

	vis := historyVisibility()
	req := rec.Request

	printBanner("SWAP REQUEST DETAILS", 70)

	fmt.Printf("\n  ID:                %s\n", color.CyanString(rec.ID))
	fmt.Printf("  Status:            %s\n", getHistoryStatusColor(rec.Status))
	fmt.Printf("  Created:           %s\n", rec.Created.Format("2006-01-02 15:04:05"))
	fmt.Printf("  Updated:           %s\n", rec.Updated.Format("2006-01-02 15:04:05"))

	fmt.Println("\n  Request:")
	fmt.Printf("    From:            %s %s\n", swap.FormatAmount(req.Source.Amount, vis), legLabel(req.Source.Token, req.Source.Chain))
	fmt.Printf("    To:              %s %s\n", swap.FormatAmount(req.Destination.Amount, vis), legLabel(req.Destination.Token, req.Destination.Chain))

	fmt.Println("\n  Settlement:")
	if rec.Reference != "" {
		fmt.Printf("    Deposit Address: %s\n", color.CyanString(rec.Reference))
	}
	if rec.TxHash != "" {
		fmt.Printf("    Deposit TX:      %s\n", color.CyanString(rec.TxHash))
	}
	if rec.AmountOut != "" {
		fmt.Printf("    Quoted Out:      %s\n", swap.FormatAmount(rec.AmountOut, vis))
	}
	if rec.EstimatedSeconds > 0 {
		fmt.Printf("    Estimated Time:  %.0f seconds\n", rec.EstimatedSeconds)
	}
	if rec.SwapStatus != "" {
		fmt.Printf("    API Status:      %s\n", getColoredStatus(rec.SwapStatus))
	}
	if rec.ErrorMessage != "" {
		fmt.Printf("    Error:           %s\n", color.RedString(rec.ErrorMessage))
	}

	fmt.Println("\n" + strings.Repeat("=", 70) + "\n")

	if rec.Reference != "" && !rec.IsFinal() {
		fmt.Println("Refresh the status with:")
		color.Cyan("  stealth-swap status %s\n", rec.ID[:8])
	}
}

func getHistoryStatusColor(status history.Status) string {
	switch status {
	case history.StatusCompleted:
		return color.GreenString(string(status))
	case history.StatusDeposited:
		return color.CyanString(string(status))
	case history.StatusQuoted:
		return color.YellowString(string(status))
	case history.StatusFailed:
		return color.RedString(string(status))
	default:
		return string(status)
	}
}

func shorten(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

func legLabel(token *types.Token, chain *types.Chain) string {
	label := "?"
	if token != nil {
		label = token.Symbol
	}
	if chain != nil {
		label += " (" + chain.ID + ")"
	}
	return label
}
