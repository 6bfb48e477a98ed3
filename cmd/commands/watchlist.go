package commands

// Command to print the stored watchlist

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"smartmoney-bot/internal/domain"
	"smartmoney-bot/internal/features/watchlist"
	"smartmoney-bot/internal/infra/config"

	"github.com/spf13/cobra"
)

var watchlistCmd = &cobra.Command{
	Use:   "watchlist",
	Short: "Print the stored watchlist",
	RunE:  runWatchlist,
}

func runWatchlist(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a, err := setup(ctx, cmd, config.Requirements{})
	if err != nil {
		return err
	}
	defer a.Close()

	wallets, err := a.watchlist.ListWallets(ctx)
	if err != nil {
		return err
	}
	sorted, _ := watchlist.Normalize(wallets, 0)
	if err := printWallets(os.Stdout, sorted); err != nil {
		return err
	}
	fmt.Printf("%d wallets\n", len(wallets))
	return nil
}

func printWallets(out io.Writer, wallets []domain.WatchedWallet) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "#\tADDRESS\tCHAIN\tROI30\tWINRATE\tUPDATED")
	for i, wl := range wallets {
		fmt.Fprintf(w, "%d\t%s\t%d\t%.1f\t%.1f\t%s\n", i+1, wl.Address, wl.ChainID, wl.RoiPct30d, wl.WinRate, wl.UpdatedAt.Format(time.RFC3339))
	}
	return w.Flush()
}
