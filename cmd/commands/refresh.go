package commands

// Command to rebuild the stored watchlist from the ranking sources

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"smartmoney-bot/internal/infra/config"
	"smartmoney-bot/internal/infra/fs"

	"github.com/spf13/cobra"
)

var (
	refreshExport string
	refreshDryRun bool
)

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Refresh the watchlist once",
	RunE:  runRefresh,
}

func init() {
	refreshCmd.Flags().StringVar(&refreshExport, "export", "", "Also write the refreshed watchlist to this seed file")
	refreshCmd.Flags().BoolVar(&refreshDryRun, "dry-run", false, "Print the watchlist a refresh would store without writing it")
}

func runRefresh(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := setup(ctx, cmd, config.Requirements{})
	if err != nil {
		return err
	}
	defer a.Close()

	if refreshDryRun {
		wallets, err := a.refresher.Preview(ctx)
		if err != nil {
			return err
		}
		if err := printWallets(os.Stdout, wallets); err != nil {
			return err
		}
		fmt.Printf("Dry run: %d wallets would be stored\n", len(wallets))
		return nil
	}

	n, err := a.refresher.Refresh(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Watchlist refreshed: %d wallets\n", n)

	if refreshExport == "" {
		return nil
	}
	wallets, err := a.watchlist.ListWallets(ctx)
	if err != nil {
		return err
	}
	if err := fs.SaveSeedWallets(refreshExport, wallets); err != nil {
		return err
	}
	fmt.Printf("Exported %d wallets to %s\n", len(wallets), refreshExport)
	return nil
}
