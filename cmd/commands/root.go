package commands

// Root command for Cobra CLI
// Registers the subcommands (bot, scan, refresh, watchlist) and the shared flags

import (
	"smartmoney-bot/internal/infra/config"

	"github.com/spf13/cobra"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "smartmoney-bot",
	Short: "Smart money monitor - Telegram alerts when top on-chain wallets buy liquid tokens",
	Long: `smartmoney-bot watches a ranked list of profitable wallets, detects their token buys,
enriches them with DexScreener market data and posts star-rated whale signals to Telegram.`,
	Version:       "1.0.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to a config file (default ./config.yaml)")
	config.RegisterFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(botCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(refreshCmd)
	rootCmd.AddCommand(watchlistCmd)
}
