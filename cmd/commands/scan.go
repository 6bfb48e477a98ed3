package commands

// Command to run a single monitor pass

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"smartmoney-bot/bots_monitor"
	"smartmoney-bot/internal/features/signals"
	"smartmoney-bot/internal/infra/config"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/cobra"
)

var scanDryRun bool

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run one monitor pass and exit",
	Long:  `Run one monitor pass. With --dry-run signals are written to the log instead of Telegram; dedup state is still recorded.`,
	RunE:  runScan,
}

func init() {
	scanCmd.Flags().BoolVar(&scanDryRun, "dry-run", false, "Log signals instead of sending them to Telegram")
}

func runScan(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := setup(ctx, cmd, config.Requirements{Telegram: !scanDryRun, Activity: true})
	if err != nil {
		return err
	}
	defer a.Close()

	var notifier signals.Notifier = bots_monitor.LogNotifier{}
	if !scanDryRun {
		chatID, err := a.cfg.ChatID()
		if err != nil {
			return err
		}
		bot, err := tgbotapi.NewBotAPI(a.cfg.Telegram.BotToken)
		if err != nil {
			return fmt.Errorf("failed to create telegram bot: %w", err)
		}
		notifier = bots_monitor.NewTelegramNotifier(bot, chatID)
	}

	pipeline, err := a.newPipeline(notifier)
	if err != nil {
		return err
	}
	report, err := pipeline.Run(ctx)
	if report != nil {
		fmt.Println(report.Summary())
	}
	return err
}
