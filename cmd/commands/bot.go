package commands

// Command to run the bot: scheduled monitor passes, watchlist refreshes and
// Telegram commands
// Implements graceful shutdown for proper termination

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"smartmoney-bot/bots_monitor"
	"smartmoney-bot/internal/infra/config"
	logging "smartmoney-bot/internal/infra/log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var botCmd = &cobra.Command{
	Use:   "bot",
	Short: "Run the monitor bot (scheduler + Telegram commands)",
	Long:  `Run the smart money monitor: a pass every poll interval, a watchlist refresh on the refresh schedule and the Telegram command handler.`,
	RunE:  runBot,
}

func runBot(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := setup(ctx, cmd, config.Requirements{Telegram: true, Activity: true})
	if err != nil {
		return err
	}
	defer a.Close()

	chatID, err := a.cfg.ChatID()
	if err != nil {
		return err
	}
	bot, err := tgbotapi.NewBotAPI(a.cfg.Telegram.BotToken)
	if err != nil {
		logging.LogError("Failed to create Telegram bot", zap.Error(err))
		return fmt.Errorf("failed to create telegram bot: %w", err)
	}
	logging.LogSuccess("Telegram bot authorized", zap.String("username", bot.Self.UserName))

	notifier := bots_monitor.NewTelegramNotifier(bot, chatID)
	pipeline, err := a.newPipeline(notifier)
	if err != nil {
		return err
	}

	var wg sync.WaitGroup

	if addr := a.cfg.App.MetricsAddr; addr != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			logging.LogInfo("Serving metrics", zap.String("addr", addr))
			if err := a.metrics.Serve(ctx, addr); err != nil {
				logging.LogError("Metrics server failed", zap.Error(err))
			}
		}()
	}

	wallets, err := a.watchlist.ListWallets(ctx)
	if err != nil {
		logging.LogWarn("Failed to read watchlist at startup", zap.Error(err))
	}
	bots_monitor.SendStartupMessage(ctx, notifier, len(wallets), a.cfg.Monitor.PollInterval())

	failures := bots_monitor.NewFailureReporter(notifier, a.cfg.Monitor.FailureCooldown())
	scheduler := bots_monitor.NewScheduler(pipeline, a.refresher, failures, a.cfg.Monitor.PollInterval(), a.cfg.Monitor.RefreshSchedule)
	if err := scheduler.Start(ctx); err != nil {
		return err
	}

	handler := bots_monitor.NewCommandHandler(bot, chatID, a.watchlist, a.archive, scheduler, a.cfg.Monitor.SeedFile, a.cfg.Monitor.BlacklistFile)
	wg.Add(1)
	go func() {
		defer wg.Done()
		handler.Run(ctx)
	}()

	logging.LogSuccess("Bot is running", zap.String("status", "active"))

	<-ctx.Done()
	logging.LogInfo("Shutdown signal received, gracefully stopping...")

	cancel()

	done := make(chan struct{})
	go func() {
		<-scheduler.Stop()
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logging.LogSuccess("All jobs stopped gracefully")
	case <-time.After(10 * time.Second):
		logging.LogWarn("Timeout waiting for jobs to stop, forcing shutdown")
	}

	return nil
}
