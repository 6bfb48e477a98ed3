package bots_monitor

import (
	"context"
	"fmt"

	"smartmoney-bot/internal/domain"
	logging "smartmoney-bot/internal/infra/log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// messageSender is the part of *tgbotapi.BotAPI the notifier needs.
type messageSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramNotifier posts signals and operator messages to one chat.
type TelegramNotifier struct {
	sender messageSender
	chatID int64
}

func NewTelegramNotifier(bot *tgbotapi.BotAPI, chatID int64) *TelegramNotifier {
	return &TelegramNotifier{sender: bot, chatID: chatID}
}

// Notify sends one signal. Failures are returned, not retried.
func (n *TelegramNotifier) Notify(ctx context.Context, s domain.WhaleSignal) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(n.chatID, FormatSignal(s))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	msg.ReplyMarkup = signalKeyboard(s)

	if _, err := n.sender.Send(msg); err != nil {
		return fmt.Errorf("send signal to chat %d: %w", n.chatID, err)
	}
	return nil
}

// SendText sends a plain HTML message, used for operational notices.
func (n *TelegramNotifier) SendText(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(n.chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	if _, err := n.sender.Send(msg); err != nil {
		return fmt.Errorf("send message to chat %d: %w", n.chatID, err)
	}
	return nil
}

// LogNotifier writes signals to the log instead of Telegram (scan --dry-run).
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, s domain.WhaleSignal) error {
	logging.LogSuccess("Whale signal (dry run)",
		zap.String("wallet", s.Wallet),
		zap.String("token", s.Token),
		zap.String("symbol", s.TokenSymbol),
		zap.Float64("volume_usd", s.VolumeUSD),
		zap.Float64("liquidity_usd", s.LiquidityUSD),
		zap.Int("co_whales", s.CoWhaleCount24h),
		zap.Int("stars", s.Stars),
		zap.String("link", s.ReferenceLink))
	return nil
}

func (LogNotifier) SendText(_ context.Context, text string) error {
	logging.LogInfo("Operator message (dry run)", zap.String("text", text))
	return nil
}
