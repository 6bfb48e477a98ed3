package bots_monitor

// Telegram command handler for the configured chat

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"smartmoney-bot/internal/domain"
	"smartmoney-bot/internal/features/signals"
	"smartmoney-bot/internal/features/watchlist"
	"smartmoney-bot/internal/infra/fs"
	logging "smartmoney-bot/internal/infra/log"
	"smartmoney-bot/internal/storage"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

const helpText = "" +
	"Commands:\n" +
	"• <code>/watchlist</code> - tracked wallets\n" +
	"• <code>/scan</code> - run a monitor pass now\n" +
	"• <code>/refresh</code> - rebuild the watchlist\n" +
	"• <code>/stats</code> - signals in the last 24h\n" +
	"• <code>/watchadd {address}[:chain:roi:winrate]</code> - add a seed wallet\n" +
	"• <code>/watchdel {address}</code> - remove a seed wallet\n" +
	"• <code>/tokenban {token}</code> - never signal buys of a token\n" +
	"• <code>/tokenunban {token}</code> - lift a token ban\n" +
	"• <code>/test</code> - send a demo signal"

type updatesSource interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Triggers runs passes and refreshes on demand.
type Triggers interface {
	TriggerPass(ctx context.Context) (*signals.PassReport, error)
	TriggerRefresh(ctx context.Context) (int, error)
}

type CommandHandler struct {
	updates  updatesSource
	sender   messageSender
	chatID   int64
	notifier *TelegramNotifier

	watchlist storage.WatchlistStore
	archive   storage.SignalArchive // optional
	triggers  Triggers
	seedFile  string
	blacklist string // blacklisted tokens file; bans are disabled when empty
	now       func() time.Time
}

func NewCommandHandler(bot *tgbotapi.BotAPI, chatID int64, store storage.WatchlistStore, archive storage.SignalArchive, triggers Triggers, seedFile, blacklistFile string) *CommandHandler {
	return &CommandHandler{
		updates:   bot,
		sender:    bot,
		chatID:    chatID,
		notifier:  NewTelegramNotifier(bot, chatID),
		watchlist: store,
		archive:   archive,
		triggers:  triggers,
		seedFile:  seedFile,
		blacklist: blacklistFile,
		now:       time.Now,
	}
}

// Run consumes updates until ctx is done.
func (h *CommandHandler) Run(ctx context.Context) {
	logging.LogInfo("Starting command handler", zap.Int64("chatID", h.chatID))

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := h.updates.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			h.updates.StopReceivingUpdates()
			logging.LogInfo("Command handler stopped")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			h.handleUpdate(ctx, update)
		}
	}
}

func (h *CommandHandler) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.Chat == nil || !msg.IsCommand() {
		return
	}
	// commands only from the configured chat
	if msg.Chat.ID != h.chatID {
		return
	}

	command := msg.Command()
	args := strings.TrimSpace(msg.CommandArguments())
	username := ""
	if msg.From != nil {
		username = msg.From.UserName
	}
	logging.LogDebug("Received command",
		zap.String("command", command),
		zap.String("args", args),
		zap.String("username", username))

	switch command {
	case "start", "help":
		h.reply(msg, helpText)
	case "test":
		h.handleTest(ctx, msg)
	case "watchlist":
		h.handleWatchlist(ctx, msg)
	case "scan":
		h.handleScan(ctx, msg)
	case "refresh":
		h.handleRefresh(ctx, msg)
	case "stats":
		h.handleStats(ctx, msg)
	case "watchadd":
		h.handleWatchAdd(msg, args)
	case "watchdel":
		h.handleWatchDel(msg, args)
	case "tokenban":
		h.handleTokenBan(msg, args)
	case "tokenunban":
		h.handleTokenUnban(msg, args)
	}
}

// DemoSignal is the sample sent by /test.
func DemoSignal(now time.Time) domain.WhaleSignal {
	const usdc = "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48"
	return domain.WhaleSignal{
		Wallet:          "0x28c6c06298d514db089934071355e5743bf21d60",
		Action:          domain.ActionBuy,
		Token:           usdc,
		TokenSymbol:     "USDC",
		VolumeUSD:       25000,
		Roi:             42,
		WinRate:         70,
		LiquidityUSD:    12_500_000,
		PriceUSD:        1,
		CoWhaleCount24h: 3,
		TokenAgeDays:    1095,
		AgeKnown:        true,
		ChainID:         domain.DefaultChainID,
		ReferenceLink:   domain.DexScreenerSearchURL(usdc),
		Score:           12,
		Stars:           4,
		DetectedAt:      now,
	}
}

func (h *CommandHandler) handleTest(ctx context.Context, msg *tgbotapi.Message) {
	if err := h.notifier.Notify(ctx, DemoSignal(h.now())); err != nil {
		logging.LogError("Failed to send demo signal", zap.Error(err))
		h.reply(msg, "Failed to send demo signal")
	}
}

func (h *CommandHandler) handleWatchlist(ctx context.Context, msg *tgbotapi.Message) {
	wallets, err := h.watchlist.ListWallets(ctx)
	if err != nil {
		logging.LogError("Failed to list watchlist", zap.Error(err))
		h.reply(msg, "Failed to load watchlist")
		return
	}
	h.reply(msg, FormatWatchlist(wallets, 10))
}

// FormatWatchlist renders the size and the top n wallets by ROI.
func FormatWatchlist(wallets []domain.WatchedWallet, n int) string {
	if len(wallets) == 0 {
		return "Watchlist is empty"
	}
	sorted, _ := watchlist.Normalize(wallets, n)

	var b strings.Builder
	b.WriteString(fmt.Sprintf("<b>Watchlist</b>: %d wallets\n", len(wallets)))
	for i, w := range sorted {
		b.WriteString(fmt.Sprintf("%d. <a href=\"%s\">%s</a> ROI %.1f%% WR %.1f%%\n",
			i+1, html.EscapeString(domain.ExplorerAddressURL(w.ChainID, w.Address)), ShortAddress(w.Address), w.RoiPct30d, w.WinRate))
	}
	return strings.TrimRight(b.String(), "\n")
}

func (h *CommandHandler) handleScan(ctx context.Context, msg *tgbotapi.Message) {
	report, err := h.triggers.TriggerPass(ctx)
	switch {
	case errors.Is(err, ErrPassInProgress):
		h.reply(msg, "A monitor pass is already running")
	case err != nil:
		h.reply(msg, "Pass failed: <code>"+html.EscapeString(err.Error())+"</code>")
	default:
		h.reply(msg, html.EscapeString(report.Summary()))
	}
}

func (h *CommandHandler) handleRefresh(ctx context.Context, msg *tgbotapi.Message) {
	n, err := h.triggers.TriggerRefresh(ctx)
	if err != nil {
		h.reply(msg, "Refresh failed: <code>"+html.EscapeString(err.Error())+"</code>")
		return
	}
	if n == 0 {
		h.reply(msg, "Refresh found no wallets to track")
		return
	}
	h.reply(msg, fmt.Sprintf("Watchlist refreshed: %d wallets", n))
}

func (h *CommandHandler) handleStats(ctx context.Context, msg *tgbotapi.Message) {
	wallets, err := h.watchlist.ListWallets(ctx)
	if err != nil {
		h.reply(msg, "Failed to load watchlist")
		return
	}
	text := fmt.Sprintf("Watchlist: %d wallets", len(wallets))
	if h.archive == nil {
		h.reply(msg, text+"\nSignal archive is not configured")
		return
	}
	count, err := h.archive.CountSince(ctx, h.now().Add(-24*time.Hour))
	if err != nil {
		logging.LogError("Failed to count archived signals", zap.Error(err))
		h.reply(msg, text+"\nFailed to read the signal archive")
		return
	}
	h.reply(msg, fmt.Sprintf("%s\nSignals (24h): %d", text, count))
}

func (h *CommandHandler) handleWatchAdd(msg *tgbotapi.Message, args string) {
	if args == "" {
		h.reply(msg, "Usage: /watchadd {address}[:chain:roi:winrate]\n\nExample: /watchadd 0x28c6c06298d514db089934071355e5743bf21d60:1:42:70")
		return
	}
	w, err := watchlist.ParseSeed(args)
	if err != nil {
		h.reply(msg, html.EscapeString(err.Error()))
		return
	}
	addr, ok := watchlist.NormalizeAddress(w.Address)
	if !ok {
		h.reply(msg, "Invalid address: <code>"+html.EscapeString(w.Address)+"</code>")
		return
	}
	w.Address = addr
	w.UpdatedAt = h.now().UTC()

	if err := fs.AddSeedWallet(h.seedFile, w); err != nil {
		logging.LogError("Failed to add seed wallet", zap.String("wallet", addr), zap.Error(err))
		h.reply(msg, "Failed to save seed wallet")
		return
	}
	h.reply(msg, fmt.Sprintf("Added <code>%s</code> to seed wallets. Run /refresh to apply.", addr))
}

func (h *CommandHandler) handleWatchDel(msg *tgbotapi.Message, args string) {
	addr, ok := watchlist.NormalizeAddress(args)
	if !ok {
		h.reply(msg, "Usage: /watchdel {address}")
		return
	}
	err := fs.RemoveSeedWallet(h.seedFile, addr)
	switch {
	case errors.Is(err, fs.ErrWalletNotInFile):
		h.reply(msg, "Wallet is not in the seed file")
	case err != nil:
		logging.LogError("Failed to remove seed wallet", zap.String("wallet", addr), zap.Error(err))
		h.reply(msg, "Failed to update seed wallets")
	default:
		h.reply(msg, fmt.Sprintf("Removed <code>%s</code> from seed wallets. Run /refresh to apply.", addr))
	}
}

func (h *CommandHandler) handleTokenBan(msg *tgbotapi.Message, args string) {
	if h.blacklist == "" {
		h.reply(msg, "Token blacklist is not configured")
		return
	}
	token, ok := watchlist.NormalizeAddress(args)
	if !ok {
		h.reply(msg, "Usage: /tokenban {token}")
		return
	}
	if err := fs.AddBlacklistedToken(h.blacklist, token); err != nil {
		logging.LogError("Failed to blacklist token", zap.String("token", token), zap.Error(err))
		h.reply(msg, "Failed to update token blacklist")
		return
	}
	h.reply(msg, fmt.Sprintf("Buys of <code>%s</code> will no longer be signalled", token))
}

func (h *CommandHandler) handleTokenUnban(msg *tgbotapi.Message, args string) {
	if h.blacklist == "" {
		h.reply(msg, "Token blacklist is not configured")
		return
	}
	token, ok := watchlist.NormalizeAddress(args)
	if !ok {
		h.reply(msg, "Usage: /tokenunban {token}")
		return
	}
	err := fs.RemoveBlacklistedToken(h.blacklist, token)
	switch {
	case errors.Is(err, fs.ErrTokenNotInList):
		h.reply(msg, "Token is not blacklisted")
	case err != nil:
		logging.LogError("Failed to unban token", zap.String("token", token), zap.Error(err))
		h.reply(msg, "Failed to update token blacklist")
	default:
		h.reply(msg, fmt.Sprintf("Removed <code>%s</code> from the token blacklist", token))
	}
}

func (h *CommandHandler) reply(msg *tgbotapi.Message, text string) {
	out := tgbotapi.NewMessage(msg.Chat.ID, text)
	out.ParseMode = tgbotapi.ModeHTML
	out.DisableWebPagePreview = true
	out.ReplyToMessageID = msg.MessageID
	if _, err := h.sender.Send(out); err != nil {
		logging.LogError("Failed to send reply", zap.Error(err))
	}
}

// SendStartupMessage announces the bot in the configured chat.
func SendStartupMessage(ctx context.Context, sender TextSender, wallets int, poll time.Duration) {
	text := fmt.Sprintf("🐋 <b>Smart money monitor started</b>\nWatchlist: %d wallets\nPoll interval: %s", wallets, poll)
	if err := sender.SendText(ctx, text); err != nil {
		logging.LogWarn("Failed to send startup message", zap.Error(err))
	}
}
