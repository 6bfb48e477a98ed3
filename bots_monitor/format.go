package bots_monitor

// Telegram message rendering for whale signals

import (
	"fmt"
	"html"
	"math"
	"strconv"
	"strings"

	"smartmoney-bot/internal/domain"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// 0x28c6c06298d514db089934071355e5743bf21d60 -> 0x28c6...1d60
func ShortAddress(address string) string {
	if len(address) <= 12 {
		return address
	}
	return address[:6] + "..." + address[len(address)-4:]
}

// StarsLine renders 1..5 stars.
func StarsLine(stars int) string {
	stars = max(1, min(stars, 5))
	return strings.Repeat("⭐", stars)
}

// FormatSignal renders a signal as Telegram HTML.
func FormatSignal(s domain.WhaleSignal) string {
	symbol := s.TokenSymbol
	if symbol == "" {
		symbol = "???"
	}
	age := "unknown"
	if s.AgeKnown {
		age = fmt.Sprintf("%d days", s.TokenAgeDays)
	}

	var message strings.Builder
	message.WriteString(fmt.Sprintf("%s <b>Whale Signal</b>\n", StarsLine(s.Stars)))
	message.WriteString("<blockquote>")
	message.WriteString(fmt.Sprintf("Wallet: <a href=\"%s\">%s</a>\n", html.EscapeString(domain.ExplorerAddressURL(s.ChainID, s.Wallet)), html.EscapeString(ShortAddress(s.Wallet))))
	message.WriteString(fmt.Sprintf("Action: %s <b>%s</b>\n", html.EscapeString(s.Action), html.EscapeString(symbol)))
	message.WriteString(fmt.Sprintf("Token: <code>%s</code>\n", html.EscapeString(s.Token)))
	message.WriteString(fmt.Sprintf("Volume: $%s\n", FormatAmount(s.VolumeUSD)))
	message.WriteString(fmt.Sprintf("ROI 30d: %.1f%%\n", s.Roi))
	message.WriteString(fmt.Sprintf("Win rate: %.1f%%\n", s.WinRate))
	message.WriteString(fmt.Sprintf("Liquidity: %s\n", FormatUSDCompact(s.LiquidityUSD)))
	message.WriteString(fmt.Sprintf("Co-whales (24h): %d\n", s.CoWhaleCount24h))
	message.WriteString(fmt.Sprintf("Age: %s\n", age))
	message.WriteString(fmt.Sprintf("Score: %d", s.Score))
	message.WriteString("</blockquote>\n")

	message.WriteString(fmt.Sprintf("<a href=\"%s\">Link</a> | ", html.EscapeString(s.ReferenceLink)))
	message.WriteString(fmt.Sprintf("<a href=\"%s\">Explorer</a> | ", html.EscapeString(domain.ExplorerTokenURL(s.ChainID, s.Token))))
	message.WriteString(fmt.Sprintf("<a href=\"%s\">DexScreener</a>", html.EscapeString(domain.DexScreenerSearchURL(s.Token))))
	return message.String()
}

// signalKeyboard links the pair chart and the transaction.
func signalKeyboard(s domain.WhaleSignal) tgbotapi.InlineKeyboardMarkup {
	chart := s.PairURL
	if chart == "" {
		chart = domain.DexScreenerSearchURL(s.Token)
	}
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("DexScreener", chart),
			tgbotapi.NewInlineKeyboardButtonURL("Explorer", domain.ExplorerTxURL(s.ChainID, s.TxHash)),
		),
	)
}

// FormatAmount renders v with two decimals and thousands separators: 25000 -> 25,000.00
func FormatAmount(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "0.00"
	}
	s := strconv.FormatFloat(math.Abs(v), 'f', 2, 64)
	intPart, frac := s[:len(s)-3], s[len(s)-3:]

	var b strings.Builder
	if v < 0 {
		b.WriteByte('-')
	}
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	b.WriteString(frac)
	return b.String()
}

// FormatUSDCompact: 12500000 -> $12.50M, 850000 -> $850.00K
func FormatUSDCompact(v float64) string {
	switch abs := math.Abs(v); {
	case abs >= 1e9:
		return fmt.Sprintf("$%.2fB", v/1e9)
	case abs >= 1e6:
		return fmt.Sprintf("$%.2fM", v/1e6)
	case abs >= 1e3:
		return fmt.Sprintf("$%.2fK", v/1e3)
	default:
		return fmt.Sprintf("$%.2f", v)
	}
}
