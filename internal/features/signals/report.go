package signals

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"smartmoney-bot/internal/domain"
)

// Rejection reasons.
const (
	ReasonBelowMinTrade     = "below_min_trade"
	ReasonBelowMinLiquidity = "below_min_liquidity"
	ReasonBelowMinStars     = "below_min_stars"
	ReasonMarketDataError   = "market_data_error"
	ReasonBlacklistedToken  = "blacklisted_token"
)

// PassReport summarizes one pipeline pass.
type PassReport struct {
	PassID         string
	StartedAt      time.Time
	Duration       time.Duration
	Refreshed      bool // the watchlist was empty and a refresh was triggered
	Wallets        int
	RecordsScanned int
	SkippedSeen    int
	SkippedNoHash  int
	Candidates     int
	Rejections     map[string]int
	Signals        []domain.WhaleSignal
	WalletErrors   int
	NotifyErrors   int
	ArchiveErrors  int
}

// Emitted returns the number of signals that passed every gate.
func (r *PassReport) Emitted() int { return len(r.Signals) }

// Summary renders a short plain-text summary.
func (r *PassReport) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Pass %s: %d wallets, %d records, %d candidates, %d signals in %s",
		r.PassID, r.Wallets, r.RecordsScanned, r.Candidates, len(r.Signals), r.Duration.Round(time.Millisecond))
	if len(r.Rejections) > 0 {
		reasons := make([]string, 0, len(r.Rejections))
		for reason := range r.Rejections {
			reasons = append(reasons, reason)
		}
		sort.Strings(reasons)
		b.WriteString("\nRejected:")
		for _, reason := range reasons {
			fmt.Fprintf(&b, " %s=%d", reason, r.Rejections[reason])
		}
	}
	if r.WalletErrors > 0 || r.NotifyErrors > 0 {
		fmt.Fprintf(&b, "\nErrors: wallets=%d notify=%d", r.WalletErrors, r.NotifyErrors)
	}
	return b.String()
}

// tally is the goroutine-safe accumulator behind a PassReport.
type tally struct {
	mu        sync.Mutex
	report    *PassReport
	blacklist map[string]struct{} // read-only once scanning starts
}

func (t *tally) update(fn func(r *PassReport)) {
	t.mu.Lock()
	fn(t.report)
	t.mu.Unlock()
}

func (t *tally) reject(reason string) {
	t.update(func(r *PassReport) { r.Rejections[reason]++ })
}

func (t *tally) blacklisted(token string) bool {
	_, ok := t.blacklist[strings.ToLower(token)]
	return ok
}
