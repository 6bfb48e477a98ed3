package signals

import (
	"context"

	"smartmoney-bot/internal/domain"
)

// ActivitySource returns a wallet's most recent transactions, newest first.
type ActivitySource interface {
	RecentActivity(ctx context.Context, wallet string, chainID int64, pageSize int) ([]domain.ActivityRecord, error)
}

// MarketSource returns the best-liquidity market state of a token.
type MarketSource interface {
	TokenSnapshot(ctx context.Context, token string) (domain.TokenMarketSnapshot, error)
}

// Notifier delivers an emitted signal. Delivery is not retried.
type Notifier interface {
	Notify(ctx context.Context, signal domain.WhaleSignal) error
}

// WatchlistRefresher rebuilds the stored watchlist and returns its new size.
type WatchlistRefresher interface {
	Refresh(ctx context.Context) (int, error)
}
