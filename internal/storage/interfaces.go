package storage

import (
	"context"
	"time"

	"smartmoney-bot/internal/domain"
)

const (
	// SeenRetention is how long a processed (wallet, tx) pair stays remembered.
	SeenRetention = 14 * 24 * time.Hour

	// WhaleRetention is the pruning horizon of a token's whale window.
	WhaleRetention = 3 * 24 * time.Hour

	// DefaultWhaleWindow is the read-time cutoff for co-whale counting.
	DefaultWhaleWindow = 24 * time.Hour
)

// WhaleWindow bounds a co-whale read window to (0, WhaleRetention]. A
// non-positive window means DefaultWhaleWindow.
func WhaleWindow(window time.Duration) time.Duration {
	switch {
	case window <= 0:
		return DefaultWhaleWindow
	case window > WhaleRetention:
		return WhaleRetention
	}
	return window
}

// Clock returns the current time. Backends use time.Now when nil.
type Clock func() time.Time

// Now resolves a possibly nil clock.
func (c Clock) Now() time.Time {
	if c == nil {
		return time.Now()
	}
	return c()
}

// WatchlistStore holds the tracked wallets and their ranking metadata.
type WatchlistStore interface {
	// ListWallets returns every tracked wallet. An empty result is not an error.
	ListWallets(ctx context.Context) ([]domain.WatchedWallet, error)

	// GetWallet returns one wallet. Returns ErrNotFound if it is not tracked.
	GetWallet(ctx context.Context, address string) (*domain.WatchedWallet, error)

	// ReplaceWallets overwrites the whole watchlist. Wallets absent from the
	// new list are removed.
	ReplaceWallets(ctx context.Context, wallets []domain.WatchedWallet) error
}

// DedupLedger tracks processed transactions and per-token whale co-occurrence.
// Every method returns an error wrapping ErrUnavailable when the backing store
// cannot be reached.
type DedupLedger interface {
	// IsSeen reports whether txHash was marked for wallet within SeenRetention.
	IsSeen(ctx context.Context, wallet, txHash string) (bool, error)

	// MarkSeen remembers txHash for wallet for SeenRetention from now.
	MarkSeen(ctx context.Context, wallet, txHash string) error

	// RecordWhaleTouch upserts the wallet's touch time for token and prunes
	// entries older than WhaleRetention.
	RecordWhaleTouch(ctx context.Context, token, wallet string, at time.Time) error

	// CountRecentWhales returns the number of distinct wallets that touched
	// token within the last window.
	CountRecentWhales(ctx context.Context, token string, window time.Duration) (int, error)
}

// SignalArchive keeps emitted signals for reporting.
type SignalArchive interface {
	// Append stores one emitted signal.
	Append(ctx context.Context, signal domain.WhaleSignal) error

	// CountSince returns how many signals were emitted at or after since.
	CountSince(ctx context.Context, since time.Time) (int, error)
}
