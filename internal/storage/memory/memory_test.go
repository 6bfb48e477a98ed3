package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartmoney-bot/internal/domain"
	"smartmoney-bot/internal/storage"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func TestWatchlistStore_ReplaceIsWholesale(t *testing.T) {
	ctx := context.Background()
	s := NewWatchlistStore()

	require.NoError(t, s.ReplaceWallets(ctx, []domain.WatchedWallet{
		{Address: "0xaaa", RoiPct30d: 10, WinRate: 50, ChainID: 1},
		{Address: "0xbbb", RoiPct30d: 20, WinRate: 60, ChainID: 1},
	}))
	require.NoError(t, s.ReplaceWallets(ctx, []domain.WatchedWallet{
		{Address: "0xccc", RoiPct30d: 30, WinRate: 70, ChainID: 56},
	}))

	wallets, err := s.ListWallets(ctx)
	require.NoError(t, err)
	require.Len(t, wallets, 1)
	assert.Equal(t, "0xccc", wallets[0].Address)

	_, err = s.GetWallet(ctx, "0xaaa")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	got, err := s.GetWallet(ctx, "0xccc")
	require.NoError(t, err)
	assert.Equal(t, int64(56), got.ChainID)
}

func TestWatchlistStore_RejectsEmptyAddress(t *testing.T) {
	err := NewWatchlistStore().ReplaceWallets(context.Background(), []domain.WatchedWallet{{}})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestDedupLedger_SeenExpiresAfterRetention(t *testing.T) {
	ctx := context.Background()
	clock := newClock()
	l := NewDedupLedger(clock.Now)

	seen, err := l.IsSeen(ctx, "0xw", "0xtx")
	require.NoError(t, err)
	assert.False(t, seen)

	require.NoError(t, l.MarkSeen(ctx, "0xw", "0xtx"))
	seen, err = l.IsSeen(ctx, "0xw", "0xtx")
	require.NoError(t, err)
	assert.True(t, seen)

	seen, err = l.IsSeen(ctx, "0xother", "0xtx")
	require.NoError(t, err)
	assert.False(t, seen, "seen set is per wallet")

	clock.Advance(storage.SeenRetention - time.Minute)
	seen, _ = l.IsSeen(ctx, "0xw", "0xtx")
	assert.True(t, seen)

	clock.Advance(2 * time.Minute)
	seen, _ = l.IsSeen(ctx, "0xw", "0xtx")
	assert.False(t, seen)
}

func TestDedupLedger_CoWhaleDistinct(t *testing.T) {
	ctx := context.Background()
	clock := newClock()
	l := NewDedupLedger(clock.Now)

	for i := 0; i < 3; i++ {
		require.NoError(t, l.RecordWhaleTouch(ctx, "0xtoken", "0xw1", clock.Now()))
		clock.Advance(time.Hour)
	}

	n, err := l.CountRecentWhales(ctx, "0xtoken", storage.DefaultWhaleWindow)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, l.RecordWhaleTouch(ctx, "0xtoken", "0xw2", clock.Now()))
	n, err = l.CountRecentWhales(ctx, "0xtoken", 0)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestDedupLedger_WindowPruning(t *testing.T) {
	ctx := context.Background()
	clock := newClock()
	l := NewDedupLedger(clock.Now)

	require.NoError(t, l.RecordWhaleTouch(ctx, "0xtoken", "0xold", clock.Now().Add(-4*24*time.Hour)))
	require.NoError(t, l.RecordWhaleTouch(ctx, "0xtoken", "0xnew", clock.Now()))

	n, err := l.CountRecentWhales(ctx, "0xtoken", 7*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "touches beyond the retention horizon are pruned on write")

	clock.Advance(25 * time.Hour)
	n, err = l.CountRecentWhales(ctx, "0xtoken", storage.DefaultWhaleWindow)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestDedupLedger_WindowNeverExceedsRetention(t *testing.T) {
	ctx := context.Background()
	clock := newClock()
	l := NewDedupLedger(clock.Now)

	require.NoError(t, l.RecordWhaleTouch(ctx, "0xtoken", "0xw1", clock.Now()))
	clock.Advance(84 * time.Hour)

	// no write since the touch, so nothing pruned it
	n, err := l.CountRecentWhales(ctx, "0xtoken", 96*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestWhaleWindow(t *testing.T) {
	assert.Equal(t, storage.DefaultWhaleWindow, storage.WhaleWindow(0))
	assert.Equal(t, 6*time.Hour, storage.WhaleWindow(6*time.Hour))
	assert.Equal(t, storage.WhaleRetention, storage.WhaleWindow(30*24*time.Hour))
}

func TestDedupLedger_ConcurrentTouchesKeepEveryWallet(t *testing.T) {
	ctx := context.Background()
	l := NewDedupLedger(nil)

	var wg sync.WaitGroup
	wallets := []string{"0x1", "0x2", "0x3", "0x4", "0x5", "0x6", "0x7", "0x8"}
	for _, w := range wallets {
		wg.Add(1)
		go func(w string) {
			defer wg.Done()
			_ = l.RecordWhaleTouch(ctx, "0xtoken", w, time.Now())
		}(w)
	}
	wg.Wait()

	n, err := l.CountRecentWhales(ctx, "0xtoken", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, len(wallets), n)
}

func TestSignalArchive_CountSince(t *testing.T) {
	ctx := context.Background()
	a := NewSignalArchive()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, a.Append(ctx, domain.WhaleSignal{TxHash: "a", DetectedAt: base}))
	require.NoError(t, a.Append(ctx, domain.WhaleSignal{TxHash: "b", DetectedAt: base.Add(2 * time.Hour)}))

	n, err := a.CountSince(ctx, base.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Len(t, a.All(), 2)
}
