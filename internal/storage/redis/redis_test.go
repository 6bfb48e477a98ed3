package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartmoney-bot/internal/domain"
	"smartmoney-bot/internal/storage"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func setupRedis(t *testing.T) (*miniredis.Miniredis, *Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return mr, Wrap(rdb, "")
}

func TestWatchlistStore_ReplaceAndList(t *testing.T) {
	ctx := context.Background()
	mr, c := setupRedis(t)
	s := NewWatchlistStore(c)

	require.NoError(t, s.ReplaceWallets(ctx, []domain.WatchedWallet{
		{Address: "0xaaa", RoiPct30d: 12.5, WinRate: 61, ChainID: 1, UpdatedAt: testNow},
		{Address: "0xbbb", RoiPct30d: -3, WinRate: 40, ChainID: 56, UpdatedAt: testNow},
	}))

	wallets, err := s.ListWallets(ctx)
	require.NoError(t, err)
	require.Len(t, wallets, 2)
	assert.Equal(t, domain.WatchedWallet{Address: "0xaaa", RoiPct30d: 12.5, WinRate: 61, ChainID: 1, UpdatedAt: testNow}, wallets[0])
	assert.Equal(t, int64(56), wallets[1].ChainID)

	assert.Equal(t, "61", mr.HGet("sm:wallet:0xaaa", "winrate"))

	require.NoError(t, s.ReplaceWallets(ctx, []domain.WatchedWallet{{Address: "0xbbb", RoiPct30d: 5, ChainID: 56}}))
	assert.False(t, mr.Exists("sm:wallet:0xaaa"), "hash of a dropped wallet is removed")

	_, err = s.GetWallet(ctx, "0xaaa")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	got, err := s.GetWallet(ctx, "0xbbb")
	require.NoError(t, err)
	assert.Equal(t, 5.0, got.RoiPct30d)
}

func TestWatchlistStore_EmptyList(t *testing.T) {
	_, c := setupRedis(t)

	wallets, err := NewWatchlistStore(c).ListWallets(context.Background())
	require.NoError(t, err)
	assert.Empty(t, wallets)
}

func TestDecodeWallet_ReportsUnparsableFields(t *testing.T) {
	w, bad := decodeWallet("0xabc", map[string]string{
		"roi30":      "not-a-number",
		"winrate":    "61.5",
		"chain_id":   "1e400",
		"updated_at": testNow.Format(time.RFC3339),
	})
	assert.Equal(t, []string{"roi30", "chain_id"}, bad)
	assert.Equal(t, 0.0, w.RoiPct30d)
	assert.Equal(t, 61.5, w.WinRate)
	assert.Equal(t, int64(0), w.ChainID)
	assert.True(t, testNow.Equal(w.UpdatedAt))

	_, bad = decodeWallet("0xabc", map[string]string{})
	assert.Empty(t, bad)
}

func TestWatchlistStore_CorruptHashStillListed(t *testing.T) {
	ctx := context.Background()
	mr, c := setupRedis(t)
	store := NewWatchlistStore(c)
	require.NoError(t, store.ReplaceWallets(ctx, []domain.WatchedWallet{{Address: "0xabc", RoiPct30d: 10, ChainID: 1}}))

	mr.HSet(c.walletKey("0xabc"), "roi30", "garbage")

	wallets, err := store.ListWallets(ctx)
	require.NoError(t, err)
	require.Len(t, wallets, 1)
	assert.Equal(t, 0.0, wallets[0].RoiPct30d)
	assert.Equal(t, int64(1), wallets[0].ChainID)
}

func TestDedupLedger_SeenWithTTL(t *testing.T) {
	ctx := context.Background()
	mr, c := setupRedis(t)
	now := testNow
	l := NewDedupLedger(c, func() time.Time { return now })

	seen, err := l.IsSeen(ctx, "0xw", "0xtx")
	require.NoError(t, err)
	assert.False(t, seen)

	require.NoError(t, l.MarkSeen(ctx, "0xw", "0xtx"))
	seen, err = l.IsSeen(ctx, "0xw", "0xtx")
	require.NoError(t, err)
	assert.True(t, seen)
	assert.Equal(t, storage.SeenRetention, mr.TTL("sm:seen:0xw"))

	now = now.Add(storage.SeenRetention + time.Second)
	seen, err = l.IsSeen(ctx, "0xw", "0xtx")
	require.NoError(t, err)
	assert.False(t, seen, "entry older than retention is not seen even if the key survives")

	require.NoError(t, l.MarkSeen(ctx, "0xw", "0xtx2"))
	members, err := mr.ZMembers("sm:seen:0xw")
	require.NoError(t, err)
	assert.Equal(t, []string{"0xtx2"}, members, "expired members are pruned on insert")
}

func TestDedupLedger_WhaleWindow(t *testing.T) {
	ctx := context.Background()
	_, c := setupRedis(t)
	now := testNow
	l := NewDedupLedger(c, func() time.Time { return now })

	for i := 0; i < 3; i++ {
		require.NoError(t, l.RecordWhaleTouch(ctx, "0xtoken", "0xw1", now))
		now = now.Add(time.Minute)
	}
	n, err := l.CountRecentWhales(ctx, "0xtoken", storage.DefaultWhaleWindow)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, l.RecordWhaleTouch(ctx, "0xtoken", "0xold", now.Add(-4*24*time.Hour)))
	require.NoError(t, l.RecordWhaleTouch(ctx, "0xtoken", "0xw2", now))

	n, err = l.CountRecentWhales(ctx, "0xtoken", 30*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 2, n, "the 4-day-old touch is pruned")
}

func TestDedupLedger_WindowNeverExceedsRetention(t *testing.T) {
	ctx := context.Background()
	_, c := setupRedis(t)
	now := testNow
	l := NewDedupLedger(c, func() time.Time { return now })

	require.NoError(t, l.RecordWhaleTouch(ctx, "0xtoken", "0xw1", now))
	now = now.Add(84 * time.Hour)

	n, err := l.CountRecentWhales(ctx, "0xtoken", 96*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestDedupLedger_UnavailableStore(t *testing.T) {
	ctx := context.Background()
	mr, c := setupRedis(t)
	l := NewDedupLedger(c, nil)
	mr.Close()

	_, err := l.IsSeen(ctx, "0xw", "0xtx")
	assert.ErrorIs(t, err, storage.ErrUnavailable)

	err = l.MarkSeen(ctx, "0xw", "0xtx")
	assert.ErrorIs(t, err, storage.ErrUnavailable)

	_, err = l.CountRecentWhales(ctx, "0xtoken", time.Hour)
	assert.ErrorIs(t, err, storage.ErrUnavailable)

	_, err = NewWatchlistStore(c).ListWallets(ctx)
	assert.ErrorIs(t, err, storage.ErrUnavailable)
}
