package signals

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"smartmoney-bot/internal/domain"
	"smartmoney-bot/internal/storage"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

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

type fakeActivity struct {
	mu      sync.Mutex
	records map[string][]domain.ActivityRecord
	errs    map[string]error
	calls   atomic.Int32
}

func newFakeActivity() *fakeActivity {
	return &fakeActivity{records: map[string][]domain.ActivityRecord{}, errs: map[string]error{}}
}

func (f *fakeActivity) set(wallet string, recs ...domain.ActivityRecord) {
	f.mu.Lock()
	f.records[wallet] = recs
	f.mu.Unlock()
}

func (f *fakeActivity) RecentActivity(_ context.Context, wallet string, _ int64, pageSize int) ([]domain.ActivityRecord, error) {
	f.calls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs[wallet]; err != nil {
		return nil, err
	}
	recs := f.records[wallet]
	if len(recs) > pageSize {
		recs = recs[:pageSize]
	}
	return recs, nil
}

type fakeMarket struct {
	mu    sync.Mutex
	snaps map[string]domain.TokenMarketSnapshot
	errs  map[string]error
	calls map[string]int
}

func newFakeMarket() *fakeMarket {
	return &fakeMarket{
		snaps: map[string]domain.TokenMarketSnapshot{},
		errs:  map[string]error{},
		calls: map[string]int{},
	}
}

func (f *fakeMarket) set(token string, snap domain.TokenMarketSnapshot) {
	f.mu.Lock()
	f.snaps[token] = snap
	f.mu.Unlock()
}

func (f *fakeMarket) fail(token string, err error) {
	f.mu.Lock()
	f.errs[token] = err
	f.mu.Unlock()
}

func (f *fakeMarket) heal(token string) {
	f.mu.Lock()
	delete(f.errs, token)
	f.mu.Unlock()
}

func (f *fakeMarket) callCount(token string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[token]
}

func (f *fakeMarket) TokenSnapshot(_ context.Context, token string) (domain.TokenMarketSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[token]++
	if err := f.errs[token]; err != nil {
		return domain.TokenMarketSnapshot{}, err
	}
	snap, ok := f.snaps[token]
	if !ok {
		return domain.EmptySnapshot(), nil
	}
	return snap, nil
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []domain.WhaleSignal
	err  error
}

func (f *fakeNotifier) Notify(_ context.Context, s domain.WhaleSignal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, s)
	return nil
}

func (f *fakeNotifier) signals() []domain.WhaleSignal {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.WhaleSignal(nil), f.sent...)
}

type fakeRefresher struct {
	calls   atomic.Int32
	store   storage.WatchlistStore
	wallets []domain.WatchedWallet
}

func (f *fakeRefresher) Refresh(ctx context.Context) (int, error) {
	f.calls.Add(1)
	if len(f.wallets) == 0 {
		return 0, nil
	}
	return len(f.wallets), f.store.ReplaceWallets(ctx, f.wallets)
}

// brokenLedger fails every call once broken is set.
type brokenLedger struct {
	storage.DedupLedger
	broken atomic.Bool
}

var errConnRefused = errors.New("dial tcp 127.0.0.1:6379: connect: connection refused")

func (l *brokenLedger) IsSeen(ctx context.Context, wallet, txHash string) (bool, error) {
	if l.broken.Load() {
		return false, storage.Unavailable("is seen", errConnRefused)
	}
	return l.DedupLedger.IsSeen(ctx, wallet, txHash)
}

func (l *brokenLedger) RecordWhaleTouch(ctx context.Context, token, wallet string, at time.Time) error {
	if l.broken.Load() {
		return storage.Unavailable("record whale touch", errConnRefused)
	}
	return l.DedupLedger.RecordWhaleTouch(ctx, token, wallet, at)
}
