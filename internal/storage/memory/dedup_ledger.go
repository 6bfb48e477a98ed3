package memory

import (
	"context"
	"sync"
	"time"

	"smartmoney-bot/internal/storage"
)

// DedupLedger is an in-memory implementation of storage.DedupLedger.
// Expiry follows the same rules as the persistent backends: every seen entry
// lives SeenRetention from its own insert, whale touches are pruned to
// WhaleRetention on every write.
type DedupLedger struct {
	mu     sync.Mutex
	clock  storage.Clock
	seen   map[string]map[string]time.Time // wallet -> tx -> inserted at
	whales map[string]map[string]time.Time // token -> wallet -> touched at
}

// NewDedupLedger creates an empty ledger. A nil clock means time.Now.
func NewDedupLedger(clock storage.Clock) *DedupLedger {
	return &DedupLedger{
		clock:  clock,
		seen:   make(map[string]map[string]time.Time),
		whales: make(map[string]map[string]time.Time),
	}
}

var _ storage.DedupLedger = (*DedupLedger)(nil)

func (l *DedupLedger) IsSeen(_ context.Context, wallet, txHash string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	at, ok := l.seen[wallet][txHash]
	if !ok {
		return false, nil
	}
	return l.clock.Now().Sub(at) < storage.SeenRetention, nil
}

func (l *DedupLedger) MarkSeen(_ context.Context, wallet, txHash string) error {
	if wallet == "" || txHash == "" {
		return storage.ErrInvalidInput
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	txs, ok := l.seen[wallet]
	if !ok {
		txs = make(map[string]time.Time)
		l.seen[wallet] = txs
	}
	for tx, at := range txs {
		if now.Sub(at) >= storage.SeenRetention {
			delete(txs, tx)
		}
	}
	txs[txHash] = now
	return nil
}

func (l *DedupLedger) RecordWhaleTouch(_ context.Context, token, wallet string, at time.Time) error {
	if token == "" || wallet == "" {
		return storage.ErrInvalidInput
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	touches, ok := l.whales[token]
	if !ok {
		touches = make(map[string]time.Time)
		l.whales[token] = touches
	}
	touches[wallet] = at

	cutoff := l.clock.Now().Add(-storage.WhaleRetention)
	for w, t := range touches {
		if t.Before(cutoff) {
			delete(touches, w)
		}
	}
	return nil
}

func (l *DedupLedger) CountRecentWhales(_ context.Context, token string, window time.Duration) (int, error) {
	window = storage.WhaleWindow(window)

	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.clock.Now().Add(-window)
	n := 0
	for _, t := range l.whales[token] {
		if t.After(cutoff) {
			n++
		}
	}
	return n, nil
}
