package memory

import (
	"context"
	"sort"
	"sync"

	"smartmoney-bot/internal/domain"
	"smartmoney-bot/internal/storage"
)

// WatchlistStore is an in-memory implementation of storage.WatchlistStore.
type WatchlistStore struct {
	mu      sync.RWMutex
	wallets map[string]domain.WatchedWallet // keyed by address
}

// NewWatchlistStore creates an empty in-memory watchlist.
func NewWatchlistStore() *WatchlistStore {
	return &WatchlistStore{wallets: make(map[string]domain.WatchedWallet)}
}

var _ storage.WatchlistStore = (*WatchlistStore)(nil)

// ListWallets returns all wallets ordered by address.
func (s *WatchlistStore) ListWallets(_ context.Context) ([]domain.WatchedWallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.WatchedWallet, 0, len(s.wallets))
	for _, w := range s.wallets {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out, nil
}

// GetWallet returns one wallet. Returns ErrNotFound if it is not tracked.
func (s *WatchlistStore) GetWallet(_ context.Context, address string) (*domain.WatchedWallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	w, ok := s.wallets[address]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &w, nil
}

// ReplaceWallets swaps the whole watchlist.
func (s *WatchlistStore) ReplaceWallets(_ context.Context, wallets []domain.WatchedWallet) error {
	next := make(map[string]domain.WatchedWallet, len(wallets))
	for _, w := range wallets {
		if w.Address == "" {
			return storage.ErrInvalidInput
		}
		next[w.Address] = w
	}

	s.mu.Lock()
	s.wallets = next
	s.mu.Unlock()
	return nil
}
