package signals

import (
	"context"
	"sync"

	"smartmoney-bot/internal/domain"

	"golang.org/x/sync/singleflight"
)

// marketMemo caches snapshots by token for the lifetime of one pass.
// Concurrent lookups of the same token share one upstream call; failures are
// not cached.
type marketMemo struct {
	src   MarketSource
	group singleflight.Group

	mu    sync.Mutex
	cache map[string]domain.TokenMarketSnapshot
}

func newMarketMemo(src MarketSource) *marketMemo {
	return &marketMemo{src: src, cache: make(map[string]domain.TokenMarketSnapshot)}
}

func (m *marketMemo) TokenSnapshot(ctx context.Context, token string) (domain.TokenMarketSnapshot, error) {
	m.mu.Lock()
	snap, ok := m.cache[token]
	m.mu.Unlock()
	if ok {
		return snap, nil
	}

	v, err, _ := m.group.Do(token, func() (interface{}, error) {
		m.mu.Lock()
		cached, ok := m.cache[token]
		m.mu.Unlock()
		if ok {
			return cached, nil
		}

		s, err := m.src.TokenSnapshot(ctx, token)
		if err != nil {
			return nil, err
		}
		m.mu.Lock()
		m.cache[token] = s
		m.mu.Unlock()
		return s, nil
	})
	if err != nil {
		return domain.TokenMarketSnapshot{}, err
	}
	return v.(domain.TokenMarketSnapshot), nil
}
