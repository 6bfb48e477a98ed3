package watchlist

// Watchlist refresh: ranking sources -> normalized, deduplicated top-N -> store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"smartmoney-bot/internal/domain"
	logging "smartmoney-bot/internal/infra/log"
	"smartmoney-bot/internal/observability"
	"smartmoney-bot/internal/storage"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// ErrAllSourcesFailed is returned when every ranking source errored.
var ErrAllSourcesFailed = errors.New("all ranking sources failed")

type Refresher struct {
	store   storage.WatchlistStore
	sources []RankingSource
	limit   int
	metrics *observability.Metrics
	now     func() time.Time
}

func NewRefresher(store storage.WatchlistStore, limit int, metrics *observability.Metrics, sources ...RankingSource) *Refresher {
	if limit < 1 {
		limit = 30
	}
	return &Refresher{store: store, sources: sources, limit: limit, metrics: metrics, now: time.Now}
}

// Refresh replaces the stored watchlist with the union of every source's
// wallets. An empty union keeps the stored watchlist, unless every source
// answered and one of them is authoritative, in which case the stored
// watchlist is cleared.
func (r *Refresher) Refresh(ctx context.Context) (int, error) {
	res, err := r.collect(ctx)
	if err != nil {
		r.metrics.RecordRefresh("error", 0)
		return 0, err
	}

	wallets, dropped := Normalize(res.wallets, r.limit)
	if dropped > 0 {
		logging.LogWarn("Dropped invalid watchlist entries", zap.Strings("sources", res.sources), zap.Int("dropped", dropped))
	}
	if len(wallets) == 0 && !res.authoritative {
		logging.LogWarn("Watchlist refresh found no wallets, keeping stored watchlist")
		r.metrics.RecordRefresh("empty", 0)
		return 0, nil
	}

	stamp := r.now().UTC()
	for i := range wallets {
		wallets[i].UpdatedAt = stamp
	}
	if err := r.store.ReplaceWallets(ctx, wallets); err != nil {
		r.metrics.RecordRefresh("error", 0)
		return 0, fmt.Errorf("replace watchlist: %w", err)
	}

	if len(wallets) == 0 {
		r.metrics.RecordRefresh("empty", 0)
		logging.LogWarn("Watchlist cleared, seed sources are empty", zap.Strings("sources", res.sources))
		return 0, nil
	}
	r.metrics.RecordRefresh("ok", len(wallets))
	logging.LogSuccess("Watchlist refreshed", zap.Strings("sources", res.sources), zap.Int("wallets", len(wallets)))
	return len(wallets), nil
}

// Preview returns what Refresh would store, without writing.
func (r *Refresher) Preview(ctx context.Context) ([]domain.WatchedWallet, error) {
	res, err := r.collect(ctx)
	if err != nil {
		return nil, err
	}
	wallets, _ := Normalize(res.wallets, r.limit)
	stamp := r.now().UTC()
	for i := range wallets {
		wallets[i].UpdatedAt = stamp
	}
	return wallets, nil
}

type collected struct {
	wallets []domain.WatchedWallet
	sources []string // sources that contributed wallets
	// authoritative is set when no source failed and at least one answering
	// source is authoritative for its (possibly empty) list
	authoritative bool
}

func (r *Refresher) collect(ctx context.Context) (collected, error) {
	var (
		res  collected
		errs []error
		auth bool
	)
	for _, src := range r.sources {
		wallets, err := src.TopWallets(ctx, r.limit*2)
		if err != nil {
			logging.LogWarn("Ranking source failed", zap.String("source", src.Name()), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", src.Name(), err))
			continue
		}
		if a, ok := src.(Authoritative); ok && a.Authoritative() {
			auth = true
		}
		if len(wallets) > 0 {
			res.wallets = append(res.wallets, wallets...)
			res.sources = append(res.sources, src.Name())
		}
	}
	if len(r.sources) > 0 && len(errs) == len(r.sources) {
		return collected{}, fmt.Errorf("%w: %w", ErrAllSourcesFailed, errors.Join(errs...))
	}
	res.authoritative = auth && len(errs) == 0
	return res, nil
}

// Normalize lowercases valid EVM addresses, drops invalid ones, keeps the
// higher ROI on duplicates, orders by ROI descending and truncates to limit.
// It returns the number of invalid entries dropped.
func Normalize(wallets []domain.WatchedWallet, limit int) ([]domain.WatchedWallet, int) {
	byAddr := make(map[string]domain.WatchedWallet, len(wallets))
	dropped := 0
	for _, w := range wallets {
		addr, ok := NormalizeAddress(w.Address)
		if !ok {
			dropped++
			continue
		}
		w.Address = addr
		if w.ChainID == 0 {
			w.ChainID = domain.DefaultChainID
		}
		if prev, exists := byAddr[addr]; exists && prev.RoiPct30d >= w.RoiPct30d {
			continue
		}
		byAddr[addr] = w
	}

	out := make([]domain.WatchedWallet, 0, len(byAddr))
	for _, w := range byAddr {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RoiPct30d != out[j].RoiPct30d {
			return out[i].RoiPct30d > out[j].RoiPct30d
		}
		return out[i].Address < out[j].Address
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, dropped
}

// NormalizeAddress validates a hex address and returns it lowercased.
func NormalizeAddress(addr string) (string, bool) {
	addr = strings.TrimSpace(addr)
	if !common.IsHexAddress(addr) {
		return "", false
	}
	return strings.ToLower(common.HexToAddress(addr).Hex()), true
}
