package watchlist

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"smartmoney-bot/internal/domain"
	"smartmoney-bot/internal/infra/fs"
)

// RankingSource provides candidate smart-money wallets, best first.
type RankingSource interface {
	Name() string
	TopWallets(ctx context.Context, limit int) ([]domain.WatchedWallet, error)
}

// Authoritative is implemented by sources whose empty answer means "no
// wallets" rather than "no data".
type Authoritative interface {
	Authoritative() bool
}

// StaticSource serves a fixed list, e.g. the configured seed wallets.
type StaticSource struct {
	wallets []domain.WatchedWallet
}

func NewStaticSource(wallets []domain.WatchedWallet) *StaticSource {
	return &StaticSource{wallets: wallets}
}

// NewStaticSourceFromSeeds parses "address:chainId:roi:winrate" entries.
func NewStaticSourceFromSeeds(seeds []string) (*StaticSource, error) {
	wallets := make([]domain.WatchedWallet, 0, len(seeds))
	for _, s := range seeds {
		w, err := ParseSeed(s)
		if err != nil {
			return nil, err
		}
		wallets = append(wallets, w)
	}
	return NewStaticSource(wallets), nil
}

func (s *StaticSource) Name() string { return "static" }

// Authoritative reports whether a list was configured.
func (s *StaticSource) Authoritative() bool { return len(s.wallets) > 0 }

func (s *StaticSource) TopWallets(_ context.Context, limit int) ([]domain.WatchedWallet, error) {
	out := append([]domain.WatchedWallet(nil), s.wallets...)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// FileSource reads the JSON seed file maintained by /watchadd and /watchdel.
type FileSource struct {
	path string
}

func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

func (s *FileSource) Name() string { return "file" }

// Authoritative reports whether the seed file exists. A file emptied by
// /watchdel clears the watchlist; a missing file does not.
func (s *FileSource) Authoritative() bool { return fs.SeedFileExists(s.path) }

func (s *FileSource) TopWallets(_ context.Context, limit int) ([]domain.WatchedWallet, error) {
	wallets, err := fs.LoadSeedWallets(s.path)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(wallets) > limit {
		wallets = wallets[:limit]
	}
	return wallets, nil
}

// ParseSeed parses "address[:chainId[:roi[:winrate]]]". Missing parts default
// to chain 1 and zero metrics.
func ParseSeed(s string) (domain.WatchedWallet, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	w := domain.WatchedWallet{Address: strings.TrimSpace(parts[0]), ChainID: domain.DefaultChainID}
	if w.Address == "" {
		return w, fmt.Errorf("seed %q: empty address", s)
	}
	if len(parts) > 4 {
		return w, fmt.Errorf("seed %q: expected address:chainId:roi:winrate", s)
	}

	if len(parts) > 1 && parts[1] != "" {
		id, err := strconv.ParseInt(strings.TrimSpace(parts[1]), 10, 64)
		if err != nil || id <= 0 {
			return w, fmt.Errorf("seed %q: invalid chain id %q", s, parts[1])
		}
		w.ChainID = id
	}
	if len(parts) > 2 && parts[2] != "" {
		roi, err := strconv.ParseFloat(strings.TrimSpace(parts[2]), 64)
		if err != nil {
			return w, fmt.Errorf("seed %q: invalid roi %q", s, parts[2])
		}
		w.RoiPct30d = roi
	}
	if len(parts) > 3 && parts[3] != "" {
		wr, err := strconv.ParseFloat(strings.TrimSpace(parts[3]), 64)
		if err != nil {
			return w, fmt.Errorf("seed %q: invalid winrate %q", s, parts[3])
		}
		w.WinRate = wr
	}
	return w, nil
}
