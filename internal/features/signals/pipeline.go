package signals

// One monitoring pass: watchlist -> recent activity -> buy candidates ->
// market enrichment -> co-whale window -> score -> notify

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"smartmoney-bot/internal/domain"
	"smartmoney-bot/internal/features/scoring"
	logging "smartmoney-bot/internal/infra/log"
	"smartmoney-bot/internal/observability"
	"smartmoney-bot/internal/storage"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrPassAborted is returned when a pass stops because the store failed.
var ErrPassAborted = errors.New("pass aborted")

// errMarketData marks a candidate whose enrichment did not complete.
var errMarketData = errors.New("market data unavailable")

type Config struct {
	MinTradeUSD       float64
	MinLiquidityUSD   float64
	MinStars          int
	PageSize          int
	Lookback          int
	WhaleWindow       time.Duration
	Concurrency       int
	MemoizeMarketData bool
}

// DefaultConfig mirrors the production defaults.
func DefaultConfig() Config {
	return Config{
		MinTradeUSD:       1000,
		MinLiquidityUSD:   500000,
		MinStars:          3,
		PageSize:          20,
		Lookback:          5,
		WhaleWindow:       storage.DefaultWhaleWindow,
		Concurrency:       4,
		MemoizeMarketData: true,
	}
}

// Deps are the collaborators of a Pipeline. Archive, Refresher, Estimator,
// Blacklist, Metrics and Clock are optional.
type Deps struct {
	Watchlist storage.WatchlistStore
	Ledger    storage.DedupLedger
	Archive   storage.SignalArchive
	Activity  ActivitySource
	Market    MarketSource
	Notifier  Notifier
	Refresher WatchlistRefresher
	Estimator VolumeEstimator
	// Blacklist lists token contracts whose buys are never signalled.
	Blacklist func() ([]string, error)
	Metrics   *observability.Metrics
	Clock     storage.Clock
}

type Pipeline struct {
	cfg Config
	Deps
}

func NewPipeline(cfg Config, deps Deps) (*Pipeline, error) {
	switch {
	case deps.Watchlist == nil:
		return nil, errors.New("signals: watchlist store is required")
	case deps.Ledger == nil:
		return nil, errors.New("signals: dedup ledger is required")
	case deps.Activity == nil:
		return nil, errors.New("signals: activity source is required")
	case deps.Market == nil:
		return nil, errors.New("signals: market source is required")
	case deps.Notifier == nil:
		return nil, errors.New("signals: notifier is required")
	}

	def := DefaultConfig()
	if cfg.MinStars < 1 {
		cfg.MinStars = def.MinStars
	}
	if cfg.Lookback < 1 {
		cfg.Lookback = def.Lookback
	}
	if cfg.PageSize < cfg.Lookback {
		cfg.PageSize = max(def.PageSize, cfg.Lookback)
	}
	if cfg.WhaleWindow <= 0 {
		cfg.WhaleWindow = def.WhaleWindow
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if deps.Estimator == nil {
		deps.Estimator = ThirdOfQuoteEstimator{}
	}
	return &Pipeline{cfg: cfg, Deps: deps}, nil
}

// Run executes one pass. Upstream failures are isolated to the wallet or
// candidate they hit; a store failure aborts the pass with ErrPassAborted.
// The report is returned in every case.
func (p *Pipeline) Run(ctx context.Context) (*PassReport, error) {
	start := p.Clock.Now()
	report := &PassReport{
		PassID:     logging.GenerateRequestID(),
		StartedAt:  start,
		Rejections: make(map[string]int),
	}
	t := &tally{report: report}
	logger := logging.Logger().With(zap.String("component", "signals"), zap.String("pass_id", report.PassID))

	err := p.run(ctx, t, logger)

	report.Duration = p.Clock.Now().Sub(start)
	status := "ok"
	switch {
	case err != nil && ctx.Err() != nil:
		status = "canceled"
	case err != nil:
		status = "aborted"
	}
	p.Metrics.RecordPass(status, report.Duration)

	if err != nil {
		logger.Error("Monitor pass failed", zap.String("status", status), zap.Error(err))
		return report, err
	}
	logger.Info("Monitor pass finished",
		zap.Int("wallets", report.Wallets),
		zap.Int("records", report.RecordsScanned),
		zap.Int("candidates", report.Candidates),
		zap.Int("signals", len(report.Signals)),
		zap.Int("wallet_errors", report.WalletErrors),
		zap.Duration("duration", report.Duration))
	return report, nil
}

func (p *Pipeline) run(ctx context.Context, t *tally, logger *zap.Logger) error {
	wallets, err := p.loadWatchlist(ctx, t, logger)
	if err != nil {
		return err
	}
	t.report.Wallets = len(wallets)
	if len(wallets) == 0 {
		logger.Info("Watchlist is empty, nothing to scan")
		return nil
	}
	t.blacklist = p.loadBlacklist(logger)

	var market MarketSource = p.Market
	if p.cfg.MemoizeMarketData {
		market = newMarketMemo(p.Market)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Concurrency)
	for _, w := range wallets {
		g.Go(func() error {
			return p.scanWallet(gctx, w, market, t, logger)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// loadWatchlist refreshes once when the stored watchlist is empty.
func (p *Pipeline) loadWatchlist(ctx context.Context, t *tally, logger *zap.Logger) ([]domain.WatchedWallet, error) {
	wallets, err := p.Watchlist.ListWallets(ctx)
	if err != nil {
		return nil, abort("list watchlist", err)
	}
	if len(wallets) > 0 || p.Refresher == nil {
		return wallets, nil
	}

	t.report.Refreshed = true
	n, err := p.Refresher.Refresh(ctx)
	if err != nil {
		if storage.IsUnavailable(err) {
			return nil, abort("refresh watchlist", err)
		}
		logger.Warn("Watchlist refresh failed", zap.Error(err))
	} else {
		logger.Info("Watchlist was empty, refreshed", zap.Int("wallets", n))
	}

	wallets, err = p.Watchlist.ListWallets(ctx)
	if err != nil {
		return nil, abort("list watchlist", err)
	}
	return wallets, nil
}

// loadBlacklist reads the token blacklist once per pass. A read failure is
// logged and the pass continues without it.
func (p *Pipeline) loadBlacklist(logger *zap.Logger) map[string]struct{} {
	if p.Blacklist == nil {
		return nil
	}
	tokens, err := p.Blacklist()
	if err != nil {
		logger.Warn("Failed to load token blacklist", zap.Error(err))
		return nil
	}
	set := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		set[strings.ToLower(tok)] = struct{}{}
	}
	return set
}

func (p *Pipeline) scanWallet(ctx context.Context, w domain.WatchedWallet, market MarketSource, t *tally, logger *zap.Logger) error {
	chainID := w.ChainID
	if chainID == 0 {
		chainID = domain.DefaultChainID
	}
	p.Metrics.RecordWalletScanned()

	records, err := p.Activity.RecentActivity(ctx, w.Address, chainID, p.cfg.PageSize)
	if err != nil {
		t.update(func(r *PassReport) { r.WalletErrors++ })
		logger.Warn("Failed to fetch wallet activity", zap.String("wallet", w.Address), zap.Error(err))
		return nil
	}
	if len(records) > p.cfg.Lookback {
		records = records[:p.cfg.Lookback]
	}

	for _, rec := range records {
		if rec.ChainID == 0 {
			rec.ChainID = chainID
		}
		if err := p.processRecord(ctx, w, rec, market, t, logger); err != nil {
			return err
		}
	}
	return nil
}

// processRecord evaluates every candidate of one transaction, then marks it
// seen, then notifies. When some candidate's enrichment failed the transaction
// stays unmarked and only the completed candidates are marked, under their
// own keys.
func (p *Pipeline) processRecord(ctx context.Context, w domain.WatchedWallet, rec domain.ActivityRecord, market MarketSource, t *tally, logger *zap.Logger) error {
	t.update(func(r *PassReport) { r.RecordsScanned++ })
	p.Metrics.RecordRecordScanned()

	if rec.TxHash == "" {
		t.update(func(r *PassReport) { r.SkippedNoHash++ })
		return nil
	}
	seen, err := p.Ledger.IsSeen(ctx, w.Address, rec.TxHash)
	if err != nil {
		return abort("check seen", err)
	}
	if seen {
		t.update(func(r *PassReport) { r.SkippedSeen++ })
		return nil
	}

	var (
		emitted   []domain.WhaleSignal
		completed []string
		failed    bool
	)
	for _, c := range DetectBuys(rec, w.Address, p.Estimator) {
		key := candidateKey(c)
		done, err := p.Ledger.IsSeen(ctx, w.Address, key)
		if err != nil {
			return abort("check seen", err)
		}
		if done {
			continue
		}

		sig, err := p.evaluate(ctx, w, c, market, t)
		if errors.Is(err, errMarketData) {
			failed = true
			logger.Warn("Candidate enrichment failed, will retry next pass",
				zap.String("wallet", w.Address), zap.String("tx", rec.TxHash),
				zap.String("token", c.TokenAddress), zap.Error(err))
			continue
		}
		if err != nil {
			return abort("evaluate candidate", err)
		}
		completed = append(completed, key)
		if sig != nil {
			emitted = append(emitted, *sig)
		}
	}

	if !failed {
		if err := p.Ledger.MarkSeen(ctx, w.Address, rec.TxHash); err != nil {
			return abort("mark seen", err)
		}
	} else {
		for _, key := range completed {
			if err := p.Ledger.MarkSeen(ctx, w.Address, key); err != nil {
				return abort("mark seen", err)
			}
		}
	}

	for _, sig := range emitted {
		p.emit(ctx, sig, t, logger)
	}
	return nil
}

// evaluate runs the gates for one candidate. It returns a nil signal for a
// rejected candidate and an errMarketData error when enrichment failed.
func (p *Pipeline) evaluate(ctx context.Context, w domain.WatchedWallet, c domain.CandidateBuy, market MarketSource, t *tally) (*domain.WhaleSignal, error) {
	t.update(func(r *PassReport) { r.Candidates++ })
	p.Metrics.RecordCandidate()

	if c.ApproxVolumeUSD < p.cfg.MinTradeUSD {
		p.reject(t, ReasonBelowMinTrade)
		return nil, nil
	}
	if t.blacklisted(c.TokenAddress) {
		p.reject(t, ReasonBlacklistedToken)
		return nil, nil
	}

	snap, err := market.TokenSnapshot(ctx, c.TokenAddress)
	if err != nil {
		p.reject(t, ReasonMarketDataError)
		return nil, fmt.Errorf("%w: %s: %w", errMarketData, c.TokenAddress, err)
	}
	if snap.LiquidityUSD < p.cfg.MinLiquidityUSD {
		p.reject(t, ReasonBelowMinLiquidity)
		return nil, nil
	}

	now := p.Clock.Now()
	if err := p.Ledger.RecordWhaleTouch(ctx, c.TokenAddress, w.Address, now); err != nil {
		return nil, err
	}
	whales, err := p.Ledger.CountRecentWhales(ctx, c.TokenAddress, p.cfg.WhaleWindow)
	if err != nil {
		return nil, err
	}

	res := scoring.Evaluate(scoring.Metrics{
		RoiPct:       w.RoiPct30d,
		WinRate:      w.WinRate,
		VolumeUSD:    c.ApproxVolumeUSD,
		LiquidityUSD: snap.LiquidityUSD,
		CoWhaleCount: whales,
		TokenAgeDays: snap.AgeDays,
	})
	if res.Stars < p.cfg.MinStars {
		p.reject(t, ReasonBelowMinStars)
		return nil, nil
	}

	sig := buildSignal(w, c, snap, whales, now)
	sig.Score, sig.Stars = res.Total, res.Stars
	return &sig, nil
}

func (p *Pipeline) reject(t *tally, reason string) {
	t.reject(reason)
	p.Metrics.RecordRejection(reason)
}

func (p *Pipeline) emit(ctx context.Context, sig domain.WhaleSignal, t *tally, logger *zap.Logger) {
	t.update(func(r *PassReport) { r.Signals = append(r.Signals, sig) })
	p.Metrics.RecordSignal()

	if err := p.Notifier.Notify(ctx, sig); err != nil {
		t.update(func(r *PassReport) { r.NotifyErrors++ })
		p.Metrics.RecordNotifyError()
		logger.Error("Failed to deliver signal", zap.String("tx", sig.TxHash), zap.String("token", sig.Token), zap.Error(err))
	} else {
		logger.Info("Whale signal sent",
			zap.String("wallet", sig.Wallet), zap.String("token", sig.Token),
			zap.String("symbol", sig.TokenSymbol), zap.Int("stars", sig.Stars), zap.Int("score", sig.Score))
	}

	if p.Archive == nil {
		return
	}
	if err := p.Archive.Append(ctx, sig); err != nil {
		t.update(func(r *PassReport) { r.ArchiveErrors++ })
		logger.Warn("Failed to archive signal", zap.String("tx", sig.TxHash), zap.Error(err))
	}
}

// buildSignal assembles the outward-facing signal. An unknown listing age is
// replaced by domain.DefaultAgeDays.
func buildSignal(w domain.WatchedWallet, c domain.CandidateBuy, snap domain.TokenMarketSnapshot, whales int, now time.Time) domain.WhaleSignal {
	age, known := snap.AgeDays, snap.AgeKnown()
	if !known {
		age = domain.DefaultAgeDays
	}

	link := snap.PairURL
	if link == "" {
		link = domain.ExplorerTxURL(c.ChainID, c.SourceTxHash)
	}

	return domain.WhaleSignal{
		Wallet:          w.Address,
		Action:          domain.ActionBuy,
		Token:           c.TokenAddress,
		TokenSymbol:     c.TokenSymbol,
		VolumeUSD:       c.ApproxVolumeUSD,
		Roi:             w.RoiPct30d,
		WinRate:         w.WinRate,
		LiquidityUSD:    snap.LiquidityUSD,
		PriceUSD:        snap.PriceUSD,
		CoWhaleCount24h: whales,
		TokenAgeDays:    age,
		AgeKnown:        known,
		TxHash:          c.SourceTxHash,
		ChainID:         c.ChainID,
		ReferenceLink:   link,
		PairURL:         snap.PairURL,
		DetectedAt:      now,
	}
}

func candidateKey(c domain.CandidateBuy) string {
	return c.SourceTxHash + "#" + strconv.Itoa(c.EventIndex)
}

func abort(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrPassAborted, op, err)
}
