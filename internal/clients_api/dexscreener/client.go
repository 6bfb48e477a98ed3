package dexscreener

// DexScreener market data: best-liquidity pair of a token, its price, age and URL

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"strings"
	"time"

	"smartmoney-bot/internal/clients_api/httpjson"
	"smartmoney-bot/internal/domain"
	logging "smartmoney-bot/internal/infra/log"
	"smartmoney-bot/internal/infra/retry"
	"smartmoney-bot/internal/observability"

	"go.uber.org/zap"
)

const (
	DefaultBaseURL = "https://api.dexscreener.com"
	sourceName     = "dexscreener"
)

// Config configures the client.
type Config struct {
	BaseURL         string
	Timeout         time.Duration
	RatePerSecond   float64
	MaxResponseSize int64
	Retry           retry.Options
}

type Client struct {
	http    *httpjson.Client
	metrics *observability.Metrics
	now     func() time.Time
}

func NewClient(cfg Config, metrics *observability.Metrics) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	return &Client{
		http: httpjson.New(httpjson.Options{
			Name:            sourceName,
			BaseURL:         cfg.BaseURL,
			Timeout:         cfg.Timeout,
			RatePerSecond:   cfg.RatePerSecond,
			Burst:           5,
			MaxResponseSize: cfg.MaxResponseSize,
			Retry:           cfg.Retry,
		}),
		metrics: metrics,
		now:     time.Now,
	}
}

type tokensResponse struct {
	Pairs []json.RawMessage `json:"pairs"`
}

type pair struct {
	ChainID   string `json:"chainId"`
	URL       string `json:"url"`
	PriceUSD  string `json:"priceUsd"`
	Liquidity *struct {
		USD *float64 `json:"usd"`
	} `json:"liquidity"`
	PairCreatedAt *int64 `json:"pairCreatedAt"`
	CreatedAt     *int64 `json:"createdAt"`
}

// TokenSnapshot returns the market state of the token's most liquid pair.
// A token without pairs yields domain.EmptySnapshot and no error.
func (c *Client) TokenSnapshot(ctx context.Context, token string) (domain.TokenMarketSnapshot, error) {
	var resp tokensResponse
	if err := c.http.GetJSON(ctx, "/latest/dex/tokens/"+url.PathEscape(token), nil, &resp); err != nil {
		c.metrics.RecordUpstreamError(sourceName)
		return domain.TokenMarketSnapshot{}, err
	}

	var best *pair
	bestLiq := -1.0
	for i, raw := range resp.Pairs {
		var p pair
		if err := json.Unmarshal(raw, &p); err != nil {
			c.surprise(token, "pair", zap.Int("index", i), zap.Error(err))
			continue
		}
		liq := 0.0
		if p.Liquidity != nil && p.Liquidity.USD != nil {
			liq = *p.Liquidity.USD
		}
		if liq > bestLiq {
			best, bestLiq = &p, liq
		}
	}
	if best == nil {
		return domain.EmptySnapshot(), nil
	}

	snap := domain.TokenMarketSnapshot{
		LiquidityUSD: bestLiq,
		AgeDays:      c.ageDays(best),
		PairURL:      best.URL,
		ChainSlug:    best.ChainID,
	}
	if best.Liquidity == nil || best.Liquidity.USD == nil {
		c.surprise(token, "liquidity.usd")
	}
	if best.PriceUSD != "" {
		price, err := strconv.ParseFloat(strings.TrimSpace(best.PriceUSD), 64)
		if err != nil {
			c.surprise(token, "priceUsd", zap.String("value", best.PriceUSD))
		} else {
			snap.PriceUSD = price
		}
	}
	return snap, nil
}

func (c *Client) ageDays(p *pair) int {
	created := p.PairCreatedAt
	if created == nil || *created <= 0 {
		created = p.CreatedAt
	}
	if created == nil || *created <= 0 {
		return domain.UnknownAgeDays
	}
	age := c.now().Sub(time.UnixMilli(*created))
	if age < 0 {
		return 0
	}
	return int(age / (24 * time.Hour))
}

func (c *Client) surprise(token, field string, fields ...zap.Field) {
	c.metrics.RecordDataSurprise(sourceName, field)
	logging.LogWarn("Unexpected DexScreener payload, treating as empty",
		append([]zap.Field{zap.String("token", token), zap.String("field", field)}, fields...)...)
}
