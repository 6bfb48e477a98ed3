package domain

// Data contracts shared by the pipeline, the storage backends and the API clients

import "time"

const (
	// UnknownAgeDays marks a token whose listing time is not known.
	// Scoring treats it as very old; it must never reach a WhaleSignal.
	UnknownAgeDays = 1_000_000

	// DefaultAgeDays replaces UnknownAgeDays in outward-facing signals.
	DefaultAgeDays = 365

	ActionBuy = "buy"
)

// WatchedWallet is a tracked "smart money" wallet with its ranking metadata.
type WatchedWallet struct {
	Address   string    `json:"address"`
	RoiPct30d float64   `json:"roi30"`
	WinRate   float64   `json:"winrate"`
	ChainID   int64     `json:"chain_id"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EventParam is one decoded log-event parameter.
type EventParam struct {
	Name  string
	Value string
}

// TransferEvent is a decoded log event embedded in an activity record.
type TransferEvent struct {
	Name          string
	Params        []EventParam
	SenderAddress string // contract that emitted the event
	SenderSymbol  string
	ValueQuoteUSD float64 // quote of the enclosing transaction
}

// Param returns the value of the named parameter.
func (e TransferEvent) Param(name string) (string, bool) {
	for _, p := range e.Params {
		if p.Name == name {
			return p.Value, true
		}
	}
	return "", false
}

// ActivityRecord is one transaction from a wallet's recent activity feed.
type ActivityRecord struct {
	TxHash        string
	ChainID       int64
	BlockSignedAt time.Time
	ValueQuoteUSD float64
	Events        []TransferEvent
}

// CandidateBuy is a probable token purchase extracted from one ActivityRecord.
// It lives only inside a single pipeline pass.
type CandidateBuy struct {
	TokenAddress    string
	TokenSymbol     string
	ApproxVolumeUSD float64
	SourceTxHash    string
	EventIndex      int
	Wallet          string
	ChainID         int64
}

// TokenMarketSnapshot is the best-known market state of a token.
type TokenMarketSnapshot struct {
	LiquidityUSD float64
	PriceUSD     float64
	AgeDays      int
	PairURL      string
	ChainSlug    string
}

// AgeKnown reports whether the listing age was available upstream.
func (s TokenMarketSnapshot) AgeKnown() bool {
	return s.AgeDays < UnknownAgeDays
}

// EmptySnapshot is returned when no trading pair exists for a token.
func EmptySnapshot() TokenMarketSnapshot {
	return TokenMarketSnapshot{AgeDays: UnknownAgeDays}
}

// WhaleSignal is a fully built, scored and filtered buy notification.
type WhaleSignal struct {
	Wallet          string    `json:"wallet"`
	Action          string    `json:"action"`
	Token           string    `json:"token"`
	TokenSymbol     string    `json:"token_symbol"`
	VolumeUSD       float64   `json:"volume_usd"`
	Roi             float64   `json:"roi"`
	WinRate         float64   `json:"winrate"`
	LiquidityUSD    float64   `json:"liquidity_usd"`
	PriceUSD        float64   `json:"price_usd"`
	CoWhaleCount24h int       `json:"co_whales_24h"`
	TokenAgeDays    int       `json:"token_age_days"`
	AgeKnown        bool      `json:"age_known"`
	TxHash          string    `json:"tx_hash"`
	ChainID         int64     `json:"chain_id"`
	ReferenceLink   string    `json:"reference_link"`
	PairURL         string    `json:"pair_url"`
	Score           int       `json:"score"`
	Stars           int       `json:"stars"`
	DetectedAt      time.Time `json:"detected_at"`
}
