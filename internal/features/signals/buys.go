package signals

import (
	"math"
	"strings"

	"smartmoney-bot/internal/domain"
)

const transferEvent = "Transfer"

// VolumeEstimator approximates the USD size of one buy inside a transaction.
// buyCount is the number of buys detected in the same transaction.
type VolumeEstimator interface {
	EstimateUSD(rec domain.ActivityRecord, ev domain.TransferEvent, buyCount int) float64
}

// ThirdOfQuoteEstimator is a rough heuristic, not accounting: one third of the
// transaction's quoted USD value, split evenly across its buys.
type ThirdOfQuoteEstimator struct{}

func (ThirdOfQuoteEstimator) EstimateUSD(rec domain.ActivityRecord, ev domain.TransferEvent, buyCount int) float64 {
	quote := rec.ValueQuoteUSD
	if quote == 0 {
		quote = ev.ValueQuoteUSD
	}
	if buyCount < 1 || quote <= 0 || math.IsNaN(quote) || math.IsInf(quote, 0) {
		return 0
	}
	return quote / 3 / float64(buyCount)
}

// DetectBuys extracts the probable token purchases of wallet from one record:
// decoded Transfer events whose recipient is the wallet. The token is the
// event's emitting contract.
func DetectBuys(rec domain.ActivityRecord, wallet string, est VolumeEstimator) []domain.CandidateBuy {
	if est == nil {
		est = ThirdOfQuoteEstimator{}
	}

	var idx []int
	for i, ev := range rec.Events {
		if ev.Name != transferEvent || ev.SenderAddress == "" {
			continue
		}
		to, ok := ev.Param("to")
		if !ok || !strings.EqualFold(strings.TrimSpace(to), wallet) {
			continue
		}
		idx = append(idx, i)
	}
	if len(idx) == 0 {
		return nil
	}

	buys := make([]domain.CandidateBuy, 0, len(idx))
	for _, i := range idx {
		ev := rec.Events[i]
		buys = append(buys, domain.CandidateBuy{
			TokenAddress:    strings.ToLower(ev.SenderAddress),
			TokenSymbol:     ev.SenderSymbol,
			ApproxVolumeUSD: est.EstimateUSD(rec, ev, len(idx)),
			SourceTxHash:    rec.TxHash,
			EventIndex:      i,
			Wallet:          wallet,
			ChainID:         rec.ChainID,
		})
	}
	return buys
}
