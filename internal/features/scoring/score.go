package scoring

// Weighted rubric that turns six raw metrics of a whale buy into a score and 1-5 stars
// Each axis is bucketed independently, then the buckets are summed

import "math"

// Metrics are the raw inputs of the rubric.
type Metrics struct {
	RoiPct       float64
	WinRate      float64
	VolumeUSD    float64
	LiquidityUSD float64
	CoWhaleCount int
	TokenAgeDays int
}

// Breakdown holds the per-axis bucket scores.
type Breakdown struct {
	Roi       int
	WinRate   int
	Volume    int
	Liquidity int
	CoWhales  int
	Age       int
}

// Sum adds all axes.
func (b Breakdown) Sum() int {
	return b.Roi + b.WinRate + b.Volume + b.Liquidity + b.CoWhales + b.Age
}

// Result is the evaluated rubric.
type Result struct {
	Total     int
	Stars     int
	Breakdown Breakdown
}

// Score evaluates the rubric and returns the total and the star rating.
func Score(roi, winRate, volumeUSD, liquidityUSD float64, coWhaleCount, tokenAgeDays int) (int, int) {
	r := Evaluate(Metrics{
		RoiPct:       roi,
		WinRate:      winRate,
		VolumeUSD:    volumeUSD,
		LiquidityUSD: liquidityUSD,
		CoWhaleCount: coWhaleCount,
		TokenAgeDays: tokenAgeDays,
	})
	return r.Total, r.Stars
}

// Evaluate is Score with the per-axis breakdown kept.
func Evaluate(m Metrics) Result {
	b := Breakdown{
		Roi:       roiBucket(finite(m.RoiPct)),
		WinRate:   winRateBucket(finite(m.WinRate)),
		Volume:    volumeBucket(finite(m.VolumeUSD)),
		Liquidity: liquidityBucket(finite(m.LiquidityUSD)),
		CoWhales:  coWhaleBucket(m.CoWhaleCount),
		Age:       ageBucket(m.TokenAgeDays),
	}
	total := b.Sum()
	return Result{Total: total, Stars: StarsFor(total), Breakdown: b}
}

// StarsFor maps a total score to 1..5 stars.
func StarsFor(total int) int {
	switch {
	case total <= 3:
		return 1
	case total <= 6:
		return 2
	case total <= 9:
		return 3
	case total <= 12:
		return 4
	default:
		return 5
	}
}

// NaN would otherwise fall through every "<" branch into the top bucket.
func finite(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return v
}

func roiBucket(roi float64) int {
	switch {
	case roi < 0:
		return -1
	case roi < 20:
		return 1
	case roi < 50:
		return 2
	default:
		return 3
	}
}

func winRateBucket(wr float64) int {
	switch {
	case wr < 40:
		return 0
	case wr < 60:
		return 1
	case wr < 80:
		return 2
	default:
		return 3
	}
}

func volumeBucket(usd float64) int {
	switch {
	case usd < 1_000:
		return 0
	case usd < 10_000:
		return 1
	case usd < 100_000:
		return 2
	default:
		return 3
	}
}

func liquidityBucket(usd float64) int {
	switch {
	case usd < 500_000:
		return 0
	case usd < 5_000_000:
		return 1
	case usd < 50_000_000:
		return 2
	default:
		return 3
	}
}

// A lone buyer (0 or 1 co-whales) earns nothing.
func coWhaleBucket(n int) int {
	switch {
	case n <= 1:
		return 0
	case n <= 3:
		return 2
	case n <= 5:
		return 3
	default:
		return 4
	}
}

func ageBucket(days int) int {
	switch {
	case days < 7:
		return -1
	case days < 30:
		return 0
	case days < 180:
		return 1
	default:
		return 2
	}
}
