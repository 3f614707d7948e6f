package metrics

import (
	"errors"
	"math/big"
	"time"

	"cosmossdk.io/math"

	"YieldPool/internal/recorder"
)

// Stats summarizes recent yield performance from recorded harvests.
type Stats struct {
	WindowDays   int     `json:"window_days"`
	HarvestCount int     `json:"harvest_count"`
	NetYield     string  `json:"net_yield"`     // total net yield in the window
	DailyRate    float64 `json:"daily_rate"`    // net yield / controlled / day
	EstimatedAPY float64 `json:"estimated_apy"` // daily rate annualized, simple
}

// TrailingStats computes the trailing yield rate over windowDays of harvest
// samples against the currently controlled principal. Returns zero-valued
// stats when there is nothing to measure.
func TrailingStats(samples []recorder.HarvestSample, controlled math.Int, windowDays int, now time.Time) (*Stats, error) {
	if windowDays <= 0 {
		return nil, errors.New("window must be positive")
	}

	cutoff := now.Add(-time.Duration(windowDays) * 24 * time.Hour).Unix()
	total := math.ZeroInt()
	count := 0
	for _, s := range samples {
		if s.Timestamp < cutoff {
			continue
		}
		net, ok := math.NewIntFromString(s.Net)
		if !ok {
			continue // skip malformed rows rather than failing the projection
		}
		total = total.Add(net)
		count++
	}

	stats := &Stats{
		WindowDays:   windowDays,
		HarvestCount: count,
		NetYield:     total.String(),
	}
	if count == 0 || !controlled.IsPositive() || !total.IsPositive() {
		return stats, nil
	}

	ratio := bigRatio(total, controlled)
	stats.DailyRate = ratio / float64(windowDays)
	stats.EstimatedAPY = stats.DailyRate * 365
	return stats, nil
}

// bigRatio divides two arbitrary-precision amounts into a float64 without
// overflowing int64.
func bigRatio(num, den math.Int) float64 {
	r := new(big.Rat).SetFrac(num.BigInt(), den.BigInt())
	f, _ := r.Float64()
	return f
}
