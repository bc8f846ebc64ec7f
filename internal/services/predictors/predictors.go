// Package predictors holds the three deterministic models feeding the
// ensemble: a trend follower, a mean-reversion momentum model, and a
// tabular-policy agent. Each consumes a FeatureSnapshot and emits a
// direction with model-specific extras.
package predictors

import (
	"fmt"
	"math"

	"QuantPulse/internal/domain/models"
)

// checkFinite rejects snapshots carrying NaN or Inf so a corrupt window
// aborts generation instead of producing a garbage signal.
func checkFinite(f models.FeatureSnapshot) error {
	fields := map[string]float64{
		"price":      f.Price,
		"rsi":        f.RSI,
		"ema":        f.EMA,
		"macd":       f.MACD.Value,
		"volatility": f.Volatility,
		"boll_upper": f.Bollinger.Upper,
		"boll_lower": f.Bollinger.Lower,
	}
	for name, v := range fields {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("non-finite feature %s: %v", name, v)
		}
	}
	return nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
