package predictors

import (
	"fmt"

	"QuantPulse/internal/domain/models"
	domsvc "QuantPulse/internal/domain/service"
)

// Momentum trades RSI extremes and Bollinger band touches against the
// move. Its RiskReward estimate feeds the signal's risk ratio.
type Momentum struct {
	oversold   float64
	overbought float64
}

var _ domsvc.Predictor = (*Momentum)(nil)

func NewMomentum() *Momentum {
	return &Momentum{oversold: 30, overbought: 70}
}

func (m *Momentum) Name() string { return "momentum" }

func (m *Momentum) Predict(f models.FeatureSnapshot) (models.PredictorOutput, error) {
	if err := checkFinite(f); err != nil {
		return models.PredictorOutput{}, fmt.Errorf("momentum predict: %w", err)
	}

	dir := models.DirectionHold
	switch {
	case f.RSI <= m.oversold:
		dir = models.DirectionBuy
	case f.RSI >= m.overbought:
		dir = models.DirectionSell
	default:
		// no RSI extreme: fade a band touch instead
		if p, ok := bandPosition(f); ok {
			switch {
			case p <= 0.05:
				dir = models.DirectionBuy
			case p >= 0.95:
				dir = models.DirectionSell
			}
		}
	}

	// conviction scales with distance from the RSI midpoint
	conf := clamp(58+abs(f.RSI-50)*0.6, 55, 90)

	// wider expected payoff in calm markets, tighter when volatile
	rr := 1.5 + clamp(f.Volatility, 0, 1.5)

	return models.PredictorOutput{
		Model:      m.Name(),
		Direction:  dir,
		Confidence: conf,
		RiskReward: rr,
	}, nil
}

// bandPosition returns where price sits inside the Bollinger bands,
// 0 at the lower band and 1 at the upper. Collapsed bands report false.
func bandPosition(f models.FeatureSnapshot) (float64, bool) {
	width := f.Bollinger.Upper - f.Bollinger.Lower
	if width <= 0 {
		return 0, false
	}
	return (f.Price - f.Bollinger.Lower) / width, true
}
