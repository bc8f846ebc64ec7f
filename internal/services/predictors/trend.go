package predictors

import (
	"fmt"

	"QuantPulse/internal/domain/models"
	domsvc "QuantPulse/internal/domain/service"
)

// Trend follows price relative to its EMA, confirmed by the MACD line.
// Its ExpectedReturn is the fractional gap between price and EMA, which
// the generator surfaces as the signal's predicted reward.
type Trend struct {
	// minimum |price-EMA|/EMA before the model commits to a side
	threshold float64
}

var _ domsvc.Predictor = (*Trend)(nil)

func NewTrend() *Trend {
	return &Trend{threshold: 0.0005}
}

func (t *Trend) Name() string { return "trend" }

func (t *Trend) Predict(f models.FeatureSnapshot) (models.PredictorOutput, error) {
	if err := checkFinite(f); err != nil {
		return models.PredictorOutput{}, fmt.Errorf("trend predict: %w", err)
	}

	var gap float64
	if f.EMA != 0 {
		gap = (f.Price - f.EMA) / f.EMA
	}

	dir := models.DirectionHold
	switch {
	case gap > t.threshold && f.MACD.Value >= 0:
		dir = models.DirectionBuy
	case gap < -t.threshold && f.MACD.Value <= 0:
		dir = models.DirectionSell
	}

	conf := clamp(62+abs(gap)*8000, 55, 92)
	if dir == models.DirectionHold {
		conf = clamp(conf-5, 55, 92)
	}

	return models.PredictorOutput{
		Model:          t.Name(),
		Direction:      dir,
		Confidence:     conf,
		ExpectedReturn: gap,
	}, nil
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
