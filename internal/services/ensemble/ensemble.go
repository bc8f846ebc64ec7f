// Package ensemble combines the three predictor outputs into one
// decision by buy-versus-sell plurality vote.
package ensemble

import "QuantPulse/internal/domain/models"

// Decision is the combined call the generator turns into a Signal.
type Decision struct {
	Direction    models.Direction
	Confidence   float64
	PositionSize models.PositionSize
}

const (
	confidenceFloor   = 55.0
	confidenceCeiling = 95.0
)

// Combine votes across the trend, momentum and agent outputs. Buy and
// sell votes are tallied and the larger side wins; holds abstain, so a
// single directional vote among holds carries. A buy/sell tie (or all
// holds) is a hold.
// Confidence is the mean of the trend and momentum confidences clamped
// to [55,95]; the agent's vote counts but its confidence does not. The
// sizing tier follows the confidence staircase regardless of the
// agent's size hint.
func Combine(trend, momentum, agent models.PredictorOutput) Decision {
	dir := vote(trend.Direction, momentum.Direction, agent.Direction)

	conf := (trend.Confidence + momentum.Confidence) / 2
	if conf < confidenceFloor {
		conf = confidenceFloor
	}
	if conf > confidenceCeiling {
		conf = confidenceCeiling
	}

	return Decision{
		Direction:    dir,
		Confidence:   conf,
		PositionSize: SizeForConfidence(conf),
	}
}

// SizeForConfidence maps a confidence value onto the sizing staircase:
// below 60 none, below 70 low, below 80 medium, 80 and up high.
func SizeForConfidence(conf float64) models.PositionSize {
	switch {
	case conf < 60:
		return models.SizeNone
	case conf < 70:
		return models.SizeLow
	case conf < 80:
		return models.SizeMedium
	default:
		return models.SizeHigh
	}
}

func vote(dirs ...models.Direction) models.Direction {
	var buys, sells int
	for _, d := range dirs {
		switch d {
		case models.DirectionBuy:
			buys++
		case models.DirectionSell:
			sells++
		}
	}
	switch {
	case buys > sells:
		return models.DirectionBuy
	case sells > buys:
		return models.DirectionSell
	default:
		return models.DirectionHold
	}
}
