package models

import "time"

// Direction is the trade side a signal recommends.
type Direction string

const (
	DirectionBuy  Direction = "buy"
	DirectionSell Direction = "sell"
	DirectionHold Direction = "hold"
)

// PositionSize is the sizing tier attached to a signal.
type PositionSize string

const (
	SizeNone   PositionSize = "none"
	SizeLow    PositionSize = "low"
	SizeMedium PositionSize = "medium"
	SizeHigh   PositionSize = "high"
)

// Multiplier maps a sizing tier to the fraction of risk capital it commits.
func (p PositionSize) Multiplier() float64 {
	switch p {
	case SizeLow:
		return 0.25
	case SizeMedium:
		return 0.5
	case SizeHigh:
		return 1.0
	default:
		return 0
	}
}

// PredictorOutput is what a single predictor emits for one snapshot.
// Confidence is on a 0..100 scale. The remaining numeric fields are
// model-specific and only populated by the model that owns them:
// ExpectedReturn by the trend model, RiskReward by the momentum model,
// QValue and SizeHint by the agent.
type PredictorOutput struct {
	Model          string       `json:"model"`
	Direction      Direction    `json:"direction"`
	Confidence     float64      `json:"confidence"`
	ExpectedReturn float64      `json:"expectedReturn,omitempty"`
	RiskReward     float64      `json:"riskReward,omitempty"`
	QValue         float64      `json:"qValue,omitempty"`
	SizeHint       PositionSize `json:"sizeHint,omitempty"`
}

// Signal is the combined recommendation produced by the ensemble.
type Signal struct {
	ID              string       `json:"id"`
	Timestamp       time.Time    `json:"timestamp"`
	Asset           string       `json:"asset"`
	Direction       Direction    `json:"direction"`
	Confidence      float64      `json:"confidence"`
	PositionSize    PositionSize `json:"positionSize"`
	PredictedReward float64      `json:"predictedReward"`
	RiskRatio       float64      `json:"riskRatio"`
	ModelVersion    string       `json:"modelVersion"`
	ModelType       string       `json:"modelType"`
}
