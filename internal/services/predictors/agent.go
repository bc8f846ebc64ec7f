package predictors

import (
	"fmt"

	"QuantPulse/internal/domain/models"
	domsvc "QuantPulse/internal/domain/service"
)

// Agent discretizes the snapshot into a coarse market state and looks
// the action up in a fixed policy table. Its size hint is informational:
// the ensemble's confidence staircase decides the final tier.
type Agent struct {
	highVol float64 // annualized volatility above this is the high-vol regime
}

var _ domsvc.Predictor = (*Agent)(nil)

func NewAgent() *Agent {
	return &Agent{highVol: 0.20}
}

func (a *Agent) Name() string { return "agent" }

type agentState struct {
	highVol bool
	rsiZone string // "oversold", "neutral", "overbought"
}

type agentAction struct {
	dir  models.Direction
	size models.PositionSize
	q    float64
}

var agentPolicy = map[agentState]agentAction{
	{false, "oversold"}:   {models.DirectionBuy, models.SizeMedium, 0.62},
	{false, "neutral"}:    {models.DirectionHold, models.SizeNone, 0.31},
	{false, "overbought"}: {models.DirectionSell, models.SizeMedium, 0.58},
	{true, "oversold"}:    {models.DirectionBuy, models.SizeLow, 0.44},
	{true, "neutral"}:     {models.DirectionHold, models.SizeNone, 0.22},
	{true, "overbought"}:  {models.DirectionSell, models.SizeLow, 0.41},
}

func (a *Agent) Predict(f models.FeatureSnapshot) (models.PredictorOutput, error) {
	if err := checkFinite(f); err != nil {
		return models.PredictorOutput{}, fmt.Errorf("agent predict: %w", err)
	}

	st := agentState{highVol: f.Volatility >= a.highVol, rsiZone: "neutral"}
	switch {
	case f.RSI < 35:
		st.rsiZone = "oversold"
	case f.RSI > 65:
		st.rsiZone = "overbought"
	}

	act := agentPolicy[st]
	return models.PredictorOutput{
		Model:      a.Name(),
		Direction:  act.dir,
		Confidence: act.q * 100,
		QValue:     act.q,
		SizeHint:   act.size,
	}, nil
}
