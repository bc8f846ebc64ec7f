package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"QuantPulse/internal/domain/models"
	domrepo "QuantPulse/internal/domain/repository"
	domsvc "QuantPulse/internal/domain/service"
	"QuantPulse/internal/services/ensemble"
	"QuantPulse/internal/services/features"
	applogger "QuantPulse/pkg/logger"
)

// MinBars is the smallest window signal generation accepts.
const MinBars = 50

const (
	modelVersion = "v2.1.0"
	modelType    = "ensemble"
)

// ErrInsufficientBars is returned when the window is below MinBars.
var ErrInsufficientBars = errors.New("insufficient bars for signal generation")

// SignalGenerator runs the three predictors over a bar window and
// combines their outputs into one Signal.
type SignalGenerator struct {
	reader   domrepo.BarReader
	trend    domsvc.Predictor
	momentum domsvc.Predictor
	agent    domsvc.Predictor
	metrics  domrepo.Metrics
	log      *applogger.Logger
}

func NewSignalGenerator(
	reader domrepo.BarReader,
	trend, momentum, agent domsvc.Predictor,
	metrics domrepo.Metrics,
	log *applogger.Logger,
) *SignalGenerator {
	return &SignalGenerator{
		reader:   reader,
		trend:    trend,
		momentum: momentum,
		agent:    agent,
		metrics:  metrics,
		log:      log,
	}
}

// Generate loads the latest n bars for an asset and produces a signal
// stamped with the current time.
func (g *SignalGenerator) Generate(ctx context.Context, asset string, n int) (models.Signal, error) {
	bars, err := g.reader.GetLatestNBars(ctx, asset, n)
	if err != nil {
		g.metrics.RecordError("generate_read")
		return models.Signal{}, fmt.Errorf("load bars for %s: %w", asset, err)
	}
	return g.FromBars(bars, asset)
}

// FromBars produces a signal from an explicit window, stamped with the
// current time.
func (g *SignalGenerator) FromBars(bars []models.Bar, asset string) (models.Signal, error) {
	return g.FromBarsAt(bars, asset, time.Now().UTC())
}

// FromBarsAt produces a signal from an explicit window with an explicit
// timestamp, which backtests use to keep signals on historical time.
// Fewer than MinBars bars is an error; any predictor error aborts the
// attempt.
func (g *SignalGenerator) FromBarsAt(bars []models.Bar, asset string, at time.Time) (models.Signal, error) {
	if len(bars) < MinBars {
		return models.Signal{}, fmt.Errorf("%w: have %d, need %d", ErrInsufficientBars, len(bars), MinBars)
	}

	start := time.Now()
	snap := features.Extract(bars)

	trendOut, err := g.trend.Predict(snap)
	if err != nil {
		g.metrics.RecordError("predictor_" + g.trend.Name())
		return models.Signal{}, fmt.Errorf("predictor %s: %w", g.trend.Name(), err)
	}
	momentumOut, err := g.momentum.Predict(snap)
	if err != nil {
		g.metrics.RecordError("predictor_" + g.momentum.Name())
		return models.Signal{}, fmt.Errorf("predictor %s: %w", g.momentum.Name(), err)
	}
	agentOut, err := g.agent.Predict(snap)
	if err != nil {
		g.metrics.RecordError("predictor_" + g.agent.Name())
		return models.Signal{}, fmt.Errorf("predictor %s: %w", g.agent.Name(), err)
	}

	dec := ensemble.Combine(trendOut, momentumOut, agentOut)

	sig := models.Signal{
		ID:              uuid.NewString(),
		Timestamp:       at,
		Asset:           asset,
		Direction:       dec.Direction,
		Confidence:      dec.Confidence,
		PositionSize:    dec.PositionSize,
		PredictedReward: trendOut.ExpectedReturn,
		RiskRatio:       momentumOut.RiskReward,
		ModelVersion:    modelVersion,
		ModelType:       modelType,
	}

	g.metrics.RecordSignal(asset, string(sig.Direction))
	g.metrics.RecordLatency("generate", time.Since(start).Seconds())
	if g.log != nil {
		g.log.Debug("signal generated",
			applogger.String("asset", asset),
			applogger.String("direction", string(sig.Direction)),
			applogger.Float64("confidence", sig.Confidence),
			applogger.String("size", string(sig.PositionSize)),
		)
	}
	return sig, nil
}
