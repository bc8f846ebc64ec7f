package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"QuantPulse/internal/domain/models"
	domrepo "QuantPulse/internal/domain/repository"
	"QuantPulse/internal/services/backtest"
	applogger "QuantPulse/pkg/logger"
)

// BacktestRunner loads historical bars, generates signals along the
// window with the real generator, and replays them through a fresh
// engine. Completed runs are journaled when a journal is configured.
type BacktestRunner struct {
	reader  domrepo.BarReader
	gen     *SignalGenerator
	journal domrepo.Journal
	metrics domrepo.Metrics
	log     *applogger.Logger
}

func NewBacktestRunner(
	reader domrepo.BarReader,
	gen *SignalGenerator,
	journal domrepo.Journal,
	metrics domrepo.Metrics,
	log *applogger.Logger,
) *BacktestRunner {
	return &BacktestRunner{reader: reader, gen: gen, journal: journal, metrics: metrics, log: log}
}

// RunParams describes one backtest request.
type RunParams struct {
	Asset          string
	From           time.Time
	To             time.Time
	InitialBalance float64
	// generate a signal every this many bars once the minimum window
	// is available
	SignalEvery int
	// cap on bars loaded from storage
	MaxBars int
}

// Run executes a backtest over stored bars.
func (r *BacktestRunner) Run(ctx context.Context, p RunParams) (models.BacktestResult, error) {
	if p.Asset == "" {
		return models.BacktestResult{}, fmt.Errorf("asset required")
	}
	if p.SignalEvery <= 0 {
		p.SignalEvery = 15
	}
	if p.MaxBars <= 0 {
		p.MaxBars = 10000
	}

	bars, err := r.reader.GetBars(ctx, p.Asset, p.From, p.To, p.MaxBars)
	if err != nil {
		r.metrics.RecordError("backtest_read")
		return models.BacktestResult{}, fmt.Errorf("load bars: %w", err)
	}
	if len(bars) < MinBars {
		return models.BacktestResult{}, fmt.Errorf("%w: have %d, need %d", ErrInsufficientBars, len(bars), MinBars)
	}

	return r.RunOnBars(ctx, bars, p)
}

// RunOnBars executes a backtest over an explicit bar window. The CLI
// uses this with synthetic history.
func (r *BacktestRunner) RunOnBars(ctx context.Context, bars []models.Bar, p RunParams) (models.BacktestResult, error) {
	start := time.Now()

	signals, err := r.SignalsAlong(bars, p.Asset, p.SignalEvery)
	if err != nil {
		return models.BacktestResult{}, err
	}

	res, err := backtest.New().Run(signals, bars, p.InitialBalance)
	if err != nil {
		r.metrics.RecordError("backtest_run")
		return models.BacktestResult{}, fmt.Errorf("run backtest: %w", err)
	}

	r.metrics.RecordLatency("backtest", time.Since(start).Seconds())
	if r.log != nil {
		r.log.Info("backtest finished",
			applogger.String("asset", p.Asset),
			applogger.Int("bars", len(bars)),
			applogger.Int("signals", len(signals)),
			applogger.Int("trades", len(res.Trades)),
			applogger.Float64("final_balance", res.FinalBalance),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}

	if r.journal != nil {
		if err := r.journal.RecordBacktest(ctx, res); err != nil {
			r.metrics.RecordError("backtest_journal")
			if r.log != nil {
				r.log.Warn("journal backtest failed", applogger.Error(err))
			}
		}
	}
	return res, nil
}

// SignalsAlong walks the window and generates a signal every step bars
// once MinBars of history is available, each stamped at its bar's
// timestamp. Predictor errors abort; windows that are merely short are
// skipped.
func (r *BacktestRunner) SignalsAlong(bars []models.Bar, asset string, step int) ([]models.Signal, error) {
	signals := make([]models.Signal, 0, len(bars)/step+1)
	for i := MinBars - 1; i < len(bars); i += step {
		sig, err := r.gen.FromBarsAt(bars[:i+1], asset, bars[i].Timestamp)
		if err != nil {
			if errors.Is(err, ErrInsufficientBars) {
				continue
			}
			return nil, fmt.Errorf("signal at bar %d: %w", i, err)
		}
		signals = append(signals, sig)
	}
	return signals, nil
}
