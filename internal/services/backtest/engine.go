// Package backtest replays signals against historical bars and scores
// the outcome.
package backtest

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"QuantPulse/internal/domain/models"
)

const (
	defaultTolerance    = time.Minute
	defaultHoldPeriod   = 15 * time.Minute
	defaultMinTradeSize = 10.0
	defaultRiskFraction = 0.01
)

var (
	ErrNoBars     = errors.New("backtest: no bars")
	ErrAlreadyRan = errors.New("backtest: engine already ran, create a new one per run")
)

// Engine simulates one backtest run. Instances are cheap and single
// shot: Run is not re-entrant, create a fresh engine per run.
type Engine struct {
	tolerance    time.Duration
	holdPeriod   time.Duration
	minTradeSize float64
	riskFraction float64

	ran bool
}

type Option func(*Engine)

// WithTolerance sets the entry/exit price lookup tolerance.
func WithTolerance(d time.Duration) Option {
	return func(e *Engine) { e.tolerance = d }
}

// WithHoldPeriod sets the fixed hold between entry and exit.
func WithHoldPeriod(d time.Duration) Option {
	return func(e *Engine) { e.holdPeriod = d }
}

// WithMinTradeSize sets the notional below which trades are skipped.
func WithMinTradeSize(v float64) Option {
	return func(e *Engine) { e.minTradeSize = v }
}

// WithRiskFraction sets the fraction of balance committed per unit of
// position multiplier.
func WithRiskFraction(v float64) Option {
	return func(e *Engine) { e.riskFraction = v }
}

func New(opts ...Option) *Engine {
	e := &Engine{
		tolerance:    defaultTolerance,
		holdPeriod:   defaultHoldPeriod,
		minTradeSize: defaultMinTradeSize,
		riskFraction: defaultRiskFraction,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run replays signals in timestamp order against bars. Hold signals and
// signals without a bar within tolerance are skipped. Each entered
// trade exits after the hold period at the nearest bar close; trades
// whose exit falls past the data are force-closed at the last bar. The
// equity curve starts with the initial balance at the first bar and
// gains one point per closing event.
func (e *Engine) Run(signals []models.Signal, bars []models.Bar, initialBalance float64) (models.BacktestResult, error) {
	if e.ran {
		return models.BacktestResult{}, ErrAlreadyRan
	}
	e.ran = true
	if len(bars) == 0 {
		return models.BacktestResult{}, ErrNoBars
	}
	if initialBalance <= 0 {
		return models.BacktestResult{}, fmt.Errorf("backtest: initial balance must be positive, got %v", initialBalance)
	}

	ordered := make([]models.Signal, len(signals))
	copy(ordered, signals)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Timestamp.Before(ordered[j].Timestamp)
	})

	balance := initialBalance
	trades := make([]models.Trade, 0, len(ordered))
	equity := []models.EquityPoint{{Timestamp: bars[0].Timestamp, Value: initialBalance}}

	for _, sig := range ordered {
		if sig.Direction == models.DirectionHold {
			continue
		}
		entryPrice, ok := priceAt(bars, sig.Timestamp, e.tolerance)
		if !ok || entryPrice <= 0 {
			continue
		}
		size := balance * sig.PositionSize.Multiplier() * e.riskFraction
		if size < e.minTradeSize {
			continue
		}

		trade := models.Trade{
			ID:         uuid.NewString(),
			Signal:     sig,
			EntryPrice: entryPrice,
			EntryTime:  sig.Timestamp,
			Size:       size,
			Status:     models.TradeOpen,
		}

		exitTime := sig.Timestamp.Add(e.holdPeriod)
		if exitPrice, ok := priceAt(bars, exitTime, e.tolerance); ok {
			pnl := pnlFor(sig.Direction, entryPrice, exitPrice, size)
			balance += pnl
			trade.ExitPrice = exitPrice
			trade.ExitTime = exitTime
			trade.PnL = pnl
			trade.IsWin = pnl > 0
			trade.Status = models.TradeClosed
			equity = append(equity, models.EquityPoint{Timestamp: exitTime, Value: balance})
		}
		trades = append(trades, trade)
	}

	// force-close anything the data ran out on, at the last bar
	last := bars[len(bars)-1]
	for i := range trades {
		if trades[i].Status != models.TradeOpen {
			continue
		}
		size := balance * e.riskFraction
		pnl := pnlFor(trades[i].Signal.Direction, trades[i].EntryPrice, last.Close, size)
		balance += pnl
		trades[i].ExitPrice = last.Close
		trades[i].ExitTime = last.Timestamp
		trades[i].Size = size
		trades[i].PnL = pnl
		trades[i].IsWin = pnl > 0
		trades[i].Status = models.TradeClosed
		equity = append(equity, models.EquityPoint{Timestamp: last.Timestamp, Value: balance})
	}

	asset := bars[0].Asset
	if asset == "" && len(ordered) > 0 {
		asset = ordered[0].Asset
	}

	return models.BacktestResult{
		Asset:          asset,
		InitialBalance: initialBalance,
		FinalBalance:   balance,
		Trades:         trades,
		Equity:         equity,
		Metrics:        ComputeMetrics(trades, equity),
	}, nil
}

// priceAt returns the close of the bar nearest to ts within tolerance.
func priceAt(bars []models.Bar, ts time.Time, tolerance time.Duration) (float64, bool) {
	best := -1
	var bestDiff time.Duration
	for i, b := range bars {
		diff := b.Timestamp.Sub(ts)
		if diff < 0 {
			diff = -diff
		}
		if diff > tolerance {
			continue
		}
		if best < 0 || diff < bestDiff {
			best, bestDiff = i, diff
		}
	}
	if best < 0 {
		return 0, false
	}
	return bars[best].Close, true
}

func pnlFor(dir models.Direction, entry, exit, size float64) float64 {
	change := (exit - entry) / entry
	if dir == models.DirectionSell {
		change = -change
	}
	return change * size
}
