package backtest

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"QuantPulse/internal/domain/models"
)

func closedTrade(pnl float64) models.Trade {
	return models.Trade{Status: models.TradeClosed, PnL: pnl, IsWin: pnl > 0}
}

func equityCurve(values ...float64) []models.EquityPoint {
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	out := make([]models.EquityPoint, len(values))
	for i, v := range values {
		out[i] = models.EquityPoint{Timestamp: base.Add(time.Duration(i) * time.Minute), Value: v}
	}
	return out
}

func TestComputeMetricsEmpty(t *testing.T) {
	m := ComputeMetrics(nil, nil)
	assert.Equal(t, models.PerformanceMetrics{}, m)
}

func TestComputeMetricsIgnoresOpenTrades(t *testing.T) {
	trades := []models.Trade{
		{Status: models.TradeOpen, PnL: 999},
		closedTrade(10),
	}
	m := ComputeMetrics(trades, equityCurve(100, 110))
	assert.Equal(t, 1, m.TotalTrades)
	assert.Equal(t, 10.0, m.TotalPnL)
}

func TestWinRateAndAverages(t *testing.T) {
	trades := []models.Trade{
		closedTrade(10), closedTrade(30), closedTrade(-10), closedTrade(-30),
	}
	m := ComputeMetrics(trades, equityCurve(100, 110, 140, 130, 100))

	assert.Equal(t, 50.0, m.WinRate)
	assert.Equal(t, m.WinRate, m.Accuracy)
	assert.Equal(t, 20.0, m.AvgWin)
	assert.Equal(t, 20.0, m.AvgLoss)
	assert.Equal(t, 1.0, m.ProfitFactor)
	assert.InDelta(t, 0.0, m.Expectancy, 1e-9)
	assert.Equal(t, 0.0, m.TotalPnL)
}

func TestZeroPnLCountsAsLoss(t *testing.T) {
	m := ComputeMetrics([]models.Trade{closedTrade(0)}, equityCurve(100, 100))
	assert.Equal(t, 0.0, m.WinRate)
	assert.Equal(t, 0.0, m.AvgLoss)
	assert.Equal(t, 0.0, m.ProfitFactor)
}

func TestProfitFactorZeroWhenNoLosers(t *testing.T) {
	m := ComputeMetrics([]models.Trade{closedTrade(5), closedTrade(15)}, equityCurve(100, 105, 120))
	assert.Equal(t, 100.0, m.WinRate)
	assert.Equal(t, 0.0, m.AvgLoss)
	assert.Equal(t, 0.0, m.ProfitFactor)
	assert.InDelta(t, 10.0, m.Expectancy, 1e-9)
}

func TestSharpeDegenerateCases(t *testing.T) {
	assert.Equal(t, 0.0, sharpe(nil))
	assert.Equal(t, 0.0, sharpe(equityCurve(100)))
	// constant returns have zero deviation
	assert.Equal(t, 0.0, sharpe(equityCurve(100, 110, 121)))
	assert.Equal(t, 0.0, sharpe(equityCurve(100, 100, 100)))
}

func TestSharpeSign(t *testing.T) {
	up := sharpe(equityCurve(100, 101, 103, 104, 108))
	down := sharpe(equityCurve(100, 99, 97, 96, 92))
	assert.Greater(t, up, 0.0)
	assert.Less(t, down, 0.0)
	assert.False(t, math.IsNaN(up) || math.IsInf(up, 0))
}

func TestMaxDrawdown(t *testing.T) {
	assert.Equal(t, 0.0, maxDrawdown(nil))
	assert.Equal(t, 0.0, maxDrawdown(equityCurve(100, 110, 120)))
	// peak 120 down to 90: 25%
	assert.InDelta(t, 25.0, maxDrawdown(equityCurve(100, 120, 90, 110)), 1e-9)
}

func TestMaxDrawdownBounded(t *testing.T) {
	curves := [][]models.EquityPoint{
		equityCurve(100, 0),
		equityCurve(100, 1, 200, 2),
		equityCurve(50, 50, 50),
	}
	for _, eq := range curves {
		dd := maxDrawdown(eq)
		assert.GreaterOrEqual(t, dd, 0.0)
		assert.LessOrEqual(t, dd, 100.0)
	}
}

func TestExpectancyFormula(t *testing.T) {
	trades := []models.Trade{closedTrade(30), closedTrade(-10), closedTrade(-10), closedTrade(-10)}
	m := ComputeMetrics(trades, equityCurve(100, 130, 120, 110, 100))
	// 25% win rate: 30*0.25 - 10*0.75
	assert.InDelta(t, 0.0, m.Expectancy, 1e-9)
	assert.Equal(t, 25.0, m.WinRate)
	assert.Equal(t, 3.0, m.ProfitFactor)
}

func TestMetricsNeverNonFinite(t *testing.T) {
	m := ComputeMetrics([]models.Trade{closedTrade(1e308), closedTrade(-1e308)}, equityCurve(0, 0))
	for _, v := range []float64{m.WinRate, m.AvgWin, m.AvgLoss, m.ProfitFactor, m.SharpeRatio, m.MaxDrawdown, m.Expectancy, m.TotalPnL} {
		assert.False(t, math.IsNaN(v) || math.IsInf(v, 0))
	}
}
