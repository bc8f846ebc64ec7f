package backtest

import (
	"math"

	"QuantPulse/internal/domain/models"
)

// periods per year for annualizing the Sharpe ratio
const annualization = 252

// ComputeMetrics reduces closed trades and the equity curve to summary
// statistics. Degenerate inputs (no trades, no losers, flat equity) pin
// the affected ratios to 0 rather than NaN or Inf.
func ComputeMetrics(trades []models.Trade, equity []models.EquityPoint) models.PerformanceMetrics {
	closed := make([]models.Trade, 0, len(trades))
	for _, t := range trades {
		if t.Status == models.TradeClosed {
			closed = append(closed, t)
		}
	}

	var m models.PerformanceMetrics
	m.TotalTrades = len(closed)
	m.MaxDrawdown = maxDrawdown(equity)
	m.SharpeRatio = sharpe(equity)
	if len(closed) == 0 {
		return sanitized(m)
	}

	var wins, losses int
	var winSum, lossSum, total float64
	for _, t := range closed {
		total += t.PnL
		if t.IsWin {
			wins++
			winSum += t.PnL
		} else {
			losses++
			lossSum += t.PnL
		}
	}

	m.TotalPnL = total
	m.WinRate = float64(wins) / float64(len(closed)) * 100
	m.Accuracy = m.WinRate
	if wins > 0 {
		m.AvgWin = winSum / float64(wins)
	}
	if losses > 0 {
		m.AvgLoss = math.Abs(lossSum / float64(losses))
	}
	if m.AvgLoss > 0 {
		m.ProfitFactor = m.AvgWin / m.AvgLoss
	}
	m.Expectancy = m.AvgWin*(m.WinRate/100) - m.AvgLoss*(1-m.WinRate/100)

	return sanitized(m)
}

// sharpe is the mean equity return over its population standard
// deviation, annualized. Fewer than two points or zero deviation is 0.
func sharpe(equity []models.EquityPoint) float64 {
	if len(equity) < 2 {
		return 0
	}
	returns := make([]float64, 0, len(equity)-1)
	for i := 1; i < len(equity); i++ {
		prev := equity[i-1].Value
		if prev == 0 {
			returns = append(returns, 0)
			continue
		}
		returns = append(returns, (equity[i].Value-prev)/prev)
	}
	var mean float64
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))
	var variance float64
	for _, r := range returns {
		d := r - mean
		variance += d * d
	}
	variance /= float64(len(returns))
	sd := math.Sqrt(variance)
	if sd == 0 {
		return 0
	}
	return mean / sd * math.Sqrt(annualization)
}

// maxDrawdown is the largest peak-to-trough decline, in percent of the
// peak. Always in [0,100] for non-negative equity values.
func maxDrawdown(equity []models.EquityPoint) float64 {
	if len(equity) == 0 {
		return 0
	}
	peak := equity[0].Value
	var maxDD float64
	for _, p := range equity {
		if p.Value > peak {
			peak = p.Value
		}
		if peak <= 0 {
			continue
		}
		dd := (peak - p.Value) / peak * 100
		if dd > maxDD {
			maxDD = dd
		}
	}
	return maxDD
}

func sanitized(m models.PerformanceMetrics) models.PerformanceMetrics {
	for _, v := range []*float64{
		&m.Accuracy, &m.WinRate, &m.AvgWin, &m.AvgLoss, &m.ProfitFactor,
		&m.SharpeRatio, &m.MaxDrawdown, &m.Expectancy, &m.TotalPnL,
	} {
		if math.IsNaN(*v) || math.IsInf(*v, 0) {
			*v = 0
		}
	}
	return m
}
