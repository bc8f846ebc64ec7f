// Package features turns a window of bars into the FeatureSnapshot the
// predictors consume.
package features

import (
	"QuantPulse/internal/domain/models"
	"QuantPulse/internal/services/indicators"
)

// Extract computes the feature snapshot for a bar window. Windows of any
// length are tolerated: indicators fall back to their neutral defaults
// and PriceChange is 0 when fewer than two bars are present. An empty
// window yields a zero-value snapshot.
func Extract(bars []models.Bar) models.FeatureSnapshot {
	if len(bars) == 0 {
		return models.FeatureSnapshot{}
	}
	prices := Closes(bars)
	latest := bars[len(bars)-1]

	var change float64
	if len(prices) >= 2 {
		change = prices[len(prices)-1] - prices[len(prices)-2]
	}

	return models.FeatureSnapshot{
		Price:       latest.Close,
		RSI:         indicators.RSI(prices, indicators.RSIPeriod),
		MACD:        indicators.MACD(prices),
		EMA:         indicators.EMA(prices, indicators.EMAPeriod),
		Bollinger:   indicators.Bollinger(prices, indicators.BollingerPeriod),
		Volatility:  indicators.Volatility(prices),
		Volume:      latest.Volume,
		PriceChange: change,
	}
}

// Closes extracts the close series from a bar window.
func Closes(bars []models.Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}
