package models

import "time"

// Bar represents a single OHLCV record at 1-minute resolution.
type Bar struct {
	Timestamp time.Time `json:"timestamp"`
	Asset     string    `json:"asset"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

// MACD holds the MACD line, its signal line, and the histogram.
type MACD struct {
	Value     float64 `json:"value"`
	Signal    float64 `json:"signal"`
	Histogram float64 `json:"histogram"`
}

// BollingerBands holds the upper/middle/lower band values.
type BollingerBands struct {
	Upper  float64 `json:"upper"`
	Middle float64 `json:"middle"`
	Lower  float64 `json:"lower"`
}

// FeatureSnapshot is the derived view of a bar window that predictors
// consume. Price, Volume and PriceChange come from the latest bar; the
// rest are computed over the whole window.
type FeatureSnapshot struct {
	Price       float64        `json:"price"`
	RSI         float64        `json:"rsi"`
	MACD        MACD           `json:"macd"`
	EMA         float64        `json:"ema"`
	Bollinger   BollingerBands `json:"bollinger"`
	Volatility  float64        `json:"volatility"`
	Volume      float64        `json:"volume"`
	PriceChange float64        `json:"priceChange"`
}
