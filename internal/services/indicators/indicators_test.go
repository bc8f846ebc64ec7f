package indicators

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRSIShortInputNeutral(t *testing.T) {
	assert.Equal(t, 50.0, RSI(nil, 14))
	assert.Equal(t, 50.0, RSI([]float64{100}, 14))

	// exactly period prices is still one delta short
	prices := make([]float64, 14)
	for i := range prices {
		prices[i] = 100 + float64(i)
	}
	assert.Equal(t, 50.0, RSI(prices, 14))
}

func TestRSIMonotonicUp(t *testing.T) {
	prices := make([]float64, 15)
	for i := range prices {
		prices[i] = 100 + float64(i)
	}
	// no losses in the window
	assert.Equal(t, 100.0, RSI(prices, 14))
}

func TestRSIFlatWindow(t *testing.T) {
	prices := make([]float64, 15)
	for i := range prices {
		prices[i] = 100
	}
	// zero average loss dominates even with zero gains
	assert.Equal(t, 100.0, RSI(prices, 14))
}

func TestRSIMixedWindow(t *testing.T) {
	// 7 gains of 2 and 7 losses of 1: avgGain=1, avgLoss=0.5, rs=2
	prices := []float64{100}
	for i := 0; i < 7; i++ {
		prices = append(prices, prices[len(prices)-1]+2)
		prices = append(prices, prices[len(prices)-1]-1)
	}
	got := RSI(prices, 14)
	assert.InDelta(t, 100-100.0/3, got, 1e-9)
	assert.Greater(t, got, 0.0)
	assert.Less(t, got, 100.0)
}

func TestEMA(t *testing.T) {
	assert.Equal(t, 0.0, EMA(nil, 20))
	assert.Equal(t, 42.0, EMA([]float64{42}, 20))

	// two elements: seed with the first, blend in the second
	k := 2.0 / 21.0
	want := 110*k + 100*(1-k)
	assert.InDelta(t, want, EMA([]float64{100, 110}, 20), 1e-9)
}

func TestEMATracksConstantSeries(t *testing.T) {
	prices := make([]float64, 50)
	for i := range prices {
		prices[i] = 77.5
	}
	assert.InDelta(t, 77.5, EMA(prices, 12), 1e-9)
}

func TestMACDDegenerateSignalLine(t *testing.T) {
	prices := make([]float64, 60)
	for i := range prices {
		prices[i] = 100 + math.Sin(float64(i)/5)*3
	}
	m := MACD(prices)
	// the signal line is seeded from the single latest MACD value
	assert.Equal(t, m.Value, m.Signal)
	assert.Equal(t, 0.0, m.Histogram)
}

func TestMACDEmptyInput(t *testing.T) {
	m := MACD(nil)
	assert.Equal(t, 0.0, m.Value)
	assert.Equal(t, 0.0, m.Signal)
	assert.Equal(t, 0.0, m.Histogram)
}

func TestBollingerSingleElement(t *testing.T) {
	b := Bollinger([]float64{101.5}, 20)
	assert.Equal(t, 101.5, b.Upper)
	assert.Equal(t, 101.5, b.Middle)
	assert.Equal(t, 101.5, b.Lower)
}

func TestBollingerKnownWindow(t *testing.T) {
	// window {9,10,11,10}: mean=10, population variance=0.5
	b := Bollinger([]float64{9, 10, 11, 10}, 20)
	sd := math.Sqrt(0.5)
	assert.InDelta(t, 10, b.Middle, 1e-9)
	assert.InDelta(t, 10+2*sd, b.Upper, 1e-9)
	assert.InDelta(t, 10-2*sd, b.Lower, 1e-9)
}

func TestBollingerUsesTrailingWindow(t *testing.T) {
	prices := make([]float64, 0, 120)
	for i := 0; i < 100; i++ {
		prices = append(prices, 1000) // outside the window
	}
	for i := 0; i < 20; i++ {
		prices = append(prices, 10)
	}
	b := Bollinger(prices, 20)
	assert.InDelta(t, 10, b.Middle, 1e-9)
	assert.InDelta(t, 10, b.Upper, 1e-9)
	assert.InDelta(t, 10, b.Lower, 1e-9)
}

func TestVolatility(t *testing.T) {
	assert.Equal(t, 0.0, Volatility(nil))
	assert.Equal(t, 0.0, Volatility([]float64{100}))
	// constant prices: zero log returns
	assert.Equal(t, 0.0, Volatility([]float64{100, 100, 100}))
}

func TestVolatilityAlternatingSeries(t *testing.T) {
	got := Volatility([]float64{100, 110, 100, 110, 100})
	require.False(t, math.IsNaN(got))
	// log returns alternate ±log(1.1): population σ = log(1.1)
	want := math.Log(1.1) * math.Sqrt(252)
	assert.InDelta(t, want, got, 1e-9)
}

func TestIndicatorsNeverReturnNonFinite(t *testing.T) {
	inputs := [][]float64{
		nil,
		{0},
		{0, 0, 0},
		{1e308, 1e308},
		{100, 0, 100},
	}
	for _, prices := range inputs {
		assert.False(t, math.IsNaN(RSI(prices, 14)))
		assert.False(t, math.IsInf(EMA(prices, 20), 0))
		m := MACD(prices)
		assert.False(t, math.IsNaN(m.Value) || math.IsNaN(m.Signal) || math.IsNaN(m.Histogram))
		b := Bollinger(prices, 20)
		assert.False(t, math.IsNaN(b.Upper) || math.IsNaN(b.Middle) || math.IsNaN(b.Lower))
		assert.False(t, math.IsNaN(Volatility(prices)))
	}
}
