package usecase

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"QuantPulse/internal/domain/models"
)

type recordingJournal struct {
	backtests []models.BacktestResult
	signals   []models.Signal
	err       error
}

func (j *recordingJournal) RecordSignal(_ context.Context, sig models.Signal) error {
	j.signals = append(j.signals, sig)
	return j.err
}
func (j *recordingJournal) RecordBacktest(_ context.Context, res models.BacktestResult) error {
	j.backtests = append(j.backtests, res)
	return j.err
}
func (j *recordingJournal) RecentSignals(_ context.Context, _ int) ([]models.Signal, error) {
	return j.signals, nil
}
func (j *recordingJournal) Close() error { return nil }

func trendingWindow(n int) []models.Bar {
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	bars := make([]models.Bar, n)
	for i := range bars {
		// gentle oscillating drift so predictors see both regimes
		price := 100 + float64(i)*0.05 + math.Sin(float64(i)/10)*2
		bars[i] = models.Bar{
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			Asset:     "EURUSD",
			Open:      price, High: price, Low: price, Close: price,
			Volume: 1000,
		}
	}
	return bars
}

func TestRunRequiresAsset(t *testing.T) {
	r := NewBacktestRunner(&fakeReader{}, newGenerator(&fakeReader{}), nil, newFakeMetrics(), nil)
	_, err := r.Run(context.Background(), RunParams{InitialBalance: 10000})
	assert.Error(t, err)
}

func TestRunRejectsShortHistory(t *testing.T) {
	reader := &fakeReader{bars: trendingWindow(10)}
	r := NewBacktestRunner(reader, newGenerator(reader), nil, newFakeMetrics(), nil)
	_, err := r.Run(context.Background(), RunParams{Asset: "EURUSD", InitialBalance: 10000})
	assert.ErrorIs(t, err, ErrInsufficientBars)
}

func TestRunEndToEnd(t *testing.T) {
	reader := &fakeReader{bars: trendingWindow(500)}
	journal := &recordingJournal{}
	r := NewBacktestRunner(reader, newGenerator(reader), journal, newFakeMetrics(), nil)

	res, err := r.Run(context.Background(), RunParams{
		Asset:          "EURUSD",
		InitialBalance: 10000,
		SignalEvery:    10,
	})
	require.NoError(t, err)

	assert.Equal(t, "EURUSD", res.Asset)
	assert.Equal(t, 10000.0, res.InitialBalance)
	require.NotEmpty(t, res.Equity)
	assert.Equal(t, 10000.0, res.Equity[0].Value)
	assert.Equal(t, 1+countClosed(res.Trades), len(res.Equity))
	assert.GreaterOrEqual(t, res.Metrics.MaxDrawdown, 0.0)
	assert.LessOrEqual(t, res.Metrics.MaxDrawdown, 100.0)

	// the completed run was journaled
	require.Len(t, journal.backtests, 1)
	assert.Equal(t, res.FinalBalance, journal.backtests[0].FinalBalance)
}

func TestRunJournalFailureNotFatal(t *testing.T) {
	reader := &fakeReader{bars: trendingWindow(200)}
	journal := &recordingJournal{err: assert.AnError}
	r := NewBacktestRunner(reader, newGenerator(reader), journal, newFakeMetrics(), nil)

	_, err := r.Run(context.Background(), RunParams{Asset: "EURUSD", InitialBalance: 10000})
	assert.NoError(t, err)
}

func TestSignalsAlongTimestamps(t *testing.T) {
	reader := &fakeReader{bars: trendingWindow(120)}
	r := NewBacktestRunner(reader, newGenerator(reader), nil, newFakeMetrics(), nil)

	signals, err := r.SignalsAlong(reader.bars, "EURUSD", 10)
	require.NoError(t, err)
	require.NotEmpty(t, signals)

	for i, sig := range signals {
		// signals sit on bar timestamps, in order
		assert.Equal(t, "EURUSD", sig.Asset)
		if i > 0 {
			assert.True(t, sig.Timestamp.After(signals[i-1].Timestamp))
		}
	}
	assert.Equal(t, reader.bars[MinBars-1].Timestamp, signals[0].Timestamp)
}

func countClosed(trades []models.Trade) int {
	n := 0
	for _, t := range trades {
		if t.Status == models.TradeClosed {
			n++
		}
	}
	return n
}
