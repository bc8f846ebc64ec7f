package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"QuantPulse/internal/domain/models"
	"QuantPulse/internal/services/predictors"
)

type fakeMetrics struct {
	mu     sync.Mutex
	errors map[string]int
}

func newFakeMetrics() *fakeMetrics { return &fakeMetrics{errors: make(map[string]int)} }

func (m *fakeMetrics) RecordBarIngested(string, string) {}
func (m *fakeMetrics) RecordSignal(string, string)      {}
func (m *fakeMetrics) RecordError(kind string) {
	m.mu.Lock()
	m.errors[kind]++
	m.mu.Unlock()
}
func (m *fakeMetrics) RecordLastPrice(string, float64) {}
func (m *fakeMetrics) RecordLatency(string, float64)   {}

func (m *fakeMetrics) errorCount(kind string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errors[kind]
}

type fakeReader struct {
	bars []models.Bar
	err  error
}

func (r *fakeReader) GetBars(_ context.Context, _ string, _, _ time.Time, _ int) ([]models.Bar, error) {
	return r.bars, r.err
}

func (r *fakeReader) GetLatestNBars(_ context.Context, _ string, n int) ([]models.Bar, error) {
	if r.err != nil {
		return nil, r.err
	}
	if n > len(r.bars) {
		n = len(r.bars)
	}
	return r.bars[len(r.bars)-n:], nil
}

type failingPredictor struct{}

func (failingPredictor) Name() string { return "broken" }
func (failingPredictor) Predict(models.FeatureSnapshot) (models.PredictorOutput, error) {
	return models.PredictorOutput{}, errors.New("model unavailable")
}

func window(n int) []models.Bar {
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	bars := make([]models.Bar, n)
	price := 1.1000
	for i := range bars {
		price += 0.0001
		bars[i] = models.Bar{
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			Asset:     "EURUSD",
			Open:      price, High: price, Low: price, Close: price,
			Volume: 1000,
		}
	}
	return bars
}

func newGenerator(reader *fakeReader) *SignalGenerator {
	return NewSignalGenerator(reader, predictors.NewTrend(), predictors.NewMomentum(), predictors.NewAgent(), newFakeMetrics(), nil)
}

func TestGenerateProducesCompleteSignal(t *testing.T) {
	gen := newGenerator(&fakeReader{bars: window(200)})

	sig, err := gen.Generate(context.Background(), "EURUSD", 200)
	require.NoError(t, err)

	assert.NotEmpty(t, sig.ID)
	assert.False(t, sig.Timestamp.IsZero())
	assert.Equal(t, "EURUSD", sig.Asset)
	assert.Contains(t, []models.Direction{models.DirectionBuy, models.DirectionSell, models.DirectionHold}, sig.Direction)
	assert.GreaterOrEqual(t, sig.Confidence, 55.0)
	assert.LessOrEqual(t, sig.Confidence, 95.0)
	assert.Contains(t, []models.PositionSize{models.SizeNone, models.SizeLow, models.SizeMedium, models.SizeHigh}, sig.PositionSize)
	assert.Equal(t, "v2.1.0", sig.ModelVersion)
	assert.Equal(t, "ensemble", sig.ModelType)
}

func TestGenerateUniqueIDs(t *testing.T) {
	gen := newGenerator(&fakeReader{bars: window(100)})
	a, err := gen.Generate(context.Background(), "EURUSD", 100)
	require.NoError(t, err)
	b, err := gen.Generate(context.Background(), "EURUSD", 100)
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestGenerateRejectsShortWindow(t *testing.T) {
	gen := newGenerator(&fakeReader{bars: window(MinBars - 1)})
	_, err := gen.Generate(context.Background(), "EURUSD", 200)
	assert.ErrorIs(t, err, ErrInsufficientBars)
}

func TestGeneratePropagatesReaderError(t *testing.T) {
	gen := newGenerator(&fakeReader{err: errors.New("storage down")})
	_, err := gen.Generate(context.Background(), "EURUSD", 200)
	assert.Error(t, err)
}

func TestPredictorErrorAbortsGeneration(t *testing.T) {
	gen := NewSignalGenerator(&fakeReader{bars: window(100)}, predictors.NewTrend(), failingPredictor{}, predictors.NewAgent(), newFakeMetrics(), nil)
	_, err := gen.Generate(context.Background(), "EURUSD", 100)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
}

func TestFromBarsAtUsesGivenTimestamp(t *testing.T) {
	gen := newGenerator(&fakeReader{})
	bars := window(MinBars)
	at := bars[len(bars)-1].Timestamp

	sig, err := gen.FromBarsAt(bars, "EURUSD", at)
	require.NoError(t, err)
	assert.Equal(t, at, sig.Timestamp)
}
