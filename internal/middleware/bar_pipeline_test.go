package middleware

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"QuantPulse/internal/domain/models"
)

type fakeProc struct {
	mu    sync.Mutex
	bars  []*models.Bar
	fail  bool
	calls int
}

func (p *fakeProc) Process(_ context.Context, b *models.Bar) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.fail {
		return errors.New("downstream down")
	}
	p.bars = append(p.bars, b)
	return nil
}

func (p *fakeProc) processed() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.bars)
}

type fakeMetrics struct {
	mu     sync.Mutex
	errors map[string]int
}

func newFakeMetrics() *fakeMetrics { return &fakeMetrics{errors: map[string]int{}} }

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

func validTestBar(asset string) *models.Bar {
	return &models.Bar{
		Timestamp: time.Now().UTC(),
		Asset:     asset,
		Open:      1.1,
		High:      1.2,
		Low:       1.0,
		Close:     1.15,
		Volume:    1000,
	}
}

func TestPipelineForwardsValidBars(t *testing.T) {
	proc := &fakeProc{}
	p := NewBarPipeline(proc, newFakeMetrics(), WithMaxRPS(100))

	require.NoError(t, p.Process(context.Background(), validTestBar("EURUSD")))
	assert.Equal(t, 1, proc.processed())
}

func TestPipelineRejectsInvalidBars(t *testing.T) {
	proc := &fakeProc{}
	m := newFakeMetrics()
	p := NewBarPipeline(proc, m)

	cases := []struct {
		name string
		bar  *models.Bar
	}{
		{"nil", nil},
		{"empty asset", &models.Bar{Timestamp: time.Now(), Close: 1, High: 1, Low: 1}},
		{"zero timestamp", &models.Bar{Asset: "EURUSD", Close: 1, High: 1, Low: 1}},
		{"zero close", &models.Bar{Asset: "EURUSD", Timestamp: time.Now(), High: 1, Low: 1}},
		{"high below low", &models.Bar{Asset: "EURUSD", Timestamp: time.Now(), Close: 1, High: 1, Low: 2}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Error(t, p.Process(context.Background(), tc.bar))
		})
	}
	assert.Equal(t, 0, proc.processed())
	assert.Equal(t, len(cases), m.errorCount("pipeline_validate"))
}

func TestPipelineThrottlesPerAsset(t *testing.T) {
	proc := &fakeProc{}
	m := newFakeMetrics()
	p := NewBarPipeline(proc, m, WithMaxRPS(2))

	for i := 0; i < 10; i++ {
		require.NoError(t, p.Process(context.Background(), validTestBar("EURUSD")))
	}
	// the bucket starts with maxRPS tokens; the rest are throttled
	assert.Equal(t, 2, proc.processed())
	assert.Equal(t, 8, m.errorCount("pipeline_throttle"))
}

func TestPipelineBuffersOnDownstreamError(t *testing.T) {
	proc := &fakeProc{fail: true}
	m := newFakeMetrics()
	p := NewBarPipeline(proc, m, WithMaxRPS(100), WithBufferSize(10))

	err := p.Process(context.Background(), validTestBar("EURUSD"))
	assert.Error(t, err)
	assert.Equal(t, 1, m.errorCount("pipeline_process"))

	// once the downstream recovers, the flush loop drains the buffer
	proc.mu.Lock()
	proc.fail = false
	proc.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)
	defer p.Stop()

	require.Eventually(t, func() bool {
		return proc.processed() == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestPipelineTransformApplied(t *testing.T) {
	proc := &fakeProc{}
	p := NewBarPipeline(proc, newFakeMetrics(), WithMaxRPS(100),
		WithTransform(func(b *models.Bar) *models.Bar {
			b.Asset = "X" + b.Asset
			return b
		}),
	)

	require.NoError(t, p.Process(context.Background(), validTestBar("EURUSD")))
	require.Equal(t, 1, proc.processed())
	assert.Equal(t, "XEURUSD", proc.bars[0].Asset)
}
