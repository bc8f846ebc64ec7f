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
)

type streamPair struct {
	bars chan *models.Bar
	errs chan error
}

func newStreamPair() *streamPair {
	return &streamPair{bars: make(chan *models.Bar, 8), errs: make(chan error, 1)}
}

// scriptedStream hands out pre-built channel pairs, one per Read call.
type scriptedStream struct {
	mu         sync.Mutex
	pairs      []*streamPair
	reads      int
	reconnects int
	connected  bool
}

func (s *scriptedStream) Connect(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = true
	return nil
}

func (s *scriptedStream) Subscribe(context.Context) error { return nil }

func (s *scriptedStream) Read(context.Context) (<-chan *models.Bar, <-chan error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.pairs[0]
	if len(s.pairs) > 1 {
		s.pairs = s.pairs[1:]
	}
	s.reads++
	return p.bars, p.errs
}

func (s *scriptedStream) Reconnect(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reconnects++
	return nil
}

func (s *scriptedStream) Close() error { return nil }

func (s *scriptedStream) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

func (s *scriptedStream) counts() (reads, reconnects int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads, s.reconnects
}

type memBarStore struct {
	mu   sync.Mutex
	bars []*models.Bar
}

func (m *memBarStore) Init(context.Context) error { return nil }

func (m *memBarStore) Store(_ context.Context, b *models.Bar) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bars = append(m.bars, b)
	return nil
}

func (m *memBarStore) StoreBatch(_ context.Context, bars []*models.Bar) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bars = append(m.bars, bars...)
	return nil
}

func (m *memBarStore) Health(context.Context) error { return nil }
func (m *memBarStore) Close() error                 { return nil }

func (m *memBarStore) stored() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.bars)
}

func collectorBar(asset string) *models.Bar {
	return &models.Bar{
		Timestamp: time.Now().UTC(),
		Asset:     asset,
		Open:      1.1,
		High:      1.2,
		Low:       1.0,
		Close:     1.15,
		Volume:    500,
	}
}

func TestCollectorStoresStreamedBars(t *testing.T) {
	pair := newStreamPair()
	stream := &scriptedStream{pairs: []*streamPair{pair}}
	store := &memBarStore{}
	proc := NewBarProcessor(nil, store, newFakeMetrics(), "clickhouse")
	c := NewBarCollector(stream, proc, newFakeMetrics(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, c.Start(ctx))

	pair.bars <- collectorBar("EURUSD")
	pair.bars <- collectorBar("EURUSD")

	require.Eventually(t, func() bool {
		return store.stored() == 2
	}, 2*time.Second, 10*time.Millisecond)
	assert.True(t, c.IsConnected())
}

func TestCollectorResumesAfterStreamFailure(t *testing.T) {
	first := newStreamPair()
	second := newStreamPair()
	stream := &scriptedStream{pairs: []*streamPair{first, second}}
	store := &memBarStore{}
	proc := NewBarProcessor(nil, store, newFakeMetrics(), "clickhouse")
	m := newFakeMetrics()
	c := NewBarCollector(stream, proc, m, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, c.Start(ctx))

	// the feed dies: error first, then both channels close like a real
	// read loop
	first.errs <- errors.New("connection reset")
	require.Eventually(t, func() bool {
		return m.errorCount("stream") == 1
	}, 2*time.Second, 10*time.Millisecond)
	close(first.errs)
	close(first.bars)

	// bars on the post-reconnect channels must still flow through
	second.bars <- collectorBar("GBPUSD")

	require.Eventually(t, func() bool {
		return store.stored() == 1
	}, 2*time.Second, 10*time.Millisecond)

	reads, reconnects := stream.counts()
	assert.Equal(t, 2, reads)
	assert.Equal(t, 1, reconnects)
	assert.Equal(t, 1, m.errorCount("stream"))
}
