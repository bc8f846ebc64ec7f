package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"QuantPulse/internal/domain/models"
	domrepo "QuantPulse/internal/domain/repository"
	"QuantPulse/internal/service/cache"
)

type recordingSink struct {
	name     string
	received []models.Signal
	err      error
}

func (s *recordingSink) Name() string { return s.name }
func (s *recordingSink) Deliver(_ context.Context, sig models.Signal) error {
	s.received = append(s.received, sig)
	return s.err
}
func (s *recordingSink) Close() error { return nil }

func testSignal(id, asset string) models.Signal {
	return models.Signal{
		ID:           id,
		Timestamp:    time.Now().UTC(),
		Asset:        asset,
		Direction:    models.DirectionBuy,
		Confidence:   72,
		PositionSize: models.SizeMedium,
		ModelVersion: "v2.1.0",
		ModelType:    "ensemble",
	}
}

func TestDispatchReachesSubscribersAndSinks(t *testing.T) {
	sink := &recordingSink{name: "test"}
	d := NewSignalDispatcher([]domrepo.SignalSink{sink}, nil, newFakeMetrics(), nil)

	var got []models.Signal
	unsub := d.Subscribe(func(s models.Signal) { got = append(got, s) })
	defer unsub()

	sig := testSignal("s1", "EURUSD")
	d.Dispatch(context.Background(), sig)

	require.Len(t, got, 1)
	assert.Equal(t, "s1", got[0].ID)
	require.Len(t, sink.received, 1)
	assert.Equal(t, "s1", sink.received[0].ID)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	d := NewSignalDispatcher(nil, nil, newFakeMetrics(), nil)

	var count int
	unsub := d.Subscribe(func(models.Signal) { count++ })
	d.Dispatch(context.Background(), testSignal("s1", "EURUSD"))
	unsub()
	d.Dispatch(context.Background(), testSignal("s2", "EURUSD"))

	assert.Equal(t, 1, count)
}

func TestSinkErrorNotPropagated(t *testing.T) {
	failing := &recordingSink{name: "down", err: errors.New("broker unavailable")}
	healthy := &recordingSink{name: "up"}
	metrics := newFakeMetrics()
	d := NewSignalDispatcher([]domrepo.SignalSink{failing, healthy}, nil, metrics, nil)

	d.Dispatch(context.Background(), testSignal("s1", "EURUSD"))

	// the failure is counted and the next sink still delivers
	assert.Equal(t, 1, metrics.errors["sink_down"])
	assert.Len(t, healthy.received, 1)
}

func TestSubscriberPanicContained(t *testing.T) {
	d := NewSignalDispatcher(nil, nil, newFakeMetrics(), nil)
	d.Subscribe(func(models.Signal) { panic("boom") })

	var delivered bool
	d.Subscribe(func(models.Signal) { delivered = true })

	assert.NotPanics(t, func() {
		d.Dispatch(context.Background(), testSignal("s1", "EURUSD"))
	})
	assert.True(t, delivered)
}

func TestRecentRingNewestFirst(t *testing.T) {
	d := NewSignalDispatcher(nil, nil, newFakeMetrics(), nil)
	for i := 0; i < 60; i++ {
		d.Dispatch(context.Background(), testSignal(string(rune('a'+i%26))+"-sig", "EURUSD"))
	}

	all := d.Recent(0)
	assert.Len(t, all, recentSignalsCap)

	top := d.Recent(5)
	require.Len(t, top, 5)
	assert.Equal(t, all[0].ID, top[0].ID)
}

func TestLatestFromCache(t *testing.T) {
	c := cache.NewTTLCache()
	d := NewSignalDispatcher(nil, c, newFakeMetrics(), nil)

	_, ok := d.Latest("EURUSD")
	assert.False(t, ok)

	sig := testSignal("s1", "EURUSD")
	d.Dispatch(context.Background(), sig)

	got, ok := d.Latest("EURUSD")
	require.True(t, ok)
	assert.Equal(t, sig.ID, got.ID)

	_, ok = d.Latest("GBPUSD")
	assert.False(t, ok)
}
