package usecase

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"QuantPulse/internal/domain/models"
	domrepo "QuantPulse/internal/domain/repository"
	"QuantPulse/internal/service/cache"
	applogger "QuantPulse/pkg/logger"
)

const (
	recentSignalsCap = 50
	latestSignalTTL  = 5 * time.Minute
)

// SignalDispatcher fans completed signals out to in-process subscribers
// and configured sinks, keeps a bounded ring of recent signals, and
// caches the latest signal per asset. Sink and subscriber failures are
// recorded but never surfaced to the generator.
type SignalDispatcher struct {
	mu     sync.RWMutex
	subs   map[int]func(models.Signal)
	nextID int
	recent []models.Signal

	sinks   []domrepo.SignalSink
	cache   cache.BytesCache
	metrics domrepo.Metrics
	log     *applogger.Logger
}

func NewSignalDispatcher(sinks []domrepo.SignalSink, c cache.BytesCache, metrics domrepo.Metrics, log *applogger.Logger) *SignalDispatcher {
	return &SignalDispatcher{
		subs:    make(map[int]func(models.Signal)),
		recent:  make([]models.Signal, 0, recentSignalsCap),
		sinks:   sinks,
		cache:   c,
		metrics: metrics,
		log:     log,
	}
}

// Subscribe registers an in-process callback. The returned function
// removes it.
func (d *SignalDispatcher) Subscribe(fn func(models.Signal)) func() {
	d.mu.Lock()
	id := d.nextID
	d.nextID++
	d.subs[id] = fn
	d.mu.Unlock()
	return func() {
		d.mu.Lock()
		delete(d.subs, id)
		d.mu.Unlock()
	}
}

// Dispatch delivers a signal everywhere: ring, cache, subscribers,
// sinks. Subscribers run synchronously on the caller's goroutine.
func (d *SignalDispatcher) Dispatch(ctx context.Context, sig models.Signal) {
	d.mu.Lock()
	d.recent = append(d.recent, sig)
	if len(d.recent) > recentSignalsCap {
		d.recent = d.recent[len(d.recent)-recentSignalsCap:]
	}
	subs := make([]func(models.Signal), 0, len(d.subs))
	for _, fn := range d.subs {
		subs = append(subs, fn)
	}
	d.mu.Unlock()

	if d.cache != nil {
		if b, err := json.Marshal(sig); err == nil {
			if err := d.cache.SetBytes("signal:latest:"+sig.Asset, b, latestSignalTTL); err != nil {
				d.metrics.RecordError("dispatch_cache")
			}
		}
	}

	for _, fn := range subs {
		d.notify(fn, sig)
	}

	for _, sink := range d.sinks {
		if err := sink.Deliver(ctx, sig); err != nil {
			d.metrics.RecordError("sink_" + sink.Name())
			if d.log != nil {
				d.log.Warn("signal sink delivery failed",
					applogger.String("sink", sink.Name()),
					applogger.String("asset", sig.Asset),
					applogger.Error(err),
				)
			}
		}
	}
}

// notify shields the dispatcher from a panicking subscriber.
func (d *SignalDispatcher) notify(fn func(models.Signal), sig models.Signal) {
	defer func() {
		if r := recover(); r != nil {
			d.metrics.RecordError("subscriber_panic")
			if d.log != nil {
				d.log.Warn("signal subscriber panicked", applogger.Any("panic", r))
			}
		}
	}()
	fn(sig)
}

// Recent returns up to limit most recent signals, newest first.
func (d *SignalDispatcher) Recent(limit int) []models.Signal {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if limit <= 0 || limit > len(d.recent) {
		limit = len(d.recent)
	}
	out := make([]models.Signal, 0, limit)
	for i := len(d.recent) - 1; i >= len(d.recent)-limit; i-- {
		out = append(out, d.recent[i])
	}
	return out
}

// Latest returns the cached latest signal for an asset, if any.
func (d *SignalDispatcher) Latest(asset string) (models.Signal, bool) {
	if d.cache == nil {
		return models.Signal{}, false
	}
	b, ok, err := d.cache.GetBytes("signal:latest:" + asset)
	if err != nil || !ok {
		return models.Signal{}, false
	}
	var sig models.Signal
	if err := json.Unmarshal(b, &sig); err != nil {
		return models.Signal{}, false
	}
	return sig, true
}

// Close closes every sink.
func (d *SignalDispatcher) Close() {
	for _, sink := range d.sinks {
		_ = sink.Close()
	}
}

// LogSink is the fallback delivery channel: it just logs the signal.
type LogSink struct {
	log *applogger.Logger
}

func NewLogSink(log *applogger.Logger) *LogSink { return &LogSink{log: log} }

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) Deliver(_ context.Context, sig models.Signal) error {
	s.log.Info("signal",
		applogger.String("asset", sig.Asset),
		applogger.String("direction", string(sig.Direction)),
		applogger.Float64("confidence", sig.Confidence),
		applogger.String("size", string(sig.PositionSize)),
		applogger.String("model", sig.ModelType+"/"+sig.ModelVersion),
	)
	return nil
}

func (s *LogSink) Close() error { return nil }

var _ domrepo.SignalSink = (*LogSink)(nil)
