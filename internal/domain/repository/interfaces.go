package repository

import (
	"context"
	"time"

	"QuantPulse/internal/domain/models"
)

// BarStream is a live source of 1-minute bars (websocket feed or the
// synthetic generator).
type BarStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.Bar, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// BarPublisher pushes bars onto a message bus.
type BarPublisher interface {
	Publish(ctx context.Context, b *models.Bar) error
	PublishBatch(ctx context.Context, bars []*models.Bar) error
	Close() error
}

// BarStorage is the write side of the bar store.
type BarStorage interface {
	Init(ctx context.Context) error // ensure tables
	Store(ctx context.Context, b *models.Bar) error
	StoreBatch(ctx context.Context, bars []*models.Bar) error
	Health(ctx context.Context) error // ping
	Close() error
}

// BarReader is the read side of the bar store, feeding signal
// generation and backtests. Results are ordered by timestamp ascending.
type BarReader interface {
	GetBars(ctx context.Context, asset string, from, to time.Time, limit int) ([]models.Bar, error)
	GetLatestNBars(ctx context.Context, asset string, n int) ([]models.Bar, error)
}

// SignalSink receives dispatched signals. Delivery failures are the
// sink's problem to report; the dispatcher logs and moves on.
type SignalSink interface {
	Name() string
	Deliver(ctx context.Context, sig models.Signal) error
	Close() error
}

// Journal is the append-only record of dispatched signals and completed
// backtest runs.
type Journal interface {
	RecordSignal(ctx context.Context, sig models.Signal) error
	RecordBacktest(ctx context.Context, res models.BacktestResult) error
	RecentSignals(ctx context.Context, limit int) ([]models.Signal, error)
	Close() error
}

// Metrics abstracts the Prometheus recorder.
type Metrics interface {
	RecordBarIngested(backend, asset string)
	RecordSignal(asset, direction string)
	RecordError(kind string)
	RecordLastPrice(asset string, price float64)
	RecordLatency(op string, seconds float64)
}
