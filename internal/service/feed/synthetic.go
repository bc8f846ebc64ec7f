package feed

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"QuantPulse/internal/domain/models"
	drepo "QuantPulse/internal/domain/repository"
)

// Synthetic implements a BarStream that emits random-walk bars with a
// slow sinusoidal drift, one per asset per interval. Useful for local
// runs without an external feed; with a fixed seed the walk is
// reproducible.
type Synthetic struct {
	assets     []string
	interval   time.Duration
	startPrice float64
	seed       int64

	mu        sync.Mutex
	rng       *rand.Rand
	prices    map[string]float64
	steps     map[string]int
	connected bool
}

// NewSynthetic creates a synthetic bar stream. interval defaults to one
// minute, startPrice to 100, and seed 0 means a time-based seed.
func NewSynthetic(assets []string, interval time.Duration, startPrice float64, seed int64) *Synthetic {
	if interval <= 0 {
		interval = time.Minute
	}
	if startPrice <= 0 {
		startPrice = 100
	}
	return &Synthetic{
		assets:     assets,
		interval:   interval,
		startPrice: startPrice,
		seed:       seed,
	}
}

var _ drepo.BarStream = (*Synthetic)(nil)

func (s *Synthetic) Connect(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	seed := s.seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	s.rng = rand.New(rand.NewSource(seed))
	s.prices = make(map[string]float64, len(s.assets))
	s.steps = make(map[string]int, len(s.assets))
	for _, a := range s.assets {
		s.prices[a] = s.startPrice
	}
	s.connected = true
	return nil
}

func (s *Synthetic) Subscribe(context.Context) error {
	if !s.IsConnected() {
		return fmt.Errorf("synthetic feed not connected")
	}
	return nil
}

func (s *Synthetic) Read(ctx context.Context) (<-chan *models.Bar, <-chan error) {
	bars := make(chan *models.Bar, 256)
	errs := make(chan error, 1)

	go func() {
		defer close(bars)
		defer close(errs)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				for _, a := range s.assets {
					b := s.nextBar(a, now.UTC())
					select {
					case bars <- b:
					default:
						// drop on backpressure
					}
				}
			}
		}
	}()

	return bars, errs
}

func (s *Synthetic) nextBar(asset string, ts time.Time) *models.Bar {
	s.mu.Lock()
	defer s.mu.Unlock()
	open := s.prices[asset]
	step := s.steps[asset]
	close_ := evolve(open, step, s.rng)
	s.prices[asset] = close_
	s.steps[asset] = step + 1

	high, low := open, close_
	if close_ > open {
		high, low = close_, open
	}
	high *= 1 + s.rng.Float64()*0.0005
	low *= 1 - s.rng.Float64()*0.0005

	return &models.Bar{
		Timestamp: ts,
		Asset:     asset,
		Open:      open,
		High:      high,
		Low:       low,
		Close:     close_,
		Volume:    500 + s.rng.Float64()*1000,
	}
}

func (s *Synthetic) Reconnect(ctx context.Context) error { return s.Connect(ctx) }

func (s *Synthetic) Close() error {
	s.mu.Lock()
	s.connected = false
	s.mu.Unlock()
	return nil
}

func (s *Synthetic) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// evolve advances a price one step: uniform noise plus a slow
// sinusoidal drift so indicators see both trending and ranging phases.
func evolve(price float64, step int, rng *rand.Rand) float64 {
	noise := (rng.Float64()*2 - 1) * price * 0.001
	drift := math.Sin(float64(step)/50) * price * 0.0005
	next := price + noise + drift
	if next <= 0 {
		next = price
	}
	return next
}

// GenerateHistory produces n 1-minute bars for an asset ending at end,
// using the same walk as the live synthetic stream. Deterministic for a
// given seed.
func GenerateHistory(asset string, n int, startPrice float64, seed int64, end time.Time) []models.Bar {
	if startPrice <= 0 {
		startPrice = 100
	}
	if end.IsZero() {
		end = time.Now().UTC()
	}
	rng := rand.New(rand.NewSource(seed))
	bars := make([]models.Bar, 0, n)
	price := startPrice
	start := end.Add(-time.Duration(n-1) * time.Minute)
	for i := 0; i < n; i++ {
		open := price
		price = evolve(price, i, rng)
		high, low := open, price
		if price > open {
			high, low = price, open
		}
		bars = append(bars, models.Bar{
			Timestamp: start.Add(time.Duration(i) * time.Minute),
			Asset:     asset,
			Open:      open,
			High:      high,
			Low:       low,
			Close:     price,
			Volume:    500 + rng.Float64()*1000,
		})
	}
	return bars
}
