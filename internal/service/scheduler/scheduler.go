// Package scheduler runs periodic signal generation on a cron spec.
package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/robfig/cron/v3"

	domrepo "QuantPulse/internal/domain/repository"
	"QuantPulse/internal/service/ratelimit"
	"QuantPulse/internal/usecase"
	applogger "QuantPulse/pkg/logger"
)

// Scheduler generates and dispatches a signal for every configured
// asset on each cron tick. A per-asset token bucket absorbs overlapping
// ticks so a slow storage read cannot pile up generations.
type Scheduler struct {
	cron    *cron.Cron
	gen     *usecase.SignalGenerator
	disp    *usecase.SignalDispatcher
	limiter *ratelimit.Limiter
	assets  []string
	window  int
	spec    string
	metrics domrepo.Metrics
	log     *applogger.Logger
}

func New(
	gen *usecase.SignalGenerator,
	disp *usecase.SignalDispatcher,
	assets []string,
	window int,
	spec string,
	metrics domrepo.Metrics,
	log *applogger.Logger,
) *Scheduler {
	if spec == "" {
		spec = "* * * * *" // every minute
	}
	if window < usecase.MinBars {
		window = 200
	}
	return &Scheduler{
		cron:    cron.New(),
		gen:     gen,
		disp:    disp,
		limiter: ratelimit.New(),
		assets:  assets,
		window:  window,
		spec:    spec,
		metrics: metrics,
		log:     log,
	}
}

// Start registers the cron entry and starts ticking.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.spec, func() { s.tick(ctx) })
	if err != nil {
		return err
	}
	s.cron.Start()
	if s.log != nil {
		s.log.Info("scheduler started",
			applogger.String("spec", s.spec),
			applogger.Strings("assets", s.assets),
		)
	}
	return nil
}

func (s *Scheduler) tick(ctx context.Context) {
	for _, asset := range s.assets {
		// at most one generation per asset per second of refill
		if !s.limiter.Allow(asset, 1, 1) {
			s.metrics.RecordError("scheduler_throttle")
			continue
		}
		tickCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		sig, err := s.gen.Generate(tickCtx, asset, s.window)
		cancel()
		if err != nil {
			// short history right after startup is expected, not noise
			if errors.Is(err, usecase.ErrInsufficientBars) {
				s.metrics.RecordError("scheduler_warmup")
				continue
			}
			s.metrics.RecordError("scheduler_generate")
			if s.log != nil {
				s.log.Warn("scheduled generation failed",
					applogger.String("asset", asset),
					applogger.Error(err),
				)
			}
			continue
		}
		s.disp.Dispatch(ctx, sig)
	}
}

// Stop stops the cron loop and waits for a running tick to finish.
func (s *Scheduler) Stop() {
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	if s.log != nil {
		s.log.Info("scheduler stopped")
	}
}
