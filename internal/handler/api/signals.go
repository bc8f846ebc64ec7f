package api

import (
	"context"
	"errors"
	"time"

	"QuantPulse/internal/domain/models"
	domrepo "QuantPulse/internal/domain/repository"
	"QuantPulse/internal/service/ratelimit"
	"QuantPulse/internal/usecase"
	xhttp "QuantPulse/pkg/http"
	applogger "QuantPulse/pkg/logger"

	"github.com/labstack/echo/v4"
)

// SignalsHandler exposes the signal, bars, and backtest API over Echo.
type SignalsHandler struct {
	gen     *usecase.SignalGenerator
	disp    *usecase.SignalDispatcher
	bars    *usecase.BarsUseCase
	runner  *usecase.BacktestRunner
	storage domrepo.BarStorage
	rl      *ratelimit.Limiter
	logger  *applogger.Logger
	started time.Time
}

func NewSignalsHandler(
	gen *usecase.SignalGenerator,
	disp *usecase.SignalDispatcher,
	bars *usecase.BarsUseCase,
	runner *usecase.BacktestRunner,
	storage domrepo.BarStorage,
	logger *applogger.Logger,
) *SignalsHandler {
	return &SignalsHandler{
		gen:     gen,
		disp:    disp,
		bars:    bars,
		runner:  runner,
		storage: storage,
		rl:      ratelimit.New(),
		logger:  logger,
		started: time.Now(),
	}
}

var _ xhttp.Handler = (*SignalsHandler)(nil)

func (h *SignalsHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/signal", h.Signal)
	g.GET("/signals/recent", h.RecentSignals)
	g.GET("/bars", h.Bars)
	g.POST("/backtest", h.Backtest)
	e.GET("/healthz", h.Health)
}

// Signal generates a signal on demand from the latest stored bars and
// dispatches it through the configured sinks.
func (h *SignalsHandler) Signal(c echo.Context) error {
	req := &models.SignalRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if !h.rl.Allow(c.RealIP()+":signal", 5, 2) {
		return xhttp.AppErrorResponse(c, xhttp.NewAppError("ERR_RATE_LIMITED", "", "too many requests", 429))
	}

	sig, err := h.gen.Generate(c.Request().Context(), req.Asset, req.Bars)
	if err != nil {
		if errors.Is(err, usecase.ErrInsufficientBars) {
			return xhttp.AppErrorResponse(c,
				xhttp.BadRequestErrorf("not enough history for %s", req.Asset).WithError(err))
		}
		h.logger.Error("signal generation error",
			applogger.String("asset", req.Asset),
			applogger.Error(err),
		)
		return xhttp.AppErrorResponse(c, err)
	}
	h.disp.Dispatch(c.Request().Context(), sig)

	return xhttp.SuccessResponse(c, sig)
}

// RecentSignals returns the most recently dispatched signals, newest first.
func (h *SignalsHandler) RecentSignals(c echo.Context) error {
	req := &models.RecentSignalsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	signals := h.disp.Recent(req.Limit)
	return xhttp.ListResponse(c, signals, int64(len(signals)))
}

// Bars returns stored bars for an asset and optional time range.
func (h *SignalsHandler) Bars(c echo.Context) error {
	req := &models.BarsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	from := xhttp.ParseTimeDefault(req.From, time.Time{})
	to := xhttp.ParseTimeDefault(req.To, time.Time{})

	res, err := h.bars.GetBars(c.Request().Context(), usecase.GetBarsParams{
		Asset: req.Asset,
		From:  from,
		To:    to,
		Limit: req.Limit,
	})
	if err != nil {
		h.logger.Error("bars read error",
			applogger.String("asset", req.Asset),
			applogger.Error(err),
		)
		return xhttp.AppErrorResponse(c, err)
	}

	return xhttp.ListResponse(c, res.Bars, int64(res.Count))
}

// Backtest runs a backtest over stored bars for an asset and time range.
func (h *SignalsHandler) Backtest(c echo.Context) error {
	req := &models.BacktestRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	// backtests read large ranges; keep concurrent runs per caller low
	if !h.rl.Allow(c.RealIP()+":backtest", 2, 1) {
		return xhttp.AppErrorResponse(c, xhttp.NewAppError("ERR_RATE_LIMITED", "", "too many requests", 429))
	}

	from := xhttp.ParseTimeDefault(req.From, time.Time{})
	to := xhttp.ParseTimeDefault(req.To, time.Time{})

	result, err := h.runner.Run(c.Request().Context(), usecase.RunParams{
		Asset:          req.Asset,
		From:           from,
		To:             to,
		InitialBalance: req.InitialBalance,
		SignalEvery:    req.SignalEvery,
	})
	if err != nil {
		if errors.Is(err, usecase.ErrInsufficientBars) {
			return xhttp.AppErrorResponse(c,
				xhttp.BadRequestErrorf("not enough history for %s", req.Asset).WithError(err))
		}
		h.logger.Error("backtest error",
			applogger.String("asset", req.Asset),
			applogger.Error(err),
		)
		return xhttp.AppErrorResponse(c, err)
	}

	return xhttp.SuccessResponse(c, result)
}

// Health reports process uptime and storage reachability.
func (h *SignalsHandler) Health(c echo.Context) error {
	status := map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(h.started).Round(time.Second).String(),
	}
	if h.storage != nil {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := h.storage.Health(ctx); err != nil {
			status["status"] = "degraded"
			status["storage"] = err.Error()
			return xhttp.DataResponse(c, 503, status)
		}
		status["storage"] = "ok"
	}
	return xhttp.SuccessResponse(c, status)
}
