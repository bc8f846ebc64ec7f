package api

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"QuantPulse/internal/domain/models"
	domrepo "QuantPulse/internal/domain/repository"
	icache "QuantPulse/internal/service/cache"
	"QuantPulse/internal/services/predictors"
	"QuantPulse/internal/usecase"
	applogger "QuantPulse/pkg/logger"
)

type fakeReader struct {
	bars []models.Bar
	err  error
}

func (r *fakeReader) GetBars(_ context.Context, asset string, _, _ time.Time, limit int) ([]models.Bar, error) {
	if r.err != nil {
		return nil, r.err
	}
	if limit < len(r.bars) {
		return r.bars[:limit], nil
	}
	return r.bars, nil
}

func (r *fakeReader) GetLatestNBars(_ context.Context, asset string, n int) ([]models.Bar, error) {
	if r.err != nil {
		return nil, r.err
	}
	if n >= len(r.bars) {
		return r.bars, nil
	}
	return r.bars[len(r.bars)-n:], nil
}

type nopMetrics struct{}

func (nopMetrics) RecordBarIngested(string, string) {}
func (nopMetrics) RecordSignal(string, string)      {}
func (nopMetrics) RecordError(string)               {}
func (nopMetrics) RecordLastPrice(string, float64)  {}
func (nopMetrics) RecordLatency(string, float64)    {}

type nopStorage struct{ err error }

func (nopStorage) Init(context.Context) error                      { return nil }
func (nopStorage) Store(context.Context, *models.Bar) error        { return nil }
func (nopStorage) StoreBatch(context.Context, []*models.Bar) error { return nil }
func (s nopStorage) Health(context.Context) error                  { return s.err }
func (nopStorage) Close() error                                    { return nil }

func window(n int) []models.Bar {
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	bars := make([]models.Bar, n)
	price := 1.1
	for i := range bars {
		price *= 1 + 0.0004*math.Sin(float64(i)/9)
		bars[i] = models.Bar{
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			Asset:     "EURUSD",
			Open:      price * 0.9995,
			High:      price * 1.0005,
			Low:       price * 0.999,
			Close:     price,
			Volume:    1000,
		}
	}
	return bars
}

func newHandler(t *testing.T, reader domrepo.BarReader) *SignalsHandler {
	t.Helper()
	l, err := applogger.New(&applogger.Config{Level: "error", Format: "console", Output: "stdout"})
	require.NoError(t, err)

	gen := usecase.NewSignalGenerator(
		reader,
		predictors.NewTrend(),
		predictors.NewMomentum(),
		predictors.NewAgent(),
		nopMetrics{},
		l,
	)
	disp := usecase.NewSignalDispatcher(nil, icache.NewTTLCache(), nopMetrics{}, l)
	bars := usecase.NewBarsUseCase(reader)
	runner := usecase.NewBacktestRunner(reader, gen, nil, nopMetrics{}, l)
	return NewSignalsHandler(gen, disp, bars, runner, nopStorage{}, l)
}

func doRequest(h *SignalsHandler, method, target string) *httptest.ResponseRecorder {
	e := echo.New()
	h.RegisterRoutes(e)
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

type apiEnvelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func TestSignalEndpoint(t *testing.T) {
	h := newHandler(t, &fakeReader{bars: window(120)})
	rec := doRequest(h, http.MethodGet, "/api/signal?asset=EURUSD&bars=120")

	require.Equal(t, http.StatusOK, rec.Code)
	var env apiEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.Equal(t, http.StatusOK, env.Status)

	var sig models.Signal
	require.NoError(t, json.Unmarshal(env.Data, &sig))
	assert.Equal(t, "EURUSD", sig.Asset)
	assert.NotEmpty(t, sig.ID)
	assert.Contains(t, []models.Direction{models.DirectionBuy, models.DirectionSell, models.DirectionHold}, sig.Direction)
	assert.GreaterOrEqual(t, sig.Confidence, 55.0)
	assert.LessOrEqual(t, sig.Confidence, 95.0)
}

func TestSignalEndpointMissingAsset(t *testing.T) {
	h := newHandler(t, &fakeReader{bars: window(120)})
	rec := doRequest(h, http.MethodGet, "/api/signal")

	var env apiEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, http.StatusBadRequest, env.Status)
}

func TestSignalEndpointShortHistory(t *testing.T) {
	h := newHandler(t, &fakeReader{bars: window(10)})
	rec := doRequest(h, http.MethodGet, "/api/signal?asset=EURUSD&bars=60")

	var env apiEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, http.StatusBadRequest, env.Status)
}

func TestRecentSignalsAfterGeneration(t *testing.T) {
	h := newHandler(t, &fakeReader{bars: window(120)})

	for i := 0; i < 3; i++ {
		doRequest(h, http.MethodGet, "/api/signal?asset=EURUSD&bars=120")
	}
	rec := doRequest(h, http.MethodGet, "/api/signals/recent?limit=2")

	var env apiEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.Equal(t, http.StatusOK, env.Status)

	var list struct {
		Rows  []models.Signal `json:"rows"`
		Total int64           `json:"total"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Len(t, list.Rows, 2)
}

func TestBarsEndpoint(t *testing.T) {
	h := newHandler(t, &fakeReader{bars: window(30)})
	rec := doRequest(h, http.MethodGet, "/api/bars?asset=EURUSD&limit=30")

	var env apiEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.Equal(t, http.StatusOK, env.Status)

	var list struct {
		Rows  []models.Bar `json:"rows"`
		Total int64        `json:"total"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Len(t, list.Rows, 30)
	assert.Equal(t, int64(30), list.Total)
}

func TestHealthzDegradedStorage(t *testing.T) {
	l, err := applogger.New(&applogger.Config{Level: "error", Format: "console", Output: "stdout"})
	require.NoError(t, err)
	reader := &fakeReader{bars: window(60)}
	gen := usecase.NewSignalGenerator(reader, predictors.NewTrend(), predictors.NewMomentum(), predictors.NewAgent(), nopMetrics{}, l)
	disp := usecase.NewSignalDispatcher(nil, icache.NewTTLCache(), nopMetrics{}, l)
	h := NewSignalsHandler(gen, disp, usecase.NewBarsUseCase(reader), usecase.NewBacktestRunner(reader, gen, nil, nopMetrics{}, l), nopStorage{err: context.DeadlineExceeded}, l)

	rec := doRequest(h, http.MethodGet, "/healthz")
	var env apiEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, 503, env.Status)
}
