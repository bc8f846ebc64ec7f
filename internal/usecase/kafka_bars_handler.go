package usecase

import (
	"context"
	"encoding/json"
	"time"

	"QuantPulse/internal/domain/models"
	domrepo "QuantPulse/internal/domain/repository"
	pkgkafka "QuantPulse/pkg/kafka"
)

// KafkaBarsHandler consumes bar messages from Kafka and writes them to
// storage.
type KafkaBarsHandler struct {
	topic   string
	storage domrepo.BarStorage
	metrics domrepo.Metrics
}

func NewKafkaBarsHandler(topic string, storage domrepo.BarStorage, metrics domrepo.Metrics) *KafkaBarsHandler {
	return &KafkaBarsHandler{topic: topic, storage: storage, metrics: metrics}
}

func (h *KafkaBarsHandler) Topic() string { return h.topic }

// incoming message schema: {asset, t, o, h, l, c, v}
func (h *KafkaBarsHandler) Handle(ctx context.Context, b []byte) error {
	var m struct {
		Asset string  `json:"asset"`
		T     int64   `json:"t"`
		O     float64 `json:"o"`
		H     float64 `json:"h"`
		L     float64 `json:"l"`
		C     float64 `json:"c"`
		V     float64 `json:"v"`
	}
	if err := json.Unmarshal(b, &m); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return err
	}
	if m.T > 1e11 { // ms
		m.T = m.T / 1000
	}
	// E2E latency from event time to now (approx)
	h.metrics.RecordLatency("ingest_e2e_seconds", time.Since(time.Unix(m.T, 0)).Seconds())

	start := time.Now()
	err := h.storage.Store(ctx, &models.Bar{
		Timestamp: time.Unix(m.T, 0).UTC(),
		Asset:     m.Asset,
		Open:      m.O,
		High:      m.H,
		Low:       m.L,
		Close:     m.C,
		Volume:    m.V,
	})
	h.metrics.RecordLatency("ch_insert_seconds", time.Since(start).Seconds())
	if err != nil {
		h.metrics.RecordError("consumer_store")
		return err
	}
	h.metrics.RecordBarIngested("clickhouse", m.Asset)
	return nil
}

var _ pkgkafka.MessageHandler = (*KafkaBarsHandler)(nil)
