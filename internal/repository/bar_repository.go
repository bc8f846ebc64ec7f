package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"QuantPulse/internal/domain/models"
	"QuantPulse/internal/domain/repository"
	pkgch "QuantPulse/pkg/clickhouse"
	pkgkafka "QuantPulse/pkg/kafka"
	applogger "QuantPulse/pkg/logger"
)

// ClickHouseBarStore implements both sides of the bar store (BarStorage
// writes, BarReader reads) on one ClickHouse table.
type ClickHouseBarStore struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

// NewClickHouseBarStore creates ClickHouse-backed bar storage.
func NewClickHouseBarStore(ch *pkgch.Client, table string) *ClickHouseBarStore {
	return &ClickHouseBarStore{db: ch.DB(), table: table}
}

// SetLogger injects a structured logger.
func (s *ClickHouseBarStore) SetLogger(l *applogger.Logger) { s.l = l }

// Init is a no-op; the schema is ensured at startup when the client
// connects.
func (s *ClickHouseBarStore) Init(ctx context.Context) error {
	return nil
}

func (s *ClickHouseBarStore) Store(ctx context.Context, b *models.Bar) error {
	q := fmt.Sprintf("INSERT INTO %s (ts, asset, open, high, low, close, vol) VALUES (?, ?, ?, ?, ?, ?, ?)", s.table)
	_, err := s.db.ExecContext(ctx, q,
		b.Timestamp,
		b.Asset,
		b.Open,
		b.High,
		b.Low,
		b.Close,
		b.Volume,
	)
	return err
}

func (s *ClickHouseBarStore) StoreBatch(ctx context.Context, bars []*models.Bar) error {
	if len(bars) == 0 {
		return nil
	}
	// Multi-row VALUES insert, chunked to bound statement size.
	const chunkSize = 2000
	for start := 0; start < len(bars); start += chunkSize {
		end := start + chunkSize
		if end > len(bars) {
			end = len(bars)
		}

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*7)
		for _, b := range bars[start:end] {
			if b == nil || b.Asset == "" || b.Timestamp.IsZero() {
				continue
			}
			values = append(values, "(?, ?, ?, ?, ?, ?, ?)")
			args = append(args, b.Timestamp, b.Asset, b.Open, b.High, b.Low, b.Close, b.Volume)
		}
		if len(values) == 0 {
			continue
		}
		q := fmt.Sprintf("INSERT INTO %s (ts, asset, open, high, low, close, vol) VALUES %s", s.table, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return err
		}
	}
	return nil
}

func (s *ClickHouseBarStore) GetBars(ctx context.Context, asset string, from, to time.Time, limit int) ([]models.Bar, error) {
	start := time.Now()
	if to.IsZero() {
		to = time.Now().UTC()
	}
	if limit <= 0 {
		limit = 10000
	}
	q := fmt.Sprintf(`
        SELECT ts, asset, open, high, low, close, vol
        FROM %s
        WHERE asset = ? AND ts >= ? AND ts <= ?
        ORDER BY ts ASC
        LIMIT ?
    `, s.table)
	rows, err := s.db.QueryContext(ctx, q, asset, from, to, limit)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse get_bars query error",
				applogger.String("asset", asset),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("get bars: %w", err)
	}
	defer rows.Close()

	out := make([]models.Bar, 0, 1024)
	for rows.Next() {
		var b models.Bar
		if err := rows.Scan(&b.Timestamp, &b.Asset, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("scan bar: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	if s.l != nil {
		s.l.Debug("clickhouse get_bars ok",
			applogger.String("asset", asset),
			applogger.Int("rows", len(out)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return out, nil
}

func (s *ClickHouseBarStore) GetLatestNBars(ctx context.Context, asset string, n int) ([]models.Bar, error) {
	start := time.Now()
	q := fmt.Sprintf(`
        SELECT ts, asset, open, high, low, close, vol
        FROM %s
        WHERE asset = ?
        ORDER BY ts DESC
        LIMIT ?
    `, s.table)
	rows, err := s.db.QueryContext(ctx, q, asset, n)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse latest_bars query error",
				applogger.String("asset", asset),
				applogger.Int("limit", n),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("get latest bars: %w", err)
	}
	defer rows.Close()

	tmp := make([]models.Bar, 0, n)
	for rows.Next() {
		var b models.Bar
		if err := rows.Scan(&b.Timestamp, &b.Asset, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("scan bar: %w", err)
		}
		tmp = append(tmp, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	// reverse to ASC
	for i, j := 0, len(tmp)-1; i < j; i, j = i+1, j-1 {
		tmp[i], tmp[j] = tmp[j], tmp[i]
	}
	if s.l != nil {
		s.l.Debug("clickhouse latest_bars ok",
			applogger.String("asset", asset),
			applogger.Int("rows", len(tmp)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return tmp, nil
}

func (s *ClickHouseBarStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *ClickHouseBarStore) Close() error {
	return nil // Managed by pkg
}

var (
	_ repository.BarStorage = (*ClickHouseBarStore)(nil)
	_ repository.BarReader  = (*ClickHouseBarStore)(nil)
)

// KafkaBarPublisher implements BarPublisher for Kafka.
type KafkaBarPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaBarPublisher creates a Kafka bar publisher.
func NewKafkaBarPublisher(producer *pkgkafka.Producer, topic string) repository.BarPublisher {
	return &KafkaBarPublisher{producer: producer, topic: topic}
}

func barPayload(b *models.Bar) map[string]interface{} {
	return map[string]interface{}{
		"asset": b.Asset,
		"t":     b.Timestamp.Unix(),
		"o":     b.Open,
		"h":     b.High,
		"l":     b.Low,
		"c":     b.Close,
		"v":     b.Volume,
	}
}

func (p *KafkaBarPublisher) Publish(ctx context.Context, b *models.Bar) error {
	return p.producer.Publish(ctx, p.topic, []byte(b.Asset), barPayload(b))
}

func (p *KafkaBarPublisher) PublishBatch(ctx context.Context, bars []*models.Bar) error {
	if len(bars) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, len(bars))
	for i, b := range bars {
		msgs[i] = pkgkafka.Message{
			Key:   []byte(b.Asset),
			Value: barPayload(b),
		}
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

func (p *KafkaBarPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
