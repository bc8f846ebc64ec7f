package di

import (
	"context"
	"fmt"
	"time"

	domrepo "QuantPulse/internal/domain/repository"
	"QuantPulse/internal/handler/api"
	mid "QuantPulse/internal/middleware"
	internalrepo "QuantPulse/internal/repository"
	icache "QuantPulse/internal/service/cache"
	"QuantPulse/internal/service/feed"
	"QuantPulse/internal/service/scheduler"
	"QuantPulse/internal/services/predictors"
	"QuantPulse/internal/usecase"
	pkgch "QuantPulse/pkg/clickhouse"
	"QuantPulse/pkg/config"
	xhttp "QuantPulse/pkg/http"
	pkgkafka "QuantPulse/pkg/kafka"

	applogger "QuantPulse/pkg/logger"
	"QuantPulse/pkg/metrics"
	"QuantPulse/pkg/server"
	segkafka "github.com/segmentio/kafka-go"
)

// ProvideLogger creates the application logger from config.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	return applogger.New(&applogger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() domrepo.Metrics {
	return metrics.New()
}

// ProvideClickHouseClient creates a ClickHouse client and ensures schema.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db := cfg.ClickHouse.Database
	if err := client.InitSchema(ctx, []string{
		"CREATE DATABASE IF NOT EXISTS " + db,
		"CREATE TABLE IF NOT EXISTS " + db + ".bars_1m (" +
			"ts DateTime, asset String, open Float64, high Float64, " +
			"low Float64, close Float64, vol Float64" +
			") ENGINE=MergeTree ORDER BY (asset, ts)",
	}); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, nil
}

// ProvideKafkaProducer creates a Kafka producer.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideBarStore creates the ClickHouse bar store.
func ProvideBarStore(chClient *pkgch.Client, cfg *config.Config, l *applogger.Logger) *internalrepo.ClickHouseBarStore {
	store := internalrepo.NewClickHouseBarStore(chClient, cfg.ClickHouse.Database+".bars_1m")
	store.SetLogger(l)
	return store
}

// ProvideBarStorage exposes the bar store write side.
func ProvideBarStorage(store *internalrepo.ClickHouseBarStore) domrepo.BarStorage {
	return store
}

// ProvideBarReader exposes the bar store read side.
func ProvideBarReader(store *internalrepo.ClickHouseBarStore) domrepo.BarReader {
	return store
}

// ProvideBarPublisher creates the Kafka bar publisher.
func ProvideBarPublisher(producer *pkgkafka.Producer, cfg *config.Config) domrepo.BarPublisher {
	return internalrepo.NewKafkaBarPublisher(producer, cfg.Kafka.Topic)
}

// ProvideBarStream selects the configured bar feed.
func ProvideBarStream(cfg *config.Config, l *applogger.Logger) domrepo.BarStream {
	if cfg.Feed.Mode == "websocket" {
		return feed.NewWebSocket(
			cfg.Feed.WebSocketURL,
			cfg.Feed.Assets,
			cfg.Feed.ReconnectDelay,
			cfg.Feed.PingInterval,
			l,
		)
	}
	return feed.NewSynthetic(cfg.Feed.Assets, cfg.Feed.Interval, cfg.Feed.StartPrice, cfg.Feed.Seed)
}

// ProvideBarProcessor creates the backend-routing bar processor.
func ProvideBarProcessor(
	pub domrepo.BarPublisher,
	store domrepo.BarStorage,
	m domrepo.Metrics,
	cfg *config.Config,
) *usecase.BarProcessor {
	return usecase.NewBarProcessor(pub, store, m, cfg.Backend.Type)
}

// ProvideBarCollector creates the feed collector with its pipeline.
func ProvideBarCollector(
	stream domrepo.BarStream,
	proc *usecase.BarProcessor,
	m domrepo.Metrics,
	cfg *config.Config,
) *usecase.BarCollector {
	pipe := mid.NewBarPipeline(proc, m,
		mid.WithMaxRPS(cfg.Pipeline.MaxRPS),
		mid.WithBufferSize(cfg.Pipeline.BufferSize),
	)
	return usecase.NewBarCollector(stream, proc, m, pipe)
}

// ProvideKafkaConsumer creates a Kafka consumer when the kafka backend
// is active; the clickhouse backend stores directly and needs none.
func ProvideKafkaConsumer(cfg *config.Config, m domrepo.Metrics, l *applogger.Logger) (*pkgkafka.Consumer, error) {
	if cfg.Backend.Type != "kafka" {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
		pkgkafka.WithConsumerLogger(l),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.WithConsumerHook(pkgkafka.NewHookChain(consumeObserverHook(m, l)))
	return consumer, nil
}

// consumeObserverHook stamps handling start time and trace id before
// each message and records consume latency and failures after it.
func consumeObserverHook(m domrepo.Metrics, l *applogger.Logger) pkgkafka.ConsumerHook {
	return pkgkafka.HookFuncs{
		Before: func(ctx context.Context, topic string, km segkafka.Message, data []byte) (context.Context, segkafka.Message, []byte, error) {
			ctx = pkgkafka.WithStartTime(ctx, time.Now())
			ctx = pkgkafka.WithTraceID(ctx, pkgkafka.ExtractTraceID(km))
			return ctx, km, data, nil
		},
		After: func(ctx context.Context, topic string, km segkafka.Message, data []byte, err error) {
			if start, ok := ctx.Value(pkgkafka.CtxStartTime).(time.Time); ok {
				m.RecordLatency("kafka_consume", time.Since(start).Seconds())
			}
		},
		Err: func(ctx context.Context, topic string, km segkafka.Message, data []byte, err error) {
			traceID, _ := ctx.Value(pkgkafka.CtxTraceID).(string)
			l.Error("consume failed",
				applogger.String("topic", topic),
				applogger.String("trace_id", traceID),
				applogger.Error(err),
			)
		},
	}
}

// ProvideKafkaBarsHandler registers the handler for the bars topic.
func ProvideKafkaBarsHandler(store domrepo.BarStorage, m domrepo.Metrics, cfg *config.Config) *usecase.KafkaBarsHandler {
	return usecase.NewKafkaBarsHandler(cfg.Kafka.Topic, store, m)
}

// ProvideSignalGenerator assembles the predictor ensemble.
func ProvideSignalGenerator(reader domrepo.BarReader, m domrepo.Metrics, l *applogger.Logger) *usecase.SignalGenerator {
	return usecase.NewSignalGenerator(
		reader,
		predictors.NewTrend(),
		predictors.NewMomentum(),
		predictors.NewAgent(),
		m,
		l,
	)
}

// ProvideBytesCache selects Redis when configured, in-process TTL otherwise.
func ProvideBytesCache(cfg *config.Config) icache.BytesCache {
	if cfg.Redis.Enabled && cfg.Redis.Addr != "" {
		return icache.NewRedisCache(icache.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	return icache.NewTTLCache()
}

// ProvideJournal opens the SQLite signal journal when enabled.
func ProvideJournal(cfg *config.Config) (domrepo.Journal, error) {
	if !cfg.Journal.Enabled {
		return nil, nil
	}
	path := cfg.Journal.Path
	if path == "" {
		path = "quantpulse.db"
	}
	j, err := internalrepo.NewSQLiteJournal(path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	return j, nil
}

// ProvideSignalSinks builds the dispatch fan-out list: log sink always,
// Kafka when a signals topic is configured, journal when enabled.
func ProvideSignalSinks(
	producer *pkgkafka.Producer,
	journal domrepo.Journal,
	cfg *config.Config,
	l *applogger.Logger,
) []domrepo.SignalSink {
	sinks := []domrepo.SignalSink{usecase.NewLogSink(l)}
	if cfg.Kafka.SignalsTopic != "" {
		sinks = append(sinks, internalrepo.NewKafkaSignalSink(producer, cfg.Kafka.SignalsTopic))
	}
	if js, ok := journal.(domrepo.SignalSink); ok && journal != nil {
		sinks = append(sinks, js)
	}
	return sinks
}

// ProvideSignalDispatcher creates the dispatcher.
func ProvideSignalDispatcher(
	sinks []domrepo.SignalSink,
	c icache.BytesCache,
	m domrepo.Metrics,
	l *applogger.Logger,
) *usecase.SignalDispatcher {
	return usecase.NewSignalDispatcher(sinks, c, m, l)
}

// ProvideBarsUseCase creates the stored-bars read use case.
func ProvideBarsUseCase(reader domrepo.BarReader) *usecase.BarsUseCase {
	return usecase.NewBarsUseCase(reader)
}

// ProvideBacktestRunner creates the backtest use case.
func ProvideBacktestRunner(
	reader domrepo.BarReader,
	gen *usecase.SignalGenerator,
	journal domrepo.Journal,
	m domrepo.Metrics,
	l *applogger.Logger,
) *usecase.BacktestRunner {
	return usecase.NewBacktestRunner(reader, gen, journal, m, l)
}

// ProvideScheduler creates the cron scheduler when enabled.
func ProvideScheduler(
	gen *usecase.SignalGenerator,
	disp *usecase.SignalDispatcher,
	cfg *config.Config,
	m domrepo.Metrics,
	l *applogger.Logger,
) *scheduler.Scheduler {
	if !cfg.Scheduler.Enabled {
		return nil
	}
	return scheduler.New(gen, disp, cfg.Feed.Assets, cfg.Engine.WindowBars, cfg.Scheduler.Cron, m, l)
}

// ProvideHTTPHandler creates the API handler.
func ProvideHTTPHandler(
	gen *usecase.SignalGenerator,
	disp *usecase.SignalDispatcher,
	bars *usecase.BarsUseCase,
	runner *usecase.BacktestRunner,
	store domrepo.BarStorage,
	l *applogger.Logger,
) xhttp.Handler {
	return api.NewSignalsHandler(gen, disp, bars, runner, store, l)
}

// ProvideApp assembles the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	collector *usecase.BarCollector,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaBarsHandler,
	chClient *pkgch.Client,
	disp *usecase.SignalDispatcher,
	sched *scheduler.Scheduler,
	handler xhttp.Handler,
) *server.App {
	return server.New(cfg, l, collector, consumer, kh, chClient, disp, sched, handler)
}
