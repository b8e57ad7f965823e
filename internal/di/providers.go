package di

import (
	"context"
	"fmt"
	"time"

	"CellScope/internal/domain/repository"
	"CellScope/internal/handler/api"
	mid "CellScope/internal/middleware"
	internalrepo "CellScope/internal/repository"
	icache "CellScope/internal/service/cache"
	"CellScope/internal/service/cyclergate"
	"CellScope/internal/services/detectors"
	"CellScope/internal/usecase"
	pkgch "CellScope/pkg/clickhouse"
	"CellScope/pkg/config"
	xhttp "CellScope/pkg/http"
	pkgkafka "CellScope/pkg/kafka"
	applogger "CellScope/pkg/logger"
	"CellScope/pkg/metrics"
	"CellScope/pkg/server"
)

// ProvideClickHouseClient creates a ClickHouse client.
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

	if err := client.InitSchema(ctx, []string{
		"CREATE DATABASE IF NOT EXISTS cellscope",
	}); err != nil {
		_ = client.Close() // cannot log here (DI layer no logger); propagate error
		return nil, fmt.Errorf("clickhouse database: %w", err)
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

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideCycleStore creates the ClickHouse-backed cycle store and its schema.
func ProvideCycleStore(chClient *pkgch.Client) (repository.CycleStore, error) {
	store := internalrepo.NewCHCycleStore(chClient)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := store.Init(ctx); err != nil {
		return nil, fmt.Errorf("cycle store schema: %w", err)
	}
	return store, nil
}

// ProvideCyclePublisher creates Kafka publisher repository.
func ProvideCyclePublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.Publisher {
	return internalrepo.NewKafkaPublisher(producer, cfg.Kafka.Topic)
}

// ProvideKafkaConsumer creates a Kafka consumer configured from YAML.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideKafkaCyclesHandler registers the handler for the cycles topic.
func ProvideKafkaCyclesHandler(store repository.CycleStore, metrics repository.Metrics, cfg *config.Config) *usecase.KafkaCyclesHandler {
	return usecase.NewKafkaCyclesHandler(cfg.Kafka.Topic, store, metrics)
}

// ProvideCycleStream creates the cycler gateway WebSocket stream.
func ProvideCycleStream(cfg *config.Config) repository.CycleStream {
	return cyclergate.New(
		cfg.Gateway.APIKey,
		cfg.Gateway.WebSocketURL,
		cfg.Gateway.Experiments,
		cfg.Gateway.ReconnectDelay,
		cfg.Gateway.PingInterval,
	)
}

// ProvideCycleProcessor creates the cycle processor use case.
func ProvideCycleProcessor(
	pub repository.Publisher,
	store repository.CycleStore,
	metrics repository.Metrics,
	cfg *config.Config,
) *usecase.CycleProcessor {
	return usecase.NewCycleProcessor(
		pub,
		store,
		metrics,
		cfg.Backend.Type,
		cfg.Backend.BatchSize,
		cfg.Backend.BatchTimeout,
	)
}

// ProvideCycleCollector creates the cycle collector use case.
func ProvideCycleCollector(
	stream repository.CycleStream,
	processor *usecase.CycleProcessor,
	metrics repository.Metrics,
) *usecase.CycleCollector {
	// Build middleware pipeline between WebSocket and Kafka
	pipe := mid.NewIngestPipeline(processor, metrics,
		mid.WithMaxRPS(20),
		mid.WithBufferSize(1000),
	)
	return usecase.NewCycleCollector(stream, processor, metrics, pipe)
}

// ProvideFlagAggregator creates the detection aggregator over the full registry.
func ProvideFlagAggregator(metrics repository.Metrics) *usecase.FlagAggregator {
	return usecase.NewFlagAggregator(detectors.Registry(), metrics)
}

// ProvideAnalyzeUseCase creates the flag query use case.
func ProvideAnalyzeUseCase(store repository.CycleStore, agg *usecase.FlagAggregator) *usecase.AnalyzeUseCase {
	return usecase.NewAnalyzeUseCase(store, agg)
}

// logPublisher adapts the Kafka producer to the log collector sink.
type logPublisher struct {
	p *pkgkafka.Producer
}

func (lp logPublisher) PublishMessage(ctx context.Context, topic string, payload interface{}) error {
	return lp.p.Publish(ctx, topic, nil, payload)
}

// ProvideHTTPHandler creates the Echo handler for detection endpoints,
// with a Redis or in-process TTL cache per config.
func ProvideHTTPHandler(cfg *config.Config, analyze *usecase.AnalyzeUseCase, producer *pkgkafka.Producer) (xhttp.Handler, error) {
	l, err := applogger.New(&applogger.Config{Level: "info", Format: "console", Output: "stdout"})
	if err != nil {
		return nil, fmt.Errorf("handler logger: %w", err)
	}
	if cfg.Backend.Type == "kafka" && producer != nil {
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   30 * time.Second,
			CountThreshold: 100,
			Topic:          cfg.Kafka.Topic + ".errors",
			Publisher:      logPublisher{p: producer},
		})
	}

	h := api.NewFlagsEchoHandler(l, analyze)
	if cfg.Detection.Redis.Enabled {
		h.SetCache(icache.NewRedisCache(icache.RedisConfig{
			Addr:     cfg.Detection.Redis.Addr,
			Password: cfg.Detection.Redis.Password,
			DB:       cfg.Detection.Redis.DB,
		}))
	} else {
		h.SetCache(icache.NewTTLCache())
	}
	return h, nil
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	collector *usecase.CycleCollector,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaCyclesHandler,
	chClient *pkgch.Client,
	handler xhttp.Handler,
) *server.App {
	// Attach hook to consumer: example NoopHook for now; can be replaced via config
	if consumer != nil {
		consumer.WithConsumerHook(pkgkafka.NoopHook{})
	}
	app := server.New(cfg, collector, consumer, kh, chClient)
	app.SetHTTPHandler(handler)
	// attach cycle processor to app for closing resources via collector
	if collector != nil {
		app.CycleProc = collector.Processor()
	}
	return app
}
