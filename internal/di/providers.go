package di

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	models "TradePilot/internal/domain/models"
	"TradePilot/internal/domain/repository"
	"TradePilot/internal/handler/api"
	internalrepo "TradePilot/internal/repository"
	"TradePilot/internal/service/alert"
	"TradePilot/internal/service/finnhub"
	"TradePilot/internal/service/ratelimit"
	"TradePilot/internal/services/analytics"
	"TradePilot/internal/services/strategy"
	"TradePilot/internal/services/trading"
	"TradePilot/internal/usecase"
	"TradePilot/pkg/cache"
	pkgch "TradePilot/pkg/clickhouse"
	"TradePilot/pkg/config"
	xhttp "TradePilot/pkg/http"
	pkgkafka "TradePilot/pkg/kafka"
	"TradePilot/pkg/logger"
	"TradePilot/pkg/metrics"
	"TradePilot/pkg/server"
)

const schemaTimeout = 10 * time.Second

// ProvideLogger creates the root logger from the log section.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	lgr, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return lgr, nil
}

// ProvideRegistry creates a private Prometheus registry with the Go and
// process collectors.
func ProvideRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// ProvideMetrics creates the Prometheus recorder shared by the engine,
// scheduler and escalation pool.
func ProvideMetrics(reg *prometheus.Registry) *metrics.Recorder {
	return metrics.NewWithRegistry(reg)
}

// ProvideKVStore uses Redis when enabled and the in-memory cache otherwise.
func ProvideKVStore(cfg *config.Config, lgr *logger.Logger) (repository.KVStore, func(), error) {
	var store cache.Service
	if cfg.Redis.Enabled {
		rc, err := cache.NewRedisCache(
			cache.WithRedisHost(cfg.Redis.Host),
			cache.WithRedisPort(cfg.Redis.Port),
			cache.WithRedisPassword(cfg.Redis.Password),
			cache.WithRedisDB(cfg.Redis.DB),
			cache.WithRedisPrefix(cfg.Redis.Prefix),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("kv store: %w", err)
		}
		store = rc
		lgr.Info("kv store: redis", logger.String("host", cfg.Redis.Host), logger.Int("port", cfg.Redis.Port))
	} else {
		store = cache.NewMemoryCache(cache.WithMemoryMaxSize(cfg.Cache.MaxSize))
		lgr.Info("kv store: memory", logger.Int("max_size", cfg.Cache.MaxSize))
	}

	cleanup := func() {
		if err := store.Close(); err != nil {
			lgr.Warn("kv store close error", logger.Error(err))
		}
	}
	return store, cleanup, nil
}

// ProvideKafkaProducer returns a nil producer when Kafka is disabled.
func ProvideKafkaProducer(cfg *config.Config, reg *prometheus.Registry, lgr *logger.Logger) (*pkgkafka.Producer, func(), error) {
	if !cfg.Kafka.Enabled {
		return nil, func() {}, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchTimeout(cfg.Kafka.BatchTimeout),
		pkgkafka.WithTimeouts(cfg.Kafka.WriteTimeout, cfg.Kafka.WriteTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Async),
		pkgkafka.WithHashByKey(true),
		pkgkafka.WithRegisterer(reg),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}

	cleanup := func() {
		if err := producer.Close(); err != nil {
			lgr.Warn("kafka producer close error", logger.Error(err))
		}
	}
	return producer, cleanup, nil
}

// ProvideAlertSink fans alerts out to the log, Telegram and Kafka.
func ProvideAlertSink(cfg *config.Config, lgr *logger.Logger, producer *pkgkafka.Producer) repository.AlertSink {
	sinks := []repository.AlertSink{alert.NewLogSink(lgr)}
	if cfg.Telegram.BotToken != "" && cfg.Telegram.ChatID != "" {
		sinks = append(sinks, alert.NewTelegramSink(cfg.Telegram.BotToken, cfg.Telegram.ChatID,
			alert.WithMinLevel(models.AlertWarning)))
	}
	if producer != nil {
		sinks = append(sinks, alert.NewKafkaSink(producer, cfg.Kafka.AlertsTopic))
	}
	return alert.NewMultiSink(sinks...)
}

// ProvideEventPublisher publishes order and trade events to Kafka when enabled.
func ProvideEventPublisher(cfg *config.Config, producer *pkgkafka.Producer) repository.EventPublisher {
	if producer == nil {
		return internalrepo.NopPublisher{}
	}
	return internalrepo.NewKafkaEventPublisher(producer, cfg.Kafka.OrdersTopic)
}

// ProvideClickHouseClient is only called for the clickhouse journal backend.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, false),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

// ProvideTradeJournal opens the configured journal backend.
func ProvideTradeJournal(cfg *config.Config, lgr *logger.Logger) (repository.TradeJournal, func(), error) {
	ctx, cancel := context.WithTimeout(context.Background(), schemaTimeout)
	defer cancel()

	var (
		journal repository.TradeJournal
		closers []func() error
	)
	switch cfg.Journal.Backend {
	case "clickhouse":
		client, err := ProvideClickHouseClient(cfg)
		if err != nil {
			return nil, nil, err
		}
		j, err := internalrepo.NewClickHouseJournal(ctx, client, lgr)
		if err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		journal = j
		closers = append(closers, j.Close, client.Close)
	case "sqlite":
		j, err := internalrepo.NewSQLiteJournal(ctx, cfg.Journal.SQLitePath, lgr)
		if err != nil {
			return nil, nil, err
		}
		journal = j
		closers = append(closers, j.Close)
	default:
		journal = internalrepo.NopJournal{}
	}
	lgr.Info("trade journal ready", logger.String("backend", cfg.Journal.Backend))

	cleanup := func() {
		for _, c := range closers {
			if err := c(); err != nil {
				lgr.Warn("journal close error", logger.Error(err))
			}
		}
	}
	return journal, cleanup, nil
}

// ProvideFinnhubStream creates the Finnhub WebSocket client for the traded symbols.
func ProvideFinnhubStream(cfg *config.Config, lgr *logger.Logger) *finnhub.Client {
	return finnhub.New(
		lgr,
		cfg.Finnhub.APIKey,
		cfg.Finnhub.WebSocketURL,
		cfg.Trading.Symbols,
		cfg.Finnhub.ReconnectDelay,
		cfg.Finnhub.PingInterval,
	)
}

// ProvideSnapshotBook treats symbols without a trade in max_snapshot_age as
// unavailable, so a dead stream alerts instead of repeating the last price.
func ProvideSnapshotBook(cfg *config.Config) *finnhub.SnapshotBook {
	return finnhub.NewSnapshotBook(finnhub.WithMaxAge(cfg.Finnhub.MaxSnapshotAge))
}

// ProvideMarketFeed folds streamed trades into the snapshot book.
func ProvideMarketFeed(stream *finnhub.Client, book *finnhub.SnapshotBook, rec *metrics.Recorder, lgr *logger.Logger) *usecase.MarketFeed {
	return usecase.NewMarketFeed(stream, book, rec, lgr)
}

func ProvideStrategyEngine(cfg *config.Config, lgr *logger.Logger) (*strategy.Engine, error) {
	eng, err := strategy.NewEngine(cfg.Trading.Mode, cfg.StrategySet(),
		strategy.WithHistorySize(cfg.Trading.SignalHistorySize),
		strategy.WithLogger(lgr),
	)
	if err != nil {
		return nil, fmt.Errorf("strategy engine: %w", err)
	}
	return eng, nil
}

// ProvideOrderManager fills MARKET orders without a price at the last
// streamed trade price.
func ProvideOrderManager(cfg *config.Config, book *finnhub.SnapshotBook, lgr *logger.Logger) *trading.OrderManager {
	return trading.NewOrderManager(lgr, cfg.Trading.DryRun, trading.WithFallbackPrice(book.LastPrice))
}

func ProvidePositionTracker(lgr *logger.Logger) *trading.PositionTracker {
	return trading.NewPositionTracker(lgr)
}

// ProvideEngine assembles the decision engine. Analytics collaborators
// without a configured URL degrade to their local or unavailable variants.
func ProvideEngine(
	cfg *config.Config,
	lgr *logger.Logger,
	rec *metrics.Recorder,
	book *finnhub.SnapshotBook,
	kv repository.KVStore,
	alerts repository.AlertSink,
	journal repository.TradeJournal,
	events repository.EventPublisher,
	strategies *strategy.Engine,
	orders *trading.OrderManager,
	positions *trading.PositionTracker,
) (*usecase.Engine, error) {
	return usecase.NewEngine(cfg, usecase.EngineDeps{
		Market:     book,
		News:       analytics.NewNewsSource(cfg),
		KV:         kv,
		Alerts:     alerts,
		Journal:    journal,
		Events:     events,
		Metrics:    rec,
		Anomaly:    analytics.NewAnomalyDetector(cfg),
		Deep:       analytics.NewDeepAnalyzer(cfg),
		Sentiment:  analytics.NewSentimentScorer(cfg),
		Strategies: strategies,
		Orders:     orders,
		Positions:  positions,
	}, lgr, rec, usecase.WithTaskRecorder(rec))
}

func ProvideOrderLimiter(cfg *config.Config) *ratelimit.Limiter {
	return ratelimit.New(cfg.Server.OrderRatePerSec, cfg.Server.OrderBurst)
}

func ProvideTradingHandler(
	lgr *logger.Logger,
	engine *usecase.Engine,
	strategies *strategy.Engine,
	orders *trading.OrderManager,
	positions *trading.PositionTracker,
	journal repository.TradeJournal,
	limiter *ratelimit.Limiter,
) *api.TradingHandler {
	return api.NewTradingHandler(lgr, engine, strategies, orders, positions, journal, limiter)
}

// ProvideHTTPServer serves the API and, when enabled, the metrics endpoint.
func ProvideHTTPServer(cfg *config.Config, lgr *logger.Logger, handler *api.TradingHandler, reg *prometheus.Registry) *xhttp.Server {
	opts := []xhttp.ServerOption{
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
	}
	if cfg.Metrics.Enabled {
		opts = append(opts, xhttp.WithMetrics(cfg.Metrics.Path, reg, reg))
	} else {
		opts = append(opts, xhttp.WithMetrics("", reg, nil))
	}
	return xhttp.NewServer(lgr, handler, opts...)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	lgr *logger.Logger,
	engine *usecase.Engine,
	feed *usecase.MarketFeed,
	httpServer *xhttp.Server,
) *server.App {
	return server.New(cfg, lgr, engine, feed, httpServer)
}
