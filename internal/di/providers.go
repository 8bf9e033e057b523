package di

import (
	"context"
	"fmt"
	"time"

	domrepo "YoForex/internal/domain/repository"
	"YoForex/internal/handler/api"
	"YoForex/internal/middleware"
	internalrepo "YoForex/internal/repository"
	"YoForex/internal/services/analysis"
	"YoForex/internal/services/auth"
	"YoForex/internal/services/billing"
	"YoForex/internal/services/market"
	"YoForex/internal/usecase"
	"YoForex/pkg/cache"
	pkgch "YoForex/pkg/clickhouse"
	"YoForex/pkg/config"
	xhttp "YoForex/pkg/http"
	pkgkafka "YoForex/pkg/kafka"
	applogger "YoForex/pkg/logger"
	"YoForex/pkg/metrics"
	"YoForex/pkg/queue"
	"YoForex/pkg/server"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

const (
	connectTimeout = 15 * time.Second
	schemaTimeout  = 10 * time.Second
	l1CacheTTL     = 5 * time.Second
)

// ProvideLogger builds the application logger from config.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Output:  cfg.Log.Output,
		Service: cfg.App.Name,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() domrepo.Metrics {
	return metrics.New()
}

// ProvideRedisClient dials Redis, the system of record.
func ProvideRedisClient(cfg *config.Config) (*redis.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout+time.Second)
	defer cancel()

	client, _, err := cache.NewRedisClient(ctx,
		cache.WithRedisAddr(cfg.Redis.Addr),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
		cache.WithRedisPool(cfg.Redis.PoolSize, cfg.Redis.MinIdleConns, cfg.Redis.PoolTimeout),
		cache.WithRedisPrefix(cfg.Redis.Prefix),
		cache.WithConnectTimeout(connectTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("redis client: %w", err)
	}
	return client, nil
}

func ProvideUserRepository(rdb *redis.Client, cfg *config.Config) domrepo.UserRepository {
	return internalrepo.NewRedisUserRepository(rdb, cfg.Redis.Prefix)
}

func ProvideAnalysisRepository(rdb *redis.Client, cfg *config.Config) domrepo.AnalysisRepository {
	return internalrepo.NewRedisAnalysisRepository(rdb, cfg.Redis.Prefix)
}

func ProvideSettingsRepository(rdb *redis.Client, cfg *config.Config) domrepo.SettingsRepository {
	return internalrepo.NewRedisSettingsRepository(rdb, cfg.Redis.Prefix)
}

func ProvideSubscriptionRepository(rdb *redis.Client, cfg *config.Config) domrepo.SubscriptionRepository {
	return internalrepo.NewRedisSubscriptionRepository(rdb, cfg.Redis.Prefix)
}

func ProvideUsageRepository(rdb *redis.Client, cfg *config.Config) domrepo.UsageRepository {
	return internalrepo.NewRedisUsageRepository(rdb, cfg.Redis.Prefix)
}

// ProvideCache layers a short in-process cache over Redis for market data.
func ProvideCache(rdb *redis.Client, cfg *config.Config) cache.Service {
	return cache.NewLayeredCache(cache.NewRedisCache(rdb, cfg.Redis.Prefix+":cache"), l1CacheTTL)
}

// ProvideKafkaProducer creates a Kafka producer. It returns nil when Kafka is disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	p := cfg.Kafka.Producer
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatching(p.BatchSize, p.BatchBytes, p.Linger),
		pkgkafka.WithTimeouts(p.WriteTimeout, p.ReadTimeout),
		pkgkafka.WithMaxAttempts(p.MaxAttempts),
		pkgkafka.WithAsync(p.Async),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideEventPublisher publishes analysis events on Kafka, or drops them when Kafka is off.
func ProvideEventPublisher(producer *pkgkafka.Producer, cfg *config.Config) domrepo.EventPublisher {
	if producer == nil {
		return internalrepo.NoopEventPublisher{}
	}
	return internalrepo.NewKafkaEventPublisher(producer, cfg.Kafka.Topic)
}

// ProvideClickHouseClient connects to ClickHouse. It returns nil when the archive is disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout+time.Second)
	defer cancel()

	ch := cfg.ClickHouse
	client, err := pkgch.NewClient(ctx,
		pkgch.WithHost(ch.Host),
		pkgch.WithPort(ch.Port),
		pkgch.WithDatabase(ch.Database),
		pkgch.WithCredentials(ch.User, ch.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(ch.UseHTTP),
		pkgch.WithAsyncInsert(ch.AsyncInsert, ch.WaitForAsync),
		pkgch.WithTimeouts(ch.DialTimeout, ch.ReadTimeout),
		pkgch.WithMaxExecutionTime(ch.MaxExecutionTime),
		pkgch.WithConnectTimeout(connectTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

// ProvideArchive creates the analysis event table. It returns nil without ClickHouse.
func ProvideArchive(ch *pkgch.Client) (domrepo.Archive, error) {
	if ch == nil {
		return nil, nil
	}
	archive := internalrepo.NewClickHouseArchive(ch, ch.Database())

	ctx, cancel := context.WithTimeout(context.Background(), schemaTimeout)
	defer cancel()
	if err := archive.Init(ctx); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return archive, nil
}

// ProvideKafkaConsumer builds the archiver consumer. It needs both Kafka and ClickHouse.
func ProvideKafkaConsumer(cfg *config.Config, log *applogger.Logger, archive domrepo.Archive, m domrepo.Metrics) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled || archive == nil {
		return nil, nil
	}
	cc := cfg.Kafka.Consumer
	consumer, err := pkgkafka.NewConsumer(log,
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cc.GroupID),
		pkgkafka.WithConsumerWorkers(cc.Workers),
		pkgkafka.WithConsumerBufferSize(cc.BufferSize),
		pkgkafka.WithConsumerRetry(cc.RetryMax, cc.BackoffMin, cc.BackoffMax),
		pkgkafka.WithConsumerDLQ(cc.DLQTopic),
		pkgkafka.WithConsumerFetch(cc.MinBytes, cc.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.WithHooks(pkgkafka.TraceIDHook())
	consumer.RegisterHandler(usecase.NewAnalysisArchiver(cfg.Kafka.Topic, archive, m))
	return consumer, nil
}

// ProvideJobQueue creates the Redis-backed background job queue.
func ProvideJobQueue(cfg *config.Config, log *applogger.Logger, rdb *redis.Client) *queue.RedisQueue {
	return queue.NewRedisQueue(log, &queue.QueueConfig{
		Workers:    cfg.Queue.Workers,
		RetryLimit: cfg.Queue.RetryLimit,
		RetryDelay: cfg.Queue.RetryDelay,
	}, rdb, queue.WithKeyPrefix(cfg.Redis.Prefix+":jobs"))
}

func ProvideMarketService(cfg *config.Config) *market.Service {
	return market.NewService(market.WithCandles(cfg.Market.Candles))
}

func ProvideGenerator() *analysis.Generator {
	return analysis.NewGenerator(analysis.NewMockRecommender(0))
}

func ProvidePasswordHasher(cfg *config.Config) *auth.PasswordHasher {
	return auth.NewPasswordHasher(cfg.Auth.BcryptCost)
}

func ProvideTokenIssuer(cfg *config.Config) *auth.TokenIssuer {
	return auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.App.Name, cfg.Auth.AccessTokenTTL)
}

// ProvidePaymentGateway returns Stripe when configured; nil selects mock billing.
func ProvidePaymentGateway(cfg *config.Config) billing.Gateway {
	if !cfg.StripeEnabled() {
		return nil
	}
	return billing.NewStripeGateway(billing.StripeConfig{
		APIKey:     cfg.Stripe.APIKey,
		SuccessURL: cfg.Stripe.SuccessURL,
		CancelURL:  cfg.Stripe.CancelURL,
		PriceIDs:   cfg.Stripe.PriceIDs,
	})
}

// ProvideWebhookVerifier returns nil without a signing secret, which disables the webhook.
func ProvideWebhookVerifier(cfg *config.Config) *billing.WebhookVerifier {
	if cfg.Stripe.WebhookSecret == "" {
		return nil
	}
	return billing.NewWebhookVerifier(cfg.Stripe.WebhookSecret)
}

func ProvideMarketUsecase(mkt *market.Service, c cache.Service, cfg *config.Config) *usecase.MarketUsecase {
	return usecase.NewMarketUsecase(mkt, c, cfg.Market.CacheTTL)
}

// ProvideBillingUsecase also registers the job that applies queued Stripe events.
func ProvideBillingUsecase(
	users domrepo.UserRepository,
	subs domrepo.SubscriptionRepository,
	usage domrepo.UsageRepository,
	gateway billing.Gateway,
	verifier *billing.WebhookVerifier,
	jobs *queue.RedisQueue,
	m domrepo.Metrics,
	log *applogger.Logger,
) *usecase.BillingUsecase {
	uc := usecase.NewBillingUsecase(users, subs, usage, gateway, verifier, jobs, m, log)
	jobs.RegisterJob(usecase.NewStripeEventJob(uc))
	return uc
}

// ProvideAnalyzeRateLimit limits the analysis endpoints per user.
func ProvideAnalyzeRateLimit(cfg *config.Config, m domrepo.Metrics) echo.MiddlewareFunc {
	return middleware.RateLimit(middleware.NewRateLimiter(cfg.RateLimit.AnalyzePerMinute, cfg.RateLimit.Burst), m)
}

// ProvideHandlers assembles every HTTP route group.
func ProvideHandlers(
	cfg *config.Config,
	log *applogger.Logger,
	rdb *redis.Client,
	ch *pkgch.Client,
	m domrepo.Metrics,
	authUC *usecase.AuthUsecase,
	analysisUC *usecase.AnalysisUsecase,
	marketUC *usecase.MarketUsecase,
	userUC *usecase.UserUsecase,
	billingUC *usecase.BillingUsecase,
	limit echo.MiddlewareFunc,
) []xhttp.Handler {
	checks := map[string]api.HealthCheck{
		"redis": func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
	}
	if ch != nil {
		checks["clickhouse"] = ch.Health
	}

	return []xhttp.Handler{
		api.NewRootEchoHandler(log, cfg.App.Name, cfg.App.Version, checks),
		api.NewAuthEchoHandler(log, authUC),
		api.NewTradingEchoHandler(log, analysisUC, authUC, limit),
		api.NewMarketEchoHandler(log, marketUC, m, cfg.Market.TickInterval),
		api.NewUserEchoHandler(log, userUC, authUC),
		api.NewBillingEchoHandler(log, billingUC, authUC),
	}
}

// ProvideHTTPServer creates the Echo server.
func ProvideHTTPServer(cfg *config.Config, log *applogger.Logger, handlers []xhttp.Handler) *xhttp.Server {
	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	return xhttp.NewServer(log, handlers,
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithCORSOrigins(cfg.Server.CORSOrigins),
		xhttp.WithSlowRequestThreshold(cfg.Server.SlowRequest),
		xhttp.WithMetricsPath(metricsPath),
	)
}

// ProvideApp creates the application server. Error logs are shipped to Kafka when a
// logs topic is configured.
func ProvideApp(
	cfg *config.Config,
	log *applogger.Logger,
	srv *xhttp.Server,
	jobs *queue.RedisQueue,
	consumer *pkgkafka.Consumer,
	producer *pkgkafka.Producer,
	events domrepo.EventPublisher,
	ch *pkgch.Client,
	rdb *redis.Client,
) *server.App {
	if producer != nil && cfg.Kafka.LogsTopic != "" {
		log.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   30 * time.Second,
			CountThreshold: 100,
			Topic:          cfg.Kafka.LogsTopic,
			Publisher:      producer,
		})
	}
	return server.New(log, srv, jobs, consumer, events, ch, rdb)
}
