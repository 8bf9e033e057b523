//go:build wireinject
// +build wireinject

package di

import (
	"YoForex/internal/usecase"
	"YoForex/pkg/config"
	"YoForex/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideRedisClient,
		ProvideKafkaProducer,
		ProvideClickHouseClient,
		ProvideJobQueue,
		ProvideCache,

		// Repositories
		ProvideUserRepository,
		ProvideAnalysisRepository,
		ProvideSettingsRepository,
		ProvideSubscriptionRepository,
		ProvideUsageRepository,
		ProvideEventPublisher,
		ProvideArchive,
		ProvideKafkaConsumer,

		// Services
		ProvideMarketService,
		ProvideGenerator,
		ProvidePasswordHasher,
		ProvideTokenIssuer,
		ProvidePaymentGateway,
		ProvideWebhookVerifier,

		// Use cases
		usecase.NewAuthUsecase,
		usecase.NewAnalysisUsecase,
		usecase.NewUserUsecase,
		ProvideMarketUsecase,
		ProvideBillingUsecase,

		// HTTP
		ProvideAnalyzeRateLimit,
		ProvideHandlers,
		ProvideHTTPServer,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
