//go:build wireinject
// +build wireinject

package di

import (
	"TradePilot/pkg/config"
	"TradePilot/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		// Observability
		ProvideLogger,
		ProvideRegistry,
		ProvideMetrics,

		// Infrastructure clients
		ProvideKVStore,
		ProvideKafkaProducer,
		ProvideTradeJournal,

		// Repositories and sinks
		ProvideAlertSink,
		ProvideEventPublisher,

		// Market data
		ProvideFinnhubStream,
		ProvideSnapshotBook,
		ProvideMarketFeed,

		// Decision core
		ProvideStrategyEngine,
		ProvideOrderManager,
		ProvidePositionTracker,
		ProvideEngine,

		// HTTP
		ProvideOrderLimiter,
		ProvideTradingHandler,
		ProvideHTTPServer,

		// Application server
		ProvideApp,
	)
	return nil, nil, nil
}
