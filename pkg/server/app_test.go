package server

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TradePilot/internal/domain/models"
	"TradePilot/internal/services/strategy"
	"TradePilot/internal/services/trading"
	"TradePilot/internal/usecase"
	"TradePilot/pkg/cache"
	"TradePilot/pkg/config"
	"TradePilot/pkg/logger"
)

type staticMarket struct{}

func (staticMarket) FetchSnapshot(_ context.Context, symbol string) (models.MarketSnapshot, error) {
	return models.MarketSnapshot{Symbol: symbol, CurrentPrice: 50, Timestamp: time.Now()}, nil
}

type nopSink struct{}

func (nopSink) Send(context.Context, models.Alert) error { return nil }

type fakeFeed struct {
	started, stopped atomic.Bool
}

func (f *fakeFeed) Start(context.Context) error { f.started.Store(true); return nil }
func (f *fakeFeed) Stop(context.Context) error  { f.stopped.Store(true); return nil }

func TestApp_RunContextStopsOnCancel(t *testing.T) {
	cfg, err := config.Parse([]byte("trading:\n  symbols: [BTC]\n"))
	require.NoError(t, err)

	strategies, err := strategy.NewEngine(cfg.Trading.Mode, cfg.StrategySet())
	require.NoError(t, err)
	kv := cache.NewMemoryCache()
	defer kv.Close()

	engine, err := usecase.NewEngine(cfg, usecase.EngineDeps{
		Market:     staticMarket{},
		KV:         kv,
		Alerts:     nopSink{},
		Strategies: strategies,
		Orders:     trading.NewOrderManager(logger.Nop(), true),
		Positions:  trading.NewPositionTracker(logger.Nop()),
	}, logger.Nop(), nil)
	require.NoError(t, err)

	feed := &fakeFeed{}
	app := New(cfg, logger.Nop(), engine, nil, nil)
	app.feed = feed

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.RunContext(ctx) }()

	assert.Eventually(t, engine.Running, time.Second, 10*time.Millisecond)
	assert.True(t, feed.started.Load())

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("app did not stop")
	}
	assert.False(t, engine.Running())
	assert.True(t, feed.stopped.Load())
}
