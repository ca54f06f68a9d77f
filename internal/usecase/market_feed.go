package usecase

import (
	"context"
	"fmt"
	"sync"

	"TradePilot/internal/domain/models"
	drepo "TradePilot/internal/domain/repository"
	"TradePilot/pkg/logger"
)

// TradeSink folds streamed trades into snapshots.
type TradeSink interface {
	Apply(t models.Trade)
}

// MarketFeed pumps trades from a market stream into a TradeSink and
// reconnects when the stream fails.
type MarketFeed struct {
	stream  drepo.MarketStream
	sink    TradeSink
	metrics drepo.Metrics
	logger  *logger.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewMarketFeed(stream drepo.MarketStream, sink TradeSink, metrics drepo.Metrics, lgr *logger.Logger) *MarketFeed {
	if metrics == nil {
		metrics = drepo.NopMetrics{}
	}
	return &MarketFeed{stream: stream, sink: sink, metrics: metrics, logger: lgr.Component("market_feed")}
}

// IsConnected returns true if the market stream is connected.
func (f *MarketFeed) IsConnected() bool {
	return f.stream.IsConnected()
}

func (f *MarketFeed) Start(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cancel != nil {
		return fmt.Errorf("market feed already running")
	}

	if err := f.stream.Connect(ctx); err != nil {
		return err
	}
	if err := f.stream.Subscribe(ctx); err != nil {
		_ = f.stream.Close()
		return err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	f.cancel = cancel
	f.done = make(chan struct{})
	go f.run(runCtx)
	return nil
}

func (f *MarketFeed) run(ctx context.Context) {
	defer close(f.done)
	for {
		trades, errs := f.stream.Read(ctx)
		f.consume(ctx, trades, errs)
		if ctx.Err() != nil {
			return
		}

		f.metrics.RecordError("stream")
		for {
			err := f.stream.Reconnect(ctx)
			if err == nil {
				f.logger.Info("stream reconnected")
				break
			}
			if ctx.Err() != nil {
				return
			}
			f.metrics.RecordError("stream")
			f.logger.Warn("stream reconnect failed", logger.Error(err))
		}
	}
}

// consume returns once both channels are closed or ctx ends.
func (f *MarketFeed) consume(ctx context.Context, trades <-chan models.Trade, errs <-chan error) {
	for trades != nil || errs != nil {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			f.logger.Warn("stream error", logger.Error(err))
		case t, ok := <-trades:
			if !ok {
				trades = nil
				continue
			}
			f.sink.Apply(t)
		}
	}
}

// Stop ends the pump and closes the stream.
func (f *MarketFeed) Stop(ctx context.Context) error {
	f.mu.Lock()
	cancel, done := f.cancel, f.done
	f.cancel = nil
	f.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	select {
	case <-done:
	case <-ctx.Done():
		return fmt.Errorf("market feed stop: %w", ctx.Err())
	}
	return f.stream.Close()
}
