package usecase

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TradePilot/internal/domain/models"
	"TradePilot/pkg/logger"
)

// fakeStream serves one batch of trades per Read, then closes both channels
// so the feed reconnects.
type fakeStream struct {
	mu         sync.Mutex
	batches    [][]models.Trade
	reconnects atomic.Int32
	closed     atomic.Bool
	connectErr error
}

func (s *fakeStream) Connect(context.Context) error   { return s.connectErr }
func (s *fakeStream) Subscribe(context.Context) error { return nil }
func (s *fakeStream) IsConnected() bool               { return !s.closed.Load() }

func (s *fakeStream) Reconnect(context.Context) error {
	s.reconnects.Add(1)
	return nil
}

func (s *fakeStream) Close() error {
	s.closed.Store(true)
	return nil
}

func (s *fakeStream) Read(ctx context.Context) (<-chan models.Trade, <-chan error) {
	trades := make(chan models.Trade)
	errs := make(chan error)

	s.mu.Lock()
	var batch []models.Trade
	if len(s.batches) > 0 {
		batch, s.batches = s.batches[0], s.batches[1:]
	}
	s.mu.Unlock()

	go func() {
		defer close(trades)
		defer close(errs)
		if batch == nil {
			<-ctx.Done()
			return
		}
		for _, t := range batch {
			select {
			case trades <- t:
			case <-ctx.Done():
				return
			}
		}
	}()
	return trades, errs
}

type captureTrades struct {
	mu     sync.Mutex
	trades []models.Trade
}

func (c *captureTrades) Apply(t models.Trade) {
	c.mu.Lock()
	c.trades = append(c.trades, t)
	c.mu.Unlock()
}

func (c *captureTrades) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.trades)
}

func TestMarketFeed_PumpsAndReconnects(t *testing.T) {
	stream := &fakeStream{batches: [][]models.Trade{
		{{Symbol: "AAPL", Price: 100, Volume: 1, Timestamp: t0}},
		{{Symbol: "AAPL", Price: 101, Volume: 2, Timestamp: t0.Add(time.Second)}},
	}}
	sink := &captureTrades{}
	feed := NewMarketFeed(stream, sink, nil, logger.Nop())

	ctx := context.Background()
	require.NoError(t, feed.Start(ctx))
	assert.Error(t, feed.Start(ctx))
	assert.True(t, feed.IsConnected())

	assert.Eventually(t, func() bool { return sink.len() == 2 }, time.Second, 5*time.Millisecond)
	assert.GreaterOrEqual(t, stream.reconnects.Load(), int32(1))

	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	require.NoError(t, feed.Stop(stopCtx))
	assert.True(t, stream.closed.Load())
	require.NoError(t, feed.Stop(stopCtx))
}

func TestMarketFeed_ConnectFailure(t *testing.T) {
	stream := &fakeStream{connectErr: errors.New("dial refused")}
	feed := NewMarketFeed(stream, &captureTrades{}, nil, logger.Nop())

	assert.Error(t, feed.Start(context.Background()))
	require.NoError(t, feed.Stop(context.Background()))
}
