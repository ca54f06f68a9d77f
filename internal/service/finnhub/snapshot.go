package finnhub

import (
	"context"
	"fmt"
	"sync"
	"time"

	"TradePilot/internal/domain/models"
	drepo "TradePilot/internal/domain/repository"
	"TradePilot/internal/services/indicators"
	"TradePilot/pkg/util"
)

const (
	defaultBucket    = time.Minute
	avgVolumeBuckets = 20
)

type symbolState struct {
	day       string
	open      float64
	high      float64
	low       float64
	last      float64
	lastTime  time.Time
	bucket    time.Time
	bucketVol float64
	volumes   []float64
	buyVol    float64
	sellVol   float64
}

// SnapshotBook folds streamed trades into per-symbol market snapshots.
// Open, high and low reset on each UTC day. Volume is the traded volume of
// the current bucket and AvgVolume the mean of the completed buckets.
type SnapshotBook struct {
	bucket time.Duration
	maxAge time.Duration
	now    func() time.Time

	mu     sync.RWMutex
	states map[string]*symbolState
}

type BookOption func(*SnapshotBook)

// WithBucket sets the volume bucket width.
func WithBucket(d time.Duration) BookOption {
	return func(b *SnapshotBook) {
		if d > 0 {
			b.bucket = d
		}
	}
}

// WithMaxAge makes FetchSnapshot report a symbol as unavailable when its
// last trade is older than d. Zero disables the check.
func WithMaxAge(d time.Duration) BookOption {
	return func(b *SnapshotBook) {
		if d >= 0 {
			b.maxAge = d
		}
	}
}

func WithBookClock(now func() time.Time) BookOption {
	return func(b *SnapshotBook) {
		if now != nil {
			b.now = now
		}
	}
}

func NewSnapshotBook(opts ...BookOption) *SnapshotBook {
	b := &SnapshotBook{
		bucket: defaultBucket,
		now:    time.Now,
		states: make(map[string]*symbolState),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Apply records one trade. Trades with a non-positive price are ignored.
func (b *SnapshotBook) Apply(t models.Trade) {
	if t.Symbol == "" || t.Price <= 0 {
		return
	}
	ts := t.Timestamp
	if ts.IsZero() {
		ts = b.now()
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	s, ok := b.states[t.Symbol]
	if !ok {
		s = &symbolState{}
		b.states[t.Symbol] = s
	}

	if day := util.DateKey(ts); day != s.day {
		s.day = day
		s.open, s.high, s.low = t.Price, t.Price, t.Price
	}
	if t.Price > s.high {
		s.high = t.Price
	}
	if t.Price < s.low {
		s.low = t.Price
	}

	bucket := ts.Truncate(b.bucket)
	if !s.bucket.IsZero() && bucket.After(s.bucket) {
		s.volumes = indicators.AppendCapped(s.volumes, s.bucketVol, avgVolumeBuckets)
		s.bucketVol = 0
		s.buyVol, s.sellVol = 0, 0
	}
	if bucket.After(s.bucket) {
		s.bucket = bucket
	}
	s.bucketVol += t.Volume

	// tick rule: upticks count as buying, downticks as selling
	switch {
	case s.last == 0:
	case t.Price > s.last:
		s.buyVol += t.Volume
	case t.Price < s.last:
		s.sellVol += t.Volume
	}

	s.last = t.Price
	s.lastTime = ts
}

// FetchSnapshot returns the current snapshot of symbol, or
// ErrSnapshotUnavailable when no trade has been seen yet or the last trade
// is older than the max age.
func (b *SnapshotBook) FetchSnapshot(_ context.Context, symbol string) (models.MarketSnapshot, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	s, ok := b.states[symbol]
	if !ok {
		return models.MarketSnapshot{}, fmt.Errorf("%s: %w", symbol, drepo.ErrSnapshotUnavailable)
	}
	if b.maxAge > 0 {
		if age := b.now().Sub(s.lastTime); age > b.maxAge {
			return models.MarketSnapshot{}, fmt.Errorf("%s: last trade %s old: %w",
				symbol, age.Truncate(time.Second), drepo.ErrSnapshotUnavailable)
		}
	}

	snap := models.MarketSnapshot{
		Symbol:       symbol,
		CurrentPrice: s.last,
		Open:         s.open,
		High:         s.high,
		Low:          s.low,
		Volume:       s.bucketVol,
		AvgVolume:    indicators.Mean(s.volumes),
		Timestamp:    s.lastTime,
	}
	if s.open > 0 {
		snap.ChangePct = (s.last - s.open) / s.open * 100
	}
	return snap, nil
}

// OrderFlow returns the tick-rule buy and sell volume of the current bucket.
func (b *SnapshotBook) OrderFlow(symbol string) (models.OrderFlow, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	s, ok := b.states[symbol]
	if !ok {
		return models.OrderFlow{}, false
	}
	return models.OrderFlow{BuyVolume: s.buyVol, SellVolume: s.sellVol}, true
}

// LastPrice returns the last traded price of symbol.
func (b *SnapshotBook) LastPrice(symbol string) (float64, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	s, ok := b.states[symbol]
	if !ok {
		return 0, false
	}
	return s.last, true
}

var (
	_ drepo.MarketDataSource = (*SnapshotBook)(nil)
	_ drepo.OrderFlowSource  = (*SnapshotBook)(nil)
)
