package repository

import (
	"context"
	"errors"
	"time"

	"TradePilot/internal/domain/models"
)

// ErrSnapshotUnavailable is returned when a source has no data for a symbol yet.
var ErrSnapshotUnavailable = errors.New("snapshot unavailable")

type MarketDataSource interface {
	FetchSnapshot(ctx context.Context, symbol string) (models.MarketSnapshot, error)
}

// OrderFlowSource is an optional companion of MarketDataSource.
type OrderFlowSource interface {
	OrderFlow(symbol string) (models.OrderFlow, bool)
}

type MarketStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan models.Trade, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

type NewsSource interface {
	FetchNews(ctx context.Context, symbol string, since time.Time) ([]models.NewsItem, error)
	FetchAnnouncements(ctx context.Context, symbol string, since time.Time) ([]models.Announcement, error)
}

type AlertSink interface {
	Send(ctx context.Context, alert models.Alert) error
}

type TradeJournal interface {
	RecordOrder(ctx context.Context, o models.Order) error
	RecordTrade(ctx context.Context, t models.TradeRecord) error
	RecentTrades(ctx context.Context, symbol string, limit int) ([]models.TradeRecord, error)
	Close() error
}

type EventPublisher interface {
	PublishOrder(ctx context.Context, o models.Order) error
	PublishTrade(ctx context.Context, t models.TradeRecord) error
	Close() error
}

// KVStore is the TTL-capable key-value store; pkg/cache implementations satisfy it.
type KVStore interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Exists(ctx context.Context, keys ...string) (bool, error)
	GetList(ctx context.Context, key string, dest interface{}) error
	AppendToList(ctx context.Context, key string, value interface{}, maxLen int, expiration time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

type Metrics interface {
	RecordCycle(symbol string, elapsed time.Duration)
	RecordSlowCycle(symbol string)
	RecordSignal(strategy, action string)
	RecordDecision(action string)
	RecordOrder(status string)
	RecordEscalation(result string)
	RecordError(kind string)
	RecordLastPrice(symbol string, price float64)
	RecordPortfolio(cost, value, pnl float64, positions int)
}

// NopMetrics discards everything.
type NopMetrics struct{}

func (NopMetrics) RecordCycle(string, time.Duration)              {}
func (NopMetrics) RecordSlowCycle(string)                         {}
func (NopMetrics) RecordSignal(string, string)                    {}
func (NopMetrics) RecordDecision(string)                          {}
func (NopMetrics) RecordOrder(string)                             {}
func (NopMetrics) RecordEscalation(string)                        {}
func (NopMetrics) RecordError(string)                             {}
func (NopMetrics) RecordLastPrice(string, float64)                {}
func (NopMetrics) RecordPortfolio(float64, float64, float64, int) {}
