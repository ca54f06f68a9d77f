package trading

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"TradePilot/internal/domain/models"
	"TradePilot/internal/services/indicators"
	"TradePilot/pkg/logger"
)

var (
	ErrPositionExists = errors.New("position already open")
	ErrNoPosition     = errors.New("no open position")
)

const defaultTradeHistory = 1000

// PositionTracker owns open positions and the closed-trade log.
type PositionTracker struct {
	historySize int
	now         func() time.Time
	logger      *logger.Logger

	mu        sync.RWMutex
	positions map[string]*models.Position
	trades    []models.TradeRecord
}

type PositionOption func(*PositionTracker)

func WithTradeHistory(n int) PositionOption {
	return func(t *PositionTracker) {
		if n > 0 {
			t.historySize = n
		}
	}
}

func WithPositionClock(now func() time.Time) PositionOption {
	return func(t *PositionTracker) {
		t.now = now
	}
}

func NewPositionTracker(lgr *logger.Logger, opts ...PositionOption) *PositionTracker {
	t := &PositionTracker{
		historySize: defaultTradeHistory,
		now:         time.Now,
		positions:   make(map[string]*models.Position),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.logger = lgr.Component("positions")
	return t
}

// Open records a new long position.
func (t *PositionTracker) Open(symbol string, qty, price float64, note string, exits models.ExitPlan) (models.Position, error) {
	if qty <= 0 || price <= 0 {
		return models.Position{}, fmt.Errorf("open %s: quantity and price must be positive", symbol)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.positions[symbol]; ok {
		return models.Position{}, fmt.Errorf("open %s: %w", symbol, ErrPositionExists)
	}

	p := &models.Position{
		Symbol:       symbol,
		Quantity:     qty,
		EntryPrice:   price,
		EntryTime:    t.now(),
		Cost:         qty * price,
		Note:         note,
		StopLoss:     copyFloat(exits.StopLoss),
		TakeProfit:   copyFloat(exits.TakeProfit),
		MaxHoldUntil: exits.MaxHoldUntil,
	}
	t.positions[symbol] = p

	t.logger.Info("position opened",
		logger.String("symbol", symbol),
		logger.Float64("quantity", qty),
		logger.Float64("entry_price", price),
		logger.Float64("cost", p.Cost),
	)
	return *p, nil
}

// Close removes the position and logs the realized trade.
func (t *PositionTracker) Close(symbol string, price float64, reason string) (models.TradeRecord, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	p, ok := t.positions[symbol]
	if !ok {
		return models.TradeRecord{}, fmt.Errorf("close %s: %w", symbol, ErrNoPosition)
	}
	if price <= 0 {
		price = p.EntryPrice
	}

	pnl := (price - p.EntryPrice) * p.Quantity
	rec := models.TradeRecord{
		Symbol:     symbol,
		Quantity:   p.Quantity,
		EntryPrice: p.EntryPrice,
		ExitPrice:  price,
		EntryTime:  p.EntryTime,
		ExitTime:   t.now(),
		PnL:        pnl,
		PnLPct:     pct(pnl, p.Cost),
		Reason:     reason,
	}
	delete(t.positions, symbol)
	t.trades = indicators.AppendCapped(t.trades, rec, t.historySize)

	t.logger.Info("position closed",
		logger.String("symbol", symbol),
		logger.Float64("exit_price", price),
		logger.Float64("pnl", pnl),
		logger.Float64("pnl_pct", rec.PnLPct),
		logger.String("reason", reason),
	)
	return rec, nil
}

func (t *PositionTracker) Get(symbol string) (models.Position, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	p, ok := t.positions[symbol]
	if !ok {
		return models.Position{}, false
	}
	return *p, true
}

func (t *PositionTracker) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.positions)
}

// Positions returns the open positions sorted by symbol.
func (t *PositionTracker) Positions() []models.Position {
	t.mu.RLock()
	out := make([]models.Position, 0, len(t.positions))
	for _, p := range t.positions {
		out = append(out, *p)
	}
	t.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// Trades returns up to limit closed trades, newest first.
func (t *PositionTracker) Trades(limit int) []models.TradeRecord {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]models.TradeRecord, 0, len(t.trades))
	for i := len(t.trades) - 1; i >= 0; i-- {
		out = append(out, t.trades[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// CalculatePortfolioValue values every open position at prices, falling
// back to the entry price when a symbol has no current price.
func (t *PositionTracker) CalculatePortfolioValue(prices map[string]float64) models.PortfolioSnapshot {
	snap := models.PortfolioSnapshot{Timestamp: t.now()}

	for _, p := range t.Positions() {
		cur, ok := prices[p.Symbol]
		stale := !ok || cur <= 0
		if stale {
			cur = p.EntryPrice
		}
		value := cur * p.Quantity
		pnl := value - p.Cost

		snap.Positions = append(snap.Positions, models.PositionValue{
			Symbol:       p.Symbol,
			Quantity:     p.Quantity,
			EntryPrice:   p.EntryPrice,
			CurrentPrice: cur,
			Cost:         p.Cost,
			Value:        value,
			PnL:          pnl,
			PnLPct:       pct(pnl, p.Cost),
			PriceStale:   stale,
		})
		snap.TotalCost += p.Cost
		snap.TotalValue += value
	}

	snap.TotalPnL = snap.TotalValue - snap.TotalCost
	snap.TotalPnLPct = pct(snap.TotalPnL, snap.TotalCost)
	return snap
}

// CheckExits returns an exit for every position whose stop-loss,
// take-profit or hold deadline is hit. Positions without a price are skipped.
func (t *PositionTracker) CheckExits(prices map[string]float64, now time.Time) []models.ExitSignal {
	var exits []models.ExitSignal
	for _, p := range t.Positions() {
		price, ok := prices[p.Symbol]
		if !ok || price <= 0 {
			continue
		}
		var reason string
		switch {
		case p.StopLoss != nil && price <= *p.StopLoss:
			reason = fmt.Sprintf("stop-loss %.4f hit", *p.StopLoss)
		case p.TakeProfit != nil && price >= *p.TakeProfit:
			reason = fmt.Sprintf("take-profit %.4f hit", *p.TakeProfit)
		case p.MaxHoldUntil != nil && !now.Before(*p.MaxHoldUntil):
			reason = "max hold time reached"
		default:
			continue
		}
		exits = append(exits, models.ExitSignal{Symbol: p.Symbol, Price: price, Reason: reason})
	}
	return exits
}

func pct(part, whole float64) float64 {
	if whole == 0 {
		return 0
	}
	return part / whole * 100
}
