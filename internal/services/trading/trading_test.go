package trading

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TradePilot/internal/domain/models"
	"TradePilot/pkg/logger"
)

var day1 = time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

func fixedClock(t *time.Time) func() time.Time {
	return func() time.Time { return *t }
}

func market(symbol string, action models.Action, qty float64) models.OrderRequest {
	return models.OrderRequest{Symbol: symbol, Action: action, Quantity: qty, Type: models.OrderMarket}
}

func TestCreateOrder_Validation(t *testing.T) {
	m := NewOrderManager(logger.Nop(), true)

	cases := []struct {
		name   string
		req    models.OrderRequest
		reason string
	}{
		{"zero quantity", market("AAPL", models.ActionBuy, 0), "quantity"},
		{"negative quantity", market("AAPL", models.ActionBuy, -3), "quantity"},
		{"hold action", market("AAPL", models.ActionHold, 1), "action"},
		{"limit without price", models.OrderRequest{Symbol: "AAPL", Action: models.ActionBuy, Quantity: 1, Type: models.OrderLimit}, "price"},
		{"stop without stop price", models.OrderRequest{Symbol: "AAPL", Action: models.ActionSell, Quantity: 1, Type: models.OrderStop}, "stop price"},
		{"unknown type", models.OrderRequest{Symbol: "AAPL", Action: models.ActionSell, Quantity: 1, Type: "ICEBERG"}, "order type"},
		{"no symbol", market("", models.ActionBuy, 1), "symbol"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := m.CreateOrder(tc.req)
			assert.True(t, res.Rejected)
			assert.Nil(t, res.Order)
			assert.Contains(t, res.Reason, tc.reason)
		})
	}
	assert.Empty(t, m.List(models.OrderFilter{}))
}

func TestCreateOrder_DryRunMarketFills(t *testing.T) {
	m := NewOrderManager(logger.Nop(), true)

	req := market("AAPL", models.ActionBuy, 10)
	req.Price = models.Float(187.5)
	res := m.CreateOrder(req)

	require.False(t, res.Rejected)
	require.NotNil(t, res.Order)
	assert.Equal(t, models.OrderFilled, res.Order.Status)
	assert.Equal(t, 10.0, res.Order.FilledQuantity)
	assert.Equal(t, 187.5, res.Order.FilledPrice)
	assert.True(t, res.Order.DryRun)
}

func TestCreateOrder_FallbackPrice(t *testing.T) {
	m := NewOrderManager(logger.Nop(), true, WithFallbackPrice(func(symbol string) (float64, bool) {
		return 42, symbol == "MSFT"
	}))

	res := m.CreateOrder(market("MSFT", models.ActionSell, 1))
	assert.Equal(t, 42.0, res.Order.FilledPrice)

	res = m.CreateOrder(market("NVDA", models.ActionSell, 1))
	assert.Equal(t, models.OrderFilled, res.Order.Status)
	assert.Zero(t, res.Order.FilledPrice)
}

func TestCreateOrder_NonMarketAndLiveSubmitted(t *testing.T) {
	dry := NewOrderManager(logger.Nop(), true)
	res := dry.CreateOrder(models.OrderRequest{
		Symbol: "AAPL", Action: models.ActionBuy, Quantity: 1, Type: models.OrderLimit, Price: models.Float(100),
	})
	assert.Equal(t, models.OrderSubmitted, res.Order.Status)
	assert.Zero(t, res.Order.FilledQuantity)

	live := NewOrderManager(logger.Nop(), false)
	res = live.CreateOrder(market("AAPL", models.ActionBuy, 1))
	assert.Equal(t, models.OrderSubmitted, res.Order.Status)
	assert.False(t, res.Order.DryRun)
	assert.Len(t, live.OpenOrders(), 1)
}

func TestList_NewestFirstPastSixDigitSequence(t *testing.T) {
	now := day1
	m := NewOrderManager(logger.Nop(), true, WithOrderClock(fixedClock(&now)))
	m.seqDate, m.seq = "20240301", 999998

	for i := 0; i < 3; i++ {
		m.CreateOrder(market("AAPL", models.ActionBuy, 1))
	}

	got := m.List(models.OrderFilter{})
	require.Len(t, got, 3)
	assert.Equal(t, "ORD-20240301-1000001", got[0].ID)
	assert.Equal(t, "ORD-20240301-1000000", got[1].ID)
	assert.Equal(t, "ORD-20240301-999999", got[2].ID)

	limited := m.List(models.OrderFilter{Limit: 1})
	require.Len(t, limited, 1)
	assert.Equal(t, "ORD-20240301-1000001", limited[0].ID)
}

func TestOrderIDs_MonotonicAndDateScoped(t *testing.T) {
	now := day1
	m := NewOrderManager(logger.Nop(), true, WithOrderClock(fixedClock(&now)))

	var ids []string
	for i := 0; i < 25; i++ {
		ids = append(ids, m.CreateOrder(market("AAPL", models.ActionBuy, 1)).Order.ID)
	}
	now = day1.Add(24 * time.Hour)
	ids = append(ids, m.CreateOrder(market("AAPL", models.ActionBuy, 1)).Order.ID)

	assert.Equal(t, "ORD-20240301-000001", ids[0])
	assert.Equal(t, "ORD-20240302-000001", ids[len(ids)-1])
	seen := map[string]bool{}
	for i, id := range ids {
		assert.False(t, seen[id], "duplicate %s", id)
		seen[id] = true
		if i > 0 {
			assert.Greater(t, id, ids[i-1])
		}
	}
}

func TestCancelOrder(t *testing.T) {
	m := NewOrderManager(logger.Nop(), true)

	filled := m.CreateOrder(market("AAPL", models.ActionBuy, 1)).Order
	_, err := m.CancelOrder(filled.ID)
	assert.True(t, errors.Is(err, ErrInvalidTransition))
	got, err := m.Get(filled.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderFilled, got.Status)

	limit := m.CreateOrder(models.OrderRequest{
		Symbol: "AAPL", Action: models.ActionBuy, Quantity: 1, Type: models.OrderLimit, Price: models.Float(90),
	}).Order
	cancelled, err := m.CancelOrder(limit.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderCancelled, cancelled.Status)

	_, err = m.CancelOrder(limit.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = m.CancelOrder("ORD-19990101-000001")
	assert.ErrorIs(t, err, ErrUnknownOrder)
	assert.Empty(t, m.OpenOrders())
}

func TestListFilters(t *testing.T) {
	m := NewOrderManager(logger.Nop(), true)
	m.CreateOrder(market("AAPL", models.ActionBuy, 1))
	m.CreateOrder(market("MSFT", models.ActionBuy, 1))
	last := m.CreateOrder(market("AAPL", models.ActionSell, 1)).Order

	aapl := m.List(models.OrderFilter{Symbol: "AAPL"})
	require.Len(t, aapl, 2)
	assert.Equal(t, last.ID, aapl[0].ID)
	assert.Len(t, m.List(models.OrderFilter{Limit: 1}), 1)
	assert.Empty(t, m.List(models.OrderFilter{Status: models.OrderCancelled}))
}

func TestPositions_OpenClose(t *testing.T) {
	now := day1
	p := NewPositionTracker(logger.Nop(), WithPositionClock(fixedClock(&now)))

	_, err := p.Open("AAPL", 10, 100, "test", models.ExitPlan{StopLoss: models.Float(95)})
	require.NoError(t, err)
	_, err = p.Open("AAPL", 5, 101, "", models.ExitPlan{})
	assert.ErrorIs(t, err, ErrPositionExists)
	_, err = p.Open("MSFT", 0, 101, "", models.ExitPlan{})
	assert.Error(t, err)

	now = day1.Add(time.Hour)
	rec, err := p.Close("AAPL", 110, "take profit")
	require.NoError(t, err)
	assert.Equal(t, 100.0, rec.PnL)
	assert.InDelta(t, 10.0, rec.PnLPct, 1e-9)
	assert.Equal(t, day1, rec.EntryTime)
	assert.Equal(t, now, rec.ExitTime)
	assert.Zero(t, p.Count())

	_, err = p.Close("AAPL", 110, "again")
	assert.ErrorIs(t, err, ErrNoPosition)
	assert.Len(t, p.Trades(0), 1)
}

func TestPositions_TradeHistoryCapped(t *testing.T) {
	p := NewPositionTracker(logger.Nop(), WithTradeHistory(2))
	for i := 0; i < 4; i++ {
		_, err := p.Open("AAPL", 1, 100, "", models.ExitPlan{})
		require.NoError(t, err)
		_, err = p.Close("AAPL", 100+float64(i), "")
		require.NoError(t, err)
	}
	trades := p.Trades(0)
	require.Len(t, trades, 2)
	assert.Equal(t, 103.0, trades[0].ExitPrice)
}

func TestCalculatePortfolioValue(t *testing.T) {
	p := NewPositionTracker(logger.Nop())
	_, _ = p.Open("AAPL", 10, 100, "", models.ExitPlan{})
	_, _ = p.Open("MSFT", 2, 300, "", models.ExitPlan{})

	snap := p.CalculatePortfolioValue(map[string]float64{"AAPL": 120})

	assert.Equal(t, 1600.0, snap.TotalCost)
	assert.Equal(t, 1800.0, snap.TotalValue)
	assert.Equal(t, 200.0, snap.TotalPnL)
	assert.InDelta(t, 12.5, snap.TotalPnLPct, 1e-9)
	require.Len(t, snap.Positions, 2)
	assert.False(t, snap.Positions[0].PriceStale)
	assert.True(t, snap.Positions[1].PriceStale)
	assert.Equal(t, 300.0, snap.Positions[1].CurrentPrice)

	empty := NewPositionTracker(logger.Nop()).CalculatePortfolioValue(nil)
	assert.Zero(t, empty.TotalPnLPct)
}

func TestCheckExits(t *testing.T) {
	p := NewPositionTracker(logger.Nop(), WithPositionClock(func() time.Time { return day1 }))
	deadline := day1.Add(2 * time.Hour)
	_, _ = p.Open("AAPL", 1, 100, "", models.ExitPlan{StopLoss: models.Float(95), TakeProfit: models.Float(110)})
	_, _ = p.Open("MSFT", 1, 300, "", models.ExitPlan{MaxHoldUntil: &deadline})
	_, _ = p.Open("NVDA", 1, 500, "", models.ExitPlan{})

	prices := map[string]float64{"AAPL": 94, "MSFT": 301, "NVDA": 1}
	exits := p.CheckExits(prices, day1.Add(time.Hour))
	require.Len(t, exits, 1)
	assert.Equal(t, "AAPL", exits[0].Symbol)
	assert.Contains(t, exits[0].Reason, "stop-loss")

	prices["AAPL"] = 111
	exits = p.CheckExits(prices, deadline)
	require.Len(t, exits, 2)
	assert.Contains(t, exits[0].Reason, "take-profit")
	assert.Equal(t, "MSFT", exits[1].Symbol)
}
