package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"TradePilot/internal/domain/models"
	"TradePilot/pkg/logger"
	"TradePilot/pkg/util"
)

// execute turns a decision into a MARKET order. BUY opens a position when
// none is open and the position limit allows; SELL closes the open
// position. SELL without a position is skipped.
func (e *Engine) execute(ctx context.Context, symbol string, price float64, d models.AggregatedDecision, now time.Time) {
	note := decisionNote(d)

	var order *models.Order
	var trade *models.TradeRecord
	var rejected string

	e.execMu.Lock()
	switch d.Action {
	case models.ActionBuy:
		order, rejected = e.buy(symbol, price, d, note, now)
	case models.ActionSell:
		order, trade, rejected = e.sell(symbol, price, note)
	}
	e.execMu.Unlock()

	if rejected != "" {
		e.deps.Metrics.RecordOrder(string(models.OrderRejected))
		e.logger.Warn("order rejected",
			logger.String("symbol", symbol),
			logger.String("action", string(d.Action)),
			logger.String("reason", rejected),
		)
		return
	}
	e.publish(ctx, order, trade)
}

// buy must be called with execMu held.
func (e *Engine) buy(symbol string, price float64, d models.AggregatedDecision, note string, now time.Time) (*models.Order, string) {
	if _, open := e.deps.Positions.Get(symbol); open {
		e.logger.Debug("buy skipped, position already open", logger.String("symbol", symbol))
		return nil, ""
	}
	if id, pending := e.openOrder(symbol, models.ActionBuy); pending {
		e.logger.Debug("buy skipped, order still open",
			logger.String("symbol", symbol),
			logger.String("order_id", id),
		)
		return nil, ""
	}
	if n := e.deps.Positions.Count(); n >= e.cfg.Risk.MaxOpenPositions {
		e.logger.Info("buy skipped, position limit reached",
			logger.String("symbol", symbol),
			logger.Int("open_positions", n),
		)
		return nil, ""
	}

	res := e.deps.Orders.CreateOrder(models.OrderRequest{
		Symbol:   symbol,
		Action:   models.ActionBuy,
		Quantity: e.cfg.Risk.PositionSizeUSD / price,
		Type:     models.OrderMarket,
		Price:    models.Float(price),
		Note:     note,
	})
	if res.Rejected {
		return nil, res.Reason
	}
	if res.Order.Status != models.OrderFilled {
		return res.Order, ""
	}

	entry := res.Order.FilledPrice
	if entry <= 0 {
		entry = price
	}
	if _, err := e.deps.Positions.Open(symbol, res.Order.FilledQuantity, entry, note, e.exitPlan(d, entry, now)); err != nil {
		e.logger.Error("open position failed",
			logger.String("symbol", symbol),
			logger.String("order_id", res.Order.ID),
			logger.Error(err),
		)
	}
	return res.Order, ""
}

// sell must be called with execMu held.
func (e *Engine) sell(symbol string, price float64, reason string) (*models.Order, *models.TradeRecord, string) {
	pos, open := e.deps.Positions.Get(symbol)
	if !open {
		e.logger.Debug("sell skipped, no open position", logger.String("symbol", symbol))
		return nil, nil, ""
	}
	if id, pending := e.openOrder(symbol, models.ActionSell); pending {
		e.logger.Debug("sell skipped, order still open",
			logger.String("symbol", symbol),
			logger.String("order_id", id),
		)
		return nil, nil, ""
	}

	res := e.deps.Orders.CreateOrder(models.OrderRequest{
		Symbol:   symbol,
		Action:   models.ActionSell,
		Quantity: pos.Quantity,
		Type:     models.OrderMarket,
		Price:    models.Float(price),
		Note:     reason,
	})
	if res.Rejected {
		return nil, nil, res.Reason
	}
	if res.Order.Status != models.OrderFilled {
		return res.Order, nil, ""
	}

	rec, err := e.deps.Positions.Close(symbol, res.Order.FilledPrice, reason)
	if err != nil {
		e.logger.Error("close position failed",
			logger.String("symbol", symbol),
			logger.String("order_id", res.Order.ID),
			logger.Error(err),
		)
		return res.Order, nil, ""
	}
	return res.Order, &rec, ""
}

// openOrder reports a non-terminal order for symbol and action. Live
// orders stay SUBMITTED until filled, so a repeated decision must not place
// another one.
func (e *Engine) openOrder(symbol string, action models.Action) (string, bool) {
	for _, o := range e.deps.Orders.OpenOrders() {
		if o.Symbol == symbol && o.Action == action {
			return o.ID, true
		}
	}
	return "", false
}

// exitPlan uses the decision's exits and falls back to the risk defaults.
func (e *Engine) exitPlan(d models.AggregatedDecision, entry float64, now time.Time) models.ExitPlan {
	plan := models.ExitPlan{
		StopLoss:     d.StopLoss,
		TakeProfit:   d.TakeProfit,
		MaxHoldUntil: util.HoursUntil(now, d.MaxHoldHours),
	}
	if plan.StopLoss == nil && e.cfg.Risk.DefaultStopLossPct > 0 {
		plan.StopLoss = models.Float(entry * (1 - e.cfg.Risk.DefaultStopLossPct))
	}
	if plan.TakeProfit == nil && e.cfg.Risk.DefaultTakeProfitPct > 0 {
		plan.TakeProfit = models.Float(entry * (1 + e.cfg.Risk.DefaultTakeProfitPct))
	}
	return plan
}

func (e *Engine) checkExits(ctx context.Context, symbol string, price float64, now time.Time) {
	exits := e.deps.Positions.CheckExits(map[string]float64{symbol: price}, now)
	for _, x := range exits {
		e.execMu.Lock()
		order, trade, rejected := e.sell(x.Symbol, x.Price, x.Reason)
		e.execMu.Unlock()

		if rejected != "" {
			e.deps.Metrics.RecordOrder(string(models.OrderRejected))
			e.logger.Warn("exit order rejected",
				logger.String("symbol", x.Symbol),
				logger.String("reason", rejected),
			)
			continue
		}
		e.publish(ctx, order, trade)
		if trade != nil {
			e.alert(ctx, models.AlertInfo, x.Symbol,
				fmt.Sprintf("Closed %s: %s", x.Symbol, x.Reason),
				map[string]interface{}{
					"exit_price": trade.ExitPrice,
					"pnl":        trade.PnL,
					"pnl_pct":    trade.PnLPct,
				})
		}
	}
}

// publish records orders and trades in the journal and on the event
// stream. Failures are logged and counted only.
func (e *Engine) publish(ctx context.Context, order *models.Order, trade *models.TradeRecord) {
	if order != nil {
		e.deps.Metrics.RecordOrder(string(order.Status))
		e.logger.Info("order placed",
			logger.String("order_id", order.ID),
			logger.String("symbol", order.Symbol),
			logger.String("action", string(order.Action)),
			logger.String("status", string(order.Status)),
			logger.Float64("quantity", order.Quantity),
			logger.Float64("filled_price", order.FilledPrice),
		)
		if e.deps.Journal != nil {
			if err := e.deps.Journal.RecordOrder(ctx, *order); err != nil {
				e.sinkFailed("journal", order.Symbol, err)
			}
		}
		if e.deps.Events != nil {
			if err := e.deps.Events.PublishOrder(ctx, *order); err != nil {
				e.sinkFailed("events", order.Symbol, err)
			}
		}
	}
	if trade != nil {
		if e.deps.Journal != nil {
			if err := e.deps.Journal.RecordTrade(ctx, *trade); err != nil {
				e.sinkFailed("journal", trade.Symbol, err)
			}
		}
		if e.deps.Events != nil {
			if err := e.deps.Events.PublishTrade(ctx, *trade); err != nil {
				e.sinkFailed("events", trade.Symbol, err)
			}
		}
	}
}

func (e *Engine) sinkFailed(kind, symbol string, err error) {
	e.deps.Metrics.RecordError(kind)
	e.logger.Warn(kind+" write failed",
		logger.String("symbol", symbol),
		logger.Error(err),
	)
}

// maxNoteRunes matches the note limit of manual order requests.
const maxNoteRunes = 200

func decisionNote(d models.AggregatedDecision) string {
	note := fmt.Sprintf("%s %.2f", d.Action, d.Confidence)
	if len(d.Reasons) > 0 {
		note += ": " + strings.Join(d.Reasons, "; ")
	}
	return util.TruncateRunes(note, maxNoteRunes)
}

// SubmitOrder places a manual order and journals it. Manual orders do not
// open or close positions.
func (e *Engine) SubmitOrder(ctx context.Context, req models.OrderRequest) models.OrderResult {
	e.execMu.Lock()
	res := e.deps.Orders.CreateOrder(req)
	e.execMu.Unlock()

	if res.Rejected {
		e.deps.Metrics.RecordOrder(string(models.OrderRejected))
		return res
	}
	e.publish(ctx, res.Order, nil)
	return res
}

// CancelOrder cancels an open order and journals the new state.
func (e *Engine) CancelOrder(ctx context.Context, id string) (models.Order, error) {
	e.execMu.Lock()
	o, err := e.deps.Orders.CancelOrder(id)
	e.execMu.Unlock()

	if err != nil {
		return models.Order{}, err
	}
	e.publish(ctx, &o, nil)
	return o, nil
}
