package models

import "time"

type Position struct {
	Symbol       string     `json:"symbol"`
	Quantity     float64    `json:"quantity"`
	EntryPrice   float64    `json:"entry_price"`
	EntryTime    time.Time  `json:"entry_time"`
	Cost         float64    `json:"cost"`
	Note         string     `json:"note,omitempty"`
	StopLoss     *float64   `json:"stop_loss,omitempty"`
	TakeProfit   *float64   `json:"take_profit,omitempty"`
	MaxHoldUntil *time.Time `json:"max_hold_until,omitempty"`
}

// ExitPlan holds the optional exit levels attached when a position opens.
type ExitPlan struct {
	StopLoss     *float64
	TakeProfit   *float64
	MaxHoldUntil *time.Time
}

// TradeRecord is a closed position with realized P&L.
type TradeRecord struct {
	Symbol     string    `json:"symbol"`
	Quantity   float64   `json:"quantity"`
	EntryPrice float64   `json:"entry_price"`
	ExitPrice  float64   `json:"exit_price"`
	EntryTime  time.Time `json:"entry_time"`
	ExitTime   time.Time `json:"exit_time"`
	PnL        float64   `json:"pnl"`
	PnLPct     float64   `json:"pnl_pct"`
	Reason     string    `json:"reason"`
}

type PositionValue struct {
	Symbol       string  `json:"symbol"`
	Quantity     float64 `json:"quantity"`
	EntryPrice   float64 `json:"entry_price"`
	CurrentPrice float64 `json:"current_price"`
	Cost         float64 `json:"cost"`
	Value        float64 `json:"value"`
	PnL          float64 `json:"pnl"`
	PnLPct       float64 `json:"pnl_pct"`
	PriceStale   bool    `json:"price_stale"`
}

// PortfolioSnapshot values all open positions at supplied prices.
type PortfolioSnapshot struct {
	TotalCost   float64         `json:"total_cost"`
	TotalValue  float64         `json:"total_value"`
	TotalPnL    float64         `json:"total_pnl"`
	TotalPnLPct float64         `json:"total_pnl_pct"`
	Positions   []PositionValue `json:"positions"`
	Timestamp   time.Time       `json:"timestamp"`
}

// ExitSignal describes why an open position should be closed.
type ExitSignal struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
	Reason string  `json:"reason"`
}
