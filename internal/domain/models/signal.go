package models

import "time"

type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionHold Action = "HOLD"
)

// TradingSignal is the output of one strategy evaluation.
type TradingSignal struct {
	Symbol       string    `json:"symbol"`
	Strategy     string    `json:"strategy"`
	Action       Action    `json:"action"`
	Price        float64   `json:"price"`
	Confidence   float64   `json:"confidence"`
	Weight       float64   `json:"weight"`
	StopLoss     *float64  `json:"stop_loss,omitempty"`
	TakeProfit   *float64  `json:"take_profit,omitempty"`
	MaxHoldHours *float64  `json:"max_hold_hours,omitempty"`
	Reason       string    `json:"reason"`
	Timestamp    time.Time `json:"timestamp"`
}

// AggregatedDecision is the single action derived from a signal set.
type AggregatedDecision struct {
	Symbol         string   `json:"symbol,omitempty"`
	Action         Action   `json:"action"`
	Confidence     float64  `json:"confidence"`
	BuyConfidence  float64  `json:"buy_confidence"`
	SellConfidence float64  `json:"sell_confidence"`
	Reasons        []string `json:"reasons"`
	SignalCount    int      `json:"signal_count"`
	BuyCount       int      `json:"buy_count"`
	SellCount      int      `json:"sell_count"`
	StopLoss       *float64 `json:"stop_loss,omitempty"`
	TakeProfit     *float64 `json:"take_profit,omitempty"`
	MaxHoldHours   *float64 `json:"max_hold_hours,omitempty"`
}

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}
