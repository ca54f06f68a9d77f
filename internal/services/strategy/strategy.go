package strategy

import (
	"fmt"
	"sort"
	"time"

	"TradePilot/internal/domain/models"
)

// Input is everything a strategy may look at for one symbol in one cycle.
type Input struct {
	Symbol     string
	Snapshot   models.MarketSnapshot
	Prices     []float64
	Indicators models.IndicatorSet
	Sentiment  *models.Sentiment
	OrderFlow  *models.OrderFlow
	Now        time.Time
}

// Strategy is a stateless threshold rule. Evaluate returns ok=false when the
// rule does not fire.
type Strategy interface {
	Name() string
	Evaluate(in Input) (models.TradingSignal, bool)
}

// Params holds numeric overrides from configuration.
type Params map[string]float64

// Get returns the override for key or def.
func (p Params) Get(key string, def float64) float64 {
	if v, ok := p[key]; ok {
		return v
	}
	return def
}

// Constructor builds a strategy from its parameters.
type Constructor func(p Params) Strategy

var registry = map[string]Constructor{
	"breakout":           newBreakout,
	"ma_cross":           newMACross,
	"momentum_reversal":  newMomentumReversal,
	"order_flow_anomaly": newOrderFlowAnomaly,
	"news_momentum":      newNewsMomentum,
	"trend_following":    newTrendFollowing,
	"mean_reversion":     newMeanReversion,
	"momentum":           newMomentum,
}

// Names lists the registered strategies.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Build constructs the named strategy.
func Build(name string, p Params) (Strategy, error) {
	ctor, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown strategy %q", name)
	}
	return ctor(p), nil
}

// signal fills the fields every strategy sets the same way.
func signal(name string, in Input, action models.Action, confidence float64, reason string) models.TradingSignal {
	return models.TradingSignal{
		Symbol:     in.Symbol,
		Strategy:   name,
		Action:     action,
		Price:      in.Snapshot.CurrentPrice,
		Confidence: clamp01(confidence),
		Reason:     reason,
		Timestamp:  in.Now,
	}
}

// withExits attaches stop-loss and take-profit levels as fractions of price.
func withExits(s models.TradingSignal, stopPct, takePct, holdHours float64) models.TradingSignal {
	if s.Action != models.ActionBuy || s.Price <= 0 {
		return s
	}
	if stopPct > 0 {
		s.StopLoss = models.Float(s.Price * (1 - stopPct))
	}
	if takePct > 0 {
		s.TakeProfit = models.Float(s.Price * (1 + takePct))
	}
	if holdHours > 0 {
		s.MaxHoldHours = models.Float(holdHours)
	}
	return s
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
