package strategy

import (
	"fmt"
	"math"

	"TradePilot/internal/domain/models"
	"TradePilot/internal/services/indicators"
)

// breakout fires when price clears the prior range on heavy volume.
type breakout struct {
	lookback   int
	volumeMult float64
	confidence float64
	stopPct    float64
	takePct    float64
	holdHours  float64
}

func newBreakout(p Params) Strategy {
	return &breakout{
		lookback:   int(p.Get("lookback", 20)),
		volumeMult: p.Get("volume_multiplier", 1.5),
		confidence: p.Get("confidence", 0.75),
		stopPct:    p.Get("stop_loss_pct", 0.02),
		takePct:    p.Get("take_profit_pct", 0.04),
		holdHours:  p.Get("max_hold_hours", 4),
	}
}

func (s *breakout) Name() string { return "breakout" }

func (s *breakout) Evaluate(in Input) (models.TradingSignal, bool) {
	high, low, ok := indicators.Range(in.Prices, s.lookback)
	if !ok || in.Snapshot.AvgVolume <= 0 {
		return models.TradingSignal{}, false
	}
	if in.Snapshot.Volume < in.Snapshot.AvgVolume*s.volumeMult {
		return models.TradingSignal{}, false
	}

	price := in.Snapshot.CurrentPrice
	volRatio := in.Snapshot.Volume / in.Snapshot.AvgVolume
	switch {
	case price > high:
		sig := signal(s.Name(), in, models.ActionBuy, s.confidence,
			fmt.Sprintf("price %.4f broke %d-point high %.4f on %.1fx volume", price, s.lookback, high, volRatio))
		return withExits(sig, s.stopPct, s.takePct, s.holdHours), true
	case price < low:
		return signal(s.Name(), in, models.ActionSell, s.confidence,
			fmt.Sprintf("price %.4f broke %d-point low %.4f on %.1fx volume", price, s.lookback, low, volRatio)), true
	}
	return models.TradingSignal{}, false
}

// maCross fires on the bar where the short MA crosses the long MA.
type maCross struct {
	confidence float64
	stopPct    float64
	takePct    float64
	holdHours  float64
}

func newMACross(p Params) Strategy {
	return &maCross{
		confidence: p.Get("confidence", 0.7),
		stopPct:    p.Get("stop_loss_pct", 0.02),
		takePct:    p.Get("take_profit_pct", 0.05),
		holdHours:  p.Get("max_hold_hours", 8),
	}
}

func (s *maCross) Name() string { return "ma_cross" }

func (s *maCross) Evaluate(in Input) (models.TradingSignal, bool) {
	ind := in.Indicators
	if ind.ShortMA == 0 || ind.LongMA == 0 || ind.PrevShortMA == 0 || ind.PrevLongMA == 0 {
		return models.TradingSignal{}, false
	}

	switch {
	case ind.PrevShortMA <= ind.PrevLongMA && ind.ShortMA > ind.LongMA:
		sig := signal(s.Name(), in, models.ActionBuy, s.confidence, "short MA crossed above long MA")
		return withExits(sig, s.stopPct, s.takePct, s.holdHours), true
	case ind.PrevShortMA >= ind.PrevLongMA && ind.ShortMA < ind.LongMA:
		return signal(s.Name(), in, models.ActionSell, s.confidence, "short MA crossed below long MA"), true
	}
	return models.TradingSignal{}, false
}

// momentumReversal fades RSI extremes once the day's move turns.
type momentumReversal struct {
	oversold   float64
	overbought float64
	stopPct    float64
	takePct    float64
	holdHours  float64
}

func newMomentumReversal(p Params) Strategy {
	return &momentumReversal{
		oversold:   p.Get("oversold", 30),
		overbought: p.Get("overbought", 70),
		stopPct:    p.Get("stop_loss_pct", 0.015),
		takePct:    p.Get("take_profit_pct", 0.03),
		holdHours:  p.Get("max_hold_hours", 2),
	}
}

func (s *momentumReversal) Name() string { return "momentum_reversal" }

func (s *momentumReversal) Evaluate(in Input) (models.TradingSignal, bool) {
	rsi := in.Indicators.RSI
	if rsi == 0 {
		return models.TradingSignal{}, false
	}
	change := in.Snapshot.ChangePct

	switch {
	case rsi < s.oversold && change > 0:
		conf := 0.6 + (s.oversold-rsi)/100
		sig := signal(s.Name(), in, models.ActionBuy, conf,
			fmt.Sprintf("RSI %.1f oversold and turning up (%+.2f%%)", rsi, change))
		return withExits(sig, s.stopPct, s.takePct, s.holdHours), true
	case rsi > s.overbought && change < 0:
		conf := 0.6 + (rsi-s.overbought)/100
		return signal(s.Name(), in, models.ActionSell, conf,
			fmt.Sprintf("RSI %.1f overbought and turning down (%+.2f%%)", rsi, change)), true
	}
	return models.TradingSignal{}, false
}

// orderFlowAnomaly follows a lopsided buy/sell imbalance on unusual volume.
type orderFlowAnomaly struct {
	imbalance  float64
	volumeMult float64
	stopPct    float64
	takePct    float64
	holdHours  float64
}

func newOrderFlowAnomaly(p Params) Strategy {
	return &orderFlowAnomaly{
		imbalance:  p.Get("imbalance", 0.3),
		volumeMult: p.Get("volume_multiplier", 2),
		stopPct:    p.Get("stop_loss_pct", 0.02),
		takePct:    p.Get("take_profit_pct", 0.04),
		holdHours:  p.Get("max_hold_hours", 1),
	}
}

func (s *orderFlowAnomaly) Name() string { return "order_flow_anomaly" }

func (s *orderFlowAnomaly) Evaluate(in Input) (models.TradingSignal, bool) {
	if in.OrderFlow == nil || in.Snapshot.AvgVolume <= 0 {
		return models.TradingSignal{}, false
	}
	if in.Snapshot.Volume < in.Snapshot.AvgVolume*s.volumeMult {
		return models.TradingSignal{}, false
	}

	imb := in.OrderFlow.Imbalance()
	conf := math.Min(0.55+math.Abs(imb)/2, 0.9)
	switch {
	case imb >= s.imbalance:
		sig := signal(s.Name(), in, models.ActionBuy, conf, fmt.Sprintf("buy-side imbalance %.2f", imb))
		return withExits(sig, s.stopPct, s.takePct, s.holdHours), true
	case imb <= -s.imbalance:
		return signal(s.Name(), in, models.ActionSell, conf, fmt.Sprintf("sell-side imbalance %.2f", imb)), true
	}
	return models.TradingSignal{}, false
}

// newsMomentum trades strong sentiment the tape agrees with.
type newsMomentum struct {
	threshold float64
	stopPct   float64
	takePct   float64
	holdHours float64
}

func newNewsMomentum(p Params) Strategy {
	return &newsMomentum{
		threshold: p.Get("sentiment_threshold", 0.5),
		stopPct:   p.Get("stop_loss_pct", 0.02),
		takePct:   p.Get("take_profit_pct", 0.05),
		holdHours: p.Get("max_hold_hours", 6),
	}
}

func (s *newsMomentum) Name() string { return "news_momentum" }

func (s *newsMomentum) Evaluate(in Input) (models.TradingSignal, bool) {
	if in.Sentiment == nil {
		return models.TradingSignal{}, false
	}
	score := in.Sentiment.Score
	if math.Abs(score) <= s.threshold {
		return models.TradingSignal{}, false
	}

	conf := math.Min(0.5+math.Abs(score)/2, 0.95)
	change := in.Snapshot.ChangePct
	switch {
	case score > 0 && change > 0:
		sig := signal(s.Name(), in, models.ActionBuy, conf,
			fmt.Sprintf("positive sentiment %.2f with price up %.2f%%", score, change))
		return withExits(sig, s.stopPct, s.takePct, s.holdHours), true
	case score < 0 && change < 0:
		return signal(s.Name(), in, models.ActionSell, conf,
			fmt.Sprintf("negative sentiment %.2f with price down %.2f%%", score, change)), true
	}
	return models.TradingSignal{}, false
}
