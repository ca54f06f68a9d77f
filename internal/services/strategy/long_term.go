package strategy

import (
	"fmt"

	"TradePilot/internal/domain/models"
	"TradePilot/internal/services/indicators"
)

type trendFollowing struct {
	confidence float64
	stopPct    float64
	takePct    float64
}

func newTrendFollowing(p Params) Strategy {
	return &trendFollowing{
		confidence: p.Get("confidence", 0.75),
		stopPct:    p.Get("stop_loss_pct", 0.05),
		takePct:    p.Get("take_profit_pct", 0.15),
	}
}

func (s *trendFollowing) Name() string { return "trend_following" }

func (s *trendFollowing) Evaluate(in Input) (models.TradingSignal, bool) {
	ind := in.Indicators
	if ind.LongMA == 0 || ind.MACDSignal == 0 {
		return models.TradingSignal{}, false
	}
	price := in.Snapshot.CurrentPrice

	switch {
	case ind.Trend == models.TrendUp && ind.MACDHistogram > 0 && price > ind.LongMA:
		sig := signal(s.Name(), in, models.ActionBuy, s.confidence, "uptrend confirmed by MACD and long MA")
		return withExits(sig, s.stopPct, s.takePct, 0), true
	case ind.Trend == models.TrendDown && ind.MACDHistogram < 0 && price < ind.LongMA:
		return signal(s.Name(), in, models.ActionSell, s.confidence, "downtrend confirmed by MACD and long MA"), true
	}
	return models.TradingSignal{}, false
}

type meanReversion struct {
	rsiLow     float64
	rsiHigh    float64
	confidence float64
	stopPct    float64
}

func newMeanReversion(p Params) Strategy {
	return &meanReversion{
		rsiLow:     p.Get("rsi_low", 35),
		rsiHigh:    p.Get("rsi_high", 65),
		confidence: p.Get("confidence", 0.7),
		stopPct:    p.Get("stop_loss_pct", 0.04),
	}
}

func (s *meanReversion) Name() string { return "mean_reversion" }

func (s *meanReversion) Evaluate(in Input) (models.TradingSignal, bool) {
	ind := in.Indicators
	if ind.BBLower == 0 || ind.RSI == 0 {
		return models.TradingSignal{}, false
	}
	price := in.Snapshot.CurrentPrice

	switch {
	case price <= ind.BBLower && ind.RSI < s.rsiLow:
		sig := signal(s.Name(), in, models.ActionBuy, s.confidence,
			fmt.Sprintf("price at lower band %.4f with RSI %.1f", ind.BBLower, ind.RSI))
		sig = withExits(sig, s.stopPct, 0, 0)
		// the middle band is the reversion target
		if ind.BBMiddle > price {
			sig.TakeProfit = models.Float(ind.BBMiddle)
		}
		return sig, true
	case price >= ind.BBUpper && ind.RSI > s.rsiHigh:
		return signal(s.Name(), in, models.ActionSell, s.confidence,
			fmt.Sprintf("price at upper band %.4f with RSI %.1f", ind.BBUpper, ind.RSI)), true
	}
	return models.TradingSignal{}, false
}

type momentum struct {
	lookback   int
	minChange  float64
	confidence float64
	stopPct    float64
	takePct    float64
}

func newMomentum(p Params) Strategy {
	return &momentum{
		lookback:   int(p.Get("lookback", 20)),
		minChange:  p.Get("min_change_pct", 5),
		confidence: p.Get("confidence", 0.7),
		stopPct:    p.Get("stop_loss_pct", 0.05),
		takePct:    p.Get("take_profit_pct", 0.10),
	}
}

func (s *momentum) Name() string { return "momentum" }

func (s *momentum) Evaluate(in Input) (models.TradingSignal, bool) {
	chg, ok := indicators.PctChange(in.Prices, s.lookback)
	rsi := in.Indicators.RSI
	if !ok || rsi == 0 {
		return models.TradingSignal{}, false
	}

	switch {
	case chg >= s.minChange && rsi >= 50 && rsi <= 70:
		sig := signal(s.Name(), in, models.ActionBuy, s.confidence,
			fmt.Sprintf("%+.2f%% over %d points with RSI %.1f", chg, s.lookback, rsi))
		return withExits(sig, s.stopPct, s.takePct, 0), true
	case chg <= -s.minChange && rsi >= 30 && rsi <= 50:
		return signal(s.Name(), in, models.ActionSell, s.confidence,
			fmt.Sprintf("%+.2f%% over %d points with RSI %.1f", chg, s.lookback, rsi)), true
	}
	return models.TradingSignal{}, false
}
