package strategy

import (
	"fmt"
	"math"

	"TradePilot/internal/domain/models"
)

// Defaults for AggregateSignals.
const (
	DefaultMinConfidence = 0.6
	quorum               = 2
)

// AggregateSignals resolves a signal set into one decision by weighted
// voting. It is pure: the same input always yields the same decision.
//
// With requireMulti set, fewer than two signals on both sides yields HOLD
// before confidences are compared. Otherwise the side with the higher
// weighted confidence wins if it also reaches minConfidence; ties hold.
// BUY decisions carry the highest stop-loss, the mean take-profit and the
// shortest hold window of the buy signals. SELL decisions carry none.
func AggregateSignals(signals []models.TradingSignal, minConfidence float64, requireMulti bool) models.AggregatedDecision {
	d := models.AggregatedDecision{
		Action:      models.ActionHold,
		SignalCount: len(signals),
		Reasons:     []string{},
	}
	if len(signals) > 0 {
		d.Symbol = signals[0].Symbol
	}

	var totalWeight, buyScore, sellScore float64
	var buys, sells []models.TradingSignal
	for _, s := range signals {
		totalWeight += s.Weight
		switch s.Action {
		case models.ActionBuy:
			buys = append(buys, s)
			buyScore += s.Weight * s.Confidence
		case models.ActionSell:
			sells = append(sells, s)
			sellScore += s.Weight * s.Confidence
		}
	}
	d.BuyCount = len(buys)
	d.SellCount = len(sells)
	if totalWeight > 0 {
		d.BuyConfidence = buyScore / totalWeight
		d.SellConfidence = sellScore / totalWeight
	}

	if requireMulti && d.BuyCount < quorum && d.SellCount < quorum {
		d.Confidence = math.Max(d.BuyConfidence, d.SellConfidence)
		d.Reasons = append(d.Reasons, fmt.Sprintf(
			"insufficient agreement: %d buy, %d sell, need %d on one side", d.BuyCount, d.SellCount, quorum))
		return d
	}

	switch {
	case d.BuyConfidence > d.SellConfidence && d.BuyConfidence >= minConfidence:
		d.Action = models.ActionBuy
		d.Confidence = d.BuyConfidence
		d.Reasons = reasons(d.Reasons, buys)
		applyBuyExits(&d, buys)
	case d.SellConfidence > d.BuyConfidence && d.SellConfidence >= minConfidence:
		d.Action = models.ActionSell
		d.Confidence = d.SellConfidence
		d.Reasons = reasons(d.Reasons, sells)
	default:
		d.Confidence = math.Max(d.BuyConfidence, d.SellConfidence)
		d.Reasons = append(d.Reasons, fmt.Sprintf(
			"no decisive side: buy %.3f, sell %.3f, min %.2f", d.BuyConfidence, d.SellConfidence, minConfidence))
	}
	return d
}

func reasons(dst []string, signals []models.TradingSignal) []string {
	for _, s := range signals {
		dst = append(dst, fmt.Sprintf("%s: %s", s.Strategy, s.Reason))
	}
	return dst
}

func applyBuyExits(d *models.AggregatedDecision, buys []models.TradingSignal) {
	var takeSum float64
	var takeCount int
	for _, s := range buys {
		if s.StopLoss != nil && (d.StopLoss == nil || *s.StopLoss > *d.StopLoss) {
			d.StopLoss = models.Float(*s.StopLoss)
		}
		if s.TakeProfit != nil {
			takeSum += *s.TakeProfit
			takeCount++
		}
		if s.MaxHoldHours != nil && (d.MaxHoldHours == nil || *s.MaxHoldHours < *d.MaxHoldHours) {
			d.MaxHoldHours = models.Float(*s.MaxHoldHours)
		}
	}
	if takeCount > 0 {
		d.TakeProfit = models.Float(takeSum / float64(takeCount))
	}
}
