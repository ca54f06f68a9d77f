package strategy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TradePilot/internal/domain/models"
)

func sig(action models.Action, conf, weight float64) models.TradingSignal {
	return models.TradingSignal{
		Symbol:     "AAPL",
		Strategy:   "test",
		Action:     action,
		Confidence: conf,
		Weight:     weight,
		Timestamp:  time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestAggregate_QuorumGate(t *testing.T) {
	cases := [][]models.TradingSignal{
		nil,
		{sig(models.ActionBuy, 0.99, 1)},
		{sig(models.ActionBuy, 0.99, 5), sig(models.ActionSell, 0.1, 1)},
	}
	for _, signals := range cases {
		d := AggregateSignals(signals, DefaultMinConfidence, true)
		assert.Equal(t, models.ActionHold, d.Action)
		assert.Equal(t, len(signals), d.SignalCount)
		require.NotEmpty(t, d.Reasons)
		assert.Contains(t, d.Reasons[0], "insufficient agreement")
	}

	d := AggregateSignals([]models.TradingSignal{sig(models.ActionBuy, 0.9, 1)}, DefaultMinConfidence, true)
	assert.InDelta(t, 0.9, d.Confidence, 1e-9)
	assert.Nil(t, d.StopLoss)
}

func TestAggregate_QuorumDisabled(t *testing.T) {
	d := AggregateSignals([]models.TradingSignal{sig(models.ActionSell, 0.8, 1)}, DefaultMinConfidence, false)
	assert.Equal(t, models.ActionSell, d.Action)
	assert.InDelta(t, 0.8, d.Confidence, 1e-9)
}

func TestAggregate_WeightedConfidenceBelowThreshold(t *testing.T) {
	signals := []models.TradingSignal{
		sig(models.ActionBuy, 0.8, 1),
		sig(models.ActionBuy, 0.7, 1),
		sig(models.ActionSell, 0.9, 1),
	}
	d := AggregateSignals(signals, 0.6, true)

	assert.Equal(t, models.ActionHold, d.Action)
	assert.InDelta(t, 0.5, d.BuyConfidence, 1e-9)
	assert.InDelta(t, 0.3, d.SellConfidence, 1e-9)
	assert.Equal(t, 2, d.BuyCount)
	assert.Equal(t, 1, d.SellCount)
}

func decisiveSignals() []models.TradingSignal {
	a := sig(models.ActionBuy, 0.8, 1.5)
	a.StopLoss = models.Float(97)
	a.TakeProfit = models.Float(104)
	a.MaxHoldHours = models.Float(4)

	b := sig(models.ActionBuy, 0.75, 1.0)
	b.StopLoss = models.Float(98.5)
	b.TakeProfit = models.Float(106)
	b.MaxHoldHours = models.Float(8)

	return []models.TradingSignal{a, b, sig(models.ActionSell, 0.6, 1.0)}
}

func TestAggregate_DecisiveMajority(t *testing.T) {
	signals := decisiveSignals()

	// buy = (0.8*1.5 + 0.75) / 3.5, sell = 0.6 / 3.5
	held := AggregateSignals(signals, 0.6, true)
	assert.Equal(t, models.ActionHold, held.Action)
	assert.InDelta(t, 1.95/3.5, held.BuyConfidence, 1e-9)
	assert.InDelta(t, 0.6/3.5, held.SellConfidence, 1e-9)

	d := AggregateSignals(signals, 0.5, true)
	require.Equal(t, models.ActionBuy, d.Action)
	assert.InDelta(t, 1.95/3.5, d.Confidence, 1e-9)
	require.NotNil(t, d.StopLoss)
	require.NotNil(t, d.TakeProfit)
	require.NotNil(t, d.MaxHoldHours)
	assert.Equal(t, 98.5, *d.StopLoss)
	assert.Equal(t, 105.0, *d.TakeProfit)
	assert.Equal(t, 4.0, *d.MaxHoldHours)
	assert.Len(t, d.Reasons, 2)
}

func TestAggregate_SellCarriesNoExitLevels(t *testing.T) {
	a := sig(models.ActionSell, 0.9, 1)
	a.StopLoss = models.Float(110)
	b := sig(models.ActionSell, 0.8, 1)

	d := AggregateSignals([]models.TradingSignal{a, b}, 0.6, true)
	assert.Equal(t, models.ActionSell, d.Action)
	assert.InDelta(t, 0.85, d.Confidence, 1e-9)
	assert.Nil(t, d.StopLoss)
	assert.Nil(t, d.TakeProfit)
	assert.Nil(t, d.MaxHoldHours)
}

func TestAggregate_TieHolds(t *testing.T) {
	signals := []models.TradingSignal{
		sig(models.ActionBuy, 0.9, 1),
		sig(models.ActionBuy, 0.9, 1),
		sig(models.ActionSell, 0.9, 1),
		sig(models.ActionSell, 0.9, 1),
	}
	d := AggregateSignals(signals, 0.1, true)
	assert.Equal(t, models.ActionHold, d.Action)
	assert.InDelta(t, 0.45, d.Confidence, 1e-9)
}

func TestAggregate_ZeroWeight(t *testing.T) {
	signals := []models.TradingSignal{
		sig(models.ActionBuy, 0.9, 0),
		sig(models.ActionBuy, 0.9, 0),
	}
	d := AggregateSignals(signals, 0.6, true)
	assert.Equal(t, models.ActionHold, d.Action)
	assert.Zero(t, d.BuyConfidence)
	assert.Zero(t, d.SellConfidence)
}

func TestAggregate_Idempotent(t *testing.T) {
	signals := decisiveSignals()
	first := AggregateSignals(signals, 0.5, true)
	second := AggregateSignals(signals, 0.5, true)
	assert.Equal(t, first, second)
	assert.NotSame(t, first.StopLoss, signals[1].StopLoss)
}
