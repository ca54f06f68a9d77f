package indicators

import (
	"TradePilot/internal/domain/models"
)

// BuildFeatures assembles the anomaly model input for one cycle.
func BuildFeatures(s models.MarketSnapshot, set models.IndicatorSet) models.FeatureVector {
	return models.FeatureVector{
		Price:         s.CurrentPrice,
		ChangePct:     s.ChangePct,
		Volume:        s.Volume,
		RSI:           set.RSI,
		Volatility:    set.Volatility,
		MACDHistogram: set.MACDHistogram,
		Timestamp:     s.Timestamp,
	}
}

// AppendCapped appends v and drops the oldest entries beyond limit.
// The returned slice does not alias a dropped prefix.
func AppendCapped[T any](history []T, v T, limit int) []T {
	history = append(history, v)
	if limit > 0 && len(history) > limit {
		trimmed := make([]T, limit)
		copy(trimmed, history[len(history)-limit:])
		return trimmed
	}
	return history
}
