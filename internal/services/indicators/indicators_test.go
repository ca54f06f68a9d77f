package indicators

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TradePilot/internal/domain/models"
)

func ramp(n int, start, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out
}

func TestCalculate_ShortWindowGuard(t *testing.T) {
	for _, n := range []int{0, 1, 10, 19} {
		set := Calculate(ramp(n, 100, 1))
		assert.Zero(t, set.ShortMA, "n=%d", n)
		assert.Zero(t, set.LongMA, "n=%d", n)
		assert.Zero(t, set.MACDHistogram, "n=%d", n)
		assert.Zero(t, set.BBUpper, "n=%d", n)
		assert.Equal(t, models.TrendUnknown, set.Trend)
	}
}

func TestCalculate_ShortMAAtExactWindow(t *testing.T) {
	prices := ramp(20, 1, 1)
	set := Calculate(prices)
	assert.InDelta(t, 10.5, set.ShortMA, 1e-9)
	assert.Zero(t, set.PrevShortMA)
	assert.Zero(t, set.LongMA)
	assert.NotZero(t, set.BBMiddle)
	assert.Greater(t, set.RSI, 0.0)
}

func TestCalculate_Uptrend(t *testing.T) {
	set := Calculate(ramp(60, 100, 0.5))

	require.NotZero(t, set.LongMA)
	assert.Greater(t, set.ShortMA, set.LongMA)
	assert.Equal(t, models.TrendUp, set.Trend)
	assert.InDelta(t, 100.0, set.RSI, 1e-6)
	assert.Greater(t, set.MACD, 0.0)
	assert.Greater(t, set.PrevShortMA, 0.0)
	assert.Less(t, set.PrevShortMA, set.ShortMA)
}

func TestCalculate_Downtrend(t *testing.T) {
	set := Calculate(ramp(60, 200, -0.5))
	assert.Equal(t, models.TrendDown, set.Trend)
	assert.Less(t, set.ShortMA, set.LongMA)
}

func TestVolatility(t *testing.T) {
	flat := make([]float64, 30)
	for i := range flat {
		flat[i] = 50
	}
	assert.Zero(t, Volatility(flat, 20))
	assert.Zero(t, Volatility(flat[:20], 20))

	zigzag := make([]float64, 21)
	for i := range zigzag {
		if i%2 == 0 {
			zigzag[i] = 100
		} else {
			zigzag[i] = 101
		}
	}
	vol := Volatility(zigzag, 20)
	assert.Greater(t, vol, 0.9)
	assert.Less(t, vol, 1.1)
}

func TestStdDevAndMean(t *testing.T) {
	assert.Zero(t, StdDev([]float64{1}))
	assert.InDelta(t, math.Sqrt(2.5), StdDev([]float64{1, 2, 3, 4, 5}), 1e-12)
	assert.Equal(t, 3.0, Mean([]float64{1, 2, 3, 4, 5}))
	assert.Zero(t, Mean(nil))
}

func TestRangeExcludesLast(t *testing.T) {
	high, low, ok := Range([]float64{5, 9, 1, 7, 100}, 4)
	require.True(t, ok)
	assert.Equal(t, 9.0, high)
	assert.Equal(t, 1.0, low)

	_, _, ok = Range([]float64{1, 2}, 4)
	assert.False(t, ok)
}

func TestPctChange(t *testing.T) {
	chg, ok := PctChange([]float64{100, 50, 110}, 2)
	require.True(t, ok)
	assert.InDelta(t, 10.0, chg, 1e-9)

	_, ok = PctChange([]float64{0, 1}, 1)
	assert.False(t, ok)
}

func TestBuildFeatures_Order(t *testing.T) {
	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	fv := BuildFeatures(
		models.MarketSnapshot{CurrentPrice: 10, ChangePct: 1.5, Volume: 1000, Timestamp: ts},
		models.IndicatorSet{RSI: 55, Volatility: 0.8, MACDHistogram: -0.2},
	)
	assert.Equal(t, []float64{10, 1.5, 1000, 55, 0.8, -0.2}, fv.Values())
	assert.Len(t, models.FeatureNames, len(fv.Values()))
	assert.Equal(t, ts, fv.Timestamp)
}

func TestAppendCapped(t *testing.T) {
	var h []int
	for i := 0; i < 10; i++ {
		h = AppendCapped(h, i, 3)
	}
	assert.Equal(t, []int{7, 8, 9}, h)

	h = AppendCapped([]int{1}, 2, 0)
	assert.Equal(t, []int{1, 2}, h)
}
