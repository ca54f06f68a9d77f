package indicators

import (
	"math"

	"github.com/markcheno/go-talib"

	"TradePilot/internal/domain/models"
)

// Window sizes. An indicator whose window is not satisfied is reported as 0.
const (
	ShortMAPeriod    = 20
	LongMAPeriod     = 50
	RSIPeriod        = 14
	MACDFast         = 12
	MACDSlow         = 26
	MACDSignalPeriod = 9
	BBPeriod         = 20
	BBDeviations     = 2.0
	VolatilityWindow = 20

	// macdMinPoints is the first length where talib emits a settled signal line.
	macdMinPoints = MACDSlow + MACDSignalPeriod
)

// Calculate computes the indicator set for a price history, oldest first.
func Calculate(prices []float64) models.IndicatorSet {
	set := models.IndicatorSet{Points: len(prices), Trend: models.TrendUnknown}
	n := len(prices)
	if n == 0 {
		return set
	}

	if n >= ShortMAPeriod {
		sma := talib.Sma(prices, ShortMAPeriod)
		set.ShortMA = sma[n-1]
		if n > ShortMAPeriod {
			set.PrevShortMA = sma[n-2]
		}
	}
	if n >= LongMAPeriod {
		sma := talib.Sma(prices, LongMAPeriod)
		set.LongMA = sma[n-1]
		if n > LongMAPeriod {
			set.PrevLongMA = sma[n-2]
		}
	}
	if n > RSIPeriod {
		rsi := talib.Rsi(prices, RSIPeriod)
		set.RSI = rsi[n-1]
	}
	if n >= macdMinPoints {
		macd, signal, hist := talib.Macd(prices, MACDFast, MACDSlow, MACDSignalPeriod)
		set.MACD = macd[n-1]
		set.MACDSignal = signal[n-1]
		set.MACDHistogram = hist[n-1]
	}
	if n >= BBPeriod {
		upper, middle, lower := talib.BBands(prices, BBPeriod, BBDeviations, BBDeviations, talib.SMA)
		set.BBUpper = upper[n-1]
		set.BBMiddle = middle[n-1]
		set.BBLower = lower[n-1]
	}

	set.Volatility = Volatility(prices, VolatilityWindow)
	set.Trend = trend(prices[n-1], set.ShortMA, set.LongMA)
	return set
}

func trend(price, short, long float64) string {
	if short == 0 || long == 0 {
		return models.TrendUnknown
	}
	switch {
	case price > short && short > long:
		return models.TrendUp
	case price < short && short < long:
		return models.TrendDown
	default:
		return models.TrendSideways
	}
}

// LogReturns computes r_t = ln(p_t / p_{t-1}); non-positive prices yield 0.
func LogReturns(prices []float64) []float64 {
	if len(prices) < 2 {
		return nil
	}
	out := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		prev, cur := prices[i-1], prices[i]
		if prev <= 0 || cur <= 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, math.Log(cur/prev))
	}
	return out
}

// Volatility is the sample standard deviation of the last window log
// returns, in percent. It needs window+1 prices.
func Volatility(prices []float64, window int) float64 {
	if window <= 1 || len(prices) < window+1 {
		return 0
	}
	returns := LogReturns(prices[len(prices)-window-1:])
	return StdDev(returns) * 100
}

// StdDev is the sample standard deviation; 0 for fewer than two values.
func StdDev(values []float64) float64 {
	n := float64(len(values))
	if n < 2 {
		return 0
	}
	mean := Mean(values)
	sum2 := 0.0
	for _, v := range values {
		d := v - mean
		sum2 += d * d
	}
	return math.Sqrt(sum2 / (n - 1))
}

func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Range returns the highest and lowest of the last n values, excluding the
// final one. ok is false when fewer than n+1 values exist.
func Range(values []float64, n int) (high, low float64, ok bool) {
	if n <= 0 || len(values) < n+1 {
		return 0, 0, false
	}
	window := values[len(values)-n-1 : len(values)-1]
	high, low = window[0], window[0]
	for _, v := range window[1:] {
		high = math.Max(high, v)
		low = math.Min(low, v)
	}
	return high, low, true
}

// PctChange is the percent change between the value n steps back and the last.
func PctChange(values []float64, n int) (float64, bool) {
	if n <= 0 || len(values) < n+1 {
		return 0, false
	}
	base := values[len(values)-n-1]
	if base == 0 {
		return 0, false
	}
	return (values[len(values)-1] - base) / base * 100, true
}
