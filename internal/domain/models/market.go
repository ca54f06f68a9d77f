package models

import "time"

// MarketSnapshot is the latest market state of one symbol.
type MarketSnapshot struct {
	Symbol       string    `json:"symbol"`
	CurrentPrice float64   `json:"current_price"`
	Open         float64   `json:"open"`
	High         float64   `json:"high"`
	Low          float64   `json:"low"`
	Volume       float64   `json:"volume"`
	ChangePct    float64   `json:"change_pct"`
	AvgVolume    float64   `json:"avg_volume"`
	Timestamp    time.Time `json:"timestamp"`
}

// Trade is one print from a streaming feed.
type Trade struct {
	Symbol    string
	Price     float64
	Volume    float64
	Timestamp time.Time
}

// IndicatorSet holds indicators computed from a rolling price window.
// A zero value means the indicator's window was not satisfied.
type IndicatorSet struct {
	ShortMA       float64 `json:"short_ma"`
	LongMA        float64 `json:"long_ma"`
	PrevShortMA   float64 `json:"prev_short_ma"`
	PrevLongMA    float64 `json:"prev_long_ma"`
	RSI           float64 `json:"rsi"`
	MACD          float64 `json:"macd"`
	MACDSignal    float64 `json:"macd_signal"`
	MACDHistogram float64 `json:"macd_histogram"`
	BBUpper       float64 `json:"bb_upper"`
	BBMiddle      float64 `json:"bb_middle"`
	BBLower       float64 `json:"bb_lower"`
	Trend         string  `json:"trend"`
	Volatility    float64 `json:"volatility"`
	Points        int     `json:"points"`
}

const (
	TrendUp       = "uptrend"
	TrendDown     = "downtrend"
	TrendSideways = "sideways"
	TrendUnknown  = "unknown"
)

// FeatureVector is the fixed-order anomaly model input.
type FeatureVector struct {
	Price         float64   `json:"price"`
	ChangePct     float64   `json:"change_pct"`
	Volume        float64   `json:"volume"`
	RSI           float64   `json:"rsi"`
	Volatility    float64   `json:"volatility"`
	MACDHistogram float64   `json:"macd_histogram"`
	Timestamp     time.Time `json:"timestamp"`
}

// FeatureNames lists the FeatureVector fields in Values order.
var FeatureNames = []string{"price", "change_pct", "volume", "rsi", "volatility", "macd_histogram"}

// Values returns the features in FeatureNames order.
func (f FeatureVector) Values() []float64 {
	return []float64{f.Price, f.ChangePct, f.Volume, f.RSI, f.Volatility, f.MACDHistogram}
}

type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Escalates reports whether an anomaly of this severity warrants deep analysis.
func (s Severity) Escalates() bool {
	return s == SeverityMedium || s == SeverityHigh
}

type AnomalyResult struct {
	IsAnomaly bool               `json:"is_anomaly"`
	Severity  Severity           `json:"severity"`
	Score     float64            `json:"score"`
	Features  map[string]float64 `json:"features,omitempty"`
	Reason    string             `json:"reason,omitempty"`
}

// OrderFlow is optional extra strategy input.
type OrderFlow struct {
	BuyVolume  float64 `json:"buy_volume"`
	SellVolume float64 `json:"sell_volume"`
}

// Imbalance is (buy - sell) / (buy + sell), 0 when there is no volume.
func (o OrderFlow) Imbalance() float64 {
	total := o.BuyVolume + o.SellVolume
	if total <= 0 {
		return 0
	}
	return (o.BuyVolume - o.SellVolume) / total
}
