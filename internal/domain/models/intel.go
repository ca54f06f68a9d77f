package models

import "time"

type NewsItem struct {
	ID          string    `json:"id"`
	Symbol      string    `json:"symbol"`
	Headline    string    `json:"headline"`
	Summary     string    `json:"summary,omitempty"`
	Source      string    `json:"source,omitempty"`
	URL         string    `json:"url,omitempty"`
	PublishedAt time.Time `json:"published_at"`
}

type Announcement struct {
	ID          string    `json:"id"`
	Symbol      string    `json:"symbol"`
	Title       string    `json:"title"`
	Category    string    `json:"category,omitempty"`
	PublishedAt time.Time `json:"published_at"`
}

// Sentiment is a scored view over a batch of news, score in [-1, 1].
type Sentiment struct {
	Score     float64   `json:"score"`
	Overall   string    `json:"overall_sentiment"`
	Articles  int       `json:"articles"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MarketContext is what deep analysis sees about a symbol.
type MarketContext struct {
	Symbol     string          `json:"symbol"`
	Snapshot   MarketSnapshot  `json:"snapshot"`
	Indicators IndicatorSet    `json:"indicators"`
	RecentNews []NewsItem      `json:"recent_news"`
	Sentiment  *Sentiment      `json:"sentiment,omitempty"`
	Position   *Position       `json:"position,omitempty"`
	Features   []FeatureVector `json:"recent_features,omitempty"`
}

type DeepAnalysis struct {
	RootCause         string  `json:"root_cause"`
	RecommendedAction string  `json:"recommended_action"`
	RiskScore         float64 `json:"risk_score"`
}

type AlertLevel string

const (
	AlertInfo     AlertLevel = "INFO"
	AlertWarning  AlertLevel = "WARNING"
	AlertCritical AlertLevel = "CRITICAL"
)

type Alert struct {
	ID        string                 `json:"id"`
	Level     AlertLevel             `json:"level"`
	Message   string                 `json:"message"`
	Symbol    string                 `json:"symbol,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}
