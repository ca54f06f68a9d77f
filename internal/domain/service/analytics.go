package service

import (
	"context"

	"TradePilot/internal/domain/models"
)

// Availability is the capability variant of a model collaborator.
// Callers branch on Available rather than probing concrete types.
type Availability struct {
	Available bool   `json:"available"`
	Reason    string `json:"reason,omitempty"`
}

func Available() Availability {
	return Availability{Available: true}
}

func Unavailable(reason string) Availability {
	return Availability{Available: false, Reason: reason}
}

// AnomalyDetector classifies the latest features against their history.
type AnomalyDetector interface {
	Status() Availability
	Detect(ctx context.Context, symbol string, features models.FeatureVector, history []models.FeatureVector) (models.AnomalyResult, error)
}

// DeepAnalyzer explains an anomaly in its market context.
type DeepAnalyzer interface {
	Status() Availability
	Analyze(ctx context.Context, anomaly models.AnomalyResult, mctx models.MarketContext) (models.DeepAnalysis, error)
}

// SentimentScorer scores a batch of news.
type SentimentScorer interface {
	Status() Availability
	Score(ctx context.Context, news []models.NewsItem) (models.Sentiment, error)
}
