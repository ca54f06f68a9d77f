package analytics

import (
	"context"
	"errors"

	"TradePilot/internal/domain/models"
	domsvc "TradePilot/internal/domain/service"
	"TradePilot/pkg/config"
)

// ErrUnavailable is returned by every call on an unavailable collaborator.
var ErrUnavailable = errors.New("model collaborator unavailable")

// UnavailableAnomalyDetector is the explicit Unavailable variant.
type UnavailableAnomalyDetector struct{ Reason string }

func (u UnavailableAnomalyDetector) Status() domsvc.Availability { return domsvc.Unavailable(u.Reason) }

func (u UnavailableAnomalyDetector) Detect(context.Context, string, models.FeatureVector, []models.FeatureVector) (models.AnomalyResult, error) {
	return models.AnomalyResult{}, ErrUnavailable
}

type UnavailableDeepAnalyzer struct{ Reason string }

func (u UnavailableDeepAnalyzer) Status() domsvc.Availability { return domsvc.Unavailable(u.Reason) }

func (u UnavailableDeepAnalyzer) Analyze(context.Context, models.AnomalyResult, models.MarketContext) (models.DeepAnalysis, error) {
	return models.DeepAnalysis{}, ErrUnavailable
}

type UnavailableSentimentScorer struct{ Reason string }

func (u UnavailableSentimentScorer) Status() domsvc.Availability { return domsvc.Unavailable(u.Reason) }

func (u UnavailableSentimentScorer) Score(context.Context, []models.NewsItem) (models.Sentiment, error) {
	return models.Sentiment{}, ErrUnavailable
}

// NewAnomalyDetector picks the HTTP model when its URL is set and the
// statistical detector otherwise.
func NewAnomalyDetector(cfg *config.Config) domsvc.AnomalyDetector {
	if cfg.Analytics.AnomalyURL != "" {
		return NewHTTPAnomalyDetector(cfg)
	}
	return NewStatisticalAnomalyDetector()
}

func NewDeepAnalyzer(cfg *config.Config) domsvc.DeepAnalyzer {
	if cfg.Analytics.DeepAnalysisURL == "" {
		return UnavailableDeepAnalyzer{Reason: "analytics.deep_analysis_url not set"}
	}
	return NewHTTPDeepAnalyzer(cfg)
}

func NewSentimentScorer(cfg *config.Config) domsvc.SentimentScorer {
	if cfg.Analytics.SentimentURL == "" {
		return UnavailableSentimentScorer{Reason: "analytics.sentiment_url not set"}
	}
	return NewHTTPSentimentScorer(cfg)
}

var (
	_ domsvc.AnomalyDetector = UnavailableAnomalyDetector{}
	_ domsvc.DeepAnalyzer    = UnavailableDeepAnalyzer{}
	_ domsvc.SentimentScorer = UnavailableSentimentScorer{}
)
