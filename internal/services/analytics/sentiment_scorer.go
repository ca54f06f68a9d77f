package analytics

import (
	"context"
	"fmt"
	"time"

	"TradePilot/internal/domain/models"
	domsvc "TradePilot/internal/domain/service"
	"TradePilot/pkg/config"
)

type HTTPSentimentScorer struct {
	base *HTTPServiceBase
}

func NewHTTPSentimentScorer(cfg *config.Config) *HTTPSentimentScorer {
	return &HTTPSentimentScorer{base: NewHTTPServiceBase(cfg, cfg.Analytics.SentimentURL)}
}

type sentimentReq struct {
	Texts []string `json:"texts"`
}

type sentimentResp struct {
	Score   float64 `json:"score"`
	Overall string  `json:"overall_sentiment"`
}

func (s *HTTPSentimentScorer) Status() domsvc.Availability {
	if !s.base.Configured() {
		return domsvc.Unavailable("sentiment service url not configured")
	}
	return domsvc.Available()
}

func (s *HTTPSentimentScorer) Score(ctx context.Context, news []models.NewsItem) (models.Sentiment, error) {
	out := models.Sentiment{Overall: OverallSentiment(0), Articles: len(news), UpdatedAt: time.Now()}
	if len(news) == 0 {
		return out, nil
	}

	req := sentimentReq{Texts: make([]string, 0, len(news))}
	for _, n := range news {
		text := n.Headline
		if n.Summary != "" {
			text += ". " + n.Summary
		}
		req.Texts = append(req.Texts, text)
	}

	var sr sentimentResp
	if err := s.base.PostJSON(ctx, "/sentiment/score", req, &sr); err != nil {
		return models.Sentiment{}, fmt.Errorf("score sentiment: %w", err)
	}
	out.Score = clampUnit(sr.Score)
	out.Overall = sr.Overall
	if out.Overall == "" {
		out.Overall = OverallSentiment(out.Score)
	}
	return out, nil
}

// OverallSentiment labels a score in [-1, 1].
func OverallSentiment(score float64) string {
	switch {
	case score > 0.2:
		return "positive"
	case score < -0.2:
		return "negative"
	default:
		return "neutral"
	}
}

func clampUnit(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}

var _ domsvc.SentimentScorer = (*HTTPSentimentScorer)(nil)
