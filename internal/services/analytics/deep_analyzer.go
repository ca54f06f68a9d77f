package analytics

import (
	"context"
	"fmt"

	"TradePilot/internal/domain/models"
	domsvc "TradePilot/internal/domain/service"
	"TradePilot/pkg/config"
)

// HTTPDeepAnalyzer sends an anomaly and its market context to the LLM
// analysis service.
type HTTPDeepAnalyzer struct {
	base *HTTPServiceBase
}

func NewHTTPDeepAnalyzer(cfg *config.Config) *HTTPDeepAnalyzer {
	return &HTTPDeepAnalyzer{base: NewHTTPServiceBase(cfg, cfg.Analytics.DeepAnalysisURL)}
}

type deepReq struct {
	Anomaly models.AnomalyResult `json:"anomaly"`
	Context models.MarketContext `json:"context"`
}

func (a *HTTPDeepAnalyzer) Status() domsvc.Availability {
	if !a.base.Configured() {
		return domsvc.Unavailable("deep analysis service url not configured")
	}
	return domsvc.Available()
}

func (a *HTTPDeepAnalyzer) Analyze(ctx context.Context, anomaly models.AnomalyResult, mctx models.MarketContext) (models.DeepAnalysis, error) {
	var out models.DeepAnalysis
	if err := a.base.PostJSON(ctx, "/analysis/deep", deepReq{Anomaly: anomaly, Context: mctx}, &out); err != nil {
		return models.DeepAnalysis{}, fmt.Errorf("deep analysis %s: %w", mctx.Symbol, err)
	}
	return out, nil
}

var _ domsvc.DeepAnalyzer = (*HTTPDeepAnalyzer)(nil)
