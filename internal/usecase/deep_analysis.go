package usecase

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"TradePilot/internal/domain/models"
	"TradePilot/pkg/logger"
)

const (
	criticalRiskScore  = 7.0
	contextNewsItems   = 10
	contextFeatureRows = 20
)

// deepAnalysisJob explains one anomaly on the escalation pool. It runs on
// the pool's context, so the market cycle that submitted it is never
// blocked or cancelled by it.
type deepAnalysisJob struct {
	id       string
	engine   *Engine
	symbol   string
	snapshot models.MarketSnapshot
	set      models.IndicatorSet
	anomaly  models.AnomalyResult
	features []models.FeatureVector
}

func newDeepAnalysisJob(e *Engine, symbol string, snap models.MarketSnapshot, set models.IndicatorSet, res models.AnomalyResult, history []models.FeatureVector) *deepAnalysisJob {
	if len(history) > contextFeatureRows {
		history = history[len(history)-contextFeatureRows:]
	}
	return &deepAnalysisJob{
		id:       uuid.NewString(),
		engine:   e,
		symbol:   symbol,
		snapshot: snap,
		set:      set,
		anomaly:  res,
		features: history,
	}
}

func (j *deepAnalysisJob) Name() string {
	return "deep_analysis:" + j.symbol
}

func (j *deepAnalysisJob) Handle(ctx context.Context) error {
	e := j.engine
	if st := e.deps.Deep.Status(); !st.Available {
		e.logger.Debug("deep analysis unavailable",
			logger.String("symbol", j.symbol),
			logger.String("job_id", j.id),
			logger.String("reason", st.Reason),
		)
		return nil
	}

	mctx := models.MarketContext{
		Symbol:     j.symbol,
		Snapshot:   j.snapshot,
		Indicators: j.set,
		RecentNews: e.recentNews(ctx, j.symbol, contextNewsItems),
		Sentiment:  e.cachedSentiment(ctx, j.symbol),
		Features:   j.features,
	}
	if pos, ok := e.deps.Positions.Get(j.symbol); ok {
		mctx.Position = &pos
	}

	res, err := e.deps.Deep.Analyze(ctx, j.anomaly, mctx)
	if err != nil {
		e.deps.Metrics.RecordError("deep_analyzer")
		return fmt.Errorf("deep analysis %s (%s): %w", j.symbol, j.id, err)
	}

	level := models.AlertWarning
	if res.RiskScore > criticalRiskScore {
		level = models.AlertCritical
	}
	e.alert(ctx, level, j.symbol,
		fmt.Sprintf("Deep analysis for %s: %s", j.symbol, res.RootCause),
		map[string]interface{}{
			"job_id":             j.id,
			"risk_score":         res.RiskScore,
			"recommended_action": res.RecommendedAction,
			"severity":           string(j.anomaly.Severity),
		})
	e.logger.Info("deep analysis completed",
		logger.String("symbol", j.symbol),
		logger.String("job_id", j.id),
		logger.Float64("risk_score", res.RiskScore),
		logger.String("level", string(level)),
	)
	return nil
}
