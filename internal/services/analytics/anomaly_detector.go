package analytics

import (
	"context"
	"fmt"
	"math"

	"TradePilot/internal/domain/models"
	domsvc "TradePilot/internal/domain/service"
	"TradePilot/internal/services/indicators"
	"TradePilot/pkg/config"
)

// HTTPAnomalyDetector asks the anomaly model service for a verdict.
type HTTPAnomalyDetector struct {
	base *HTTPServiceBase
}

func NewHTTPAnomalyDetector(cfg *config.Config) *HTTPAnomalyDetector {
	return &HTTPAnomalyDetector{base: NewHTTPServiceBase(cfg, cfg.Analytics.AnomalyURL)}
}

type anomalyReq struct {
	Symbol       string      `json:"symbol"`
	FeatureNames []string    `json:"feature_names"`
	Features     []float64   `json:"features"`
	History      [][]float64 `json:"history"`
}

type anomalyResp struct {
	IsAnomaly bool    `json:"is_anomaly"`
	Severity  string  `json:"severity"`
	Score     float64 `json:"score"`
	Reason    string  `json:"reason"`
}

func (d *HTTPAnomalyDetector) Status() domsvc.Availability {
	if !d.base.Configured() {
		return domsvc.Unavailable("anomaly service url not configured")
	}
	return domsvc.Available()
}

func (d *HTTPAnomalyDetector) Detect(ctx context.Context, symbol string, features models.FeatureVector, history []models.FeatureVector) (models.AnomalyResult, error) {
	req := anomalyReq{
		Symbol:       symbol,
		FeatureNames: models.FeatureNames,
		Features:     features.Values(),
		History:      make([][]float64, 0, len(history)),
	}
	for _, h := range history {
		req.History = append(req.History, h.Values())
	}

	var ar anomalyResp
	if err := d.base.PostJSON(ctx, "/anomaly/detect", req, &ar); err != nil {
		return models.AnomalyResult{}, fmt.Errorf("detect anomaly: %w", err)
	}

	sev := models.Severity(ar.Severity)
	switch sev {
	case models.SeverityLow, models.SeverityMedium, models.SeverityHigh:
	case "":
		sev = models.SeverityLow
	default:
		return models.AnomalyResult{}, fmt.Errorf("detect anomaly: unknown severity %q", ar.Severity)
	}
	return models.AnomalyResult{
		IsAnomaly: ar.IsAnomaly,
		Severity:  sev,
		Score:     ar.Score,
		Reason:    ar.Reason,
	}, nil
}

// Z-score cut-offs of the statistical detector.
const (
	minStatHistory = 20
	zLow           = 2.5
	zMedium        = 3.0
	zHigh          = 4.0
	// zFlat scores a feature that moved off a history with no variance.
	zFlat = 10.0
)

// StatisticalAnomalyDetector flags features that sit far outside their own
// history, measured in standard deviations. It needs no external service.
type StatisticalAnomalyDetector struct{}

func NewStatisticalAnomalyDetector() *StatisticalAnomalyDetector {
	return &StatisticalAnomalyDetector{}
}

func (StatisticalAnomalyDetector) Status() domsvc.Availability {
	return domsvc.Available()
}

func (StatisticalAnomalyDetector) Detect(_ context.Context, _ string, features models.FeatureVector, history []models.FeatureVector) (models.AnomalyResult, error) {
	res := models.AnomalyResult{Severity: models.SeverityLow}
	if len(history) < minStatHistory {
		return res, nil
	}

	current := features.Values()
	columns := make([][]float64, len(current))
	for _, h := range history {
		for i, v := range h.Values() {
			columns[i] = append(columns[i], v)
		}
	}

	res.Features = make(map[string]float64, len(current))
	worst, worstFlat, worstValue := "", false, 0.0
	for i, name := range models.FeatureNames {
		diff := current[i] - indicators.Mean(columns[i])
		sd := indicators.StdDev(columns[i])
		var z float64
		switch {
		case sd > 0:
			z = diff / sd
		case diff != 0:
			z = math.Copysign(zFlat, diff)
		default:
			continue
		}
		res.Features[name] = z
		if math.Abs(z) > res.Score {
			res.Score = math.Abs(z)
			worst, worstFlat, worstValue = name, sd == 0, current[i]
		}
	}

	switch {
	case res.Score >= zHigh:
		res.Severity = models.SeverityHigh
	case res.Score >= zMedium:
		res.Severity = models.SeverityMedium
	}
	if res.Score >= zLow {
		res.IsAnomaly = true
		if worstFlat {
			res.Reason = fmt.Sprintf("%s moved to %g after a flat history", worst, worstValue)
		} else {
			res.Reason = fmt.Sprintf("%s is %.1f standard deviations from its mean", worst, res.Features[worst])
		}
	}
	return res, nil
}

var (
	_ domsvc.AnomalyDetector = (*HTTPAnomalyDetector)(nil)
	_ domsvc.AnomalyDetector = (*StatisticalAnomalyDetector)(nil)
)
