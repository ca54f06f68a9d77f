package usecase

import (
	"sort"
	"time"

	domsvc "TradePilot/internal/domain/service"
	"TradePilot/pkg/scheduler"
)

type AssetStatus struct {
	Symbol     string    `json:"symbol"`
	Points     int       `json:"price_points"`
	Features   int       `json:"feature_points"`
	LastPrice  float64   `json:"last_price"`
	LastUpdate time.Time `json:"last_update"`
	Trend      string    `json:"trend,omitempty"`
	Failing    []string  `json:"failing,omitempty"`
}

type EscalationStatus struct {
	InFlight int `json:"in_flight"`
	Pending  int `json:"pending"`
}

type EngineStatus struct {
	Running       bool                           `json:"running"`
	Mode          string                         `json:"mode"`
	DryRun        bool                           `json:"dry_run"`
	StartedAt     *time.Time                     `json:"started_at,omitempty"`
	Strategies    []string                       `json:"strategies"`
	Tasks         []scheduler.TaskStats          `json:"tasks"`
	Escalations   EscalationStatus               `json:"escalations"`
	OpenPositions int                            `json:"open_positions"`
	Collaborators map[string]domsvc.Availability `json:"collaborators"`
	Assets        []AssetStatus                  `json:"assets"`
}

// Status reports the engine state for the API.
func (e *Engine) Status() EngineStatus {
	e.mu.RLock()
	st := EngineStatus{
		Running: e.running,
		Mode:    e.cfg.Trading.Mode,
		DryRun:  e.cfg.Trading.DryRun,
	}
	if !e.startedAt.IsZero() {
		started := e.startedAt
		st.StartedAt = &started
	}
	sched := e.sched
	e.mu.RUnlock()

	if sched != nil {
		st.Tasks = sched.Stats()
	}
	st.Strategies = e.deps.Strategies.Names()
	st.Escalations = EscalationStatus{InFlight: e.pool.InFlight(), Pending: e.pool.Pending()}
	st.OpenPositions = e.deps.Positions.Count()
	st.Collaborators = map[string]domsvc.Availability{
		"anomaly_detector": e.deps.Anomaly.Status(),
		"deep_analyzer":    e.deps.Deep.Status(),
		"sentiment_scorer": e.deps.Sentiment.Status(),
	}

	for _, symbol := range e.symbols {
		a := e.assets[symbol]
		a.mu.RLock()
		as := AssetStatus{
			Symbol:     symbol,
			Points:     len(a.prices),
			Features:   len(a.features),
			LastPrice:  a.snapshot.CurrentPrice,
			LastUpdate: a.snapshot.Timestamp,
			Trend:      a.indicators.Trend,
		}
		for source := range a.failing {
			as.Failing = append(as.Failing, source)
		}
		a.mu.RUnlock()
		sort.Strings(as.Failing)
		st.Assets = append(st.Assets, as)
	}
	return st
}
