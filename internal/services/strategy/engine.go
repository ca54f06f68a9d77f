package strategy

import (
	"fmt"
	"sort"
	"sync"

	"TradePilot/internal/domain/models"
	"TradePilot/internal/services/indicators"
	"TradePilot/pkg/config"
	"TradePilot/pkg/logger"
)

const defaultHistorySize = 1000

// modeStrategies partitions the registry into disjoint per-mode sets.
var modeStrategies = map[string]map[string]bool{
	config.ModeShortTerm: {
		"breakout":           true,
		"ma_cross":           true,
		"momentum_reversal":  true,
		"order_flow_anomaly": true,
		"news_momentum":      true,
	},
	config.ModeLongTerm: {
		"trend_following": true,
		"mean_reversion":  true,
		"momentum":        true,
	},
}

type weighted struct {
	Strategy
	weight float64
}

// Engine evaluates the enabled strategies of one trading mode and keeps a
// capped per-symbol log of the signals they emitted.
type Engine struct {
	mode        string
	strategies  []weighted
	historySize int
	logger      *logger.Logger

	mu      sync.RWMutex
	history map[string][]models.TradingSignal
}

// Option configures Engine.
type Option func(*Engine)

// WithHistorySize caps the per-symbol signal log.
func WithHistorySize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.historySize = n
		}
	}
}

// WithLogger sets the engine logger.
func WithLogger(lgr *logger.Logger) Option {
	return func(e *Engine) {
		e.logger = lgr
	}
}

// NewEngine builds the enabled strategies of mode from configs.
func NewEngine(mode string, configs []config.StrategyConfig, opts ...Option) (*Engine, error) {
	allowed, ok := modeStrategies[mode]
	if !ok {
		return nil, fmt.Errorf("unknown trading mode %q", mode)
	}

	e := &Engine{
		mode:        mode,
		historySize: defaultHistorySize,
		logger:      logger.Nop(),
		history:     make(map[string][]models.TradingSignal),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.Component("strategy")

	for _, c := range configs {
		if !c.Enabled {
			continue
		}
		if !allowed[c.Name] {
			return nil, fmt.Errorf("strategy %q is not part of the %s set", c.Name, mode)
		}
		s, err := Build(c.Name, Params(c.Params))
		if err != nil {
			return nil, err
		}
		e.strategies = append(e.strategies, weighted{Strategy: s, weight: c.Weight})
	}

	e.logger.Info("strategy engine ready",
		logger.String("mode", mode),
		logger.Strings("strategies", e.Names()),
	)
	return e, nil
}

// Mode returns the trading mode the engine was built for.
func (e *Engine) Mode() string {
	return e.mode
}

// Names lists the active strategies in evaluation order.
func (e *Engine) Names() []string {
	names := make([]string, len(e.strategies))
	for i, s := range e.strategies {
		names[i] = s.Name()
	}
	return names
}

// GenerateSignals evaluates every active strategy once and records the
// emitted signals.
func (e *Engine) GenerateSignals(in Input) []models.TradingSignal {
	var signals []models.TradingSignal
	for _, s := range e.strategies {
		sig, ok := s.Evaluate(in)
		if !ok {
			continue
		}
		sig.Weight = s.weight
		signals = append(signals, sig)
	}

	if len(signals) == 0 {
		return nil
	}

	e.mu.Lock()
	h := e.history[in.Symbol]
	for _, sig := range signals {
		h = indicators.AppendCapped(h, sig, e.historySize)
	}
	e.history[in.Symbol] = h
	e.mu.Unlock()

	e.logger.Debug("signals generated",
		logger.String("symbol", in.Symbol),
		logger.Int("count", len(signals)),
	)
	return signals
}

// AggregateSignals delegates to the package level AggregateSignals.
func (e *Engine) AggregateSignals(signals []models.TradingSignal, minConfidence float64, requireMulti bool) models.AggregatedDecision {
	return AggregateSignals(signals, minConfidence, requireMulti)
}

// History returns up to limit most recent signals for symbol, newest first.
// An empty symbol returns signals of every symbol.
func (e *Engine) History(symbol string, limit int) []models.TradingSignal {
	e.mu.RLock()
	defer e.mu.RUnlock()

	var src []models.TradingSignal
	if symbol != "" {
		src = e.history[symbol]
	} else {
		for _, h := range e.history {
			src = append(src, h...)
		}
		sort.SliceStable(src, func(i, j int) bool {
			return src[i].Timestamp.Before(src[j].Timestamp)
		})
	}

	out := make([]models.TradingSignal, 0, len(src))
	for i := len(src) - 1; i >= 0; i-- {
		out = append(out, src[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}
