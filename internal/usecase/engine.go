package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"TradePilot/internal/domain/models"
	drepo "TradePilot/internal/domain/repository"
	domsvc "TradePilot/internal/domain/service"
	"TradePilot/internal/service/alert"
	"TradePilot/internal/services/analytics"
	"TradePilot/internal/services/indicators"
	"TradePilot/internal/services/strategy"
	"TradePilot/internal/services/trading"
	"TradePilot/pkg/config"
	"TradePilot/pkg/logger"
	"TradePilot/pkg/queue"
	"TradePilot/pkg/scheduler"
)

const (
	priceHistoryCap    = 200
	featureHistoryCap  = 500
	minIndicatorPoints = 50
	priceHistoryTTL    = 24 * time.Hour

	defaultStopTimeout = 10 * time.Second
	flushTimeout       = 5 * time.Second

	TaskMarket        = "market_monitor"
	TaskNews          = "news_monitor"
	TaskAnnouncements = "announcement_monitor"
)

var ErrAlreadyRunning = errors.New("engine already running")

// EngineDeps groups the collaborators of the Engine. News, Journal and
// Events are optional.
type EngineDeps struct {
	Market     drepo.MarketDataSource
	News       drepo.NewsSource
	KV         drepo.KVStore
	Alerts     drepo.AlertSink
	Journal    drepo.TradeJournal
	Events     drepo.EventPublisher
	Metrics    drepo.Metrics
	Anomaly    domsvc.AnomalyDetector
	Deep       domsvc.DeepAnalyzer
	Sentiment  domsvc.SentimentScorer
	Strategies *strategy.Engine
	Orders     *trading.OrderManager
	Positions  *trading.PositionTracker
}

// assetState is the rolling history of one symbol. Only the market cycle
// of that symbol writes it; readers take mu.
type assetState struct {
	mu         sync.RWMutex
	prices     []float64
	features   []models.FeatureVector
	snapshot   models.MarketSnapshot
	indicators models.IndicatorSet
	failing    map[string]bool
}

// Engine runs the market, news and announcement monitors on one scheduler
// and escalates anomalies to deep analysis on a bounded pool.
type Engine struct {
	cfg       *config.Config
	deps      EngineDeps
	symbols   []string
	intervals config.Intervals
	logger    *logger.Logger
	pool      *queue.Pool
	recorder  scheduler.Recorder
	now       func() time.Time

	assets map[string]*assetState

	mu        sync.RWMutex
	running   bool
	startedAt time.Time
	sched     *scheduler.Scheduler

	// order and position updates of one execution happen under execMu
	execMu sync.Mutex
}

type scheduledTask struct {
	name     string
	interval time.Duration
	body     scheduler.TaskFunc
}

type EngineOption func(*Engine)

// WithTaskRecorder records scheduler iteration timings.
func WithTaskRecorder(r scheduler.Recorder) EngineOption {
	return func(e *Engine) {
		e.recorder = r
	}
}

// WithEngineClock overrides time.Now.
func WithEngineClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		e.now = now
	}
}

// WithIntervals overrides the mode intervals.
func WithIntervals(iv config.Intervals) EngineOption {
	return func(e *Engine) {
		e.intervals = iv
	}
}

// NewEngine validates deps and builds a stopped engine.
func NewEngine(cfg *config.Config, deps EngineDeps, lgr *logger.Logger, observer queue.Observer, opts ...EngineOption) (*Engine, error) {
	switch {
	case deps.Market == nil:
		return nil, fmt.Errorf("engine: market data source is required")
	case deps.KV == nil:
		return nil, fmt.Errorf("engine: kv store is required")
	case deps.Alerts == nil:
		return nil, fmt.Errorf("engine: alert sink is required")
	case deps.Strategies == nil || deps.Orders == nil || deps.Positions == nil:
		return nil, fmt.Errorf("engine: strategy engine, order manager and position tracker are required")
	case len(cfg.Trading.Symbols) == 0:
		return nil, fmt.Errorf("engine: no symbols configured")
	}
	if deps.Metrics == nil {
		deps.Metrics = drepo.NopMetrics{}
	}
	if deps.Anomaly == nil {
		deps.Anomaly = analytics.UnavailableAnomalyDetector{Reason: "not configured"}
	}
	if deps.Deep == nil {
		deps.Deep = analytics.UnavailableDeepAnalyzer{Reason: "not configured"}
	}
	if deps.Sentiment == nil {
		deps.Sentiment = analytics.UnavailableSentimentScorer{Reason: "not configured"}
	}

	e := &Engine{
		cfg:       cfg,
		deps:      deps,
		symbols:   append([]string(nil), cfg.Trading.Symbols...),
		intervals: cfg.Intervals(),
		now:       time.Now,
		assets:    make(map[string]*assetState, len(cfg.Trading.Symbols)),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = lgr.Component("engine")
	for _, s := range e.symbols {
		e.assets[s] = &assetState{failing: make(map[string]bool)}
	}

	var poolOpts []queue.PoolOption
	if observer != nil {
		poolOpts = append(poolOpts, queue.WithObserver(observer))
	}
	e.pool = queue.NewPool(lgr.Component("escalation"), queue.QueueConfig{
		Workers:    cfg.Escalation.Workers,
		QueueSize:  cfg.Escalation.QueueSize,
		JobTimeout: cfg.Escalation.Timeout,
	}, poolOpts...)
	return e, nil
}

// Start warms the price history, starts the escalation pool and schedules
// the monitors. News and announcement monitors need a news source.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return ErrAlreadyRunning
	}
	sched := scheduler.New(e.logger.Component("scheduler"),
		scheduler.WithRecorder(e.recorder),
		scheduler.WithFatalHandler(e.onFatal),
	)
	e.running = true
	e.startedAt = e.now()
	e.sched = sched
	e.mu.Unlock()

	e.warmStart(ctx)

	if err := e.pool.Start(); err != nil {
		e.abortStart(ctx)
		return fmt.Errorf("start escalation pool: %w", err)
	}

	tasks := []scheduledTask{{TaskMarket, e.intervals.Market, e.marketCycle}}
	if e.deps.News != nil {
		tasks = append(tasks,
			scheduledTask{TaskNews, e.intervals.News, e.newsCycle},
			scheduledTask{TaskAnnouncements, e.intervals.Announcements, e.announcementCycle},
		)
	} else {
		e.logger.Warn("no news source configured, news and announcement monitors disabled")
	}

	for _, t := range tasks {
		if err := sched.Schedule(t.name, t.interval, t.body); err != nil {
			e.abortStart(ctx)
			return fmt.Errorf("schedule %s: %w", t.name, err)
		}
	}

	e.logger.Info("engine started",
		logger.String("mode", e.cfg.Trading.Mode),
		logger.Strings("symbols", e.symbols),
		logger.Strings("strategies", e.deps.Strategies.Names()),
		logger.Bool("dry_run", e.cfg.Trading.DryRun),
		logger.Duration("market_interval_ms", e.intervals.Market),
		logger.Duration("news_interval_ms", e.intervals.News),
	)
	return nil
}

func (e *Engine) abortStart(ctx context.Context) {
	if err := e.Stop(ctx); err != nil {
		e.logger.Warn("engine stop after failed start", logger.Error(err))
	}
}

// Stop cancels the monitors, stops the escalation pool and flushes the
// price history. Queued deep-analysis jobs are discarded.
func (e *Engine) Stop(ctx context.Context) error {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return nil
	}
	e.running = false
	sched := e.sched
	e.mu.Unlock()

	timeout := e.cfg.Trading.StopTimeout
	if timeout <= 0 {
		timeout = defaultStopTimeout
	}
	stopCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var errs []error
	if err := sched.Stop(stopCtx); err != nil {
		errs = append(errs, fmt.Errorf("stop scheduler: %w", err))
	}
	if err := e.pool.Stop(stopCtx); err != nil {
		errs = append(errs, fmt.Errorf("stop escalation pool: %w", err))
	}

	flushCtx, cancelFlush := context.WithTimeout(context.Background(), flushTimeout)
	defer cancelFlush()
	if err := e.flush(flushCtx); err != nil {
		errs = append(errs, fmt.Errorf("flush: %w", err))
	}

	e.logger.Info("engine stopped")
	return errors.Join(errs...)
}

func (e *Engine) onFatal(task string, err error) {
	e.logger.Error("fatal task error, stopping engine",
		logger.String("task", task),
		logger.Error(err),
	)
	e.deps.Metrics.RecordError("fatal")
	if stopErr := e.Stop(context.Background()); stopErr != nil {
		e.logger.Error("engine stop after fatal error failed", logger.Error(stopErr))
	}
}

func (e *Engine) Running() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.running
}

// forEachSymbol fans fn out over the configured symbols, bounded by
// trading.max_concurrency. Only fatal errors should be returned by fn.
func (e *Engine) forEachSymbol(ctx context.Context, fn func(ctx context.Context, symbol string) error) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Trading.MaxConcurrency)
	for _, symbol := range e.symbols {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("%w: %s panicked: %v", scheduler.ErrFatal, symbol, r)
				}
			}()
			return fn(gctx, symbol)
		})
	}
	return g.Wait()
}

func (e *Engine) marketCycle(ctx context.Context) error {
	err := e.forEachSymbol(ctx, e.processAsset)
	e.refreshPortfolio()
	return err
}

// processAsset runs one high-frequency cycle for symbol. Collaborator
// failures are logged and alerted, never returned.
func (e *Engine) processAsset(ctx context.Context, symbol string) error {
	start := time.Now()
	defer func() { e.observeCycle(symbol, time.Since(start)) }()

	st := e.assets[symbol]
	snap, err := e.deps.Market.FetchSnapshot(ctx, symbol)
	if err == nil && snap.CurrentPrice <= 0 {
		err = fmt.Errorf("non-positive price %.4f", snap.CurrentPrice)
	}
	if err != nil {
		e.collaboratorFailed(ctx, st, symbol, "market_data", err)
		return nil
	}
	e.collaboratorRecovered(st, symbol, "market_data")

	now := e.now()
	price := snap.CurrentPrice

	st.mu.Lock()
	st.snapshot = snap
	st.prices = indicators.AppendCapped(st.prices, price, priceHistoryCap)
	prices := append([]float64(nil), st.prices...)
	st.mu.Unlock()

	e.deps.Metrics.RecordLastPrice(symbol, price)

	if len(prices) >= minIndicatorPoints {
		e.analyze(ctx, st, symbol, snap, prices, now)
	} else {
		e.logger.Debug("warming up",
			logger.String("symbol", symbol),
			logger.Int("points", len(prices)),
			logger.Int("required", minIndicatorPoints),
		)
	}

	e.checkExits(ctx, symbol, price, now)
	return nil
}

func (e *Engine) analyze(ctx context.Context, st *assetState, symbol string, snap models.MarketSnapshot, prices []float64, now time.Time) {
	set := indicators.Calculate(prices)
	fv := indicators.BuildFeatures(snap, set)

	st.mu.Lock()
	history := append([]models.FeatureVector(nil), st.features...)
	st.features = indicators.AppendCapped(st.features, fv, featureHistoryCap)
	st.indicators = set
	st.mu.Unlock()

	if e.deps.Anomaly.Status().Available {
		res, err := e.deps.Anomaly.Detect(ctx, symbol, fv, history)
		if err != nil {
			e.collaboratorFailed(ctx, st, symbol, "anomaly_detector", err)
		} else {
			e.collaboratorRecovered(st, symbol, "anomaly_detector")
			if res.IsAnomaly && res.Severity.Escalates() {
				e.escalate(ctx, symbol, snap, set, res, history)
			}
		}
	}

	in := strategy.Input{
		Symbol:     symbol,
		Snapshot:   snap,
		Prices:     prices,
		Indicators: set,
		Sentiment:  e.cachedSentiment(ctx, symbol),
		OrderFlow:  e.orderFlow(symbol),
		Now:        now,
	}
	signals := e.deps.Strategies.GenerateSignals(in)
	if len(signals) == 0 {
		return
	}
	for _, s := range signals {
		e.deps.Metrics.RecordSignal(s.Strategy, string(s.Action))
	}

	decision := e.deps.Strategies.AggregateSignals(signals, e.cfg.Trading.MinConfidence, e.cfg.Trading.RequireMultiStrategy)
	e.deps.Metrics.RecordDecision(string(decision.Action))
	e.logger.Debug("decision",
		logger.String("symbol", symbol),
		logger.String("action", string(decision.Action)),
		logger.Float64("confidence", decision.Confidence),
		logger.Int("signals", decision.SignalCount),
	)

	if decision.Action != models.ActionHold && decision.Confidence > e.cfg.Trading.ExecutionConfidence {
		e.execute(ctx, symbol, snap.CurrentPrice, decision, now)
	}
}

// escalate alerts synchronously and hands deep analysis to the pool. It
// never waits for the job; a full pool drops it.
func (e *Engine) escalate(ctx context.Context, symbol string, snap models.MarketSnapshot, set models.IndicatorSet, res models.AnomalyResult, history []models.FeatureVector) {
	e.alert(ctx, models.AlertWarning, symbol,
		fmt.Sprintf("Anomaly detected for %s (%s severity)", symbol, res.Severity),
		map[string]interface{}{
			"severity": string(res.Severity),
			"score":    res.Score,
			"reason":   res.Reason,
			"price":    snap.CurrentPrice,
		})

	job := newDeepAnalysisJob(e, symbol, snap, set, res, history)
	if err := e.pool.Submit(job); err != nil {
		e.logger.Warn("deep analysis not scheduled",
			logger.String("symbol", symbol),
			logger.String("job_id", job.id),
			logger.Int("in_flight", e.pool.InFlight()),
			logger.Error(err),
		)
		return
	}
	e.deps.Metrics.RecordEscalation("submitted")
	e.logger.Info("deep analysis scheduled",
		logger.String("symbol", symbol),
		logger.String("job_id", job.id),
		logger.String("severity", string(res.Severity)),
	)
}

func (e *Engine) orderFlow(symbol string) *models.OrderFlow {
	src, ok := e.deps.Market.(drepo.OrderFlowSource)
	if !ok {
		return nil
	}
	flow, ok := src.OrderFlow(symbol)
	if !ok {
		return nil
	}
	return &flow
}

func (e *Engine) observeCycle(symbol string, elapsed time.Duration) {
	e.deps.Metrics.RecordCycle(symbol, elapsed)
	if budget := e.cfg.Trading.CycleBudget; budget > 0 && elapsed > budget {
		e.deps.Metrics.RecordSlowCycle(symbol)
		e.logger.Warn("cycle over budget",
			logger.String("symbol", symbol),
			logger.Duration("elapsed_ms", elapsed),
			logger.Duration("budget_ms", budget),
		)
	}
}

// collaboratorFailed logs and counts every failure. The WARNING alert is
// sent once per failure streak of a source.
func (e *Engine) collaboratorFailed(ctx context.Context, st *assetState, symbol, source string, err error) {
	e.deps.Metrics.RecordError(source)
	e.logger.Warn(source+" failed",
		logger.String("symbol", symbol),
		logger.Error(err),
	)

	st.mu.Lock()
	first := !st.failing[source]
	st.failing[source] = true
	st.mu.Unlock()

	if first {
		e.alert(ctx, models.AlertWarning, symbol,
			fmt.Sprintf("%s unavailable for %s", source, symbol),
			map[string]interface{}{"source": source, "error": err.Error()})
	}
}

func (e *Engine) collaboratorRecovered(st *assetState, symbol, source string) {
	st.mu.Lock()
	was := st.failing[source]
	delete(st.failing, source)
	st.mu.Unlock()

	if was {
		e.logger.Info(source+" recovered", logger.String("symbol", symbol))
	}
}

func (e *Engine) alert(ctx context.Context, level models.AlertLevel, symbol, message string, data map[string]interface{}) {
	if err := e.deps.Alerts.Send(ctx, alert.New(level, symbol, message, data)); err != nil {
		e.deps.Metrics.RecordError("alert")
		e.logger.Warn("alert delivery failed",
			logger.String("symbol", symbol),
			logger.String("level", string(level)),
			logger.Error(err),
		)
	}
}

// LastPrices returns the latest price of every symbol seen so far.
func (e *Engine) LastPrices() map[string]float64 {
	out := make(map[string]float64, len(e.assets))
	for symbol, st := range e.assets {
		st.mu.RLock()
		if p := st.snapshot.CurrentPrice; p > 0 {
			out[symbol] = p
		}
		st.mu.RUnlock()
	}
	return out
}

// Portfolio values the open positions at the latest prices.
func (e *Engine) Portfolio() models.PortfolioSnapshot {
	return e.deps.Positions.CalculatePortfolioValue(e.LastPrices())
}

func (e *Engine) refreshPortfolio() {
	snap := e.Portfolio()
	e.deps.Metrics.RecordPortfolio(snap.TotalCost, snap.TotalValue, snap.TotalPnL, len(snap.Positions))
}

// Snapshot returns the last snapshot and indicators of symbol.
func (e *Engine) Snapshot(symbol string) (models.MarketSnapshot, models.IndicatorSet, bool) {
	st, ok := e.assets[symbol]
	if !ok {
		return models.MarketSnapshot{}, models.IndicatorSet{}, false
	}
	st.mu.RLock()
	defer st.mu.RUnlock()
	if st.snapshot.Symbol == "" {
		return models.MarketSnapshot{}, models.IndicatorSet{}, false
	}
	return st.snapshot, st.indicators, true
}
