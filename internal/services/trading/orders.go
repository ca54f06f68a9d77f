package trading

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"TradePilot/internal/domain/models"
	"TradePilot/pkg/logger"
	"TradePilot/pkg/util"
)

var (
	ErrUnknownOrder      = errors.New("unknown order")
	ErrInvalidTransition = errors.New("invalid order transition")
)

// PriceLookup returns the last known price of symbol.
type PriceLookup func(symbol string) (float64, bool)

// OrderManager validates orders, owns the order table and its transitions.
// Every public method is a single critical section.
type OrderManager struct {
	dryRun   bool
	fallback PriceLookup
	now      func() time.Time
	logger   *logger.Logger

	mu      sync.Mutex
	orders  map[string]*models.Order
	created []string // ids in creation order
	seqDate string
	seq     int
}

// OrderOption configures OrderManager.
type OrderOption func(*OrderManager)

// WithFallbackPrice sets the lookup used to fill dry-run market orders that
// carry no price.
func WithFallbackPrice(fn PriceLookup) OrderOption {
	return func(m *OrderManager) {
		m.fallback = fn
	}
}

// WithOrderClock overrides time.Now.
func WithOrderClock(now func() time.Time) OrderOption {
	return func(m *OrderManager) {
		m.now = now
	}
}

func NewOrderManager(lgr *logger.Logger, dryRun bool, opts ...OrderOption) *OrderManager {
	m := &OrderManager{
		dryRun: dryRun,
		now:    time.Now,
		orders: make(map[string]*models.Order),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = lgr.Component("orders")
	return m
}

// DryRun reports whether fills are simulated.
func (m *OrderManager) DryRun() bool {
	return m.dryRun
}

// CreateOrder validates req and records the order. Validation failures are
// returned as a rejected result and leave the table untouched.
func (m *OrderManager) CreateOrder(req models.OrderRequest) models.OrderResult {
	if req.Type == "" {
		req.Type = models.OrderMarket
	}
	if reason := validateOrder(req); reason != "" {
		m.logger.Warn("order rejected",
			logger.String("symbol", req.Symbol),
			logger.String("action", string(req.Action)),
			logger.String("reason", reason),
		)
		return models.OrderResult{Rejected: true, Reason: reason}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	o := &models.Order{
		ID:        m.nextID(now),
		Symbol:    req.Symbol,
		Action:    req.Action,
		Quantity:  req.Quantity,
		Type:      req.Type,
		Price:     copyFloat(req.Price),
		StopPrice: copyFloat(req.StopPrice),
		Status:    models.OrderPending,
		CreatedAt: now,
		UpdatedAt: now,
		DryRun:    m.dryRun,
		Note:      req.Note,
	}
	m.orders[o.ID] = o
	m.created = append(m.created, o.ID)

	switch {
	case !m.dryRun:
		m.logger.Warn("live execution not implemented, order left submitted", logger.String("order_id", o.ID))
		m.transition(o, models.OrderSubmitted, now)
	case o.Type == models.OrderMarket:
		o.FilledQuantity = o.Quantity
		o.FilledPrice = m.fillPrice(o)
		m.transition(o, models.OrderFilled, now)
	default:
		m.transition(o, models.OrderSubmitted, now)
	}

	out := clone(o)
	return models.OrderResult{Order: &out}
}

// CancelOrder cancels an open order. Filled or cancelled orders are left
// unchanged and ErrInvalidTransition is returned.
func (m *OrderManager) CancelOrder(id string) (models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.orders[id]
	if !ok {
		return models.Order{}, fmt.Errorf("cancel %s: %w", id, ErrUnknownOrder)
	}
	if o.Status == models.OrderFilled || o.Status == models.OrderCancelled {
		m.logger.Warn("illegal cancel request",
			logger.String("order_id", id),
			logger.String("status", string(o.Status)),
		)
		return clone(o), fmt.Errorf("cancel %s in status %s: %w", id, o.Status, ErrInvalidTransition)
	}

	m.transition(o, models.OrderCancelled, m.now())
	return clone(o), nil
}

// Get returns a copy of the order.
func (m *OrderManager) Get(id string) (models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.orders[id]
	if !ok {
		return models.Order{}, ErrUnknownOrder
	}
	return clone(o), nil
}

// List returns copies of matching orders, newest first.
func (m *OrderManager) List(f models.OrderFilter) []models.Order {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.Order, 0, len(m.orders))
	for i := len(m.created) - 1; i >= 0; i-- {
		o := m.orders[m.created[i]]
		if f.Symbol != "" && o.Symbol != f.Symbol {
			continue
		}
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		out = append(out, clone(o))
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out
}

// OpenOrders returns orders that can still transition.
func (m *OrderManager) OpenOrders() []models.Order {
	all := m.List(models.OrderFilter{})
	open := all[:0]
	for _, o := range all {
		if !o.Status.Terminal() {
			open = append(open, o)
		}
	}
	return open
}

func (m *OrderManager) nextID(now time.Time) string {
	date := util.DateKey(now)
	if date != m.seqDate {
		m.seqDate = date
		m.seq = 0
	}
	m.seq++
	return fmt.Sprintf("ORD-%s-%06d", date, m.seq)
}

func (m *OrderManager) fillPrice(o *models.Order) float64 {
	if o.Price != nil && *o.Price > 0 {
		return *o.Price
	}
	if m.fallback != nil {
		if p, ok := m.fallback(o.Symbol); ok && p > 0 {
			return p
		}
	}
	m.logger.Warn("no fill price available", logger.String("order_id", o.ID), logger.String("symbol", o.Symbol))
	return 0
}

func (m *OrderManager) transition(o *models.Order, to models.OrderStatus, at time.Time) {
	from := o.Status
	o.Status = to
	o.UpdatedAt = at
	m.logger.Info("order status changed",
		logger.String("order_id", o.ID),
		logger.String("symbol", o.Symbol),
		logger.String("from", string(from)),
		logger.String("to", string(to)),
	)
}

func validateOrder(req models.OrderRequest) string {
	switch {
	case req.Symbol == "":
		return "symbol is required"
	case req.Action != models.ActionBuy && req.Action != models.ActionSell:
		return fmt.Sprintf("invalid action %q, want BUY or SELL", req.Action)
	case req.Quantity <= 0:
		return fmt.Sprintf("quantity must be positive, got %g", req.Quantity)
	}

	switch req.Type {
	case models.OrderMarket:
	case models.OrderLimit:
		if req.Price == nil || *req.Price <= 0 {
			return "limit order requires a positive price"
		}
	case models.OrderStop:
		if req.StopPrice == nil || *req.StopPrice <= 0 {
			return "stop order requires a positive stop price"
		}
	case models.OrderStopLimit:
		if req.Price == nil || *req.Price <= 0 || req.StopPrice == nil || *req.StopPrice <= 0 {
			return "stop-limit order requires a positive price and stop price"
		}
	default:
		return fmt.Sprintf("unsupported order type %q", req.Type)
	}
	return ""
}

func clone(o *models.Order) models.Order {
	c := *o
	c.Price = copyFloat(o.Price)
	c.StopPrice = copyFloat(o.StopPrice)
	return c
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	return models.Float(*v)
}
