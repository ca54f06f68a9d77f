package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	models "TradePilot/internal/domain/models"
	domrepo "TradePilot/internal/domain/repository"
	"TradePilot/internal/service/ratelimit"
	"TradePilot/internal/services/strategy"
	"TradePilot/internal/services/trading"
	"TradePilot/internal/usecase"
	xhttp "TradePilot/pkg/http"
	xlogger "TradePilot/pkg/logger"
)

// TradingHandler exposes engine status, portfolio, orders and signals.
type TradingHandler struct {
	logger     *xlogger.Logger
	engine     *usecase.Engine
	strategies *strategy.Engine
	orders     *trading.OrderManager
	positions  *trading.PositionTracker
	journal    domrepo.TradeJournal
	limiter    *ratelimit.Limiter
}

func NewTradingHandler(
	logger *xlogger.Logger,
	engine *usecase.Engine,
	strategies *strategy.Engine,
	orders *trading.OrderManager,
	positions *trading.PositionTracker,
	journal domrepo.TradeJournal,
	limiter *ratelimit.Limiter,
) *TradingHandler {
	return &TradingHandler{
		logger:     logger.Component("api"),
		engine:     engine,
		strategies: strategies,
		orders:     orders,
		positions:  positions,
		journal:    journal,
		limiter:    limiter,
	}
}

func (h *TradingHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Health)

	g := e.Group("/api")
	g.GET("/engine", h.Engine)
	g.GET("/portfolio", h.Portfolio)
	g.GET("/positions", h.Positions)
	g.GET("/trades", h.Trades)
	g.GET("/trades/history", h.TradeHistory)
	g.GET("/signals", h.Signals)
	g.GET("/orders", h.Orders)
	g.GET("/orders/:id", h.Order)
	g.POST("/orders", h.CreateOrder, h.rateLimited)
	g.POST("/orders/:id/cancel", h.CancelOrder, h.rateLimited)
}

// rateLimited applies the per-client limiter to mutating routes.
func (h *TradingHandler) rateLimited(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if h.limiter != nil && !h.limiter.Allow(c.RealIP()) {
			h.logger.Warn("rate limited",
				xlogger.String("remote", c.RealIP()),
				xlogger.String("path", c.Path()))
			return xhttp.AppErrorResponse(c, xhttp.NewAppError("ERR_RATE_LIMITED", "", "too many requests", http.StatusTooManyRequests))
		}
		return next(c)
	}
}

func (h *TradingHandler) Health(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"status":  "ok",
		"running": h.engine.Running(),
	})
}

func (h *TradingHandler) Engine(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.engine.Status())
}

func (h *TradingHandler) Portfolio(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.engine.Portfolio())
}

func (h *TradingHandler) Positions(c echo.Context) error {
	rows := h.positions.Positions()
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *TradingHandler) Trades(c echo.Context) error {
	req := &models.TradesQuery{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	rows := make([]models.TradeRecord, 0)
	for _, t := range h.positions.Trades(0) {
		if req.Symbol != "" && t.Symbol != req.Symbol {
			continue
		}
		rows = append(rows, t)
		if len(rows) == req.Limit {
			break
		}
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

// TradeHistory reads closed trades from the journal, so it survives restarts.
func (h *TradingHandler) TradeHistory(c echo.Context) error {
	req := &models.TradesQuery{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if h.journal == nil {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("trade journal disabled"))
	}

	rows, err := h.journal.RecentTrades(c.Request().Context(), req.Symbol, req.Limit)
	if err != nil {
		h.logger.Error("journal read failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalErrorf("journal read failed").WithError(err))
	}
	if rows == nil {
		rows = []models.TradeRecord{}
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *TradingHandler) Signals(c echo.Context) error {
	req := &models.SignalsQuery{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	rows := h.strategies.History(req.Symbol, req.Limit)
	if rows == nil {
		rows = []models.TradingSignal{}
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *TradingHandler) Orders(c echo.Context) error {
	req := &models.OrdersQuery{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	rows := h.orders.List(models.OrderFilter{
		Symbol: req.Symbol,
		Status: models.OrderStatus(req.Status),
		Limit:  req.Limit,
	})
	if rows == nil {
		rows = []models.Order{}
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *TradingHandler) Order(c echo.Context) error {
	o, err := h.orders.Get(c.Param("id"))
	if err != nil {
		return h.orderError(c, err)
	}
	return xhttp.SuccessResponse(c, o)
}

func (h *TradingHandler) CreateOrder(c echo.Context) error {
	req := &models.CreateOrderRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res := h.engine.SubmitOrder(c.Request().Context(), models.OrderRequest{
		Symbol:    req.Symbol,
		Action:    models.Action(req.Action),
		Quantity:  req.Quantity,
		Type:      models.OrderType(req.Type),
		Price:     req.Price,
		StopPrice: req.StopPrice,
		Note:      req.Note,
	})
	if res.Rejected {
		return xhttp.AppErrorResponse(c, xhttp.UnprocessableError("", res.Reason))
	}
	return xhttp.CreatedResponse(c, res.Order)
}

func (h *TradingHandler) CancelOrder(c echo.Context) error {
	o, err := h.engine.CancelOrder(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.orderError(c, err)
	}
	return xhttp.SuccessResponse(c, o)
}

func (h *TradingHandler) orderError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, trading.ErrUnknownOrder):
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("order %s not found", c.Param("id")))
	case errors.Is(err, trading.ErrInvalidTransition):
		return xhttp.AppErrorResponse(c, xhttp.ConflictErrorf("%v", err))
	default:
		h.logger.Error("order request failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalErrorf("order request failed").WithError(err))
	}
}
