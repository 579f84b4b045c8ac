package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/londonerlim84/unomatix-kiwoomapi/internal/condition"
	"github.com/londonerlim84/unomatix-kiwoomapi/internal/logger"
	"github.com/londonerlim84/unomatix-kiwoomapi/internal/store"
	"github.com/londonerlim84/unomatix-kiwoomapi/internal/store/model"
	"github.com/londonerlim84/unomatix-kiwoomapi/internal/trading"

	"github.com/gin-gonic/gin"
)

type Handlers struct {
	store      store.Store
	orders     *trading.Manager
	trigger    *trading.Trigger
	ledger     *trading.Ledger
	modes      *trading.ModeController
	conditions *condition.Service
}

func NewHandlers(st store.Store, orders *trading.Manager, trigger *trading.Trigger, ledger *trading.Ledger, modes *trading.ModeController, conditions *condition.Service) *Handlers {
	return &Handlers{
		store:      st,
		orders:     orders,
		trigger:    trigger,
		ledger:     ledger,
		modes:      modes,
		conditions: conditions,
	}
}

func (h *Handlers) Register(g *gin.RouterGroup) {
	g.POST("/events/condition-match", h.handleConditionMatch)
	g.POST("/events/fill", h.handleFill)

	g.POST("/orders", h.handlePlaceOrder)
	g.GET("/orders", h.handleListOrders)
	g.POST("/orders/:id/cancel", h.handleCancelOrder)

	g.POST("/mode", h.handleSwitchMode)
	g.GET("/mode", h.handleGetMode)

	g.POST("/holdings/sync", h.handleSyncHoldings)
	g.GET("/holdings", h.handleListHoldings)

	g.POST("/conditions/load", h.handleLoadConditions)
	g.GET("/conditions", h.handleListConditions)
	g.POST("/conditions/:id/start", h.handleStartCondition)
	g.POST("/conditions/:id/stop", h.handleStopCondition)
	g.POST("/conditions/:id/auto-trade", h.handleSetAutoTrade)
	g.GET("/conditions/:id/matches", h.handleListMatches)

	g.GET("/fills", h.handleListFills)
}

type conditionMatchEvent struct {
	SignalID       int64  `json:"signal_id"`
	InstrumentCode string `json:"instrument_code"`
	MatchKind      string `json:"match_kind"`
}

// handleConditionMatch is the bridge's condition-match webhook. Business
// outcomes that simply mean "no trade" come back as success=false so the
// bridge does not retry them; only malformed payloads are client errors.
func (h *Handlers) handleConditionMatch(c *gin.Context) {
	var evt conditionMatchEvent
	if err := decodeValidated(c, compiledConditionMatch, &evt); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := h.trigger.OnSignalMatch(c.Request.Context(), evt.SignalID, evt.InstrumentCode, model.MatchKind(evt.MatchKind))
	if err != nil {
		switch {
		case errors.Is(err, trading.ErrValidation):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, trading.ErrPriceUnavailable),
			errors.Is(err, trading.ErrNoAffordableQuantity),
			errors.Is(err, trading.ErrNoHoldingsToSell),
			errors.Is(err, trading.ErrNoActiveConfiguration):
			c.JSON(http.StatusOK, gin.H{"success": false, "error": err.Error()})
		default:
			logger.Errorf("webhook: condition-match failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "order": order})
}

type fillEvent struct {
	OrderReference string `json:"order_reference"`
	FilledQuantity int64  `json:"filled_quantity"`
	FilledPrice    int64  `json:"filled_price"`
}

// handleFill is the bridge's fill webhook. Reconciliation failures mean the
// ledger and the broker disagree; they are surfaced as conflicts, never
// swallowed.
func (h *Handlers) handleFill(c *gin.Context) {
	var evt fillEvent
	if err := decodeValidated(c, compiledFillEvent, &evt); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := h.orders.ReconcileFill(c.Request.Context(), evt.OrderReference, evt.FilledQuantity, evt.FilledPrice)
	if err != nil {
		switch {
		case errors.Is(err, trading.ErrOrderNotFound),
			errors.Is(err, trading.ErrInvalidFill),
			errors.Is(err, trading.ErrNegativeHoldings):
			logger.Errorf("webhook: fill reconciliation failed for ref=%s: %v", evt.OrderReference, err)
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			logger.Errorf("webhook: fill failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "order": order})
}

type placeOrderRequest struct {
	InstrumentCode string `json:"instrument_code"`
	Side           string `json:"side"`
	Quantity       int64  `json:"quantity"`
	Price          int64  `json:"price"`
	PriceKind      string `json:"price_kind"`
	Reason         string `json:"reason"`
}

func (h *Handlers) handlePlaceOrder(c *gin.Context) {
	var req placeOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.PriceKind == "" {
		req.PriceKind = string(model.PriceKindMarket)
	}

	inst, err := h.findInstrument(c.Request.Context(), req.InstrumentCode)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if inst == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown instrument " + req.InstrumentCode})
		return
	}

	order, err := h.orders.Place(c.Request.Context(), trading.PlaceRequest{
		Instrument: inst,
		Side:       model.OrderSide(req.Side),
		Quantity:   req.Quantity,
		Price:      req.Price,
		PriceKind:  model.PriceKind(req.PriceKind),
		Reason:     req.Reason,
	})
	if err != nil {
		switch {
		case errors.Is(err, trading.ErrValidation):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, trading.ErrCapExceeded),
			errors.Is(err, trading.ErrInsufficientHoldings),
			errors.Is(err, trading.ErrNoActiveConfiguration):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}
	// A rejected order is still a 200: the failure lives in order.status.
	c.JSON(http.StatusOK, gin.H{"order": order})
}

func (h *Handlers) handleCancelOrder(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}
	order, err := h.orders.Cancel(c.Request.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, trading.ErrOrderNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, trading.ErrValidation):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}

func (h *Handlers) handleListOrders(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	uow, err := h.store.Begin(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	defer uow.Rollback()
	orders, err := uow.Orders().ListRecent(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

type switchModeRequest struct {
	Mode string `json:"mode"`
}

func (h *Handlers) handleSwitchMode(c *gin.Context) {
	var req switchModeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.modes.SwitchMode(c.Request.Context(), model.TradeMode(req.Mode)); err != nil {
		switch {
		case errors.Is(err, trading.ErrValidation):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, trading.ErrNoActiveConfiguration):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.Is(err, trading.ErrMissingCredentials):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"mode": req.Mode})
}

func (h *Handlers) handleGetMode(c *gin.Context) {
	cfg, err := h.modes.Active()
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"mode": string(model.TradeModePaper), "config": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"mode": cfg.TradeMode, "config": cfg})
}

func (h *Handlers) handleSyncHoldings(c *gin.Context) {
	synced, err := h.ledger.SyncFromGateway(c.Request.Context())
	if err != nil {
		switch {
		case errors.Is(err, trading.ErrNoActiveConfiguration):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.Is(err, trading.ErrGatewayTimeout), errors.Is(err, trading.ErrGatewayUnavailable):
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"synced": synced})
}

func (h *Handlers) handleListHoldings(c *gin.Context) {
	mode := model.TradeMode(c.DefaultQuery("mode", string(h.modes.Mode())))
	if !mode.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown trade mode"})
		return
	}
	uow, err := h.store.Begin(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	defer uow.Rollback()
	holdings, err := uow.Holdings().ListByMode(c.Request.Context(), mode)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"holdings": holdings, "mode": mode})
}

func (h *Handlers) handleLoadConditions(c *gin.Context) {
	signals, err := h.conditions.LoadList(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"conditions": signals})
}

func (h *Handlers) handleListConditions(c *gin.Context) {
	signals, err := h.conditions.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"conditions": signals})
}

type startConditionRequest struct {
	Realtime *bool `json:"realtime"`
}

func (h *Handlers) handleStartCondition(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid condition id"})
		return
	}
	var req startConditionRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	realtime := true
	if req.Realtime != nil {
		realtime = *req.Realtime
	}
	if err := h.conditions.Start(c.Request.Context(), id, realtime); err != nil {
		if errors.Is(err, trading.ErrValidation) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handlers) handleStopCondition(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid condition id"})
		return
	}
	if err := h.conditions.Stop(c.Request.Context(), id); err != nil {
		if errors.Is(err, trading.ErrValidation) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

type autoTradeRequest struct {
	Enabled bool `json:"enabled"`
}

func (h *Handlers) handleSetAutoTrade(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid condition id"})
		return
	}
	var req autoTradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.conditions.SetAutoTrade(c.Request.Context(), id, req.Enabled); err != nil {
		if errors.Is(err, trading.ErrValidation) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "auto_trade": req.Enabled})
}

func (h *Handlers) handleListMatches(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid condition id"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	kind := model.MatchKind(c.Query("kind"))
	matches, err := h.conditions.Matches(c.Request.Context(), id, kind, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"matches": matches})
}

func (h *Handlers) handleListFills(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	uow, err := h.store.Begin(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	defer uow.Rollback()
	fills, err := uow.Fills().ListRecent(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"fills": fills})
}

func (h *Handlers) findInstrument(ctx context.Context, code string) (*model.InstrumentModel, error) {
	uow, err := h.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer uow.Rollback()
	return uow.Instruments().FindByCode(ctx, code)
}
