package trading

import (
	"context"
	"fmt"
	"time"

	"github.com/londonerlim84/unomatix-kiwoomapi/internal/logger"
	"github.com/londonerlim84/unomatix-kiwoomapi/internal/pkg/keyedmutex"
	"github.com/londonerlim84/unomatix-kiwoomapi/internal/store"
	"github.com/londonerlim84/unomatix-kiwoomapi/internal/store/model"

	"github.com/google/uuid"
)

const defaultSubmitTimeout = 10 * time.Second

// Manager owns the order state machine:
//
//	pending -> submitted -> {filled | partial -> filled | cancelled | rejected}
//
// Placement is serialized per (instrument, mode) so the sell-side holdings
// check cannot race another placement for the same pair. Fill reconciliation
// is serialized per broker order reference so fills for one order apply in
// arrival order without lost updates.
type Manager struct {
	store   store.Store
	gateway Gateway
	modes   *ModeController
	ledger  *Ledger

	placeLocks *keyedmutex.KeyedMutex
	fillLocks  *keyedmutex.KeyedMutex

	submitTimeout time.Duration
}

func NewManager(st store.Store, gw Gateway, modes *ModeController, ledger *Ledger) *Manager {
	return &Manager{
		store:         st,
		gateway:       gw,
		modes:         modes,
		ledger:        ledger,
		placeLocks:    keyedmutex.New(),
		fillLocks:     keyedmutex.New(),
		submitTimeout: defaultSubmitTimeout,
	}
}

// PlaceRequest describes one order placement.
type PlaceRequest struct {
	Instrument *model.InstrumentModel
	Side       model.OrderSide
	Quantity   int64
	Price      int64
	PriceKind  model.PriceKind
	SignalID   *int64
	Reason     string
}

// Place validates and submits an order under the current mode.
//
// Validation and business-rule failures (bad input, cap exceeded,
// insufficient holdings) return an error and create no order. Gateway
// failures do create the order: it comes back in status rejected with the
// gateway error as reason, and is not retried. Callers must inspect status.
func (m *Manager) Place(ctx context.Context, req PlaceRequest) (*model.OrderModel, error) {
	if req.Instrument == nil {
		return nil, fmt.Errorf("%w: instrument is required", ErrValidation)
	}
	mode := m.modes.Mode()
	key := pairKey(req.Instrument.ID, mode)
	m.placeLocks.Lock(key)
	defer m.placeLocks.Unlock(key)
	return m.placeLocked(ctx, req, mode)
}

// placeLocked runs the check-then-place sequence. The caller must hold the
// (instrument, mode) placement lock.
func (m *Manager) placeLocked(ctx context.Context, req PlaceRequest, mode model.TradeMode) (*model.OrderModel, error) {
	if req.Quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity must be positive, got %d", ErrValidation, req.Quantity)
	}
	if req.PriceKind == model.PriceKindLimit && req.Price <= 0 {
		return nil, fmt.Errorf("%w: limit orders require a positive price", ErrValidation)
	}
	if req.PriceKind != model.PriceKindLimit && req.PriceKind != model.PriceKindMarket {
		return nil, fmt.Errorf("%w: unknown price kind %q", ErrValidation, req.PriceKind)
	}
	if req.Price < 0 {
		return nil, fmt.Errorf("%w: price must not be negative", ErrValidation)
	}

	cfg, err := m.modes.Active()
	if err != nil {
		return nil, err
	}

	if req.Side == model.OrderSideBuy && req.PriceKind == model.PriceKindLimit {
		if total := req.Price * req.Quantity; total > cfg.MaxBuyPerInstrument {
			return nil, fmt.Errorf("%w: %d exceeds cap %d", ErrCapExceeded, total, cfg.MaxBuyPerInstrument)
		}
	}

	if req.Side == model.OrderSideSell {
		available, err := m.availableQuantity(ctx, req.Instrument.ID, mode)
		if err != nil {
			return nil, err
		}
		if available < req.Quantity {
			return nil, fmt.Errorf("%w: holding %d, requested %d", ErrInsufficientHoldings, available, req.Quantity)
		}
	}

	order := &model.OrderModel{
		InstrumentID: req.Instrument.ID,
		Side:         req.Side,
		PriceKind:    req.PriceKind,
		Quantity:     req.Quantity,
		Price:        req.Price,
		Status:       model.OrderStatusPending,
		TradeMode:    mode,
		SignalID:     req.SignalID,
		Reason:       req.Reason,
	}
	if err := m.saveOrder(ctx, order); err != nil {
		return nil, err
	}

	sctx, cancel := context.WithTimeout(ctx, m.submitTimeout)
	defer cancel()
	ref, err := m.gateway.SubmitOrder(sctx, SubmitRequest{
		Side:           req.Side,
		InstrumentCode: req.Instrument.Code,
		Quantity:       req.Quantity,
		Price:          req.Price,
		PriceKind:      req.PriceKind,
		AccountNo:      cfg.AccountNo,
		RequestID:      uuid.NewString(),
	})
	if err != nil {
		order.Status = model.OrderStatusRejected
		order.Reason = err.Error()
		if saveErr := m.saveOrder(ctx, order); saveErr != nil {
			return nil, saveErr
		}
		logger.Errorf("order: %s %s %d rejected: %v", req.Side, req.Instrument.Code, req.Quantity, err)
		return order, nil
	}

	order.Status = model.OrderStatusSubmitted
	order.OrderRef = ref
	if err := m.saveOrder(ctx, order); err != nil {
		return nil, err
	}
	logger.Infof("order: %s %s x%d submitted (ref=%s mode=%s)", req.Side, req.Instrument.Code, req.Quantity, ref, mode)
	return order, nil
}

// ReconcileFill applies one fill notification from the broker. Partial and
// final fills share this path; the order update, the fill record and the
// ledger change commit as a single transaction.
//
// A fill that would push cumulative filled quantity past the requested
// quantity is treated as a replayed or misrouted notification and fails
// with ErrInvalidFill rather than being silently deduplicated.
func (m *Manager) ReconcileFill(ctx context.Context, orderRef string, fillQuantity, fillPrice int64) (*model.OrderModel, error) {
	if fillQuantity <= 0 || fillPrice <= 0 {
		return nil, fmt.Errorf("%w: quantity=%d price=%d", ErrInvalidFill, fillQuantity, fillPrice)
	}

	key := "fill:" + orderRef
	m.fillLocks.Lock(key)
	defer m.fillLocks.Unlock(key)

	uow, err := m.store.Begin(ctx)
	if err != nil {
		return nil, err
	}

	order, err := uow.Orders().FindByRef(ctx, orderRef)
	if err != nil {
		uow.Rollback()
		return nil, err
	}
	if order == nil {
		uow.Rollback()
		return nil, fmt.Errorf("%w: ref %q", ErrOrderNotFound, orderRef)
	}
	if order.Status.Terminal() {
		uow.Rollback()
		return nil, fmt.Errorf("%w: order %d already %s", ErrInvalidFill, order.ID, order.Status)
	}
	if order.FilledQuantity+fillQuantity > order.Quantity {
		uow.Rollback()
		return nil, fmt.Errorf("%w: fill %d would exceed remaining %d on order %d",
			ErrInvalidFill, fillQuantity, order.Quantity-order.FilledQuantity, order.ID)
	}

	order.FilledQuantity += fillQuantity
	order.FilledPrice = fillPrice
	if order.FilledQuantity >= order.Quantity {
		order.Status = model.OrderStatusFilled
	} else {
		order.Status = model.OrderStatusPartial
	}

	if err := uow.Fills().Insert(ctx, &model.FillModel{
		InstrumentID: order.InstrumentID,
		OrderID:      order.ID,
		OrderRef:     order.OrderRef,
		Side:         order.Side,
		Quantity:     fillQuantity,
		Price:        fillPrice,
		TotalAmount:  fillQuantity * fillPrice,
		TradeMode:    order.TradeMode,
	}); err != nil {
		uow.Rollback()
		return nil, err
	}

	if err := m.ledger.Apply(ctx, uow, order, fillQuantity, fillPrice); err != nil {
		uow.Rollback()
		return nil, err
	}

	if err := uow.Orders().Save(ctx, order); err != nil {
		uow.Rollback()
		return nil, err
	}
	if err := uow.Commit(); err != nil {
		return nil, err
	}

	logger.Infof("fill: ref=%s qty=%d price=%d -> %s (%d/%d)",
		orderRef, fillQuantity, fillPrice, order.Status, order.FilledQuantity, order.Quantity)
	return order, nil
}

// Cancel cancels the unfilled remainder of an order. Terminal orders cannot
// be cancelled; a gateway failure leaves the order untouched.
func (m *Manager) Cancel(ctx context.Context, orderID int64) (*model.OrderModel, error) {
	order, inst, err := m.loadOrderWithInstrument(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status.Terminal() {
		return nil, fmt.Errorf("%w: order %d already %s", ErrValidation, order.ID, order.Status)
	}

	if order.OrderRef != "" {
		remaining := order.Quantity - order.FilledQuantity
		sctx, cancel := context.WithTimeout(ctx, m.submitTimeout)
		defer cancel()
		if err := m.gateway.CancelOrder(sctx, order.OrderRef, inst.Code, remaining); err != nil {
			return nil, err
		}

		key := "fill:" + order.OrderRef
		m.fillLocks.Lock(key)
		defer m.fillLocks.Unlock(key)
	}

	uow, err := m.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	order, err = uow.Orders().FindByID(ctx, orderID)
	if err != nil {
		uow.Rollback()
		return nil, err
	}
	if order == nil {
		uow.Rollback()
		return nil, fmt.Errorf("%w: id %d", ErrOrderNotFound, orderID)
	}
	if order.Status.Terminal() {
		uow.Rollback()
		return nil, fmt.Errorf("%w: order %d already %s", ErrValidation, order.ID, order.Status)
	}
	order.Status = model.OrderStatusCancelled
	if err := uow.Orders().Save(ctx, order); err != nil {
		uow.Rollback()
		return nil, err
	}
	if err := uow.Commit(); err != nil {
		return nil, err
	}
	logger.Infof("order: %d cancelled", order.ID)
	return order, nil
}

// openOrder returns an in-flight (non-terminal) order for the triple, or nil.
func (m *Manager) openOrder(ctx context.Context, instrumentID int64, mode model.TradeMode, side model.OrderSide) (*model.OrderModel, error) {
	uow, err := m.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer uow.Rollback()
	return uow.Orders().FindOpenBySide(ctx, instrumentID, mode, side)
}

func (m *Manager) availableQuantity(ctx context.Context, instrumentID int64, mode model.TradeMode) (int64, error) {
	uow, err := m.store.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer uow.Rollback()
	holding, err := uow.Holdings().Find(ctx, instrumentID, mode)
	if err != nil {
		return 0, err
	}
	if holding == nil {
		return 0, nil
	}
	return holding.Quantity, nil
}

func (m *Manager) saveOrder(ctx context.Context, order *model.OrderModel) error {
	uow, err := m.store.Begin(ctx)
	if err != nil {
		return err
	}
	if err := uow.Orders().Save(ctx, order); err != nil {
		uow.Rollback()
		return err
	}
	return uow.Commit()
}

func (m *Manager) loadOrderWithInstrument(ctx context.Context, orderID int64) (*model.OrderModel, *model.InstrumentModel, error) {
	uow, err := m.store.Begin(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer uow.Rollback()
	order, err := uow.Orders().FindByID(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	if order == nil {
		return nil, nil, fmt.Errorf("%w: id %d", ErrOrderNotFound, orderID)
	}
	inst, err := uow.Instruments().FindByID(ctx, order.InstrumentID)
	if err != nil {
		return nil, nil, err
	}
	if inst == nil {
		return nil, nil, fmt.Errorf("%w: instrument %d missing for order %d", ErrValidation, order.InstrumentID, order.ID)
	}
	return order, inst, nil
}

func pairKey(instrumentID int64, mode model.TradeMode) string {
	return fmt.Sprintf("pair:%d:%s", instrumentID, mode)
}
