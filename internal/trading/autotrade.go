package trading

import (
	"context"
	"fmt"

	"github.com/londonerlim84/unomatix-kiwoomapi/internal/logger"
	"github.com/londonerlim84/unomatix-kiwoomapi/internal/store"
	"github.com/londonerlim84/unomatix-kiwoomapi/internal/store/model"
)

// Trigger turns condition-search match events into market orders. A match is
// always recorded to the audit trail first, whether or not the signal has
// auto-trade enabled.
//
// The existing-position check and the subsequent placement run under the
// same (instrument, mode) lock the manager uses, and the check covers
// in-flight buy orders as well as settled holdings, so two "entered" events
// for one instrument cannot both pass it and double-buy — whether they race
// or the second arrives inside the place-to-fill window.
type Trigger struct {
	store   store.Store
	gateway Gateway
	modes   *ModeController
	orders  *Manager
}

func NewTrigger(st store.Store, gw Gateway, modes *ModeController, orders *Manager) *Trigger {
	return &Trigger{store: st, gateway: gw, modes: modes, orders: orders}
}

// OnSignalMatch handles one inbound condition-match event. The returned
// order is nil when no trade was attempted (auto-trade off, or an existing
// position made the buy a no-op).
func (t *Trigger) OnSignalMatch(ctx context.Context, signalID int64, instrumentCode string, kind model.MatchKind) (*model.OrderModel, error) {
	if kind != model.MatchKindEntered && kind != model.MatchKindExited {
		return nil, fmt.Errorf("%w: unknown match kind %q", ErrValidation, kind)
	}

	signal, err := t.findSignal(ctx, signalID)
	if err != nil {
		return nil, err
	}
	inst, err := t.ensureInstrument(ctx, instrumentCode)
	if err != nil {
		return nil, err
	}

	// Audit first, unconditionally. The match is a fact even when nothing
	// gets traded off it.
	if err := t.recordMatch(ctx, signal.ID, inst.ID, kind); err != nil {
		return nil, err
	}
	logger.Infof("signal: [%s] %s %s (%s)", signal.ConditionName, kind, inst.Name, inst.Code)

	if !signal.AutoTrade {
		return nil, nil
	}

	cfg, err := t.modes.Active()
	if err != nil {
		return nil, err
	}
	mode := cfg.TradeMode

	key := pairKey(inst.ID, mode)
	t.orders.placeLocks.Lock(key)
	defer t.orders.placeLocks.Unlock(key)

	switch kind {
	case model.MatchKindEntered:
		return t.autoBuy(ctx, signal, inst, cfg, mode)
	default:
		return t.autoSell(ctx, signal, inst, mode)
	}
}

// autoBuy sizes a market buy off the per-instrument cap. An instrument
// already held under this mode is skipped, and so is one with a buy order
// still in flight: a submitted-but-unfilled buy has no Holding row yet, so
// the position check alone would let a re-emitted entered event double-buy.
// Caller holds the (instrument, mode) lock.
func (t *Trigger) autoBuy(ctx context.Context, signal *model.SignalModel, inst *model.InstrumentModel, cfg model.TradingConfigModel, mode model.TradeMode) (*model.OrderModel, error) {
	qctx, cancel := context.WithTimeout(ctx, defaultSubmitTimeout)
	defer cancel()
	price, err := t.gateway.QuotePrice(qctx, inst.Code)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPriceUnavailable, err)
	}
	if price <= 0 {
		return nil, fmt.Errorf("%w: quoted %d for %s", ErrPriceUnavailable, price, inst.Code)
	}

	quantity := cfg.MaxBuyPerInstrument / price
	if quantity <= 0 {
		return nil, fmt.Errorf("%w: price %d exceeds cap %d", ErrNoAffordableQuantity, price, cfg.MaxBuyPerInstrument)
	}

	held, err := t.orders.availableQuantity(ctx, inst.ID, mode)
	if err != nil {
		return nil, err
	}
	if held > 0 {
		logger.Infof("signal: skip buy, already holding %d of %s (%s)", held, inst.Code, mode)
		return nil, nil
	}
	open, err := t.orders.openOrder(ctx, inst.ID, mode, model.OrderSideBuy)
	if err != nil {
		return nil, err
	}
	if open != nil {
		logger.Infof("signal: skip buy, order %d for %s (%s) still in flight", open.ID, inst.Code, mode)
		return nil, nil
	}

	return t.orders.placeLocked(ctx, PlaceRequest{
		Instrument: inst,
		Side:       model.OrderSideBuy,
		Quantity:   quantity,
		PriceKind:  model.PriceKindMarket,
		SignalID:   &signal.ID,
		Reason:     fmt.Sprintf("condition entered: %s", signal.ConditionName),
	}, mode)
}

// autoSell exits the whole position at market. Caller holds the
// (instrument, mode) lock.
func (t *Trigger) autoSell(ctx context.Context, signal *model.SignalModel, inst *model.InstrumentModel, mode model.TradeMode) (*model.OrderModel, error) {
	held, err := t.orders.availableQuantity(ctx, inst.ID, mode)
	if err != nil {
		return nil, err
	}
	if held <= 0 {
		return nil, fmt.Errorf("%w: %s (%s)", ErrNoHoldingsToSell, inst.Code, mode)
	}

	return t.orders.placeLocked(ctx, PlaceRequest{
		Instrument: inst,
		Side:       model.OrderSideSell,
		Quantity:   held,
		PriceKind:  model.PriceKindMarket,
		SignalID:   &signal.ID,
		Reason:     fmt.Sprintf("condition exited: %s", signal.ConditionName),
	}, mode)
}

func (t *Trigger) findSignal(ctx context.Context, signalID int64) (*model.SignalModel, error) {
	uow, err := t.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer uow.Rollback()
	signal, err := uow.Signals().FindByID(ctx, signalID)
	if err != nil {
		return nil, err
	}
	if signal == nil {
		return nil, fmt.Errorf("%w: signal %d not found", ErrValidation, signalID)
	}
	return signal, nil
}

// ensureInstrument resolves an instrument code, registering unknown codes
// via the gateway. When the gateway cannot answer, a code-only row is
// created so the match can still be audited.
func (t *Trigger) ensureInstrument(ctx context.Context, code string) (*model.InstrumentModel, error) {
	if code == "" {
		return nil, fmt.Errorf("%w: instrument code is required", ErrValidation)
	}

	uow, err := t.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	inst, err := uow.Instruments().FindByCode(ctx, code)
	if err != nil {
		uow.Rollback()
		return nil, err
	}
	if inst != nil {
		uow.Rollback()
		return inst, nil
	}

	inst = &model.InstrumentModel{
		Code:     code,
		Name:     code,
		Market:   model.MarketKospi,
		IsActive: true,
	}
	qctx, cancel := context.WithTimeout(ctx, defaultSubmitTimeout)
	info, infoErr := t.gateway.InstrumentInfo(qctx, code)
	cancel()
	if infoErr != nil {
		logger.Warnf("signal: instrument lookup failed for %s, registering code only: %v", code, infoErr)
	} else {
		if info.Name != "" {
			inst.Name = info.Name
		}
		if info.Market != "" {
			inst.Market = info.Market
		}
	}

	if err := uow.Instruments().Save(ctx, inst); err != nil {
		uow.Rollback()
		return nil, err
	}
	if err := uow.Commit(); err != nil {
		return nil, err
	}
	return inst, nil
}

func (t *Trigger) recordMatch(ctx context.Context, signalID, instrumentID int64, kind model.MatchKind) error {
	uow, err := t.store.Begin(ctx)
	if err != nil {
		return err
	}
	if err := uow.Matches().Insert(ctx, &model.SignalMatchModel{
		SignalID:     signalID,
		InstrumentID: instrumentID,
		MatchKind:    kind,
	}); err != nil {
		uow.Rollback()
		return err
	}
	return uow.Commit()
}
