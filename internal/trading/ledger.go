package trading

import (
	"context"
	"fmt"

	"github.com/londonerlim84/unomatix-kiwoomapi/internal/logger"
	"github.com/londonerlim84/unomatix-kiwoomapi/internal/store"
	"github.com/londonerlim84/unomatix-kiwoomapi/internal/store/model"

	"github.com/shopspring/decimal"
)

// Ledger owns per-(instrument, mode) holding state. Quantity and average
// cost are recomputed only through Apply; SyncFromGateway is the one
// out-of-band path and trusts the broker's books instead.
type Ledger struct {
	store   store.Store
	gateway Gateway
	modes   *ModeController
}

func NewLedger(st store.Store, gw Gateway, modes *ModeController) *Ledger {
	return &Ledger{store: st, gateway: gw, modes: modes}
}

// Apply folds one fill into the holding row for (order.instrument, order
// mode). It runs inside the caller's fill-reconciliation transaction and is
// never invoked on its own.
//
// Buys recompute the average cost with integer-floor division consistent
// with KRW pricing. Sells only decrement quantity; the cost basis of the
// remaining shares does not change on a partial sell.
func (l *Ledger) Apply(ctx context.Context, uow store.UnitOfWork, order *model.OrderModel, fillQuantity, fillPrice int64) error {
	holding, err := uow.Holdings().Find(ctx, order.InstrumentID, order.TradeMode)
	if err != nil {
		return err
	}
	if holding == nil {
		holding = &model.HoldingModel{
			InstrumentID: order.InstrumentID,
			TradeMode:    order.TradeMode,
		}
	}

	switch order.Side {
	case model.OrderSideBuy:
		totalCost := holding.AvgPrice*holding.Quantity + fillPrice*fillQuantity
		holding.Quantity += fillQuantity
		if holding.Quantity > 0 {
			holding.AvgPrice = totalCost / holding.Quantity
		} else {
			holding.AvgPrice = 0
		}
	case model.OrderSideSell:
		// The lifecycle manager already checked holdings at placement; a
		// violation here means a duplicate or misrouted fill upstream.
		if holding.Quantity < fillQuantity {
			return fmt.Errorf("%w: instrument %d mode %s has %d, sell fill %d",
				ErrNegativeHoldings, order.InstrumentID, order.TradeMode, holding.Quantity, fillQuantity)
		}
		holding.Quantity -= fillQuantity
	default:
		return fmt.Errorf("%w: unknown order side %q", ErrValidation, order.Side)
	}

	holding.CurrentPrice = fillPrice
	recomputeProfit(holding)

	return uow.Holdings().Save(ctx, holding)
}

// recomputeProfit derives profit rate (2-decimal percent) and absolute
// profit from the last observed price. Both are zero for empty positions.
func recomputeProfit(holding *model.HoldingModel) {
	if holding.AvgPrice <= 0 || holding.Quantity <= 0 {
		holding.ProfitRate = 0
		holding.ProfitAmount = 0
		return
	}
	rate := decimal.NewFromInt(holding.CurrentPrice - holding.AvgPrice).
		Div(decimal.NewFromInt(holding.AvgPrice)).
		Mul(decimal.NewFromInt(100)).
		Round(2)
	holding.ProfitRate = rate.InexactFloat64()
	holding.ProfitAmount = (holding.CurrentPrice - holding.AvgPrice) * holding.Quantity
}

// SyncFromGateway replaces the holding rows for the active mode with the
// broker's own snapshot. This is a replace-by-key upsert: it bypasses Apply
// and its arithmetic invariants on purpose, the broker is the source of
// truth here. Unknown instrument codes are registered on the fly.
func (l *Ledger) SyncFromGateway(ctx context.Context) (int, error) {
	cfg, err := l.modes.Active()
	if err != nil {
		return 0, err
	}

	items, err := l.gateway.HoldingsSnapshot(ctx, cfg.AccountNo)
	if err != nil {
		return 0, err
	}

	uow, err := l.store.Begin(ctx)
	if err != nil {
		return 0, err
	}
	for _, item := range items {
		inst, err := uow.Instruments().FindByCode(ctx, item.InstrumentCode)
		if err != nil {
			uow.Rollback()
			return 0, err
		}
		if inst == nil {
			name := item.InstrumentName
			if name == "" {
				name = item.InstrumentCode
			}
			inst = &model.InstrumentModel{
				Code:     item.InstrumentCode,
				Name:     name,
				Market:   model.MarketKospi,
				IsActive: true,
			}
			if err := uow.Instruments().Save(ctx, inst); err != nil {
				uow.Rollback()
				return 0, err
			}
		}

		holding, err := uow.Holdings().Find(ctx, inst.ID, cfg.TradeMode)
		if err != nil {
			uow.Rollback()
			return 0, err
		}
		if holding == nil {
			holding = &model.HoldingModel{InstrumentID: inst.ID, TradeMode: cfg.TradeMode}
		}
		holding.Quantity = item.Quantity
		holding.AvgPrice = item.AvgPrice
		holding.CurrentPrice = item.CurrentPrice
		holding.ProfitRate = item.ProfitRate
		holding.ProfitAmount = item.ProfitAmount
		if err := uow.Holdings().Save(ctx, holding); err != nil {
			uow.Rollback()
			return 0, err
		}
	}
	if err := uow.Commit(); err != nil {
		return 0, err
	}

	logger.Infof("ledger: synced %d holdings from gateway (mode=%s)", len(items), cfg.TradeMode)
	return len(items), nil
}
