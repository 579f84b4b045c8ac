package trading

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/londonerlim84/unomatix-kiwoomapi/internal/store/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestPlaceValidation(t *testing.T) {
	e := newTestEngine(t)
	e.seedConfig(t, model.TradeModePaper, false)
	inst := e.seedInstrument(t, "005930", "Samsung Electronics")
	ctx := context.Background()

	t.Run("nil instrument", func(t *testing.T) {
		_, err := e.orders.Place(ctx, PlaceRequest{Side: model.OrderSideBuy, Quantity: 1, PriceKind: model.PriceKindMarket})
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("zero quantity", func(t *testing.T) {
		_, err := e.orders.Place(ctx, PlaceRequest{Instrument: inst, Side: model.OrderSideBuy, Quantity: 0, PriceKind: model.PriceKindMarket})
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("limit without price", func(t *testing.T) {
		_, err := e.orders.Place(ctx, PlaceRequest{Instrument: inst, Side: model.OrderSideBuy, Quantity: 1, PriceKind: model.PriceKindLimit})
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("unknown price kind", func(t *testing.T) {
		_, err := e.orders.Place(ctx, PlaceRequest{Instrument: inst, Side: model.OrderSideBuy, Quantity: 1, PriceKind: "stop"})
		assert.ErrorIs(t, err, ErrValidation)
	})

	e.gw.AssertNotCalled(t, "SubmitOrder", mock.Anything, mock.Anything)
}

func TestPlaceRequiresActiveConfig(t *testing.T) {
	e := newTestEngine(t)
	inst := e.seedInstrument(t, "005930", "Samsung Electronics")

	_, err := e.orders.Place(context.Background(), PlaceRequest{
		Instrument: inst, Side: model.OrderSideBuy, Quantity: 1, PriceKind: model.PriceKindMarket,
	})
	assert.ErrorIs(t, err, ErrNoActiveConfiguration)
}

func TestPlaceBuyLimitCap(t *testing.T) {
	e := newTestEngine(t)
	e.seedConfig(t, model.TradeModePaper, false)
	inst := e.seedInstrument(t, "005930", "Samsung Electronics")

	// 100 x 6000 = 600000, over the 500000 per-instrument cap.
	_, err := e.orders.Place(context.Background(), PlaceRequest{
		Instrument: inst, Side: model.OrderSideBuy, Quantity: 100, Price: 6_000, PriceKind: model.PriceKindLimit,
	})
	assert.ErrorIs(t, err, ErrCapExceeded)
	e.gw.AssertNotCalled(t, "SubmitOrder", mock.Anything, mock.Anything)
}

func TestPlaceSellInsufficientHoldings(t *testing.T) {
	e := newTestEngine(t)
	e.seedConfig(t, model.TradeModePaper, false)
	inst := e.seedInstrument(t, "005930", "Samsung Electronics")
	e.seedHolding(t, inst.ID, model.TradeModePaper, 3, 70_000)

	_, err := e.orders.Place(context.Background(), PlaceRequest{
		Instrument: inst, Side: model.OrderSideSell, Quantity: 5, PriceKind: model.PriceKindMarket,
	})
	assert.ErrorIs(t, err, ErrInsufficientHoldings)
	e.gw.AssertNotCalled(t, "SubmitOrder", mock.Anything, mock.Anything)
}

func TestPlaceSubmitted(t *testing.T) {
	e := newTestEngine(t)
	e.seedConfig(t, model.TradeModePaper, false)
	inst := e.seedInstrument(t, "005930", "Samsung Electronics")
	e.gw.On("SubmitOrder", mock.Anything, mock.Anything).Return("ORD-1", nil).Once()

	order, err := e.orders.Place(context.Background(), PlaceRequest{
		Instrument: inst, Side: model.OrderSideBuy, Quantity: 5, Price: 70_000, PriceKind: model.PriceKindLimit,
	})
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusSubmitted, order.Status)
	assert.Equal(t, "ORD-1", order.OrderRef)
	assert.Equal(t, model.TradeModePaper, order.TradeMode)

	persisted := e.orderByID(t, order.ID)
	require.NotNil(t, persisted)
	assert.Equal(t, model.OrderStatusSubmitted, persisted.Status)
	assert.Equal(t, "ORD-1", persisted.OrderRef)
}

func TestPlaceGatewayRejection(t *testing.T) {
	e := newTestEngine(t)
	e.seedConfig(t, model.TradeModePaper, false)
	inst := e.seedInstrument(t, "005930", "Samsung Electronics")
	e.gw.On("SubmitOrder", mock.Anything, mock.Anything).
		Return("", errors.New("bridge refused")).Once()

	order, err := e.orders.Place(context.Background(), PlaceRequest{
		Instrument: inst, Side: model.OrderSideBuy, Quantity: 5, PriceKind: model.PriceKindMarket,
	})
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusRejected, order.Status)
	assert.Contains(t, order.Reason, "bridge refused")
	assert.Empty(t, order.OrderRef)

	persisted := e.orderByID(t, order.ID)
	require.NotNil(t, persisted)
	assert.Equal(t, model.OrderStatusRejected, persisted.Status)
}

func TestReconcileFillLifecycle(t *testing.T) {
	e := newTestEngine(t)
	e.seedConfig(t, model.TradeModePaper, false)
	inst := e.seedInstrument(t, "005930", "Samsung Electronics")
	e.gw.On("SubmitOrder", mock.Anything, mock.Anything).Return("ORD-1", nil).Once()
	ctx := context.Background()

	placed, err := e.orders.Place(ctx, PlaceRequest{
		Instrument: inst, Side: model.OrderSideBuy, Quantity: 10, PriceKind: model.PriceKindMarket,
	})
	require.NoError(t, err)

	t.Run("partial fill", func(t *testing.T) {
		order, err := e.orders.ReconcileFill(ctx, "ORD-1", 5, 70_000)
		require.NoError(t, err)
		assert.Equal(t, model.OrderStatusPartial, order.Status)
		assert.Equal(t, int64(5), order.FilledQuantity)

		holding := e.holding(t, inst.ID, model.TradeModePaper)
		require.NotNil(t, holding)
		assert.Equal(t, int64(5), holding.Quantity)
		assert.Equal(t, int64(70_000), holding.AvgPrice)
	})

	t.Run("final fill", func(t *testing.T) {
		order, err := e.orders.ReconcileFill(ctx, "ORD-1", 5, 70_000)
		require.NoError(t, err)
		assert.Equal(t, model.OrderStatusFilled, order.Status)
		assert.Equal(t, placed.Quantity, order.FilledQuantity)

		holding := e.holding(t, inst.ID, model.TradeModePaper)
		require.NotNil(t, holding)
		assert.Equal(t, int64(10), holding.Quantity)
	})

	t.Run("fill after terminal", func(t *testing.T) {
		_, err := e.orders.ReconcileFill(ctx, "ORD-1", 1, 70_000)
		assert.ErrorIs(t, err, ErrInvalidFill)
	})
}

func TestReconcileConcurrentFills(t *testing.T) {
	e := newTestEngine(t)
	e.seedConfig(t, model.TradeModePaper, false)
	inst := e.seedInstrument(t, "005930", "Samsung Electronics")
	e.gw.On("SubmitOrder", mock.Anything, mock.Anything).Return("ORD-1", nil).Once()
	ctx := context.Background()

	placed, err := e.orders.Place(ctx, PlaceRequest{
		Instrument: inst, Side: model.OrderSideBuy, Quantity: 10, PriceKind: model.PriceKindMarket,
	})
	require.NoError(t, err)

	// Ten 1-unit fills racing on the same reference must apply without lost
	// updates: every one lands, none double-counts.
	var wg sync.WaitGroup
	errs := make([]error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = e.orders.ReconcileFill(ctx, "ORD-1", 1, 70_000)
		}(i)
	}
	wg.Wait()
	for i, err := range errs {
		require.NoError(t, err, "fill %d", i)
	}

	final := e.orderByID(t, placed.ID)
	require.NotNil(t, final)
	assert.Equal(t, model.OrderStatusFilled, final.Status)
	assert.Equal(t, int64(10), final.FilledQuantity)

	holding := e.holding(t, inst.ID, model.TradeModePaper)
	require.NotNil(t, holding)
	assert.Equal(t, int64(10), holding.Quantity)

	uow, err := e.store.Begin(ctx)
	require.NoError(t, err)
	defer uow.Rollback()
	fills, err := uow.Fills().ListByOrder(ctx, placed.ID)
	require.NoError(t, err)
	assert.Len(t, fills, 10)
}

func TestReconcileFillRejectsOverfill(t *testing.T) {
	e := newTestEngine(t)
	e.seedConfig(t, model.TradeModePaper, false)
	inst := e.seedInstrument(t, "005930", "Samsung Electronics")
	e.gw.On("SubmitOrder", mock.Anything, mock.Anything).Return("ORD-1", nil).Once()
	ctx := context.Background()

	_, err := e.orders.Place(ctx, PlaceRequest{
		Instrument: inst, Side: model.OrderSideBuy, Quantity: 10, PriceKind: model.PriceKindMarket,
	})
	require.NoError(t, err)

	_, err = e.orders.ReconcileFill(ctx, "ORD-1", 11, 70_000)
	assert.ErrorIs(t, err, ErrInvalidFill)

	// Rejected fill must leave no trace: no fill row, no holding change.
	holding := e.holding(t, inst.ID, model.TradeModePaper)
	assert.Nil(t, holding)
}

func TestReconcileFillUnknownRef(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.orders.ReconcileFill(context.Background(), "NOPE", 1, 100)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestReconcileFillRejectsNonPositive(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	_, err := e.orders.ReconcileFill(ctx, "ORD-1", 0, 100)
	assert.ErrorIs(t, err, ErrInvalidFill)
	_, err = e.orders.ReconcileFill(ctx, "ORD-1", 1, 0)
	assert.ErrorIs(t, err, ErrInvalidFill)
}

func TestCancel(t *testing.T) {
	e := newTestEngine(t)
	e.seedConfig(t, model.TradeModePaper, false)
	inst := e.seedInstrument(t, "005930", "Samsung Electronics")
	e.gw.On("SubmitOrder", mock.Anything, mock.Anything).Return("ORD-1", nil).Once()
	e.gw.On("CancelOrder", mock.Anything, "ORD-1", inst.Code, int64(7)).Return(nil).Once()
	ctx := context.Background()

	placed, err := e.orders.Place(ctx, PlaceRequest{
		Instrument: inst, Side: model.OrderSideBuy, Quantity: 10, PriceKind: model.PriceKindMarket,
	})
	require.NoError(t, err)

	_, err = e.orders.ReconcileFill(ctx, "ORD-1", 3, 70_000)
	require.NoError(t, err)

	cancelled, err := e.orders.Cancel(ctx, placed.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusCancelled, cancelled.Status)
	assert.Equal(t, int64(3), cancelled.FilledQuantity)
	e.gw.AssertExpectations(t)

	t.Run("cancel terminal order", func(t *testing.T) {
		_, err := e.orders.Cancel(ctx, placed.ID)
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("cancel unknown order", func(t *testing.T) {
		_, err := e.orders.Cancel(ctx, 99_999)
		assert.ErrorIs(t, err, ErrOrderNotFound)
	})
}

func TestCancelGatewayFailureLeavesOrder(t *testing.T) {
	e := newTestEngine(t)
	e.seedConfig(t, model.TradeModePaper, false)
	inst := e.seedInstrument(t, "005930", "Samsung Electronics")
	e.gw.On("SubmitOrder", mock.Anything, mock.Anything).Return("ORD-1", nil).Once()
	e.gw.On("CancelOrder", mock.Anything, "ORD-1", inst.Code, int64(10)).
		Return(ErrGatewayUnavailable).Once()
	ctx := context.Background()

	placed, err := e.orders.Place(ctx, PlaceRequest{
		Instrument: inst, Side: model.OrderSideBuy, Quantity: 10, PriceKind: model.PriceKindMarket,
	})
	require.NoError(t, err)

	_, err = e.orders.Cancel(ctx, placed.ID)
	assert.ErrorIs(t, err, ErrGatewayUnavailable)

	persisted := e.orderByID(t, placed.ID)
	require.NotNil(t, persisted)
	assert.Equal(t, model.OrderStatusSubmitted, persisted.Status)
}
